// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package goavro

import (
	"encoding/json"
	"strings"
)

// kv is one property of a canonically emitted schema object. Property
// ordering inside the object follows spec section 4.3: type, name,
// namespace, fields/symbols/items/values/size, logicalType, then anything
// else -- callers are responsible for passing kvs in that order since this
// helper emits them positionally, not sorted.
type kv struct {
	key, value string
}

// emitObject renders a JSON object from already-JSON-encoded key/value
// pairs, skipping any pair whose value is the empty string (used for
// optional attributes like namespace/aliases/doc).
func emitObject(kvs ...kv) string {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	for _, p := range kvs {
		if p.value == "" {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(quoteString(p.key))
		b.WriteByte(':')
		b.WriteString(p.value)
	}
	b.WriteByte('}')
	return b.String()
}

// quoteString returns the JSON string literal for s.
func quoteString(s string) string {
	encoded, _ := json.Marshal(s)
	return string(encoded)
}

// emitStringArray returns the JSON array literal for a slice of strings.
func emitStringArray(ss []string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, s := range ss {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quoteString(s))
	}
	b.WriteByte(']')
	return b.String()
}

// emitArray joins already-JSON-encoded elements into a JSON array literal.
func emitArray(elems []string) string {
	return "[" + strings.Join(elems, ",") + "]"
}
