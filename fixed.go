// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package goavro

import "fmt"

func buildCodecForFixed(st map[string]*Codec, enclosingNamespace string, m map[string]interface{}) (*Codec, error) {
	n, err := resolveName(m, enclosingNamespace)
	if err != nil {
		return nil, fmt.Errorf("Fixed %s", err)
	}

	sizef, ok := m["size"].(float64)
	if !ok || sizef < 0 {
		return nil, fmt.Errorf("Fixed %q ought to have non-negative integer size", n.fullName)
	}
	size := int(sizef)

	c := &Codec{typeName: n}
	c.nativeFromBinary = func(buf []byte) (interface{}, []byte, error) {
		if shortBuffer(buf, size) {
			return nil, nil, fmt.Errorf("cannot decode binary fixed %q: %s", n.fullName, "short buffer")
		}
		v := make([]byte, size)
		copy(v, buf[:size])
		return v, buf[size:], nil
	}
	c.binaryFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		v, ok := datum.([]byte)
		if !ok {
			return nil, fmt.Errorf("cannot encode binary fixed %q: expected Go []byte; received: %T", n.fullName, datum)
		}
		if len(v) != size {
			return nil, fmt.Errorf("cannot encode binary fixed %q: expected []byte of length %d; received length: %d", n.fullName, size, len(v))
		}
		return append(buf, v...), nil
	}
	c.nativeFromTextual = func(buf []byte) (interface{}, []byte, error) {
		decoded, rest, err := bytesNativeFromTextual(buf)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot decode textual fixed %q: %s", n.fullName, err)
		}
		v := decoded.([]byte)
		if len(v) != size {
			return nil, nil, fmt.Errorf("cannot decode textual fixed %q: expected length %d; received length: %d", n.fullName, size, len(v))
		}
		return v, rest, nil
	}
	c.textualFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		v, ok := datum.([]byte)
		if !ok {
			return nil, fmt.Errorf("cannot encode textual fixed %q: expected Go []byte; received: %T", n.fullName, datum)
		}
		if len(v) != size {
			return nil, fmt.Errorf("cannot encode textual fixed %q: expected []byte of length %d; received length: %d", n.fullName, size, len(v))
		}
		return bytesTextualFromNative(buf, v)
	}
	c.schemaCanonical = func(seen map[string]bool) string {
		if seen[n.fullName] {
			return quoteString(n.fullName)
		}
		seen[n.fullName] = true
		return emitObject(
			kv{"type", quoteString("fixed")},
			kv{"name", quoteString(n.fullName)},
			kv{"size", fmt.Sprintf("%d", size)},
		)
	}

	st[n.fullName] = c
	return c, nil
}
