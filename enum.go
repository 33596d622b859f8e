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
	"fmt"
	"regexp"
)

// avroEnum is implemented by any native value a caller hands the encoder in
// place of a bare Go string for an enum field -- mirroring the way union
// members may arrive boxed. Str returns the symbol name.
type avroEnum interface {
	Str() string
}

var enumSymbolRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func buildCodecForEnum(st map[string]*Codec, enclosingNamespace string, m map[string]interface{}) (*Codec, error) {
	n, err := resolveName(m, enclosingNamespace)
	if err != nil {
		return nil, fmt.Errorf("Enum %s", err)
	}

	rawSymbols, ok := m["symbols"].([]interface{})
	if !ok || len(rawSymbols) == 0 {
		return nil, fmt.Errorf("Enum %q ought to have non-empty array of symbols", n.fullName)
	}
	symbols := make([]string, len(rawSymbols))
	seen := make(map[string]bool, len(rawSymbols))
	for i, rs := range rawSymbols {
		s, ok := rs.(string)
		if !ok {
			return nil, fmt.Errorf("Enum %q symbol %d ought to be string", n.fullName, i+1)
		}
		if !enumSymbolRE.MatchString(s) {
			return nil, fmt.Errorf("Enum %q symbol %d ought to match [A-Za-z_][A-Za-z0-9_]*: %q", n.fullName, i+1, s)
		}
		if seen[s] {
			return nil, fmt.Errorf("Enum %q symbol %d ought to be unique: %q", n.fullName, i+1, s)
		}
		seen[s] = true
		symbols[i] = s
	}

	indexFromSymbol := make(map[string]int, len(symbols))
	for i, s := range symbols {
		indexFromSymbol[s] = i
	}

	c := &Codec{typeName: n}

	c.nativeFromBinary = func(buf []byte) (interface{}, []byte, error) {
		decoded, newBuf, err := longNativeFromBinary(buf)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot decode binary enum %q: %s", n.fullName, err)
		}
		index := decoded.(int64)
		if index < 0 || int(index) >= len(symbols) {
			return nil, nil, fmt.Errorf("cannot decode binary enum %q: index ought to be between 0 and %d; read index: %d", n.fullName, len(symbols)-1, index)
		}
		return symbols[index], newBuf, nil
	}
	c.binaryFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		var s string
		switch v := datum.(type) {
		case string:
			s = v
		case avroEnum:
			s = v.Str()
		default:
			return nil, fmt.Errorf("cannot encode binary enum %q: expected Go string; received: %T", n.fullName, datum)
		}
		index, ok := indexFromSymbol[s]
		if !ok {
			return nil, fmt.Errorf("cannot encode binary enum %q: value ought to be member of symbols: %v; %q", n.fullName, symbols, s)
		}
		return longBinaryFromNative(buf, int64(index))
	}
	c.nativeFromTextual = func(buf []byte) (interface{}, []byte, error) {
		decoded, newBuf, err := stringNativeFromTextual(buf)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot decode textual enum %q: %s", n.fullName, err)
		}
		s := decoded.(string)
		if _, ok := indexFromSymbol[s]; !ok {
			return nil, nil, fmt.Errorf("cannot decode textual enum %q: value ought to be member of symbols: %v; %q", n.fullName, symbols, s)
		}
		return s, newBuf, nil
	}
	c.textualFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		var s string
		switch v := datum.(type) {
		case string:
			s = v
		case avroEnum:
			s = v.Str()
		default:
			return nil, fmt.Errorf("cannot encode textual enum %q: expected Go string; received: %T", n.fullName, datum)
		}
		if _, ok := indexFromSymbol[s]; !ok {
			return nil, fmt.Errorf("cannot encode textual enum %q: value ought to be member of symbols: %v; %q", n.fullName, symbols, s)
		}
		return stringTextualFromNative(buf, s)
	}
	c.schemaCanonical = func(seen map[string]bool) string {
		if seen[n.fullName] {
			return quoteString(n.fullName)
		}
		seen[n.fullName] = true
		return emitObject(
			kv{"type", quoteString("enum")},
			kv{"name", quoteString(n.fullName)},
			kv{"symbols", emitStringArray(symbols)},
		)
	}

	st[n.fullName] = c
	return c, nil
}
