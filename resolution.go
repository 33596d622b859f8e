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

// This file adds writer/reader schema resolution, a feature the teacher
// library's public API (a single-schema NewCodec) does not offer. The rules
// below follow the Avro specification's schema resolution section, the same
// rules hamba/avro's decoder exercises (see decoder_record_test.go,
// decoder_union_test.go, encoder_record_test.go in the retrieval pack) --
// expressed here through this package's own Codec/closure vocabulary rather
// than a generic Decoder.Decode(v interface{}) visitor.

// NewCodecForResolution returns a Codec whose NativeFromBinary reads data
// written with writerSchema but produces native values shaped according to
// readerSchema. Its BinaryFromNative is the reader schema's ordinary write
// plan (resolution only ever applies to reading data written by a possibly
// older/newer schema).
func NewCodecForResolution(writerSchema, readerSchema string) (*Codec, error) {
	writerParsed, err := parseSchemaJSON(writerSchema)
	if err != nil {
		return nil, fmt.Errorf("cannot parse writer schema: %s", err)
	}
	readerParsed, err := parseSchemaJSON(readerSchema)
	if err != nil {
		return nil, fmt.Errorf("cannot parse reader schema: %s", err)
	}

	reader, err := NewCodec(readerSchema)
	if err != nil {
		return nil, fmt.Errorf("cannot parse reader schema: %s", err)
	}

	st := make(map[string]*Codec)
	decode, err := resolveNode(st, "", writerParsed, readerParsed)
	if err != nil {
		return nil, err
	}

	return &Codec{
		typeName:          reader.typeName,
		schemaCanonical:   reader.schemaCanonical,
		nativeFromBinary:  decode,
		binaryFromNative:  reader.binaryFromNative,
		nativeFromTextual: reader.nativeFromTextual,
		textualFromNative: reader.textualFromNative,
	}, nil
}

type decodeFunc func(buf []byte) (interface{}, []byte, error)

func schemaTypeName(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}:
		if s, ok := t["type"].(string); ok {
			return s
		}
	case []interface{}:
		return "union"
	}
	return ""
}

func isPrimitiveName(s string) bool {
	return primitiveTypes[s]
}

// promotionRank orders the numeric promotion chain int -> long -> float ->
// double; string/bytes are handled separately since they aren't numeric.
var promotionRank = map[string]int{"int": 0, "long": 1, "float": 2, "double": 3}

func canPromote(writer, reader string) bool {
	if writer == reader {
		return true
	}
	if writer == "string" && reader == "bytes" {
		return true
	}
	if writer == "bytes" && reader == "string" {
		return true
	}
	wr, wok := promotionRank[writer]
	rr, rok := promotionRank[reader]
	return wok && rok && rr >= wr
}

// resolveNode builds a decode closure for one position in the schema,
// reconciling the writer's wire shape against the reader's target shape.
func resolveNode(st map[string]*Codec, ns string, writer, reader interface{}) (decodeFunc, error) {
	wt := schemaTypeName(writer)
	rt := schemaTypeName(reader)

	if wt == "union" {
		return resolveUnionWriter(st, ns, writer.([]interface{}), reader)
	}

	if rt == "union" {
		return resolveIntoReaderUnion(st, ns, writer, reader.([]interface{}))
	}

	switch wt {
	case "record":
		if rt != "record" {
			return nil, fmt.Errorf("cannot resolve record against %s: %w", rt, errSchemaIncompatible)
		}
		return resolveRecord(st, ns, writer.(map[string]interface{}), reader.(map[string]interface{}))
	case "enum":
		if rt != "enum" {
			return nil, fmt.Errorf("cannot resolve enum against %s: %w", rt, errSchemaIncompatible)
		}
		return resolveEnum(writer.(map[string]interface{}), reader.(map[string]interface{}))
	case "array":
		if rt != "array" {
			return nil, fmt.Errorf("cannot resolve array against %s: %w", rt, errSchemaIncompatible)
		}
		return resolveArray(st, ns, writer.(map[string]interface{}), reader.(map[string]interface{}))
	case "map":
		if rt != "map" {
			return nil, fmt.Errorf("cannot resolve map against %s: %w", rt, errSchemaIncompatible)
		}
		return resolveMap(st, ns, writer.(map[string]interface{}), reader.(map[string]interface{}))
	case "fixed":
		if rt != "fixed" {
			return nil, fmt.Errorf("cannot resolve fixed against %s: %w", rt, errSchemaIncompatible)
		}
		return resolveFixed(writer.(map[string]interface{}), reader.(map[string]interface{}))
	default:
		if !isPrimitiveName(wt) {
			return nil, fmt.Errorf("cannot resolve schema: unknown writer type %q", wt)
		}
		if !canPromote(wt, rt) {
			return nil, fmt.Errorf("cannot resolve %s against %s: %w", wt, rt, errSchemaIncompatible)
		}
		return resolvePrimitive(wt, rt)
	}
}

func resolvePrimitive(writerType, readerType string) (decodeFunc, error) {
	wc := buildPrimitiveCodec(writerType)
	if writerType == readerType {
		return wc.nativeFromBinary, nil
	}
	return func(buf []byte) (interface{}, []byte, error) {
		v, rest, err := wc.nativeFromBinary(buf)
		if err != nil {
			return nil, nil, err
		}
		return promoteValue(v, readerType), rest, nil
	}, nil
}

func promoteValue(v interface{}, readerType string) interface{} {
	switch readerType {
	case "long":
		if n, ok := v.(int32); ok {
			return int64(n)
		}
	case "float":
		switch n := v.(type) {
		case int32:
			return float32(n)
		case int64:
			return float32(n)
		}
	case "double":
		switch n := v.(type) {
		case int32:
			return float64(n)
		case int64:
			return float64(n)
		case float32:
			return float64(n)
		}
	case "bytes":
		if s, ok := v.(string); ok {
			return []byte(s)
		}
	case "string":
		if b, ok := v.([]byte); ok {
			return string(b)
		}
	}
	return v
}

func resolveRecord(st map[string]*Codec, ns string, writer, reader map[string]interface{}) (decodeFunc, error) {
	writerFields, _ := writer["fields"].([]interface{})
	readerFields, _ := reader["fields"].([]interface{})

	type readerFieldInfo struct {
		name       string
		schema     interface{}
		hasDefault bool
		def        interface{}
	}
	readerByName := make(map[string]readerFieldInfo, len(readerFields))
	var readerOrder []string
	for _, rf := range readerFields {
		fm := rf.(map[string]interface{})
		fname := fm["name"].(string)
		def, hasDefault := fm["default"]
		readerByName[fname] = readerFieldInfo{name: fname, schema: fm["type"], hasDefault: hasDefault, def: def}
		readerOrder = append(readerOrder, fname)
	}

	type step struct {
		inReader bool
		name     string
		decode   decodeFunc // used when the writer declares this field (present in reader or not)
		skip     decodeFunc // writer-only: still must be consumed from the stream
	}
	var steps []step
	seenInWriter := make(map[string]bool)

	for _, wf := range writerFields {
		fm := wf.(map[string]interface{})
		fname := fm["name"].(string)
		seenInWriter[fname] = true
		if rfi, ok := readerByName[fname]; ok {
			dec, err := resolveNode(st, ns, fm["type"], rfi.schema)
			if err != nil {
				return nil, fmt.Errorf("field %q: %s", fname, err)
			}
			steps = append(steps, step{inReader: true, name: fname, decode: dec})
		} else {
			wc, err := buildCodec(st, ns, fm["type"], defaultCodecBuilder)
			if err != nil {
				return nil, fmt.Errorf("field %q: %s", fname, err)
			}
			steps = append(steps, step{inReader: false, name: fname, skip: wc.nativeFromBinary})
		}
	}

	for _, fname := range readerOrder {
		if !seenInWriter[fname] {
			rfi := readerByName[fname]
			if !rfi.hasDefault {
				return nil, fmt.Errorf("reader field %q missing from writer and has no default: %w", fname, errSchemaIncompatible)
			}
		}
	}

	return func(buf []byte) (interface{}, []byte, error) {
		rec := make(map[string]interface{}, len(readerOrder))
		var err error
		for _, s := range steps {
			if s.inReader {
				var v interface{}
				v, buf, err = s.decode(buf)
				if err != nil {
					return nil, nil, fmt.Errorf("cannot resolve record field %q: %s", s.name, err)
				}
				rec[s.name] = v
			} else {
				_, buf, err = s.skip(buf)
				if err != nil {
					return nil, nil, fmt.Errorf("cannot skip writer-only field %q: %s", s.name, err)
				}
			}
		}
		for _, fname := range readerOrder {
			if _, ok := rec[fname]; !ok {
				rec[fname] = readerByName[fname].def
			}
		}
		return rec, buf, nil
	}, nil
}

func resolveEnum(writer, reader map[string]interface{}) (decodeFunc, error) {
	wsyms := toStringSlice(writer["symbols"].([]interface{}))
	rsyms := toStringSlice(reader["symbols"].([]interface{}))
	rset := make(map[string]bool, len(rsyms))
	for _, s := range rsyms {
		rset[s] = true
	}
	return func(buf []byte) (interface{}, []byte, error) {
		decoded, rest, err := longNativeFromBinary(buf)
		if err != nil {
			return nil, nil, err
		}
		idx := decoded.(int64)
		if idx < 0 || int(idx) >= len(wsyms) {
			return nil, nil, fmt.Errorf("cannot resolve enum: index out of range: %d", idx)
		}
		sym := wsyms[idx]
		if !rset[sym] {
			return nil, nil, newError(EnumSymbolMissing, -1, "writer symbol %q not present in reader", sym)
		}
		return sym, rest, nil
	}, nil
}

func toStringSlice(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = v.(string)
	}
	return out
}

func resolveArray(st map[string]*Codec, ns string, writer, reader map[string]interface{}) (decodeFunc, error) {
	itemDecode, err := resolveNode(st, ns, writer["items"], reader["items"])
	if err != nil {
		return nil, fmt.Errorf("array items: %s", err)
	}
	return func(buf []byte) (interface{}, []byte, error) {
		var items []interface{}
		for {
			decodedCount, newBuf, err := longNativeFromBinary(buf)
			if err != nil {
				return nil, nil, err
			}
			buf = newBuf
			blockCount := decodedCount.(int64)
			if blockCount == 0 {
				break
			}
			if blockCount < 0 {
				blockCount = -blockCount
				_, newBuf, err := longNativeFromBinary(buf)
				if err != nil {
					return nil, nil, err
				}
				buf = newBuf
			}
			for i := int64(0); i < blockCount; i++ {
				var v interface{}
				v, buf, err = itemDecode(buf)
				if err != nil {
					return nil, nil, err
				}
				items = append(items, v)
			}
		}
		if items == nil {
			items = []interface{}{}
		}
		return items, buf, nil
	}, nil
}

func resolveMap(st map[string]*Codec, ns string, writer, reader map[string]interface{}) (decodeFunc, error) {
	valueDecode, err := resolveNode(st, ns, writer["values"], reader["values"])
	if err != nil {
		return nil, fmt.Errorf("map values: %s", err)
	}
	return func(buf []byte) (interface{}, []byte, error) {
		items := make(map[string]interface{})
		for {
			decodedCount, newBuf, err := longNativeFromBinary(buf)
			if err != nil {
				return nil, nil, err
			}
			buf = newBuf
			blockCount := decodedCount.(int64)
			if blockCount == 0 {
				break
			}
			if blockCount < 0 {
				blockCount = -blockCount
				_, newBuf, err := longNativeFromBinary(buf)
				if err != nil {
					return nil, nil, err
				}
				buf = newBuf
			}
			for i := int64(0); i < blockCount; i++ {
				var key interface{}
				key, buf, err = stringNativeFromBinary(buf)
				if err != nil {
					return nil, nil, err
				}
				var v interface{}
				v, buf, err = valueDecode(buf)
				if err != nil {
					return nil, nil, err
				}
				items[key.(string)] = v
			}
		}
		return items, buf, nil
	}, nil
}

func resolveFixed(writer, reader map[string]interface{}) (decodeFunc, error) {
	wn, _ := writer["name"].(string)
	rn, _ := reader["name"].(string)
	ws, _ := writer["size"].(float64)
	rs, _ := reader["size"].(float64)
	if wn != rn || ws != rs {
		return nil, fmt.Errorf("cannot resolve fixed %q/%q or size %v/%v: %w", wn, rn, ws, rs, errSchemaIncompatible)
	}
	size := int(ws)
	return func(buf []byte) (interface{}, []byte, error) {
		if shortBuffer(buf, size) {
			return nil, nil, fmt.Errorf("cannot resolve fixed %q: short buffer", wn)
		}
		v := make([]byte, size)
		copy(v, buf[:size])
		return v, buf[size:], nil
	}, nil
}

// resolveUnionWriter decodes the writer's branch index, then resolves that
// branch's schema against the (possibly non-union) reader schema.
func resolveUnionWriter(st map[string]*Codec, ns string, writerBranches []interface{}, reader interface{}) (decodeFunc, error) {
	branchDecoders := make([]decodeFunc, len(writerBranches))
	for i, wb := range writerBranches {
		dec, err := resolveNode(st, ns, wb, reader)
		if err != nil {
			return nil, fmt.Errorf("union branch %d: %s", i+1, err)
		}
		branchDecoders[i] = dec
	}
	return func(buf []byte) (interface{}, []byte, error) {
		decoded, rest, err := longNativeFromBinary(buf)
		if err != nil {
			return nil, nil, err
		}
		idx := decoded.(int64)
		if idx < 0 || int(idx) >= len(branchDecoders) {
			return nil, nil, fmt.Errorf("cannot resolve union: index out of range: %d", idx)
		}
		return branchDecoders[idx](rest)
	}, nil
}

// resolveIntoReaderUnion resolves a non-union writer schema against the
// first compatible branch of a reader union.
func resolveIntoReaderUnion(st map[string]*Codec, ns string, writer interface{}, readerBranches []interface{}) (decodeFunc, error) {
	wt := schemaTypeName(writer)
	for _, rb := range readerBranches {
		rt := schemaTypeName(rb)
		if wt == rt || canPromote(wt, rt) {
			dec, err := resolveNode(st, ns, writer, rb)
			if err == nil {
				if rt == "null" {
					return dec, nil
				}
				key := rt
				if m, ok := rb.(map[string]interface{}); ok && (rt == "record" || rt == "enum" || rt == "fixed") {
					if n, err := resolveName(m, ns); err == nil {
						key = n.fullName
					}
				}
				return func(buf []byte) (interface{}, []byte, error) {
					v, rest, err := dec(buf)
					if err != nil {
						return nil, nil, err
					}
					return map[string]interface{}{key: v}, rest, nil
				}, nil
			}
		}
	}
	return nil, fmt.Errorf("cannot resolve %s against any reader union branch: %w", wt, errSchemaIncompatible)
}

var errSchemaIncompatible = newError(SchemaIncompatible, -1, "writer and reader schemas cannot be reconciled")
