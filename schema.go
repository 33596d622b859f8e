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

	jsoniter "github.com/json-iterator/go"
)

// codecBuilder is the set of entry points buildCodec dispatches to based on
// the JSON shape it is handed. Tests substitute alternate slice builders
// (see union.go) to switch between the wire-accurate union codec and the
// standard-JSON-compatible one; production callers get the defaults wired
// up by NewCodec/NewCodecForStandardJSON.
type codecBuilder struct {
	buildCodecForTypeDescribedByMap    func(st map[string]*Codec, enclosingNamespace string, schemaMap map[string]interface{}, cb *codecBuilder) (*Codec, error)
	buildCodecForTypeDescribedByString func(st map[string]*Codec, enclosingNamespace string, schemaString string, cb *codecBuilder) (*Codec, error)
	buildCodecForTypeDescribedBySlice  func(st map[string]*Codec, enclosingNamespace string, schemaArray []interface{}, cb *codecBuilder) (*Codec, error)
}

var defaultCodecBuilder = &codecBuilder{
	buildCodecForTypeDescribedByMap:    buildCodecForTypeDescribedByMap,
	buildCodecForTypeDescribedByString: buildCodecForTypeDescribedByString,
	buildCodecForTypeDescribedBySlice:  buildCodecForTypeDescribedBySlice,
}

var standardJSONCodecBuilder = &codecBuilder{
	buildCodecForTypeDescribedByMap:    buildCodecForTypeDescribedByMap,
	buildCodecForTypeDescribedByString: buildCodecForTypeDescribedByString,
	buildCodecForTypeDescribedBySlice:  buildCodecForTypeDescribedBySliceJSON,
}

// buildCodec dispatches on the three JSON shapes Avro schemas are allowed to
// take at any position: a bare string, an object, or an array (anonymous
// union).
func buildCodec(st map[string]*Codec, enclosingNamespace string, schema interface{}, cb *codecBuilder) (*Codec, error) {
	switch v := schema.(type) {
	case string:
		return cb.buildCodecForTypeDescribedByString(st, enclosingNamespace, v, cb)
	case map[string]interface{}:
		return cb.buildCodecForTypeDescribedByMap(st, enclosingNamespace, v, cb)
	case []interface{}:
		return cb.buildCodecForTypeDescribedBySlice(st, enclosingNamespace, v, cb)
	case nil:
		return buildPrimitiveCodec("null"), nil
	default:
		return nil, fmt.Errorf("unknown schema type: %T", schema)
	}
}

var primitiveTypes = map[string]bool{
	"null": true, "boolean": true, "int": true, "long": true,
	"float": true, "double": true, "bytes": true, "string": true,
}

func buildCodecForTypeDescribedByString(st map[string]*Codec, enclosingNamespace string, s string, cb *codecBuilder) (*Codec, error) {
	if primitiveTypes[s] {
		return buildPrimitiveCodec(s), nil
	}
	full := fullNameFrom(enclosingNamespace, s)
	if c, ok := st[full]; ok {
		return c, nil
	}
	if c, ok := st[s]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("unknown type name: %q", s)
}

func buildCodecForTypeDescribedByMap(st map[string]*Codec, enclosingNamespace string, m map[string]interface{}, cb *codecBuilder) (*Codec, error) {
	if arr, ok := m["type"].([]interface{}); ok {
		return cb.buildCodecForTypeDescribedBySlice(st, enclosingNamespace, arr, cb)
	}
	t, ok := m["type"].(string)
	if !ok {
		return nil, fmt.Errorf("type object ought to have string \"type\" key: %v", m)
	}

	switch t {
	case "null", "boolean", "int", "long", "float", "double", "bytes", "string":
		base := buildPrimitiveCodec(t)
		return wrapLogicalType(base, t, m), nil
	case "record":
		return buildCodecForRecord(st, enclosingNamespace, m, cb)
	case "enum":
		return buildCodecForEnum(st, enclosingNamespace, m)
	case "array":
		return buildCodecForArray(st, enclosingNamespace, m, cb)
	case "map":
		return buildCodecForMap(st, enclosingNamespace, m, cb)
	case "fixed":
		base, err := buildCodecForFixed(st, enclosingNamespace, m)
		if err != nil {
			return nil, err
		}
		return wrapLogicalType(base, "fixed", m), nil
	default:
		// a bare type name wrapped in an object, e.g. {"type": "com.example.Rec"}
		// for a named-type reference -- resolve it like the string form.
		return buildCodecForTypeDescribedByString(st, enclosingNamespace, t, cb)
	}
}

func buildPrimitiveCodec(t string) *Codec {
	c := &Codec{typeName: &name{t, nullNamespace}}
	switch t {
	case "null":
		c.nativeFromBinary = nullNativeFromBinary
		c.binaryFromNative = nullBinaryFromNative
		c.nativeFromTextual = nullNativeFromTextual
		c.textualFromNative = nullTextualFromNative
	case "boolean":
		c.nativeFromBinary = booleanNativeFromBinary
		c.binaryFromNative = booleanBinaryFromNative
		c.nativeFromTextual = booleanNativeFromTextual
		c.textualFromNative = booleanTextualFromNative
	case "int":
		c.nativeFromBinary = intNativeFromBinary
		c.binaryFromNative = intBinaryFromNative
		c.nativeFromTextual = intNativeFromTextual
		c.textualFromNative = intTextualFromNative
	case "long":
		c.nativeFromBinary = longNativeFromBinary
		c.binaryFromNative = longBinaryFromNative
		c.nativeFromTextual = longNativeFromTextual
		c.textualFromNative = longTextualFromNative
	case "float":
		c.nativeFromBinary = floatNativeFromBinary
		c.binaryFromNative = floatBinaryFromNative
		c.nativeFromTextual = floatNativeFromTextual
		c.textualFromNative = floatTextualFromNative
	case "double":
		c.nativeFromBinary = doubleNativeFromBinary
		c.binaryFromNative = doubleBinaryFromNative
		c.nativeFromTextual = doubleNativeFromTextual
		c.textualFromNative = doubleTextualFromNative
	case "bytes":
		c.nativeFromBinary = bytesNativeFromBinary
		c.binaryFromNative = bytesBinaryFromNative
		c.nativeFromTextual = bytesNativeFromTextual
		c.textualFromNative = bytesTextualFromNative
	case "string":
		c.nativeFromBinary = stringNativeFromBinary
		c.binaryFromNative = stringBinaryFromNative
		c.nativeFromTextual = stringNativeFromTextual
		c.textualFromNative = stringTextualFromNative
	}
	c.schemaCanonical = func(seen map[string]bool) string {
		return quoteString(t)
	}
	return c
}

// resolveName reads the "name"/"namespace" attributes common to record,
// enum, and fixed declarations; "aliases" is not read.
func resolveName(m map[string]interface{}, enclosingNamespace string) (*name, error) {
	shortOrFull, ok := m["name"].(string)
	if !ok || shortOrFull == "" {
		return nil, fmt.Errorf("ought to have non-empty name")
	}
	explicitNamespace, _ := m["namespace"].(string)
	return newName(enclosingNamespace, shortOrFull, explicitNamespace), nil
}

// parseSchemaJSON parses the top-level schema document text into the
// generic representation buildCodec dispatches on (string, map, or slice),
// using json-iterator rather than the standard library's encoding/json for
// speed on large schema documents, matching the approach hamba/avro takes
// in its own schema parser.
func parseSchemaJSON(schemaText string) (interface{}, error) {
	var v interface{}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(schemaText, &v); err != nil {
		// a bare, unquoted primitive type name like `int` is not valid JSON
		// on its own; treat the raw text as the string form in that case.
		return schemaText, nil
	}
	return v, nil
}

// NewCodec returns a Codec for the given schema, built with the default,
// wire-accurate union builder.
func NewCodec(schema string) (*Codec, error) {
	return NewCodecFrom(schema, defaultCodecBuilder)
}

// NewCodecForStandardJSON returns a Codec whose textual decoding accepts
// ordinary JSON (no explicit union type tagging) rather than Avro's JSON
// encoding -- see the doc comment on buildCodecForTypeDescribedBySliceJSON in
// union.go for the rationale. Its textual encoding still produces Avro's
// JSON encoding, with union values tagged by type name.
func NewCodecForStandardJSON(schema string) (*Codec, error) {
	return NewCodecFrom(schema, standardJSONCodecBuilder)
}

// NewCodecFrom builds a Codec using the given codecBuilder, allowing callers
// (and tests) to swap in alternate behavior for any of the three schema JSON
// shapes.
func NewCodecFrom(schema string, cb *codecBuilder) (*Codec, error) {
	parsed, err := parseSchemaJSON(schema)
	if err != nil {
		return nil, fmt.Errorf("cannot parse schema: %s", err)
	}
	st := make(map[string]*Codec)
	c, err := buildCodec(st, "", parsed, cb)
	if err != nil {
		return nil, fmt.Errorf("cannot parse schema: %s", err)
	}
	return c, nil
}

// Union wraps a native value for encoding into a union branch identified by
// name, matching the {"typeName": value} shape the union codec expects for
// any branch other than null.
func Union(name string, datum interface{}) map[string]interface{} {
	return map[string]interface{}{name: datum}
}
