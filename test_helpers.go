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
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/mohae/deepcopy"
)

// ensureError checks that err is non-nil and its message contains substring
// when substring is non-empty; when substring is empty it requires err to be
// nil. This is the same shape binary_test.go's own fail-path helpers expect
// from ensureError, just not previously defined in the retrieved files.
func ensureError(t *testing.T, err error, substring ...string) {
	t.Helper()
	if len(substring) == 0 || substring[0] == "" {
		if err != nil {
			t.Fatalf("GOT: %v; WANT: nil", err)
		}
		return
	}
	if err == nil {
		t.Fatalf("GOT: nil; WANT: error with substring: %q", substring[0])
	}
	if !strings.Contains(err.Error(), substring[0]) {
		t.Fatalf("GOT: %v; WANT substring: %q", err, substring[0])
	}
}

// testSchemaInvalid confirms that schema fails to parse, with an error
// message containing substring.
func testSchemaInvalid(t *testing.T, schema, substring string) {
	t.Helper()
	c, err := NewCodec(schema)
	ensureError(t, err, substring)
	if c != nil {
		t.Fatalf("GOT: %v; WANT: nil", c)
	}
}

// testTextCodecPass round-trips datum through the Avro JSON data encoding:
// TextualFromNative(datum) must equal expected, and NativeFromTextual(expected)
// must decode back to a value equivalent to datum.
func testTextCodecPass(t *testing.T, schema string, datum interface{}, expected []byte) {
	t.Helper()
	codec, err := NewCodec(schema)
	if err != nil {
		t.Fatal(err)
	}

	actual, err := codec.TextualFromNative(nil, datum)
	if err != nil {
		t.Fatalf("schema: %s; Datum: %v; %s", schema, datum, err)
	}
	if !bytes.Equal(actual, expected) {
		t.Errorf("schema: %s; Datum: %v; Actual: %s; Expected: %s", schema, datum, actual, expected)
	}

	value, remaining, err := codec.NativeFromTextual(expected)
	if err != nil {
		t.Fatalf("schema: %s; %s", schema, err)
	}
	if len(remaining) != 0 {
		t.Errorf("schema: %s; Actual remaining: %#v; Expected: %#v", schema, remaining, []byte{})
	}
	assertDecodedEquivalent(t, schema, datum, value)
}

// testJSONDecodePass decodes plain (non-Avro-tagged) JSON bytes against a
// union schema, using the standard-JSON codec builder (see
// NewCodecForStandardJSON and buildCodecForTypeDescribedBySliceJSON in
// union.go) rather than the wire-accurate Avro JSON encoding.
func testJSONDecodePass(t *testing.T, schema string, datum interface{}, encoded []byte) {
	t.Helper()
	codec, err := NewCodecForStandardJSON(schema)
	if err != nil {
		t.Fatal(err)
	}
	value, remaining, err := codec.NativeFromTextual(encoded)
	if err != nil {
		t.Fatalf("schema: %s; %s", schema, err)
	}
	if len(remaining) != 0 {
		t.Errorf("schema: %s; Actual remaining: %#v; Expected: %#v", schema, remaining, []byte{})
	}

	// The standard-JSON union codec always returns a {"typeName": value}
	// wrapped map (see nativeAvroFromTextualJson in union.go). Fixtures that
	// pass a bare value (not already Union(...)-wrapped) compare against the
	// unwrapped inner value instead.
	compareValue := value
	if m, ok := value.(map[string]interface{}); ok && len(m) == 1 {
		if _, datumIsMap := datum.(map[string]interface{}); !datumIsMap {
			for _, v := range m {
				compareValue = v
			}
		}
	}
	assertDecodedEquivalent(t, schema, datum, compareValue)
}

// assertDecodedEquivalent compares a decoded native value against the
// original datum the way testBinaryDecodePass does: by stringifying both
// sides after unwrapping pointers and map-value pointers, since decoded
// values come back as plain Go types (int32, map[string]interface{}, ...)
// while test fixtures are often passed in as pointers.
func assertDecodedEquivalent(t *testing.T, schema string, datum, value interface{}) {
	t.Helper()
	datumCopy := deepcopy.Copy(datum)

	if reflect.DeepEqual(value, datumCopy) {
		return
	}

	actual := stringifyDecoded(value)
	expected := stringifyDecoded(datumCopy)

	if enumType, ok := datumCopy.(avroEnum); ok {
		expected = enumType.Str()
	}

	if actual != expected {
		t.Errorf("schema: %s; Datum: %v; Actual: %#v; Expected: %#v", schema, datum, actual, expected)
	}
}

func stringifyDecoded(v interface{}) string {
	if v == nil {
		return fmt.Sprintf("%v", nil)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return fmt.Sprintf("%v", nil)
		}
		return fmt.Sprintf("%v", rv.Elem().Interface())
	case reflect.Map:
		unwrapped := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			mv := iter.Value().Interface()
			if mv != nil && reflect.TypeOf(mv).Kind() == reflect.Ptr {
				rvv := reflect.ValueOf(mv)
				if !rvv.IsNil() {
					mv = rvv.Elem().Interface()
				} else {
					mv = nil
				}
			}
			unwrapped[fmt.Sprintf("%v", iter.Key().Interface())] = mv
		}
		return fmt.Sprintf("%v", unwrapped)
	default:
		return fmt.Sprintf("%v", v)
	}
}
