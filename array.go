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
	"reflect"
)

func buildCodecForArray(st map[string]*Codec, enclosingNamespace string, m map[string]interface{}, cb *codecBuilder) (*Codec, error) {
	itemSchema, ok := m["items"]
	if !ok {
		return nil, fmt.Errorf("Array ought to have items key")
	}
	itemCodec, err := buildCodec(st, enclosingNamespace, itemSchema, cb)
	if err != nil {
		return nil, fmt.Errorf("Array items ought to be valid Avro type: %s", err)
	}

	c := &Codec{typeName: &name{"array", nullNamespace}}

	c.nativeFromBinary = func(buf []byte) (interface{}, []byte, error) {
		var items []interface{}
		for {
			decodedCount, newBuf, err := longNativeFromBinary(buf)
			if err != nil {
				return nil, nil, fmt.Errorf("cannot decode binary array block count: %s", err)
			}
			buf = newBuf
			blockCount := decodedCount.(int64)
			if blockCount == 0 {
				break
			}
			if blockCount < 0 {
				blockCount = -blockCount
				// a negative count is followed by the byte length of the
				// block, present to allow skip-decoding -- this codec
				// always decodes every item, so the length is read and
				// discarded.
				_, newBuf, err := longNativeFromBinary(buf)
				if err != nil {
					return nil, nil, fmt.Errorf("cannot decode binary array block size: %s", err)
				}
				buf = newBuf
			}
			if blockCount > MaxBlockCount {
				return nil, nil, fmt.Errorf("cannot decode binary array: block count exceeds maximum: %d", blockCount)
			}
			for i := int64(0); i < blockCount; i++ {
				var value interface{}
				value, buf, err = itemCodec.nativeFromBinary(buf)
				if err != nil {
					return nil, nil, fmt.Errorf("cannot decode binary array item %d: %s", i+1, err)
				}
				items = append(items, value)
			}
		}
		if items == nil {
			items = []interface{}{}
		}
		return items, buf, nil
	}

	c.binaryFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		items, err := arrayItems(datum)
		if err != nil {
			return nil, fmt.Errorf("cannot encode binary array: %s", err)
		}
		var errEnc error
		if len(items) > 0 {
			buf, errEnc = longBinaryFromNative(buf, int64(len(items)))
			if errEnc != nil {
				return nil, errEnc
			}
			for i, item := range items {
				buf, errEnc = itemCodec.binaryFromNative(buf, item)
				if errEnc != nil {
					return nil, fmt.Errorf("cannot encode binary array item %d: %s", i+1, errEnc)
				}
			}
		}
		return longBinaryFromNative(buf, 0)
	}

	c.nativeFromTextual = func(buf []byte) (interface{}, []byte, error) {
		return nil, nil, fmt.Errorf("cannot decode textual array: not supported")
	}
	c.textualFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		items, err := arrayItems(datum)
		if err != nil {
			return nil, fmt.Errorf("cannot encode textual array: %s", err)
		}
		buf = append(buf, '[')
		for i, item := range items {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf, err = itemCodec.textualFromNative(buf, item)
			if err != nil {
				return nil, fmt.Errorf("cannot encode textual array item %d: %s", i+1, err)
			}
		}
		return append(buf, ']'), nil
	}

	c.schemaCanonical = func(seen map[string]bool) string {
		return emitObject(
			kv{"type", quoteString("array")},
			kv{"items", itemCodec.schemaCanonical(seen)},
		)
	}

	return c, nil
}

// arrayItems unwraps the handful of shapes callers are allowed to pass for
// an array datum: []interface{}, a pointer to it (the union encoder's
// convention, see union.go), or any other slice via reflection.
func arrayItems(datum interface{}) ([]interface{}, error) {
	if datum == nil {
		return nil, nil
	}
	if v, ok := datum.([]interface{}); ok {
		return v, nil
	}
	if v, ok := datum.(*[]interface{}); ok {
		if v == nil {
			return nil, nil
		}
		return *v, nil
	}
	rv := reflect.ValueOf(datum)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected Go slice; received: %T", datum)
	}
	items := make([]interface{}, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, nil
}
