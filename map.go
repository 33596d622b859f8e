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

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

func buildCodecForMap(st map[string]*Codec, enclosingNamespace string, m map[string]interface{}, cb *codecBuilder) (*Codec, error) {
	valueSchema, ok := m["values"]
	if !ok {
		return nil, fmt.Errorf("Map ought to have values key")
	}
	valueCodec, err := buildCodec(st, enclosingNamespace, valueSchema, cb)
	if err != nil {
		return nil, fmt.Errorf("Map values ought to be valid Avro type: %s", err)
	}

	c := &Codec{typeName: &name{"map", nullNamespace}}

	c.nativeFromBinary = func(buf []byte) (interface{}, []byte, error) {
		items := make(map[string]interface{})
		for {
			decodedCount, newBuf, err := longNativeFromBinary(buf)
			if err != nil {
				return nil, nil, fmt.Errorf("cannot decode binary map block count: %s", err)
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
					return nil, nil, fmt.Errorf("cannot decode binary map block size: %s", err)
				}
				buf = newBuf
			}
			if blockCount > MaxBlockCount {
				return nil, nil, fmt.Errorf("cannot decode binary map: block count exceeds maximum: %d", blockCount)
			}
			for i := int64(0); i < blockCount; i++ {
				var key interface{}
				key, buf, err = stringNativeFromBinary(buf)
				if err != nil {
					return nil, nil, fmt.Errorf("cannot decode binary map key %d: %s", i+1, err)
				}
				var value interface{}
				value, buf, err = valueCodec.nativeFromBinary(buf)
				if err != nil {
					return nil, nil, fmt.Errorf("cannot decode binary map value %d: %s", i+1, err)
				}
				items[key.(string)] = value
			}
		}
		return items, buf, nil
	}

	c.binaryFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		items, err := mapItems(datum)
		if err != nil {
			return nil, fmt.Errorf("cannot encode binary map: %s", err)
		}
		if len(items) > 0 {
			keys := maps.Keys(items)
			slices.Sort(keys) // deterministic block order
			buf, err = longBinaryFromNative(buf, int64(len(items)))
			if err != nil {
				return nil, err
			}
			for _, k := range keys {
				buf, err = stringBinaryFromNative(buf, k)
				if err != nil {
					return nil, fmt.Errorf("cannot encode binary map key %q: %s", k, err)
				}
				buf, err = valueCodec.binaryFromNative(buf, items[k])
				if err != nil {
					return nil, fmt.Errorf("cannot encode binary map value %q: %s", k, err)
				}
			}
		}
		return longBinaryFromNative(buf, 0)
	}

	c.nativeFromTextual = func(buf []byte) (interface{}, []byte, error) {
		return nil, nil, fmt.Errorf("cannot decode textual map: not supported")
	}
	c.textualFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		items, err := mapItems(datum)
		if err != nil {
			return nil, fmt.Errorf("cannot encode textual map: %s", err)
		}
		keys := maps.Keys(items)
		slices.Sort(keys)
		buf = append(buf, '{')
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf, err = stringTextualFromNative(buf, k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, ':')
			buf, err = valueCodec.textualFromNative(buf, items[k])
			if err != nil {
				return nil, fmt.Errorf("cannot encode textual map value %q: %s", k, err)
			}
		}
		return append(buf, '}'), nil
	}

	c.schemaCanonical = func(seen map[string]bool) string {
		return emitObject(
			kv{"type", quoteString("map")},
			kv{"values", valueCodec.schemaCanonical(seen)},
		)
	}

	return c, nil
}

func mapItems(datum interface{}) (map[string]interface{}, error) {
	if datum == nil {
		return nil, nil
	}
	if v, ok := datum.(map[string]interface{}); ok {
		return v, nil
	}
	if v, ok := datum.(*map[string]interface{}); ok {
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
	if rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("expected Go map[string]interface{}; received: %T", datum)
	}
	items := make(map[string]interface{}, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		items[fmt.Sprintf("%v", iter.Key().Interface())] = iter.Value().Interface()
	}
	return items, nil
}
