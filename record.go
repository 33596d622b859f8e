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

type recordField struct {
	name       string
	codec      *Codec
	hasDefault bool
	def        interface{}
	doc        string
}

func buildCodecForRecord(st map[string]*Codec, enclosingNamespace string, m map[string]interface{}, cb *codecBuilder) (*Codec, error) {
	n, err := resolveName(m, enclosingNamespace)
	if err != nil {
		return nil, fmt.Errorf("Record %s", err)
	}
	recordNamespace := n.ns

	rawFields, ok := m["fields"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("Record %q ought to have fields key set to non-empty array", n.fullName)
	}

	// Register a placeholder codec before descending into fields so a field
	// whose type is this very record (a recursive/self-referential schema)
	// resolves against the symbol table rather than recursing forever.
	c := &Codec{typeName: n}
	st[n.fullName] = c

	fields := make([]*recordField, len(rawFields))
	seen := make(map[string]bool, len(rawFields))
	for i, rf := range rawFields {
		fm, ok := rf.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("Record %q field %d ought to be JSON object", n.fullName, i+1)
		}
		fname, ok := fm["name"].(string)
		if !ok || fname == "" {
			return nil, fmt.Errorf("Record %q field %d ought to have non-empty name", n.fullName, i+1)
		}
		if seen[fname] {
			return nil, fmt.Errorf("Record %q field %d ought to have unique name: %q", n.fullName, i+1, fname)
		}
		seen[fname] = true

		ftype, ok := fm["type"]
		if !ok {
			return nil, fmt.Errorf("Record %q field %q ought to have type", n.fullName, fname)
		}
		fcodec, err := buildCodec(st, recordNamespace, ftype, cb)
		if err != nil {
			return nil, fmt.Errorf("Record %q field %q ought to be valid Avro type: %s", n.fullName, fname, err)
		}
		def, hasDefault := fm["default"]
		doc, _ := fm["doc"].(string)
		fields[i] = &recordField{name: fname, codec: fcodec, hasDefault: hasDefault, def: def, doc: doc}
	}

	c.nativeFromBinary = func(buf []byte) (interface{}, []byte, error) {
		rec := make(map[string]interface{}, len(fields))
		for _, f := range fields {
			var value interface{}
			var err error
			value, buf, err = f.codec.nativeFromBinary(buf)
			if err != nil {
				return nil, nil, fmt.Errorf("cannot decode binary record %q field %q: %s", n.fullName, f.name, err)
			}
			rec[f.name] = value
		}
		return rec, buf, nil
	}

	c.binaryFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		rec, err := recordFields(datum)
		if err != nil {
			return nil, fmt.Errorf("cannot encode binary record %q: %s", n.fullName, err)
		}
		for _, f := range fields {
			value, ok := rec[f.name]
			if !ok {
				if !f.hasDefault {
					return nil, fmt.Errorf("cannot encode binary record %q field %q: value is required because no default was specified", n.fullName, f.name)
				}
				value = f.def
				if value != nil && f.codec.schemaOriginal != "" {
					value = Union(f.codec.schemaOriginal, value)
				}
			}
			buf, err = f.codec.binaryFromNative(buf, value)
			if err != nil {
				return nil, fmt.Errorf("cannot encode binary record %q field %q: %s", n.fullName, f.name, err)
			}
		}
		return buf, nil
	}

	c.nativeFromTextual = func(buf []byte) (interface{}, []byte, error) {
		return nil, nil, fmt.Errorf("cannot decode textual record %q: not supported", n.fullName)
	}

	c.textualFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		rec, err := recordFields(datum)
		if err != nil {
			return nil, fmt.Errorf("cannot encode textual record %q: %s", n.fullName, err)
		}
		buf = append(buf, '{')
		for i, f := range fields {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf, err = stringTextualFromNative(buf, f.name)
			if err != nil {
				return nil, err
			}
			buf = append(buf, ':')
			value, ok := rec[f.name]
			if !ok {
				if !f.hasDefault {
					return nil, fmt.Errorf("cannot encode textual record %q field %q: value is required because no default was specified", n.fullName, f.name)
				}
				value = f.def
				if value != nil && f.codec.schemaOriginal != "" {
					value = Union(f.codec.schemaOriginal, value)
				}
			}
			buf, err = f.codec.textualFromNative(buf, value)
			if err != nil {
				return nil, fmt.Errorf("cannot encode textual record %q field %q: %s", n.fullName, f.name, err)
			}
		}
		return append(buf, '}'), nil
	}

	c.schemaCanonical = func(seen map[string]bool) string {
		if seen[n.fullName] {
			return quoteString(n.fullName)
		}
		seen[n.fullName] = true
		fieldJSON := make([]string, len(fields))
		for i, f := range fields {
			kvs := []kv{
				{"name", quoteString(f.name)},
				{"type", f.codec.schemaCanonical(seen)},
			}
			fieldJSON[i] = emitObject(kvs...)
		}
		return emitObject(
			kv{"type", quoteString("record")},
			kv{"name", quoteString(n.fullName)},
			kv{"fields", emitArray(fieldJSON)},
		)
	}

	return c, nil
}

func recordFields(datum interface{}) (map[string]interface{}, error) {
	if v, ok := datum.(map[string]interface{}); ok {
		return v, nil
	}
	if v, ok := datum.(*map[string]interface{}); ok && v != nil {
		return *v, nil
	}
	return nil, fmt.Errorf("expected Go map[string]interface{}; received: %T", datum)
}
