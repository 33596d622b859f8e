// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

// Package goavro implements an Avro container-file codec: a schema model
// with canonical JSON projection, and a block-framed binary encoder/decoder
// for Avro Object Container Files. See the ocf subpackage for the
// container-file reader and writer; this package provides the Codec that
// turns a schema into an encode/decode engine for one datum at a time.
package goavro

// Codec is both a parsed schema node and the write/read plan for it: its
// four function fields are a tree of closures that, given a byte buffer,
// produce or consume exactly the bytes that one instance of the schema
// occupies. Building a Codec via NewCodec is therefore parsing and plan
// construction in a single pass, the way the original library does it.
type Codec struct {
	typeName *name

	// schemaOriginal records the type name used to recover a default value
	// for a record field whose type is a union -- the Avro spec requires
	// union defaults to be valid for the union's first branch, so this is
	// set to that branch's fully qualified name.
	schemaOriginal string

	schemaCanonical func(seen map[string]bool) string

	nativeFromBinary  func(buf []byte) (interface{}, []byte, error)
	binaryFromNative  func(buf []byte, datum interface{}) ([]byte, error)
	nativeFromTextual func(buf []byte) (interface{}, []byte, error)
	textualFromNative func(buf []byte, datum interface{}) ([]byte, error)
}

// NativeFromBinary decodes the leading bytes of buf as a single schema
// instance, returning the decoded native value and the remaining,
// unconsumed bytes.
func (c *Codec) NativeFromBinary(buf []byte) (interface{}, []byte, error) {
	return c.nativeFromBinary(buf)
}

// BinaryFromNative appends the binary encoding of datum to buf, returning
// the extended slice.
func (c *Codec) BinaryFromNative(buf []byte, datum interface{}) ([]byte, error) {
	return c.binaryFromNative(buf, datum)
}

// NativeFromTextual decodes the leading bytes of buf as the JSON data
// encoding of a single schema instance.
func (c *Codec) NativeFromTextual(buf []byte) (interface{}, []byte, error) {
	return c.nativeFromTextual(buf)
}

// TextualFromNative appends the JSON data encoding of datum to buf.
func (c *Codec) TextualFromNative(buf []byte, datum interface{}) ([]byte, error) {
	return c.textualFromNative(buf, datum)
}

// Schema returns the canonical JSON form of the schema this Codec was built
// from: already-emitted named types are rendered as a bare fully qualified
// name string rather than re-expanded, per spec section 4.3.
func (c *Codec) Schema() string {
	return c.schemaCanonical(make(map[string]bool))
}

// TypeName returns the fully qualified type name of this schema node:
// a primitive name, "record"/"enum"/"array"/"map"/"union"/"fixed", or a
// named type's namespace-qualified name.
func (c *Codec) TypeName() string {
	return c.typeName.fullName
}

// Equal reports whether two codecs describe structurally equal schemas,
// per spec section 4.3: named types compare by fully qualified name and
// (transitively, via canonical re-expansion) by shape.
func (c *Codec) Equal(other *Codec) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Schema() == other.Schema()
}
