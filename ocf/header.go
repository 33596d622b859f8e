// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package ocf

import (
	"bufio"
	"crypto/rand"
	"fmt"
	"io"

	goavro "github.com/cpoole/avrofile"
)

const (
	schemaKey = "avro.schema"
	codecKey  = "avro.codec"
)

var magicBytes = [4]byte{'O', 'b', 'j', 1}

// headerSchemaJSON describes the container file header: a 4-byte magic, a map of
// string to bytes metadata, and a 16-byte sync marker. Encoding it through
// goavro's own record/map/fixed codecs keeps the header on the same binary
// path as every other Avro value this package reads and writes.
const headerSchemaJSON = `{
	"type": "record",
	"name": "org.apache.avro.file.Header",
	"fields": [
		{"name": "magic", "type": {"type": "fixed", "name": "Magic", "size": 4}},
		{"name": "meta", "type": {"type": "map", "values": "bytes"}},
		{"name": "sync", "type": {"type": "fixed", "name": "Sync", "size": 16}}
	]
}`

var headerCodec = mustHeaderCodec()

func mustHeaderCodec() *goavro.Codec {
	c, err := goavro.NewCodec(headerSchemaJSON)
	if err != nil {
		panic("ocf: cannot build header codec: " + err.Error())
	}
	return c
}

type header struct {
	meta map[string][]byte
	sync [16]byte
}

func writeHeader(h header) ([]byte, error) {
	meta := make(map[string]interface{}, len(h.meta))
	for k, v := range h.meta {
		meta[k] = v
	}
	datum := map[string]interface{}{
		"magic": magicBytes[:],
		"meta":  meta,
		"sync":  h.sync[:],
	}
	return headerCodec.BinaryFromNative(nil, datum)
}

// readHeader parses the header directly off a buffered stream rather than
// through headerCodec: unlike a block (which carries an explicit byte
// length), the header's metadata map has no outer length prefix, so its end
// can only be found by decoding it field by field as the bytes arrive.
func readHeader(r *bufio.Reader) (header, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return header{}, &goavro.Error{Kind: goavro.InvalidHeader, Message: "cannot read magic: " + err.Error(), Offset: -1}
	}
	if magic != magicBytes {
		return header{}, &goavro.Error{Kind: goavro.InvalidHeader, Message: "magic bytes mismatch", Offset: -1}
	}

	meta := make(map[string][]byte)
	for {
		count, eof, err := readBlockLong(r)
		if err != nil {
			return header{}, err
		}
		if eof {
			return header{}, &goavro.Error{Kind: goavro.InvalidHeader, Message: "truncated metadata map", Offset: -1}
		}
		if count == 0 {
			break
		}
		if count < 0 {
			count = -count
			if _, _, err := readBlockLong(r); err != nil { // byte-length skip hint, unused here
				return header{}, err
			}
		}
		for i := int64(0); i < count; i++ {
			key, err := readStreamBytes(r)
			if err != nil {
				return header{}, err
			}
			val, err := readStreamBytes(r)
			if err != nil {
				return header{}, err
			}
			meta[string(key)] = val
		}
	}

	var h header
	h.meta = meta
	if _, err := io.ReadFull(r, h.sync[:]); err != nil {
		return header{}, &goavro.Error{Kind: goavro.InvalidHeader, Message: "cannot read sync marker: " + err.Error(), Offset: -1}
	}
	return h, nil
}

func newSync() ([16]byte, error) {
	var sync [16]byte
	if _, err := rand.Read(sync[:]); err != nil {
		return sync, fmt.Errorf("cannot generate sync marker: %s", err)
	}
	return sync, nil
}
