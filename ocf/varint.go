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
	"io"

	goavro "github.com/cpoole/avrofile"
)

// readBlockLong reads one zig-zag varint long directly from a buffered
// reader, the way block framing fields (count, byte length) are read
// without first knowing how many bytes they occupy. goavro's own long codec
// operates on an already-materialized byte slice, which block framing
// doesn't have until this value is known, so the decode loop is repeated
// here against an io.ByteReader instead.
//
// eof reports true only when the long could not be read because the stream
// ended cleanly before any byte of it was consumed -- the normal way a
// container file ends.
func readBlockLong(r *bufio.Reader) (value int64, eof bool, err error) {
	var ux uint64
	var shift uint
	for i := 0; ; i++ {
		b, rerr := r.ReadByte()
		if rerr != nil {
			if i == 0 && rerr == io.EOF {
				return 0, true, nil
			}
			return 0, false, &goavro.Error{Kind: goavro.UnexpectedEnd, Message: "short buffer", Offset: -1}
		}
		ux |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 63 {
			return 0, false, &goavro.Error{Kind: goavro.MalformedVarint, Message: "long exceeds maximum byte length", Offset: -1}
		}
	}
	return int64(ux>>1) ^ -(int64(ux) & 1), false, nil
}

// readStreamBytes reads a long length prefix followed by that many raw
// bytes, directly off a buffered reader.
func readStreamBytes(r *bufio.Reader) ([]byte, error) {
	n, eof, err := readBlockLong(r)
	if err != nil {
		return nil, err
	}
	if eof {
		return nil, &goavro.Error{Kind: goavro.UnexpectedEnd, Message: "short buffer", Offset: -1}
	}
	if n < 0 {
		return nil, &goavro.Error{Kind: goavro.MalformedLength, Message: "negative length", Offset: -1}
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, &goavro.Error{Kind: goavro.UnexpectedEnd, Message: "short buffer", Offset: -1}
	}
	return buf, nil
}

func appendBlockLong(buf []byte, n int64) []byte {
	ux := uint64(n) << 1
	if n < 0 {
		ux = ^ux
	}
	for ux >= 0x80 {
		buf = append(buf, byte(ux)|0x80)
		ux >>= 7
	}
	return append(buf, byte(ux))
}
