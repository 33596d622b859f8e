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
	"fmt"
	"io"

	goavro "github.com/cpoole/avrofile"
)

// ReaderOption configures a Reader at construction time.
type ReaderOption func(*readerConfig)

type readerConfig struct {
	readerSchema string
}

// WithReaderSchema supplies a reader schema distinct from the writer schema
// embedded in the file, enabling schema resolution on Read.
func WithReaderSchema(schema string) ReaderOption {
	return func(c *readerConfig) { c.readerSchema = schema }
}

// Reader reads an Avro Object Container File, decoding one item at a time
// against the embedded writer schema (or, if WithReaderSchema was supplied,
// that schema resolved against the writer schema).
type Reader struct {
	r          *bufio.Reader
	itemCodec  *goavro.Codec
	blockCodec blockCodec
	writerMeta map[string][]byte
	sync       [16]byte

	blockBuf  []byte
	remaining int64
	done      bool
	err       error
}

// NewReader parses the header from r and prepares to iterate items.
func NewReader(r io.Reader, opts ...ReaderOption) (*Reader, error) {
	var cfg readerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	br := bufio.NewReaderSize(r, 64*1024)
	hdr, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	writerSchema, ok := hdr.meta[schemaKey]
	if !ok {
		return nil, &goavro.Error{Kind: goavro.InvalidHeader, Message: "missing avro.schema metadata", Offset: -1}
	}

	var itemCodec *goavro.Codec
	if cfg.readerSchema != "" {
		itemCodec, err = goavro.NewCodecForResolution(string(writerSchema), cfg.readerSchema)
	} else {
		itemCodec, err = goavro.NewCodec(string(writerSchema))
	}
	if err != nil {
		return nil, fmt.Errorf("ocf: cannot resolve schema: %s", err)
	}

	bc, err := resolveCodec(CodecName(hdr.meta[codecKey]))
	if err != nil {
		return nil, err
	}

	return &Reader{
		r:          br,
		itemCodec:  itemCodec,
		blockCodec: bc,
		writerMeta: hdr.meta,
		sync:       hdr.sync,
	}, nil
}

// Meta returns the raw metadata value for key, along with whether it was
// present in the header.
func (rd *Reader) Meta(key string) ([]byte, bool) {
	v, ok := rd.writerMeta[key]
	return v, ok
}

// Schema returns the writer schema embedded in the file, exactly as stored in
// its avro.schema metadata.
func (rd *Reader) Schema() string {
	return string(rd.writerMeta[schemaKey])
}

// HasNext reports whether another item is available, advancing to the next
// block if the current one is exhausted.
func (rd *Reader) HasNext() bool {
	if rd.err != nil || rd.done {
		return false
	}
	if rd.remaining > 0 {
		return true
	}
	if err := rd.advanceBlock(); err != nil {
		rd.err = err
		return false
	}
	return rd.remaining > 0
}

// Read decodes and returns the next item. Callers must check HasNext first.
func (rd *Reader) Read() (interface{}, error) {
	if rd.err != nil {
		return nil, rd.err
	}
	if rd.remaining <= 0 {
		return nil, fmt.Errorf("ocf: no data found, call HasNext first")
	}
	v, rest, err := rd.itemCodec.NativeFromBinary(rd.blockBuf)
	if err != nil {
		rd.err = fmt.Errorf("ocf: cannot decode item: %s", err)
		return nil, rd.err
	}
	rd.blockBuf = rest
	rd.remaining--
	return v, nil
}

// Err returns the first error encountered, if any.
func (rd *Reader) Err() error {
	return rd.err
}

// Close releases resources associated with the reader. The underlying
// io.Reader is not closed, since the Reader does not own it.
func (rd *Reader) Close() error {
	return nil
}

func (rd *Reader) advanceBlock() error {
	count, eof, err := readBlockLong(rd.r)
	if err != nil {
		return err
	}
	if eof {
		rd.done = true
		return nil
	}
	length, lenEOF, err := readBlockLong(rd.r)
	if err != nil {
		return err
	}
	if lenEOF || length < 0 {
		return &goavro.Error{Kind: goavro.MalformedLength, Message: "invalid block byte length", Offset: -1}
	}

	compressed := make([]byte, length)
	if _, err := io.ReadFull(rd.r, compressed); err != nil {
		return &goavro.Error{Kind: goavro.UnexpectedEnd, Message: "short block body", Offset: -1}
	}

	var sync [16]byte
	if _, err := io.ReadFull(rd.r, sync[:]); err != nil {
		return &goavro.Error{Kind: goavro.UnexpectedEnd, Message: "short trailing sync", Offset: -1}
	}
	if sync != rd.sync {
		return &goavro.Error{Kind: goavro.SyncMarkerMismatch, Message: "block sync marker does not match header", Offset: -1}
	}

	decompressed, err := rd.blockCodec.decompress(compressed)
	if err != nil {
		return err
	}
	rd.blockBuf = decompressed
	rd.remaining = count
	return nil
}
