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
	"fmt"
	"io"

	goavro "github.com/cpoole/avrofile"
)

// DefaultSyncInterval is the soft block-size threshold used when a Writer is
// constructed without WithSyncInterval: a block flushes once its
// accumulated, uncompressed bytes reach this size, but never mid-datum.
const DefaultSyncInterval = 16 * 1024

// WriterOption configures a Writer at construction time.
type WriterOption func(*writerConfig)

type writerConfig struct {
	codec        CodecName
	syncInterval int
	metadata     map[string][]byte
}

// WithCodec selects the block compression codec by name.
func WithCodec(name CodecName) WriterOption {
	return func(c *writerConfig) { c.codec = name }
}

// WithSyncInterval overrides the soft block-flush threshold, in bytes.
func WithSyncInterval(n int) WriterOption {
	return func(c *writerConfig) { c.syncInterval = n }
}

// WithMetadata supplies additional header metadata keys to preserve
// alongside avro.schema and avro.codec.
func WithMetadata(meta map[string][]byte) WriterOption {
	return func(c *writerConfig) { c.metadata = meta }
}

type writerState int

const (
	stateFresh writerState = iota
	stateOpen
	stateClosed
)

// Writer writes an Avro Object Container File: a header followed by zero or
// more sync-framed, compressed blocks of items encoded against a single
// schema.
type Writer struct {
	w            io.Writer
	itemCodec    *goavro.Codec
	blockCodec   blockCodec
	sync         [16]byte
	syncInterval int

	state   writerState
	pending []byte
	count   int64
}

// NewWriter constructs a Writer for the given schema, writing the header
// immediately. The returned Writer is in the Fresh state until the first
// Append, per the writer lifecycle: Fresh -> Open on append, Open -> Closed
// on Close.
func NewWriter(w io.Writer, schema string, opts ...WriterOption) (*Writer, error) {
	cfg := writerConfig{codec: Null, syncInterval: DefaultSyncInterval}
	for _, opt := range opts {
		opt(&cfg)
	}

	itemCodec, err := goavro.NewCodec(schema)
	if err != nil {
		return nil, fmt.Errorf("ocf: cannot parse schema: %s", err)
	}
	bc, err := resolveCodec(cfg.codec)
	if err != nil {
		return nil, err
	}
	sync, err := newSync()
	if err != nil {
		return nil, err
	}

	meta := make(map[string][]byte, len(cfg.metadata)+2)
	for k, v := range cfg.metadata {
		meta[k] = v
	}
	meta[schemaKey] = []byte(itemCodec.Schema())
	meta[codecKey] = []byte(cfg.codec)

	hdr, err := writeHeader(header{meta: meta, sync: sync})
	if err != nil {
		return nil, fmt.Errorf("ocf: cannot encode header: %s", err)
	}
	if _, err := w.Write(hdr); err != nil {
		return nil, err
	}

	return &Writer{
		w:            w,
		itemCodec:    itemCodec,
		blockCodec:   bc,
		sync:         sync,
		syncInterval: cfg.syncInterval,
	}, nil
}

// Append encodes datum against the writer's schema and adds it to the
// current block, then flushes the block if its accumulated bytes have
// reached the sync interval.
func (wr *Writer) Append(datum interface{}) error {
	if wr.state == stateClosed {
		return &goavro.Error{Kind: goavro.WriterClosed, Message: "append after close", Offset: -1}
	}
	buf, err := wr.itemCodec.BinaryFromNative(wr.pending, datum)
	if err != nil {
		return fmt.Errorf("ocf: cannot encode item: %s", err)
	}
	wr.pending = buf
	wr.count++
	wr.state = stateOpen

	if len(wr.pending) >= wr.syncInterval {
		return wr.flush()
	}
	return nil
}

// Sync flushes the current block, if non-empty, without closing the writer.
func (wr *Writer) Sync() error {
	if wr.state == stateClosed {
		return &goavro.Error{Kind: goavro.WriterClosed, Message: "sync after close", Offset: -1}
	}
	return wr.flush()
}

// Close flushes any remaining block and marks the writer closed. Close is
// idempotent: calling it again is a no-op.
func (wr *Writer) Close() error {
	if wr.state == stateClosed {
		return nil
	}
	err := wr.flush()
	wr.state = stateClosed
	return err
}

func (wr *Writer) flush() error {
	if wr.count == 0 {
		return nil
	}
	compressed, err := wr.blockCodec.compress(wr.pending)
	if err != nil {
		return fmt.Errorf("ocf: cannot compress block: %s", err)
	}

	out := appendBlockLong(nil, wr.count)
	out = appendBlockLong(out, int64(len(compressed)))
	out = append(out, compressed...)
	out = append(out, wr.sync[:]...)

	if _, err := wr.w.Write(out); err != nil {
		return err
	}

	wr.pending = wr.pending[:0]
	wr.count = 0
	return nil
}
