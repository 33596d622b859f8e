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

// ErrorKind classifies a failure raised by this package. Callers that need to
// branch on the failure mode rather than match the message text should use
// errors.As against *Error and inspect Kind.
type ErrorKind int

// Error kinds, grouped roughly by the layer that raises them.
const (
	_ ErrorKind = iota
	InvalidHeader
	MalformedVarint
	MalformedLength
	UnexpectedEnd
	SyncMarkerMismatch
	UnsupportedCodec
	CodecCorrupt
	SchemaParseError
	SchemaMismatch
	SchemaIncompatible
	EnumSymbolMissing
	WriterClosed
)

var kindNames = map[ErrorKind]string{
	InvalidHeader:      "InvalidHeader",
	MalformedVarint:    "MalformedVarint",
	MalformedLength:    "MalformedLength",
	UnexpectedEnd:      "UnexpectedEnd",
	SyncMarkerMismatch: "SyncMarkerMismatch",
	UnsupportedCodec:   "UnsupportedCodec",
	CodecCorrupt:       "CodecCorrupt",
	SchemaParseError:   "SchemaParseError",
	SchemaMismatch:     "SchemaMismatch",
	SchemaIncompatible: "SchemaIncompatible",
	EnumSymbolMissing:  "EnumSymbolMissing",
	WriterClosed:       "WriterClosed",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Error is the concrete error type returned by this package whenever the
// failure has a well known Kind. Plain fmt.Errorf wrapping is still used for
// internal, non-taxonomy failures (see binary.go), matching the
// way the original library mixes both.
type Error struct {
	Kind    ErrorKind
	Message string
	Offset  int64 // -1 when not meaningful
}

func (e *Error) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s: %s (offset %d)", e.Kind, e.Message, e.Offset)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, offset int64, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Offset: offset}
}
