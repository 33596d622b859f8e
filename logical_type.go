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
	"math/big"
	"time"
)

// Duration is the native Go representation of an Avro "duration" logical
// value: three little-endian uint32 components packed into a 12-byte fixed.
type Duration struct {
	Months uint32
	Days   uint32
	Millis uint32
}

// Decimal is the native Go representation of an Avro "decimal" logical
// value: a two's-complement big-endian integer (the unscaled value) over
// bytes or fixed, paired with the scale from the schema.
type Decimal struct {
	Unscaled *big.Int
	Scale    int
}

// wrapLogicalType layers logical-type conversions over an already-built base
// codec. An unrecognized logicalType name, or one whose base type the Avro
// spec does not permit it to wrap, degrades silently to the base codec --
// per spec section 3, this is not an error.
func wrapLogicalType(base *Codec, baseTypeName string, m map[string]interface{}) *Codec {
	lt, ok := m["logicalType"].(string)
	if !ok || lt == "" {
		return base
	}

	switch lt {
	case "duration":
		if baseTypeName != "fixed" || !fixedSize(base, 12) {
			return base
		}
		return wrapDuration(base)
	case "decimal":
		if baseTypeName != "bytes" && baseTypeName != "fixed" {
			return base
		}
		precision, ok := m["precision"].(float64)
		if !ok || precision <= 0 {
			return base
		}
		scale, _ := m["scale"].(float64)
		fixedLen := -1
		if baseTypeName == "fixed" {
			if sz, ok := m["size"].(float64); ok {
				fixedLen = int(sz)
			}
		}
		return wrapDecimal(base, int(precision), int(scale), fixedLen)
	case "date":
		if baseTypeName != "int" {
			return base
		}
		return wrapDate(base)
	case "time-millis":
		if baseTypeName != "int" {
			return base
		}
		return wrapTimeMillis(base)
	case "time-micros":
		if baseTypeName != "long" {
			return base
		}
		return wrapTimeMicros(base)
	case "timestamp-millis":
		if baseTypeName != "long" {
			return base
		}
		return wrapTimestamp(base, time.Millisecond)
	case "timestamp-micros":
		if baseTypeName != "long" {
			return base
		}
		return wrapTimestamp(base, time.Microsecond)
	case "uuid":
		if baseTypeName != "string" {
			return base
		}
		return wrapUUID(base)
	default:
		return base
	}
}

// fixedSize reports whether codec c is a fixed schema of the given size.
// Used only to gate the duration wrapper; relies on encoding a zero-value
// buffer through the base codec rather than inspecting private state.
func fixedSize(c *Codec, size int) bool {
	buf, err := c.binaryFromNative(nil, make([]byte, size))
	return err == nil && len(buf) == size
}

func cloneWithLogical(base *Codec, logicalType string, extra ...kv) *Codec {
	clone := *base
	clone.schemaCanonical = func(seen map[string]bool) string {
		// logical types always emit object form; re-run the base emission
		// to get its attributes, then splice in the logical ones. Named
		// fixed bases already track "seen" themselves, so a logical type
		// over a named fixed still back-references correctly on reuse.
		baseJSON := base.schemaCanonical(seen)
		if baseJSON == "" || baseJSON[0] != '{' {
			// base emitted a bare string (back-reference or bare primitive);
			// wrap it so logicalType has somewhere to attach.
			baseJSON = emitObject(kv{"type", baseJSON})
		}
		additions := append([]kv{{"logicalType", quoteString(logicalType)}}, extra...)
		return spliceObject(baseJSON, additions)
	}
	return &clone
}

// spliceObject inserts additional key/value pairs into an already-rendered
// JSON object literal, just before its closing brace.
func spliceObject(objJSON string, additions []kv) string {
	if len(objJSON) < 2 || objJSON[0] != '{' {
		return objJSON
	}
	body := objJSON[1 : len(objJSON)-1]
	var out string
	if body == "" {
		out = "{"
	} else {
		out = "{" + body + ","
	}
	for i, a := range additions {
		if i > 0 {
			out += ","
		}
		out += quoteString(a.key) + ":" + a.value
	}
	return out + "}"
}

func wrapDuration(base *Codec) *Codec {
	c := cloneWithLogical(base, "duration")
	c.nativeFromBinary = func(buf []byte) (interface{}, []byte, error) {
		decoded, rest, err := base.nativeFromBinary(buf)
		if err != nil {
			return nil, nil, err
		}
		raw := decoded.([]byte)
		d := Duration{
			Months: leUint32(raw[0:4]),
			Days:   leUint32(raw[4:8]),
			Millis: leUint32(raw[8:12]),
		}
		return d, rest, nil
	}
	c.binaryFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		d, ok := datum.(Duration)
		if !ok {
			dp, ok2 := datum.(*Duration)
			if !ok2 {
				return nil, fmt.Errorf("cannot encode binary duration: expected Duration; received: %T", datum)
			}
			d = *dp
		}
		raw := make([]byte, 12)
		putLEUint32(raw[0:4], d.Months)
		putLEUint32(raw[4:8], d.Days)
		putLEUint32(raw[8:12], d.Millis)
		return base.binaryFromNative(buf, raw)
	}
	return c
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLEUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func wrapDecimal(base *Codec, precision, scale, fixedLen int) *Codec {
	c := cloneWithLogical(base, "decimal",
		kv{"precision", fmt.Sprintf("%d", precision)},
		kv{"scale", fmt.Sprintf("%d", scale)},
	)
	c.nativeFromBinary = func(buf []byte) (interface{}, []byte, error) {
		decoded, rest, err := base.nativeFromBinary(buf)
		if err != nil {
			return nil, nil, err
		}
		raw := decoded.([]byte)
		unscaled := new(big.Int).SetBytes(raw)
		if len(raw) > 0 && raw[0]&0x80 != 0 {
			// negative: subtract 2^(8*len) to undo two's-complement
			full := new(big.Int).Lsh(big.NewInt(1), uint(8*len(raw)))
			unscaled.Sub(unscaled, full)
		}
		return Decimal{Unscaled: unscaled, Scale: scale}, rest, nil
	}
	c.binaryFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		var unscaled *big.Int
		switch v := datum.(type) {
		case Decimal:
			unscaled = v.Unscaled
		case *Decimal:
			unscaled = v.Unscaled
		case *big.Int:
			unscaled = v
		default:
			return nil, fmt.Errorf("cannot encode binary decimal: expected Decimal; received: %T", datum)
		}
		return base.binaryFromNative(buf, twosComplementBytes(unscaled, fixedLen))
	}
	return c
}

// twosComplementBytes renders n as a two's-complement big-endian []byte. A
// fixedLen >= 0 zero-pads/sign-extends to that exact length (required by a
// fixed-backed decimal); fixedLen < 0 uses the minimal length that can hold
// n's two's-complement representation (a bytes-backed decimal).
func twosComplementBytes(n *big.Int, fixedLen int) []byte {
	if fixedLen >= 0 {
		return encodeTwosComplement(n, fixedLen)
	}
	if n.Sign() == 0 {
		return []byte{0}
	}
	bitLen := n.BitLen()
	if n.Sign() < 0 {
		// a negative n needs the bits of -n-1 plus a sign bit
		bitLen = new(big.Int).Not(n).BitLen()
	}
	length := (bitLen / 8) + 1
	return encodeTwosComplement(n, length)
}

func encodeTwosComplement(n *big.Int, length int) []byte {
	if n.Sign() >= 0 {
		raw := n.Bytes()
		if len(raw) > length {
			length = len(raw)
		}
		b := make([]byte, length)
		copy(b[length-len(raw):], raw)
		return b
	}
	full := new(big.Int).Lsh(big.NewInt(1), uint(8*length))
	v := new(big.Int).Add(full, n)
	raw := v.Bytes()
	if len(raw) > length {
		length = len(raw)
	}
	b := make([]byte, length)
	copy(b[length-len(raw):], raw)
	return b
}

func wrapDate(base *Codec) *Codec {
	c := cloneWithLogical(base, "date")
	epoch := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	c.nativeFromBinary = func(buf []byte) (interface{}, []byte, error) {
		decoded, rest, err := base.nativeFromBinary(buf)
		if err != nil {
			return nil, nil, err
		}
		days := int(decoded.(int32))
		return epoch.AddDate(0, 0, days), rest, nil
	}
	c.binaryFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		t, ok := datum.(time.Time)
		if !ok {
			return nil, fmt.Errorf("cannot encode binary date: expected time.Time; received: %T", datum)
		}
		days := int32(t.UTC().Sub(epoch).Hours() / 24)
		return base.binaryFromNative(buf, days)
	}
	return c
}

func wrapTimeMillis(base *Codec) *Codec {
	c := cloneWithLogical(base, "time-millis")
	c.nativeFromBinary = func(buf []byte) (interface{}, []byte, error) {
		decoded, rest, err := base.nativeFromBinary(buf)
		if err != nil {
			return nil, nil, err
		}
		return time.Duration(decoded.(int32)) * time.Millisecond, rest, nil
	}
	c.binaryFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		d, ok := datum.(time.Duration)
		if !ok {
			return nil, fmt.Errorf("cannot encode binary time-millis: expected time.Duration; received: %T", datum)
		}
		return base.binaryFromNative(buf, int32(d/time.Millisecond))
	}
	return c
}

func wrapTimeMicros(base *Codec) *Codec {
	c := cloneWithLogical(base, "time-micros")
	c.nativeFromBinary = func(buf []byte) (interface{}, []byte, error) {
		decoded, rest, err := base.nativeFromBinary(buf)
		if err != nil {
			return nil, nil, err
		}
		return time.Duration(decoded.(int64)) * time.Microsecond, rest, nil
	}
	c.binaryFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		d, ok := datum.(time.Duration)
		if !ok {
			return nil, fmt.Errorf("cannot encode binary time-micros: expected time.Duration; received: %T", datum)
		}
		return base.binaryFromNative(buf, int64(d/time.Microsecond))
	}
	return c
}

func wrapTimestamp(base *Codec, unit time.Duration) *Codec {
	logicalName := "timestamp-millis"
	if unit == time.Microsecond {
		logicalName = "timestamp-micros"
	}
	c := cloneWithLogical(base, logicalName)
	c.nativeFromBinary = func(buf []byte) (interface{}, []byte, error) {
		decoded, rest, err := base.nativeFromBinary(buf)
		if err != nil {
			return nil, nil, err
		}
		return time.Unix(0, decoded.(int64)*int64(unit)).UTC(), rest, nil
	}
	c.binaryFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		t, ok := datum.(time.Time)
		if !ok {
			return nil, fmt.Errorf("cannot encode binary %s: expected time.Time; received: %T", logicalName, datum)
		}
		return base.binaryFromNative(buf, t.UnixNano()/int64(unit))
	}
	return c
}

func wrapUUID(base *Codec) *Codec {
	c := cloneWithLogical(base, "uuid")
	c.binaryFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		s, ok := datum.(string)
		if !ok || len(s) != 36 {
			return nil, fmt.Errorf("cannot encode binary uuid: expected canonical 36-char string; received: %T", datum)
		}
		return base.binaryFromNative(buf, s)
	}
	return c
}
