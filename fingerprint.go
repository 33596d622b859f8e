// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package goavro

// CRC-64-AVRO fingerprinting, per the Avro specification
// (https://avro.apache.org/docs/current/spec.html#schema_fingerprints):
// a CRC-64 checksum using the reversed polynomial 0xc15d213aa4d7a795,
// computed over the UTF-8 bytes of a schema's canonical JSON form. No
// library in the retrieval pack ships this specific polynomial's table
// (hamba-avro vendors its own crc64 package, which was not retrieved), so
// the table is generated here against stdlib hash/crc64's table-building
// routine. The update loop itself is hand-rolled rather than
// crc64.Checksum: the Avro algorithm seeds the register with
// 0xc15d213aa4d7a795 and never complements it, while crc64.Checksum always
// complements the register before and after the loop (a zero-length schema
// must fingerprint to 0xc15d213aa4d7a795, not 0, as crc64.Checksum would
// produce).

import "hash/crc64"

var crc64AvroTable = crc64.MakeTable(0xc15d213aa4d7a795)

// Fingerprint returns the CRC-64-AVRO fingerprint of the Codec's canonical
// schema, as 8 little-endian bytes per the Avro spec's definition.
func (c *Codec) Fingerprint() [8]byte {
	result := uint64(0xc15d213aa4d7a795)
	for _, b := range []byte(c.Schema()) {
		result = (result >> 8) ^ crc64AvroTable[byte(result)^b]
	}
	var out [8]byte
	for i := 0; i < 8; i++ {
		out[i] = byte(result >> (8 * i))
	}
	return out
}
