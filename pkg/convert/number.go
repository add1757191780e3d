// Licensed to Apache Software Foundation (ASF) under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Apache Software Foundation (ASF) licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package convert implements helpers to encode query values into index terms.
package convert

import (
	"encoding/binary"
	"math"
)

const signMask = uint64(1) << 63

// Uint64ToBytes encodes u in big endian order.
func Uint64ToBytes(u uint64) []byte {
	bs := make([]byte, 8)
	binary.BigEndian.PutUint64(bs, u)
	return bs
}

// Int64ToBytes encodes i so that the byte order follows the numeric order.
func Int64ToBytes(i int64) []byte {
	return Uint64ToBytes(uint64(i) ^ signMask)
}

// Float64ToBytes encodes f so that the byte order follows the numeric order.
func Float64ToBytes(f float64) []byte {
	bits := math.Float64bits(f)
	if bits&signMask != 0 {
		bits = ^bits
	} else {
		bits |= signMask
	}
	return Uint64ToBytes(bits)
}

// BoolToBytes encodes b as a u64 of 0 or 1.
func BoolToBytes(b bool) []byte {
	if b {
		return Uint64ToBytes(1)
	}
	return Uint64ToBytes(0)
}

// BytesToUint64 decodes b into a uint64.
func BytesToUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// BytesToInt64 decodes the output of Int64ToBytes.
func BytesToInt64(b []byte) int64 {
	return int64(BytesToUint64(b) ^ signMask)
}

// BytesToFloat64 decodes the output of Float64ToBytes.
func BytesToFloat64(b []byte) float64 {
	bits := BytesToUint64(b)
	if bits&signMask != 0 {
		bits &^= signMask
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}

// BytesToBool decodes the output of BoolToBytes.
func BytesToBool(b []byte) bool {
	return BytesToUint64(b) != 0
}
