// Shoebox
// Copyright (c) 2026 The Shoebox Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Shoebox.
//
// Shoebox is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Shoebox is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Shoebox.  If not, see <http://www.gnu.org/licenses/>.

package faces

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodingByteLen is the stored size of one embedding: 128 float64
// values in little-endian byte order.
const EncodingByteLen = EncodingDim * 8

// EncodeEncoding serializes an embedding for catalog storage.
func EncodeEncoding(encoding []float64) ([]byte, error) {
	if len(encoding) != EncodingDim {
		return nil, fmt.Errorf("encoding has %d dimensions, expected %d", len(encoding), EncodingDim)
	}
	buf := make([]byte, EncodingByteLen)
	for i, v := range encoding {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf, nil
}

// DecodeEncoding deserializes a stored embedding.
func DecodeEncoding(raw []byte) ([]float64, error) {
	if len(raw) != EncodingByteLen {
		return nil, fmt.Errorf("stored encoding is %d bytes, expected %d", len(raw), EncodingByteLen)
	}
	encoding := make([]float64, EncodingDim)
	for i := range encoding {
		encoding[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return encoding, nil
}

// EuclideanDistance returns the straight-line distance between two
// embeddings of equal dimension.
func EuclideanDistance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("encoding dimensions differ: %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}
