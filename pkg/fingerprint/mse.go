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

package fingerprint

import (
	"fmt"
	"math"
)

// MSE returns the mean squared error between two serialized tensors.
// Both must be exactly ByteLen bytes; stored blobs of any other length
// are corrupt and must not be silently compared.
func MSE(a, b []byte) (float64, error) {
	if len(a) != ByteLen {
		return 0, fmt.Errorf("tensor length %d, expected %d", len(a), ByteLen)
	}
	if len(b) != ByteLen {
		return 0, fmt.Errorf("candidate tensor length %d, expected %d", len(b), ByteLen)
	}

	var sum uint64
	for i := range a {
		d := int(a[i]) - int(b[i])
		sum += uint64(d * d) //nolint:gosec // d*d is non-negative
	}
	return float64(sum) / float64(ByteLen), nil
}

// Rotate90 returns t rotated a quarter turn counterclockwise in the
// Side x Side plane. Channels travel with their pixel.
func Rotate90(t []byte) ([]byte, error) {
	if len(t) != ByteLen {
		return nil, fmt.Errorf("tensor length %d, expected %d", len(t), ByteLen)
	}

	out := make([]byte, ByteLen)
	for i := range Side {
		for j := range Side {
			src := (j*Side + (Side - 1 - i)) * 3
			dst := (i*Side + j) * 3
			copy(out[dst:dst+3], t[src:src+3])
		}
	}
	return out, nil
}

// MinRotatedMSE returns the smallest MSE between ref and the four
// quarter-turn orientations of candidate. A duplicate photographed or
// stored sideways still scores near zero on one of the orientations.
func MinRotatedMSE(ref, candidate []byte) (float64, error) {
	minMSE := math.MaxFloat64
	rotated := candidate
	for turn := range 4 {
		if turn > 0 {
			var err error
			rotated, err = Rotate90(rotated)
			if err != nil {
				return 0, err
			}
		}
		mse, err := MSE(ref, rotated)
		if err != nil {
			return 0, err
		}
		if mse < minMSE {
			minMSE = mse
		}
	}
	return minMSE, nil
}
