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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// patternTensor builds a deterministic non-symmetric tensor so rotation
// tests cannot pass by accident.
func patternTensor() []byte {
	t := make([]byte, ByteLen)
	for i := range t {
		t[i] = byte((i*7 + i/50) % 256) //nolint:gosec // Wraps intentionally
	}
	return t
}

// setPixel writes an RGB triplet at row i, column j.
func setPixel(t []byte, i, j int, r, g, b byte) {
	off := (i*Side + j) * 3
	t[off], t[off+1], t[off+2] = r, g, b
}

// pixel reads the RGB triplet at row i, column j.
func pixel(t []byte, i, j int) [3]byte {
	off := (i*Side + j) * 3
	return [3]byte{t[off], t[off+1], t[off+2]}
}

func TestMSEIdenticalTensors(t *testing.T) {
	t.Parallel()

	a := patternTensor()
	mse, err := MSE(a, patternTensor())
	require.NoError(t, err)
	assert.Zero(t, mse)
}

func TestMSEKnownDifference(t *testing.T) {
	t.Parallel()

	a := make([]byte, ByteLen)
	b := make([]byte, ByteLen)
	for i := range b {
		b[i] = 2
	}

	mse, err := MSE(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, mse, 0)

	// One differing byte out of 7500.
	c := make([]byte, ByteLen)
	c[0] = 30
	mse, err = MSE(a, c)
	require.NoError(t, err)
	assert.InDelta(t, 900.0/float64(ByteLen), mse, 1e-12)
}

func TestMSELengthMismatch(t *testing.T) {
	t.Parallel()

	_, err := MSE(make([]byte, ByteLen), make([]byte, 100))
	require.Error(t, err)
	_, err = MSE(make([]byte, 100), make([]byte, ByteLen))
	require.Error(t, err)
}

func TestRotate90MovesCorners(t *testing.T) {
	t.Parallel()

	src := make([]byte, ByteLen)
	setPixel(src, 0, 0, 1, 1, 1)           // top-left
	setPixel(src, 0, Side-1, 2, 2, 2)      // top-right
	setPixel(src, Side-1, Side-1, 3, 3, 3) // bottom-right
	setPixel(src, Side-1, 0, 4, 4, 4)      // bottom-left

	out, err := Rotate90(src)
	require.NoError(t, err)

	// Counterclockwise: top-right ends up top-left.
	assert.Equal(t, [3]byte{2, 2, 2}, pixel(out, 0, 0))
	assert.Equal(t, [3]byte{3, 3, 3}, pixel(out, Side-1, 0))
	assert.Equal(t, [3]byte{4, 4, 4}, pixel(out, Side-1, Side-1))
	assert.Equal(t, [3]byte{1, 1, 1}, pixel(out, 0, Side-1))
}

func TestRotate90RejectsBadLength(t *testing.T) {
	t.Parallel()

	_, err := Rotate90(make([]byte, 10))
	require.Error(t, err)
}

func TestMinRotatedMSEDetectsRotatedDuplicate(t *testing.T) {
	t.Parallel()

	ref := patternTensor()
	rotated, err := Rotate90(ref)
	require.NoError(t, err)

	mse, err := MinRotatedMSE(ref, rotated)
	require.NoError(t, err)
	assert.Zero(t, mse, "a pure rotation must score zero")

	// Direct MSE against the rotated tensor is far from zero, which is
	// exactly what the rotation sweep is for.
	direct, err := MSE(ref, rotated)
	require.NoError(t, err)
	assert.Positive(t, direct)
}

func TestMinRotatedMSERejectsBadCandidate(t *testing.T) {
	t.Parallel()

	_, err := MinRotatedMSE(patternTensor(), make([]byte, 12))
	require.Error(t, err)
}

func tensorGen() *rapid.Generator[[]byte] {
	return rapid.SliceOfN(rapid.Byte(), ByteLen, ByteLen)
}

func TestPropertyRotationFullCircle(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		tensor := tensorGen().Draw(t, "tensor")

		out := tensor
		for range 4 {
			var err error
			out, err = Rotate90(out)
			if err != nil {
				t.Fatalf("rotate failed: %v", err)
			}
		}
		require.Equal(t, tensor, out, "four quarter turns must be identity")
	})
}

func TestPropertyMinRotatedMSEZeroForAnyOrientation(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		tensor := tensorGen().Draw(t, "tensor")
		turns := rapid.IntRange(0, 3).Draw(t, "turns")

		candidate := tensor
		for range turns {
			var err error
			candidate, err = Rotate90(candidate)
			if err != nil {
				t.Fatalf("rotate failed: %v", err)
			}
		}

		mse, err := MinRotatedMSE(tensor, candidate)
		if err != nil {
			t.Fatalf("MinRotatedMSE failed: %v", err)
		}
		if mse != 0 {
			t.Fatalf("expected zero MSE for %d turns, got %v", turns, mse)
		}
	})
}

func TestPropertyMSESymmetric(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		a := tensorGen().Draw(t, "a")
		b := tensorGen().Draw(t, "b")

		ab, err := MSE(a, b)
		if err != nil {
			t.Fatalf("MSE failed: %v", err)
		}
		ba, err := MSE(b, a)
		if err != nil {
			t.Fatalf("MSE failed: %v", err)
		}
		if ab != ba {
			t.Fatalf("MSE not symmetric: %v != %v", ab, ba)
		}
	})
}

func TestPropertyMinRotatedMSENeverExceedsDirect(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		a := tensorGen().Draw(t, "a")
		b := tensorGen().Draw(t, "b")

		direct, err := MSE(a, b)
		if err != nil {
			t.Fatalf("MSE failed: %v", err)
		}
		minRotated, err := MinRotatedMSE(a, b)
		if err != nil {
			t.Fatalf("MinRotatedMSE failed: %v", err)
		}
		if minRotated > direct {
			t.Fatalf("min over rotations %v exceeds direct %v", minRotated, direct)
		}
	})
}
