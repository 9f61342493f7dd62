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

// Package fingerprint computes perceptual fingerprints for media files.
//
// Images are reduced to 50x50x3 RGB tensors by two different bicubic
// resampling kernels. Historically the two channels came from separate
// imaging stacks (they are still named pil and cv2 in the catalog), and
// keeping both alive means every file carries two independent
// fingerprints; a duplicate only needs to be caught on one of them.
// Movies are fingerprinted by a full-content hash instead.
package fingerprint

import (
	"crypto/md5" //nolint:gosec // Content fingerprinting for duplicate detection, not security
	"encoding/hex"
	"fmt"
	"image"

	// Normalized files are always JPEG, PNG or GIF.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/spf13/afero"
	"golang.org/x/image/draw"
)

const (
	// Side is the edge length of the downsampled tensor.
	Side = 50
	// ByteLen is the serialized tensor size: Side*Side RGB triplets.
	ByteLen = Side * Side * 3
)

// kernelPIL is the Catmull-Rom bicubic kernel (a = -0.5), matching the
// resampling historically used for the pil channel.
var kernelPIL = draw.CatmullRom

// kernelCV2 is the Keys bicubic kernel with a = -0.75, matching the
// resampling historically used for the cv2 channel.
var kernelCV2 = &draw.Kernel{
	Support: 2,
	At: func(t float64) float64 {
		const a = -0.75
		if t < 0 {
			t = -t
		}
		switch {
		case t < 1:
			return (a+2)*t*t*t - (a+3)*t*t + 1
		case t < 2:
			return a*t*t*t - 5*a*t*t + 8*a*t - 4*a
		default:
			return 0
		}
	},
}

// Tensor is one downsampled fingerprint channel: the serialized RGB
// bytes and their hash.
type Tensor struct {
	Hash  string
	Bytes []byte
}

// ImagePair carries both fingerprint channels for one image along with
// the decoded dimensions of the source.
type ImagePair struct {
	PIL    Tensor
	CV2    Tensor
	Width  int
	Height int
}

// ImageTensors decodes the image at path and computes both fingerprint
// channels.
func ImageTensors(fsys afero.Fs, path string) (*ImagePair, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	bounds := img.Bounds()
	return &ImagePair{
		PIL:    tensorFromImage(img, kernelPIL),
		CV2:    tensorFromImage(img, kernelCV2),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

func tensorFromImage(img image.Image, kernel *draw.Kernel) Tensor {
	dst := image.NewRGBA(image.Rect(0, 0, Side, Side))
	kernel.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	buf := make([]byte, 0, ByteLen)
	for y := range Side {
		row := dst.Pix[y*dst.Stride:]
		for x := range Side {
			buf = append(buf, row[x*4], row[x*4+1], row[x*4+2])
		}
	}
	return Tensor{
		Bytes: buf,
		Hash:  HashBytes(buf),
	}
}

// HashBytes returns the lowercase hex MD5 digest of b.
func HashBytes(b []byte) string {
	sum := md5.Sum(b) //nolint:gosec // Content fingerprinting for duplicate detection, not security
	return hex.EncodeToString(sum[:])
}
