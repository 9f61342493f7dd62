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

// Package helpers provides testing utilities shared across packages.
//
// The filesystem helpers build in-memory intake trees and synthesize
// small real image payloads, so normalization and fingerprinting can be
// tested end to end without fixture files on disk.
package helpers

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/image/bmp"
)

// FSHelper provides utilities for filesystem mocking in tests.
type FSHelper struct {
	Fs afero.Fs
}

// NewMemoryFS creates a new in-memory filesystem for testing.
func NewMemoryFS() *FSHelper {
	return &FSHelper{
		Fs: afero.NewMemMapFs(),
	}
}

// WriteFile writes content to path, creating parent directories.
func (h *FSHelper) WriteFile(path string, content []byte) error {
	if err := h.Fs.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := afero.WriteFile(h.Fs, path, content, 0o600); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}

// FileExists checks if a file exists in the filesystem.
func (h *FSHelper) FileExists(path string) (bool, error) {
	exists, err := afero.Exists(h.Fs, path)
	if err != nil {
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}
	return exists, nil
}

// ReadFile reads the content of a file.
func (h *FSHelper) ReadFile(path string) ([]byte, error) {
	content, err := afero.ReadFile(h.Fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return content, nil
}

// UniformImage returns a w x h image filled with a single color.
// Uniform fills resample to uniform tensors, which makes fingerprint
// expectations exact regardless of the resampling kernel.
func UniformImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

// EncodeJPEG returns img encoded as a JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePNG returns img encoded as a PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeGIF returns img encoded as a GIF.
func EncodeGIF(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("failed to encode GIF: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeBMP returns img encoded as a BMP.
func EncodeBMP(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode BMP: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteUniformJPEG writes a single-color JPEG to path.
func (h *FSHelper) WriteUniformJPEG(path string, w, hgt int, c color.Color) error {
	data, err := EncodeJPEG(UniformImage(w, hgt, c))
	if err != nil {
		return err
	}
	return h.WriteFile(path, data)
}

// WriteUniformPNG writes a single-color PNG to path.
func (h *FSHelper) WriteUniformPNG(path string, w, hgt int, c color.Color) error {
	data, err := EncodePNG(UniformImage(w, hgt, c))
	if err != nil {
		return err
	}
	return h.WriteFile(path, data)
}
