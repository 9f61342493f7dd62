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

package media

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"

	"github.com/ShoeboxProject/shoebox/pkg/helpers/command"
	"github.com/rs/zerolog/log"
	"github.com/sergeymakinen/go-ico"
	"github.com/spf13/afero"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Normalizer corrects mislabeled extensions and converts images to a
// format the fingerprinting stage can decode. HEIC conversion is
// delegated to an external tool since no pure Go decoder exists for it.
type Normalizer struct {
	fsys          afero.Fs
	executor      command.Executor
	heicConverter string
}

// NewNormalizer returns a Normalizer that operates on fsys and shells
// out to heicConverter for HEIC/HEIF payloads.
func NewNormalizer(fsys afero.Fs, executor command.Executor, heicConverter string) *Normalizer {
	return &Normalizer{
		fsys:          fsys,
		executor:      executor,
		heicConverter: heicConverter,
	}
}

// Normalize sniffs path, renames it in place when its extension does
// not match the detected format, and converts the content to JPEG
// unless it is already JPEG, PNG or GIF. It returns the path the file
// lives at afterwards, also on failure, so callers can still relocate
// a file that was renamed before the error. Non-image content is an
// error.
func (n *Normalizer) Normalize(ctx context.Context, path string) (string, error) {
	format, err := SniffFile(n.fsys, path)
	if err != nil {
		return path, err
	}
	log.Debug().
		Str("path", path).
		Str("format", string(format)).
		Msg("detected file format from magic bytes")

	if format != FormatUnknown {
		path, err = n.correctExtension(path, format)
		if err != nil {
			return path, err
		}
	}

	switch format {
	case FormatHEIC, FormatHEIF:
		return n.convertHEIC(ctx, path)
	case FormatJPEG, FormatPNG, FormatGIF:
		return path, nil
	default:
		return n.convertToJPEG(path, format)
	}
}

// correctExtension renames path so its extension matches the sniffed
// format. Comparison is case-insensitive, so IMG.JPG stays put.
func (n *Normalizer) correctExtension(path string, format Format) (string, error) {
	current := strings.ToLower(filepath.Ext(path))
	if current == format.Ext() {
		return path, nil
	}

	renamed := strings.TrimSuffix(path, filepath.Ext(path)) + format.Ext()
	if err := n.fsys.Rename(path, renamed); err != nil {
		return path, fmt.Errorf("failed to rename %s to match detected format: %w", path, err)
	}
	log.Info().
		Str("from", path).
		Str("to", renamed).
		Msg("renamed file to match detected format")
	return renamed, nil
}

// convertHEIC runs the external converter to produce a JPEG next to the
// source, then deletes the source.
func (n *Normalizer) convertHEIC(ctx context.Context, path string) (string, error) {
	target := strings.TrimSuffix(path, filepath.Ext(path)) + ".jpg"

	if err := n.executor.Run(ctx, n.heicConverter, path, target); err != nil {
		return path, fmt.Errorf("failed to convert HEIC file %s: %w", path, err)
	}
	exists, err := afero.Exists(n.fsys, target)
	if err != nil {
		return path, fmt.Errorf("failed to check converted file: %w", err)
	}
	if !exists {
		return path, fmt.Errorf("HEIC converter produced no output for %s", path)
	}

	if err := n.fsys.Remove(path); err != nil {
		return target, fmt.Errorf("failed to remove original HEIC file: %w", err)
	}
	log.Info().
		Str("from", path).
		Str("to", target).
		Msg("converted HEIC file to JPEG")
	return target, nil
}

// convertToJPEG decodes path with the Go decoder for its sniffed format
// and re-encodes it as JPEG, deleting the original. Content that no
// decoder accepts, which includes every non-image format, fails here.
func (n *Normalizer) convertToJPEG(path string, format Format) (string, error) {
	src, err := n.fsys.Open(path)
	if err != nil {
		return path, fmt.Errorf("failed to open file for conversion: %w", err)
	}

	var img image.Image
	switch format {
	case FormatBMP:
		img, err = bmp.Decode(src)
	case FormatICO:
		img, err = ico.Decode(src)
	case FormatTIFF:
		img, err = tiff.Decode(src)
	default:
		img, _, err = image.Decode(src)
	}
	if closeErr := src.Close(); closeErr != nil {
		log.Warn().Err(closeErr).Msg("failed to close source file after decode")
	}
	if err != nil {
		return path, fmt.Errorf("file %s could not be decoded as an image: %w", path, err)
	}

	target := strings.TrimSuffix(path, filepath.Ext(path)) + ".jpg"
	out, err := n.fsys.Create(target)
	if err != nil {
		return path, fmt.Errorf("failed to create converted file: %w", err)
	}
	if err := jpeg.Encode(out, img, nil); err != nil {
		_ = out.Close()
		_ = n.fsys.Remove(target)
		return path, fmt.Errorf("failed to encode %s as JPEG: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return path, fmt.Errorf("failed to close converted file: %w", err)
	}

	if err := n.fsys.Remove(path); err != nil {
		return target, fmt.Errorf("failed to remove original file after conversion: %w", err)
	}
	log.Info().
		Str("from", path).
		Str("to", target).
		Msg("converted file to JPEG")
	return target, nil
}
