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

// Package media sniffs intake files by magic bytes and normalizes them
// to a decodable on-disk format before fingerprinting.
//
// Extensions on intake files are untrusted: phones and messaging apps
// routinely deposit HEIC payloads behind .jpg or .txt names. Everything
// here keys off the leading bytes of the file, never the name.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// Format identifies a file type detected from magic bytes. The zero
// value means the header matched nothing known.
type Format string

const (
	FormatUnknown Format = ""
	FormatHEIC    Format = "heic"
	FormatHEIF    Format = "heif"
	FormatJPEG    Format = "jpg"
	FormatPNG     Format = "png"
	FormatGIF     Format = "gif"
	FormatBMP     Format = "bmp"
	FormatICO     Format = "ico"
	FormatTIFF    Format = "tiff"
	FormatPDF     Format = "pdf"
	FormatZIP     Format = "zip"
	FormatRAR     Format = "rar"
	FormatGZ      Format = "gz"
	FormatBZ2     Format = "bz2"
	FormatDOCX    Format = "docx"
	FormatDOC     Format = "doc"
)

// SniffLen is how many leading bytes DetectFormat inspects.
const SniffLen = 10

// Ext returns the canonical extension for the format, including the
// leading dot, or "" when the format is unknown.
func (f Format) Ext() string {
	if f == FormatUnknown {
		return ""
	}
	return "." + string(f)
}

// IsImage reports whether the format is one the pipeline can turn into
// a decodable image.
func (f Format) IsImage() bool {
	switch f {
	case FormatHEIC, FormatHEIF, FormatJPEG, FormatPNG, FormatGIF,
		FormatBMP, FormatICO, FormatTIFF:
		return true
	default:
		return false
	}
}

// ISOBMFF files open with a 32-bit big-endian box length followed by
// "ftyp" and a brand code. These are the box lengths seen in the wild
// for HEIC containers.
var ftypSizes = [][]byte{
	{0x00, 0x00, 0x00, 0x18},
	{0x00, 0x00, 0x00, 0x24},
	{0x00, 0x00, 0x00, 0x28},
	{0x00, 0x00, 0x00, 0x2C},
	{0x00, 0x00, 0x00, 0x20},
}

// heicBrands are the ftyp brand markers treated as HEIC. "ftyphe" is a
// prefix of most of the longer brands and is what actually matches
// inside a SniffLen-byte header.
var heicBrands = [][]byte{
	[]byte("ftypheic"),
	[]byte("ftypmif1"),
	[]byte("ftypmsf1"),
	[]byte("ftypheix"),
	[]byte("ftypheim"),
	[]byte("ftyphevc"),
	[]byte("ftyphe"),
}

// DetectFormat maps the leading bytes of a file to a Format. The header
// should be the first SniffLen bytes; shorter headers are allowed and
// simply match fewer patterns. An empty header is always unknown.
func DetectFormat(header []byte) Format {
	for _, size := range ftypSizes {
		for _, brand := range heicBrands {
			if len(header) >= len(size)+len(brand) &&
				bytes.HasPrefix(header, size) &&
				bytes.HasPrefix(header[len(size):], brand) {
				return FormatHEIC
			}
		}
	}

	switch {
	case bytes.HasPrefix(header, []byte{0xFF, 0xD8}):
		return FormatJPEG
	case bytes.HasPrefix(header, []byte("\x89PNG")):
		return FormatPNG
	case bytes.HasPrefix(header, []byte("GIF87a")),
		bytes.HasPrefix(header, []byte("GIF89a")):
		return FormatGIF
	case bytes.HasPrefix(header, []byte("BM")):
		return FormatBMP
	case bytes.HasPrefix(header, []byte{0x00, 0x00, 0x01, 0x00}):
		return FormatICO
	case bytes.HasPrefix(header, []byte("II*\x00")),
		bytes.HasPrefix(header, []byte("MM\x00*")):
		return FormatTIFF
	case bytes.HasPrefix(header, []byte("%PDF")):
		return FormatPDF
	case bytes.HasPrefix(header, []byte("PK\x03\x04")):
		return FormatZIP
	case bytes.HasPrefix(header, []byte("Rar!")):
		return FormatRAR
	case bytes.HasPrefix(header, []byte{0x1F, 0x8B}):
		return FormatGZ
	case bytes.HasPrefix(header, []byte("BZh")):
		return FormatBZ2
	// Bare PK without the local-file-header tag is some other OOXML or
	// ZIP variant; either way it is not an image.
	case bytes.HasPrefix(header, []byte("PK")):
		return FormatDOCX
	case bytes.HasPrefix(header, []byte{0xD0, 0xCF, 0x11, 0xE0}):
		return FormatDOC
	default:
		return FormatUnknown
	}
}

// SniffFile reads the first SniffLen bytes of path and detects its
// format. Reading fewer bytes than SniffLen is not an error, but a file
// with no readable bytes at all detects as FormatUnknown.
func SniffFile(fsys afero.Fs, path string) (Format, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("failed to open file for sniffing: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	header := make([]byte, SniffLen)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return FormatUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	return DetectFormat(header[:n]), nil
}
