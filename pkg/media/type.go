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
	"path/filepath"
	"strings"

	"github.com/ShoeboxProject/shoebox/pkg/helpers"
)

// Type is the declared media category of an intake file. It travels
// from the supervisor's extension classification through the worker
// environment into the catalog's media_type column.
type Type string

const (
	TypeImage Type = "image"
	TypeMovie Type = "movie"
)

// ClassifyExtension maps a filename to its media type using the
// configured extension allowlists. Lists hold lowercase dotless
// extensions; matching is case-insensitive. Unlisted extensions return
// false and the file is left alone.
func ClassifyExtension(name string, imageExts, movieExts []string) (Type, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return "", false
	}
	if helpers.Contains(imageExts, ext) {
		return TypeImage, true
	}
	if helpers.Contains(movieExts, ext) {
		return TypeMovie, true
	}
	return "", false
}
