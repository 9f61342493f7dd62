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

package pipeline

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ShoeboxProject/shoebox/pkg/duplicate"
)

const (
	nameDateLayout     = "2006-01-02"
	unknownDateSegment = "UnknownDate"
)

// NewMediaName builds the canonical filename for a stored media object.
// The id segment is zero-padded to seven digits and the extension is
// lowercased. A nil create date yields the UnknownDate segment.
func NewMediaName(mediaObjectID int64, createDate *time.Time, ext string) string {
	segment := unknownDateSegment
	if createDate != nil {
		segment = createDate.Format(nameDateLayout)
	}
	return fmt.Sprintf("%s-%07d%s", segment, mediaObjectID, strings.ToLower(ext))
}

// DuplicateImageName names a rejected duplicate image after the stored
// file it collides with, embedding the confirming MSE.
func DuplicateImageName(currentPath string, match *duplicate.Match) string {
	return fmt.Sprintf("%s-DUP_OF_%s (mse-%s)%s",
		stemOf(currentPath), stemOf(match.Filename), FormatMSE(match.MSE), filepath.Ext(currentPath))
}

// DuplicateMovieName names a rejected duplicate movie. Movie matches
// are byte-exact, so no MSE is recorded.
func DuplicateMovieName(currentPath, storedFilename string) string {
	return fmt.Sprintf("%s-DUP_OF_%s%s",
		stemOf(currentPath), stemOf(storedFilename), filepath.Ext(currentPath))
}

// FormatMSE renders an MSE the way duplicate filenames have always
// carried it: decimal notation with at least one fractional digit, so
// an exact match reads "mse-0.0".
func FormatMSE(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// stemOf returns the filename without directory or extension. Stored
// filenames can carry Windows separators from older catalog writers, so
// backslashes are normalized first.
func stemOf(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	return strings.TrimSuffix(name, path.Ext(name))
}
