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
	"crypto/md5" //nolint:gosec // Content fingerprinting for duplicate detection, not security
	"encoding/hex"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// movieChunkSize is the read buffer for streaming movie hashing. Movies
// are hashed whole but never held in memory.
const movieChunkSize = 8192

// HashMovie returns the lowercase hex MD5 digest of the full content of
// the file at path.
func HashMovie(fsys afero.Fs, path string) (string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open movie %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close movie after hashing")
		}
	}()

	hasher := md5.New() //nolint:gosec // Content fingerprinting for duplicate detection, not security
	if _, err := io.CopyBuffer(hasher, f, make([]byte, movieChunkSize)); err != nil {
		return "", fmt.Errorf("failed to hash movie %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
