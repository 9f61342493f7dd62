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

package helpers

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// CopyFile copies sourcePath to destPath, replacing any existing file.
func CopyFile(fsys afero.Fs, sourcePath, destPath string) error {
	inputFile, err := fsys.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", sourcePath, err)
	}
	defer func(inputFile afero.File) {
		_ = inputFile.Close()
	}(inputFile)

	outputFile, err := fsys.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer func(outputFile afero.File) {
		_ = outputFile.Close()
	}(outputFile)

	_, err = io.Copy(outputFile, inputFile)
	if err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	err = outputFile.Sync()
	if err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	return nil
}

// MoveFile moves source into destDir under name, creating destDir if it
// does not exist, and returns the destination path. Rename fails when the
// destination sits on another filesystem, so it falls back to copy and
// delete. An existing file at the destination is replaced.
func MoveFile(fsys afero.Fs, source, destDir, name string) (string, error) {
	err := fsys.MkdirAll(destDir, 0o750)
	if err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", destDir, err)
	}

	dest := filepath.Join(destDir, name)
	if fsys.Rename(source, dest) == nil {
		return dest, nil
	}

	err = CopyFile(fsys, source, dest)
	if err != nil {
		return "", fmt.Errorf("failed to move %s to %s: %w", source, dest, err)
	}
	err = fsys.Remove(source)
	if err != nil {
		return "", fmt.Errorf("failed to remove source after copy: %w", err)
	}
	return dest, nil
}
