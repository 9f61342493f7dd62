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
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveFile(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/intake/photo.jpg", []byte("jpeg-bytes"), 0o644))

	dest, err := MoveFile(fsys, "/intake/photo.jpg", "/images/2020/07", "photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/images/2020/07/photo.jpg", dest)

	content, err := afero.ReadFile(fsys, dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), content)

	exists, err := afero.Exists(fsys, "/intake/photo.jpg")
	require.NoError(t, err)
	assert.False(t, exists, "source should be gone after move")
}

func TestMoveFile_ReplacesExisting(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/intake/photo.jpg", []byte("new"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/images/photo.jpg", []byte("old"), 0o644))

	dest, err := MoveFile(fsys, "/intake/photo.jpg", "/images", "photo.jpg")
	require.NoError(t, err)

	content, err := afero.ReadFile(fsys, dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), content)
}

func TestMoveFile_RenamesWithinMove(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/intake/IMG_0001.jpg", []byte("x"), 0o644))

	dest, err := MoveFile(fsys, "/intake/IMG_0001.jpg", "/duplicates", "IMG_0001-DUP_OF_other (mse-0.0).jpg")
	require.NoError(t, err)
	assert.Equal(t, "/duplicates/IMG_0001-DUP_OF_other (mse-0.0).jpg", dest)
}

func TestMoveFile_MissingSource(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()

	_, err := MoveFile(fsys, "/intake/nope.jpg", "/images", "nope.jpg")
	require.Error(t, err)
}

func TestCopyFile(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/a.bin", []byte{0x00, 0x01, 0x02}, 0o644))

	err := CopyFile(fsys, "/a.bin", "/b.bin")
	require.NoError(t, err)

	content, err := afero.ReadFile(fsys, "/b.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0x02}, content)

	// source remains in place
	exists, err := afero.Exists(fsys, "/a.bin")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCopyFile_MissingSource(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()

	err := CopyFile(fsys, "/missing.bin", "/out.bin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open source file")
}
