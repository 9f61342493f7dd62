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
	"bytes"
	"context"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/ShoeboxProject/shoebox/pkg/testing/helpers"
	"github.com/ShoeboxProject/shoebox/pkg/testing/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer(t *testing.T) (*Normalizer, *helpers.FSHelper, *mocks.MockCommandExecutor) {
	t.Helper()
	fs := helpers.NewMemoryFS()
	executor := &mocks.MockCommandExecutor{}
	return NewNormalizer(fs.Fs, executor, "heif-convert"), fs, executor
}

func TestNormalizeJPEGPassthrough(t *testing.T) {
	t.Parallel()

	normalizer, fs, _ := newTestNormalizer(t)
	require.NoError(t, fs.WriteUniformJPEG("/intake/photo.jpg", 8, 8, color.RGBA{R: 200, A: 255}))

	path, err := normalizer.Normalize(context.Background(), "/intake/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/intake/photo.jpg", path)
}

func TestNormalizeGIFPassthrough(t *testing.T) {
	t.Parallel()

	normalizer, fs, _ := newTestNormalizer(t)
	data, err := helpers.EncodeGIF(helpers.UniformImage(8, 8, color.RGBA{R: 40, G: 40, B: 40, A: 255}))
	require.NoError(t, err)
	require.NoError(t, fs.WriteFile("/intake/loop.gif", data))

	path, err := normalizer.Normalize(context.Background(), "/intake/loop.gif")
	require.NoError(t, err)
	assert.Equal(t, "/intake/loop.gif", path)
}

func TestNormalizeKeepsUppercaseExtension(t *testing.T) {
	t.Parallel()

	normalizer, fs, _ := newTestNormalizer(t)
	require.NoError(t, fs.WriteUniformJPEG("/intake/IMG.JPG", 8, 8, color.RGBA{G: 120, A: 255}))

	path, err := normalizer.Normalize(context.Background(), "/intake/IMG.JPG")
	require.NoError(t, err)
	assert.Equal(t, "/intake/IMG.JPG", path)
}

func TestNormalizeRenamesMismatchedExtension(t *testing.T) {
	t.Parallel()

	normalizer, fs, _ := newTestNormalizer(t)
	require.NoError(t, fs.WriteUniformPNG("/intake/shot.jpg", 8, 8, color.RGBA{B: 80, A: 255}))

	path, err := normalizer.Normalize(context.Background(), "/intake/shot.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/intake/shot.png", path)

	exists, err := fs.FileExists("/intake/shot.jpg")
	require.NoError(t, err)
	assert.False(t, exists, "misnamed original should be gone")
	exists, err = fs.FileExists("/intake/shot.png")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestNormalizeConvertsBMP(t *testing.T) {
	t.Parallel()

	normalizer, fs, _ := newTestNormalizer(t)
	data, err := helpers.EncodeBMP(helpers.UniformImage(6, 4, color.RGBA{R: 10, G: 20, B: 30, A: 255}))
	require.NoError(t, err)
	require.NoError(t, fs.WriteFile("/intake/scan.bmp", data))

	path, err := normalizer.Normalize(context.Background(), "/intake/scan.bmp")
	require.NoError(t, err)
	assert.Equal(t, "/intake/scan.jpg", path)

	exists, err := fs.FileExists("/intake/scan.bmp")
	require.NoError(t, err)
	assert.False(t, exists, "original should be deleted after conversion")

	converted, err := fs.ReadFile("/intake/scan.jpg")
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(converted))
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Width)
	assert.Equal(t, 4, cfg.Height)
}

func TestNormalizeHEICBehindWrongExtension(t *testing.T) {
	t.Parallel()

	normalizer, fs, executor := newTestNormalizer(t)
	header := append([]byte{0x00, 0x00, 0x00, 0x18}, []byte("ftypheic")...)
	require.NoError(t, fs.WriteFile("/intake/foo.txt", append(header, make([]byte, 32)...)))

	executor.On("Run", mock.Anything, "heif-convert",
		[]string{"/intake/foo.heic", "/intake/foo.jpg"}).
		Run(func(_ mock.Arguments) {
			require.NoError(t, fs.WriteUniformJPEG("/intake/foo.jpg", 4, 4, color.RGBA{A: 255}))
		}).
		Return(nil)

	path, err := normalizer.Normalize(context.Background(), "/intake/foo.txt")
	require.NoError(t, err)
	assert.Equal(t, "/intake/foo.jpg", path)

	exists, err := fs.FileExists("/intake/foo.txt")
	require.NoError(t, err)
	assert.False(t, exists, "misnamed original should have been renamed")
	exists, err = fs.FileExists("/intake/foo.heic")
	require.NoError(t, err)
	assert.False(t, exists, "renamed HEIC should be deleted after conversion")

	executor.AssertExpectations(t)
}

func TestNormalizeHEICConverterFails(t *testing.T) {
	t.Parallel()

	normalizer, fs, executor := newTestNormalizer(t)
	header := append([]byte{0x00, 0x00, 0x00, 0x18}, []byte("ftypheic")...)
	require.NoError(t, fs.WriteFile("/intake/bad.heic", append(header, make([]byte, 32)...)))

	executor.On("Run", mock.Anything, "heif-convert", mock.Anything).
		Return(assert.AnError)

	_, err := normalizer.Normalize(context.Background(), "/intake/bad.heic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to convert HEIC file")
}

func TestNormalizeHEICConverterProducesNoOutput(t *testing.T) {
	t.Parallel()

	normalizer, fs, executor := newTestNormalizer(t)
	header := append([]byte{0x00, 0x00, 0x00, 0x18}, []byte("ftypheic")...)
	require.NoError(t, fs.WriteFile("/intake/gone.heic", append(header, make([]byte, 32)...)))

	executor.On("Run", mock.Anything, "heif-convert", mock.Anything).Return(nil)

	_, err := normalizer.Normalize(context.Background(), "/intake/gone.heic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "produced no output")
}

func TestNormalizeRejectsNonImage(t *testing.T) {
	t.Parallel()

	normalizer, fs, _ := newTestNormalizer(t)
	require.NoError(t, fs.WriteFile("/intake/report.pdf", []byte("%PDF-1.4\nnot an image")))

	_, err := normalizer.Normalize(context.Background(), "/intake/report.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not be decoded as an image")
}

func TestNormalizeRejectsUnknownContent(t *testing.T) {
	t.Parallel()

	normalizer, fs, _ := newTestNormalizer(t)
	require.NoError(t, fs.WriteFile("/intake/notes.txt", []byte("plain text, no magic")))

	_, err := normalizer.Normalize(context.Background(), "/intake/notes.txt")
	require.Error(t, err)
}

func TestNormalizeRejectsEmptyFile(t *testing.T) {
	t.Parallel()

	normalizer, fs, _ := newTestNormalizer(t)
	require.NoError(t, fs.WriteFile("/intake/empty.jpg", nil))

	_, err := normalizer.Normalize(context.Background(), "/intake/empty.jpg")
	require.Error(t, err)
}
