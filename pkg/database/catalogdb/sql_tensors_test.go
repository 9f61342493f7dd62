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

package catalogdb

import (
	"bytes"
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ShoeboxProject/shoebox/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTensorRow() database.ImageTensor {
	return database.ImageTensor{
		Filename:  "/images/2020-07-14-0000042.jpg",
		HashPIL:   "aaaa1111",
		HashCV2:   "bbbb2222",
		TensorPIL: bytes.Repeat([]byte{0x10}, database.TensorByteLen),
		TensorCV2: bytes.Repeat([]byte{0x20}, database.TensorByteLen),
	}
}

func TestInsertImageTensor(t *testing.T) {
	t.Parallel()

	db, mock := newTestDB(t)
	row := validTensorRow()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tbl_image_tensors")).
		WithArgs(row.Filename, row.TensorPIL, row.TensorCV2, row.HashPIL, row.HashCV2, database.TensorShape).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tbl_media_objects")).
		WithArgs(int64(7), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := db.InsertImageTensor(context.Background(), row, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertImageTensor_RejectsWrongByteLen(t *testing.T) {
	t.Parallel()

	db, mock := newTestDB(t)

	row := validTensorRow()
	row.TensorCV2 = row.TensorCV2[:100]

	_, err := db.InsertImageTensor(context.Background(), row, 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid tensor_cv2 byte size")
	assert.NoError(t, mock.ExpectationsWereMet(), "no statements should run for invalid blobs")
}

func TestInsertImageTensor_RollsBackWhenLinkFails(t *testing.T) {
	t.Parallel()

	db, mock := newTestDB(t)
	row := validTensorRow()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tbl_image_tensors")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tbl_media_objects")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := db.InsertImageTensor(context.Background(), row, 42)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchTensorCandidates(t *testing.T) {
	t.Parallel()

	db, mock := newTestDB(t)

	pilBlob := bytes.Repeat([]byte{0x01}, database.TensorByteLen)
	rows := sqlmock.NewRows([]string{"filename", "tensor_pil", "tensor_cv2", "hash_pil", "hash_cv2"}).
		AddRow("/images/A.jpg", pilBlob, nil, "aaaa1111", nil).
		AddRow("/images/B.jpg", nil, pilBlob, nil, "bbbb2222")

	mock.ExpectQuery(regexp.QuoteMeta("FROM tbl_image_tensors")).
		WithArgs("aaaa1111", "bbbb2222").
		WillReturnRows(rows)

	candidates, err := db.FetchTensorCandidates(context.Background(), "aaaa1111", "bbbb2222")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "/images/A.jpg", candidates[0].Filename)
	assert.Equal(t, "aaaa1111", candidates[0].HashPIL)
	assert.Empty(t, candidates[0].HashCV2, "NULL hash scans to empty string")
	assert.Nil(t, candidates[0].TensorCV2, "NULL blob scans to nil")
	assert.Equal(t, pilBlob, candidates[1].TensorCV2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchTensorCandidates_NoMatches(t *testing.T) {
	t.Parallel()

	db, mock := newTestDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tbl_image_tensors")).
		WithArgs("x", "y").
		WillReturnRows(sqlmock.NewRows([]string{"filename", "tensor_pil", "tensor_cv2", "hash_pil", "hash_cv2"}))

	candidates, err := db.FetchTensorCandidates(context.Background(), "x", "y")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestInsertMovieHash(t *testing.T) {
	t.Parallel()

	db, mock := newTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tbl_movie_hashes")).
		WithArgs("/movies/2019-01-01-0000005.mp4", "deadbeef").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tbl_media_objects")).
		WithArgs(int64(3), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := db.InsertMovieHash(context.Background(), database.MovieHash{
		Filename:  "/movies/2019-01-01-0000005.mp4",
		MediaHash: "deadbeef",
	}, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchMovieCandidates(t *testing.T) {
	t.Parallel()

	db, mock := newTestDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tbl_movie_hashes")).
		WithArgs("deadbeef").
		WillReturnRows(sqlmock.NewRows([]string{"filename", "media_hash"}).
			AddRow("/movies/old.mp4", "deadbeef"))

	candidates, err := db.FetchMovieCandidates(context.Background(), "deadbeef")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "/movies/old.mp4", candidates[0].Filename)
	assert.NoError(t, mock.ExpectationsWereMet())
}
