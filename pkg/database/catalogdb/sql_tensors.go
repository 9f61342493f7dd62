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
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ShoeboxProject/shoebox/pkg/database"
	"github.com/rs/zerolog/log"
)

// sqlInsertImageTensor stores both tensor blobs and points the owning
// media object at the new row, in one transaction. The link keeps the
// tensor row and the media object from drifting apart on failure.
func sqlInsertImageTensor(
	ctx context.Context,
	db *sql.DB,
	row database.ImageTensor,
	mediaObjectID int64,
) (int64, error) {
	if len(row.TensorPIL) != database.TensorByteLen {
		return 0, fmt.Errorf("invalid tensor_pil byte size: expected %d, got %d",
			database.TensorByteLen, len(row.TensorPIL))
	}
	if len(row.TensorCV2) != database.TensorByteLen {
		return 0, fmt.Errorf("invalid tensor_cv2 byte size: expected %d, got %d",
			database.TensorByteLen, len(row.TensorCV2))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin tensor transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Warn().Err(rbErr).Msg("failed to rollback tensor transaction")
		}
	}()

	var tensorID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO tbl_image_tensors (filename, tensor_pil, tensor_cv2, hash_pil, hash_cv2, tensor_shape)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`,
		row.Filename,
		row.TensorPIL,
		row.TensorCV2,
		row.HashPIL,
		row.HashCV2,
		database.TensorShape,
	).Scan(&tensorID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert image tensor: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE tbl_media_objects
		SET image_tensor_id = $1
		WHERE media_object_id = $2
	`, tensorID, mediaObjectID)
	if err != nil {
		return 0, fmt.Errorf("failed to link image tensor to media object %d: %w", mediaObjectID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit tensor transaction: %w", err)
	}
	return tensorID, nil
}

func sqlFetchTensorCandidates(
	ctx context.Context,
	db *sql.DB,
	hashPIL, hashCV2 string,
) ([]database.ImageTensor, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT filename, tensor_pil, tensor_cv2, hash_pil, hash_cv2
		FROM tbl_image_tensors
		WHERE hash_pil = $1 OR hash_cv2 = $2
	`, hashPIL, hashCV2)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tensor candidates: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close rows")
		}
	}()

	candidates := make([]database.ImageTensor, 0)
	for rows.Next() {
		var t database.ImageTensor
		var hp, hc sql.NullString
		if err := rows.Scan(&t.Filename, &t.TensorPIL, &t.TensorCV2, &hp, &hc); err != nil {
			return nil, fmt.Errorf("failed to scan tensor candidate: %w", err)
		}
		t.HashPIL = hp.String
		t.HashCV2 = hc.String
		candidates = append(candidates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tensor candidates: %w", err)
	}
	return candidates, nil
}

// sqlInsertMovieHash mirrors sqlInsertImageTensor for movies: hash row
// insert plus media object link in one transaction.
func sqlInsertMovieHash(
	ctx context.Context,
	db *sql.DB,
	row database.MovieHash,
	mediaObjectID int64,
) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin movie hash transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Warn().Err(rbErr).Msg("failed to rollback movie hash transaction")
		}
	}()

	var hashID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO tbl_movie_hashes (filename, media_hash)
		VALUES ($1, $2)
		RETURNING id
	`, row.Filename, row.MediaHash).Scan(&hashID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert movie hash: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE tbl_media_objects
		SET movie_hash_id = $1
		WHERE media_object_id = $2
	`, hashID, mediaObjectID)
	if err != nil {
		return 0, fmt.Errorf("failed to link movie hash to media object %d: %w", mediaObjectID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit movie hash transaction: %w", err)
	}
	return hashID, nil
}

func sqlFetchMovieCandidates(ctx context.Context, db *sql.DB, mediaHash string) ([]database.MovieHash, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT filename, media_hash
		FROM tbl_movie_hashes
		WHERE media_hash = $1
	`, mediaHash)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch movie candidates: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close rows")
		}
	}()

	candidates := make([]database.MovieHash, 0)
	for rows.Next() {
		var m database.MovieHash
		if err := rows.Scan(&m.Filename, &m.MediaHash); err != nil {
			return nil, fmt.Errorf("failed to scan movie candidate: %w", err)
		}
		candidates = append(candidates, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read movie candidates: %w", err)
	}
	return candidates, nil
}
