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

func sqlLoadKnownFaces(ctx context.Context, db *sql.DB) ([]database.KnownFace, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, encoding FROM tbl_known_faces`)
	if err != nil {
		return nil, fmt.Errorf("failed to load known faces: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close rows")
		}
	}()

	faces := make([]database.KnownFace, 0)
	for rows.Next() {
		var f database.KnownFace
		if err := rows.Scan(&f.Name, &f.Encoding); err != nil {
			return nil, fmt.Errorf("failed to scan known face: %w", err)
		}
		faces = append(faces, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read known faces: %w", err)
	}
	return faces, nil
}

func sqlAddKnownFaces(ctx context.Context, db *sql.DB, faces []database.KnownFace) error {
	if len(faces) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin known faces transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Warn().Err(rbErr).Msg("failed to rollback known faces transaction")
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tbl_known_faces (name, encoding)
		VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert known face statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	for _, face := range faces {
		_, err = stmt.ExecContext(ctx, face.Name, face.Encoding)
		if err != nil {
			return fmt.Errorf("failed to insert known face %q: %w", face.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit known faces transaction: %w", err)
	}
	return nil
}

// sqlRewriteIdentifiedFaces replaces the face identities of a media
// object and keeps its face tags in step, all in one transaction. The
// tag unlink runs before the identity delete so its subquery still sees
// the previously identified names.
func sqlRewriteIdentifiedFaces(
	ctx context.Context,
	db *sql.DB,
	mediaObjectID int64,
	names []string,
	identity database.Identity,
) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin identified faces transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Warn().Err(rbErr).Msg("failed to rollback identified faces transaction")
		}
	}()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM tbl_tags_to_media
		WHERE media_object_id = $1
		AND tag_id IN (
			SELECT tag_id
			FROM tbl_tags
			WHERE tag_name IN (
				SELECT face_name FROM tbl_identified_faces WHERE media_object_id = $2
			)
		)
	`, mediaObjectID, mediaObjectID)
	if err != nil {
		return fmt.Errorf("failed to unlink previous face tags: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM tbl_identified_faces WHERE media_object_id = $1
	`, mediaObjectID)
	if err != nil {
		return fmt.Errorf("failed to delete previous identified faces: %w", err)
	}

	for _, name := range names {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tbl_identified_faces (media_object_id, face_name)
			VALUES ($1, $2)
		`, mediaObjectID, name)
		if err != nil {
			return fmt.Errorf("failed to insert identified face %q: %w", name, err)
		}

		tagID, err := lookupOrCreateTag(ctx, tx, name, identity)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO tbl_tags_to_media (media_object_id, tag_id)
			VALUES ($1, $2)
			ON CONFLICT (media_object_id, tag_id) DO NOTHING
		`, mediaObjectID, tagID)
		if err != nil {
			return fmt.Errorf("failed to link tag %q to media object %d: %w", name, mediaObjectID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit identified faces transaction: %w", err)
	}
	return nil
}

// lookupOrCreateTag finds a tag by name or creates it. The upsert form
// makes RETURNING yield a row even when a concurrent worker creates the
// same tag first.
func lookupOrCreateTag(ctx context.Context, tx *sql.Tx, name string, identity database.Identity) (int64, error) {
	var tagID int64
	err := tx.QueryRowContext(ctx, `
		SELECT tag_id FROM tbl_tags WHERE tag_name = $1
	`, name).Scan(&tagID)
	if err == nil {
		return tagID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up tag %q: %w", name, err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO tbl_tags (tag_name, tag_desc, created_by, created_ip)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tag_name) DO UPDATE SET tag_desc = EXCLUDED.tag_desc
		RETURNING tag_id
	`, name, name, identity.User, identity.IP).Scan(&tagID)
	if err != nil {
		return 0, fmt.Errorf("failed to create tag %q: %w", name, err)
	}
	return tagID, nil
}

func sqlIsInvalidFaceLocation(
	ctx context.Context,
	db *sql.DB,
	mediaObjectID int64,
	box database.FaceBox,
) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, `
		SELECT 1 FROM tbl_invalid_faces
		WHERE media_object_id = $1
		AND "top" = $2 AND "right" = $3 AND "bottom" = $4 AND "left" = $5
	`, mediaObjectID, box.Top, box.Right, box.Bottom, box.Left).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check invalid face location: %w", err)
	}
	return true, nil
}
