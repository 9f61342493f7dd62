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

func sqlInsertMediaObject(ctx context.Context, db *sql.DB, obj database.MediaObject) (int64, error) {
	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO tbl_media_objects (orig_name, media_type, created_by, created_ip)
		VALUES ($1, $2, $3, $4)
		RETURNING media_object_id
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert media object statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	var id int64
	err = stmt.QueryRowContext(ctx,
		obj.OrigName,
		obj.MediaType,
		obj.CreatedBy,
		obj.CreatedIP,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert media object: %w", err)
	}
	return id, nil
}

func sqlUpdateMediaObjectLocation(ctx context.Context, db *sql.DB, upd database.MediaObjectUpdate) error {
	stmt, err := db.PrepareContext(ctx, `
		UPDATE tbl_media_objects
		SET new_name = $1, new_path = $2, media_create_date = $3,
			latitude = $4, longitude = $5,
			location_class = $6, location_type = $7, location_name = $8,
			location_display_name = $9, location_city = $10,
			location_province = $11, location_country = $12,
			width = $13, height = $14
		WHERE media_object_id = $15
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare update media object statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	res, err := stmt.ExecContext(ctx,
		upd.NewName,
		upd.NewPath,
		upd.MediaCreateDate,
		upd.Latitude,
		upd.Longitude,
		upd.LocationClass,
		upd.LocationType,
		upd.LocationName,
		upd.LocationDisplayName,
		upd.LocationCity,
		upd.LocationProvince,
		upd.LocationCountry,
		upd.Width,
		upd.Height,
		upd.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update media object %d: %w", upd.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for media object update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("media object %d not found for update", upd.ID)
	}
	return nil
}

func sqlInsertMetadata(ctx context.Context, db *sql.DB, mediaObjectID int64, rows []database.MetadataRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin metadata transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Warn().Err(rbErr).Msg("failed to rollback metadata transaction")
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tbl_media_metadata (media_object_id, exif_tag, exif_data)
		VALUES ($1, $2, $3)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert metadata statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	for _, row := range rows {
		_, err = stmt.ExecContext(ctx, mediaObjectID, row.Tag, row.Value)
		if err != nil {
			return fmt.Errorf("failed to insert metadata row %q: %w", row.Tag, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metadata transaction: %w", err)
	}
	return nil
}
