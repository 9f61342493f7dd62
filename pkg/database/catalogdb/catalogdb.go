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

// Package catalogdb implements the media catalog gateway on PostgreSQL.
package catalogdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/ShoeboxProject/shoebox/pkg/config"
	"github.com/ShoeboxProject/shoebox/pkg/database"
	"github.com/jackc/pgx/v5/pgconn"
	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
)

var ErrNullSQL = errors.New("catalog database is not connected")

const (
	pingAttempts = 3
	pingDelay    = 2 * time.Second
)

type CatalogDB struct {
	sql *sql.DB
	cfg *config.Instance
	ctx context.Context
}

// OpenCatalogDB connects to the catalog and configures the connection
// pool. It does not run migrations; the owning process decides when to
// call MigrateUp.
func OpenCatalogDB(ctx context.Context, cfg *config.Instance) (*CatalogDB, error) {
	db := &CatalogDB{sql: nil, cfg: cfg, ctx: ctx}
	err := db.Open()
	return db, err
}

func (db *CatalogDB) Open() error {
	sqlInstance, err := sql.Open("pgx", db.dsn())
	if err != nil {
		return fmt.Errorf("failed to open catalog database: %w", err)
	}

	dbCfg := db.cfg.DatabaseConfig()
	sqlInstance.SetMaxOpenConns(dbCfg.MaxConns)
	sqlInstance.SetMaxIdleConns(dbCfg.MinConns)

	err = db.pingWithRetry(sqlInstance)
	if err != nil {
		_ = sqlInstance.Close()
		return err
	}

	db.sql = sqlInstance
	return nil
}

func (db *CatalogDB) dsn() string {
	dbCfg := db.cfg.DatabaseConfig()
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(dbCfg.User, dbCfg.Password),
		Host:   net.JoinHostPort(dbCfg.Host, strconv.Itoa(dbCfg.Port)),
		Path:   dbCfg.Name,
	}
	return u.String()
}

// pingWithRetry verifies the connection, retrying transient failures a
// few times so a catalog restart does not immediately fail every worker.
func (db *CatalogDB) pingWithRetry(sqlInstance *sql.DB) error {
	ctx := db.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		err = sqlInstance.PingContext(ctx)
		if err == nil {
			return nil
		}
		if !isTransientConnError(err) {
			return fmt.Errorf("failed to connect to catalog database: %w", err)
		}
		if attempt < pingAttempts {
			log.Warn().Err(err).
				Int("attempt", attempt).
				Msg("catalog connection failed, retrying")
			select {
			case <-time.After(pingDelay):
			case <-ctx.Done():
				return fmt.Errorf("catalog connection canceled: %w", ctx.Err())
			}
		}
	}
	return fmt.Errorf("failed to connect to catalog database after %d attempts: %w", pingAttempts, err)
}

// isTransientConnError reports whether err looks like a connection-level
// failure worth retrying, as opposed to a statement or schema error.
func isTransientConnError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exceptions.
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" {
			return true
		}
		switch pgErr.Code {
		case "57P03", "53300": // cannot_connect_now, too_many_connections
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func (db *CatalogDB) UnsafeGetSQLDb() *sql.DB {
	return db.sql
}

// SetSQLForTesting allows injection of a sql.DB instance for testing
// purposes.
func (db *CatalogDB) SetSQLForTesting(sqlInstance *sql.DB) {
	db.sql = sqlInstance
}

func (db *CatalogDB) Allocate() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlAllocate(db.sql)
}

func (db *CatalogDB) MigrateUp() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlMigrateUp(db.sql)
}

func (db *CatalogDB) Truncate() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	ctx := db.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return sqlTruncate(ctx, db.sql)
}

func (db *CatalogDB) Close() error {
	if db.sql == nil {
		return nil
	}
	err := db.sql.Close()
	if err != nil {
		return fmt.Errorf("failed to close catalog database: %w", err)
	}
	db.sql = nil
	return nil
}

func (db *CatalogDB) InsertMediaObject(ctx context.Context, obj database.MediaObject) (int64, error) {
	if db.sql == nil {
		return 0, ErrNullSQL
	}
	return sqlInsertMediaObject(ctx, db.sql, obj)
}

func (db *CatalogDB) UpdateMediaObjectLocation(ctx context.Context, upd database.MediaObjectUpdate) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlUpdateMediaObjectLocation(ctx, db.sql, upd)
}

func (db *CatalogDB) InsertMetadata(ctx context.Context, mediaObjectID int64, rows []database.MetadataRow) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlInsertMetadata(ctx, db.sql, mediaObjectID, rows)
}

func (db *CatalogDB) InsertImageTensor(
	ctx context.Context,
	row database.ImageTensor,
	mediaObjectID int64,
) (int64, error) {
	if db.sql == nil {
		return 0, ErrNullSQL
	}
	return sqlInsertImageTensor(ctx, db.sql, row, mediaObjectID)
}

func (db *CatalogDB) FetchTensorCandidates(
	ctx context.Context,
	hashPIL, hashCV2 string,
) ([]database.ImageTensor, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlFetchTensorCandidates(ctx, db.sql, hashPIL, hashCV2)
}

func (db *CatalogDB) InsertMovieHash(
	ctx context.Context,
	row database.MovieHash,
	mediaObjectID int64,
) (int64, error) {
	if db.sql == nil {
		return 0, ErrNullSQL
	}
	return sqlInsertMovieHash(ctx, db.sql, row, mediaObjectID)
}

func (db *CatalogDB) FetchMovieCandidates(ctx context.Context, mediaHash string) ([]database.MovieHash, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlFetchMovieCandidates(ctx, db.sql, mediaHash)
}

func (db *CatalogDB) LoadKnownFaces(ctx context.Context) ([]database.KnownFace, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlLoadKnownFaces(ctx, db.sql)
}

func (db *CatalogDB) AddKnownFaces(ctx context.Context, faces []database.KnownFace) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlAddKnownFaces(ctx, db.sql, faces)
}

func (db *CatalogDB) RewriteIdentifiedFaces(
	ctx context.Context,
	mediaObjectID int64,
	names []string,
	identity database.Identity,
) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlRewriteIdentifiedFaces(ctx, db.sql, mediaObjectID, names, identity)
}

func (db *CatalogDB) IsInvalidFaceLocation(
	ctx context.Context,
	mediaObjectID int64,
	box database.FaceBox,
) (bool, error) {
	if db.sql == nil {
		return false, ErrNullSQL
	}
	return sqlIsInvalidFaceLocation(ctx, db.sql, mediaObjectID, box)
}
