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

// Package database declares the catalog row types and store interfaces.
// The concrete PostgreSQL implementation lives in catalogdb.
package database

import (
	"context"
	"database/sql"
	"time"
)

const (
	// TensorShape is the only tensor geometry the catalog accepts,
	// stored verbatim in tbl_image_tensors.tensor_shape.
	TensorShape = "(50, 50, 3)"
	// TensorByteLen is the serialized size of a 50x50 RGB tensor.
	TensorByteLen = 50 * 50 * 3
)

/*
 * Structs for SQL records
 */

// MediaObject is a tbl_media_objects row at insert time. The remaining
// columns are filled in later by UpdateMediaObjectLocation.
type MediaObject struct {
	OrigName  string
	MediaType string
	CreatedBy string
	CreatedIP string
	ID        int64
}

// MediaObjectUpdate carries the columns written back once a media object
// has been named, dated and geocoded. Nil pointers store NULL.
type MediaObjectUpdate struct {
	MediaCreateDate     *time.Time
	Latitude            *float64
	Longitude           *float64
	LocationClass       *string
	LocationType        *string
	LocationName        *string
	LocationDisplayName *string
	LocationCity        *string
	LocationProvince    *string
	LocationCountry     *string
	Width               *int
	Height              *int
	NewName             string
	NewPath             string
	ID                  int64
}

// ImageTensor is a tbl_image_tensors row. The two blobs hold the same
// image resampled by the two historical decode pipelines.
type ImageTensor struct {
	Filename    string
	HashPIL     string
	HashCV2     string
	TensorShape string
	TensorPIL   []byte
	TensorCV2   []byte
	ID          int64
}

// MovieHash is a tbl_movie_hashes row.
type MovieHash struct {
	Filename  string
	MediaHash string
	ID        int64
}

// MetadataRow is one flattened tag/value pair for tbl_media_metadata.
// Rows are inserted in slice order.
type MetadataRow struct {
	Tag   string
	Value string
}

// KnownFace is a tbl_known_faces row. Encoding is 128 float64 values in
// little-endian byte order.
type KnownFace struct {
	Name     string
	Encoding []byte
}

// FaceBox is a detection rectangle in tbl_invalid_faces coordinates.
type FaceBox struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// Identity is the audit pair recorded in created_by/created_ip columns.
type Identity struct {
	User string
	IP   string
}

/*
 * Interfaces for external deps
 */

type GenericDBI interface {
	Open() error
	UnsafeGetSQLDb() *sql.DB
	Allocate() error
	MigrateUp() error
	Truncate() error
	Close() error
}

// CatalogDBI is the gateway to the media catalog. Every operation is a
// single logical transaction against the store.
type CatalogDBI interface {
	GenericDBI

	InsertMediaObject(ctx context.Context, obj MediaObject) (int64, error)
	UpdateMediaObjectLocation(ctx context.Context, upd MediaObjectUpdate) error
	InsertMetadata(ctx context.Context, mediaObjectID int64, rows []MetadataRow) error

	InsertImageTensor(ctx context.Context, row ImageTensor, mediaObjectID int64) (int64, error)
	FetchTensorCandidates(ctx context.Context, hashPIL, hashCV2 string) ([]ImageTensor, error)

	InsertMovieHash(ctx context.Context, row MovieHash, mediaObjectID int64) (int64, error)
	FetchMovieCandidates(ctx context.Context, mediaHash string) ([]MovieHash, error)

	LoadKnownFaces(ctx context.Context) ([]KnownFace, error)
	AddKnownFaces(ctx context.Context, faces []KnownFace) error
	RewriteIdentifiedFaces(ctx context.Context, mediaObjectID int64, names []string, identity Identity) error
	IsInvalidFaceLocation(ctx context.Context, mediaObjectID int64, box FaceBox) (bool, error)
}
