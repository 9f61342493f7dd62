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

package mocks

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ShoeboxProject/shoebox/pkg/database"
	"github.com/stretchr/testify/mock"
)

// MockCatalogDB is a testify mock for database.CatalogDBI.
//
// Example:
//
//	db := mocks.NewMockCatalogDB()
//	db.On("InsertMediaObject", mock.Anything, mock.Anything).Return(int64(42), nil)
type MockCatalogDB struct {
	mock.Mock
}

// NewMockCatalogDB creates a new mock catalog database.
func NewMockCatalogDB() *MockCatalogDB {
	return &MockCatalogDB{}
}

func (m *MockCatalogDB) Open() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CatalogDB open failed: %w", err)
	}
	return nil
}

func (m *MockCatalogDB) UnsafeGetSQLDb() *sql.DB {
	args := m.Called()
	if db, ok := args.Get(0).(*sql.DB); ok {
		return db
	}
	return nil
}

func (m *MockCatalogDB) Allocate() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CatalogDB allocate failed: %w", err)
	}
	return nil
}

func (m *MockCatalogDB) MigrateUp() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CatalogDB migrate failed: %w", err)
	}
	return nil
}

func (m *MockCatalogDB) Truncate() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CatalogDB truncate failed: %w", err)
	}
	return nil
}

func (m *MockCatalogDB) Close() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CatalogDB close failed: %w", err)
	}
	return nil
}

func (m *MockCatalogDB) InsertMediaObject(ctx context.Context, obj database.MediaObject) (int64, error) {
	args := m.Called(ctx, obj)
	if err := args.Error(1); err != nil {
		return 0, fmt.Errorf("mock InsertMediaObject failed: %w", err)
	}
	return args.Get(0).(int64), nil //nolint:forcetypeassert // Test mock panics loudly on bad setup
}

func (m *MockCatalogDB) UpdateMediaObjectLocation(ctx context.Context, upd database.MediaObjectUpdate) error {
	args := m.Called(ctx, upd)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock UpdateMediaObjectLocation failed: %w", err)
	}
	return nil
}

func (m *MockCatalogDB) InsertMetadata(ctx context.Context, mediaObjectID int64, rows []database.MetadataRow) error {
	args := m.Called(ctx, mediaObjectID, rows)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock InsertMetadata failed: %w", err)
	}
	return nil
}

func (m *MockCatalogDB) InsertImageTensor(ctx context.Context, row database.ImageTensor, mediaObjectID int64) (int64, error) {
	args := m.Called(ctx, row, mediaObjectID)
	if err := args.Error(1); err != nil {
		return 0, fmt.Errorf("mock InsertImageTensor failed: %w", err)
	}
	return args.Get(0).(int64), nil //nolint:forcetypeassert // Test mock panics loudly on bad setup
}

func (m *MockCatalogDB) FetchTensorCandidates(ctx context.Context, hashPIL, hashCV2 string) ([]database.ImageTensor, error) {
	args := m.Called(ctx, hashPIL, hashCV2)
	if err := args.Error(1); err != nil {
		return nil, fmt.Errorf("mock FetchTensorCandidates failed: %w", err)
	}
	tensors, _ := args.Get(0).([]database.ImageTensor)
	return tensors, nil
}

func (m *MockCatalogDB) InsertMovieHash(ctx context.Context, row database.MovieHash, mediaObjectID int64) (int64, error) {
	args := m.Called(ctx, row, mediaObjectID)
	if err := args.Error(1); err != nil {
		return 0, fmt.Errorf("mock InsertMovieHash failed: %w", err)
	}
	return args.Get(0).(int64), nil //nolint:forcetypeassert // Test mock panics loudly on bad setup
}

func (m *MockCatalogDB) FetchMovieCandidates(ctx context.Context, mediaHash string) ([]database.MovieHash, error) {
	args := m.Called(ctx, mediaHash)
	if err := args.Error(1); err != nil {
		return nil, fmt.Errorf("mock FetchMovieCandidates failed: %w", err)
	}
	hashes, _ := args.Get(0).([]database.MovieHash)
	return hashes, nil
}

func (m *MockCatalogDB) LoadKnownFaces(ctx context.Context) ([]database.KnownFace, error) {
	args := m.Called(ctx)
	if err := args.Error(1); err != nil {
		return nil, fmt.Errorf("mock LoadKnownFaces failed: %w", err)
	}
	faces, _ := args.Get(0).([]database.KnownFace)
	return faces, nil
}

func (m *MockCatalogDB) AddKnownFaces(ctx context.Context, faces []database.KnownFace) error {
	args := m.Called(ctx, faces)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock AddKnownFaces failed: %w", err)
	}
	return nil
}

func (m *MockCatalogDB) RewriteIdentifiedFaces(ctx context.Context, mediaObjectID int64, names []string, identity database.Identity) error {
	args := m.Called(ctx, mediaObjectID, names, identity)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock RewriteIdentifiedFaces failed: %w", err)
	}
	return nil
}

func (m *MockCatalogDB) IsInvalidFaceLocation(ctx context.Context, mediaObjectID int64, box database.FaceBox) (bool, error) {
	args := m.Called(ctx, mediaObjectID, box)
	if err := args.Error(1); err != nil {
		return false, fmt.Errorf("mock IsInvalidFaceLocation failed: %w", err)
	}
	return args.Bool(0), nil
}
