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
	"fmt"

	"github.com/stretchr/testify/mock"

	"github.com/ShoeboxProject/shoebox/pkg/faces"
)

// MockFaceEngine is a mock implementation of faces.Engine.
type MockFaceEngine struct {
	mock.Mock
}

// NewMockFaceEngine creates a new MockFaceEngine instance.
func NewMockFaceEngine() *MockFaceEngine {
	return &MockFaceEngine{}
}

// DetectFaces is a mock implementation of Engine.DetectFaces.
func (m *MockFaceEngine) DetectFaces(ctx context.Context, path string) ([]faces.Detection, error) {
	args := m.Called(ctx, path)
	var detections []faces.Detection
	if args.Get(0) != nil {
		detections = args.Get(0).([]faces.Detection) //nolint:forcetypeassert // test mock
	}
	if err := args.Error(1); err != nil {
		return detections, fmt.Errorf("mock DetectFaces failed: %w", err)
	}
	return detections, nil
}
