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

package faces

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ShoeboxProject/shoebox/pkg/database"
	"github.com/ShoeboxProject/shoebox/pkg/testing/mocks"
)

func engineOutput(t *testing.T, detections []detectionJSON) []byte {
	t.Helper()
	out, err := json.Marshal(detections)
	require.NoError(t, err)
	return out
}

func TestDetectFaces(t *testing.T) {
	t.Parallel()

	first := detectionJSON{Encoding: make([]float64, EncodingDim)}
	first.Box.Top, first.Box.Right, first.Box.Bottom, first.Box.Left = 10, 120, 90, 40
	first.Encoding[0] = 0.5

	second := detectionJSON{Encoding: make([]float64, EncodingDim)}
	second.Box.Top, second.Box.Right, second.Box.Bottom, second.Box.Left = 200, 300, 260, 250
	second.Encoding[127] = -1.25

	executor := mocks.NewMockCommandExecutor()
	executor.On("Output", mock.Anything, "face-engine", []string{"/media/images/a.jpg"}).
		Return(engineOutput(t, []detectionJSON{first, second}), nil)

	engine := NewExecEngine(executor, "face-engine")
	detections, err := engine.DetectFaces(context.Background(), "/media/images/a.jpg")
	require.NoError(t, err)
	require.Len(t, detections, 2)

	assert.Equal(t, database.FaceBox{Top: 10, Right: 120, Bottom: 90, Left: 40}, detections[0].Box)
	assert.InDelta(t, 0.5, detections[0].Encoding[0], 1e-12)
	assert.Equal(t, database.FaceBox{Top: 200, Right: 300, Bottom: 260, Left: 250}, detections[1].Box)
	assert.InDelta(t, -1.25, detections[1].Encoding[127], 1e-12)
	executor.AssertExpectations(t)
}

func TestDetectFacesNoFaces(t *testing.T) {
	t.Parallel()

	executor := mocks.NewMockCommandExecutor()
	executor.On("Output", mock.Anything, "face-engine", mock.Anything).
		Return([]byte("[]"), nil)

	engine := NewExecEngine(executor, "face-engine")
	detections, err := engine.DetectFaces(context.Background(), "/media/images/a.jpg")
	require.NoError(t, err)
	assert.Empty(t, detections)
}

func TestDetectFacesToolFailure(t *testing.T) {
	t.Parallel()

	executor := mocks.NewMockCommandExecutor()
	executor.On("Output", mock.Anything, "face-engine", mock.Anything).
		Return([]byte(nil), errors.New("exit status 1"))

	engine := NewExecEngine(executor, "face-engine")
	_, err := engine.DetectFaces(context.Background(), "/media/images/a.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to run face engine")
}

func TestDetectFacesBadOutput(t *testing.T) {
	t.Parallel()

	executor := mocks.NewMockCommandExecutor()
	executor.On("Output", mock.Anything, "face-engine", mock.Anything).
		Return([]byte("not json"), nil)

	engine := NewExecEngine(executor, "face-engine")
	_, err := engine.DetectFaces(context.Background(), "/media/images/a.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse face engine output")
}

func TestDetectFacesWrongEncodingDimension(t *testing.T) {
	t.Parallel()

	short := detectionJSON{Encoding: []float64{1, 2, 3}}

	executor := mocks.NewMockCommandExecutor()
	executor.On("Output", mock.Anything, "face-engine", mock.Anything).
		Return(engineOutput(t, []detectionJSON{short}), nil)

	engine := NewExecEngine(executor, "face-engine")
	_, err := engine.DetectFaces(context.Background(), "/media/images/a.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3-dimensional encoding")
}
