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

// Package faces labels people in stored images by comparing face
// embeddings against the catalog's known faces.
//
// Detection and embedding run in an external tool; this package only
// does the vector math and bookkeeping around it, so the heavyweight
// model dependency stays out of the worker binary.
package faces

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ShoeboxProject/shoebox/pkg/database"
	"github.com/ShoeboxProject/shoebox/pkg/helpers/command"
)

// EncodingDim is the dimensionality of a face embedding vector.
const EncodingDim = 128

// Detection is one face found in an image: where it sits and its
// embedding.
type Detection struct {
	Encoding []float64
	Box      database.FaceBox
}

// Engine detects faces in an image file and returns their embeddings.
type Engine interface {
	DetectFaces(ctx context.Context, path string) ([]Detection, error)
}

// ExecEngine runs an external face engine that receives an image path
// and prints a JSON array of detections on stdout.
type ExecEngine struct {
	executor command.Executor
	tool     string
}

// NewExecEngine returns an Engine shelling out to the given tool.
func NewExecEngine(executor command.Executor, tool string) *ExecEngine {
	return &ExecEngine{executor: executor, tool: tool}
}

type detectionJSON struct {
	Box struct {
		Top    int `json:"top"`
		Right  int `json:"right"`
		Bottom int `json:"bottom"`
		Left   int `json:"left"`
	} `json:"box"`
	Encoding []float64 `json:"encoding"`
}

// DetectFaces invokes the engine on path and decodes its output. A
// detection with a malformed embedding fails the whole call; partial
// output means the tool itself is broken.
func (e *ExecEngine) DetectFaces(ctx context.Context, path string) ([]Detection, error) {
	out, err := e.executor.Output(ctx, e.tool, path)
	if err != nil {
		return nil, fmt.Errorf("failed to run face engine on %s: %w", path, err)
	}

	var raw []detectionJSON
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse face engine output for %s: %w", path, err)
	}

	detections := make([]Detection, 0, len(raw))
	for i, d := range raw {
		if len(d.Encoding) != EncodingDim {
			return nil, fmt.Errorf("face engine detection %d has %d-dimensional encoding, expected %d",
				i, len(d.Encoding), EncodingDim)
		}
		detections = append(detections, Detection{
			Encoding: d.Encoding,
			Box: database.FaceBox{
				Top:    d.Box.Top,
				Right:  d.Box.Right,
				Bottom: d.Box.Bottom,
				Left:   d.Box.Left,
			},
		})
	}
	return detections, nil
}
