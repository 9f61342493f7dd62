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
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/ShoeboxProject/shoebox/pkg/database"
)

// DefaultTolerance is the largest embedding distance still treated as
// the same person.
const DefaultTolerance = 0.6

// UnknownName marks a detection that matched nobody. It is never
// written to the catalog.
const UnknownName = "Unknown"

// Identified pairs a detection box with the name it resolved to,
// possibly UnknownName.
type Identified struct {
	Name string
	Box  database.FaceBox
}

// Labeler matches detected faces against the known faces loaded from
// the catalog and rewrites each image's identified-face rows.
type Labeler struct {
	engine    Engine
	db        database.CatalogDBI
	identity  database.Identity
	tolerance float64
	names     []string
	encodings [][]float64
}

// NewLabeler loads the known faces once and returns a Labeler using
// them for every subsequent image. A known face whose stored encoding
// does not decode is logged and skipped rather than failing startup.
func NewLabeler(
	ctx context.Context,
	engine Engine,
	db database.CatalogDBI,
	identity database.Identity,
) (*Labeler, error) {
	known, err := db.LoadKnownFaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load known faces: %w", err)
	}

	l := &Labeler{
		engine:    engine,
		db:        db,
		identity:  identity,
		tolerance: DefaultTolerance,
		names:     make([]string, 0, len(known)),
		encodings: make([][]float64, 0, len(known)),
	}
	for _, face := range known {
		encoding, err := DecodeEncoding(face.Encoding)
		if err != nil {
			log.Error().
				Err(err).
				Str("name", face.Name).
				Msg("skipping known face with corrupt encoding")
			continue
		}
		l.names = append(l.names, face.Name)
		l.encodings = append(l.encodings, encoding)
	}

	log.Debug().Int("known", len(l.names)).Msg("loaded known faces")
	return l, nil
}

// LabelImage detects faces in the stored image, resolves each against
// the known faces and rewrites the catalog rows for mediaObjectID.
//
// Detection failure is not fatal: the image keeps whatever rows it
// already has and labeling is skipped. An empty detection result still
// rewrites, clearing rows left over from an earlier pass. Boxes marked
// invalid for this media object are ignored.
func (l *Labeler) LabelImage(ctx context.Context, path string, mediaObjectID int64) ([]Identified, error) {
	detections, err := l.engine.DetectFaces(ctx, path)
	if err != nil {
		log.Error().
			Err(err).
			Str("path", path).
			Msg("face detection failed, skipping labeling")
		return nil, nil
	}

	identified := make([]Identified, 0, len(detections))
	for _, det := range detections {
		invalid, err := l.db.IsInvalidFaceLocation(ctx, mediaObjectID, det.Box)
		if err != nil {
			return nil, fmt.Errorf("failed to check face blacklist: %w", err)
		}
		if invalid {
			log.Debug().
				Int64("mediaObject", mediaObjectID).
				Interface("box", det.Box).
				Msg("ignoring blacklisted face location")
			continue
		}
		identified = append(identified, Identified{
			Name: l.match(det.Encoding),
			Box:  det.Box,
		})
	}

	names := make([]string, 0, len(identified))
	for _, face := range identified {
		if face.Name != UnknownName {
			names = append(names, face.Name)
		}
	}
	if err := l.db.RewriteIdentifiedFaces(ctx, mediaObjectID, names, l.identity); err != nil {
		return nil, fmt.Errorf("failed to rewrite identified faces: %w", err)
	}

	log.Info().
		Str("path", path).
		Int("detected", len(identified)).
		Strs("named", names).
		Msg("labeled faces")
	return identified, nil
}

// match returns the name of the nearest known face within tolerance.
// Ties resolve to the face loaded first.
func (l *Labeler) match(encoding []float64) string {
	best := -1
	bestDist := math.MaxFloat64
	for i, known := range l.encodings {
		dist, err := EuclideanDistance(known, encoding)
		if err != nil {
			log.Error().Err(err).Str("name", l.names[i]).Msg("skipping known face comparison")
			continue
		}
		if dist < bestDist {
			bestDist = dist
			best = i
		}
	}
	if best >= 0 && bestDist <= l.tolerance {
		return l.names[best]
	}
	return UnknownName
}
