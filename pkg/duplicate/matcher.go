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

// Package duplicate decides whether an incoming file repeats catalog
// content. Images go through a two-stage check: a cheap hash prefilter
// against either fingerprint channel, then a rotation-aware MSE
// confirmation of each candidate. Movies are settled by hash equality
// alone.
package duplicate

import (
	"context"
	"fmt"

	"github.com/ShoeboxProject/shoebox/pkg/database"
	"github.com/ShoeboxProject/shoebox/pkg/fingerprint"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultCompareWorkers bounds concurrent tensor comparisons when no
// explicit worker count is configured.
const DefaultCompareWorkers = 10

// Match is one confirmed duplicate: the stored filename it collides
// with and the confirming MSE. MSE is zero for movie matches, which are
// exact by construction.
type Match struct {
	Filename string
	MSE      float64
}

// Matcher runs duplicate detection against the catalog.
type Matcher struct {
	db        database.CatalogDBI
	threshold float64
	workers   int
}

// NewMatcher creates a Matcher. A candidate is a duplicate when its
// minimum rotated MSE is at or below threshold. workers bounds the
// comparison fan-out; zero or negative selects DefaultCompareWorkers.
func NewMatcher(db database.CatalogDBI, threshold float64, workers int) *Matcher {
	if workers <= 0 {
		workers = DefaultCompareWorkers
	}
	return &Matcher{
		db:        db,
		threshold: threshold,
		workers:   workers,
	}
}

// FindImageDuplicates returns every stored image confirmed as a
// duplicate of pair, in catalog order. An empty result means the image
// is new.
func (m *Matcher) FindImageDuplicates(ctx context.Context, pair *fingerprint.ImagePair) ([]Match, error) {
	candidates, err := m.db.FetchTensorCandidates(ctx, pair.PIL.Hash, pair.CV2.Hash)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tensor candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	log.Debug().
		Int("candidates", len(candidates)).
		Msg("hash prefilter hit, confirming with rotated MSE")

	// Results keep candidate order so the winning duplicate is stable
	// regardless of goroutine scheduling.
	results := make([]*Match, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, candidate := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("candidate comparison canceled: %w", err)
			}
			results[i] = m.confirm(pair, &candidate)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(candidates))
	for _, r := range results {
		if r != nil {
			matches = append(matches, *r)
		}
	}
	return matches, nil
}

// confirm compares one candidate against both fingerprint channels,
// pil first. A single channel at or below the threshold confirms the
// duplicate.
func (m *Matcher) confirm(pair *fingerprint.ImagePair, candidate *database.ImageTensor) *Match {
	if mse, ok := m.channelMSE(pair.PIL.Bytes, candidate.TensorPIL, candidate.Filename, "pil"); ok {
		return &Match{Filename: candidate.Filename, MSE: mse}
	}
	if mse, ok := m.channelMSE(pair.CV2.Bytes, candidate.TensorCV2, candidate.Filename, "cv2"); ok {
		return &Match{Filename: candidate.Filename, MSE: mse}
	}
	return nil
}

// channelMSE scores one channel. A stored blob of the wrong length is
// logged and treated as a non-match rather than failing the file.
func (m *Matcher) channelMSE(ref, stored []byte, filename, channel string) (float64, bool) {
	mse, err := fingerprint.MinRotatedMSE(ref, stored)
	if err != nil {
		log.Error().
			Err(err).
			Str("filename", filename).
			Str("channel", channel).
			Msg("skipping candidate channel with unusable tensor blob")
		return 0, false
	}
	if mse <= m.threshold {
		log.Info().
			Str("filename", filename).
			Str("channel", channel).
			Float64("mse", mse).
			Msg("confirmed duplicate")
		return mse, true
	}
	return 0, false
}

// FindMovieDuplicates returns every stored movie with the same content
// hash, in catalog order.
func (m *Matcher) FindMovieDuplicates(ctx context.Context, mediaHash string) ([]Match, error) {
	candidates, err := m.db.FetchMovieCandidates(ctx, mediaHash)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch movie candidates: %w", err)
	}

	matches := make([]Match, 0, len(candidates))
	for _, candidate := range candidates {
		log.Info().
			Str("filename", candidate.Filename).
			Str("hash", mediaHash).
			Msg("confirmed movie duplicate")
		matches = append(matches, Match{Filename: candidate.Filename})
	}
	return matches, nil
}
