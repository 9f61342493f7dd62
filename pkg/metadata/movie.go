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

package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/ShoeboxProject/shoebox/pkg/database"
	"github.com/ShoeboxProject/shoebox/pkg/helpers/command"
	"github.com/rs/zerolog/log"
)

// iso6709Pattern matches the two-coordinate ISO 6709 form written by
// phones into the location tag: signed latitude, signed longitude, and
// an optional CRS suffix. Forms with altitude or other extra groups do
// not match and are treated as no location.
var iso6709Pattern = regexp.MustCompile(`^([+-]\d+(?:\.\d+)?)([+-]\d+(?:\.\d+)?)(?:/.*)?$`)

// MovieExtractor reads container metadata by shelling out to ffprobe.
type MovieExtractor struct {
	executor command.Executor
	tool     string
}

// NewMovieExtractor returns an extractor running the given ffprobe
// binary.
func NewMovieExtractor(executor command.Executor, tool string) *MovieExtractor {
	return &MovieExtractor{executor: executor, tool: tool}
}

// probeDocument is the typed slice of ffprobe output the pipeline
// consults directly. Everything else flows through row flattening.
type probeDocument struct {
	Format struct {
		Tags map[string]string `json:"tags"`
	} `json:"format"`
	Streams []struct {
		Tags map[string]string `json:"tags"`
	} `json:"streams"`
}

// MovieMetadata is the ffprobe output for one file.
type MovieMetadata struct {
	raw json.RawMessage
	doc probeDocument
}

// EmptyMovieMetadata is used when probing fails; the file continues
// through the pipeline with no date, no location and no metadata rows.
func EmptyMovieMetadata() *MovieMetadata {
	return &MovieMetadata{raw: json.RawMessage("{}")}
}

// Probe runs ffprobe on path with format and stream sections enabled.
func (e *MovieExtractor) Probe(ctx context.Context, path string) (*MovieMetadata, error) {
	out, err := e.executor.Output(ctx, e.tool,
		"-v", "error", "-print_format", "json", "-show_format", "-show_streams", path)
	if err != nil {
		return nil, fmt.Errorf("failed to run ffprobe on %s: %w", path, err)
	}

	var doc probeDocument
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output for %s: %w", path, err)
	}
	return &MovieMetadata{raw: out, doc: doc}, nil
}

// Rows flattens the full probe document for persistence.
func (m *MovieMetadata) Rows() ([]database.MetadataRow, error) {
	return FlattenJSON(m.raw)
}

// CreateDate returns the container creation time, or nil when absent or
// unparseable. A trailing Z and fractional seconds are both tolerated.
func (m *MovieMetadata) CreateDate() *time.Time {
	value, ok := m.doc.Format.Tags["creation_time"]
	if !ok || value == "" {
		return nil
	}

	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	log.Debug().
		Str("value", value).
		Msg("unparseable movie creation time")
	return nil
}

// Location returns the first stream location tag parsed as ISO 6709.
// ok is false when no stream carries a parseable tag.
func (m *MovieMetadata) Location() (lat, long float64, ok bool) {
	for _, stream := range m.doc.Streams {
		value, exists := stream.Tags["location"]
		if !exists || value == "" {
			continue
		}
		if lat, long, ok = ParseISO6709(value); ok {
			return lat, long, true
		}
		log.Debug().
			Str("value", value).
			Msg("unparseable stream location tag")
	}
	return 0, 0, false
}

// ParseISO6709 parses a two-coordinate ISO 6709 location string like
// "+37.3861-122.0839/".
func ParseISO6709(value string) (lat, long float64, ok bool) {
	groups := iso6709Pattern.FindStringSubmatch(value)
	if groups == nil {
		return 0, 0, false
	}

	lat, err := strconv.ParseFloat(groups[1], 64)
	if err != nil {
		return 0, 0, false
	}
	long, err = strconv.ParseFloat(groups[2], 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, long, true
}
