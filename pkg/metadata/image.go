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
	"strconv"
	"time"

	"github.com/ShoeboxProject/shoebox/pkg/database"
	"github.com/ShoeboxProject/shoebox/pkg/helpers/command"
	"github.com/rs/zerolog/log"
)

// exifDateLayout is the colon-separated timestamp format EXIF uses.
const exifDateLayout = "2006:01:02 15:04:05"

// EXIF tag names consulted for typed lookups. Group prefixes come from
// exiftool's -G flag.
const (
	tagDateTimeOriginal = "EXIF:DateTimeOriginal"
	tagGPSLatitude      = "EXIF:GPSLatitude"
	tagGPSLatitudeRef   = "EXIF:GPSLatitudeRef"
	tagGPSLongitude     = "EXIF:GPSLongitude"
	tagGPSLongitudeRef  = "EXIF:GPSLongitudeRef"
)

// ImageExtractor reads image metadata by shelling out to exiftool.
type ImageExtractor struct {
	executor command.Executor
	tool     string
}

// NewImageExtractor returns an extractor running the given exiftool
// binary.
func NewImageExtractor(executor command.Executor, tool string) *ImageExtractor {
	return &ImageExtractor{executor: executor, tool: tool}
}

// ImageMetadata is the exiftool output for one file: the raw JSON
// object for row flattening plus a decoded view for typed lookups.
type ImageMetadata struct {
	fields map[string]any
	raw    json.RawMessage
}

// EmptyImageMetadata is used when extraction fails; the file continues
// through the pipeline with no date, no GPS and no metadata rows.
func EmptyImageMetadata() *ImageMetadata {
	return &ImageMetadata{fields: map[string]any{}, raw: json.RawMessage("{}")}
}

// Extract runs exiftool on path. The -n flag keeps GPS coordinates
// numeric instead of degree/minute/second strings.
func (e *ImageExtractor) Extract(ctx context.Context, path string) (*ImageMetadata, error) {
	out, err := e.executor.Output(ctx, e.tool, "-j", "-G", "-n", path)
	if err != nil {
		return nil, fmt.Errorf("failed to run exiftool on %s: %w", path, err)
	}

	// exiftool -j always emits an array, one object per input file.
	var objects []json.RawMessage
	if err := json.Unmarshal(out, &objects); err != nil {
		return nil, fmt.Errorf("failed to parse exiftool output for %s: %w", path, err)
	}
	if len(objects) == 0 {
		return nil, fmt.Errorf("exiftool returned no metadata for %s", path)
	}

	var fields map[string]any
	if err := json.Unmarshal(objects[0], &fields); err != nil {
		return nil, fmt.Errorf("failed to decode exiftool object for %s: %w", path, err)
	}
	return &ImageMetadata{fields: fields, raw: objects[0]}, nil
}

// Rows flattens the full metadata object for persistence.
func (m *ImageMetadata) Rows() ([]database.MetadataRow, error) {
	return FlattenJSON(m.raw)
}

// CreateDate returns the EXIF original capture time, or nil when the
// tag is absent or unparseable. File modification time is never used
// as a fallback.
func (m *ImageMetadata) CreateDate() *time.Time {
	value, ok := m.fields[tagDateTimeOriginal].(string)
	if !ok {
		return nil
	}
	t, err := time.Parse(exifDateLayout, value)
	if err != nil {
		log.Debug().
			Str("value", value).
			Msg("unparseable EXIF capture date")
		return nil
	}
	return &t
}

// GPS returns the signed decimal coordinates. ok is false when either
// coordinate is missing or zero, which is how broken writers encode an
// absent fix.
func (m *ImageMetadata) GPS() (lat, long float64, ok bool) {
	lat, latOK := floatField(m.fields[tagGPSLatitude])
	long, longOK := floatField(m.fields[tagGPSLongitude])
	if !latOK || !longOK {
		return 0, 0, false
	}

	if ref, refOK := m.fields[tagGPSLatitudeRef].(string); refOK && ref == "S" {
		lat = -lat
	}
	if ref, refOK := m.fields[tagGPSLongitudeRef].(string); refOK && ref == "W" {
		long = -long
	}

	if lat == 0 || long == 0 {
		return 0, 0, false
	}
	return lat, long, true
}

// floatField coerces an exiftool JSON value to float64. Numeric tags
// normally decode as float64, but some writers emit them quoted.
func floatField(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case string:
		f, err := strconv.ParseFloat(value, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
