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
	"testing"
	"time"

	"github.com/ShoeboxProject/shoebox/pkg/testing/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func probeWithOutput(t *testing.T, output string) (*MovieMetadata, error) {
	t.Helper()
	executor := &mocks.MockCommandExecutor{}
	executor.On("Output", mock.Anything, "ffprobe",
		[]string{"-v", "error", "-print_format", "json", "-show_format", "-show_streams", "/intake/clip.mov"}).
		Return([]byte(output), nil)

	extractor := NewMovieExtractor(executor, "ffprobe")
	return extractor.Probe(context.Background(), "/intake/clip.mov")
}

func TestMovieProbe(t *testing.T) {
	t.Parallel()

	meta, err := probeWithOutput(t, `{
		"streams": [
			{"codec_name": "h264", "tags": {"location": "+46.3287+011.8606/"}},
			{"codec_name": "aac", "tags": {}}
		],
		"format": {
			"duration": "5.291000",
			"tags": {"creation_time": "2021-07-04T16:20:11.000000Z"}
		}
	}`)
	require.NoError(t, err)

	date := meta.CreateDate()
	require.NotNil(t, date)
	assert.Equal(t, time.Date(2021, 7, 4, 16, 20, 11, 0, time.UTC), *date)

	lat, long, ok := meta.Location()
	require.True(t, ok)
	assert.InDelta(t, 46.3287, lat, 1e-9)
	assert.InDelta(t, 11.8606, long, 1e-9)

	rows, err := meta.Rows()
	require.NoError(t, err)
	assert.Contains(t, rows[0].Tag, "streams_0_codec_name")
	assert.Equal(t, "h264", rows[0].Value)
}

func TestMovieCreateDateFormats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want  *time.Time
		name  string
		value string
	}{
		{
			name:  "rfc3339 with zulu and fraction",
			value: "2021-07-04T16:20:11.000000Z",
			want:  timePtr(time.Date(2021, 7, 4, 16, 20, 11, 0, time.UTC)),
		},
		{
			name:  "rfc3339 with offset",
			value: "2021-07-04T16:20:11+02:00",
			want:  timePtr(time.Date(2021, 7, 4, 16, 20, 11, 0, time.FixedZone("", 2*3600))),
		},
		{
			name:  "naive timestamp",
			value: "2021-07-04T16:20:11",
			want:  timePtr(time.Date(2021, 7, 4, 16, 20, 11, 0, time.UTC)),
		},
		{name: "garbage", value: "last tuesday", want: nil},
		{name: "empty", value: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			meta, err := probeWithOutput(t,
				`{"format": {"tags": {"creation_time": "`+tt.value+`"}}}`)
			require.NoError(t, err)

			got := meta.CreateDate()
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "expected %v, got %v", tt.want, got)
		})
	}
}

func TestMovieLocationFirstParseableStreamWins(t *testing.T) {
	t.Parallel()

	meta, err := probeWithOutput(t, `{
		"streams": [
			{"tags": {"location": "garbage"}},
			{"tags": {"location": "-33.8688+151.2093/"}},
			{"tags": {"location": "+1.0+2.0/"}}
		]
	}`)
	require.NoError(t, err)

	lat, long, ok := meta.Location()
	require.True(t, ok)
	assert.InDelta(t, -33.8688, lat, 1e-9)
	assert.InDelta(t, 151.2093, long, 1e-9)
}

func TestMovieLocationAbsent(t *testing.T) {
	t.Parallel()

	meta, err := probeWithOutput(t, `{"streams": [{"tags": {}}, {}]}`)
	require.NoError(t, err)
	_, _, ok := meta.Location()
	assert.False(t, ok)
}

func TestParseISO6709(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    string
		wantLat  float64
		wantLong float64
		wantOK   bool
	}{
		{
			name:  "west longitude",
			value: "+37.3861-122.0839/", wantLat: 37.3861, wantLong: -122.0839, wantOK: true,
		},
		{
			name:  "east longitude",
			value: "+46.3287+011.8606/", wantLat: 46.3287, wantLong: 11.8606, wantOK: true,
		},
		{
			name:  "south latitude",
			value: "-33.8688+151.2093/", wantLat: -33.8688, wantLong: 151.2093, wantOK: true,
		},
		{
			name:  "no trailing slash",
			value: "+10.5-20.25", wantLat: 10.5, wantLong: -20.25, wantOK: true,
		},
		{
			name:  "crs suffix",
			value: "+1.5-2.5/crs=wgs84", wantLat: 1.5, wantLong: -2.5, wantOK: true,
		},
		{
			name:  "integer coordinates",
			value: "+47-122/", wantLat: 47, wantLong: -122, wantOK: true,
		},
		{
			name:  "zero coordinates parse",
			value: "+0.0+0.0/", wantLat: 0, wantLong: 0, wantOK: true,
		},
		{name: "altitude group rejected", value: "+27.5916+086.5640+8850/", wantOK: false},
		{name: "unsigned latitude rejected", value: "37.3861-122.0839/", wantOK: false},
		{name: "single coordinate rejected", value: "+37.3861/", wantOK: false},
		{name: "junk rejected", value: "somewhere nice", wantOK: false},
		{name: "empty rejected", value: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			lat, long, ok := ParseISO6709(tt.value)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.wantLat, lat, 1e-9)
				assert.InDelta(t, tt.wantLong, long, 1e-9)
			}
		})
	}
}

func TestMovieProbeToolFailure(t *testing.T) {
	t.Parallel()

	executor := &mocks.MockCommandExecutor{}
	executor.On("Output", mock.Anything, "ffprobe", mock.Anything).
		Return(nil, assert.AnError)

	extractor := NewMovieExtractor(executor, "ffprobe")
	_, err := extractor.Probe(context.Background(), "/intake/clip.mov")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to run ffprobe")
}

func TestMovieProbeBadOutput(t *testing.T) {
	t.Parallel()

	_, err := probeWithOutput(t, `]broken[`)
	require.Error(t, err)
}

func TestEmptyMovieMetadata(t *testing.T) {
	t.Parallel()

	meta := EmptyMovieMetadata()
	assert.Nil(t, meta.CreateDate())
	_, _, ok := meta.Location()
	assert.False(t, ok)
	rows, err := meta.Rows()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
