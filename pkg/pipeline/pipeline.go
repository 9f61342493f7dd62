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

// Package pipeline runs the per-file ingestion sequence inside a
// worker. One Processor handles exactly one file and the process exits
// afterwards; nothing here is reused across files.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/ShoeboxProject/shoebox/pkg/database"
	"github.com/ShoeboxProject/shoebox/pkg/duplicate"
	"github.com/ShoeboxProject/shoebox/pkg/faces"
	"github.com/ShoeboxProject/shoebox/pkg/fingerprint"
	"github.com/ShoeboxProject/shoebox/pkg/geocode"
	"github.com/ShoeboxProject/shoebox/pkg/helpers"
	"github.com/ShoeboxProject/shoebox/pkg/media"
	"github.com/ShoeboxProject/shoebox/pkg/metadata"
)

// Geocoder resolves coordinates to an address. *geocode.Client
// satisfies it. A nil Geocoder stores coordinates without an address.
type Geocoder interface {
	Reverse(ctx context.Context, lat, long float64) (*geocode.Location, error)
}

// FaceLabeler persists face identifications for a stored image.
// *faces.Labeler satisfies it. A nil FaceLabeler disables labeling.
type FaceLabeler interface {
	LabelImage(ctx context.Context, path string, mediaObjectID int64) ([]faces.Identified, error)
}

// Dirs lists the destination directories a processed file can end up
// in. All paths are absolute.
type Dirs struct {
	Images     string
	Movies     string
	Duplicates string
	Errors     string
}

// Deps bundles the collaborators a Processor needs. FS, DB, Normalizer,
// Matcher and the two extractors are required; geocoders and the
// labeler are optional.
type Deps struct {
	FS         afero.Fs
	DB         database.CatalogDBI
	Normalizer *media.Normalizer
	Matcher    *duplicate.Matcher
	Images     *metadata.ImageExtractor
	Movies     *metadata.MovieExtractor
	ImageGeo   Geocoder
	MovieGeo   Geocoder
	Labeler    FaceLabeler
	Dirs       Dirs
	Identity   database.Identity
}

// Processor moves one intake file through normalization, duplicate
// detection, metadata extraction, naming and storage.
type Processor struct {
	fsys       afero.Fs
	db         database.CatalogDBI
	normalizer *media.Normalizer
	matcher    *duplicate.Matcher
	images     *metadata.ImageExtractor
	movies     *metadata.MovieExtractor
	imageGeo   Geocoder
	movieGeo   Geocoder
	labeler    FaceLabeler
	dirs       Dirs
	identity   database.Identity
}

// NewProcessor creates a Processor from its collaborators.
func NewProcessor(deps Deps) *Processor {
	return &Processor{
		fsys:       deps.FS,
		db:         deps.DB,
		normalizer: deps.Normalizer,
		matcher:    deps.Matcher,
		images:     deps.Images,
		movies:     deps.Movies,
		imageGeo:   deps.ImageGeo,
		movieGeo:   deps.MovieGeo,
		labeler:    deps.Labeler,
		dirs:       deps.Dirs,
		identity:   deps.Identity,
	}
}

// Process runs the pipeline for one file. On failure the file is moved
// to the errors directory when possible and the error is returned for
// the worker to exit non-zero. A confirmed duplicate is not a failure.
func (p *Processor) Process(ctx context.Context, path string, mediaType media.Type) error {
	log.Info().
		Str("path", path).
		Str("mediaType", string(mediaType)).
		Msg("processing intake file")
	start := time.Now()

	var currentPath string
	var err error
	switch mediaType {
	case media.TypeImage:
		currentPath, err = p.processImage(ctx, path)
	case media.TypeMovie:
		currentPath, err = p.processMovie(ctx, path)
	default:
		currentPath = path
		err = newError(KindFormat, "dispatch", fmt.Errorf("unknown media type %q", mediaType))
	}

	if err != nil {
		log.Error().
			Err(err).
			Str("path", currentPath).
			Msg("processing failed")
		p.moveToErrors(currentPath)
		return err
	}

	log.Info().
		Str("path", currentPath).
		Dur("took", time.Since(start)).
		Msg("processing finished")
	return nil
}

// processImage returns the path the file ended up at, so the caller can
// relocate it if a later stage fails.
func (p *Processor) processImage(ctx context.Context, path string) (string, error) {
	origName := filepath.Base(path)

	done := stageTimer("normalize")
	normalized, err := p.normalizer.Normalize(ctx, path)
	done()
	if err != nil {
		return normalized, newError(KindFormat, "normalize", err)
	}

	done = stageTimer("fingerprint")
	pair, err := fingerprint.ImageTensors(p.fsys, normalized)
	done()
	if err != nil {
		return normalized, newError(KindFingerprint, "fingerprint", err)
	}

	done = stageTimer("duplicate check")
	matches, err := p.matcher.FindImageDuplicates(ctx, pair)
	done()
	if err != nil {
		return normalized, newError(KindCatalog, "duplicate check", err)
	}
	if len(matches) > 0 {
		return p.storeDuplicate(normalized, DuplicateImageName(normalized, &matches[0]))
	}

	meta, err := p.images.Extract(ctx, normalized)
	if err != nil {
		log.Warn().
			Err(err).
			Str("path", normalized).
			Msg("metadata extraction failed, continuing without metadata")
		meta = metadata.EmptyImageMetadata()
	}

	id, err := p.insertMediaObject(ctx, origName, media.TypeImage)
	if err != nil {
		return normalized, err
	}

	newName := NewMediaName(id, meta.CreateDate(), filepath.Ext(normalized))
	upd := database.MediaObjectUpdate{
		ID:              id,
		NewName:         newName,
		NewPath:         p.dirs.Images,
		MediaCreateDate: meta.CreateDate(),
		Width:           &pair.Width,
		Height:          &pair.Height,
	}
	if lat, long, ok := meta.GPS(); ok {
		upd.Latitude = &lat
		upd.Longitude = &long
		p.applyLocation(ctx, p.imageGeo, &upd, lat, long)
	}
	if err := p.db.UpdateMediaObjectLocation(ctx, upd); err != nil {
		return normalized, newError(KindCatalog, "catalog update", err)
	}

	if err := p.insertMetadataRows(ctx, id, meta.Rows); err != nil {
		return normalized, err
	}

	finalPath, err := helpers.MoveFile(p.fsys, normalized, p.dirs.Images, newName)
	if err != nil {
		return normalized, newError(KindIO, "move", err)
	}

	if p.labeler != nil {
		done = stageTimer("face labeling")
		_, err := p.labeler.LabelImage(ctx, finalPath, id)
		done()
		if err != nil {
			return finalPath, newError(KindCatalog, "face labeling", err)
		}
	}

	row := database.ImageTensor{
		Filename:    finalPath,
		HashPIL:     pair.PIL.Hash,
		HashCV2:     pair.CV2.Hash,
		TensorShape: database.TensorShape,
		TensorPIL:   pair.PIL.Bytes,
		TensorCV2:   pair.CV2.Bytes,
	}
	if _, err := p.db.InsertImageTensor(ctx, row, id); err != nil {
		return finalPath, newError(KindCatalog, "tensor insert", err)
	}

	log.Info().
		Str("origName", origName).
		Str("path", finalPath).
		Int64("mediaObject", id).
		Msg("image stored")
	return finalPath, nil
}

func (p *Processor) processMovie(ctx context.Context, path string) (string, error) {
	origName := filepath.Base(path)

	done := stageTimer("hash")
	mediaHash, err := fingerprint.HashMovie(p.fsys, path)
	done()
	if err != nil {
		return path, newError(KindFingerprint, "hash", err)
	}

	matches, err := p.matcher.FindMovieDuplicates(ctx, mediaHash)
	if err != nil {
		return path, newError(KindCatalog, "duplicate check", err)
	}
	if len(matches) > 0 {
		return p.storeDuplicate(path, DuplicateMovieName(path, matches[0].Filename))
	}

	meta, err := p.movies.Probe(ctx, path)
	if err != nil {
		log.Warn().
			Err(err).
			Str("path", path).
			Msg("probe failed, continuing without metadata")
		meta = metadata.EmptyMovieMetadata()
	}

	id, err := p.insertMediaObject(ctx, origName, media.TypeMovie)
	if err != nil {
		return path, err
	}

	newName := NewMediaName(id, meta.CreateDate(), filepath.Ext(path))
	upd := database.MediaObjectUpdate{
		ID:              id,
		NewName:         newName,
		NewPath:         p.dirs.Movies,
		MediaCreateDate: meta.CreateDate(),
	}
	if lat, long, ok := meta.Location(); ok {
		upd.Latitude = &lat
		upd.Longitude = &long
		// A zero coordinate is stored but never geocoded; it is how
		// broken recorders encode an absent fix.
		if lat != 0 && long != 0 {
			p.applyLocation(ctx, p.movieGeo, &upd, lat, long)
		}
	}
	if err := p.db.UpdateMediaObjectLocation(ctx, upd); err != nil {
		return path, newError(KindCatalog, "catalog update", err)
	}

	if err := p.insertMetadataRows(ctx, id, meta.Rows); err != nil {
		return path, err
	}

	finalPath, err := helpers.MoveFile(p.fsys, path, p.dirs.Movies, newName)
	if err != nil {
		return path, newError(KindIO, "move", err)
	}

	row := database.MovieHash{Filename: finalPath, MediaHash: mediaHash}
	if _, err := p.db.InsertMovieHash(ctx, row, id); err != nil {
		return finalPath, newError(KindCatalog, "hash insert", err)
	}

	log.Info().
		Str("origName", origName).
		Str("path", finalPath).
		Int64("mediaObject", id).
		Msg("movie stored")
	return finalPath, nil
}

func (p *Processor) insertMediaObject(ctx context.Context, origName string, mediaType media.Type) (int64, error) {
	id, err := p.db.InsertMediaObject(ctx, database.MediaObject{
		OrigName:  origName,
		MediaType: string(mediaType),
		CreatedBy: p.identity.User,
		CreatedIP: p.identity.IP,
	})
	if err != nil {
		return 0, newError(KindCatalog, "catalog insert", err)
	}
	return id, nil
}

// insertMetadataRows flattens and stores the metadata rows. A document
// that cannot be flattened is logged and dropped; the media object
// already exists and keeps its typed columns.
func (p *Processor) insertMetadataRows(ctx context.Context, id int64, rows func() ([]database.MetadataRow, error)) error {
	mdRows, err := rows()
	if err != nil {
		log.Warn().
			Err(err).
			Int64("mediaObject", id).
			Msg("failed to flatten metadata, storing no rows")
		return nil
	}
	if len(mdRows) == 0 {
		return nil
	}
	if err := p.db.InsertMetadata(ctx, id, mdRows); err != nil {
		return newError(KindCatalog, "metadata insert", err)
	}
	return nil
}

// storeDuplicate moves a confirmed duplicate into the duplicates
// directory under its collision-encoding name. No catalog record is
// written; the filename carries the provenance.
func (p *Processor) storeDuplicate(currentPath, name string) (string, error) {
	dest, err := helpers.MoveFile(p.fsys, currentPath, p.dirs.Duplicates, name)
	if err != nil {
		return currentPath, newError(KindIO, "duplicate move", err)
	}
	log.Info().
		Str("from", currentPath).
		Str("to", dest).
		Msg("filed duplicate")
	return dest, nil
}

// applyLocation reverse geocodes and copies the address onto the
// update. Geocoding failures only cost the address fields.
func (p *Processor) applyLocation(ctx context.Context, geo Geocoder, upd *database.MediaObjectUpdate, lat, long float64) {
	if geo == nil {
		return
	}
	loc, err := geo.Reverse(ctx, lat, long)
	if err != nil {
		log.Warn().
			Err(newError(KindGeocode, "geocode", err)).
			Float64("lat", lat).
			Float64("long", long).
			Msg("reverse geocoding failed, storing coordinates only")
		return
	}
	upd.LocationClass = loc.Class
	upd.LocationType = loc.Type
	upd.LocationName = loc.Name
	upd.LocationDisplayName = loc.DisplayName
	upd.LocationCity = loc.City
	upd.LocationProvince = loc.Province
	upd.LocationCountry = loc.Country
}

func (p *Processor) moveToErrors(path string) {
	dest, err := helpers.MoveFile(p.fsys, path, p.dirs.Errors, filepath.Base(path))
	if err != nil {
		log.Error().
			Err(err).
			Str("path", path).
			Msg("failed to move file to errors directory")
		return
	}
	log.Info().Str("path", dest).Msg("moved failed file to errors directory")
}

func stageTimer(stage string) func() {
	start := time.Now()
	return func() {
		log.Debug().
			Str("stage", stage).
			Dur("took", time.Since(start)).
			Msg("stage finished")
	}
}
