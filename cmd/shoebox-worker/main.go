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

// The shoebox-worker command processes exactly one intake file and
// exits. The supervisor passes the assignment through the NEW_FILE
// environment variable; the exit status is the only result channel.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ShoeboxProject/shoebox/internal/telemetry"
	"github.com/ShoeboxProject/shoebox/pkg/config"
	"github.com/ShoeboxProject/shoebox/pkg/database"
	"github.com/ShoeboxProject/shoebox/pkg/database/catalogdb"
	"github.com/ShoeboxProject/shoebox/pkg/duplicate"
	"github.com/ShoeboxProject/shoebox/pkg/faces"
	"github.com/ShoeboxProject/shoebox/pkg/geocode"
	"github.com/ShoeboxProject/shoebox/pkg/helpers"
	"github.com/ShoeboxProject/shoebox/pkg/helpers/command"
	"github.com/ShoeboxProject/shoebox/pkg/media"
	"github.com/ShoeboxProject/shoebox/pkg/metadata"
	"github.com/ShoeboxProject/shoebox/pkg/pipeline"
	"github.com/ShoeboxProject/shoebox/pkg/service"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	jobValue := os.Getenv(service.JobEnv)
	if jobValue == "" {
		return fmt.Errorf("%s is not set; workers are started by the supervisor", service.JobEnv)
	}
	job, err := service.ParseJobEnv(jobValue)
	if err != nil {
		return err
	}

	cfg, err := config.NewConfig(config.DefaultConfigDir(), config.BaseDefaults)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Each worker logs to its own file, named after the file it was
	// assigned, so concurrent workers never share a log writer.
	err = helpers.InitLogging(helpers.LogOptions{
		Dir:       cfg.LogDir(),
		FileName:  filepath.Base(job.Path) + ".log",
		FileLevel: cfg.LoggingConfig().FileLevel,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if jobID := os.Getenv(service.JobIDEnv); jobID != "" {
		log.Logger = log.Logger.With().Str("job", jobID).Logger()
	}

	if err := telemetry.Init(cfg.TelemetryConfig(), "worker"); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}
	defer telemetry.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := catalogdb.OpenCatalogDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close catalog")
		}
	}()

	fsys := afero.NewOsFs()
	executor := &command.RealExecutor{}
	tools := cfg.ToolsConfig()
	geoCfg := cfg.GeocodeConfig()
	identity := database.Identity{User: helpers.LoggedInUser(), IP: helpers.HostIP()}

	deps := pipeline.Deps{
		FS:         fsys,
		DB:         db,
		Normalizer: media.NewNormalizer(fsys, executor, tools.HeicConverter),
		Matcher:    duplicate.NewMatcher(db, cfg.MSEThreshold(), cfg.CompareWorkers()),
		Images:     metadata.NewImageExtractor(executor, tools.Exiftool),
		Movies:     metadata.NewMovieExtractor(executor, tools.Ffprobe),
		ImageGeo:   geocode.NewClient(geoCfg, geoCfg.ImageUserAgent),
		MovieGeo:   geocode.NewClient(geoCfg, geoCfg.MovieUserAgent),
		Dirs: pipeline.Dirs{
			Images:     cfg.ImagesDir(),
			Movies:     cfg.MoviesDir(),
			Duplicates: cfg.DuplicatesDir(),
			Errors:     cfg.ErrorsDir(),
		},
		Identity: identity,
	}

	if tools.FaceEngine != "" {
		labeler, err := faces.NewLabeler(ctx, faces.NewExecEngine(executor, tools.FaceEngine), db, identity)
		if err != nil {
			return fmt.Errorf("failed to load known faces: %w", err)
		}
		deps.Labeler = labeler
	}

	//nolint:wrapcheck // pipeline errors carry their stage and kind
	return pipeline.NewProcessor(deps).Process(ctx, job.Path, job.Type)
}
