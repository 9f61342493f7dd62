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

// The shoebox command is the intake supervisor. It prepares the
// working directories and the catalog schema, then watches the intake
// directory and dispatches one shoebox-worker process per file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ShoeboxProject/shoebox/internal/telemetry"
	"github.com/ShoeboxProject/shoebox/pkg/config"
	"github.com/ShoeboxProject/shoebox/pkg/database/catalogdb"
	"github.com/ShoeboxProject/shoebox/pkg/helpers"
	"github.com/ShoeboxProject/shoebox/pkg/service"
	"github.com/jonboulle/clockwork"
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
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		_, _ = fmt.Println(config.AppName + " v" + config.AppVersion)
		return nil
	}

	cfg, err := config.NewConfig(config.DefaultConfigDir(), config.BaseDefaults)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logCfg := cfg.LoggingConfig()
	err = helpers.InitLogging(helpers.LogOptions{
		Dir:          cfg.LogDir(),
		FileLevel:    logCfg.FileLevel,
		ConsoleLevel: logCfg.ConsoleLevel,
		Colors:       logCfg.Colors,
		Console:      true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", r)
			log.Fatal().Msgf("panic: %v", r)
		}
	}()

	if err := telemetry.Init(cfg.TelemetryConfig(), "supervisor"); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}
	defer telemetry.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, dir := range []string{
		cfg.IntakeDir(),
		cfg.ImagesDir(),
		cfg.MoviesDir(),
		cfg.DuplicatesDir(),
		cfg.ErrorsDir(),
	} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := migrateCatalog(ctx, cfg); err != nil {
		return err
	}

	launcher, err := service.NewExecLauncher(cfg.WorkerCPUQuota(), cfg.WorkerMemoryLimitMB())
	if err != nil {
		return err
	}

	sup := service.NewSupervisor(afero.NewOsFs(), clockwork.NewRealClock(), launcher, service.Options{
		IntakeDir:       cfg.IntakeDir(),
		ErrorsDir:       cfg.ErrorsDir(),
		ImageExtensions: cfg.ImageExtensions(),
		MovieExtensions: cfg.MovieExtensions(),
		MaxWorkers:      cfg.MaxWorkers(),
	})

	log.Info().
		Str("version", config.AppVersion).
		Str("intake", cfg.IntakeDir()).
		Int("maxWorkers", cfg.MaxWorkers()).
		Msg("supervisor starting")
	if err := sup.Run(ctx); err != nil {
		return fmt.Errorf("supervisor stopped with error: %w", err)
	}
	return nil
}

// migrateCatalog brings the catalog schema up to date before any worker
// connects. Workers never migrate, so schema changes are applied exactly
// once per deployment.
func migrateCatalog(ctx context.Context, cfg *config.Instance) error {
	db, err := catalogdb.OpenCatalogDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close catalog after migration")
		}
	}()

	if err := db.MigrateUp(); err != nil {
		return fmt.Errorf("failed to migrate catalog: %w", err)
	}
	return nil
}
