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

package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Environment keys recognized at load time. These are the deployment-facing
// names; each one overrides its config file counterpart when set.
const (
	EnvIntakeDir     = "FILES_TO_PROCESS_DIRECTORY"
	EnvImagesDir     = "IMAGE_DIRECTORY"
	EnvMoviesDir     = "MOVIES_DIRECTORY"
	EnvDuplicatesDir = "DUPLICATE_DIRECTORY"
	EnvErrorsDir     = "ERROR_DIRECTORY"
	EnvLogDir        = "LOG_DIRECTORY"

	EnvImageExtensions = "IMAGE_EXTENSIONS"
	EnvMovieExtensions = "MOVIE_EXTENSIONS"
	EnvMSEThreshold    = "MSE_THRESHOLD"

	EnvMaxWorkers     = "MAX_CONTAINERS"
	EnvWorkerCPUs     = "WORKER_CPUS"
	EnvWorkerMemoryMB = "WORKER_MEMORY_MB"

	EnvDBName     = "DB_NAME"
	EnvDBUsername = "DB_USERNAME"
	EnvDBPassword = "DB_PASSWORD"
	EnvDBServer   = "DB_SERVER"
	EnvDBPort     = "DB_PORT"

	EnvFileDebugLevel    = "FILE_DEBUG_LEVEL"
	EnvConsoleDebugLevel = "CONSOLE_DEBUG_LEVEL"
)

func applyEnvOverrides(vals *Values) {
	setString(EnvIntakeDir, &vals.Directories.Intake)
	setString(EnvImagesDir, &vals.Directories.Images)
	setString(EnvMoviesDir, &vals.Directories.Movies)
	setString(EnvDuplicatesDir, &vals.Directories.Duplicates)
	setString(EnvErrorsDir, &vals.Directories.Errors)
	setString(EnvLogDir, &vals.Directories.Logs)

	setCSV(EnvImageExtensions, &vals.Media.ImageExtensions)
	setCSV(EnvMovieExtensions, &vals.Media.MovieExtensions)
	setFloat(EnvMSEThreshold, &vals.Media.MSEThreshold)

	setInt(EnvMaxWorkers, &vals.Workers.MaxWorkers)
	setInt(EnvWorkerCPUs, &vals.Workers.CPUQuota)
	setInt(EnvWorkerMemoryMB, &vals.Workers.MemoryLimitMB)

	setString(EnvDBName, &vals.Database.Name)
	setString(EnvDBUsername, &vals.Database.User)
	setString(EnvDBPassword, &vals.Database.Password)
	setString(EnvDBServer, &vals.Database.Host)
	setInt(EnvDBPort, &vals.Database.Port)

	setString(EnvFileDebugLevel, &vals.Logging.FileLevel)
	setString(EnvConsoleDebugLevel, &vals.Logging.ConsoleLevel)
}

func setString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setCSV(key string, dst *[]string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}

func setInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			log.Warn().Msgf("ignoring invalid integer in %s: %s", key, v)
			return
		}
		*dst = n
	}
}

func setFloat(key string, dst *float64) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			log.Warn().Msgf("ignoring invalid number in %s: %s", key, v)
			return
		}
		*dst = f
	}
}
