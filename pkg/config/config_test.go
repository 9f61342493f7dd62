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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(CfgEnv, "")

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, CfgFile))
	require.NoError(t, err, "default config should be written on first run")

	assert.Equal(t, filepath.Join(dir, CfgFile), cfg.Path())
	assert.Equal(t, 13, cfg.MaxWorkers())
	assert.InDelta(t, 100.0, cfg.MSEThreshold(), 0.001)
	assert.Equal(t, 10, cfg.CompareWorkers())
	assert.Equal(t, 20, cfg.DatabaseConfig().MaxConns)
	assert.Equal(t, 1, cfg.DatabaseConfig().MinConns)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
config_schema = 1

[directories]
intake = "/mnt/media/intake"
images = "/mnt/media/images"
movies = "/mnt/media/movies"
duplicates = "/mnt/media/duplicates"
errors = "/mnt/media/errors"

[media]
mse_threshold = 42.5
image_extensions = ["JPG", ".png"]

[workers]
max_workers = 4
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte(content), 0o600))
	t.Setenv(CfgEnv, "")

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	assert.Equal(t, "/mnt/media/intake", cfg.IntakeDir())
	assert.InDelta(t, 42.5, cfg.MSEThreshold(), 0.001)
	assert.Equal(t, 4, cfg.MaxWorkers())
	// extensions are normalized to lowercase dotless form
	assert.Equal(t, []string{"jpg", "png"}, cfg.ImageExtensions())
	// untouched fields keep their defaults
	assert.Equal(t, "exiftool", cfg.ToolsConfig().Exiftool)
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(CfgEnv, "")
	t.Setenv(EnvIntakeDir, "/srv/intake")
	t.Setenv(EnvMaxWorkers, "7")
	t.Setenv(EnvMSEThreshold, "250")
	t.Setenv(EnvImageExtensions, "jpg, heic")
	t.Setenv(EnvDBServer, "db.internal")
	t.Setenv(EnvDBPort, "6432")
	t.Setenv(EnvConsoleDebugLevel, "warn")

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	assert.Equal(t, "/srv/intake", cfg.IntakeDir())
	assert.Equal(t, 7, cfg.MaxWorkers())
	assert.InDelta(t, 250.0, cfg.MSEThreshold(), 0.001)
	assert.Equal(t, []string{"jpg", "heic"}, cfg.ImageExtensions())
	assert.Equal(t, "db.internal", cfg.DatabaseConfig().Host)
	assert.Equal(t, 6432, cfg.DatabaseConfig().Port)
	assert.Equal(t, "warn", cfg.LoggingConfig().ConsoleLevel)
}

func TestEnvOverrideInvalidNumberIgnored(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(CfgEnv, "")
	t.Setenv(EnvMaxWorkers, "not-a-number")

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)
	assert.Equal(t, 13, cfg.MaxWorkers())
}

func TestSchemaMismatchFails(t *testing.T) {
	dir := t.TempDir()
	content := "config_schema = 99\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte(content), 0o600))
	t.Setenv(CfgEnv, "")

	_, err := NewConfig(dir, BaseDefaults)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema version mismatch")
}

func TestValidateRequiresAbsoluteDirectories(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(CfgEnv, "")
	t.Setenv(EnvIntakeDir, "relative/intake")
	t.Setenv(EnvImagesDir, "/mnt/images")
	t.Setenv(EnvMoviesDir, "/mnt/movies")
	t.Setenv(EnvDuplicatesDir, "/mnt/duplicates")
	t.Setenv(EnvErrorsDir, "/mnt/errors")

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not absolute")
}

func TestValidateRequiresDirectories(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(CfgEnv, "")

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	// no directories configured at all
	require.Error(t, cfg.Validate())
}

func TestValidatePasses(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(CfgEnv, "")
	t.Setenv(EnvIntakeDir, "/mnt/intake")
	t.Setenv(EnvImagesDir, "/mnt/images")
	t.Setenv(EnvMoviesDir, "/mnt/movies")
	t.Setenv(EnvDuplicatesDir, "/mnt/duplicates")
	t.Setenv(EnvErrorsDir, "/mnt/errors")

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}
