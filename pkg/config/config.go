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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ShoeboxProject/shoebox/pkg/helpers/syncutil"
	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	CfgEnv        = "SHOEBOX_CFG"
	CfgFile       = "config.toml"
	AppName       = "shoebox"
)

// AppVersion is stamped by the release build with -ldflags.
var AppVersion = "DEVELOPMENT"

// Values is the on-disk configuration shape. Environment overrides are
// applied on top of the file after every load.
type Values struct {
	Directories  Directories `toml:"directories"`
	Media        Media       `toml:"media,omitempty"`
	Workers      Workers     `toml:"workers,omitempty"`
	Database     Database    `toml:"database"`
	Geocode      Geocode     `toml:"geocode,omitempty"`
	Tools        Tools       `toml:"tools,omitempty"`
	Logging      Logging     `toml:"logging,omitempty"`
	Telemetry    Telemetry   `toml:"telemetry,omitempty"`
	ConfigSchema int         `toml:"config_schema"`
}

// Directories holds the five working directories plus the log directory.
// All paths are absolute once validated.
type Directories struct {
	Intake     string `toml:"intake" validate:"required"`
	Images     string `toml:"images" validate:"required"`
	Movies     string `toml:"movies" validate:"required"`
	Duplicates string `toml:"duplicates" validate:"required"`
	Errors     string `toml:"errors" validate:"required"`
	Logs       string `toml:"logs"`
}

type Media struct {
	ImageExtensions []string `toml:"image_extensions,omitempty"`
	MovieExtensions []string `toml:"movie_extensions,omitempty"`
	MSEThreshold    float64  `toml:"mse_threshold" validate:"gte=0"`
	CompareWorkers  int      `toml:"compare_workers" validate:"gte=1"`
}

type Workers struct {
	MaxWorkers    int `toml:"max_workers" validate:"gte=1"`
	CPUQuota      int `toml:"cpu_quota" validate:"gte=0"`
	MemoryLimitMB int `toml:"memory_limit_mb" validate:"gte=0"`
}

type Database struct {
	Name     string `toml:"name" validate:"required"`
	User     string `toml:"user" validate:"required"`
	Password string `toml:"password"`
	Host     string `toml:"host" validate:"required"`
	Port     int    `toml:"port" validate:"gte=1,lte=65535"`
	MinConns int    `toml:"min_conns" validate:"gte=0"`
	MaxConns int    `toml:"max_conns" validate:"gte=1"`
}

type Geocode struct {
	BaseURL        string `toml:"base_url"`
	ImageUserAgent string `toml:"image_user_agent"`
	MovieUserAgent string `toml:"movie_user_agent"`
}

// Tools names the external collaborator commands. An empty FaceEngine
// disables face labeling.
type Tools struct {
	Exiftool      string `toml:"exiftool"`
	Ffprobe       string `toml:"ffprobe"`
	HeicConverter string `toml:"heic_converter"`
	FaceEngine    string `toml:"face_engine,omitempty"`
}

type Logging struct {
	FileLevel    string            `toml:"file_level"`
	ConsoleLevel string            `toml:"console_level"`
	Colors       map[string]string `toml:"colors,omitempty"`
}

type Telemetry struct {
	Enabled bool   `toml:"enabled"`
	DSN     string `toml:"dsn,omitempty"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Media: Media{
		ImageExtensions: []string{"jpg", "jpeg", "png", "gif", "heic", "heif", "bmp", "tiff"},
		MovieExtensions: []string{"mp4", "mov", "avi", "mkv", "m4v", "mpg", "wmv", "3gp"},
		MSEThreshold:    100,
		CompareWorkers:  10,
	},
	Workers: Workers{
		MaxWorkers: 13,
	},
	Database: Database{
		Name:     "shoebox",
		User:     "shoebox",
		Host:     "localhost",
		Port:     5432,
		MinConns: 1,
		MaxConns: 20,
	},
	Geocode: Geocode{
		BaseURL:        "https://nominatim.openstreetmap.org",
		ImageUserAgent: "image_locator",
		MovieUserAgent: "movie_locator",
	},
	Tools: Tools{
		Exiftool:      "exiftool",
		Ffprobe:       "ffprobe",
		HeicConverter: "heif-convert",
	},
	Logging: Logging{
		FileLevel:    "debug",
		ConsoleLevel: "info",
	},
}

type Instance struct {
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

// DefaultConfigDir returns the directory the config file lives in when
// SHOEBOX_CFG is not set.
func DefaultConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultLogDir is used when the log directory is not configured.
func DefaultLogDir() string {
	return filepath.Join(xdg.StateHome, AppName, "logs")
}

//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		mu:       syncutil.RWMutex{},
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	if _, err := os.Stat(c.cfgPath); err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top.
	// Fields not present in the file retain their default values.
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	applyEnvOverrides(&newVals)
	normalizeExtensions(&newVals)

	c.vals = newVals

	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	// set current schema version
	c.vals.ConfigSchema = SchemaVersion

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = os.WriteFile(c.cfgPath, data, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the loaded values. Directory and database fields are
// required before the supervisor or a worker may start.
func (c *Instance) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&c.vals); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	for _, dir := range []string{
		c.vals.Directories.Intake,
		c.vals.Directories.Images,
		c.vals.Directories.Movies,
		c.vals.Directories.Duplicates,
		c.vals.Directories.Errors,
	} {
		if !filepath.IsAbs(dir) {
			return fmt.Errorf("directory path is not absolute: %s", dir)
		}
	}

	return nil
}

func (c *Instance) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfgPath
}

func (c *Instance) IntakeDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Directories.Intake
}

func (c *Instance) ImagesDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Directories.Images
}

func (c *Instance) MoviesDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Directories.Movies
}

func (c *Instance) DuplicatesDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Directories.Duplicates
}

func (c *Instance) ErrorsDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Directories.Errors
}

func (c *Instance) LogDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Directories.Logs == "" {
		return DefaultLogDir()
	}
	return c.vals.Directories.Logs
}

func (c *Instance) ImageExtensions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	exts := make([]string, len(c.vals.Media.ImageExtensions))
	copy(exts, c.vals.Media.ImageExtensions)
	return exts
}

func (c *Instance) MovieExtensions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	exts := make([]string, len(c.vals.Media.MovieExtensions))
	copy(exts, c.vals.Media.MovieExtensions)
	return exts
}

func (c *Instance) MSEThreshold() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Media.MSEThreshold
}

func (c *Instance) CompareWorkers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Media.CompareWorkers < 1 {
		return 1
	}
	return c.vals.Media.CompareWorkers
}

func (c *Instance) MaxWorkers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Workers.MaxWorkers < 1 {
		return 1
	}
	return c.vals.Workers.MaxWorkers
}

func (c *Instance) WorkerCPUQuota() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Workers.CPUQuota
}

func (c *Instance) WorkerMemoryLimitMB() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Workers.MemoryLimitMB
}

//nolint:gocritic // value copy keeps callers off the locked struct
func (c *Instance) DatabaseConfig() Database {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Database
}

//nolint:gocritic // value copy keeps callers off the locked struct
func (c *Instance) GeocodeConfig() Geocode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Geocode
}

//nolint:gocritic // value copy keeps callers off the locked struct
func (c *Instance) ToolsConfig() Tools {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Tools
}

//nolint:gocritic // value copy keeps callers off the locked struct
func (c *Instance) LoggingConfig() Logging {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Logging
}

//nolint:gocritic // value copy keeps callers off the locked struct
func (c *Instance) TelemetryConfig() Telemetry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Telemetry
}

func normalizeExtensions(vals *Values) {
	vals.Media.ImageExtensions = lowerDotless(vals.Media.ImageExtensions)
	vals.Media.MovieExtensions = lowerDotless(vals.Media.MovieExtensions)
}

func lowerDotless(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		ext = strings.TrimPrefix(ext, ".")
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}
