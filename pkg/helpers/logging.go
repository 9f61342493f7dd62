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

package helpers

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const LogFile = "core.log"

// LogOptions selects per-sink levels and console colors. The file and
// console sinks filter independently so a quiet console can coexist with a
// debug-level file log. FileName overrides the default log file name;
// worker processes log to their own file to keep rotation single-writer.
type LogOptions struct {
	Dir          string
	FileName     string
	FileLevel    string
	ConsoleLevel string
	Colors       map[string]string
	Console      bool
}

var logWriter io.Writer

// LogWriter returns the writer the global logger was initialized with.
func LogWriter() io.Writer {
	return logWriter
}

// ParseLevel maps a config level name to a zerolog level. "detail", a level
// the historical deployment sat between debug and info, maps to trace.
func ParseLevel(name string) (zerolog.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "detail" {
		return zerolog.TraceLevel, nil
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("failed to parse log level %q: %w", name, err)
	}
	return level, nil
}

// levelWriter gates a writer behind a minimum level. MultiLevelWriter calls
// WriteLevel, so each sink filters independently of the global level.
type levelWriter struct {
	w   io.Writer
	min zerolog.Level
}

func (lw levelWriter) Write(p []byte) (int, error) {
	n, err := lw.w.Write(p)
	if err != nil {
		return n, fmt.Errorf("failed to write log entry: %w", err)
	}
	return n, nil
}

func (lw levelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < lw.min {
		return len(p), nil
	}
	return lw.Write(p)
}

// InitLogging configures the global logger with a rotating file sink and,
// optionally, a colored console sink. Extra writers receive every entry
// unfiltered.
func InitLogging(opts LogOptions, writers ...io.Writer) error {
	err := os.MkdirAll(opts.Dir, 0o750)
	if err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	fileLevel, err := ParseLevel(opts.FileLevel)
	if err != nil {
		return err
	}

	fileName := opts.FileName
	if fileName == "" {
		fileName = LogFile
	}

	logWriters := []io.Writer{levelWriter{
		w: &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, fileName),
			MaxSize:    1,
			MaxBackups: 2,
		},
		min: fileLevel,
	}}

	if opts.Console {
		consoleLevel, err := ParseLevel(opts.ConsoleLevel)
		if err != nil {
			return err
		}
		console := zerolog.ConsoleWriter{Out: os.Stderr}
		if len(opts.Colors) > 0 {
			console.FormatLevel = colorLevelFormatter(opts.Colors)
		}
		logWriters = append(logWriters, levelWriter{w: console, min: consoleLevel})
	}

	for _, w := range writers {
		logWriters = append(logWriters, w)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logWriter = zerolog.MultiLevelWriter(logWriters...)
	log.Logger = log.Output(logWriter).
		With().Timestamp().Caller().Logger()

	return nil
}

// colorLevelFormatter renders the level field with the configured ANSI SGR
// code per severity, e.g. {"debug": "36", "error": "1;31"}.
func colorLevelFormatter(colors map[string]string) zerolog.Formatter {
	return func(i any) string {
		level, ok := i.(string)
		if !ok {
			return "???"
		}
		code, ok := colors[strings.ToLower(level)]
		if !ok || code == "" {
			return strings.ToUpper(level)
		}
		return "\x1b[" + code + "m" + strings.ToUpper(level) + "\x1b[0m"
	}
}
