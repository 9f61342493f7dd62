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

// Package service runs the intake supervisor. It watches the intake
// directory, classifies new files by extension, and hands each file to
// an isolated worker process. One worker processes exactly one file and
// exits; its exit status is the only channel back to the supervisor.
package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ShoeboxProject/shoebox/pkg/media"
)

const (
	// JobEnv is the environment variable carrying a worker's file
	// assignment, formatted as "<path>,<media type>".
	JobEnv = "NEW_FILE"
	// JobIDEnv carries the supervisor-assigned job ID so worker log
	// lines can be correlated with supervisor log lines.
	JobIDEnv = "SHOEBOX_JOB"
)

// Job is one file assignment for a worker.
type Job struct {
	Path string
	Type media.Type
}

// FormatJobEnv renders a job in the form ParseJobEnv accepts.
func FormatJobEnv(job Job) string {
	return job.Path + "," + string(job.Type)
}

// ParseJobEnv parses a worker's file assignment from the JobEnv value.
func ParseJobEnv(value string) (Job, error) {
	pathPart, typePart, found := strings.Cut(value, ",")
	if !found {
		return Job{}, fmt.Errorf("job assignment %q is not in <path>,<type> form", value)
	}

	path := strings.TrimSpace(pathPart)
	if path == "" {
		return Job{}, errors.New("job assignment has an empty path")
	}

	mediaType := media.Type(strings.TrimSpace(typePart))
	switch mediaType {
	case media.TypeImage, media.TypeMovie:
		return Job{Path: path, Type: mediaType}, nil
	default:
		return Job{}, fmt.Errorf("job assignment has unknown media type %q", typePart)
	}
}

// IsolationError reports a failure of the worker isolation machinery
// itself, as opposed to a failure inside a worker's pipeline. Op is the
// machinery step that failed: start, status, or kill.
type IsolationError struct {
	Err   error
	Op    string
	JobID string
}

func (e *IsolationError) Error() string {
	return fmt.Sprintf("worker %s %s: %v", e.JobID, e.Op, e.Err)
}

func (e *IsolationError) Unwrap() error {
	return e.Err
}
