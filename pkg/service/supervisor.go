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

package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ShoeboxProject/shoebox/pkg/helpers"
	"github.com/ShoeboxProject/shoebox/pkg/media"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	dispatchInterval = time.Second
	rescanInterval   = 5 * time.Second
	statusTimeout    = 120 * time.Second
	statusAttempts   = 3
)

// Options configures a Supervisor.
type Options struct {
	IntakeDir       string
	ErrorsDir       string
	ImageExtensions []string
	MovieExtensions []string
	MaxWorkers      int
}

// Supervisor owns the intake queue and the set of live workers. All of
// its state is touched only from the Run goroutine.
type Supervisor struct {
	fsys     afero.Fs
	clock    clockwork.Clock
	launcher WorkerLauncher
	opts     Options

	queue    []Job
	queued   map[string]struct{}
	inflight map[string]*workerRef
	failed   map[string]struct{}
}

type workerRef struct {
	handle WorkerHandle
	job    Job
	jobID  string
	// statusTimeouts counts consecutive reap passes where every status
	// query timed out. It resets on the first successful query.
	statusTimeouts int
}

func NewSupervisor(
	fsys afero.Fs, clock clockwork.Clock, launcher WorkerLauncher, opts Options,
) *Supervisor {
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}
	return &Supervisor{
		fsys:     fsys,
		clock:    clock,
		launcher: launcher,
		opts:     opts,
		queued:   make(map[string]struct{}),
		inflight: make(map[string]*workerRef),
		failed:   make(map[string]struct{}),
	}
}

// Run drives the supervisor until ctx is canceled: reap and dispatch
// every second, rescan the intake directory every five seconds, and
// rescan immediately when the filesystem watcher reports new files. On
// cancellation it stops dispatching and waits for live workers.
func (s *Supervisor) Run(ctx context.Context) error {
	events, watchErrs, closeWatcher := s.watchIntake()
	defer closeWatcher()

	s.rescan()
	s.dispatch(ctx)

	dispatchTicker := s.clock.NewTicker(dispatchInterval)
	defer dispatchTicker.Stop()
	rescanTicker := s.clock.NewTicker(rescanInterval)
	defer rescanTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.drain()
		case event := <-events:
			if event.Op&(fsnotify.Create|fsnotify.Rename) != 0 {
				s.rescan()
			}
		case err := <-watchErrs:
			log.Warn().Err(err).Msg("intake watcher error")
		case <-rescanTicker.Chan():
			s.rescan()
		case <-dispatchTicker.Chan():
			s.reap(ctx, false)
			s.dispatch(ctx)
		}
	}
}

// watchIntake sets up a filesystem watcher on the intake directory so
// new files start processing without waiting for the next rescan tick.
// When the watcher cannot be set up the supervisor degrades to
// periodic rescans only, returning nil channels that never fire.
func (s *Supervisor) watchIntake() (<-chan fsnotify.Event, <-chan error, func()) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn().Err(err).Msg("intake watcher unavailable, relying on periodic rescans")
		return nil, nil, func() {}
	}

	closeWatcher := func() {
		if closeErr := watcher.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close intake watcher")
		}
	}

	if err := watcher.Add(s.opts.IntakeDir); err != nil {
		log.Warn().Err(err).Str("dir", s.opts.IntakeDir).
			Msg("failed to watch intake directory, relying on periodic rescans")
		closeWatcher()
		return nil, nil, func() {}
	}

	return watcher.Events, watcher.Errors, closeWatcher
}

// rescan queues intake files with a recognized extension. Files that
// are already queued, in flight, or tombstoned after a failure are
// skipped, so a failed file is never retried automatically.
func (s *Supervisor) rescan() {
	entries, err := afero.ReadDir(s.fsys, s.opts.IntakeDir)
	if err != nil {
		log.Error().Err(err).Str("dir", s.opts.IntakeDir).Msg("failed to scan intake directory")
		return
	}

	added := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(s.opts.IntakeDir, name)
		if _, ok := s.queued[path]; ok {
			continue
		}
		if _, ok := s.inflight[path]; ok {
			continue
		}
		if _, ok := s.failed[path]; ok {
			continue
		}

		mediaType, ok := media.ClassifyExtension(name, s.opts.ImageExtensions, s.opts.MovieExtensions)
		if !ok {
			log.Debug().Str("path", path).Msg("ignoring file with unrecognized extension")
			continue
		}

		s.queue = append(s.queue, Job{Path: path, Type: mediaType})
		s.queued[path] = struct{}{}
		added++
	}

	if added > 0 {
		log.Info().Int("added", added).Int("queued", len(s.queue)).Msg("queued new intake files")
	}
}

// dispatch starts workers for queued jobs while there is capacity.
func (s *Supervisor) dispatch(ctx context.Context) {
	for len(s.inflight) < s.opts.MaxWorkers && len(s.queue) > 0 {
		job := s.queue[0]
		s.queue = s.queue[1:]
		delete(s.queued, job.Path)

		jobID := uuid.NewString()
		handle, err := s.launcher.Launch(ctx, job, jobID)
		if err != nil {
			isoErr := &IsolationError{Err: err, Op: "start", JobID: jobID}
			log.Error().Err(isoErr).Str("path", job.Path).Msg("failed to start worker")
			s.fail(job)
			continue
		}

		s.inflight[job.Path] = &workerRef{handle: handle, job: job, jobID: jobID}
		log.Info().
			Str("job", jobID).
			Str("path", job.Path).
			Str("mediaType", string(job.Type)).
			Int("active", len(s.inflight)).
			Msg("started worker")
	}
}

// reap collects exited workers. Workers whose status cannot be queried
// are killed and their files quarantined; workers that merely time out
// are left for the next pass, except while draining, where a worker
// that timed out statusAttempts passes in a row is abandoned.
func (s *Supervisor) reap(ctx context.Context, draining bool) {
	for path, ref := range s.inflight {
		status, err := s.workerStatus(ctx, ref)
		if err != nil {
			isoErr := &IsolationError{Err: err, Op: "status", JobID: ref.jobID}
			log.Error().Err(isoErr).Str("path", path).Msg("worker is unobservable, removing it")
			if killErr := ref.handle.Kill(); killErr != nil {
				log.Warn().Err(killErr).Str("job", ref.jobID).Msg("failed to kill unobservable worker")
			}
			delete(s.inflight, path)
			s.fail(ref.job)
			continue
		}

		if status.Running {
			if draining && ref.statusTimeouts >= statusAttempts {
				log.Error().Str("job", ref.jobID).Str("path", path).
					Msg("giving up on unresponsive worker during shutdown")
				delete(s.inflight, path)
			}
			continue
		}

		delete(s.inflight, path)
		if status.ExitCode == 0 {
			log.Info().Str("job", ref.jobID).Str("path", path).Msg("worker finished")
			continue
		}

		log.Error().
			Int("exitCode", status.ExitCode).
			Str("job", ref.jobID).
			Str("path", path).
			Msg("worker failed")
		s.fail(ref.job)
	}
}

// workerStatus queries one worker, retrying failed queries up to
// statusAttempts times with statusTimeout each. A run of timeouts means
// the worker may still be alive, so it is reported as running rather
// than failed.
func (s *Supervisor) workerStatus(ctx context.Context, ref *workerRef) (WorkerStatus, error) {
	var lastErr error
	for attempt := 1; attempt <= statusAttempts; attempt++ {
		statusCtx, cancel := context.WithTimeout(ctx, statusTimeout)
		status, err := ref.handle.Status(statusCtx)
		cancel()
		if err == nil {
			ref.statusTimeouts = 0
			return status, nil
		}
		lastErr = err
		log.Warn().Err(err).
			Int("attempt", attempt).
			Str("job", ref.jobID).
			Msg("worker status query failed")
	}

	if errors.Is(lastErr, context.DeadlineExceeded) {
		ref.statusTimeouts++
		return WorkerStatus{Running: true}, nil
	}
	return WorkerStatus{}, fmt.Errorf("worker status unavailable after %d attempts: %w",
		statusAttempts, lastErr)
}

// fail tombstones a job and quarantines its file. When the file is
// already gone the worker relocated it before dying, so there is
// nothing left to move.
func (s *Supervisor) fail(job Job) {
	s.failed[job.Path] = struct{}{}

	exists, err := afero.Exists(s.fsys, job.Path)
	if err != nil {
		log.Warn().Err(err).Str("path", job.Path).Msg("failed to check failed file")
		return
	}
	if !exists {
		return
	}

	dest, err := helpers.MoveFile(s.fsys, job.Path, s.opts.ErrorsDir, filepath.Base(job.Path))
	if err != nil {
		log.Error().Err(err).Str("path", job.Path).
			Msg("failed to move failed file to the errors directory")
		return
	}
	log.Info().Str("path", dest).Msg("moved failed file to the errors directory")
}

// drain discards the queue and waits for live workers to exit. Queued
// files stay in the intake directory for the next run.
func (s *Supervisor) drain() error {
	log.Info().
		Int("active", len(s.inflight)).
		Int("queued", len(s.queue)).
		Msg("shutting down, waiting for active workers")
	s.queue = nil
	s.queued = make(map[string]struct{})

	for {
		// The run context is already canceled, so status queries get a
		// fresh context during shutdown.
		s.reap(context.Background(), true)
		if len(s.inflight) == 0 {
			log.Info().Msg("supervisor stopped")
			return nil
		}
		s.clock.Sleep(dispatchInterval)
	}
}
