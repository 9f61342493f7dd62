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
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/ShoeboxProject/shoebox/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/process"
)

const workerBinaryName = "shoebox-worker"

// WorkerStatus is a point-in-time report on one worker. ExitCode is
// only meaningful once Running is false.
type WorkerStatus struct {
	Running  bool
	ExitCode int
}

// WorkerHandle tracks a single launched worker.
type WorkerHandle interface {
	// Status reports whether the worker is still running and, once it
	// has exited, its exit code. Implementations backed by an external
	// substrate honor ctx; a deadline hit surfaces as ctx's error.
	Status(ctx context.Context) (WorkerStatus, error)
	// Kill forcibly terminates the worker. Killing an already exited
	// worker is a no-op.
	Kill() error
}

// WorkerLauncher starts isolated workers, one per file.
type WorkerLauncher interface {
	Launch(ctx context.Context, job Job, jobID string) (WorkerHandle, error)
}

// ExecLauncher runs workers as child processes of the supervisor using
// the shoebox-worker binary installed alongside the supervisor binary.
// The CPU quota is applied through GOMAXPROCS and the memory cap
// through GOMEMLIMIT, backed by an RSS watchdog checked on every
// status poll.
type ExecLauncher struct {
	binary        string
	cpuQuota      int
	memoryLimitMB int
}

// NewExecLauncher resolves the worker binary next to the running
// executable and returns a launcher applying the given resource caps.
func NewExecLauncher(cpuQuota, memoryLimitMB int) (*ExecLauncher, error) {
	executable, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate supervisor executable: %w", err)
	}

	name := workerBinaryName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}

	return &ExecLauncher{
		binary:        filepath.Join(filepath.Dir(executable), name),
		cpuQuota:      cpuQuota,
		memoryLimitMB: memoryLimitMB,
	}, nil
}

// Launch starts one worker for job. The worker owns its own lifetime:
// it is not bound to ctx, so a supervisor shutdown does not tear down
// in-flight work.
func (l *ExecLauncher) Launch(_ context.Context, job Job, jobID string) (WorkerHandle, error) {
	env := append(os.Environ(),
		JobEnv+"="+FormatJobEnv(job),
		JobIDEnv+"="+jobID,
	)
	// A zero cap means uncapped, so the runtime knobs stay unset.
	if l.cpuQuota > 0 {
		env = append(env, fmt.Sprintf("GOMAXPROCS=%d", l.cpuQuota))
	}
	if l.memoryLimitMB > 0 {
		env = append(env, fmt.Sprintf("GOMEMLIMIT=%dMiB", l.memoryLimitMB))
	}

	cmd := exec.Command(l.binary)
	cmd.Env = env
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker %s: %w", jobID, err)
	}

	handle := &execHandle{
		cmd:           cmd,
		jobID:         jobID,
		memoryLimitMB: l.memoryLimitMB,
		done:          make(chan struct{}),
	}
	go func() {
		// Wait must run exactly once to reap the child and populate
		// ProcessState; the done channel publishes the result.
		_ = cmd.Wait()
		close(handle.done)
	}()

	log.Debug().
		Str("job", jobID).
		Str("path", job.Path).
		Int("pid", cmd.Process.Pid).
		Msg("started worker process")
	return handle, nil
}

type execHandle struct {
	cmd           *exec.Cmd
	done          chan struct{}
	jobID         string
	memoryLimitMB int

	mu     syncutil.Mutex
	killed bool
}

// Status never blocks. A live child is reported as running after the
// memory watchdog check; exit information is read once the wait
// goroutine has closed done.
func (h *execHandle) Status(_ context.Context) (WorkerStatus, error) {
	select {
	case <-h.done:
		return WorkerStatus{Running: false, ExitCode: h.cmd.ProcessState.ExitCode()}, nil
	default:
	}

	if err := h.enforceMemoryLimit(); err != nil {
		log.Warn().Err(err).Str("job", h.jobID).Msg("worker memory check failed")
	}
	return WorkerStatus{Running: true}, nil
}

func (h *execHandle) Kill() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.killed {
		return nil
	}

	select {
	case <-h.done:
		return nil
	default:
	}

	if err := h.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("failed to kill worker %s: %w", h.jobID, err)
	}
	h.killed = true
	return nil
}

// enforceMemoryLimit kills the worker when its resident set exceeds
// the configured cap. GOMEMLIMIT keeps a healthy worker under the cap;
// the watchdog catches runaway cgo or decoder allocations that the Go
// runtime cannot account for.
func (h *execHandle) enforceMemoryLimit() error {
	if h.memoryLimitMB <= 0 {
		return nil
	}

	proc, err := process.NewProcess(int32(h.cmd.Process.Pid)) //nolint:gosec // PID fits in int32
	if err != nil {
		return fmt.Errorf("failed to inspect worker process: %w", err)
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return fmt.Errorf("failed to read worker memory usage: %w", err)
	}

	limit := uint64(h.memoryLimitMB) * 1024 * 1024 //nolint:gosec // limit is validated non-negative
	if info.RSS <= limit {
		return nil
	}

	log.Error().
		Str("job", h.jobID).
		Uint64("rssBytes", info.RSS).
		Uint64("limitBytes", limit).
		Msg("worker exceeded its memory limit, killing it")
	return h.Kill()
}
