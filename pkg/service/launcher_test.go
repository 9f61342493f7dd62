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
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ShoeboxProject/shoebox/pkg/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExecLauncherResolvesWorkerBinary(t *testing.T) {
	t.Parallel()

	launcher, err := NewExecLauncher(2, 512)
	require.NoError(t, err)

	executable, err := os.Executable()
	require.NoError(t, err)

	wantName := workerBinaryName
	if runtime.GOOS == "windows" {
		wantName += ".exe"
	}
	assert.Equal(t, filepath.Join(filepath.Dir(executable), wantName), launcher.binary)
	assert.Equal(t, 2, launcher.cpuQuota)
	assert.Equal(t, 512, launcher.memoryLimitMB)
}

func TestExecLauncherLaunchMissingBinary(t *testing.T) {
	t.Parallel()

	launcher := &ExecLauncher{
		binary:        filepath.Join(t.TempDir(), "shoebox-worker"),
		cpuQuota:      1,
		memoryLimitMB: 256,
	}

	job := Job{Path: "/media/intake/pic.jpg", Type: media.TypeImage}
	handle, err := launcher.Launch(context.Background(), job, "j-1")
	require.Error(t, err)
	assert.Nil(t, handle)
	assert.Contains(t, err.Error(), "failed to start worker j-1")
}
