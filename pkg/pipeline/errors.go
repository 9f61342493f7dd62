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

package pipeline

import "fmt"

// Kind classifies a pipeline failure by the subsystem that raised it.
type Kind int

const (
	KindFormat Kind = iota
	KindFingerprint
	KindCatalog
	KindGeocode
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindFingerprint:
		return "fingerprint"
	case KindCatalog:
		return "catalog"
	case KindGeocode:
		return "geocode"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error annotates a stage failure with where and in which subsystem it
// happened. Callers unwrap to reach the cause.
type Error struct {
	Err   error
	Stage string
	Kind  Kind
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}
