// Zaparoo Library
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Library.
//
// Zaparoo Library is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Library.  If not, see <http://www.gnu.org/licenses/>.

// Package command abstracts running short-lived helper tools (such as the
// 7-Zip CLI) so callers can be tested without executing real binaries.
package command

import (
	"context"
	"os/exec"
)

// Executor runs helper commands to completion.
type Executor interface {
	// Run executes a command and waits for it to exit. A non-zero exit
	// status is returned as an error.
	Run(ctx context.Context, name string, args ...string) error

	// Output executes a command and returns its standard output. When the
	// command exits non-zero the returned error is an *exec.ExitError with
	// Stderr populated.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)

	// LookPath resolves a command name to an executable path.
	LookPath(name string) (string, error)
}

// RealExecutor runs commands on the host.
type RealExecutor struct{}

// Run executes a command on the host.
//
//nolint:wrapcheck // exec errors already carry the command name
func (*RealExecutor) Run(ctx context.Context, name string, args ...string) error {
	return newCmd(ctx, name, args...).Run()
}

// Output executes a command on the host and returns its stdout.
//
//nolint:wrapcheck // exec errors already carry the command name
func (*RealExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return newCmd(ctx, name, args...).Output()
}

//nolint:wrapcheck // exec errors already carry the command name
func (*RealExecutor) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
