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

package launch

import (
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/shirou/gopsutil/v4/process"
)

// Process is a spawned game.
type Process interface {
	Pid() int
	// Wait blocks until the process exits. A non-zero exit is reported via
	// the code, not as an error.
	Wait() (int, error)
}

// Spawner starts processes. Tests replace it to avoid running real games.
type Spawner interface {
	Spawn(cmd platforms.Command, stdout, stderr io.Writer) (Process, error)
}

// Killer stops process trees.
type Killer interface {
	Terminate(pid int) error
	Kill(pid int) error
}

type ExecSpawner struct{}

func (ExecSpawner) Spawn(c platforms.Command, stdout, stderr io.Writer) (Process, error) {
	//nolint:gosec // launching the user's chosen game is the point
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = sysProcAttr(c.Detach)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", c.Name, err)
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return -1, fmt.Errorf("failed waiting for process: %w", err)
	}
	if p.cmd.ProcessState == nil {
		return -1, nil
	}
	return p.cmd.ProcessState.ExitCode(), nil
}

// TreeKiller signals a process and all of its descendants, children first,
// so launcher scripts and compatibility wrappers do not leave the real game
// running.
type TreeKiller struct{}

func (TreeKiller) Terminate(pid int) error {
	return signalTree(pid, (*process.Process).Terminate)
}

func (TreeKiller) Kill(pid int) error {
	return signalTree(pid, (*process.Process).Kill)
}

func signalTree(pid int, signal func(*process.Process) error) error {
	p, err := process.NewProcess(int32(pid)) //nolint:gosec // pids fit in int32
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	return signalProcess(p, signal)
}

func signalProcess(p *process.Process, signal func(*process.Process) error) error {
	// no children is reported as an error by gopsutil
	children, _ := p.Children()
	for _, child := range children {
		_ = signalProcess(child, signal)
	}
	if err := signal(p); err != nil {
		return fmt.Errorf("failed to signal process %d: %w", p.Pid, err)
	}
	return nil
}
