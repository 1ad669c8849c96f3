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

package extract

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ZaparooProject/zaparoo-library/pkg/helpers/command"
)

// SevenZipEngine shells out to the 7-Zip CLI for formats with no native
// decoder.
type SevenZipEngine struct {
	Exec   command.Executor
	Binary string
}

func (e SevenZipEngine) Extract(ctx context.Context, _ Format, archive, dest string) error {
	bin := e.Binary
	if bin == "" {
		bin = "7z"
	}

	// x keeps paths, -y answers every prompt, -aoa overwrites all
	_, err := e.Exec.Output(ctx, bin, "x", "-y", "-aoa", "-o"+dest, archive)
	if err == nil {
		return nil
	}

	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrSevenZipUnavailable, bin)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if msg := strings.TrimSpace(string(exitErr.Stderr)); msg != "" {
			return fmt.Errorf("7z exited with code %d: %s", exitErr.ExitCode(), msg)
		}
		return fmt.Errorf("7z exited with code %d", exitErr.ExitCode())
	}
	return fmt.Errorf("failed to run 7z: %w", err)
}
