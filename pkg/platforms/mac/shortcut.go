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

package mac

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
)

// CreateShortcut writes a double-clickable .command script to the user's
// desktop that launches the game the same way the library does.
func (p *Platform) CreateShortcut(name string, req platforms.LaunchRequest) (string, error) {
	cmd, err := p.BuildLaunchCommand(req)
	if err != nil {
		return "", err
	}
	path := p.ShortcutPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("failed to create shortcut directory: %w", err)
	}
	//nolint:gosec // script must be executable
	if err := os.WriteFile(path, []byte(commandScript(req.Locale, cmd)), 0o755); err != nil {
		return "", fmt.Errorf("failed to write shortcut: %w", err)
	}
	return path, nil
}

func commandScript(locale string, cmd platforms.Command) string {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	if locale != "" {
		b.WriteString("export LANG=" + shellQuote(locale) + " LC_ALL=" + shellQuote(locale) + "\n")
	}
	b.WriteString("cd " + shellQuote(cmd.Dir) + " || exit 1\n")
	b.WriteString("exec " + shellQuote(cmd.Name))
	for _, a := range cmd.Args {
		b.WriteString(" " + shellQuote(a))
	}
	b.WriteString("\n")
	return b.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
