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

package linux

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"gopkg.in/ini.v1"
)

// CreateShortcut writes a freedesktop .desktop launcher for the game to the
// user's desktop directory.
func (p *Platform) CreateShortcut(name string, req platforms.LaunchRequest) (string, error) {
	cmd, err := p.BuildLaunchCommand(req)
	if err != nil {
		return "", err
	}
	path := p.ShortcutPath(name)
	if err := writeDesktopEntry(path, name, req.Locale, cmd); err != nil {
		return "", err
	}
	return path, nil
}

func writeDesktopEntry(path, name, locale string, cmd platforms.Command) error {
	argv := make([]string, 0, len(cmd.Args)+3)
	if locale != "" {
		argv = append(argv, "env", "LANG="+locale, "LC_ALL="+locale)
	}
	argv = append(argv, cmd.Name)
	argv = append(argv, cmd.Args...)

	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = desktopExecQuote(a)
	}

	f := ini.Empty(ini.LoadOptions{IgnoreInlineComment: true})
	sec, err := f.NewSection("Desktop Entry")
	if err != nil {
		return fmt.Errorf("failed to create desktop entry section: %w", err)
	}
	entries := []struct{ key, value string }{
		{"Type", "Application"},
		{"Version", "1.0"},
		{"Name", name},
		{"Exec", strings.Join(quoted, " ")},
		{"Path", cmd.Dir},
		{"Terminal", "false"},
		{"Categories", "Game;"},
	}
	for _, e := range entries {
		if _, err := sec.NewKey(e.key, e.value); err != nil {
			return fmt.Errorf("failed to set desktop entry key %s: %w", e.key, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create shortcut directory: %w", err)
	}
	if err := f.SaveTo(path); err != nil {
		return fmt.Errorf("failed to write desktop entry: %w", err)
	}
	// most file managers refuse to run untrusted launchers without it
	//nolint:gosec // launcher must be executable
	if err := os.Chmod(path, 0o755); err != nil {
		return fmt.Errorf("failed to mark desktop entry executable: %w", err)
	}
	return nil
}

// desktopExecQuote quotes one Exec argument following the freedesktop Desktop Entry quoting rules.
func desktopExecQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n\"'\\><~|&;$*?#()`%") {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '`', '$', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '%':
			b.WriteString("%%")
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
