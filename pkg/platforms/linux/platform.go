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

// Package linux implements the launch and discovery strategy for desktop
// Linux. Windows games run through Wine or a user supplied command such as
// a Bottles runner.
package linux

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ZaparooProject/zaparoo-library/pkg/config"
	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/adrg/xdg"
)

const DefaultCompatCommand = "bottles-cli run -b Default -e %EXE%"

type Platform struct{}

func (*Platform) ID() string {
	return platforms.PlatformIDLinux
}

func (*Platform) Settings() platforms.Settings {
	return platforms.Settings{
		DataDir:   filepath.Join(xdg.DataHome, config.AppName),
		ConfigDir: filepath.Join(xdg.ConfigHome, config.AppName),
		TempDir:   filepath.Join(os.TempDir(), config.AppName),
	}
}

func (*Platform) ClassifyExecutable(path string, info fs.FileInfo) (platforms.Kind, bool) {
	if !info.Mode().IsRegular() {
		return "", false
	}
	switch {
	case platforms.IsWindowsExe(path):
		return platforms.KindWindowsExe, true
	case platforms.AlwaysNative(path):
		return platforms.KindNativeBinary, true
	case platforms.DeniedExtension(path):
		return "", false
	case platforms.IsExecutable(info):
		return platforms.KindNativeBinary, true
	default:
		return "", false
	}
}

func (*Platform) ClassifyDirectory(string) (platforms.Kind, bool) {
	return "", false
}

func (*Platform) BuildLaunchCommand(req platforms.LaunchRequest) (platforms.Command, error) {
	if req.Executable == "" {
		return platforms.Command{}, platforms.ErrMissingLaunchExecutable
	}
	if req.UseCompat {
		return platforms.CompatCommand(req, DefaultCompatCommand)
	}
	return platforms.NativeCommand(req), nil
}

func (*Platform) ShortcutPath(name string) string {
	return filepath.Join(xdg.UserDirs.Desktop, platforms.SafeFileName(name)+".desktop")
}

func (*Platform) PreferredKinds() []platforms.Kind {
	return []platforms.Kind{platforms.KindNativeBinary, platforms.KindWindowsExe}
}

func (*Platform) DefaultCompatCommand() string {
	return DefaultCompatCommand
}

// PrepareExecutable restores the exec bit on native game binaries that were
// shipped without one. Missing files are left for the spawn to report.
func (*Platform) PrepareExecutable(path string) error {
	if !platforms.AlwaysNative(path) {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil //nolint:nilerr // spawn reports the real error
	}
	mode := info.Mode().Perm()
	if mode&0o100 != 0 {
		return nil
	}
	// mirror read bits as exec bits, always including the owner
	newMode := mode | 0o100 | (mode&0o044)>>2
	if err := os.Chmod(path, newMode); err != nil {
		return fmt.Errorf("failed to mark %s executable: %w", path, err)
	}
	return nil
}
