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

// Package windows implements the launch and discovery strategy for Windows.
// Games are always native here, so the compatibility flag is ignored.
package windows

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ZaparooProject/zaparoo-library/pkg/config"
	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/adrg/xdg"
)

type Platform struct{}

func (*Platform) ID() string {
	return platforms.PlatformIDWindows
}

func (*Platform) Settings() platforms.Settings {
	return platforms.Settings{
		DataDir:   filepath.Join(xdg.DataHome, config.AppName),
		ConfigDir: filepath.Join(xdg.ConfigHome, config.AppName),
		TempDir:   filepath.Join(os.TempDir(), config.AppName),
	}
}

func (*Platform) ClassifyExecutable(path string, info fs.FileInfo) (platforms.Kind, bool) {
	if info.Mode().IsRegular() && platforms.IsWindowsExe(path) {
		return platforms.KindWindowsExe, true
	}
	return "", false
}

func (*Platform) ClassifyDirectory(string) (platforms.Kind, bool) {
	return "", false
}

func (*Platform) BuildLaunchCommand(req platforms.LaunchRequest) (platforms.Command, error) {
	if req.Executable == "" {
		return platforms.Command{}, platforms.ErrMissingLaunchExecutable
	}
	return platforms.NativeCommand(req), nil
}

func (*Platform) ShortcutPath(name string) string {
	return filepath.Join(xdg.UserDirs.Desktop, platforms.SafeFileName(name)+".lnk")
}

func (*Platform) PreferredKinds() []platforms.Kind {
	return []platforms.Kind{platforms.KindWindowsExe}
}

func (*Platform) DefaultCompatCommand() string {
	return ""
}
