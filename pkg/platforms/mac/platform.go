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

// Package mac implements the launch and discovery strategy for macOS.
// Application bundles are launched through open(1); Windows games go
// through Wine or a CrossOver style command.
package mac

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZaparooProject/zaparoo-library/pkg/config"
	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/adrg/xdg"
)

const DefaultCompatCommand = "open -a CrossOver %EXE%"

type Platform struct{}

func (*Platform) ID() string {
	return platforms.PlatformIDMac
}

func (*Platform) Settings() platforms.Settings {
	return platforms.Settings{
		DataDir:   filepath.Join(xdg.DataHome, config.AppName),
		ConfigDir: filepath.Join(xdg.ConfigHome, config.AppName),
		TempDir:   filepath.Join(os.TempDir(), config.AppName),
	}
}

func isAppBundle(path string) bool {
	return strings.EqualFold(filepath.Ext(strings.TrimRight(path, "/")), ".app")
}

func (*Platform) ClassifyExecutable(path string, info fs.FileInfo) (platforms.Kind, bool) {
	if !info.Mode().IsRegular() {
		return "", false
	}
	switch {
	case platforms.IsWindowsExe(path):
		return platforms.KindWindowsExe, true
	case platforms.DeniedExtension(path):
		return "", false
	case platforms.IsExecutable(info):
		return platforms.KindMacBinary, true
	default:
		return "", false
	}
}

func (*Platform) ClassifyDirectory(path string) (platforms.Kind, bool) {
	if isAppBundle(path) {
		return platforms.KindMacApp, true
	}
	return "", false
}

func (*Platform) BuildLaunchCommand(req platforms.LaunchRequest) (platforms.Command, error) {
	if req.Executable == "" {
		return platforms.Command{}, platforms.ErrMissingLaunchExecutable
	}
	if req.UseCompat {
		return platforms.CompatCommand(req, DefaultCompatCommand)
	}
	if isAppBundle(req.Executable) {
		args := []string{"-a", req.Executable}
		if len(req.Args) > 0 {
			args = append(args, "--args")
			args = append(args, req.Args...)
		}
		// open returns as soon as LaunchServices has the bundle, so it
		// stays attached
		return platforms.Command{
			Name: "open",
			Args: args,
			Dir:  filepath.Dir(req.Executable),
			Env:  platforms.LaunchEnv(req.BaseEnv, req.Locale),
		}, nil
	}
	return platforms.NativeCommand(req), nil
}

func (*Platform) ShortcutPath(name string) string {
	return filepath.Join(xdg.UserDirs.Desktop, platforms.SafeFileName(name)+".command")
}

func (*Platform) PreferredKinds() []platforms.Kind {
	return []platforms.Kind{
		platforms.KindMacApp,
		platforms.KindMacBinary,
		platforms.KindWindowsExe,
	}
}

func (*Platform) DefaultCompatCommand() string {
	return DefaultCompatCommand
}
