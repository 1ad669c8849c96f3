//go:build windows

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

package windows

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// CreateShortcut writes a .lnk shell link to the user's desktop using the
// WScript.Shell COM object.
func (p *Platform) CreateShortcut(name string, req platforms.LaunchRequest) (string, error) {
	cmd, err := p.BuildLaunchCommand(req)
	if err != nil {
		return "", err
	}
	path := p.ShortcutPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("failed to create shortcut directory: %w", err)
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED|ole.COINIT_SPEED_OVER_MEMORY); err != nil {
		return "", fmt.Errorf("failed to initialize COM: %w", err)
	}
	defer ole.CoUninitialize()

	shell, err := oleutil.CreateObject("WScript.Shell")
	if err != nil {
		return "", fmt.Errorf("failed to create shell object: %w", err)
	}
	defer shell.Release()

	wshell, err := shell.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return "", fmt.Errorf("failed to query shell dispatch: %w", err)
	}
	defer wshell.Release()

	res, err := oleutil.CallMethod(wshell, "CreateShortcut", path)
	if err != nil {
		return "", fmt.Errorf("failed to create shortcut: %w", err)
	}
	link := res.ToIDispatch()
	defer link.Release()

	quoted := make([]string, len(cmd.Args))
	for i, a := range cmd.Args {
		quoted[i] = syscall.EscapeArg(a)
	}

	props := map[string]string{
		"TargetPath":       cmd.Name,
		"Arguments":        strings.Join(quoted, " "),
		"WorkingDirectory": cmd.Dir,
		"IconLocation":     cmd.Name + ",0",
	}
	for k, v := range props {
		if _, err := oleutil.PutProperty(link, k, v); err != nil {
			return "", fmt.Errorf("failed to set shortcut %s: %w", k, err)
		}
	}

	if _, err := oleutil.CallMethod(link, "Save"); err != nil {
		return "", fmt.Errorf("failed to save shortcut: %w", err)
	}
	return path, nil
}
