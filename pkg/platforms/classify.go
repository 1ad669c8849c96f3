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

package platforms

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// deniedExtensions are file types that commonly carry an exec bit inside
// game archives but are never the game itself.
var deniedExtensions = map[string]struct{}{
	".sh": {}, ".bash": {}, ".py": {}, ".pl": {}, ".rb": {}, ".lua": {},
	".txt": {}, ".md": {}, ".nfo": {}, ".log": {}, ".cfg": {}, ".ini": {},
	".json": {}, ".xml": {}, ".yml": {}, ".yaml": {}, ".html": {}, ".htm": {},
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".ico": {},
	".svg": {}, ".icns": {}, ".so": {}, ".dylib": {}, ".a": {}, ".dll": {},
	".pak": {}, ".dat": {}, ".pck": {}, ".desktop": {}, ".pdf": {},
	".ogg": {}, ".wav": {}, ".mp3": {}, ".ttf": {}, ".otf": {},
}

// alwaysNativeExtensions are accepted without an exec bit since some
// stores ship them with permissions stripped.
var alwaysNativeExtensions = map[string]struct{}{
	".x86_64":   {},
	".x86":      {},
	".appimage": {},
}

// DeniedExtension reports whether a file with this name is never a game
// executable regardless of its mode.
func DeniedExtension(name string) bool {
	_, ok := deniedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// AlwaysNative reports whether the name has an extension that is a native
// Linux game binary even without an exec bit.
func AlwaysNative(name string) bool {
	_, ok := alwaysNativeExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// IsWindowsExe reports whether the name has a .exe extension.
func IsWindowsExe(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".exe")
}

// IsExecutable reports whether a regular file has any exec bit set.
func IsExecutable(info fs.FileInfo) bool {
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}

// SafeFileName strips characters that are invalid in file names on any
// supported OS.
func SafeFileName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			b.WriteRune('_')
		default:
			if r >= 0x20 {
				b.WriteRune(r)
			}
		}
	}
	out := strings.Trim(b.String(), ". ")
	if out == "" {
		return "game"
	}
	return out
}
