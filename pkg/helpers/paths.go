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

package helpers

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/ZaparooProject/zaparoo-library/pkg/config"
	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
)

var (
	userDirCache  string
	userDirExists bool
	userDirOnce   sync.Once
)

// HasUserDir checks for a "user" directory next to the binary. When present
// it replaces every platform directory, for a portable install.
func HasUserDir() (string, bool) {
	userDirOnce.Do(func() {
		exe, err := os.Executable()
		if err != nil {
			return
		}
		dir := filepath.Join(filepath.Dir(exe), config.UserDir)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			userDirCache = dir
			userDirExists = true
		}
	})
	return userDirCache, userDirExists
}

func ConfigDir(pl platforms.Platform) string {
	if v, ok := HasUserDir(); ok {
		return v
	}
	return pl.Settings().ConfigDir
}

func DataDir(pl platforms.Platform) string {
	if v, ok := HasUserDir(); ok {
		return v
	}
	return pl.Settings().DataDir
}

// LibraryRoot is where downloads land and are extracted.
func LibraryRoot(pl platforms.Platform, cfg *config.Instance) string {
	return cfg.LibraryRoot(filepath.Join(DataDir(pl), config.LibraryDir))
}

// ArchivesDir is where archives are moved after a successful extraction.
func ArchivesDir(pl platforms.Platform, cfg *config.Instance) string {
	return filepath.Join(LibraryRoot(pl, cfg), config.ArchivesDir)
}

// EnsureDirectories creates the platform's data, config and temp dirs.
func EnsureDirectories(pl platforms.Platform) error {
	for _, dir := range []string{DataDir(pl), ConfigDir(pl), pl.Settings().TempDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// NormalizePathForComparison cleans a path for equality checks. Comparison
// is case-insensitive on Windows and macOS where the default filesystems
// are.
func NormalizePathForComparison(path string) string {
	p := filepath.ToSlash(filepath.Clean(path))
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		p = strings.ToLower(p)
	}
	return p
}

// SamePath reports whether two paths refer to the same location after
// normalisation. It does not touch the filesystem.
func SamePath(a, b string) bool {
	return NormalizePathForComparison(a) == NormalizePathForComparison(b)
}

// PathHasPrefix checks if path is inside root, respecting separator
// boundaries so "/games2/x" is not inside "/games".
func PathHasPrefix(path, root string) bool {
	normPath := NormalizePathForComparison(path)
	normRoot := NormalizePathForComparison(root)

	if normPath == normRoot {
		return true
	}
	if normRoot == "" || normRoot == "." {
		return false
	}
	if !strings.HasSuffix(normRoot, "/") {
		normRoot += "/"
	}
	return strings.HasPrefix(normPath, normRoot)
}

// MoveFile renames src to dst, falling back to copy and delete when they are
// on different filesystems.
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return fmt.Errorf("failed to move file: %w", err)
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("failed to remove source after copy: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // caller controlled path
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close destination file: %w", err)
	}
	return nil
}

// UniquePath returns path unchanged if nothing exists there, otherwise the
// first "name (n).ext" variant that is free.
func UniquePath(path string) string {
	return UniquePathFunc(path, pathExists)
}

// UniquePathFunc is UniquePath with a caller supplied check, so names that
// are reserved but not yet on disk can be skipped too.
func UniquePathFunc(path string, taken func(string) bool) string {
	if !taken(path) {
		return path
	}
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	if ext != "" && strings.HasSuffix(strings.ToLower(base), ".tar"+strings.ToLower(ext)) {
		// keep compound suffixes like .tar.gz together
		ext = base[len(base)-len(".tar")-len(ext):]
	}
	stem := strings.TrimSuffix(base, ext)
	for i := 1; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if !taken(candidate) {
			return candidate
		}
	}
}

func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return !os.IsNotExist(err)
}
