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

package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/ZaparooProject/zaparoo-library/pkg/platforms/linux"
	"github.com/ZaparooProject/zaparoo-library/pkg/platforms/mac"
	"github.com/ZaparooProject/zaparoo-library/pkg/platforms/windows"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkfile(t *testing.T, root, rel string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("bin"), 0o600))
	require.NoError(t, os.Chmod(path, mode))
	return path
}

// buildTree lays out a typical extracted game with the usual junk around it.
func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	mkfile(t, root, "Celeste/Celeste.x86_64", 0o644)
	mkfile(t, root, "Celeste/Celeste.exe", 0o644)
	mkfile(t, root, "Celeste/lib64/libSDL2.so", 0o755)
	mkfile(t, root, "Celeste/start.sh", 0o755)
	mkfile(t, root, "Celeste/readme.txt", 0o644)
	mkfile(t, root, "tools/bin/editor", 0o755)
	mkfile(t, root, "a/b/c/too-deep", 0o755)
	mkfile(t, root, ".hidden/secret", 0o755)
	mkfile(t, root, "__MACOSX/Celeste/._Celeste", 0o755)
	mkfile(t, root, "PaxHeaders.1234/Celeste", 0o755)
	mkfile(t, root, "Celeste.app/Contents/MacOS/Celeste", 0o755)
	mkfile(t, root, "Celeste.app/run", 0o755)
	return root
}

func relPaths(root string, cs []Candidate) map[string]platforms.Kind {
	out := make(map[string]platforms.Kind, len(cs))
	for _, c := range cs {
		rel, _ := filepath.Rel(root, c.Path)
		out[filepath.ToSlash(rel)] = c.Kind
	}
	return out
}

func TestScan_Linux(t *testing.T) {
	t.Parallel()

	root := buildTree(t)
	got := relPaths(root, Scan(context.Background(), &linux.Platform{}, root, Options{}))

	assert.Equal(t, map[string]platforms.Kind{
		"Celeste/Celeste.x86_64": platforms.KindNativeBinary,
		"Celeste/Celeste.exe":    platforms.KindWindowsExe,
		"tools/bin/editor":       platforms.KindNativeBinary,
		"Celeste.app/run":        platforms.KindNativeBinary,
	}, got)
}

func TestScan_Mac(t *testing.T) {
	t.Parallel()

	root := buildTree(t)
	got := relPaths(root, Scan(context.Background(), &mac.Platform{}, root, Options{}))

	assert.Equal(t, map[string]platforms.Kind{
		"Celeste.app":         platforms.KindMacApp,
		"Celeste/Celeste.exe": platforms.KindWindowsExe,
		"tools/bin/editor":    platforms.KindMacBinary,
	}, got)
}

func TestScan_Windows(t *testing.T) {
	t.Parallel()

	root := buildTree(t)
	got := relPaths(root, Scan(context.Background(), &windows.Platform{}, root, Options{}))

	assert.Equal(t, map[string]platforms.Kind{
		"Celeste/Celeste.exe": platforms.KindWindowsExe,
	}, got)
}

func TestScan_MaxDepth(t *testing.T) {
	t.Parallel()

	root := buildTree(t)
	got := relPaths(root, Scan(context.Background(), &linux.Platform{}, root, Options{MaxDepth: 4}))
	assert.Contains(t, got, "a/b/c/too-deep")

	got = relPaths(root, Scan(context.Background(), &linux.Platform{}, root, Options{MaxDepth: 1}))
	assert.Empty(t, got)
}

func TestScan_FollowsSymlinkTargetMode(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	target := mkfile(t, root, "bin/real-game", 0o755)
	require.NoError(t, os.Symlink(target, filepath.Join(root, "play")))

	got := relPaths(root, Scan(context.Background(), &linux.Platform{}, root, Options{}))
	assert.Equal(t, platforms.KindNativeBinary, got["play"])
	assert.Equal(t, platforms.KindNativeBinary, got["bin/real-game"])
}

func TestScan_InaccessibleRoot(t *testing.T) {
	t.Parallel()

	got := Scan(context.Background(), &linux.Platform{}, filepath.Join(t.TempDir(), "missing"), Options{})
	require.NotNil(t, got)
	assert.Empty(t, got)

	file := mkfile(t, t.TempDir(), "not-a-dir", 0o755)
	assert.Empty(t, Scan(context.Background(), &linux.Platform{}, file, Options{}))
}

func TestScan_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := Scan(ctx, &linux.Platform{}, buildTree(t), Options{})
	assert.Empty(t, got)
}

func TestRank(t *testing.T) {
	t.Parallel()

	candidates := []Candidate{
		{Path: "/g/unins000.exe", Kind: platforms.KindWindowsExe, Depth: 1},
		{Path: "/g/Celeste.exe", Kind: platforms.KindWindowsExe, Depth: 1},
		{Path: "/g/bin/Celeste.x86_64", Kind: platforms.KindNativeBinary, Depth: 2},
		{Path: "/g/editor", Kind: platforms.KindNativeBinary, Depth: 1},
		{Path: "/g/UnityCrashHandler64.exe", Kind: platforms.KindWindowsExe, Depth: 1},
	}

	t.Run("linux_prefers_native_then_title", func(t *testing.T) {
		t.Parallel()
		ranked := Rank(&linux.Platform{}, candidates, "Celeste")
		paths := make([]string, len(ranked))
		for i, c := range ranked {
			paths[i] = c.Path
		}
		assert.Equal(t, []string{
			"/g/bin/Celeste.x86_64",
			"/g/editor",
			"/g/Celeste.exe",
		}, paths[:3])
		assert.ElementsMatch(t, []string{
			"/g/UnityCrashHandler64.exe",
			"/g/unins000.exe",
		}, paths[3:])
	})

	t.Run("windows_best_skips_uninstaller", func(t *testing.T) {
		t.Parallel()
		best, ok := Best(&windows.Platform{}, candidates, "Celeste")
		require.True(t, ok)
		assert.Equal(t, "/g/Celeste.exe", best.Path)
	})

	t.Run("no_title_falls_back_to_depth", func(t *testing.T) {
		t.Parallel()
		best, ok := Best(&linux.Platform{}, candidates, "")
		require.True(t, ok)
		assert.Equal(t, "/g/editor", best.Path)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		_, ok := Best(&linux.Platform{}, nil, "x")
		assert.False(t, ok)
	})

	t.Run("input_not_mutated", func(t *testing.T) {
		t.Parallel()
		in := []Candidate{{Path: "/b", Depth: 2}, {Path: "/a", Depth: 1}}
		_ = Rank(&linux.Platform{}, in, "")
		assert.Equal(t, "/b", in[0].Path)
	})
}
