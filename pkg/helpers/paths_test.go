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
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPathHasPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		root string
		want bool
	}{
		{name: "inside", path: "/lib/game/bin/game", root: "/lib/game", want: true},
		{name: "exact", path: "/lib/game", root: "/lib/game/", want: true},
		{name: "sibling_with_shared_prefix", path: "/lib/game2/bin", root: "/lib/game", want: false},
		{name: "outside", path: "/other/game", root: "/lib", want: false},
		{name: "dot_segments", path: "/lib/game/../other/x", root: "/lib/game", want: false},
		{name: "empty_root", path: "/lib", root: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, PathHasPrefix(tt.path, tt.root))
		})
	}
}

func TestPathHasPrefix_ChildAlwaysInsideParent(t *testing.T) {
	t.Parallel()

	segment := rapid.StringMatching(`[a-z0-9]{1,6}`)
	rapid.Check(t, func(t *rapid.T) {
		parts := rapid.SliceOfN(segment, 1, 4).Draw(t, "root")
		child := rapid.SliceOfN(segment, 0, 3).Draw(t, "child")

		root := "/" + filepath.Join(parts...)
		path := filepath.Join(append([]string{root}, child...)...)
		if !PathHasPrefix(path, root) {
			t.Fatalf("%s should be inside %s", path, root)
		}
		if PathHasPrefix(root+"x", root) {
			t.Fatalf("%sx should not be inside %s", root, root)
		}
	})
}

func TestSamePath(t *testing.T) {
	t.Parallel()

	assert.True(t, SamePath("/lib/game/./bin/../game", "/lib/game/game"))
	assert.False(t, SamePath("/lib/a", "/lib/b"))
	if runtime.GOOS == "linux" {
		assert.False(t, SamePath("/lib/Game", "/lib/game"))
	}
}

func TestMoveFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "game.zip")
	require.NoError(t, os.WriteFile(src, []byte("archive"), 0o600))

	dst := filepath.Join(dir, "archives", "game.zip")
	require.NoError(t, MoveFile(src, dst))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "archive", string(data))
}

func TestUniquePath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "game.zip")
	assert.Equal(t, path, UniquePath(path))

	require.NoError(t, os.WriteFile(path, nil, 0o600))
	assert.Equal(t, filepath.Join(dir, "game (1).zip"), UniquePath(path))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "game (1).zip"), nil, 0o600))
	assert.Equal(t, filepath.Join(dir, "game (2).zip"), UniquePath(path))

	tarball := filepath.Join(dir, "game.tar.gz")
	require.NoError(t, os.WriteFile(tarball, nil, 0o600))
	assert.Equal(t, filepath.Join(dir, "game (1).tar.gz"), UniquePath(tarball))
}

func TestUniquePathFunc_SkipsReservedNames(t *testing.T) {
	t.Parallel()

	dir := filepath.FromSlash("/library")
	reserved := map[string]bool{
		filepath.Join(dir, "game.zip"):     true,
		filepath.Join(dir, "game (1).zip"): true,
	}
	taken := func(p string) bool { return reserved[p] }

	assert.Equal(t, filepath.Join(dir, "game (2).zip"), UniquePathFunc(filepath.Join(dir, "game.zip"), taken))
	assert.Equal(t, filepath.Join(dir, "other.zip"), UniquePathFunc(filepath.Join(dir, "other.zip"), taken))
}
