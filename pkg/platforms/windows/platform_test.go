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
	"os"
	"path/filepath"
	"testing"

	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyExecutable(t *testing.T) {
	t.Parallel()

	pl := &Platform{}
	dir := t.TempDir()

	for name, want := range map[string]bool{
		"Game.exe":    true,
		"GAME.EXE":    true,
		"engine.dll":  false,
		"launcher.sh": false,
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		info, err := os.Stat(path)
		require.NoError(t, err)

		kind, ok := pl.ClassifyExecutable(path, info)
		assert.Equal(t, want, ok, name)
		if want {
			assert.Equal(t, platforms.KindWindowsExe, kind)
		}
	}
}

func TestBuildLaunchCommand_IgnoresCompat(t *testing.T) {
	t.Parallel()

	pl := &Platform{}
	exe := filepath.Join("C:", "Games", "Game.exe")

	cmd, err := pl.BuildLaunchCommand(platforms.LaunchRequest{
		Executable: exe,
		UseCompat:  true,
		Compat:     platforms.Compat{Provider: platforms.CompatProviderWine},
		Args:       []string{"-dx11"},
		BaseEnv:    []string{},
	})
	require.NoError(t, err)
	assert.Equal(t, exe, cmd.Name)
	assert.Equal(t, []string{"-dx11"}, cmd.Args)
	assert.Equal(t, filepath.Dir(exe), cmd.Dir)
	assert.True(t, cmd.Detach)
	assert.Empty(t, pl.DefaultCompatCommand())
}
