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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) *Instance {
	t.Helper()
	cfg, err := NewConfig(t.TempDir(), BaseDefaults)
	require.NoError(t, err)
	return cfg
}

func writeConfigFile(t *testing.T, dir, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte(contents), 0o600))
}

func TestNewConfig_WritesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, CfgFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "config_schema = 1")
	assert.Regexp(t, `provider = ['"]wine['"]`, string(data))
	assert.NotEmpty(t, cfg.DeviceID())
	assert.Equal(t, filepath.Join(dir, CfgFile), cfg.Path())
}

func TestLoad_LayersOverDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfigFile(t, dir, `
config_schema = 1

[library]
scan_depth = 5

[compat]
provider = "custom"
command = 'bottles-cli run -b "My Bottle" -e %EXE%'
`)

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.ScanDepth())
	assert.Equal(t, CompatProviderCustom, cfg.CompatProvider())
	assert.Equal(t, `bottles-cli run -b "My Bottle" -e %EXE%`, cfg.CompatCommand())
	assert.True(t, cfg.KeepArchives())
	assert.True(t, cfg.AutoExtract())
	assert.Equal(t, DefaultSevenZip, cfg.SevenZipPath())
}

func TestLoad_SchemaMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfigFile(t, dir, "config_schema = 99\n")

	_, err := NewConfig(dir, BaseDefaults)
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestLoad_UnknownCompatProviderFallsBack(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfigFile(t, dir, "config_schema = 1\n[compat]\nprovider = \"proton\"\n")

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)
	assert.Equal(t, CompatProviderWine, cfg.CompatProvider())
}

func TestSave_RoundTripsSetters(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	cfg.SetKeepArchives(false)
	cfg.SetAutoExtract(false)
	cfg.SetSpeedLimit(1 << 20)
	cfg.SetScanDepth(2)
	require.True(t, cfg.SetCompatProvider(CompatProviderCustom))
	cfg.SetCompatCommand("open -a CrossOver %EXE%")
	cfg.SetAPIPort(8123)
	require.NoError(t, cfg.Save())

	reloaded, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)
	assert.False(t, reloaded.KeepArchives())
	assert.False(t, reloaded.AutoExtract())
	assert.Equal(t, int64(1<<20), reloaded.SpeedLimit())
	assert.Equal(t, 2, reloaded.ScanDepth())
	assert.Equal(t, CompatProviderCustom, reloaded.CompatProvider())
	assert.Equal(t, "open -a CrossOver %EXE%", reloaded.CompatCommand())
	assert.Equal(t, 8123, reloaded.APIPort())
	assert.Equal(t, cfg.DeviceID(), reloaded.DeviceID())
}

func TestSetCompatProvider_RejectsUnknown(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	assert.False(t, cfg.SetCompatProvider("dosbox"))
	assert.Equal(t, CompatProviderWine, cfg.CompatProvider())
}

func TestScanDepth_Bounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value int
		want  int
	}{
		{name: "unset_uses_default", value: 0, want: DefaultScanDepth},
		{name: "negative_uses_default", value: -2, want: DefaultScanDepth},
		{name: "within_range", value: 4, want: 4},
		{name: "clamped_to_max", value: 50, want: MaxScanDepth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := newTestConfig(t)
			cfg.SetScanDepth(tt.value)
			assert.Equal(t, tt.want, cfg.ScanDepth())
		})
	}
}

func TestLibraryRoot(t *testing.T) {
	t.Parallel()

	def := filepath.Join(string(filepath.Separator)+"data", "zaparoo-library", "library")

	cfg := newTestConfig(t)
	assert.Equal(t, def, cfg.LibraryRoot(def))

	abs := filepath.Join(string(filepath.Separator)+"games", "lib")
	cfg.SetLibraryRoot(abs)
	assert.Equal(t, abs, cfg.LibraryRoot(def))

	cfg.SetLibraryRoot("games")
	assert.Equal(t, filepath.Join(filepath.Dir(def), "games"), cfg.LibraryRoot(def))
}

func TestAPIListen_DefaultsToLoopback(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	assert.Equal(t, "127.0.0.1:7499", cfg.APIListen())

	cfg.SetAPIPort(9000)
	assert.Equal(t, "127.0.0.1:9000", cfg.APIListen())
}

func TestSpeedLimit_NegativeIsUnlimited(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	cfg.SetSpeedLimit(-5)
	assert.Equal(t, int64(0), cfg.SpeedLimit())
}
