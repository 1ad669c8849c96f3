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

package service

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/client"
	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-library/pkg/config"
	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/ZaparooProject/zaparoo-library/pkg/testing/helpers"
	"github.com/ZaparooProject/zaparoo-library/pkg/testing/mocks"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServicePlatform(t *testing.T) *mocks.MockPlatform {
	t.Helper()
	root := t.TempDir()
	pl := mocks.NewMockPlatform()
	pl.On("Settings").Return(platforms.Settings{
		DataDir:   filepath.Join(root, "data"),
		ConfigDir: filepath.Join(root, "config"),
		TempDir:   filepath.Join(root, "tmp"),
	})
	pl.SetupBasicMock()
	return pl
}

func freePort(t *testing.T) int {
	t.Helper()
	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())
	return port
}

func TestCompatFromConfig(t *testing.T) {
	t.Parallel()

	cfg := helpers.NewTestConfig(t, t.TempDir())
	compat := compatFromConfig(cfg)
	assert.Equal(t, config.CompatProviderWine, compat().Provider)

	require.True(t, cfg.SetCompatProvider(config.CompatProviderCustom))
	cfg.SetCompatCommand("box64 %EXE%")
	assert.Equal(t, platforms.Compat{
		Provider: config.CompatProviderCustom,
		Command:  "box64 %EXE%",
	}, compat())
}

func TestNewComponents_WiresServices(t *testing.T) {
	t.Parallel()

	pl := newServicePlatform(t)
	cfg := helpers.NewTestConfig(t, t.TempDir())
	ns := make(chan models.Notification, 16)

	c := newComponents(afero.NewMemMapFs(), pl, cfg, ns, &mocks.MockCommandExecutor{})
	t.Cleanup(c.engine.Close)
	svc := c.services(cfg)

	assert.Same(t, c.manager, svc.Downloads)
	assert.Same(t, c.launcher, svc.Launcher)
	assert.Same(t, c.library, svc.Library)
	assert.NotNil(t, svc.Extractions)
	assert.NotNil(t, svc.Extractor)
	assert.Empty(t, svc.Downloads.List())
	require.NotNil(t, svc.ApplyConfig)
	svc.ApplyConfig()
}

func TestStart_ServesAPIUntilStopped(t *testing.T) {
	pl := newServicePlatform(t)
	cfg, err := config.NewConfig(filepath.Join(t.TempDir(), "config"), config.BaseDefaults)
	require.NoError(t, err)
	cfg.SetAPIPort(freePort(t))
	cfg.SetLibraryRoot(filepath.Join(t.TempDir(), "library"))

	stop, done, err := Start(pl, cfg)
	require.NoError(t, err)

	require.True(t, client.WaitForAPI(cfg, 5*time.Second, 50*time.Millisecond))

	result, err := client.LocalClient(context.Background(), cfg, models.MethodVersion, "")
	require.NoError(t, err)
	var version models.VersionResponse
	require.NoError(t, json.Unmarshal([]byte(result), &version))
	assert.Equal(t, config.AppVersion, version.Version)

	assert.DirExists(t, filepath.Join(cfg.LibraryRoot(""), config.ArchivesDir))

	require.NoError(t, stop())
	select {
	case <-done:
	default:
		t.Fatal("done not closed after stop")
	}
	assert.False(t, client.IsServiceRunning(cfg))
}
