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

// Package helpers holds shared fixtures for package tests.
package helpers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ZaparooProject/zaparoo-library/pkg/config"
	"github.com/olahol/melody"
	"github.com/stretchr/testify/require"
)

// NewTestConfig writes a default config into configDir and loads it.
func NewTestConfig(t *testing.T, configDir string) *config.Instance {
	t.Helper()
	cfg, err := config.NewConfig(configDir, config.BaseDefaults)
	require.NoError(t, err)
	return cfg
}

// NewTestConfigWithPort is NewTestConfig with the API port set.
func NewTestConfigWithPort(t *testing.T, configDir string, port int) *config.Instance {
	t.Helper()
	cfg := NewTestConfig(t, configDir)
	cfg.SetAPIPort(port)
	return cfg
}

// WebSocketTestServer is a melody endpoint mounted at the API path.
type WebSocketTestServer struct {
	Melody *melody.Melody
	Server *httptest.Server
}

func (s *WebSocketTestServer) Close() {
	_ = s.Melody.Close()
	s.Server.Close()
}

// NewWebSocketTestServer starts a loopback WebSocket server. A nil handler
// ignores incoming messages, which suits broadcast-only tests.
func NewWebSocketTestServer(t *testing.T, handler func(*melody.Session, []byte)) *WebSocketTestServer {
	t.Helper()

	m := melody.New()
	if handler != nil {
		m.HandleMessage(handler)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(config.APIPath, func(w http.ResponseWriter, r *http.Request) {
		_ = m.HandleRequest(w, r)
	})

	return &WebSocketTestServer{
		Melody: m,
		Server: httptest.NewServer(mux),
	}
}
