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

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-library/pkg/api/models/requests"
	"github.com/ZaparooProject/zaparoo-library/pkg/api/validation"
	"github.com/ZaparooProject/zaparoo-library/pkg/config"
	"github.com/ZaparooProject/zaparoo-library/pkg/testing/mocks"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	conn          *websocket.Conn
	notifications chan models.Notification
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg, err := config.NewConfig(t.TempDir(), config.BaseDefaults)
	require.NoError(t, err)
	pl := mocks.NewMockPlatform()
	pl.SetupBasicMock()

	ctx, cancel := context.WithCancel(context.Background())
	ns := make(chan models.Notification, 4)
	srv := httptest.NewServer(NewRouter(ctx, pl, cfg, &requests.Services{}, ns))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + config.APIPath
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		close(ns)
		srv.Close()
	})

	return &testServer{conn: conn, notifications: ns}
}

func (s *testServer) read(t *testing.T) []byte {
	t.Helper()
	require.NoError(t, s.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := s.conn.ReadMessage()
	require.NoError(t, err)
	return data
}

func (s *testServer) call(t *testing.T, method, params string) map[string]json.RawMessage {
	t.Helper()
	id := uuid.New()
	msg := fmt.Sprintf(`{"jsonrpc":"2.0","id":%q,"method":%q`, id.String(), method)
	if params != "" {
		msg += `,"params":` + params
	}
	msg += "}"
	require.NoError(t, s.conn.WriteMessage(websocket.TextMessage, []byte(msg)))

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(s.read(t), &resp))
	assert.JSONEq(t, fmt.Sprintf("%q", id.String()), string(resp["id"]))
	return resp
}

func errorCode(t *testing.T, resp map[string]json.RawMessage) int {
	t.Helper()
	var errObj models.ErrorObject
	require.Contains(t, resp, "error")
	require.NoError(t, json.Unmarshal(resp["error"], &errObj))
	return errObj.Code
}

func TestServer_Version(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	resp := s.call(t, models.MethodVersion, "")

	var version models.VersionResponse
	require.NoError(t, json.Unmarshal(resp["result"], &version))
	assert.Equal(t, config.AppVersion, version.Version)
	assert.Equal(t, "mock", version.Platform)
}

func TestServer_MethodLookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	resp := s.call(t, "VERSION", "")
	assert.Contains(t, resp, "result")
}

func TestServer_Errors(t *testing.T) {
	t.Parallel()

	t.Run("method_not_found", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		resp := s.call(t, "nope", "")
		assert.Equal(t, JSONRPCErrorMethodNotFound.Code, errorCode(t, resp))
	})

	t.Run("invalid_params", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		resp := s.call(t, models.MethodDownloadsCancel, `{"id":0}`)
		assert.Equal(t, JSONRPCErrorInvalidParams.Code, errorCode(t, resp))
	})

	t.Run("missing_params", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		resp := s.call(t, models.MethodDownloadsCancel, "")
		assert.Equal(t, JSONRPCErrorInvalidParams.Code, errorCode(t, resp))
	})

	t.Run("parse_error", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		require.NoError(t, s.conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
		var resp map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(s.read(t), &resp))
		assert.Equal(t, JSONRPCErrorParseError.Code, errorCode(t, resp))
	})

	t.Run("invalid_request", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		require.NoError(t, s.conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"1.0","method":"version"}`)))
		var resp map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(s.read(t), &resp))
		assert.Equal(t, JSONRPCErrorInvalidRequest.Code, errorCode(t, resp))
	})
}

func TestServer_PingPong(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	require.NoError(t, s.conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	assert.Equal(t, "pong", string(s.read(t)))
}

func TestServer_BroadcastsNotifications(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	// the session is registered once a round trip completes
	require.NoError(t, s.conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	require.Equal(t, "pong", string(s.read(t)))

	s.notifications <- models.Notification{
		Method: models.NotificationDownloadsCancelled,
		Params: json.RawMessage(`{"id":7}`),
	}

	var req models.RequestObject
	require.NoError(t, json.Unmarshal(s.read(t), &req))
	assert.Equal(t, models.NotificationDownloadsCancelled, req.Method)
	assert.Nil(t, req.ID)
	assert.JSONEq(t, `{"id":7}`, string(req.Params))
}

func TestErrorObject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		code int
	}{
		{name: "method_not_found", err: fmt.Errorf("%w: x", errMethodNotFound), code: -32601},
		{name: "missing_params", err: fmt.Errorf("invalid params: %w", validation.ErrMissingParams), code: -32602},
		{name: "invalid_params", err: fmt.Errorf("invalid params: %w", validation.ErrInvalidParams), code: -32602},
		{name: "domain_error", err: errors.New("disk full"), code: -32000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			obj := errorObject(tt.err)
			assert.Equal(t, tt.code, obj.Code)
			if tt.code != -32601 {
				assert.Equal(t, tt.err.Error(), obj.Message)
			}
		})
	}
}

func TestCheckOrigin(t *testing.T) {
	t.Parallel()

	check := checkOrigin([]string{"https://app.example.com"})

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{name: "no_origin", origin: "", want: true},
		{name: "localhost", origin: "http://localhost:3000", want: true},
		{name: "loopback_ip", origin: "http://127.0.0.1:8080", want: true},
		{name: "allowed", origin: "https://app.example.com", want: true},
		{name: "foreign", origin: "https://evil.example.com", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/api", http.NoBody)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, check(r))
		})
	}
}
