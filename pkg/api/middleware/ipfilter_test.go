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

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIPFilter_IsAllowed(t *testing.T) {
	t.Parallel()

	f := NewIPFilter([]string{"192.168.1.20", "10.0.0.0/8", "172.16.0.5:7499", "not-an-ip"})

	tests := []struct {
		name string
		addr string
		want bool
	}{
		{name: "loopback_v4", addr: "127.0.0.1:51000", want: true},
		{name: "loopback_v6", addr: "[::1]:51000", want: true},
		{name: "listed_ip", addr: "192.168.1.20:51000", want: true},
		{name: "listed_with_port", addr: "172.16.0.5:1234", want: true},
		{name: "inside_cidr", addr: "10.20.30.40:51000", want: true},
		{name: "unlisted", addr: "192.168.1.21:51000", want: false},
		{name: "garbage", addr: "nowhere", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, f.IsAllowed(tt.addr))
		})
	}
}

func TestIPFilter_EmptyAllowsOnlyLoopback(t *testing.T) {
	t.Parallel()

	f := NewIPFilter(nil)
	assert.True(t, f.IsAllowed("127.0.0.1:1"))
	assert.False(t, f.IsAllowed("192.168.1.2:1"))
}

func TestHTTPIPFilterMiddleware(t *testing.T) {
	t.Parallel()

	h := HTTPIPFilterMiddleware(NewIPFilter(nil))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api", http.NoBody)
	req.RemoteAddr = "127.0.0.1:40000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req.RemoteAddr = "203.0.113.9:40000"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
