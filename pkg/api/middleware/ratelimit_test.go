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
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiter_Burst(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	rl := NewIPRateLimiter(clock)

	for i := range BurstSize {
		assert.True(t, rl.Allow("192.168.1.100:5000"), "request %d within burst", i+1)
	}
	assert.False(t, rl.Allow("192.168.1.100:5000"))
	assert.True(t, rl.Allow("192.168.1.101:5000"), "other clients have their own bucket")

	clock.Advance(time.Second)
	assert.True(t, rl.Allow("192.168.1.100:5000"), "tokens refill over time")
}

func TestIPRateLimiter_Cleanup(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	rl := NewIPRateLimiter(clock)
	rl.GetLimiter("10.0.0.1")
	clock.Advance(limiterMaxAge / 2)
	rl.GetLimiter("10.0.0.2")
	clock.Advance(limiterMaxAge/2 + time.Second)

	rl.Cleanup()
	assert.NotContains(t, rl.limiters, "10.0.0.1")
	assert.Contains(t, rl.limiters, "10.0.0.2")
}

func TestHTTPRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	rl := NewIPRateLimiter(clockwork.NewFakeClock())
	h := HTTPRateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make(map[int]int)
	for range BurstSize + 5 {
		req := httptest.NewRequest(http.MethodGet, "/api", http.NoBody)
		req.RemoteAddr = "192.168.1.7:9000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[rec.Code]++
	}
	assert.Equal(t, BurstSize, codes[http.StatusOK])
	assert.Equal(t, 5, codes[http.StatusTooManyRequests])
}
