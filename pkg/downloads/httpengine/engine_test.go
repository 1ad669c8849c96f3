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

package httpengine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-library/pkg/downloads"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/time/rate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type event struct {
	id       int64
	kind     string
	filename string
	path     string
	message  string
	received int64
	total    int64
}

type recorder struct {
	events chan event
}

func newRecorder() *recorder {
	return &recorder{events: make(chan event, 256)}
}

func (r *recorder) Started(_ int64, filename string, total int64) {
	r.events <- event{kind: "started", filename: filename, total: total}
}

func (r *recorder) Progress(_ int64, received, total, _ int64) {
	r.events <- event{kind: "progress", received: received, total: total}
}

func (r *recorder) Completed(id int64, savePath, filename string) {
	r.events <- event{id: id, kind: "completed", path: savePath, filename: filename}
}

func (r *recorder) Failed(id int64, message string) {
	r.events <- event{id: id, kind: "failed", message: message}
}

// until collects events up to and including the first of the given kind.
func (r *recorder) until(t *testing.T, kind string) []event {
	t.Helper()
	var out []event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-r.events:
			out = append(out, ev)
			if ev.kind == kind {
				return out
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s, got %+v", kind, out)
		}
	}
}

func TestEngine_Download(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("celeste", 20_000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="Celeste v1.4.zip"`)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	rec := newRecorder()
	e := New(rec, WithClient(srv.Client()))
	t.Cleanup(e.Close)

	dir := t.TempDir()
	require.NoError(t, e.Begin(context.Background(), downloads.Request{
		ID:      1,
		URL:     srv.URL + "/dl?id=9",
		SaveDir: dir,
	}))

	events := rec.until(t, "completed")
	assert.Equal(t, "started", events[0].kind)
	assert.Equal(t, "Celeste v1.4.zip", events[0].filename)
	assert.Equal(t, int64(len(body)), events[0].total)

	last := events[len(events)-1]
	assert.Equal(t, filepath.Join(dir, "Celeste v1.4.zip"), last.path)
	assert.Equal(t, "Celeste v1.4.zip", last.filename)

	finalProgress := events[len(events)-2]
	assert.Equal(t, "progress", finalProgress.kind)
	assert.Equal(t, int64(len(body)), finalProgress.received)

	data, err := os.ReadFile(last.path)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))

	_, err = os.Stat(partPath(last.path, 1))
	assert.True(t, os.IsNotExist(err))
}

func TestEngine_ConcurrentSameFilename(t *testing.T) {
	t.Parallel()

	var arrived sync.WaitGroup
	arrived.Add(2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// hold both responses until both transfers are in flight
		arrived.Done()
		arrived.Wait()
		_, _ = w.Write([]byte(strings.Repeat(r.URL.Query().Get("v"), 50_000)))
	}))
	t.Cleanup(srv.Close)

	rec := newRecorder()
	e := New(rec, WithClient(srv.Client()))
	t.Cleanup(e.Close)

	dir := t.TempDir()
	for id, v := range map[int64]string{1: "a", 2: "b"} {
		require.NoError(t, e.Begin(context.Background(), downloads.Request{
			ID:      id,
			URL:     srv.URL + "/game.zip?v=" + v,
			SaveDir: dir,
		}))
	}

	paths := map[int64]string{}
	for range 2 {
		events := rec.until(t, "completed")
		last := events[len(events)-1]
		for _, ev := range events {
			require.NotEqual(t, "failed", ev.kind, ev.message)
		}
		paths[last.id] = last.path
	}

	require.Len(t, paths, 2)
	assert.ElementsMatch(t,
		[]string{filepath.Join(dir, "game.zip"), filepath.Join(dir, "game (1).zip")},
		[]string{paths[1], paths[2]},
	)
	for id, v := range map[int64]string{1: "a", 2: "b"} {
		data, err := os.ReadFile(paths[id])
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat(v, 50_000), string(data), "transfer %d kept its own bytes", id)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no part files are left behind")
}

func TestEngine_DoesNotOverwriteExistingFile(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("new"))
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "game.tar.gz"), []byte("old"), 0o600))

	rec := newRecorder()
	e := New(rec, WithClient(srv.Client()))
	t.Cleanup(e.Close)

	require.NoError(t, e.Begin(context.Background(), downloads.Request{
		ID:      1,
		URL:     srv.URL + "/files/game.tar.gz",
		SaveDir: dir,
	}))
	events := rec.until(t, "completed")
	assert.Equal(t, filepath.Join(dir, "game (1).tar.gz"), events[len(events)-1].path)
}

func TestEngine_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	rec := newRecorder()
	e := New(rec, WithClient(srv.Client()))
	t.Cleanup(e.Close)

	require.NoError(t, e.Begin(context.Background(), downloads.Request{
		ID: 1, URL: srv.URL + "/missing.zip", SaveDir: t.TempDir(),
	}))
	events := rec.until(t, "failed")
	assert.Equal(t, "server returned 404 Not Found", events[len(events)-1].message)
}

func TestEngine_Cancel(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000000")
		_, _ = w.Write([]byte(strings.Repeat("x", 1000)))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	rec := newRecorder()
	e := New(rec, WithClient(srv.Client()))

	dir := t.TempDir()
	req := downloads.Request{ID: 7, URL: srv.URL + "/big.zip", SaveDir: dir}
	require.NoError(t, e.Begin(context.Background(), req))
	rec.until(t, "started")

	require.ErrorIs(t, e.Begin(context.Background(), req), ErrAlreadyActive)

	require.NoError(t, e.Cancel(7))
	e.Close()

	for {
		select {
		case ev := <-rec.events:
			assert.NotEqual(t, "completed", ev.kind)
			assert.NotEqual(t, "failed", ev.kind, "cancellation is not reported as a failure")
			continue
		default:
		}
		break
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial file must be removed")

	require.ErrorIs(t, e.Cancel(7), downloads.ErrNotFound)
}

func TestEngine_RejectsNonHTTP(t *testing.T) {
	t.Parallel()

	e := New(newRecorder())
	err := e.Begin(context.Background(), downloads.Request{ID: 1, URL: "ftp://example.com/a.zip"})
	require.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestEngine_SpeedLimit(t *testing.T) {
	t.Parallel()

	e := New(newRecorder(), WithSpeedLimit(1024))
	assert.Equal(t, rate.Limit(1024), e.limiter.Limit())
	assert.Equal(t, bufferSize, e.limiter.Burst(), "burst must fit one read")

	e.SetSpeedLimit(4 * 1024 * 1024)
	assert.Equal(t, rate.Limit(4*1024*1024), e.limiter.Limit())
	assert.Equal(t, 4*1024*1024, e.limiter.Burst())

	e.SetSpeedLimit(0)
	assert.Equal(t, rate.Inf, e.limiter.Limit())
	assert.Equal(t, rate.Inf, New(newRecorder()).limiter.Limit())
}

func TestResponseFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		disposition string
		finalURL    string
		want        string
	}{
		{
			name:        "content_disposition",
			disposition: `attachment; filename="Hollow Knight.zip"`,
			finalURL:    "https://cdn.example.com/x",
			want:        "Hollow Knight.zip",
		},
		{
			name:        "disposition_path_stripped",
			disposition: `attachment; filename="../../etc/passwd"`,
			finalURL:    "https://cdn.example.com/x",
			want:        "passwd",
		},
		{
			name:     "redirect_target",
			finalURL: "https://cdn.example.com/builds/game-linux.tar.gz?sig=1",
			want:     "game-linux.tar.gz",
		},
		{
			name:        "malformed_disposition",
			disposition: `attachment; filename=`,
			finalURL:    "https://cdn.example.com/builds/fallback.7z",
			want:        "fallback.7z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			u, err := url.Parse(tt.finalURL)
			require.NoError(t, err)
			resp := &http.Response{
				Header:  http.Header{},
				Request: &http.Request{URL: u},
			}
			if tt.disposition != "" {
				resp.Header.Set("Content-Disposition", tt.disposition)
			}
			assert.Equal(t, tt.want, responseFilename(resp, "https://example.com/original.zip"))
		})
	}
}
