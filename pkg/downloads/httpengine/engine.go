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

// Package httpengine is a download engine that fetches plain HTTP(S) URLs
// and reports progress back to the download manager.
package httpengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/ZaparooProject/zaparoo-library/pkg/config"
	"github.com/ZaparooProject/zaparoo-library/pkg/downloads"
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	bufferSize       = 32 * 1024
	progressInterval = 500 * time.Millisecond
	partSuffix       = ".part"
)

var (
	ErrUnsupportedScheme = errors.New("only http and https downloads are supported")
	ErrAlreadyActive     = errors.New("download already in progress")
)

// Callbacks receives transfer events. *downloads.Manager satisfies it.
type Callbacks interface {
	Started(id int64, filename string, totalBytes int64)
	Progress(id, received, total, speed int64)
	Completed(id int64, savePath, filename string)
	Failed(id int64, message string)
}

type Engine struct {
	clock     clockwork.Clock
	cb        Callbacks
	client    *http.Client
	limiter   *rate.Limiter
	active    map[int64]context.CancelFunc
	reserved  map[string]int64
	userAgent string
	wg        sync.WaitGroup
	mu        syncutil.Mutex
}

type Option func(*Engine)

func WithClient(client *http.Client) Option {
	return func(e *Engine) {
		e.client = client
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithSpeedLimit caps the combined bandwidth of all transfers in bytes per
// second. Zero or less means unlimited.
func WithSpeedLimit(bytesPerSecond int64) Option {
	return func(e *Engine) {
		e.SetSpeedLimit(bytesPerSecond)
	}
}

// SetSpeedLimit changes the bandwidth cap, including for running transfers.
func (e *Engine) SetSpeedLimit(bytesPerSecond int64) {
	if bytesPerSecond <= 0 {
		e.limiter.SetLimit(rate.Inf)
		return
	}
	e.limiter.SetBurst(int(max(bytesPerSecond, bufferSize)))
	e.limiter.SetLimit(rate.Limit(bytesPerSecond))
}

func New(cb Callbacks, opts ...Option) *Engine {
	e := &Engine{
		clock:     clockwork.NewRealClock(),
		cb:        cb,
		client:    &http.Client{},
		limiter:   rate.NewLimiter(rate.Inf, bufferSize),
		active:    make(map[int64]context.CancelFunc),
		reserved:  make(map[string]int64),
		userAgent: config.AppName + "/" + config.AppVersion,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Begin starts the transfer in the background. The transfer outlives ctx;
// only Cancel or Close stop it.
func (e *Engine) Begin(ctx context.Context, req downloads.Request) error {
	u, err := url.Parse(req.URL)
	if err != nil {
		return fmt.Errorf("invalid download url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.active[req.ID]; ok {
		return fmt.Errorf("%w: %d", ErrAlreadyActive, req.ID)
	}
	dctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.active[req.ID] = cancel
	e.wg.Add(1)

	go func() {
		defer e.wg.Done()
		defer e.finish(req.ID)
		e.run(dctx, req)
	}()
	return nil
}

func (e *Engine) finish(id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cancel, ok := e.active[id]; ok {
		cancel()
		delete(e.active, id)
	}
}

// Cancel stops a running transfer. Its partial file is removed.
func (e *Engine) Cancel(id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	cancel, ok := e.active[id]
	if !ok {
		return fmt.Errorf("%w: %d", downloads.ErrNotFound, id)
	}
	cancel()
	return nil
}

// Close cancels every transfer and waits for them to stop.
func (e *Engine) Close() {
	e.mu.Lock()
	for _, cancel := range e.active {
		cancel()
	}
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Engine) run(ctx context.Context, req downloads.Request) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, http.NoBody)
	if err != nil {
		e.cb.Failed(req.ID, err.Error())
		return
	}
	httpReq.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		if ctx.Err() == nil {
			e.cb.Failed(req.ID, err.Error())
		}
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		e.cb.Failed(req.ID, "server returned "+resp.Status)
		return
	}

	filename := responseFilename(resp, req.URL)
	total := max(resp.ContentLength, 0)
	e.cb.Started(req.ID, filename, total)

	if err := os.MkdirAll(req.SaveDir, 0o750); err != nil {
		e.cb.Failed(req.ID, fmt.Sprintf("failed to create download directory: %v", err))
		return
	}
	final := e.reserve(req.ID, filepath.Join(req.SaveDir, filename))
	defer e.release(final)
	part := partPath(final, req.ID)

	received, err := e.copyBody(ctx, req.ID, resp.Body, part, total)
	if err != nil {
		_ = os.Remove(part)
		if ctx.Err() != nil {
			log.Debug().Int64("id", req.ID).Msg("transfer cancelled")
			return
		}
		e.cb.Failed(req.ID, err.Error())
		return
	}
	if total > 0 && received != total {
		_ = os.Remove(part)
		e.cb.Failed(req.ID, fmt.Sprintf("transfer ended early: %d of %d bytes", received, total))
		return
	}

	if err := os.Rename(part, final); err != nil {
		_ = os.Remove(part)
		e.cb.Failed(req.ID, fmt.Sprintf("failed to finalise download: %v", err))
		return
	}
	e.cb.Completed(req.ID, final, filepath.Base(final))
}

// reserve picks a free final name for a transfer and holds it until
// release, so concurrent transfers of the same file never share a name.
func (e *Engine) reserve(id int64, path string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	final := helpers.UniquePathFunc(path, func(candidate string) bool {
		if _, ok := e.reserved[candidate]; ok {
			return true
		}
		_, err := os.Lstat(candidate)
		return !os.IsNotExist(err)
	})
	e.reserved[final] = id
	return final
}

func (e *Engine) release(final string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.reserved, final)
}

func partPath(final string, id int64) string {
	return final + "." + strconv.FormatInt(id, 10) + partSuffix
}

func (e *Engine) copyBody(
	ctx context.Context,
	id int64,
	body io.Reader,
	part string,
	total int64,
) (int64, error) {
	f, err := os.OpenFile(part, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644) //nolint:gosec // user download
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var (
		received  int64
		lastBytes int64
		lastTime  = e.clock.Now()
		report    = rate.Sometimes{Interval: progressInterval}
		buf       = make([]byte, bufferSize)
	)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if err := e.limiter.WaitN(ctx, n); err != nil {
				return received, fmt.Errorf("bandwidth limiter: %w", err)
			}
			if _, err := f.Write(buf[:n]); err != nil {
				return received, fmt.Errorf("failed to write file: %w", err)
			}
			received += int64(n)
			report.Do(func() {
				now := e.clock.Now()
				var speed int64
				if elapsed := now.Sub(lastTime).Seconds(); elapsed > 0 {
					speed = int64(float64(received-lastBytes) / elapsed)
				}
				lastBytes, lastTime = received, now
				e.cb.Progress(id, received, total, speed)
			})
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return received, fmt.Errorf("failed to read response: %w", rerr)
		}
	}

	if err := f.Close(); err != nil {
		return received, fmt.Errorf("failed to close file: %w", err)
	}
	e.cb.Progress(id, received, total, 0)
	return received, nil
}

// responseFilename prefers the server's Content-Disposition name and falls
// back to the last segment of the final URL after redirects.
func responseFilename(resp *http.Response, rawURL string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return platforms.SafeFileName(filepath.Base(params["filename"]))
		}
	}
	if resp.Request != nil && resp.Request.URL != nil {
		rawURL = resp.Request.URL.String()
	}
	return platforms.SafeFileName(downloads.FilenameFromURL(rawURL))
}
