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

package downloads

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-library/pkg/api/notifications"
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-library/pkg/store"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Request asks the engine to begin one transfer.
type Request struct {
	URL     string
	SaveDir string
	ID      int64
}

// Engine is the host download engine. It reports back through the
// Manager's Started, Progress, Completed and Failed callbacks.
type Engine interface {
	Begin(ctx context.Context, req Request) error
	Cancel(id int64) error
}

// Document is the persisted form of the record set. Records are kept raw
// so one malformed entry can be dropped without losing the rest.
type Document = store.Document[[]json.RawMessage]

type Manager struct {
	clock           clockwork.Clock
	engine          Engine
	doc             *Document
	ns              chan<- models.Notification
	records         map[int64]*Download
	saveDir         string
	order           []int64
	persistProgress rate.Sometimes
	lastID          int64
	mu              syncutil.Mutex
}

type Option func(*Manager)

func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

func WithEngine(engine Engine) Option {
	return func(m *Manager) {
		m.engine = engine
	}
}

// NewManager loads the persisted records from doc. Transfers that were
// running when the process last stopped come back as failed and are never
// resumed.
func NewManager(
	doc *Document,
	ns chan<- models.Notification,
	saveDir string,
	opts ...Option,
) *Manager {
	m := &Manager{
		clock:           clockwork.NewRealClock(),
		doc:             doc,
		ns:              ns,
		saveDir:         saveDir,
		records:         make(map[int64]*Download),
		persistProgress: rate.Sometimes{Interval: time.Second},
	}
	for _, opt := range opts {
		opt(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadLocked()
	return m
}

// AttachEngine sets the engine used for new captures and cancellation.
func (m *Manager) AttachEngine(engine Engine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine = engine
}

func (m *Manager) SaveDir() string {
	return m.saveDir
}

func (m *Manager) loadLocked() {
	raw, err := m.doc.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load downloads, starting with none")
		return
	}

	now := m.clock.Now()
	changed := false
	for i, r := range raw {
		var d Download
		if err := json.Unmarshal(r, &d); err != nil {
			log.Warn().Err(err).Msgf("dropping malformed download record at index %d", i)
			changed = true
			continue
		}
		if d.ID <= 0 || !d.Status.valid() {
			log.Warn().Msgf("dropping invalid download record at index %d", i)
			changed = true
			continue
		}

		if d.Status.Active() {
			d.Status = StatusFailed
			d.Error = InterruptedMessage
			d.Speed = 0
			d.EndedAt = &now
			changed = true
		}
		if d.Extracting {
			d.Extracting = false
			d.ExtractError = InterruptedExtractionMessage
			changed = true
		}
		if _, dup := m.records[d.ID]; dup {
			old := d.ID
			d.ID = m.repairIDLocked(now)
			log.Warn().Msgf("download id %d collides, reassigned to %d", old, d.ID)
			changed = true
		}

		m.records[d.ID] = &d
		m.order = append(m.order, d.ID)
		m.lastID = max(m.lastID, d.ID)
	}

	log.Info().Msgf("loaded %d download records", len(m.records))
	if changed {
		m.persistLocked()
	}
}

func (m *Manager) repairIDLocked(now time.Time) int64 {
	for {
		id := now.UnixMilli() + rand.Int64N(1_000_000) + 1 //nolint:gosec // ids are not secrets
		if _, ok := m.records[id]; !ok {
			return id
		}
	}
}

// nextIDLocked hands out millisecond timestamps, bumped forward so ids stay
// unique even when two captures land in the same millisecond.
func (m *Manager) nextIDLocked() int64 {
	id := max(m.clock.Now().UnixMilli(), m.lastID+1)
	for {
		if _, ok := m.records[id]; !ok {
			break
		}
		id++
	}
	m.lastID = id
	return id
}

func (m *Manager) insertLocked(d *Download) {
	m.records[d.ID] = d
	m.order = append(m.order, d.ID)
}

func (m *Manager) deleteLocked(id int64) {
	delete(m.records, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *Manager) persistLocked() {
	raw := make([]json.RawMessage, 0, len(m.order))
	for _, id := range m.order {
		data, err := json.Marshal(m.records[id])
		if err != nil {
			log.Error().Err(err).Msgf("failed to encode download %d", id)
			continue
		}
		raw = append(raw, data)
	}
	if err := m.doc.Save(raw); err != nil {
		log.Error().Err(err).Msg("failed to persist downloads")
	}
}

// Flush writes the current record set, including progress that the write
// coalescing may have held back.
func (m *Manager) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistLocked()
}

func snapshot(d *Download) Download {
	cp := *d
	if d.EndedAt != nil {
		t := *d.EndedAt
		cp.EndedAt = &t
	}
	return cp
}

// FilenameFromURL is the last path segment of rawURL, or "download" when
// the URL has none.
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}
	name := path.Base(u.Path)
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	name = strings.TrimSpace(name)
	if name == "" || name == "/" || name == "." {
		return "download"
	}
	return name
}

// StartCapture records a pending download for rawURL and asks the engine to
// begin it. An engine that refuses leaves the record failed with the
// engine's message; the id is returned either way.
func (m *Manager) StartCapture(ctx context.Context, rawURL, title string) (int64, error) {
	m.mu.Lock()
	engine := m.engine
	id := m.nextIDLocked()
	m.insertLocked(&Download{
		ID:        id,
		URL:       rawURL,
		Title:     title,
		Filename:  FilenameFromURL(rawURL),
		Status:    StatusPending,
		StartedAt: m.clock.Now(),
	})
	m.persistLocked()
	m.mu.Unlock()

	log.Info().Int64("id", id).Msgf("capturing download: %s", rawURL)

	if engine == nil {
		m.Failed(id, ErrNoEngine.Error())
		return id, nil
	}
	if err := engine.Begin(ctx, Request{ID: id, URL: rawURL, SaveDir: m.saveDir}); err != nil {
		log.Warn().Err(err).Int64("id", id).Msg("engine refused download")
		m.Failed(id, err.Error())
	}
	return id, nil
}

// Started moves a record to downloading, creating it if the engine reports
// a transfer that was not captured here.
func (m *Manager) Started(id int64, filename string, totalBytes int64) {
	m.mu.Lock()
	d, ok := m.records[id]
	if ok && d.Status.Terminal() {
		m.mu.Unlock()
		return
	}
	if !ok {
		d = &Download{ID: id, StartedAt: m.clock.Now()}
		m.insertLocked(d)
		m.lastID = max(m.lastID, id)
	}
	d.Status = StatusDownloading
	if filename != "" {
		d.Filename = filename
	}
	d.TotalBytes = totalBytes
	d.ReceivedBytes = 0
	d.Progress = 0
	d.Speed = 0
	m.persistLocked()

	payload := models.DownloadStartedParams{
		ID:         id,
		Filename:   d.Filename,
		Title:      d.Title,
		TotalBytes: totalBytes,
	}
	m.mu.Unlock()

	notifications.DownloadStarted(m.ns, payload)
}

// Progress updates the byte counters of an active download. Status never
// changes here, and writes to disk are coalesced to one per second.
func (m *Manager) Progress(id, received, total, speed int64) {
	m.mu.Lock()
	d, ok := m.records[id]
	if !ok || d.Status.Terminal() {
		m.mu.Unlock()
		return
	}
	d.ReceivedBytes = received
	if total > 0 {
		d.TotalBytes = total
	}
	d.Speed = speed
	d.Progress = computeProgress(d.ReceivedBytes, d.TotalBytes, d.Progress)
	m.persistProgress.Do(m.persistLocked)

	payload := models.DownloadProgressParams{
		ID:            id,
		ReceivedBytes: d.ReceivedBytes,
		TotalBytes:    d.TotalBytes,
		Speed:         d.Speed,
		Progress:      d.Progress,
	}
	m.mu.Unlock()

	notifications.DownloadProgress(m.ns, payload)
}

// Completed marks a transfer finished. Extraction is left to whoever
// subscribes to the completed notification.
func (m *Manager) Completed(id int64, savePath, filename string) {
	m.mu.Lock()
	d, ok := m.records[id]
	if !ok {
		m.mu.Unlock()
		log.Warn().Int64("id", id).Msg("completion for unknown download")
		return
	}
	if d.Status.Terminal() {
		m.mu.Unlock()
		return
	}
	now := m.clock.Now()
	d.Status = StatusCompleted
	d.Progress = 100
	if d.TotalBytes > 0 {
		d.ReceivedBytes = d.TotalBytes
	}
	d.Speed = 0
	d.EndedAt = &now
	d.SavePath = savePath
	if filename != "" {
		d.Filename = filename
	}
	m.persistLocked()

	payload := models.DownloadCompletedParams{
		ID:       id,
		Filename: d.Filename,
		SavePath: savePath,
	}
	m.mu.Unlock()

	log.Info().Int64("id", id).Msgf("download completed: %s", savePath)
	notifications.DownloadCompleted(m.ns, payload)
}

func (m *Manager) Failed(id int64, message string) {
	m.mu.Lock()
	d, ok := m.records[id]
	if !ok || d.Status.Terminal() {
		m.mu.Unlock()
		return
	}
	now := m.clock.Now()
	d.Status = StatusFailed
	d.Error = message
	d.Speed = 0
	d.EndedAt = &now
	m.persistLocked()
	m.mu.Unlock()

	log.Warn().Int64("id", id).Msgf("download failed: %s", message)
	notifications.DownloadError(m.ns, models.DownloadErrorParams{ID: id, Error: message})
}

// cancelLocked marks an active record cancelled and reports whether it was
// active. The engine must be told after the lock is released.
func (m *Manager) cancelLocked(d *Download) bool {
	if d.Status.Terminal() {
		return false
	}
	now := m.clock.Now()
	d.Status = StatusCancelled
	d.Speed = 0
	d.EndedAt = &now
	return true
}

func (m *Manager) cancelEngine(engine Engine, id int64) {
	if engine == nil {
		return
	}
	if err := engine.Cancel(id); err != nil {
		log.Warn().Err(err).Int64("id", id).Msg("engine cancel failed")
	}
}

// Cancel marks the download cancelled straight away and asks the engine to
// stop it. Cancelling a finished download does nothing.
func (m *Manager) Cancel(id int64) error {
	m.mu.Lock()
	d, ok := m.records[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	engine := m.engine
	cancelled := m.cancelLocked(d)
	if cancelled {
		m.persistLocked()
	}
	m.mu.Unlock()

	if cancelled {
		m.cancelEngine(engine, id)
		log.Info().Int64("id", id).Msg("download cancelled")
		notifications.DownloadCancelled(m.ns, id)
	}
	return nil
}

// Remove forgets a download, cancelling it first if it is still running.
func (m *Manager) Remove(id int64) error {
	m.mu.Lock()
	d, ok := m.records[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	engine := m.engine
	cancelled := m.cancelLocked(d)
	m.deleteLocked(id)
	m.persistLocked()
	m.mu.Unlock()

	if cancelled {
		m.cancelEngine(engine, id)
		notifications.DownloadCancelled(m.ns, id)
	}
	return nil
}

// ClearCompleted removes every completed record that is not being
// extracted and returns how many went. Failed and cancelled records stay
// listed until removed.
func (m *Manager) ClearCompleted() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var remove []int64
	for _, id := range m.order {
		d := m.records[id]
		if d.Status == StatusCompleted && !d.Extracting {
			remove = append(remove, id)
		}
	}
	for _, id := range remove {
		m.deleteLocked(id)
	}
	if len(remove) > 0 {
		m.persistLocked()
	}
	return len(remove)
}

// ClearAll cancels every active download and then empties the list.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	engine := m.engine
	var cancelled []int64
	for _, id := range m.order {
		if m.cancelLocked(m.records[id]) {
			cancelled = append(cancelled, id)
		}
	}
	m.records = make(map[int64]*Download)
	m.order = nil
	m.persistLocked()
	m.mu.Unlock()

	for _, id := range cancelled {
		m.cancelEngine(engine, id)
		notifications.DownloadCancelled(m.ns, id)
	}
}

// List returns copies of every record in capture order.
func (m *Manager) List() []Download {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Download, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, snapshot(m.records[id]))
	}
	return out
}

func (m *Manager) Get(id int64) (Download, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.records[id]
	if !ok {
		return Download{}, false
	}
	return snapshot(d), true
}

// BeginExtraction raises the extracting flag on a completed download. The
// caller must pair it with FinishExtraction whatever the outcome.
func (m *Manager) BeginExtraction(id int64) (Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.records[id]
	switch {
	case !ok:
		return Download{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	case d.Status != StatusCompleted || d.SavePath == "":
		return Download{}, fmt.Errorf("%w: %d is %s", ErrNotCompleted, id, d.Status)
	case d.Extracting:
		return Download{}, fmt.Errorf("%w: %d", ErrExtracting, id)
	}

	d.Extracting = true
	d.ExtractError = ""
	m.persistLocked()
	return snapshot(d), nil
}

// FinishExtraction clears the extracting flag and records the outcome. The
// download's own status is never touched.
func (m *Manager) FinishExtraction(id int64, res ExtractionResult) {
	m.mu.Lock()
	d, ok := m.records[id]
	if !ok {
		m.mu.Unlock()
		log.Debug().Int64("id", id).Msg("extraction finished for removed download")
		return
	}
	d.Extracting = false
	if res.SavePath != "" {
		d.SavePath = res.SavePath
	}
	payload := models.DownloadExtractedParams{ID: id, Archive: d.SavePath}
	if res.Err != nil {
		d.ExtractError = res.Err.Error()
		payload.Error = d.ExtractError
	} else {
		d.ExtractedPath = res.ExtractedPath
		d.ExtractError = ""
		payload.Success = true
		payload.ExtractedPath = res.ExtractedPath
	}
	m.persistLocked()
	m.mu.Unlock()

	notifications.DownloadExtracted(m.ns, payload)
}
