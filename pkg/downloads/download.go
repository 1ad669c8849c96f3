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

// Package downloads owns the download state machine. The host engine
// reports transfer events into the Manager, which persists every record to
// a JSON document and publishes lifecycle notifications.
package downloads

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a download. Completed, failed and
// cancelled are terminal.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

func (s Status) Active() bool {
	return s == StatusPending || s == StatusDownloading
}

func (s Status) valid() bool {
	return s.Active() || s.Terminal()
}

const (
	InterruptedMessage           = "Download interrupted by app close"
	InterruptedExtractionMessage = "Extraction interrupted by app close"
)

var (
	ErrNotFound     = errors.New("download not found")
	ErrNoEngine     = errors.New("no download engine attached")
	ErrNotCompleted = errors.New("download is not completed")
	ErrExtracting   = errors.New("download is already being extracted")
)

// Download is one tracked transfer. Values handed out by the Manager are
// copies; mutating them has no effect on the tracked record.
type Download struct {
	StartedAt     time.Time  `json:"startedAt"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
	Title         string     `json:"title,omitempty"`
	Filename      string     `json:"filename"`
	URL           string     `json:"url,omitempty"`
	Status        Status     `json:"status"`
	Error         string     `json:"error,omitempty"`
	SavePath      string     `json:"savePath,omitempty"`
	ExtractedPath string     `json:"extractedPath,omitempty"`
	ExtractError  string     `json:"extractError,omitempty"`
	ID            int64      `json:"id"`
	ReceivedBytes int64      `json:"receivedBytes"`
	TotalBytes    int64      `json:"totalBytes"`
	Speed         int64      `json:"speed"`
	Progress      float64    `json:"progress"`
	Extracting    bool       `json:"extracting"`
}

// computeProgress derives the percentage from the byte counters. An unknown
// or zero total leaves the previous value in place.
func computeProgress(received, total int64, prev float64) float64 {
	if total <= 0 {
		return prev
	}
	p := float64(received) / float64(total) * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// ExtractionResult is what the extraction caller reports back when it
// clears the extracting flag.
type ExtractionResult struct {
	Err           error
	ExtractedPath string
	// SavePath is set when the archive was relocated after extraction.
	SavePath string
}
