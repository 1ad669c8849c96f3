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

package models

import "time"

// ResultResponse is the success envelope for operations whose failures are
// reported as data rather than as JSON-RPC errors.
type ResultResponse struct {
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
}

type CaptureResponse struct {
	ID int64 `json:"id"`
}

type ClearResponse struct {
	Removed int `json:"removed"`
}

type ExtractResponse struct {
	ResultResponse
	Dest string `json:"dest"`
}

type CandidateResponse struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Depth int    `json:"depth"`
}

type ScanResponse struct {
	Best       *CandidateResponse  `json:"best,omitempty"`
	Candidates []CandidateResponse `json:"candidates"`
}

type LaunchResponse struct {
	ResultResponse
	Executable string `json:"executable,omitempty"`
	PID        int    `json:"pid,omitempty"`
}

type ShortcutResponse struct {
	ResultResponse
	Path string `json:"path,omitempty"`
}

type RunningGameResponse struct {
	StartedAt  time.Time `json:"startedAt"`
	ID         string    `json:"id,omitempty"`
	Executable string    `json:"executable"`
	PID        int       `json:"pid"`
}

type LaunchConfigResponse struct {
	LastPlayed *time.Time `json:"lastPlayed,omitempty"`
	Locale     string     `json:"locale,omitempty"`
	Engine     string     `json:"engine,omitempty"`
	ID         string     `json:"id"`
	Executable string     `json:"executable"`
	Args       []string   `json:"args"`
	Playtime   int64      `json:"playtime"`
	UseCompat  bool       `json:"useCompat"`
}

type SettingsResponse struct {
	LibraryRoot    string `json:"libraryRoot"`
	CompatProvider string `json:"compatProvider"`
	CompatCommand  string `json:"compatCommand"`
	SevenZip       string `json:"sevenZip"`
	ScanDepth      int    `json:"scanDepth"`
	SpeedLimit     int64  `json:"speedLimit"`
	KeepArchives   bool   `json:"keepArchives"`
	AutoExtract    bool   `json:"autoExtract"`
	DebugLogging   bool   `json:"debugLogging"`
	ErrorReporting bool   `json:"errorReporting"`
}

type VersionResponse struct {
	Version  string `json:"version"`
	Platform string `json:"platform"`
}
