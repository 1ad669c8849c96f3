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

type CaptureDownloadParams struct {
	Title *string `json:"title"`
	URL   string  `json:"url" validate:"required,url"`
}

type DownloadIDParams struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

type ExtractParams struct {
	Dest *string `json:"dest" validate:"omitempty,abspath"`
	Path string  `json:"path" validate:"required,abspath"`
}

type ScanParams struct {
	Title    *string `json:"title"`
	MaxDepth *int    `json:"maxDepth" validate:"omitempty,min=1,max=8"`
	Path     string  `json:"path" validate:"required,abspath"`
}

// LaunchGameParams launches either an explicit executable or the saved
// config of the item given by ID. When neither exists the install dir is
// scanned and the best candidate used.
type LaunchGameParams struct {
	ID         *string  `json:"id"`
	Executable *string  `json:"executable" validate:"omitempty,abspath"`
	InstallDir *string  `json:"installDir" validate:"omitempty,abspath"`
	Title      *string  `json:"title"`
	Locale     *string  `json:"locale" validate:"omitempty,locale"`
	UseCompat  *bool    `json:"useCompat"`
	Args       []string `json:"args"`
}

type GameIDParams struct {
	ID string `json:"id" validate:"required"`
}

// GameShortcutParams creates a desktop shortcut from the item's saved
// launch config. Name defaults to the item ID.
type GameShortcutParams struct {
	Name *string `json:"name" validate:"omitempty,min=1"`
	ID   string  `json:"id" validate:"required"`
}

type SaveLaunchConfigParams struct {
	Locale     *string  `json:"locale" validate:"omitempty,locale"`
	Engine     *string  `json:"engine"`
	ID         string   `json:"id" validate:"required"`
	InstallDir string   `json:"installDir" validate:"required,abspath"`
	Executable string   `json:"executable" validate:"required,abspath"`
	Args       []string `json:"args"`
	UseCompat  bool     `json:"useCompat"`
}

type UpdateSettingsParams struct {
	LibraryRoot    *string `json:"libraryRoot" validate:"omitempty,abspath"`
	ScanDepth      *int    `json:"scanDepth" validate:"omitempty,min=1,max=8"`
	KeepArchives   *bool   `json:"keepArchives"`
	CompatProvider *string `json:"compatProvider" validate:"omitempty,oneof=wine custom"`
	CompatCommand  *string `json:"compatCommand"`
	AutoExtract    *bool   `json:"autoExtract"`
	SpeedLimit     *int64  `json:"speedLimit" validate:"omitempty,gte=0"`
	DebugLogging   *bool   `json:"debugLogging"`
	ErrorReporting *bool   `json:"errorReporting"`
}

type DownloadStartedParams struct {
	Filename   string `json:"filename"`
	Title      string `json:"title,omitempty"`
	ID         int64  `json:"id"`
	TotalBytes int64  `json:"totalBytes"`
}

type DownloadProgressParams struct {
	ID            int64   `json:"id"`
	ReceivedBytes int64   `json:"receivedBytes"`
	TotalBytes    int64   `json:"totalBytes"`
	Speed         int64   `json:"speed"`
	Progress      float64 `json:"progress"`
}

type DownloadCompletedParams struct {
	Filename string `json:"filename"`
	SavePath string `json:"savePath"`
	ID       int64  `json:"id"`
}

type DownloadErrorParams struct {
	Error string `json:"error"`
	ID    int64  `json:"id"`
}

type DownloadCancelledParams struct {
	ID int64 `json:"id"`
}

type DownloadExtractedParams struct {
	Archive       string `json:"archive"`
	ExtractedPath string `json:"extractedPath,omitempty"`
	Error         string `json:"error,omitempty"`
	ID            int64  `json:"id"`
	Success       bool   `json:"success"`
}

type GameStartedParams struct {
	ID         string `json:"id,omitempty"`
	Executable string `json:"executable"`
	StartedAt  string `json:"startedAt"`
	PID        int    `json:"pid"`
}

type GameStoppedParams struct {
	ID         string `json:"id,omitempty"`
	Executable string `json:"executable"`
	Error      string `json:"error,omitempty"`
	Elapsed    int64  `json:"elapsed"`
	ExitCode   int    `json:"exitCode"`
}
