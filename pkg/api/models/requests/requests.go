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

// Package requests carries everything an API method handler needs.
package requests

import (
	"context"
	"encoding/json"

	"github.com/ZaparooProject/zaparoo-library/pkg/config"
	"github.com/ZaparooProject/zaparoo-library/pkg/downloads"
	"github.com/ZaparooProject/zaparoo-library/pkg/extract"
	"github.com/ZaparooProject/zaparoo-library/pkg/launch"
	"github.com/ZaparooProject/zaparoo-library/pkg/library"
	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/google/uuid"
)

// DownloadExtractor extracts a completed download in place and records the
// outcome on it.
type DownloadExtractor interface {
	ExtractDownload(ctx context.Context, id int64) (downloads.Download, error)
}

// Services are the long-lived components shared by every request.
type Services struct {
	Downloads   *downloads.Manager
	Extractions DownloadExtractor
	Extractor   extract.Extractor
	Launcher    *launch.Launcher
	Library     *library.Store
	// ApplyConfig pushes config values that can change at runtime into the
	// running components.
	ApplyConfig func()
}

type RequestEnv struct {
	Context  context.Context
	Platform platforms.Platform
	Config   *config.Instance
	Services *Services
	Params   json.RawMessage
	ID       uuid.UUID
	IsLocal  bool
}
