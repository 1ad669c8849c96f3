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

package config

import "time"

var AppVersion = "DEVELOPMENT"

const (
	AppName           = "zaparoo-library"
	LogFile           = "library.log"
	CfgFile           = "config.toml"
	DownloadsFile     = "downloads.json"
	LaunchFile        = "launch.toml"
	GameLaunchLog     = "game-launch.log"
	GameErrorLog      = "game-error.log"
	LibraryDir        = "library"
	ArchivesDir       = "archives"
	UserDir           = "user"
	APIPath           = "/api"
	APIRequestTimeout = 30 * time.Second
)
