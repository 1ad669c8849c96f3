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

const DefaultSevenZip = "7z"

type Downloads struct {
	AutoExtract *bool  `toml:"auto_extract,omitempty"`
	SevenZip    string `toml:"seven_zip,omitempty"`
	SpeedLimit  int64  `toml:"speed_limit,omitempty"`
}

// AutoExtract reports whether completed archive downloads are extracted
// automatically. Defaults to true.
func (c *Instance) AutoExtract() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Downloads.AutoExtract == nil {
		return true
	}
	return *c.vals.Downloads.AutoExtract
}

func (c *Instance) SetAutoExtract(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Downloads.AutoExtract = &enabled
}

// SpeedLimit is the download bandwidth cap in bytes per second. Zero or a
// negative value means unlimited.
func (c *Instance) SpeedLimit() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Downloads.SpeedLimit < 0 {
		return 0
	}
	return c.vals.Downloads.SpeedLimit
}

func (c *Instance) SetSpeedLimit(limit int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Downloads.SpeedLimit = limit
}

// SevenZipPath is the 7-Zip binary used for .7z and .rar archives.
func (c *Instance) SevenZipPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Downloads.SevenZip == "" {
		return DefaultSevenZip
	}
	return c.vals.Downloads.SevenZip
}
