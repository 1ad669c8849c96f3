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

import "path/filepath"

const (
	DefaultScanDepth = 3
	MaxScanDepth     = 8

	CompatProviderWine   = "wine"
	CompatProviderCustom = "custom"
)

type Library struct {
	KeepArchives *bool  `toml:"keep_archives,omitempty"`
	Root         string `toml:"root,omitempty"`
	ScanDepth    int    `toml:"scan_depth,omitempty"`
}

// Compat selects how Windows executables are run on Linux and macOS.
// Command is only used by the custom provider and may contain the %EXE%
// placeholder; an empty command means the platform's default template.
type Compat struct {
	Provider string `toml:"provider,omitempty"`
	Command  string `toml:"command,omitempty"`
}

func validCompatProvider(p string) bool {
	return p == "" || p == CompatProviderWine || p == CompatProviderCustom
}

// LibraryRoot returns the configured library root, or defaultRoot when none
// is set. Relative roots are resolved against defaultRoot's parent.
func (c *Instance) LibraryRoot(defaultRoot string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	root := c.vals.Library.Root
	switch {
	case root == "":
		return defaultRoot
	case filepath.IsAbs(root):
		return filepath.Clean(root)
	default:
		return filepath.Join(filepath.Dir(defaultRoot), root)
	}
}

func (c *Instance) SetLibraryRoot(root string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Library.Root = root
}

// ScanDepth is the maximum directory depth the executable scanner descends.
func (c *Instance) ScanDepth() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	depth := c.vals.Library.ScanDepth
	switch {
	case depth <= 0:
		return DefaultScanDepth
	case depth > MaxScanDepth:
		return MaxScanDepth
	default:
		return depth
	}
}

func (c *Instance) SetScanDepth(depth int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Library.ScanDepth = depth
}

// KeepArchives reports whether archives are moved into the archives folder
// after a successful extraction. Defaults to true.
func (c *Instance) KeepArchives() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Library.KeepArchives == nil {
		return true
	}
	return *c.vals.Library.KeepArchives
}

func (c *Instance) SetKeepArchives(keep bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Library.KeepArchives = &keep
}

func (c *Instance) CompatProvider() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Compat.Provider == "" {
		return CompatProviderWine
	}
	return c.vals.Compat.Provider
}

// SetCompatProvider returns false and leaves the value unchanged when the
// provider is unknown.
func (c *Instance) SetCompatProvider(provider string) bool {
	if !validCompatProvider(provider) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Compat.Provider = provider
	return true
}

func (c *Instance) CompatCommand() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Compat.Command
}

func (c *Instance) SetCompatCommand(command string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Compat.Command = command
}
