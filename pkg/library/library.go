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

// Package library keeps the per-item launch configuration document:
// which executable to start, how, and how long it has been played.
package library

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/ZaparooProject/zaparoo-library/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/ZaparooProject/zaparoo-library/pkg/store"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var (
	ErrNotFound           = errors.New("launch config not found")
	ErrExecutableRequired = errors.New("executable is required")
	ErrNotAbsolute        = errors.New("executable must be an absolute path")
	ErrOutsideInstallDir  = errors.New("executable is not inside the install directory")
	ErrExecutableOwned    = errors.New("executable already belongs to another item")
	ErrExecutableMissing  = errors.New("executable does not exist or is not launchable")
)

// LaunchConfig is how one library item is started. Playtime and LastPlayed
// belong to the process tracker and are never taken from callers saving a
// config.
type LaunchConfig struct {
	LastPlayed *time.Time `json:"lastPlayed,omitempty" toml:"last_played,omitempty"`
	Executable string     `json:"executable" toml:"executable"`
	Locale     string     `json:"locale,omitempty" toml:"locale,omitempty"`
	Engine     string     `json:"engine,omitempty" toml:"engine,omitempty"`
	Args       []string   `json:"args,omitempty" toml:"args,omitempty"`
	Playtime   int64      `json:"playtime,omitempty" toml:"playtime,omitempty"`
	UseCompat  bool       `json:"useCompat" toml:"use_compat"`
}

// Entry is a config together with the item it belongs to.
type Entry struct {
	ID string
	LaunchConfig
}

type Document struct {
	Items map[string]LaunchConfig `toml:"items"`
}

type Store struct {
	doc      *store.Document[Document]
	fs       afero.Fs
	platform platforms.Platform
}

type Option func(*Store)

// WithFs sets the filesystem executables are checked on when saving.
func WithFs(fs afero.Fs) Option {
	return func(s *Store) {
		s.fs = fs
	}
}

// WithPlatform lets Save accept directories the platform launches as a
// unit, such as macOS application bundles.
func WithPlatform(pl platforms.Platform) Option {
	return func(s *Store) {
		s.platform = pl
	}
}

func NewStore(doc *store.Document[Document], opts ...Option) *Store {
	s := &Store{doc: doc, fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) load() Document {
	d, err := s.doc.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load launch configs")
		return Document{}
	}
	return d
}

func (s *Store) Get(id string) (LaunchConfig, bool) {
	cfg, ok := s.load().Items[id]
	return cfg, ok
}

// All returns every entry sorted by item id.
func (s *Store) All() []Entry {
	items := s.load().Items
	out := make([]Entry, 0, len(items))
	for id, cfg := range items {
		out = append(out, Entry{ID: id, LaunchConfig: cfg})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// FindOwner is the reverse lookup from an executable path to its item.
func (s *Store) FindOwner(executable string) (string, bool) {
	return findOwner(s.load(), executable)
}

func findOwner(d Document, executable string) (string, bool) {
	for id, cfg := range d.Items {
		if cfg.Executable != "" && helpers.SamePath(cfg.Executable, executable) {
			return id, true
		}
	}
	return "", false
}

// Save validates and stores cfg for the item installed at installDir. The
// executable must be an existing file (or launchable directory) inside
// installDir and not already used by another item. It is not checked again
// at launch. Stored playtime and last played are kept.
//
//nolint:gocritic // config passed by value so callers cannot alias it
func (s *Store) Save(id, installDir string, cfg LaunchConfig) (LaunchConfig, error) {
	if cfg.Executable == "" {
		return LaunchConfig{}, ErrExecutableRequired
	}
	if !filepath.IsAbs(cfg.Executable) {
		return LaunchConfig{}, fmt.Errorf("%w: %s", ErrNotAbsolute, cfg.Executable)
	}
	if !helpers.PathHasPrefix(cfg.Executable, installDir) {
		return LaunchConfig{}, fmt.Errorf("%w: %s", ErrOutsideInstallDir, installDir)
	}
	cfg.Executable = filepath.Clean(cfg.Executable)
	if err := s.checkExecutable(cfg.Executable); err != nil {
		return LaunchConfig{}, err
	}

	var saved LaunchConfig
	_, err := s.doc.Update(func(d *Document) error {
		if owner, ok := findOwner(*d, cfg.Executable); ok && owner != id {
			return fmt.Errorf("%w: %s", ErrExecutableOwned, owner)
		}
		if d.Items == nil {
			d.Items = make(map[string]LaunchConfig)
		}
		prev := d.Items[id]
		cfg.Playtime = prev.Playtime
		cfg.LastPlayed = prev.LastPlayed
		d.Items[id] = cfg
		saved = cfg
		return nil
	})
	if err != nil {
		return LaunchConfig{}, fmt.Errorf("failed to save launch config: %w", err)
	}
	return saved, nil
}

func (s *Store) checkExecutable(path string) error {
	info, err := s.fs.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrExecutableMissing, path)
	}
	if info.Mode().IsRegular() {
		return nil
	}
	if info.IsDir() && s.platform != nil {
		if _, ok := s.platform.ClassifyDirectory(path); ok {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrExecutableMissing, path)
}

// Delete removes the config for id.
func (s *Store) Delete(id string) error {
	_, err := s.doc.Update(func(d *Document) error {
		if _, ok := d.Items[id]; !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		delete(d.Items, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete launch config: %w", err)
	}
	return nil
}

// Touch stamps the last played time of an existing item.
func (s *Store) Touch(id string, at time.Time) error {
	return s.modify(id, func(cfg *LaunchConfig) {
		cfg.LastPlayed = &at
	})
}

// AddPlaytime adds seconds to the item's accumulated playtime. The document
// is re-read first so concurrent sessions never lose each other's time.
func (s *Store) AddPlaytime(id string, seconds int64) error {
	if seconds <= 0 {
		return nil
	}
	return s.modify(id, func(cfg *LaunchConfig) {
		cfg.Playtime += seconds
	})
}

func (s *Store) modify(id string, fn func(*LaunchConfig)) error {
	_, err := s.doc.Update(func(d *Document) error {
		cfg, ok := d.Items[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		fn(&cfg)
		d.Items[id] = cfg
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update launch config: %w", err)
	}
	return nil
}
