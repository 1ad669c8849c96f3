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

// Package scanner discovers launchable executables inside an extracted
// game directory.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZaparooProject/zaparoo-library/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/charlievieth/fastwalk"
	"github.com/rs/zerolog/log"
)

const DefaultMaxDepth = 3

// Candidate is one launchable executable found by a scan.
type Candidate struct {
	Path  string         `json:"path"`
	Kind  platforms.Kind `json:"kind"`
	Depth int            `json:"depth"`
}

type Options struct {
	// MaxDepth is the deepest directory level whose entries are inspected,
	// counting the root's direct children as depth 1.
	MaxDepth int
}

// skipName reports archive and OS metadata entries that never contain a
// game.
func skipName(name string) bool {
	if name == "" || name[0] == '.' {
		return true
	}
	switch {
	case name == "__MACOSX":
		return true
	case strings.HasPrefix(name, "PaxHeader"):
		return true
	case name == "@LongLink":
		return true
	}
	return false
}

// Scan walks root and returns every entry the platform classifies as
// launchable. Unreadable entries are skipped and an inaccessible root
// yields an empty result. Results are unordered.
func Scan(ctx context.Context, pl platforms.Platform, root string, opts Options) []Candidate {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	root = filepath.Clean(root)
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		log.Debug().Err(err).Msgf("scan root not accessible: %s", root)
		return []Candidate{}
	}

	var (
		mu      syncutil.Mutex
		results = make([]Candidate, 0)
	)
	add := func(c Candidate) {
		mu.Lock()
		results = append(results, c)
		mu.Unlock()
	}

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			log.Debug().Err(err).Msgf("skipping unreadable entry: %s", path)
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		depth := relDepth(root, path)
		isDir := d.IsDir()
		if skipName(d.Name()) || depth > maxDepth {
			if isDir {
				return fs.SkipDir
			}
			return nil
		}

		if isDir {
			if kind, ok := pl.ClassifyDirectory(path); ok {
				add(Candidate{Path: path, Kind: kind, Depth: depth})
				return fs.SkipDir
			}
			if depth >= maxDepth {
				return fs.SkipDir
			}
			return nil
		}

		info, err := entryInfo(path, d)
		if err != nil {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		if kind, ok := pl.ClassifyExecutable(path, info); ok {
			add(Candidate{Path: path, Kind: kind, Depth: depth})
		}
		return nil
	})
	if err != nil {
		log.Debug().Err(err).Msgf("scan of %s stopped early", root)
	}

	return results
}

// entryInfo returns file info for an entry, resolving symlinks so a link
// to a game binary is classified by its target.
func entryInfo(path string, d fs.DirEntry) (fs.FileInfo, error) {
	if d.Type()&fs.ModeSymlink != 0 {
		//nolint:wrapcheck // caller only checks for failure
		return os.Stat(path)
	}
	//nolint:wrapcheck // caller only checks for failure
	return d.Info()
}

func relDepth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}
