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

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ZaparooProject/zaparoo-library/pkg/config"
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-library/pkg/library"
	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/ZaparooProject/zaparoo-library/pkg/store"
	"github.com/gocarina/gocsv"
	"github.com/spf13/afero"
)

// playtimeRow is one line of the playtime report.
type playtimeRow struct {
	ID         string `csv:"id"`
	Executable string `csv:"executable"`
	LastPlayed string `csv:"last_played"`
	Playtime   int64  `csv:"playtime_seconds"`
}

func playtimeRows(lib *library.Store) []*playtimeRow {
	entries := lib.All()
	rows := make([]*playtimeRow, 0, len(entries))
	for _, e := range entries {
		row := &playtimeRow{
			ID:         e.ID,
			Executable: e.Executable,
			Playtime:   e.Playtime,
		}
		if e.LastPlayed != nil {
			row.LastPlayed = e.LastPlayed.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	return rows
}

func writePlaytime(lib *library.Store, w io.Writer) error {
	if err := gocsv.Marshal(playtimeRows(lib), w); err != nil {
		return fmt.Errorf("failed to write playtime csv: %w", err)
	}
	return nil
}

// ExportPlaytime writes the playtime report read straight from the launch
// config document, so the daemon does not need to be running. A path of
// "-" writes to stdout.
func ExportPlaytime(pl platforms.Platform, path string) error {
	doc := store.NewDocument[library.Document](
		afero.NewOsFs(),
		filepath.Join(helpers.DataDir(pl), config.LaunchFile),
		store.TOML,
	)
	lib := library.NewStore(doc)

	if path == "-" {
		return writePlaytime(lib, os.Stdout)
	}

	f, err := os.Create(path) //nolint:gosec // user chosen output path
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := writePlaytime(lib, f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
