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

package scanner

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/hbollon/go-edlib"
)

// auxiliaryMarkers identify installers, uninstallers, crash reporters and
// runtime redistributables that ship next to the real game binary.
var auxiliaryMarkers = []string{
	"unins", "uninstall", "setup", "install", "crashhandler", "crashreport",
	"vc_redist", "vcredist", "dxsetup", "dxwebsetup", "redist", "updater",
	"ue4prereq", "ueprereq", "dotnet", "notification_helper",
}

func isAuxiliary(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, m := range auxiliaryMarkers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

func normalizeTitle(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func candidateStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Rank orders candidates for presentation: real game binaries before
// helper tools, then the platform's preferred kinds, then closeness of the
// file name to the game title, then shallower paths.
func Rank(pl platforms.Platform, candidates []Candidate, title string) []Candidate {
	prefs := pl.PreferredKinds()
	kindRank := func(k platforms.Kind) int {
		if i := slices.Index(prefs, k); i >= 0 {
			return i
		}
		return len(prefs)
	}

	normTitle := normalizeTitle(title)
	similarity := make(map[string]float32, len(candidates))
	for _, c := range candidates {
		if normTitle == "" {
			continue
		}
		similarity[c.Path] = edlib.JaroWinklerSimilarity(normTitle, normalizeTitle(candidateStem(c.Path)))
	}

	ranked := slices.Clone(candidates)
	slices.SortStableFunc(ranked, func(a, b Candidate) int {
		if aa, ba := isAuxiliary(a.Path), isAuxiliary(b.Path); aa != ba {
			if aa {
				return 1
			}
			return -1
		}
		if d := kindRank(a.Kind) - kindRank(b.Kind); d != 0 {
			return d
		}
		if sa, sb := similarity[a.Path], similarity[b.Path]; sa != sb {
			if sa > sb {
				return -1
			}
			return 1
		}
		if d := a.Depth - b.Depth; d != 0 {
			return d
		}
		return strings.Compare(a.Path, b.Path)
	})
	return ranked
}

// Best returns the top ranked candidate.
func Best(pl platforms.Platform, candidates []Candidate, title string) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	return Rank(pl, candidates, title)[0], true
}
