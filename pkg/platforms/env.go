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

package platforms

import (
	"os"
	"strings"
)

// runtimeOnlyEnv are variables that only make sense for the library
// client's own runtime and must not leak into games.
var runtimeOnlyEnv = []string{"GODEBUG", "GOTRACEBACK"}

// LaunchEnv derives a game's environment from base. Runtime diagnostic
// variables are stripped and, when locale is set, LANG and LC_ALL are
// overridden with it.
func LaunchEnv(base []string, locale string) []string {
	if base == nil {
		base = os.Environ()
	}

	env := make([]string, 0, len(base)+2)
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if containsFold(runtimeOnlyEnv, key) {
			continue
		}
		if locale != "" && (key == "LANG" || key == "LC_ALL") {
			continue
		}
		env = append(env, kv)
	}

	if locale != "" {
		env = append(env, "LANG="+locale, "LC_ALL="+locale)
	}
	return env
}

func containsFold(xs []string, s string) bool {
	for _, x := range xs {
		if strings.EqualFold(x, s) {
			return true
		}
	}
	return false
}
