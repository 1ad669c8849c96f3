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
	"fmt"
	"strings"
)

// ExePlaceholder is replaced with the executable path in compatibility
// command templates.
const ExePlaceholder = "%EXE%"

// SplitCommand tokenises a command template on whitespace. Double quoted
// sections are kept as one token with the quotes removed.
func SplitCommand(s string) ([]string, error) {
	var (
		tokens  []string
		cur     strings.Builder
		inQuote bool
		started bool
	)

	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			started = true
		case !inQuote && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			if started {
				tokens = append(tokens, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}

	if inQuote {
		return nil, fmt.Errorf("%w: %s", ErrUnterminatedQuote, s)
	}
	if started {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

// ExpandTemplate builds argv from a compatibility command template. Every
// %EXE% occurrence is replaced with exe; without a placeholder exe is
// appended as the last positional argument. Caller args always follow.
func ExpandTemplate(template, exe string, args []string) ([]string, error) {
	tokens, err := SplitCommand(template)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, ErrEmptyCompatCommand
	}

	argv := make([]string, 0, len(tokens)+len(args)+1)
	found := false
	for _, tok := range tokens {
		if strings.Contains(tok, ExePlaceholder) {
			found = true
			tok = strings.ReplaceAll(tok, ExePlaceholder, exe)
		}
		argv = append(argv, tok)
	}
	if !found {
		argv = append(argv, exe)
	}
	return append(argv, args...), nil
}
