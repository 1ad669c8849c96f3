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
	"path/filepath"
)

// NativeCommand runs the executable directly, detached from the client.
func NativeCommand(req LaunchRequest) Command {
	return Command{
		Name:   req.Executable,
		Args:   append([]string(nil), req.Args...),
		Dir:    filepath.Dir(req.Executable),
		Env:    LaunchEnv(req.BaseEnv, req.Locale),
		Detach: true,
	}
}

// CompatCommand builds a compatibility launch for the request's provider.
// defaultTemplate is used by the custom provider when no command is set.
func CompatCommand(req LaunchRequest, defaultTemplate string) (Command, error) {
	switch req.Compat.Provider {
	case "", CompatProviderWine:
		return Command{
			Name:   "wine",
			Args:   append([]string{req.Executable}, req.Args...),
			Dir:    filepath.Dir(req.Executable),
			Env:    LaunchEnv(req.BaseEnv, req.Locale),
			Detach: true,
		}, nil
	case CompatProviderCustom:
		template := req.Compat.Command
		if template == "" {
			template = defaultTemplate
		}
		argv, err := ExpandTemplate(template, req.Executable, req.Args)
		if err != nil {
			return Command{}, err
		}
		return Command{
			Name:   argv[0],
			Args:   argv[1:],
			Dir:    filepath.Dir(req.Executable),
			Env:    LaunchEnv(req.BaseEnv, req.Locale),
			Detach: true,
		}, nil
	default:
		return Command{}, fmt.Errorf("%w: %s", ErrUnknownCompatProvider, req.Compat.Provider)
	}
}
