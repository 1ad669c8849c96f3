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

// Package platforms defines the per-OS strategy used to classify game
// executables and to build the command that launches them. One strategy is
// selected at build time in each cmd/<os> main package.
package platforms

import (
	"errors"
	"io/fs"
)

var (
	ErrNotSupported            = errors.New("operation not supported on this platform")
	ErrUnknownCompatProvider   = errors.New("unknown compatibility provider")
	ErrEmptyCompatCommand      = errors.New("compatibility command is empty")
	ErrUnterminatedQuote       = errors.New("unterminated quote in command")
	ErrMissingLaunchExecutable = errors.New("launch request has no executable")
)

const (
	PlatformIDLinux   = "linux"
	PlatformIDMac     = "mac"
	PlatformIDWindows = "windows"
)

const (
	CompatProviderWine   = "wine"
	CompatProviderCustom = "custom"
)

// Kind classifies an executable candidate found in an extracted game.
type Kind string

const (
	KindNativeBinary Kind = "native-binary"
	KindWindowsExe   Kind = "windows-exe"
	KindMacApp       Kind = "mac-app"
	KindMacBinary    Kind = "mac-binary"
)

// Settings holds the platform's well known directories.
type Settings struct {
	DataDir   string
	ConfigDir string
	TempDir   string
}

// Compat selects how a compatibility launch is performed.
type Compat struct {
	Provider string
	Command  string
}

// LaunchRequest is everything the command builder needs to launch one game.
type LaunchRequest struct {
	Executable string
	Locale     string
	Compat     Compat
	Args       []string
	// BaseEnv is the environment the game inherits. When nil the current
	// process environment is used.
	BaseEnv   []string
	UseCompat bool
}

// Command is a fully resolved process invocation. Detach means the game
// should run in its own process group so it is not torn down with the
// library client's terminal or job.
type Command struct {
	Name   string
	Dir    string
	Args   []string
	Env    []string
	Detach bool
}

// Platform is the OS-specific launch and discovery strategy.
type Platform interface {
	// ID returns the unique ID of this platform.
	ID() string
	// Settings returns the platform's data, config and temp directories.
	Settings() Settings
	// ClassifyExecutable reports whether a regular file is a launchable
	// candidate and what kind it is.
	ClassifyExecutable(path string, info fs.FileInfo) (Kind, bool)
	// ClassifyDirectory reports whether a directory is itself a launchable
	// unit, such as a macOS application bundle. Such directories are never
	// descended into.
	ClassifyDirectory(path string) (Kind, bool)
	// BuildLaunchCommand turns a launch request into a process invocation.
	BuildLaunchCommand(req LaunchRequest) (Command, error)
	// ShortcutPath returns where a desktop shortcut named name would live.
	ShortcutPath(name string) string
	// PreferredKinds lists candidate kinds from most to least preferred
	// when picking a default executable.
	PreferredKinds() []Kind
	// DefaultCompatCommand is the template used by the custom compatibility
	// provider when the user has not configured one.
	DefaultCompatCommand() string
}

// ShortcutCreator is implemented by platforms that can write a desktop
// shortcut for a game. It returns the path of the created shortcut.
type ShortcutCreator interface {
	CreateShortcut(name string, req LaunchRequest) (string, error)
}

// ExecutablePreparer is implemented by platforms that need to fix up an
// executable before it can be spawned.
type ExecutablePreparer interface {
	PrepareExecutable(path string) error
}
