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

package mocks

import (
	"fmt"
	"io/fs"

	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/stretchr/testify/mock"
)

// MockPlatform is a mock implementation of the Platform interface using testify/mock
type MockPlatform struct {
	mock.Mock
}

func (m *MockPlatform) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockPlatform) Settings() platforms.Settings {
	args := m.Called()
	if settings, ok := args.Get(0).(platforms.Settings); ok {
		return settings
	}
	return platforms.Settings{}
}

func (m *MockPlatform) ClassifyExecutable(path string, info fs.FileInfo) (platforms.Kind, bool) {
	args := m.Called(path, info)
	kind, _ := args.Get(0).(platforms.Kind)
	return kind, args.Bool(1)
}

func (m *MockPlatform) ClassifyDirectory(path string) (platforms.Kind, bool) {
	args := m.Called(path)
	kind, _ := args.Get(0).(platforms.Kind)
	return kind, args.Bool(1)
}

func (m *MockPlatform) BuildLaunchCommand(req platforms.LaunchRequest) (platforms.Command, error) {
	args := m.Called(req)
	var cmd platforms.Command
	switch v := args.Get(0).(type) {
	case func(platforms.LaunchRequest) platforms.Command:
		cmd = v(req)
	case platforms.Command:
		cmd = v
	}
	if err := args.Error(1); err != nil {
		return cmd, fmt.Errorf("mock platform build launch command failed: %w", err)
	}
	return cmd, nil
}

func (m *MockPlatform) ShortcutPath(name string) string {
	args := m.Called(name)
	return args.String(0)
}

func (m *MockPlatform) PreferredKinds() []platforms.Kind {
	args := m.Called()
	if kinds, ok := args.Get(0).([]platforms.Kind); ok {
		return kinds
	}
	return nil
}

func (m *MockPlatform) DefaultCompatCommand() string {
	args := m.Called()
	return args.String(0)
}

// MockShortcutPlatform is a MockPlatform that can also create shortcuts.
type MockShortcutPlatform struct {
	MockPlatform
}

func (m *MockShortcutPlatform) CreateShortcut(name string, req platforms.LaunchRequest) (string, error) {
	args := m.Called(name, req)
	if err := args.Error(1); err != nil {
		return "", fmt.Errorf("mock platform create shortcut failed: %w", err)
	}
	return args.String(0), nil
}

// NewMockPlatform creates a new mock platform instance
func NewMockPlatform() *MockPlatform {
	return &MockPlatform{}
}

// SetupBasicMock registers permissive defaults for the calls most tests do
// not care about. Native commands are built exactly like the real
// platforms build them.
func (m *MockPlatform) SetupBasicMock() {
	m.On("ID").Return("mock").Maybe()
	m.On("Settings").Return(platforms.Settings{}).Maybe()
	m.On("PreferredKinds").Return([]platforms.Kind{platforms.KindNativeBinary}).Maybe()
	m.On("DefaultCompatCommand").Return("compat %EXE%").Maybe()
	m.On("ShortcutPath", mock.Anything).Return("").Maybe()
	m.On("BuildLaunchCommand", mock.Anything).Return(
		func(req platforms.LaunchRequest) platforms.Command {
			return platforms.NativeCommand(req)
		},
		nil,
	).Maybe()
}
