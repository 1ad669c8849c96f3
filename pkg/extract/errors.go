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

package extract

import (
	"errors"
	"fmt"
	"path/filepath"
)

var (
	ErrUnsupportedFormat   = errors.New("unsupported archive format")
	ErrContentMismatch     = errors.New("file content does not match archive type")
	ErrUnsafePath          = errors.New("archive entry escapes destination")
	ErrSevenZipUnavailable = errors.New("7-Zip is not installed")
)

// Error describes a failed extraction. Op is the stage that failed.
type Error struct {
	Err     error
	Archive string
	Dest    string
	Op      string
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract %s: %s: %v", filepath.Base(e.Archive), e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
