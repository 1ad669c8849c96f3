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
	"path/filepath"
	"strings"
)

// Format identifies how an archive is unpacked.
type Format string

const (
	FormatZip      Format = "zip"
	FormatTar      Format = "tar"
	FormatGzip     Format = "gzip"
	FormatXz       Format = "xz"
	FormatSevenZip Format = "7z"
	FormatRar      Format = "rar"
)

type suffixFormat struct {
	suffix string
	format Format
}

// suffixes is ordered so compound suffixes match before their tails.
var suffixes = []suffixFormat{
	{".tar.gz", FormatGzip},
	{".tar.xz", FormatXz},
	{".tgz", FormatGzip},
	{".zip", FormatZip},
	{".tar", FormatTar},
	{".gz", FormatGzip},
	{".7z", FormatSevenZip},
	{".rar", FormatRar},
}

var compressedTarSuffixes = []string{".tar.gz", ".tar.xz", ".tgz"}

func matchSuffix(name string) (suffixFormat, bool) {
	lower := strings.ToLower(filepath.Base(name))
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) && len(lower) > len(s.suffix) {
			return s, true
		}
	}
	return suffixFormat{}, false
}

// DetectFormat picks the format from the file name alone.
func DetectFormat(name string) (Format, bool) {
	s, ok := matchSuffix(name)
	return s.format, ok
}

// IsArchive reports whether the file name has a supported archive suffix.
func IsArchive(name string) bool {
	_, ok := matchSuffix(name)
	return ok
}

// IsCompressedTar reports whether unpacking the file leaves an intermediate
// tarball that needs a second pass.
func IsCompressedTar(name string) bool {
	lower := strings.ToLower(filepath.Base(name))
	for _, s := range compressedTarSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// Stem strips the recognised archive suffix from the file's base name.
func Stem(name string) string {
	base := filepath.Base(name)
	s, ok := matchSuffix(base)
	if !ok {
		return base
	}
	return base[:len(base)-len(s.suffix)]
}

// DefaultDestination is the folder next to the archive named after it
// without its archive suffix.
func DefaultDestination(archive string) string {
	return filepath.Join(filepath.Dir(archive), Stem(archive))
}

// intermediateNames are the file names a single decompression pass of a
// compressed tarball may leave behind.
func intermediateNames(archive string) []string {
	base := filepath.Base(archive)
	names := []string{Stem(base) + ".tar"}
	if lower := strings.ToLower(base); strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tar.xz") {
		alt := base[:len(base)-3]
		if alt != names[0] {
			names = append(names, alt)
		}
	}
	return names
}

// decompressedName is the output name for a single-stream .gz or .xz file.
func decompressedName(archive string) string {
	if IsCompressedTar(archive) {
		return Stem(archive) + ".tar"
	}
	base := filepath.Base(archive)
	return base[:len(base)-len(filepath.Ext(base))]
}
