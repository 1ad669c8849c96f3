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

// Package extract unpacks downloaded game archives, including the second
// pass compressed tarballs need.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ZaparooProject/zaparoo-library/pkg/helpers/command"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Extractor is the extraction operation consumed by the service and API.
type Extractor interface {
	Extract(ctx context.Context, archive, dest string) error
}

// expectedMIME lists the content types accepted for each format.
var expectedMIME = map[Format][]string{
	FormatZip:      {"application/zip"},
	FormatTar:      {"application/x-tar"},
	FormatGzip:     {"application/gzip"},
	FormatXz:       {"application/x-xz"},
	FormatSevenZip: {"application/x-7z-compressed"},
	FormatRar:      {"application/x-rar-compressed"},
}

type Pipeline struct {
	native   Engine
	external Engine
	group    singleflight.Group
}

// NewPipeline builds a pipeline that unpacks zip and tar family archives
// natively and hands 7z and rar to the sevenZip binary through exec.
func NewPipeline(exec command.Executor, sevenZip string) *Pipeline {
	return &Pipeline{
		native:   NativeEngine{},
		external: SevenZipEngine{Exec: exec, Binary: sevenZip},
	}
}

func (p *Pipeline) engineFor(format Format) Engine {
	switch format {
	case FormatSevenZip, FormatRar:
		return p.external
	default:
		return p.native
	}
}

// Extract unpacks archive into dest with overwrite-all semantics. When the
// archive is a compressed tarball the intermediate .tar left in dest is
// unpacked too and then deleted. Repeating an extraction is harmless, and
// concurrent requests for the same archive and destination share one run.
func (p *Pipeline) Extract(ctx context.Context, archive, dest string) error {
	key := filepath.Clean(archive) + "\x00" + filepath.Clean(dest)
	_, err, shared := p.group.Do(key, func() (any, error) {
		return nil, p.extract(ctx, archive, dest)
	})
	if shared {
		log.Debug().Msgf("joined in-flight extraction of %s", archive)
	}
	return err //nolint:wrapcheck // already an *Error
}

func (p *Pipeline) extract(ctx context.Context, archive, dest string) error {
	start := time.Now()
	fail := func(op string, err error) error {
		return &Error{Archive: archive, Dest: dest, Op: op, Err: err}
	}

	format, ok := DetectFormat(archive)
	if !ok {
		return fail("detect", ErrUnsupportedFormat)
	}

	info, err := os.Stat(archive)
	if err != nil {
		return fail("open", err)
	}
	if !info.Mode().IsRegular() {
		return fail("open", fmt.Errorf("%s is not a regular file", archive))
	}

	if err := checkContent(archive, format); err != nil {
		return fail("detect", err)
	}

	if err := os.MkdirAll(dest, 0o755); err != nil { //nolint:gosec // game dirs must be traversable
		return fail("prepare", err)
	}

	log.Info().Msgf("extracting %s to %s", archive, dest)
	if err := p.engineFor(format).Extract(ctx, format, archive, dest); err != nil {
		return fail("extract", err)
	}

	if IsCompressedTar(archive) {
		if err := p.secondPass(ctx, archive, dest); err != nil {
			return fail("extract nested tar", err)
		}
	}

	log.Info().Dur("took", time.Since(start)).Msgf("extracted %s", filepath.Base(archive))
	return nil
}

func (p *Pipeline) secondPass(ctx context.Context, archive, dest string) error {
	for _, name := range intermediateNames(archive) {
		inner := filepath.Join(dest, name)
		info, err := os.Stat(inner)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			return fmt.Errorf("failed to inspect %s: %w", inner, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}

		if err := p.native.Extract(ctx, FormatTar, inner, dest); err != nil {
			return err //nolint:wrapcheck // wrapped by caller
		}
		if err := os.Remove(inner); err != nil {
			return fmt.Errorf("failed to remove intermediate %s: %w", inner, err)
		}
		return nil
	}
	log.Debug().Msgf("no intermediate tar found for %s", archive)
	return nil
}

// checkContent rejects files whose content is clearly a different type
// from what the name claims, such as an HTML error page saved as .zip.
// Unrecognised binary content is let through for the engine to judge.
func checkContent(archive string, format Format) error {
	mt, err := mimetype.DetectFile(archive)
	if err != nil {
		return fmt.Errorf("failed to read archive header: %w", err)
	}
	if mimeMatches(mt, expectedMIME[format]) || mt.Is("application/octet-stream") {
		return nil
	}
	return fmt.Errorf("%w: detected %s", ErrContentMismatch, mt.String())
}

func mimeMatches(mt *mimetype.MIME, want []string) bool {
	for m := mt; m != nil; m = m.Parent() {
		for _, w := range want {
			if m.Is(w) {
				return true
			}
		}
	}
	return false
}
