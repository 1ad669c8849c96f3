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
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/ulikunitz/xz"
)

// Engine unpacks one archive into dest, overwriting existing entries.
type Engine interface {
	Extract(ctx context.Context, format Format, archive, dest string) error
}

// NativeEngine handles zip, tar, gzip and xz in-process. Like 7-Zip, a
// compressed tarball is only decompressed, leaving the .tar in dest.
type NativeEngine struct{}

func (NativeEngine) Extract(ctx context.Context, format Format, archive, dest string) error {
	switch format {
	case FormatZip:
		return extractZip(ctx, archive, dest)
	case FormatTar:
		return extractTar(ctx, archive, dest)
	case FormatGzip:
		return decompress(ctx, archive, dest, func(r io.Reader) (io.Reader, error) {
			return gzip.NewReader(r)
		})
	case FormatXz:
		return decompress(ctx, archive, dest, func(r io.Reader) (io.Reader, error) {
			return xz.NewReader(r)
		})
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	//nolint:wrapcheck // passthrough reader
	return c.r.Read(p)
}

// safeJoin resolves an archive entry name inside dest.
func safeJoin(dest, name string) (string, error) {
	name = filepath.FromSlash(strings.ReplaceAll(name, "\\", "/"))
	target := filepath.Join(dest, name)
	if !withinDir(dest, target) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

// clearTarget removes whatever is at path unless it is a directory that
// should stay one, so overwrite-all works across type changes.
func clearTarget(path string, keepDir bool) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if keepDir && info.IsDir() {
		return nil
	}
	if info.IsDir() {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func writeFile(ctx context.Context, path string, r io.Reader, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // game dirs must be traversable
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := clearTarget(path, false); err != nil {
		return err
	}
	if mode == 0 {
		mode = 0o644
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(f, ctxReader{ctx: ctx, r: r}); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	// umask may have masked exec bits the archive recorded
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("failed to set mode on %s: %w", path, err)
	}
	return nil
}

func writeSymlink(dest, path, linkname string) error {
	resolved := linkname
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(path), linkname)
	}
	if filepath.IsAbs(linkname) || !withinDir(dest, resolved) {
		log.Warn().Msgf("skipping symlink pointing outside archive: %s -> %s", path, linkname)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // game dirs must be traversable
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := clearTarget(path, false); err != nil {
		return err
	}
	if err := os.Symlink(linkname, path); err != nil {
		return fmt.Errorf("failed to create symlink %s: %w", path, err)
	}
	return nil
}

func withinDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func extractZip(ctx context.Context, archive, dest string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
	}
	defer func() { _ = zr.Close() }()

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck // cancellation passthrough
		}
		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return err
		}
		mode := f.Mode()

		switch {
		case mode.IsDir():
			if err := clearTarget(target, true); err != nil {
				return err
			}
			if err := os.MkdirAll(target, 0o755); err != nil { //nolint:gosec // game dirs must be traversable
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case mode&fs.ModeSymlink != 0:
			linkname, err := readZipEntry(f)
			if err != nil {
				return err
			}
			if err := writeSymlink(dest, target, linkname); err != nil {
				return err
			}
		default:
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("failed to open zip entry %s: %w", f.Name, err)
			}
			err = writeFile(ctx, target, rc, mode.Perm())
			_ = rc.Close()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func readZipEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open zip entry %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(io.LimitReader(rc, 4096))
	if err != nil {
		return "", fmt.Errorf("failed to read zip entry %s: %w", f.Name, err)
	}
	return string(data), nil
}

func extractTar(ctx context.Context, archive, dest string) error {
	f, err := os.Open(archive) //nolint:gosec // archive path comes from the download record
	if err != nil {
		return fmt.Errorf("failed to open tar: %w", err)
	}
	defer func() { _ = f.Close() }()

	tr := tar.NewReader(ctxReader{ctx: ctx, r: f})
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := clearTarget(target, true); err != nil {
				return err
			}
			if err := os.MkdirAll(target, 0o755); err != nil { //nolint:gosec // game dirs must be traversable
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case tar.TypeReg:
			if err := writeFile(ctx, target, tr, fs.FileMode(hdr.Mode).Perm()); err != nil { //nolint:gosec // mode bits only
				return err
			}
		case tar.TypeSymlink:
			if err := writeSymlink(dest, target, hdr.Linkname); err != nil {
				return err
			}
		case tar.TypeLink:
			source, err := safeJoin(dest, hdr.Linkname)
			if err != nil {
				return err
			}
			if err := copyExisting(ctx, source, target); err != nil {
				return err
			}
		default:
			log.Debug().Msgf("skipping tar entry %s of type %q", hdr.Name, hdr.Typeflag)
		}
	}
}

func copyExisting(ctx context.Context, source, target string) error {
	in, err := os.Open(source) //nolint:gosec // confined by safeJoin
	if err != nil {
		return fmt.Errorf("failed to open hard link source: %w", err)
	}
	defer func() { _ = in.Close() }()
	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat hard link source: %w", err)
	}
	return writeFile(ctx, target, in, info.Mode().Perm())
}

func decompress(
	ctx context.Context,
	archive, dest string,
	open func(io.Reader) (io.Reader, error),
) error {
	f, err := os.Open(archive) //nolint:gosec // archive path comes from the download record
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	r, err := open(f)
	if err != nil {
		return fmt.Errorf("failed to open compressed stream: %w", err)
	}
	if c, ok := r.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	return writeFile(ctx, filepath.Join(dest, decompressedName(archive)), r, 0o644)
}
