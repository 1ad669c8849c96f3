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

// Package store persists small human-readable documents (JSON or TOML) as a
// whole, with atomic replacement on every write.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZaparooProject/zaparoo-library/pkg/helpers/syncutil"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

// Codec encodes a document to and from bytes.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}
	return append(data, '\n'), nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json unmarshal: %w", err)
	}
	return nil
}

type tomlCodec struct{}

func (tomlCodec) Marshal(v any) ([]byte, error) {
	data, err := toml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("toml marshal: %w", err)
	}
	return data, nil
}

func (tomlCodec) Unmarshal(data []byte, v any) error {
	if err := toml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("toml unmarshal: %w", err)
	}
	return nil
}

var (
	JSON Codec = jsonCodec{}
	TOML Codec = tomlCodec{}
)

// Document is one file holding a value of type T. All access goes through
// a single lock, and Update re-reads the file before applying a change so
// writers never overwrite each other with stale snapshots.
type Document[T any] struct {
	fs    afero.Fs
	codec Codec
	path  string
	mu    syncutil.Mutex
}

func NewDocument[T any](fs afero.Fs, path string, codec Codec) *Document[T] {
	return &Document[T]{
		fs:    fs,
		path:  path,
		codec: codec,
	}
}

func (d *Document[T]) Path() string {
	return d.path
}

// Load reads the document. A missing or empty file yields the zero value.
func (d *Document[T]) Load() (T, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.load()
}

// Save replaces the document on disk with v.
func (d *Document[T]) Save(v T) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.save(v)
}

// Update loads the current document, applies fn and writes the result. If
// fn returns an error nothing is written.
func (d *Document[T]) Update(fn func(*T) error) (T, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := d.load()
	if err != nil {
		return v, err
	}
	if err := fn(&v); err != nil {
		return v, err
	}
	return v, d.save(v)
}

func (d *Document[T]) load() (T, error) {
	var v T
	data, err := afero.ReadFile(d.fs, d.path)
	if errors.Is(err, os.ErrNotExist) {
		return v, nil
	} else if err != nil {
		return v, fmt.Errorf("failed to read %s: %w", d.path, err)
	}
	if len(data) == 0 {
		return v, nil
	}
	if err := d.codec.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("failed to decode %s: %w", d.path, err)
	}
	return v, nil
}

func (d *Document[T]) save(v T) error {
	data, err := d.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", d.path, err)
	}

	dir := filepath.Dir(d.path)
	if err := d.fs.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(d.fs, dir, "."+filepath.Base(d.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		_ = d.fs.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", d.path, errors.Join(werr, cerr))
	}

	if err := d.fs.Rename(tmpName, d.path); err != nil {
		_ = d.fs.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", d.path, err)
	}
	return nil
}
