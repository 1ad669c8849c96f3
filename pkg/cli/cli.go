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

// Package cli holds the flag handling shared by every platform binary.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZaparooProject/zaparoo-library/internal/telemetry"
	"github.com/ZaparooProject/zaparoo-library/pkg/api/client"
	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-library/pkg/config"
	"github.com/ZaparooProject/zaparoo-library/pkg/downloads"
	"github.com/ZaparooProject/zaparoo-library/pkg/extract"
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const waitPollInterval = time.Second

var errDownloadFailed = errors.New("download did not complete")

type Flags struct {
	set            *flag.FlagSet
	Version        *bool
	API            *string
	Download       *string
	Title          *string
	Wait           *bool
	Extract        *string
	Scan           *string
	Launch         *string
	Stop           *string
	Shortcut       *string
	Running        *bool
	Reload         *bool
	ExportPlaytime *string
}

// SetupFlags defines all common CLI flags between platforms on the default
// command line.
func SetupFlags() *Flags {
	return NewFlags(flag.CommandLine)
}

func NewFlags(set *flag.FlagSet) *Flags {
	return &Flags{
		set: set,
		Version: set.Bool(
			"version",
			false,
			"print version and exit",
		),
		API: set.String(
			"api",
			"",
			"send method and params to API and print response",
		),
		Download: set.String(
			"download",
			"",
			"download a URL into the library",
		),
		Title: set.String(
			"title",
			"",
			"display title for -download, or shortcut name for -shortcut",
		),
		Wait: set.Bool(
			"wait",
			false,
			"with -download, block until the download and any extraction finish",
		),
		Extract: set.String(
			"extract",
			"",
			"extract an archive next to itself",
		),
		Scan: set.String(
			"scan",
			"",
			"list launchable executables in a directory",
		),
		Launch: set.String(
			"launch",
			"",
			"launch the saved config of a library item",
		),
		Stop: set.String(
			"stop",
			"",
			"stop a running library item",
		),
		Shortcut: set.String(
			"shortcut",
			"",
			"create a desktop shortcut for the saved config of a library item",
		),
		Running: set.Bool(
			"running",
			false,
			"list running games",
		),
		Reload: set.Bool(
			"reload",
			false,
			"reload config from disk",
		),
		ExportPlaytime: set.String(
			"export-playtime",
			"",
			"write playtime of every library item to a CSV file",
		),
	}
}

func (f *Flags) passed(name string) bool {
	found := false
	f.set.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

// Pre runs flag parsing and actions any immediate flags that don't
// require environment setup. Add any custom flags before running this.
func (f *Flags) Pre(pl platforms.Platform) {
	if !f.set.Parsed() {
		_ = f.set.Parse(os.Args[1:])
	}

	if *f.Version {
		_, _ = fmt.Printf("Zaparoo Library v%s (%s)\n", config.AppVersion, pl.ID())
		os.Exit(0)
	}
}

// Post actions all remaining common flags that require the environment to be
// set up. Logging is allowed. Returns normally when no action flag is set.
func (f *Flags) Post(cfg *config.Instance, pl platforms.Platform) {
	handled, err := f.Run(context.Background(), client.NewLocalAPIClient(cfg), cfg, pl, os.Stdout)
	if !handled {
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("cli action failed")
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

func marshalParams(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("error encoding params: %w", err)
	}
	return string(data), nil
}

func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", path, err)
	}
	return abs, nil
}

// call runs one API method and writes the raw JSON result to out.
func call(ctx context.Context, api client.APIClient, out io.Writer, method string, params any) error {
	ps := ""
	if params != nil {
		var err error
		if ps, err = marshalParams(params); err != nil {
			return err
		}
	}
	resp, err := api.Call(ctx, method, ps)
	if err != nil {
		return fmt.Errorf("error calling %s: %w", method, err)
	}
	_, _ = fmt.Fprintln(out, resp)
	return nil
}

// Run performs the action selected by the flags. handled is false when no
// action flag was given and the caller should carry on starting the app.
func (f *Flags) Run(
	ctx context.Context,
	api client.APIClient,
	cfg *config.Instance,
	pl platforms.Platform,
	out io.Writer,
) (handled bool, err error) {
	switch {
	case f.passed("api"):
		if *f.API == "" {
			return true, errors.New("api flag requires a value")
		}
		method, params, _ := strings.Cut(*f.API, ":")
		resp, err := api.Call(ctx, method, params)
		if err != nil {
			return true, fmt.Errorf("error calling API: %w", err)
		}
		_, _ = fmt.Fprintln(out, resp)
		return true, nil
	case f.passed("download"):
		return true, f.download(ctx, api, cfg, out)
	case f.passed("extract"):
		path, err := absPath(*f.Extract)
		if err != nil {
			return true, err
		}
		return true, call(ctx, api, out, models.MethodDownloadsExtract, models.ExtractParams{Path: path})
	case f.passed("scan"):
		path, err := absPath(*f.Scan)
		if err != nil {
			return true, err
		}
		return true, call(ctx, api, out, models.MethodLibraryScan, models.ScanParams{Path: path})
	case f.passed("launch"):
		id := *f.Launch
		return true, call(ctx, api, out, models.MethodGamesLaunch, models.LaunchGameParams{ID: &id})
	case f.passed("stop"):
		return true, call(ctx, api, out, models.MethodGamesStop, models.GameIDParams{ID: *f.Stop})
	case f.passed("shortcut"):
		params := models.GameShortcutParams{ID: *f.Shortcut}
		if f.passed("title") {
			params.Name = f.Title
		}
		return true, call(ctx, api, out, models.MethodGamesShortcut, params)
	case *f.Running:
		return true, call(ctx, api, out, models.MethodGamesRunning, nil)
	case *f.Reload:
		return true, call(ctx, api, out, models.MethodSettingsReload, nil)
	case f.passed("export-playtime"):
		return true, ExportPlaytime(pl, *f.ExportPlaytime)
	}
	return false, nil
}

func (f *Flags) download(ctx context.Context, api client.APIClient, cfg *config.Instance, out io.Writer) error {
	if *f.Download == "" {
		return errors.New("download flag requires a value")
	}
	params := models.CaptureDownloadParams{URL: *f.Download}
	if *f.Title != "" {
		params.Title = f.Title
	}
	ps, err := marshalParams(params)
	if err != nil {
		return err
	}
	resp, err := api.Call(ctx, models.MethodDownloadsCapture, ps)
	if err != nil {
		return fmt.Errorf("error starting download: %w", err)
	}
	var capture models.CaptureResponse
	if err := json.Unmarshal([]byte(resp), &capture); err != nil {
		return fmt.Errorf("invalid capture response: %w", err)
	}
	_, _ = fmt.Fprintf(out, "download %d started\n", capture.ID)

	if !*f.Wait {
		return nil
	}
	d, err := waitForDownload(ctx, api, capture.ID, cfg.AutoExtract(), waitPollInterval)
	if err != nil {
		return err
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("error encoding download: %w", err)
	}
	_, _ = fmt.Fprintln(out, string(data))
	if d.Status != downloads.StatusCompleted {
		return fmt.Errorf("%w: %s %s", errDownloadFailed, d.Status, d.Error)
	}
	return nil
}

// downloadSettled reports whether nothing more will happen to d, including
// an automatic extraction of a completed archive.
func downloadSettled(d *downloads.Download, autoExtract bool) bool {
	if !d.Status.Terminal() || d.Extracting {
		return false
	}
	if d.Status == downloads.StatusCompleted && autoExtract && extract.IsArchive(d.SavePath) {
		return d.ExtractedPath != "" || d.ExtractError != ""
	}
	return true
}

// waitForDownload polls the download list until the record settles.
func waitForDownload(
	ctx context.Context,
	api client.APIClient,
	id int64,
	autoExtract bool,
	interval time.Duration,
) (downloads.Download, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		resp, err := api.Call(ctx, models.MethodDownloads, "")
		if err != nil {
			return downloads.Download{}, fmt.Errorf("error listing downloads: %w", err)
		}
		var list []downloads.Download
		if err := json.Unmarshal([]byte(resp), &list); err != nil {
			return downloads.Download{}, fmt.Errorf("invalid downloads response: %w", err)
		}
		found := false
		for i := range list {
			if list[i].ID != id {
				continue
			}
			found = true
			if downloadSettled(&list[i], autoExtract) {
				return list[i], nil
			}
		}
		if !found {
			return downloads.Download{}, fmt.Errorf("download %d was removed", id)
		}

		select {
		case <-ctx.Done():
			return downloads.Download{}, fmt.Errorf("wait cancelled: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Setup initializes the user config and logging. Returns a user config object.
//
//nolint:gocritic // config struct copied for immutability
func Setup(
	pl platforms.Platform,
	defaultConfig config.Values,
	writers []io.Writer,
) *config.Instance {
	err := helpers.EnsureDirectories(pl)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error creating directories: %v\n", err)
		os.Exit(1)
	}

	err = helpers.InitLogging(pl, writers)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.NewConfig(helpers.ConfigDir(pl), defaultConfig)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := telemetry.Init(
		cfg.ErrorReporting(),
		cfg.ErrorReportingDSN(),
		cfg.DeviceID(),
		config.AppVersion,
		pl.ID(),
	); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg
}
