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

// Package service runs the library daemon: download manager, extraction
// runner, game launcher and the API that fronts them.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZaparooProject/zaparoo-library/pkg/api"
	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-library/pkg/api/models/requests"
	"github.com/ZaparooProject/zaparoo-library/pkg/config"
	"github.com/ZaparooProject/zaparoo-library/pkg/downloads"
	"github.com/ZaparooProject/zaparoo-library/pkg/downloads/httpengine"
	"github.com/ZaparooProject/zaparoo-library/pkg/extract"
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers/command"
	"github.com/ZaparooProject/zaparoo-library/pkg/launch"
	"github.com/ZaparooProject/zaparoo-library/pkg/library"
	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/ZaparooProject/zaparoo-library/pkg/service/broker"
	"github.com/ZaparooProject/zaparoo-library/pkg/store"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

const (
	notificationBuffer = 256
	subscriberBuffer   = 100
)

// components is everything the daemon owns, built in dependency order.
type components struct {
	manager  *downloads.Manager
	engine   *httpengine.Engine
	library  *library.Store
	runner   *extractionRunner
	launcher *launch.Launcher
}

func setupEnvironment(pl platforms.Platform, cfg *config.Instance) error {
	if err := helpers.EnsureDirectories(pl); err != nil {
		return err //nolint:wrapcheck // already wrapped
	}
	for _, dir := range []string{helpers.LibraryRoot(pl, cfg), helpers.ArchivesDir(pl, cfg)} {
		if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // library dirs are user content
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func compatFromConfig(cfg *config.Instance) func() platforms.Compat {
	return func() platforms.Compat {
		return platforms.Compat{
			Provider: cfg.CompatProvider(),
			Command:  cfg.CompatCommand(),
		}
	}
}

func newComponents(
	fs afero.Fs,
	pl platforms.Platform,
	cfg *config.Instance,
	ns chan<- models.Notification,
	exec command.Executor,
) *components {
	dataDir := helpers.DataDir(pl)

	downloadsDoc := store.NewDocument[[]json.RawMessage](fs, filepath.Join(dataDir, config.DownloadsFile), store.JSON)
	manager := downloads.NewManager(downloadsDoc, ns, helpers.LibraryRoot(pl, cfg))
	engine := httpengine.New(manager, httpengine.WithSpeedLimit(cfg.SpeedLimit()))
	manager.AttachEngine(engine)

	lib := library.NewStore(
		store.NewDocument[library.Document](fs, filepath.Join(dataDir, config.LaunchFile), store.TOML),
		library.WithFs(fs),
		library.WithPlatform(pl),
	)

	pipeline := extract.NewPipeline(exec, cfg.SevenZipPath())
	runner := newExtractionRunner(manager, pipeline, cfg, helpers.ArchivesDir(pl, cfg))

	launcher := launch.New(launch.Config{
		Platform:      pl,
		Store:         lib,
		Compat:        compatFromConfig(cfg),
		Notifications: ns,
		LogDir:        dataDir,
	})

	return &components{
		manager:  manager,
		engine:   engine,
		library:  lib,
		runner:   runner,
		launcher: launcher,
	}
}

// applyConfig pushes settings that can change at runtime into the running
// components. The library root and 7-Zip path are read once at startup.
func (c *components) applyConfig(cfg *config.Instance) {
	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	c.engine.SetSpeedLimit(cfg.SpeedLimit())
	log.Debug().Int64("speed_limit", cfg.SpeedLimit()).Msg("applied config")
}

func (c *components) services(cfg *config.Instance) *requests.Services {
	return &requests.Services{
		Downloads:   c.manager,
		Extractions: c.runner,
		Extractor:   c.runner.extractor,
		Launcher:    c.launcher,
		Library:     c.library,
		ApplyConfig: func() { c.applyConfig(cfg) },
	}
}

// Start brings up the daemon and returns once it is serving. The done
// channel closes after shutdown finishes, whether through stop or because
// a background task failed. Running games are detached and outlive it.
func Start(
	pl platforms.Platform,
	cfg *config.Instance,
) (stop func() error, done <-chan struct{}, err error) {
	log.Info().Msgf("version: %s", config.AppVersion)

	if err := setupEnvironment(pl, cfg); err != nil {
		log.Error().Err(err).Msg("error setting up environment")
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	ns := make(chan models.Notification, notificationBuffer)
	notifBroker := broker.NewBroker(gctx, ns)
	notifBroker.Start()

	log.Info().Msg("loading downloads and launch configs")
	c := newComponents(afero.NewOsFs(), pl, cfg, ns, &command.RealExecutor{})
	c.applyConfig(cfg)

	log.Info().Msg("starting extraction listener")
	extractNotifications, _ := notifBroker.Subscribe(subscriberBuffer, models.NotificationDownloadsCompleted)
	g.Go(func() error {
		c.runner.listen(gctx, extractNotifications)
		return nil
	})

	log.Info().Msg("starting config watcher")
	g.Go(func() error {
		return watchConfig(gctx, cfg, func() { c.applyConfig(cfg) })
	})

	log.Info().Msg("starting API service")
	apiNotifications, _ := notifBroker.Subscribe(subscriberBuffer)
	g.Go(func() error {
		if err := api.Start(gctx, pl, cfg, c.services(cfg), apiNotifications); err != nil {
			log.Error().Err(err).Msg("api service failed")
			return fmt.Errorf("api service: %w", err)
		}
		return nil
	})

	doneCh := make(chan struct{})
	var runErr error
	go func() {
		runErr = g.Wait()
		cancel()
		<-notifBroker.Done()
		log.Info().Msg("service context cancelled, running cleanup")

		c.engine.Close()
		c.runner.Wait()
		c.manager.Flush()

		log.Info().Msg("service cleanup completed")
		close(doneCh)
	}()

	stop = func() error {
		cancel()
		<-doneCh
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			return runErr
		}
		return nil
	}
	return stop, doneCh, nil
}
