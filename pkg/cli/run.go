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

package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/client"
	"github.com/ZaparooProject/zaparoo-library/pkg/config"
	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/ZaparooProject/zaparoo-library/pkg/service"
	"github.com/rs/zerolog/log"
)

// RunApp runs the service in the foreground until a signal arrives or the
// service shuts itself down. It exits early if another instance already
// answers on the API port.
func RunApp(pl platforms.Platform, cfg *config.Instance) (returnErr error) {
	defer func() {
		if r := recover(); r != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %v\n", r)
			log.Error().Msgf("panic recovered: %v", r)
			returnErr = fmt.Errorf("panic: %v", r)
		}
	}()

	if client.IsServiceRunning(cfg) {
		log.Info().
			Str("listen", cfg.APIListen()).
			Msg("service already running, exiting")
		return nil
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	log.Info().Msg("starting service")
	stopSvc, done, err := service.Start(pl, cfg)
	if err != nil {
		log.Error().Msgf("error starting service: %s", err)
		return fmt.Errorf("error starting service: %w", err)
	}
	defer func() {
		if err := stopSvc(); err != nil {
			log.Error().Msgf("error stopping service: %s", err)
			if returnErr == nil {
				returnErr = fmt.Errorf("service stopped with error: %w", err)
			}
		}
	}()
	log.Info().Msg("service started")

	select {
	case sig := <-sigs:
		log.Info().Msgf("received %s, shutting down", sig)
	case <-done:
		log.Info().Msg("service shut down internally")
	}

	return nil
}
