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

package methods

import (
	"errors"
	"fmt"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-library/pkg/api/models/requests"
	"github.com/ZaparooProject/zaparoo-library/pkg/api/validation"
	"github.com/ZaparooProject/zaparoo-library/pkg/library"
	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/ZaparooProject/zaparoo-library/pkg/scanner"
	"github.com/rs/zerolog/log"
)

var errNoExecutable = errors.New("no launchable executable found")

// defaultCompat decides whether a freshly discovered executable needs the
// compatibility layer.
func defaultCompat(pl platforms.Platform, c scanner.Candidate) bool {
	return c.Kind == platforms.KindWindowsExe && pl.ID() != platforms.PlatformIDWindows
}

// resolveLaunch picks the config to launch: an explicit executable, else
// the item's saved config, else the best executable found under the install
// dir, which is then saved for the item.
//
//nolint:gocritic // single-use parameter in API handler
func resolveLaunch(env requests.RequestEnv, params *models.LaunchGameParams) (library.LaunchConfig, error) {
	var cfg library.LaunchConfig
	saved := false
	id := ""
	if params.ID != nil {
		id = *params.ID
	}

	switch {
	case params.Executable != nil && *params.Executable != "":
		cfg.Executable = *params.Executable
	case id != "":
		cfg, saved = env.Services.Library.Get(id)
	}

	if cfg.Executable == "" {
		if params.InstallDir == nil || *params.InstallDir == "" {
			return cfg, errNoExecutable
		}
		title := id
		if params.Title != nil {
			title = *params.Title
		}
		found := scanner.Scan(
			requestContext(env),
			env.Platform,
			*params.InstallDir,
			scanner.Options{MaxDepth: env.Config.ScanDepth()},
		)
		best, ok := scanner.Best(env.Platform, found, title)
		if !ok {
			return cfg, fmt.Errorf("%w in %s", errNoExecutable, *params.InstallDir)
		}
		log.Info().Msgf("picked %s (%s) from %d candidates", best.Path, best.Kind, len(found))
		cfg.Executable = best.Path
		cfg.UseCompat = defaultCompat(env.Platform, best)

		if id != "" {
			if _, err := env.Services.Library.Save(id, *params.InstallDir, cfg); err != nil {
				log.Warn().Err(err).Str("id", id).Msg("could not save discovered launch config")
			}
		}
	}

	if params.Args != nil {
		cfg.Args = params.Args
	}
	if params.Locale != nil {
		cfg.Locale = *params.Locale
	}
	if params.UseCompat != nil {
		cfg.UseCompat = *params.UseCompat
	}
	if saved {
		log.Debug().Str("id", id).Msg("using saved launch config")
	}
	return cfg, nil
}

// HandleGamesLaunch starts a game. Launch failures are reported in the
// result, not as request errors.
//
//nolint:gocritic // single-use parameter in API handler
func HandleGamesLaunch(env requests.RequestEnv) (any, error) {
	var params models.LaunchGameParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	log.Info().Msg("received game launch request")

	cfg, err := resolveLaunch(env, &params)
	if err != nil {
		return models.LaunchResponse{ResultResponse: result(err)}, nil
	}

	running, err := env.Services.Launcher.Launch(requestContext(env), cfg)
	if err != nil {
		log.Error().Err(err).Msg("game launch failed")
		return models.LaunchResponse{ResultResponse: result(err), Executable: cfg.Executable}, nil
	}
	return models.LaunchResponse{
		ResultResponse: result(nil),
		Executable:     running.Executable,
		PID:            running.PID,
	}, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleGamesStop(env requests.RequestEnv) (any, error) {
	var params models.GameIDParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	log.Info().Str("id", params.ID).Msg("received game stop request")

	err := env.Services.Launcher.Stop(requestContext(env), params.ID)
	if err != nil {
		log.Warn().Err(err).Str("id", params.ID).Msg("game stop failed")
	}
	return result(err), nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleGamesRunning(env requests.RequestEnv) (any, error) {
	running := env.Services.Launcher.Running()
	out := make([]models.RunningGameResponse, 0, len(running))
	for _, r := range running {
		out = append(out, models.RunningGameResponse{
			ID:         r.Owner,
			Executable: r.Executable,
			PID:        r.PID,
			StartedAt:  r.StartedAt,
		})
	}
	return out, nil
}

// HandleGamesShortcut writes a desktop shortcut that launches the item with
// its saved launch config.
//
//nolint:gocritic // single-use parameter in API handler
func HandleGamesShortcut(env requests.RequestEnv) (any, error) {
	var params models.GameShortcutParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	log.Info().Str("id", params.ID).Msg("received game shortcut request")

	cfg, ok := env.Services.Library.Get(params.ID)
	if !ok {
		return models.ShortcutResponse{
			ResultResponse: result(fmt.Errorf("%w: %s", library.ErrNotFound, params.ID)),
		}, nil
	}

	creator, ok := env.Platform.(platforms.ShortcutCreator)
	if !ok {
		return models.ShortcutResponse{ResultResponse: result(platforms.ErrNotSupported)}, nil
	}

	name := params.ID
	if params.Name != nil {
		name = *params.Name
	}
	req := platforms.LaunchRequest{
		Executable: cfg.Executable,
		Locale:     cfg.Locale,
		Compat: platforms.Compat{
			Provider: env.Config.CompatProvider(),
			Command:  env.Config.CompatCommand(),
		},
		Args:      cfg.Args,
		UseCompat: cfg.UseCompat,
	}

	path, err := creator.CreateShortcut(name, req)
	if err != nil {
		log.Error().Err(err).Str("id", params.ID).Msg("shortcut creation failed")
		return models.ShortcutResponse{ResultResponse: result(err)}, nil
	}
	log.Info().Str("path", path).Msg("created shortcut")
	return models.ShortcutResponse{ResultResponse: result(nil), Path: path}, nil
}
