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
	"fmt"
	"path/filepath"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-library/pkg/api/models/requests"
	"github.com/ZaparooProject/zaparoo-library/pkg/api/validation"
	"github.com/ZaparooProject/zaparoo-library/pkg/library"
	"github.com/ZaparooProject/zaparoo-library/pkg/scanner"
	"github.com/rs/zerolog/log"
)

func candidateResponses(candidates []scanner.Candidate) []models.CandidateResponse {
	out := make([]models.CandidateResponse, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, models.CandidateResponse{
			Path:  c.Path,
			Kind:  string(c.Kind),
			Depth: c.Depth,
		})
	}
	return out
}

// HandleLibraryScan lists the launchable executables under a directory,
// best match first.
//
//nolint:gocritic // single-use parameter in API handler
func HandleLibraryScan(env requests.RequestEnv) (any, error) {
	var params models.ScanParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	log.Info().Msgf("received library scan request: %s", params.Path)

	depth := env.Config.ScanDepth()
	if params.MaxDepth != nil {
		depth = *params.MaxDepth
	}
	title := filepath.Base(params.Path)
	if params.Title != nil && *params.Title != "" {
		title = *params.Title
	}

	found := scanner.Scan(requestContext(env), env.Platform, params.Path, scanner.Options{MaxDepth: depth})
	ranked := scanner.Rank(env.Platform, found, title)
	resp := models.ScanResponse{Candidates: candidateResponses(ranked)}
	if len(resp.Candidates) > 0 {
		best := resp.Candidates[0]
		resp.Best = &best
	}
	log.Debug().Int("candidates", len(found)).Msg("library scan complete")
	return resp, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleLaunchConfig(env requests.RequestEnv) (any, error) {
	var params models.GameIDParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	cfg, ok := env.Services.Library.Get(params.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", library.ErrNotFound, params.ID)
	}
	return launchConfigResponse(params.ID, cfg), nil
}

//nolint:gocritic // config passed by value
func launchConfigResponse(id string, cfg library.LaunchConfig) models.LaunchConfigResponse {
	args := cfg.Args
	if args == nil {
		args = []string{}
	}
	return models.LaunchConfigResponse{
		ID:         id,
		Executable: cfg.Executable,
		Args:       args,
		Locale:     cfg.Locale,
		Engine:     cfg.Engine,
		UseCompat:  cfg.UseCompat,
		Playtime:   cfg.Playtime,
		LastPlayed: cfg.LastPlayed,
	}
}

// HandleLaunchConfigSave stores how an item is launched. Rejected configs
// are reported in the result.
//
//nolint:gocritic // single-use parameter in API handler
func HandleLaunchConfigSave(env requests.RequestEnv) (any, error) {
	var params models.SaveLaunchConfigParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	log.Info().Str("id", params.ID).Msgf("received launch config save request: %s", params.Executable)

	cfg := library.LaunchConfig{
		Executable: params.Executable,
		Args:       params.Args,
		UseCompat:  params.UseCompat,
	}
	if params.Locale != nil {
		cfg.Locale = *params.Locale
	}
	if params.Engine != nil {
		cfg.Engine = *params.Engine
	}

	_, err := env.Services.Library.Save(params.ID, params.InstallDir, cfg)
	if err != nil {
		log.Warn().Err(err).Str("id", params.ID).Msg("launch config rejected")
	}
	return result(err), nil
}
