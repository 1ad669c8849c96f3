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
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers"
	"github.com/rs/zerolog/log"
)

func HandleSettings(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received settings request")

	return models.SettingsResponse{
		LibraryRoot:    helpers.LibraryRoot(env.Platform, env.Config),
		ScanDepth:      env.Config.ScanDepth(),
		KeepArchives:   env.Config.KeepArchives(),
		CompatProvider: env.Config.CompatProvider(),
		CompatCommand:  env.Config.CompatCommand(),
		AutoExtract:    env.Config.AutoExtract(),
		SpeedLimit:     env.Config.SpeedLimit(),
		SevenZip:       env.Config.SevenZipPath(),
		DebugLogging:   env.Config.DebugLogging(),
		ErrorReporting: env.Config.ErrorReporting(),
	}, nil
}

func applyConfig(env requests.RequestEnv) { //nolint:gocritic // single-use parameter in API handler
	if env.Services != nil && env.Services.ApplyConfig != nil {
		env.Services.ApplyConfig()
	}
}

//nolint:gocritic // single-use parameter in API handler
func HandleSettingsReload(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received settings reload request")

	if err := env.Config.Load(); err != nil {
		log.Error().Err(err).Msg("error loading settings")
		return nil, errors.New("error loading settings")
	}
	applyConfig(env)
	return result(nil), nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleSettingsUpdate(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received settings update request")

	var params models.UpdateSettingsParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	if params.LibraryRoot != nil {
		log.Info().Str("libraryRoot", *params.LibraryRoot).Msg("update")
		env.Config.SetLibraryRoot(*params.LibraryRoot)
	}
	if params.ScanDepth != nil {
		log.Info().Int("scanDepth", *params.ScanDepth).Msg("update")
		env.Config.SetScanDepth(*params.ScanDepth)
	}
	if params.KeepArchives != nil {
		log.Info().Bool("keepArchives", *params.KeepArchives).Msg("update")
		env.Config.SetKeepArchives(*params.KeepArchives)
	}
	if params.CompatProvider != nil {
		log.Info().Str("compatProvider", *params.CompatProvider).Msg("update")
		if !env.Config.SetCompatProvider(*params.CompatProvider) {
			return nil, validation.ErrInvalidParams
		}
	}
	if params.CompatCommand != nil {
		log.Info().Str("compatCommand", *params.CompatCommand).Msg("update")
		env.Config.SetCompatCommand(*params.CompatCommand)
	}
	if params.AutoExtract != nil {
		log.Info().Bool("autoExtract", *params.AutoExtract).Msg("update")
		env.Config.SetAutoExtract(*params.AutoExtract)
	}
	if params.SpeedLimit != nil {
		log.Info().Int64("speedLimit", *params.SpeedLimit).Msg("update")
		env.Config.SetSpeedLimit(*params.SpeedLimit)
	}
	if params.DebugLogging != nil {
		log.Info().Bool("debugLogging", *params.DebugLogging).Msg("update")
		env.Config.SetDebugLogging(*params.DebugLogging)
	}
	if params.ErrorReporting != nil {
		log.Info().Bool("errorReporting", *params.ErrorReporting).Msg("update")
		env.Config.SetErrorReporting(*params.ErrorReporting)
	}

	if err := env.Config.Save(); err != nil {
		return nil, fmt.Errorf("failed to save config: %w", err)
	}
	applyConfig(env)
	return result(nil), nil
}
