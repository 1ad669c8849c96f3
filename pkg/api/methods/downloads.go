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

	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-library/pkg/api/models/requests"
	"github.com/ZaparooProject/zaparoo-library/pkg/api/validation"
	"github.com/ZaparooProject/zaparoo-library/pkg/extract"
	"github.com/rs/zerolog/log"
)

func HandleDownloads(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	return env.Services.Downloads.List(), nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleDownloadsCapture(env requests.RequestEnv) (any, error) {
	var params models.CaptureDownloadParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	log.Info().Msgf("received download capture request: %s", params.URL)

	title := ""
	if params.Title != nil {
		title = *params.Title
	}
	id, err := env.Services.Downloads.StartCapture(requestContext(env), params.URL, title)
	if err != nil {
		return nil, fmt.Errorf("failed to start download: %w", err)
	}
	return models.CaptureResponse{ID: id}, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleDownloadsCancel(env requests.RequestEnv) (any, error) {
	var params models.DownloadIDParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	log.Info().Int64("id", params.ID).Msg("received download cancel request")
	if err := env.Services.Downloads.Cancel(params.ID); err != nil {
		return nil, fmt.Errorf("failed to cancel download: %w", err)
	}
	return result(nil), nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleDownloadsRemove(env requests.RequestEnv) (any, error) {
	var params models.DownloadIDParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	log.Info().Int64("id", params.ID).Msg("received download remove request")
	if err := env.Services.Downloads.Remove(params.ID); err != nil {
		return nil, fmt.Errorf("failed to remove download: %w", err)
	}
	return result(nil), nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleDownloadsClearCompleted(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received clear completed downloads request")
	return models.ClearResponse{Removed: env.Services.Downloads.ClearCompleted()}, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleDownloadsClearAll(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received clear all downloads request")
	env.Services.Downloads.ClearAll()
	return result(nil), nil
}

// HandleDownloadsExtract extracts any archive on disk. Extraction failures
// are reported in the result, not as request errors.
//
//nolint:gocritic // single-use parameter in API handler
func HandleDownloadsExtract(env requests.RequestEnv) (any, error) {
	var params models.ExtractParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	dest := extract.DefaultDestination(params.Path)
	if params.Dest != nil && *params.Dest != "" {
		dest = *params.Dest
	}
	log.Info().Msgf("received extract request: %s -> %s", params.Path, dest)

	err := env.Services.Extractor.Extract(requestContext(env), params.Path, dest)
	if err != nil {
		log.Error().Err(err).Msg("manual extraction failed")
	}
	return models.ExtractResponse{ResultResponse: result(err), Dest: dest}, nil
}

// HandleDownloadsReextract extracts a completed download's archive again,
// updating the record the same way auto extraction does.
//
//nolint:gocritic // single-use parameter in API handler
func HandleDownloadsReextract(env requests.RequestEnv) (any, error) {
	var params models.DownloadIDParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	log.Info().Int64("id", params.ID).Msg("received re-extract request")

	d, err := env.Services.Extractions.ExtractDownload(requestContext(env), params.ID)
	if err != nil {
		log.Error().Err(err).Int64("id", params.ID).Msg("re-extraction failed")
	}
	return models.ExtractResponse{ResultResponse: result(err), Dest: d.ExtractedPath}, nil
}
