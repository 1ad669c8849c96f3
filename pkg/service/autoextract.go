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

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-library/pkg/config"
	"github.com/ZaparooProject/zaparoo-library/pkg/downloads"
	"github.com/ZaparooProject/zaparoo-library/pkg/extract"
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers"
	"github.com/rs/zerolog/log"
)

// extractionRunner unpacks completed downloads next to their archive and
// keeps the download record's extraction state in step.
type extractionRunner struct {
	manager     *downloads.Manager
	extractor   extract.Extractor
	cfg         *config.Instance
	archivesDir string
	wg          sync.WaitGroup
}

func newExtractionRunner(
	manager *downloads.Manager,
	extractor extract.Extractor,
	cfg *config.Instance,
	archivesDir string,
) *extractionRunner {
	return &extractionRunner{
		manager:     manager,
		extractor:   extractor,
		cfg:         cfg,
		archivesDir: archivesDir,
	}
}

// ExtractDownload extracts a completed download's archive and returns the
// updated record. The download stays completed whatever happens here.
func (r *extractionRunner) ExtractDownload(ctx context.Context, id int64) (downloads.Download, error) {
	d, err := r.manager.BeginExtraction(id)
	if err != nil {
		return downloads.Download{}, fmt.Errorf("failed to begin extraction: %w", err)
	}
	err = r.run(ctx, id, d.SavePath)
	updated, _ := r.manager.Get(id)
	return updated, err
}

func (r *extractionRunner) run(ctx context.Context, id int64, archive string) (err error) {
	var res downloads.ExtractionResult
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("extraction panicked: %v", p)
		}
		res.Err = err
		r.manager.FinishExtraction(id, res)
	}()

	dest := extract.DefaultDestination(archive)
	log.Info().Int64("id", id).Msgf("extracting %s to %s", archive, dest)
	if err := r.extractor.Extract(ctx, archive, dest); err != nil {
		log.Error().Err(err).Int64("id", id).Msg("extraction failed")
		return err //nolint:wrapcheck // already an *extract.Error
	}
	res.ExtractedPath = dest

	if r.cfg.KeepArchives() {
		res.SavePath = r.relocate(archive)
	}
	return nil
}

// relocate moves the archive into the archives folder and returns its new
// path. On failure the archive stays where it is.
func (r *extractionRunner) relocate(archive string) string {
	if helpers.PathHasPrefix(archive, r.archivesDir) {
		return archive
	}
	target := helpers.UniquePath(filepath.Join(r.archivesDir, filepath.Base(archive)))
	if err := helpers.MoveFile(archive, target); err != nil {
		log.Warn().Err(err).Msgf("failed to move %s to archives", archive)
		return archive
	}
	log.Debug().Msgf("moved archive to %s", target)
	return target
}

// listen starts an extraction for every completed download that looks like
// an archive, while auto extraction is enabled. It returns when ch closes.
func (r *extractionRunner) listen(ctx context.Context, ch <-chan models.Notification) {
	for notif := range ch {
		if notif.Method != models.NotificationDownloadsCompleted {
			continue
		}
		var params models.DownloadCompletedParams
		if err := json.Unmarshal(notif.Params, &params); err != nil {
			log.Error().Err(err).Msg("invalid download completed notification")
			continue
		}
		if !r.cfg.AutoExtract() {
			log.Debug().Int64("id", params.ID).Msg("auto extract disabled")
			continue
		}
		if !extract.IsArchive(params.SavePath) {
			log.Debug().Msgf("not an archive, skipping extraction: %s", params.SavePath)
			continue
		}

		r.wg.Add(1)
		go func(id int64) {
			defer r.wg.Done()
			if _, err := r.ExtractDownload(ctx, id); err != nil {
				log.Error().Err(err).Int64("id", id).Msg("auto extraction failed")
			}
		}(params.ID)
	}
}

// Wait blocks until in-flight extractions are done.
func (r *extractionRunner) Wait() {
	r.wg.Wait()
}
