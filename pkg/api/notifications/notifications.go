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

// Package notifications builds the events published on the broker.
package notifications

import (
	"encoding/json"
	"time"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/rs/zerolog/log"
)

// lifecycleSendTimeout bounds how long a state change waits for room on
// the channel. The broker drains it without blocking, so the limit is only
// reached once the broker has shut down.
const lifecycleSendTimeout = 5 * time.Second

// sendNotification marshals the payload and queues it. Lifecycle events
// wait up to wait for room since auto extraction is driven by them; with a
// zero wait a full channel drops the event, which is fine for progress
// updates that are superseded by the next one. A nil channel discards
// everything.
func sendNotification(ns chan<- models.Notification, method string, payload any, wait time.Duration) {
	if ns == nil {
		return
	}
	var params json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Msgf("error marshalling %s notification", method)
			return
		}
		params = data
	}
	notif := models.Notification{Method: method, Params: params}

	select {
	case ns <- notif:
		return
	default:
	}
	if wait <= 0 {
		log.Debug().Str("method", method).Msg("notification channel full, dropping notification")
		return
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case ns <- notif:
	case <-timer.C:
		log.Error().Str("method", method).Msg("notification channel stalled, dropping notification")
	}
}

func sendLifecycle(ns chan<- models.Notification, method string, payload any) {
	sendNotification(ns, method, payload, lifecycleSendTimeout)
}

func DownloadStarted(ns chan<- models.Notification, payload models.DownloadStartedParams) {
	sendLifecycle(ns, models.NotificationDownloadsStarted, payload)
}

func DownloadProgress(ns chan<- models.Notification, payload models.DownloadProgressParams) {
	sendNotification(ns, models.NotificationDownloadsProgress, payload, 0)
}

func DownloadCompleted(ns chan<- models.Notification, payload models.DownloadCompletedParams) {
	sendLifecycle(ns, models.NotificationDownloadsCompleted, payload)
}

func DownloadError(ns chan<- models.Notification, payload models.DownloadErrorParams) {
	sendLifecycle(ns, models.NotificationDownloadsError, payload)
}

func DownloadCancelled(ns chan<- models.Notification, id int64) {
	sendLifecycle(ns, models.NotificationDownloadsCancelled, models.DownloadCancelledParams{ID: id})
}

func DownloadExtracted(ns chan<- models.Notification, payload models.DownloadExtractedParams) {
	sendLifecycle(ns, models.NotificationDownloadsExtracted, payload)
}

func GameStarted(ns chan<- models.Notification, payload models.GameStartedParams) {
	sendLifecycle(ns, models.NotificationGamesStarted, payload)
}

func GameStopped(ns chan<- models.Notification, payload models.GameStoppedParams) {
	sendLifecycle(ns, models.NotificationGamesStopped, payload)
}
