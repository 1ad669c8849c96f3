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

// Package api serves the library's JSON-RPC 2.0 interface over a WebSocket
// and broadcasts lifecycle notifications to every connected client.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/methods"
	apimiddleware "github.com/ZaparooProject/zaparoo-library/pkg/api/middleware"
	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-library/pkg/api/models/requests"
	"github.com/ZaparooProject/zaparoo-library/pkg/api/validation"
	"github.com/ZaparooProject/zaparoo-library/pkg/config"
	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
)

var (
	JSONRPCErrorParseError = models.ErrorObject{
		Code:    -32700,
		Message: "Parse error",
	}
	JSONRPCErrorInvalidRequest = models.ErrorObject{
		Code:    -32600,
		Message: "Invalid Request",
	}
	JSONRPCErrorMethodNotFound = models.ErrorObject{
		Code:    -32601,
		Message: "Method not found",
	}
	JSONRPCErrorInvalidParams = models.ErrorObject{
		Code:    -32602,
		Message: "Invalid params",
	}
	JSONRPCErrorServerError = models.ErrorObject{
		Code:    -32000,
		Message: "Server error",
	}
)

var errMethodNotFound = errors.New("method not found")

const shutdownTimeout = 5 * time.Second

var methodMap = map[string]func(requests.RequestEnv) (any, error){
	// downloads
	models.MethodDownloads:               methods.HandleDownloads,
	models.MethodDownloadsCapture:        methods.HandleDownloadsCapture,
	models.MethodDownloadsCancel:         methods.HandleDownloadsCancel,
	models.MethodDownloadsRemove:         methods.HandleDownloadsRemove,
	models.MethodDownloadsClearCompleted: methods.HandleDownloadsClearCompleted,
	models.MethodDownloadsClearAll:       methods.HandleDownloadsClearAll,
	models.MethodDownloadsExtract:        methods.HandleDownloadsExtract,
	models.MethodDownloadsReextract:      methods.HandleDownloadsReextract,
	// library
	models.MethodLibraryScan:      methods.HandleLibraryScan,
	models.MethodLaunchConfig:     methods.HandleLaunchConfig,
	models.MethodLaunchConfigSave: methods.HandleLaunchConfigSave,
	// games
	models.MethodGamesLaunch:   methods.HandleGamesLaunch,
	models.MethodGamesStop:     methods.HandleGamesStop,
	models.MethodGamesRunning:  methods.HandleGamesRunning,
	models.MethodGamesShortcut: methods.HandleGamesShortcut,
	// settings
	models.MethodSettings:       methods.HandleSettings,
	models.MethodSettingsUpdate: methods.HandleSettingsUpdate,
	models.MethodSettingsReload: methods.HandleSettingsReload,
	// utils
	models.MethodVersion: methods.HandleVersion,
}

func handleRequest(env requests.RequestEnv, req models.RequestObject) (any, error) { //nolint:gocritic // env copied per request
	log.Debug().Str("method", req.Method).Msg("received request")

	fn, ok := methodMap[strings.ToLower(req.Method)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errMethodNotFound, req.Method)
	}

	env.ID = *req.ID
	env.Params = req.Params
	return fn(env)
}

// errorObject maps a handler error to its JSON-RPC error.
func errorObject(err error) models.ErrorObject {
	var ve *validation.Error
	switch {
	case errors.Is(err, errMethodNotFound):
		return JSONRPCErrorMethodNotFound
	case errors.As(err, &ve),
		errors.Is(err, validation.ErrMissingParams),
		errors.Is(err, validation.ErrInvalidParams):
		return models.ErrorObject{Code: JSONRPCErrorInvalidParams.Code, Message: err.Error()}
	default:
		return models.ErrorObject{Code: JSONRPCErrorServerError.Code, Message: err.Error()}
	}
}

func sendResponse(session *melody.Session, id uuid.UUID, result any) error {
	data, err := json.Marshal(models.ResponseObject{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
	if err != nil {
		return fmt.Errorf("error marshalling response: %w", err)
	}
	if err := session.Write(data); err != nil {
		return fmt.Errorf("error writing response: %w", err)
	}
	return nil
}

func sendError(session *melody.Session, id uuid.UUID, errObj models.ErrorObject) error {
	log.Debug().Int("code", errObj.Code).Str("message", errObj.Message).Msg("sending error")

	data, err := json.Marshal(models.ResponseErrorObject{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &errObj,
	})
	if err != nil {
		return fmt.Errorf("error marshalling error response: %w", err)
	}
	if err := session.Write(data); err != nil {
		return fmt.Errorf("error writing error response: %w", err)
	}
	return nil
}

// broadcastNotifications forwards every event to all sessions as a
// JSON-RPC request without an id. Returns when the channel closes.
func broadcastNotifications(session *melody.Melody, notifications <-chan models.Notification) {
	for notif := range notifications {
		data, err := json.Marshal(models.RequestObject{
			JSONRPC: "2.0",
			Method:  notif.Method,
			Params:  notif.Params,
		})
		if err != nil {
			log.Error().Err(err).Msg("marshalling notification request")
			continue
		}
		if err := session.Broadcast(data); err != nil {
			log.Error().Err(err).Msg("broadcasting notification")
		}
	}
}

type server struct {
	ctx      context.Context
	platform platforms.Platform
	cfg      *config.Instance
	services *requests.Services
	limiter  *apimiddleware.IPRateLimiter
}

func (s *server) handleWSMessage(session *melody.Session, msg []byte) {
	// ping command for heartbeat operation
	if bytes.Equal(msg, []byte("ping")) {
		if err := session.Write([]byte("pong")); err != nil {
			log.Error().Err(err).Msg("sending pong")
		}
		return
	}

	if !s.limiter.Allow(session.Request.RemoteAddr) {
		if err := sendError(session, uuid.Nil, models.ErrorObject{
			Code:    JSONRPCErrorServerError.Code,
			Message: "Rate limit exceeded",
		}); err != nil {
			log.Error().Err(err).Msg("error sending error response")
		}
		return
	}

	if !json.Valid(msg) {
		log.Error().Msg("data not valid json")
		if err := sendError(session, uuid.Nil, JSONRPCErrorParseError); err != nil {
			log.Error().Err(err).Msg("error sending error response")
		}
		return
	}

	var req models.RequestObject
	if err := json.Unmarshal(msg, &req); err != nil || req.JSONRPC != "2.0" || req.Method == "" {
		id := uuid.Nil
		if err == nil && req.ID != nil {
			id = *req.ID
		}
		log.Error().Str("jsonrpc", req.JSONRPC).Msg("invalid request")
		if err := sendError(session, id, JSONRPCErrorInvalidRequest); err != nil {
			log.Error().Err(err).Msg("error sending error response")
		}
		return
	}

	if req.ID == nil {
		log.Info().Str("method", req.Method).Msg("received notification, ignoring")
		return
	}

	env := requests.RequestEnv{
		Context:  s.ctx,
		Platform: s.platform,
		Config:   s.cfg,
		Services: s.services,
		IsLocal:  apimiddleware.IsLoopbackAddr(session.Request.RemoteAddr),
	}

	// long running methods such as extraction must not hold up the
	// session's read loop
	go func() {
		resp, err := handleRequest(env, req)
		if err != nil {
			log.Warn().Err(err).Str("method", req.Method).Msg("request failed")
			if err := sendError(session, *req.ID, errorObject(err)); err != nil {
				log.Error().Err(err).Msg("error sending error response")
			}
			return
		}
		if err := sendResponse(session, *req.ID, resp); err != nil {
			log.Error().Err(err).Msg("error sending response")
		}
	}()
}

// checkOrigin admits clients with no Origin header, local pages and any
// origin listed in the config.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if slices.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := u.Hostname()
		if host == "localhost" {
			return true
		}
		ip := net.ParseIP(host)
		return ip != nil && ip.IsLoopback()
	}
}

// NewRouter builds the HTTP handler. Notifications are broadcast until the
// channel closes.
func NewRouter(
	ctx context.Context,
	platform platforms.Platform,
	cfg *config.Instance,
	services *requests.Services,
	notifications <-chan models.Notification,
) http.Handler {
	s := &server{
		ctx:      ctx,
		platform: platform,
		cfg:      cfg,
		services: services,
		limiter:  apimiddleware.NewIPRateLimiter(nil),
	}
	go s.limiter.RunCleanup(ctx)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(apimiddleware.HTTPIPFilterMiddleware(apimiddleware.NewIPFilter(cfg.AllowedIPs())))
	r.Use(apimiddleware.HTTPRateLimitMiddleware(s.limiter))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: append([]string{"http://localhost:*", "http://127.0.0.1:*"}, cfg.AllowedOrigins()...),
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept"},
	}))

	session := melody.New()
	session.Upgrader.CheckOrigin = checkOrigin(cfg.AllowedOrigins())
	session.HandleMessage(s.handleWSMessage)
	go broadcastNotifications(session, notifications)
	go func() {
		<-ctx.Done()
		if err := session.Close(); err != nil {
			log.Debug().Err(err).Msg("closing websocket sessions")
		}
	}()

	r.Get(config.APIPath, func(w http.ResponseWriter, r *http.Request) {
		if err := session.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})

	return r
}

// Start serves the API on the configured address until ctx is cancelled.
func Start(
	ctx context.Context,
	platform platforms.Platform,
	cfg *config.Instance,
	services *requests.Services,
	notifications <-chan models.Notification,
) error {
	srv := &http.Server{
		Addr:              cfg.APIListen(),
		Handler:           NewRouter(ctx, platform, cfg, services, notifications),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}
	log.Info().Msgf("api listening on %s", ln.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down api server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server stopped: %w", err)
	}
	return nil
}
