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

// Package client talks to a running library service over its WebSocket
// API. The CLI uses it to hand work to the daemon.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"time"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-library/pkg/config"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrRequestTimeout   = errors.New("request timed out")
	ErrInvalidParams    = errors.New("invalid params")
	ErrRequestCancelled = errors.New("request cancelled")
)

// localURL points at the API on this machine, following the configured
// listen address so a LAN-bound service is still reachable.
func localURL(cfg *config.Instance) url.URL {
	host, port, err := net.SplitHostPort(cfg.APIListen())
	if err != nil {
		host, port = "127.0.0.1", fmt.Sprint(cfg.APIPort())
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(host, port),
		Path:   config.APIPath,
	}
}

func dial(ctx context.Context, cfg *config.Instance) (*websocket.Conn, error) {
	u := localURL(cfg)
	c, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", u.String(), err)
	}
	return c, nil
}

func closeConn(c *websocket.Conn) {
	if err := c.Close(); err != nil {
		log.Debug().Err(err).Msg("error closing websocket")
	}
}

// readUntil reads messages until match returns true or the connection
// fails. The returned channel closes when reading stops.
func readUntil(c *websocket.Conn, match func([]byte) bool) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Msg("error reading message")
				return
			}
			if match(message) {
				return
			}
		}
	}()
	return done
}

// await blocks until done closes, the timeout expires or ctx ends. A zero
// timeout uses the default request timeout, a negative one waits forever.
func await(ctx context.Context, c *websocket.Conn, done <-chan struct{}, timeout time.Duration) error {
	var timerChan <-chan time.Time
	if timeout == 0 {
		timeout = config.APIRequestTimeout
	}
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timerChan = timer.C
	}

	select {
	case <-done:
		return nil
	case <-timerChan:
		closeConn(c)
		<-done
		return ErrRequestTimeout
	case <-ctx.Done():
		closeConn(c)
		<-done
		return ErrRequestCancelled
	}
}

// LocalClient sends a single method with params to the local running API
// service, waits for the response until timeout then disconnects.
func LocalClient(
	ctx context.Context,
	cfg *config.Instance,
	method string,
	params string,
) (string, error) {
	id := uuid.New()
	req := models.RequestObject{
		JSONRPC: "2.0",
		ID:      &id,
		Method:  method,
	}
	if params != "" {
		if !json.Valid([]byte(params)) {
			return "", ErrInvalidParams
		}
		req.Params = json.RawMessage(params)
	}

	c, err := dial(ctx, cfg)
	if err != nil {
		return "", err
	}
	defer closeConn(c)

	var resp *models.ResponseObject
	done := readUntil(c, func(message []byte) bool {
		var m models.ResponseObject
		if err := json.Unmarshal(message, &m); err != nil {
			return false
		}
		if m.JSONRPC != "2.0" {
			log.Error().Msg("invalid jsonrpc version")
			return false
		}
		if m.ID != id {
			return false
		}
		resp = &m
		return true
	})

	if err := c.WriteJSON(req); err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	if err := await(ctx, c, done, config.APIRequestTimeout); err != nil {
		return "", err
	}
	if resp == nil {
		return "", ErrRequestTimeout
	}
	if resp.Error != nil {
		return "", errors.New(resp.Error.Message)
	}

	b, err := json.Marshal(resp.Result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	return string(b), nil
}

// WaitNotification blocks until a notification with the given method is
// broadcast and returns its params.
func WaitNotification(
	ctx context.Context,
	timeout time.Duration,
	cfg *config.Instance,
	method string,
) (string, error) {
	_, params, err := WaitNotifications(ctx, timeout, cfg, method)
	return params, err
}

// WaitNotifications blocks until any of the given notification methods is
// broadcast and returns which one arrived along with its params.
func WaitNotifications(
	ctx context.Context,
	timeout time.Duration,
	cfg *config.Instance,
	methods ...string,
) (method, params string, err error) {
	c, err := dial(ctx, cfg)
	if err != nil {
		return "", "", err
	}
	defer closeConn(c)

	var notif *models.RequestObject
	done := readUntil(c, func(message []byte) bool {
		var m models.RequestObject
		if err := json.Unmarshal(message, &m); err != nil {
			return false
		}
		if m.JSONRPC != "2.0" || m.ID != nil {
			return false
		}
		if !slices.Contains(methods, m.Method) {
			return false
		}
		notif = &m
		return true
	})

	if err := await(ctx, c, done, timeout); err != nil {
		return "", "", err
	}
	if notif == nil {
		return "", "", ErrRequestTimeout
	}
	return notif.Method, string(notif.Params), nil
}

// IsServiceRunning reports whether the local API answers a version call.
func IsServiceRunning(cfg *config.Instance) bool {
	_, err := LocalClient(context.Background(), cfg, models.MethodVersion, "")
	if err != nil {
		log.Debug().Err(err).Msg("error checking if service running")
		return false
	}
	return true
}

// WaitForAPI polls the local API until it answers or maxWait passes.
func WaitForAPI(cfg *config.Instance, maxWait, checkInterval time.Duration) bool {
	deadline := time.Now().Add(maxWait)
	for {
		if IsServiceRunning(cfg) {
			return true
		}
		if time.Now().Add(checkInterval).After(deadline) {
			time.Sleep(time.Until(deadline))
			return IsServiceRunning(cfg)
		}
		time.Sleep(checkInterval)
	}
}
