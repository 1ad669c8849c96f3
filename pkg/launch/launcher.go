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

// Package launch spawns games, tracks them while they run and accounts
// their playtime when they exit.
package launch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-library/pkg/api/notifications"
	"github.com/ZaparooProject/zaparoo-library/pkg/config"
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-library/pkg/library"
	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const DefaultStopTimeout = 10 * time.Second

var (
	ErrAlreadyRunning = errors.New("game is already running")
	ErrNotRunning     = errors.New("game is not running")
)

// Error is a failed launch. Op is "build", "logs" or "spawn".
type Error struct {
	Err        error
	Executable string
	Op         string
}

func (e *Error) Error() string {
	return fmt.Sprintf("launch %s: %s: %v", filepath.Base(e.Executable), e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Running describes a tracked game.
type Running struct {
	StartedAt  time.Time
	Owner      string
	Executable string
	PID        int
}

type session struct {
	proc    Process
	done    chan struct{}
	closers []func() error
	info    Running
}

type Config struct {
	Clock         clockwork.Clock
	Platform      platforms.Platform
	Spawner       Spawner
	Killer        Killer
	Store         *library.Store
	Compat        func() platforms.Compat
	Notifications chan<- models.Notification
	LogDir        string
	StopTimeout   time.Duration
}

type Launcher struct {
	clock       clockwork.Clock
	pl          platforms.Platform
	spawner     Spawner
	killer      Killer
	store       *library.Store
	compat      func() platforms.Compat
	ns          chan<- models.Notification
	running     map[string]*session
	logDir      string
	stopTimeout time.Duration
	wg          sync.WaitGroup
	mu          syncutil.Mutex
}

//nolint:gocritic // config copied on construction
func New(c Config) *Launcher {
	l := &Launcher{
		clock:       c.Clock,
		pl:          c.Platform,
		spawner:     c.Spawner,
		killer:      c.Killer,
		store:       c.Store,
		compat:      c.Compat,
		ns:          c.Notifications,
		logDir:      c.LogDir,
		stopTimeout: c.StopTimeout,
		running:     make(map[string]*session),
	}
	if l.clock == nil {
		l.clock = clockwork.NewRealClock()
	}
	if l.spawner == nil {
		l.spawner = ExecSpawner{}
	}
	if l.killer == nil {
		l.killer = TreeKiller{}
	}
	if l.compat == nil {
		l.compat = func() platforms.Compat { return platforms.Compat{} }
	}
	if l.stopTimeout <= 0 {
		l.stopTimeout = DefaultStopTimeout
	}
	return l
}

// trackingKey identifies a session. Untracked launches are keyed by their
// executable so the same binary cannot be started twice either.
func trackingKey(owner, executable string) string {
	if owner != "" {
		return owner
	}
	return "exe:" + helpers.NormalizePathForComparison(executable)
}

// Launch starts the game described by cfg. The owning library item is found
// from the executable path; without one the game still starts but its
// playtime is not recorded. The executable is not checked beforehand, so a
// stale path surfaces as a spawn error.
//
//nolint:gocritic // config passed by value
func (l *Launcher) Launch(ctx context.Context, cfg library.LaunchConfig) (Running, error) {
	if err := ctx.Err(); err != nil {
		return Running{}, &Error{Executable: cfg.Executable, Op: "build", Err: err}
	}
	if cfg.Executable == "" {
		return Running{}, &Error{Op: "build", Err: platforms.ErrMissingLaunchExecutable}
	}

	owner, tracked := "", false
	if l.store != nil {
		owner, tracked = l.store.FindOwner(cfg.Executable)
	}
	if !tracked {
		log.Warn().Msgf("no library item owns %s, playtime will not be tracked", cfg.Executable)
	}

	key := trackingKey(owner, cfg.Executable)
	sess := &session{done: make(chan struct{})}
	l.mu.Lock()
	if _, ok := l.running[key]; ok {
		l.mu.Unlock()
		return Running{}, &Error{Executable: cfg.Executable, Op: "spawn", Err: ErrAlreadyRunning}
	}
	// reserve the slot while spawning
	l.running[key] = sess
	l.mu.Unlock()

	started, err := l.start(owner, cfg)
	l.mu.Lock()
	if err != nil {
		delete(l.running, key)
		l.mu.Unlock()
		return Running{}, err
	}
	sess.proc = started.proc
	sess.closers = started.closers
	sess.info = started.info
	l.mu.Unlock()
	info := sess.info

	l.wg.Add(1)
	go l.watch(key, sess)

	log.Info().Str("owner", owner).Int("pid", info.PID).Msgf("launched %s", cfg.Executable)
	notifications.GameStarted(l.ns, models.GameStartedParams{
		ID:         owner,
		Executable: cfg.Executable,
		PID:        info.PID,
		StartedAt:  info.StartedAt.Format(time.RFC3339),
	})
	return info, nil
}

//nolint:gocritic // config passed by value
func (l *Launcher) start(owner string, cfg library.LaunchConfig) (*session, error) {
	now := l.clock.Now()
	if owner != "" {
		if err := l.store.Touch(owner, now); err != nil {
			log.Error().Err(err).Msgf("failed to stamp last played for %s", owner)
		}
	}

	if preparer, ok := l.pl.(platforms.ExecutablePreparer); ok {
		if err := preparer.PrepareExecutable(cfg.Executable); err != nil {
			log.Warn().Err(err).Msgf("could not prepare %s", cfg.Executable)
		}
	}

	cmd, err := l.pl.BuildLaunchCommand(platforms.LaunchRequest{
		Executable: cfg.Executable,
		Locale:     cfg.Locale,
		Compat:     l.compat(),
		Args:       cfg.Args,
		UseCompat:  cfg.UseCompat,
	})
	if err != nil {
		return nil, &Error{Executable: cfg.Executable, Op: "build", Err: err}
	}

	stdout, err := l.openLog(config.GameLaunchLog)
	if err != nil {
		return nil, &Error{Executable: cfg.Executable, Op: "logs", Err: err}
	}
	stderr, err := l.openLog(config.GameErrorLog)
	if err != nil {
		_ = stdout.Close()
		return nil, &Error{Executable: cfg.Executable, Op: "logs", Err: err}
	}
	header := fmt.Sprintf("\n=== %s launching %s %v ===\n", now.Format(time.RFC3339), cmd.Name, cmd.Args)
	_, _ = stdout.WriteString(header)
	_, _ = stderr.WriteString(header)

	proc, err := l.spawner.Spawn(cmd, stdout, stderr)
	if err != nil {
		_ = stdout.Close()
		_ = stderr.Close()
		return nil, &Error{Executable: cfg.Executable, Op: "spawn", Err: err}
	}

	return &session{
		proc:    proc,
		closers: []func() error{stdout.Close, stderr.Close},
		info: Running{
			Owner:      owner,
			Executable: cfg.Executable,
			PID:        proc.Pid(),
			StartedAt:  now,
		},
	}, nil
}

func (l *Launcher) openLog(name string) (*os.File, error) {
	if err := os.MkdirAll(l.logDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(l.logDir, name)
	//nolint:gosec // fixed file names in the data dir
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

func (l *Launcher) watch(key string, sess *session) {
	defer l.wg.Done()

	code, waitErr := sess.proc.Wait()
	elapsed := int64(math.Round(l.clock.Since(sess.info.StartedAt).Seconds()))

	for _, closeLog := range sess.closers {
		_ = closeLog()
	}

	if sess.info.Owner != "" {
		if err := l.store.AddPlaytime(sess.info.Owner, elapsed); err != nil {
			log.Error().Err(err).Msgf("failed to record playtime for %s", sess.info.Owner)
		}
	}

	l.mu.Lock()
	delete(l.running, key)
	l.mu.Unlock()
	close(sess.done)

	payload := models.GameStoppedParams{
		ID:         sess.info.Owner,
		Executable: sess.info.Executable,
		Elapsed:    elapsed,
		ExitCode:   code,
	}
	if waitErr != nil {
		payload.Error = waitErr.Error()
		log.Warn().Err(waitErr).Msgf("lost track of %s", sess.info.Executable)
	}
	log.Info().Int64("elapsed", elapsed).Int("code", code).Msgf("game exited: %s", sess.info.Executable)
	notifications.GameStopped(l.ns, payload)
}

// Stop asks the owner's process tree to terminate and returns without
// waiting for it to exit. A game still alive after the stop timeout is
// killed in the background. Playtime is accounted by the exit watcher as
// for any other exit. Untracked games are stopped by passing their
// executable path instead of an owner.
func (l *Launcher) Stop(ctx context.Context, owner string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("stop cancelled: %w", err)
	}

	l.mu.Lock()
	sess, ok := l.running[owner]
	if !ok {
		sess, ok = l.running[trackingKey("", owner)]
	}
	var proc Process
	if ok {
		proc = sess.proc
		l.wg.Add(1)
	}
	l.mu.Unlock()
	if proc == nil {
		return fmt.Errorf("%w: %s", ErrNotRunning, owner)
	}

	pid := proc.Pid()
	log.Info().Int("pid", pid).Msgf("stopping %s", owner)
	if err := l.killer.Terminate(pid); err != nil {
		log.Warn().Err(err).Msgf("terminate failed for pid %d", pid)
	}

	go l.escalate(owner, pid, sess.done)
	return nil
}

// escalate kills pid when done has not closed within the stop timeout.
func (l *Launcher) escalate(owner string, pid int, done <-chan struct{}) {
	defer l.wg.Done()

	select {
	case <-done:
		return
	case <-l.clock.After(l.stopTimeout):
	}

	log.Warn().Int("pid", pid).Msg("game ignored terminate, killing")
	if err := l.killer.Kill(pid); err != nil {
		log.Error().Err(err).Msgf("failed to kill %s", owner)
	}
}

// Running lists the tracked games ordered by start time.
func (l *Launcher) Running() []Running {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Running, 0, len(l.running))
	for _, sess := range l.running {
		if sess.proc != nil {
			out = append(out, sess.info)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// IsRunning reports whether the owner has a tracked game.
func (l *Launcher) IsRunning(owner string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.running[owner]
	return ok
}

// Wait blocks until every tracked game has exited and been accounted.
func (l *Launcher) Wait() {
	l.wg.Wait()
}
