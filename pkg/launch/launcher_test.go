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

package launch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-library/pkg/config"
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-library/pkg/library"
	"github.com/ZaparooProject/zaparoo-library/pkg/platforms"
	"github.com/ZaparooProject/zaparoo-library/pkg/store"
	"github.com/ZaparooProject/zaparoo-library/pkg/testing/mocks"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var epoch = time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

const celesteExe = "/games/celeste/Celeste.x86_64"

type fakeProcess struct {
	exit chan int
	pid  int
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) Wait() (int, error) {
	return <-p.exit, nil
}

type fakeSpawner struct {
	err   error
	procs []*fakeProcess
	cmds  []platforms.Command
	mu    syncutil.Mutex
}

func (s *fakeSpawner) Spawn(cmd platforms.Command, stdout, _ io.Writer) (Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	_, _ = io.WriteString(stdout, "game output\n")
	p := &fakeProcess{pid: 1000 + len(s.procs), exit: make(chan int, 1)}
	s.procs = append(s.procs, p)
	s.cmds = append(s.cmds, cmd)
	return p, nil
}

func (s *fakeSpawner) last() *fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.procs[len(s.procs)-1]
}

type fakeKiller struct {
	onTerminate func(pid int)
	onKill      func(pid int)
	terminated  []int
	killed      []int
	mu          syncutil.Mutex
}

func (k *fakeKiller) Terminate(pid int) error {
	k.mu.Lock()
	k.terminated = append(k.terminated, pid)
	fn := k.onTerminate
	k.mu.Unlock()
	if fn != nil {
		fn(pid)
	}
	return nil
}

func (k *fakeKiller) Kill(pid int) error {
	k.mu.Lock()
	k.killed = append(k.killed, pid)
	fn := k.onKill
	k.mu.Unlock()
	if fn != nil {
		fn(pid)
	}
	return nil
}

type harness struct {
	clock   *clockwork.FakeClock
	pl      *mocks.MockPlatform
	spawner *fakeSpawner
	killer  *fakeKiller
	store   *library.Store
	fs      afero.Fs
	ns      chan models.Notification
	l       *Launcher
	logDir  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	pl := mocks.NewMockPlatform()
	pl.SetupBasicMock()

	h := &harness{
		clock:   clockwork.NewFakeClockAt(epoch),
		pl:      pl,
		spawner: &fakeSpawner{},
		killer:  &fakeKiller{},
		fs:      afero.NewMemMapFs(),
		ns:      make(chan models.Notification, 16),
		logDir:  t.TempDir(),
	}
	h.store = library.NewStore(
		store.NewDocument[library.Document](h.fs, "/data/launch.toml", store.TOML),
		library.WithFs(h.fs),
	)
	h.l = New(Config{
		Clock:         h.clock,
		Platform:      pl,
		Spawner:       h.spawner,
		Killer:        h.killer,
		Store:         h.store,
		Notifications: h.ns,
		LogDir:        h.logDir,
		StopTimeout:   5 * time.Second,
	})
	t.Cleanup(func() {
		for _, p := range h.spawner.procs {
			select {
			case p.exit <- 0:
			default:
			}
		}
		h.l.Wait()
	})
	return h
}

func (h *harness) addItem(t *testing.T, id, exe string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(h.fs, exe, nil, 0o755))
	_, err := h.store.Save(id, filepath.Dir(exe), library.LaunchConfig{Executable: exe})
	require.NoError(t, err)
}

func (h *harness) next(t *testing.T) models.Notification {
	t.Helper()
	select {
	case n := <-h.ns:
		return n
	case <-time.After(5 * time.Second):
		t.Fatal("no notification")
		return models.Notification{}
	}
}

func TestLaunch_AccountsPlaytime(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addItem(t, "celeste", celesteExe)

	info, err := h.l.Launch(context.Background(), library.LaunchConfig{
		Executable: celesteExe,
		Args:       []string{"--fullscreen"},
	})
	require.NoError(t, err)
	assert.Equal(t, "celeste", info.Owner)
	assert.Equal(t, epoch, info.StartedAt)
	assert.True(t, h.l.IsRunning("celeste"))
	assert.Equal(t, models.NotificationGamesStarted, h.next(t).Method)

	cfg, _ := h.store.Get("celeste")
	require.NotNil(t, cfg.LastPlayed)
	assert.True(t, epoch.Equal(*cfg.LastPlayed))

	require.Len(t, h.spawner.cmds, 1)
	assert.Equal(t, celesteExe, h.spawner.cmds[0].Name)
	assert.Equal(t, []string{"--fullscreen"}, h.spawner.cmds[0].Args)

	h.clock.Advance(125 * time.Second)
	h.spawner.last().exit <- 0
	h.l.Wait()

	cfg, _ = h.store.Get("celeste")
	assert.Equal(t, int64(125), cfg.Playtime)
	assert.True(t, epoch.Equal(*cfg.LastPlayed), "last played is the launch time")
	assert.False(t, h.l.IsRunning("celeste"))
	assert.Empty(t, h.l.Running())

	stopped := h.next(t)
	assert.Equal(t, models.NotificationGamesStopped, stopped.Method)
	var payload models.GameStoppedParams
	require.NoError(t, json.Unmarshal(stopped.Params, &payload))
	assert.Equal(t, "celeste", payload.ID)
	assert.Equal(t, int64(125), payload.Elapsed)

	out, err := os.ReadFile(filepath.Join(h.logDir, config.GameLaunchLog))
	require.NoError(t, err)
	assert.Contains(t, string(out), "launching "+celesteExe)
	assert.Contains(t, string(out), "game output")
	_, err = os.Stat(filepath.Join(h.logDir, config.GameErrorLog))
	require.NoError(t, err)
}

func TestLaunch_PlaytimeRounds(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addItem(t, "celeste", celesteExe)

	_, err := h.l.Launch(context.Background(), library.LaunchConfig{Executable: celesteExe})
	require.NoError(t, err)
	h.clock.Advance(89*time.Second + 600*time.Millisecond)
	h.spawner.last().exit <- 0
	h.l.Wait()

	_, err = h.l.Launch(context.Background(), library.LaunchConfig{Executable: celesteExe})
	require.NoError(t, err)
	h.clock.Advance(10*time.Second + 400*time.Millisecond)
	h.spawner.last().exit <- 1
	h.l.Wait()

	cfg, _ := h.store.Get("celeste")
	assert.Equal(t, int64(100), cfg.Playtime)
}

func TestLaunch_Untracked(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	info, err := h.l.Launch(context.Background(), library.LaunchConfig{Executable: "/tmp/loose/game"})
	require.NoError(t, err)
	assert.Empty(t, info.Owner)

	running := h.l.Running()
	require.Len(t, running, 1)
	assert.Equal(t, "/tmp/loose/game", running[0].Executable)

	_, err = h.l.Launch(context.Background(), library.LaunchConfig{Executable: "/tmp/loose/game"})
	require.ErrorIs(t, err, ErrAlreadyRunning)

	h.killer.onTerminate = func(int) { h.spawner.last().exit <- 0 }
	require.NoError(t, h.l.Stop(context.Background(), "/tmp/loose/game"))
	h.l.Wait()
	assert.Empty(t, h.l.Running())
}

func TestLaunch_AlreadyRunning(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addItem(t, "celeste", celesteExe)

	_, err := h.l.Launch(context.Background(), library.LaunchConfig{Executable: celesteExe})
	require.NoError(t, err)

	_, err = h.l.Launch(context.Background(), library.LaunchConfig{Executable: celesteExe})
	require.ErrorIs(t, err, ErrAlreadyRunning)
	var launchErr *Error
	require.ErrorAs(t, err, &launchErr)
	assert.Len(t, h.spawner.procs, 1)
}

func TestLaunch_Failures(t *testing.T) {
	t.Parallel()

	t.Run("spawn", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.addItem(t, "celeste", celesteExe)
		h.spawner.err = &os.PathError{Op: "fork/exec", Path: celesteExe, Err: os.ErrNotExist}

		_, err := h.l.Launch(context.Background(), library.LaunchConfig{Executable: celesteExe})
		var launchErr *Error
		require.ErrorAs(t, err, &launchErr)
		assert.Equal(t, "spawn", launchErr.Op)
		require.ErrorIs(t, err, os.ErrNotExist)
		assert.False(t, h.l.IsRunning("celeste"), "failed launches release their slot")
		assert.Empty(t, h.ns)

		h.spawner.err = nil
		_, err = h.l.Launch(context.Background(), library.LaunchConfig{Executable: celesteExe})
		require.NoError(t, err)
	})

	t.Run("build", func(t *testing.T) {
		t.Parallel()
		pl := mocks.NewMockPlatform()
		pl.On("BuildLaunchCommand", mock.Anything).Return(platforms.Command{}, platforms.ErrUnknownCompatProvider)
		l := New(Config{Platform: pl, Spawner: &fakeSpawner{}, LogDir: t.TempDir()})

		_, err := l.Launch(context.Background(), library.LaunchConfig{Executable: "/g/x.exe", UseCompat: true})
		var launchErr *Error
		require.ErrorAs(t, err, &launchErr)
		assert.Equal(t, "build", launchErr.Op)
		require.ErrorIs(t, err, platforms.ErrUnknownCompatProvider)
	})

	t.Run("missing_executable", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		_, err := h.l.Launch(context.Background(), library.LaunchConfig{})
		require.ErrorIs(t, err, platforms.ErrMissingLaunchExecutable)
	})
}

func TestLaunch_PassesCompatAndLocale(t *testing.T) {
	t.Parallel()

	pl := mocks.NewMockPlatform()
	pl.On("BuildLaunchCommand", platforms.LaunchRequest{
		Executable: "/games/x/Game.exe",
		Locale:     "ja_JP.UTF-8",
		Compat:     platforms.Compat{Provider: platforms.CompatProviderCustom, Command: "bottles-cli run -e %EXE%"},
		Args:       []string{"-windowed"},
		UseCompat:  true,
	}).Return(platforms.Command{Name: "bottles-cli"}, nil).Once()

	spawner := &fakeSpawner{}
	l := New(Config{
		Platform: pl,
		Spawner:  spawner,
		LogDir:   t.TempDir(),
		Compat: func() platforms.Compat {
			return platforms.Compat{Provider: platforms.CompatProviderCustom, Command: "bottles-cli run -e %EXE%"}
		},
	})

	_, err := l.Launch(context.Background(), library.LaunchConfig{
		Executable: "/games/x/Game.exe",
		Locale:     "ja_JP.UTF-8",
		Args:       []string{"-windowed"},
		UseCompat:  true,
	})
	require.NoError(t, err)
	pl.AssertExpectations(t)

	spawner.last().exit <- 0
	l.Wait()
}

type preparingPlatform struct {
	*mocks.MockPlatform
	prepared []string
}

func (p *preparingPlatform) PrepareExecutable(path string) error {
	p.prepared = append(p.prepared, path)
	return errors.New("read-only filesystem")
}

func TestLaunch_PreparesExecutable(t *testing.T) {
	t.Parallel()

	base := mocks.NewMockPlatform()
	base.SetupBasicMock()
	pl := &preparingPlatform{MockPlatform: base}
	spawner := &fakeSpawner{}
	l := New(Config{Platform: pl, Spawner: spawner, LogDir: t.TempDir()})

	_, err := l.Launch(context.Background(), library.LaunchConfig{Executable: "/games/a/run.x86_64"})
	require.NoError(t, err, "a failed preparation does not block the launch")
	assert.Equal(t, []string{"/games/a/run.x86_64"}, pl.prepared)

	spawner.last().exit <- 0
	l.Wait()
}

func TestStop(t *testing.T) {
	t.Parallel()

	t.Run("terminate", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.addItem(t, "celeste", celesteExe)
		info, err := h.l.Launch(context.Background(), library.LaunchConfig{Executable: celesteExe})
		require.NoError(t, err)

		h.killer.onTerminate = func(int) { h.spawner.last().exit <- 143 }
		h.clock.Advance(30 * time.Second)
		require.NoError(t, h.l.Stop(context.Background(), "celeste"))

		assert.Equal(t, []int{info.PID}, h.killer.terminated)
		assert.Empty(t, h.killer.killed)
		h.l.Wait()
		cfg, _ := h.store.Get("celeste")
		assert.Equal(t, int64(30), cfg.Playtime)
	})

	t.Run("returns_before_exit", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.addItem(t, "celeste", celesteExe)
		info, err := h.l.Launch(context.Background(), library.LaunchConfig{Executable: celesteExe})
		require.NoError(t, err)

		stopErr := make(chan error, 1)
		go func() {
			stopErr <- h.l.Stop(context.Background(), "celeste")
		}()

		select {
		case err := <-stopErr:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("stop waited for the game to exit")
		}
		assert.Equal(t, []int{info.PID}, h.killer.terminated)
		assert.Empty(t, h.killer.killed)
		assert.True(t, h.l.IsRunning("celeste"))
	})

	t.Run("escalates_to_kill", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.addItem(t, "celeste", celesteExe)
		info, err := h.l.Launch(context.Background(), library.LaunchConfig{Executable: celesteExe})
		require.NoError(t, err)

		h.killer.onKill = func(int) { h.spawner.last().exit <- 137 }
		require.NoError(t, h.l.Stop(context.Background(), "celeste"))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, h.clock.BlockUntilContext(ctx, 1))
		h.clock.Advance(5 * time.Second)

		h.l.Wait()
		assert.Equal(t, []int{info.PID}, h.killer.terminated)
		assert.Equal(t, []int{info.PID}, h.killer.killed)
		assert.False(t, h.l.IsRunning("celeste"))
	})

	t.Run("cancelled_context", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.addItem(t, "celeste", celesteExe)
		_, err := h.l.Launch(context.Background(), library.LaunchConfig{Executable: celesteExe})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorIs(t, h.l.Stop(ctx, "celeste"), context.Canceled)
		assert.Empty(t, h.killer.terminated)
	})

	t.Run("not_running", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		require.ErrorIs(t, h.l.Stop(context.Background(), "celeste"), ErrNotRunning)
	})
}

func TestError_Message(t *testing.T) {
	t.Parallel()

	err := &Error{Executable: "/games/x/run", Op: "spawn", Err: ErrAlreadyRunning}
	assert.Equal(t, "launch run: spawn: game is already running", err.Error())
}
