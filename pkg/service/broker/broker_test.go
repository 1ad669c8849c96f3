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

package broker

import (
	"context"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func receive(t *testing.T, ch <-chan models.Notification) models.Notification {
	t.Helper()
	select {
	case n, ok := <-ch:
		require.True(t, ok, "channel closed")
		return n
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
		return models.Notification{}
	}
}

func TestBroker_Subscribe(t *testing.T) {
	t.Parallel()

	b := NewBroker(context.Background(), make(chan models.Notification))
	_, id := b.Subscribe(10)
	_, id2 := b.Subscribe(20)

	assert.Equal(t, 0, id)
	assert.Equal(t, 1, id2)
	assert.Len(t, b.subscribers, 2)
}

func TestBroker_Unsubscribe(t *testing.T) {
	t.Parallel()

	b := NewBroker(context.Background(), make(chan models.Notification))
	ch, id := b.Subscribe(10)

	b.Unsubscribe(id)
	assert.Empty(t, b.subscribers)
	_, ok := <-ch
	assert.False(t, ok)

	b.Unsubscribe(id)
	b.Unsubscribe(99)
}

func TestBroker_Broadcast(t *testing.T) {
	t.Parallel()

	source := make(chan models.Notification)
	b := NewBroker(context.Background(), source)
	first, _ := b.Subscribe(4)
	second, _ := b.Subscribe(4)
	b.Start()

	source <- models.Notification{Method: models.NotificationDownloadsCompleted}
	assert.Equal(t, models.NotificationDownloadsCompleted, receive(t, first).Method)
	assert.Equal(t, models.NotificationDownloadsCompleted, receive(t, second).Method)

	close(source)
	<-b.Done()
	_, ok := <-first
	assert.False(t, ok, "subscribers are closed with the source")
}

func TestBroker_MethodFilter(t *testing.T) {
	t.Parallel()

	source := make(chan models.Notification)
	b := NewBroker(context.Background(), source)
	completed, _ := b.Subscribe(4, models.NotificationDownloadsCompleted)
	all, _ := b.Subscribe(4)
	b.Start()

	source <- models.Notification{Method: models.NotificationDownloadsProgress}
	source <- models.Notification{Method: models.NotificationDownloadsCompleted}

	assert.Equal(t, models.NotificationDownloadsProgress, receive(t, all).Method)
	assert.Equal(t, models.NotificationDownloadsCompleted, receive(t, all).Method)
	assert.Equal(t, models.NotificationDownloadsCompleted, receive(t, completed).Method)
	select {
	case n := <-completed:
		t.Fatalf("filtered subscriber got %s", n.Method)
	default:
	}

	close(source)
	<-b.Done()
}

func TestBroker_SlowSubscriberDropsEvents(t *testing.T) {
	t.Parallel()

	source := make(chan models.Notification)
	b := NewBroker(context.Background(), source)
	slow, slowID := b.Subscribe(1)
	fast, fastID := b.Subscribe(8)
	b.Start()

	for range 3 {
		source <- models.Notification{Method: models.NotificationDownloadsProgress}
	}
	for range 3 {
		receive(t, fast)
	}
	// wait out the last broadcast
	b.mu.Lock()
	b.mu.Unlock() //nolint:staticcheck // empty critical section
	receive(t, slow)
	select {
	case <-slow:
		t.Fatal("slow subscriber should have dropped the overflow")
	default:
	}
	assert.Equal(t, 2, b.Dropped(slowID))
	assert.Zero(t, b.Dropped(fastID))

	close(source)
	<-b.Done()
}

func TestBroker_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	b := NewBroker(ctx, make(chan models.Notification))
	ch, _ := b.Subscribe(1)
	b.Start()

	cancel()
	<-b.Done()
	_, ok := <-ch
	assert.False(t, ok)
}
