// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package ceremony

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStart(t *testing.T) {
	ctx := context.Background()
	m := NewSessionManager(64, time.Minute)

	pending, err := m.Start(ctx, "alice", Registration, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", pending.UserName)
	assert.Equal(t, Registration, pending.Kind)
	assert.Equal(t, "https://example.com", pending.Origin)
	assert.Len(t, pending.Challenge, 64)
	assert.Equal(t, 1, m.Count())
}

func TestSessionStartGeneratesFreshChallenges(t *testing.T) {
	ctx := context.Background()
	m := NewSessionManager(64, time.Minute)

	first, err := m.Start(ctx, "alice", Registration, "https://example.com")
	require.NoError(t, err)
	second, err := m.Start(ctx, "bob", Registration, "https://example.com")
	require.NoError(t, err)

	assert.NotEqual(t, first.Challenge, second.Challenge)
}

func TestSessionStartOverwritesPending(t *testing.T) {
	ctx := context.Background()
	m := NewSessionManager(64, time.Minute)

	first, err := m.Start(ctx, "alice", Registration, "https://example.com")
	require.NoError(t, err)
	_, err = m.Start(ctx, "alice", Authentication, "https://example.com")
	require.NoError(t, err)

	assert.Equal(t, 1, m.Count())

	// Only the most recent ceremony is consumable.
	_, err = m.Consume(ctx, "alice", Registration)
	assert.ErrorIs(t, err, ErrNoPendingCeremony)

	_, err = m.Start(ctx, "alice", Authentication, "https://example.com")
	require.NoError(t, err)
	consumed, err := m.Consume(ctx, "alice", Authentication)
	require.NoError(t, err)
	assert.NotEqual(t, first.Challenge, consumed.Challenge)
}

func TestSessionConsumeOnce(t *testing.T) {
	ctx := context.Background()
	m := NewSessionManager(64, time.Minute)

	_, err := m.Start(ctx, "alice", Registration, "https://example.com")
	require.NoError(t, err)

	_, err = m.Consume(ctx, "alice", Registration)
	require.NoError(t, err)

	_, err = m.Consume(ctx, "alice", Registration)
	assert.ErrorIs(t, err, ErrNoPendingCeremony)
}

func TestSessionConsumeKindMismatchBurnsSession(t *testing.T) {
	ctx := context.Background()
	m := NewSessionManager(64, time.Minute)

	_, err := m.Start(ctx, "alice", Registration, "https://example.com")
	require.NoError(t, err)

	// Wrong kind fails and still consumes.
	_, err = m.Consume(ctx, "alice", Authentication)
	assert.ErrorIs(t, err, ErrNoPendingCeremony)

	_, err = m.Consume(ctx, "alice", Registration)
	assert.ErrorIs(t, err, ErrNoPendingCeremony)
	assert.Equal(t, 0, m.Count())
}

func TestSessionConsumeUnknownUser(t *testing.T) {
	m := NewSessionManager(64, time.Minute)

	_, err := m.Consume(context.Background(), "nobody", Registration)
	assert.ErrorIs(t, err, ErrNoPendingCeremony)
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewSessionManager(64, time.Minute)

	now := time.Now()
	m.now = func() time.Time { return now }

	_, err := m.Start(ctx, "alice", Authentication, "https://example.com")
	require.NoError(t, err)

	m.now = func() time.Time { return now.Add(61 * time.Second) }

	_, err = m.Consume(ctx, "alice", Authentication)
	assert.ErrorIs(t, err, ErrCeremonyExpired)

	// Expired ceremony is gone too.
	_, err = m.Consume(ctx, "alice", Authentication)
	assert.ErrorIs(t, err, ErrNoPendingCeremony)
}

func TestSessionCleanup(t *testing.T) {
	ctx := context.Background()
	m := NewSessionManager(64, time.Minute)

	now := time.Now()
	m.now = func() time.Time { return now }

	m.Start(ctx, "alice", Registration, "https://example.com")
	m.Start(ctx, "bob", Authentication, "https://example.com")

	m.now = func() time.Time { return now.Add(30 * time.Second) }
	m.Start(ctx, "carol", Registration, "https://example.com")

	m.now = func() time.Time { return now.Add(90 * time.Second) }
	removed := m.Cleanup(ctx)

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, m.Count())

	_, err := m.Consume(ctx, "carol", Registration)
	assert.NoError(t, err)
}

func TestSessionConcurrentStartAndConsume(t *testing.T) {
	ctx := context.Background()
	m := NewSessionManager(64, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Start(ctx, "alice", Authentication, "https://example.com")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Many concurrent starts collapse to a single pending ceremony, and only
	// one concurrent consume can win it.
	assert.Equal(t, 1, m.Count())

	wins := make(chan struct{}, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Consume(ctx, "alice", Authentication); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count)
}
