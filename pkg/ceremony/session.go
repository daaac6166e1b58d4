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
	"crypto/rand"
	"log/slog"
	"sync"
	"time"
)

// SessionManager tracks the single pending ceremony allowed per user.
// Starting a new ceremony for a user silently replaces any pending one, and
// consuming is destructive: a pending ceremony is removed on the first finish
// attempt whether or not that attempt succeeds.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*PendingCeremony

	challengeSize int
	ttl           time.Duration

	// now is replaceable for expiry tests.
	now func() time.Time
}

// NewSessionManager creates a SessionManager issuing challenges of
// challengeSize bytes that expire after ttl.
func NewSessionManager(challengeSize int, ttl time.Duration) *SessionManager {
	return &SessionManager{
		sessions:      make(map[string]*PendingCeremony),
		challengeSize: challengeSize,
		ttl:           ttl,
		now:           time.Now,
	}
}

// Start creates a pending ceremony for the user with a fresh random
// challenge, replacing any previously pending ceremony for that user.
func (m *SessionManager) Start(ctx context.Context, userName string, kind Kind, origin string) (*PendingCeremony, error) {
	challenge := make([]byte, m.challengeSize)
	if _, err := rand.Read(challenge); err != nil {
		return nil, WrapError("session.start", err)
	}

	pending := &PendingCeremony{
		UserName:  userName,
		Challenge: challenge,
		Origin:    origin,
		Kind:      kind,
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	m.sessions[userName] = pending
	m.mu.Unlock()

	return pending, nil
}

// Consume removes and returns the user's pending ceremony. The removal
// happens before any validation, so a ceremony cannot be finished twice even
// when the first attempt fails. Returns ErrNoPendingCeremony when nothing is
// pending or the pending ceremony is of a different kind, and
// ErrCeremonyExpired when the ceremony outlived its TTL.
func (m *SessionManager) Consume(ctx context.Context, userName string, kind Kind) (*PendingCeremony, error) {
	m.mu.Lock()
	pending, ok := m.sessions[userName]
	if ok {
		delete(m.sessions, userName)
	}
	m.mu.Unlock()

	if !ok {
		return nil, NewError("session.consume", ErrNoPendingCeremony)
	}
	if pending.Kind != kind {
		return nil, NewError("session.consume", ErrNoPendingCeremony)
	}
	if m.now().Sub(pending.CreatedAt) > m.ttl {
		return nil, NewError("session.consume", ErrCeremonyExpired)
	}
	return pending, nil
}

// Cleanup removes expired pending ceremonies and returns how many were
// removed.
func (m *SessionManager) Cleanup(ctx context.Context) int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for user, pending := range m.sessions {
		if pending.CreatedAt.Before(cutoff) {
			delete(m.sessions, user)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine sweeps expired ceremonies at the given interval until
// the context is cancelled.
func (m *SessionManager) StartCleanupRoutine(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := m.Cleanup(ctx); removed > 0 && logger != nil {
					logger.Debug("cleaned up expired ceremonies", "count", removed)
				}
			}
		}
	}()
}

// Count returns the number of pending ceremonies. Useful for tests.
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Clear removes all pending ceremonies. Useful for tests.
func (m *SessionManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string]*PendingCeremony)
}
