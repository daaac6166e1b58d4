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
	"encoding/hex"
	"sync"
)

// MemoryUserStore is an in-memory UserStore implementation keyed by
// username. Suitable for development, testing, and single-node deployments.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewMemoryUserStore creates an empty in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users: make(map[string]*User),
	}
}

// GetByName retrieves a user by username.
func (s *MemoryUserStore) GetByName(ctx context.Context, name string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[name]
	if !ok {
		return nil, NewError("userstore.get", ErrUserNotFound)
	}
	return copyUser(user), nil
}

// Create persists a new user.
func (s *MemoryUserStore) Create(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Name]; ok {
		return NewError("userstore.create", ErrUserAlreadyExists)
	}
	s.users[user.Name] = copyUser(user)
	return nil
}

// Count returns the number of stored users. Useful for tests.
func (s *MemoryUserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Clear removes all users. Useful for tests.
func (s *MemoryUserStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]*User)
}

// MemoryCredentialStore is an in-memory CredentialStore implementation.
// Credentials are indexed by hex-encoded credential ID with a secondary
// index by owner handle. IDs are unique across the whole store.
type MemoryCredentialStore struct {
	mu     sync.RWMutex
	byID   map[string]*Credential
	byUser map[string][]string
}

// NewMemoryCredentialStore creates an empty in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		byID:   make(map[string]*Credential),
		byUser: make(map[string][]string),
	}
}

// Add stores a new credential, rejecting duplicate IDs regardless of owner.
func (s *MemoryCredentialStore) Add(ctx context.Context, cred *Credential) error {
	idKey := hex.EncodeToString(cred.ID)
	userKey := hex.EncodeToString(cred.UserHandle)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[idKey]; ok {
		return NewError("credentialstore.add", ErrDuplicateCredential)
	}
	s.byID[idKey] = copyCredential(cred)
	s.byUser[userKey] = append(s.byUser[userKey], idKey)
	return nil
}

// GetByID retrieves a credential by exact ID match.
func (s *MemoryCredentialStore) GetByID(ctx context.Context, credentialID []byte) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.byID[hex.EncodeToString(credentialID)]
	if !ok {
		return nil, NewError("credentialstore.get", ErrCredentialNotFound)
	}
	return copyCredential(cred), nil
}

// GetByUser retrieves all credentials owned by the given user handle.
func (s *MemoryCredentialStore) GetByUser(ctx context.Context, userHandle []byte) ([]*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUser[hex.EncodeToString(userHandle)]
	creds := make([]*Credential, 0, len(ids))
	for _, id := range ids {
		if cred, ok := s.byID[id]; ok {
			creds = append(creds, copyCredential(cred))
		}
	}
	return creds, nil
}

// UpdateCounter writes the signature counter without comparing it to the
// stored value and stamps the last-used time.
func (s *MemoryCredentialStore) UpdateCounter(ctx context.Context, credentialID []byte, signCount uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.byID[hex.EncodeToString(credentialID)]
	if !ok {
		return NewError("credentialstore.update", ErrCredentialNotFound)
	}
	cred.SignCount = signCount
	cred.LastUsedAt = nowUTC()
	return nil
}

// Count returns the number of stored credentials. Useful for tests.
func (s *MemoryCredentialStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Clear removes all credentials. Useful for tests.
func (s *MemoryCredentialStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]*Credential)
	s.byUser = make(map[string][]string)
}

func copyUser(u *User) *User {
	cp := *u
	cp.Handle = append([]byte(nil), u.Handle...)
	return &cp
}

func copyCredential(c *Credential) *Credential {
	cp := *c
	cp.ID = append([]byte(nil), c.ID...)
	cp.UserHandle = append([]byte(nil), c.UserHandle...)
	cp.PublicKey = append([]byte(nil), c.PublicKey...)
	cp.AAGUID = append([]byte(nil), c.AAGUID...)
	return &cp
}
