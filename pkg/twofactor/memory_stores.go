package twofactor

import (
	"bytes"
	"context"
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
)

// MemoryDirectory is an in-memory implementation of UserDirectory.
// This is intended for development and testing only.
type MemoryDirectory struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]*User
}

// NewMemoryDirectory creates a new in-memory user directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		byID:    make(map[string]*User),
		byEmail: make(map[string]*User),
	}
}

// AddUser registers a user in the directory, assigning an ID if absent.
func (d *MemoryDirectory) AddUser(user *User) *User {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(user.ID) == 0 {
		id := uuid.New()
		user.ID = id[:]
	}
	d.byID[hex.EncodeToString(user.ID)] = user
	d.byEmail[user.Email] = user
	return user
}

// GetByID retrieves a user by their stable handle.
func (d *MemoryDirectory) GetByID(ctx context.Context, userID []byte) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.byID[hex.EncodeToString(userID)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetByEmail retrieves a user by their email address.
func (d *MemoryDirectory) GetByEmail(ctx context.Context, email string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// MemoryCredentialStore is an in-memory implementation of CredentialStore.
// This is intended for development and testing only.
type MemoryCredentialStore struct {
	mu      sync.Mutex
	records map[string]*memoryRecord
}

type memoryRecord struct {
	challenge      *PendingChallenge
	authenticators []*Authenticator
}

// NewMemoryCredentialStore creates a new in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		records: make(map[string]*memoryRecord),
	}
}

// record returns the user's backing record, creating it on first write.
func (s *MemoryCredentialStore) record(userID []byte) *memoryRecord {
	key := hex.EncodeToString(userID)
	rec, ok := s.records[key]
	if !ok {
		rec = &memoryRecord{}
		s.records[key] = rec
	}
	return rec
}

// Authenticators returns all authenticators registered for a user.
func (s *MemoryCredentialStore) Authenticators(ctx context.Context, userID []byte) ([]*Authenticator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[hex.EncodeToString(userID)]
	if !ok {
		return []*Authenticator{}, nil
	}

	result := make([]*Authenticator, len(rec.authenticators))
	for i, a := range rec.authenticators {
		clone := *a
		result[i] = &clone
	}
	return result, nil
}

// Authenticator returns the user's authenticator with the given credential ID.
func (s *MemoryCredentialStore) Authenticator(ctx context.Context, userID, credentialID []byte) (*Authenticator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[hex.EncodeToString(userID)]
	if !ok {
		return nil, ErrAuthenticatorNotFound
	}
	for _, a := range rec.authenticators {
		if bytes.Equal(a.CredentialID, credentialID) {
			clone := *a
			return &clone, nil
		}
	}
	return nil, ErrAuthenticatorNotFound
}

// AddAuthenticator appends a new authenticator, rejecting duplicates. The
// check and insert happen under one lock, matching the atomicity the
// interface requires.
func (s *MemoryCredentialStore) AddAuthenticator(ctx context.Context, userID []byte, a *Authenticator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(userID)
	for _, existing := range rec.authenticators {
		if bytes.Equal(existing.CredentialID, a.CredentialID) {
			return ErrDuplicateCredential
		}
	}

	clone := *a
	rec.authenticators = append(rec.authenticators, &clone)
	return nil
}

// UpdateCounter persists a new sign counter onto the identified authenticator.
// The stored value never decreases.
func (s *MemoryCredentialStore) UpdateCounter(ctx context.Context, userID, credentialID []byte, signCount uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[hex.EncodeToString(userID)]
	if !ok {
		return ErrAuthenticatorNotFound
	}
	for _, a := range rec.authenticators {
		if bytes.Equal(a.CredentialID, credentialID) {
			if signCount > a.SignCount {
				a.SignCount = signCount
			}
			a.LastUsedAt = nowUTC()
			return nil
		}
	}
	return ErrAuthenticatorNotFound
}

// SetChallenge stores the user's pending challenge, overwriting any prior value.
func (s *MemoryCredentialStore) SetChallenge(ctx context.Context, userID []byte, c *PendingChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *c
	s.record(userID).challenge = &clone
	return nil
}

// Challenge returns the user's pending challenge.
func (s *MemoryCredentialStore) Challenge(ctx context.Context, userID []byte) (*PendingChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[hex.EncodeToString(userID)]
	if !ok || rec.challenge == nil {
		return nil, ErrNoPendingChallenge
	}
	clone := *rec.challenge
	return &clone, nil
}

// ClearChallenge removes the user's pending challenge.
func (s *MemoryCredentialStore) ClearChallenge(ctx context.Context, userID []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[hex.EncodeToString(userID)]; ok {
		rec.challenge = nil
	}
	return nil
}

// Count returns the total number of authenticators in the store.
func (s *MemoryCredentialStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, rec := range s.records {
		n += len(rec.authenticators)
	}
	return n
}

// Clear removes all records from the store.
func (s *MemoryCredentialStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*memoryRecord)
}
