// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/greensteel/gateway/internal/domain/account"
)

// AccountStore implements account.Store with an in-memory map keyed by
// email. Thread-safe for concurrent access. For development/testing only.
type AccountStore struct {
	byEmail map[string]*account.Credential // lowercased email -> credential
	nextID  int64
	mu      sync.RWMutex
}

// NewAccountStore creates a new in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		byEmail: make(map[string]*account.Credential),
		nextID:  1,
	}
}

// Create stores a new credential and assigns its ID.
// Returns account.ErrDuplicateEmail if the email is already registered.
// Email uniqueness is case-insensitive, matching the durable store's
// collation.
func (s *AccountStore) Create(ctx context.Context, cred *account.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(cred.Email)
	if _, ok := s.byEmail[key]; ok {
		return account.ErrDuplicateEmail
	}

	now := time.Now().UTC()
	cred.ID = s.nextID
	s.nextID++
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now

	// Store a copy to prevent external mutation
	credCopy := *cred
	s.byEmail[key] = &credCopy
	return nil
}

// GetByEmail retrieves a credential by email.
// Returns account.ErrCredentialNotFound if no credential has that email.
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*account.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, account.ErrCredentialNotFound
	}

	// Return a copy to prevent mutation
	credCopy := *cred
	return &credCopy, nil
}

// Size returns the number of credentials currently stored.
func (s *AccountStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEmail)
}

// Compile-time interface verification.
var _ account.Store = (*AccountStore)(nil)
