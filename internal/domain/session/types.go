// Package session defines server-side login sessions and the store
// contract they persist through. A session's lifetime is fixed at
// creation: reads never extend expiry.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// DefaultTTL is the session lifetime applied when none is configured.
const DefaultTTL = 24 * time.Hour

// Session tracks an authenticated user between login and logout.
type Session struct {
	// ID is a cryptographically random identifier, 32 bytes encoded as
	// unpadded URL-safe base64 (cookie-safe without escaping).
	ID string
	// UserID references the credential this session belongs to.
	UserID int64
	// Email is cached from the credential so verification needs no
	// credential lookup.
	Email string
	// CreatedAt is when the session was created (UTC).
	CreatedAt time.Time
	// ExpiresAt is when the session expires (UTC). Set once, never moved.
	ExpiresAt time.Time
}

// IsExpired checks if the session has passed its fixed expiry.
func (s *Session) IsExpired() bool {
	return time.Now().UTC().After(s.ExpiresAt)
}

// NewID creates a cryptographically random session ID.
// Uses crypto/rand for unpredictability; 32 bytes of entropy.
func NewID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session ID: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Mint builds a new session for a user with the given lifetime.
// A non-positive ttl falls back to DefaultTTL.
func Mint(userID int64, email string, ttl time.Duration) (*Session, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		UserID:    userID,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}
