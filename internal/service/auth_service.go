// Package service contains the application services that orchestrate
// domain logic over the outbound stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/greensteel/gateway/internal/domain/account"
	"github.com/greensteel/gateway/internal/domain/session"
)

// AuthService errors.
var (
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingFields is returned when email or password is empty.
	ErrMissingFields = errors.New("email and password are required")
	// ErrNoSession is returned when a verification carries no session ID.
	ErrNoSession = errors.New("no session")
	// ErrInvalidSession is returned when a session ID is unknown or expired.
	ErrInvalidSession = errors.New("invalid session")
)

// AuthService implements the session lifecycle: signup, login, logout
// and verification over the credential and session stores.
type AuthService struct {
	accounts account.Store
	sessions session.Store
	ttl      time.Duration
	logger   *slog.Logger
}

// NewAuthService creates a new AuthService. A non-positive ttl falls
// back to session.DefaultTTL.
func NewAuthService(accounts account.Store, sessions session.Store, ttl time.Duration, logger *slog.Logger) *AuthService {
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		accounts: accounts,
		sessions: sessions,
		ttl:      ttl,
		logger:   logger,
	}
}

// Signup registers a new credential. The password is hashed with
// Argon2id before it reaches the store; the plaintext is never persisted.
// Returns account.ErrDuplicateEmail when the email is taken.
func (s *AuthService) Signup(ctx context.Context, email, password string) (*account.Credential, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	hash, err := account.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	cred := &account.Credential{
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.accounts.Create(ctx, cred); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", cred.ID, "email", email)
	return cred, nil
}

// Login verifies the credentials and mints a new session.
// Unknown email and wrong password both return ErrInvalidCredentials;
// a dummy hash verification keeps the two paths timing-equivalent.
func (s *AuthService) Login(ctx context.Context, email, password string) (*session.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	cred, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrCredentialNotFound) {
			_, _ = account.VerifyPassword(password, dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup credential: %w", err)
	}

	match, err := account.VerifyPassword(password, cred.PasswordHash)
	if err != nil {
		s.logger.Warn("password verification failed", "user_id", cred.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !match {
		return nil, ErrInvalidCredentials
	}

	sess, err := session.Mint(cred.ID, cred.Email, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("mint session: %w", err)
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	s.logger.Info("user logged in", "user_id", cred.ID, "email", cred.Email)
	return sess, nil
}

// Logout deletes the session. Idempotent: an unknown or empty session ID
// succeeds, since the end state is the same. The returned bool reports
// whether a live session was actually revoked, so callers can tell a
// real logout from a replay with a stale ID.
func (s *AuthService) Logout(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("lookup session: %w", err)
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	s.logger.Info("user logged out", "session_id", truncateID(sessionID))
	return true, nil
}

// Verify checks a session ID and returns the live session.
// Returns ErrNoSession for an empty ID and ErrInvalidSession when the
// session is unknown or expired. Verification never extends the session.
func (s *AuthService) Verify(ctx context.Context, sessionID string) (*session.Session, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if sess.IsExpired() {
		_ = s.sessions.Delete(ctx, sessionID)
		return nil, ErrInvalidSession
	}
	return sess, nil
}

// dummyHash is a valid Argon2id hash of an unguessable throwaway value,
// verified against when the email is unknown so login latency does not
// reveal which emails exist.
const dummyHash = "$argon2id$v=19$m=48128,t=1,p=1$WGpGTEtISm9QVnRBYlFoeQ$1t9GYuBBB+OQuB1tezPBDp5Nv4fC2zmh9YGLFg7l1Oo"

// truncateID shortens a session ID for log output.
func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
