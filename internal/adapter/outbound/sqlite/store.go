// Package sqlite provides a durable SQLite-backed implementation of the
// credential and session stores, using a single database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/greensteel/gateway/internal/domain/account"
	"github.com/greensteel/gateway/internal/domain/session"
)

// Default cleanup interval for the expired-session sweep.
const DefaultCleanupInterval = 1 * time.Minute

// timeFormat is the column encoding for timestamps. UTC RFC3339Nano text
// sorts and compares lexicographically.
const timeFormat = time.RFC3339Nano

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	email         TEXT UNIQUE NOT NULL COLLATE NOCASE,
	password_hash TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	user_id    INTEGER NOT NULL,
	email      TEXT NOT NULL,
	created_at TEXT NOT NULL,
	expires_at TEXT NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
`

// Store implements account.Store and session.Store on a SQLite file.
// Safe for concurrent use; database/sql serializes access per connection
// and WAL mode allows readers alongside the writer.
type Store struct {
	db              *sql.DB
	stopChan        chan struct{}
	wg              sync.WaitGroup
	cleanupInterval time.Duration
	once            sync.Once // Prevent double-close panic on Stop()
}

// Open opens (creating if absent) the database at path and initializes
// the schema. Use ":memory:" for an ephemeral database in tests.
func Open(path string) (*Store, error) {
	return OpenWithConfig(path, DefaultCleanupInterval)
}

// OpenWithConfig opens the database with a custom cleanup interval.
func OpenWithConfig(path string, cleanupInterval time.Duration) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// modernc.org/sqlite is a single-writer engine; one connection avoids
	// SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return &Store{
		db:              db,
		stopChan:        make(chan struct{}),
		cleanupInterval: cleanupInterval,
	}, nil
}

// Close stops the cleanup goroutine and closes the database.
func (s *Store) Close() error {
	s.Stop()
	return s.db.Close()
}

// StartCleanup starts the background sweep that deletes expired sessions.
// Call Stop() (or Close()) to stop it gracefully.
func (s *Store) StartCleanup(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.cleanup(ctx)
			}
		}
	}()
}

// cleanup deletes all expired sessions.
func (s *Store) cleanup(ctx context.Context) {
	now := time.Now().UTC().Format(timeFormat)
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		slog.Warn("session cleanup failed", "error", err)
		return
	}
	if cleaned, err := res.RowsAffected(); err == nil && cleaned > 0 {
		slog.Debug("cleaned expired sessions", "count", cleaned)
	}
}

// Stop stops the background cleanup goroutine and waits for it to exit.
// Safe to call multiple times.
func (s *Store) Stop() {
	s.once.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

// Create stores a new credential and assigns its ID.
// Returns account.ErrDuplicateEmail if the email is already registered.
func (s *Store) Create(ctx context.Context, cred *account.Credential) error {
	now := time.Now().UTC()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		cred.Email, cred.PasswordHash,
		cred.CreatedAt.Format(timeFormat), cred.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return account.ErrDuplicateEmail
		}
		return fmt.Errorf("insert credential: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read credential id: %w", err)
	}
	cred.ID = id
	return nil
}

// GetByEmail retrieves a credential by email (case-insensitive).
// Returns account.ErrCredentialNotFound if no credential has that email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*account.Credential, error) {
	var (
		cred               account.Credential
		createdAt, updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at, updated_at FROM users WHERE email = ?`,
		email,
	).Scan(&cred.ID, &cred.Email, &cred.PasswordHash, &createdAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, account.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query credential: %w", err)
	}

	if cred.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if cred.UpdatedAt, err = time.Parse(timeFormat, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &cred, nil
}

// CreateSession stores a new session.
func (s *Store) CreateSession(ctx context.Context, sess *session.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, user_id, email, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.Email,
		sess.CreatedAt.UTC().Format(timeFormat), sess.ExpiresAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
// Returns session.ErrSessionNotFound if the session doesn't exist or is
// expired. Expired rows are left for the background sweep.
func (s *Store) GetSession(ctx context.Context, id string) (*session.Session, error) {
	var (
		sess               session.Session
		createdAt, expires string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, email, created_at, expires_at FROM sessions WHERE session_id = ?`,
		id,
	).Scan(&sess.ID, &sess.UserID, &sess.Email, &createdAt, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	if sess.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if sess.ExpiresAt, err = time.Parse(timeFormat, expires); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}

	if sess.IsExpired() {
		return nil, session.ErrSessionNotFound
	}
	return &sess, nil
}

// DeleteSession removes a session. Deleting an absent session is a no-op.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc.org/sqlite exposes no typed error for this, so the message is
// matched.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Sessions returns a session.Store view over the shared database.
func (s *Store) Sessions() session.Store {
	return &sessionStore{s}
}

// Accounts returns an account.Store view over the shared database.
func (s *Store) Accounts() account.Store {
	return s
}

// sessionStore adapts Store's session methods to the session.Store
// contract, whose method names collide with the credential ones.
type sessionStore struct {
	store *Store
}

func (s *sessionStore) Create(ctx context.Context, sess *session.Session) error {
	return s.store.CreateSession(ctx, sess)
}

func (s *sessionStore) Get(ctx context.Context, id string) (*session.Session, error) {
	return s.store.GetSession(ctx, id)
}

func (s *sessionStore) Delete(ctx context.Context, id string) error {
	return s.store.DeleteSession(ctx, id)
}

// Compile-time interface verification.
var (
	_ account.Store = (*Store)(nil)
	_ session.Store = (*sessionStore)(nil)
)
