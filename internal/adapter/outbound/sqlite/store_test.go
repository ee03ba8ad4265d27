package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/greensteel/gateway/internal/domain/account"
	"github.com/greensteel/gateway/internal/domain/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error: %v", err)
		}
	})
	return store
}

// seedUser inserts a credential and returns its ID. Sessions reference
// users through a foreign key, so session tests need a real user row.
func seedUser(t *testing.T, store *Store, email string) int64 {
	t.Helper()

	cred := &account.Credential{Email: email, PasswordHash: "hash"}
	if err := store.Create(context.Background(), cred); err != nil {
		t.Fatalf("seed credential: %v", err)
	}
	return cred.ID
}

func TestStore_CredentialRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	cred := &account.Credential{
		Email:        "user@example.com",
		PasswordHash: "$argon2id$v=19$m=48128,t=1,p=1$salt$hash",
	}
	if err := store.Create(ctx, cred); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if cred.ID == 0 {
		t.Error("Create() did not assign an ID")
	}

	got, err := store.GetByEmail(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error: %v", err)
	}
	if got.ID != cred.ID {
		t.Errorf("ID = %d, want %d", got.ID, cred.ID)
	}
	if got.PasswordHash != cred.PasswordHash {
		t.Errorf("PasswordHash = %q, want %q", got.PasswordHash, cred.PasswordHash)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps were not persisted")
	}
}

func TestStore_DuplicateEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	if err := store.Create(ctx, &account.Credential{Email: "user@example.com", PasswordHash: "h1"}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	err := store.Create(ctx, &account.Credential{Email: "user@example.com", PasswordHash: "h2"})
	if !errors.Is(err, account.ErrDuplicateEmail) {
		t.Errorf("Create() duplicate error = %v, want ErrDuplicateEmail", err)
	}

	// COLLATE NOCASE makes uniqueness case-insensitive
	err = store.Create(ctx, &account.Credential{Email: "USER@example.com", PasswordHash: "h3"})
	if !errors.Is(err, account.ErrDuplicateEmail) {
		t.Errorf("Create() case-variant duplicate error = %v, want ErrDuplicateEmail", err)
	}
}

func TestStore_GetByEmailNonExistent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	_, err := store.GetByEmail(ctx, "missing@example.com")
	if !errors.Is(err, account.ErrCredentialNotFound) {
		t.Errorf("GetByEmail() error = %v, want ErrCredentialNotFound", err)
	}
}

func TestStore_SessionRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	sessions := store.Sessions()
	userID := seedUser(t, store, "user@example.com")

	sess, err := session.Mint(userID, "user@example.com", 24*time.Hour)
	if err != nil {
		t.Fatalf("Mint() error: %v", err)
	}
	if err := sessions.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	got, err := sessions.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.UserID != userID {
		t.Errorf("UserID = %d, want %d", got.UserID, userID)
	}
	if got.Email != "user@example.com" {
		t.Errorf("Email = %q, want user@example.com", got.Email)
	}
	if !got.ExpiresAt.Equal(sess.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, sess.ExpiresAt)
	}
}

func TestStore_SessionExpired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	sessions := store.Sessions()
	userID := seedUser(t, store, "user@example.com")

	sess := &session.Session{
		ID:        "sess-expired",
		UserID:    userID,
		Email:     "user@example.com",
		CreatedAt: time.Now().UTC().Add(-25 * time.Hour),
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	if err := sessions.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	_, err := sessions.Get(ctx, "sess-expired")
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Get() for expired session error = %v, want ErrSessionNotFound", err)
	}
}

func TestStore_SessionDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	sessions := store.Sessions()
	userID := seedUser(t, store, "user@example.com")

	sess, err := session.Mint(userID, "user@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Mint() error: %v", err)
	}
	if err := sessions.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if err := sessions.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := sessions.Get(ctx, sess.ID); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Get() after Delete() error = %v, want ErrSessionNotFound", err)
	}

	// Deleting again is a no-op
	if err := sessions.Delete(ctx, sess.ID); err != nil {
		t.Errorf("Delete() on absent session error = %v, want nil", err)
	}
}

func TestStore_CleanupSweep(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := OpenWithConfig(filepath.Join(t.TempDir(), "auth.db"), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("OpenWithConfig() error: %v", err)
	}
	defer store.Close()

	store.StartCleanup(ctx)
	sessions := store.Sessions()
	userID := seedUser(t, store, "user@example.com")

	expired := &session.Session{
		ID:        "sess-sweep",
		UserID:    userID,
		Email:     "user@example.com",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(100 * time.Millisecond),
	}
	if err := sessions.Create(ctx, expired); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	time.Sleep(250 * time.Millisecond)

	// Row should be gone, not just filtered on read
	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		t.Fatalf("count query error: %v", err)
	}
	if count != 0 {
		t.Errorf("sessions remaining after sweep = %d, want 0", count)
	}
}

func TestStore_NoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())

	store, err := OpenWithConfig(filepath.Join(t.TempDir(), "auth.db"), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("OpenWithConfig() error: %v", err)
	}
	store.StartCleanup(ctx)

	time.Sleep(100 * time.Millisecond)

	cancel()
	if err := store.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestStore_Persistence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "auth.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	cred := &account.Credential{Email: "user@example.com", PasswordHash: "hash"}
	if err := store.Create(ctx, cred); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	// Reopen and verify the row survived
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetByEmail(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() after reopen error: %v", err)
	}
	if got.ID != cred.ID {
		t.Errorf("ID = %d, want %d", got.ID, cred.ID)
	}
}
