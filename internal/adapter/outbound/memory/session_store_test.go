// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/greensteel/gateway/internal/domain/session"
)

func TestSessionStore_CreateAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	sess := &session.Session{
		ID:        "sess-1",
		UserID:    1,
		Email:     "user@example.com",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}

	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	got, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	if got.ID != "sess-1" {
		t.Errorf("ID = %q, want %q", got.ID, "sess-1")
	}
	if got.UserID != 1 {
		t.Errorf("UserID = %d, want 1", got.UserID)
	}
	if got.Email != "user@example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "user@example.com")
	}
}

func TestSessionStore_GetNonExistent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	_, err := store.Get(ctx, "nonexistent")
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Get() error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStore_ExpiredSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	// Create already-expired session
	sess := &session.Session{
		ID:        "sess-expired",
		UserID:    1,
		CreatedAt: time.Now().UTC().Add(-25 * time.Hour),
		ExpiresAt: time.Now().UTC().Add(-time.Minute), // Already expired
	}

	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// Get should fail (lazy expiration check - but no deletion here)
	_, err := store.Get(ctx, "sess-expired")
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Get() for expired session error = %v, want ErrSessionNotFound", err)
	}

	// Second get should also fail (session is still there but expired)
	_, err = store.Get(ctx, "sess-expired")
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Get() after first check error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStore_Delete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	sess := &session.Session{
		ID:        "sess-delete",
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}

	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// Delete the session
	if err := store.Delete(ctx, "sess-delete"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	// Get should fail
	_, err := store.Get(ctx, "sess-delete")
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Get() after Delete() should return ErrSessionNotFound, got %v", err)
	}
}

func TestSessionStore_DeleteNonExistent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	// Delete non-existent session should not error
	if err := store.Delete(ctx, "nonexistent"); err != nil {
		t.Errorf("Delete() on non-existent session should not error, got %v", err)
	}
}

func TestSessionStore_CopyOnReturn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	sess := &session.Session{
		ID:        "sess-copy-test",
		UserID:    1,
		Email:     "user@example.com",
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}

	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// Get and modify
	got1, err := store.Get(ctx, "sess-copy-test")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	got1.Email = "modified@example.com"
	got1.ExpiresAt = got1.ExpiresAt.Add(time.Hour)

	// Get again - should not be modified
	got2, err := store.Get(ctx, "sess-copy-test")
	if err != nil {
		t.Fatalf("Get() second call error: %v", err)
	}

	if got2.Email == "modified@example.com" {
		t.Error("Store returned reference instead of copy (Email was modified)")
	}
}

func TestSessionStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	// Create some sessions for concurrent access
	for i := 0; i < 10; i++ {
		sess := &session.Session{
			ID:        fmt.Sprintf("sess-concurrent-%d", i),
			UserID:    1,
			ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
		}
		if err := store.Create(ctx, sess); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 300)

	// 100 goroutines reading
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sessID := fmt.Sprintf("sess-concurrent-%d", idx%10)
			_, err := store.Get(ctx, sessID)
			if err != nil && !errors.Is(err, session.ErrSessionNotFound) {
				errCh <- err
			}
		}(i)
	}

	// 50 goroutines creating new sessions
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sess := &session.Session{
				ID:        fmt.Sprintf("sess-new-%d", idx),
				ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
			}
			if err := store.Create(ctx, sess); err != nil {
				errCh <- err
			}
		}(i)
	}

	// 50 goroutines deleting
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sessID := fmt.Sprintf("sess-concurrent-%d", idx%10)
			// Delete should never error
			if err := store.Delete(ctx, sessID); err != nil {
				errCh <- err
			}
		}(i)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("Concurrent access error: %v", err)
	}
}

// TestSessionStoreCleanup verifies that expired sessions are removed by background cleanup.
func TestSessionStoreCleanup(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create store with short cleanup interval
	store := NewSessionStoreWithConfig(50 * time.Millisecond)
	store.StartCleanup(ctx)
	defer store.Stop()

	// Create a session that expires in 100ms
	sess := &session.Session{
		ID:        "sess-cleanup-test",
		UserID:    1,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(100 * time.Millisecond),
	}

	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// Verify session exists initially
	_, err := store.Get(ctx, "sess-cleanup-test")
	if err != nil {
		t.Fatalf("Get() should succeed initially: %v", err)
	}

	if store.Size() != 1 {
		t.Errorf("Size() = %d, want 1", store.Size())
	}

	// Wait for expiration + cleanup cycle
	time.Sleep(250 * time.Millisecond)

	// Session should be cleaned up - Get returns ErrSessionNotFound
	_, err = store.Get(ctx, "sess-cleanup-test")
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Get() after cleanup should return ErrSessionNotFound, got %v", err)
	}

	// Internal map should also be clean
	if store.Size() != 0 {
		t.Errorf("Size() after cleanup = %d, want 0", store.Size())
	}
}

// TestSessionStoreNoGoroutineLeak verifies that cleanup goroutine exits properly.
func TestSessionStoreNoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())

	store := NewSessionStoreWithConfig(50 * time.Millisecond)
	store.StartCleanup(ctx)

	for i := 0; i < 5; i++ {
		sess := &session.Session{
			ID:        fmt.Sprintf("sess-leak-test-%d", i),
			ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
		}
		_ = store.Create(ctx, sess)
		_, _ = store.Get(ctx, sess.ID)
	}

	// Wait a bit for cleanup goroutine to run
	time.Sleep(100 * time.Millisecond)

	// Cancel context and stop cleanup
	cancel()
	store.Stop()

	// goleak.VerifyNone will fail if goroutine leaked
}

// TestSessionStoreStopMultipleCalls verifies Stop() can be called multiple times safely.
func TestSessionStoreStopMultipleCalls(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewSessionStoreWithConfig(50 * time.Millisecond)
	store.StartCleanup(ctx)

	// Call Stop() multiple times - should not panic
	store.Stop()
	store.Stop()
	store.Stop()
}
