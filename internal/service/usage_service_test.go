package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestUsageService_Report(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		received []UsageRecord
	)
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/logs/data" {
			t.Errorf("path = %q, want /logs/data", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		var rec UsageRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			t.Errorf("decode record: %v", err)
		}
		mu.Lock()
		received = append(received, rec)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewUsageService(backend.URL, nil)
	svc.Start(ctx)

	svc.Report(UsageRecord{
		Service:    "cbam",
		Path:       "report/upload",
		Method:     http.MethodPost,
		StatusCode: 200,
		DataSize:   1024,
		BodyDigest: BodyDigest([]byte("payload")),
	})
	svc.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("received %d records, want 1", len(received))
	}
	rec := received[0]
	if rec.Service != "cbam" {
		t.Errorf("Service = %q, want cbam", rec.Service)
	}
	if rec.Source != "gateway" {
		t.Errorf("Source = %q, want gateway (defaulted)", rec.Source)
	}
	if rec.Timestamp.IsZero() {
		t.Error("Timestamp was not defaulted")
	}
	if rec.BodyDigest == "" {
		t.Error("BodyDigest is empty")
	}
}

func TestUsageService_DropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	var drops atomic.Int64
	// No Start(): nothing consumes the queue, so overflow must drop.
	svc := NewUsageService("http://127.0.0.1:0", nil,
		WithUsageQueueSize(2),
		WithUsageDropHook(func() { drops.Add(1) }),
	)

	for i := 0; i < 5; i++ {
		svc.Report(UsageRecord{Service: "lca"})
	}

	if got := drops.Load(); got != 3 {
		t.Errorf("drops = %d, want 3", got)
	}
}

func TestUsageService_BackendFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer backend.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewUsageService(backend.URL, nil)
	svc.Start(ctx)

	// Must not panic or block
	svc.Report(UsageRecord{Service: "chatbot"})
	svc.Stop()
}

func TestUsageService_NoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	ctx, cancel := context.WithCancel(context.Background())

	svc := NewUsageService(backend.URL, nil)
	svc.Start(ctx)
	svc.Report(UsageRecord{Service: "report"})

	time.Sleep(50 * time.Millisecond)

	cancel()
	svc.Stop()
	svc.Stop() // Safe to call multiple times
}

func TestBodyDigest(t *testing.T) {
	t.Parallel()

	if got := BodyDigest(nil); got != "" {
		t.Errorf("BodyDigest(nil) = %q, want empty", got)
	}
	d1 := BodyDigest([]byte("hello"))
	d2 := BodyDigest([]byte("hello"))
	if d1 != d2 {
		t.Errorf("digest not deterministic: %q != %q", d1, d2)
	}
	if len(d1) != 16 {
		t.Errorf("digest length = %d, want 16 hex chars", len(d1))
	}
	if BodyDigest([]byte("other")) == d1 {
		t.Error("distinct bodies produced the same digest")
	}
}
