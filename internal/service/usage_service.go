package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Defaults for the usage reporter.
const (
	DefaultUsageQueueSize   = 256
	DefaultUsageSendTimeout = 5 * time.Second
)

// UsageRecord describes one relayed request, reported to the auth
// service's usage log endpoint after the response has been sent.
type UsageRecord struct {
	// Service is the resolved service token.
	Service string `json:"service"`
	// Path is the forwarded request path.
	Path string `json:"path"`
	// Method is the inbound HTTP method.
	Method string `json:"method"`
	// StatusCode is the status relayed to the caller.
	StatusCode int `json:"status_code"`
	// DataSize is the request body size in bytes.
	DataSize int `json:"data_size"`
	// BodyDigest is the xxhash64 of the request body, hex-encoded.
	// Lets usage rows be correlated without retaining payloads.
	BodyDigest string `json:"body_digest,omitempty"`
	// Timestamp is when the request completed (UTC).
	Timestamp time.Time `json:"timestamp"`
	// Source identifies the reporting component.
	Source string `json:"source"`
}

// UsageService ships usage records to the auth service in the
// background. Records are queued on a bounded channel; when the queue is
// full the record is dropped and counted rather than blocking the
// request path. Reporting failures never affect proxying.
type UsageService struct {
	endpoint string
	client   *http.Client
	queue    chan UsageRecord
	logger   *slog.Logger
	onDrop   func()

	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once // Prevent double-close panic on Stop()
}

// UsageOption configures a UsageService.
type UsageOption func(*UsageService)

// WithUsageQueueSize sets the bounded queue capacity.
func WithUsageQueueSize(n int) UsageOption {
	return func(s *UsageService) {
		if n > 0 {
			s.queue = make(chan UsageRecord, n)
		}
	}
}

// WithUsageDropHook installs a callback invoked on every dropped record,
// typically a metrics counter increment.
func WithUsageDropHook(fn func()) UsageOption {
	return func(s *UsageService) {
		s.onDrop = fn
	}
}

// NewUsageService creates a UsageService posting to authBaseURL's usage
// log endpoint.
func NewUsageService(authBaseURL string, logger *slog.Logger, opts ...UsageOption) *UsageService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &UsageService{
		endpoint: authBaseURL + "/logs/data",
		client:   &http.Client{Timeout: DefaultUsageSendTimeout},
		queue:    make(chan UsageRecord, DefaultUsageQueueSize),
		logger:   logger,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BodyDigest returns the hex xxhash64 of body, empty for an empty body.
func BodyDigest(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(body))
}

// Report enqueues a record without blocking. Full queue drops the
// record.
func (s *UsageService) Report(rec UsageRecord) {
	if rec.Source == "" {
		rec.Source = "gateway"
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	select {
	case s.queue <- rec:
	default:
		if s.onDrop != nil {
			s.onDrop()
		}
		s.logger.Warn("usage record dropped, queue full", "service", rec.Service)
	}
}

// Start launches the background sender goroutine.
// Call Stop() to drain and stop it gracefully.
func (s *UsageService) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				s.drain(ctx)
				return
			case rec := <-s.queue:
				s.send(ctx, rec)
			}
		}
	}()
}

// drain flushes records still queued at shutdown.
func (s *UsageService) drain(ctx context.Context) {
	for {
		select {
		case rec := <-s.queue:
			s.send(ctx, rec)
		default:
			return
		}
	}
}

// send posts one record. Failures are logged and dropped; the usage log
// is advisory.
func (s *UsageService) send(ctx context.Context, rec UsageRecord) {
	payload, err := json.Marshal(rec)
	if err != nil {
		s.logger.Warn("marshal usage record failed", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		s.logger.Warn("build usage request failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("usage report failed", "endpoint", s.endpoint, "error", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		s.logger.Warn("usage report rejected", "endpoint", s.endpoint, "status", resp.StatusCode)
	}
}

// Stop stops the sender after draining queued records and waits for it
// to exit. Safe to call multiple times.
func (s *UsageService) Stop() {
	s.once.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}
