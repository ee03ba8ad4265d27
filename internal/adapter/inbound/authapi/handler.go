// Package authapi provides the HTTP surface of the auth service:
// signup, login, logout, session verification and the usage log sink.
package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/greensteel/gateway/internal/adapter/inbound/web"
	"github.com/greensteel/gateway/internal/domain/account"
	"github.com/greensteel/gateway/internal/service"
)

// SessionCookieName is the cookie carrying the session ID.
const SessionCookieName = "session_id"

// Client-facing messages. The frontend displays these verbatim.
const (
	msgLoginOK            = "로그인이 완료되었습니다."
	msgLogoutOK           = "로그아웃이 완료되었습니다."
	msgSignupOK           = "회원가입이 완료되었습니다."
	msgMissingFields      = "이메일과 비밀번호를 입력해주세요"
	msgInvalidCredentials = "이메일 또는 비밀번호가 올바르지 않습니다"
	msgDuplicateEmail     = "이미 존재하는 이메일입니다"
	msgNoSession          = "세션이 없습니다"
	msgInvalidSession     = "유효하지 않은 세션입니다"
)

// Pinger reports backend storage health, implemented by the SQLite store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the auth service endpoints.
type Handler struct {
	auth         *service.AuthService
	ttl          time.Duration
	cookieSecure bool
	storage      Pinger
	metrics      *web.Metrics
	logger       *slog.Logger
	mux          *http.ServeMux
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithCookieSecure controls the Secure attribute on the session cookie.
// Disable only for plain-HTTP development setups.
func WithCookieSecure(secure bool) HandlerOption {
	return func(h *Handler) {
		h.cookieSecure = secure
	}
}

// WithStoragePinger attaches a storage health check for /healthz.
func WithStoragePinger(p Pinger) HandlerOption {
	return func(h *Handler) {
		h.storage = p
	}
}

// WithMetrics attaches the auth metrics.
func WithMetrics(m *web.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler creates the auth HTTP handler. ttl is the session cookie
// lifetime and must match the service's session TTL.
func NewHandler(auth *service.AuthService, ttl time.Duration, logger *slog.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		auth:         auth,
		ttl:          ttl,
		cookieSecure: true,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/signup", h.signup)
	mux.HandleFunc("POST /auth/login", h.login)
	mux.HandleFunc("POST /auth/logout", h.logout)
	mux.HandleFunc("GET /auth/verify", h.verify)
	mux.HandleFunc("POST /logs/data", h.usageLog)
	mux.HandleFunc("GET /{$}", h.root)
	mux.HandleFunc("GET /healthz", h.health)
	h.mux = mux
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// credentialsRequest is the body of signup and login.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userData is the payload nested in successful auth responses.
type userData struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	SessionID string `json:"session_id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// statusResponse is the success envelope of the auth endpoints.
type statusResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	UserData  *userData `json:"user_data,omitempty"`
}

// detailResponse is the error envelope of the auth endpoints.
type detailResponse struct {
	Detail string `json:"detail"`
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	web.WriteJSON(w, status, detailResponse{Detail: detail})
}

func writeStatus(w http.ResponseWriter, message string, data *userData) {
	web.WriteJSON(w, http.StatusOK, statusResponse{
		Status:    "success",
		Message:   message,
		Timestamp: time.Now().UTC(),
		UserData:  data,
	})
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	cred, err := h.auth.Signup(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrMissingFields):
		writeDetail(w, http.StatusBadRequest, msgMissingFields)
		return
	case errors.Is(err, account.ErrDuplicateEmail):
		writeDetail(w, http.StatusBadRequest, msgDuplicateEmail)
		return
	case err != nil:
		h.logger.Error("signup failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeStatus(w, msgSignupOK, &userData{
		UserID:    cred.ID,
		Email:     cred.Email,
		CreatedAt: cred.CreatedAt.Format(time.RFC3339),
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	sess, err := h.auth.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrMissingFields):
		writeDetail(w, http.StatusBadRequest, msgMissingFields)
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		if h.metrics != nil {
			h.metrics.LoginsTotal.WithLabelValues("failure").Inc()
		}
		writeDetail(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	case err != nil:
		h.logger.Error("login failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}

	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues("success").Inc()
		h.metrics.ActiveSessions.Inc()
	}

	http.SetCookie(w, h.sessionCookie(sess.ID, int(h.ttl.Seconds())))
	writeStatus(w, msgLoginOK, &userData{
		UserID:    sess.UserID,
		Email:     sess.Email,
		SessionID: sess.ID,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sessionID := h.sessionIDFrom(r)
	revoked, err := h.auth.Logout(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("logout failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Only a real revocation moves the gauge; replaying a logout with a
	// stale ID must not drive it negative.
	if h.metrics != nil && revoked {
		h.metrics.ActiveSessions.Dec()
	}

	// Expire the cookie regardless of whether a session existed
	http.SetCookie(w, h.sessionCookie("", -1))
	writeStatus(w, msgLogoutOK, nil)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	sess, err := h.auth.Verify(r.Context(), h.sessionIDFrom(r))
	switch {
	case errors.Is(err, service.ErrNoSession):
		writeDetail(w, http.StatusUnauthorized, msgNoSession)
		return
	case errors.Is(err, service.ErrInvalidSession):
		writeDetail(w, http.StatusUnauthorized, msgInvalidSession)
		return
	case err != nil:
		h.logger.Error("verify failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}

	web.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"user_data": userData{
			UserID:    sess.UserID,
			Email:     sess.Email,
			CreatedAt: sess.CreatedAt.Format(time.RFC3339),
		},
	})
}

// usageLog accepts gateway usage records. Records are logged, not
// persisted; the endpoint exists so gateway reporting has a sink.
func (h *Handler) usageLog(w http.ResponseWriter, r *http.Request) {
	var rec service.UsageRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed usage record")
		return
	}

	h.logger.Info("usage record",
		"source", rec.Source,
		"service", rec.Service,
		"path", rec.Path,
		"method", rec.Method,
		"status", rec.StatusCode,
		"data_size", rec.DataSize,
		"body_digest", rec.BodyDigest,
	)
	web.WriteJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	web.WriteJSON(w, http.StatusOK, map[string]string{
		"service": "greensteel-auth",
		"status":  "running",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	healthy := true

	if h.storage != nil {
		if err := h.storage.Ping(r.Context()); err != nil {
			checks["storage"] = "unreachable: " + err.Error()
			healthy = false
		} else {
			checks["storage"] = "ok"
		}
	} else {
		checks["storage"] = "in-memory"
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	web.WriteJSON(w, code, map[string]any{"status": status, "checks": checks})
}

// sessionIDFrom reads the session ID from the cookie, falling back to
// the X-Session-ID header for non-browser clients.
func (h *Handler) sessionIDFrom(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return r.Header.Get("X-Session-ID")
}

// sessionCookie builds the session cookie. maxAge -1 expires it.
func (h *Handler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
