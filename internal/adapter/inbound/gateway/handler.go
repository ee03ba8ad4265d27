package gateway

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/greensteel/gateway/internal/adapter/inbound/web"
	"github.com/greensteel/gateway/internal/domain/cors"
	"github.com/greensteel/gateway/internal/domain/proxy"
	"github.com/greensteel/gateway/internal/service"
)

// maxMultipartMemory bounds the in-memory portion of parsed uploads.
const maxMultipartMemory = 32 << 20 // 32 MiB

// UsageReporter receives a record per relayed request.
// Implemented by service.UsageService.
type UsageReporter interface {
	Report(rec service.UsageRecord)
}

// Handler is the dispatch surface of the gateway. All error paths carry
// the gateway's CORS headers so browser callers can read the bodies.
type Handler struct {
	forwarder *Forwarder
	policy    *cors.Policy
	usage     UsageReporter
	metrics   *web.Metrics
	logger    *slog.Logger
	mux       *http.ServeMux
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithUsageReporter attaches a usage reporter. Reporting happens after
// the response is relayed and never affects the caller.
func WithUsageReporter(u UsageReporter) HandlerOption {
	return func(h *Handler) {
		h.usage = u
	}
}

// WithMetrics attaches the gateway metrics.
func WithMetrics(m *web.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler creates the dispatch handler.
func NewHandler(forwarder *Forwarder, policy *cors.Policy, logger *slog.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		forwarder: forwarder,
		policy:    policy,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/{service}/{path...}", h.dispatch)
	mux.HandleFunc("GET /api/v1/{service}/{path...}", h.dispatch)
	mux.HandleFunc("OPTIONS /api/v1/{service}/{path...}", h.preflight)
	mux.HandleFunc("/api/v1/{service}/{path...}", h.methodNotAllowed)
	mux.HandleFunc("GET /{$}", h.root)
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("/", h.fallback)
	h.mux = mux
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// dispatch resolves the service token and relays the request.
func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	serviceKey := r.PathValue("service")
	path := r.PathValue("path")
	logger := web.LoggerFromContext(r.Context())

	preq, err := buildProxyRequest(r)
	if err != nil {
		logger.Warn("malformed request body", "service", serviceKey, "error", err)
		h.writeError(w, origin, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	start := time.Now()
	resp, err := h.forwarder.Forward(r.Context(), r.Method, serviceKey, path, preq)
	if err != nil {
		kind := proxy.ErrorType(err)
		logger.Warn("forward failed", "service", serviceKey, "path", path, "kind", kind, "error", err)
		if h.metrics != nil {
			h.metrics.ProxyErrors.WithLabelValues(kind).Inc()
		}
		h.writeError(w, origin, proxy.StatusFor(err), kind, err.Error())
		return
	}

	h.relay(w, origin, resp)

	logger.Info("request relayed",
		"service", serviceKey,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	// Mirror the original side channel: only non-auth POSTs carrying a
	// payload are reported.
	if h.usage != nil && r.Method == http.MethodPost && serviceKey != "auth" && bodySize(preq) > 0 {
		h.usage.Report(service.UsageRecord{
			Service:    serviceKey,
			Path:       path,
			Method:     r.Method,
			StatusCode: resp.StatusCode,
			DataSize:   bodySize(preq),
			BodyDigest: service.BodyDigest(preq.Body),
		})
	}
}

// relay copies the backend response to the caller. Backend CORS headers
// are discarded: the gateway's own policy decides what the browser sees.
// Set-Cookie values are copied verbatim.
func (h *Handler) relay(w http.ResponseWriter, origin string, resp *proxy.Response) {
	header := w.Header()
	for key, values := range resp.Header {
		header[key] = values
	}
	// Recomputed for the buffered body
	header.Del("Content-Length")
	header.Del("Transfer-Encoding")
	header.Del("Connection")

	h.policy.Apply(header, origin)

	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(resp.Body); err != nil {
		h.logger.Debug("error writing relayed body", "error", err)
	}
}

// preflight answers OPTIONS requests on behalf of the backends.
// Allowed origins get 204 with the full preflight header set, disallowed
// ones get 403. Requests without an Origin get a bare 204.
func (h *Handler) preflight(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if allowed, _ := h.policy.Evaluate(origin); !allowed {
		web.WriteJSONError(w, http.StatusForbidden, "origin_not_allowed", "origin is not allowed")
		return
	}
	h.policy.ApplyPreflight(w.Header(), origin)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET, POST, OPTIONS")
	h.writeError(w, r.Header.Get("Origin"), http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}

// fallback catches everything outside the dispatch tree. Preflights on
// non-API paths are still answered locally; anything else is a 404.
func (h *Handler) fallback(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		h.preflight(w, r)
		return
	}
	h.writeError(w, r.Header.Get("Origin"), http.StatusNotFound, "not_found", "no such route")
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	h.policy.Apply(w.Header(), r.Header.Get("Origin"))
	web.WriteJSON(w, http.StatusOK, map[string]string{
		"service": "greensteel-gateway",
		"status":  "running",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	web.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// writeError writes a JSON error with the CORS headers applied, so
// browsers can read error bodies cross-origin.
func (h *Handler) writeError(w http.ResponseWriter, origin string, status int, errType, message string) {
	h.policy.Apply(w.Header(), origin)
	web.WriteJSONError(w, status, errType, message)
}

// buildProxyRequest reads the inbound request into a transient value.
// Multipart uploads are parsed so the file can be re-encoded for the
// backend; everything else is forwarded as raw bytes.
func buildProxyRequest(r *http.Request) (*proxy.Request, error) {
	preq := &proxy.Request{
		Header:   r.Header,
		RawQuery: r.URL.RawQuery,
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return nil, err
		}
		file, err := extractUpload(r)
		if err != nil {
			return nil, err
		}
		preq.File = file
		return preq, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	preq.Body = body
	return preq, nil
}

// extractUpload pulls the first file part out of a parsed multipart
// form, preferring the conventional "file" field.
func extractUpload(r *http.Request) (*proxy.FileUpload, error) {
	form := r.MultipartForm
	if form == nil || len(form.File) == 0 {
		return nil, errors.New("multipart form has no file part")
	}

	fieldName := "file"
	headers, ok := form.File[fieldName]
	if !ok {
		for name, hs := range form.File {
			fieldName, headers = name, hs
			break
		}
	}
	if len(headers) == 0 {
		return nil, errors.New("multipart form has no file part")
	}
	fh := headers[0]

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	return &proxy.FileUpload{
		FieldName:   fieldName,
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
		Fields:      form.Value,
	}, nil
}

// bodySize reports the inbound payload size for usage accounting.
func bodySize(preq *proxy.Request) int {
	if preq.File != nil {
		return len(preq.File.Content)
	}
	return len(preq.Body)
}
