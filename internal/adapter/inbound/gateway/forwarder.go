// Package gateway provides the inbound dispatch handler: it resolves
// service tokens, forwards requests to backends and relays responses
// with the gateway's CORS decision applied.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/greensteel/gateway/internal/domain/proxy"
	"github.com/greensteel/gateway/internal/domain/route"
)

// DefaultTimeout bounds one forwarded request end to end.
const DefaultTimeout = 30 * time.Second

// Forwarder resolves service tokens and relays requests to backends.
type Forwarder struct {
	table  *route.Table
	client *http.Client
	logger *slog.Logger
}

// NewForwarder creates a Forwarder over the routing table with sensible
// HTTP client defaults. A non-positive timeout falls back to
// DefaultTimeout.
func NewForwarder(table *route.Table, timeout time.Duration, logger *slog.Logger) *Forwarder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{
		table: table,
		client: &http.Client{
			Timeout: timeout,
			// Do not follow redirects -- pass them through to the caller.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
}

// Forward resolves serviceKey, sends the request to the backend and
// returns the buffered response. Resolution failure costs no network
// I/O. Transport failures are classified into the proxy error taxonomy.
func (f *Forwarder) Forward(ctx context.Context, method, serviceKey, path string, preq *proxy.Request) (*proxy.Response, error) {
	target, err := f.table.Resolve(serviceKey)
	if err != nil {
		return nil, err
	}

	forwardURL := target.ForwardURL(path, preq.RawQuery)

	body, contentType, err := buildBody(preq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", proxy.ErrUpstream, err)
	}

	outReq, err := http.NewRequestWithContext(ctx, method, forwardURL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %s", proxy.ErrUpstream, err)
	}

	// Cookie survives the filter untouched, so the backend receives it
	// exactly as the caller sent it.
	outReq.Header = proxy.FilterHeader(preq.Header)
	if contentType != "" {
		// Multipart rebuild produces a fresh boundary
		outReq.Header.Set("Content-Type", contentType)
	}

	resp, err := f.client.Do(outReq)
	if err != nil {
		return nil, classifyTransportError(err, target.Service)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %s", proxy.ErrUpstream, err)
	}

	return &proxy.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// buildBody returns the outbound body reader and, for multipart uploads,
// the rebuilt Content-Type with its boundary.
func buildBody(preq *proxy.Request) (io.Reader, string, error) {
	if preq.File == nil {
		return bytes.NewReader(preq.Body), "", nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	// Rebuild the file part with its declared media type; CreateFormFile
	// would stamp everything application/octet-stream.
	partType := preq.File.ContentType
	if partType == "" {
		partType = "application/octet-stream"
	}
	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(preq.File.FieldName), escapeQuotes(preq.File.FileName)))
	partHeader.Set("Content-Type", partType)

	part, err := mw.CreatePart(partHeader)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(preq.File.Content); err != nil {
		return nil, "", fmt.Errorf("write form file: %w", err)
	}
	for field, values := range preq.File.Fields {
		for _, v := range values {
			if err := mw.WriteField(field, v); err != nil {
				return nil, "", fmt.Errorf("write form field %q: %w", field, err)
			}
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}

	return &buf, mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// classifyTransportError maps a client error onto the proxy taxonomy.
// Deadline errors become ErrGatewayTimeout, connection failures become
// ErrServiceUnreachable.
func classifyTransportError(err error, svc route.Service) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", proxy.ErrGatewayTimeout, svc)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s", proxy.ErrGatewayTimeout, svc)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %s: %s", proxy.ErrServiceUnreachable, svc, urlErr.Err)
	}
	return fmt.Errorf("%w: %s: %s", proxy.ErrServiceUnreachable, svc, err)
}
