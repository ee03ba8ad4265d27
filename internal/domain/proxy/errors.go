package proxy

import (
	"errors"
	"net/http"

	"github.com/greensteel/gateway/internal/domain/route"
)

// Sentinel errors produced by the forwarding pipeline. Callers map them
// to distinct HTTP statuses, so timeout and connection failure must stay
// distinguishable from generic faults.
var (
	// ErrGatewayTimeout means the backend exceeded the forwarding deadline.
	ErrGatewayTimeout = errors.New("gateway timeout")
	// ErrServiceUnreachable means the backend connection was refused or reset.
	ErrServiceUnreachable = errors.New("service unreachable")
	// ErrUpstream means the backend responded but the relay itself failed.
	ErrUpstream = errors.New("upstream relay error")
)

// StatusFor maps a forwarding error to the HTTP status returned to the
// caller. Unknown service tokens were never dispatched, so they get 404;
// everything unclassified is a relay fault.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, route.ErrUnknownService):
		return http.StatusNotFound
	case errors.Is(err, ErrGatewayTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrServiceUnreachable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorType returns the machine-readable error token for a forwarding
// error, used in the JSON error body.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, route.ErrUnknownService):
		return "unknown_service"
	case errors.Is(err, ErrGatewayTimeout):
		return "gateway_timeout"
	case errors.Is(err, ErrServiceUnreachable):
		return "service_unreachable"
	default:
		return "upstream_error"
	}
}
