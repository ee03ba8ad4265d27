package route

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownService is returned when a requested service token is not in
// the routing enumeration. The request must fail before any network I/O.
var ErrUnknownService = errors.New("unknown service")

// Table is the immutable service routing table.
type Table struct {
	targets map[Service]Target
}

// NewTable builds the routing table from the static defaults overlaid
// with the given base URL overrides (typically sourced from config or
// environment). Every enumerated service must end up with a non-empty
// base URL; overrides for unknown tokens are rejected.
func NewTable(overrides map[Service]string) (*Table, error) {
	targets := make(map[Service]Target, len(Services))
	for svc, base := range overrides {
		if !svc.IsValid() {
			return nil, fmt.Errorf("%w: %q in overrides", ErrUnknownService, svc)
		}
		if strings.TrimSpace(base) == "" {
			return nil, fmt.Errorf("service %q: override must not be empty", svc)
		}
	}
	for _, svc := range Services {
		base := defaultBaseURLs[svc]
		if override, ok := overrides[svc]; ok && override != "" {
			base = override
		}
		targets[svc] = Target{
			Service:       svc,
			BaseURL:       base,
			ForwardPrefix: forwardPrefixes[svc],
		}
	}
	return &Table{targets: targets}, nil
}

// Resolve looks up the target for a service token. Trailing slashes on
// the base URL are stripped at resolution time, never at storage time,
// so repeated resolution is idempotent. No network I/O happens here.
func (t *Table) Resolve(key string) (Target, error) {
	svc := Service(key)
	if !svc.IsValid() {
		return Target{}, fmt.Errorf("%w: %q", ErrUnknownService, key)
	}
	target, ok := t.targets[svc]
	if !ok {
		return Target{}, fmt.Errorf("%w: %q", ErrUnknownService, key)
	}
	target.BaseURL = strings.TrimRight(target.BaseURL, "/")
	return target, nil
}

// ForwardURL builds the outbound URL for a request path and raw query.
// The path is appended with a single separating slash; query is attached
// verbatim when present.
func (tg Target) ForwardURL(path, rawQuery string) string {
	u := tg.BaseURL + tg.ForwardPrefix + "/" + strings.TrimPrefix(path, "/")
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}
