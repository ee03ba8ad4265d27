// Package cors contains the origin policy for the gateway.
// The policy is compiled once at startup and is immutable afterwards,
// so concurrent evaluation needs no synchronization.
package cors

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
)

// Header values emitted for allowed origins. Credentialed requests forbid
// a wildcard Allow-Origin, so the literal request origin is always echoed.
const (
	allowMethods  = "GET, POST, PUT, DELETE, OPTIONS"
	allowHeaders  = "*"
	exposeHeaders = "*"
)

// DefaultMaxAge is the preflight cache lifetime in seconds.
const DefaultMaxAge = 86400

// Policy decides whether a request origin may make credentialed
// cross-origin calls. An origin is allowed when it exactly matches an
// entry in the allow list or matches the optional pattern.
type Policy struct {
	allowList map[string]struct{}
	pattern   *regexp.Regexp
	maxAge    int
}

// New compiles a Policy from an exact allow list and an optional regular
// expression (e.g. `^https://[a-z0-9-]+\.vercel\.app$` to admit preview
// deployments). An empty pattern disables regex matching.
func New(allowList []string, pattern string, maxAge int) (*Policy, error) {
	p := &Policy{
		allowList: make(map[string]struct{}, len(allowList)),
		maxAge:    maxAge,
	}
	if p.maxAge <= 0 {
		p.maxAge = DefaultMaxAge
	}
	for _, origin := range allowList {
		p.allowList[origin] = struct{}{}
	}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile origin pattern: %w", err)
		}
		p.pattern = re
	}
	return p, nil
}

// Evaluate reports whether origin is allowed and, if so, the exact value to
// echo in Access-Control-Allow-Origin. An empty origin means a same-origin
// or non-browser call: allowed, with no origin to echo (no CORS headers
// are needed at all). Disallowed origins are never substituted with a
// default -- the caller rejects or omits the headers.
func (p *Policy) Evaluate(origin string) (allowed bool, echoOrigin string) {
	if origin == "" {
		return true, ""
	}
	if _, ok := p.allowList[origin]; ok {
		return true, origin
	}
	if p.pattern != nil && p.pattern.MatchString(origin) {
		return true, origin
	}
	return false, ""
}

// Apply writes the CORS response headers for origin onto h.
// It first removes any Access-Control-* headers already present so the
// gateway's decision always overrides backend-originated CORS headers.
// Nothing is written when the origin is empty or not allowed.
func (p *Policy) Apply(h http.Header, origin string) {
	stripCORSHeaders(h)
	allowed, echo := p.Evaluate(origin)
	if !allowed || echo == "" {
		return
	}
	h.Set("Access-Control-Allow-Origin", echo)
	h.Set("Access-Control-Allow-Credentials", "true")
	h.Set("Access-Control-Allow-Methods", allowMethods)
	h.Set("Access-Control-Allow-Headers", allowHeaders)
	h.Set("Access-Control-Expose-Headers", exposeHeaders)
	h.Add("Vary", "Origin")
}

// ApplyPreflight writes the preflight response headers for an allowed
// origin, including the Max-Age cache directive.
func (p *Policy) ApplyPreflight(h http.Header, origin string) {
	p.Apply(h, origin)
	if h.Get("Access-Control-Allow-Origin") != "" {
		h.Set("Access-Control-Max-Age", strconv.Itoa(p.maxAge))
	}
}

// stripCORSHeaders removes every Access-Control-* header from h.
func stripCORSHeaders(h http.Header) {
	for key := range h {
		if len(key) >= 15 && key[:15] == "Access-Control-" {
			h.Del(key)
		}
	}
}
