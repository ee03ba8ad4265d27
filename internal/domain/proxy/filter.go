package proxy

import "net/http"

// droppedHeaders are never forwarded to a backend. Host and Content-Length
// are recomputed by the transport for the outbound request; the rest are
// hop-by-hop headers that only apply to the inbound connection.
var droppedHeaders = []string{
	"Host",
	"Content-Length",
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// FilterHeader returns a copy of h with the dropped headers removed.
// All other headers pass through unchanged, including Authorization and
// Cookie. The input is never mutated.
func FilterHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for key, values := range h {
		out[key] = append([]string(nil), values...)
	}
	for _, key := range droppedHeaders {
		out.Del(key)
	}
	return out
}
