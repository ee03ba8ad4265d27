// Package proxy contains the transient request/response values moved
// through the forwarding pipeline and the error taxonomy callers map to
// HTTP statuses.
package proxy

import (
	"net/http"
)

// FileUpload is a multipart file forwarded to a backend, plus any scalar
// form fields accompanying it.
type FileUpload struct {
	// FieldName is the multipart field the file is sent under.
	FieldName string
	// FileName is the original client-supplied file name.
	FileName string
	// ContentType is the part's declared media type.
	ContentType string
	// Content is the full file body.
	Content []byte
	// Fields are scalar form fields sent alongside the file.
	Fields map[string][]string
}

// Request is the transient value built per inbound call. It is consumed
// exactly once by the forwarder and discarded afterwards -- never
// persisted, never retried.
type Request struct {
	// Header carries the inbound headers before filtering. Keys are
	// canonical per net/http; matching is therefore case-insensitive.
	// Cookie rides along here verbatim, so the backend sees the
	// caller's session id exactly as sent.
	Header http.Header
	// Body is the raw request body. An empty body is valid and is
	// forwarded as empty, never coerced to null or omitted.
	Body []byte
	// File, when non-nil, replaces Body with a multipart form.
	// Body and File are mutually exclusive.
	File *FileUpload
	// RawQuery is the inbound query string, forwarded verbatim.
	RawQuery string
}

// Response is the relayed backend response. Header values -- Set-Cookie
// in particular -- are copied byte-for-byte from the backend, never
// re-serialized, so cookie attributes and ordering survive unchanged.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}
