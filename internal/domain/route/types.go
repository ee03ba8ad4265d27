// Package route maps service tokens from the request path to backend
// base URLs. The table is built once at startup and never mutated, so
// concurrent resolution needs no locking.
package route

// Service identifies a backend behind the gateway. The enumeration is
// closed: tokens outside it are rejected before any dispatch.
type Service string

const (
	// ServiceAuth is the session/credential service.
	ServiceAuth Service = "auth"
	// ServiceUser is the user profile service.
	ServiceUser Service = "user"
	// ServiceCBAM is the carbon border adjustment service.
	ServiceCBAM Service = "cbam"
	// ServiceChatbot is the chatbot service.
	ServiceChatbot Service = "chatbot"
	// ServiceLCA is the life cycle assessment service.
	ServiceLCA Service = "lca"
	// ServiceReport is the reporting service.
	ServiceReport Service = "report"
)

// Services lists every member of the closed enumeration.
var Services = []Service{
	ServiceAuth,
	ServiceUser,
	ServiceCBAM,
	ServiceChatbot,
	ServiceLCA,
	ServiceReport,
}

// IsValid reports whether s is a member of the closed enumeration.
func (s Service) IsValid() bool {
	switch s {
	case ServiceAuth, ServiceUser, ServiceCBAM, ServiceChatbot, ServiceLCA, ServiceReport:
		return true
	default:
		return false
	}
}

// Target is a resolved backend: the base URL plus an optional forward
// prefix inserted between the base and the request path. The auth service
// mounts its routes under /auth, so its target carries that prefix as
// table data rather than per-call logic.
type Target struct {
	// Service is the enumeration member this target serves.
	Service Service
	// BaseURL is the backend base URL with no trailing slash.
	BaseURL string
	// ForwardPrefix is prepended to the forwarded path (e.g. "/auth").
	ForwardPrefix string
}

// defaultBaseURLs are the compose-network defaults of the original
// deployment; configuration and environment overrides replace them.
var defaultBaseURLs = map[Service]string{
	ServiceAuth:    "http://auth-service:8081",
	ServiceUser:    "http://user-service:8005",
	ServiceCBAM:    "http://cbam-service:8001",
	ServiceChatbot: "http://chatbot-service:8002",
	ServiceLCA:     "http://lca-service:8003",
	ServiceReport:  "http://report-service:8004",
}

// forwardPrefixes records per-service routing conventions.
var forwardPrefixes = map[Service]string{
	ServiceAuth: "/auth",
}
