// Package config provides the configuration schema and loading for the
// gateway and auth binaries. Configuration comes from a YAML file,
// GREENSTEEL_* environment variables, or both; environment wins.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/greensteel/gateway/internal/domain/route"
)

// Config is the top-level configuration shared by the gateway and auth
// commands. Each binary reads its own section plus the common ones.
type Config struct {
	// Server configures the gateway HTTP listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// CORS configures the origin policy applied by the gateway.
	CORS CORSConfig `yaml:"cors" mapstructure:"cors"`

	// Services overrides backend base URLs. Unset services keep the
	// compose-network defaults.
	Services ServicesConfig `yaml:"services" mapstructure:"services"`

	// Proxy configures forwarding behavior.
	Proxy ProxyConfig `yaml:"proxy" mapstructure:"proxy"`

	// Auth configures the auth service listener and storage.
	Auth AuthConfig `yaml:"auth" mapstructure:"auth"`

	// DevMode enables development features (verbose logging, plain-HTTP
	// cookies).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the gateway HTTP server.
type ServerConfig struct {
	// HTTPAddr is the address to listen on (e.g., "0.0.0.0:8080").
	// Defaults to "0.0.0.0:8080" if empty.
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	// Defaults to "info" if empty. DevMode=true overrides to "debug".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

// CORSConfig configures the gateway's origin policy.
type CORSConfig struct {
	// AllowedOrigins is the exact-match origin allow list.
	// Via env: GREENSTEEL_CORS_ALLOWED_ORIGINS as a comma-separated list.
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins" validate:"omitempty,dive,http_origin"`

	// AllowedOriginRegex optionally admits origins by pattern, e.g.
	// preview deployments: "^https://[a-z0-9-]+\.vercel\.app$".
	// Empty disables regex matching.
	AllowedOriginRegex string `yaml:"allowed_origin_regex" mapstructure:"allowed_origin_regex"`

	// MaxAge is the preflight cache lifetime in seconds.
	// Defaults to 86400.
	MaxAge int `yaml:"max_age" mapstructure:"max_age" validate:"omitempty,min=1"`
}

// ServicesConfig overrides backend base URLs per service token.
type ServicesConfig struct {
	Auth    string `yaml:"auth" mapstructure:"auth" validate:"omitempty,url"`
	User    string `yaml:"user" mapstructure:"user" validate:"omitempty,url"`
	CBAM    string `yaml:"cbam" mapstructure:"cbam" validate:"omitempty,url"`
	Chatbot string `yaml:"chatbot" mapstructure:"chatbot" validate:"omitempty,url"`
	LCA     string `yaml:"lca" mapstructure:"lca" validate:"omitempty,url"`
	Report  string `yaml:"report" mapstructure:"report" validate:"omitempty,url"`
}

// Overrides returns the configured base URLs keyed by service token,
// omitting empty entries.
func (s ServicesConfig) Overrides() map[route.Service]string {
	overrides := make(map[route.Service]string)
	for svc, url := range map[route.Service]string{
		route.ServiceAuth:    s.Auth,
		route.ServiceUser:    s.User,
		route.ServiceCBAM:    s.CBAM,
		route.ServiceChatbot: s.Chatbot,
		route.ServiceLCA:     s.LCA,
		route.ServiceReport:  s.Report,
	} {
		if url != "" {
			overrides[svc] = url
		}
	}
	return overrides
}

// ProxyConfig configures request forwarding.
type ProxyConfig struct {
	// Timeout bounds one forwarded request end to end (e.g., "30s").
	// Defaults to "30s".
	Timeout string `yaml:"timeout" mapstructure:"timeout" validate:"omitempty,duration"`

	// UsageLog configures background usage reporting to the auth
	// service.
	UsageLog UsageLogConfig `yaml:"usage_log" mapstructure:"usage_log"`
}

// UsageLogConfig configures the gateway's usage reporter.
type UsageLogConfig struct {
	// Enabled turns usage reporting on or off. Default: true.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// QueueSize is the bounded queue capacity. Records beyond it are
	// dropped rather than blocking requests. Defaults to 256.
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size" validate:"omitempty,min=1"`
}

// AuthConfig configures the auth service.
type AuthConfig struct {
	// HTTPAddr is the auth listener address.
	// Defaults to "0.0.0.0:8081".
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// Database is the SQLite file path. Empty selects the in-memory
	// store (sessions and accounts lost on restart).
	Database string `yaml:"database" mapstructure:"database"`

	// SessionTTL is the fixed session lifetime (e.g., "24h").
	// Defaults to "24h".
	SessionTTL string `yaml:"session_ttl" mapstructure:"session_ttl" validate:"omitempty,duration"`

	// CleanupInterval is how often expired sessions are swept (e.g., "1m").
	// Defaults to "1m".
	CleanupInterval string `yaml:"cleanup_interval" mapstructure:"cleanup_interval" validate:"omitempty,duration"`

	// CookieSecure controls the Secure attribute on the session cookie.
	// Defaults to true; DevMode=true overrides to false.
	CookieSecure bool `yaml:"cookie_secure" mapstructure:"cookie_secure"`
}

// ProxyTimeout returns the parsed forwarding timeout.
// Call after Validate; the duration tag guarantees parseability.
func (c *Config) ProxyTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Proxy.Timeout)
	return d
}

// SessionTTL returns the parsed session lifetime.
func (c *Config) SessionTTL() time.Duration {
	d, _ := time.ParseDuration(c.Auth.SessionTTL)
	return d
}

// CleanupInterval returns the parsed session sweep interval.
func (c *Config) CleanupInterval() time.Duration {
	d, _ := time.ParseDuration(c.Auth.CleanupInterval)
	return d
}

// SetDefaults applies sensible default values to the configuration.
func (c *Config) SetDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "0.0.0.0:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	// CORS defaults match the frontend's local dev setup; production
	// origins come from config or GREENSTEEL_CORS_ALLOWED_ORIGINS.
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if c.CORS.MaxAge == 0 {
		c.CORS.MaxAge = 86400
	}

	if c.Proxy.Timeout == "" {
		c.Proxy.Timeout = "30s"
	}
	// Usage log enabled by default.
	// viper.IsSet distinguishes "not set" (zero value) from "explicitly false".
	if !viper.IsSet("proxy.usage_log.enabled") {
		c.Proxy.UsageLog.Enabled = true
	}
	if c.Proxy.UsageLog.QueueSize == 0 {
		c.Proxy.UsageLog.QueueSize = 256
	}

	if c.Auth.HTTPAddr == "" {
		c.Auth.HTTPAddr = "0.0.0.0:8081"
	}
	if c.Auth.SessionTTL == "" {
		c.Auth.SessionTTL = "24h"
	}
	if c.Auth.CleanupInterval == "" {
		c.Auth.CleanupInterval = "1m"
	}
	if !viper.IsSet("auth.cookie_secure") {
		c.Auth.CookieSecure = true
	}
}

// SetDevDefaults applies permissive defaults for development mode.
// These are applied AFTER SetDefaults and only when DevMode is on.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	c.Server.LogLevel = "debug"
	// Plain-HTTP dev setups cannot set Secure cookies
	if !viper.IsSet("auth.cookie_secure") {
		c.Auth.CookieSecure = false
	}
}
