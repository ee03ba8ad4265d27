package config

import (
	"strings"
	"testing"
)

// minimalValidConfig returns a minimal valid Config for testing.
func minimalValidConfig() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_ZeroConfig(t *testing.T) {
	t.Parallel()

	// Simulate running with no config file at all.
	cfg := &Config{}
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() zero-config unexpected error: %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("default http_addr = %q, want '0.0.0.0:8080'", cfg.Server.HTTPAddr)
	}
	if cfg.Proxy.Timeout != "30s" {
		t.Errorf("default proxy timeout = %q, want '30s'", cfg.Proxy.Timeout)
	}
	if cfg.Auth.SessionTTL != "24h" {
		t.Errorf("default session_ttl = %q, want '24h'", cfg.Auth.SessionTTL)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Server.LogLevel = "verbose"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "LogLevel") {
		t.Errorf("error = %q, want to contain 'LogLevel'", err.Error())
	}
}

func TestValidate_InvalidOrigin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		origin string
	}{
		{"with path", "http://localhost:3000/app"},
		{"no scheme", "localhost:3000"},
		{"wrong scheme", "ftp://example.com"},
		{"trailing slash", "http://localhost:3000/"},
		{"with query", "http://localhost:3000?x=1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := minimalValidConfig()
			cfg.CORS.AllowedOrigins = []string{tt.origin}

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() expected error for origin %q, got nil", tt.origin)
			}
			if !strings.Contains(err.Error(), "origin") {
				t.Errorf("error = %q, want to mention origin", err.Error())
			}
		})
	}
}

func TestValidate_ValidOrigins(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.CORS.AllowedOrigins = []string{
		"http://localhost:3000",
		"https://app.example.com",
		"https://app.example.com:8443",
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_InvalidOriginRegex(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.CORS.AllowedOriginRegex = `^https://(unclosed`

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for invalid regex, got nil")
	}
	if !strings.Contains(err.Error(), "allowed_origin_regex") {
		t.Errorf("error = %q, want to contain 'allowed_origin_regex'", err.Error())
	}
}

func TestValidate_ValidOriginRegex(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.CORS.AllowedOriginRegex = `^https://[a-z0-9-]+\.vercel\.app$`

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_InvalidDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"proxy timeout", func(c *Config) { c.Proxy.Timeout = "thirty seconds" }},
		{"negative timeout", func(c *Config) { c.Proxy.Timeout = "-5s" }},
		{"session ttl", func(c *Config) { c.Auth.SessionTTL = "1day" }},
		{"cleanup interval", func(c *Config) { c.Auth.CleanupInterval = "60" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := minimalValidConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), "duration") {
				t.Errorf("error = %q, want to mention duration", err.Error())
			}
		})
	}
}

func TestValidate_InvalidServiceURL(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Services.CBAM = "not a url"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for invalid service URL, got nil")
	}
	if !strings.Contains(err.Error(), "CBAM") {
		t.Errorf("error = %q, want to contain 'CBAM'", err.Error())
	}
}

func TestValidate_InvalidListenAddr(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Server.HTTPAddr = "no-port"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for invalid listen address, got nil")
	}
	if !strings.Contains(err.Error(), "host:port") {
		t.Errorf("error = %q, want to contain 'host:port'", err.Error())
	}
}
