// Package config provides unified configuration for the mediscribe server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (MEDISCRIBE_ prefix)
//  4. Deployment env var mapping (GEMINI_API_KEY, AUTH_SECRET)
//  5. File reference resolution (_file suffix fields)
//  6. Validation
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all configuration for the mediscribe server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Backend       BackendConfig       `yaml:"backend"`
	Auth          AuthConfig          `yaml:"auth"`
	Relay         RelayConfig         `yaml:"relay"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `yaml:"host"`                // default: all interfaces
	Port              int           `yaml:"port"`                // default: 8080
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"` // default: 10s
	IdleTimeout       time.Duration `yaml:"idle_timeout"`        // default: 120s
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`    // default: 30s
	MaxBodySize       int64         `yaml:"max_body_size"`       // default: 1 MB
	AllowedOrigins    []string      `yaml:"allowed_origins"`     // CORS; empty disables
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// BackendConfig holds the generative backend settings.
type BackendConfig struct {
	Provider        string        `yaml:"provider"`          // "gemini" or "openai", default: "gemini"
	BaseURL         string        `yaml:"base_url"`          // required for openai
	APIKey          string        `yaml:"api_key"`           // required for gemini
	APIKeyFile      string        `yaml:"api_key_file"`      // _file variant for api_key
	Model           string        `yaml:"model"`             // provider default when empty
	Temperature     *float64      `yaml:"temperature"`       // optional
	MaxOutputTokens int           `yaml:"max_output_tokens"` // optional
	Timeout         time.Duration `yaml:"timeout"`           // time to first response byte
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type    string         `yaml:"type"`     // "jwt", "apikey" or "none", default: "jwt"
	JWT     JWTConfig      `yaml:"jwt"`      // settings for type=jwt
	APIKeys []APIKeyConfig `yaml:"api_keys"` // API key entries for type=apikey
}

// JWTConfig holds JWT verification settings.
type JWTConfig struct {
	Secret        string        `yaml:"secret"`
	SecretFile    string        `yaml:"secret_file"` // _file variant for secret
	JWKSURL       string        `yaml:"jwks_url"`
	Issuer        string        `yaml:"issuer"`
	Audience      string        `yaml:"audience"`
	UserClaim     string        `yaml:"user_claim"`     // default: "sub"
	ScopesClaim   string        `yaml:"scopes_claim"`   // default: "scope"
	SessionCookie string        `yaml:"session_cookie"` // default: "__session"
	Leeway        time.Duration `yaml:"leeway"`
	CacheTTL      time.Duration `yaml:"cache_ttl"` // JWKS cache, default: 1h
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key     string `yaml:"key" json:"key"`
	KeyFile string `yaml:"key_file" json:"key_file"` // _file variant for key
	Subject string `yaml:"subject" json:"subject"`
}

// RelayConfig bounds stream lifetime and names the success event.
type RelayConfig struct {
	MaxDuration time.Duration `yaml:"max_duration"` // default: 5m
	IdleTimeout time.Duration `yaml:"idle_timeout"` // default: 60s
	DoneEvent   string        `yaml:"done_event"`   // default: "done"
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // ERROR, WARN, INFO, DEBUG, TRACE; default: INFO
	Debug  string `yaml:"debug"`  // comma-separated debug categories
	Format string `yaml:"format"` // "text" or "json", default: "text"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   30 * time.Second,
			MaxBodySize:       1 << 20,
		},
		Backend: BackendConfig{
			Provider: "gemini",
		},
		Auth: AuthConfig{
			Type: "jwt",
			JWT: JWTConfig{
				UserClaim:     "sub",
				ScopesClaim:   "scope",
				SessionCookie: "__session",
				CacheTTL:      time.Hour,
			},
		},
		Relay: RelayConfig{
			MaxDuration: 5 * time.Minute,
			IdleTimeout: 60 * time.Second,
			DoneEvent:   "done",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}
