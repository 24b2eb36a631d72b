package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	// server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout must be > 0, got %v", c.Server.ShutdownTimeout))
	}

	// backend
	switch c.Backend.Provider {
	case "gemini":
		if c.Backend.APIKey == "" {
			errs = append(errs, errors.New("backend.api_key (or GEMINI_API_KEY) is required for provider \"gemini\""))
		}
	case "openai":
		if c.Backend.BaseURL == "" {
			errs = append(errs, errors.New("backend.base_url is required for provider \"openai\""))
		}
		if c.Backend.Model == "" {
			errs = append(errs, errors.New("backend.model is required for provider \"openai\""))
		}
	default:
		errs = append(errs, fmt.Errorf("backend.provider must be \"gemini\" or \"openai\", got %q", c.Backend.Provider))
	}
	if c.Backend.BaseURL != "" {
		if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("backend.base_url must be an absolute URL, got %q", c.Backend.BaseURL))
		}
	}
	if t := c.Backend.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, fmt.Errorf("backend.temperature must be between 0 and 2, got %v", *t))
	}
	if c.Backend.MaxOutputTokens < 0 {
		errs = append(errs, fmt.Errorf("backend.max_output_tokens must be >= 0, got %d", c.Backend.MaxOutputTokens))
	}

	// auth
	switch c.Auth.Type {
	case "none":
	case "jwt":
		if c.Auth.JWT.Secret == "" && c.Auth.JWT.JWKSURL == "" {
			errs = append(errs, errors.New("auth.jwt.secret (or AUTH_SECRET) or auth.jwt.jwks_url is required when auth.type is \"jwt\""))
		}
	case "apikey":
		if len(c.Auth.APIKeys) == 0 {
			errs = append(errs, errors.New("auth.api_keys must not be empty when auth.type is \"apikey\""))
		}
		for i, k := range c.Auth.APIKeys {
			if k.Key == "" {
				errs = append(errs, fmt.Errorf("auth.api_keys[%d].key is required", i))
			}
			if k.Subject == "" {
				errs = append(errs, fmt.Errorf("auth.api_keys[%d].subject is required", i))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}

	// relay
	if c.Relay.MaxDuration <= 0 {
		errs = append(errs, fmt.Errorf("relay.max_duration must be > 0, got %v", c.Relay.MaxDuration))
	}
	if c.Relay.IdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("relay.idle_timeout must be > 0, got %v", c.Relay.IdleTimeout))
	}
	if c.Relay.IdleTimeout > c.Relay.MaxDuration && c.Relay.MaxDuration > 0 {
		errs = append(errs, fmt.Errorf("relay.idle_timeout (%v) must not exceed relay.max_duration (%v)", c.Relay.IdleTimeout, c.Relay.MaxDuration))
	}
	if c.Relay.DoneEvent == "" || strings.ContainsAny(c.Relay.DoneEvent, "\r\n") || c.Relay.DoneEvent == "error" {
		errs = append(errs, fmt.Errorf("relay.done_event must be a single-line name other than \"error\", got %q", c.Relay.DoneEvent))
	}

	// observability
	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	// logging
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json", "":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
