// Command server runs the mediscribe streaming relay.
//
// Configuration is read from a YAML file (see -config, MEDISCRIBE_CONFIG,
// ./config.yaml, /etc/mediscribe/config.yaml) with environment overrides.
// A .env file in the working directory is loaded first when present.
//
//	GEMINI_API_KEY      - Gemini API key
//	AUTH_SECRET         - HMAC secret of the identity provider
//	MEDISCRIBE_PORT     - Listen port (default: 8080)
//	MEDISCRIBE_PROVIDER - "gemini" (default) or "openai"
//	MEDISCRIBE_AUTH_TYPE - "jwt" (default), "apikey" or "none"
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/rhuss/mediscribe/pkg/api"
	"github.com/rhuss/mediscribe/pkg/auth"
	"github.com/rhuss/mediscribe/pkg/auth/apikey"
	"github.com/rhuss/mediscribe/pkg/auth/jwt"
	"github.com/rhuss/mediscribe/pkg/auth/noop"
	"github.com/rhuss/mediscribe/pkg/config"
	"github.com/rhuss/mediscribe/pkg/debug"
	"github.com/rhuss/mediscribe/pkg/provider"
	"github.com/rhuss/mediscribe/pkg/provider/gemini"
	"github.com/rhuss/mediscribe/pkg/provider/openaicompat"
	"github.com/rhuss/mediscribe/pkg/relay"
	"github.com/rhuss/mediscribe/pkg/transport"
	transporthttp "github.com/rhuss/mediscribe/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Variables already set in the environment win over .env values.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	debug.Init(debug.Options{
		Categories: cfg.Logging.Debug,
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
	})
	logger := slog.Default()

	backend, err := newBackend(cfg.Backend)
	if err != nil {
		return fmt.Errorf("creating backend: %w", err)
	}
	defer backend.Close()

	chain, err := newAuthChain(cfg.Auth)
	if err != nil {
		return fmt.Errorf("creating authenticator: %w", err)
	}

	r, err := relay.New(backend, relay.Config{
		MaxDuration: cfg.Relay.MaxDuration,
		IdleTimeout: cfg.Relay.IdleTimeout,
		Done:        api.Terminal{Type: api.EventType(cfg.Relay.DoneEvent), Data: api.DoneData},
	}, logger)
	if err != nil {
		return fmt.Errorf("creating relay: %w", err)
	}

	inflight := transport.NewInFlightRegistry()
	adapter := transporthttp.NewAdapter(r, inflight,
		transporthttp.Config{MaxBodySize: cfg.Server.MaxBodySize},
		transport.Recovery(),
		transport.RequestID(),
		transport.Logging(logger),
	)

	var metricsPath string
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}

	handler := transporthttp.NewRouter(transporthttp.RouterConfig{
		Adapter:        adapter,
		AuthChain:      chain,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MetricsPath:    metricsPath,
	})

	srv := transporthttp.NewServer(handler, inflight,
		transporthttp.WithAddr(cfg.Server.Addr()),
		transporthttp.WithReadHeaderTimeout(cfg.Server.ReadHeaderTimeout),
		transporthttp.WithIdleTimeout(cfg.Server.IdleTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithLogger(logger),
	)

	logger.Info("mediscribe configured",
		"addr", cfg.Server.Addr(),
		"backend", backend.Name(),
		"model", cfg.Backend.Model,
		"api_key", debug.Mask(cfg.Backend.APIKey),
		"auth", cfg.Auth.Type,
		"max_duration", cfg.Relay.MaxDuration,
		"idle_timeout", cfg.Relay.IdleTimeout,
		"metrics", metricsPath,
	)

	return srv.ListenAndServe()
}

// newBackend builds the configured generative backend.
func newBackend(cfg config.BackendConfig) (provider.Backend, error) {
	switch cfg.Provider {
	case "gemini":
		return gemini.New(gemini.Config{
			APIKey:          cfg.APIKey,
			BaseURL:         cfg.BaseURL,
			Model:           cfg.Model,
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
			Timeout:         cfg.Timeout,
		})
	case "openai":
		return openaicompat.NewClient(openaicompat.Config{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxOutputTokens,
			Timeout:     cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// newAuthChain builds the authenticator chain. Every chain except "none"
// rejects requests all authenticators abstain on.
func newAuthChain(cfg config.AuthConfig) (*auth.AuthChain, error) {
	switch cfg.Type {
	case "none":
		slog.Warn("authentication disabled, every request is accepted")
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{&noop.Authenticator{}},
			DefaultDecision: auth.Yes,
		}, nil

	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			entries = append(entries, apikey.RawKeyEntry{
				Key:      k.Key,
				Identity: auth.Identity{Subject: k.Subject},
			})
		}
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{apikey.New(entries)},
			DefaultDecision: auth.No,
		}, nil

	case "jwt":
		a, err := jwt.New(jwt.Config{
			Secret:        cfg.JWT.Secret,
			JWKSURL:       cfg.JWT.JWKSURL,
			Issuer:        cfg.JWT.Issuer,
			Audience:      cfg.JWT.Audience,
			UserClaim:     cfg.JWT.UserClaim,
			ScopesClaim:   cfg.JWT.ScopesClaim,
			SessionCookie: cfg.JWT.SessionCookie,
			Leeway:        cfg.JWT.Leeway,
			CacheTTL:      cfg.JWT.CacheTTL,
		})
		if err != nil {
			return nil, err
		}
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{a},
			DefaultDecision: auth.No,
		}, nil

	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Type)
	}
}
