// Package backend selects the API implementation the desk talks to.
package backend

import (
	"context"
	"fmt"
	"time"

	"feedesk/internal/api"
	"feedesk/internal/backend/memory"
	"feedesk/internal/config"
	"feedesk/internal/log"
)

// Type names a backend implementation.
type Type string

const (
	Remote Type = config.BackendRemote
	Memory Type = config.BackendMemory
)

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case Remote, Memory:
		return true
	default:
		return false
	}
}

// Config holds what the factory needs.
type Config struct {
	Type       Type
	BaseURL    string
	Timeout    time.Duration
	SeedDir    string
	SeedFees   int
	SeedRandom uint64
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(c *config.Config) (Config, error) {
	if c == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	t := Type(c.APIBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", c.APIBackend)
	}
	return Config{
		Type:       t,
		BaseURL:    c.APIBaseURL,
		Timeout:    c.APITimeout,
		SeedDir:    "data",
		SeedFees:   12,
		SeedRandom: 1,
	}, nil
}

// Result is a ready backend plus its readiness check.
type Result struct {
	Backend api.Backend
	// Ready reports whether the backend can serve requests.
	Ready func(ctx context.Context) error
}

// New builds the backend described by cfg.
func New(cfg Config, logger *log.Logger) (*Result, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentBackend)

	switch cfg.Type {
	case Remote:
		client, err := api.NewClient(cfg.BaseURL,
			api.WithTimeout(cfg.Timeout),
			api.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("create API client: %w", err)
		}
		logger.Info("Initialized remote backend",
			"base_url", cfg.BaseURL,
			"timeout", cfg.Timeout.String())
		return &Result{Backend: client, Ready: client.Ping}, nil

	case Memory:
		store := memory.NewFromFiles(cfg.SeedDir, cfg.SeedFees, cfg.SeedRandom)
		logger.Info("Initialized memory backend",
			"data_directory", cfg.SeedDir,
			"members", len(store.Members()))
		return &Result{
			Backend: store,
			Ready:   func(context.Context) error { return nil },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}
