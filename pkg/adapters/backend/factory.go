package backend

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/helixops/taskmesh/internal/ports"
	"github.com/helixops/taskmesh/pkg/adapters/backend/anthropic"
	"github.com/helixops/taskmesh/pkg/adapters/backend/local"
)

// Config holds backend construction parameters.
type Config struct {
	ID       string
	Provider string
	APIKey   string
	Logger   *zap.Logger
}

// New creates a backend for the given provider.
func New(cfg *Config) (ports.Backend, error) {
	switch cfg.Provider {
	case "anthropic":
		return anthropic.New(cfg.ID, cfg.APIKey, cfg.Logger)
	case "local":
		return local.New(cfg.ID), nil
	default:
		return nil, fmt.Errorf("unsupported backend provider: %s", cfg.Provider)
	}
}
