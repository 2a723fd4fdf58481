package local

import (
	"context"
	"fmt"
	"strings"

	"github.com/helixops/taskmesh/internal/ports"
)

// Backend is the last-resort degraded tier: it never calls out, always
// succeeds, and produces a canned acknowledgement so callers get a usable
// (if minimal) answer when every remote tier is down.
type Backend struct {
	id string
}

// New creates a local degraded backend.
func New(id string) *Backend {
	return &Backend{id: id}
}

// ID returns the backend identifier used in fallback chains.
func (b *Backend) ID() string { return b.id }

// Invoke produces a degraded-mode response. Token usage approximates the
// prompt's word count so cost accounting stays uniform across tiers, even
// though the local rate is normally zero.
func (b *Backend) Invoke(ctx context.Context, prompt string, cfg ports.InvokeConfig) (*ports.Completion, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	excerpt := prompt
	if len(excerpt) > 120 {
		excerpt = excerpt[:120] + "…"
	}

	return &ports.Completion{
		Content: fmt.Sprintf(
			"[degraded mode] Remote backends are unavailable. Request received (%d chars): %s",
			len(prompt), excerpt),
		TokensUsed: len(strings.Fields(prompt)),
	}, nil
}
