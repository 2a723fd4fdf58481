package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/helixops/taskmesh/internal/ports"
)

// Backend invokes the Anthropic Messages API as one fallback tier.
type Backend struct {
	id     string
	client anthropic.Client
	logger *zap.Logger
}

// New creates an Anthropic-backed tier.
func New(id, apiKey string, logger *zap.Logger) (*Backend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	return &Backend{
		id:     id,
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		logger: logger,
	}, nil
}

// ID returns the backend identifier used in fallback chains.
func (b *Backend) ID() string { return b.id }

// Invoke sends a single-turn message and returns the text content with the
// total token usage for cost accounting.
func (b *Backend) Invoke(ctx context.Context, prompt string, cfg ports.InvokeConfig) (*ports.Completion, error) {
	start := time.Now()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(cfg.Model),
		MaxTokens: int64(cfg.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if cfg.Temperature > 0 {
		params.Temperature = anthropic.Float(cfg.Temperature)
	}

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic call failed: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			content.WriteString(text.Text)
		}
	}

	tokens := int(resp.Usage.InputTokens + resp.Usage.OutputTokens)
	b.logger.Debug("anthropic completion",
		zap.String("backend", b.id),
		zap.String("model", cfg.Model),
		zap.Int("tokens", tokens),
		zap.Duration("latency", time.Since(start)))

	return &ports.Completion{
		Content:    content.String(),
		TokensUsed: tokens,
	}, nil
}
