package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helixops/taskmesh/internal/domain"
)

// StreamsRelay mirrors bus messages onto Redis Streams so observers outside
// the process can follow the coordination timeline. It is an export, not a
// transport: in-process delivery never depends on it.
type StreamsRelay struct {
	client *redis.Client
	logger *zap.Logger
}

// NewStreamsRelay creates a relay over an existing Redis client.
func NewStreamsRelay(client *redis.Client, logger *zap.Logger) *StreamsRelay {
	return &StreamsRelay{
		client: client,
		logger: logger,
	}
}

// Relay appends one bus message to the channel's stream.
func (r *StreamsRelay) Relay(ctx context.Context, msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: getStreamKey(msg.Channel),
		Values: map[string]interface{}{
			"data": string(data),
		},
	}

	if _, err := r.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}

	r.logger.Debug("message relayed",
		zap.String("message_id", msg.ID),
		zap.String("type", msg.Type),
		zap.String("channel", msg.Channel))

	return nil
}

// Close is a no-op; the Redis client is owned and closed by the caller.
func (r *StreamsRelay) Close() error {
	return nil
}

// getStreamKey returns the Redis stream key for a bus channel.
func getStreamKey(channel string) string {
	return fmt.Sprintf("taskmesh:channels:%s", channel)
}
