package bus

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helixops/taskmesh/internal/domain"
	"github.com/helixops/taskmesh/internal/ports"
)

// Handler receives messages delivered to a subscriber. A handler error is
// logged and isolated; it never affects delivery to other subscribers.
type Handler func(msg domain.Message) error

// channel is one named topic with its subscriber set and bounded history.
type channel struct {
	name     string
	cfg      domain.ChannelConfig
	handlers map[string]Handler
	order    []string // subscriber ids in subscription order
	counter  uint64
	history  []domain.Message
}

// Bus is the in-memory publish/subscribe system. Delivery is synchronous
// and in publish order; history is strict FIFO with per-channel caps.
type Bus struct {
	logger  *zap.Logger
	metrics ports.MetricsCollector
	sink    ports.MessageSink // optional mirror, best-effort

	mu       sync.RWMutex
	channels map[string]*channel
}

// New creates an empty bus.
func New(logger *zap.Logger, metrics ports.MetricsCollector) *Bus {
	return &Bus{
		logger:   logger,
		metrics:  metrics,
		channels: make(map[string]*channel),
	}
}

// SetSink attaches a message sink that mirrors every publish. The sink is
// best-effort: relay failures are logged, never propagated.
func (b *Bus) SetSink(sink ports.MessageSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sink = sink
}

// Provision creates the conventional start-up channels, each capped at
// historyLimit retained messages (the default cap when historyLimit < 1).
func (b *Bus) Provision(historyLimit int) error {
	if historyLimit < 1 {
		historyLimit = domain.DefaultHistoryLimit
	}

	channels := []struct {
		name string
		cfg  domain.ChannelConfig
	}{
		{domain.ChannelSystem, domain.ChannelConfig{Persistent: true, MaxSubscribers: 100, HistoryLimit: historyLimit}},
		{domain.ChannelCoordination, domain.ChannelConfig{Persistent: true, MaxSubscribers: 50, HistoryLimit: historyLimit}},
		{domain.ChannelTelemetry, domain.ChannelConfig{Persistent: false, MaxSubscribers: 200, HistoryLimit: historyLimit}},
		{domain.ChannelErrors, domain.ChannelConfig{Persistent: true, MaxSubscribers: 50, HistoryLimit: historyLimit}},
		{domain.ChannelAgents, domain.ChannelConfig{Persistent: true, MaxSubscribers: 150, HistoryLimit: historyLimit}},
	}

	for _, ch := range channels {
		if err := b.CreateChannel(ch.name, &ch.cfg); err != nil {
			return fmt.Errorf("provision channel %s: %w", ch.name, err)
		}
	}
	return nil
}

// CreateChannel allocates a new channel. A nil config applies the defaults.
func (b *Bus) CreateChannel(name string, cfg *domain.ChannelConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.channels[name]; exists {
		return fmt.Errorf("%w: %s", ErrChannelExists, name)
	}

	resolved := domain.DefaultChannelConfig()
	if cfg != nil {
		resolved = *cfg
	}
	if resolved.HistoryLimit < 1 {
		resolved.HistoryLimit = domain.DefaultHistoryLimit
	}

	b.channels[name] = &channel{
		name:     name,
		cfg:      resolved,
		handlers: make(map[string]Handler),
	}

	b.logger.Debug("channel created",
		zap.String("channel", name),
		zap.Bool("persistent", resolved.Persistent),
		zap.Int("max_subscribers", resolved.MaxSubscribers))

	return nil
}

// DeleteChannel removes a channel and drops its history and subscribers.
func (b *Bus) DeleteChannel(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.channels[name]; !exists {
		return fmt.Errorf("%w: %s", ErrChannelNotFound, name)
	}
	delete(b.channels, name)
	return nil
}

// Subscribe registers a handler for subscriberID on a channel.
func (b *Bus) Subscribe(subscriberID, channelName string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, exists := b.channels[channelName]
	if !exists {
		return fmt.Errorf("%w: %s", ErrChannelNotFound, channelName)
	}

	if _, already := ch.handlers[subscriberID]; !already {
		if len(ch.handlers) >= ch.cfg.MaxSubscribers {
			return fmt.Errorf("%w: %s (cap %d)", ErrMaxSubscribersExceeded, channelName, ch.cfg.MaxSubscribers)
		}
		ch.order = append(ch.order, subscriberID)
	}
	ch.handlers[subscriberID] = handler

	return nil
}

// Unsubscribe removes a subscriber from a channel.
func (b *Bus) Unsubscribe(subscriberID, channelName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, exists := b.channels[channelName]
	if !exists {
		return fmt.Errorf("%w: %s", ErrChannelNotFound, channelName)
	}

	if _, ok := ch.handlers[subscriberID]; !ok {
		return nil
	}
	delete(ch.handlers, subscriberID)
	for i, id := range ch.order {
		if id == subscriberID {
			ch.order = append(ch.order[:i], ch.order[i+1:]...)
			break
		}
	}
	return nil
}

// Publish constructs a message, appends it to the channel history and
// delivers it synchronously to every current subscriber except the sender.
// A failing subscriber never blocks delivery to the others.
func (b *Bus) Publish(ctx context.Context, senderID, channelName, msgType string, payload map[string]any) (*domain.Message, error) {
	b.mu.Lock()
	ch, exists := b.channels[channelName]
	if !exists {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channelName)
	}

	msg := domain.Message{
		ID:        uuid.New().String(),
		Sender:    senderID,
		Channel:   channelName,
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	ch.counter++
	if ch.cfg.Persistent {
		ch.history = append(ch.history, msg)
		if over := len(ch.history) - ch.cfg.HistoryLimit; over > 0 {
			ch.history = ch.history[over:]
		}
	}

	// Snapshot subscribers in subscription order, then deliver outside the
	// lock so a slow handler cannot stall the bus.
	type delivery struct {
		id      string
		handler Handler
	}
	targets := make([]delivery, 0, len(ch.order))
	for _, id := range ch.order {
		if id == senderID {
			continue
		}
		targets = append(targets, delivery{id: id, handler: ch.handlers[id]})
	}
	sink := b.sink
	b.mu.Unlock()

	delivered := false
	for _, t := range targets {
		if err := t.handler(msg); err != nil {
			b.logger.Warn("message delivery failed",
				zap.String("channel", channelName),
				zap.String("subscriber", t.id),
				zap.String("message_id", msg.ID),
				zap.Error(err))
			continue
		}
		delivered = true
	}

	if delivered {
		msg.Delivered = true
		b.mu.Lock()
		if ch2, ok := b.channels[channelName]; ok {
			for i := len(ch2.history) - 1; i >= 0; i-- {
				if ch2.history[i].ID == msg.ID {
					ch2.history[i].Delivered = true
					break
				}
			}
		}
		b.mu.Unlock()
	}

	if b.metrics != nil {
		b.metrics.RecordMessagePublished(channelName)
	}

	if sink != nil {
		if err := sink.Relay(ctx, msg); err != nil {
			b.logger.Warn("message relay failed",
				zap.String("channel", channelName),
				zap.String("message_id", msg.ID),
				zap.Error(err))
		}
	}

	return &msg, nil
}

// Broadcast publishes to every known channel. A failure on one channel is
// logged and the broadcast continues; Broadcast itself never fails.
func (b *Bus) Broadcast(ctx context.Context, senderID, msgType string, payload map[string]any) {
	b.mu.RLock()
	names := make([]string, 0, len(b.channels))
	for name := range b.channels {
		names = append(names, name)
	}
	b.mu.RUnlock()
	sort.Strings(names)

	for _, name := range names {
		if _, err := b.Publish(ctx, senderID, name, msgType, payload); err != nil {
			b.logger.Warn("broadcast publish failed",
				zap.String("channel", name),
				zap.String("type", msgType),
				zap.Error(err))
		}
	}
}

// History returns the most recent limit messages in chronological order.
// A non-positive limit returns the full bounded history.
func (b *Bus) History(channelName string, limit int) ([]domain.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ch, exists := b.channels[channelName]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channelName)
	}

	msgs := ch.history
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Subscribers returns the current subscriber ids of a channel.
func (b *Bus) Subscribers(channelName string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ch, exists := b.channels[channelName]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channelName)
	}

	out := make([]string, len(ch.order))
	copy(out, ch.order)
	return out, nil
}

// Statistics reports per-channel counters, sorted by channel name.
func (b *Bus) Statistics() []domain.ChannelStatistics {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := make([]domain.ChannelStatistics, 0, len(b.channels))
	for _, ch := range b.channels {
		stats = append(stats, domain.ChannelStatistics{
			Name:        ch.name,
			Persistent:  ch.cfg.Persistent,
			Subscribers: len(ch.handlers),
			Messages:    ch.counter,
			HistoryLen:  len(ch.history),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// Close drops all channels and detaches the sink.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.channels = make(map[string]*channel)
	if b.sink != nil {
		if err := b.sink.Close(); err != nil {
			b.logger.Warn("sink close failed", zap.Error(err))
		}
		b.sink = nil
	}
	return nil
}
