package bus

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/helixops/taskmesh/internal/domain"
	"github.com/helixops/taskmesh/internal/ports"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	return New(zap.NewNop(), ports.NopMetrics{})
}

// collector records every message a subscriber receives.
type collector struct {
	msgs []domain.Message
	fail bool
}

func (c *collector) handle(msg domain.Message) error {
	if c.fail {
		return errors.New("handler down")
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestCreateChannel_Duplicate(t *testing.T) {
	b := newTestBus(t)

	if err := b.CreateChannel("jobs", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.CreateChannel("jobs", nil); !errors.Is(err, ErrChannelExists) {
		t.Errorf("expected ErrChannelExists, got %v", err)
	}
}

func TestPublish_UnknownChannel(t *testing.T) {
	b := newTestBus(t)

	_, err := b.Publish(context.Background(), "s", "nope", "x", nil)
	if !errors.Is(err, ErrChannelNotFound) {
		t.Errorf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestPublish_DeliversInSubscriptionOrder(t *testing.T) {
	b := newTestBus(t)
	if err := b.CreateChannel("jobs", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	var order []string
	sub := func(id string) Handler {
		return func(msg domain.Message) error {
			order = append(order, id)
			return nil
		}
	}
	for _, id := range []string{"first", "second", "third"} {
		if err := b.Subscribe(id, "jobs", sub(id)); err != nil {
			t.Fatalf("subscribe %s: %v", id, err)
		}
	}

	msg, err := b.Publish(context.Background(), "sender", "jobs", "job:new", nil)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("expected %d deliveries, got %d", len(want), len(order))
	}
	for i, id := range want {
		if order[i] != id {
			t.Errorf("delivery %d: expected %s, got %s", i, id, order[i])
		}
	}
	if !msg.Delivered {
		t.Error("message should be marked delivered")
	}
}

func TestPublish_SenderDoesNotReceiveOwnMessage(t *testing.T) {
	b := newTestBus(t)
	if err := b.CreateChannel("jobs", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	var self, other collector
	b.Subscribe("alice", "jobs", self.handle)
	b.Subscribe("bob", "jobs", other.handle)

	if _, err := b.Publish(context.Background(), "alice", "jobs", "job:new", nil); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(self.msgs) != 0 {
		t.Errorf("sender received its own message %d times", len(self.msgs))
	}
	if len(other.msgs) != 1 {
		t.Errorf("expected 1 delivery to bob, got %d", len(other.msgs))
	}
}

func TestPublish_SubscriberFailureDoesNotBlockOthers(t *testing.T) {
	b := newTestBus(t)
	if err := b.CreateChannel("jobs", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	broken := &collector{fail: true}
	healthy := &collector{}
	b.Subscribe("broken", "jobs", broken.handle)
	b.Subscribe("healthy", "jobs", healthy.handle)

	msg, err := b.Publish(context.Background(), "sender", "jobs", "job:new", nil)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(healthy.msgs) != 1 {
		t.Errorf("expected healthy subscriber to receive the message, got %d", len(healthy.msgs))
	}
	if !msg.Delivered {
		t.Error("message should count as delivered when any subscriber succeeded")
	}
}

func TestPublish_HistoryEvictsOldestFirst(t *testing.T) {
	b := newTestBus(t)
	cfg := &domain.ChannelConfig{Persistent: true, MaxSubscribers: 10, HistoryLimit: 2}
	if err := b.CreateChannel("jobs", cfg); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, msgType := range []string{"a", "b", "c"} {
		if _, err := b.Publish(context.Background(), "s", "jobs", msgType, nil); err != nil {
			t.Fatalf("publish %s: %v", msgType, err)
		}
	}

	history, err := b.History("jobs", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 retained messages, got %d", len(history))
	}
	if history[0].Type != "b" || history[1].Type != "c" {
		t.Errorf("expected [b c], got [%s %s]", history[0].Type, history[1].Type)
	}
}

func TestHistory_LimitReturnsMostRecent(t *testing.T) {
	b := newTestBus(t)
	if err := b.CreateChannel("jobs", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, msgType := range []string{"a", "b", "c", "d"} {
		b.Publish(context.Background(), "s", "jobs", msgType, nil)
	}

	history, err := b.History("jobs", 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Type != "c" || history[1].Type != "d" {
		t.Errorf("expected newest two [c d], got [%s %s]", history[0].Type, history[1].Type)
	}

	all, err := b.History("jobs", -1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("non-positive limit should return everything, got %d", len(all))
	}
}

func TestPublish_NonPersistentChannelRetainsNothing(t *testing.T) {
	b := newTestBus(t)
	cfg := &domain.ChannelConfig{Persistent: false, MaxSubscribers: 10, HistoryLimit: 10}
	if err := b.CreateChannel("telemetry", cfg); err != nil {
		t.Fatalf("create: %v", err)
	}

	var c collector
	b.Subscribe("sub", "telemetry", c.handle)
	b.Publish(context.Background(), "s", "telemetry", "tick", nil)

	if len(c.msgs) != 1 {
		t.Errorf("delivery should still happen, got %d", len(c.msgs))
	}
	history, err := b.History("telemetry", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("non-persistent channel should retain no history, got %d", len(history))
	}
}

func TestSubscribe_MaxSubscribersEnforced(t *testing.T) {
	b := newTestBus(t)
	cfg := &domain.ChannelConfig{Persistent: true, MaxSubscribers: 1, HistoryLimit: 10}
	if err := b.CreateChannel("jobs", cfg); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := b.Subscribe("one", "jobs", func(domain.Message) error { return nil }); err != nil {
		t.Fatalf("first subscribe: %v", err)
	}
	err := b.Subscribe("two", "jobs", func(domain.Message) error { return nil })
	if !errors.Is(err, ErrMaxSubscribersExceeded) {
		t.Errorf("expected ErrMaxSubscribersExceeded, got %v", err)
	}
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	b := newTestBus(t)
	if err := b.CreateChannel("jobs", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	var c collector
	b.Subscribe("sub", "jobs", c.handle)
	b.Publish(context.Background(), "s", "jobs", "a", nil)

	if err := b.Unsubscribe("sub", "jobs"); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	b.Publish(context.Background(), "s", "jobs", "b", nil)

	if len(c.msgs) != 1 {
		t.Errorf("expected exactly 1 delivery before unsubscribe, got %d", len(c.msgs))
	}
}

func TestBroadcast_CoversAllChannelsAndNeverFails(t *testing.T) {
	b := newTestBus(t)
	b.CreateChannel("alpha", nil)
	b.CreateChannel("beta", nil)

	var alpha, beta collector
	b.Subscribe("a", "alpha", alpha.handle)
	b.Subscribe("b", "beta", beta.handle)

	b.Broadcast(context.Background(), "announcer", "system:notice", map[string]any{"k": "v"})

	if len(alpha.msgs) != 1 || len(beta.msgs) != 1 {
		t.Errorf("expected 1 delivery per channel, got alpha=%d beta=%d", len(alpha.msgs), len(beta.msgs))
	}
}

func TestProvision_CreatesStartupChannels(t *testing.T) {
	b := newTestBus(t)
	if err := b.Provision(500); err != nil {
		t.Fatalf("provision: %v", err)
	}

	names := []string{
		domain.ChannelSystem,
		domain.ChannelCoordination,
		domain.ChannelTelemetry,
		domain.ChannelErrors,
		domain.ChannelAgents,
	}
	stats := b.Statistics()
	if len(stats) != len(names) {
		t.Fatalf("expected %d channels, got %d", len(names), len(stats))
	}
	for _, name := range names {
		if _, err := b.History(name, 0); err != nil {
			t.Errorf("channel %s should exist: %v", name, err)
		}
	}
}

func TestStatistics_CountsPublishes(t *testing.T) {
	b := newTestBus(t)
	b.CreateChannel("jobs", nil)

	for i := 0; i < 3; i++ {
		b.Publish(context.Background(), "s", "jobs", "tick", nil)
	}

	stats := b.Statistics()
	if len(stats) != 1 {
		t.Fatalf("expected 1 channel, got %d", len(stats))
	}
	if stats[0].Messages != 3 {
		t.Errorf("expected 3 published messages, got %d", stats[0].Messages)
	}
	if stats[0].HistoryLen != 3 {
		t.Errorf("expected 3 retained messages, got %d", stats[0].HistoryLen)
	}
}

func TestDeleteChannel(t *testing.T) {
	b := newTestBus(t)
	b.CreateChannel("jobs", nil)

	if err := b.DeleteChannel("jobs"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := b.DeleteChannel("jobs"); !errors.Is(err, ErrChannelNotFound) {
		t.Errorf("expected ErrChannelNotFound, got %v", err)
	}
}
