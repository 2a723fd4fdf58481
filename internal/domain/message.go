package domain

import "time"

// Well-known channels provisioned at start-up.
const (
	ChannelSystem       = "system"
	ChannelCoordination = "coordination"
	ChannelTelemetry    = "telemetry"
	ChannelErrors       = "errors"
	ChannelAgents       = "agents"
)

// Message types announced by the core on the bus.
const (
	MsgWorkerRegistered   = "worker:registered"
	MsgWorkerUnregistered = "worker:unregistered"
	MsgTaskCompleted      = "task:completed"
	MsgTaskFailed         = "task:failed"
	MsgWorkflowCompleted  = "workflow:completed"
	MsgWorkflowFailed     = "workflow:failed"
)

// DefaultHistoryLimit bounds a channel's message history unless overridden.
const DefaultHistoryLimit = 1000

// ChannelConfig configures a bus channel.
type ChannelConfig struct {
	Persistent     bool `json:"persistent"`
	MaxSubscribers int  `json:"max_subscribers"`
	HistoryLimit   int  `json:"history_limit"`
}

// DefaultChannelConfig is applied when a channel is created without one.
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		Persistent:     true,
		MaxSubscribers: 100,
		HistoryLimit:   DefaultHistoryLimit,
	}
}

// Message is a single bus message. Immutable once constructed.
type Message struct {
	ID        string         `json:"id"`
	Sender    string         `json:"sender"`
	Channel   string         `json:"channel"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Delivered bool           `json:"delivered"`
}

// ChannelStatistics describes one channel for the statistics surface.
type ChannelStatistics struct {
	Name        string `json:"name"`
	Persistent  bool   `json:"persistent"`
	Subscribers int    `json:"subscribers"`
	Messages    uint64 `json:"messages"`
	HistoryLen  int    `json:"history_len"`
}

// TaskEvent is the typed payload carried by task:* and workflow:* messages.
type TaskEvent struct {
	TaskID    string   `json:"task_id"`
	Pattern   string   `json:"pattern"`
	Workers   []string `json:"workers"`
	ElapsedMs int64    `json:"elapsed_ms"`
	Error     string   `json:"error,omitempty"`
}

// Map flattens the event into a message payload.
func (e TaskEvent) Map() map[string]any {
	m := map[string]any{
		"task_id":    e.TaskID,
		"pattern":    e.Pattern,
		"workers":    e.Workers,
		"elapsed_ms": e.ElapsedMs,
	}
	if e.Error != "" {
		m["error"] = e.Error
	}
	return m
}
