package registry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically runs the full health sweep and reports pool status.
type Sweeper struct {
	registry *Registry
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewSweeper creates a health sweeper for the registry.
func NewSweeper(r *Registry, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		registry: r,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the sweep loop. Calling Start twice is a no-op.
func (s *Sweeper) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	go s.run()
}

// Stop stops the sweep loop.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
}

func (s *Sweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	results := s.registry.HealthCheck(context.Background())

	healthy := 0
	for _, ok := range results {
		if ok {
			healthy++
		}
	}

	active, busy, inactive := s.registry.PoolStatus()
	if s.registry.metrics != nil {
		s.registry.metrics.RecordWorkerPoolStatus(active, busy, inactive)
	}

	s.logger.Info("worker health sweep",
		zap.Int("probed", len(results)),
		zap.Int("healthy", healthy),
		zap.Int("active", active),
		zap.Int("busy", busy),
		zap.Int("inactive", inactive))

	if len(results) > 0 && healthy == 0 {
		s.logger.Warn("no healthy workers remain", zap.Int("probed", len(results)))
	}
}
