package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/helixops/taskmesh/internal/application/bus"
	"github.com/helixops/taskmesh/internal/application/coordinator"
	"github.com/helixops/taskmesh/internal/application/fallback"
	"github.com/helixops/taskmesh/internal/application/registry"
	"github.com/helixops/taskmesh/internal/application/routing"
	"github.com/helixops/taskmesh/internal/config"
	"github.com/helixops/taskmesh/internal/domain"
	"github.com/helixops/taskmesh/internal/ports"
	"github.com/helixops/taskmesh/pkg/adapters/backend"
	"github.com/helixops/taskmesh/pkg/adapters/catalog/static"
	eventsredis "github.com/helixops/taskmesh/pkg/adapters/events/redis"
	"github.com/helixops/taskmesh/pkg/adapters/metrics/prometheus"
	"github.com/helixops/taskmesh/pkg/adapters/patterns"
	"github.com/helixops/taskmesh/pkg/api/grpc"
	"github.com/helixops/taskmesh/pkg/api/http"
	"github.com/helixops/taskmesh/pkg/api/websocket"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting TaskMesh",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	metricsCollector := prometheus.NewCollector()

	// Message bus with the provisioned start-up channels
	msgBus := bus.New(logger, metricsCollector)
	if err := msgBus.Provision(cfg.Bus.HistoryLimit); err != nil {
		logger.Fatal("failed to provision bus channels", zap.Error(err))
	}

	// Optional Redis Streams relay mirroring every bus publish
	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

		msgBus.SetSink(eventsredis.NewStreamsRelay(redisClient, logger))
	}

	// Worker catalog and registry
	catalog := static.Seed()
	workerRegistry := registry.New(catalog, msgBus, metricsCollector, logger)

	sweeper := registry.NewSweeper(workerRegistry, cfg.Registry.HealthCheckInterval, logger)
	sweeper.Start()

	// Routing engine
	router := routing.NewEngine(workerRegistry, metricsCollector, logger)

	// Fallback cascade: primary, secondary, local
	tiers, chain, err := buildTiers(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create backends", zap.Error(err))
	}
	executor := fallback.NewExecutor(tiers, cfg.Backends.RequestTimeout, metricsCollector, logger)

	// Workflow patterns
	patternRegistry := patterns.NewRegistry()

	// Coordination controller
	ctrl := coordinator.New(coordinator.Config{
		Registry:          workerRegistry,
		Router:            router,
		Executor:          executor,
		Bus:               msgBus,
		Patterns:          patternRegistry,
		Metrics:           metricsCollector,
		Logger:            logger,
		Chain:             chain,
		MaxFanout:         cfg.Coordinator.MaxFanout,
		ParallelThreshold: cfg.Coordinator.ParallelThreshold,
		TaskTimeout:       cfg.Coordinator.TaskTimeout,
	})

	// The built-in pipeline stages its work analyst -> writer -> reviewer.
	patternRegistry.Register("pipeline", patterns.NewPipeline(
		[]string{"analyst-1", "writer-1", "reviewer-1"},
		ctrl.ExecuteTask,
		logger,
	))

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Port:        cfg.HTTPPort,
		Coordinator: ctrl,
		Logger:      logger,
	})

	// Add WebSocket handler to HTTP server
	wsHandler := websocket.NewHandler(msgBus, logger)
	httpServer.SetupWebSocket(wsHandler)

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:        cfg.GRPCPort,
		Coordinator: ctrl,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("failed to create gRPC server", zap.Error(err))
	}

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	logger.Info("TaskMesh started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Int("catalog_workers", len(catalog.Descriptors())))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Coordinator.ShutdownTimeout)
	defer cancel()

	// Shutdown components
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	sweeper.Stop()

	if err := ctrl.Shutdown(shutdownCtx); err != nil {
		logger.Error("coordinator shutdown error", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("TaskMesh shut down complete")
}

// buildTiers assembles the fallback cascade from configuration. Tier
// order and rates follow the primary/secondary/local convention.
func buildTiers(cfg *config.Config, logger *zap.Logger) ([]fallback.Tier, domain.FallbackChain, error) {
	primary, err := backend.New(&backend.Config{
		ID:       "primary",
		Provider: "anthropic",
		APIKey:   cfg.Backends.APIKey,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("primary backend: %w", err)
	}

	secondary, err := backend.New(&backend.Config{
		ID:       "secondary",
		Provider: "anthropic",
		APIKey:   cfg.Backends.APIKey,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("secondary backend: %w", err)
	}

	local, err := backend.New(&backend.Config{
		ID:       "local",
		Provider: "local",
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("local backend: %w", err)
	}

	tiers := []fallback.Tier{
		{Backend: primary, Rate: cfg.Backends.PrimaryRate, Invoke: ports.InvokeConfig{
			Model:       cfg.Backends.PrimaryModel,
			MaxTokens:   cfg.Backends.MaxTokens,
			Temperature: cfg.Backends.Temperature,
		}},
		{Backend: secondary, Rate: cfg.Backends.SecondaryRate, Invoke: ports.InvokeConfig{
			Model:       cfg.Backends.SecondaryModel,
			MaxTokens:   cfg.Backends.MaxTokens,
			Temperature: cfg.Backends.Temperature,
		}},
		{Backend: local, Rate: cfg.Backends.LocalRate, Invoke: ports.InvokeConfig{}},
	}

	chain := domain.FallbackChain{"primary", "secondary", "local"}
	return tiers, chain, nil
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
