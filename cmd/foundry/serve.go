package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/agentfoundry/agent"
	"github.com/BaSui01/agentfoundry/cluster"
	"github.com/BaSui01/agentfoundry/config"
	"github.com/BaSui01/agentfoundry/internal/metrics"
	"github.com/BaSui01/agentfoundry/internal/server"
	"github.com/BaSui01/agentfoundry/internal/storage"
	"github.com/BaSui01/agentfoundry/internal/telemetry"
)

// =============================================================================
// 🖥️ serve command
// =============================================================================

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting Agent Foundry",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("environment", cfg.App.Environment),
	)

	srv := NewServer(cfg, logger)
	if err := srv.Start(); err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}

	srv.WaitForShutdown()
	logger.Info("Agent Foundry stopped")
}

// =============================================================================
// 🖥️ Server assembly
// =============================================================================

// Server wires the serving mode together: the Redis-backed worker pool,
// optional relational persistence, and the ops HTTP surface.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	collector *metrics.Collector
	telemetry *telemetry.Providers
	store     *storage.Store
	redis     *redis.Client
	queue     *cluster.Queue
	pool      *cluster.Pool

	opsManager     *server.Manager
	metricsManager *server.Manager
}

// NewServer creates an idle server; Start brings everything up.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// Start brings up metrics, telemetry, storage, the cluster pool and the
// HTTP surfaces, in that order. Redis is mandatory in serving mode; the
// database is optional and its absence only disables persistence.
func (s *Server) Start() error {
	s.collector = metrics.NewCollector("foundry", s.logger)

	tel, err := telemetry.Init(s.cfg.Telemetry, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize telemetry", zap.Error(err))
	} else {
		s.telemetry = tel
	}

	if s.cfg.Database.Driver != "" {
		store, err := storage.Open(s.cfg.Database, s.logger)
		if err != nil {
			s.logger.Warn("database not available, persistence disabled", zap.Error(err))
		} else {
			s.store = store
		}
	}

	if err := s.startPool(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	if err := s.startOpsServer(); err != nil {
		return fmt.Errorf("failed to start ops server: %w", err)
	}

	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("all servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("redis_addr", s.cfg.Redis.Addr),
		zap.Bool("persistence", s.store != nil),
	)
	return nil
}

// startPool connects Redis and launches one worker per pipeline role.
func (s *Server) startPool() error {
	client, err := cluster.Dial(s.cfg.Redis)
	if err != nil {
		return err
	}
	s.redis = client
	s.queue = cluster.NewQueue(client, s.cfg.Cluster, s.logger)

	poolCfg := cluster.PoolConfig{
		Reflexion:    reflexionConfig(s.cfg.Orchestrator),
		MetaLearner:  agent.DefaultMetaLearnerConfig(),
		WorkerPrefix: workerPrefix(),
	}

	pool, err := cluster.NewPool(s.queue, buildDeps(s.cfg, s.logger), poolCfg,
		cluster.WithPoolObserver(metrics.NewClusterObserver(s.collector)))
	if err != nil {
		return err
	}
	if err := pool.Start(context.Background()); err != nil {
		return err
	}
	s.pool = pool
	return nil
}

// workerPrefix namespaces worker ids per machine so heartbeat keys from
// different hosts never collide.
func workerPrefix() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker"
}

// startOpsServer exposes /healthz, /readyz and /metrics with dependency
// probes for Redis and, when configured, the database.
func (s *Server) startOpsServer() error {
	ops := server.NewOpsHandler(Version, s.collector.Handler(), s.logger)
	ops.RegisterCheck(server.NewPingCheck("redis", s.queue.Ping))
	if s.store != nil {
		ops.RegisterCheck(server.NewPingCheck("database", s.store.Ping))
	}

	s.opsManager = server.NewManager(ops.Routes(), server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	return s.opsManager.Start()
}

// startMetricsServer serves the Prometheus registry on its own port so
// scrapers never share the ops listener.
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.collector.Handler())

	s.metricsManager = server.NewManager(mux, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	return s.metricsManager.Start()
}

// =============================================================================
// 🛑 Shutdown
// =============================================================================

// WaitForShutdown blocks until SIGINT/SIGTERM, then tears down.
func (s *Server) WaitForShutdown() {
	if s.opsManager != nil {
		s.opsManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown drains the worker pool and closes every connection. Ordering
// matters: workers stop claiming before Redis closes.
func (s *Server) Shutdown() {
	s.logger.Info("starting graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Error("worker pool shutdown error", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("redis close error", zap.Error(err))
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("database close error", zap.Error(err))
		}
	}

	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(ctx); err != nil {
			s.logger.Error("telemetry shutdown error", zap.Error(err))
		}
	}

	if s.opsManager != nil {
		if err := s.opsManager.Shutdown(ctx); err != nil {
			s.logger.Error("ops server shutdown error", zap.Error(err))
		}
	}

	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("graceful shutdown completed")
}
