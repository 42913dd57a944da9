// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package life provides the Game of Life board server.
//
// The Service wires the board store, the engine-backed board service, the
// HTTP API and the observability stack into one process.
//
// # Usage
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    return err
//	}
//	svc, err := life.New(cfg, nil)
//	if err != nil {
//	    return err
//	}
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	return svc.Run(ctx)
package life

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/AleutianAI/AleutianLife/services/life/boards"
	"github.com/AleutianAI/AleutianLife/services/life/config"
	"github.com/AleutianAI/AleutianLife/services/life/handlers"
	"github.com/AleutianAI/AleutianLife/services/life/middleware"
	"github.com/AleutianAI/AleutianLife/services/life/observability"
	"github.com/AleutianAI/AleutianLife/services/life/routes"
	lifebadger "github.com/AleutianAI/AleutianLife/services/life/storage/badger"
	"github.com/AleutianAI/AleutianLife/services/life/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service is the board server lifecycle.
//
// # Thread Safety
//
// Run should be called at most once. Shutdown may be called concurrently
// with Run and more than once.
type Service interface {
	// Run serves HTTP until ctx is cancelled or the listener fails, then
	// shuts down gracefully within the configured timeout.
	Run(ctx context.Context) error

	// Router returns the configured Gin engine, for tests.
	Router() *gin.Engine

	// Shutdown releases the store and flushes telemetry.
	Shutdown(ctx context.Context) error
}

// Options injects dependencies. Every field is optional.
type Options struct {
	// Store replaces the store selected by config.Store.
	Store boards.Store

	// Registerer receives the HTTP metrics. Default: prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer

	// Gatherer backs /metrics when Registerer is set. Default: the default
	// registry through telemetry.MetricsHandler.
	Gatherer prometheus.Gatherer

	// Logger is the service logger. Default: slog.Default().
	Logger *slog.Logger
}

// =============================================================================
// Implementation
// =============================================================================

type service struct {
	cfg    config.Config
	logger *slog.Logger

	store  boards.Store
	boards *boards.Service
	router *gin.Engine

	telemetryShutdown func(context.Context) error

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates the Service.
//
// # Description
//
// Initializes, in order: telemetry providers, the board store, the board
// service, HTTP metrics and the router. On failure every component already
// created is released.
//
// # Inputs
//
//   - cfg: Validated configuration.
//   - opts: Dependency overrides. May be nil.
//
// # Outputs
//
//   - Service: Ready to Run.
//   - error: Non-nil if any component fails to initialize.
func New(cfg config.Config, opts *Options) (Service, error) {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &service{cfg: cfg, logger: logger}

	shutdown, err := telemetry.Init(context.Background(), cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	s.telemetryShutdown = shutdown

	s.store = opts.Store
	if s.store == nil {
		s.store, err = openStore(cfg.Store, logger)
		if err != nil {
			_ = s.Shutdown(context.Background())
			return nil, fmt.Errorf("failed to open board store: %w", err)
		}
	}
	s.boards = boards.NewService(s.store, cfg.Boards, logger)

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	metrics := observability.NewHTTPMetrics(reg)

	var metricsHandler http.Handler
	if opts.Gatherer != nil {
		metricsHandler = promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})
	} else {
		metricsHandler = telemetry.MetricsHandler()
	}

	h, err := handlers.NewHandlers(s.boards, metrics)
	if err != nil {
		_ = s.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create handlers: %w", err)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, metrics.RecordRateLimited)
	s.initRouter(h, metrics, limiter, metricsHandler)

	logger.Info("Life service initialized",
		"store", cfg.Store.Type,
		"trace_exporter", cfg.Telemetry.TraceExporter,
		"metric_exporter", cfg.Telemetry.MetricExporter)
	return s, nil
}

// openStore opens the store named by cfg.Type.
func openStore(cfg config.StoreConfig, logger *slog.Logger) (boards.Store, error) {
	switch cfg.Type {
	case config.StoreMemory:
		return boards.NewMemoryStore(), nil
	case config.StoreBadger:
		bcfg := lifebadger.DefaultConfig()
		bcfg.Path = cfg.DataDir
		bcfg.SyncWrites = cfg.SyncWrites
		bcfg.Logger = logger
		if cfg.GCInterval > 0 {
			bcfg.GCInterval = cfg.GCInterval
		}
		db, err := lifebadger.Open(bcfg)
		if err != nil {
			return nil, err
		}
		logger.Info("Badger board store opened", "path", db.Path(), "in_memory", db.InMemory())
		return boards.NewBadgerStore(db), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}

func (s *service) initRouter(h *handlers.Handlers, metrics *observability.HTTPMetrics,
	limiter *middleware.RateLimiter, metricsHandler http.Handler) {

	s.router = gin.New()
	s.router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		otelgin.Middleware(s.cfg.Telemetry.ServiceName),
		metrics.Middleware(),
		limiter.Middleware(),
		middleware.BodyLimit(s.cfg.Server.MaxBodyBytes),
	)
	routes.SetupRoutes(s.router, h, metricsHandler)
}

// Run implements Service.
func (s *service) Run(ctx context.Context) error {
	defer func() { _ = s.Shutdown(context.Background()) }()

	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Life service listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down life service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Router implements Service.
func (s *service) Router() *gin.Engine {
	return s.router
}

// Shutdown implements Service.
func (s *service) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		var errs []error
		if s.store != nil {
			if err := s.store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close store: %w", err))
			}
		}
		if s.telemetryShutdown != nil {
			if err := s.telemetryShutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
			}
		}
		s.shutdownErr = errors.Join(errs...)
	})
	return s.shutdownErr
}
