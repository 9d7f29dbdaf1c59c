package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/loupe/pkg/config"
	"mercator-hq/loupe/pkg/dashboard"
	"mercator-hq/loupe/pkg/logstore"
	"mercator-hq/loupe/pkg/proxy"
	"mercator-hq/loupe/pkg/proxy/handlers"
	"mercator-hq/loupe/pkg/proxy/middleware"
	"mercator-hq/loupe/pkg/telemetry/health"
	"mercator-hq/loupe/pkg/telemetry/metrics"
	"mercator-hq/loupe/pkg/telemetry/tracing"
)

// Options carries the optional collaborators of a Server.
type Options struct {
	Logger  *slog.Logger
	Version health.VersionInfo

	// Registry receives the proxy metrics. A fresh registry is used when nil.
	Registry *prometheus.Registry

	// Tracer overrides the tracer built from the tracing configuration.
	Tracer *tracing.Tracer

	// Client overrides the upstream HTTP client.
	Client *http.Client
}

// Server owns the listener, the request log store and every component that
// serves the proxy and its API.
type Server struct {
	config *config.Config
	logger *slog.Logger

	store     *logstore.Store
	streamer  *proxy.Streamer
	proxy     *proxy.Handler
	metrics   *metrics.Collector
	tracer    *tracing.Tracer
	scheduler *logstore.Scheduler
	health    *health.Checker
	version   health.VersionInfo

	httpServer *http.Server
	listener   net.Listener
	ready      chan struct{}

	shutdownOnce sync.Once
	shutdownErr  error
	mu           sync.RWMutex
	isRunning    bool
}

// New opens the log store and builds the proxy pipeline for cfg. The
// returned Server must be shut down to release the store.
func New(cfg *config.Config, opts Options) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("configuration is nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := logstore.Open(cfg.Store.Path, logstore.Options{
		Fsync:          cfg.Store.Fsync,
		DefaultLimit:   cfg.Store.DefaultLimit,
		MaxLimit:       cfg.Store.MaxLimit,
		ArchiveOnClear: cfg.Store.ArchiveOnClear,
		ArchiveDir:     cfg.Store.ArchiveDir,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open log store: %w", err)
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer, err = tracing.New(&cfg.Telemetry.Tracing)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, opts.Registry)

	relay, err := proxy.NewRelay(proxy.RelayConfig{
		BaseURL: cfg.Upstream.BaseURL,
		Sink:    store,
		Client:  opts.Client,
		Tracer:  tracer,
		Metrics: collector,
		Logger:  logger,
		Now:     store.Now,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create relay: %w", err)
	}

	streamer, err := proxy.NewStreamer(proxy.StreamerConfig{
		Sink:         store,
		StreamMarker: cfg.Upstream.StreamMarker,
		RawBody:      cfg.Store.RawBody,
		Metrics:      collector,
		Logger:       logger,
		Now:          store.Now,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create streamer: %w", err)
	}

	checker := health.New(0)
	checker.RegisterCheck("store", store.Check)

	return &Server{
		config:    cfg,
		logger:    logger,
		store:     store,
		streamer:  streamer,
		proxy:     proxy.NewHandler(relay, streamer, cfg.Proxy.RoutePrefix, collector, logger),
		metrics:   collector,
		tracer:    tracer,
		scheduler: logstore.NewScheduler(scheduledClear{store: store, metrics: collector}, cfg.Store.ClearSchedule, logger),
		health:    checker,
		version:   opts.Version,
		ready:     make(chan struct{}),
	}, nil
}

// scheduledClear counts clears run by the cron scheduler.
type scheduledClear struct {
	store   *logstore.Store
	metrics *metrics.Collector
}

func (c scheduledClear) Clear() error {
	if err := c.store.Clear(); err != nil {
		return err
	}
	c.metrics.RecordLogClear("schedule")
	return nil
}

// Start listens, serves until ctx is done or the server fails, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := Listen(s.config.Proxy.ListenAddress, s.config.Proxy.PortRetries, s.logger)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.Proxy.ReadTimeout,
		WriteTimeout:   s.config.Proxy.WriteTimeout,
		IdleTimeout:    s.config.Proxy.IdleTimeout,
		MaxHeaderBytes: s.config.Proxy.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.isRunning = true
	s.mu.Unlock()

	if err := s.scheduler.Start(ctx); err != nil {
		_ = ln.Close()
		return errors.Join(err, s.Shutdown(context.Background()))
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	s.logger.Info("loupe proxy listening",
		"address", ln.Addr().String(),
		"upstream", s.config.Upstream.BaseURL,
		"route_prefix", s.config.Proxy.RoutePrefix,
		"log_path", s.store.Path(),
		"tracing_enabled", s.tracer.Enabled(),
	)
	close(s.ready)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return errors.Join(err, s.Shutdown(context.Background()))
	}
}

// Ready is closed once Start is accepting connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting requests, drains in-flight ones, waits for
// pending log records and releases the store and the tracer. It is safe to
// call more than once and on a server that was never started.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		timeout := s.config.Proxy.ShutdownTimeout
		if timeout <= 0 {
			timeout = config.DefaultShutdownTimeout
		}
		s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var errs []error
		s.mu.RLock()
		httpServer := s.httpServer
		s.mu.RUnlock()
		if httpServer != nil {
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
				// Drop the streams still running; their records are discarded.
				_ = httpServer.Close()
			}
		}

		s.streamer.Close()
		s.scheduler.Stop()

		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close log store: %w", err))
		}
		if err := s.tracer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down tracer: %w", err))
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.shutdownErr = errors.Join(errs...)
		s.logger.Info("loupe proxy stopped")
	})

	return s.shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Store returns the request log store.
func (s *Server) Store() *logstore.Store {
	return s.store
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if prefix := s.config.Proxy.RoutePrefix; prefix == "" {
		mux.Handle("POST /", s.proxy)
	} else {
		mux.Handle("POST "+prefix, s.proxy)
		mux.Handle("POST "+prefix+"/", s.proxy)
	}

	logs := handlers.NewLogsHandler(s.store, s.metrics, s.logger)
	mux.Handle("GET /api/logs", logs)
	mux.Handle("DELETE /api/logs", logs)

	mux.Handle("GET /health", s.health.LivenessHandler())
	mux.Handle("GET /ready", s.health.ReadinessHandler())
	mux.Handle("GET /version", health.VersionHandler(s.version))

	if s.metrics.Enabled() {
		mux.Handle("GET "+s.metrics.Path(), s.metrics.Handler())
	}
	if s.config.Dashboard.Enabled {
		mux.Handle("GET /{$}", dashboard.Handler())
	}

	return middleware.Chain(mux,
		middleware.RecoveryMiddleware(s.logger),
		middleware.LoggingMiddleware(s.logger),
		tracing.HTTPMiddleware,
		middleware.CORSMiddleware(&s.config.Proxy.CORS),
	)
}
