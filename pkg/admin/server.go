// Package admin serves the administrative HTTP interface of a server process.
//
// The admin server binds its own port, runs independently of the lifecycle
// goroutine and stays up from before Init until the end of ExitLast, so it can
// report health even while startup is blocked or has failed.
//
// Endpoints:
//   - GET  /admin/                 route index
//   - GET  /admin/ping             liveness
//   - GET  /admin/health           lifecycle phase and failure state
//   - GET  /admin/flags            registered flags
//   - GET  /admin/metrics          sorted metrics with counter deltas
//   - GET  /admin/metrics.json     flat metric map
//   - GET  /admin/histograms.json  histogram summaries or distributions
//   - GET  /admin/server_info      process description
//   - GET  /admin/prometheus       Prometheus exposition
//   - POST /admin/shutdown         request shutdown
//   - GET  /admin/debug/pprof/*    profiler, when enabled
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/srvkit/internal/logger"
	"github.com/marmos91/srvkit/pkg/admin/auth"
	"github.com/marmos91/srvkit/pkg/admin/handlers"
	"github.com/marmos91/srvkit/pkg/admin/middleware"
	"github.com/marmos91/srvkit/pkg/metrics"
	"github.com/marmos91/srvkit/pkg/stats"
)

// Deps are the components the admin server reports on. Only Stats is required.
type Deps struct {
	Flags    handlers.FlagLister
	Stats    stats.Receiver
	Status   handlers.StatusProvider
	Shutdown handlers.ShutdownRequester
	Gatherer prometheus.Gatherer
	Metrics  metrics.AdminMetrics
	Info     handlers.Info
	Logger   *slog.Logger
}

type extraRoute struct {
	route   handlers.Route
	handler http.Handler
}

// Server is the admin HTTP server.
type Server struct {
	cfg    Config
	deps   Deps
	log    *slog.Logger
	deltas *stats.DeltaTracker
	tokens *auth.TokenService

	mu         sync.Mutex
	extra      []extraRoute
	routes     []handlers.Route
	handler    http.Handler
	started    bool
	httpServer *http.Server
	listener   net.Listener
	serveDone  chan struct{}

	stopSampler context.CancelFunc
	samplerDone chan struct{}

	stopOnce sync.Once
	stopErr  error
}

// New creates a stopped admin server. It fails only when cfg.TokenSecret is
// set but too short to sign tokens.
func New(cfg Config, deps Deps) (*Server, error) {
	cfg.applyDefaults()
	if deps.Stats == nil {
		deps.Stats = stats.NewInMemory(deps.Logger)
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		log:    deps.Logger,
		deltas: stats.NewDeltaTracker(),
	}
	if cfg.TokenSecret != "" {
		tokens, err := auth.NewTokenService(cfg.TokenSecret)
		if err != nil {
			return nil, fmt.Errorf("admin token: %w", err)
		}
		s.tokens = tokens
	}
	return s, nil
}

// Handle adds an application route. Routes must be added before Start or Handler.
func (s *Server) Handle(method, path, description string, h http.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handler != nil {
		return ErrRouteAfterStart
	}
	s.extra = append(s.extra, extraRoute{
		route:   handlers.Route{Method: method, Path: path, Description: description},
		handler: h,
	})
	return nil
}

// Handler returns the router, building it on first use.
func (s *Server) Handler() http.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlerLocked()
}

// Routes returns the route table in registration order.
func (s *Server) Routes() []handlers.Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlerLocked()
	return append([]handlers.Route(nil), s.routes...)
}

// Deltas exposes the tracker fed by the sampler.
func (s *Server) Deltas() *stats.DeltaTracker { return s.deltas }

func (s *Server) handlerLocked() http.Handler {
	if s.handler == nil {
		s.handler = s.buildRouter()
	}
	return s.handler
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(s.log))
	r.Use(middleware.Instrument(s.deps.Metrics))
	r.Use(chimw.Recoverer)

	add := func(method, path, desc string, h http.HandlerFunc) {
		s.routes = append(s.routes, handlers.Route{Method: method, Path: path, Description: desc})
		r.Method(method, path, h)
	}

	index := handlers.NewIndexHandler(func() []handlers.Route { return s.Routes() })
	health := handlers.NewHealthHandler(s.deps.Status, s.deps.Shutdown)
	flagsHandler := handlers.NewFlagsHandler(s.deps.Flags)
	metricsHandler := handlers.NewMetricsHandler(s.deps.Stats, s.deltas)
	info := handlers.NewInfoHandler(s.deps.Info)

	add(http.MethodGet, "/admin/", "Route index", index.List)
	add(http.MethodGet, "/admin/ping", "Liveness probe", handlers.Ping)
	add(http.MethodGet, "/admin/health", "Lifecycle phase and failure state", health.Check)
	add(http.MethodGet, "/admin/flags", "Registered flags with values and sources", flagsHandler.List)
	add(http.MethodGet, "/admin/metrics", "Metrics sorted by name with counter deltas (?m=name or ?metric=name)", metricsHandler.List)
	add(http.MethodGet, "/admin/metrics.json", "Flat metric map (?pretty=true)", metricsHandler.JSON)
	add(http.MethodGet, "/admin/histograms.json", "Histogram summaries (?h=name, ?fmt=pdf|cdf)", metricsHandler.Histograms)
	add(http.MethodGet, "/admin/server_info", "Process description", info.Get)

	if s.deps.Gatherer != nil {
		prom := promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})
		add(http.MethodGet, "/admin/prometheus", "Prometheus exposition format", prom.ServeHTTP)
	}

	if s.deps.Shutdown != nil {
		sd := handlers.NewShutdownHandler(s.deps.Shutdown)
		protected := middleware.RequireScope(s.tokens, auth.ScopeShutdown)(http.HandlerFunc(sd.Request))
		add(http.MethodPost, "/admin/shutdown", "Request graceful shutdown", protected.ServeHTTP)
	}

	if s.cfg.EnablePprof {
		s.routes = append(s.routes, handlers.Route{Method: http.MethodGet, Path: "/admin/debug/pprof/", Description: "Go profiler"})
		r.Mount("/admin/debug", chimw.Profiler())
	}

	for _, e := range s.extra {
		s.routes = append(s.routes, e.route)
		r.Method(e.route.Method, e.route.Path, e.handler)
	}

	// Convenience redirects, not listed in the index
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/", http.StatusTemporaryRedirect)
	})
	r.Get("/admin", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/", http.StatusMovedPermanently)
	})

	return r
}

// Start binds the listener and serves on a background goroutine.
//
// Binding happens before Start returns, so a port conflict surfaces as a
// *BindError to the caller instead of a log line. The returned address
// carries the real port when Addr asked for port 0.
func (s *Server) Start(ctx context.Context) (net.Addr, error) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	s.started = true
	handler := s.handlerLocked()
	s.mu.Unlock()

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return nil, newBindError(s.cfg.Addr, err)
	}

	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}

	// First sample anchors the deltas at start-up values.
	s.deltas.Sample(s.deps.Stats.Snapshot())
	samplerCtx, stopSampler := context.WithCancel(context.WithoutCancel(ctx))

	s.mu.Lock()
	s.listener = ln
	s.httpServer = srv
	s.serveDone = make(chan struct{})
	s.samplerDone = make(chan struct{})
	s.stopSampler = stopSampler
	serveDone, samplerDone := s.serveDone, s.samplerDone
	s.mu.Unlock()

	go s.runSampler(samplerCtx, samplerDone)
	go func() {
		defer close(serveDone)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Admin server stopped serving", logger.Addr(ln.Addr().String()), logger.Err(err))
		}
	}()

	s.log.Info("Admin server listening", logger.Addr(ln.Addr().String()))
	s.log.Debug("Admin endpoints available",
		"health", fmt.Sprintf("http://%s/admin/health", ln.Addr()),
		"metrics", fmt.Sprintf("http://%s/admin/metrics", ln.Addr()),
	)
	return ln.Addr(), nil
}

func (s *Server) runSampler(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(s.cfg.DeltaInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.deltas.Sample(s.deps.Stats.Snapshot())
		}
	}
}

// Addr returns the bound address, or nil before a successful Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop gracefully shuts the server down, waiting for in-flight requests until
// ctx expires. Stop is safe to call multiple times and before Start.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		srv, serveDone := s.httpServer, s.serveDone
		stopSampler, samplerDone := s.stopSampler, s.samplerDone
		s.mu.Unlock()

		if stopSampler != nil {
			stopSampler()
			<-samplerDone
		}
		if srv == nil {
			return
		}

		if err := srv.Shutdown(ctx); err != nil {
			s.stopErr = fmt.Errorf("admin server shutdown: %w", err)
			s.log.Warn("Admin server shutdown did not finish, closing connections", logger.KeyError, err)
			_ = srv.Close()
		} else {
			s.log.Info("Admin server stopped")
		}
		<-serveDone
	})
	return s.stopErr
}
