// Package server wires the flag registry, stats receiver, admin server,
// lifecycle orchestrator and shutdown coordinator into one process.
//
// A service builds a Server, registers its own flags and hooks, and hands
// control to Main:
//
//	srv := server.New("srvd", server.WithVersion(version))
//	workers := srv.Flags().Int("workers", 4, "number of workers")
//	srv.OnMain(func(ctx context.Context) error { return run(ctx, workers.Get()) })
//	os.Exit(srv.Main(os.Args[1:]))
//
// Main parses flags, applies environment and config file fallbacks, starts
// the admin server, runs the lifecycle phases and returns the exit code.
package server

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/srvkit/internal/logger"
	"github.com/marmos91/srvkit/pkg/admin"
	"github.com/marmos91/srvkit/pkg/config"
	"github.com/marmos91/srvkit/pkg/flags"
	"github.com/marmos91/srvkit/pkg/lifecycle"
	"github.com/marmos91/srvkit/pkg/shutdown"
	"github.com/marmos91/srvkit/pkg/stats"
)

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported by /admin/server_info and traces.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithEnvPrefix overrides the environment variable prefix derived from the name.
func WithEnvPrefix(prefix string) Option {
	return func(s *Server) { s.envPrefix = prefix }
}

// WithOutput redirects usage and flag errors, which go to stdout and stderr by default.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(s *Server) {
		s.stdout = stdout
		s.stderr = stderr
	}
}

// WithExitFunc replaces os.Exit for forced termination after the grace period.
func WithExitFunc(exit func(code int)) Option {
	return func(s *Server) { s.exit = exit }
}

// WithoutSignals disables SIGINT/SIGTERM handling. Useful in tests.
func WithoutSignals() Option {
	return func(s *Server) { s.signals = false }
}

// WithRegistry uses reg for Prometheus metrics instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

type adminRoute struct {
	method, path, description string
	handler                   http.Handler
}

// Server is a long-running process built from the srvkit components.
type Server struct {
	name       string
	version    string
	envPrefix  string
	instanceID string
	startTime  time.Time

	stdout, stderr io.Writer
	exit           func(code int)
	signals        bool
	registry       *prometheus.Registry

	flags     *flags.Registry
	builtin   *builtinFlags
	stats     *stats.InMemory
	log       *logger.Logger
	shutdown  *shutdown.Coordinator
	lifecycle *lifecycle.Orchestrator

	mu          sync.Mutex
	hooks       map[lifecycle.Phase]lifecycle.Hook
	adminRoutes []adminRoute
	settings    *config.Settings
	admin       *admin.Server
	exitCode    int

	ran atomic.Bool
}

// New creates a server named name. Flags registered on Flags() before Main
// are parsed together with the built-in ones.
func New(name string, opts ...Option) *Server {
	s := &Server{
		name:       name,
		version:    "dev",
		envPrefix:  EnvPrefix(name),
		instanceID: uuid.NewString(),
		startTime:  time.Now(),
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		exit:       os.Exit,
		signals:    true,
		flags:      flags.NewRegistry(),
		hooks:      make(map[lifecycle.Phase]lifecycle.Hook),
	}
	for _, opt := range opts {
		opt(s)
	}

	// The logger starts with defaults and is reconfigured in place once flags
	// are parsed, so loggers derived from it now follow the final settings.
	s.log = mustDefaultLogger()
	s.stats = stats.NewInMemory(s.Log().With(logger.KeyServer, name))
	s.builtin = registerBuiltinFlags(s.flags)
	s.shutdown = shutdown.New(shutdown.Config{
		Exit: func(code int) { s.exit(code) },
	}, s.Log())
	return s
}

func mustDefaultLogger() *logger.Logger {
	l, err := logger.New(logger.Config{
		Level:  config.DefaultLogLevel,
		Format: config.DefaultLogFormat,
		Output: config.DefaultLogOutput,
	})
	if err != nil {
		// The defaults are constants known to be valid.
		panic(fmt.Sprintf("server: default logger: %v", err))
	}
	return l
}

// EnvPrefix derives the environment variable prefix from a server name:
// "my-srv" becomes "MY_SRV".
func EnvPrefix(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}

// Name returns the server name.
func (s *Server) Name() string { return s.name }

// Version returns the server version.
func (s *Server) Version() string { return s.version }

// InstanceID returns the random ID of this process.
func (s *Server) InstanceID() string { return s.instanceID }

// Args returns the positional arguments left after flag parsing.
func (s *Server) Args() []string { return s.flags.Args() }

// Flags returns the flag registry.
func (s *Server) Flags() *flags.Registry { return s.flags }

// Stats returns the root stats receiver.
func (s *Server) Stats() stats.Receiver { return s.stats }

// Log returns the server logger.
func (s *Server) Log() *slog.Logger { return s.log.Logger }

// Shutdown returns the shutdown coordinator.
func (s *Server) Shutdown() *shutdown.Coordinator { return s.shutdown }

// DefaultAdminPort returns the admin listen address used when neither a flag,
// the environment nor the config file sets one.
func (s *Server) DefaultAdminPort() string { return config.DefaultAdminPort }

// EnvPrefix returns the prefix of the environment variables the server reads.
func (s *Server) EnvPrefix() string { return s.envPrefix }

// Settings returns the effective built-in settings, or nil before Main has
// parsed the flags.
func (s *Server) Settings() *config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// AdminAddr returns the bound admin address, or nil before the admin server starts.
func (s *Server) AdminAddr() net.Addr {
	s.mu.Lock()
	a := s.admin
	s.mu.Unlock()
	if a == nil {
		return nil
	}
	return a.Addr()
}

// Status reports the lifecycle phase and terminal error so far.
func (s *Server) Status() lifecycle.Status {
	s.mu.Lock()
	o := s.lifecycle
	s.mu.Unlock()
	if o == nil {
		return lifecycle.Status{Phase: lifecycle.NotStarted}
	}
	return o.Status()
}

// Register binds hook to phase. Each phase holds at most one application hook.
func (s *Server) Register(p lifecycle.Phase, hook lifecycle.Hook) error {
	if p < lifecycle.Init || p > lifecycle.ExitLast {
		return fmt.Errorf("%w: %s", lifecycle.ErrInvalidPhase, p)
	}
	if hook == nil {
		return nil
	}
	if s.ran.Load() {
		return lifecycle.ErrAlreadyRun
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.hooks[p]; exists {
		return fmt.Errorf("%w: %s", lifecycle.ErrHookRegistered, p)
	}
	s.hooks[p] = hook
	return nil
}

// RegisterApp binds every lifecycle capability interface app implements.
// Nothing is registered if any of its phases is already taken.
func (s *Server) RegisterApp(app any) error {
	hooks := lifecycle.HooksOf(app)

	s.mu.Lock()
	for p := range hooks {
		if _, exists := s.hooks[p]; exists {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", lifecycle.ErrHookRegistered, p)
		}
	}
	s.mu.Unlock()

	for _, p := range lifecycle.Phases {
		if h, ok := hooks[p]; ok {
			if err := s.Register(p, h); err != nil {
				return err
			}
		}
	}
	return nil
}

// OnInit registers the Init hook.
func (s *Server) OnInit(h lifecycle.Hook) error { return s.Register(lifecycle.Init, h) }

// OnPreMain registers the PreMain hook.
func (s *Server) OnPreMain(h lifecycle.Hook) error { return s.Register(lifecycle.PreMain, h) }

// OnMain registers the Main hook. Its context is cancelled on shutdown.
func (s *Server) OnMain(h lifecycle.Hook) error { return s.Register(lifecycle.Main, h) }

// OnPostMain registers the PostMain hook, run only after a clean Main.
func (s *Server) OnPostMain(h lifecycle.Hook) error { return s.Register(lifecycle.PostMain, h) }

// OnExit registers the Exit hook. It always runs.
func (s *Server) OnExit(h lifecycle.Hook) error { return s.Register(lifecycle.Exit, h) }

// OnExitLast registers the ExitLast hook. It always runs, after Exit.
func (s *Server) OnExitLast(h lifecycle.Hook) error { return s.Register(lifecycle.ExitLast, h) }

// HandleAdmin adds a read-only application route to the admin server.
// Routes must be added before Main.
func (s *Server) HandleAdmin(method, path, description string, h http.Handler) error {
	if s.ran.Load() {
		return admin.ErrRouteAfterStart
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adminRoutes = append(s.adminRoutes, adminRoute{
		method:      method,
		path:        path,
		description: description,
		handler:     h,
	})
	return nil
}

// RequestShutdown asks the server to stop. Only the first request has effect.
func (s *Server) RequestShutdown(reason string) bool {
	return s.shutdown.RequestShutdown(shutdown.SourceExplicit, reason)
}

// ExitCode returns the code Main returned, or 0 before Main finishes.
func (s *Server) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode
}

// adminStopTimeout bounds the graceful admin shutdown at the end of ExitLast.
const adminStopTimeout = 5 * time.Second
