package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/srvkit/internal/logger"
	"github.com/marmos91/srvkit/internal/telemetry"
	"github.com/marmos91/srvkit/pkg/admin"
	"github.com/marmos91/srvkit/pkg/admin/handlers"
	"github.com/marmos91/srvkit/pkg/config"
	"github.com/marmos91/srvkit/pkg/flags"
	"github.com/marmos91/srvkit/pkg/lifecycle"
	"github.com/marmos91/srvkit/pkg/metrics"
	promexport "github.com/marmos91/srvkit/pkg/metrics/prometheus"
	"github.com/marmos91/srvkit/pkg/shutdown"
	"github.com/marmos91/srvkit/pkg/stats"
	"github.com/marmos91/srvkit/pkg/stats/export"
)

// ErrAlreadyRan is returned when Main is called twice.
var ErrAlreadyRan = errors.New("server: Main already called")

// Main runs the server to completion and returns the process exit code.
//
// Flag, config and settings errors return ExitUsage and an admin bind failure
// returns ExitAdminBind; in both cases no hook runs. Otherwise the lifecycle
// runs and the code reflects the first failing phase (see ExitCode).
func (s *Server) Main(args []string) int {
	if !s.ran.CompareAndSwap(false, true) {
		s.Log().Error("Server already ran", logger.KeyError, ErrAlreadyRan)
		return ExitFailure
	}
	code := s.run(args)
	_ = s.log.Close()

	s.mu.Lock()
	s.exitCode = code
	s.mu.Unlock()
	return code
}

func (s *Server) run(args []string) int {
	if err := s.flags.Parse(args); err != nil {
		if errors.Is(err, flags.ErrHelp) {
			fmt.Fprint(s.stdout, s.flags.Usage(s.name))
			return ExitOK
		}
		s.usageError(err)
		return ExitUsage
	}

	settings, code := s.loadSettings()
	if code != ExitOK {
		return code
	}

	ctx := context.Background()
	log := s.Log()

	tp, err := telemetry.New(ctx, telemetry.Config{
		Enabled:        settings.Telemetry.Enabled,
		ServiceName:    s.name,
		ServiceVersion: s.version,
		InstanceID:     s.instanceID,
		Endpoint:       settings.Telemetry.Endpoint,
		Insecure:       settings.Telemetry.Insecure,
		SampleRate:     settings.Telemetry.SampleRate,
	})
	if err != nil {
		log.Error("Failed to initialize telemetry", logger.KeyError, err)
		return ExitFailure
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Warn("Telemetry shutdown error", logger.KeyError, err)
		}
	}()

	profiler, err := telemetry.StartProfiling(telemetry.ProfilingConfig{
		Enabled:        settings.Profiling.Enabled,
		ServiceName:    s.name,
		ServiceVersion: s.version,
		Endpoint:       settings.Profiling.Endpoint,
		ProfileTypes:   settings.Profiling.Types,
	})
	if err != nil {
		log.Error("Failed to initialize profiling", logger.KeyError, err)
		return ExitFailure
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Warn("Profiling shutdown error", logger.KeyError, err)
		}
	}()

	if tp.Enabled() {
		log.Info("Telemetry enabled", "endpoint", settings.Telemetry.Endpoint, "sample_rate", settings.Telemetry.SampleRate)
	}
	if profiler.Enabled() {
		log.Info("Profiling enabled", "endpoint", settings.Profiling.Endpoint, "profile_types", settings.Profiling.Types)
	}

	reg := s.registry
	if reg == nil {
		reg = promexport.NewRegistry()
	}
	ns := EnvPrefix(s.name)
	lifecycleMetrics := promexport.NewLifecycleMetrics(reg, ns)
	if err := reg.Register(promexport.NewStatsCollector(ns, s.stats.Snapshot)); err != nil {
		log.Warn("Stats collector not registered", logger.KeyError, err)
	}
	stats.RegisterProcessGauges(s.stats, s.startTime)

	s.shutdown.OnShutdown(func() {
		if req, ok := s.shutdown.Request(); ok {
			metrics.ObserveShutdownRequest(lifecycleMetrics, string(req.Source))
		}
	})

	orch := lifecycle.New(
		lifecycle.WithLogger(log.With(logger.KeyServer, s.name)),
		lifecycle.WithShutdown(s.shutdown),
		lifecycle.WithObserver(newPhaseObserver(s.name, log, s.stats, lifecycleMetrics, tp)),
	)
	s.mu.Lock()
	s.lifecycle = orch
	s.mu.Unlock()

	adm, err := s.newAdmin(settings, reg, orch)
	if err != nil {
		log.Error("Failed to configure admin server", logger.KeyError, err)
		return ExitUsage
	}
	if _, err := adm.Start(ctx); err != nil {
		var be *admin.BindError
		if errors.As(err, &be) {
			log.Error("Admin server could not bind",
				logger.KeyAddr, be.Addr,
				logger.KeyReason, string(be.Reason),
				logger.KeyError, be.Err)
			return ExitAdminBind
		}
		log.Error("Admin server failed to start", logger.KeyError, err)
		return ExitFailure
	}

	if err := s.registerHooks(orch, adm, settings, promexport.NewExportMetrics(reg, ns)); err != nil {
		log.Error("Failed to register lifecycle hooks", logger.KeyError, err)
		s.stopAdmin(ctx, adm)
		return ExitFailure
	}

	if s.signals {
		sigCtx, stopSignals := context.WithCancel(ctx)
		defer stopSignals()
		s.shutdown.WatchSignals(sigCtx)
	}

	log.Info("Server starting",
		logger.KeyServer, s.name,
		"version", s.version,
		logger.KeyInstanceID, s.instanceID,
		logger.Addr(adm.Addr().String()))

	runErr := orch.Run(ctx)
	s.shutdown.Complete()

	code = ExitCode(runErr)
	s.summarize(orch.Status(), code)
	return code
}

// usageError prints every flag problem followed by a pointer to -help.
func (s *Server) usageError(err error) {
	var pe *flags.ParseError
	if errors.As(err, &pe) {
		for _, p := range pe.Problems {
			fmt.Fprintf(s.stderr, "%s: %v\n", s.name, p)
		}
	} else {
		fmt.Fprintf(s.stderr, "%s: %v\n", s.name, err)
	}
	fmt.Fprintf(s.stderr, "Run '%s -help' for usage.\n", s.name)
}

// loadSettings applies environment and config file fallbacks to the flags,
// validates the result and reconfigures logging and shutdown from it.
func (s *Server) loadSettings() (*config.Settings, int) {
	configPath := s.builtin.config.Get()
	if configPath == "" {
		configPath = os.Getenv(flags.EnvName(s.envPrefix, FlagConfig))
	}

	src, err := config.NewSource(configPath, s.envPrefix, s.name)
	if err != nil {
		s.usageError(err)
		return nil, ExitUsage
	}
	if err := s.flags.ApplyFallback(flags.Chain(flags.EnvLookup(s.envPrefix), src.Lookup)); err != nil {
		s.usageError(err)
		return nil, ExitUsage
	}

	settings := s.builtin.settings()
	if err := config.Validate(settings); err != nil {
		s.usageError(fmt.Errorf("invalid settings: %w", err))
		return nil, ExitUsage
	}

	if err := s.log.Reconfigure(logger.Config{
		Level:  settings.Log.Level,
		Format: settings.Log.Format,
		Output: settings.Log.Output,
	}); err != nil {
		s.usageError(err)
		return nil, ExitUsage
	}
	s.shutdown.SetGracePeriod(settings.Shutdown.GracePeriod)

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	if used := src.ConfigFileUsed(); used != "" {
		s.Log().Info("Configuration loaded", logger.KeyConfigFile, used)
	}
	s.Log().Debug("Log level", "level", settings.Log.Level, "format", settings.Log.Format)
	for _, info := range s.flags.All() {
		if info.Source != flags.SourceDefault {
			s.Log().Debug("Flag resolved", logger.Flag(info.Name), logger.KeyValue, info.Value, "set_by", info.Source.String())
		}
	}
	return settings, ExitOK
}

func (s *Server) newAdmin(settings *config.Settings, reg *prometheus.Registry, orch *lifecycle.Orchestrator) (*admin.Server, error) {
	adm, err := admin.New(admin.Config{
		Addr:          settings.Admin.Port,
		ReadTimeout:   settings.Admin.ReadTimeout,
		WriteTimeout:  settings.Admin.WriteTimeout,
		DeltaInterval: settings.Stats.DeltaInterval,
		EnablePprof:   settings.Admin.Pprof,
		TokenSecret:   settings.Admin.TokenSecret,
	}, admin.Deps{
		Flags:    s.flags,
		Stats:    s.stats,
		Status:   orch,
		Shutdown: s.shutdown,
		Gatherer: reg,
		Metrics:  promexport.NewAdminMetrics(reg, EnvPrefix(s.name)),
		Info: handlers.Info{
			Name:       s.name,
			Version:    s.version,
			InstanceID: s.instanceID,
			Args:       os.Args,
			StartTime:  s.startTime,
		},
		Logger: s.Log().With(logger.KeyServer, s.name),
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	routes := append([]adminRoute(nil), s.adminRoutes...)
	s.admin = adm
	s.mu.Unlock()

	for _, r := range routes {
		if err := adm.Handle(r.method, r.path, r.description, r.handler); err != nil {
			return nil, err
		}
	}
	return adm, nil
}

// registerHooks binds the application hooks to orch. Exit and ExitLast wrap
// the application's hooks with the server's own teardown.
func (s *Server) registerHooks(orch *lifecycle.Orchestrator, adm *admin.Server, settings *config.Settings, em metrics.ExportMetrics) error {
	s.mu.Lock()
	hooks := make(map[lifecycle.Phase]lifecycle.Hook, len(s.hooks))
	for p, h := range s.hooks {
		hooks[p] = h
	}
	s.mu.Unlock()

	for _, p := range []lifecycle.Phase{lifecycle.Init, lifecycle.PreMain, lifecycle.Main, lifecycle.PostMain} {
		if err := orch.Register(p, hooks[p]); err != nil {
			return err
		}
	}

	appExit := hooks[lifecycle.Exit]
	if err := orch.Register(lifecycle.Exit, func(ctx context.Context) error {
		// Arms the grace timer and flips health to shutting_down when
		// teardown starts without an external request.
		s.shutdown.RequestShutdown(shutdown.SourceLifecycle, "exit phase reached")
		return callHook(ctx, appExit)
	}); err != nil {
		return err
	}

	// The admin server stops last, after the final export, so health stays
	// reachable through the whole of ExitLast.
	appExitLast := hooks[lifecycle.ExitLast]
	return orch.Register(lifecycle.ExitLast, func(ctx context.Context) error {
		defer s.stopAdmin(ctx, adm)
		defer s.exportSnapshot(ctx, settings, orch, em)
		return callHook(ctx, appExitLast)
	})
}

func callHook(ctx context.Context, h lifecycle.Hook) error {
	if h == nil {
		return nil
	}
	return h(ctx)
}

func (s *Server) stopAdmin(ctx context.Context, adm *admin.Server) {
	stopCtx, cancel := context.WithTimeout(ctx, adminStopTimeout)
	defer cancel()
	if err := adm.Stop(stopCtx); err != nil {
		s.Log().Warn("Admin server did not stop cleanly", logger.Err(err))
	}
}

// exportSnapshot writes the final stats snapshot to the configured target.
// Failures are logged; they never change the exit code.
func (s *Server) exportSnapshot(ctx context.Context, settings *config.Settings, orch *lifecycle.Orchestrator, em metrics.ExportMetrics) {
	target := settings.Stats.Export
	if target == "" {
		return
	}
	log := s.Log().With(logger.KeyTarget, target)
	start := time.Now()

	exp, err := export.Open(ctx, target, export.Options{
		S3: export.S3Options{
			Region:          settings.Stats.S3.Region,
			Endpoint:        settings.Stats.S3.Endpoint,
			AccessKeyID:     settings.Stats.S3.AccessKeyID,
			SecretAccessKey: settings.Stats.S3.SecretAccessKey,
		},
		Logger: log,
	})
	if err == nil {
		err = exp.Export(ctx, export.Record{
			Server:     s.name,
			InstanceID: s.instanceID,
			ExitCode:   ExitCode(orch.Status().Err),
			Snapshot:   s.stats.Snapshot(),
		})
		if closeErr := exp.Close(); err == nil {
			err = closeErr
		}
	}
	metrics.ObserveExport(em, export.Scheme(target), time.Since(start), err)

	if err != nil {
		log.Warn("Final stats export failed", logger.Err(err))
		return
	}
	log.Info("Final stats exported", logger.Since(start))
}

// summarize logs the outcome of the run.
func (s *Server) summarize(status lifecycle.Status, code int) {
	args := []any{
		logger.KeyServer, s.name,
		logger.KeyExitCode, code,
		"uptime", time.Since(s.startTime).Round(time.Millisecond).String(),
	}
	if req, ok := s.shutdown.Request(); ok {
		args = append(args, logger.KeySource, string(req.Source), logger.KeyReason, req.Reason)
	}
	if status.Err != nil {
		args = append(args, logger.KeyFailedPhase, status.FailedPhase.String(), logger.KeyError, status.Err)
		s.Log().Error("Server exited with failure", args...)
		return
	}
	s.Log().Info("Server exited", args...)
}
