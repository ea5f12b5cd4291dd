// Package lifecycle runs an application's hooks through a fixed sequence of
// phases with guaranteed cleanup.
//
// Init and PreMain prepare the process, Main does the work, PostMain runs after
// a clean Main, and Exit and ExitLast always run once anything has started.
// The first failing hook becomes the terminal error returned by Run.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/srvkit/internal/logger"
)

// ShutdownNotifier is closed-channel signalling of a shutdown request.
type ShutdownNotifier interface {
	Done() <-chan struct{}
}

// Event describes one phase transition as seen by observers.
type Event struct {
	Phase    Phase
	Started  time.Time
	Duration time.Duration
	HasHook  bool
	Err      error // nil on success
}

// Observer is notified around every phase. PhaseStarted may return a derived
// context (for example carrying a trace span) that is passed to the hook.
type Observer interface {
	PhaseStarted(ctx context.Context, p Phase) context.Context
	PhaseFinished(ctx context.Context, e Event)
}

// Status is a snapshot of orchestrator progress.
type Status struct {
	Phase       Phase `json:"phase"`
	FailedPhase Phase `json:"failed_phase,omitempty"`
	Err         error `json:"-"`
}

// Failed reports whether any phase has recorded a failure.
func (s Status) Failed() bool { return s.Err != nil }

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for phase transitions.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithObserver adds an observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, obs) }
}

// WithShutdown connects a shutdown source. A request before Main skips the
// remaining startup phases; a request during Main cancels Main's context.
func WithShutdown(n ShutdownNotifier) Option {
	return func(o *Orchestrator) { o.shutdown = n }
}

// Orchestrator drives the phases. It runs at most once.
type Orchestrator struct {
	logger    *slog.Logger
	observers []Observer
	shutdown  ShutdownNotifier

	mu      sync.Mutex
	hooks   map[Phase]Hook
	status  Status
	history []Event

	phase atomic.Int32
	ran   atomic.Bool
}

// New creates an orchestrator with no hooks.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{hooks: make(map[Phase]Hook)}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Register binds hook to phase. Each phase holds at most one hook.
func (o *Orchestrator) Register(p Phase, hook Hook) error {
	if !p.hookable() {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, p)
	}
	if hook == nil {
		return nil
	}
	if o.ran.Load() {
		return ErrAlreadyRun
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.hooks[p]; exists {
		return fmt.Errorf("%w: %s", ErrHookRegistered, p)
	}
	o.hooks[p] = hook
	return nil
}

// RegisterApp binds every capability interface app implements. It registers
// nothing if any of its phases is already taken.
func (o *Orchestrator) RegisterApp(app any) error {
	hooks := HooksOf(app)

	o.mu.Lock()
	for p := range hooks {
		if _, exists := o.hooks[p]; exists {
			o.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrHookRegistered, p)
		}
	}
	o.mu.Unlock()

	for _, p := range Phases {
		if h, ok := hooks[p]; ok {
			if err := o.Register(p, h); err != nil {
				return err
			}
		}
	}
	return nil
}

// Phase returns the phase currently executing, or the terminal state.
func (o *Orchestrator) Phase() Phase {
	return Phase(o.phase.Load())
}

// Status returns the current phase and the first recorded failure, if any.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.status
	s.Phase = o.Phase()
	return s
}

// History returns every phase that has finished, in order.
func (o *Orchestrator) History() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Event(nil), o.history...)
}

func (o *Orchestrator) shutdownRequested() bool {
	if o.shutdown == nil {
		return false
	}
	select {
	case <-o.shutdown.Done():
		return true
	default:
		return false
	}
}

// Run executes the phases and returns the first failure as a *HookError, or nil.
//
// Init or PreMain failure skips to Exit. Main failure skips PostMain. Exit always
// runs once Run starts, and ExitLast always runs after Exit has returned, even
// when Exit failed. Teardown phases receive a context that is not cancelled by
// ctx, so cleanup is bounded only by the shutdown grace period.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}

	o.runStartupAndMain(ctx)

	teardownCtx := context.WithoutCancel(ctx)
	o.runPhase(teardownCtx, Exit)
	o.runPhase(teardownCtx, ExitLast)

	o.phase.Store(int32(Terminated))

	status := o.Status()
	if status.Err != nil {
		o.logger.Error("Lifecycle finished with failure",
			"failed_phase", status.FailedPhase.String(),
			"error", status.Err)
		return status.Err
	}
	o.logger.Info("Lifecycle finished")
	return nil
}

func (o *Orchestrator) runStartupAndMain(ctx context.Context) {
	for _, p := range []Phase{Init, PreMain} {
		if o.shutdownRequested() {
			o.logger.Info("Shutdown requested during startup, skipping to exit", logger.Phase(p.String()))
			return
		}
		if err := o.runPhase(ctx, p); err != nil {
			return
		}
	}

	if o.shutdownRequested() {
		o.logger.Info("Shutdown requested before main, skipping to exit")
		return
	}

	mainCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if o.shutdown != nil {
		go func() {
			select {
			case <-o.shutdown.Done():
				cancel()
			case <-mainCtx.Done():
			}
		}()
	}

	if err := o.runPhase(mainCtx, Main); err != nil {
		return
	}
	o.runPhase(ctx, PostMain)
}

// runPhase executes one phase and records its outcome. It returns the hook's
// failure, if any, after recording it.
func (o *Orchestrator) runPhase(ctx context.Context, p Phase) error {
	o.phase.Store(int32(p))

	o.mu.Lock()
	hook := o.hooks[p]
	o.mu.Unlock()

	for _, obs := range o.observers {
		ctx = obs.PhaseStarted(ctx, p)
	}

	start := time.Now()
	o.logger.Debug("Phase started", logger.Phase(p.String()))

	err := o.invoke(ctx, p, hook)
	if p == Main && err != nil && o.shutdownRequested() && errors.Is(err, context.Canceled) {
		err = nil
	}

	ev := Event{
		Phase:    p,
		Started:  start,
		Duration: time.Since(start),
		HasHook:  hook != nil,
	}
	if err != nil {
		ev.Err = err
	}

	o.mu.Lock()
	o.history = append(o.history, ev)
	if err != nil && o.status.Err == nil {
		o.status.FailedPhase = p
		o.status.Err = err
	}
	o.mu.Unlock()

	for _, obs := range o.observers {
		obs.PhaseFinished(ctx, ev)
	}

	if err != nil {
		if p.IsTeardown() {
			o.logger.Warn("Teardown phase failed, continuing cleanup", logger.Phase(p.String()), "error", err)
		} else {
			o.logger.Error("Phase failed", logger.Phase(p.String()), "error", err)
		}
		return err
	}
	o.logger.Debug("Phase finished", logger.Phase(p.String()), logger.DurationMs(float64(ev.Duration.Milliseconds())))
	return nil
}

// invoke calls hook, converting both errors and panics into *HookError.
func (o *Orchestrator) invoke(ctx context.Context, p Phase, hook Hook) (err error) {
	if hook == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Hook panicked", logger.Phase(p.String()), "panic", r, "stack", string(debug.Stack()))
			err = &HookError{Phase: p, Err: fmt.Errorf("%v", r), Panicked: true}
		}
	}()

	if hookErr := hook(ctx); hookErr != nil {
		var he *HookError
		if errors.As(hookErr, &he) && he.Phase == p {
			return he
		}
		return &HookError{Phase: p, Err: hookErr}
	}
	return nil
}
