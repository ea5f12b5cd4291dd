// Package shutdown coordinates a single, bounded transition to teardown.
//
// Any goroutine may call RequestShutdown; only the first call has effect. That
// call closes Done, runs the registered cancel functions and arms a grace timer.
// If Complete is not called before the timer fires, the coordinator logs a
// *TimeoutError and terminates the process through its exit function.
package shutdown

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/marmos91/srvkit/internal/logger"
)

// DefaultGracePeriod bounds teardown when no grace period is configured.
const DefaultGracePeriod = 30 * time.Second

// ExitCodeForced is the process exit code used when the grace period expires.
const ExitCodeForced = 7

// Source identifies what asked for shutdown.
type Source string

const (
	SourceSignal    Source = "signal"
	SourceExplicit  Source = "explicit"
	SourceAdmin     Source = "admin"
	SourceLifecycle Source = "lifecycle"
)

// Request records the effective shutdown request.
type Request struct {
	Source Source    `json:"source"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// TimeoutError reports that teardown outlived the grace period.
type TimeoutError struct {
	Grace   time.Duration
	Request Request
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("shutdown grace period of %s elapsed before teardown finished (requested by %s: %s)",
		e.Grace, e.Request.Source, e.Request.Reason)
}

// Config configures a Coordinator.
type Config struct {
	// GracePeriod bounds the time between the first request and Complete.
	GracePeriod time.Duration

	// Exit terminates the process. Defaults to os.Exit.
	Exit func(code int)

	// OnTimeout, if set, is called with the timeout error before Exit.
	OnTimeout func(*TimeoutError)
}

func (c *Config) applyDefaults() {
	if c.GracePeriod <= 0 {
		c.GracePeriod = DefaultGracePeriod
	}
	if c.Exit == nil {
		c.Exit = os.Exit
	}
}

// Coordinator is safe for concurrent use.
type Coordinator struct {
	cfg    Config
	logger *slog.Logger

	requested atomic.Bool
	done      chan struct{}
	completed chan struct{}

	mu       sync.Mutex
	request  Request
	cancels  []context.CancelFunc
	timer    *time.Timer
	complete sync.Once
}

// New creates a coordinator.
func New(cfg Config, logger *slog.Logger) *Coordinator {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{
		cfg:       cfg,
		logger:    logger,
		done:      make(chan struct{}),
		completed: make(chan struct{}),
	}
}

// GracePeriod returns the configured grace period.
func (c *Coordinator) GracePeriod() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.GracePeriod
}

// SetGracePeriod changes the grace period for a request not yet made.
// Non-positive values select DefaultGracePeriod.
func (c *Coordinator) SetGracePeriod(d time.Duration) {
	if d <= 0 {
		d = DefaultGracePeriod
	}
	c.mu.Lock()
	c.cfg.GracePeriod = d
	c.mu.Unlock()
}

// OnShutdown registers cancel to run when shutdown is requested. If shutdown
// has already been requested, cancel runs immediately.
func (c *Coordinator) OnShutdown(cancel context.CancelFunc) {
	c.mu.Lock()
	if !c.requested.Load() {
		c.cancels = append(c.cancels, cancel)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	cancel()
}

// RequestShutdown asks for shutdown. It returns true for the single call that
// takes effect and false for every later one.
func (c *Coordinator) RequestShutdown(source Source, reason string) bool {
	c.mu.Lock()
	if !c.requested.CompareAndSwap(false, true) {
		c.mu.Unlock()
		c.logger.Debug("Shutdown already requested, ignoring", logger.Source(string(source)), "reason", reason)
		return false
	}

	req := Request{Source: source, Reason: reason, At: time.Now()}
	grace := c.cfg.GracePeriod
	c.request = req
	cancels := c.cancels
	c.cancels = nil
	c.timer = time.AfterFunc(grace, c.expire)
	c.mu.Unlock()

	c.logger.Info("Shutdown requested",
		logger.Source(string(source)),
		"reason", reason,
		"grace", grace.String())

	close(c.done)
	for _, cancel := range cancels {
		cancel()
	}
	return true
}

// Requested reports whether shutdown has been requested.
func (c *Coordinator) Requested() bool { return c.requested.Load() }

// Done is closed once shutdown has been requested.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// Request returns the effective request, if any.
func (c *Coordinator) Request() (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.requested.Load() {
		return Request{}, false
	}
	return c.request, true
}

// Complete marks teardown as finished and disarms the grace timer.
func (c *Coordinator) Complete() {
	c.complete.Do(func() {
		c.mu.Lock()
		if c.timer != nil {
			c.timer.Stop()
		}
		c.mu.Unlock()
		close(c.completed)
	})
}

// Completed is closed once Complete has been called.
func (c *Coordinator) Completed() <-chan struct{} { return c.completed }

func (c *Coordinator) expire() {
	select {
	case <-c.completed:
		return
	default:
	}

	req, _ := c.Request()
	err := &TimeoutError{Grace: c.GracePeriod(), Request: req}
	c.logger.Error("Forcing exit", "error", err, "exit_code", ExitCodeForced)
	if c.cfg.OnTimeout != nil {
		c.cfg.OnTimeout(err)
	}
	c.cfg.Exit(ExitCodeForced)
}

// WatchSignals turns the given signals (SIGINT and SIGTERM by default) into a
// shutdown request. A second signal after the first forces an immediate exit
// with ExitCodeForced. Watching stops when ctx is done or teardown completes.
func (c *Coordinator) WatchSignals(ctx context.Context, signals ...os.Signal) {
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, signals...)

	go func() {
		defer signal.Stop(sigChan)
		for {
			select {
			case sig := <-sigChan:
				if !c.RequestShutdown(SourceSignal, sig.String()) {
					c.logger.Warn("Second signal received, forcing exit", "signal", sig.String())
					c.cfg.Exit(ExitCodeForced)
					return
				}
			case <-ctx.Done():
				return
			case <-c.completed:
				return
			}
		}
	}()
}
