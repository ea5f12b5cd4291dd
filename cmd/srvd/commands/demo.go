package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/marmos91/srvkit/internal/logger"
	"github.com/marmos91/srvkit/pkg/flags"
	"github.com/marmos91/srvkit/pkg/server"
	"github.com/marmos91/srvkit/pkg/stats"
)

// ErrDemoFailure is returned by the demo Main hook once demo.fail_after ticks have run.
var ErrDemoFailure = errors.New("demo: configured failure")

// demoApp is a small workload that ticks until shutdown, counting requests.
type demoApp struct {
	srv *server.Server

	foo       *flags.Flag[string]
	interval  *flags.Flag[time.Duration]
	failAfter *flags.Flag[int]

	requests stats.Counter
	latency  stats.Histogram
	inflight stats.Gauge

	ticks atomic.Int64
}

func newDemoApp(srv *server.Server) (*demoApp, error) {
	r := srv.Flags()
	app := &demoApp{
		srv:       srv,
		foo:       r.String("foo", "default-foo", "Value echoed by the demo on startup"),
		interval:  r.Duration("demo.interval", time.Second, "Time between demo requests"),
		failAfter: r.Int("demo.fail_after", 0, "Fail Main after this many requests (0 never fails)"),
	}

	recv := srv.Stats().Scope("demo")
	app.requests = recv.Counter("requests")
	app.latency = recv.Histogram("latency_ms")
	app.inflight = recv.Gauge("inflight")

	if err := srv.RegisterApp(app); err != nil {
		return nil, err
	}
	if err := srv.HandleAdmin(http.MethodGet, "/admin/demo", "Demo workload state", http.HandlerFunc(app.serveState)); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *demoApp) Init(ctx context.Context) error {
	if a.interval.Get() <= 0 {
		return fmt.Errorf("demo.interval must be positive, got %s", a.interval.Get())
	}
	if a.failAfter.Get() < 0 {
		return fmt.Errorf("demo.fail_after must not be negative, got %d", a.failAfter.Get())
	}
	logger.InfoCtx(ctx, a.srv.Log(), "Demo configured",
		"foo", a.foo.Get(),
		"foo_source", a.foo.Source().String(),
		"interval", a.interval.Get().String())
	return nil
}

func (a *demoApp) Main(ctx context.Context) error {
	ticker := time.NewTicker(a.interval.Get())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		n := a.tick()
		if limit := int64(a.failAfter.Get()); limit > 0 && n >= limit {
			return fmt.Errorf("%w after %d requests", ErrDemoFailure, n)
		}
	}
}

func (a *demoApp) tick() int64 {
	a.inflight.Add(1)
	defer a.inflight.Add(-1)

	start := time.Now()
	_ = a.requests.Incr(1)
	a.latency.Observe(float64(time.Since(start).Microseconds()) / 1000)
	return a.ticks.Add(1)
}

func (a *demoApp) Exit(ctx context.Context) error {
	logger.InfoCtx(ctx, a.srv.Log(), "Demo stopping", "requests", a.requests.Value())
	return nil
}

func (a *demoApp) serveState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"foo":%q,"requests":%d}`+"\n", a.foo.Get(), a.requests.Value())
}
