package server

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/marmos91/srvkit/internal/logger"
	"github.com/marmos91/srvkit/internal/telemetry"
	"github.com/marmos91/srvkit/pkg/lifecycle"
	"github.com/marmos91/srvkit/pkg/metrics"
	"github.com/marmos91/srvkit/pkg/stats"
)

// phaseObserver reports every lifecycle phase to the log, the stats receiver
// (lifecycle/<phase>_ms), Prometheus and a trace span.
type phaseObserver struct {
	server  string
	log     *slog.Logger
	stats   stats.Receiver
	metrics metrics.LifecycleMetrics
	tracer  *telemetry.Provider
}

var _ lifecycle.Observer = (*phaseObserver)(nil)

func newPhaseObserver(server string, log *slog.Logger, recv stats.Receiver, m metrics.LifecycleMetrics, tp *telemetry.Provider) *phaseObserver {
	if tp == nil {
		tp = telemetry.Noop(server)
	}
	return &phaseObserver{
		server:  server,
		log:     log,
		stats:   recv.Scope("lifecycle"),
		metrics: m,
		tracer:  tp,
	}
}

func (o *phaseObserver) PhaseStarted(ctx context.Context, p lifecycle.Phase) context.Context {
	metrics.SetPhase(o.metrics, p.String())

	ctx, _ = o.tracer.StartSpan(ctx, "lifecycle."+p.String(),
		trace.WithAttributes(
			attribute.String(telemetry.AttrServer, o.server),
			attribute.String(telemetry.AttrPhase, p.String()),
		))

	lc := logger.NewLogContext(p.String()).WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	ctx = logger.WithContext(ctx, lc)
	logger.DebugCtx(ctx, o.log, "Entering phase")
	return ctx
}

func (o *phaseObserver) PhaseFinished(ctx context.Context, e lifecycle.Event) {
	name := e.Phase.String()
	o.stats.Histogram(name + "_ms").Observe(float64(e.Duration.Milliseconds()))
	metrics.ObservePhase(o.metrics, name, e.Duration, e.Err != nil)

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Bool(telemetry.AttrHasHook, e.HasHook))
	telemetry.RecordError(ctx, e.Err)
	span.End()

	if !e.HasHook {
		return
	}
	if e.Err != nil {
		logger.WarnCtx(ctx, o.log, "Phase returned an error",
			logger.DurationMs(float64(e.Duration.Milliseconds())),
			logger.Err(e.Err))
		return
	}
	logger.InfoCtx(ctx, o.log, "Phase completed", logger.DurationMs(float64(e.Duration.Milliseconds())))
}
