package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// ========================================================================
	// Server & Lifecycle
	// ========================================================================
	KeyServer      = "server"       // Server name as passed to server.New
	KeyInstanceID  = "instance_id"  // Per-process UUID
	KeyPhase       = "phase"        // Lifecycle phase: init, pre_main, main, ...
	KeyFailedPhase = "failed_phase" // Phase that recorded the terminal error
	KeyExitCode    = "exit_code"    // Process exit code
	KeySource      = "source"       // Shutdown source: signal, admin, explicit, lifecycle
	KeyReason      = "reason"       // Free-form shutdown reason
	KeyGrace       = "grace"        // Shutdown grace period

	// ========================================================================
	// Flags & Config
	// ========================================================================
	KeyFlag       = "flag"        // Flag name
	KeyValue      = "value"       // Flag or metric value
	KeyConfigFile = "config_file" // Config file path

	// ========================================================================
	// Stats
	// ========================================================================
	KeyMetric = "metric" // Fully-scoped metric name
	KeyKind   = "kind"   // Metric kind: counter, gauge, histogram

	// ========================================================================
	// Admin HTTP
	// ========================================================================
	KeyAddr      = "addr"       // Listen address
	KeyRoute     = "route"      // Route pattern
	KeyMethod    = "method"     // HTTP method
	KeyStatus    = "status"     // HTTP status code
	KeyRequestID = "request_id" // Request ID from chi middleware
	KeyClientIP  = "client_ip"  // Client IP address

	// ========================================================================
	// Export
	// ========================================================================
	KeyTarget = "target" // Snapshot export target URL
	KeyBucket = "bucket" // S3 bucket name
	KeyKey    = "key"    // Object or database key

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyCount      = "count"
)

// Phase returns a slog.Attr for a lifecycle phase
func Phase(name string) slog.Attr {
	return slog.String(KeyPhase, name)
}

// Flag returns a slog.Attr for a flag name
func Flag(name string) slog.Attr {
	return slog.String(KeyFlag, name)
}

// Metric returns a slog.Attr for a metric name
func Metric(name string) slog.Attr {
	return slog.String(KeyMetric, name)
}

// Addr returns a slog.Attr for a listen address
func Addr(addr string) slog.Attr {
	return slog.String(KeyAddr, addr)
}

// Source returns a slog.Attr for a shutdown source
func Source(src string) slog.Attr {
	return slog.String(KeySource, src)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Since returns a slog.Attr for the milliseconds elapsed since start
func Since(start time.Time) slog.Attr {
	return DurationMs(Duration(start))
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
