package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Config holds logger configuration
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

// Logger bundles a slog.Logger with the level variable that drives it, so the
// level can be changed after construction without rebuilding handlers.
// Reconfigure swaps the output and format in place: every *slog.Logger
// derived from it, including those built with With, follows the swap.
type Logger struct {
	*slog.Logger

	level *slog.LevelVar
	root  *swapRoot

	mu     sync.Mutex
	closer io.Closer
}

// New builds a logger from cfg.
// Output can be "stdout", "stderr", or a file path. A file is opened in append mode
// and closed by Close.
func New(cfg Config) (*Logger, error) {
	l := &Logger{level: new(slog.LevelVar), root: &swapRoot{}}
	l.root.store(slog.DiscardHandler)
	l.Logger = slog.New(&swapHandler{root: l.root})
	if err := l.Reconfigure(cfg); err != nil {
		return nil, err
	}
	return l, nil
}

// NewWithWriter builds a logger writing to w.
// This is primarily useful for testing.
func NewWithWriter(w io.Writer, level, format string, enableColor bool) (*Logger, error) {
	l := &Logger{level: new(slog.LevelVar), root: &swapRoot{}}
	if err := l.setHandler(w, level, format, enableColor); err != nil {
		return nil, err
	}
	l.Logger = slog.New(&swapHandler{root: l.root})
	return l, nil
}

// Reconfigure points the logger at a new output, format and level. On error
// the previous configuration stays in effect.
func (l *Logger) Reconfigure(cfg Config) error {
	w, closer, useColor, err := openOutput(cfg.Output)
	if err != nil {
		return err
	}
	if err := l.setHandler(w, cfg.Level, cfg.Format, useColor); err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return err
	}

	l.mu.Lock()
	old := l.closer
	l.closer = closer
	l.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

func openOutput(output string) (io.Writer, io.Closer, bool, error) {
	switch strings.ToLower(output) {
	case "stderr", "":
		return os.Stderr, nil, isTerminal(os.Stderr.Fd()), nil
	case "stdout":
		return os.Stdout, nil, isTerminal(os.Stdout.Fd()), nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, false, fmt.Errorf("failed to open log file %q: %w", output, err)
		}
		return f, f, false, nil
	}
}

func (l *Logger) setHandler(w io.Writer, level, format string, enableColor bool) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	opts := &slog.HandlerOptions{Level: l.level}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text", "":
		handler = NewColorTextHandler(w, opts, enableColor)
	default:
		return fmt.Errorf("invalid log format %q (must be text or json)", format)
	}

	l.level.Set(lvl)
	l.root.store(handler)
	return nil
}

// Discard returns a logger that drops every record until reconfigured.
func Discard() *Logger {
	l := &Logger{level: new(slog.LevelVar), root: &swapRoot{}}
	l.root.store(slog.DiscardHandler)
	l.Logger = slog.New(&swapHandler{root: l.root})
	return l
}

// ParseLevel converts a level name to a slog.Level. An empty name means INFO.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO", "":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (must be DEBUG, INFO, WARN or ERROR)", level)
	}
}

// SetLevel changes the minimum level. Invalid names are ignored.
func (l *Logger) SetLevel(level string) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return
	}
	l.level.Set(lvl)
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	closer := l.closer
	l.closer = nil
	l.mu.Unlock()
	if closer == nil {
		return nil
	}
	return closer.Close()
}

// ============================================================================
// Context-aware Logging API
// ============================================================================

// DebugCtx logs at debug level with context (auto-injects trace_id, span_id, etc.)
func DebugCtx(ctx context.Context, l *slog.Logger, msg string, args ...any) {
	l.DebugContext(ctx, msg, appendContextFields(ctx, args)...)
}

// InfoCtx logs at info level with context
func InfoCtx(ctx context.Context, l *slog.Logger, msg string, args ...any) {
	l.InfoContext(ctx, msg, appendContextFields(ctx, args)...)
}

// WarnCtx logs at warn level with context
func WarnCtx(ctx context.Context, l *slog.Logger, msg string, args ...any) {
	l.WarnContext(ctx, msg, appendContextFields(ctx, args)...)
}

// ErrorCtx logs at error level with context
func ErrorCtx(ctx context.Context, l *slog.Logger, msg string, args ...any) {
	l.ErrorContext(ctx, msg, appendContextFields(ctx, args)...)
}

// appendContextFields prepends LogContext fields to args
func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	ctxArgs := make([]any, 0, 8+len(args))

	if lc.TraceID != "" {
		ctxArgs = append(ctxArgs, KeyTraceID, lc.TraceID)
	}
	if lc.SpanID != "" {
		ctxArgs = append(ctxArgs, KeySpanID, lc.SpanID)
	}
	if lc.Phase != "" {
		ctxArgs = append(ctxArgs, KeyPhase, lc.Phase)
	}
	if lc.RequestID != "" {
		ctxArgs = append(ctxArgs, KeyRequestID, lc.RequestID)
	}

	return append(ctxArgs, args...)
}

// Duration returns duration since start time in milliseconds
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
