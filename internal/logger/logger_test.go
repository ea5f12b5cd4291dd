package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, level, format string) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := new(bytes.Buffer)
	l, err := NewWithWriter(buf, level, format, false)
	require.NoError(t, err)
	return l, buf
}

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugLevelShowsAllMessages", func(t *testing.T) {
		l, buf := newBufferLogger(t, "DEBUG", "text")

		l.Debug("debug message")
		l.Info("info message")
		l.Warn("warn message")
		l.Error("error message")

		out := buf.String()
		for _, s := range []string{"DEBUG", "INFO", "WARN", "ERROR", "debug message", "error message"} {
			assert.Contains(t, out, s)
		}
	})

	t.Run("InfoLevelFiltersDebug", func(t *testing.T) {
		l, buf := newBufferLogger(t, "INFO", "text")

		l.Debug("debug message")
		l.Info("info message")

		assert.NotContains(t, buf.String(), "debug message")
		assert.Contains(t, buf.String(), "info message")
	})

	t.Run("SetLevelTakesEffectImmediately", func(t *testing.T) {
		l, buf := newBufferLogger(t, "ERROR", "text")

		l.Warn("hidden")
		l.SetLevel("WARN")
		l.Warn("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
		assert.Equal(t, slog.LevelWarn, l.Level())
	})

	t.Run("SetLevelIgnoresInvalid", func(t *testing.T) {
		l, _ := newBufferLogger(t, "WARN", "text")
		l.SetLevel("LOUD")
		assert.Equal(t, slog.LevelWarn, l.Level())
	})
}

func TestNewWithWriterRejectsInvalidConfig(t *testing.T) {
	_, err := NewWithWriter(new(bytes.Buffer), "LOUD", "text", false)
	assert.Error(t, err)

	_, err = NewWithWriter(new(bytes.Buffer), "INFO", "xml", false)
	assert.Error(t, err)
}

func TestTextFormat(t *testing.T) {
	l, buf := newBufferLogger(t, "INFO", "text")

	l.With("server", "srvd").WithGroup("admin").Info("listening", "addr", ":9990", "note", "two words")

	line := buf.String()
	assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3}\] \[INFO\] listening`, line)
	assert.Contains(t, line, "server=srvd")
	assert.Contains(t, line, "admin.addr=:9990")
	assert.Contains(t, line, `admin.note="two words"`)
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestJSONFormat(t *testing.T) {
	l, buf := newBufferLogger(t, "INFO", "json")

	l.Info("phase finished", KeyPhase, "main", KeyDurationMs, 1.5)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "phase finished", entry["msg"])
	assert.Equal(t, "main", entry[KeyPhase])
	assert.Equal(t, 1.5, entry[KeyDurationMs])
}

func TestContextFields(t *testing.T) {
	l, buf := newBufferLogger(t, "DEBUG", "text")

	ctx := WithContext(context.Background(), NewLogContext("pre_main").WithTrace("abc", "def"))
	InfoCtx(ctx, l.Logger, "hook started", "extra", 1)

	out := buf.String()
	assert.Contains(t, out, "trace_id=abc")
	assert.Contains(t, out, "span_id=def")
	assert.Contains(t, out, "phase=pre_main")
	assert.Contains(t, out, "extra=1")
	assert.Less(t, strings.Index(out, "trace_id"), strings.Index(out, "extra"))
}

func TestContextFieldsWithoutLogContext(t *testing.T) {
	l, buf := newBufferLogger(t, "DEBUG", "text")
	WarnCtx(context.Background(), l.Logger, "plain")
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestLogContextClone(t *testing.T) {
	var nilCtx *LogContext
	assert.Nil(t, nilCtx.Clone())
	assert.Zero(t, nilCtx.DurationMs())

	lc := NewLogContext("init")
	withReq := lc.WithRequestID("r-1")
	assert.Empty(t, lc.RequestID)
	assert.Equal(t, "r-1", withReq.RequestID)
	assert.Equal(t, "init", withReq.Phase)
}

func TestErrAttr(t *testing.T) {
	assert.True(t, Err(nil).Equal(slog.Attr{}))
	assert.Equal(t, assert.AnError.Error(), Err(assert.AnError).Value.String())
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "srvd.log")

	l, err := New(Config{Level: "INFO", Format: "text", Output: path})
	require.NoError(t, err)
	l.Info("to file")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
	assert.NotContains(t, string(data), colorReset)
}

func TestConcurrentWrites(t *testing.T) {
	l, buf := newBufferLogger(t, "INFO", "text")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Info("line", "n", j)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, strings.Count(buf.String(), "\n"))
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("nothing")
	assert.NoError(t, l.Close())
}

func TestReconfigureSwapsDerivedLoggers(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")

	l, err := New(Config{Level: "INFO", Format: "text", Output: first})
	require.NoError(t, err)
	derived := l.With(KeyServer, "srvd")
	derived.Info("before")

	require.NoError(t, l.Reconfigure(Config{Level: "DEBUG", Format: "json", Output: second}))
	derived.Debug("after")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Contains(t, string(data), "before")
	assert.NotContains(t, string(data), "after")

	data, err = os.ReadFile(second)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "after", rec["msg"])
	assert.Equal(t, "srvd", rec[KeyServer])
	assert.Equal(t, slog.LevelDebug, l.Level())
}

func TestReconfigureKeepsOldOnError(t *testing.T) {
	l, buf := newBufferLogger(t, "INFO", "text")
	assert.Error(t, l.Reconfigure(Config{Level: "LOUD", Format: "text", Output: "stderr"}))
	assert.Error(t, l.Reconfigure(Config{Level: "INFO", Format: "xml", Output: "stderr"}))
	l.Info("still here")
	assert.Contains(t, buf.String(), "still here")
}
