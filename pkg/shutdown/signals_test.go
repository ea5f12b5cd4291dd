//go:build unix

package shutdown

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchSignals(t *testing.T) {
	rec := newExitRecorder()
	c := New(Config{GracePeriod: time.Minute, Exit: rec.exit}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.WatchSignals(ctx, syscall.SIGUSR1)

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("signal did not request shutdown")
	}
	req, _ := c.Request()
	assert.Equal(t, SourceSignal, req.Source)

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))
	select {
	case <-rec.called:
	case <-time.After(2 * time.Second):
		t.Fatal("second signal did not force exit")
	}
	assert.Equal(t, int32(ExitCodeForced), rec.code.Load())
	c.Complete()
}
