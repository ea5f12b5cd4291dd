package shutdown

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exitRecorder struct {
	code   atomic.Int32
	called chan struct{}
	once   sync.Once
}

func newExitRecorder() *exitRecorder {
	return &exitRecorder{called: make(chan struct{})}
}

func (e *exitRecorder) exit(code int) {
	e.code.Store(int32(code))
	e.once.Do(func() { close(e.called) })
}

func TestRequestShutdownOnlyOnce(t *testing.T) {
	c := New(Config{GracePeriod: time.Minute, Exit: func(int) {}}, nil)

	const k = 64
	var (
		wg       sync.WaitGroup
		effected atomic.Int32
		cancels  atomic.Int32
	)
	c.OnShutdown(func() { cancels.Add(1) })

	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.RequestShutdown(SourceExplicit, "test") {
				effected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), effected.Load())
	assert.Equal(t, int32(1), cancels.Load())
	assert.True(t, c.Requested())

	select {
	case <-c.Done():
	default:
		t.Fatal("Done not closed")
	}

	req, ok := c.Request()
	require.True(t, ok)
	assert.Equal(t, SourceExplicit, req.Source)
	c.Complete()
}

func TestOnShutdownAfterRequestRunsImmediately(t *testing.T) {
	c := New(Config{GracePeriod: time.Minute, Exit: func(int) {}}, nil)
	c.RequestShutdown(SourceAdmin, "quit")
	defer c.Complete()

	ran := false
	c.OnShutdown(func() { ran = true })
	assert.True(t, ran)
}

func TestGraceTimerForcesExit(t *testing.T) {
	rec := newExitRecorder()
	var timeoutErr atomic.Pointer[TimeoutError]

	c := New(Config{
		GracePeriod: 20 * time.Millisecond,
		Exit:        rec.exit,
		OnTimeout:   func(err *TimeoutError) { timeoutErr.Store(err) },
	}, nil)

	c.RequestShutdown(SourceSignal, "interrupt")

	select {
	case <-rec.called:
	case <-time.After(2 * time.Second):
		t.Fatal("exit not called after grace period")
	}
	assert.Equal(t, int32(ExitCodeForced), rec.code.Load())

	err := timeoutErr.Load()
	require.NotNil(t, err)
	assert.Equal(t, SourceSignal, err.Request.Source)
	assert.Contains(t, err.Error(), "grace period")
}

func TestCompleteDisarmsTimer(t *testing.T) {
	rec := newExitRecorder()
	c := New(Config{GracePeriod: 30 * time.Millisecond, Exit: rec.exit}, nil)

	c.RequestShutdown(SourceLifecycle, "exit phase")
	c.Complete()
	c.Complete()

	select {
	case <-rec.called:
		t.Fatal("exit called after Complete")
	case <-time.After(100 * time.Millisecond):
	}

	select {
	case <-c.Completed():
	default:
		t.Fatal("Completed not closed")
	}
}

func TestRequestBeforeAnyCall(t *testing.T) {
	c := New(Config{}, nil)
	_, ok := c.Request()
	assert.False(t, ok)
	assert.Equal(t, DefaultGracePeriod, c.GracePeriod())
}

func TestSetGracePeriodAppliesToLaterRequest(t *testing.T) {
	rec := newExitRecorder()
	c := New(Config{GracePeriod: time.Hour, Exit: rec.exit}, nil)
	c.SetGracePeriod(10 * time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, c.GracePeriod())

	c.RequestShutdown(SourceExplicit, "test")
	select {
	case <-rec.called:
		assert.Equal(t, int32(ExitCodeForced), rec.code.Load())
	case <-time.After(time.Second):
		t.Fatal("grace timer did not fire")
	}

	c.SetGracePeriod(0)
	assert.Equal(t, DefaultGracePeriod, c.GracePeriod())
}
