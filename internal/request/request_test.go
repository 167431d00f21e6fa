package request

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleHappyPath(t *testing.T) {
	r := New(Info{Direction: DirectionRead, Path: "/tmp/a", Size: 4096})
	require.Equal(t, StatusInit, r.Status(), "new request should start in INIT")

	require.True(t, r.MarkSubmitted(), "MarkSubmitted should succeed from INIT")
	require.Equal(t, StatusSubmitted, r.Status())

	assert.False(t, r.MarkSubmitted(), "MarkSubmitted should fail when already submitted")

	go func() {
		r.Complete(true, nil)
	}()

	assert.Equal(t, StatusSuccess, r.Wait())
}

func TestCompleteFailure(t *testing.T) {
	r := New(Info{Direction: DirectionWrite})
	r.MarkSubmitted()

	wantErr := errors.New("short write")
	r.Complete(false, wantErr)

	assert.Equal(t, StatusFail, r.Status())
	assert.Equal(t, wantErr, r.Err)
}

func TestCancelBeforeCompletion(t *testing.T) {
	r := New(Info{})
	r.MarkSubmitted()

	require.True(t, r.Cancel(), "Cancel should succeed on a submitted request")
	require.Equal(t, StatusCancelled, r.Status())

	// A completion racing after cancellation must not override it.
	got := r.Complete(true, nil)
	assert.Equalf(t, StatusCancelled, got, "completion after cancel should not override terminal state")
}

func TestCancelAfterTerminalIsNoop(t *testing.T) {
	r := New(Info{})
	r.MarkSubmitted()
	r.Complete(true, nil)

	assert.False(t, r.Cancel(), "Cancel on an already-terminal request should report no-op (false)")
	assert.Equal(t, StatusSuccess, r.Status())
}

func TestWaitable(t *testing.T) {
	r := New(Info{})
	assert.False(t, r.Waitable(), "a fresh request in INIT should not be waitable")

	r.MarkSubmitted()
	assert.True(t, r.Waitable(), "a submitted request should be waitable")

	r.Complete(true, nil)
	assert.False(t, r.Waitable(), "a completed request should no longer be waitable")
}

func TestWaitTimeoutExpires(t *testing.T) {
	r := New(Info{})
	r.MarkSubmitted()

	start := time.Now()
	status := r.WaitTimeout(20 * time.Millisecond)
	elapsed := time.Since(start)

	require.Equal(t, StatusCancelled, status, "expected CANCELLED after timeout")
	assert.Lessf(t, elapsed, 500*time.Millisecond, "WaitTimeout took too long: %v", elapsed)
}

func TestWaitTimeoutCompletesBeforeDeadline(t *testing.T) {
	r := New(Info{})
	r.MarkSubmitted()

	go func() {
		time.Sleep(5 * time.Millisecond)
		r.Complete(true, nil)
	}()

	status := r.WaitTimeout(time.Second)
	assert.Equal(t, StatusSuccess, status)
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "READ", DirectionRead.String())
	assert.Equal(t, "WRITE", DirectionWrite.String())
}
