// Package aio implements the completion-driven backend: requests are
// submitted to a Linux io_uring instance and serviced by a poller goroutine
// that drains completions and resolves the matching request, standing in
// for the SIGEV_THREAD callback the accessor was originally modeled on.
package aio

import "context"

// Opcode identifies the io_uring operation a submission carries.
type Opcode int

const (
	OpRead Opcode = iota
	OpWrite
	OpFsync
)

// Submission describes one pending io_uring operation.
type Submission struct {
	Op     Opcode
	FD     int
	Buf    []byte
	Offset int64
	// UserData correlates a completion back to the request that submitted
	// it; callers typically pass a small integer tag.
	UserData uint64
}

// Completion is a resolved io_uring operation.
type Completion struct {
	UserData uint64
	// Res mirrors the CQE res field: a non-negative byte count on success,
	// a negative errno on failure.
	Res int32
}

// Ring is the minimal io_uring surface the AIO backend needs: submit reads,
// writes and fsyncs, and retrieve completions as they arrive. Two
// implementations exist: a hand-rolled raw-syscall ring that is always
// built, and an optional one backed by a real liburing binding.
type Ring interface {
	// Submit enqueues s on the submission queue and makes it visible to the
	// kernel. It does not wait for completion.
	Submit(s Submission) error

	// WaitCompletion blocks until at least one completion is available and
	// returns the completions observed. ctx is checked only once the wait
	// returns: if it has been cancelled by then, ctx's error is returned
	// instead. Cancelling ctx does not by itself wake a blocked wait.
	WaitCompletion(ctx context.Context) ([]Completion, error)

	// Close tears down the ring and any mapped memory.
	Close() error
}

// Config configures a new Ring.
type Config struct {
	// Entries is the submission/completion queue depth.
	Entries uint32
}
