// Package asyncfile provides a single asynchronous file-access contract
// backed by two interchangeable implementations: a kernel-AIO backend
// (io_uring completions) and an MMAP backend (worker-pool driven mmap/msync).
// Callers pick a Kind at construction time; everything past GetInstance goes
// through the same Accessor interface regardless of which backend services it.
package asyncfile

import (
	"fmt"
	"sync"

	"github.com/lliu-dev/asyncfile/internal/aio"
	"github.com/lliu-dev/asyncfile/internal/logging"
	"github.com/lliu-dev/asyncfile/internal/mmapio"
	"github.com/lliu-dev/asyncfile/internal/queue"
	"github.com/lliu-dev/asyncfile/internal/request"
)

// PoolStats is a point-in-time snapshot of an accessor's concurrency
// occupancy: how many workers (MMAP) or completion pollers (AIO) it runs,
// how many are currently busy, and whether it is still accepting work.
type PoolStats = queue.Stats

// Direction is the direction of a file access.
type Direction = request.Direction

const (
	DirectionRead  = request.DirectionRead
	DirectionWrite = request.DirectionWrite
)

// Status is a request's position in its lifecycle state machine.
type Status = request.Status

const (
	StatusInit      = request.StatusInit
	StatusSubmitted = request.StatusSubmitted
	StatusSuccess   = request.StatusSuccess
	StatusFail      = request.StatusFail
	StatusCancelled = request.StatusCancelled
)

// RequestInfo describes the parameters a request was created with.
type RequestInfo = request.Info

// Request is a single in-flight asynchronous file access.
type Request = request.Request

// Kind selects which backend implementation services an Accessor.
type Kind int

const (
	// KindAIO drives requests to completion via io_uring.
	KindAIO Kind = iota
	// KindMMAP services requests on a worker pool using mmap/msync.
	KindMMAP
)

func (k Kind) String() string {
	switch k {
	case KindAIO:
		return "aio"
	case KindMMAP:
		return "mmap"
	default:
		return "unknown"
	}
}

// Config configures an Accessor regardless of which Kind it backs.
type Config struct {
	// WorkerPoolSize is the MMAP backend's fixed worker count. Zero selects
	// DefaultWorkerPoolSize.
	WorkerPoolSize int

	// QueueDepth is the AIO backend's io_uring submission queue depth. Zero
	// selects DefaultQueueDepth.
	QueueDepth uint32

	// UseRealRing selects the giouring-backed AIO ring (only linked in when
	// built with -tags giouring) instead of the always-available hand-rolled
	// syscall client.
	UseRealRing bool

	Logger *logging.Logger
}

// DefaultConfig returns a Config with every field at its backend's default.
func DefaultConfig() Config {
	return Config{
		WorkerPoolSize: DefaultWorkerPoolSize,
		QueueDepth:     DefaultQueueDepth,
	}
}

// Accessor is the capability set both backends implement: open a request,
// attach its buffer, submit it, wait on or cancel it individually or in
// bulk, and release the accessor's resources.
type Accessor interface {
	// GetRequest opens the backing file for info.Path and returns a request
	// in the INIT state.
	GetRequest(info RequestInfo) (*Request, error)

	// AllocWriteBuf allocates a buffer of req.Info.Size owned by the
	// accessor for a write request.
	AllocWriteBuf(req *Request) ([]byte, error)

	// ImportReadBuf attaches a caller-owned destination buffer to a read
	// request.
	ImportReadBuf(req *Request, buf []byte) error

	// PutRequest submits req for asynchronous processing, transitioning it
	// INIT -> SUBMITTED.
	PutRequest(req *Request) error

	// WaitRequest blocks until req leaves SUBMITTED, or until timeoutMs
	// elapses (0 waits indefinitely), at which point req is cancelled.
	WaitRequest(req *Request, timeoutMs uint32) error

	// CancelRequest cancels a submitted request.
	CancelRequest(req *Request) error

	// WaitAll waits for every request registered against this accessor to
	// leave SUBMITTED.
	WaitAll(timeoutMs uint32) error

	// CancelAll cancels every still-submitted request registered against
	// this accessor.
	CancelAll() error

	// ReleaseAll stops background processing and releases every resource
	// (worker pool, io_uring instance, open file descriptors) owned by the
	// accessor. It is safe to call more than once.
	ReleaseAll() error

	// Stats reports the accessor's current concurrency occupancy.
	Stats() PoolStats
}

var (
	instances   = map[Kind]Accessor{}
	instancesMu sync.Mutex
)

// GetInstance returns the process-wide Accessor for kind, constructing it
// with cfg on first use. Subsequent calls for the same kind ignore cfg and
// return the already-constructed instance, mirroring a lazily initialized
// singleton per backend.
func GetInstance(kind Kind, cfg Config) (Accessor, error) {
	instancesMu.Lock()
	defer instancesMu.Unlock()

	if a, ok := instances[kind]; ok {
		return a, nil
	}

	a, err := newAccessor(kind, cfg)
	if err != nil {
		return nil, err
	}
	instances[kind] = a
	return a, nil
}

// NewAccessor constructs a fresh, independent Accessor of the given kind,
// bypassing the GetInstance singleton. Most callers want GetInstance; this
// is for tests and for callers that need more than one live accessor of the
// same kind.
func NewAccessor(kind Kind, cfg Config) (Accessor, error) {
	return newAccessor(kind, cfg)
}

func newAccessor(kind Kind, cfg Config) (Accessor, error) {
	switch kind {
	case KindMMAP:
		return mmapio.New(mmapio.Config{
			WorkerPoolSize: cfg.WorkerPoolSize,
			Logger:         cfg.Logger,
		}), nil
	case KindAIO:
		a, err := aio.New(aio.Config{
			QueueDepth: cfg.QueueDepth,
			UseReal:    cfg.UseRealRing,
			Logger:     cfg.Logger,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("asyncfile: unknown accessor kind %v", kind)
	}
}

var (
	_ Accessor = (*mmapio.Accessor)(nil)
	_ Accessor = (*aio.Accessor)(nil)
)
