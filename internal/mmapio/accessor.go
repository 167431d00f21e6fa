// Package mmapio implements the worker-pool-backed MMAP accessor: requests
// are serviced by a fixed-size pool of goroutines that mmap the affected
// file region, copy data across, and munmap (msync for writes) on
// completion, grounded on the original MMAP accessor's thread-pool design.
package mmapio

import (
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/lliu-dev/asyncfile/internal/afError"
	"github.com/lliu-dev/asyncfile/internal/constants"
	"github.com/lliu-dev/asyncfile/internal/logging"
	"github.com/lliu-dev/asyncfile/internal/queue"
	"github.com/lliu-dev/asyncfile/internal/request"
)

// Accessor services read and write requests by mmap'ing the requested file
// region on a worker pool, rather than driving kernel AIO completions.
type Accessor struct {
	pool   *queue.Pool
	log    *logging.Logger
	mu     sync.Mutex
	reqs   []*request.Request
	closed bool
}

// Config configures a new Accessor.
type Config struct {
	WorkerPoolSize int
	Logger         *logging.Logger
}

// New creates a running MMAP accessor with its worker pool started.
func New(cfg Config) *Accessor {
	log := cfg.Logger
	if log == nil {
		log = logging.Default()
	}
	return &Accessor{
		pool: queue.NewPool(cfg.WorkerPoolSize),
		log:  log,
	}
}

// GetRequest opens the backing file and creates a request in the INIT state.
// Writes open with O_TRUNC, matching the canonical behavior of the accessor
// this package was modeled on: any previous contents at the target path are
// dropped, and the file is then sized to Offset+Size so the region
// AllocWriteBuf maps lies entirely inside it.
func (a *Accessor) GetRequest(info request.Info) (*request.Request, error) {
	if info.Size == 0 {
		return nil, afError.NewPath("GetRequest", info.Path, afError.CodeBadValue, "size must be > 0")
	}
	if len(info.Path) > constants.MaxFileNameLen {
		return nil, afError.NewPath("GetRequest", info.Path, afError.CodeBadValue, "path exceeds maximum length")
	}

	var flags int
	if info.Direction == request.DirectionWrite {
		flags = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	} else {
		flags = os.O_RDONLY
	}

	var (
		f   *os.File
		err error
	)
	for attempt := 0; attempt <= constants.RetryTimes; attempt++ {
		f, err = os.OpenFile(info.Path, flags, 0o644)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, afError.WrapPath("GetRequest", info.Path, err)
	}

	if info.Direction == request.DirectionWrite {
		if err := f.Truncate(int64(info.Offset) + int64(info.Size)); err != nil {
			f.Close()
			return nil, afError.WrapPath("GetRequest", info.Path, err)
		}
	}

	if _, err := f.Seek(int64(info.Offset), 0); err != nil {
		f.Close()
		return nil, afError.WrapPath("GetRequest", info.Path, err)
	}

	req := request.New(info)
	req.File = f
	req.Valid = true

	a.mu.Lock()
	a.reqs = append(a.reqs, req)
	a.mu.Unlock()

	return req, nil
}

// AllocWriteBuf mmaps the target file region MAP_SHARED so writes into the
// returned slice are committed to the file on msync.
func (a *Accessor) AllocWriteBuf(req *request.Request) ([]byte, error) {
	if req.Info.Direction != request.DirectionWrite {
		return nil, afError.NewPath("AllocWriteBuf", req.Info.Path, afError.CodeInvalidOperation, "request is not a write")
	}
	if req.Info.Size == 0 {
		return nil, afError.NewPath("AllocWriteBuf", req.Info.Path, afError.CodeBadValue, "size must be > 0")
	}

	var (
		buf []byte
		err error
	)
	for attempt := 0; attempt <= constants.RetryTimes; attempt++ {
		buf, err = unix.Mmap(int(req.File.Fd()), int64(req.Info.Offset), int(req.Info.Size),
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, afError.WrapPath("AllocWriteBuf", req.Info.Path, err)
	}

	req.Buf = buf
	req.Alloced = true
	return buf, nil
}

// ImportReadBuf registers the caller-owned destination buffer a read
// completion will be copied into. The accessor never takes ownership of it.
func (a *Accessor) ImportReadBuf(req *request.Request, buf []byte) error {
	if req.Info.Direction != request.DirectionRead {
		return afError.NewPath("ImportReadBuf", req.Info.Path, afError.CodeInvalidOperation, "request is not a read")
	}
	if buf == nil {
		return afError.NewPath("ImportReadBuf", req.Info.Path, afError.CodeBadValue, "buffer must not be nil")
	}
	req.Buf = buf
	req.Alloced = false
	return nil
}

// PutRequest submits the request to the worker pool. On submission failure
// (pool shutting down) any allocated write mapping is discarded and the
// request moves straight to CANCELLED.
func (a *Accessor) PutRequest(req *request.Request) error {
	var task func()
	if req.Info.Direction == request.DirectionWrite {
		task = func() { a.mmapWrite(req) }
	} else {
		task = func() { a.mmapRead(req) }
	}

	if !req.MarkSubmitted() {
		return afError.NewPath("PutRequest", req.Info.Path, afError.CodeInvalidOperation, "request already submitted")
	}

	if !a.pool.Submit(task) {
		if req.Alloced && req.Buf != nil {
			unix.Munmap(req.Buf)
		}
		req.Cancel()
		return afError.NewPath("PutRequest", req.Info.Path, afError.CodeAlreadyExists, "worker pool is closing, task rejected")
	}
	return nil
}

// mmapRead maps the file region PROT_READ/MAP_PRIVATE, copies it into the
// caller's buffer, and always unmaps before returning regardless of outcome.
func (a *Accessor) mmapRead(req *request.Request) {
	if req.Status() == request.StatusCancelled {
		return
	}

	var (
		mapped []byte
		err    error
	)
	for attempt := 0; attempt <= constants.RetryTimes; attempt++ {
		mapped, err = unix.Mmap(int(req.File.Fd()), int64(req.Info.Offset), int(req.Info.Size),
			unix.PROT_READ, unix.MAP_PRIVATE)
		if err == nil {
			break
		}
	}
	if err != nil {
		req.Complete(false, afError.WrapPath("mmapRead", req.Info.Path, err))
		return
	}
	defer unix.Munmap(mapped)

	copy(req.Buf, mapped)
	req.Complete(true, nil)
}

// mmapWrite commits a previously-allocated write mapping via msync. If the
// request was cancelled before this ran, the mapping is unmapped without an
// msync and the request stays CANCELLED. Bytes the caller already stored
// through the MAP_SHARED mapping are not rolled back by this: they remain in
// the page cache and can still reach the file through normal writeback.
func (a *Accessor) mmapWrite(req *request.Request) {
	if req.Status() == request.StatusCancelled {
		if req.Buf != nil {
			unix.Munmap(req.Buf)
		}
		return
	}

	defer func() {
		if req.Buf != nil {
			unix.Munmap(req.Buf)
		}
	}()

	if err := unix.Msync(req.Buf, unix.MS_SYNC); err != nil {
		req.Complete(false, afError.WrapPath("mmapWrite", req.Info.Path, err))
		return
	}
	req.Complete(true, nil)
}

// WaitRequest blocks until req leaves SUBMITTED, or until timeoutMs elapses
// (0 waits indefinitely), in which case the request is force-cancelled.
func (a *Accessor) WaitRequest(req *request.Request, timeoutMs uint32) error {
	switch req.Status() {
	case request.StatusInit:
		return afError.NewPath("WaitRequest", req.Info.Path, afError.CodeInvalidOperation, "request was never submitted")
	case request.StatusSuccess, request.StatusCancelled:
		return nil
	case request.StatusFail:
		return req.Err
	}

	status := req.WaitTimeout(msToDuration(timeoutMs))
	if status == request.StatusFail {
		return req.Err
	}
	return nil
}

// CancelRequest cancels a submitted request. Cancelling a request that
// already reached a terminal state is a harmless no-op, logged at debug
// level rather than surfaced as an error.
func (a *Accessor) CancelRequest(req *request.Request) error {
	if !req.Cancel() {
		a.log.Debugf("cancel requested for already-terminal request path=%s", req.Info.Path)
	}
	return nil
}

// WaitAll waits for every currently registered request to leave SUBMITTED.
// Matching the original accessor, a timeout here is not supported: each
// request is waited on to completion in turn.
func (a *Accessor) WaitAll(timeoutMs uint32) error {
	if timeoutMs > 0 {
		a.log.Warn("WaitAll: per-call timeout is not supported, waiting indefinitely")
	}
	a.mu.Lock()
	reqs := make([]*request.Request, len(a.reqs))
	copy(reqs, a.reqs)
	a.mu.Unlock()

	for _, req := range reqs {
		if req.Status() == request.StatusSubmitted {
			req.Wait()
		}
	}
	return nil
}

// CancelAll cancels every currently registered, still-submitted request.
func (a *Accessor) CancelAll() error {
	a.mu.Lock()
	reqs := make([]*request.Request, len(a.reqs))
	copy(reqs, a.reqs)
	a.mu.Unlock()

	for _, req := range reqs {
		req.Cancel()
	}
	return nil
}

// ReleaseAll stops the worker pool and closes every tracked request's file
// handle. No new requests may be submitted afterward.
func (a *Accessor) ReleaseAll() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	reqs := make([]*request.Request, len(a.reqs))
	copy(reqs, a.reqs)
	a.reqs = nil
	a.mu.Unlock()

	a.pool.Shutdown()

	for _, req := range reqs {
		if !req.Status().Terminal() {
			req.Cancel()
		}
		if req.File != nil {
			req.File.Close()
		}
	}
	return nil
}

// Stats reports the worker pool's current occupancy.
func (a *Accessor) Stats() queue.Stats {
	return a.pool.Stats()
}

func msToDuration(ms uint32) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
