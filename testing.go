package asyncfile

import (
	"sync"

	"github.com/lliu-dev/asyncfile/internal/afError"
	"github.com/lliu-dev/asyncfile/internal/queue"
	"github.com/lliu-dev/asyncfile/internal/request"
)

// MockAccessor provides an in-memory implementation of Accessor for testing.
// Requests complete synchronously against an in-memory file table rather
// than touching a worker pool or io_uring, and the mock tracks method call
// counts for verification, useful for unit-testing code that depends on
// Accessor without exercising a real MMAP or AIO backend.
type MockAccessor struct {
	mu     sync.Mutex
	files  map[string][]byte
	reqs   []*Request
	closed bool

	getCalls    int
	putCalls    int
	waitCalls   int
	cancelCalls int
}

// NewMockAccessor creates a new mock accessor backed by an in-memory file
// table.
func NewMockAccessor() *MockAccessor {
	return &MockAccessor{
		files: make(map[string][]byte),
	}
}

// GetRequest implements Accessor. Reads require the path to already exist in
// the mock's file table (seed it with Seed); writes create an entry lazily.
func (m *MockAccessor) GetRequest(info RequestInfo) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getCalls++

	if info.Size == 0 {
		return nil, afError.NewPath("GetRequest", info.Path, afError.CodeBadValue, "size must be > 0")
	}
	if m.closed {
		return nil, afError.NewPath("GetRequest", info.Path, afError.CodeAlreadyExists, "accessor is closed")
	}

	if info.Direction == DirectionWrite {
		m.files[info.Path] = make([]byte, info.Size)
	} else if _, ok := m.files[info.Path]; !ok {
		return nil, afError.NewPath("GetRequest", info.Path, afError.CodeNotFound, "no such mock file")
	}

	req := request.New(info)
	m.reqs = append(m.reqs, req)
	return req, nil
}

// AllocWriteBuf implements Accessor.
func (m *MockAccessor) AllocWriteBuf(req *Request) ([]byte, error) {
	if req.Info.Direction != DirectionWrite {
		return nil, afError.NewPath("AllocWriteBuf", req.Info.Path, afError.CodeInvalidOperation, "request is not a write")
	}
	req.Buf = make([]byte, req.Info.Size)
	req.Alloced = true
	return req.Buf, nil
}

// ImportReadBuf implements Accessor.
func (m *MockAccessor) ImportReadBuf(req *Request, buf []byte) error {
	if req.Info.Direction != DirectionRead {
		return afError.NewPath("ImportReadBuf", req.Info.Path, afError.CodeInvalidOperation, "request is not a read")
	}
	req.Buf = buf
	return nil
}

// PutRequest implements Accessor, completing the request synchronously
// in-place against the mock's in-memory file table rather than handing it
// off to a worker pool or io_uring.
func (m *MockAccessor) PutRequest(req *Request) error {
	if !req.MarkSubmitted() {
		return afError.NewPath("PutRequest", req.Info.Path, afError.CodeInvalidOperation, "request already submitted")
	}

	m.mu.Lock()
	m.putCalls++
	closed := m.closed
	data := m.files[req.Info.Path]
	m.mu.Unlock()

	if closed {
		req.Cancel()
		return afError.NewPath("PutRequest", req.Info.Path, afError.CodeAlreadyExists, "accessor is closed, request rejected")
	}

	if req.Info.Direction == DirectionWrite {
		copy(data, req.Buf)
	} else {
		copy(req.Buf, data)
	}
	req.Complete(true, nil)
	return nil
}

// WaitRequest implements Accessor. Since PutRequest completes synchronously,
// this only reports the already-settled status.
func (m *MockAccessor) WaitRequest(req *Request, timeoutMs uint32) error {
	m.mu.Lock()
	m.waitCalls++
	m.mu.Unlock()

	status := req.Wait()
	if status == StatusFail {
		return req.Err
	}
	return nil
}

// CancelRequest implements Accessor.
func (m *MockAccessor) CancelRequest(req *Request) error {
	m.mu.Lock()
	m.cancelCalls++
	m.mu.Unlock()
	req.Cancel()
	return nil
}

// WaitAll implements Accessor.
func (m *MockAccessor) WaitAll(timeoutMs uint32) error {
	m.mu.Lock()
	reqs := make([]*Request, len(m.reqs))
	copy(reqs, m.reqs)
	m.mu.Unlock()

	for _, req := range reqs {
		if req.Status() == StatusSubmitted {
			req.Wait()
		}
	}
	return nil
}

// CancelAll implements Accessor.
func (m *MockAccessor) CancelAll() error {
	m.mu.Lock()
	reqs := make([]*Request, len(m.reqs))
	copy(reqs, m.reqs)
	m.mu.Unlock()

	for _, req := range reqs {
		req.Cancel()
	}
	return nil
}

// ReleaseAll implements Accessor.
func (m *MockAccessor) ReleaseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.files = nil
	return nil
}

// Stats implements Accessor. The mock completes requests synchronously on
// the caller's goroutine, so it reports a single always-idle worker.
func (m *MockAccessor) Stats() queue.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return queue.Stats{Alive: 1, Busy: 0, Idle: 1, Running: !m.closed}
}

// Testing utility methods

// Seed preloads the mock's in-memory file table so a subsequent read
// request can find data at path.
func (m *MockAccessor) Seed(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.files[path] = buf
}

// Contents returns a copy of the in-memory bytes stored at path.
func (m *MockAccessor) Contents(path string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

// IsClosed returns true if ReleaseAll has been called.
func (m *MockAccessor) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// CallCounts returns the number of times each Accessor method has been
// called.
func (m *MockAccessor) CallCounts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]int{
		"get":    m.getCalls,
		"put":    m.putCalls,
		"wait":   m.waitCalls,
		"cancel": m.cancelCalls,
	}
}

// Reset clears all call counters.
func (m *MockAccessor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls = 0
	m.putCalls = 0
	m.waitCalls = 0
	m.cancelCalls = 0
}

// Compile-time interface check
var _ Accessor = (*MockAccessor)(nil)
