package asyncfile

import (
	"path/filepath"
	"testing"
)

func TestMMAPAccessorRoundTrip(t *testing.T) {
	a, err := NewAccessor(KindMMAP, Config{WorkerPoolSize: 2})
	if err != nil {
		t.Fatalf("NewAccessor failed: %v", err)
	}
	defer a.ReleaseAll()

	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	payload := []byte("round trip through the public Accessor interface")

	wreq, err := a.GetRequest(RequestInfo{Direction: DirectionWrite, Path: path, Size: uint32(len(payload))})
	if err != nil {
		t.Fatalf("GetRequest(write) failed: %v", err)
	}
	buf, err := a.AllocWriteBuf(wreq)
	if err != nil {
		t.Fatalf("AllocWriteBuf failed: %v", err)
	}
	copy(buf, payload)
	if err := a.PutRequest(wreq); err != nil {
		t.Fatalf("PutRequest(write) failed: %v", err)
	}
	if err := a.WaitRequest(wreq, 0); err != nil {
		t.Fatalf("WaitRequest(write) failed: %v", err)
	}

	rreq, err := a.GetRequest(RequestInfo{Direction: DirectionRead, Path: path, Size: uint32(len(payload))})
	if err != nil {
		t.Fatalf("GetRequest(read) failed: %v", err)
	}
	dst := make([]byte, len(payload))
	if err := a.ImportReadBuf(rreq, dst); err != nil {
		t.Fatalf("ImportReadBuf failed: %v", err)
	}
	if err := a.PutRequest(rreq); err != nil {
		t.Fatalf("PutRequest(read) failed: %v", err)
	}
	if err := a.WaitRequest(rreq, 0); err != nil {
		t.Fatalf("WaitRequest(read) failed: %v", err)
	}
	if string(dst) != string(payload) {
		t.Fatalf("expected %q, got %q", payload, dst)
	}
}

func TestGetInstanceReturnsSameAccessorPerKind(t *testing.T) {
	instancesMu.Lock()
	delete(instances, KindMMAP)
	instancesMu.Unlock()

	a1, err := GetInstance(KindMMAP, Config{WorkerPoolSize: 1})
	if err != nil {
		t.Fatalf("GetInstance failed: %v", err)
	}
	a2, err := GetInstance(KindMMAP, Config{WorkerPoolSize: 4})
	if err != nil {
		t.Fatalf("GetInstance failed: %v", err)
	}
	if a1 != a2 {
		t.Fatal("expected GetInstance to return the same accessor for repeated calls with the same Kind")
	}

	instancesMu.Lock()
	delete(instances, KindMMAP)
	instancesMu.Unlock()
	a1.ReleaseAll()
}

func TestNewAccessorUnknownKind(t *testing.T) {
	if _, err := NewAccessor(Kind(99), Config{}); err == nil {
		t.Fatal("expected an error for an unknown accessor kind")
	}
}

func TestMMAPAccessorStats(t *testing.T) {
	a, err := NewAccessor(KindMMAP, Config{WorkerPoolSize: 3})
	if err != nil {
		t.Fatalf("NewAccessor failed: %v", err)
	}
	defer a.ReleaseAll()

	stats := a.Stats()
	if stats.Alive != 3 {
		t.Errorf("expected Alive 3, got %d", stats.Alive)
	}
	if !stats.Running {
		t.Error("expected Running true before ReleaseAll")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.WorkerPoolSize != DefaultWorkerPoolSize {
		t.Errorf("expected WorkerPoolSize %d, got %d", DefaultWorkerPoolSize, cfg.WorkerPoolSize)
	}
	if cfg.QueueDepth != DefaultQueueDepth {
		t.Errorf("expected QueueDepth %d, got %d", DefaultQueueDepth, cfg.QueueDepth)
	}
}
