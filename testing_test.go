package asyncfile

import "testing"

func TestMockAccessorWriteThenRead(t *testing.T) {
	m := NewMockAccessor()

	wreq, err := m.GetRequest(RequestInfo{Direction: DirectionWrite, Path: "/mock/a.bin", Size: 5})
	if err != nil {
		t.Fatalf("GetRequest(write) failed: %v", err)
	}
	buf, err := m.AllocWriteBuf(wreq)
	if err != nil {
		t.Fatalf("AllocWriteBuf failed: %v", err)
	}
	copy(buf, "hello")
	if err := m.PutRequest(wreq); err != nil {
		t.Fatalf("PutRequest(write) failed: %v", err)
	}
	if err := m.WaitRequest(wreq, 0); err != nil {
		t.Fatalf("WaitRequest(write) failed: %v", err)
	}

	if string(m.Contents("/mock/a.bin")) != "hello" {
		t.Fatalf("expected mock file contents %q, got %q", "hello", m.Contents("/mock/a.bin"))
	}

	rreq, err := m.GetRequest(RequestInfo{Direction: DirectionRead, Path: "/mock/a.bin", Size: 5})
	if err != nil {
		t.Fatalf("GetRequest(read) failed: %v", err)
	}
	dst := make([]byte, 5)
	if err := m.ImportReadBuf(rreq, dst); err != nil {
		t.Fatalf("ImportReadBuf failed: %v", err)
	}
	if err := m.PutRequest(rreq); err != nil {
		t.Fatalf("PutRequest(read) failed: %v", err)
	}
	if err := m.WaitRequest(rreq, 0); err != nil {
		t.Fatalf("WaitRequest(read) failed: %v", err)
	}
	if string(dst) != "hello" {
		t.Fatalf("expected read %q, got %q", "hello", dst)
	}

	counts := m.CallCounts()
	if counts["get"] != 2 || counts["put"] != 2 || counts["wait"] != 2 {
		t.Fatalf("unexpected call counts: %+v", counts)
	}
}

func TestMockAccessorReadMissingFile(t *testing.T) {
	m := NewMockAccessor()
	if _, err := m.GetRequest(RequestInfo{Direction: DirectionRead, Path: "/mock/missing.bin", Size: 4}); err == nil {
		t.Fatal("expected an error reading an unseeded mock file")
	}
}

func TestMockAccessorSeed(t *testing.T) {
	m := NewMockAccessor()
	m.Seed("/mock/seeded.bin", []byte("seeded"))

	req, err := m.GetRequest(RequestInfo{Direction: DirectionRead, Path: "/mock/seeded.bin", Size: 6})
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	dst := make([]byte, 6)
	m.ImportReadBuf(req, dst)
	m.PutRequest(req)
	m.WaitRequest(req, 0)

	if string(dst) != "seeded" {
		t.Fatalf("expected %q, got %q", "seeded", dst)
	}
}

func TestMockAccessorReleaseAllRejectsNewWork(t *testing.T) {
	m := NewMockAccessor()
	m.ReleaseAll()

	if !m.IsClosed() {
		t.Fatal("expected IsClosed to report true after ReleaseAll")
	}
	if _, err := m.GetRequest(RequestInfo{Direction: DirectionWrite, Path: "/mock/late.bin", Size: 4}); err == nil {
		t.Fatal("expected GetRequest to fail after ReleaseAll")
	}
}

func TestMockAccessorReset(t *testing.T) {
	m := NewMockAccessor()
	m.Seed("/mock/r.bin", []byte("data"))
	req, _ := m.GetRequest(RequestInfo{Direction: DirectionRead, Path: "/mock/r.bin", Size: 4})
	m.ImportReadBuf(req, make([]byte, 4))
	m.PutRequest(req)
	m.WaitRequest(req, 0)

	m.Reset()
	counts := m.CallCounts()
	if counts["get"] != 0 || counts["put"] != 0 || counts["wait"] != 0 {
		t.Fatalf("expected all call counts reset to 0, got %+v", counts)
	}
}
