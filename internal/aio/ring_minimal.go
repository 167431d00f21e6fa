package aio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/lliu-dev/asyncfile/internal/uring"
)

// Hand-rolled io_uring syscalls and standard opcodes. Unlike the URING_CMD
// opcode a block-device passthrough driver needs, plain READ/WRITE/FSYNC
// have been stable kernel ABI since io_uring's introduction, so their
// numeric values are hardcoded rather than detected at runtime.
const (
	sysIOURingSetup = 425
	sysIOURingEnter = 426

	ioringOpRead  = 22
	ioringOpWrite = 23
	ioringOpFsync = 3

	ioringEnterGetevents = 1 << 0

	ioringOffSQRing = 0
	ioringOffCQRing = 0x8000000
	ioringOffSQEs   = 0x10000000
)

type ioSqringOffsets struct {
	Head        uint32
	Tail        uint32
	RingMask    uint32
	RingEntries uint32
	Flags       uint32
	Dropped     uint32
	Array       uint32
	Resv1       uint32
	Resv2       uint64
}

type ioCqringOffsets struct {
	Head        uint32
	Tail        uint32
	RingMask    uint32
	RingEntries uint32
	Overflow    uint32
	Cqes        uint32
	Flags       uint32
	Resv1       uint32
	Resv2       uint64
}

type ioUringParams struct {
	SQEntries    uint32
	CQEntries    uint32
	Flags        uint32
	SQThreadCPU  uint32
	SQThreadIdle uint32
	Features     uint32
	WQFd         uint32
	Resv         [3]uint32
	SQOff        ioSqringOffsets
	CQOff        ioCqringOffsets
}

// sqe mirrors the 64-byte struct io_uring_sqe layout for the fields the AIO
// backend actually uses.
type sqe struct {
	Opcode   uint8
	Flags    uint8
	Ioprio   uint16
	FD       int32
	Off      uint64
	Addr     uint64
	Len      uint32
	RWFlags  uint32
	UserData uint64
	_        [24]byte // bufIndex/personality/spliceFdIn + padding
}

// cqe mirrors struct io_uring_cqe.
type cqe struct {
	UserData uint64
	Res      int32
	Flags    uint32
}

// minimalRing is a from-scratch io_uring client built directly on the two
// io_uring syscalls, with no dependency on a binding library. It mmaps the
// submission and completion ring buffers itself and manages the SQE array
// by hand, following the structure (if not the opcode set) of a ublk-style
// raw client.
type minimalRing struct {
	fd int

	sqMmap  []byte
	cqMmap  []byte
	sqesRaw []byte

	sqHead        *uint32
	sqTail        *uint32
	sqMask        uint32
	sqArray       []uint32
	sqes          []sqe
	sqTailCounter uint32

	cqHead *uint32
	cqTail *uint32
	cqMask uint32
	cqes   []cqe

	mu sync.Mutex
}

// NewMinimalRing sets up a new ring via io_uring_setup and mmaps its
// submission and completion queues.
func NewMinimalRing(cfg Config) (Ring, error) {
	entries := cfg.Entries
	if entries == 0 {
		entries = 128
	}

	var params ioUringParams
	fdPtr, _, errno := syscall.Syscall(sysIOURingSetup, uintptr(entries), uintptr(unsafe.Pointer(&params)), 0)
	if errno != 0 {
		return nil, fmt.Errorf("io_uring_setup: %w", errno)
	}
	fd := int(fdPtr)

	sqRingSize := int(params.SQOff.Array) + int(params.SQEntries)*4
	cqRingSize := int(params.CQOff.Cqes) + int(params.CQEntries)*int(unsafe.Sizeof(cqe{}))
	sqesSize := int(params.SQEntries) * int(unsafe.Sizeof(sqe{}))

	sqMmap, err := unix.Mmap(fd, ioringOffSQRing, sqRingSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("mmap SQ ring: %w", err)
	}

	cqMmap, err := unix.Mmap(fd, ioringOffCQRing, cqRingSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		unix.Munmap(sqMmap)
		syscall.Close(fd)
		return nil, fmt.Errorf("mmap CQ ring: %w", err)
	}

	sqesRaw, err := unix.Mmap(fd, ioringOffSQEs, sqesSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		unix.Munmap(sqMmap)
		unix.Munmap(cqMmap)
		syscall.Close(fd)
		return nil, fmt.Errorf("mmap SQEs: %w", err)
	}

	r := &minimalRing{
		fd:      fd,
		sqMmap:  sqMmap,
		cqMmap:  cqMmap,
		sqesRaw: sqesRaw,
		sqMask:  params.SQOff.RingMask,
		cqMask:  params.CQOff.RingMask,
	}
	r.sqHead = (*uint32)(unsafe.Pointer(&sqMmap[params.SQOff.Head]))
	r.sqTail = (*uint32)(unsafe.Pointer(&sqMmap[params.SQOff.Tail]))
	r.cqHead = (*uint32)(unsafe.Pointer(&cqMmap[params.CQOff.Head]))
	r.cqTail = (*uint32)(unsafe.Pointer(&cqMmap[params.CQOff.Tail]))
	r.sqTailCounter = atomic.LoadUint32(r.sqTail)

	sqArrayPtr := unsafe.Pointer(&sqMmap[params.SQOff.Array])
	r.sqArray = unsafe.Slice((*uint32)(sqArrayPtr), params.SQEntries)
	r.sqes = unsafe.Slice((*sqe)(unsafe.Pointer(&sqesRaw[0])), params.SQEntries)

	cqesPtr := unsafe.Pointer(&cqMmap[params.CQOff.Cqes])
	r.cqes = unsafe.Slice((*cqe)(cqesPtr), params.CQEntries)

	return r, nil
}

func (r *minimalRing) Submit(s Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.sqTailCounter & r.sqMask
	entry := &r.sqes[idx]
	*entry = sqe{}

	switch s.Op {
	case OpRead:
		entry.Opcode = ioringOpRead
	case OpWrite:
		entry.Opcode = ioringOpWrite
	case OpFsync:
		entry.Opcode = ioringOpFsync
	default:
		return fmt.Errorf("aio: unsupported opcode %d", s.Op)
	}
	entry.FD = int32(s.FD)
	entry.Off = uint64(s.Offset)
	entry.UserData = s.UserData
	if len(s.Buf) > 0 {
		entry.Addr = uint64(uintptr(unsafe.Pointer(&s.Buf[0])))
		entry.Len = uint32(len(s.Buf))
	}

	r.sqArray[idx] = idx
	r.sqTailCounter++

	// The SQE write above must be globally visible before the kernel can
	// observe the new tail.
	uring.Sfence()
	atomic.StoreUint32(r.sqTail, r.sqTailCounter)

	_, _, errno := syscall.Syscall6(sysIOURingEnter, uintptr(r.fd), 1, 0, 0, 0, 0)
	if errno != 0 {
		return fmt.Errorf("io_uring_enter(submit): %w", errno)
	}
	return nil
}

// WaitCompletion blocks in io_uring_enter until at least one completion is
// ready, then drains every completion currently available.
func (r *minimalRing) WaitCompletion(ctx context.Context) ([]Completion, error) {
	_, _, errno := syscall.Syscall6(sysIOURingEnter, uintptr(r.fd), 0, 1, ioringEnterGetevents, 0, 0)
	if errno != 0 && errno != syscall.EINTR {
		return nil, fmt.Errorf("io_uring_enter(wait): %w", errno)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	head := atomic.LoadUint32(r.cqHead)
	tail := atomic.LoadUint32(r.cqTail)

	var out []Completion
	for head != tail {
		c := r.cqes[head&r.cqMask]
		out = append(out, Completion{UserData: c.UserData, Res: c.Res})
		head++
	}
	atomic.StoreUint32(r.cqHead, head)
	return out, nil
}

func (r *minimalRing) Close() error {
	unix.Munmap(r.sqesRaw)
	unix.Munmap(r.cqMmap)
	unix.Munmap(r.sqMmap)
	return syscall.Close(r.fd)
}
