package asyncfile

import (
	"errors"
	"syscall"
	"testing"
)

func TestStructuredError(t *testing.T) {
	err := NewError("GetRequest", ErrCodeBadValue, "invalid queue depth")

	if err.Op != "GetRequest" {
		t.Errorf("Expected Op=GetRequest, got %s", err.Op)
	}

	if err.Code != ErrCodeBadValue {
		t.Errorf("Expected Code=ErrCodeBadValue, got %s", err.Code)
	}

	expected := "asyncfile: invalid queue depth (op=GetRequest)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestErrorWithErrno(t *testing.T) {
	err := NewErrorWithErrno("PutRequest", ErrCodePermissionDenied, syscall.EPERM)

	if err.Errno != syscall.EPERM {
		t.Errorf("Expected Errno=EPERM, got %v", err.Errno)
	}

	if err.Code != ErrCodePermissionDenied {
		t.Errorf("Expected Code=ErrCodePermissionDenied, got %s", err.Code)
	}
}

func TestPathError(t *testing.T) {
	err := NewPathError("GetRequest", "/data/file.bin", ErrCodeBusy, "file already open")

	if err.Path != "/data/file.bin" {
		t.Errorf("Expected Path=/data/file.bin, got %s", err.Path)
	}

	expected := "asyncfile: file already open (op=GetRequest)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestWrapError(t *testing.T) {
	inner := syscall.ENOENT
	err := WrapError("GetRequest", inner)

	if err.Code != ErrCodeNotFound {
		t.Errorf("Expected Code=ErrCodeNotFound, got %s", err.Code)
	}

	if err.Errno != syscall.ENOENT {
		t.Errorf("Expected Errno=ENOENT, got %v", err.Errno)
	}

	if !errors.Is(err, syscall.ENOENT) {
		t.Error("Expected wrapped error to satisfy errors.Is for ENOENT")
	}
}

func TestWrapErrorPreservesStructuredContext(t *testing.T) {
	inner := NewPathError("GetRequest", "/tmp/a", ErrCodeBusy, "locked")
	wrapped := WrapError("WaitRequest", inner)

	if wrapped.Path != "/tmp/a" {
		t.Errorf("Expected Path to carry through wrap, got %s", wrapped.Path)
	}
	if wrapped.Op != "WaitRequest" {
		t.Errorf("Expected Op to be updated to WaitRequest, got %s", wrapped.Op)
	}
}

func TestWrapErrorNil(t *testing.T) {
	if WrapError("X", nil) != nil {
		t.Error("WrapError(nil) should return nil")
	}
}

func TestSentinelErrorsComparable(t *testing.T) {
	err := &Error{Code: ErrCodeTimedOut, Msg: "deadline exceeded"}
	if !errors.Is(err, ErrTimedOut) {
		t.Error("error with matching code should satisfy errors.Is against the sentinel")
	}
}

func TestIsCode(t *testing.T) {
	err := NewError("WaitRequest", ErrCodeTimedOut, "operation timed out")

	if !IsCode(err, ErrCodeTimedOut) {
		t.Error("IsCode should return true for matching code")
	}

	if IsCode(err, ErrCodeIOError) {
		t.Error("IsCode should return false for non-matching code")
	}

	if IsCode(nil, ErrCodeTimedOut) {
		t.Error("IsCode should return false for nil error")
	}
}

func TestIsErrno(t *testing.T) {
	err := NewErrorWithErrno("PutRequest", ErrCodeIOError, syscall.EIO)

	if !IsErrno(err, syscall.EIO) {
		t.Error("IsErrno should return true for matching errno")
	}

	if IsErrno(err, syscall.EPERM) {
		t.Error("IsErrno should return false for non-matching errno")
	}

	if IsErrno(nil, syscall.EIO) {
		t.Error("IsErrno should return false for nil error")
	}
}
