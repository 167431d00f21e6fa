package asyncfile

import (
	"syscall"

	"github.com/lliu-dev/asyncfile/internal/afError"
)

// Error is a structured asyncfile error with context and errno mapping.
type Error = afError.Error

// ErrorCode represents a high-level error category.
type ErrorCode = afError.Code

const (
	ErrCodeBadValue           = afError.CodeBadValue
	ErrCodeInvalidOperation   = afError.CodeInvalidOperation
	ErrCodeNoMemory           = afError.CodeNoMemory
	ErrCodeAlreadyExists      = afError.CodeAlreadyExists
	ErrCodeTimedOut           = afError.CodeTimedOut
	ErrCodeBusy               = afError.CodeBusy
	ErrCodeNotFound           = afError.CodeNotFound
	ErrCodePermissionDenied   = afError.CodePermissionDenied
	ErrCodeIOError            = afError.CodeIOError
	ErrCodeUnsupportedBackend = afError.CodeUnsupportedBackend
)

// Sentinel errors for common conditions, comparable via errors.Is.
var (
	ErrBadValue         = afError.ErrBadValue
	ErrInvalidOperation = afError.ErrInvalidOperation
	ErrNoMemory         = afError.ErrNoMemory
	ErrAlreadyExists    = afError.ErrAlreadyExists
	ErrTimedOut         = afError.ErrTimedOut
)

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return afError.New(op, code, msg)
}

// NewErrorWithErrno creates a new structured error carrying a kernel errno.
func NewErrorWithErrno(op string, code ErrorCode, errno syscall.Errno) *Error {
	return afError.NewWithErrno(op, code, errno)
}

// NewPathError creates a new error scoped to a specific file path.
func NewPathError(op, path string, code ErrorCode, msg string) *Error {
	return afError.NewPath(op, path, code, msg)
}

// WrapError wraps an existing error with asyncfile context.
func WrapError(op string, inner error) *Error {
	return afError.Wrap(op, inner)
}

// IsCode reports whether err carries a specific error category.
func IsCode(err error, code ErrorCode) bool {
	return afError.IsCode(err, code)
}

// IsErrno reports whether err carries a specific kernel errno.
func IsErrno(err error, errno syscall.Errno) bool {
	return afError.IsErrno(err, errno)
}
