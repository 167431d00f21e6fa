//go:build !(linux && cgo)

package uring

// Sfence is a no-op on builds without cgo. Go's atomic operations already
// provide the ordering guarantees the hand-rolled io_uring client needs on
// amd64/arm64; the cgo-backed SFENCE in barrier.go is for environments where
// that is not assumed.
func Sfence() {}

// Mfence is a no-op on builds without cgo. See Sfence.
func Mfence() {}
