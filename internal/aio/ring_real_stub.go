//go:build !giouring

package aio

import "fmt"

// NewRealRing is unavailable in a default build. Build with -tags giouring
// to link the real liburing-backed ring.
func NewRealRing(cfg Config) (Ring, error) {
	return nil, fmt.Errorf("giouring not enabled; build with -tags giouring")
}
