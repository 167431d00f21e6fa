package aio

// NewRing creates a Ring. When useReal is true it selects the
// giouring-backed implementation (only linked in when built with
// -tags giouring); otherwise it uses the always-available hand-rolled
// syscall client.
func NewRing(cfg Config, useReal bool) (Ring, error) {
	if useReal {
		return NewRealRing(cfg)
	}
	return NewMinimalRing(cfg)
}
