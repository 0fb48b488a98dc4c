//go:build amd64

package simd

import "golang.org/x/sys/cpu"

func init() {
	// SSE2 is part of the amd64 baseline, so 16-byte lanes are always safe.
	hasWide16 = true
	hasWide32 = cpu.X86.HasAVX2
	initCapabilities()
}
