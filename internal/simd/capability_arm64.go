//go:build arm64

package simd

import "golang.org/x/sys/cpu"

func init() {
	hasWide16 = cpu.ARM64.HasASIMD
	hasWide32 = false
	initCapabilities()
}
