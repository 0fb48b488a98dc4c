//go:build !amd64 && !arm64

package simd

func init() {
	hasWide16 = false
	hasWide32 = false
	initCapabilities()
}
