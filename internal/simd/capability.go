// Package simd provides the vectorized delimiter scanner used by the key
// codec's fast path, plus the one-time CPU capability probe that selects the
// lane width.
//
// The kernels are written as SWAR (SIMD-within-a-register) word scans with
// fixed unrolling so the compiler can keep the whole lane in registers; the
// probe only decides how many words each iteration touches. The probe runs
// once at package init and the result never changes, so concurrent first use
// is safe without locking.
package simd

import (
	"os"
	"strings"
)

// Width is the lane width (bytes per scan iteration) of the delimiter
// scanner.
type Width uint8

const (
	// WidthScalar disables lane scanning; every byte is inspected one at a time.
	WidthScalar Width = iota
	// Width16 processes 16 bytes (two 64-bit words) per iteration.
	Width16
	// Width32 processes 32 bytes (four 64-bit words) per iteration.
	Width32
)

// String returns the string representation of a Width.
func (w Width) String() string {
	switch w {
	case WidthScalar:
		return "scalar"
	case Width16:
		return "width16"
	case Width32:
		return "width32"
	default:
		return "unknown"
	}
}

// ParseWidth parses a string into a Width value.
func ParseWidth(s string) (Width, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scalar":
		return WidthScalar, true
	case "width16":
		return Width16, true
	case "width32":
		return Width32, true
	default:
		return WidthScalar, false
	}
}

// Package-level state - initialized once at package init.
// No mutex needed: Go guarantees init() runs before any other code.
var (
	// activeWidth is the selected lane width.
	activeWidth Width

	// hasOverride is true if KEYPIVOT_SIMD was set.
	hasOverride bool

	// CPU feature flags (set by platform-specific init)
	hasWide16 bool // 128-bit vector registers available
	hasWide32 bool // 256-bit vector registers available
)

// initCapabilities is called from platform-specific init functions after CPU
// features are detected.
func initCapabilities() {
	if override := os.Getenv("KEYPIVOT_SIMD"); override != "" {
		if w, ok := ParseWidth(override); ok {
			hasOverride = true
			if isWidthAvailable(w) {
				setWidth(w)
				return
			}
			// Invalid override - fall through to auto-detection
		}
	}

	setWidth(selectBestWidth())
}

// isWidthAvailable checks if a lane width is supported on this CPU.
func isWidthAvailable(w Width) bool {
	switch w {
	case WidthScalar:
		return true
	case Width16:
		return hasWide16
	case Width32:
		return hasWide32
	default:
		return false
	}
}

// selectBestWidth chooses the widest supported lane.
func selectBestWidth() Width {
	if hasWide32 {
		return Width32
	}
	if hasWide16 {
		return Width16
	}
	return WidthScalar
}

func setWidth(w Width) {
	activeWidth = w
	switch w {
	case Width32:
		pairImpl = pairOffsets32
	case Width16:
		pairImpl = pairOffsets16
	default:
		pairImpl = pairOffsetsScalar
	}
}

// ScanWidth returns the currently active lane width.
func ScanWidth() Width {
	return activeWidth
}

// IsOverridden returns true if KEYPIVOT_SIMD was set.
func IsOverridden() bool {
	return hasOverride
}

// SetScanWidthForTest forces a lane width and returns a restore function.
// Test-only seam: production code selects the width once at init.
func SetScanWidthForTest(w Width) (restore func()) {
	prev := activeWidth
	setWidth(w)
	return func() { setWidth(prev) }
}
