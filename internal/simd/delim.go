package simd

import (
	"encoding/binary"
	"math/bits"
)

// MaxOffsets caps the number of delimiter occurrences a single scan records.
// It bounds the stack footprint of the fast path; keys with more occurrences
// are handed back to the generic parser.
const MaxOffsets = 24

// Overflow is returned by PairOffsets when buf contains more than MaxOffsets
// delimiter occurrences.
const Overflow = -1

// pairImpl is the implementation selected by the capability probe.
var pairImpl = pairOffsetsScalar

// PairOffsets records the start offset of every occurrence of the two-byte
// delimiter d0 d1 in buf, in ascending order, into offs. It returns the
// number of occurrences, or Overflow when more than MaxOffsets exist.
// Occurrences may overlap ("###" contains "##" at offsets 0 and 1).
func PairOffsets(buf []byte, d0, d1 byte, offs *[MaxOffsets]int) int {
	return pairImpl(buf, d0, d1, offs)
}

const (
	swarLo = 0x0101010101010101
	swarHi = 0x8080808080808080
)

// matchMask returns a word with bit 8i+7 set for every byte i of w equal to
// the broadcast byte. Classic zero-byte trick on the XOR'd word; borrow
// propagation can set spurious bits directly above a true match, so every
// candidate must be re-verified against the buffer.
func matchMask(w, broadcast uint64) uint64 {
	x := w ^ broadcast
	return (x - swarLo) &^ x & swarHi
}

func broadcast(b byte) uint64 {
	return uint64(b) * swarLo
}

// emitWord appends the confirmed delimiter starts found in one word's match
// mask. base is the buffer offset of the word's first byte. Both bytes are
// re-checked directly against the buffer: the first because the mask may
// carry borrow false positives, the second because it may live in the next
// word.
func emitWord(buf []byte, mask uint64, base int, d0, d1 byte, offs *[MaxOffsets]int, n int) int {
	for mask != 0 {
		i := base + bits.TrailingZeros64(mask)>>3
		mask &= mask - 1
		if buf[i] == d0 && i+1 < len(buf) && buf[i+1] == d1 {
			if n == MaxOffsets {
				return Overflow
			}
			offs[n] = i
			n++
		}
	}
	return n
}

// pairOffsets32 scans four 64-bit words per iteration.
func pairOffsets32(buf []byte, d0, d1 byte, offs *[MaxOffsets]int) int {
	b := broadcast(d0)
	n := 0
	i := 0
	for ; i+32 <= len(buf); i += 32 {
		m0 := matchMask(binary.LittleEndian.Uint64(buf[i:]), b)
		m1 := matchMask(binary.LittleEndian.Uint64(buf[i+8:]), b)
		m2 := matchMask(binary.LittleEndian.Uint64(buf[i+16:]), b)
		m3 := matchMask(binary.LittleEndian.Uint64(buf[i+24:]), b)
		if m0|m1|m2|m3 == 0 {
			continue
		}
		if n = emitWord(buf, m0, i, d0, d1, offs, n); n == Overflow {
			return Overflow
		}
		if n = emitWord(buf, m1, i+8, d0, d1, offs, n); n == Overflow {
			return Overflow
		}
		if n = emitWord(buf, m2, i+16, d0, d1, offs, n); n == Overflow {
			return Overflow
		}
		if n = emitWord(buf, m3, i+24, d0, d1, offs, n); n == Overflow {
			return Overflow
		}
	}
	return pairTail(buf, i, d0, d1, offs, n)
}

// pairOffsets16 scans two 64-bit words per iteration.
func pairOffsets16(buf []byte, d0, d1 byte, offs *[MaxOffsets]int) int {
	b := broadcast(d0)
	n := 0
	i := 0
	for ; i+16 <= len(buf); i += 16 {
		m0 := matchMask(binary.LittleEndian.Uint64(buf[i:]), b)
		m1 := matchMask(binary.LittleEndian.Uint64(buf[i+8:]), b)
		if m0|m1 == 0 {
			continue
		}
		if n = emitWord(buf, m0, i, d0, d1, offs, n); n == Overflow {
			return Overflow
		}
		if n = emitWord(buf, m1, i+8, d0, d1, offs, n); n == Overflow {
			return Overflow
		}
	}
	return pairTail(buf, i, d0, d1, offs, n)
}

// pairTail finishes the remainder below one lane width byte by byte.
func pairTail(buf []byte, i int, d0, d1 byte, offs *[MaxOffsets]int, n int) int {
	for ; i+1 < len(buf); i++ {
		if buf[i] == d0 && buf[i+1] == d1 {
			if n == MaxOffsets {
				return Overflow
			}
			offs[n] = i
			n++
		}
	}
	return n
}

// pairOffsetsScalar is the reference implementation; the lane variants must
// agree with it on every input.
func pairOffsetsScalar(buf []byte, d0, d1 byte, offs *[MaxOffsets]int) int {
	return pairTail(buf, 0, d0, d1, offs, 0)
}
