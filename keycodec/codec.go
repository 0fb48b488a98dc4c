// Package keycodec parses raw keys into capture values and an attr name, and
// builds keys back from them, for one compiled pattern.
//
// Parsing has two result flavors: ParsedKey owns its strings, ViewKey
// borrows subslices of the input buffer. The codec also exposes prefix
// construction for store-level range seeking.
//
// Codec construction inspects the pattern once. Patterns whose variable
// segments are all separated by one uniform two-byte literal take a
// vectorized delimiter scan (see internal/simd); everything else takes the
// generic segment walk. The two paths return identical results for every
// input; the vectorized one just finds the delimiters in bulk.
package keycodec

import (
	"bytes"
	"fmt"

	"github.com/hupe1980/keypivot/internal/simd"
	"github.com/hupe1980/keypivot/pattern"
)

// ArityError reports a Build call with the wrong number of capture values.
type ArityError struct {
	Want int
	Got  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("capture arity mismatch: pattern has %d captures, got %d values", e.Want, e.Got)
}

// EmptyValueError reports an empty capture or attr value passed to Build.
// Empty variable segments are structurally disallowed: the resulting key
// could not be parsed back.
type EmptyValueError struct {
	What string // capture name or "attr"
}

func (e *EmptyValueError) Error() string {
	return fmt.Sprintf("empty value for %s: variable segments must be non-empty", e.What)
}

// ParsedKey is an owned decoding of one raw key.
type ParsedKey struct {
	Captures []string
	Attr     string
}

// ViewKey is a zero-copy decoding of one raw key. Captures and Attr alias
// the parsed buffer and are valid only until the buffer is reused or the
// originating iterator advances. Materialize before holding on to them.
type ViewKey struct {
	Captures [][]byte
	Attr     []byte
}

// Materialize copies the view out of its backing buffer.
func (v ViewKey) Materialize() ParsedKey {
	pk := ParsedKey{
		Captures: make([]string, len(v.Captures)),
		Attr:     string(v.Attr),
	}
	for i, c := range v.Captures {
		pk.Captures[i] = string(c)
	}
	return pk
}

// Codec parses and builds keys for one compiled pattern. It is immutable
// and safe for concurrent use.
type Codec struct {
	pat      *pattern.Pattern
	segments []pattern.Segment
	prefix   []byte // pattern literal prefix

	// Fast path, bound once at construction; no per-call dispatch.
	fastDelim   []byte // two-byte uniform delimiter, nil when ineligible
	fastVars    int    // number of variable segments
	fastAttrPos int    // index of the attr among the variable segments
}

// New builds a codec for the pattern and selects its parse strategy.
func New(pat *pattern.Pattern) *Codec {
	c := &Codec{
		pat:      pat,
		segments: pat.Segments(),
		prefix:   []byte(pat.LiteralPrefix()),
	}
	c.bindFastPath()
	return c
}

// bindFastPath enables the vectorized scan when the pattern is an optional
// leading literal followed by variable segments strictly alternating with
// one uniform two-byte delimiter. The lane width is probed once per process;
// WidthScalar means the SWAR kernels buy nothing over the generic walk.
func (c *Codec) bindFastPath() {
	delim, ok := c.pat.UniformDelimiter()
	if !ok || len(delim) != 2 || simd.ScanWidth() == simd.WidthScalar {
		return
	}

	segs := c.segments
	i := 0
	if segs[0].Kind == pattern.KindLiteral {
		i = 1
	}
	vars := 0
	attrPos := -1
	for ; i < len(segs); i++ {
		seg := segs[i]
		switch seg.Kind {
		case pattern.KindLiteral:
			if seg.Text != delim || i == len(segs)-1 {
				return // trailing literal or non-delimiter literal: generic walk
			}
		case pattern.KindCapture:
			vars++
		case pattern.KindAttr:
			attrPos = vars
			vars++
		}
	}
	c.fastDelim = []byte(delim)
	c.fastVars = vars
	c.fastAttrPos = attrPos
}

// Pattern returns the codec's compiled pattern.
func (c *Codec) Pattern() *pattern.Pattern { return c.pat }

// StartsWithPrefix reports whether key begins with the pattern's literal
// prefix. Cheap pre-filter for range scans; a true result does not imply the
// key parses.
func (c *Codec) StartsWithPrefix(key []byte) bool {
	return bytes.HasPrefix(key, c.prefix)
}

// ParseView decodes key without copying. The returned views alias key; see
// ViewKey for the lifetime contract. The second result is false when the key
// does not match the pattern — an expected outcome on mixed-content stores,
// not an error.
func (c *Codec) ParseView(key []byte) (ViewKey, bool) {
	if c.fastDelim != nil {
		if v, ok, done := c.parseViewFast(key); done {
			return v, ok
		}
		// Offset buffer overflow: generic walk still parses correctly.
	}
	return c.parseViewGeneric(key)
}

// Parse decodes key into owned strings.
func (c *Codec) Parse(key []byte) (ParsedKey, bool) {
	v, ok := c.ParseView(key)
	if !ok {
		return ParsedKey{}, false
	}
	return v.Materialize(), true
}

// parseViewGeneric walks the segment list: each literal must match at the
// cursor; each variable segment extends to the next occurrence of the
// following literal, or to end-of-key when it is the last segment.
func (c *Codec) parseViewGeneric(key []byte) (ViewKey, bool) {
	v := ViewKey{Captures: make([][]byte, 0, c.pat.NumCaptures())}
	pos := 0
	for i, seg := range c.segments {
		switch seg.Kind {
		case pattern.KindLiteral:
			lit := seg.Text
			if len(key)-pos < len(lit) || string(key[pos:pos+len(lit)]) != lit {
				return ViewKey{}, false
			}
			pos += len(lit)
		default:
			var end int
			if i == len(c.segments)-1 {
				end = len(key)
			} else {
				// The compiler guarantees the next segment is a literal.
				next := c.segments[i+1].Text
				rel := bytes.Index(key[pos:], []byte(next))
				if rel < 0 {
					return ViewKey{}, false
				}
				end = pos + rel
			}
			if end == pos {
				return ViewKey{}, false // empty extent: ambiguous
			}
			if seg.Kind == pattern.KindAttr {
				v.Attr = key[pos:end]
			} else {
				v.Captures = append(v.Captures, key[pos:end])
			}
			pos = end
		}
	}
	if pos != len(key) {
		return ViewKey{}, false // trailing bytes
	}
	return v, true
}

// parseViewFast is the uniform-delimiter path. done is false when the
// delimiter offset buffer overflowed and the caller must fall back.
func (c *Codec) parseViewFast(key []byte) (v ViewKey, ok bool, done bool) {
	if !bytes.HasPrefix(key, c.prefix) {
		return ViewKey{}, false, true
	}
	body := key[len(c.prefix):]

	var offs [simd.MaxOffsets]int
	n := simd.PairOffsets(body, c.fastDelim[0], c.fastDelim[1], &offs)
	if n == simd.Overflow {
		return ViewKey{}, false, false
	}

	v = ViewKey{Captures: make([][]byte, 0, c.fastVars-1)}
	pos := 0
	oi := 0
	for vi := 0; vi < c.fastVars; vi++ {
		var end int
		if vi == c.fastVars-1 {
			// Last variable segment takes the remainder, embedded
			// delimiter text included.
			end = len(body)
		} else {
			// Leftmost delimiter occurrence at or past the cursor.
			for oi < n && offs[oi] < pos {
				oi++
			}
			if oi == n {
				return ViewKey{}, false, true
			}
			end = offs[oi]
			oi++
		}
		if end == pos {
			return ViewKey{}, false, true // empty extent
		}
		if vi == c.fastAttrPos {
			v.Attr = body[pos:end]
		} else {
			v.Captures = append(v.Captures, body[pos:end])
		}
		pos = end
		if vi < c.fastVars-1 {
			pos += len(c.fastDelim)
		}
	}
	if pos != len(body) {
		return ViewKey{}, false, true
	}
	return v, true, true
}

// Build encodes a full key from capture values (in pattern order) and an
// attr name.
func (c *Codec) Build(captures []string, attr string) ([]byte, error) {
	if len(captures) != c.pat.NumCaptures() {
		return nil, &ArityError{Want: c.pat.NumCaptures(), Got: len(captures)}
	}
	if attr == "" {
		return nil, &EmptyValueError{What: "attr"}
	}
	names := c.pat.Captures()
	size := len(attr)
	for i, v := range captures {
		if v == "" {
			return nil, &EmptyValueError{What: names[i]}
		}
		size += len(v)
	}
	for _, seg := range c.segments {
		if seg.Kind == pattern.KindLiteral {
			size += len(seg.Text)
		}
	}

	key := make([]byte, 0, size)
	ci := 0
	for _, seg := range c.segments {
		switch seg.Kind {
		case pattern.KindLiteral:
			key = append(key, seg.Text...)
		case pattern.KindCapture:
			key = append(key, captures[ci]...)
			ci++
		case pattern.KindAttr:
			key = append(key, attr...)
		}
	}
	return key, nil
}

// BuildPrefix encodes the longest key prefix determined by the supplied
// leading capture values: literals are emitted until the first capture
// without a value or the attr segment is reached. With no values it returns
// the pattern's literal prefix. Used for store-level range seeking under
// partial equality filters.
func (c *Codec) BuildPrefix(captures ...string) ([]byte, error) {
	if len(captures) > c.pat.NumCaptures() {
		return nil, &ArityError{Want: c.pat.NumCaptures(), Got: len(captures)}
	}
	names := c.pat.Captures()
	for i, v := range captures {
		if v == "" {
			return nil, &EmptyValueError{What: names[i]}
		}
	}

	var key []byte
	ci := 0
	for _, seg := range c.segments {
		switch seg.Kind {
		case pattern.KindLiteral:
			key = append(key, seg.Text...)
		case pattern.KindCapture:
			if ci == len(captures) {
				return key, nil
			}
			key = append(key, captures[ci]...)
			ci++
		case pattern.KindAttr:
			return key, nil
		}
	}
	return key, nil
}
