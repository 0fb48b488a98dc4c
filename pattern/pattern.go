// Package pattern compiles key patterns like "users##{id}##{attr}" into an
// immutable segment form shared by the key codec and the projection layer.
//
// A pattern is a run of literal text interleaved with {name} placeholders.
// The placeholder name "attr" is reserved: it marks the segment whose value
// becomes a column name instead of an identity value. Compilation enforces
// the structural rules that make key parsing single-pass and unambiguous.
package pattern

import "fmt"

// SegmentKind discriminates the segment union.
type SegmentKind uint8

const (
	// KindLiteral is fixed text that must match exactly.
	KindLiteral SegmentKind = iota
	// KindCapture is a named variable-length segment bound to an identity column.
	KindCapture
	// KindAttr is the single variable-length segment that names the pivoted column.
	KindAttr
)

// String returns the string representation of a SegmentKind.
func (k SegmentKind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindCapture:
		return "capture"
	case KindAttr:
		return "attr"
	default:
		return "unknown"
	}
}

// Segment is one element of a compiled pattern. Text holds the literal text
// for KindLiteral and the placeholder name for KindCapture; it is empty for
// KindAttr.
type Segment struct {
	Kind SegmentKind
	Text string
}

// attrName is the reserved placeholder that marks the attr segment.
const attrName = "attr"

// Error is a structural pattern error surfaced at table-definition time.
// Pos is the byte offset of the offending character, or -1 when the error
// concerns the pattern as a whole.
type Error struct {
	Pos    int
	Reason string
}

func (e *Error) Error() string {
	if e.Pos < 0 {
		return fmt.Sprintf("invalid pattern: %s", e.Reason)
	}
	return fmt.Sprintf("invalid pattern at offset %d: %s", e.Pos, e.Reason)
}

func errorf(pos int, format string, args ...any) *Error {
	return &Error{Pos: pos, Reason: fmt.Sprintf(format, args...)}
}

// Pattern is a compiled key pattern. It is immutable after Compile and safe
// for concurrent use by any number of codecs, projections and scanners.
type Pattern struct {
	src           string
	segments      []Segment
	captures      []string // capture names in left-to-right order
	literalPrefix string
	attrIndex     int // segment index of the attr segment

	uniformDelim string // "" when the pattern is not uniform-delimiter
}

// Compile parses and validates a pattern string.
func Compile(src string) (*Pattern, error) {
	if src == "" {
		return nil, errorf(-1, "pattern must not be empty")
	}

	p := &Pattern{src: src, attrIndex: -1}
	seen := make(map[string]struct{})

	i := 0
	for i < len(src) {
		if src[i] != '{' {
			start := i
			for i < len(src) && src[i] != '{' {
				if src[i] == '}' {
					return nil, errorf(i, "unmatched '}'")
				}
				i++
			}
			p.segments = append(p.segments, Segment{Kind: KindLiteral, Text: src[start:i]})
			continue
		}

		// Placeholder.
		open := i
		i++
		start := i
		for i < len(src) && src[i] != '}' {
			i++
		}
		if i == len(src) {
			return nil, errorf(open, "unclosed '{'")
		}
		name := src[start:i]
		i++ // consume '}'

		if name == "" {
			return nil, errorf(open, "empty placeholder")
		}
		for j := 0; j < len(name); j++ {
			if !isNameChar(name[j]) {
				return nil, errorf(start+j, "placeholder name %q contains disallowed character %q", name, name[j])
			}
		}

		if n := len(p.segments); n > 0 && p.segments[n-1].Kind != KindLiteral {
			return nil, errorf(open, "two placeholders without a literal between them")
		}

		if name == attrName {
			if p.attrIndex >= 0 {
				return nil, errorf(open, "more than one {attr} segment")
			}
			p.attrIndex = len(p.segments)
			p.segments = append(p.segments, Segment{Kind: KindAttr})
			continue
		}

		if _, dup := seen[name]; dup {
			return nil, errorf(open, "duplicate capture name %q", name)
		}
		seen[name] = struct{}{}
		p.captures = append(p.captures, name)
		p.segments = append(p.segments, Segment{Kind: KindCapture, Text: name})
	}

	if p.attrIndex < 0 {
		return nil, errorf(-1, "pattern has no {attr} segment")
	}

	// Leading literal run before the first variable segment.
	for _, seg := range p.segments {
		if seg.Kind != KindLiteral {
			break
		}
		p.literalPrefix += seg.Text
	}

	p.uniformDelim = detectUniformDelimiter(p.segments)

	return p, nil
}

func isNameChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

// detectUniformDelimiter reports the single literal text separating every
// pair of variable segments, or "" when the inter-variable literals differ
// (or there is at most one variable segment boundary to speak of).
func detectUniformDelimiter(segments []Segment) string {
	delim := ""
	for i, seg := range segments {
		if seg.Kind != KindLiteral {
			continue
		}
		// Only literals flanked by variable segments on both sides count.
		if i == 0 || i == len(segments)-1 {
			continue
		}
		if delim == "" {
			delim = seg.Text
		} else if delim != seg.Text {
			return ""
		}
	}
	return delim
}

// String returns the source pattern text.
func (p *Pattern) String() string { return p.src }

// Segments returns the compiled segment sequence. Callers must not modify
// the returned slice.
func (p *Pattern) Segments() []Segment { return p.segments }

// Captures returns the capture names in left-to-right order, which defines
// the identity column order. Callers must not modify the returned slice.
func (p *Pattern) Captures() []string { return p.captures }

// NumCaptures returns the number of capture segments.
func (p *Pattern) NumCaptures() int { return len(p.captures) }

// AttrIndex returns the segment index of the attr segment.
func (p *Pattern) AttrIndex() int { return p.attrIndex }

// LiteralPrefix returns the fixed text preceding the first variable segment,
// used for store-level range seeking. Empty when the pattern begins with a
// placeholder.
func (p *Pattern) LiteralPrefix() string { return p.literalPrefix }

// UniformDelimiter reports whether every literal between two variable
// segments is the same text, and returns that text. Uniform-delimiter
// patterns are eligible for the vectorized parse path.
func (p *Pattern) UniformDelimiter() (string, bool) {
	return p.uniformDelim, p.uniformDelim != ""
}
