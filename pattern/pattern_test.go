package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	t.Run("literal prefix and capture order", func(t *testing.T) {
		p, err := Compile("users##{id}##{attr}")
		require.NoError(t, err)

		assert.Equal(t, "users##", p.LiteralPrefix())
		assert.Equal(t, []string{"id"}, p.Captures())
		assert.Equal(t, 1, p.NumCaptures())
		assert.Equal(t, "users##{id}##{attr}", p.String())

		segs := p.Segments()
		require.Len(t, segs, 4)
		assert.Equal(t, Segment{Kind: KindLiteral, Text: "users##"}, segs[0])
		assert.Equal(t, Segment{Kind: KindCapture, Text: "id"}, segs[1])
		assert.Equal(t, Segment{Kind: KindLiteral, Text: "##"}, segs[2])
		assert.Equal(t, Segment{Kind: KindAttr}, segs[3])
		assert.Equal(t, 3, p.AttrIndex())
	})

	t.Run("pattern starting with a placeholder has empty prefix", func(t *testing.T) {
		p, err := Compile("{tenant}/{attr}")
		require.NoError(t, err)
		assert.Empty(t, p.LiteralPrefix())
		assert.Equal(t, []string{"tenant"}, p.Captures())
	})

	t.Run("multiple captures keep left-to-right order", func(t *testing.T) {
		p, err := Compile("m##{a}##{b}##{c}##{attr}")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, p.Captures())
	})

	t.Run("attr in the middle", func(t *testing.T) {
		p, err := Compile("{a}##{attr}##{b}")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, p.Captures())
		assert.Equal(t, 2, p.AttrIndex())
	})
}

func TestCompileUniformDelimiter(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		delim   string
		uniform bool
	}{
		{"two-byte uniform", "users##{id}##{attr}", "##", true},
		{"uniform with multiple captures", "{a}::{b}::{attr}", "::", true},
		{"mixed delimiters", "{a}##{b}--{attr}", "", false},
		{"single variable boundary only", "k_{attr}", "", false},
		{"one-byte uniform", "{a}/{b}/{attr}", "/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.pattern)
			require.NoError(t, err)
			delim, ok := p.UniformDelimiter()
			assert.Equal(t, tt.uniform, ok)
			assert.Equal(t, tt.delim, delim)
		})
	}
}

func TestCompileRejects(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{"empty pattern", ""},
		{"unclosed placeholder", "a##{id"},
		{"unmatched close", "a##id}##{attr}"},
		{"empty placeholder", "a##{}##{attr}"},
		{"disallowed name character", "a##{user-id}##{attr}"},
		{"no attr", "a##{id}##{name}"},
		{"two attrs", "a##{attr}##{attr}"},
		{"duplicate capture", "a##{id}##{id}##{attr}"},
		{"adjacent placeholders", "a##{id}{attr}"},
		{"adjacent capture and attr reversed", "{attr}{id}##x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.pattern)
			require.Error(t, err)

			var perr *Error
			require.ErrorAs(t, err, &perr)
			assert.NotEmpty(t, perr.Reason)
		})
	}
}

func TestErrorPosition(t *testing.T) {
	_, err := Compile("ab{id")
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Pos)
	assert.Contains(t, perr.Error(), "offset 2")
}
