// Package projection binds a compiled key pattern to a concrete column list.
//
// Each column is either an identity column (backed by one capture segment of
// the pattern) or an attr column (its value is pivoted out of the keys whose
// attr segment carries the column's name). The projection validates the
// binding once at table-open time and precomputes the lookup tables row
// assembly needs, so the per-key hot path never does name resolution.
package projection

import (
	"fmt"

	"github.com/hupe1980/keypivot/pattern"
)

// ColumnDef describes one column of the pivot view. It is supplied by the
// host schema mechanism; Type is an opaque semantic tag the core never
// interprets.
type ColumnDef struct {
	Name     string
	Type     string
	Ordinal  int
	Identity bool
}

// Error is a column/pattern mismatch surfaced at table-open time.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid projection: %s", e.Reason)
}

func errorf(format string, args ...any) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...)}
}

// Projection is an immutable pattern/column binding. It is safe for
// concurrent read-only use by any number of scanners and writers sharing one
// table definition.
type Projection struct {
	pat     *pattern.Pattern
	columns []ColumnDef

	identityCols []ColumnDef
	attrCols     []ColumnDef

	byName    map[string]int // column name -> index into columns
	byOrdinal map[int]int    // ordinal -> index into columns

	// captureIndex[i] is, for columns[i], the position of its value within
	// the capture-value array; -1 for attr columns.
	captureIndex []int

	attrNames map[string]struct{}
}

// Build validates the column list against the pattern and precomputes the
// projection's lookup tables.
func Build(pat *pattern.Pattern, columns []ColumnDef) (*Projection, error) {
	if pat == nil {
		return nil, errorf("pattern must not be nil")
	}
	if len(columns) == 0 {
		return nil, errorf("column list must not be empty")
	}

	p := &Projection{
		pat:          pat,
		columns:      append([]ColumnDef(nil), columns...),
		byName:       make(map[string]int, len(columns)),
		byOrdinal:    make(map[int]int, len(columns)),
		captureIndex: make([]int, len(columns)),
		attrNames:    make(map[string]struct{}),
	}

	capturePos := make(map[string]int, pat.NumCaptures())
	for i, name := range pat.Captures() {
		capturePos[name] = i
	}

	for i, col := range p.columns {
		if col.Name == "" {
			return nil, errorf("column at ordinal %d has an empty name", col.Ordinal)
		}
		if _, dup := p.byName[col.Name]; dup {
			return nil, errorf("duplicate column name %q", col.Name)
		}
		p.byName[col.Name] = i
		if _, dup := p.byOrdinal[col.Ordinal]; dup {
			return nil, errorf("duplicate column ordinal %d", col.Ordinal)
		}
		p.byOrdinal[col.Ordinal] = i

		if col.Identity {
			pos, ok := capturePos[col.Name]
			if !ok {
				return nil, errorf("identity column %q has no matching capture in pattern %q", col.Name, pat)
			}
			p.captureIndex[i] = pos
			p.identityCols = append(p.identityCols, col)
		} else {
			p.captureIndex[i] = -1
			p.attrCols = append(p.attrCols, col)
			p.attrNames[col.Name] = struct{}{}
		}
	}

	// The bijection must hold in both directions: every capture needs an
	// identity column too.
	if len(p.identityCols) != pat.NumCaptures() {
		for _, name := range pat.Captures() {
			idx, ok := p.byName[name]
			if !ok || !p.columns[idx].Identity {
				return nil, errorf("capture %q has no matching identity column", name)
			}
		}
	}

	if len(p.attrCols) == 0 {
		return nil, errorf("at least one non-identity column is required")
	}

	return p, nil
}

// Pattern returns the compiled pattern this projection binds.
func (p *Projection) Pattern() *pattern.Pattern { return p.pat }

// Columns returns the full column list in definition order.
// Callers must not modify the returned slice.
func (p *Projection) Columns() []ColumnDef { return p.columns }

// IdentityColumns returns the identity columns in definition order.
func (p *Projection) IdentityColumns() []ColumnDef { return p.identityCols }

// AttrColumns returns the attr (pivoted) columns in definition order.
func (p *Projection) AttrColumns() []ColumnDef { return p.attrCols }

// ColumnByName looks a column up by name.
func (p *Projection) ColumnByName(name string) (ColumnDef, bool) {
	i, ok := p.byName[name]
	if !ok {
		return ColumnDef{}, false
	}
	return p.columns[i], true
}

// ColumnByOrdinal looks a column up by ordinal position.
func (p *Projection) ColumnByOrdinal(ordinal int) (ColumnDef, bool) {
	i, ok := p.byOrdinal[ordinal]
	if !ok {
		return ColumnDef{}, false
	}
	return p.columns[i], true
}

// CaptureIndex returns, for an identity column, the position of its value
// within the capture-value array produced by the key codec. It returns
// (-1, false) for unknown or non-identity columns.
func (p *Projection) CaptureIndex(name string) (int, bool) {
	i, ok := p.byName[name]
	if !ok || p.captureIndex[i] < 0 {
		return -1, false
	}
	return p.captureIndex[i], true
}

// HasAttr reports whether name is one of the projection's attr columns.
// Keys carrying attr values outside this set are tolerated and dropped
// during assembly (schema evolution).
func (p *Projection) HasAttr(name string) bool {
	_, ok := p.attrNames[name]
	return ok
}
