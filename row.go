package keypivot

import "maps"

// Row is one assembled relational row of the pivot view.
//
// Identity holds the capture values in pattern order (the order returned by
// pattern.Captures, which also defines the identity column order). Attrs maps
// attr column names to values; a column absent from Attrs is NULL. Values are
// opaque to the core — typed-value conversion is the host's concern.
//
// An empty-string identity value is treated as NULL by the write paths (an
// empty capture value is unrepresentable in a key anyway).
type Row struct {
	Identity []string
	Attrs    map[string]string
}

// NewRow creates a row with the given identity values and no attrs.
func NewRow(identity ...string) *Row {
	return &Row{
		Identity: identity,
		Attrs:    make(map[string]string),
	}
}

// SetAttr sets an attr column to a non-null value and returns the row.
func (r *Row) SetAttr(name, value string) *Row {
	if r.Attrs == nil {
		r.Attrs = make(map[string]string)
	}
	r.Attrs[name] = value
	return r
}

// Attr returns an attr column's value; ok is false when the column is NULL.
func (r *Row) Attr(name string) (value string, ok bool) {
	value, ok = r.Attrs[name]
	return value, ok
}

// Clone returns a deep copy of the row.
func (r *Row) Clone() *Row {
	c := &Row{
		Identity: append([]string(nil), r.Identity...),
		Attrs:    make(map[string]string, len(r.Attrs)),
	}
	maps.Copy(c.Attrs, r.Attrs)
	return c
}
