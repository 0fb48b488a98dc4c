// Package keypivot exposes a sorted key-value store as relational rows by
// interpreting keys as instances of a declarative pattern.
//
// A pattern is literal text interleaved with {name} placeholders; the
// reserved {attr} placeholder marks the segment whose value names a column.
// All keys sharing the same capture values form one row: each key's attr
// segment becomes a column name and the stored value becomes that column's
// value. A column with no backing key reads as NULL.
//
//	st := store.NewMemory()
//	tbl, err := keypivot.Open(st, "users##{id}##{attr}", []projection.ColumnDef{
//	    {Name: "id", Ordinal: 1, Identity: true},
//	    {Name: "name", Ordinal: 2},
//	    {Name: "email", Ordinal: 3},
//	})
//
// Reads stream rows in a single sorted-order pass with prefix-based range
// restriction; writes translate a row into a batched, atomic set of key
// puts/deletes. The core never interprets value bytes: values cross the API
// as opaque strings, NULL as absence.
package keypivot
