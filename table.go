package keypivot

import (
	"fmt"

	"github.com/hupe1980/keypivot/keycodec"
	"github.com/hupe1980/keypivot/pattern"
	"github.com/hupe1980/keypivot/projection"
	"github.com/hupe1980/keypivot/store"
)

// Table is an opened pivot view: one compiled pattern bound to a column list
// and a store. A Table is immutable after Open and safe for concurrent use;
// the Scanners it creates and its write operations' batches are not — each
// is single-owner.
type Table struct {
	st     store.Store
	proj   *projection.Projection
	codec  *keycodec.Codec
	logger *Logger
}

// Open compiles patternSrc, validates it against cols and returns a Table.
// Pattern errors (*pattern.Error) and column-binding errors
// (*projection.Error) surface unwrapped via errors.As.
func Open(st store.Store, patternSrc string, cols []projection.ColumnDef, opts ...Option) (*Table, error) {
	if st == nil {
		return nil, ErrNilStore
	}

	o := options{logger: NoopLogger()}
	for _, fn := range opts {
		fn(&o)
	}

	pat, err := pattern.Compile(patternSrc)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	proj, err := projection.Build(pat, cols)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}

	return &Table{
		st:     st,
		proj:   proj,
		codec:  keycodec.New(pat),
		logger: o.logger.WithPattern(patternSrc),
	}, nil
}

// Pattern returns the table's compiled pattern.
func (t *Table) Pattern() *pattern.Pattern { return t.proj.Pattern() }

// Projection returns the table's column binding.
func (t *Table) Projection() *projection.Projection { return t.proj }

// Codec returns the table's key codec.
func (t *Table) Codec() *keycodec.Codec { return t.codec }

// identityValues validates a row's identity for the write path: every
// capture must have a non-null value, in pattern order.
func (t *Table) identityValues(row *Row) ([]string, error) {
	captures := t.proj.Pattern().Captures()
	if len(row.Identity) != len(captures) {
		return nil, &keycodec.ArityError{Want: len(captures), Got: len(row.Identity)}
	}
	for i, v := range row.Identity {
		if v == "" {
			return nil, &NullIdentityError{Column: captures[i]}
		}
	}
	return row.Identity, nil
}
