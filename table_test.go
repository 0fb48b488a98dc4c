package keypivot

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/keypivot/pattern"
	"github.com/hupe1980/keypivot/projection"
	"github.com/hupe1980/keypivot/store"
)

func TestOpen(t *testing.T) {
	st := store.NewMemory()

	t.Run("ok", func(t *testing.T) {
		tbl, err := Open(st, "a##{id}##{attr}", userColumns())
		require.NoError(t, err)
		assert.Equal(t, "a##{id}##{attr}", tbl.Pattern().String())
		assert.Len(t, tbl.Projection().AttrColumns(), 2)
	})

	t.Run("nil store", func(t *testing.T) {
		_, err := Open(nil, "a##{id}##{attr}", userColumns())
		assert.ErrorIs(t, err, ErrNilStore)
	})

	t.Run("pattern error surfaces", func(t *testing.T) {
		_, err := Open(st, "a##{id##{attr}", userColumns())
		var perr *pattern.Error
		assert.ErrorAs(t, err, &perr)
	})

	t.Run("projection error surfaces", func(t *testing.T) {
		cols := []projection.ColumnDef{{Name: "id", Ordinal: 1, Identity: true}}
		_, err := Open(st, "a##{id}##{attr}", cols)
		var perr *projection.Error
		assert.ErrorAs(t, err, &perr)
	})
}

// TestConcurrentScanners exercises the shared-read contract: one immutable
// Table serving many concurrent single-owner scanners.
func TestConcurrentScanners(t *testing.T) {
	st := store.NewMemory()
	tbl := openUserTable(t, st)
	ctx := context.Background()

	const numRows = 200
	for i := 0; i < numRows; i++ {
		row := NewRow(fmt.Sprintf("%04d", i)).
			SetAttr("name", fmt.Sprintf("user-%d", i)).
			SetAttr("email", fmt.Sprintf("u%d@example.com", i))
		_, err := tbl.Insert(ctx, row)
		require.NoError(t, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			s, err := tbl.Scan(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			count := 0
			for {
				row, err := s.Next()
				if err != nil {
					return err
				}
				if row == nil {
					break
				}
				if len(row.Attrs) != 2 {
					return fmt.Errorf("row %v has %d attrs", row.Identity, len(row.Attrs))
				}
				count++
			}
			if count != numRows {
				return fmt.Errorf("scanned %d rows, want %d", count, numRows)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
