package keypivot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/keypivot/projection"
	"github.com/hupe1980/keypivot/store"
)

func userColumns() []projection.ColumnDef {
	return []projection.ColumnDef{
		{Name: "id", Type: "text", Ordinal: 1, Identity: true},
		{Name: "name", Type: "text", Ordinal: 2},
		{Name: "email", Type: "text", Ordinal: 3},
	}
}

func openUserTable(t *testing.T, st store.Store) *Table {
	t.Helper()
	tbl, err := Open(st, "a##{id}##{attr}", userColumns())
	require.NoError(t, err)
	return tbl
}

func put(t *testing.T, st store.Store, key, value string) {
	t.Helper()
	require.NoError(t, st.Put([]byte(key), []byte(value)))
}

func collectRows(t *testing.T, s *Scanner) []*Row {
	t.Helper()
	var rows []*Row
	for {
		row, err := s.Next()
		require.NoError(t, err)
		if row == nil {
			return rows
		}
		rows = append(rows, row)
	}
}

func TestScanGrouping(t *testing.T) {
	st := store.NewMemory()
	put(t, st, "a##1##name", "X")
	put(t, st, "a##1##email", "Y")
	put(t, st, "a##2##name", "Z")

	tbl := openUserTable(t, st)
	s, err := tbl.Scan(context.Background())
	require.NoError(t, err)
	defer s.Close()

	rows := collectRows(t, s)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"1"}, rows[0].Identity)
	name, ok := rows[0].Attr("name")
	require.True(t, ok)
	assert.Equal(t, "X", name)
	email, ok := rows[0].Attr("email")
	require.True(t, ok)
	assert.Equal(t, "Y", email)

	assert.Equal(t, []string{"2"}, rows[1].Identity)
	name, ok = rows[1].Attr("name")
	require.True(t, ok)
	assert.Equal(t, "Z", name)
	_, ok = rows[1].Attr("email") // absent key reads as NULL
	assert.False(t, ok)

	stats := s.Stats()
	assert.Equal(t, uint64(3), stats.KeysScanned)
	assert.Equal(t, uint64(0), stats.KeysSkipped)
	assert.Equal(t, uint64(2), stats.RowsReturned)
}

func TestScanPrefixRestriction(t *testing.T) {
	st := store.NewMemory()
	put(t, st, "a##1##email", "Y")
	put(t, st, "a##1##name", "X")
	put(t, st, "a##10##name", "decoy") // shares a byte prefix with id 1
	put(t, st, "a##2##name", "Z")

	tbl := openUserTable(t, st)
	s, err := tbl.Scan(context.Background(), "1")
	require.NoError(t, err)
	defer s.Close()

	rows := collectRows(t, s)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"1"}, rows[0].Identity)

	// Only the keys under a##1## were visited, not the full keyset.
	stats := s.Stats()
	assert.Equal(t, uint64(2), stats.KeysScanned)
	assert.Equal(t, uint64(1), stats.RowsReturned)
}

func TestScanSkipsForeignKeys(t *testing.T) {
	st := store.NewMemory()
	put(t, st, "a##1##name", "X")
	put(t, st, "a##broken", "no attr part") // shares the literal prefix, does not parse
	put(t, st, "zzz##other", "different keyspace entirely")

	tbl := openUserTable(t, st)
	s, err := tbl.Scan(context.Background())
	require.NoError(t, err)
	defer s.Close()

	rows := collectRows(t, s)
	require.Len(t, rows, 1)

	stats := s.Stats()
	// a##broken is inside the seek prefix and counted as skipped;
	// zzz##other is outside the range and never visited.
	assert.Equal(t, uint64(2), stats.KeysScanned)
	assert.Equal(t, uint64(1), stats.KeysSkipped)
}

func TestScanDropsUnknownAttrs(t *testing.T) {
	st := store.NewMemory()
	put(t, st, "a##1##name", "X")
	put(t, st, "a##1##legacy_column", "from an older schema version")

	tbl := openUserTable(t, st)
	s, err := tbl.Scan(context.Background())
	require.NoError(t, err)
	defer s.Close()

	rows := collectRows(t, s)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0].Attrs, 1)
	_, ok := rows[0].Attr("legacy_column")
	assert.False(t, ok)
}

func TestScanDuplicateAttrLastWins(t *testing.T) {
	// Two keys with the same identity and attr cannot coexist in one store,
	// but a multi-capture pattern can make distinct keys parse to the same
	// attr after an unknown-capture collision; emulate with direct merging
	// order: iteration order is key order, so the later key wins.
	st := store.NewMemory()
	put(t, st, "a##1##name", "first")

	tbl := openUserTable(t, st)

	// Overwrite through the store between scans: last write wins on read.
	put(t, st, "a##1##name", "second")

	s, err := tbl.Scan(context.Background())
	require.NoError(t, err)
	defer s.Close()

	rows := collectRows(t, s)
	require.Len(t, rows, 1)
	name, _ := rows[0].Attr("name")
	assert.Equal(t, "second", name)
}

func TestScanEmptyStore(t *testing.T) {
	tbl := openUserTable(t, store.NewMemory())
	s, err := tbl.Scan(context.Background())
	require.NoError(t, err)
	defer s.Close()

	rows := collectRows(t, s)
	assert.Empty(t, rows)
	assert.Equal(t, ScanStats{}, s.Stats())
}

func TestScanMultiCaptureGrouping(t *testing.T) {
	st := store.NewMemory()
	cols := []projection.ColumnDef{
		{Name: "tenant", Ordinal: 1, Identity: true},
		{Name: "id", Ordinal: 2, Identity: true},
		{Name: "name", Ordinal: 3},
	}
	tbl, err := Open(st, "u##{tenant}##{id}##{attr}", cols)
	require.NoError(t, err)

	put(t, st, "u##acme##1##name", "A1")
	put(t, st, "u##acme##2##name", "A2")
	put(t, st, "u##beta##1##name", "B1")

	t.Run("full scan groups on both captures", func(t *testing.T) {
		s, err := tbl.Scan(context.Background())
		require.NoError(t, err)
		defer s.Close()

		rows := collectRows(t, s)
		require.Len(t, rows, 3)
		assert.Equal(t, []string{"acme", "1"}, rows[0].Identity)
		assert.Equal(t, []string{"acme", "2"}, rows[1].Identity)
		assert.Equal(t, []string{"beta", "1"}, rows[2].Identity)
	})

	t.Run("partial filter on leading capture", func(t *testing.T) {
		s, err := tbl.Scan(context.Background(), "acme")
		require.NoError(t, err)
		defer s.Close()

		rows := collectRows(t, s)
		require.Len(t, rows, 2)
		assert.Equal(t, uint64(2), s.Stats().KeysScanned)
	})
}

func TestScanRowsIterator(t *testing.T) {
	st := store.NewMemory()
	put(t, st, "a##1##name", "X")
	put(t, st, "a##2##name", "Y")

	tbl := openUserTable(t, st)
	s, err := tbl.Scan(context.Background())
	require.NoError(t, err)
	defer s.Close()

	var ids []string
	for row, err := range s.Rows() {
		require.NoError(t, err)
		ids = append(ids, row.Identity[0])
	}
	assert.Equal(t, []string{"1", "2"}, ids)
}

func TestScanContextCancellation(t *testing.T) {
	st := store.NewMemory()
	put(t, st, "a##1##name", "X")

	tbl := openUserTable(t, st)

	ctx, cancel := context.WithCancel(context.Background())
	s, err := tbl.Scan(ctx)
	require.NoError(t, err)
	defer s.Close()

	cancel()
	_, err = s.Next()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScannerClosed(t *testing.T) {
	tbl := openUserTable(t, store.NewMemory())
	s, err := tbl.Scan(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close()) // idempotent

	_, err = s.Next()
	assert.ErrorIs(t, err, ErrClosed)
}
