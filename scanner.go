package keypivot

import (
	"bytes"
	"context"
	"fmt"
	"iter"

	"github.com/hupe1980/keypivot/store"
)

// ScanStats counts what a scan observed. Parse mismatches are expected on
// mixed-content stores and are counted, not reported as errors.
type ScanStats struct {
	KeysScanned  uint64 // keys visited inside the prefix range
	KeysSkipped  uint64 // keys that did not parse as instances of the pattern
	RowsReturned uint64
}

// Scanner streams assembled rows from one sorted pass over the store.
//
// A Scanner is single-owner: it must be driven by one goroutine and closed
// when done. It holds at most one row's attrs in memory regardless of store
// size. Correctness depends on the store iterating in lexicographic key
// order (see store.Store).
type Scanner struct {
	ctx   context.Context
	tbl   *Table
	it    store.Iterator
	seek  []byte // seek prefix; also the range bound
	stats ScanStats

	// Accumulation state for the group in progress.
	pending  bool
	identity []string // materialized capture values of the open group
	attrs    map[string]string

	exhausted bool
	closed    bool
}

// Scan starts a streaming scan. identityPrefix optionally fixes the leading
// capture values (partial equality filter); the scan is then restricted to
// the corresponding key range. The context is checked between steps, so a
// caller cancels a scan by cancelling ctx or simply by not calling Next
// again.
func (t *Table) Scan(ctx context.Context, identityPrefix ...string) (*Scanner, error) {
	seek, err := t.codec.BuildPrefix(identityPrefix...)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	it := t.st.NewIterator()
	if err := it.Error(); err != nil {
		it.Close()
		return nil, fmt.Errorf("scan: %w", err)
	}
	it.Seek(seek)

	return &Scanner{
		ctx:  ctx,
		tbl:  t,
		it:   it,
		seek: seek,
	}, nil
}

// Next returns the next assembled row, or (nil, nil) when the scan is done.
// The returned row is owned by the caller.
func (s *Scanner) Next() (*Row, error) {
	if s.closed {
		return nil, ErrClosed
	}

	for {
		if err := s.ctx.Err(); err != nil {
			return nil, err
		}

		if s.exhausted {
			return s.emitPending(), nil
		}

		if !s.it.Valid() {
			if err := s.it.Error(); err != nil {
				return nil, fmt.Errorf("scan: %w", err)
			}
			s.exhausted = true
			continue
		}

		key := s.it.Key()
		if !bytes.HasPrefix(key, s.seek) {
			// Past the prefix range; sorted order means nothing further
			// can match.
			s.exhausted = true
			continue
		}
		s.stats.KeysScanned++

		view, ok := s.tbl.codec.ParseView(key)
		if !ok {
			s.stats.KeysSkipped++
			s.it.Next()
			continue
		}

		if s.pending && !s.identityMatches(view.Captures) {
			// Group boundary: snapshot the finished row, then fold this
			// key into a fresh accumulation.
			row := s.emitPending()
			s.accumulate(view.Captures)
			s.mergeAttr(view.Attr, s.it.Value())
			s.it.Next()
			return row, nil
		}

		if !s.pending {
			s.accumulate(view.Captures)
		}
		s.mergeAttr(view.Attr, s.it.Value())
		s.it.Next()
	}
}

// identityMatches compares the open group's identity against a parsed view
// without materializing it.
func (s *Scanner) identityMatches(captures [][]byte) bool {
	for i, c := range captures {
		if string(c) != s.identity[i] {
			return false
		}
	}
	return true
}

// accumulate opens a new group. The view's capture slices are only valid
// until the iterator advances, so they are copied here.
func (s *Scanner) accumulate(captures [][]byte) {
	identity := make([]string, len(captures))
	for i, c := range captures {
		identity[i] = string(c)
	}
	s.pending = true
	s.identity = identity
	s.attrs = make(map[string]string, len(s.tbl.proj.AttrColumns()))
}

// mergeAttr folds one key's attr/value into the open group. Duplicate attrs
// within a group overwrite (last writer in iteration order wins); attrs
// outside the projection's column set are dropped (schema evolution
// tolerance).
func (s *Scanner) mergeAttr(attr, value []byte) {
	name := string(attr)
	if !s.tbl.proj.HasAttr(name) {
		return
	}
	s.attrs[name] = string(value)
}

// emitPending snapshots and clears the open group, or returns nil when none
// is open.
func (s *Scanner) emitPending() *Row {
	if !s.pending {
		return nil
	}
	row := &Row{Identity: s.identity, Attrs: s.attrs}
	s.pending = false
	s.identity = nil
	s.attrs = nil
	s.stats.RowsReturned++
	return row
}

// Rows adapts the scanner to a range-over-func sequence. Iteration stops at
// the first error; the scanner still needs Close.
func (s *Scanner) Rows() iter.Seq2[*Row, error] {
	return func(yield func(*Row, error) bool) {
		for {
			row, err := s.Next()
			if err != nil {
				yield(nil, err)
				return
			}
			if row == nil {
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// Stats returns the scan counters observed so far.
func (s *Scanner) Stats() ScanStats { return s.stats }

// Close releases the scanner's iterator. Closing twice is a no-op.
func (s *Scanner) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.it.Close()
	s.tbl.logger.LogScan(s.ctx, s.stats, nil)
	return err
}
