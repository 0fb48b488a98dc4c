package keypivot

import (
	"bytes"
	"context"
	"fmt"

	"github.com/hupe1980/keypivot/keycodec"
	"github.com/hupe1980/keypivot/store"
)

// WriteOutcome counts the keys one write operation touched. Purely
// informational.
type WriteOutcome struct {
	KeysPut     int
	KeysDeleted int
}

func (o WriteOutcome) add(other WriteOutcome) WriteOutcome {
	o.KeysPut += other.KeysPut
	o.KeysDeleted += other.KeysDeleted
	return o
}

// Insert writes a row as one key per non-null attr column. NULL attrs are
// simply not written: absence reads back as NULL, no tombstone needed.
// Attrs outside the projection's column set are ignored. All puts go through
// one atomic batch — either the whole row lands or none of it.
func (t *Table) Insert(ctx context.Context, row *Row) (WriteOutcome, error) {
	batch := t.st.NewBatch()
	outcome, err := t.insertInto(batch, row)
	if err != nil {
		batch.Discard()
		t.logger.LogWrite(ctx, "insert", outcome, err)
		return WriteOutcome{}, err
	}
	if err := batch.Commit(); err != nil {
		t.logger.LogWrite(ctx, "insert", outcome, err)
		return WriteOutcome{}, fmt.Errorf("insert: %w", err)
	}
	t.logger.LogWrite(ctx, "insert", outcome, nil)
	return outcome, nil
}

func (t *Table) insertInto(batch store.Batch, row *Row) (WriteOutcome, error) {
	var outcome WriteOutcome

	identity, err := t.identityValues(row)
	if err != nil {
		return outcome, fmt.Errorf("insert: %w", err)
	}

	for _, col := range t.proj.AttrColumns() {
		value, ok := row.Attrs[col.Name]
		if !ok {
			continue
		}
		key, err := t.codec.Build(identity, col.Name)
		if err != nil {
			return outcome, fmt.Errorf("insert: %w", err)
		}
		batch.Put(key, []byte(value))
		outcome.KeysPut++
	}
	return outcome, nil
}

// Update applies newRow over oldRow.
//
// If the identity changed, every key under the old identity is deleted and
// the new row is inserted — the row's keys move entirely. With an unchanged
// identity, every non-null attr of newRow is put (create or overwrite) and
// every attr that went non-null → null has its key deleted; that is how
// "set column to NULL" removes the entry from the store. One atomic batch
// covers the whole operation.
func (t *Table) Update(ctx context.Context, oldRow, newRow *Row) (WriteOutcome, error) {
	var outcome WriteOutcome

	oldIdentity, err := t.identityValues(oldRow)
	if err != nil {
		return outcome, fmt.Errorf("update: %w", err)
	}
	newIdentity, err := t.identityValues(newRow)
	if err != nil {
		return outcome, fmt.Errorf("update: %w", err)
	}

	batch := t.st.NewBatch()

	if !stringsEqual(oldIdentity, newIdentity) {
		deleted, err := t.deleteIdentityInto(batch, oldIdentity)
		if err != nil {
			batch.Discard()
			return WriteOutcome{}, fmt.Errorf("update: %w", err)
		}
		inserted, err := t.insertInto(batch, newRow)
		if err != nil {
			batch.Discard()
			return WriteOutcome{}, fmt.Errorf("update: %w", err)
		}
		outcome = WriteOutcome{KeysDeleted: deleted}.add(inserted)
	} else {
		for _, col := range t.proj.AttrColumns() {
			newValue, newOk := newRow.Attrs[col.Name]
			_, oldOk := oldRow.Attrs[col.Name]
			switch {
			case newOk:
				key, err := t.codec.Build(newIdentity, col.Name)
				if err != nil {
					batch.Discard()
					return WriteOutcome{}, fmt.Errorf("update: %w", err)
				}
				batch.Put(key, []byte(newValue))
				outcome.KeysPut++
			case oldOk:
				key, err := t.codec.Build(newIdentity, col.Name)
				if err != nil {
					batch.Discard()
					return WriteOutcome{}, fmt.Errorf("update: %w", err)
				}
				batch.Delete(key)
				outcome.KeysDeleted++
			}
		}
	}

	if err := batch.Commit(); err != nil {
		t.logger.LogWrite(ctx, "update", outcome, err)
		return WriteOutcome{}, fmt.Errorf("update: %w", err)
	}
	t.logger.LogWrite(ctx, "update", outcome, nil)
	return outcome, nil
}

// Delete removes every key belonging to the row's identity.
func (t *Table) Delete(ctx context.Context, row *Row) (WriteOutcome, error) {
	identity, err := t.identityValues(row)
	if err != nil {
		return WriteOutcome{}, fmt.Errorf("delete: %w", err)
	}
	return t.DeleteIdentity(ctx, identity...)
}

// DeleteIdentity removes every key belonging to the given identity.
//
// The store may hold attrs from other schema versions under the same
// identity, so this cannot just delete the projection's known columns: it
// seeks to the identity's prefix, parses forward and deletes every key whose
// identity matches exactly. Keys that do not parse are left alone.
func (t *Table) DeleteIdentity(ctx context.Context, identity ...string) (WriteOutcome, error) {
	captures := t.proj.Pattern().Captures()
	for i, v := range identity {
		if i < len(captures) && v == "" {
			return WriteOutcome{}, fmt.Errorf("delete: %w", &NullIdentityError{Column: captures[i]})
		}
	}

	batch := t.st.NewBatch()
	deleted, err := t.deleteIdentityInto(batch, identity)
	if err != nil {
		batch.Discard()
		t.logger.LogWrite(ctx, "delete", WriteOutcome{}, err)
		return WriteOutcome{}, fmt.Errorf("delete: %w", err)
	}
	if err := batch.Commit(); err != nil {
		t.logger.LogWrite(ctx, "delete", WriteOutcome{}, err)
		return WriteOutcome{}, fmt.Errorf("delete: %w", err)
	}

	outcome := WriteOutcome{KeysDeleted: deleted}
	t.logger.LogWrite(ctx, "delete", outcome, nil)
	return outcome, nil
}

// deleteIdentityInto buffers deletes for every key under identity into
// batch and returns the count.
func (t *Table) deleteIdentityInto(batch store.Batch, identity []string) (int, error) {
	if len(identity) != t.proj.Pattern().NumCaptures() {
		return 0, &keycodec.ArityError{Want: t.proj.Pattern().NumCaptures(), Got: len(identity)}
	}

	prefix, err := t.codec.BuildPrefix(identity...)
	if err != nil {
		return 0, err
	}

	it := t.st.NewIterator()
	defer it.Close()

	it.Seek(prefix)
	deleted := 0
	for it.Valid() {
		key := it.Key()
		if !bytes.HasPrefix(key, prefix) {
			break
		}
		if view, ok := t.codec.ParseView(key); ok && capturesEqual(view.Captures, identity) {
			batch.Delete(key)
			deleted++
		}
		it.Next()
	}
	if err := it.Error(); err != nil {
		return 0, err
	}
	return deleted, nil
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func capturesEqual(captures [][]byte, identity []string) bool {
	if len(captures) != len(identity) {
		return false
	}
	for i, c := range captures {
		if string(c) != identity[i] {
			return false
		}
	}
	return true
}
