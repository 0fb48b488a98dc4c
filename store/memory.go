package store

import (
	"bytes"
	"sync"

	"github.com/google/btree"
)

// entry is one key-value pair in the btree, ordered by key bytes.
type entry struct {
	key   []byte
	value []byte
}

func entryLess(a, b entry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// btreeDegree balances node fanout against copy cost on clone; matches the
// default used across google/btree consumers.
const btreeDegree = 32

// Memory is an in-memory sorted Store backed by a copy-on-write B-tree.
// It is suitable for datasets that fit in memory and for tests; iterators
// run over a cloned snapshot of the tree, so concurrent writes never
// invalidate a running scan.
type Memory struct {
	mu     sync.RWMutex
	tree   *btree.BTreeG[entry]
	closed bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tree: btree.NewG(btreeDegree, entryLess),
	}
}

// Get retrieves the value for key.
func (m *Memory) Get(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, false, ErrClosed
	}
	e, ok := m.tree.Get(entry{key: key})
	if !ok {
		return nil, false, nil
	}
	return e.value, true, nil
}

// Put stores value under key. Key and value are copied; the caller may reuse
// its buffers.
func (m *Memory) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.put(key, value)
	return nil
}

// put inserts a defensive copy. Caller holds the write lock.
func (m *Memory) put(key, value []byte) {
	m.tree.ReplaceOrInsert(entry{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
}

// Delete removes key. Absent keys are a no-op.
func (m *Memory) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.tree.Delete(entry{key: key})
	return nil
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.tree.Len()
}

// Clear removes all entries.
func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.tree = btree.NewG(btreeDegree, entryLess)
	return nil
}

// Close marks the store closed. Subsequent operations return ErrClosed;
// already-created iterators keep their snapshot and remain usable.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.tree = btree.NewG(btreeDegree, entryLess)
	return nil
}

// NewIterator returns a forward iterator over a snapshot of the current
// contents.
func (m *Memory) NewIterator() Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var snap *btree.BTreeG[entry]
	var err error
	if m.closed {
		err = ErrClosed
	} else {
		snap = m.tree.Clone()
	}
	return &memoryIterator{snap: snap, err: err}
}

// memoryIterator walks a cloned tree. Each advance re-seeks from the current
// key; the clone is immutable so positions are stable.
type memoryIterator struct {
	snap   *btree.BTreeG[entry]
	cur    entry
	valid  bool
	err    error
	closed bool
}

func (it *memoryIterator) Seek(key []byte) {
	if it.err != nil || it.closed {
		return
	}
	it.valid = false
	it.snap.AscendGreaterOrEqual(entry{key: key}, func(e entry) bool {
		it.cur = e
		it.valid = true
		return false
	})
}

func (it *memoryIterator) Next() {
	if !it.valid || it.closed {
		return
	}
	prev := it.cur.key
	it.valid = false
	it.snap.AscendGreaterOrEqual(entry{key: prev}, func(e entry) bool {
		if bytes.Equal(e.key, prev) {
			return true
		}
		it.cur = e
		it.valid = true
		return false
	})
}

func (it *memoryIterator) Valid() bool { return it.valid && !it.closed }

func (it *memoryIterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.cur.key
}

func (it *memoryIterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	return it.cur.value
}

func (it *memoryIterator) Error() error { return it.err }

func (it *memoryIterator) Close() error {
	it.closed = true
	it.valid = false
	it.snap = nil
	return nil
}

// NewBatch returns an empty batch bound to this store.
func (m *Memory) NewBatch() Batch {
	return &memoryBatch{store: m}
}

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

// memoryBatch buffers operations and applies them under one write-lock
// acquisition, so readers observe either none or all of a committed batch.
type memoryBatch struct {
	store *Memory
	ops   []batchOp
}

func (b *memoryBatch) Put(key, value []byte) {
	b.ops = append(b.ops, batchOp{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
}

func (b *memoryBatch) Delete(key []byte) {
	b.ops = append(b.ops, batchOp{
		key:    append([]byte(nil), key...),
		delete: true,
	})
}

func (b *memoryBatch) Len() int { return len(b.ops) }

func (b *memoryBatch) Commit() error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	if b.store.closed {
		return ErrClosed
	}
	for _, op := range b.ops {
		if op.delete {
			b.store.tree.Delete(entry{key: op.key})
		} else {
			b.store.tree.ReplaceOrInsert(entry{key: op.key, value: op.value})
		}
	}
	b.ops = nil
	return nil
}

func (b *memoryBatch) Discard() {
	b.ops = nil
}
