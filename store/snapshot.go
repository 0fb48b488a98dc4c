package store

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Snapshot format: a fixed header followed by a zstd stream of
// length-prefixed key/value records.
//
//	[4]byte magic "KPSN"
//	byte    version
//	zstd {
//	    uvarint entryCount
//	    entryCount × { uvarint keyLen, key, uvarint valueLen, value }
//	}
const (
	snapshotMagic   = "KPSN"
	snapshotVersion = 1
)

// ErrBadSnapshot is returned when snapshot data is malformed or truncated.
var ErrBadSnapshot = errors.New("malformed snapshot")

// Snapshot writes a point-in-time copy of the store contents to w.
// It operates on a tree clone, so writes may proceed concurrently.
func (m *Memory) Snapshot(w io.Writer) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	snap := m.tree.Clone()
	m.mu.RUnlock()

	if _, err := w.Write([]byte(snapshotMagic)); err != nil {
		return fmt.Errorf("snapshot header: %w", err)
	}
	if _, err := w.Write([]byte{snapshotVersion}); err != nil {
		return fmt.Errorf("snapshot header: %w", err)
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("snapshot compressor: %w", err)
	}

	var scratch [binary.MaxVarintLen64]byte
	writeUvarint := func(v uint64) error {
		n := binary.PutUvarint(scratch[:], v)
		_, err := enc.Write(scratch[:n])
		return err
	}

	if err := writeUvarint(uint64(snap.Len())); err != nil {
		enc.Close()
		return fmt.Errorf("snapshot count: %w", err)
	}

	var writeErr error
	snap.Ascend(func(e entry) bool {
		if writeErr = writeUvarint(uint64(len(e.key))); writeErr != nil {
			return false
		}
		if _, writeErr = enc.Write(e.key); writeErr != nil {
			return false
		}
		if writeErr = writeUvarint(uint64(len(e.value))); writeErr != nil {
			return false
		}
		_, writeErr = enc.Write(e.value)
		return writeErr == nil
	})
	if writeErr != nil {
		enc.Close()
		return fmt.Errorf("snapshot entry: %w", writeErr)
	}

	return enc.Close()
}

// RestoreMemory reads a snapshot produced by Snapshot into a fresh Memory
// store.
func RestoreMemory(r io.Reader) (*Memory, error) {
	header := make([]byte, len(snapshotMagic)+1)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: short header: %w", ErrBadSnapshot, err)
	}
	if string(header[:len(snapshotMagic)]) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrBadSnapshot)
	}
	if header[len(snapshotMagic)] != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadSnapshot, header[len(snapshotMagic)])
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	defer dec.Close()

	br := bufio.NewReader(dec)
	count, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, fmt.Errorf("%w: entry count: %w", ErrBadSnapshot, err)
	}

	m := NewMemory()
	readBlob := func() ([]byte, error) {
		n, err := binary.ReadUvarint(br)
		if err != nil {
			return nil, err
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(br, b); err != nil {
			return nil, err
		}
		return b, nil
	}

	for i := uint64(0); i < count; i++ {
		key, err := readBlob()
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d key: %w", ErrBadSnapshot, i, err)
		}
		value, err := readBlob()
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d value: %w", ErrBadSnapshot, i, err)
		}
		m.tree.ReplaceOrInsert(entry{key: key, value: value})
	}

	return m, nil
}
