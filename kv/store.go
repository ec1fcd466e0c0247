// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Getter defines methods to read kv.
type Getter interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	IsNotFound(err error) bool
}

// Putter defines methods to write kv.
type Putter interface {
	Put(key, val []byte) error
	Delete(key []byte) error
}

// PutFlusher is a putter whose writes become visible after Flush.
type PutFlusher interface {
	Putter
	Flush() error
}

// Pair defines key-value pair.
type Pair interface {
	Key() []byte
	Value() []byte
}

// Range is the key range.
type Range struct {
	Start []byte // start of key range (included)
	Limit []byte // limit of key range (excluded)
}

// Store defines the full functional kv store.
type Store interface {
	Getter
	Putter

	// Snapshot runs fn with a consistent read view.
	Snapshot(fn func(Getter) error) error
	// Batch collects writes made in fn and applies them atomically.
	Batch(fn func(PutFlusher) error) error
	// Iterate calls fn for each pair in range, stops when fn returns false.
	Iterate(r Range, fn func(Pair) bool) error
}
