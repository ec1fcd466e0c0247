// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/vechain/feepool/kv"
	"github.com/vechain/feepool/stackedmap"
	"github.com/vechain/feepool/thor"
)

const storageCacheSize = 4096

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

type storageKey struct {
	addr thor.Address
	key  thor.Bytes32
}

func (k storageKey) dbKey() []byte {
	return append(append(make([]byte, 0, thor.AddressLength+32), k.addr[:]...), k.key[:]...)
}

// State manages contract storage.
type State struct {
	store kv.Store
	cache *lru.ARCCache // committed raw values
	sm    *stackedmap.StackedMap[storageKey, rlp.RawValue]
}

// New create state object over the given store.
func New(store kv.Store) *State {
	cache, _ := lru.NewARC(storageCacheSize)
	s := &State{
		store: store,
		cache: cache,
	}
	s.reset()
	return s
}

func (s *State) reset() {
	s.sm = stackedmap.New[storageKey, rlp.RawValue](s.load)
}

// load implements stackedmap.MapGetter.
func (s *State) load(key storageKey) (rlp.RawValue, bool, error) {
	if v, ok := s.cache.Get(key); ok {
		metricStorageReads().AddWithLabel(1, map[string]string{"source": "cache"})
		return v.(rlp.RawValue), true, nil
	}
	metricStorageReads().AddWithLabel(1, map[string]string{"source": "store"})

	data, err := s.store.Get(key.dbKey())
	if err != nil {
		if !s.store.IsNotFound(err) {
			return nil, false, err
		}
		data = nil
	}
	s.cache.Add(key, rlp.RawValue(data))
	return data, true, nil
}

// GetStorage returns storage value for the given address and key.
func (s *State) GetStorage(addr thor.Address, key thor.Bytes32) (thor.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return thor.Bytes32{}, err
	}
	if len(raw) == 0 {
		return thor.Bytes32{}, nil
	}
	kind, content, _, err := rlp.Split(raw)
	if err != nil {
		return thor.Bytes32{}, &Error{err}
	}
	if kind == rlp.List {
		// customized storage value, return hash of raw data
		return thor.Blake2b(raw), nil
	}
	return thor.BytesToBytes32(content), nil
}

// SetStorage set storage value for the given address and key.
func (s *State) SetStorage(addr thor.Address, key, value thor.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	v, _ := rlp.EncodeToBytes(bytes.TrimLeft(value[:], "\x00"))
	s.SetRawStorage(addr, key, v)
}

// GetRawStorage returns storage value in rlp raw for given address and key.
func (s *State) GetRawStorage(addr thor.Address, key thor.Bytes32) (rlp.RawValue, error) {
	data, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, &Error{err}
	}
	return data, nil
}

// SetRawStorage set storage value in rlp raw.
func (s *State) SetRawStorage(addr thor.Address, key thor.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// EncodeStorage set storage value encoded by given enc method.
// Error returned by enc will be absorbed by State instance.
func (s *State) EncodeStorage(addr thor.Address, key thor.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
// Error returned by dec will be absorbed by State instance.
func (s *State) DecodeStorage(addr thor.Address, key thor.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
}

// Dirty returns whether there are uncommitted writes.
func (s *State) Dirty() bool {
	dirty := false
	s.sm.Journal(func(storageKey, rlp.RawValue) bool {
		dirty = true
		return false
	})
	return dirty
}

// Commit writes all uncommitted changes into the store in one batch.
// All checkpoints are discarded afterwards.
func (s *State) Commit() error {
	changes := make(map[storageKey]rlp.RawValue)
	s.sm.Journal(func(key storageKey, value rlp.RawValue) bool {
		changes[key] = value
		return true
	})
	if len(changes) == 0 {
		return nil
	}

	if err := s.store.Batch(func(w kv.PutFlusher) error {
		for key, value := range changes {
			if len(value) == 0 {
				if err := w.Delete(key.dbKey()); err != nil {
					return err
				}
				continue
			}
			if err := w.Put(key.dbKey(), value); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return &Error{errors.Wrap(err, "commit storage")}
	}

	for key, value := range changes {
		s.cache.Add(key, value)
	}
	metricCommittedKeys().Add(int64(len(changes)))
	s.reset()
	return nil
}

// IterateStorage iterates committed storage slots of the given address.
func (s *State) IterateStorage(addr thor.Address, fn func(key thor.Bytes32, raw rlp.RawValue) bool) error {
	prefix := kv.Bucket(addr.Bytes())
	return prefix.NewStore(s.store).Iterate(kv.Range{}, func(pair kv.Pair) bool {
		return fn(thor.BytesToBytes32(pair.Key()), pair.Value())
	})
}
