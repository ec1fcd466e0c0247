// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package host runs a FeePool against a simulated block clock. It
// serialises every call, commits applied operations to the store and
// journals them.
package host

import (
	"context"
	"encoding/binary"
	"math"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/feepool/activitydb"
	"github.com/vechain/feepool/builtin/feepool"
	"github.com/vechain/feepool/builtin/feepool/reverts"
	"github.com/vechain/feepool/co"
	"github.com/vechain/feepool/kv"
	"github.com/vechain/feepool/log"
	"github.com/vechain/feepool/state"
	"github.com/vechain/feepool/thor"
)

var (
	logger = log.WithContext("pkg", "host")

	stateBucket = kv.Bucket("s")
	metaBucket  = kv.Bucket("m")
	keyBlock    = []byte("block")
)

type Options struct {
	Pool       feepool.Options
	StartBlock uint32
}

// UpdateFunc mutates the pool at the given block and reports the moved amounts.
type UpdateFunc func(pool *feepool.FeePool, block uint32) (amount, reward *big.Int, err error)

// Receipt describes an applied operation.
type Receipt struct {
	Activity *activitydb.Activity
	Gas      uint64
}

type Host struct {
	mu         sync.Mutex
	meta       kv.Store
	state      *state.State
	pool       *feepool.FeePool
	activities *activitydb.ActivityDB
	block      uint32
	newBlock   co.Signal
}

// New opens a host over store. The block number resumes from the store
// when present.
func New(store kv.Store, activities *activitydb.ActivityDB, opts Options) (*Host, error) {
	meta := metaBucket.NewStore(store)
	block := opts.StartBlock
	val, err := meta.Get(keyBlock)
	switch {
	case err == nil && len(val) == 4:
		block = binary.BigEndian.Uint32(val)
	case err != nil && !meta.IsNotFound(err):
		return nil, errors.Wrap(err, "load block number")
	}

	st := state.New(stateBucket.NewStore(store))
	return &Host{
		meta:       meta,
		state:      st,
		pool:       feepool.New(st, opts.Pool),
		activities: activities,
		block:      block,
	}, nil
}

// Block returns the current block number.
func (h *Host) Block() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.block
}

// NewBlock returns a channel closed when the block advances.
func (h *Host) NewBlock() <-chan struct{} {
	return h.newBlock.Wait()
}

// Tick advances the clock by n blocks.
func (h *Host) Tick(n uint32) (uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if uint64(h.block)+uint64(n) > math.MaxUint32 {
		return h.block, reverts.New(reverts.KindOverflow, "block number exceeds uint32")
	}
	return h.setBlock(h.block + n)
}

// SetBlock moves the clock forward to block.
func (h *Host) SetBlock(block uint32) (uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if block < h.block {
		return h.block, reverts.Newf(reverts.KindOverflow, "block %d before current block %d", block, h.block)
	}
	return h.setBlock(block)
}

func (h *Host) setBlock(block uint32) (uint32, error) {
	if block == h.block {
		return block, nil
	}
	var val [4]byte
	binary.BigEndian.PutUint32(val[:], block)
	if err := h.meta.Put(keyBlock, val[:]); err != nil {
		return h.block, errors.Wrap(err, "save block number")
	}
	h.block = block
	h.newBlock.Broadcast()
	metricBlock().Set(int64(block))
	return block, nil
}

// View runs fn with read access to the pool.
func (h *Host) View(fn func(pool *feepool.FeePool, block uint32) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.pool, h.block)
}

// Update applies fn at the current block, commits it and journals it.
func (h *Host) Update(ctx context.Context, op activitydb.Op, participant thor.Address, fn UpdateFunc) (*Receipt, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	checkpoint := h.state.NewCheckpoint()
	amount, reward, err := fn(h.pool, h.block)
	if err != nil {
		h.state.RevertTo(checkpoint)
		return nil, err
	}
	if err := h.state.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit state")
	}

	// the pool may not be initialized yet
	epoch, err := h.pool.EpochID(h.block)
	if err != nil && !errors.Is(err, reverts.ErrNotInitialized) {
		return nil, err
	}
	activity := activitydb.NewActivity(op, participant, h.block, epoch, amount, reward)
	if h.activities != nil {
		if err := h.activities.Insert(ctx, activity); err != nil {
			// the operation is committed, only the journal entry is lost
			logger.Error("failed to journal activity", "activity", activity, "err", err)
		}
	}
	logger.Debug("operation applied", "op", op, "participant", participant, "block", h.block, "gas", h.pool.GasUsed())
	return &Receipt{Activity: activity, Gas: h.pool.GasUsed()}, nil
}

// Configure applies admin settings at the current block and commits them
// without journaling.
func (h *Host) Configure(fn func(pool *feepool.FeePool, block uint32) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	checkpoint := h.state.NewCheckpoint()
	if err := fn(h.pool, h.block); err != nil {
		h.state.RevertTo(checkpoint)
		return err
	}
	return errors.Wrap(h.state.Commit(), "commit state")
}

// Dump walks the committed pool storage slots.
func (h *Host) Dump(fn func(slot thor.Bytes32, raw []byte) bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.IterateStorage(feepool.PoolAddress, func(key thor.Bytes32, raw rlp.RawValue) bool {
		return fn(key, raw)
	})
}

// Activities returns the operation journal, nil when disabled.
func (h *Host) Activities() *activitydb.ActivityDB {
	return h.activities
}
