// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package epoch maps block numbers to 1-based epoch ids.
package epoch

import (
	"math"

	"github.com/vechain/feepool/builtin/feepool/reverts"
)

// Relative returns the epoch of block `to` counted from block `from`.
// The block `from` itself is in epoch 1.
func Relative(from, to, duration uint32) (uint32, error) {
	if duration == 0 {
		return 0, reverts.New(reverts.KindInvalidArgument, "zero epoch duration")
	}
	if to < from {
		return 0, reverts.Newf(reverts.KindOverflow, "block %d before genesis %d", to, from)
	}
	id := uint64(to-from)/uint64(duration) + 1
	if id > math.MaxUint32 {
		return 0, reverts.New(reverts.KindOverflow, "epoch id exceeds uint32")
	}
	return uint32(id), nil
}

// Clock is the epoch configuration fixed at initialization.
type Clock struct {
	Genesis  uint32
	Duration uint32
}

// ID returns the epoch the block belongs to.
func (c Clock) ID(block uint32) (uint32, error) {
	return Relative(c.Genesis, block, c.Duration)
}

// StartBlock returns the first block of the epoch.
func (c Clock) StartBlock(epoch uint32) (uint32, error) {
	if epoch == 0 {
		return 0, reverts.New(reverts.KindInvalidArgument, "epoch ids start at 1")
	}
	start := uint64(c.Genesis) + uint64(epoch-1)*uint64(c.Duration)
	if start > math.MaxUint32 {
		return 0, reverts.Newf(reverts.KindOverflow, "start block of epoch %d exceeds uint32", epoch)
	}
	return uint32(start), nil
}

// EndBlock returns the last block of the epoch.
func (c Clock) EndBlock(epoch uint32) (uint32, error) {
	start, err := c.StartBlock(epoch)
	if err != nil {
		return 0, err
	}
	end := uint64(start) + uint64(c.Duration) - 1
	if end > math.MaxUint32 {
		return math.MaxUint32, nil
	}
	return uint32(end), nil
}
