// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package claim settles the rewards a participant earned over finished epochs.
package claim

import (
	"math"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/vechain/feepool/builtin/feepool/fixedpoint"
	"github.com/vechain/feepool/builtin/feepool/ledger"
	"github.com/vechain/feepool/builtin/feepool/rewards"
	"github.com/vechain/feepool/thor"
)

// Engine pays out shares of the reward buckets in proportion to weight.
type Engine struct {
	ledger *ledger.Ledger
	pool   *rewards.Pool
}

func New(ledger *ledger.Ledger, pool *rewards.Pool) *Engine {
	return &Engine{ledger: ledger, pool: pool}
}

// Result describes one settlement.
type Result struct {
	Amount           *big.Int
	FromEpoch        uint32
	ToEpoch          uint32 // exclusive
	LastClaimedBlock uint32
	Settled          bool
}

// Settle pays every finished epoch since the last claim.
func (e *Engine) Settle(participant thor.Address, block uint32) (*Result, error) {
	return e.settle(participant, math.MaxUint32, block)
}

// SettleUntil pays finished epochs up to, but excluding, toEpoch. The claim
// marker stops at the start of toEpoch when that is before the current epoch.
func (e *Engine) SettleUntil(participant thor.Address, toEpoch uint32, block uint32) (*Result, error) {
	return e.settle(participant, toEpoch, block)
}

// Preview computes what Settle would pay without changing state.
func (e *Engine) Preview(participant thor.Address, block uint32) (*Result, error) {
	return e.compute(participant, math.MaxUint32, block)
}

func (e *Engine) settle(participant thor.Address, toEpoch uint32, block uint32) (*Result, error) {
	res, err := e.compute(participant, toEpoch, block)
	if err != nil || !res.Settled {
		return res, err
	}
	if _, err := e.ledger.RecordClaim(participant, res.LastClaimedBlock, res.Amount); err != nil {
		return nil, err
	}
	if err := e.pool.Deduct(res.Amount); err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) compute(participant thor.Address, toEpoch uint32, block uint32) (*Result, error) {
	clock, err := e.pool.Clock()
	if err != nil {
		return nil, err
	}
	current, err := clock.ID(block)
	if err != nil {
		return nil, err
	}
	info, err := e.ledger.Info(participant)
	if err != nil {
		return nil, err
	}

	res := &Result{Amount: new(big.Int)}
	if !info.Exists() {
		return res, nil
	}
	from, err := clock.ID(info.LastClaimedBlock)
	if err != nil {
		return nil, err
	}
	bound := min(toEpoch, current)
	res.FromEpoch, res.ToEpoch = from, bound
	if from >= bound {
		return res, nil
	}

	acc := new(uint256.Int)
	weighted := false
	for id := from; id < bound; id++ {
		w, err := e.ledger.WeightAt(participant, id)
		if err != nil {
			return nil, err
		}
		if w.Sign() == 0 {
			continue
		}
		weighted = true

		total, err := e.ledger.TotalWeightAt(id)
		if err != nil {
			return nil, err
		}
		if total.Sign() == 0 {
			continue
		}
		bucket, err := e.pool.Bucket(id)
		if err != nil {
			return nil, err
		}
		if bucket.Sign() == 0 {
			continue
		}

		share, err := scaledShare(bucket, w, total)
		if err != nil {
			return nil, err
		}
		if acc, err = fixedpoint.Add(acc, share); err != nil {
			return nil, err
		}
	}
	if !weighted {
		return res, nil
	}

	res.Amount = fixedpoint.Descale(acc).ToBig()
	res.LastClaimedBlock = block
	if bound < current {
		if res.LastClaimedBlock, err = clock.StartBlock(bound); err != nil {
			return nil, err
		}
	}
	res.Settled = true
	return res, nil
}

func scaledShare(bucket, weight, total *big.Int) (*uint256.Int, error) {
	b, err := fixedpoint.FromBig(bucket)
	if err != nil {
		return nil, err
	}
	w, err := fixedpoint.FromBig(weight)
	if err != nil {
		return nil, err
	}
	t, err := fixedpoint.FromBig(total)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Share(b, w, t)
}
