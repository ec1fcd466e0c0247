// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package fairshare keeps the running average weight of a group of members
// together with its time integral, so averages over any block range can be
// read back in constant time.
package fairshare

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/feepool/builtin/feepool/fixedpoint"
	"github.com/vechain/feepool/builtin/feepool/reverts"
	"github.com/vechain/feepool/builtin/solidity"
	"github.com/vechain/feepool/thor"
)

// Action is a membership change.
type Action uint8

const (
	Add Action = iota + 1
	Remove
	Update
)

func (a Action) String() string {
	switch a {
	case Add:
		return "add"
	case Remove:
		return "remove"
	case Update:
		return "update"
	}
	return "unknown"
}

// ParseAction resolves an action from its name.
func ParseAction(s string) (Action, bool) {
	for _, a := range []Action{Add, Remove, Update} {
		if a.String() == s {
			return a, true
		}
	}
	return 0, false
}

// State is the aggregate of one weighting group.
type State struct {
	MemberCount      uint64
	NormalizedWeight *big.Int
	HistoricalZ      *big.Int
	LastUpdateBlock  uint32
}

func (s *State) normalize() *State {
	for _, v := range []**big.Int{&s.NormalizedWeight, &s.HistoricalZ} {
		if *v == nil {
			*v = new(big.Int)
		}
	}
	return s
}

// Aggregator stores the group state. Readjust is its only mutator.
type Aggregator struct {
	state *solidity.Raw[*State]
}

func New(ctx *solidity.Context, pos thor.Bytes32) *Aggregator {
	return &Aggregator{state: solidity.NewRaw[*State](ctx, pos)}
}

// State returns the stored aggregate.
func (a *Aggregator) State() (*State, error) {
	s, err := a.state.Get()
	if err != nil {
		return nil, errors.Wrap(err, "fair share state")
	}
	return s.normalize(), nil
}

// Readjust applies a membership change at block. Add ignores oldWeight and
// Remove ignores newWeight.
func (a *Aggregator) Readjust(action Action, newWeight, oldWeight *big.Int, block uint32) (*State, error) {
	s, err := a.State()
	if err != nil {
		return nil, err
	}
	next, err := Step(s, action, newWeight, oldWeight, block)
	if err != nil {
		return nil, err
	}
	if err := a.state.Upsert(next); err != nil {
		return nil, errors.Wrap(err, "fair share state")
	}
	return next, nil
}

// Step computes the state after a membership change without storing it.
func Step(s *State, action Action, newWeight, oldWeight *big.Int, block uint32) (*State, error) {
	z, err := project(s, block)
	if err != nil {
		return nil, err
	}

	// the group total is rebuilt from the floored average
	count := s.MemberCount
	total := new(big.Int).Mul(s.NormalizedWeight, new(big.Int).SetUint64(count))
	switch action {
	case Add:
		count++
		total.Add(total, newWeight)
	case Remove:
		if count == 0 {
			return nil, reverts.New(reverts.KindInvariant, "member count below zero")
		}
		count--
		total.Sub(total, oldWeight)
	case Update:
		total.Sub(total, oldWeight).Add(total, newWeight)
	default:
		return nil, reverts.Newf(reverts.KindInvalidArgument, "unknown action %d", action)
	}
	if total.Sign() < 0 {
		return nil, reverts.New(reverts.KindInvariant, "total weight below zero")
	}

	normalized := new(big.Int)
	if count > 0 {
		normalized.Quo(total, new(big.Int).SetUint64(count))
	}
	return &State{
		MemberCount:      count,
		NormalizedWeight: normalized,
		HistoricalZ:      z,
		LastUpdateBlock:  block,
	}, nil
}

func project(s *State, block uint32) (*big.Int, error) {
	if block < s.LastUpdateBlock {
		return nil, reverts.Newf(reverts.KindOverflow, "block %d before last update %d", block, s.LastUpdateBlock)
	}
	elapsed := new(big.Int).SetUint64(uint64(block - s.LastUpdateBlock))
	z := new(big.Int).Mul(elapsed, s.NormalizedWeight)
	return z.Add(z, s.HistoricalZ), nil
}

// HistoricalZAt returns the accumulator as it would read at block.
func (a *Aggregator) HistoricalZAt(block uint32) (*big.Int, error) {
	s, err := a.State()
	if err != nil {
		return nil, err
	}
	return project(s, block)
}

// AverageWeight returns the mean normalized weight between two readings.
func AverageWeight(z1 *big.Int, b1 uint32, z2 *big.Int, b2 uint32) (*big.Int, error) {
	if b2 <= b1 {
		return nil, reverts.Newf(reverts.KindInvalidArgument, "empty block range [%d, %d)", b1, b2)
	}
	dz := new(big.Int).Sub(z2, z1)
	if dz.Sign() < 0 {
		return nil, reverts.New(reverts.KindInvariant, "accumulator decreased")
	}
	return dz.Quo(dz, new(big.Int).SetUint64(uint64(b2-b1))), nil
}

// ChannelWeight normalizes a contribution against the minimum contribution.
func ChannelWeight(contribution, minContribution *big.Int) (*big.Int, error) {
	c, err := fixedpoint.FromBig(contribution)
	if err != nil {
		return nil, err
	}
	m, err := fixedpoint.FromBig(minContribution)
	if err != nil {
		return nil, err
	}
	w, err := fixedpoint.Ratio(c, m)
	if err != nil {
		return nil, err
	}
	return w.ToBig(), nil
}
