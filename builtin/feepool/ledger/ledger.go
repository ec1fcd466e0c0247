// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ledger records stake deposits and the weight series derived from them.
package ledger

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/feepool/builtin/feepool/checkpoints"
	"github.com/vechain/feepool/builtin/feepool/epoch"
	"github.com/vechain/feepool/builtin/feepool/reverts"
	"github.com/vechain/feepool/builtin/solidity"
	"github.com/vechain/feepool/thor"
)

var (
	slotStakes       = thor.BytesToBytes32([]byte("ledger-stakes"))
	slotTotalWeight  = thor.BytesToBytes32([]byte("ledger-total-weight"))
	slotUserWeights  = thor.BytesToBytes32([]byte("ledger-user-weights"))
	slotTotalStake   = thor.BytesToBytes32([]byte("ledger-total-staked"))
	slotParticipants = thor.BytesToBytes32([]byte("ledger-participants"))
)

// StakeInfo is the per participant stake record. It is created on the first
// stake and never removed.
type StakeInfo struct {
	StakedAmount     *big.Int
	StakedWeight     *big.Int
	LastStakedBlock  uint32
	LastClaimedBlock uint32
	RewardsClaimed   *big.Int
	Created          bool
}

func (s *StakeInfo) normalize() *StakeInfo {
	if s.StakedAmount == nil {
		s.StakedAmount = new(big.Int)
	}
	if s.StakedWeight == nil {
		s.StakedWeight = new(big.Int)
	}
	if s.RewardsClaimed == nil {
		s.RewardsClaimed = new(big.Int)
	}
	return s
}

// Exists reports whether the participant has ever staked.
func (s *StakeInfo) Exists() bool {
	return s.Created
}

// ClockFunc supplies the epoch clock, failing before initialization.
type ClockFunc func() (epoch.Clock, error)

// Ledger owns stake records plus participant and total weight series.
type Ledger struct {
	ctx          *solidity.Context
	clock        ClockFunc
	policy       WeightPolicy
	stakes       *solidity.Mapping[thor.Address, *StakeInfo]
	totalWeight  *checkpoints.Series
	totalStaked  *solidity.Uint256
	participants *solidity.Uint256
}

func New(ctx *solidity.Context, clock ClockFunc, policy WeightPolicy) *Ledger {
	if policy == nil {
		policy = AmountWeight{}
	}
	return &Ledger{
		ctx:          ctx,
		clock:        clock,
		policy:       policy,
		stakes:       solidity.NewMapping[thor.Address, *StakeInfo](ctx, slotStakes),
		totalWeight:  checkpoints.New(ctx, slotTotalWeight),
		totalStaked:  solidity.NewUint256(ctx, slotTotalStake),
		participants: solidity.NewUint256(ctx, slotParticipants),
	}
}

func (l *Ledger) userWeights(participant thor.Address) *checkpoints.Series {
	return checkpoints.New(l.ctx, thor.Blake2b(participant.Bytes(), slotUserWeights.Bytes()))
}

// Policy returns the weight law in use.
func (l *Ledger) Policy() WeightPolicy {
	return l.policy
}

// Info returns the stake record, zero valued when the participant never staked.
func (l *Ledger) Info(participant thor.Address) (*StakeInfo, error) {
	info, err := l.stakes.Get(participant)
	if err != nil {
		return nil, errors.Wrap(err, "stake info")
	}
	return info.normalize(), nil
}

func (l *Ledger) setInfo(participant thor.Address, info *StakeInfo, created bool) error {
	if err := l.stakes.Set(participant, info, created); err != nil {
		return errors.Wrap(err, "stake info")
	}
	return nil
}

// RecordStake adds a deposit made at block. A new participant's claim marker
// starts at genesis.
func (l *Ledger) RecordStake(participant thor.Address, amount *big.Int, block uint32) (*StakeInfo, error) {
	if amount.Sign() <= 0 {
		return nil, reverts.New(reverts.KindInvalidArgument, "stake amount must be positive")
	}
	clock, err := l.clock()
	if err != nil {
		return nil, err
	}
	info, err := l.Info(participant)
	if err != nil {
		return nil, err
	}
	created := !info.Exists()

	weight := l.policy.Weight(amount, clock, block)
	if created {
		info.Created = true
		info.LastClaimedBlock = clock.Genesis
	}
	if err := l.adjust(clock, participant, weight, block); err != nil {
		return nil, err
	}

	info.StakedAmount = new(big.Int).Add(info.StakedAmount, amount)
	info.StakedWeight = new(big.Int).Add(info.StakedWeight, weight)
	info.LastStakedBlock = block
	if err := l.setInfo(participant, info, created); err != nil {
		return nil, err
	}

	if created {
		if err := l.participants.Add(big.NewInt(1)); err != nil {
			return nil, errors.Wrap(err, "participants")
		}
	}
	if err := l.totalStaked.Add(amount); err != nil {
		return nil, errors.Wrap(err, "total staked")
	}
	return info, nil
}

// RecordUnstake withdraws amount and the proportional share of weight.
func (l *Ledger) RecordUnstake(participant thor.Address, amount *big.Int, block uint32) (*StakeInfo, error) {
	if amount.Sign() <= 0 {
		return nil, reverts.New(reverts.KindInvalidArgument, "unstake amount must be positive")
	}
	clock, err := l.clock()
	if err != nil {
		return nil, err
	}
	info, err := l.Info(participant)
	if err != nil {
		return nil, err
	}
	if info.StakedAmount.Cmp(amount) < 0 {
		return nil, reverts.Newf(reverts.KindInsufficientStake, "unstake %v exceeds stake %v", amount, info.StakedAmount)
	}

	removed := new(big.Int).Set(info.StakedWeight)
	if info.StakedAmount.Cmp(amount) != 0 {
		removed.Mul(removed, amount).Quo(removed, info.StakedAmount)
	}
	if err := l.adjust(clock, participant, new(big.Int).Neg(removed), block); err != nil {
		return nil, err
	}

	info.StakedAmount = new(big.Int).Sub(info.StakedAmount, amount)
	info.StakedWeight = new(big.Int).Sub(info.StakedWeight, removed)
	if err := l.setInfo(participant, info, false); err != nil {
		return nil, err
	}
	if err := l.totalStaked.Sub(amount); err != nil {
		if errors.Is(err, solidity.ErrUint256Underflow) {
			return nil, reverts.New(reverts.KindInvariant, "total staked below participant stake")
		}
		return nil, errors.Wrap(err, "total staked")
	}
	return info, nil
}

// RecordClaim advances the claim marker and accumulates the payout.
func (l *Ledger) RecordClaim(participant thor.Address, lastClaimedBlock uint32, amount *big.Int) (*StakeInfo, error) {
	info, err := l.Info(participant)
	if err != nil {
		return nil, err
	}
	if lastClaimedBlock < info.LastClaimedBlock {
		return nil, reverts.Newf(reverts.KindInvariant, "claim marker moves back from %d to %d", info.LastClaimedBlock, lastClaimedBlock)
	}
	info.LastClaimedBlock = lastClaimedBlock
	info.RewardsClaimed = new(big.Int).Add(info.RewardsClaimed, amount)
	if err := l.setInfo(participant, info, false); err != nil {
		return nil, err
	}
	return info, nil
}

// adjust moves the participant and total weight of the current epoch by delta,
// carrying the last known values forward first.
func (l *Ledger) adjust(clock epoch.Clock, participant thor.Address, delta *big.Int, block uint32) error {
	id, err := clock.ID(block)
	if err != nil {
		return err
	}

	user := l.userWeights(participant)
	w, err := user.At(id)
	if err != nil {
		return err
	}
	nw := new(big.Int).Add(w, delta)
	if nw.Sign() < 0 {
		return reverts.Newf(reverts.KindInvariant, "participant weight below zero at epoch %d", id)
	}
	if err := user.Push(id, nw); err != nil {
		return err
	}

	total, err := l.totalWeight.At(id)
	if err != nil {
		return err
	}
	nt := new(big.Int).Add(total, delta)
	if nt.Sign() < 0 {
		return reverts.Newf(reverts.KindInvariant, "total weight below zero at epoch %d", id)
	}
	return l.totalWeight.Push(id, nt)
}

// WeightAt returns the participant weight in effect at the end of epoch.
func (l *Ledger) WeightAt(participant thor.Address, id uint32) (*big.Int, error) {
	return l.userWeights(participant).At(id)
}

// TotalWeightAt returns the total weight in effect at the end of epoch.
func (l *Ledger) TotalWeightAt(id uint32) (*big.Int, error) {
	return l.totalWeight.At(id)
}

// TotalStaked returns the sum of all current deposits.
func (l *Ledger) TotalStaked() (*big.Int, error) {
	return l.totalStaked.Get()
}

// Participants returns how many addresses have ever staked.
func (l *Ledger) Participants() (uint64, error) {
	n, err := l.participants.Get()
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}
