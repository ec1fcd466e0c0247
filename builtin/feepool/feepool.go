// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package feepool implements the epoch windowed reward pool. Participants
// stake to earn a share of the protocol fees collected in every finished
// epoch, and channel lifecycle events feed a fair share aggregate.
package feepool

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/feepool/builtin/feepool/claim"
	"github.com/vechain/feepool/builtin/feepool/epoch"
	"github.com/vechain/feepool/builtin/feepool/fairshare"
	"github.com/vechain/feepool/builtin/feepool/ledger"
	"github.com/vechain/feepool/builtin/feepool/reverts"
	"github.com/vechain/feepool/builtin/feepool/rewards"
	"github.com/vechain/feepool/builtin/solidity"
	"github.com/vechain/feepool/log"
	"github.com/vechain/feepool/state"
	"github.com/vechain/feepool/thor"
)

var (
	logger = log.WithContext("pkg", "feepool")

	// PoolAddress owns the pool storage and the protocol seed stake.
	PoolAddress = thor.BytesToAddress(thor.Keccak256([]byte("FeePool")).Bytes())

	EpochDuration   = solidity.NewConfigVariable("feepool-epoch-duration", uint64(thor.EpochDuration))
	MinContribution = solidity.NewConfigVariable("feepool-min-contribution", 50) // whole tokens

	slotAdmin           = thor.BytesToBytes32([]byte("feepool-admin"))
	slotDuration        = thor.BytesToBytes32([]byte("feepool-duration"))
	slotMinContribution = thor.BytesToBytes32([]byte("feepool-min-contribution-wei"))
	slotLastBlock       = thor.BytesToBytes32([]byte("feepool-last-block"))
	slotChannels        = thor.BytesToBytes32([]byte("feepool-channels"))
	slotChannelWeights  = thor.BytesToBytes32([]byte("feepool-channel-weights"))
)

func SetLogger(l log.Logger) {
	logger = l
}

// Options configures a FeePool.
type Options struct {
	// Admin is in charge until SetAdmin stores another address.
	Admin thor.Address
	// Policy is the stake weight law, AmountWeight when nil.
	Policy ledger.WeightPolicy
	// SeedStake is staked under PoolAddress at initialization.
	SeedStake *big.Int
	// Charger receives the storage cost of every slot access.
	Charger solidity.UseGasFunc
}

type lastBlock struct {
	Block uint32
	Seen  bool
}

// FeePool is the entry point for every pool operation. Each mutating call
// is applied in full or not at all.
type FeePool struct {
	state *state.State
	opts  Options

	admin           *solidity.Address
	duration        *solidity.Raw[uint32]
	minContribution *solidity.Uint256
	last            *solidity.Raw[*lastBlock]

	pool     *rewards.Pool
	ledger   *ledger.Ledger
	claims   *claim.Engine
	channels *fairshare.Aggregator

	channelWeights *solidity.Mapping[thor.Address, *big.Int]

	gas uint64
}

// New creates a FeePool over the given state.
func New(st *state.State, opts Options) *FeePool {
	f := &FeePool{state: st, opts: opts}
	sctx := solidity.NewContext(PoolAddress, st, f.useGas)

	// debug overrides for testing
	EpochDuration.Override(sctx)
	MinContribution.Override(sctx)

	f.admin = solidity.NewAddress(sctx, slotAdmin)
	f.duration = solidity.NewRaw[uint32](sctx, slotDuration)
	f.minContribution = solidity.NewUint256(sctx, slotMinContribution)
	f.last = solidity.NewRaw[*lastBlock](sctx, slotLastBlock)

	f.pool = rewards.New(sctx)
	f.ledger = ledger.New(sctx, f.pool.Clock, opts.Policy)
	f.claims = claim.New(f.ledger, f.pool)
	f.channels = fairshare.New(sctx, slotChannels)
	f.channelWeights = solidity.NewMapping[thor.Address, *big.Int](sctx, slotChannelWeights)
	return f
}

func (f *FeePool) useGas(gas uint64) {
	f.gas += gas
	if f.opts.Charger != nil {
		f.opts.Charger(gas)
	}
}

// GasUsed returns the storage cost of the last operation.
func (f *FeePool) GasUsed() uint64 {
	return f.gas
}

// run applies fn inside a state checkpoint and reverts everything on error.
func (f *FeePool) run(op string, block *uint32, fn func() error) error {
	f.gas = 0
	rev := f.state.NewCheckpoint()
	err := func() error {
		if block != nil {
			if err := f.advance(*block); err != nil {
				return err
			}
		}
		return fn()
	}()
	if err != nil {
		f.state.RevertTo(rev)
		metricOperations().AddWithLabel(1, map[string]string{"op": op, "status": "reverted"})
		if reverts.IsRevertErr(err) {
			logger.Debug("operation rejected", "op", op, "err", err)
		} else {
			logger.Error("operation failed", "op", op, "err", err)
		}
		return err
	}
	metricOperations().AddWithLabel(1, map[string]string{"op": op, "status": "applied"})
	metricOperationGas().ObserveWithLabels(int64(f.gas), map[string]string{"op": op})
	return nil
}

// advance rejects blocks older than the last processed one.
func (f *FeePool) advance(block uint32) error {
	last, err := f.last.Get()
	if err != nil {
		return errors.Wrap(err, "last block")
	}
	if last.Seen && block < last.Block {
		return reverts.Newf(reverts.KindOverflow, "block %d before last processed block %d", block, last.Block)
	}
	if last.Seen && last.Block == block {
		return nil
	}
	return f.last.Upsert(&lastBlock{Block: block, Seen: true})
}

func (f *FeePool) requireAdmin(caller thor.Address) error {
	admin, err := f.Admin()
	if err != nil {
		return err
	}
	if admin.IsZero() || caller != admin {
		return reverts.Newf(reverts.KindNotAuthorized, "%v is not the admin", caller)
	}
	return nil
}

//
// Getters - no state change
//

// Admin returns the current administrator.
func (f *FeePool) Admin() (thor.Address, error) {
	admin, err := f.admin.Get()
	if err != nil {
		return thor.Address{}, errors.Wrap(err, "admin")
	}
	if admin.IsZero() {
		return f.opts.Admin, nil
	}
	return admin, nil
}

// IsInitialized reports whether InitializeStake ran.
func (f *FeePool) IsInitialized() (bool, error) {
	cfg, err := f.pool.Config()
	if err != nil {
		return false, err
	}
	return cfg.Initialized, nil
}

// EpochConfig returns the epoch clock and fee allocation cursor.
func (f *FeePool) EpochConfig() (*rewards.Config, error) {
	return f.pool.Config()
}

// EpochDuration returns the duration used at initialization.
func (f *FeePool) EpochDuration() (uint32, error) {
	d, err := f.duration.Get()
	if err != nil {
		return 0, errors.Wrap(err, "epoch duration")
	}
	if d == 0 {
		return uint32(EpochDuration.Get()), nil
	}
	return d, nil
}

// MinContribution returns the smallest accepted channel contribution.
func (f *FeePool) MinContribution() (*big.Int, error) {
	v, err := f.minContribution.Get()
	if err != nil {
		return nil, errors.Wrap(err, "min contribution")
	}
	if v.Sign() == 0 {
		return new(big.Int).Mul(new(big.Int).SetUint64(MinContribution.Get()), thor.Ether), nil
	}
	return v, nil
}

// EpochID returns the epoch of block.
func (f *FeePool) EpochID(block uint32) (uint32, error) {
	clock, err := f.pool.Clock()
	if err != nil {
		return 0, err
	}
	return clock.ID(block)
}

// Relative returns the epoch of block `to` counted from block `from` with
// the configured duration.
func (f *FeePool) Relative(from, to uint32) (uint32, error) {
	d, err := f.EpochDuration()
	if err != nil {
		return 0, err
	}
	return epoch.Relative(from, to, d)
}

// StakeInfo returns the participant stake record.
func (f *FeePool) StakeInfo(participant thor.Address) (*ledger.StakeInfo, error) {
	return f.ledger.Info(participant)
}

// WeightAt returns the participant weight at the end of an epoch.
func (f *FeePool) WeightAt(participant thor.Address, id uint32) (*big.Int, error) {
	return f.ledger.WeightAt(participant, id)
}

// TotalWeightAt returns the total weight at the end of an epoch.
func (f *FeePool) TotalWeightAt(id uint32) (*big.Int, error) {
	return f.ledger.TotalWeightAt(id)
}

// TotalStaked returns the sum of current deposits.
func (f *FeePool) TotalStaked() (*big.Int, error) {
	return f.ledger.TotalStaked()
}

// Participants returns how many addresses ever staked.
func (f *FeePool) Participants() (uint64, error) {
	return f.ledger.Participants()
}

// RewardBucket returns the fees assigned to an epoch.
func (f *FeePool) RewardBucket(id uint32) (*big.Int, error) {
	return f.pool.Bucket(id)
}

// PoolFees returns the fees held by the pool.
func (f *FeePool) PoolFees() (*big.Int, error) {
	return f.pool.TotalFees()
}

// PendingFees returns fees collected before initialization.
func (f *FeePool) PendingFees() (*big.Int, error) {
	return f.pool.PendingFees()
}

// FairShare returns the channel aggregate.
func (f *FeePool) FairShare() (*fairshare.State, error) {
	return f.channels.State()
}

// HistoricalZAt projects the channel accumulator to block.
func (f *FeePool) HistoricalZAt(block uint32) (*big.Int, error) {
	return f.channels.HistoricalZAt(block)
}

// Claimable returns what Claim would pay at block.
func (f *FeePool) Claimable(participant thor.Address, block uint32) (*claim.Result, error) {
	return f.claims.Preview(participant, block)
}

//
// Setters - state change
//

// Stake deposits amount for participant at block.
func (f *FeePool) Stake(participant thor.Address, amount *big.Int, block uint32) error {
	return f.run("stake", &block, func() error {
		info, err := f.ledger.RecordStake(participant, amount, block)
		if err != nil {
			return err
		}
		logger.Debug("staked", "participant", participant, "amount", amount, "block", block, "weight", info.StakedWeight)
		return nil
	})
}

// Unstake settles the pending rewards and withdraws amount. It returns the
// settled reward.
func (f *FeePool) Unstake(participant thor.Address, amount *big.Int, block uint32) (*big.Int, error) {
	reward := new(big.Int)
	err := f.run("unstake", &block, func() error {
		res, err := f.claims.Settle(participant, block)
		if err != nil {
			return err
		}
		if _, err := f.ledger.RecordUnstake(participant, amount, block); err != nil {
			return err
		}
		reward = res.Amount
		observeClaim(res)
		logger.Debug("unstaked", "participant", participant, "amount", amount, "block", block, "reward", reward)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}

// Claim settles every finished epoch since the last claim.
func (f *FeePool) Claim(participant thor.Address, block uint32) (*big.Int, error) {
	return f.settle("claim", participant, func() (*claim.Result, error) {
		return f.claims.Settle(participant, block)
	}, block)
}

// ClaimUntil settles finished epochs before toEpoch.
func (f *FeePool) ClaimUntil(participant thor.Address, toEpoch, block uint32) (*big.Int, error) {
	return f.settle("claim-until", participant, func() (*claim.Result, error) {
		return f.claims.SettleUntil(participant, toEpoch, block)
	}, block)
}

func (f *FeePool) settle(op string, participant thor.Address, fn func() (*claim.Result, error), block uint32) (*big.Int, error) {
	reward := new(big.Int)
	err := f.run(op, &block, func() error {
		res, err := fn()
		if err != nil {
			return err
		}
		reward = res.Amount
		observeClaim(res)
		if res.Settled {
			logger.Debug("claimed", "participant", participant, "from", res.FromEpoch, "to", res.ToEpoch, "amount", res.Amount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}

// InitializeStake starts epoch 1 at genesis and stakes the configured seed
// under the pool address.
func (f *FeePool) InitializeStake(caller thor.Address, genesis, block uint32) error {
	return f.run("initialize", &block, func() error {
		if err := f.requireAdmin(caller); err != nil {
			return err
		}
		if genesis > block {
			return reverts.Newf(reverts.KindInvalidArgument, "genesis %d after current block %d", genesis, block)
		}
		duration, err := f.EpochDuration()
		if err != nil {
			return err
		}
		if err := f.pool.Initialize(genesis, duration); err != nil {
			return err
		}
		if seed := f.opts.SeedStake; seed != nil && seed.Sign() > 0 {
			if _, err := f.ledger.RecordStake(PoolAddress, seed, block); err != nil {
				return err
			}
		}
		logger.Info("fee pool initialized", "genesis", genesis, "duration", duration, "seed", f.opts.SeedStake)
		return nil
	})
}

// AddPoolFees credits protocol fees to the current epoch.
func (f *FeePool) AddPoolFees(caller thor.Address, amount *big.Int, block uint32) error {
	return f.run("add-fees", &block, func() error {
		if err := f.requireAdmin(caller); err != nil {
			return err
		}
		return f.pool.AddFees(amount, block)
	})
}

// DAOHarvest settles the rewards earned by the seed stake.
func (f *FeePool) DAOHarvest(caller thor.Address, block uint32) (*big.Int, error) {
	if err := f.requireAdmin(caller); err != nil {
		return nil, err
	}
	return f.settle("dao-harvest", PoolAddress, func() (*claim.Result, error) {
		return f.claims.Settle(PoolAddress, block)
	}, block)
}

// AddChannel registers the caller's channel contribution with the fair
// share aggregate.
func (f *FeePool) AddChannel(channel thor.Address, contribution *big.Int, block uint32) (*fairshare.State, error) {
	return f.readjust("add-channel", channel, fairshare.Add, contribution, block)
}

// RemoveChannel withdraws the channel weight from the aggregate.
func (f *FeePool) RemoveChannel(channel thor.Address, block uint32) (*fairshare.State, error) {
	return f.readjust("remove-channel", channel, fairshare.Remove, nil, block)
}

// UpdateChannel replaces the channel contribution.
func (f *FeePool) UpdateChannel(channel thor.Address, contribution *big.Int, block uint32) (*fairshare.State, error) {
	return f.readjust("update-channel", channel, fairshare.Update, contribution, block)
}

// ChannelWeight returns the weight a channel holds in the aggregate.
func (f *FeePool) ChannelWeight(channel thor.Address) (*big.Int, error) {
	w, err := f.channelWeights.Get(channel)
	if err != nil {
		return nil, errors.Wrap(err, "channel weight")
	}
	if w == nil {
		w = new(big.Int)
	}
	return w, nil
}

func (f *FeePool) readjust(op string, channel thor.Address, action fairshare.Action, contribution *big.Int, block uint32) (*fairshare.State, error) {
	var out *fairshare.State
	err := f.run(op, &block, func() error {
		oldWeight, err := f.ChannelWeight(channel)
		if err != nil {
			return err
		}
		registered := oldWeight.Sign() > 0
		switch {
		case action == fairshare.Add && registered:
			return reverts.Newf(reverts.KindInvalidArgument, "channel %v already registered", channel)
		case action != fairshare.Add && !registered:
			return reverts.Newf(reverts.KindInvalidArgument, "channel %v not registered", channel)
		}

		newWeight := new(big.Int)
		if action != fairshare.Remove {
			minimum, err := f.MinContribution()
			if err != nil {
				return err
			}
			if contribution.Cmp(minimum) < 0 {
				return reverts.Newf(reverts.KindInvalidArgument, "insufficient contribution %v, minimum %v", contribution, minimum)
			}
			if newWeight, err = fairshare.ChannelWeight(contribution, minimum); err != nil {
				return err
			}
		}

		if out, err = f.channels.Readjust(action, newWeight, oldWeight, block); err != nil {
			return err
		}
		if err := f.channelWeights.Set(channel, newWeight, !registered); err != nil {
			return errors.Wrap(err, "channel weight")
		}
		logger.Debug("channels readjusted", "channel", channel, "action", action, "members", out.MemberCount, "normalized", out.NormalizedWeight)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetEpochDuration changes the epoch length used by InitializeStake.
func (f *FeePool) SetEpochDuration(caller thor.Address, duration uint32) error {
	return f.run("set-epoch-duration", nil, func() error {
		if err := f.requireAdmin(caller); err != nil {
			return err
		}
		initialized, err := f.IsInitialized()
		if err != nil {
			return err
		}
		if initialized {
			return reverts.ErrAlreadyInitialized
		}
		if duration == 0 {
			return reverts.New(reverts.KindInvalidArgument, "zero epoch duration")
		}
		return f.duration.Upsert(duration)
	})
}

// SetMinContribution changes the smallest accepted channel contribution.
func (f *FeePool) SetMinContribution(caller thor.Address, amount *big.Int) error {
	return f.run("set-min-contribution", nil, func() error {
		if err := f.requireAdmin(caller); err != nil {
			return err
		}
		if amount.Sign() <= 0 {
			return reverts.New(reverts.KindInvalidArgument, "minimum contribution must be positive")
		}
		f.minContribution.Set(amount)
		return nil
	})
}

// SetAdmin hands the admin role to another address.
func (f *FeePool) SetAdmin(caller, admin thor.Address) error {
	return f.run("set-admin", nil, func() error {
		if err := f.requireAdmin(caller); err != nil {
			return err
		}
		if admin.IsZero() {
			return reverts.New(reverts.KindInvalidArgument, "zero admin address")
		}
		f.admin.Set(admin)
		logger.Info("admin changed", "from", caller, "to", admin)
		return nil
	})
}
