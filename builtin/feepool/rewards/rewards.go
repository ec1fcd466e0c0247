// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package rewards holds the per-epoch reward buckets funded by protocol fees.
package rewards

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/feepool/builtin/feepool/epoch"
	"github.com/vechain/feepool/builtin/feepool/reverts"
	"github.com/vechain/feepool/builtin/solidity"
	"github.com/vechain/feepool/thor"
)

var (
	slotConfig    = thor.BytesToBytes32([]byte("rewards-config"))
	slotTotalFees = thor.BytesToBytes32([]byte("rewards-total-fees"))
	slotPending   = thor.BytesToBytes32([]byte("rewards-pending-fees"))
	slotBuckets   = thor.BytesToBytes32([]byte("rewards-buckets"))
)

// Config is written once by Initialize.
type Config struct {
	Genesis                uint32
	Duration               uint32
	Initialized            bool
	LastFeeAllocationBlock uint32
}

// Pool tracks collected fees and assigns them to the epoch they arrive in.
type Pool struct {
	config    *solidity.Raw[*Config]
	totalFees *solidity.Uint256
	pending   *solidity.Uint256
	buckets   *solidity.Mapping[thor.Uint32Key, *big.Int]
}

func New(ctx *solidity.Context) *Pool {
	return &Pool{
		config:    solidity.NewRaw[*Config](ctx, slotConfig),
		totalFees: solidity.NewUint256(ctx, slotTotalFees),
		pending:   solidity.NewUint256(ctx, slotPending),
		buckets:   solidity.NewMapping[thor.Uint32Key, *big.Int](ctx, slotBuckets),
	}
}

// Config returns the stored configuration.
func (p *Pool) Config() (*Config, error) {
	cfg, err := p.config.Get()
	if err != nil {
		return nil, errors.Wrap(err, "rewards config")
	}
	return cfg, nil
}

// Clock returns the epoch clock, failing before initialization.
func (p *Pool) Clock() (epoch.Clock, error) {
	cfg, err := p.Config()
	if err != nil {
		return epoch.Clock{}, err
	}
	if !cfg.Initialized {
		return epoch.Clock{}, reverts.ErrNotInitialized
	}
	return epoch.Clock{Genesis: cfg.Genesis, Duration: cfg.Duration}, nil
}

// Initialize fixes the epoch clock and moves fees collected so far into epoch 1.
func (p *Pool) Initialize(genesis, duration uint32) error {
	if duration == 0 {
		return reverts.New(reverts.KindInvalidArgument, "zero epoch duration")
	}
	cfg, err := p.Config()
	if err != nil {
		return err
	}
	if cfg.Initialized {
		return reverts.ErrAlreadyInitialized
	}

	pending, err := p.pending.Get()
	if err != nil {
		return errors.Wrap(err, "pending fees")
	}
	if pending.Sign() > 0 {
		if err := p.addToBucket(1, pending); err != nil {
			return err
		}
		p.pending.Set(new(big.Int))
	}

	cfg.Genesis = genesis
	cfg.Duration = duration
	cfg.Initialized = true
	return p.config.Upsert(cfg)
}

// AddFees credits amount to the bucket of the epoch block falls in. Before
// initialization the fees are held as pending.
func (p *Pool) AddFees(amount *big.Int, block uint32) error {
	if amount.Sign() <= 0 {
		return reverts.New(reverts.KindInvalidArgument, "fee amount must be positive")
	}
	cfg, err := p.Config()
	if err != nil {
		return err
	}

	if cfg.Initialized {
		clock := epoch.Clock{Genesis: cfg.Genesis, Duration: cfg.Duration}
		id, err := clock.ID(block)
		if err != nil {
			return err
		}
		if err := p.addToBucket(id, amount); err != nil {
			return err
		}
	} else if err := p.pending.Add(amount); err != nil {
		return errors.Wrap(err, "pending fees")
	}

	if err := p.totalFees.Add(amount); err != nil {
		return errors.Wrap(err, "total fees")
	}
	cfg.LastFeeAllocationBlock = block
	return p.config.Upsert(cfg)
}

func (p *Pool) addToBucket(id uint32, amount *big.Int) error {
	cur, err := p.Bucket(id)
	if err != nil {
		return err
	}
	return p.buckets.Set(thor.Uint32Key(id), new(big.Int).Add(cur, amount), cur.Sign() == 0)
}

// Bucket returns the rewards assigned to an epoch.
func (p *Pool) Bucket(id uint32) (*big.Int, error) {
	v, err := p.buckets.Get(thor.Uint32Key(id))
	if err != nil {
		return nil, errors.Wrapf(err, "bucket %d", id)
	}
	if v == nil {
		v = new(big.Int)
	}
	return v, nil
}

// TotalFees returns the fees held by the pool, pending ones included.
func (p *Pool) TotalFees() (*big.Int, error) {
	return p.totalFees.Get()
}

// PendingFees returns the fees collected before initialization.
func (p *Pool) PendingFees() (*big.Int, error) {
	return p.pending.Get()
}

// Deduct removes a payout from the pool.
func (p *Pool) Deduct(amount *big.Int) error {
	if err := p.totalFees.Sub(amount); err != nil {
		if errors.Is(err, solidity.ErrUint256Underflow) {
			return reverts.Newf(reverts.KindInvariant, "payout %v exceeds pool fees", amount)
		}
		return errors.Wrap(err, "total fees")
	}
	return nil
}
