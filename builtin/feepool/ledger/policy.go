// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/vechain/feepool/builtin/feepool/epoch"
)

// WeightPolicy converts a deposit into staking weight.
type WeightPolicy interface {
	Weight(amount *big.Int, clock epoch.Clock, block uint32) *big.Int
	Name() string
}

// AmountWeight weighs a deposit by its amount.
type AmountWeight struct{}

func (AmountWeight) Weight(amount *big.Int, _ epoch.Clock, _ uint32) *big.Int {
	return new(big.Int).Set(amount)
}

func (AmountWeight) Name() string { return "amount" }

// HolderWeight weighs a deposit by amount times the blocks elapsed since genesis.
// Deposits at genesis count for one block.
type HolderWeight struct{}

func (HolderWeight) Weight(amount *big.Int, clock epoch.Clock, block uint32) *big.Int {
	elapsed := uint64(1)
	if block > clock.Genesis {
		elapsed = uint64(block - clock.Genesis)
	}
	return new(big.Int).Mul(amount, new(big.Int).SetUint64(elapsed))
}

func (HolderWeight) Name() string { return "holder" }

// PolicyByName resolves a policy from its name, defaulting to AmountWeight.
func PolicyByName(name string) (WeightPolicy, bool) {
	switch name {
	case "", AmountWeight{}.Name():
		return AmountWeight{}, true
	case HolderWeight{}.Name():
		return HolderWeight{}, true
	}
	return nil, false
}
