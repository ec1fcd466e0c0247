// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"math/big"
)

// Constants of the fee pool.
const (
	BlocksPerDay uint32 = 7160

	// EpochDuration is the default number of blocks in one epoch.
	EpochDuration = 20 * BlocksPerDay

	// FixedPointScale is the factor applied to fractional weights and shares.
	FixedPointScale uint64 = 1e7
)

var (
	// Ether is 10^18, the smallest unit per token.
	Ether = big.NewInt(1e18)

	// MinPoolContribution is the default minimum a channel contributes to the pool.
	MinPoolContribution = new(big.Int).Mul(big.NewInt(50), Ether)
	// MaxPoolContribution caps a single channel contribution.
	MaxPoolContribution = new(big.Int).Mul(big.NewInt(250000*50), Ether)
)

// Storage costs charged through the storage meter of built-in contracts.
const (
	SloadGas       uint64 = 200
	SstoreSetGas   uint64 = 20000
	SstoreResetGas uint64 = 5000
)
