// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package activitydb

import (
	"fmt"
	"math/big"

	"github.com/pborman/uuid"

	"github.com/vechain/feepool/thor"
)

// Op names an applied pool operation.
type Op string

const (
	OpStake         Op = "stake"
	OpUnstake       Op = "unstake"
	OpClaim         Op = "claim"
	OpAddFees       Op = "add-fees"
	OpInitialize    Op = "initialize"
	OpDAOHarvest    Op = "dao-harvest"
	OpAddChannel    Op = "add-channel"
	OpRemoveChannel Op = "remove-channel"
	OpUpdateChannel Op = "update-channel"
)

// Activity is one applied operation.
type Activity struct {
	ID          string
	Op          Op
	Participant thor.Address
	BlockNumber uint32
	Epoch       uint32
	Amount      *big.Int
	Reward      *big.Int
}

// NewActivity creates an activity with a fresh random id.
func NewActivity(op Op, participant thor.Address, block, epoch uint32, amount, reward *big.Int) *Activity {
	return &Activity{
		ID:          uuid.New(),
		Op:          op,
		Participant: participant,
		BlockNumber: block,
		Epoch:       epoch,
		Amount:      orZero(amount),
		Reward:      orZero(reward),
	}
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func (a *Activity) String() string {
	return fmt.Sprintf("Activity(%v %v participant=%v block=%v epoch=%v amount=%v reward=%v)",
		a.ID, a.Op, a.Participant, a.BlockNumber, a.Epoch, a.Amount, a.Reward)
}

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

type Range struct {
	From uint32
	To   uint32
}

type Options struct {
	Offset uint64
	Limit  uint64
}

// Filter selects activities. Nil fields match everything.
type Filter struct {
	Participant *thor.Address
	Ops         []Op
	Range       *Range
	Options     *Options
	Order       Order
}
