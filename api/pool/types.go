// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/feepool/builtin/feepool/fairshare"
	"github.com/vechain/feepool/builtin/feepool/ledger"
	"github.com/vechain/feepool/host"
	"github.com/vechain/feepool/thor"
)

type Summary struct {
	Block           uint32                `json:"block"`
	Admin           thor.Address          `json:"admin"`
	Initialized     bool                  `json:"initialized"`
	Genesis         uint32                `json:"genesis"`
	EpochDuration   uint32                `json:"epochDuration"`
	CurrentEpoch    uint32                `json:"currentEpoch"`
	MinContribution *math.HexOrDecimal256 `json:"minContribution"`
	TotalStaked     *math.HexOrDecimal256 `json:"totalStaked"`
	Participants    uint64                `json:"participants"`
	PoolFees        *math.HexOrDecimal256 `json:"poolFees"`
	PendingFees     *math.HexOrDecimal256 `json:"pendingFees"`
}

type Epoch struct {
	ID          uint32                `json:"id"`
	StartBlock  uint32                `json:"startBlock"`
	EndBlock    uint32                `json:"endBlock"`
	Bucket      *math.HexOrDecimal256 `json:"bucket"`
	TotalWeight *math.HexOrDecimal256 `json:"totalWeight"`
}

type Staker struct {
	Address          thor.Address          `json:"address"`
	StakedAmount     *math.HexOrDecimal256 `json:"stakedAmount"`
	StakedWeight     *math.HexOrDecimal256 `json:"stakedWeight"`
	LastStakedBlock  uint32                `json:"lastStakedBlock"`
	LastClaimedBlock uint32                `json:"lastClaimedBlock"`
	RewardsClaimed   *math.HexOrDecimal256 `json:"rewardsClaimed"`
	Claimable        *math.HexOrDecimal256 `json:"claimable"`
}

type Weight struct {
	Epoch  uint32                `json:"epoch"`
	Weight *math.HexOrDecimal256 `json:"weight"`
	Total  *math.HexOrDecimal256 `json:"total"`
}

type FairShare struct {
	MemberCount      uint64                `json:"memberCount"`
	NormalizedWeight *math.HexOrDecimal256 `json:"normalizedWeight"`
	HistoricalZ      *math.HexOrDecimal256 `json:"historicalZ"`
	LastUpdateBlock  uint32                `json:"lastUpdateBlock"`
}

type Channel struct {
	Address thor.Address          `json:"address"`
	Weight  *math.HexOrDecimal256 `json:"weight"`
}

type Clock struct {
	Block uint32 `json:"block"`
}

type AdvanceClock struct {
	Blocks uint32  `json:"blocks"`
	To     *uint32 `json:"to"`
}

type StakeRequest struct {
	Participant thor.Address          `json:"participant"`
	Amount      *math.HexOrDecimal256 `json:"amount"`
}

type ClaimRequest struct {
	Participant thor.Address `json:"participant"`
	ToEpoch     *uint32      `json:"toEpoch"`
}

type FeesRequest struct {
	Caller thor.Address          `json:"caller"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

type InitializeRequest struct {
	Caller  thor.Address `json:"caller"`
	Genesis *uint32      `json:"genesis"`
}

type HarvestRequest struct {
	Caller thor.Address `json:"caller"`
}

type ChannelRequest struct {
	Channel      thor.Address          `json:"channel"`
	Contribution *math.HexOrDecimal256 `json:"contribution"`
}

type ConfigRequest struct {
	Caller          thor.Address          `json:"caller"`
	EpochDuration   *uint32               `json:"epochDuration"`
	MinContribution *math.HexOrDecimal256 `json:"minContribution"`
	Admin           *thor.Address         `json:"admin"`
}

type Receipt struct {
	ID          string                `json:"id"`
	Op          string                `json:"op"`
	Participant thor.Address          `json:"participant"`
	BlockNumber uint32                `json:"blockNumber"`
	Epoch       uint32                `json:"epoch"`
	Amount      *math.HexOrDecimal256 `json:"amount"`
	Reward      *math.HexOrDecimal256 `json:"reward"`
	Gas         uint64                `json:"gas"`
}

func amount(v *big.Int) *math.HexOrDecimal256 {
	if v == nil {
		v = new(big.Int)
	}
	return (*math.HexOrDecimal256)(v)
}

func convertStaker(addr thor.Address, info *ledger.StakeInfo, claimable *big.Int) *Staker {
	return &Staker{
		Address:          addr,
		StakedAmount:     amount(info.StakedAmount),
		StakedWeight:     amount(info.StakedWeight),
		LastStakedBlock:  info.LastStakedBlock,
		LastClaimedBlock: info.LastClaimedBlock,
		RewardsClaimed:   amount(info.RewardsClaimed),
		Claimable:        amount(claimable),
	}
}

func convertFairShare(s *fairshare.State) *FairShare {
	return &FairShare{
		MemberCount:      s.MemberCount,
		NormalizedWeight: amount(s.NormalizedWeight),
		HistoricalZ:      amount(s.HistoricalZ),
		LastUpdateBlock:  s.LastUpdateBlock,
	}
}

func convertReceipt(r *host.Receipt) *Receipt {
	a := r.Activity
	return &Receipt{
		ID:          a.ID,
		Op:          string(a.Op),
		Participant: a.Participant,
		BlockNumber: a.BlockNumber,
		Epoch:       a.Epoch,
		Amount:      amount(a.Amount),
		Reward:      amount(a.Reward),
		Gas:         r.Gas,
	}
}
