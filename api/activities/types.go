// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package activities

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/feepool/activitydb"
	"github.com/vechain/feepool/thor"
)

type Range struct {
	From *uint32 `json:"from"`
	To   *uint32 `json:"to"`
}

type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

type Filter struct {
	Participant *thor.Address    `json:"participant"`
	Ops         []activitydb.Op  `json:"ops"`
	Range       *Range           `json:"range"`
	Options     *Options         `json:"options"`
	Order       activitydb.Order `json:"order"`
}

type Activity struct {
	ID          string                `json:"id"`
	Op          activitydb.Op         `json:"op"`
	Participant thor.Address          `json:"participant"`
	BlockNumber uint32                `json:"blockNumber"`
	Epoch       uint32                `json:"epoch"`
	Amount      *math.HexOrDecimal256 `json:"amount"`
	Reward      *math.HexOrDecimal256 `json:"reward"`
}

func convertActivity(a *activitydb.Activity) *Activity {
	return &Activity{
		ID:          a.ID,
		Op:          a.Op,
		Participant: a.Participant,
		BlockNumber: a.BlockNumber,
		Epoch:       a.Epoch,
		Amount:      (*math.HexOrDecimal256)(a.Amount),
		Reward:      (*math.HexOrDecimal256)(a.Reward),
	}
}

func convertRange(r *Range) *activitydb.Range {
	if r == nil {
		return nil
	}
	rng := &activitydb.Range{From: 0, To: ^uint32(0)}
	if r.From != nil {
		rng.From = *r.From
	}
	if r.To != nil {
		rng.To = *r.To
	}
	return rng
}
