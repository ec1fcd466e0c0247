// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package checkpoints stores sparse per-epoch values. An epoch without an
// entry takes the value of the nearest earlier entry.
package checkpoints

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/feepool/builtin/feepool/reverts"
	"github.com/vechain/feepool/builtin/solidity"
	"github.com/vechain/feepool/thor"
)

// Point is the value recorded for an epoch.
type Point struct {
	Epoch uint32
	Value *big.Int
}

// Series is an append-only list of points ordered by epoch.
type Series struct {
	length *solidity.Raw[uint32]
	points *solidity.Mapping[thor.Uint32Key, *Point]
}

// New binds a series to the given base slot.
func New(ctx *solidity.Context, pos thor.Bytes32) *Series {
	return &Series{
		length: solidity.NewRaw[uint32](ctx, pos),
		points: solidity.NewMapping[thor.Uint32Key, *Point](ctx, thor.Blake2b(pos.Bytes(), []byte("points"))),
	}
}

// Len returns the number of recorded points.
func (s *Series) Len() (uint32, error) {
	n, err := s.length.Get()
	if err != nil {
		return 0, errors.Wrap(err, "series length")
	}
	return n, nil
}

func (s *Series) point(i uint32) (*Point, error) {
	p, err := s.points.Get(thor.Uint32Key(i))
	if err != nil {
		return nil, errors.Wrapf(err, "series point %d", i)
	}
	if p.Value == nil {
		p.Value = new(big.Int)
	}
	return p, nil
}

// Latest returns the last recorded point, if any.
func (s *Series) Latest() (*Point, bool, error) {
	n, err := s.Len()
	if err != nil || n == 0 {
		return nil, false, err
	}
	p, err := s.point(n - 1)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// Push records value for epoch. Pushing the latest epoch again overwrites it.
// An epoch earlier than the latest one is rejected.
func (s *Series) Push(epoch uint32, value *big.Int) error {
	if value.Sign() < 0 {
		return reverts.Newf(reverts.KindInvariant, "negative checkpoint value %v", value)
	}
	n, err := s.Len()
	if err != nil {
		return err
	}
	if n > 0 {
		last, err := s.point(n - 1)
		if err != nil {
			return err
		}
		switch {
		case last.Epoch == epoch:
			return s.points.Set(thor.Uint32Key(n-1), &Point{Epoch: epoch, Value: value}, false)
		case last.Epoch > epoch:
			return reverts.Newf(reverts.KindInvariant, "checkpoint epoch %d before latest %d", epoch, last.Epoch)
		}
	}
	if err := s.points.Set(thor.Uint32Key(n), &Point{Epoch: epoch, Value: value}, true); err != nil {
		return err
	}
	return s.length.Upsert(n + 1)
}

// At returns the value in effect at epoch, zero before the first point.
func (s *Series) At(epoch uint32) (*big.Int, error) {
	n, err := s.Len()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return new(big.Int), nil
	}

	// fast path for the common lookup at or after the latest point
	last, err := s.point(n - 1)
	if err != nil {
		return nil, err
	}
	if last.Epoch <= epoch {
		return last.Value, nil
	}

	// find the first point after epoch, the answer is the one before it
	lo, hi := uint32(0), n-1
	for lo < hi {
		mid := lo + (hi-lo)/2
		p, err := s.point(mid)
		if err != nil {
			return nil, err
		}
		if p.Epoch > epoch {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	if lo == 0 {
		return new(big.Int), nil
	}
	p, err := s.point(lo - 1)
	if err != nil {
		return nil, err
	}
	return p.Value, nil
}
