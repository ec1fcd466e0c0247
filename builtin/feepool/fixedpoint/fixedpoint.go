// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package fixedpoint implements checked 256-bit integer math with a fixed
// decimal scale for fractional shares and weights.
package fixedpoint

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/vechain/feepool/builtin/feepool/reverts"
	"github.com/vechain/feepool/thor"
)

// Scale is the fixed-point factor. A value v represents v/Scale.
var Scale = uint256.NewInt(thor.FixedPointScale)

// FromBig converts a non-negative big.Int, failing when it does not fit 256 bits.
func FromBig(b *big.Int) (*uint256.Int, error) {
	if b == nil {
		return new(uint256.Int), nil
	}
	if b.Sign() < 0 {
		return nil, reverts.Newf(reverts.KindInvalidArgument, "negative amount %v", b)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, reverts.New(reverts.KindOverflow, "amount exceeds 256 bits")
	}
	return v, nil
}

// Add returns x+y.
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, reverts.New(reverts.KindOverflow, "addition overflow")
	}
	return z, nil
}

// Sub returns x-y, failing with an invariant error when y > x.
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, reverts.Newf(reverts.KindInvariant, "subtraction underflow %v - %v", x, y)
	}
	return z, nil
}

// Mul returns x*y.
func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, reverts.New(reverts.KindOverflow, "multiplication overflow")
	}
	return z, nil
}

// MulDiv returns floor(x*y/d) with a 512-bit intermediate product.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, reverts.New(reverts.KindInvalidArgument, "division by zero")
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, reverts.New(reverts.KindOverflow, "mul-div overflow")
	}
	return z, nil
}

// Share returns amount*part*Scale/whole, the scaled portion of amount owned by part.
// A zero whole yields zero.
func Share(amount, part, whole *uint256.Int) (*uint256.Int, error) {
	if whole.IsZero() {
		return new(uint256.Int), nil
	}
	scaledPart, err := Mul(part, Scale)
	if err != nil {
		return nil, err
	}
	return MulDiv(amount, scaledPart, whole)
}

// Ratio returns x*Scale/y.
func Ratio(x, y *uint256.Int) (*uint256.Int, error) {
	return MulDiv(x, Scale, y)
}

// Descale removes the scale, rounding down.
func Descale(x *uint256.Int) *uint256.Int {
	return new(uint256.Int).Div(x, Scale)
}
