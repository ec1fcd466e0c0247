// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"github.com/vechain/feepool/state"
	"github.com/vechain/feepool/thor"
)

// UseGasFunc is notified of the storage cost of every slot access.
type UseGasFunc func(gas uint64)

// Context binds typed storage to the address of a built-in contract.
type Context struct {
	address thor.Address
	state   *state.State
	charger UseGasFunc
}

func NewContext(address thor.Address, state *state.State, charger UseGasFunc) *Context {
	return &Context{
		address: address,
		state:   state,
		charger: charger,
	}
}

func (c *Context) Address() thor.Address {
	return c.address
}

func (c *Context) State() *state.State {
	return c.state
}

func (c *Context) UseGas(gas uint64) {
	if c.charger != nil {
		c.charger(gas)
	}
}

// toWordSize converts an encoded length into storage words.
func toWordSize(length int) uint64 {
	return (uint64(length) + 31) / 32
}
