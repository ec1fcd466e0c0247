// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package feepool

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vechain/feepool/lvldb"
	"github.com/vechain/feepool/state"
	"github.com/vechain/feepool/thor"
)

var (
	admin   = thor.BytesToAddress([]byte("admin"))
	alice   = thor.BytesToAddress([]byte("alice"))
	bob     = thor.BytesToAddress([]byte("bob"))
	charlie = thor.BytesToAddress([]byte("charlie"))
	dave    = thor.BytesToAddress([]byte("dave"))
)

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), thor.Ether)
}

func newTestPool(t *testing.T, opts Options) (*FeePool, *state.State) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	if opts.Admin.IsZero() {
		opts.Admin = admin
	}
	st := state.New(db)
	return New(st, opts), st
}

type TestFunc func(t *testing.T)

// TestSequence builds a list of pool operations that must all succeed.
type TestSequence struct {
	pool *FeePool

	funcs   []TestFunc
	rewards map[thor.Address]*big.Int
	mu      sync.Mutex
}

func NewSequence(pool *FeePool) *TestSequence {
	return &TestSequence{pool: pool, rewards: make(map[thor.Address]*big.Int)}
}

func (st *TestSequence) AddFunc(f TestFunc) *TestSequence {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.funcs = append(st.funcs, f)
	return st
}

func (st *TestSequence) SetDuration(duration uint32) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		require.NoError(t, st.pool.SetEpochDuration(admin, duration))
	})
}

func (st *TestSequence) AddFees(amount *big.Int, block uint32) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		require.NoError(t, st.pool.AddPoolFees(admin, amount, block), "add fees at %d", block)
	})
}

func (st *TestSequence) Initialize(genesis, block uint32) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		require.NoError(t, st.pool.InitializeStake(admin, genesis, block))
	})
}

func (st *TestSequence) Stake(addr thor.Address, amount *big.Int, block uint32) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		require.NoError(t, st.pool.Stake(addr, amount, block), "stake %v at %d", addr, block)
	})
}

func (st *TestSequence) Unstake(addr thor.Address, amount *big.Int, block uint32) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		reward, err := st.pool.Unstake(addr, amount, block)
		require.NoError(t, err, "unstake %v at %d", addr, block)
		st.credit(addr, reward)
	})
}

func (st *TestSequence) Claim(addr thor.Address, block uint32) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		reward, err := st.pool.Claim(addr, block)
		require.NoError(t, err, "claim %v at %d", addr, block)
		st.credit(addr, reward)
		t.Logf("%v claimed %v at block %d", addr, reward, block)
	})
}

func (st *TestSequence) credit(addr thor.Address, amount *big.Int) {
	cur, ok := st.rewards[addr]
	if !ok {
		cur = new(big.Int)
	}
	st.rewards[addr] = new(big.Int).Add(cur, amount)
}

// Reward returns what addr received while the sequence ran.
func (st *TestSequence) Reward(addr thor.Address) *big.Int {
	if r, ok := st.rewards[addr]; ok {
		return r
	}
	return new(big.Int)
}

func (st *TestSequence) Run(t *testing.T) *TestSequence {
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, f := range st.funcs {
		f(t)
	}
	st.funcs = nil
	return st
}
