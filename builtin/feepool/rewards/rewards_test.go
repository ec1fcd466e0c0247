// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rewards

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/feepool/builtin/feepool/epoch"
	"github.com/vechain/feepool/builtin/feepool/reverts"
	"github.com/vechain/feepool/builtin/solidity"
	"github.com/vechain/feepool/lvldb"
	"github.com/vechain/feepool/state"
	"github.com/vechain/feepool/thor"
)

func newPool(t *testing.T) *Pool {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(solidity.NewContext(thor.BytesToAddress([]byte("pool")), state.New(db), nil))
}

func TestPendingFeesMoveToFirstEpoch(t *testing.T) {
	p := newPool(t)

	_, err := p.Clock()
	assert.ErrorIs(t, err, reverts.ErrNotInitialized)

	require.NoError(t, p.AddFees(big.NewInt(150), 3))
	require.NoError(t, p.AddFees(big.NewInt(50), 4))

	pending, err := p.PendingFees()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(200), pending)

	require.NoError(t, p.Initialize(10, 100))

	b1, err := p.Bucket(1)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(200), b1)

	pending, err = p.PendingFees()
	require.NoError(t, err)
	assert.Equal(t, 0, pending.Sign())

	total, err := p.TotalFees()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(200), total)

	clock, err := p.Clock()
	require.NoError(t, err)
	assert.Equal(t, epoch.Clock{Genesis: 10, Duration: 100}, clock)

	assert.ErrorIs(t, p.Initialize(10, 100), reverts.ErrAlreadyInitialized)
}

func TestFeesGoToCurrentEpoch(t *testing.T) {
	p := newPool(t)
	require.NoError(t, p.Initialize(10, 100))

	require.NoError(t, p.AddFees(big.NewInt(1), 10))
	require.NoError(t, p.AddFees(big.NewInt(2), 109))
	require.NoError(t, p.AddFees(big.NewInt(4), 110))
	assert.ErrorIs(t, p.AddFees(big.NewInt(4), 9), reverts.ErrOverflow)
	assert.ErrorIs(t, p.AddFees(big.NewInt(0), 200), reverts.ErrInvalidArgument)

	b1, _ := p.Bucket(1)
	b2, _ := p.Bucket(2)
	b3, _ := p.Bucket(3)
	assert.Equal(t, big.NewInt(3), b1)
	assert.Equal(t, big.NewInt(4), b2)
	assert.Equal(t, 0, b3.Sign())

	cfg, err := p.Config()
	require.NoError(t, err)
	assert.Equal(t, uint32(110), cfg.LastFeeAllocationBlock)
}

func TestDeduct(t *testing.T) {
	p := newPool(t)
	require.NoError(t, p.Initialize(0, 10))
	require.NoError(t, p.AddFees(big.NewInt(10), 0))

	require.NoError(t, p.Deduct(big.NewInt(4)))
	assert.ErrorIs(t, p.Deduct(big.NewInt(7)), reverts.ErrInvariant)

	total, _ := p.TotalFees()
	assert.Equal(t, big.NewInt(6), total)
}

func TestInitializeRejectsZeroDuration(t *testing.T) {
	p := newPool(t)
	assert.ErrorIs(t, p.Initialize(0, 0), reverts.ErrInvalidArgument)
}
