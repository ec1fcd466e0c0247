// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package feepool

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/feepool/builtin/feepool/fairshare"
	"github.com/vechain/feepool/builtin/feepool/reverts"
	"github.com/vechain/feepool/thor"
)

const (
	genesis  = uint32(1000)
	duration = uint32(143200)
)

// startOf returns the first block of an epoch for the default test clock.
func startOf(e uint32) uint32 {
	return genesis + (e-1)*duration
}

func TestLoneStakerReceivesWholeBucket(t *testing.T) {
	pool, _ := newTestPool(t, Options{})

	seq := NewSequence(pool).
		SetDuration(duration).
		AddFees(tokens(200), genesis).
		Initialize(genesis, genesis).
		Stake(alice, tokens(10), genesis+20000).
		Claim(alice, genesis+5*duration).
		Run(t)

	assert.Equal(t, tokens(200), seq.Reward(alice))

	info, err := pool.StakeInfo(alice)
	require.NoError(t, err)
	assert.Equal(t, genesis+5*duration, info.LastClaimedBlock)
	assert.Equal(t, tokens(200), info.RewardsClaimed)

	fees, err := pool.PoolFees()
	require.NoError(t, err)
	assert.Equal(t, 0, fees.Sign())
}

func TestEqualStakersReceiveEqualRewards(t *testing.T) {
	pool, _ := newTestPool(t, Options{})

	seq := NewSequence(pool).
		SetDuration(duration).
		Initialize(genesis, genesis).
		AddFees(big.NewInt(1_000_000_007), genesis+1).
		Stake(alice, tokens(3), startOf(2)+10).
		Stake(bob, tokens(3), startOf(2)+10).
		AddFees(big.NewInt(999_999_999), startOf(2)+11).
		AddFees(big.NewInt(333), startOf(3)).
		Claim(alice, startOf(6)).
		Claim(bob, startOf(6)).
		Run(t)

	assert.Equal(t, seq.Reward(alice), seq.Reward(bob))
	assert.Equal(t, big.NewInt(500_000_166), seq.Reward(alice))
}

func TestFourStakersWithinOneEpoch(t *testing.T) {
	pool, _ := newTestPool(t, Options{})

	seq := NewSequence(pool).
		SetDuration(duration).
		Initialize(genesis, genesis).
		Stake(alice, tokens(5), startOf(2)).
		Stake(bob, tokens(5), startOf(2)+100).
		Stake(charlie, tokens(5), startOf(2)+50_000).
		Stake(dave, tokens(5), startOf(3)-1).
		AddFees(tokens(400), startOf(3)-1).
		AddFees(tokens(40), startOf(4)).
		Claim(alice, startOf(6)).
		Claim(bob, startOf(6)).
		Claim(charlie, startOf(6)).
		Claim(dave, startOf(6)).
		Run(t)

	for _, p := range []thor.Address{alice, bob, charlie, dave} {
		assert.Equal(t, tokens(110), seq.Reward(p), p.String())
	}
}

func TestLaterEntrantReceivesLess(t *testing.T) {
	pool, _ := newTestPool(t, Options{})

	seq := NewSequence(pool).
		SetDuration(duration).
		Initialize(genesis, genesis).
		Stake(alice, tokens(1), startOf(1)+5)
	for e := uint32(1); e <= 5; e++ {
		if e == 2 {
			seq.Stake(bob, tokens(1), startOf(2)+5)
		}
		seq.AddFees(tokens(10), startOf(e)+6)
	}
	seq.Claim(alice, startOf(6)).Claim(bob, startOf(6)).Run(t)

	assert.Equal(t, tokens(30), seq.Reward(alice))
	assert.Equal(t, tokens(20), seq.Reward(bob))
	assert.Equal(t, 1, seq.Reward(alice).Cmp(seq.Reward(bob)))
}

func TestLaterClaimerNeverReceivesLess(t *testing.T) {
	pool, _ := newTestPool(t, Options{})

	seq := NewSequence(pool).
		SetDuration(duration).
		Initialize(genesis, genesis).
		Stake(alice, tokens(2), startOf(1)+1).
		Stake(bob, tokens(2), startOf(1)+1)
	for e := uint32(1); e <= 6; e++ {
		if e == 4 {
			seq.Claim(alice, startOf(4))
		}
		seq.AddFees(tokens(7), startOf(e)+2)
	}
	seq.Claim(bob, startOf(6)+3).Run(t)

	assert.Equal(t, new(big.Int).Quo(tokens(21), big.NewInt(2)), seq.Reward(alice))

	assert.True(t, seq.Reward(bob).Cmp(seq.Reward(alice)) >= 0)
}

func TestBucketNeverOverpaid(t *testing.T) {
	pool, _ := newTestPool(t, Options{})

	bucket := big.NewInt(1_000_003)
	stakes := map[thor.Address]int64{alice: 3, bob: 7, charlie: 11, dave: 13}
	seq := NewSequence(pool).
		SetDuration(100).
		Initialize(0, 0).
		AddFees(bucket, 1)
	for p, amount := range stakes {
		seq.Stake(p, big.NewInt(amount), 2)
	}
	for p := range stakes {
		seq.Claim(p, 250)
	}
	seq.Run(t)

	sum := new(big.Int)
	for p := range stakes {
		sum.Add(sum, seq.Reward(p))
	}
	assert.True(t, sum.Cmp(bucket) <= 0)
	assert.True(t, new(big.Int).Sub(bucket, sum).Cmp(big.NewInt(int64(len(stakes)))) <= 0)

	// the remainder stays in the pool
	fees, err := pool.PoolFees()
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Sub(bucket, sum), fees)
}

func TestUnstakeSettlesFirst(t *testing.T) {
	pool, _ := newTestPool(t, Options{})

	NewSequence(pool).
		SetDuration(10).
		Initialize(0, 0).
		Stake(alice, tokens(4), 1).
		AddFees(tokens(8), 2).
		Run(t)

	reward, err := pool.Unstake(alice, tokens(4), 15)
	require.NoError(t, err)
	assert.Equal(t, tokens(8), reward)

	info, err := pool.StakeInfo(alice)
	require.NoError(t, err)
	assert.Equal(t, 0, info.StakedAmount.Sign())
	assert.Equal(t, uint32(15), info.LastClaimedBlock)

	w, err := pool.WeightAt(alice, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, w.Sign())
	w, err = pool.WeightAt(alice, 1)
	require.NoError(t, err)
	assert.Equal(t, tokens(4), w)
}

func TestFailedOperationLeavesNoTrace(t *testing.T) {
	pool, _ := newTestPool(t, Options{})

	NewSequence(pool).
		SetDuration(10).
		Initialize(0, 0).
		Stake(alice, tokens(1), 1).
		AddFees(tokens(5), 2).
		Run(t)

	before, err := pool.StakeInfo(alice)
	require.NoError(t, err)

	// settlement succeeds, the withdrawal does not
	_, err = pool.Unstake(alice, tokens(2), 25)
	assert.ErrorIs(t, err, reverts.ErrInsufficientStake)

	after, err := pool.StakeInfo(alice)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	fees, err := pool.PoolFees()
	require.NoError(t, err)
	assert.Equal(t, tokens(5), fees)

	// the rejected block was not recorded either
	require.NoError(t, pool.Stake(bob, tokens(1), 20))
	reward, err := pool.Claim(alice, 25)
	require.NoError(t, err)
	assert.Equal(t, tokens(5), reward)
}

func TestRejections(t *testing.T) {
	pool, _ := newTestPool(t, Options{})

	assert.ErrorIs(t, pool.Stake(alice, tokens(1), 5), reverts.ErrNotInitialized)
	_, err := pool.Claim(alice, 5)
	assert.ErrorIs(t, err, reverts.ErrNotInitialized)
	_, err = pool.EpochID(5)
	assert.ErrorIs(t, err, reverts.ErrNotInitialized)

	assert.ErrorIs(t, pool.InitializeStake(alice, 0, 5), reverts.ErrNotAuthorized)
	assert.ErrorIs(t, pool.AddPoolFees(bob, tokens(1), 5), reverts.ErrNotAuthorized)
	assert.ErrorIs(t, pool.SetEpochDuration(bob, 10), reverts.ErrNotAuthorized)
	assert.ErrorIs(t, pool.SetEpochDuration(admin, 0), reverts.ErrInvalidArgument)
	assert.ErrorIs(t, pool.InitializeStake(admin, 6, 5), reverts.ErrInvalidArgument)

	require.NoError(t, pool.SetEpochDuration(admin, 10))
	require.NoError(t, pool.InitializeStake(admin, 5, 5))
	assert.ErrorIs(t, pool.InitializeStake(admin, 5, 6), reverts.ErrAlreadyInitialized)
	assert.ErrorIs(t, pool.SetEpochDuration(admin, 20), reverts.ErrAlreadyInitialized)

	require.NoError(t, pool.Stake(alice, tokens(1), 30))
	assert.ErrorIs(t, pool.Stake(alice, tokens(1), 29), reverts.ErrOverflow)
	assert.ErrorIs(t, pool.Stake(alice, big.NewInt(0), 31), reverts.ErrInvalidArgument)

	_, err = pool.Unstake(bob, tokens(1), 31)
	assert.ErrorIs(t, err, reverts.ErrInsufficientStake)

	_, err = pool.DAOHarvest(alice, 31)
	assert.ErrorIs(t, err, reverts.ErrNotAuthorized)

	id, err := pool.EpochID(25)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), id)

	id, err = pool.Relative(5, 25)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), id)
	_, err = pool.Relative(25, 5)
	assert.ErrorIs(t, err, reverts.ErrOverflow)
}

func TestAdminHandover(t *testing.T) {
	pool, _ := newTestPool(t, Options{})

	got, err := pool.Admin()
	require.NoError(t, err)
	assert.Equal(t, admin, got)

	assert.ErrorIs(t, pool.SetAdmin(alice, alice), reverts.ErrNotAuthorized)
	assert.ErrorIs(t, pool.SetAdmin(admin, thor.Address{}), reverts.ErrInvalidArgument)
	require.NoError(t, pool.SetAdmin(admin, alice))

	got, err = pool.Admin()
	require.NoError(t, err)
	assert.Equal(t, alice, got)
	assert.ErrorIs(t, pool.SetMinContribution(admin, tokens(1)), reverts.ErrNotAuthorized)
	require.NoError(t, pool.SetMinContribution(alice, tokens(1)))
	assert.ErrorIs(t, pool.SetMinContribution(alice, big.NewInt(0)), reverts.ErrInvalidArgument)

	min, err := pool.MinContribution()
	require.NoError(t, err)
	assert.Equal(t, tokens(1), min)
}

func TestSeedStakeAndDAOHarvest(t *testing.T) {
	pool, _ := newTestPool(t, Options{SeedStake: tokens(1)})

	seq := NewSequence(pool).
		SetDuration(10).
		AddFees(tokens(100), 0).
		Initialize(0, 0).
		Stake(alice, tokens(1), 3).
		Claim(alice, 12).
		Run(t)
	assert.Equal(t, tokens(50), seq.Reward(alice))

	harvested, err := pool.DAOHarvest(admin, 12)
	require.NoError(t, err)
	assert.Equal(t, tokens(50), harvested)

	total, err := pool.TotalWeightAt(1)
	require.NoError(t, err)
	assert.Equal(t, tokens(2), total)
}

func TestClaimUntil(t *testing.T) {
	pool, _ := newTestPool(t, Options{})

	seq := NewSequence(pool).
		SetDuration(10).
		Initialize(0, 0).
		Stake(alice, tokens(1), 0)
	for b := uint32(1); b < 60; b += 10 {
		seq.AddFees(tokens(1), b)
	}
	seq.Run(t)

	claimable, err := pool.Claimable(alice, 55)
	require.NoError(t, err)
	assert.Equal(t, tokens(5), claimable.Amount)

	reward, err := pool.ClaimUntil(alice, 3, 55)
	require.NoError(t, err)
	assert.Equal(t, tokens(2), reward)

	reward, err = pool.ClaimUntil(alice, 3, 55)
	require.NoError(t, err)
	assert.Equal(t, 0, reward.Sign())

	reward, err = pool.Claim(alice, 55)
	require.NoError(t, err)
	assert.Equal(t, tokens(3), reward)
}

func TestChannels(t *testing.T) {
	pool, _ := newTestPool(t, Options{})
	ch1 := thor.BytesToAddress([]byte("channel-1"))
	ch2 := thor.BytesToAddress([]byte("channel-2"))

	min, err := pool.MinContribution()
	require.NoError(t, err)
	assert.Equal(t, thor.MinPoolContribution, min)

	_, err = pool.AddChannel(ch1, tokens(49), 10)
	assert.ErrorIs(t, err, reverts.ErrInvalidArgument)

	s, err := pool.AddChannel(ch1, tokens(50), 10)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10_000_000), s.NormalizedWeight)

	_, err = pool.AddChannel(ch1, tokens(50), 11)
	assert.ErrorIs(t, err, reverts.ErrInvalidArgument)

	s, err = pool.AddChannel(ch2, tokens(100), 20)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), s.MemberCount)
	assert.Equal(t, big.NewInt(15_000_000), s.NormalizedWeight)
	assert.Equal(t, big.NewInt(100_000_000), s.HistoricalZ)

	// a later minimum change does not distort removal
	require.NoError(t, pool.SetMinContribution(admin, tokens(25)))
	s, err = pool.UpdateChannel(ch2, tokens(25), 30)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10_000_000), s.NormalizedWeight)

	s, err = pool.RemoveChannel(ch1, 40)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.MemberCount)
	assert.Equal(t, big.NewInt(10_000_000), s.NormalizedWeight)

	_, err = pool.RemoveChannel(ch1, 41)
	assert.ErrorIs(t, err, reverts.ErrInvalidArgument)

	w, err := pool.ChannelWeight(ch1)
	require.NoError(t, err)
	assert.Equal(t, 0, w.Sign())

	z, err := pool.HistoricalZAt(50)
	require.NoError(t, err)
	// 100e6 + 10 blocks at 15e6 + 10 at 10e6 + 10 at 10e6
	assert.Equal(t, big.NewInt(450_000_000), z)

	avg, err := fairshare.AverageWeight(s.HistoricalZ, 40, z, 50)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10_000_000), avg)
}

func TestStateSurvivesCommit(t *testing.T) {
	pool, st := newTestPool(t, Options{})

	NewSequence(pool).
		SetDuration(10).
		Initialize(0, 0).
		Stake(alice, tokens(3), 4).
		Run(t)
	require.NoError(t, st.Commit())
	assert.NotZero(t, pool.GasUsed())

	reopened := New(st, Options{Admin: admin})
	initialized, err := reopened.IsInitialized()
	require.NoError(t, err)
	assert.True(t, initialized)

	staked, err := reopened.TotalStaked()
	require.NoError(t, err)
	assert.Equal(t, tokens(3), staked)

	n, err := reopened.Participants()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}
