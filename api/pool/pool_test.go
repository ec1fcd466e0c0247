// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"bytes"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/feepool/activitydb"
	"github.com/vechain/feepool/builtin/feepool"
	"github.com/vechain/feepool/host"
	"github.com/vechain/feepool/lvldb"
	"github.com/vechain/feepool/thor"
)

var (
	admin   = thor.BytesToAddress([]byte("admin"))
	alice   = thor.BytesToAddress([]byte("alice"))
	channel = thor.BytesToAddress([]byte("channel"))
	ts      *httptest.Server
)

func initPoolServer(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	adb, err := activitydb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() {
		adb.Close()
		db.Close()
	})

	h, err := host.New(db, adb, host.Options{Pool: feepool.Options{Admin: admin}, StartBlock: 100})
	require.NoError(t, err)

	router := mux.NewRouter()
	New(h).Mount(router, "/pool")
	ts = httptest.NewServer(router)
	t.Cleanup(ts.Close)
}

func TestPool(t *testing.T) {
	initPoolServer(t)

	// subtests share one server and depend on each other
	t.Run("beforeInitialize", testBeforeInitialize)
	t.Run("stakeAndClaim", testStakeAndClaim)
	t.Run("channels", testChannels)
	t.Run("badRequests", testBadRequests)
	t.Run("clockNeverRewinds", testClockNeverRewinds)
	t.Run("adminHandover", testAdminHandover)
}

func testBeforeInitialize(t *testing.T) {
	var summary Summary
	httpGetJSON(t, "/pool", &summary)
	assert.Equal(t, uint32(100), summary.Block)
	assert.False(t, summary.Initialized)
	assert.Equal(t, admin, summary.Admin)
	assert.Equal(t, uint32(feepool.EpochDuration.Get()), summary.EpochDuration)

	_, code := httpPost(t, http.MethodPost, "/pool/stake", &StakeRequest{Participant: alice, Amount: amount(big.NewInt(100))})
	assert.Equal(t, http.StatusConflict, code)

	_, code = httpPost(t, http.MethodGet, "/pool/epochs/1", nil)
	assert.Equal(t, http.StatusConflict, code)

	duration := uint32(10)
	_, code = httpPost(t, http.MethodPut, "/pool/config", &ConfigRequest{Caller: alice, EpochDuration: &duration})
	assert.Equal(t, http.StatusForbidden, code)

	body, code := httpPost(t, http.MethodPut, "/pool/config", &ConfigRequest{Caller: admin, EpochDuration: &duration})
	require.Equal(t, http.StatusOK, code, string(body))
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, duration, summary.EpochDuration)

	// fees before initialization wait for epoch 1
	var receipt Receipt
	httpPostJSON(t, "/pool/fees", &FeesRequest{Caller: admin, Amount: amount(big.NewInt(1000))}, &receipt)
	assert.Equal(t, "add-fees", receipt.Op)
	assert.Equal(t, uint32(0), receipt.Epoch)

	httpGetJSON(t, "/pool", &summary)
	assert.Equal(t, big.NewInt(1000), (*big.Int)(summary.PendingFees))
	assert.Equal(t, big.NewInt(1000), (*big.Int)(summary.PoolFees))

	httpPostJSON(t, "/pool/initialize", &InitializeRequest{Caller: admin}, &receipt)
	assert.Equal(t, uint32(1), receipt.Epoch)
	assert.Equal(t, uint32(100), receipt.BlockNumber)

	_, code = httpPost(t, http.MethodPost, "/pool/initialize", &InitializeRequest{Caller: admin})
	assert.Equal(t, http.StatusConflict, code)
}

func testStakeAndClaim(t *testing.T) {
	var receipt Receipt
	httpPostJSON(t, "/pool/stake", &StakeRequest{Participant: alice, Amount: amount(big.NewInt(100))}, &receipt)
	assert.Equal(t, "stake", receipt.Op)
	assert.Equal(t, alice, receipt.Participant)
	assert.NotZero(t, receipt.Gas)

	var clock Clock
	httpPostJSON(t, "/pool/clock", &AdvanceClock{Blocks: 10}, &clock)
	assert.Equal(t, uint32(110), clock.Block)

	var ep Epoch
	httpGetJSON(t, "/pool/epochs/1", &ep)
	assert.Equal(t, uint32(100), ep.StartBlock)
	assert.Equal(t, uint32(109), ep.EndBlock)
	assert.Equal(t, big.NewInt(1000), (*big.Int)(ep.Bucket))
	assert.Equal(t, big.NewInt(100), (*big.Int)(ep.TotalWeight))

	var weight Weight
	httpGetJSON(t, "/pool/stakers/"+alice.String()+"/weights/1", &weight)
	assert.Equal(t, big.NewInt(100), (*big.Int)(weight.Weight))
	assert.Equal(t, big.NewInt(100), (*big.Int)(weight.Total))

	var staker Staker
	httpGetJSON(t, "/pool/stakers/"+alice.String(), &staker)
	assert.Equal(t, big.NewInt(100), (*big.Int)(staker.StakedAmount))
	assert.Equal(t, big.NewInt(1000), (*big.Int)(staker.Claimable))

	httpPostJSON(t, "/pool/claim", &ClaimRequest{Participant: alice}, &receipt)
	assert.Equal(t, big.NewInt(1000), (*big.Int)(receipt.Reward))
	assert.Equal(t, uint32(2), receipt.Epoch)

	// nothing left until epoch 2 ends
	httpPostJSON(t, "/pool/claim", &ClaimRequest{Participant: alice}, &receipt)
	assert.Zero(t, (*big.Int)(receipt.Reward).Sign())

	_, code := httpPost(t, http.MethodPost, "/pool/unstake", &StakeRequest{Participant: alice, Amount: amount(big.NewInt(101))})
	assert.Equal(t, http.StatusBadRequest, code)

	httpPostJSON(t, "/pool/unstake", &StakeRequest{Participant: alice, Amount: amount(big.NewInt(40))}, &receipt)
	assert.Equal(t, big.NewInt(40), (*big.Int)(receipt.Amount))

	httpGetJSON(t, "/pool/stakers/"+alice.String(), &staker)
	assert.Equal(t, big.NewInt(60), (*big.Int)(staker.StakedAmount))
	assert.Equal(t, big.NewInt(1000), (*big.Int)(staker.RewardsClaimed))
}

func testChannels(t *testing.T) {
	contribution := new(big.Int).Mul(big.NewInt(100), thor.Ether)

	_, code := httpPost(t, http.MethodPost, "/pool/channels", &ChannelRequest{Channel: channel, Contribution: amount(big.NewInt(1))})
	assert.Equal(t, http.StatusBadRequest, code)

	var receipt Receipt
	httpPostJSON(t, "/pool/channels", &ChannelRequest{Channel: channel, Contribution: amount(contribution)}, &receipt)
	assert.Equal(t, "add-channel", receipt.Op)

	var ch Channel
	httpGetJSON(t, "/pool/channels/"+channel.String(), &ch)
	assert.Equal(t, scaled(2), (*big.Int)(ch.Weight))

	var fs FairShare
	httpGetJSON(t, "/pool/fairshare", &fs)
	assert.Equal(t, uint64(1), fs.MemberCount)
	assert.Equal(t, scaled(2), (*big.Int)(fs.NormalizedWeight))

	httpPostJSON(t, "/pool/clock", &AdvanceClock{Blocks: 5}, new(Clock))
	httpGetJSON(t, "/pool/fairshare", &fs)
	assert.Equal(t, scaled(5*2), (*big.Int)(fs.HistoricalZ))

	_, code = httpPost(t, http.MethodPut, "/pool/channels/"+channel.String(), &ChannelRequest{Channel: alice, Contribution: amount(contribution)})
	assert.Equal(t, http.StatusBadRequest, code)

	httpPostJSON(t, "/pool/channels/"+channel.String(), &ChannelRequest{Contribution: amount(new(big.Int).Mul(contribution, big.NewInt(2)))}, &receipt, http.MethodPut)
	httpGetJSON(t, "/pool/channels/"+channel.String(), &ch)
	assert.Equal(t, scaled(4), (*big.Int)(ch.Weight))

	_, code = httpPost(t, http.MethodDelete, "/pool/channels/"+channel.String(), nil)
	assert.Equal(t, http.StatusOK, code)
	_, code = httpPost(t, http.MethodDelete, "/pool/channels/"+channel.String(), nil)
	assert.Equal(t, http.StatusBadRequest, code)

	_, code = httpPost(t, http.MethodGet, "/pool/channels/"+channel.String(), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func testBadRequests(t *testing.T) {
	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/pool/stakers/0xzz", nil},
		{http.MethodGet, "/pool/epochs/abc", nil},
		{http.MethodGet, "/pool/epochs/0", nil},
		{http.MethodGet, "/pool/stakers/" + alice.String() + "/weights/x", nil},
		{http.MethodGet, "/pool/fairshare?block=x", nil},
		{http.MethodPost, "/pool/stake", map[string]any{"participant": alice.String()}},
		{http.MethodPost, "/pool/stake", map[string]any{"participant": alice.String(), "amount": "0x0"}},
		{http.MethodPost, "/pool/claim", map[string]any{"unknown": 1}},
		{http.MethodPost, "/pool/fees", map[string]any{"caller": admin.String(), "amount": "-5"}},
	}
	for _, tt := range tests {
		body, code := httpPost(t, tt.method, tt.path, tt.body)
		assert.Equal(t, http.StatusBadRequest, code, "%s %s: %s", tt.method, tt.path, body)
	}
}

func testClockNeverRewinds(t *testing.T) {
	var clock Clock
	httpGetJSON(t, "/pool/clock", &clock)

	back := clock.Block - 1
	_, code := httpPost(t, http.MethodPost, "/pool/clock", &AdvanceClock{To: &back})
	assert.Equal(t, http.StatusBadRequest, code)

	to := clock.Block + 100
	httpPostJSON(t, "/pool/clock", &AdvanceClock{To: &to}, &clock)
	assert.Equal(t, to, clock.Block)
}

func testAdminHandover(t *testing.T) {
	var receipt Receipt
	httpPostJSON(t, "/pool/harvest", &HarvestRequest{Caller: admin}, &receipt)
	assert.Equal(t, feepool.PoolAddress, receipt.Participant)

	next := alice
	var summary Summary
	httpPostJSON(t, "/pool/config", &ConfigRequest{Caller: admin, Admin: &next}, &summary, http.MethodPut)
	assert.Equal(t, alice, summary.Admin)

	_, code := httpPost(t, http.MethodPost, "/pool/harvest", &HarvestRequest{Caller: admin})
	assert.Equal(t, http.StatusForbidden, code)
}

func httpPost(t *testing.T, method, path string, obj any) ([]byte, int) {
	var body io.Reader
	if obj != nil {
		data, err := json.Marshal(obj)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, body)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return data, res.StatusCode
}

func httpPostJSON(t *testing.T, path string, obj any, out any, method ...string) {
	m := http.MethodPost
	if len(method) > 0 {
		m = method[0]
	}
	body, code := httpPost(t, m, path, obj)
	require.Equal(t, http.StatusOK, code, string(body))
	require.NoError(t, json.Unmarshal(body, out))
}

func httpGetJSON(t *testing.T, path string, out any) {
	body, code := httpPost(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, code, string(body))
	require.NoError(t, json.Unmarshal(body, out))
}

func scaled(n uint64) *big.Int {
	return new(big.Int).SetUint64(n * thor.FixedPointScale)
}
