// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package activities

import (
	"bytes"
	"context"
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
	"github.com/vechain/feepool/thor"
)

const defaultLimit = 3

var (
	alice = thor.BytesToAddress([]byte("alice"))
	bob   = thor.BytesToAddress([]byte("bob"))
)

func initServer(t *testing.T) (*httptest.Server, []*activitydb.Activity) {
	db, err := activitydb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	seeded := []*activitydb.Activity{
		activitydb.NewActivity(activitydb.OpStake, alice, 10, 1, big.NewInt(100), nil),
		activitydb.NewActivity(activitydb.OpStake, bob, 12, 1, big.NewInt(50), nil),
		activitydb.NewActivity(activitydb.OpClaim, alice, 30, 3, nil, big.NewInt(7)),
		activitydb.NewActivity(activitydb.OpUnstake, bob, 40, 4, big.NewInt(50), big.NewInt(3)),
	}
	require.NoError(t, db.Insert(context.Background(), seeded...))

	router := mux.NewRouter()
	New(db, defaultLimit).Mount(router, "/activities")
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, seeded
}

func TestFilter(t *testing.T) {
	ts, seeded := initServer(t)
	from, to := uint32(11), uint32(35)

	tests := []struct {
		name   string
		filter map[string]any
		ids    []string
	}{
		{
			"by participant",
			map[string]any{"participant": alice.String(), "options": map[string]any{"limit": 3}},
			[]string{seeded[0].ID, seeded[2].ID},
		},
		{
			"by op",
			map[string]any{"ops": []string{"unstake", "claim"}},
			[]string{seeded[2].ID, seeded[3].ID},
		},
		{
			"by range desc",
			map[string]any{"range": map[string]any{"from": from, "to": to}, "order": "desc"},
			[]string{seeded[2].ID, seeded[1].ID},
		},
		{
			"paged",
			map[string]any{"options": map[string]any{"offset": 1, "limit": 2}},
			[]string{seeded[1].ID, seeded[2].ID},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, code := post(t, ts.URL+"/activities", tt.filter)
			require.Equal(t, http.StatusOK, code, string(body))
			var out []*Activity
			require.NoError(t, json.Unmarshal(body, &out))
			ids := make([]string, len(out))
			for i, a := range out {
				ids[i] = a.ID
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestFilterRejections(t *testing.T) {
	ts, _ := initServer(t)

	tests := []struct {
		name   string
		filter any
		code   int
	}{
		{"unknown field", map[string]any{"foo": 1}, http.StatusBadRequest},
		{"unknown op", map[string]any{"ops": []string{"mint"}}, http.StatusBadRequest},
		{"unknown order", map[string]any{"order": "random"}, http.StatusBadRequest},
		{"inverted range", map[string]any{"range": map[string]any{"from": 5, "to": 4}}, http.StatusBadRequest},
		{"limit too large", map[string]any{"options": map[string]any{"limit": defaultLimit + 1}}, http.StatusForbidden},
		{"too many results", map[string]any{}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, code := post(t, ts.URL+"/activities", tt.filter)
			assert.Equal(t, tt.code, code, string(body))
		})
	}
}

func TestGetActivity(t *testing.T) {
	ts, seeded := initServer(t)

	res, err := http.Get(ts.URL + "/activities/" + seeded[3].ID)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got Activity
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, activitydb.OpUnstake, got.Op)
	assert.Equal(t, bob, got.Participant)
	assert.Equal(t, uint32(4), got.Epoch)
	assert.Equal(t, big.NewInt(50), (*big.Int)(got.Amount))
	assert.Equal(t, big.NewInt(3), (*big.Int)(got.Reward))

	missing, err := http.Get(ts.URL + "/activities/unknown")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func post(t *testing.T, url string, obj any) ([]byte, int) {
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	res, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return body, res.StatusCode
}
