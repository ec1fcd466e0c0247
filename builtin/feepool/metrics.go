// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package feepool

import (
	"math/big"

	"github.com/vechain/feepool/builtin/feepool/claim"
	"github.com/vechain/feepool/metrics"
	"github.com/vechain/feepool/thor"
)

var (
	metricOperations   = metrics.LazyLoadCounterVec("feepool_operation_count", []string{"op", "status"})
	metricOperationGas = metrics.LazyLoadHistogramVec("feepool_operation_gas", []string{"op"}, metrics.BucketHTTPReqs)
	metricClaimTokens  = metrics.LazyLoadHistogram("feepool_claim_tokens", metrics.BucketTokens)
	metricClaimEpochs  = metrics.LazyLoadHistogram("feepool_claim_epochs", metrics.BucketEpochs)
)

func observeClaim(res *claim.Result) {
	if !res.Settled {
		return
	}
	tokens := new(big.Int).Quo(res.Amount, thor.Ether)
	if tokens.IsInt64() {
		metricClaimTokens().Observe(tokens.Int64())
	}
	metricClaimEpochs().Observe(int64(res.ToEpoch - res.FromEpoch))
}
