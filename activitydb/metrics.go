// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package activitydb

import "github.com/vechain/feepool/metrics"

var (
	metricInserted = metrics.LazyLoadCounter("activitydb_inserted_count")
	metricQueries  = metrics.LazyLoadCounterVec("activitydb_query_count", []string{"order"})
)
