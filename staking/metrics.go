// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import "github.com/vechain/npos/metrics"

var (
	metricOps        = metrics.LazyLoadCounterVec("staking_ops_count", []string{"op", "status"})
	metricEvents     = metrics.LazyLoadCounterVec("staking_events_count", []string{"kind"})
	metricSlashed    = metrics.LazyLoadCounter("staking_slashed_total")
	metricPaidOut    = metrics.LazyLoadCounter("staking_paid_out_total")
	metricActiveEra  = metrics.LazyLoadGauge("staking_active_era")
	metricElected    = metrics.LazyLoadGauge("staking_elected_validators")
	metricUnapplied  = metrics.LazyLoadGauge("staking_unapplied_slashes")
	metricEraPayouts = metrics.LazyLoadHistogram("staking_era_payout", metrics.BucketBalance)
)
