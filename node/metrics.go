// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import "github.com/vechain/npos/metrics"

var (
	metricSession = metrics.LazyLoadGauge("node_session")
	metricCommits = metrics.LazyLoadCounter("node_commits_count")
)
