// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	"sync/atomic"

	"github.com/vechain/npos/metrics"
)

var metricLookups = metrics.LazyLoadCounterVec("cache_lookup_count", []string{"cache", "result"})

// Stats counts the lookups of a named cache.
type Stats struct {
	name      string
	hit, miss atomic.Int64
	reported  atomic.Int32 // hit rate in permille at the last report
}

func (s *Stats) record(hit bool) {
	result := "miss"
	if hit {
		s.hit.Add(1)
		result = "hit"
	} else {
		s.miss.Add(1)
	}
	metricLookups().AddWithLabel(1, map[string]string{"cache": s.name, "result": result})
}

// HitRate is hits over lookups, zero before the first lookup.
func (s *Stats) HitRate() float64 {
	hit, miss := s.hit.Load(), s.miss.Load()
	if hit+miss == 0 {
		return 0
	}
	return float64(hit) / float64(hit+miss)
}

// Report returns the counters. moved is set when the hit rate changed by at
// least one permille since the previous report.
func (s *Stats) Report() (hit, miss int64, moved bool) {
	hit, miss = s.hit.Load(), s.miss.Load()
	var permille int32
	if lookups := hit + miss; lookups > 0 {
		permille = int32(hit * 1000 / lookups)
	}
	return hit, miss, s.reported.Swap(permille) != permille
}
