// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"math"

	"github.com/vechain/npos/npos"
)

// sequence orders events by the session they were recorded in, then by
// their index within it.
type sequence int64

func newSequence(session npos.SessionIndex, index uint32) sequence {
	if (index & math.MaxInt32) != index {
		panic("index too large")
	}
	return (sequence(session) << 31) | sequence(index)
}

func (s sequence) Session() npos.SessionIndex {
	return npos.SessionIndex(s >> 31)
}

func (s sequence) Index() uint32 {
	return uint32(s & math.MaxInt32)
}
