// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slashes

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
	"github.com/vechain/npos/staking/slashing"
)

type NominatorSlash struct {
	Nominator npos.Address        `json:"nominator"`
	Amount    math.HexOrDecimal64 `json:"amount"`
}

// Slash is a computed slash not yet taken from the ledgers.
type Slash struct {
	Validator npos.Address        `json:"validator"`
	Own       math.HexOrDecimal64 `json:"own"`
	Others    []NominatorSlash    `json:"others"`
	Reporters []npos.Address      `json:"reporters"`
	Payout    math.HexOrDecimal64 `json:"payout"`
}

type EraSlashes struct {
	Era     npos.EraIndex `json:"era"`
	Slashes []*Slash      `json:"slashes"`
}

type Span struct {
	Index uint32        `json:"index"`
	Start npos.EraIndex `json:"start"`
	// Length is nil for the open span.
	Length  *npos.EraIndex      `json:"length"`
	Slashed math.HexOrDecimal64 `json:"slashed"`
	PaidOut math.HexOrDecimal64 `json:"paidOut"`
}

type Spans struct {
	Stash            npos.Address  `json:"stash"`
	SpanIndex        uint32        `json:"spanIndex"`
	LastStart        npos.EraIndex `json:"lastStart"`
	LastNonzeroSlash npos.EraIndex `json:"lastNonzeroSlash"`
	// Spans are most recent first.
	Spans []*Span `json:"spans"`
}

type ValidatorSlash struct {
	Validator npos.Address        `json:"validator"`
	Era       npos.EraIndex       `json:"era"`
	Fraction  perthing.Perbill    `json:"fraction"`
	Amount    math.HexOrDecimal64 `json:"amount"`
}

func convertSlashes(list []*slashing.UnappliedSlash) []*Slash {
	result := make([]*Slash, 0, len(list))
	for _, u := range list {
		s := &Slash{
			Validator: u.Validator,
			Own:       math.HexOrDecimal64(u.Own),
			Others:    make([]NominatorSlash, 0, len(u.Others)),
			Reporters: append([]npos.Address{}, u.Reporters...),
			Payout:    math.HexOrDecimal64(u.Payout),
		}
		for _, o := range u.Others {
			s.Others = append(s.Others, NominatorSlash{Nominator: o.Who, Amount: math.HexOrDecimal64(o.Value)})
		}
		result = append(result, s)
	}
	return result
}
