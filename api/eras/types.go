// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eras

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
	"github.com/vechain/npos/staking/exposure"
)

type ActiveEra struct {
	Index npos.EraIndex `json:"index"`
	// Start is the era start in unix milliseconds, zero until the first
	// session of the era has started.
	Start   uint64        `json:"start"`
	Current npos.EraIndex `json:"current"`
	Forcing string        `json:"forcing"`
}

type CurrentEra struct {
	Index        npos.EraIndex      `json:"index"`
	StartSession *npos.SessionIndex `json:"startSession"`
}

// Summary is the snapshot of an era. Once the era is no longer active, it
// never changes until pruned.
type Summary struct {
	Era             npos.EraIndex        `json:"era"`
	StartSession    *npos.SessionIndex   `json:"startSession"`
	ValidatorReward *math.HexOrDecimal64 `json:"validatorReward"`
	TotalStake      math.HexOrDecimal64  `json:"totalStake"`
	TotalPoints     npos.RewardPoint     `json:"totalPoints"`
	Validators      []*Overview          `json:"validators"`
}

type Overview struct {
	Validator      npos.Address        `json:"validator"`
	Total          math.HexOrDecimal64 `json:"total"`
	Own            math.HexOrDecimal64 `json:"own"`
	NominatorCount uint32              `json:"nominatorCount"`
	PageCount      npos.PageIndex      `json:"pageCount"`
	Commission     perthing.Perbill    `json:"commission"`
}

type Individual struct {
	Who   npos.Address        `json:"who"`
	Value math.HexOrDecimal64 `json:"value"`
}

// ExposurePage is one page of the exposure of a validator. Own is only
// counted on page zero.
type ExposurePage struct {
	Validator      npos.Address        `json:"validator"`
	Era            npos.EraIndex       `json:"era"`
	Page           npos.PageIndex      `json:"page"`
	PageCount      npos.PageIndex      `json:"pageCount"`
	Total          math.HexOrDecimal64 `json:"total"`
	Own            math.HexOrDecimal64 `json:"own"`
	NominatorCount uint32              `json:"nominatorCount"`
	PageTotal      math.HexOrDecimal64 `json:"pageTotal"`
	Others         []Individual        `json:"others"`
}

type Claimed struct {
	Validator npos.Address     `json:"validator"`
	Era       npos.EraIndex    `json:"era"`
	PageCount npos.PageIndex   `json:"pageCount"`
	Pages     []npos.PageIndex `json:"pages"`
}

func convertIndividuals(others []exposure.Individual) []Individual {
	result := make([]Individual, 0, len(others))
	for _, o := range others {
		result = append(result, Individual{Who: o.Who, Value: math.HexOrDecimal64(o.Value)})
	}
	return result
}
