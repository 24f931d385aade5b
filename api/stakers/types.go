// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakers

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
	"github.com/vechain/npos/staking"
	"github.com/vechain/npos/staking/ledger"
)

type UnlockChunk struct {
	Value math.HexOrDecimal64 `json:"value"`
	Era   npos.EraIndex       `json:"era"`
}

type Payee struct {
	Kind    string        `json:"kind"`
	Account *npos.Address `json:"account,omitempty"`
}

type Ledger struct {
	Stash                npos.Address        `json:"stash"`
	Controller           npos.Address        `json:"controller"`
	Total                math.HexOrDecimal64 `json:"total"`
	Active               math.HexOrDecimal64 `json:"active"`
	Unlocking            []UnlockChunk       `json:"unlocking"`
	LegacyClaimedRewards []npos.EraIndex     `json:"legacyClaimedRewards"`
	Payee                *Payee              `json:"payee"`
	Virtual              bool                `json:"virtual"`
}

type Validator struct {
	Stash      npos.Address     `json:"stash"`
	Commission perthing.Perbill `json:"commission"`
	Blocked    bool             `json:"blocked"`
}

type Nominator struct {
	Stash npos.Address `json:"stash"`
	staking.Nominations
}

// Params are the staking parameters in effect.
type Params struct {
	staking.DynamicParams
	ValidatorCount     uint32              `json:"validatorCount"`
	ValidatorsCount    uint32              `json:"validatorsCount"`
	NominatorsCount    uint32              `json:"nominatorsCount"`
	MinimumActiveStake math.HexOrDecimal64 `json:"minimumActiveStake"`
	Invulnerables      []npos.Address      `json:"invulnerables"`
	Forcing            string              `json:"forcing"`
	SessionsPerEra     npos.SessionIndex   `json:"sessionsPerEra"`
	BondingDuration    npos.EraIndex       `json:"bondingDuration"`
	HistoryDepth       uint32              `json:"historyDepth"`
}

func convertLedger(l *ledger.StakingLedger, payee ledger.RewardDestination, hasPayee, virtual bool) *Ledger {
	result := &Ledger{
		Stash:                l.Stash,
		Controller:           l.Controller,
		Total:                math.HexOrDecimal64(l.Total),
		Active:               math.HexOrDecimal64(l.Active),
		Unlocking:            make([]UnlockChunk, 0, len(l.Unlocking)),
		LegacyClaimedRewards: append([]npos.EraIndex{}, l.LegacyClaimedRewards...),
		Virtual:              virtual,
	}
	for _, c := range l.Unlocking {
		result.Unlocking = append(result.Unlocking, UnlockChunk{Value: math.HexOrDecimal64(c.Value), Era: c.Era})
	}
	if hasPayee {
		result.Payee = &Payee{Kind: payee.Kind.String()}
		if payee.Kind == ledger.PayAccount {
			account := payee.Account
			result.Payee.Account = &account
		}
	}
	return result
}
