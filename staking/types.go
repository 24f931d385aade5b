// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"fmt"
	"math"
	"slices"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
)

// ValidatorPrefs are the terms a validator offers its nominators.
type ValidatorPrefs struct {
	Commission perthing.Perbill `json:"commission"`
	// Blocked validators accept no new nominations.
	Blocked bool `json:"blocked"`
}

// Nominations are the validators a nominator backs.
type Nominations struct {
	Targets []npos.Address `json:"targets"`
	// SubmittedIn is the era the nominations were last changed. Targets
	// slashed after it are ignored by the election.
	SubmittedIn npos.EraIndex `json:"submittedIn"`
	Suppressed  bool          `json:"suppressed"`
}

// ActiveEraInfo is the era currently being rewarded.
type ActiveEraInfo struct {
	Index npos.EraIndex `json:"index"`
	// Start is the unix time in milliseconds the era started.
	Start uint64 `json:"start"`
}

// Forcing controls era rotation.
type Forcing uint8

const (
	// NotForcing rotates eras every SessionsPerEra sessions.
	NotForcing Forcing = iota
	// ForceNew starts a new era at the next session, then falls back to NotForcing.
	ForceNew
	// ForceNone never starts a new era.
	ForceNone
	// ForceAlways starts a new era at every session.
	ForceAlways
)

func (f Forcing) String() string {
	switch f {
	case NotForcing:
		return "not-forcing"
	case ForceNew:
		return "force-new"
	case ForceNone:
		return "force-none"
	case ForceAlways:
		return "force-always"
	}
	return fmt.Sprintf("forcing(%d)", uint8(f))
}

// ValidatorPoints is the reward points of one validator.
type ValidatorPoints struct {
	Validator npos.Address     `json:"validator"`
	Points    npos.RewardPoint `json:"points"`
}

// EraRewardPoints accumulates reward points during an era.
type EraRewardPoints struct {
	Total      npos.RewardPoint  `json:"total"`
	Individual []ValidatorPoints `json:"individual"`
}

// Add credits points to validator, keeping Individual sorted.
func (p *EraRewardPoints) Add(validator npos.Address, points npos.RewardPoint) {
	i, found := slices.BinarySearchFunc(p.Individual, validator, func(e ValidatorPoints, v npos.Address) int {
		return e.Validator.Compare(v)
	})
	if found {
		p.Individual[i].Points = saturatingAdd(p.Individual[i].Points, points)
	} else {
		p.Individual = slices.Insert(p.Individual, i, ValidatorPoints{Validator: validator, Points: points})
	}
	p.Total = saturatingAdd(p.Total, points)
}

func saturatingAdd(a, b uint32) uint32 {
	if c := a + b; c >= a {
		return c
	}
	return math.MaxUint32
}

// Of returns the points of validator.
func (p *EraRewardPoints) Of(validator npos.Address) npos.RewardPoint {
	i, found := slices.BinarySearchFunc(p.Individual, validator, func(e ValidatorPoints, v npos.Address) int {
		return e.Validator.Compare(v)
	})
	if !found {
		return 0
	}
	return p.Individual[i].Points
}

// BondedEra maps an era to its first session.
type BondedEra struct {
	Era     npos.EraIndex
	Session npos.SessionIndex
}

// OffendingValidator is an index into the session validator set.
type OffendingValidator struct {
	Index    uint32
	Disabled bool
}

// OffenceDetails is a reported offender and who reported it.
type OffenceDetails struct {
	Offender  npos.Address
	Reporters []npos.Address
}
