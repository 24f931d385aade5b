// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
)

// EventKind names a staking event.
type EventKind string

const (
	EventEraPaid                     EventKind = "EraPaid"
	EventRewarded                    EventKind = "Rewarded"
	EventSlashed                     EventKind = "Slashed"
	EventSlashReported               EventKind = "SlashReported"
	EventSlashCancelled              EventKind = "SlashCancelled"
	EventOldSlashingReportDiscarded  EventKind = "OldSlashingReportDiscarded"
	EventStakersElected              EventKind = "StakersElected"
	EventBonded                      EventKind = "Bonded"
	EventUnbonded                    EventKind = "Unbonded"
	EventWithdrawn                   EventKind = "Withdrawn"
	EventKicked                      EventKind = "Kicked"
	EventStakingElectionFailed       EventKind = "StakingElectionFailed"
	EventChilled                     EventKind = "Chilled"
	EventPayoutStarted               EventKind = "PayoutStarted"
	EventValidatorPrefsSet           EventKind = "ValidatorPrefsSet"
	EventSnapshotVotersSizeExceeded  EventKind = "SnapshotVotersSizeExceeded"
	EventSnapshotTargetsSizeExceeded EventKind = "SnapshotTargetsSizeExceeded"
	EventForceEra                    EventKind = "ForceEra"
	EventControllerBatchDeprecated   EventKind = "ControllerBatchDeprecated"
)

// Event is a staking event. Fields not used by a kind are left zero.
type Event struct {
	Kind EventKind `json:"kind"`
	// Stash is the subject: the staker, validator or nominator.
	Stash npos.Address `json:"stash"`
	// Other is the counterpart: reward account or kicking validator.
	Other     npos.Address      `json:"other"`
	Amount    npos.Balance      `json:"amount"`
	Remainder npos.Balance      `json:"remainder"`
	Era       npos.EraIndex     `json:"era"`
	Session   npos.SessionIndex `json:"session"`
	Page      npos.PageIndex    `json:"page"`
	// Next is the next unpaid page after a payout, if any.
	Next     *npos.PageIndex  `json:"next,omitempty"`
	Fraction perthing.Perbill `json:"fraction"`
	// Detail carries a kind specific label such as a reward destination.
	Detail string `json:"detail"`
}

func (s *Staking) emit(ev *Event) {
	s.events = append(s.events, ev)
	metricEvents().AddWithLabel(1, map[string]string{"kind": string(ev.Kind)})
}

// TakeEvents returns and clears the events of all operations since the last
// call.
func (s *Staking) TakeEvents() []*Event {
	events := s.events
	s.events = nil
	return events
}
