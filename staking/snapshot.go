// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/staking/election"
	"github.com/vechain/npos/staking/ledger"
	"github.com/vechain/npos/staking/reverts"
)

var _ election.DataProvider = (*Staking)(nil)

// voterWeight is the active bond of stash, or zero if its ledger cannot be
// loaded consistently.
func (s *Staking) voterWeight(stash npos.Address) (npos.Balance, error) {
	l, err := s.ledgers.Get(ledger.ByStash(stash))
	if err != nil {
		if reverts.IsRevertErr(err) {
			logger.Warn("skipping corrupt ledger in snapshot", "stash", stash, "error", err)
			return 0, nil
		}
		return 0, err
	}
	return l.Active, nil
}

// ElectingVoters returns nominators and validators, the latter voting for
// themselves, by descending active stake until bounds are reached. Targets
// slashed after a nomination was submitted are dropped from it.
func (s *Staking) ElectingVoters(bounds election.Bounds) ([]election.Voter, error) {
	var candidates []election.Voter
	if err := s.IterateNominators(func(stash npos.Address, noms *Nominations) (bool, error) {
		weight, err := s.voterWeight(stash)
		if err != nil || weight == 0 {
			return err == nil, err
		}
		targets := make([]npos.Address, 0, len(noms.Targets))
		for _, t := range noms.Targets {
			spans, err := s.slashing.Spans(t)
			if err != nil {
				return false, err
			}
			if spans == nil || noms.SubmittedIn >= spans.LastNonzeroSlash {
				targets = append(targets, t)
			}
		}
		if len(targets) > 0 {
			candidates = append(candidates, election.Voter{Who: stash, Stake: weight, Targets: targets})
		}
		return true, nil
	}); err != nil {
		return nil, err
	}
	if err := s.IterateValidators(func(stash npos.Address, _ *ValidatorPrefs) (bool, error) {
		weight, err := s.voterWeight(stash)
		if err != nil || weight == 0 {
			return err == nil, err
		}
		candidates = append(candidates, election.Voter{Who: stash, Stake: weight, Targets: []npos.Address{stash}})
		return true, nil
	}); err != nil {
		return nil, err
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Stake != candidates[j].Stake {
			return candidates[i].Stake > candidates[j].Stake
		}
		return candidates[i].Who.Compare(candidates[j].Who) < 0
	})

	var (
		voters    = make([]election.Voter, 0, len(candidates))
		size      uint32
		minActive npos.Balance
	)
	for i := range candidates {
		v := &candidates[i]
		if bounds.Exhausted(uint32(len(voters)+1), saturatingAdd(size, v.EncodedSize())) {
			if bounds.Count == 0 || uint32(len(voters)) < bounds.Count {
				s.emit(&Event{Kind: EventSnapshotVotersSizeExceeded, Amount: npos.Balance(size)})
			}
			break
		}
		size = saturatingAdd(size, v.EncodedSize())
		voters = append(voters, *v)
		minActive = v.Stake
	}
	if err := s.store.minimumActiveStake.Set(minActive); err != nil {
		return nil, errors.Wrap(err, "failed to set minimum active stake")
	}
	logger.Debug("voters snapshot", "voters", len(voters), "candidates", len(candidates), "min-active", minActive)
	return voters, nil
}

// ElectableTargets returns registered validators in address order until
// bounds are reached.
func (s *Staking) ElectableTargets(bounds election.Bounds) ([]npos.Address, error) {
	var (
		targets []npos.Address
		size    uint32
	)
	err := s.IterateValidators(func(stash npos.Address, _ *ValidatorPrefs) (bool, error) {
		if bounds.Exhausted(uint32(len(targets)+1), saturatingAdd(size, npos.AddressLength)) {
			if bounds.Count == 0 || uint32(len(targets)) < bounds.Count {
				s.emit(&Event{Kind: EventSnapshotTargetsSizeExceeded, Amount: npos.Balance(size)})
			}
			return false, nil
		}
		size = saturatingAdd(size, npos.AddressLength)
		targets = append(targets, stash)
		return true, nil
	})
	return targets, err
}

// DesiredTargets is the validator count.
func (s *Staking) DesiredTargets() (uint32, error) {
	return s.ValidatorCount()
}
