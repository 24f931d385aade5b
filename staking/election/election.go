// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package election selects validators from the snapshot of voters and targets
// exposed by the staking engine.
package election

import (
	"bytes"
	"errors"
	"slices"
	"sort"

	"github.com/ethereum/go-ethereum/log"

	"github.com/vechain/npos/npos"
)

var logger = log.New("pkg", "election")

// SetLogger replaces the package logger.
func SetLogger(l log.Logger) {
	logger = l
}

var (
	ErrNoTargets = errors.New("no electable targets")
	ErrNoWinners = errors.New("no winners")
)

// Bounds limits a snapshot. Zero fields are unbounded.
type Bounds struct {
	Count uint32 `yaml:"count"`
	Size  uint32 `yaml:"size"`
}

// Exhausted reports whether count items of total encoded size exceed the
// bounds.
func (b Bounds) Exhausted(count, size uint32) bool {
	return (b.Count != 0 && count > b.Count) || (b.Size != 0 && size > b.Size)
}

// Voter is a staker, its approval stake and the validators it backs.
type Voter struct {
	Who     npos.Address
	Stake   npos.Balance
	Targets []npos.Address
}

// EncodedSize approximates the snapshot footprint of a voter.
func (v *Voter) EncodedSize() uint32 {
	return uint32(len(npos.Address{})*(1+len(v.Targets)) + 8)
}

// Backing is the part of a voter stake assigned to a winner.
type Backing struct {
	Who   npos.Address
	Stake npos.Balance
}

// Support is an elected validator and the stake behind it.
type Support struct {
	Validator npos.Address
	Total     npos.Balance
	Voters    []Backing
}

// DataProvider exposes the election snapshot.
type DataProvider interface {
	ElectingVoters(bounds Bounds) ([]Voter, error)
	ElectableTargets(bounds Bounds) ([]npos.Address, error)
	DesiredTargets() (uint32, error)
}

// Provider runs an election over a data provider.
type Provider interface {
	Elect(data DataProvider) ([]Support, error)
}

// Approval elects the targets with the largest approval stake. Each voter
// splits its stake equally between the electable targets it backs, first
// to score targets and then again between the winners among them.
type Approval struct {
	VoterBounds  Bounds
	TargetBounds Bounds
}

// split divides stake into n parts, the first parts taking the remainder.
func split(stake npos.Balance, n int) []npos.Balance {
	parts := make([]npos.Balance, n)
	share, rem := stake/npos.Balance(n), stake%npos.Balance(n)
	for i := range parts {
		parts[i] = share
		if npos.Balance(i) < rem {
			parts[i]++
		}
	}
	return parts
}

func (a *Approval) Elect(data DataProvider) ([]Support, error) {
	targets, err := data.ElectableTargets(a.TargetBounds)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	voters, err := data.ElectingVoters(a.VoterBounds)
	if err != nil {
		return nil, err
	}
	desired, err := data.DesiredTargets()
	if err != nil {
		return nil, err
	}

	electable := make(map[npos.Address]bool, len(targets))
	for _, t := range targets {
		electable[t] = true
	}
	filter := func(in []npos.Address, keep map[npos.Address]bool) []npos.Address {
		out := make([]npos.Address, 0, len(in))
		for _, t := range in {
			if keep[t] && !slices.Contains(out, t) {
				out = append(out, t)
			}
		}
		return out
	}

	scores := make(map[npos.Address]npos.Balance, len(targets))
	for _, v := range voters {
		backed := filter(v.Targets, electable)
		if len(backed) == 0 || v.Stake == 0 {
			continue
		}
		for i, part := range split(v.Stake, len(backed)) {
			scores[backed[i]] += part
		}
	}

	ranked := make([]npos.Address, 0, len(scores))
	for t, score := range scores {
		if score > 0 {
			ranked = append(ranked, t)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		si, sj := scores[ranked[i]], scores[ranked[j]]
		if si != sj {
			return si > sj
		}
		return bytes.Compare(ranked[i][:], ranked[j][:]) < 0
	})
	if uint32(len(ranked)) > desired {
		ranked = ranked[:desired]
	}
	if len(ranked) == 0 {
		return nil, ErrNoWinners
	}

	winners := make(map[npos.Address]bool, len(ranked))
	supports := make(map[npos.Address]*Support, len(ranked))
	for _, w := range ranked {
		winners[w] = true
		supports[w] = &Support{Validator: w}
	}
	for _, v := range voters {
		backed := filter(v.Targets, winners)
		if len(backed) == 0 || v.Stake == 0 {
			continue
		}
		for i, part := range split(v.Stake, len(backed)) {
			if part == 0 {
				continue
			}
			s := supports[backed[i]]
			s.Voters = append(s.Voters, Backing{Who: v.Who, Stake: part})
			s.Total += part
		}
	}

	out := make([]Support, 0, len(ranked))
	for _, w := range ranked {
		out = append(out, *supports[w])
	}
	logger.Debug("elected", "winners", len(out), "voters", len(voters), "targets", len(targets))
	return out, nil
}
