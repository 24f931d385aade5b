// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
	"github.com/vechain/npos/staking/reverts"
)

// UnlockChunk is a portion of a ledger scheduled to become withdrawable at Era.
type UnlockChunk struct {
	Value npos.Balance
	Era   npos.EraIndex
}

// StakingLedger is the bonded funds of a stash.
type StakingLedger struct {
	Stash     npos.Address
	Total     npos.Balance
	Active    npos.Balance
	Unlocking []UnlockChunk
	// LegacyClaimedRewards lists eras paid out before paged exposures. Sorted.
	LegacyClaimedRewards []npos.EraIndex

	// Controller is resolved from the bonded map and never stored.
	Controller npos.Address `rlp:"-"`
}

// New returns a ledger with value fully active.
func New(stash npos.Address, value npos.Balance) *StakingLedger {
	return &StakingLedger{
		Stash:      stash,
		Total:      value,
		Active:     value,
		Controller: stash,
	}
}

func (l *StakingLedger) Clone() *StakingLedger {
	c := *l
	c.Unlocking = append([]UnlockChunk(nil), l.Unlocking...)
	c.LegacyClaimedRewards = append([]npos.EraIndex(nil), l.LegacyClaimedRewards...)
	return &c
}

// UnlockingBalance is the sum of all unlocking chunks.
func (l *StakingLedger) UnlockingBalance() npos.Balance {
	var sum npos.Balance
	for _, c := range l.Unlocking {
		sum += c.Value
	}
	return sum
}

// Check verifies the ledger accounting and the chunk bound.
func (l *StakingLedger) Check(maxChunks uint32) error {
	if uint32(len(l.Unlocking)) > maxChunks {
		return reverts.ErrBadState
	}
	var sum npos.Balance
	for i, c := range l.Unlocking {
		if c.Value == 0 {
			return reverts.ErrBadState
		}
		if i > 0 && c.Era <= l.Unlocking[i-1].Era {
			return reverts.ErrBadState
		}
		var overflow bool
		if sum, overflow = math.SafeAdd(sum, c.Value); overflow {
			return reverts.ErrBadState
		}
	}
	if total, overflow := math.SafeAdd(l.Active, sum); overflow || total != l.Total {
		return reverts.ErrBadState
	}
	return nil
}

// BondExtra adds extra to both active and total.
func (l *StakingLedger) BondExtra(extra npos.Balance) error {
	total, overflow := math.SafeAdd(l.Total, extra)
	if overflow {
		return errors.New("ledger total overflow")
	}
	active, overflow := math.SafeAdd(l.Active, extra)
	if overflow {
		return errors.New("ledger active overflow")
	}
	l.Total, l.Active = total, active
	return nil
}

// Unbond moves up to value from active into a chunk unlocking at era. A
// remaining active balance below minimumBalance is swept along. It returns
// the amount actually scheduled.
//
// A value unlocking in the era of the last chunk is merged into it. Otherwise
// the queue must have room for a new chunk; the caller withdraws matured
// chunks beforehand.
func (l *StakingLedger) Unbond(value npos.Balance, era npos.EraIndex, maxChunks uint32, minimumBalance npos.Balance) (npos.Balance, error) {
	n := len(l.Unlocking)
	merge := n > 0 && l.Unlocking[n-1].Era == era
	if !merge && uint32(n) >= maxChunks {
		return 0, reverts.ErrNoMoreChunks
	}
	value = min(value, l.Active)
	if value == 0 {
		return 0, nil
	}
	l.Active -= value
	if l.Active < minimumBalance {
		value += l.Active
		l.Active = 0
	}
	if merge {
		l.Unlocking[n-1].Value += value
	} else {
		l.Unlocking = append(l.Unlocking, UnlockChunk{Value: value, Era: era})
	}
	return value, nil
}

// Rebond moves up to value from the unlocking queue back to active, newest
// chunks first. It returns the amount rebonded.
func (l *StakingLedger) Rebond(value npos.Balance) npos.Balance {
	var rebonded npos.Balance
	for len(l.Unlocking) > 0 && rebonded < value {
		last := &l.Unlocking[len(l.Unlocking)-1]
		if rebonded+last.Value <= value {
			rebonded += last.Value
			l.Active += last.Value
			l.Unlocking = l.Unlocking[:len(l.Unlocking)-1]
			continue
		}
		diff := value - rebonded
		rebonded += diff
		l.Active += diff
		last.Value -= diff
	}
	return rebonded
}

// ConsolidateUnlocked drops chunks that unlocked at or before currentEra and
// returns the withdrawn amount.
func (l *StakingLedger) ConsolidateUnlocked(currentEra npos.EraIndex) npos.Balance {
	var withdrawn npos.Balance
	kept := l.Unlocking[:0]
	for _, c := range l.Unlocking {
		if c.Era > currentEra {
			kept = append(kept, c)
			continue
		}
		withdrawn += c.Value
	}
	l.Unlocking = kept
	if len(l.Unlocking) == 0 {
		l.Unlocking = nil
	}
	withdrawn = min(withdrawn, l.Total)
	l.Total -= withdrawn
	return withdrawn
}

// SlashOutcome details how a slash was taken out of a ledger.
type SlashOutcome struct {
	Active    npos.Balance
	Unlocking map[npos.EraIndex]npos.Balance
	Total     npos.Balance
}

// Slash takes up to amount from the ledger and returns what was taken.
//
// Chunks unlocking at or after slashEra+bondingDuration were still bonded
// when the offence happened. If any exist, active and those chunks pay
// proportionally to their size; earlier chunks are only touched, newest
// first, when the proportional pass leaves a remainder. Otherwise active pays
// first and then chunks newest first. Any bucket left at or below
// minimumBalance is swept entirely.
func (l *StakingLedger) Slash(amount, minimumBalance npos.Balance, slashEra, bondingDuration npos.EraIndex) SlashOutcome {
	outcome := SlashOutcome{Unlocking: make(map[npos.EraIndex]npos.Balance)}
	if amount == 0 {
		outcome.Active = l.Active
		return outcome
	}
	remaining := amount
	preTotal := l.Total
	slashableStart := slashEra + bondingDuration
	if slashableStart < slashEra {
		slashableStart = ^npos.EraIndex(0)
	}

	var (
		ratio        perthing.Perquintill
		proportional bool
		priority     []int
	)
	first := -1
	for i, c := range l.Unlocking {
		if c.Era >= slashableStart {
			first = i
			break
		}
	}
	if first >= 0 {
		affected := l.Active
		for i := first; i < len(l.Unlocking); i++ {
			affected += l.Unlocking[i].Value
		}
		ratio = perthing.PerquintillFromRationalWithRounding(amount, affected, perthing.Up)
		proportional = true
		for i := first; i < len(l.Unlocking); i++ {
			priority = append(priority, i)
		}
		for i := first - 1; i >= 0; i-- {
			priority = append(priority, i)
		}
	} else {
		for i := len(l.Unlocking) - 1; i >= 0; i-- {
			priority = append(priority, i)
		}
	}

	slashOutOf := func(target *npos.Balance) {
		var take npos.Balance
		if proportional {
			take = ratio.MulCeil(*target)
		} else {
			take = remaining
		}
		take = min(take, *target, remaining)
		*target -= take
		if *target <= minimumBalance {
			take += *target
			*target = 0
		}
		l.Total -= min(take, l.Total)
		remaining -= min(take, remaining)
	}

	slashOutOf(&l.Active)
	for _, i := range priority {
		if remaining == 0 {
			break
		}
		chunk := &l.Unlocking[i]
		slashOutOf(&chunk.Value)
		outcome.Unlocking[chunk.Era] = chunk.Value
	}

	kept := l.Unlocking[:0]
	for _, c := range l.Unlocking {
		if c.Value != 0 {
			kept = append(kept, c)
		}
	}
	l.Unlocking = kept
	if len(l.Unlocking) == 0 {
		l.Unlocking = nil
	}

	outcome.Active = l.Active
	outcome.Total = preTotal - l.Total
	return outcome
}
