// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
	"github.com/vechain/npos/staking/ledger"
	"github.com/vechain/npos/staking/reverts"
	"github.com/vechain/npos/staking/slashing"
)

// OnOffence reports offenders of session slashSession, each to be slashed by
// the fraction at the same index of fractions.
func (s *Staking) OnOffence(offenders []OffenceDetails, fractions []perthing.Perbill, slashSession npos.SessionIndex) error {
	if len(offenders) != len(fractions) {
		return errors.New("offenders and fractions differ in length")
	}
	logger.Debug("offence reported", "offenders", len(offenders), "session", slashSession)

	if err := s.txn("on_offence", func() error { return s.onOffence(offenders, fractions, slashSession) }); err != nil {
		logger.Info("offence handling failed", "session", slashSession, "error", err)
		return err
	}
	return nil
}

func (s *Staking) onOffence(offenders []OffenceDetails, fractions []perthing.Perbill, slashSession npos.SessionIndex) error {
	active, found, err := s.ActiveEra()
	if err != nil || !found {
		return err
	}
	activeStart, found, err := s.EraStartSession(active.Index)
	if err != nil || !found {
		return err
	}
	var windowStart npos.EraIndex
	if active.Index > s.cfg.BondingDuration {
		windowStart = active.Index - s.cfg.BondingDuration
	}

	slashEra := active.Index
	if slashSession < activeStart {
		bonded, err := s.BondedEras()
		if err != nil {
			return err
		}
		i := len(bonded) - 1
		for i >= 0 && bonded[i].Session > slashSession {
			i--
		}
		if i < 0 {
			logger.Debug("discarding old offence", "session", slashSession)
			s.emit(&Event{Kind: EventOldSlashingReportDiscarded, Session: slashSession})
			return nil
		}
		slashEra = bonded[i].Era
	}

	invulnerables, err := s.Invulnerables()
	if err != nil {
		return err
	}
	rewardProportion := s.cfg.SlashRewardFraction
	for i, details := range offenders {
		stash, fraction := details.Offender, fractions[i]
		if slices.Contains(invulnerables, stash) {
			continue
		}
		s.emit(&Event{Kind: EventSlashReported, Stash: stash, Fraction: fraction, Era: slashEra})

		exp, err := s.exposures.Full(slashEra, stash)
		if err != nil {
			return err
		}
		out, err := s.slashing.ComputeSlash(slashing.Params{
			Stash:            stash,
			Fraction:         fraction,
			Exposure:         exp,
			SlashEra:         slashEra,
			WindowStart:      windowStart,
			Now:              active.Index,
			RewardProportion: rewardProportion,
		})
		if err != nil {
			return err
		}
		if out.EndedSpan || out.Kicked {
			if err := s.chillStash(stash); err != nil {
				return err
			}
		}
		switch {
		case out.Slash != nil:
			if err := s.addOffending(stash, true); err != nil {
				return err
			}
		case fraction.Mul(exp.Total) == 0:
			if err := s.addOffending(stash, false); err != nil {
				return err
			}
		}
		if out.Slash == nil {
			continue
		}

		unapplied := out.Slash
		unapplied.Reporters = details.Reporters
		if err := s.payReporters(unapplied); err != nil {
			return err
		}
		applyAt := slashEra + s.cfg.SlashDeferDuration + 1
		if s.cfg.SlashDeferDuration == 0 || applyAt <= active.Index {
			if err := s.applySlash(unapplied, slashEra); err != nil {
				return err
			}
			continue
		}
		logger.Debug("deferring slash", "validator", stash, "era", slashEra, "apply-at", applyAt)
		if err := s.slashing.Defer(applyAt, unapplied); err != nil {
			return err
		}
	}
	return s.refreshUnappliedGauge()
}

// payReporters mints the reporter reward of a slash, split equally.
func (s *Staking) payReporters(u *slashing.UnappliedSlash) error {
	if len(u.Reporters) == 0 || u.Payout == 0 {
		return nil
	}
	share := u.Payout / npos.Balance(len(u.Reporters))
	if share == 0 {
		return nil
	}
	for _, reporter := range u.Reporters {
		if _, err := s.currency.Mint(reporter, share); err != nil {
			return err
		}
	}
	return nil
}

// addOffending records stash as an offender of the active era, disabling it
// if asked. A new era is forced once the offenders outnumber the threshold
// share of the session validators.
func (s *Staking) addOffending(stash npos.Address, disable bool) error {
	validators := s.session.Validators()
	idx := slices.Index(validators, stash)
	if idx < 0 {
		return nil
	}
	index := uint32(idx)

	offending, err := s.OffendingValidators()
	if err != nil {
		return err
	}
	pos, found := slices.BinarySearchFunc(offending, index, func(o OffendingValidator, i uint32) int {
		return int(int64(o.Index) - int64(i))
	})
	if !found {
		offending = slices.Insert(offending, pos, OffendingValidator{Index: index, Disabled: disable})
		threshold := s.cfg.OffendingValidatorsThreshold.Mul(uint64(len(validators)))
		if uint64(len(offending)) > threshold {
			if err := s.ensureNewEra(); err != nil {
				return err
			}
		}
		if disable {
			s.session.DisableValidator(index)
		}
	} else if disable && !offending[pos].Disabled {
		offending[pos].Disabled = true
		s.session.DisableValidator(index)
	}
	return errors.Wrap(s.store.offending.Set(offending), "failed to set offending validators")
}

func (s *Staking) applyUnappliedSlashes(era npos.EraIndex) error {
	list, err := s.slashing.TakeUnapplied(era)
	if err != nil || len(list) == 0 {
		return err
	}
	var slashEra npos.EraIndex
	if era > s.cfg.SlashDeferDuration {
		slashEra = era - s.cfg.SlashDeferDuration - 1
	}
	for _, u := range list {
		if err := s.applySlash(u, slashEra); err != nil {
			return err
		}
	}
	logger.Info("applied deferred slashes", "era", era, "count", len(list))
	return s.refreshUnappliedGauge()
}

func (s *Staking) applySlash(u *slashing.UnappliedSlash, slashEra npos.EraIndex) error {
	if err := s.doSlash(u.Validator, u.Own, slashEra); err != nil {
		return err
	}
	for _, o := range u.Others {
		if err := s.doSlash(o.Who, o.Value, slashEra); err != nil {
			return err
		}
	}
	return nil
}

func (s *Staking) doSlash(stash npos.Address, value npos.Balance, slashEra npos.EraIndex) error {
	l, err := s.ledgers.Get(ledger.ByStash(stash))
	if err != nil {
		if reverts.IsRevertErr(err) {
			return nil
		}
		return err
	}
	out := l.Slash(value, s.minimumBalance(), slashEra, s.cfg.BondingDuration)
	if out.Total == 0 {
		return nil
	}
	virtual, err := s.ledgers.IsVirtual(stash)
	if err != nil {
		return err
	}
	if virtual {
		s.observer.OnSlash(stash, l.Active, out.Unlocking, out.Total)
	} else if _, err := s.currency.Slash(stash, out.Total); err != nil {
		return err
	}
	if err := s.updateLedger(l); err != nil {
		return err
	}
	s.emit(&Event{Kind: EventSlashed, Stash: stash, Amount: out.Total, Era: slashEra})
	metricSlashed().Add(int64(out.Total))
	logger.Debug("slashed", "stash", stash, "amount", out.Total)
	return nil
}

func (s *Staking) refreshUnappliedGauge() error {
	var n int64
	if err := s.slashing.IterateUnapplied(func(_ npos.EraIndex, list []*slashing.UnappliedSlash) (bool, error) {
		n += int64(len(list))
		return true, nil
	}); err != nil {
		return err
	}
	metricUnapplied().Set(n)
	return nil
}

// ManualSlash reports an offence of validator in era on behalf of the
// privileged origin.
func (s *Staking) ManualSlash(origin Origin, validator npos.Address, era npos.EraIndex, fraction perthing.Perbill) error {
	if err := origin.ensureRoot(); err != nil {
		return err
	}
	logger.Debug("manual slash", "validator", validator, "era", era, "fraction", fraction)

	if err := s.txn("manual_slash", func() error {
		current, found, err := s.CurrentEra()
		if err != nil {
			return err
		}
		if !found || era > current || era+s.cfg.HistoryDepth < current {
			return reverts.ErrInvalidEraToReward
		}
		session, found, err := s.EraStartSession(era)
		if err != nil {
			return err
		}
		if !found {
			return reverts.ErrInvalidEraToReward
		}
		return s.onOffence([]OffenceDetails{{Offender: validator}}, []perthing.Perbill{fraction}, session)
	}); err != nil {
		logger.Info("manual slash failed", "validator", validator, "error", err)
		return err
	}

	logger.Info("manually slashed", "validator", validator, "era", era)
	return nil
}

// CancelDeferredSlash drops the deferred slashes of era at the given
// indices, which must be strictly increasing.
func (s *Staking) CancelDeferredSlash(origin Origin, era npos.EraIndex, indices []uint32) error {
	if err := origin.ensureRoot(); err != nil {
		return err
	}
	logger.Debug("cancelling deferred slashes", "era", era, "indices", indices)

	if err := s.txn("cancel_deferred_slash", func() error {
		if len(indices) == 0 {
			return reverts.ErrEmptyTargets
		}
		for i := 1; i < len(indices); i++ {
			if indices[i] <= indices[i-1] {
				return reverts.ErrNotSortedAndUnique
			}
		}
		list, err := s.slashing.Unapplied(era)
		if err != nil {
			return err
		}
		if int(indices[len(indices)-1]) >= len(list) {
			return reverts.ErrInvalidSlashIndex
		}
		for i := len(indices) - 1; i >= 0; i-- {
			removed := list[indices[i]]
			list = slices.Delete(list, int(indices[i]), int(indices[i])+1)
			s.emit(&Event{Kind: EventSlashCancelled, Stash: removed.Validator, Era: era, Amount: removed.Total()})
		}
		if err := s.slashing.SetUnapplied(era, list); err != nil {
			return err
		}
		return s.refreshUnappliedGauge()
	}); err != nil {
		logger.Info("cancel deferred slash failed", "era", era, "error", err)
		return err
	}

	logger.Info("cancelled deferred slashes", "era", era, "count", len(indices))
	return nil
}
