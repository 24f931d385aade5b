// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
	"github.com/vechain/npos/staking/ledger"
	"github.com/vechain/npos/staking/reverts"
)

// PayoutStakers pays the lowest unpaid page of validator for era.
func (s *Staking) PayoutStakers(origin Origin, validator npos.Address, era npos.EraIndex) error {
	if _, err := origin.ensureSigned(); err != nil {
		return err
	}
	logger.Debug("paying out stakers", "validator", validator, "era", era)

	if err := s.txn("payout_stakers", func() error {
		l, err := s.ledgers.Get(ledger.ByStash(validator))
		if err != nil {
			return err
		}
		page, found, err := s.exposures.NextClaimablePage(era, validator, l.LegacyClaimedRewards)
		if err != nil {
			return err
		}
		if !found {
			return reverts.ErrAlreadyClaimed
		}
		return s.payoutStakersByPage(validator, era, page)
	}); err != nil {
		logger.Info("payout stakers failed", "validator", validator, "era", era, "error", err)
		return err
	}
	return nil
}

// PayoutStakersByPage pays the validator and the nominators on one page of
// its exposure for era. Anyone may call it.
func (s *Staking) PayoutStakersByPage(origin Origin, validator npos.Address, era npos.EraIndex, page npos.PageIndex) error {
	if _, err := origin.ensureSigned(); err != nil {
		return err
	}
	logger.Debug("paying out page", "validator", validator, "era", era, "page", page)

	if err := s.txn("payout_stakers_by_page", func() error {
		return s.payoutStakersByPage(validator, era, page)
	}); err != nil {
		logger.Info("payout page failed", "validator", validator, "era", era, "page", page, "error", err)
		return err
	}

	logger.Info("paid out page", "validator", validator, "era", era, "page", page)
	return nil
}

func (s *Staking) payoutStakersByPage(validator npos.Address, era npos.EraIndex, page npos.PageIndex) error {
	current, found, err := s.CurrentEra()
	if err != nil {
		return err
	}
	depth := s.cfg.HistoryDepth
	if !found || era >= current || era+depth < current {
		return reverts.ErrInvalidEraToReward
	}
	pageCount, err := s.exposures.PageCount(era, validator)
	if err != nil {
		return err
	}
	if page >= pageCount {
		return reverts.ErrInvalidPage
	}
	eraPayout, found, err := s.EraValidatorReward(era)
	if err != nil {
		return err
	}
	if !found {
		return reverts.ErrInvalidEraToReward
	}

	l, err := s.ledgers.Get(ledger.ByStash(validator))
	if err != nil {
		return err
	}
	if n := len(l.LegacyClaimedRewards); n > 0 {
		kept := l.LegacyClaimedRewards[:0]
		for _, e := range l.LegacyClaimedRewards {
			if e+depth >= current {
				kept = append(kept, e)
			}
		}
		if len(kept) != n {
			if len(kept) == 0 {
				kept = nil
			}
			l.LegacyClaimedRewards = kept
			if err := s.ledgers.Put(l); err != nil {
				return err
			}
		}
	}

	claimed, err := s.exposures.IsClaimed(era, validator, page, l.LegacyClaimedRewards)
	if err != nil {
		return err
	}
	if claimed {
		return reverts.ErrAlreadyClaimed
	}
	if err := s.exposures.SetClaimed(era, validator, page); err != nil {
		return err
	}

	exp, err := s.exposures.Paged(era, validator, page)
	if err != nil {
		return err
	}
	if exp == nil {
		return reverts.ErrInvalidEraToReward
	}
	points, err := s.EraRewardPoints(era)
	if err != nil {
		return err
	}
	validatorPoints := points.Of(validator)
	if validatorPoints == 0 {
		return nil
	}

	total := perthing.PerbillFromRational(uint64(validatorPoints), uint64(points.Total)).Mul(eraPayout)
	prefs, err := s.EraValidatorPrefs(era, validator)
	if err != nil {
		return err
	}
	commission := prefs.Commission.Mul(total)
	leftover := total - commission

	next, more, err := s.exposures.NextClaimablePage(era, validator, l.LegacyClaimedRewards)
	if err != nil {
		return err
	}
	started := &Event{Kind: EventPayoutStarted, Stash: validator, Era: era, Page: page}
	if more {
		started.Next = &next
	}
	s.emit(started)

	// a zero total reads as a full share, so an empty own stake is skipped
	var own npos.Balance
	if exp.Own() > 0 {
		own = perthing.PerbillFromRational(exp.Own(), exp.Total()).Mul(leftover)
	}
	if page == 0 {
		own += commission
	}
	if err := s.makePayout(validator, own); err != nil {
		return err
	}
	for _, n := range exp.Others() {
		reward := perthing.PerbillFromRational(n.Value, exp.Total()).Mul(leftover)
		if n.Value == 0 {
			reward = 0
		}
		if err := s.makePayout(n.Who, reward); err != nil {
			return err
		}
	}
	return nil
}

// makePayout mints amount to where stash wants its rewards.
func (s *Staking) makePayout(stash npos.Address, amount npos.Balance) error {
	if amount == 0 {
		return nil
	}
	dest, found, err := s.ledgers.Payee(stash)
	if err != nil || !found {
		return err
	}

	var (
		paid npos.Balance
		to   = stash
	)
	switch dest.Kind {
	case ledger.PayStash:
		if paid, err = s.currency.Mint(stash, amount); err != nil {
			return err
		}
	case ledger.PayStaked:
		l, err := s.ledgers.Get(ledger.ByStash(stash))
		if err != nil {
			if reverts.IsRevertErr(err) {
				return nil
			}
			return err
		}
		if paid, err = s.currency.Mint(stash, amount); err != nil {
			return err
		}
		if err := l.BondExtra(paid); err != nil {
			return err
		}
		if err := s.updateLedger(l); err != nil {
			return err
		}
	case ledger.PayAccount:
		to = dest.Account
		if paid, err = s.currency.Mint(to, amount); err != nil {
			return err
		}
	case ledger.PayController:
		controller, bonded, err := s.ledgers.Bonded(stash)
		if err != nil || !bonded {
			return err
		}
		logger.Warn("paying deprecated controller destination", "stash", stash)
		to = controller
		if paid, err = s.currency.Mint(to, amount); err != nil {
			return err
		}
	default:
		return nil
	}
	if paid == 0 {
		return nil
	}
	s.emit(&Event{Kind: EventRewarded, Stash: stash, Other: to, Amount: paid, Detail: dest.Kind.String()})
	metricPaidOut().Add(int64(paid))
	return nil
}
