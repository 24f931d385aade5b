// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/staking/ledger"
	"github.com/vechain/npos/staking/reverts"
)

// Bond locks value from the caller's balance as a new stash. The stash acts
// as its own controller.
func (s *Staking) Bond(origin Origin, value npos.Balance, payee ledger.RewardDestination) error {
	stash, err := origin.ensureSigned()
	if err != nil {
		return err
	}
	logger.Debug("bonding", "stash", stash, "value", value, "payee", payee)

	if err := s.txn("bond", func() error { return s.bond(stash, value, payee) }); err != nil {
		logger.Info("bond failed", "stash", stash, "error", err)
		return err
	}

	logger.Info("bonded", "stash", stash)
	return nil
}

func (s *Staking) bond(stash npos.Address, value npos.Balance, payee ledger.RewardDestination) error {
	if bonded, err := s.ledgers.IsBonded(ledger.ByStash(stash)); err != nil {
		return err
	} else if bonded {
		return reverts.ErrAlreadyBonded
	}
	if paired, err := s.ledgers.IsBonded(ledger.ByController(stash)); err != nil {
		return err
	} else if paired {
		return reverts.ErrAlreadyPaired
	}
	if payee.Kind == ledger.PayController {
		return reverts.ErrControllerDeprecated
	}
	ed := s.minimumBalance()
	if value < ed {
		return reverts.ErrInsufficientBond
	}
	if s.restrict != nil && s.restrict(stash) {
		return reverts.ErrRestricted
	}

	stakeable, err := s.currency.Stakeable(stash)
	if err != nil {
		return err
	}
	value = min(value, stakeable)
	if value < ed {
		return reverts.ErrInsufficientBond
	}

	l := ledger.New(stash, value)
	if err := s.ledgers.Bond(l, payee); err != nil {
		return err
	}
	s.emit(&Event{Kind: EventBonded, Stash: stash, Amount: value})
	return s.updateLedger(l)
}

// BondExtra adds up to max of the stash's free balance to its bond. The
// amount is clamped to what the stash can stake without failing.
func (s *Staking) BondExtra(origin Origin, max npos.Balance) error {
	stash, err := origin.ensureSigned()
	if err != nil {
		return err
	}
	logger.Debug("bonding extra", "stash", stash, "max", max)

	if err := s.txn("bond_extra", func() error { return s.bondExtra(stash, max) }); err != nil {
		logger.Info("bond extra failed", "stash", stash, "error", err)
		return err
	}

	logger.Info("bonded extra", "stash", stash)
	return nil
}

func (s *Staking) bondExtra(stash npos.Address, max npos.Balance) error {
	if virtual, err := s.ledgers.IsVirtual(stash); err != nil {
		return err
	} else if virtual {
		return reverts.ErrVirtualStakerNotAllowed
	}
	if s.restrict != nil && s.restrict(stash) {
		return reverts.ErrRestricted
	}
	l, err := s.ledgers.Get(ledger.ByStash(stash))
	if err != nil {
		return err
	}
	stakeable, err := s.currency.Stakeable(stash)
	if err != nil {
		return err
	}
	var extra npos.Balance
	if stakeable > l.Total {
		extra = min(max, stakeable-l.Total)
	}
	if err := l.BondExtra(extra); err != nil {
		return err
	}
	if l.Active < s.minimumBalance() {
		return reverts.ErrInsufficientBond
	}
	if err := s.updateLedger(l); err != nil {
		return err
	}
	s.emit(&Event{Kind: EventBonded, Stash: stash, Amount: extra})
	return nil
}

// Unbond schedules value of the active bond for withdrawal after the bonding
// duration. A full queue is first consolidated with matured chunks.
func (s *Staking) Unbond(origin Origin, value npos.Balance) error {
	controller, err := origin.ensureSigned()
	if err != nil {
		return err
	}
	logger.Debug("unbonding", "controller", controller, "value", value)

	if err := s.txn("unbond", func() error { return s.unbond(controller, value) }); err != nil {
		logger.Info("unbond failed", "controller", controller, "error", err)
		return err
	}

	logger.Info("unbonded", "controller", controller)
	return nil
}

func (s *Staking) unbond(controller npos.Address, value npos.Balance) error {
	l, err := s.ledgers.Get(ledger.ByController(controller))
	if err != nil {
		return err
	}
	if uint32(len(l.Unlocking)) >= s.cfg.MaxUnlockingChunks {
		spans, err := s.slashing.SpanCount(l.Stash)
		if err != nil {
			return err
		}
		if _, err := s.withdrawUnbonded(controller, spans); err != nil {
			return err
		}
		if l, err = s.ledgers.Get(ledger.ByController(controller)); err != nil {
			return err
		}
	}

	current, err := s.currentEraOrZero()
	if err != nil {
		return err
	}
	unbonded, err := l.Unbond(value, current+s.cfg.BondingDuration, s.cfg.MaxUnlockingChunks, s.minimumBalance())
	if err != nil {
		return err
	}
	if unbonded == 0 {
		return nil
	}

	minActive, err := s.minimumActiveBond(l.Stash)
	if err != nil {
		return err
	}
	if l.Active != 0 && l.Active < minActive {
		return reverts.ErrInsufficientBond
	}
	if err := s.updateLedger(l); err != nil {
		return err
	}
	s.emit(&Event{Kind: EventUnbonded, Stash: l.Stash, Amount: unbonded})
	return nil
}

// minimumActiveBond is the bond the role of stash requires.
func (s *Staking) minimumActiveBond(stash npos.Address) (npos.Balance, error) {
	if nominator, err := s.store.isNominator(stash); err != nil {
		return 0, err
	} else if nominator {
		return valueOr(s.store.minNominatorBond, 0)
	}
	if validator, err := s.store.isValidator(stash); err != nil {
		return 0, err
	} else if validator {
		return valueOr(s.store.minValidatorBond, 0)
	}
	return 0, nil
}

// Rebond moves up to value from the unlocking queue back to the active bond,
// newest chunks first.
func (s *Staking) Rebond(origin Origin, value npos.Balance) error {
	controller, err := origin.ensureSigned()
	if err != nil {
		return err
	}
	logger.Debug("rebonding", "controller", controller, "value", value)

	if err := s.txn("rebond", func() error {
		l, err := s.ledgers.Get(ledger.ByController(controller))
		if err != nil {
			return err
		}
		if len(l.Unlocking) == 0 {
			return reverts.ErrNoUnlockChunk
		}
		rebonded := l.Rebond(value)
		if l.Active < s.minimumBalance() {
			return reverts.ErrInsufficientBond
		}
		s.emit(&Event{Kind: EventBonded, Stash: l.Stash, Amount: rebonded})
		return s.updateLedger(l)
	}); err != nil {
		logger.Info("rebond failed", "controller", controller, "error", err)
		return err
	}

	logger.Info("rebonded", "controller", controller)
	return nil
}

// WithdrawUnbonded releases matured chunks. A ledger left without active or
// unlocking funds is reaped along with numSlashingSpans spans of records.
func (s *Staking) WithdrawUnbonded(origin Origin, numSlashingSpans uint32) error {
	controller, err := origin.ensureSigned()
	if err != nil {
		return err
	}
	logger.Debug("withdrawing unbonded", "controller", controller, "spans", numSlashingSpans)

	var withdrawn npos.Balance
	if err := s.txn("withdraw_unbonded", func() (err error) {
		withdrawn, err = s.withdrawUnbonded(controller, numSlashingSpans)
		return
	}); err != nil {
		logger.Info("withdraw unbonded failed", "controller", controller, "error", err)
		return err
	}

	logger.Info("withdrew unbonded", "controller", controller, "amount", withdrawn)
	return nil
}

func (s *Staking) withdrawUnbonded(controller npos.Address, numSlashingSpans uint32) (npos.Balance, error) {
	l, err := s.ledgers.Get(ledger.ByController(controller))
	if err != nil {
		return 0, err
	}
	stash, oldTotal := l.Stash, l.Total
	if current, found, err := s.CurrentEra(); err != nil {
		return 0, err
	} else if found {
		l.ConsolidateUnlocked(current)
	}

	if len(l.Unlocking) == 0 && (l.Active < s.minimumBalance() || l.Active == 0) {
		if err := s.killStash(stash, numSlashingSpans); err != nil {
			return 0, err
		}
	} else if err := s.updateLedger(l); err != nil {
		return 0, err
	}

	var withdrawn npos.Balance
	if l.Total < oldTotal {
		withdrawn = oldTotal - l.Total
		s.emit(&Event{Kind: EventWithdrawn, Stash: stash, Amount: withdrawn})
	}
	return withdrawn, nil
}

// ReapStash removes a stash whose balance or bond fell below the existential
// deposit. Anyone may call it.
func (s *Staking) ReapStash(origin Origin, stash npos.Address, numSlashingSpans uint32) error {
	if _, err := origin.ensureSigned(); err != nil {
		return err
	}
	logger.Debug("reaping stash", "stash", stash)

	if err := s.txn("reap_stash", func() error {
		if virtual, err := s.ledgers.IsVirtual(stash); err != nil {
			return err
		} else if virtual {
			return reverts.ErrVirtualStakerNotAllowed
		}
		ed := s.minimumBalance()
		balance, err := s.currency.TotalBalance(stash)
		if err != nil {
			return err
		}
		var bonded npos.Balance
		if l, err := s.ledgers.Get(ledger.ByStash(stash)); err == nil {
			bonded = l.Total
		} else if !reverts.IsRevertErr(err) {
			return err
		}
		if balance >= ed && balance != 0 && bonded >= ed && bonded != 0 {
			return reverts.ErrFundedTooMuch
		}
		return s.killStash(stash, numSlashingSpans)
	}); err != nil {
		logger.Info("reap stash failed", "stash", stash, "error", err)
		return err
	}

	logger.Info("reaped stash", "stash", stash)
	return nil
}

// SetPayee changes where the rewards of the caller's stash go.
func (s *Staking) SetPayee(origin Origin, payee ledger.RewardDestination) error {
	controller, err := origin.ensureSigned()
	if err != nil {
		return err
	}
	logger.Debug("setting payee", "controller", controller, "payee", payee)

	return s.txn("set_payee", func() error {
		l, err := s.ledgers.Get(ledger.ByController(controller))
		if err != nil {
			return err
		}
		if payee.Kind == ledger.PayController {
			return reverts.ErrControllerDeprecated
		}
		return s.ledgers.SetPayee(l.Stash, payee)
	})
}

// SetController pairs a legacy controller back to its stash.
func (s *Staking) SetController(origin Origin) error {
	stash, err := origin.ensureSigned()
	if err != nil {
		return err
	}
	logger.Debug("setting controller", "stash", stash)

	return s.txn("set_controller", func() error {
		l, err := s.ledgers.Get(ledger.ByStash(stash))
		if err != nil {
			return err
		}
		return s.ledgers.SetControllerToStash(l)
	})
}
