// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/staking/ledger"
	"github.com/vechain/npos/staking/reverts"
)

//
// Role storage
//

func (s *Staking) setValidator(stash npos.Address, prefs *ValidatorPrefs) error {
	exists, err := s.store.isValidator(stash)
	if err != nil {
		return err
	}
	if !exists {
		if err := addCounter(s.store.validatorsSize, 1); err != nil {
			return err
		}
	}
	return errors.Wrap(s.store.validators.Set(stash, prefs), "failed to set validator")
}

func (s *Staking) removeValidator(stash npos.Address) (bool, error) {
	exists, err := s.store.isValidator(stash)
	if err != nil || !exists {
		return false, err
	}
	s.store.validators.Delete(stash)
	return true, addCounter(s.store.validatorsSize, -1)
}

func (s *Staking) setNominator(stash npos.Address, noms *Nominations) error {
	exists, err := s.store.isNominator(stash)
	if err != nil {
		return err
	}
	if !exists {
		if err := addCounter(s.store.nominatorsSize, 1); err != nil {
			return err
		}
	}
	return errors.Wrap(s.store.nominators.Set(stash, noms), "failed to set nominator")
}

func (s *Staking) removeNominator(stash npos.Address) (bool, error) {
	exists, err := s.store.isNominator(stash)
	if err != nil || !exists {
		return false, err
	}
	s.store.nominators.Delete(stash)
	return true, addCounter(s.store.nominatorsSize, -1)
}

// chillStash drops both roles of stash.
func (s *Staking) chillStash(stash npos.Address) error {
	asValidator, err := s.removeValidator(stash)
	if err != nil {
		return err
	}
	asNominator, err := s.removeNominator(stash)
	if err != nil {
		return err
	}
	if asValidator || asNominator {
		s.emit(&Event{Kind: EventChilled, Stash: stash})
	}
	return nil
}

//
// Role operations
//

// Validate declares the caller's stash a validator candidate.
func (s *Staking) Validate(origin Origin, prefs ValidatorPrefs) error {
	controller, err := origin.ensureSigned()
	if err != nil {
		return err
	}
	logger.Debug("validating", "controller", controller, "commission", prefs.Commission, "blocked", prefs.Blocked)

	if err := s.txn("validate", func() error {
		l, err := s.ledgers.Get(ledger.ByController(controller))
		if err != nil {
			return err
		}
		minBond, err := valueOr(s.store.minValidatorBond, 0)
		if err != nil {
			return err
		}
		if l.Active < minBond {
			return reverts.ErrInsufficientBond
		}
		minCommission, err := valueOr(s.store.minCommission, 0)
		if err != nil {
			return err
		}
		if prefs.Commission < minCommission {
			return reverts.ErrCommissionTooLow
		}

		exists, err := s.store.isValidator(l.Stash)
		if err != nil {
			return err
		}
		if !exists {
			max, limited, err := optional(s.store.maxValidators)
			if err != nil {
				return err
			}
			count, err := valueOr(s.store.validatorsSize, 0)
			if err != nil {
				return err
			}
			if limited && count >= max {
				return reverts.ErrTooManyValidators
			}
		}

		if _, err := s.removeNominator(l.Stash); err != nil {
			return err
		}
		if err := s.setValidator(l.Stash, &prefs); err != nil {
			return err
		}
		s.emit(&Event{Kind: EventValidatorPrefsSet, Stash: l.Stash, Fraction: prefs.Commission})
		return nil
	}); err != nil {
		logger.Info("validate failed", "controller", controller, "error", err)
		return err
	}

	logger.Info("set validator prefs", "controller", controller)
	return nil
}

// Nominate declares the caller's stash a nominator of targets.
func (s *Staking) Nominate(origin Origin, targets []npos.Address) error {
	controller, err := origin.ensureSigned()
	if err != nil {
		return err
	}
	logger.Debug("nominating", "controller", controller, "targets", len(targets))

	if err := s.txn("nominate", func() error { return s.nominate(controller, targets) }); err != nil {
		logger.Info("nominate failed", "controller", controller, "error", err)
		return err
	}

	logger.Info("nominated", "controller", controller)
	return nil
}

func (s *Staking) nominate(controller npos.Address, targets []npos.Address) error {
	l, err := s.ledgers.Get(ledger.ByController(controller))
	if err != nil {
		return err
	}
	minBond, err := valueOr(s.store.minNominatorBond, 0)
	if err != nil {
		return err
	}
	if l.Active < minBond {
		return reverts.ErrInsufficientBond
	}

	old, exists, err := s.store.nominations(l.Stash)
	if err != nil {
		return err
	}
	if !exists {
		max, limited, err := optional(s.store.maxNominators)
		if err != nil {
			return err
		}
		count, err := valueOr(s.store.nominatorsSize, 0)
		if err != nil {
			return err
		}
		if limited && count >= max {
			return reverts.ErrTooManyNominators
		}
	}
	if len(targets) == 0 {
		return reverts.ErrEmptyTargets
	}
	if uint32(len(targets)) > s.cfg.MaxNominations {
		return reverts.ErrTooManyTargets
	}

	var oldTargets []npos.Address
	if old != nil {
		oldTargets = old.Targets
	}
	deduped := make([]npos.Address, 0, len(targets))
	for _, t := range targets {
		if slices.Contains(deduped, t) {
			continue
		}
		if !slices.Contains(oldTargets, t) {
			prefs, found, err := s.store.validatorPrefs(t)
			if err != nil {
				return err
			}
			if found && prefs.Blocked {
				return reverts.ErrBadTarget
			}
		}
		deduped = append(deduped, t)
	}

	current, err := s.currentEraOrZero()
	if err != nil {
		return err
	}
	if _, err := s.removeValidator(l.Stash); err != nil {
		return err
	}
	return s.setNominator(l.Stash, &Nominations{Targets: deduped, SubmittedIn: current})
}

// Chill drops the validator or nominator role of the caller's stash.
func (s *Staking) Chill(origin Origin) error {
	controller, err := origin.ensureSigned()
	if err != nil {
		return err
	}
	logger.Debug("chilling", "controller", controller)

	return s.txn("chill", func() error {
		l, err := s.ledgers.Get(ledger.ByController(controller))
		if err != nil {
			return err
		}
		return s.chillStash(l.Stash)
	})
}

// ChillOther chills stash on behalf of anyone once the role is near its cap
// and the stash is under the minimum bond of the role.
func (s *Staking) ChillOther(origin Origin, stash npos.Address) error {
	caller, err := origin.ensureSigned()
	if err != nil {
		return err
	}
	logger.Debug("chilling other", "caller", caller, "stash", stash)

	if err := s.txn("chill_other", func() error {
		l, err := s.ledgers.Get(ledger.ByStash(stash))
		if err != nil {
			return err
		}
		if caller == l.Controller {
			return s.chillStash(stash)
		}

		threshold, found, err := optional(s.store.chillThreshold)
		if err != nil {
			return err
		}
		if !found {
			return reverts.ErrCannotChillOther
		}

		var minBond npos.Balance
		if nominator, err := s.store.isNominator(stash); err != nil {
			return err
		} else if nominator {
			if minBond, err = s.chillOtherBound(threshold.Mul, s.store.maxNominators.Get, s.store.nominatorsSize.GetOr, s.store.minNominatorBond.GetOr); err != nil {
				return err
			}
		} else if validator, err := s.store.isValidator(stash); err != nil {
			return err
		} else if validator {
			if minBond, err = s.chillOtherBound(threshold.Mul, s.store.maxValidators.Get, s.store.validatorsSize.GetOr, s.store.minValidatorBond.GetOr); err != nil {
				return err
			}
		}
		if l.Active >= minBond {
			return reverts.ErrCannotChillOther
		}
		return s.chillStash(stash)
	}); err != nil {
		logger.Info("chill other failed", "stash", stash, "error", err)
		return err
	}

	logger.Info("chilled other", "stash", stash)
	return nil
}

// chillOtherBound returns the minimum bond of a role once its count is above
// the threshold share of its maximum.
func (s *Staking) chillOtherBound(
	scale func(uint64) uint64,
	maxCount func() (uint32, bool, error),
	count func(uint32) (uint32, error),
	minBond func(npos.Balance) (npos.Balance, error),
) (npos.Balance, error) {
	max, found, err := maxCount()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get max count")
	}
	if !found {
		return 0, reverts.ErrCannotChillOther
	}
	current, err := count(0)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get count")
	}
	if scale(uint64(max)) >= uint64(current) {
		return 0, reverts.ErrCannotChillOther
	}
	bond, err := minBond(0)
	return bond, errors.Wrap(err, "failed to get min bond")
}

// Kick removes the caller's validator stash from the targets of the given
// nominators.
func (s *Staking) Kick(origin Origin, who []npos.Address) error {
	controller, err := origin.ensureSigned()
	if err != nil {
		return err
	}
	logger.Debug("kicking", "controller", controller, "nominators", len(who))

	return s.txn("kick", func() error {
		l, err := s.ledgers.Get(ledger.ByController(controller))
		if err != nil {
			return err
		}
		for _, nominator := range who {
			noms, found, err := s.store.nominations(nominator)
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			i := slices.Index(noms.Targets, l.Stash)
			if i < 0 {
				continue
			}
			last := len(noms.Targets) - 1
			noms.Targets[i] = noms.Targets[last]
			noms.Targets = noms.Targets[:last]
			if err := s.store.nominators.Set(nominator, noms); err != nil {
				return errors.Wrap(err, "failed to set nominator")
			}
			s.emit(&Event{Kind: EventKicked, Stash: nominator, Other: l.Stash})
		}
		return nil
	})
}

// ForceApplyMinCommission raises the commission of validator to the
// minimum. Anyone may call it.
func (s *Staking) ForceApplyMinCommission(origin Origin, validator npos.Address) error {
	if _, err := origin.ensureSigned(); err != nil {
		return err
	}
	logger.Debug("applying min commission", "validator", validator)

	return s.txn("force_apply_min_commission", func() error {
		minCommission, err := valueOr(s.store.minCommission, 0)
		if err != nil {
			return err
		}
		prefs, found, err := s.store.validatorPrefs(validator)
		if err != nil {
			return err
		}
		if !found {
			return reverts.ErrNotStash
		}
		if prefs.Commission >= minCommission {
			return nil
		}
		prefs.Commission = minCommission
		return errors.Wrap(s.store.validators.Set(validator, prefs), "failed to set validator")
	})
}
