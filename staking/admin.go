// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/pkg/errors"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
	"github.com/vechain/npos/staking/ledger"
	"github.com/vechain/npos/staking/reverts"
)

// root runs a privileged operation.
func (s *Staking) root(origin Origin, op string, fn func() error) error {
	if err := origin.ensureRoot(); err != nil {
		return err
	}
	logger.Debug("privileged operation", "op", op)
	if err := s.txn(op, fn); err != nil {
		logger.Info("privileged operation failed", "op", op, "error", err)
		return err
	}
	return nil
}

func (s *Staking) setValidatorCount(count uint32) error {
	if count > s.cfg.MaxValidatorSet {
		return reverts.ErrTooManyValidators
	}
	return errors.Wrap(s.store.validatorCount.Set(count), "failed to set validator count")
}

// SetValidatorCount sets the desired number of validators.
func (s *Staking) SetValidatorCount(origin Origin, count uint32) error {
	return s.root(origin, "set_validator_count", func() error {
		return s.setValidatorCount(count)
	})
}

// IncreaseValidatorCount raises the desired number of validators.
func (s *Staking) IncreaseValidatorCount(origin Origin, additional uint32) error {
	return s.root(origin, "increase_validator_count", func() error {
		old, err := s.ValidatorCount()
		if err != nil {
			return err
		}
		count := old + additional
		if count < old {
			return reverts.ErrTooManyValidators
		}
		return s.setValidatorCount(count)
	})
}

// ScaleValidatorCount raises the desired number of validators by factor.
func (s *Staking) ScaleValidatorCount(origin Origin, factor perthing.Percent) error {
	return s.root(origin, "scale_validator_count", func() error {
		old, err := s.ValidatorCount()
		if err != nil {
			return err
		}
		count := uint64(old) + factor.Mul(uint64(old))
		if count > uint64(s.cfg.MaxValidatorSet) {
			return reverts.ErrTooManyValidators
		}
		return s.setValidatorCount(uint32(count))
	})
}

// SetMinimumValidatorCount sets the fewest winners an election needs.
func (s *Staking) SetMinimumValidatorCount(origin Origin, count uint32) error {
	return s.root(origin, "set_minimum_validator_count", func() error {
		return errors.Wrap(s.store.minimumValidatorCount.Set(count), "failed to set minimum validator count")
	})
}

// ForceNoEras stops era rotation.
func (s *Staking) ForceNoEras(origin Origin) error {
	return s.root(origin, "force_no_eras", func() error { return s.setForceEra(ForceNone) })
}

// ForceNewEra starts a new era at the next session.
func (s *Staking) ForceNewEra(origin Origin) error {
	return s.root(origin, "force_new_era", func() error { return s.setForceEra(ForceNew) })
}

// ForceNewEraAlways starts a new era at every session.
func (s *Staking) ForceNewEraAlways(origin Origin) error {
	return s.root(origin, "force_new_era_always", func() error { return s.setForceEra(ForceAlways) })
}

// SetInvulnerables replaces the validators exempt from slashing.
func (s *Staking) SetInvulnerables(origin Origin, invulnerables []npos.Address) error {
	return s.root(origin, "set_invulnerables", func() error {
		if uint32(len(invulnerables)) > s.cfg.MaxInvulnerables {
			return reverts.ErrBoundNotMet
		}
		return errors.Wrap(s.store.invulnerables.Set(invulnerables), "failed to set invulnerables")
	})
}

// ForceUnstake removes stash and releases its funds immediately.
func (s *Staking) ForceUnstake(origin Origin, stash npos.Address, numSlashingSpans uint32) error {
	return s.root(origin, "force_unstake", func() error {
		return s.killStash(stash, numSlashingSpans)
	})
}

// SetMinCommission sets the lowest commission a validator may ask.
func (s *Staking) SetMinCommission(origin Origin, commission perthing.Perbill) error {
	return s.root(origin, "set_min_commission", func() error {
		return errors.Wrap(s.store.minCommission.Set(commission), "failed to set min commission")
	})
}

// SetStakingConfigs changes the dynamic parameters.
func (s *Staking) SetStakingConfigs(origin Origin, cfg StakingConfigs) error {
	return s.root(origin, "set_staking_configs", func() error {
		for _, apply := range []func() error{
			func() error { return cfg.MinNominatorBond.apply(s.store.minNominatorBond) },
			func() error { return cfg.MinValidatorBond.apply(s.store.minValidatorBond) },
			func() error { return cfg.MaxNominators.apply(s.store.maxNominators) },
			func() error { return cfg.MaxValidators.apply(s.store.maxValidators) },
			func() error { return cfg.ChillThreshold.apply(s.store.chillThreshold) },
			func() error { return cfg.MinCommission.apply(s.store.minCommission) },
			func() error { return cfg.MaxStakedRewards.apply(s.store.maxStakedRewards) },
		} {
			if err := apply(); err != nil {
				return errors.Wrap(err, "failed to set staking config")
			}
		}
		return nil
	})
}

// DynamicParams is a snapshot of the dynamic parameters. Unset limits are nil.
type DynamicParams struct {
	MinNominatorBond npos.Balance      `json:"minNominatorBond"`
	MinValidatorBond npos.Balance      `json:"minValidatorBond"`
	MaxNominators    *uint32           `json:"maxNominators"`
	MaxValidators    *uint32           `json:"maxValidators"`
	ChillThreshold   *perthing.Percent `json:"chillThreshold"`
	MinCommission    perthing.Perbill  `json:"minCommission"`
	MaxStakedRewards *perthing.Percent `json:"maxStakedRewards"`
}

// Params returns the dynamic parameters.
func (s *Staking) Params() (*DynamicParams, error) {
	var (
		p   DynamicParams
		err error
	)
	if p.MinNominatorBond, err = valueOr(s.store.minNominatorBond, 0); err != nil {
		return nil, err
	}
	if p.MinValidatorBond, err = valueOr(s.store.minValidatorBond, 0); err != nil {
		return nil, err
	}
	if p.MinCommission, err = valueOr(s.store.minCommission, 0); err != nil {
		return nil, err
	}
	if v, found, err := optional(s.store.maxNominators); err != nil {
		return nil, err
	} else if found {
		p.MaxNominators = &v
	}
	if v, found, err := optional(s.store.maxValidators); err != nil {
		return nil, err
	} else if found {
		p.MaxValidators = &v
	}
	if v, found, err := optional(s.store.chillThreshold); err != nil {
		return nil, err
	} else if found {
		p.ChillThreshold = &v
	}
	if v, found, err := optional(s.store.maxStakedRewards); err != nil {
		return nil, err
	} else if found {
		p.MaxStakedRewards = &v
	}
	return &p, nil
}

// DeprecateControllerBatch moves the ledgers of legacy controllers under
// their stash.
func (s *Staking) DeprecateControllerBatch(origin Origin, controllers []npos.Address) error {
	return s.root(origin, "deprecate_controller_batch", func() error {
		if uint32(len(controllers)) > s.cfg.MaxControllersBatch {
			return reverts.ErrBoundNotMet
		}
		var failures uint64
		for _, controller := range controllers {
			l, err := s.ledgers.Get(ledger.ByController(controller))
			if err != nil {
				if !reverts.IsRevertErr(err) {
					return err
				}
				failures++
				continue
			}
			payee, _, err := s.ledgers.Payee(l.Stash)
			if err != nil {
				return err
			}
			if l.Stash == controller || payee.Kind == ledger.PayController {
				failures++
				continue
			}
			if err := s.ledgers.SetControllerToStash(l); err != nil {
				if !reverts.IsRevertErr(err) {
					return err
				}
				failures++
			}
		}
		s.emit(&Event{Kind: EventControllerBatchDeprecated, Amount: failures})
		return nil
	})
}

// RestoreLedger repairs a stash whose bond, ledger and held funds disagree.
// Missing fields default to the stash, the held amount and no unlocking.
func (s *Staking) RestoreLedger(origin Origin, stash npos.Address, controller *npos.Address, total *npos.Balance, unlocking []ledger.UnlockChunk) error {
	return s.root(origin, "restore_ledger", func() error {
		if virtual, err := s.ledgers.IsVirtual(stash); err != nil {
			return err
		} else if virtual {
			return reverts.ErrVirtualStakerNotAllowed
		}
		held, err := s.currency.Staked(stash)
		if err != nil {
			return err
		}
		stakeable, err := s.currency.Stakeable(stash)
		if err != nil {
			return err
		}

		integrity, err := s.ledgers.Inspect(stash, held)
		if errors.Is(err, reverts.ErrBadState) {
			// lingering hold without bond
			if err := s.currency.ReleaseStake(stash); err != nil {
				return err
			}
			_, err = s.ledgers.Inspect(stash, 0)
			if !errors.Is(err, reverts.ErrNotStash) {
				return reverts.ErrBadState
			}
			return nil
		}
		if err != nil {
			if reverts.IsRevertErr(err) {
				return reverts.ErrCannotRestoreLedger
			}
			return err
		}

		newController, newTotal := stash, held
		switch integrity {
		case ledger.IntegrityCorrupted:
			if controller != nil {
				newController = *controller
			}
			if total != nil {
				newTotal = min(*total, stakeable)
			}
		case ledger.IntegrityCorruptedKilled:
			if held == 0 {
				if total == nil {
					return reverts.ErrCannotRestoreLedger
				}
				newTotal = *total
			}
		case ledger.IntegrityLockCorrupted:
			if total == nil {
				return reverts.ErrCannotRestoreLedger
			}
			newTotal = min(*total, stakeable)
		default:
			return reverts.ErrCannotRestoreLedger
		}

		if err := s.ledgers.SetBonded(stash, newController); err != nil {
			return err
		}
		l := ledger.New(stash, newTotal)
		l.Controller = newController
		if len(unlocking) > 0 {
			l.Unlocking = unlocking
			l.Active = newTotal - min(l.UnlockingBalance(), newTotal)
		}
		if err := s.updateLedger(l); err != nil {
			return err
		}
		if integrity, err := s.ledgers.Inspect(stash, newTotal); err != nil || integrity != ledger.IntegrityOK {
			if err != nil && !reverts.IsRevertErr(err) {
				return err
			}
			return reverts.ErrBadState
		}
		logger.Info("restored ledger", "stash", stash, "controller", newController, "total", newTotal)
		return nil
	})
}
