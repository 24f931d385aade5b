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
	"github.com/vechain/npos/staking/election"
	"github.com/vechain/npos/staking/exposure"
)

// StartGenesis plans era 0 from the genesis stakers and starts it. It must
// be called once, after the genesis bonds.
func (s *Staking) StartGenesis() ([]npos.Address, error) {
	logger.Debug("starting genesis era")

	var elected []npos.Address
	if err := s.txn("start_genesis", func() (err error) {
		if elected, err = s.newSession(0); err != nil {
			return err
		}
		if rotation, ok := s.session.(*Rotation); ok && elected != nil {
			rotation.Queue(elected)
			rotation.Advance()
		}
		if _, err = s.newSession(1); err != nil {
			return err
		}
		return s.startSession(0)
	}); err != nil {
		logger.Info("start genesis failed", "error", err)
		return nil, err
	}

	logger.Info("started genesis era", "elected", len(elected))
	return elected, nil
}

// RotateSession ends session ending, starts the next one and plans the one
// after it. It returns the validators of a newly planned era, or nil.
func (s *Staking) RotateSession(ending npos.SessionIndex) ([]npos.Address, error) {
	logger.Debug("rotating session", "ending", ending)

	var planned []npos.Address
	if err := s.txn("rotate_session", func() (err error) {
		if err = s.endSession(ending); err != nil {
			return err
		}
		rotation, _ := s.session.(*Rotation)
		if rotation != nil {
			rotation.Advance()
		}
		if err = s.startSession(ending + 1); err != nil {
			return err
		}
		if planned, err = s.newSession(ending + 2); err != nil {
			return err
		}
		if rotation != nil && planned != nil {
			rotation.Queue(planned)
		}
		return nil
	}); err != nil {
		logger.Info("rotate session failed", "ending", ending, "error", err)
		return nil, err
	}
	return planned, nil
}

// NewSession plans session index, triggering an election when the forcing
// mode and era length call for a new era.
func (s *Staking) NewSession(index npos.SessionIndex) (planned []npos.Address, err error) {
	err = s.txn("new_session", func() error {
		planned, err = s.newSession(index)
		return err
	})
	return
}

// StartSession starts the planned era whose first session is index.
func (s *Staking) StartSession(index npos.SessionIndex) error {
	return s.txn("start_session", func() error { return s.startSession(index) })
}

// EndSession ends the active era when index is its last session.
func (s *Staking) EndSession(index npos.SessionIndex) error {
	return s.txn("end_session", func() error { return s.endSession(index) })
}

func (s *Staking) newSession(index npos.SessionIndex) ([]npos.Address, error) {
	current, found, err := s.CurrentEra()
	if err != nil {
		return nil, err
	}
	if !found {
		return s.tryTriggerNewEra(index)
	}

	start, _, err := s.EraStartSession(current)
	if err != nil {
		return nil, err
	}
	var eraLength npos.SessionIndex
	if index > start {
		eraLength = index - start
	}
	forcing, err := s.ForceEra()
	if err != nil {
		return nil, err
	}
	switch {
	case forcing == ForceNew, forcing == ForceAlways:
	case forcing == NotForcing && eraLength >= s.cfg.SessionsPerEra:
	default:
		return nil, nil
	}

	planned, err := s.tryTriggerNewEra(index)
	if err != nil {
		return nil, err
	}
	if planned != nil && forcing == ForceNew {
		if err := s.store.forceEra.Set(NotForcing); err != nil {
			return nil, errors.Wrap(err, "failed to set force era")
		}
	}
	return planned, nil
}

func (s *Staking) tryTriggerNewEra(startSession npos.SessionIndex) ([]npos.Address, error) {
	supports, err := s.elect.Elect(s)
	if err != nil && !errors.Is(err, election.ErrNoTargets) && !errors.Is(err, election.ErrNoWinners) {
		return nil, errors.Wrap(err, "election")
	}
	minimum, err2 := valueOr(s.store.minimumValidatorCount, 0)
	if err2 != nil {
		return nil, err2
	}
	if err != nil || uint32(len(supports)) < max(minimum, 1) {
		logger.Warn("election failed", "winners", len(supports), "minimum", minimum, "error", err)
		if _, found, err := s.CurrentEra(); err != nil {
			return nil, err
		} else if !found {
			if err := s.store.currentEra.Set(0); err != nil {
				return nil, errors.Wrap(err, "failed to set current era")
			}
			if err := s.store.erasStartSession.Set(npos.EraKey(0), startSession); err != nil {
				return nil, errors.Wrap(err, "failed to set era start session")
			}
		}
		s.emit(&Event{Kind: EventStakingElectionFailed, Session: startSession})
		return nil, nil
	}

	s.emit(&Event{Kind: EventStakersElected, Session: startSession, Amount: npos.Balance(len(supports))})
	return s.triggerNewEra(startSession, supports)
}

func (s *Staking) triggerNewEra(startSession npos.SessionIndex, supports []election.Support) ([]npos.Address, error) {
	var era npos.EraIndex
	if current, found, err := s.CurrentEra(); err != nil {
		return nil, err
	} else if found {
		era = current + 1
	}
	if err := s.store.currentEra.Set(era); err != nil {
		return nil, errors.Wrap(err, "failed to set current era")
	}
	if err := s.store.erasStartSession.Set(npos.EraKey(era), startSession); err != nil {
		return nil, errors.Wrap(err, "failed to set era start session")
	}
	if era > s.cfg.HistoryDepth {
		if err := s.clearEraInformation(era - s.cfg.HistoryDepth - 1); err != nil {
			return nil, err
		}
	}
	return s.storeStakers(era, supports)
}

// storeStakers snapshots the exposures and preferences of the elected set.
func (s *Staking) storeStakers(era npos.EraIndex, supports []election.Support) ([]npos.Address, error) {
	elected := make([]npos.Address, 0, len(supports))
	var total npos.Balance
	for _, sup := range supports {
		e := toExposure(sup)
		total += e.Total
		if err := s.exposures.Set(era, sup.Validator, e, s.cfg.MaxExposurePageSize); err != nil {
			return nil, err
		}
		prefs, _, err := s.store.validatorPrefs(sup.Validator)
		if err != nil {
			return nil, err
		}
		if prefs == nil {
			prefs = &ValidatorPrefs{}
		}
		if err := s.store.erasValidatorPrefs.Set(npos.EraAddressKey{Era: era, Account: sup.Validator}, prefs); err != nil {
			return nil, errors.Wrap(err, "failed to set era validator prefs")
		}
		elected = append(elected, sup.Validator)
	}
	// sessions index validators in key order so a reopened node sees the same set
	slices.SortFunc(elected, npos.Address.Compare)
	if err := s.store.erasTotalStake.Set(npos.EraKey(era), total); err != nil {
		return nil, errors.Wrap(err, "failed to set era total stake")
	}
	metricElected().Set(int64(len(elected)))
	logger.Debug("stored stakers", "era", era, "elected", len(elected), "total", total)
	return elected, nil
}

func toExposure(sup election.Support) *exposure.Exposure {
	e := &exposure.Exposure{}
	for _, b := range sup.Voters {
		if b.Who == sup.Validator {
			e.Own += b.Stake
		} else {
			e.Others = append(e.Others, exposure.Individual{Who: b.Who, Value: b.Stake})
		}
		e.Total += b.Stake
	}
	return e
}

// clearEraInformation drops everything stored for an era that left the
// history window.
func (s *Staking) clearEraInformation(era npos.EraIndex) error {
	logger.Debug("clearing era", "era", era)
	if err := s.exposures.ClearEra(era); err != nil {
		return err
	}
	if _, err := s.store.erasValidatorPrefs.Clear(npos.EraKey(era).Bytes()); err != nil {
		return errors.Wrap(err, "failed to clear era validator prefs")
	}
	key := npos.EraKey(era)
	s.store.erasValidatorReward.Delete(key)
	s.store.erasRewardPoints.Delete(key)
	s.store.erasTotalStake.Delete(key)
	s.store.erasStartSession.Delete(key)
	return nil
}

func (s *Staking) startSession(index npos.SessionIndex) error {
	var next npos.EraIndex
	if active, found, err := s.ActiveEra(); err != nil {
		return err
	} else if found {
		next = active.Index + 1
	}
	start, found, err := s.EraStartSession(next)
	if err != nil {
		return err
	}
	if found && start <= index {
		if start < index {
			logger.Warn("session skipped", "expected", start, "session", index)
		}
		if err := s.startEra(index); err != nil {
			return err
		}
	}

	offending, err := s.OffendingValidators()
	if err != nil {
		return err
	}
	for _, o := range offending {
		if o.Disabled {
			s.session.DisableValidator(o.Index)
		}
	}
	return nil
}

func (s *Staking) startEra(startSession npos.SessionIndex) error {
	var era npos.EraIndex
	if active, found, err := s.ActiveEra(); err != nil {
		return err
	} else if found {
		era = active.Index + 1
	}
	info := ActiveEraInfo{Index: era, Start: s.clock.NowMillis()}
	if err := s.store.activeEra.Set(info); err != nil {
		return errors.Wrap(err, "failed to set active era")
	}
	metricActiveEra().Set(int64(era))
	logger.Info("era started", "era", era, "session", startSession)

	bonded, err := s.BondedEras()
	if err != nil {
		return err
	}
	bonded = append(bonded, BondedEra{Era: era, Session: startSession})
	if era > s.cfg.BondingDuration {
		firstKept := era - s.cfg.BondingDuration
		n := 0
		for n < len(bonded) && bonded[n].Era < firstKept {
			if err := s.slashing.ClearEraMetadata(bonded[n].Era); err != nil {
				return err
			}
			n++
		}
		bonded = bonded[n:]
	}
	if err := s.store.bondedEras.Set(bonded); err != nil {
		return errors.Wrap(err, "failed to set bonded eras")
	}
	return s.applyUnappliedSlashes(era)
}

func (s *Staking) endSession(index npos.SessionIndex) error {
	active, found, err := s.ActiveEra()
	if err != nil || !found {
		return err
	}
	start, found, err := s.EraStartSession(active.Index + 1)
	if err != nil {
		return err
	}
	if found && start == index+1 {
		return s.endEra(active)
	}
	return nil
}

func (s *Staking) endEra(active ActiveEraInfo) error {
	var duration uint64
	if now := s.clock.NowMillis(); now > active.Start {
		duration = now - active.Start
	}
	staked, err := s.EraTotalStake(active.Index)
	if err != nil {
		return err
	}
	issuance, err := s.currency.TotalIssuance()
	if err != nil {
		return err
	}
	validatorPayout, remainder := s.payout.EraPayout(staked, issuance, duration)
	total := validatorPayout + remainder
	if total < validatorPayout {
		return errors.New("era payout overflow")
	}
	maxStaked, err := valueOr(s.store.maxStakedRewards, perthing.PercentFromParts(perthing.PercentAccuracy))
	if err != nil {
		return err
	}
	validatorPayout = min(validatorPayout, maxStaked.Mul(total))
	remainder = total - validatorPayout

	s.emit(&Event{Kind: EventEraPaid, Era: active.Index, Amount: validatorPayout, Remainder: remainder})
	if err := s.store.erasValidatorReward.Set(npos.EraKey(active.Index), validatorPayout); err != nil {
		return errors.Wrap(err, "failed to set era reward")
	}
	if remainder > 0 {
		if err := s.remainder.OnRemainder(remainder); err != nil {
			return err
		}
	}
	s.store.offending.Delete()

	metricEraPayouts().Observe(int64(validatorPayout))
	logger.Info("era paid", "era", active.Index, "payout", validatorPayout, "remainder", remainder)
	return nil
}

// ensureNewEra forces a new era at the next session unless eras are already
// forced or disabled.
func (s *Staking) ensureNewEra() error {
	forcing, err := s.ForceEra()
	if err != nil {
		return err
	}
	switch forcing {
	case ForceAlways, ForceNone, ForceNew:
		return nil
	}
	return s.setForceEra(ForceNew)
}

func (s *Staking) setForceEra(mode Forcing) error {
	if err := s.store.forceEra.Set(mode); err != nil {
		return errors.Wrap(err, "failed to set force era")
	}
	s.emit(&Event{Kind: EventForceEra, Detail: mode.String()})
	return nil
}
