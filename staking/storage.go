// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/pkg/errors"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
	"github.com/vechain/npos/state"
)

// storage is the state owned directly by the engine. Ledgers, exposures and
// slashing records live in their own repositories.
type storage struct {
	validators     *state.Mapping[npos.Address, *ValidatorPrefs]
	nominators     *state.Mapping[npos.Address, *Nominations]
	validatorsSize *state.Value[uint32]
	nominatorsSize *state.Value[uint32]

	activeEra           *state.Value[ActiveEraInfo]
	currentEra          *state.Value[npos.EraIndex]
	erasStartSession    *state.Mapping[npos.EraKey, npos.SessionIndex]
	bondedEras          *state.Value[[]BondedEra]
	erasValidatorReward *state.Mapping[npos.EraKey, npos.Balance]
	erasRewardPoints    *state.Mapping[npos.EraKey, *EraRewardPoints]
	erasTotalStake      *state.Mapping[npos.EraKey, npos.Balance]
	erasValidatorPrefs  *state.Mapping[npos.EraAddressKey, *ValidatorPrefs]

	forceEra              *state.Value[Forcing]
	validatorCount        *state.Value[uint32]
	minimumValidatorCount *state.Value[uint32]
	invulnerables         *state.Value[[]npos.Address]
	offending             *state.Value[[]OffendingValidator]
	minimumActiveStake    *state.Value[npos.Balance]

	minNominatorBond *state.Value[npos.Balance]
	minValidatorBond *state.Value[npos.Balance]
	maxNominators    *state.Value[uint32]
	maxValidators    *state.Value[uint32]
	chillThreshold   *state.Value[perthing.Percent]
	minCommission    *state.Value[perthing.Perbill]
	maxStakedRewards *state.Value[perthing.Percent]
}

func newStorage(st *state.State) *storage {
	return &storage{
		validators:     state.NewMapping[npos.Address, *ValidatorPrefs](st, "staking/validators/"),
		nominators:     state.NewMapping[npos.Address, *Nominations](st, "staking/nominators/"),
		validatorsSize: state.NewValue[uint32](st, "staking/counter-for-validators"),
		nominatorsSize: state.NewValue[uint32](st, "staking/counter-for-nominators"),

		activeEra:           state.NewValue[ActiveEraInfo](st, "staking/active-era"),
		currentEra:          state.NewValue[npos.EraIndex](st, "staking/current-era"),
		erasStartSession:    state.NewMapping[npos.EraKey, npos.SessionIndex](st, "staking/eras-start-session-index/"),
		bondedEras:          state.NewValue[[]BondedEra](st, "staking/bonded-eras"),
		erasValidatorReward: state.NewMapping[npos.EraKey, npos.Balance](st, "staking/eras-validator-reward/"),
		erasRewardPoints:    state.NewMapping[npos.EraKey, *EraRewardPoints](st, "staking/eras-reward-points/"),
		erasTotalStake:      state.NewMapping[npos.EraKey, npos.Balance](st, "staking/eras-total-stake/"),
		erasValidatorPrefs:  state.NewMapping[npos.EraAddressKey, *ValidatorPrefs](st, "staking/eras-validator-prefs/"),

		forceEra:              state.NewValue[Forcing](st, "staking/force-era"),
		validatorCount:        state.NewValue[uint32](st, "staking/validator-count"),
		minimumValidatorCount: state.NewValue[uint32](st, "staking/minimum-validator-count"),
		invulnerables:         state.NewValue[[]npos.Address](st, "staking/invulnerables"),
		offending:             state.NewValue[[]OffendingValidator](st, "staking/offending-validators"),
		minimumActiveStake:    state.NewValue[npos.Balance](st, "staking/minimum-active-stake"),

		minNominatorBond: state.NewValue[npos.Balance](st, "staking/min-nominator-bond"),
		minValidatorBond: state.NewValue[npos.Balance](st, "staking/min-validator-bond"),
		maxNominators:    state.NewValue[uint32](st, "staking/max-nominators-count"),
		maxValidators:    state.NewValue[uint32](st, "staking/max-validators-count"),
		chillThreshold:   state.NewValue[perthing.Percent](st, "staking/chill-threshold"),
		minCommission:    state.NewValue[perthing.Perbill](st, "staking/min-commission"),
		maxStakedRewards: state.NewValue[perthing.Percent](st, "staking/max-staked-rewards"),
	}
}

func (s *storage) validatorPrefs(stash npos.Address) (*ValidatorPrefs, bool, error) {
	prefs, found, err := s.validators.Get(stash)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to get validator")
	}
	return prefs, found, nil
}

func (s *storage) nominations(stash npos.Address) (*Nominations, bool, error) {
	noms, found, err := s.nominators.Get(stash)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to get nominator")
	}
	if found && len(noms.Targets) == 0 {
		noms.Targets = nil
	}
	return noms, found, nil
}

func (s *storage) isValidator(stash npos.Address) (bool, error) {
	found, err := s.validators.Has(stash)
	return found, errors.Wrap(err, "failed to get validator")
}

func (s *storage) isNominator(stash npos.Address) (bool, error) {
	found, err := s.nominators.Has(stash)
	return found, errors.Wrap(err, "failed to get nominator")
}

func addCounter(v *state.Value[uint32], delta int) error {
	n, err := v.GetOr(0)
	if err != nil {
		return errors.Wrap(err, "failed to get counter")
	}
	switch {
	case delta < 0 && n < uint32(-delta):
		n = 0
	default:
		n = uint32(int64(n) + int64(delta))
	}
	return errors.Wrap(v.Set(n), "failed to set counter")
}

// optional reads a value that may be unset.
func optional[T any](v *state.Value[T]) (T, bool, error) {
	value, found, err := v.Get()
	if err != nil {
		return value, false, errors.Wrap(err, "failed to get parameter")
	}
	return value, found, nil
}

func valueOr[T any](v *state.Value[T], def T) (T, error) {
	value, err := v.GetOr(def)
	return value, errors.Wrap(err, "failed to get parameter")
}
