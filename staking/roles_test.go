// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
	"github.com/vechain/npos/staking/ledger"
	"github.com/vechain/npos/staking/reverts"
)

func TestValidate(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.staking.SetStakingConfigs(Root(), StakingConfigs{
		MinValidatorBond: Set[npos.Balance](500),
		MinCommission:    Set(percent(5)),
		MaxValidators:    Set[uint32](1),
	}))
	NewSequence(env).
		Fund(validator1, 1000).
		Bond(validator1, 1000, ledger.Stash).
		Fund(validator2, 400).
		Bond(validator2, 400, ledger.Stash).
		Fund(stash1, 1000).
		Bond(stash1, 1000, ledger.Stash).
		Run(t)

	assert.ErrorIs(t, env.staking.Validate(Signed(stash2), ValidatorPrefs{Commission: percent(5)}), reverts.ErrNotController)
	assert.ErrorIs(t, env.staking.Validate(Signed(validator2), ValidatorPrefs{Commission: percent(5)}), reverts.ErrInsufficientBond)
	assert.ErrorIs(t, env.staking.Validate(Signed(validator1), ValidatorPrefs{Commission: percent(1)}), reverts.ErrCommissionTooLow)

	require.NoError(t, env.staking.Validate(Signed(validator1), ValidatorPrefs{Commission: percent(5)}))
	set := env.events(EventValidatorPrefsSet)
	require.Len(t, set, 1)
	assert.Equal(t, percent(5), set[0].Fraction)

	// updating an existing validator is not capped
	require.NoError(t, env.staking.Validate(Signed(validator1), ValidatorPrefs{Commission: percent(7)}))
	assert.ErrorIs(t, env.staking.Validate(Signed(stash1), ValidatorPrefs{Commission: percent(5)}), reverts.ErrTooManyValidators)

	prefs, found, err := env.staking.Validator(validator1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, percent(7), prefs.Commission)
}

func TestRoleSwitch(t *testing.T) {
	env := newTestEnv(t, nil)
	NewSequence(env).
		Validator(validator1, 1000, ValidatorPrefs{}).
		Validator(validator2, 1000, ValidatorPrefs{}).
		Run(t)

	validators, nominators, err := env.staking.Counts()
	require.NoError(t, err)
	assert.Equal(t, [2]uint32{2, 0}, [2]uint32{validators, nominators})

	require.NoError(t, env.staking.Nominate(Signed(validator2), []npos.Address{validator1}))
	validators, nominators, err = env.staking.Counts()
	require.NoError(t, err)
	assert.Equal(t, [2]uint32{1, 1}, [2]uint32{validators, nominators})

	require.NoError(t, env.staking.Validate(Signed(validator2), ValidatorPrefs{}))
	validators, nominators, err = env.staking.Counts()
	require.NoError(t, err)
	assert.Equal(t, [2]uint32{2, 0}, [2]uint32{validators, nominators})

	require.NoError(t, env.staking.Chill(Signed(validator2)))
	assert.Len(t, env.events(EventChilled), 1)
	validators, _, err = env.staking.Counts()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), validators)

	// chilling an idle stash emits nothing
	require.NoError(t, env.staking.Chill(Signed(validator2)))
	assert.Empty(t, env.events(EventChilled))
	assert.ErrorIs(t, env.staking.Chill(Signed(stash1)), reverts.ErrNotController)
}

func TestNominate(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config, _ *Options) {
		cfg.MaxNominations = 3
	})
	NewSequence(env).
		Validator(validator1, 1000, ValidatorPrefs{}).
		Validator(validator2, 1000, ValidatorPrefs{}).
		Fund(stash1, 1000).
		Bond(stash1, 1000, ledger.Stash).
		Run(t)

	assert.ErrorIs(t, env.staking.Nominate(Signed(stash1), nil), reverts.ErrEmptyTargets)
	assert.ErrorIs(t, env.staking.Nominate(Signed(stash1), []npos.Address{addr(20), addr(21), addr(22), addr(23)}), reverts.ErrTooManyTargets)

	require.NoError(t, env.staking.Nominate(Signed(stash1), []npos.Address{validator1, validator1, validator2}))
	noms, found, err := env.staking.Nominator(stash1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []npos.Address{validator1, validator2}, noms.Targets)
	assert.Equal(t, npos.EraIndex(0), noms.SubmittedIn)

	// a blocked validator keeps its nominators but takes no new ones
	require.NoError(t, env.staking.Validate(Signed(validator2), ValidatorPrefs{Blocked: true}))
	require.NoError(t, env.staking.Nominate(Signed(stash1), []npos.Address{validator2}))
	require.NoError(t, env.staking.Nominate(Signed(stash1), []npos.Address{validator1}))
	assert.ErrorIs(t, env.staking.Nominate(Signed(stash1), []npos.Address{validator2}), reverts.ErrBadTarget)
}

func TestMaxNominators(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.staking.SetStakingConfigs(Root(), StakingConfigs{
		MinNominatorBond: Set[npos.Balance](500),
		MaxNominators:    Set[uint32](1),
	}))
	NewSequence(env).
		Validator(validator1, 1000, ValidatorPrefs{}).
		Nominator(stash1, 1000, validator1).
		Fund(stash2, 400).
		Bond(stash2, 400, ledger.Stash).
		Run(t)

	assert.ErrorIs(t, env.staking.Nominate(Signed(stash2), []npos.Address{validator1}), reverts.ErrInsufficientBond)
	env.fund(t, stash2, 600)
	require.NoError(t, env.staking.BondExtra(Signed(stash2), 600))
	assert.ErrorIs(t, env.staking.Nominate(Signed(stash2), []npos.Address{validator1}), reverts.ErrTooManyNominators)
}

func TestChillOther(t *testing.T) {
	env := newTestEnv(t, nil)
	NewSequence(env).
		Validator(validator1, 1000, ValidatorPrefs{}).
		Nominator(stash1, 1000, validator1).
		Nominator(stash2, 400, validator1).
		Run(t)

	// no threshold configured
	assert.ErrorIs(t, env.staking.ChillOther(Signed(stash1), stash2), reverts.ErrCannotChillOther)

	require.NoError(t, env.staking.SetStakingConfigs(Root(), StakingConfigs{
		MinNominatorBond: Set[npos.Balance](500),
		MaxNominators:    Set[uint32](4),
		ChillThreshold:   Set(perthing.PercentFromParts(50)),
	}))
	// two of four is not above the threshold
	assert.ErrorIs(t, env.staking.ChillOther(Signed(stash1), stash2), reverts.ErrCannotChillOther)

	require.NoError(t, env.staking.SetStakingConfigs(Root(), StakingConfigs{
		MaxNominators: Set[uint32](2),
	}))
	assert.ErrorIs(t, env.staking.ChillOther(Signed(stash2), stash1), reverts.ErrCannotChillOther)
	require.NoError(t, env.staking.ChillOther(Signed(stash1), stash2))

	_, found, err := env.staking.Nominator(stash2)
	require.NoError(t, err)
	assert.False(t, found)

	// the controller can always chill itself
	require.NoError(t, env.staking.ChillOther(Signed(stash1), stash1))
	_, nominators, err := env.staking.Counts()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), nominators)
}

func TestKick(t *testing.T) {
	env := newTestEnv(t, nil)
	NewSequence(env).
		Validator(validator1, 1000, ValidatorPrefs{}).
		Validator(validator2, 1000, ValidatorPrefs{}).
		Nominator(stash1, 1000, validator1, validator2).
		Run(t)

	require.NoError(t, env.staking.Kick(Signed(validator1), []npos.Address{stash1, stash2}))
	noms, _, err := env.staking.Nominator(stash1)
	require.NoError(t, err)
	assert.Equal(t, []npos.Address{validator2}, noms.Targets)

	kicked := env.events(EventKicked)
	require.Len(t, kicked, 1)
	assert.Equal(t, stash1, kicked[0].Stash)
	assert.Equal(t, validator1, kicked[0].Other)
}

func TestForceApplyMinCommission(t *testing.T) {
	env := newTestEnv(t, nil)
	NewSequence(env).
		Validator(validator1, 1000, ValidatorPrefs{Commission: percent(2)}).
		Run(t)

	require.NoError(t, env.staking.SetMinCommission(Root(), percent(5)))
	assert.ErrorIs(t, env.staking.ForceApplyMinCommission(Signed(stash1), stash1), reverts.ErrNotStash)
	require.NoError(t, env.staking.ForceApplyMinCommission(Signed(stash1), validator1))

	prefs, _, err := env.staking.Validator(validator1)
	require.NoError(t, err)
	assert.Equal(t, percent(5), prefs.Commission)
}
