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
	"github.com/vechain/npos/staking/ledger"
	"github.com/vechain/npos/staking/reverts"
)

var (
	validator1 = addr(1)
	validator2 = addr(2)
	stash1     = addr(10)
	stash2     = addr(11)
)

func TestBondErrors(t *testing.T) {
	env := newTestEnv(t, func(_ *Config, opts *Options) {
		opts.Restricted = func(who npos.Address) bool { return who == stash2 }
	})
	env.fund(t, stash1, 1000)
	env.fund(t, stash2, 1000)

	assert.ErrorIs(t, env.staking.Bond(Root(), 100, ledger.Stash), reverts.ErrBadOrigin)
	assert.ErrorIs(t, env.staking.Bond(Signed(stash1), 0, ledger.Stash), reverts.ErrInsufficientBond)
	assert.ErrorIs(t, env.staking.Bond(Signed(stash1), 100, ledger.RewardDestination{Kind: ledger.PayController}), reverts.ErrControllerDeprecated)
	assert.ErrorIs(t, env.staking.Bond(Signed(stash2), 100, ledger.Stash), reverts.ErrRestricted)
	// nothing to stake
	assert.ErrorIs(t, env.staking.Bond(Signed(addr(99)), 100, ledger.Stash), reverts.ErrInsufficientBond)

	require.NoError(t, env.staking.Bond(Signed(stash1), 600, ledger.Staked))
	assert.ErrorIs(t, env.staking.Bond(Signed(stash1), 100, ledger.Stash), reverts.ErrAlreadyBonded)

	l := env.ledger(t, stash1)
	assert.Equal(t, npos.Balance(600), l.Total)
	assert.Equal(t, npos.Balance(600), l.Active)
	assert.Equal(t, stash1, l.Controller)

	staked, err := env.bal.Staked(stash1)
	require.NoError(t, err)
	assert.Equal(t, npos.Balance(600), staked)

	payee, found, err := env.staking.Payee(stash1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, ledger.Staked, payee)
}

func TestBondClampsToBalance(t *testing.T) {
	env := newTestEnv(t, nil)
	env.fund(t, stash1, 1000)

	require.NoError(t, env.staking.Bond(Signed(stash1), 5000, ledger.Stash))
	assert.Equal(t, npos.Balance(1000), env.ledger(t, stash1).Total)
}

func TestBondExtraClamp(t *testing.T) {
	env := newTestEnv(t, nil)
	env.fund(t, stash1, 1000)
	require.NoError(t, env.staking.Bond(Signed(stash1), 600, ledger.Stash))
	env.staking.TakeEvents()

	require.NoError(t, env.staking.BondExtra(Signed(stash1), 10_000))
	l := env.ledger(t, stash1)
	assert.Equal(t, npos.Balance(1000), l.Total)
	assert.Equal(t, npos.Balance(1000), l.Active)

	bonded := env.events(EventBonded)
	require.Len(t, bonded, 1)
	assert.Equal(t, npos.Balance(400), bonded[0].Amount)

	// fully bonded, a further call is a zero top up
	require.NoError(t, env.staking.BondExtra(Signed(stash1), 10))
	assert.Equal(t, npos.Balance(1000), env.ledger(t, stash1).Total)

	assert.ErrorIs(t, env.staking.BondExtra(Signed(stash2), 10), reverts.ErrNotStash)
}

// Bond, unbond in era 0, withdraw too early, then withdraw once the chunk
// matured in era 3.
func TestUnbondWithdrawLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	NewSequence(env).
		Validator(validator1, 1000, ValidatorPrefs{}).
		ValidatorCount(1).
		Fund(stash1, 1000).
		Bond(stash1, 1000, ledger.Stash).
		Genesis().
		Run(t)

	require.NoError(t, env.staking.Unbond(Signed(stash1), 1000))
	l := env.ledger(t, stash1)
	assert.Equal(t, npos.Balance(1000), l.Total)
	assert.Equal(t, npos.Balance(0), l.Active)
	assert.Equal(t, []ledger.UnlockChunk{{Value: 1000, Era: 3}}, l.Unlocking)

	unbonded := env.events(EventUnbonded)
	require.Len(t, unbonded, 1)
	assert.Equal(t, npos.Balance(1000), unbonded[0].Amount)

	require.NoError(t, env.staking.WithdrawUnbonded(Signed(stash1), 0))
	assert.Equal(t, l, env.ledger(t, stash1))
	assert.Empty(t, env.events(EventWithdrawn))

	env.advanceTo(t, 3)
	current, _, err := env.staking.CurrentEra()
	require.NoError(t, err)
	assert.Equal(t, npos.EraIndex(3), current)
	env.staking.TakeEvents()

	require.NoError(t, env.staking.WithdrawUnbonded(Signed(stash1), 0))
	withdrawn := env.events(EventWithdrawn)
	require.Len(t, withdrawn, 1)
	assert.Equal(t, npos.Balance(1000), withdrawn[0].Amount)

	// the empty ledger is reaped
	_, err = env.staking.Ledger(ledger.ByStash(stash1))
	assert.ErrorIs(t, err, reverts.ErrNotStash)
	_, found, err := env.staking.Payee(stash1)
	require.NoError(t, err)
	assert.False(t, found)

	staked, err := env.bal.Staked(stash1)
	require.NoError(t, err)
	assert.Equal(t, npos.Balance(0), staked)
	assert.Equal(t, npos.Balance(1000), env.total(t, stash1))
}

func TestUnbondNoMoreChunks(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config, _ *Options) {
		cfg.BondingDuration = 10
	})
	NewSequence(env).
		Validator(validator1, 1000, ValidatorPrefs{}).
		ValidatorCount(1).
		Fund(stash1, 1000).
		Bond(stash1, 1000, ledger.Stash).
		Genesis().
		Run(t)

	for era := npos.EraIndex(0); era < 4; era++ {
		env.advanceTo(t, era)
		require.NoError(t, env.staking.Unbond(Signed(stash1), 10))
		// a second request in the same era merges
		require.NoError(t, env.staking.Unbond(Signed(stash1), 5))
	}
	assert.Len(t, env.ledger(t, stash1).Unlocking, 4)

	env.advanceTo(t, 4)
	assert.ErrorIs(t, env.staking.Unbond(Signed(stash1), 10), reverts.ErrNoMoreChunks)

	// the oldest chunk matures in era 10 and makes room
	env.advanceTo(t, 10)
	require.NoError(t, env.staking.Unbond(Signed(stash1), 10))
	l := env.ledger(t, stash1)
	assert.Equal(t, npos.Balance(985), l.Total)
	assert.Equal(t, npos.Balance(930), l.Active)
	assert.Equal(t, []ledger.UnlockChunk{
		{Value: 15, Era: 11},
		{Value: 15, Era: 12},
		{Value: 15, Era: 13},
		{Value: 10, Era: 20},
	}, l.Unlocking)

	staked, err := env.bal.Staked(stash1)
	require.NoError(t, err)
	assert.Equal(t, npos.Balance(985), staked)
}

func TestUnbondRoleMinimum(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.staking.SetStakingConfigs(Root(), StakingConfigs{
		MinNominatorBond: Set[npos.Balance](500),
	}))
	NewSequence(env).
		Validator(validator1, 1000, ValidatorPrefs{}).
		Nominator(stash1, 1000, validator1).
		Run(t)

	assert.ErrorIs(t, env.staking.Unbond(Signed(stash1), 600), reverts.ErrInsufficientBond)
	require.NoError(t, env.staking.Unbond(Signed(stash1), 400))
	// dropping to zero is always allowed
	require.NoError(t, env.staking.Unbond(Signed(stash1), 600))
	assert.Equal(t, npos.Balance(0), env.ledger(t, stash1).Active)
}

func TestRebond(t *testing.T) {
	env := newTestEnv(t, nil)
	NewSequence(env).
		Validator(validator1, 1000, ValidatorPrefs{}).
		ValidatorCount(1).
		Fund(stash1, 1000).
		Bond(stash1, 1000, ledger.Stash).
		Genesis().
		Run(t)

	assert.ErrorIs(t, env.staking.Rebond(Signed(stash1), 10), reverts.ErrNoUnlockChunk)

	require.NoError(t, env.staking.Unbond(Signed(stash1), 100))
	env.advanceEra(t)
	require.NoError(t, env.staking.Unbond(Signed(stash1), 200))
	env.staking.TakeEvents()

	require.NoError(t, env.staking.Rebond(Signed(stash1), 250))
	l := env.ledger(t, stash1)
	assert.Equal(t, npos.Balance(950), l.Active)
	assert.Equal(t, npos.Balance(1000), l.Total)
	assert.Equal(t, []ledger.UnlockChunk{{Value: 50, Era: 3}}, l.Unlocking)

	bonded := env.events(EventBonded)
	require.Len(t, bonded, 1)
	assert.Equal(t, npos.Balance(250), bonded[0].Amount)

	// more than is unlocking rebonds what there is
	require.NoError(t, env.staking.Rebond(Signed(stash1), 1000))
	assert.Empty(t, env.ledger(t, stash1).Unlocking)
	assert.Equal(t, npos.Balance(50), env.events(EventBonded)[0].Amount)
}

func TestFailedOperationIsReverted(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.staking.SetStakingConfigs(Root(), StakingConfigs{
		MinNominatorBond: Set[npos.Balance](500),
	}))
	NewSequence(env).
		Validator(validator1, 1000, ValidatorPrefs{}).
		ValidatorCount(1).
		Nominator(stash1, 1000, validator1).
		Genesis().
		Run(t)

	for era := npos.EraIndex(0); era < 4; era++ {
		env.advanceTo(t, era)
		require.NoError(t, env.staking.Unbond(Signed(stash1), 10))
	}
	env.advanceTo(t, 3)
	env.staking.TakeEvents()
	before := env.ledger(t, stash1)
	require.Len(t, before.Unlocking, 4)

	// the full queue is consolidated first, then the role minimum fails
	assert.ErrorIs(t, env.staking.Unbond(Signed(stash1), 600), reverts.ErrInsufficientBond)
	assert.Equal(t, before, env.ledger(t, stash1))
	assert.Empty(t, env.staking.TakeEvents())

	staked, err := env.bal.Staked(stash1)
	require.NoError(t, err)
	assert.Equal(t, npos.Balance(1000), staked)
}

func TestReapStash(t *testing.T) {
	env := newTestEnv(t, nil)
	NewSequence(env).
		Fund(stash1, 1000).
		Bond(stash1, 1000, ledger.Stash).
		Run(t)

	assert.ErrorIs(t, env.staking.ReapStash(Root(), stash1, 0), reverts.ErrBadOrigin)
	assert.ErrorIs(t, env.staking.ReapStash(Signed(stash2), stash1, 0), reverts.ErrFundedTooMuch)
}

func TestSetPayeeAndController(t *testing.T) {
	env := newTestEnv(t, nil)
	NewSequence(env).
		Fund(stash1, 1000).
		Bond(stash1, 1000, ledger.Stash).
		Run(t)

	require.NoError(t, env.staking.SetPayee(Signed(stash1), ledger.Account(stash2)))
	payee, _, err := env.staking.Payee(stash1)
	require.NoError(t, err)
	assert.Equal(t, ledger.Account(stash2), payee)

	assert.ErrorIs(t, env.staking.SetPayee(Signed(stash1), ledger.RewardDestination{Kind: ledger.PayController}), reverts.ErrControllerDeprecated)
	assert.ErrorIs(t, env.staking.SetPayee(Signed(stash2), ledger.Stash), reverts.ErrNotController)

	// already its own controller
	assert.ErrorIs(t, env.staking.SetController(Signed(stash1)), reverts.ErrAlreadyPaired)
}
