// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
	"github.com/vechain/npos/staking/election"
)

func newEraEnv(t *testing.T, mutate func(cfg *Config, opts *Options)) *testEnv {
	env := newTestEnv(t, mutate)
	NewSequence(env).
		Validator(validator1, 1000, ValidatorPrefs{}).
		Validator(validator2, 2000, ValidatorPrefs{}).
		Nominator(stash1, 500, validator1, validator2).
		ValidatorCount(2).
		Genesis().
		Run(t)
	return env
}

func TestGenesisEra(t *testing.T) {
	env := newTestEnv(t, nil)
	NewSequence(env).
		Validator(validator1, 1000, ValidatorPrefs{}).
		Validator(validator2, 2000, ValidatorPrefs{}).
		Nominator(stash1, 500, validator1, validator2).
		ValidatorCount(2).
		Run(t)

	elected, err := env.staking.StartGenesis()
	require.NoError(t, err)
	assert.Equal(t, []npos.Address{validator1, validator2}, elected)
	assert.Equal(t, elected, env.rot.Validators())

	active, found, err := env.staking.ActiveEra()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, npos.EraIndex(0), active.Index)
	assert.Equal(t, uint64(1_000), active.Start)

	start, found, err := env.staking.EraStartSession(0)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, npos.SessionIndex(0), start)

	// the nominator splits 250 to each
	exp, err := env.staking.Exposures().Full(0, validator1)
	require.NoError(t, err)
	assert.Equal(t, npos.Balance(1250), exp.Total)
	exp, err = env.staking.Exposures().Full(0, validator2)
	require.NoError(t, err)
	assert.Equal(t, npos.Balance(2250), exp.Total)

	total, err := env.staking.EraTotalStake(0)
	require.NoError(t, err)
	assert.Equal(t, npos.Balance(3500), total)

	minActive, err := env.staking.MinimumActiveStake()
	require.NoError(t, err)
	assert.Equal(t, npos.Balance(500), minActive)

	elections := env.events(EventStakersElected)
	require.Len(t, elections, 1)
	assert.Equal(t, npos.Balance(2), elections[0].Amount)
}

func TestGenesisWithoutStakers(t *testing.T) {
	env := newTestEnv(t, nil)

	elected, err := env.staking.StartGenesis()
	require.NoError(t, err)
	assert.Empty(t, elected)
	assert.Len(t, env.events(EventStakingElectionFailed), 1)

	current, found, err := env.staking.CurrentEra()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, npos.EraIndex(0), current)
}

func TestEraRotation(t *testing.T) {
	env := newEraEnv(t, nil)
	require.NoError(t, env.staking.NoteAuthor(validator1))
	require.NoError(t, env.staking.NoteAuthor(validator2))
	require.NoError(t, env.staking.NoteAuthor(validator2))

	points, err := env.staking.EraRewardPoints(0)
	require.NoError(t, err)
	assert.Equal(t, npos.RewardPoint(60), points.Total)
	assert.Equal(t, npos.RewardPoint(40), points.Of(validator2))

	for era := npos.EraIndex(1); era <= 5; era++ {
		assert.Equal(t, era, env.advanceEra(t))
		start, _, err := env.staking.EraStartSession(era)
		require.NoError(t, err)
		assert.Equal(t, npos.SessionIndex(era*3), start)

		paid := env.events(EventEraPaid)
		require.Len(t, paid, 1)
		assert.Equal(t, era-1, paid[0].Era)
		assert.Equal(t, npos.Balance(1_100_000), paid[0].Amount)
	}

	// bonded eras keep the bonding duration
	bonded, err := env.staking.BondedEras()
	require.NoError(t, err)
	assert.Equal(t, []BondedEra{{2, 6}, {3, 9}, {4, 12}, {5, 15}}, bonded)

	// era 5 started on the 15th rotation
	active, _, err := env.staking.ActiveEra()
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000+14*60_000), active.Start)
}

func TestHistoryDepth(t *testing.T) {
	env := newEraEnv(t, func(cfg *Config, _ *Options) {
		cfg.HistoryDepth = 2
		cfg.BondingDuration = 2
	})
	env.advanceTo(t, 4)

	// planning era 4 cleared era 1
	for era, kept := range map[npos.EraIndex]bool{0: false, 1: false, 2: true, 3: true} {
		_, found, err := env.staking.EraValidatorReward(era)
		require.NoError(t, err)
		assert.Equal(t, kept, found, "era %d", era)
		_, found, err = env.staking.Exposures().Overview(era, validator1)
		require.NoError(t, err)
		assert.Equal(t, kept, found, "era %d", era)
		_, found, err = env.staking.EraStartSession(era)
		require.NoError(t, err)
		assert.Equal(t, kept, found, "era %d", era)
	}
}

func TestForceNone(t *testing.T) {
	env := newEraEnv(t, nil)
	require.NoError(t, env.staking.ForceNoEras(Root()))

	for range 10 {
		env.rotate(t)
	}
	active, _, err := env.staking.ActiveEra()
	require.NoError(t, err)
	assert.Equal(t, npos.EraIndex(0), active.Index)
}

func TestForceAlways(t *testing.T) {
	env := newEraEnv(t, nil)
	require.NoError(t, env.staking.ForceNewEraAlways(Root()))

	// every rotation plans an era that starts at the next one
	for range 4 {
		env.rotate(t)
	}
	active, _, err := env.staking.ActiveEra()
	require.NoError(t, err)
	assert.Equal(t, npos.EraIndex(3), active.Index)

	mode, err := env.staking.ForceEra()
	require.NoError(t, err)
	assert.Equal(t, ForceAlways, mode)
}

func TestForceNewEraOnce(t *testing.T) {
	env := newEraEnv(t, nil)
	env.advanceEra(t)
	require.NoError(t, env.staking.ForceNewEra(Root()))

	// era 2 is planned for session 5 instead of 6
	env.rotate(t)
	start, found, err := env.staking.EraStartSession(2)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, npos.SessionIndex(5), start)

	mode, err := env.staking.ForceEra()
	require.NoError(t, err)
	assert.Equal(t, NotForcing, mode)
}

func TestElectionFailureKeepsEra(t *testing.T) {
	env := newEraEnv(t, nil)
	require.NoError(t, env.staking.SetMinimumValidatorCount(Root(), 3))

	for range 6 {
		env.rotate(t)
	}
	active, _, err := env.staking.ActiveEra()
	require.NoError(t, err)
	assert.Equal(t, npos.EraIndex(0), active.Index)
	assert.NotEmpty(t, env.events(EventStakingElectionFailed))
}

func TestVoterSnapshotBounds(t *testing.T) {
	env := newTestEnv(t, nil)
	NewSequence(env).
		Validator(validator1, 1000, ValidatorPrefs{}).
		Validator(validator2, 2000, ValidatorPrefs{}).
		Nominator(stash1, 500, validator1).
		Run(t)

	voters, err := env.staking.ElectingVoters(election.Bounds{Count: 2})
	require.NoError(t, err)
	require.Len(t, voters, 2)
	assert.Equal(t, validator2, voters[0].Who)
	assert.Equal(t, validator1, voters[1].Who)
	// a count limit alone is not reported
	assert.Empty(t, env.events(EventSnapshotVotersSizeExceeded))

	minActive, err := env.staking.MinimumActiveStake()
	require.NoError(t, err)
	assert.Equal(t, npos.Balance(1000), minActive)

	voter := election.Voter{Targets: []npos.Address{validator1}}
	voters, err = env.staking.ElectingVoters(election.Bounds{Size: voter.EncodedSize()})
	require.NoError(t, err)
	assert.Len(t, voters, 1)
	assert.Len(t, env.events(EventSnapshotVotersSizeExceeded), 1)

	targets, err := env.staking.ElectableTargets(election.Bounds{Count: 1})
	require.NoError(t, err)
	assert.Len(t, targets, 1)
	targets, err = env.staking.ElectableTargets(election.Bounds{})
	require.NoError(t, err)
	assert.Len(t, targets, 2)
}

func TestSlashedTargetDroppedFromOlderNomination(t *testing.T) {
	env := newEraEnv(t, nil)
	env.advanceTo(t, 2)
	// a slash in era 1 postdates the nomination of era 0
	require.NoError(t, env.staking.ManualSlash(Root(), validator1, 1, percent(10)))
	require.NoError(t, env.staking.Validate(Signed(validator1), ValidatorPrefs{}))

	voters, err := env.staking.ElectingVoters(election.Bounds{})
	require.NoError(t, err)
	for _, v := range voters {
		if v.Who == stash1 {
			assert.Equal(t, []npos.Address{validator2}, v.Targets)
			return
		}
	}
	t.Fatal("nominator missing from snapshot")
}

func TestRewardPointsBeforeGenesis(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.staking.NoteAuthor(validator1))
	points, err := env.staking.EraRewardPoints(0)
	require.NoError(t, err)
	assert.Equal(t, npos.RewardPoint(0), points.Total)
}

type switchedElection struct {
	election.Provider
	fail bool
}

func (e *switchedElection) Elect(data election.DataProvider) ([]election.Support, error) {
	if e.fail {
		return nil, errors.New("election offline")
	}
	return e.Provider.Elect(data)
}

func TestRotateSessionRollsBack(t *testing.T) {
	elect := &switchedElection{}
	env := newSlashEnv(t, func(cfg *Config, opts *Options) {
		elect.Provider = &election.Approval{VoterBounds: cfg.VoterBounds, TargetBounds: cfg.TargetBounds}
		opts.Election = elect
	})
	era0 := slices.Clone(env.rot.Validators())
	require.Len(t, era0, 3)

	// era 1 is planned without validator3
	require.NoError(t, env.staking.Chill(Signed(validator3)))
	env.rotate(t)
	env.rotate(t)
	current, _, err := env.staking.CurrentEra()
	require.NoError(t, err)
	require.Equal(t, npos.EraIndex(1), current)

	require.NoError(t, env.staking.OnOffence([]OffenceDetails{offence(validator2)}, []perthing.Perbill{percent(10)}, 0))
	require.Equal(t, []uint32{1}, env.rot.Disabled())
	require.NoError(t, env.staking.ForceNewEraAlways(Root()))
	env.staking.TakeEvents()

	// the era 1 set is made current before planning fails
	elect.fail = true
	_, err = env.staking.RotateSession(env.session)
	require.Error(t, err)

	assert.Equal(t, era0, env.rot.Validators())
	assert.Equal(t, []uint32{1}, env.rot.Disabled())
	assert.Empty(t, env.staking.TakeEvents())
	active, _, err := env.staking.ActiveEra()
	require.NoError(t, err)
	assert.Equal(t, npos.EraIndex(0), active.Index)

	// the queued set survives the failure
	elect.fail = false
	require.NoError(t, env.staking.ForceNoEras(Root()))
	env.rotate(t)
	assert.ElementsMatch(t, []npos.Address{validator1, validator2}, env.rot.Validators())
	assert.Empty(t, env.rot.Disabled())
	active, _, err = env.staking.ActiveEra()
	require.NoError(t, err)
	assert.Equal(t, npos.EraIndex(1), active.Index)
}

func TestEraRewardPointsSaturate(t *testing.T) {
	var points EraRewardPoints
	points.Add(validator2, math.MaxUint32-10)
	points.Add(validator1, 20)
	assert.Equal(t, npos.RewardPoint(math.MaxUint32), points.Total)

	points.Add(validator2, 20)
	assert.Equal(t, npos.RewardPoint(math.MaxUint32), points.Of(validator2))
	assert.Equal(t, npos.RewardPoint(20), points.Of(validator1))
	assert.Equal(t, []ValidatorPoints{
		{Validator: validator1, Points: 20},
		{Validator: validator2, Points: math.MaxUint32},
	}, points.Individual)
}

func TestSaturatingAdd(t *testing.T) {
	assert.Equal(t, uint32(30), saturatingAdd(10, 20))
	assert.Equal(t, uint32(math.MaxUint32), saturatingAdd(math.MaxUint32-1, npos.AddressLength))
	assert.Equal(t, uint32(math.MaxUint32), saturatingAdd(math.MaxUint32, math.MaxUint32))
}
