// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/npos/genesis"
	"github.com/vechain/npos/lvldb"
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
	"github.com/vechain/npos/staking"
	"github.com/vechain/npos/staking/ledger"
	"github.com/vechain/npos/state"
)

const customYAML = `
name: test
existential-deposit: 10
staking:
  sessions-per-era: 3
  bonding-duration: 3
  slash-defer-duration: 1
  voter-bounds:
    count: 100
payout:
  fixed:
    validator: 1000
accounts:
  - address: "0x0000000000000000000000000000000000000001"
    balance: 5000
stakers:
  - stash: "0x000000000000000000000000000000000000000a"
    bond: 1000
    role: validator
    commission: 10%
  - stash: "0x000000000000000000000000000000000000000b"
    bond: 500
    role: nominator
    targets: ["0x000000000000000000000000000000000000000a"]
    payee: stash
params:
  min-nominator-bond: 100
  min-commission: 2.5%
`

func mustAddr(t *testing.T, s string) npos.Address {
	addr, err := npos.ParseAddress(s)
	require.NoError(t, err)
	return *addr
}

func newState(t *testing.T) *state.State {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return state.New(db, 0)
}

func TestParse(t *testing.T) {
	gen, err := genesis.Parse([]byte(customYAML))
	require.NoError(t, err)

	assert.Equal(t, "test", gen.Name)
	assert.Equal(t, npos.Balance(10), gen.ExistentialDeposit)
	assert.Equal(t, npos.SessionIndex(3), gen.Staking.SessionsPerEra)
	assert.Equal(t, uint32(100), gen.Staking.VoterBounds.Count)
	// untouched keys keep their defaults
	assert.Equal(t, staking.DefaultConfig().HistoryDepth, gen.Staking.HistoryDepth)
	assert.Equal(t, staking.DefaultConfig().SlashRewardFraction, gen.Staking.SlashRewardFraction)

	require.NotNil(t, gen.Payout.Fixed)
	assert.Equal(t, npos.Balance(1000), gen.Payout.Fixed.Validator)
	require.Len(t, gen.Stakers, 2)
	assert.Equal(t, perthing.PerbillFromPercent(10), gen.Stakers[0].Commission.Perbill())
	assert.Equal(t, []npos.Address{mustAddr(t, "0x000000000000000000000000000000000000000a")}, gen.Stakers[1].Targets)
	require.NotNil(t, gen.Params.MinCommission)
	assert.Equal(t, perthing.PerbillFromParts(25_000_000), gen.Params.MinCommission.Perbill())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "bogus: 1"},
		{"bad config", "staking:\n  sessions-per-era: 0"},
		{"both payouts", "payout:\n  fixed: {validator: 1}\n  inflation: {annual: 1%}"},
		{"bad role", "stakers:\n  - {stash: '0x0000000000000000000000000000000000000001', bond: 10, role: king}"},
		{"zero stash", "stakers:\n  - {bond: 10, role: validator}"},
		{"dust bond", "stakers:\n  - {stash: '0x0000000000000000000000000000000000000001', bond: 0, role: idle}"},
		{"nominator without targets", "stakers:\n  - {stash: '0x0000000000000000000000000000000000000001', bond: 10, role: nominator}"},
		{"target not validator", "stakers:\n  - {stash: '0x0000000000000000000000000000000000000001', bond: 10, role: nominator, targets: ['0x0000000000000000000000000000000000000002']}"},
		{"bad payee", "stakers:\n  - {stash: '0x0000000000000000000000000000000000000001', bond: 10, role: idle, payee: controller}"},
		{"bad fraction", "stakers:\n  - {stash: '0x0000000000000000000000000000000000000001', bond: 10, role: validator, commission: 101%}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := genesis.Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParseFraction(t *testing.T) {
	tests := []struct {
		in   string
		want perthing.Perbill
		err  bool
	}{
		{"0", 0, false},
		{"1000000000", perthing.PerbillOne, false},
		{"100%", perthing.PerbillOne, false},
		{"12.5%", perthing.PerbillFromParts(125_000_000), false},
		{"0.0000001%", perthing.PerbillFromParts(1), false},
		{" 7% ", perthing.PerbillFromPercent(7), false},
		{"1000000001", 0, true},
		{"100.5%", 0, true},
		{"1.00000001%", 0, true},
		{"-1%", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := genesis.ParseFraction(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestBuild(t *testing.T) {
	gen, err := genesis.Parse([]byte(customYAML))
	require.NoError(t, err)

	st := newState(t)
	n, err := gen.Build(st, staking.Options{})
	require.NoError(t, err)

	validator := mustAddr(t, "0x000000000000000000000000000000000000000a")
	nominator := mustAddr(t, "0x000000000000000000000000000000000000000b")
	assert.Equal(t, []npos.Address{validator}, n.Rotation.Validators())

	active, found, err := n.Staking.ActiveEra()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, npos.EraIndex(0), active.Index)

	prefs, found, err := n.Staking.Validator(validator)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, perthing.PerbillFromPercent(10), prefs.Commission)

	payee, _, err := n.Staking.Payee(nominator)
	require.NoError(t, err)
	assert.Equal(t, ledger.Stash, payee)

	total, err := n.Staking.EraTotalStake(0)
	require.NoError(t, err)
	assert.Equal(t, npos.Balance(1500), total)

	free, err := n.Balances.Free(mustAddr(t, "0x0000000000000000000000000000000000000001"))
	require.NoError(t, err)
	assert.Equal(t, npos.Balance(5000), free)

	params, err := n.Staking.Params()
	require.NoError(t, err)
	assert.Equal(t, npos.Balance(100), params.MinNominatorBond)
	assert.Equal(t, perthing.PerbillFromParts(25_000_000), params.MinCommission)

	count, err := n.Staking.ValidatorCount()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), count)

	_, err = gen.Build(st, staking.Options{})
	assert.Error(t, err, "second build over the same state")
}

func TestResume(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	gen := genesis.NewDevnet()
	st := state.New(db, 0)
	n, err := gen.Build(st, staking.Options{})
	require.NoError(t, err)
	elected := n.Rotation.Validators()
	require.Len(t, elected, 3)
	_, err = st.Stage().Commit()
	require.NoError(t, err)

	reopened, err := gen.Open(state.New(db, 0), staking.Options{})
	require.NoError(t, err)
	assert.Empty(t, reopened.Rotation.Validators())
	require.NoError(t, reopened.Resume())
	assert.Equal(t, elected, reopened.Rotation.Validators())
	assert.Empty(t, reopened.Rotation.Disabled())
}

func TestDevnet(t *testing.T) {
	accs := genesis.DevAccounts()
	require.Len(t, accs, 10)
	assert.Equal(t, accs, genesis.DevAccounts())

	gen := genesis.NewDevnet()
	require.NoError(t, gen.Validate())

	n, err := gen.Build(newState(t), staking.Options{})
	require.NoError(t, err)

	validators, nominators, err := n.Staking.Counts()
	require.NoError(t, err)
	assert.Equal(t, uint32(3), validators)
	assert.Equal(t, uint32(3), nominators)

	l, err := n.Staking.Ledger(ledger.ByStash(accs[0].Address))
	require.NoError(t, err)
	assert.Equal(t, npos.Balance(100_000_000_000), l.Active)

	total, err := n.Balances.TotalBalance(accs[9].Address)
	require.NoError(t, err)
	assert.Equal(t, npos.Balance(1_000_000_000_000), total)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(customYAML), 0o600))

	gen, err := genesis.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", gen.Name)

	_, err = genesis.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
