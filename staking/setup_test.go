// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vechain/npos/balances"
	"github.com/vechain/npos/lvldb"
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/staking/ledger"
	"github.com/vechain/npos/state"
)

const testED npos.Balance = 1

type manualClock struct {
	now uint64
}

func (c *manualClock) NowMillis() uint64 { return c.now }

type slashRecord struct {
	stash  npos.Address
	active npos.Balance
	total  npos.Balance
}

type recordingObserver struct {
	slashes []slashRecord
}

func (o *recordingObserver) OnSlash(stash npos.Address, active npos.Balance, _ map[npos.EraIndex]npos.Balance, total npos.Balance) {
	o.slashes = append(o.slashes, slashRecord{stash: stash, active: active, total: total})
}

type testEnv struct {
	st       *state.State
	bal      *balances.Ledger
	rot      *Rotation
	clock    *manualClock
	observer *recordingObserver
	staking  *Staking
	session  npos.SessionIndex
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SessionsPerEra = 3
	cfg.BondingDuration = 3
	cfg.SlashDeferDuration = 0
	cfg.HistoryDepth = 10
	cfg.MaxUnlockingChunks = 4
	cfg.MaxExposurePageSize = 64
	return cfg
}

func newTestEnv(t *testing.T, mutate func(cfg *Config, opts *Options)) *testEnv {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := state.New(db, 0)
	env := &testEnv{
		st:       st,
		bal:      balances.New(st, testED),
		rot:      NewRotation(nil),
		clock:    &manualClock{now: 1_000},
		observer: &recordingObserver{},
	}
	cfg := testConfig()
	opts := Options{
		Session:  env.rot,
		Payout:   FixedPayout{Validator: 1_100_000},
		Observer: env.observer,
		Clock:    env.clock,
	}
	if mutate != nil {
		mutate(&cfg, &opts)
	}
	env.staking, err = New(cfg, st, env.bal, opts)
	require.NoError(t, err)
	return env
}

// addr derives a distinct non zero test address.
func addr(i int) npos.Address {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], 0x01000000+uint32(i))
	return npos.BytesToAddress(b[:])
}

func (e *testEnv) fund(t *testing.T, who npos.Address, amount npos.Balance) {
	_, err := e.bal.Mint(who, amount)
	require.NoError(t, err)
}

func (e *testEnv) total(t *testing.T, who npos.Address) npos.Balance {
	b, err := e.bal.TotalBalance(who)
	require.NoError(t, err)
	return b
}

func (e *testEnv) ledger(t *testing.T, stash npos.Address) *ledger.StakingLedger {
	l, err := e.staking.Ledger(ledger.ByStash(stash))
	require.NoError(t, err)
	return l
}

// rotate ends the current session.
func (e *testEnv) rotate(t *testing.T) {
	_, err := e.staking.RotateSession(e.session)
	require.NoError(t, err)
	e.session++
	e.clock.now += 60_000
}

// advanceEra rotates sessions until the next era is active.
func (e *testEnv) advanceEra(t *testing.T) npos.EraIndex {
	before, _, err := e.staking.ActiveEra()
	require.NoError(t, err)
	for range 10 * e.staking.cfg.SessionsPerEra {
		e.rotate(t)
		active, _, err := e.staking.ActiveEra()
		require.NoError(t, err)
		if active.Index != before.Index {
			return active.Index
		}
	}
	t.Fatalf("era %d did not advance", before.Index)
	return 0
}

func (e *testEnv) advanceTo(t *testing.T, era npos.EraIndex) {
	for {
		active, _, err := e.staking.ActiveEra()
		require.NoError(t, err)
		if active.Index >= era {
			return
		}
		e.advanceEra(t)
	}
}

func (e *testEnv) events(kind EventKind) []*Event {
	var out []*Event
	for _, ev := range e.staking.TakeEvents() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

type TestFunc func(t *testing.T)

// TestSequence queues engine calls and runs them in order.
type TestSequence struct {
	env *testEnv

	funcs []TestFunc
	mu    sync.Mutex
}

func NewSequence(env *testEnv) *TestSequence {
	return &TestSequence{funcs: make([]TestFunc, 0), env: env}
}

func (ts *TestSequence) AddFunc(f TestFunc) *TestSequence {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.funcs = append(ts.funcs, f)
	return ts
}

func (ts *TestSequence) Fund(who npos.Address, amount npos.Balance) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		ts.env.fund(t, who, amount)
	})
}

func (ts *TestSequence) Bond(stash npos.Address, amount npos.Balance, payee ledger.RewardDestination) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		if err := ts.env.staking.Bond(Signed(stash), amount, payee); err != nil {
			t.Fatalf("failed to bond %s: %v", stash, err)
		}
		t.Logf("bonded %d from %s", amount, stash)
	})
}

// Validator funds, bonds and registers stash as a validator.
func (ts *TestSequence) Validator(stash npos.Address, amount npos.Balance, prefs ValidatorPrefs) *TestSequence {
	ts.Fund(stash, amount).Bond(stash, amount, ledger.Stash)
	return ts.AddFunc(func(t *testing.T) {
		if err := ts.env.staking.Validate(Signed(stash), prefs); err != nil {
			t.Fatalf("failed to validate %s: %v", stash, err)
		}
		t.Logf("validator %s", stash)
	})
}

// Nominator funds, bonds and nominates targets from stash.
func (ts *TestSequence) Nominator(stash npos.Address, amount npos.Balance, targets ...npos.Address) *TestSequence {
	ts.Fund(stash, amount).Bond(stash, amount, ledger.Stash)
	return ts.AddFunc(func(t *testing.T) {
		if err := ts.env.staking.Nominate(Signed(stash), targets); err != nil {
			t.Fatalf("failed to nominate from %s: %v", stash, err)
		}
		t.Logf("nominator %s", stash)
	})
}

func (ts *TestSequence) ValidatorCount(n uint32) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		if err := ts.env.staking.SetValidatorCount(Root(), n); err != nil {
			t.Fatalf("failed to set validator count: %v", err)
		}
	})
}

func (ts *TestSequence) Genesis() *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		elected, err := ts.env.staking.StartGenesis()
		if err != nil {
			t.Fatalf("failed to start genesis: %v", err)
		}
		t.Logf("genesis elected %d validators", len(elected))
	})
}

func (ts *TestSequence) AdvanceEra() *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		era := ts.env.advanceEra(t)
		t.Logf("era %d active", era)
	})
}

func (ts *TestSequence) Run(t *testing.T) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for _, f := range ts.funcs {
		f(t)
	}
	ts.funcs = ts.funcs[:0]
	ts.env.staking.TakeEvents()
}
