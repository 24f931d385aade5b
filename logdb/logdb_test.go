// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
	"github.com/vechain/npos/staking"
)

var (
	alice = npos.BytesToAddress([]byte("alice"))
	bob   = npos.BytesToAddress([]byte("bob"))
)

func newTestDB(t *testing.T) *LogDB {
	db, err := NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// fill writes four sessions, two per era, each with a bond of alice and a
// slash of bob.
func fill(t *testing.T, db *LogDB) {
	for session := range npos.SessionIndex(4) {
		era := session / 2
		require.NoError(t, db.NewBatch(era, session).
			Add(&staking.Event{Kind: staking.EventBonded, Stash: alice, Amount: npos.Balance(100 + session)}).
			Add(&staking.Event{Kind: staking.EventSlashed, Stash: bob, Amount: 5, Era: era, Fraction: perthing.PerbillFromPercent(10)}).
			Commit())
	}
}

func TestFilterEvents(t *testing.T) {
	db := newTestDB(t)
	fill(t, db)
	ctx := context.Background()

	all, err := db.FilterEvents(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 8)
	assert.Equal(t, npos.SessionIndex(3), all[7].Session)
	assert.Equal(t, uint32(1), all[7].Index)
	assert.Equal(t, npos.EraIndex(1), all[7].Era)
	assert.Equal(t, &staking.Event{Kind: staking.EventSlashed, Stash: bob, Amount: 5, Era: 1, Fraction: perthing.PerbillFromPercent(10)}, all[7].Payload)

	tests := []struct {
		name   string
		filter *EventFilter
		want   int
	}{
		{"stash", &EventFilter{Stash: &alice}, 4},
		{"kind", &EventFilter{Kinds: []staking.EventKind{staking.EventSlashed}}, 4},
		{"kinds", &EventFilter{Kinds: []staking.EventKind{staking.EventSlashed, staking.EventBonded}}, 8},
		{"era", &EventFilter{Range: &Range{Unit: Era, From: 1, To: 1}}, 4},
		{"open era", &EventFilter{Range: &Range{Unit: Era, From: 1}}, 4},
		{"session", &EventFilter{Range: &Range{Unit: Session, From: 1, To: 2}}, 4},
		{"limit", &EventFilter{Options: &Options{Offset: 6, Limit: 5}}, 2},
		{"combined", &EventFilter{Stash: &bob, Range: &Range{Unit: Session, From: 3, To: 3}}, 1},
		{"none", &EventFilter{Stash: &alice, Kinds: []staking.EventKind{staking.EventSlashed}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := db.FilterEvents(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, events, tt.want)
		})
	}

	desc, err := db.FilterEvents(ctx, &EventFilter{Stash: &alice, Order: DESC, Options: &Options{Limit: 1}})
	require.NoError(t, err)
	require.Len(t, desc, 1)
	assert.Equal(t, npos.Balance(103), desc[0].Payload.Amount)
}

func TestBatchReplacesSession(t *testing.T) {
	db := newTestDB(t)
	fill(t, db)

	next := npos.PageIndex(2)
	require.NoError(t, db.NewBatch(1, 3).
		Add(&staking.Event{Kind: staking.EventPayoutStarted, Stash: alice, Page: 1, Next: &next}).
		Commit())

	events, err := db.FilterEvents(context.Background(), &EventFilter{Range: &Range{Unit: Session, From: 3, To: 3}})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Payload.Next)
	assert.Equal(t, npos.PageIndex(2), *events[0].Payload.Next)

	newest, found, err := db.NewestSession()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, npos.SessionIndex(3), newest)
}

func TestTruncate(t *testing.T) {
	db := newTestDB(t)

	_, found, err := db.NewestSession()
	require.NoError(t, err)
	assert.False(t, found)

	fill(t, db)
	require.NoError(t, db.Truncate(2))
	newest, found, err := db.NewestSession()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, npos.SessionIndex(1), newest)
}

func TestLargeAmount(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.NewBatch(0, 0).
		Add(&staking.Event{Kind: staking.EventRewarded, Stash: alice, Amount: ^npos.Balance(0)}).
		Commit())

	events, err := db.FilterEvents(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ^npos.Balance(0), events[0].Payload.Amount)
}

func TestFileDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.db")
	db, err := New(path)
	require.NoError(t, err)
	fill(t, db)
	require.NoError(t, db.Close())

	db, err = New(path)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, path, db.Path())
	events, err := db.FilterEvents(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, events, 8)
}
