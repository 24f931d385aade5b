// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/npos/genesis"
	"github.com/vechain/npos/kv"
	"github.com/vechain/npos/lvldb"
	"github.com/vechain/npos/node"
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/staking"
	"github.com/vechain/npos/staking/ledger"
	"github.com/vechain/npos/test/testnode"
)

func dump(t *testing.T, db kv.Store) map[string][]byte {
	it := db.Iterate(kv.Range{})
	defer it.Release()

	out := make(map[string][]byte)
	for it.Next() {
		out[string(it.Key())] = bytes.Clone(it.Value())
	}
	require.NoError(t, it.Error())
	return out
}

func TestArchiveRoundTrip(t *testing.T) {
	b := testnode.NewBuilder()
	n, err := b.Build()
	require.NoError(t, err)
	defer n.Close()

	era, err := n.AdvanceEra()
	require.NoError(t, err)
	session, err := n.Session()
	require.NoError(t, err)

	var buf bytes.Buffer
	count, err := exportState(n.DB, b.Genesis().Name, &buf, false)
	require.NoError(t, err)
	assert.NotZero(t, count)

	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	header, err := importState(db, bytes.NewReader(buf.Bytes()), int64(buf.Len()), false, nil)
	require.NoError(t, err)
	assert.Equal(t, count, header.Count)
	assert.Equal(t, "devnet", header.Genesis)
	assert.Equal(t, dump(t, n.DB), dump(t, db))

	imported, err := node.New(db, b.Genesis(), nil, node.Options{BlocksPerSession: 2})
	require.NoError(t, err)
	defer imported.Close()

	got, err := imported.Session()
	require.NoError(t, err)
	assert.Equal(t, session, got)

	stash := genesis.DevAccounts()[0].Address
	require.NoError(t, imported.View(func(s *staking.Staking) error {
		active, _, err := s.ActiveEra()
		require.NoError(t, err)
		assert.Equal(t, era, active.Index)

		l, err := s.Ledger(ledger.ByStash(stash))
		require.NoError(t, err)
		assert.Equal(t, npos.Balance(100_000_000_000), l.Total)
		return nil
	}))
}

func TestImportRefused(t *testing.T) {
	b := testnode.NewBuilder()
	n, err := b.Build()
	require.NoError(t, err)
	defer n.Close()

	var buf bytes.Buffer
	_, err = exportState(n.DB, "devnet", &buf, false)
	require.NoError(t, err)

	t.Run("not empty", func(t *testing.T) {
		_, err := importState(n.DB, bytes.NewReader(buf.Bytes()), int64(buf.Len()), false, nil)
		assert.EqualError(t, err, "database is not empty")
	})

	t.Run("check", func(t *testing.T) {
		db, err := lvldb.NewMem()
		require.NoError(t, err)
		defer db.Close()

		refused := errors.New("refused")
		_, err = importState(db, bytes.NewReader(buf.Bytes()), int64(buf.Len()), false, func(h *archiveHeader) error {
			assert.Equal(t, "devnet", h.Genesis)
			return refused
		})
		assert.ErrorIs(t, err, refused)
		empty, err := isEmpty(db)
		require.NoError(t, err)
		assert.True(t, empty)
	})

	t.Run("version", func(t *testing.T) {
		db, err := lvldb.NewMem()
		require.NoError(t, err)
		defer db.Close()

		var archive bytes.Buffer
		w := snappy.NewBufferedWriter(&archive)
		require.NoError(t, rlp.Encode(w, &archiveHeader{Version: 2, Genesis: "devnet"}))
		require.NoError(t, w.Close())

		_, err = importState(db, &archive, int64(archive.Len()), false, nil)
		assert.EqualError(t, err, "unsupported archive version 2")
	})

	t.Run("truncated", func(t *testing.T) {
		db, err := lvldb.NewMem()
		require.NoError(t, err)
		defer db.Close()

		var archive bytes.Buffer
		w := snappy.NewBufferedWriter(&archive)
		require.NoError(t, rlp.Encode(w, &archiveHeader{Version: archiveVersion, Count: 2}))
		require.NoError(t, rlp.Encode(w, &archiveEntry{Key: []byte("k"), Value: []byte("v")}))
		require.NoError(t, w.Close())

		_, err = importState(db, &archive, int64(archive.Len()), false, nil)
		assert.ErrorContains(t, err, "decode entry 1")
	})
}
