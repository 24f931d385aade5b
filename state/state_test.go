// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/npos/lvldb"
)

func newTestState(t *testing.T, cacheMB int) (*State, *lvldb.LevelDB) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, cacheMB), db
}

func TestStateCheckpoint(t *testing.T) {
	st, _ := newTestState(t, 0)

	st.Put([]byte("a"), []byte("1"))
	rev := st.NewCheckpoint()
	st.Put([]byte("a"), []byte("2"))
	st.Put([]byte("b"), []byte("3"))
	st.Delete([]byte("a"))

	v, err := st.Get([]byte("a"))
	require.NoError(t, err)
	assert.Nil(t, v)

	st.RevertTo(rev)
	v, err = st.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	has, err := st.Has([]byte("b"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestStateCommit(t *testing.T) {
	for _, cacheMB := range []int{0, 1} {
		st, db := newTestState(t, cacheMB)

		st.Put([]byte("k1"), []byte("v1"))
		st.Put([]byte("k2"), []byte("v2"))
		stage := st.Stage()
		assert.Equal(t, 2, stage.Len())
		hash, err := stage.Commit()
		require.NoError(t, err)
		assert.False(t, hash.IsZero())

		raw, err := db.Get([]byte("k1"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), raw)

		// read back through the cache, then delete and commit again
		v, err := st.Get([]byte("k2"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), v)

		st.Delete([]byte("k2"))
		_, err = st.Stage().Commit()
		require.NoError(t, err)

		v, err = st.Get([]byte("k2"))
		require.NoError(t, err)
		assert.Nil(t, v)
		_, err = db.Get([]byte("k2"))
		assert.True(t, db.IsNotFound(err))
	}
}

func TestStageHashDeterministic(t *testing.T) {
	a, _ := newTestState(t, 0)
	b, _ := newTestState(t, 0)

	a.Put([]byte("x"), []byte("1"))
	a.Put([]byte("y"), []byte("2"))
	b.Put([]byte("y"), []byte("2"))
	b.Put([]byte("x"), []byte("1"))
	assert.Equal(t, a.Stage().Hash(), b.Stage().Hash())

	b.Delete([]byte("y"))
	assert.NotEqual(t, a.Stage().Hash(), b.Stage().Hash())
}

func TestStateIterate(t *testing.T) {
	st, _ := newTestState(t, 0)
	st.Put([]byte("p1"), []byte("a"))
	st.Put([]byte("p3"), []byte("c"))
	st.Put([]byte("q1"), []byte("z"))
	_, err := st.Stage().Commit()
	require.NoError(t, err)

	st.Put([]byte("p2"), []byte("b"))
	st.Delete([]byte("p3"))

	var got []string
	require.NoError(t, st.Iterate([]byte("p"), func(k, v []byte) (bool, error) {
		got = append(got, string(k)+"="+string(v))
		return true, nil
	}))
	assert.Equal(t, []string{"1=a", "2=b"}, got)

	n := 0
	require.NoError(t, st.Iterate(nil, func(k, v []byte) (bool, error) {
		n++
		return false, nil
	}))
	assert.Equal(t, 1, n)
}
