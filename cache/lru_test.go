// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU(t *testing.T) {
	_, err := NewLRU[string, int]("test", 0)
	assert.Error(t, err)

	c, err := NewLRU[string, int]("test", 2)
	require.NoError(t, err)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)
	assert.Equal(t, 2, c.Len())

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry evicted")

	v, ok := c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	hit, miss, _ := c.Stats().Report()
	assert.Equal(t, int64(1), hit)
	assert.Equal(t, int64(1), miss)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestLRUGetOrLoad(t *testing.T) {
	c, err := NewLRU[int, string]("test", 4)
	require.NoError(t, err)

	loads := 0
	loader := func(k int) (string, error) {
		loads++
		if k < 0 {
			return "", errors.New("negative")
		}
		return "v", nil
	}

	for range 3 {
		v, err := c.GetOrLoad(1, loader)
		require.NoError(t, err)
		assert.Equal(t, "v", v)
	}
	assert.Equal(t, 1, loads)

	_, err = c.GetOrLoad(-1, loader)
	assert.Error(t, err)
	_, ok := c.Get(-1)
	assert.False(t, ok, "failed loads are not cached")
}
