// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vechain/npos/staking"
)

func TestMessageCache_GetOrAdd(t *testing.T) {
	ev0 := &staking.Event{Kind: staking.EventBonded, Amount: 1}
	ev1 := &staking.Event{Kind: staking.EventBonded, Amount: 1}

	cache := newMessageCache(10)
	create := func(ev *staking.Event) func() ([]byte, error) {
		return func() ([]byte, error) { return json.Marshal(ev) }
	}

	counter := atomic.Int32{}
	wg := sync.WaitGroup{}
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, added, err := cache.GetOrAdd(ev0, create(ev0))
			assert.NoError(t, err)
			if added {
				counter.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), counter.Load())

	// equal events of different commits are distinct messages
	msg, added, err := cache.GetOrAdd(ev1, create(ev1))
	assert.NoError(t, err)
	assert.True(t, added)
	assert.JSONEq(t, `{"kind":"Bonded","amount":1}`, mustSubset(t, msg))
	assert.Equal(t, 2, cache.cache.Len())
}

func TestMessageCacheBounds(t *testing.T) {
	assert.NotPanics(t, func() { newMessageCache(0) })
	cache := newMessageCache(5000)
	for range 1100 {
		ev := &staking.Event{}
		_, _, err := cache.GetOrAdd(ev, func() ([]byte, error) { return []byte("{}"), nil })
		assert.NoError(t, err)
	}
	assert.Equal(t, 1000, cache.cache.Len())
}

// mustSubset keeps the kind and amount of an encoded event.
func mustSubset(t *testing.T, msg []byte) string {
	var ev staking.Event
	assert.NoError(t, json.Unmarshal(msg, &ev))
	out, err := json.Marshal(map[string]any{"kind": ev.Kind, "amount": ev.Amount})
	assert.NoError(t, err)
	return string(out)
}
