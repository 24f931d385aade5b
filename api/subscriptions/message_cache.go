// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/vechain/npos/cache"
	"github.com/vechain/npos/staking"
)

const maxMessageCacheSize = 1000

// messageCache shares the encoded message of an event among all the
// subscribers it is delivered to. Events are keyed by identity, so equal
// events of different commits are encoded separately.
type messageCache struct {
	cache *cache.LRU[*staking.Event, []byte]
	mu    sync.Mutex
}

func newMessageCache(size uint32) *messageCache {
	size = min(max(size, 1), maxMessageCacheSize)
	c, err := cache.NewLRU[*staking.Event, []byte]("subscription_messages", int(size))
	if err != nil {
		panic(errors.Wrap(err, "create message cache"))
	}
	return &messageCache{cache: c}
}

// GetOrAdd returns the encoded message of ev, encoding it with encode on a
// miss. added reports whether this call encoded it.
func (mc *messageCache) GetOrAdd(ev *staking.Event, encode func() ([]byte, error)) (msg []byte, added bool, err error) {
	if msg, ok := mc.cache.Get(ev); ok {
		return msg, false, nil
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	if msg, ok := mc.cache.Get(ev); ok {
		return msg, false, nil
	}
	if msg, err = encode(); err != nil {
		return nil, false, err
	}
	mc.cache.Add(ev, msg)
	return msg, true, nil
}
