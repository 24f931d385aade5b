// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/qianbin/directcache"

	"github.com/vechain/npos/kv"
	"github.com/vechain/npos/stackedmap"
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// State manages the staking state.
// A nil value in the stacked map marks a deleted key.
type State struct {
	db    kv.Store
	cache *directcache.Cache // caches committed values, nil when disabled
	sm    *stackedmap.StackedMap[string, []byte]
}

// New create state object on the committed store.
// cacheSizeMB of zero disables the read cache.
func New(db kv.Store, cacheSizeMB int) *State {
	s := &State{db: db}
	if cacheSizeMB > 0 {
		s.cache = directcache.New(cacheSizeMB * 1024 * 1024)
	}
	s.reset()
	return s
}

func (s *State) reset() {
	s.sm = stackedmap.New(s.committedGetter)
}

// committedGetter implements stackedmap.MapGetter.
func (s *State) committedGetter(key string) ([]byte, bool, error) {
	k := []byte(key)
	if s.cache != nil {
		var val []byte
		if s.cache.AdvGet(k, func(v []byte) {
			val = slices.Clone(v)
		}, false) {
			metricCacheHitMiss().AddWithLabel(1, map[string]string{"event": "hit"})
			return val, true, nil
		}
		metricCacheHitMiss().AddWithLabel(1, map[string]string{"event": "miss"})
	}

	val, err := s.db.Get(k)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if s.cache != nil {
		_ = s.cache.Set(k, val)
	}
	return val, true, nil
}

// Get returns the raw value of key, nil if absent.
func (s *State) Get(key []byte) ([]byte, error) {
	val, _, err := s.sm.Get(string(key))
	if err != nil {
		return nil, &Error{err}
	}
	return val, nil
}

// Has returns whether the key holds a value.
func (s *State) Has(key []byte) (bool, error) {
	val, err := s.Get(key)
	if err != nil {
		return false, err
	}
	return val != nil, nil
}

// Put sets the raw value of key. An empty value is stored as an empty,
// present value.
func (s *State) Put(key, val []byte) {
	if val == nil {
		val = []byte{}
	}
	s.sm.Put(string(key), bytes.Clone(val))
}

// Delete removes the key.
func (s *State) Delete(key []byte) {
	s.sm.Put(string(key), nil)
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
}

// dirty returns the latest uncommitted value of every written key.
func (s *State) dirty() map[string][]byte {
	changes := make(map[string][]byte)
	s.sm.Journal(func(k string, v []byte) bool {
		changes[k] = v
		return true
	})
	return changes
}

// Iterate visits keys with the given prefix in ascending order, merging
// committed and uncommitted values. The visited key has the prefix stripped.
// Iteration stops when fn returns false or an error.
func (s *State) Iterate(prefix []byte, fn func(key, val []byte) (bool, error)) error {
	merged := make(map[string][]byte)

	it := s.db.Iterate(kv.PrefixRange(prefix))
	for it.Next() {
		merged[string(it.Key())] = bytes.Clone(it.Value())
	}
	it.Release()
	if err := it.Error(); err != nil {
		return &Error{err}
	}

	p := string(prefix)
	for k, v := range s.dirty() {
		if strings.HasPrefix(k, p) {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k, v := range merged {
		if v != nil {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	for _, k := range keys {
		cont, err := fn([]byte(k[len(p):]), merged[k])
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

// Stage collects all uncommitted changes into a stage.
func (s *State) Stage() *Stage {
	changes := s.dirty()
	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return &Stage{state: s, keys: keys, changes: changes}
}
