// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// Key is a storage map key.
type Key interface {
	Bytes() []byte
}

// Mapping is a typed key/value view over the state. Values are rlp encoded
// under prefix+key.
type Mapping[K Key, V any] struct {
	state  *State
	prefix []byte
}

func NewMapping[K Key, V any](state *State, prefix string) *Mapping[K, V] {
	return &Mapping[K, V]{state: state, prefix: []byte(prefix)}
}

func (m *Mapping[K, V]) key(k K) []byte {
	return append(append([]byte(nil), m.prefix...), k.Bytes()...)
}

// Get returns the value stored for key. found is false if absent, in which
// case value is the zero value.
func (m *Mapping[K, V]) Get(key K) (value V, found bool, err error) {
	raw, err := m.state.Get(m.key(key))
	if err != nil || raw == nil {
		return value, false, err
	}
	if err := rlp.DecodeBytes(raw, &value); err != nil {
		return value, false, errors.Wrapf(err, "decode %q", m.prefix)
	}
	return value, true, nil
}

// Has returns whether the key holds a value.
func (m *Mapping[K, V]) Has(key K) (bool, error) {
	return m.state.Has(m.key(key))
}

func (m *Mapping[K, V]) Set(key K, value V) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return errors.Wrapf(err, "encode %q", m.prefix)
	}
	m.state.Put(m.key(key), raw)
	return nil
}

func (m *Mapping[K, V]) Delete(key K) {
	m.state.Delete(m.key(key))
}

// Iterate visits all entries in key order. The visited key is the encoded map
// key without prefix.
func (m *Mapping[K, V]) Iterate(fn func(key []byte, value V) (bool, error)) error {
	return m.IteratePrefix(nil, fn)
}

// IteratePrefix visits entries whose encoded key starts with sub.
func (m *Mapping[K, V]) IteratePrefix(sub []byte, fn func(key []byte, value V) (bool, error)) error {
	prefix := append(append([]byte(nil), m.prefix...), sub...)
	return m.state.Iterate(prefix, func(k, raw []byte) (bool, error) {
		var value V
		if err := rlp.DecodeBytes(raw, &value); err != nil {
			return false, errors.Wrapf(err, "decode %q", m.prefix)
		}
		return fn(append(append([]byte(nil), sub...), k...), value)
	})
}

// Clear removes every entry whose encoded key starts with sub and returns how
// many were removed.
func (m *Mapping[K, V]) Clear(sub []byte) (int, error) {
	prefix := append(append([]byte(nil), m.prefix...), sub...)
	var keys [][]byte
	if err := m.state.Iterate(prefix, func(k, _ []byte) (bool, error) {
		keys = append(keys, append(append([]byte(nil), prefix...), k...))
		return true, nil
	}); err != nil {
		return 0, err
	}
	for _, k := range keys {
		m.state.Delete(k)
	}
	return len(keys), nil
}

// Value is a typed single-slot view over the state.
type Value[V any] struct {
	state *State
	key   []byte
}

func NewValue[V any](state *State, key string) *Value[V] {
	return &Value[V]{state: state, key: []byte(key)}
}

// Get returns the stored value, or the zero value with found false.
func (v *Value[V]) Get() (value V, found bool, err error) {
	raw, err := v.state.Get(v.key)
	if err != nil || raw == nil {
		return value, false, err
	}
	if err := rlp.DecodeBytes(raw, &value); err != nil {
		return value, false, errors.Wrapf(err, "decode %q", v.key)
	}
	return value, true, nil
}

// GetOr returns the stored value or def when absent.
func (v *Value[V]) GetOr(def V) (V, error) {
	value, found, err := v.Get()
	if err != nil {
		return def, err
	}
	if !found {
		return def, nil
	}
	return value, nil
}

func (v *Value[V]) Set(value V) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return errors.Wrapf(err, "encode %q", v.key)
	}
	v.state.Put(v.key, raw)
	return nil
}

func (v *Value[V]) Delete() {
	v.state.Delete(v.key)
}
