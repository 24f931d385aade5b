// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package npos

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"0x7567d83b7b8d80addcb281a71d54fc7b3364ffed", false},
		{"7567d83b7b8d80addcb281a71d54fc7b3364ffed", false},
		{"0X7567D83B7B8D80ADDCB281A71D54FC7B3364FFED", false},
		{"1x7567d83b7b8d80addcb281a71d54fc7b3364ffed", true},
		{"0x7567d83b", true},
		{"0x7567d83b7b8d80addcb281a71d54fc7b3364ffzz", true},
	}
	for _, tt := range tests {
		addr, err := ParseAddress(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, "0x7567d83b7b8d80addcb281a71d54fc7b3364ffed", addr.String())
	}
}

func TestBytesToAddress(t *testing.T) {
	a := BytesToAddress([]byte{1})
	assert.Equal(t, byte(1), a[AddressLength-1])
	assert.False(t, a.IsZero())
	assert.True(t, Address{}.IsZero())

	long := make([]byte, 32)
	long[31] = 7
	assert.Equal(t, byte(7), BytesToAddress(long)[AddressLength-1])
}

func TestAddressJSON(t *testing.T) {
	a := BytesToAddress([]byte("stash"))
	data, err := json.Marshal(map[string]Address{"who": a})
	require.NoError(t, err)

	var out map[string]Address
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, a, out["who"])
}

func TestKeyOrdering(t *testing.T) {
	a := BytesToAddress([]byte{1})
	assert.Less(t, string(EraKey(1).Bytes()), string(EraKey(256).Bytes()))
	assert.Less(t,
		string(EraAddressPageKey{1, a, 0}.Bytes()),
		string(EraAddressPageKey{1, a, 1}.Bytes()),
	)
	assert.Len(t, AddressIndexKey{a, 3}.Bytes(), AddressLength+4)
}

func TestBlake2b(t *testing.T) {
	one := Blake2b([]byte("a"), []byte("b"))
	two := Blake2b([]byte("ab"))
	assert.Equal(t, one, two)
	assert.False(t, one.IsZero())
}
