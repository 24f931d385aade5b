// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package election

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/npos/npos"
)

type staticData struct {
	voters  []Voter
	targets []npos.Address
	desired uint32
}

func (s *staticData) ElectingVoters(Bounds) ([]Voter, error)          { return s.voters, nil }
func (s *staticData) ElectableTargets(Bounds) ([]npos.Address, error) { return s.targets, nil }
func (s *staticData) DesiredTargets() (uint32, error)                 { return s.desired, nil }

var (
	v1 = npos.BytesToAddress([]byte{1})
	v2 = npos.BytesToAddress([]byte{2})
	v3 = npos.BytesToAddress([]byte{3})
	n1 = npos.BytesToAddress([]byte{101})
	n2 = npos.BytesToAddress([]byte{102})
)

func TestApprovalElect(t *testing.T) {
	data := &staticData{
		voters: []Voter{
			{Who: v1, Stake: 1000, Targets: []npos.Address{v1}},
			{Who: v2, Stake: 500, Targets: []npos.Address{v2}},
			{Who: v3, Stake: 100, Targets: []npos.Address{v3}},
			{Who: n1, Stake: 301, Targets: []npos.Address{v2, v3}},
			{Who: n2, Stake: 50, Targets: []npos.Address{v3, n2}},
		},
		targets: []npos.Address{v1, v2, v3},
		desired: 2,
	}
	supports, err := (&Approval{}).Elect(data)
	require.NoError(t, err)
	require.Len(t, supports, 2)

	assert.Equal(t, Support{Validator: v1, Total: 1000, Voters: []Backing{{v1, 1000}}}, supports[0])
	// n1 only backs v2 among the winners
	assert.Equal(t, Support{Validator: v2, Total: 801, Voters: []Backing{{v2, 500}, {n1, 301}}}, supports[1])
}

func TestApprovalTies(t *testing.T) {
	data := &staticData{
		voters: []Voter{
			{Who: v2, Stake: 10, Targets: []npos.Address{v2}},
			{Who: v1, Stake: 10, Targets: []npos.Address{v1}},
			{Who: n1, Stake: 0, Targets: []npos.Address{v3}},
		},
		targets: []npos.Address{v1, v2, v3},
		desired: 5,
	}
	supports, err := (&Approval{}).Elect(data)
	require.NoError(t, err)
	require.Len(t, supports, 2)
	assert.Equal(t, v1, supports[0].Validator)
	assert.Equal(t, v2, supports[1].Validator)
}

func TestApprovalErrors(t *testing.T) {
	_, err := (&Approval{}).Elect(&staticData{desired: 1})
	assert.ErrorIs(t, err, ErrNoTargets)

	_, err = (&Approval{}).Elect(&staticData{targets: []npos.Address{v1}, desired: 1})
	assert.ErrorIs(t, err, ErrNoWinners)
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []npos.Balance{34, 33, 33}, split(100, 3))
	assert.Equal(t, []npos.Balance{1, 0}, split(1, 2))
}

func TestBounds(t *testing.T) {
	assert.False(t, Bounds{}.Exhausted(1<<30, 1<<30))
	assert.True(t, Bounds{Count: 2}.Exhausted(3, 0))
	assert.False(t, Bounds{Count: 2}.Exhausted(2, 0))
	assert.True(t, Bounds{Size: 10}.Exhausted(1, 11))
}
