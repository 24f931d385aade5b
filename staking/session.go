// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"maps"
	"slices"

	"github.com/vechain/npos/npos"
)

// Rotation is an in-memory session collaborator. A validator set planned by
// the engine is queued and becomes current at the next session start.
// Disabled validators are re-enabled when the set changes.
type Rotation struct {
	current  []npos.Address
	queued   []npos.Address
	disabled map[uint32]bool
}

// NewRotation creates a rotation whose first set is validators.
func NewRotation(validators []npos.Address) *Rotation {
	return &Rotation{current: slices.Clone(validators), disabled: make(map[uint32]bool)}
}

func (r *Rotation) Validators() []npos.Address {
	return r.current
}

// Disabled lists the disabled indices in ascending order.
func (r *Rotation) Disabled() []uint32 {
	out := make([]uint32, 0, len(r.disabled))
	for i := range r.disabled {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}

func (r *Rotation) DisableValidator(index uint32) bool {
	if int(index) >= len(r.current) || r.disabled[index] {
		return false
	}
	r.disabled[index] = true
	return true
}

// Queue sets the validators of the next set change.
func (r *Rotation) Queue(validators []npos.Address) {
	r.queued = slices.Clone(validators)
}

// Advance makes the queued set current.
func (r *Rotation) Advance() {
	if r.queued == nil {
		return
	}
	r.current, r.queued = r.queued, nil
	clear(r.disabled)
}

// Checkpoint captures the current, queued and disabled sets.
func (r *Rotation) Checkpoint() func() {
	current, queued, disabled := slices.Clone(r.current), slices.Clone(r.queued), maps.Clone(r.disabled)
	return func() {
		r.current, r.queued, r.disabled = current, queued, disabled
	}
}
