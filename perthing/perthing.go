// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package perthing implements fixed-point fractions in [0, 1] with explicit
// rounding modes. Products are computed in 256-bit precision so the results are
// exact for any uint64 amount.
package perthing

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Rounding selects how a non-integral result is resolved.
type Rounding uint8

const (
	Down Rounding = iota
	Up
	// NearestPrefDown rounds to the nearest integer, ties go down.
	NearestPrefDown
	// NearestPrefUp rounds to the nearest integer, ties go up.
	NearestPrefUp
)

func (r Rounding) String() string {
	switch r {
	case Down:
		return "down"
	case Up:
		return "up"
	case NearestPrefDown:
		return "nearest-pref-down"
	case NearestPrefUp:
		return "nearest-pref-up"
	}
	return fmt.Sprintf("rounding(%d)", uint8(r))
}

// MulDiv returns x * num / den rounded as requested. It returns false when
// den is zero or the result does not fit in 64 bits.
func MulDiv(x, num, den uint64, r Rounding) (uint64, bool) {
	if den == 0 {
		return 0, false
	}
	var (
		prod = new(uint256.Int).Mul(uint256.NewInt(x), uint256.NewInt(num))
		d    = uint256.NewInt(den)
		rem  = new(uint256.Int)
		quo  = new(uint256.Int)
	)
	quo.DivMod(prod, d, rem)

	if !rem.IsZero() {
		switch r {
		case Up:
			quo.AddUint64(quo, 1)
		case NearestPrefDown, NearestPrefUp:
			twice := new(uint256.Int).Lsh(rem, 1)
			cmp := twice.Cmp(d)
			if cmp > 0 || (cmp == 0 && r == NearestPrefUp) {
				quo.AddUint64(quo, 1)
			}
		}
	}
	if !quo.IsUint64() {
		return 0, false
	}
	return quo.Uint64(), true
}

// fromRational converts p/q into parts of the given accuracy. Ratios at or
// above one and a zero denominator saturate to one.
func fromRational(p, q, accuracy uint64, r Rounding) uint64 {
	if q == 0 || p >= q {
		return accuracy
	}
	parts, _ := MulDiv(p, accuracy, q, r)
	return parts
}

// mul applies parts/accuracy to x. The result never exceeds x, so it cannot
// overflow.
func mul(x, parts, accuracy uint64, r Rounding) uint64 {
	if parts >= accuracy {
		return x
	}
	v, _ := MulDiv(x, parts, accuracy, r)
	return v
}
