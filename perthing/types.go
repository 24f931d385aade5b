// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package perthing

import (
	"fmt"
	"strconv"
)

const (
	PercentAccuracy     = 100
	PerbillAccuracy     = 1_000_000_000
	PerquintillAccuracy = 1_000_000_000_000_000_000
)

// Percent is a fraction in hundredths.
type Percent uint8

// PercentFromParts clamps parts to 100.
func PercentFromParts(parts uint8) Percent {
	return Percent(min(parts, PercentAccuracy))
}

// PercentFromRational returns p/q rounded to the nearest percent, ties down.
func PercentFromRational(p, q uint64) Percent {
	return Percent(fromRational(p, q, PercentAccuracy, NearestPrefDown))
}

func (p Percent) Deconstruct() uint8 { return uint8(p) }
func (p Percent) IsZero() bool       { return p == 0 }
func (p Percent) IsOne() bool        { return p >= PercentAccuracy }

// Mul returns p * x rounded to the nearest integer, ties down.
func (p Percent) Mul(x uint64) uint64 {
	return mul(x, uint64(p), PercentAccuracy, NearestPrefDown)
}

// MulFloor returns p * x rounded down.
func (p Percent) MulFloor(x uint64) uint64 {
	return mul(x, uint64(p), PercentAccuracy, Down)
}

// Complement returns 100% - p.
func (p Percent) Complement() Percent {
	if p >= PercentAccuracy {
		return 0
	}
	return PercentAccuracy - p
}

func (p Percent) String() string { return strconv.Itoa(int(p)) + "%" }

// Perbill is a fraction in parts per billion.
type Perbill uint32

// PerbillOne is the fraction one.
const PerbillOne Perbill = PerbillAccuracy

// PerbillFromParts clamps parts to one billion.
func PerbillFromParts(parts uint32) Perbill {
	return Perbill(min(parts, PerbillAccuracy))
}

// PerbillFromPercent converts a whole percentage.
func PerbillFromPercent(p uint32) Perbill {
	return PerbillFromParts(min(p, 100) * (PerbillAccuracy / 100))
}

// PerbillFromRational returns p/q rounded to the nearest part, ties down.
func PerbillFromRational(p, q uint64) Perbill {
	return Perbill(fromRational(p, q, PerbillAccuracy, NearestPrefDown))
}

// PerbillFromRationalWithRounding returns p/q with the given rounding.
func PerbillFromRationalWithRounding(p, q uint64, r Rounding) Perbill {
	return Perbill(fromRational(p, q, PerbillAccuracy, r))
}

func (p Perbill) Deconstruct() uint32 { return uint32(p) }
func (p Perbill) IsZero() bool        { return p == 0 }
func (p Perbill) IsOne() bool         { return p >= PerbillAccuracy }

// Mul returns p * x rounded to the nearest integer, ties down.
func (p Perbill) Mul(x uint64) uint64 {
	return mul(x, uint64(p), PerbillAccuracy, NearestPrefDown)
}

// MulFloor returns p * x rounded down.
func (p Perbill) MulFloor(x uint64) uint64 {
	return mul(x, uint64(p), PerbillAccuracy, Down)
}

// MulCeil returns p * x rounded up.
func (p Perbill) MulCeil(x uint64) uint64 {
	return mul(x, uint64(p), PerbillAccuracy, Up)
}

// SaturatingSub returns p - q, or zero if q > p.
func (p Perbill) SaturatingSub(q Perbill) Perbill {
	if q >= p {
		return 0
	}
	return p - q
}

// SaturatingAdd returns p + q, capped at one.
func (p Perbill) SaturatingAdd(q Perbill) Perbill {
	return PerbillFromParts(uint32(min(uint64(p)+uint64(q), PerbillAccuracy)))
}

// Complement returns one - p.
func (p Perbill) Complement() Perbill {
	return PerbillOne.SaturatingSub(p)
}

func (p Perbill) String() string {
	return fmt.Sprintf("%d.%07d%%", p/10_000_000, p%10_000_000)
}

// Perquintill is a fraction in parts per 10^18.
type Perquintill uint64

// PerquintillFromRationalWithRounding returns p/q with the given rounding.
func PerquintillFromRationalWithRounding(p, q uint64, r Rounding) Perquintill {
	return Perquintill(fromRational(p, q, PerquintillAccuracy, r))
}

func (p Perquintill) IsOne() bool { return p >= PerquintillAccuracy }

// MulFloor returns p * x rounded down.
func (p Perquintill) MulFloor(x uint64) uint64 {
	return mul(x, uint64(p), PerquintillAccuracy, Down)
}

// MulCeil returns p * x rounded up.
func (p Perquintill) MulCeil(x uint64) uint64 {
	return mul(x, uint64(p), PerquintillAccuracy, Up)
}
