// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/vechain/npos/perthing"
)

// Fraction is a perbill written either as a percentage with up to seven
// decimals ("12.5%") or as raw parts per billion ("125000000").
type Fraction perthing.Perbill

func (f Fraction) Perbill() perthing.Perbill {
	return perthing.Perbill(f)
}

func (f Fraction) MarshalText() ([]byte, error) {
	return []byte(perthing.Perbill(f).String()), nil
}

func (f *Fraction) UnmarshalText(text []byte) error {
	p, err := ParseFraction(string(text))
	if err != nil {
		return err
	}
	*f = Fraction(p)
	return nil
}

// ParseFraction parses a percentage or a count of parts per billion.
func ParseFraction(s string) (perthing.Perbill, error) {
	s = strings.TrimSpace(s)
	pct, isPercent := strings.CutSuffix(s, "%")
	if !isPercent {
		parts, err := strconv.ParseUint(s, 10, 32)
		if err != nil || parts > perthing.PerbillAccuracy {
			return 0, errors.Errorf("invalid fraction %q", s)
		}
		return perthing.Perbill(parts), nil
	}

	whole, frac, _ := strings.Cut(strings.TrimSpace(pct), ".")
	if len(frac) > 7 {
		return 0, errors.Errorf("fraction %q has too many decimals", s)
	}
	w, err := strconv.ParseUint(whole, 10, 32)
	if err != nil || w > 100 {
		return 0, errors.Errorf("invalid percentage %q", s)
	}
	var f uint64
	if frac != "" {
		if f, err = strconv.ParseUint(frac+strings.Repeat("0", 7-len(frac)), 10, 32); err != nil {
			return 0, errors.Errorf("invalid percentage %q", s)
		}
	}
	parts := w*10_000_000 + f
	if parts > perthing.PerbillAccuracy {
		return 0, errors.Errorf("percentage %q above 100%%", s)
	}
	return perthing.Perbill(parts), nil
}
