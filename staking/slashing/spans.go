// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slashing

import (
	"github.com/vechain/npos/npos"
)

// Span is a run of eras in which the slashes of a stash do not accumulate.
// Length is nil for the ongoing span.
type Span struct {
	Index  uint32
	Start  npos.EraIndex
	Length *npos.EraIndex
}

// Contains reports whether era falls in the span.
func (s Span) Contains(era npos.EraIndex) bool {
	return s.Start <= era && (s.Length == nil || s.Start+*s.Length > era)
}

// Spans is the slashing span history of a stash.
type Spans struct {
	SpanIndex        uint32
	LastStart        npos.EraIndex
	LastNonzeroSlash npos.EraIndex
	// Prior holds lengths of the closed spans, most recent first.
	Prior []npos.EraIndex
}

// NewSpans opens the first span at windowStart.
func NewSpans(windowStart npos.EraIndex) *Spans {
	return &Spans{LastStart: windowStart}
}

// EndSpan closes the ongoing span at now; the next one starts at now+1. It
// reports false if a span has already started after now.
func (s *Spans) EndSpan(now npos.EraIndex) bool {
	next := now + 1
	if next <= s.LastStart {
		return false
	}
	s.Prior = append([]npos.EraIndex{next - s.LastStart}, s.Prior...)
	s.LastStart = next
	s.SpanIndex++
	return true
}

// Iter returns all spans, the ongoing one first.
func (s *Spans) Iter() []Span {
	spans := make([]Span, 0, len(s.Prior)+1)
	spans = append(spans, Span{Index: s.SpanIndex, Start: s.LastStart})
	index, start := s.SpanIndex, s.LastStart
	for i := range s.Prior {
		length := s.Prior[i]
		index--
		start -= length
		spans = append(spans, Span{Index: index, Start: start, Length: &length})
	}
	return spans
}

// Prune drops closed spans that ended at or before windowStart and returns
// the range [from, to) of dropped span indices.
func (s *Spans) Prune(windowStart npos.EraIndex) (from, to uint32, pruned bool) {
	earliest := s.SpanIndex - uint32(len(s.Prior))
	for i, span := range s.Iter()[1:] {
		if span.Start+*span.Length <= windowStart {
			s.Prior = s.Prior[:i]
			from, to, pruned = earliest, s.SpanIndex-uint32(len(s.Prior)), true
			break
		}
	}
	if len(s.Prior) == 0 {
		s.Prior = nil
	}
	s.LastStart = max(s.LastStart, windowStart)
	return
}

// EraSpan returns the span containing era.
func (s *Spans) EraSpan(era npos.EraIndex) (Span, bool) {
	for _, span := range s.Iter() {
		if span.Contains(era) {
			return span, true
		}
	}
	return Span{}, false
}

// SpanRecord is the slash accounting of one span of a stash.
type SpanRecord struct {
	Slashed npos.Balance
	PaidOut npos.Balance
}
