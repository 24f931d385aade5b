// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slashing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vechain/npos/npos"
)

func lengths(spans []Span) []any {
	out := make([]any, 0, len(spans))
	for _, s := range spans {
		if s.Length == nil {
			out = append(out, []npos.EraIndex{npos.EraIndex(s.Index), s.Start})
		} else {
			out = append(out, []npos.EraIndex{npos.EraIndex(s.Index), s.Start, *s.Length})
		}
	}
	return out
}

func TestSpansSingle(t *testing.T) {
	spans := NewSpans(1000)
	assert.Equal(t, []any{[]npos.EraIndex{0, 1000}}, lengths(spans.Iter()))
}

func TestSpansEnd(t *testing.T) {
	spans := NewSpans(10)
	assert.True(t, spans.EndSpan(10))
	assert.Equal(t, npos.EraIndex(11), spans.LastStart)
	assert.Equal(t, []any{
		[]npos.EraIndex{1, 11},
		[]npos.EraIndex{0, 10, 1},
	}, lengths(spans.Iter()))

	// cannot end a span that has not started yet
	assert.False(t, spans.EndSpan(9))
	assert.False(t, spans.EndSpan(10))
	assert.True(t, spans.EndSpan(15))
	assert.Equal(t, []any{
		[]npos.EraIndex{2, 16},
		[]npos.EraIndex{1, 11, 5},
		[]npos.EraIndex{0, 10, 1},
	}, lengths(spans.Iter()))
}

func TestSpansPrune(t *testing.T) {
	spans := &Spans{
		SpanIndex: 10,
		LastStart: 1000,
		Prior:     []npos.EraIndex{10, 9, 8, 10},
	}
	// spans: 10@1000, 9@990+10, 8@981+9, 7@973+8, 6@963+10
	from, to, pruned := spans.Prune(900)
	assert.False(t, pruned)
	assert.Equal(t, uint32(0), from+to)
	assert.Len(t, spans.Prior, 4)

	from, to, pruned = spans.Prune(981)
	assert.True(t, pruned)
	assert.Equal(t, uint32(6), from)
	assert.Equal(t, uint32(8), to)
	assert.Equal(t, []npos.EraIndex{10, 9}, spans.Prior)

	from, to, pruned = spans.Prune(1000)
	assert.True(t, pruned)
	assert.Equal(t, uint32(8), from)
	assert.Equal(t, uint32(10), to)
	assert.Nil(t, spans.Prior)

	// window past the ongoing span moves its start
	_, _, pruned = spans.Prune(2000)
	assert.False(t, pruned)
	assert.Equal(t, npos.EraIndex(2000), spans.LastStart)
	assert.Equal(t, []any{[]npos.EraIndex{10, 2000}}, lengths(spans.Iter()))
}

func TestEraSpan(t *testing.T) {
	spans := NewSpans(5)
	spans.EndSpan(7)
	span, ok := spans.EraSpan(6)
	assert.True(t, ok)
	assert.Equal(t, uint32(0), span.Index)

	span, ok = spans.EraSpan(100)
	assert.True(t, ok)
	assert.Equal(t, uint32(1), span.Index)

	_, ok = spans.EraSpan(4)
	assert.False(t, ok)
}
