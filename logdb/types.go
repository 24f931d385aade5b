// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/staking"
)

// Event is a committed staking event with the era and session it was
// recorded in.
type Event struct {
	Era     npos.EraIndex
	Session npos.SessionIndex
	Index   uint32
	Payload *staking.Event
}

type RangeType string

const (
	Era     RangeType = "era"
	Session RangeType = "session"
)

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Range is inclusive. To below From leaves the range open ended.
type Range struct {
	Unit RangeType
	From uint32
	To   uint32
}

type Options struct {
	Offset uint64
	Limit  uint64
}

// EventFilter selects events. Empty criteria match everything.
type EventFilter struct {
	Stash   *npos.Address
	Kinds   []staking.EventKind
	Range   *Range
	Options *Options
	Order   Order // default asc
}
