// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"github.com/vechain/npos/logdb"
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/staking"
)

// LogMeta locates an event in the log.
type LogMeta struct {
	Era     npos.EraIndex     `json:"era"`
	Session npos.SessionIndex `json:"session"`
	Index   uint32            `json:"index"`
}

type FilteredEvent struct {
	*staking.Event
	Meta LogMeta `json:"meta"`
}

func convertEvent(ev *logdb.Event) *FilteredEvent {
	return &FilteredEvent{
		Event: ev.Payload,
		Meta: LogMeta{
			Era:     ev.Era,
			Session: ev.Session,
			Index:   ev.Index,
		},
	}
}
