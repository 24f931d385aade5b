// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"sync"
	"time"

	"github.com/vechain/npos/npos"
)

type SessionIngestion struct {
	Session   *npos.SessionIndex `json:"session"`
	Digest    *npos.Bytes32      `json:"digest"`
	Timestamp *time.Time         `json:"timestamp"`
}

type Status struct {
	Healthy          bool              `json:"healthy"`
	SessionIngestion *SessionIngestion `json:"sessionIngestion"`
}

// Health tracks when the node last ended a session.
type Health struct {
	lock       sync.RWMutex
	newSession time.Time
	session    *npos.SessionIndex
	digest     *npos.Bytes32
}

func New() *Health {
	return &Health{}
}

// NewSession records the end of session with the state digest it committed.
func (h *Health) NewSession(session npos.SessionIndex, digest npos.Bytes32) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.newSession = time.Now()
	h.session = &session
	h.digest = &digest
}

// Status is healthy if a session ended within maxTimeBetweenSessions.
func (h *Health) Status(maxTimeBetweenSessions time.Duration) (*Status, error) {
	h.lock.RLock()
	defer h.lock.RUnlock()

	ingestion := &SessionIngestion{
		Session: h.session,
		Digest:  h.digest,
	}
	if h.session != nil {
		ts := h.newSession
		ingestion.Timestamp = &ts
	}

	return &Status{
		Healthy:          h.session != nil && time.Since(h.newSession) <= maxTimeBetweenSessions,
		SessionIngestion: ingestion,
	}, nil
}
