// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package httpserver

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vechain/npos/api/admin"
	"github.com/vechain/npos/health"
)

// StartAdminServer serves log level, API log and session health controls.
// A node is reported unhealthy when no session was committed within
// maxTimeBetweenSessions.
func StartAdminServer(
	addr string,
	logLevel *slog.LevelVar,
	apiLogs *atomic.Bool,
	h *health.Health,
	maxTimeBetweenSessions time.Duration,
) (string, func(), error) {
	return serve("admin", addr, "/admin", admin.New(logLevel, apiLogs, h, maxTimeBetweenSessions), nil)
}
