// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vechain/npos/api/admin/apilogs"
	"github.com/vechain/npos/api/admin/loglevel"
	"github.com/vechain/npos/health"

	healthAPI "github.com/vechain/npos/api/admin/health"
)

// New serves the admin endpoints under /admin. maxTimeBetweenSessions is
// the default staleness bound of the health check.
func New(logLevel *slog.LevelVar, apiLogs *atomic.Bool, h *health.Health, maxTimeBetweenSessions time.Duration) http.HandlerFunc {
	router := mux.NewRouter()
	sub := router.PathPrefix("/admin").Subrouter()

	loglevel.New(logLevel).Mount(sub, "/loglevel")
	apilogs.New(apiLogs).Mount(sub, "/apilogs")
	healthAPI.New(h, maxTimeBetweenSessions).Mount(sub, "/health")

	handler := handlers.CompressHandler(router)

	return handler.ServeHTTP
}
