// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vechain/npos/api/utils"
	"github.com/vechain/npos/health"
)

type API struct {
	healthStatus           *health.Health
	maxTimeBetweenSessions time.Duration
}

// New serves the status of h. A node is unhealthy when no session ended
// within maxTimeBetweenSessions, unless the request overrides it.
func New(h *health.Health, maxTimeBetweenSessions time.Duration) *API {
	return &API{
		healthStatus:           h,
		maxTimeBetweenSessions: maxTimeBetweenSessions,
	}
}

func (h *API) handleGetHealth(w http.ResponseWriter, r *http.Request) error {
	maxTime := h.maxTimeBetweenSessions
	if query := r.URL.Query().Get("maxTimeBetweenSessions"); query != "" {
		if parsed, err := time.ParseDuration(query); err == nil {
			maxTime = parsed
		}
	}

	acc, err := h.healthStatus.Status(maxTime)
	if err != nil {
		return err
	}

	if !acc.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	return utils.WriteJSON(w, acc)
}

func (h *API) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("health").
		HandlerFunc(utils.WrapHandlerFunc(h.handleGetHealth))
}
