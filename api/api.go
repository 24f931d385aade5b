// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"net/http/pprof"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vechain/npos/api/eras"
	"github.com/vechain/npos/api/events"
	"github.com/vechain/npos/api/middleware"
	"github.com/vechain/npos/api/slashes"
	"github.com/vechain/npos/api/stakers"
	"github.com/vechain/npos/api/subscriptions"
	"github.com/vechain/npos/logdb"
	"github.com/vechain/npos/node"

	nodeAPI "github.com/vechain/npos/api/node"
)

var logger = log.New("pkg", "api")

func SetLogger(l log.Logger) {
	logger = l
}

type Options struct {
	AllowedOrigins       string
	PprofOn              bool
	EnableMetrics        bool
	EnableReqLogger      *atomic.Bool
	LogsLimit            uint64
	EraCacheSize         int
	MessageCacheSize     uint32
	SlowQueriesThreshold time.Duration
	Log5xxErrors         bool
}

// New return api router
func New(n *node.Node, logDB *logdb.LogDB, opts Options) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	eras.New(n, opts.EraCacheSize).
		Mount(router, "/staking/eras")
	stakers.New(n).
		Mount(router, "/staking")
	slashes.New(n).
		Mount(router, "/staking")
	if logDB != nil {
		events.New(logDB, opts.LogsLimit).
			Mount(router, "/events")
	}
	nodeAPI.New(n).
		Mount(router, "/node")
	subs := subscriptions.New(n, origins, opts.MessageCacheSize)
	subs.Mount(router, "/subscriptions")

	if opts.PprofOn {
		router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		router.HandleFunc("/debug/pprof/trace", pprof.Trace)
		router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	}

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)

	reqLogger := opts.EnableReqLogger
	if reqLogger == nil {
		reqLogger = &atomic.Bool{}
	}
	handler = middleware.RequestLoggerMiddleware(logger, reqLogger, opts.SlowQueriesThreshold, opts.Log5xxErrors)(handler)

	return handler.ServeHTTP, subs.Close // subscriptions handles hijacked conns, which need to be closed
}
