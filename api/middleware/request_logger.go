// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package middleware

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working behind the logger.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	return h.Hijack()
}

// RequestLoggerMiddleware logs a request when enabled is set, when it took
// longer than a nonzero slowQueriesThreshold, or with log5xxErrors when the
// response status is 5xx.
func RequestLoggerMiddleware(logger log.Logger, enabled *atomic.Bool, slowQueriesThreshold time.Duration, log5xxErrors bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled.Load() && slowQueriesThreshold == 0 && !log5xxErrors {
				next.ServeHTTP(w, r)
				return
			}
			// staking queries carry their criteria in the url, a body is
			// only kept for the admin endpoints
			var body []byte
			if r.Body != nil && r.Method != http.MethodGet {
				var err error
				if body, err = io.ReadAll(r.Body); err != nil {
					logger.Warn("read request body", "err", err)
					http.Error(w, "unreadable request body", http.StatusBadRequest)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			slow := slowQueriesThreshold > 0 && elapsed > slowQueriesThreshold
			failed := log5xxErrors && rec.status >= http.StatusInternalServerError
			if !enabled.Load() && !slow && !failed {
				return
			}
			ctx := []any{
				"method", r.Method,
				"uri", r.URL.String(),
				"status", rec.status,
				"elapsed", elapsed,
			}
			if len(body) > 0 {
				ctx = append(ctx, "body", string(body))
			}
			switch {
			case failed:
				logger.Warn("api request failed", ctx...)
			case slow:
				logger.Info("slow api request", ctx...)
			default:
				logger.Info("api request", ctx...)
			}
		})
	}
}
