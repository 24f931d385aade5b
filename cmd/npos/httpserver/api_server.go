// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package httpserver starts the listeners of the node: the public staking
// API, the metrics endpoint and the admin endpoint.
package httpserver

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// serve runs handler on addr until the returned func is called. onClose
// runs after the server stops accepting, before it is waited for.
func serve(name, addr, path string, handler http.Handler, onClose func()) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen %s addr [%v]", name, addr)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}

	var goes sync.WaitGroup
	goes.Go(func() { srv.Serve(listener) })

	return "http://" + listener.Addr().String() + path, func() {
		srv.Close()
		if onClose != nil {
			onClose()
		}
		goes.Wait()
	}, nil
}

// StartAPIServer serves the staking API. Requests other than websocket
// upgrades are cut off after a nonzero timeout. onClose releases the
// connections the server no longer tracks once hijacked.
func StartAPIServer(addr string, handler http.Handler, timeout time.Duration, onClose func()) (string, func(), error) {
	if timeout > 0 {
		handler = handleAPITimeout(handler, timeout)
	}
	return serve("API", addr, "/", handler, onClose)
}

func handleAPITimeout(h http.Handler, timeout time.Duration) http.Handler {
	timed := http.TimeoutHandler(h, timeout, "request timeout")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") == "websocket" {
			h.ServeHTTP(w, r)
			return
		}
		timed.ServeHTTP(w, r)
	})
}
