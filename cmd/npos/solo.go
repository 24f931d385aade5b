// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/npos/api"
	"github.com/vechain/npos/cmd/npos/httpserver"
	"github.com/vechain/npos/genesis"
	"github.com/vechain/npos/health"
	"github.com/vechain/npos/kv"
	"github.com/vechain/npos/logdb"
	"github.com/vechain/npos/lvldb"
	"github.com/vechain/npos/metrics"
	"github.com/vechain/npos/node"
)

func soloAction(ctx *cli.Context) error {
	exitSignal := handleExitSignal()

	defer func() { log.Info("exited") }()

	// must be set before any meter is created
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}
	logLevel := initLogger(ctx)

	interval := ctx.Duration(sessionIntervalFlag.Name)
	if interval <= 0 {
		return errors.New("session interval must be positive")
	}
	blocks := ctx.Uint64(blocksPerSessionFlag.Name)
	if blocks == 0 || blocks > 1<<16 {
		return errors.Errorf("blocks per session out of range: %d", blocks)
	}

	gen, err := selectGenesis(ctx)
	if err != nil {
		return err
	}

	db, logDB, instanceDir, err := openSoloStores(ctx, gen)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing log database...")
		if err := logDB.Close(); err != nil {
			log.Warn("failed to close log database", "err", err)
		}
		log.Info("closing state database...")
		if err := db.Close(); err != nil {
			log.Warn("failed to close state database", "err", err)
		}
	}()

	n, err := node.New(db, gen, logDB, node.Options{
		BlocksPerSession: uint32(blocks),
		StateCacheMB:     ctx.Int(cacheFlag.Name) / 2,
	})
	if err != nil {
		return errors.Wrap(err, "open node")
	}
	defer n.Close()

	h := health.New()
	commits := make(chan *node.Committed, 16)
	sub := n.Subscribe(commits)
	defer sub.Unsubscribe()

	apiLogs := &atomic.Bool{}
	apiLogs.Store(ctx.Bool(enableAPILogsFlag.Name))

	var metricsURL, adminURL string
	if ctx.Bool(enableMetricsFlag.Name) {
		url, closeFn, err := httpserver.StartMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			return err
		}
		defer func() { log.Info("stopping metrics server..."); closeFn() }()
		metricsURL = url
	}
	if ctx.Bool(enableAdminFlag.Name) {
		// three missed rotations make the node unhealthy
		url, closeFn, err := httpserver.StartAdminServer(ctx.String(adminAddrFlag.Name), logLevel, apiLogs, h, 3*interval)
		if err != nil {
			return err
		}
		defer func() { log.Info("stopping admin server..."); closeFn() }()
		adminURL = url
	}

	apiHandler, apiCloser := api.New(n, logDB, api.Options{
		AllowedOrigins:       ctx.String(apiCorsFlag.Name),
		PprofOn:              ctx.Bool(pprofFlag.Name),
		EnableMetrics:        ctx.Bool(enableMetricsFlag.Name),
		EnableReqLogger:      apiLogs,
		LogsLimit:            ctx.Uint64(apiLogsLimitFlag.Name),
		EraCacheSize:         ctx.Int(apiEraCacheFlag.Name),
		MessageCacheSize:     100,
		SlowQueriesThreshold: ctx.Duration(apiSlowQueriesThresholdFlag.Name),
		Log5xxErrors:         ctx.Bool(apiLog5xxErrorsFlag.Name),
	})
	apiURL, srvCloser, err := httpserver.StartAPIServer(ctx.String(apiAddrFlag.Name), apiHandler, ctx.Duration(apiTimeoutFlag.Name), apiCloser)
	if err != nil {
		apiCloser()
		return err
	}
	defer func() { log.Info("stopping API server..."); srvCloser() }()

	printStartupMessage(gen, instanceDir, apiURL, metricsURL, adminURL, interval, blocks)

	g, gctx := errgroup.WithContext(exitSignal)
	g.Go(func() error {
		return n.Run(gctx, interval)
	})
	g.Go(func() error {
		return trackHealth(gctx, h, commits, sub.Err())
	})
	return g.Wait()
}

// openSoloStores opens the stores under the instance dir of gen, or in
// memory unless persisted.
func openSoloStores(ctx *cli.Context, gen *genesis.Genesis) (kv.Store, *logdb.LogDB, string, error) {
	if !ctx.Bool(persistFlag.Name) {
		db, err := lvldb.NewMem()
		if err != nil {
			return nil, nil, "", err
		}
		logDB, err := logdb.NewMem()
		if err != nil {
			db.Close()
			return nil, nil, "", err
		}
		return db, logDB, "Memory", nil
	}

	instanceDir, err := makeInstanceDir(ctx, gen)
	if err != nil {
		return nil, nil, "", err
	}
	db, err := openStateDB(ctx, instanceDir)
	if err != nil {
		return nil, nil, "", err
	}
	logDB, err := openLogDB(instanceDir)
	if err != nil {
		db.Close()
		return nil, nil, "", err
	}
	return db, logDB, instanceDir, nil
}

// trackHealth records every commit of the node until ctx is done or the
// subscription ends.
func trackHealth(ctx context.Context, h *health.Health, commits <-chan *node.Committed, subErr <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-subErr:
			return err
		case c := <-commits:
			h.NewSession(c.Session, c.Digest)
		}
	}
}

func printStartupMessage(gen *genesis.Genesis, dataDir, apiURL, metricsURL, adminURL string, interval time.Duration, blocks uint64) {
	optional := func(url string) string {
		if url == "" {
			return "Disabled"
		}
		return url
	}
	fmt.Printf(`Starting %v
    Network     [ %v ]
    Sessions    [ every %v, %v blocks ]
    Data dir    [ %v ]
    API portal  [ %v ]
    Metrics     [ %v ]
    Admin       [ %v ]
`,
		fullVersion(),
		gen.Name,
		interval, blocks,
		dataDir,
		apiURL,
		optional(metricsURL),
		optional(adminURL),
	)
}
