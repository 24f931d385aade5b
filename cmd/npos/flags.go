// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"time"

	cli "gopkg.in/urfave/cli.v1"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for staking state and event index",
	}
	dbEngineFlag = cli.StringFlag{
		Name:  "db-engine",
		Value: "leveldb",
		Usage: "state storage engine (leveldb|bolt)",
	}
	cacheFlag = cli.IntFlag{
		Name:  "cache",
		Value: 64,
		Usage: "megabytes of ram allocated to the committed value cache",
	}
	genesisFlag = cli.StringFlag{
		Name:  "genesis",
		Usage: "path to genesis file, if not set, the default devnet genesis will be used",
	}
	persistFlag = cli.BoolFlag{
		Name:  "persist",
		Usage: "staking data storage option, if set data will be saved to disk",
	}
	sessionIntervalFlag = cli.DurationFlag{
		Name:  "session-interval",
		Value: 10 * time.Second,
		Usage: "time between session rotations",
	}
	blocksPerSessionFlag = cli.Uint64Flag{
		Name:  "blocks-per-session",
		Value: 10,
		Usage: "blocks authored each session, each one crediting reward points to its author",
	}

	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8669",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	apiTimeoutFlag = cli.DurationFlag{
		Name:  "api-timeout",
		Value: 10 * time.Second,
		Usage: "API request timeout value",
	}
	apiLogsLimitFlag = cli.Uint64Flag{
		Name:  "api-logs-limit",
		Value: 1000,
		Usage: "limit the number of events returned by /events API",
	}
	apiEraCacheFlag = cli.IntFlag{
		Name:  "api-era-cache",
		Value: 256,
		Usage: "number of ended era summaries cached by the API",
	}
	enableAPILogsFlag = cli.BoolFlag{
		Name:  "enable-api-logs",
		Usage: "enables API requests logging",
	}
	apiSlowQueriesThresholdFlag = cli.DurationFlag{
		Name:  "api-slow-queries-threshold",
		Usage: "log API requests slower than the threshold (disabled if 0)",
	}
	apiLog5xxErrorsFlag = cli.BoolFlag{
		Name:  "api-log-5xx-errors",
		Usage: "log API requests answered with a 5xx status",
	}
	pprofFlag = cli.BoolFlag{
		Name:  "pprof",
		Usage: "turn on go-pprof",
	}

	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-5)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}

	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics collection",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2112",
		Usage: "metrics service listening address",
	}
	enableAdminFlag = cli.BoolFlag{
		Name:  "enable-admin",
		Usage: "enables admin server",
	}
	adminAddrFlag = cli.StringFlag{
		Name:  "admin-addr",
		Value: "localhost:2113",
		Usage: "admin service listening address",
	}

	// export & import only flags
	fileFlag = cli.StringFlag{
		Name:  "file",
		Usage: "path of the state archive",
	}
	forceFlag = cli.BoolFlag{
		Name:  "force",
		Usage: "import even if the archive was exported from another genesis",
	}
)
