// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"

	cli "gopkg.in/urfave/cli.v1"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	soloFlags := []cli.Flag{
		dataDirFlag,
		dbEngineFlag,
		cacheFlag,
		genesisFlag,
		persistFlag,
		sessionIntervalFlag,
		blocksPerSessionFlag,
		apiAddrFlag,
		apiCorsFlag,
		apiTimeoutFlag,
		apiLogsLimitFlag,
		apiEraCacheFlag,
		enableAPILogsFlag,
		apiSlowQueriesThresholdFlag,
		apiLog5xxErrorsFlag,
		pprofFlag,
		verbosityFlag,
		jsonLogsFlag,
		enableMetricsFlag,
		metricsAddrFlag,
		enableAdminFlag,
		adminAddrFlag,
	}
	archiveFlags := []cli.Flag{
		dataDirFlag,
		dbEngineFlag,
		genesisFlag,
		fileFlag,
		verbosityFlag,
		jsonLogsFlag,
	}

	app := cli.App{
		Version:   fullVersion(),
		Name:      "NPoS",
		Usage:     "Nominated proof-of-stake staking node",
		Copyright: "2025 VeChain Foundation <https://vechain.org/>",
		Flags:     soloFlags,
		Action:    soloAction,
		Commands: []cli.Command{
			{
				Name:   "solo",
				Usage:  "run a standalone node rotating sessions on a timer",
				Flags:  soloFlags,
				Action: soloAction,
			},
			{
				Name:   "export",
				Usage:  "export the persisted staking state into an archive",
				Flags:  archiveFlags,
				Action: exportAction,
			},
			{
				Name:   "import",
				Usage:  "import an archive into an empty data directory",
				Flags:  append(archiveFlags, forceFlag),
				Action: importAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
