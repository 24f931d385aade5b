// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/npos/boltdb"
	"github.com/vechain/npos/genesis"
	"github.com/vechain/npos/kv"
	"github.com/vechain/npos/logdb"
	"github.com/vechain/npos/lvldb"
)

const (
	stateDBName = "state.db"
	logDBName   = "logs.db"
)

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		log.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

func selectGenesis(ctx *cli.Context) (*genesis.Genesis, error) {
	path := ctx.String(genesisFlag.Name)
	if path == "" {
		return genesis.NewDevnet(), nil
	}
	gen, err := genesis.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load genesis [%v]", path)
	}
	return gen, nil
}

// makeInstanceDir returns the directory holding the stores of gen, creating
// it when absent.
func makeInstanceDir(ctx *cli.Context, gen *genesis.Genesis) (string, error) {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		return "", errors.New("data dir is required")
	}
	instanceDir := filepath.Join(dataDir, fmt.Sprintf("instance-%s", gen.Name))
	if err := os.MkdirAll(instanceDir, 0o700); err != nil {
		return "", errors.Wrapf(err, "create instance dir [%v]", instanceDir)
	}
	return instanceDir, nil
}

func openStateDB(ctx *cli.Context, instanceDir string) (kv.Store, error) {
	path := filepath.Join(instanceDir, stateDBName)
	switch engine := ctx.String(dbEngineFlag.Name); engine {
	case "leveldb":
		db, err := lvldb.New(path, lvldb.Options{
			CacheSize:              ctx.Int(cacheFlag.Name) / 2,
			OpenFilesCacheCapacity: 64,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "open state database [%v]", path)
		}
		return db, nil
	case "bolt":
		db, err := boltdb.New(path)
		if err != nil {
			return nil, errors.Wrapf(err, "open state database [%v]", path)
		}
		return db, nil
	default:
		return nil, errors.Errorf("unknown db engine %q", engine)
	}
}

func openLogDB(instanceDir string) (*logdb.LogDB, error) {
	path := filepath.Join(instanceDir, logDBName)
	db, err := logdb.New(path)
	return db, errors.Wrapf(err, "open log database [%v]", path)
}

func defaultDataDir() string {
	// Try to place the data folder in the user's home dir
	if home := homeDir(); home != "" {
		switch runtime.GOOS {
		case "darwin":
			return filepath.Join(home, "Library", "Application Support", "org.vechain.npos")
		case "windows":
			return filepath.Join(home, "AppData", "Roaming", "org.vechain.npos")
		default:
			return filepath.Join(home, ".org.vechain.npos")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}
