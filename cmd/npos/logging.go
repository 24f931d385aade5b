// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/npos/api"
	"github.com/vechain/npos/api/eras"
	"github.com/vechain/npos/api/subscriptions"
	"github.com/vechain/npos/balances"
	"github.com/vechain/npos/genesis"
	"github.com/vechain/npos/logdb"
	"github.com/vechain/npos/node"
	"github.com/vechain/npos/staking"
	"github.com/vechain/npos/staking/election"
)

// levelHandler drops records below a level that can be changed at runtime.
type levelHandler struct {
	slog.Handler
	level *slog.LevelVar
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.Handler.Enabled(ctx, level)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{h.Handler.WithAttrs(attrs), h.level}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{h.Handler.WithGroup(name), h.level}
}

func newLogHandler(w io.Writer, level *slog.LevelVar, json, useColor bool) slog.Handler {
	var handler slog.Handler
	if json {
		handler = log.JSONHandlerWithLevel(w, log.LevelTrace)
	} else {
		handler = log.NewTerminalHandlerWithLevel(w, log.LevelTrace, useColor)
	}
	return &levelHandler{handler, level}
}

// initLogger installs the root logger and returns its level, which the admin
// server may change later.
func initLogger(ctx *cli.Context) *slog.LevelVar {
	var level slog.LevelVar
	level.Set(log.FromLegacyLevel(ctx.Int(verbosityFlag.Name)))

	output := io.Writer(os.Stdout)
	useColor := (isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())) && os.Getenv("TERM") != "dumb"
	log.SetDefault(log.NewLogger(newLogHandler(output, &level, ctx.Bool(jsonLogsFlag.Name), useColor)))

	// package loggers are bound when created
	api.SetLogger(log.New("pkg", "api"))
	eras.SetLogger(log.New("pkg", "eras"))
	subscriptions.SetLogger(log.New("pkg", "subscriptions"))
	balances.SetLogger(log.New("pkg", "balances"))
	genesis.SetLogger(log.New("pkg", "genesis"))
	logdb.SetLogger(log.New("pkg", "logdb"))
	node.SetLogger(log.New("pkg", "node"))
	staking.SetLogger(log.New("pkg", "staking"))
	election.SetLogger(log.New("pkg", "election"))
	return &level
}
