// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/npos/node"
)

func exportAction(ctx *cli.Context) error {
	initLogger(ctx)

	path := ctx.String(fileFlag.Name)
	if path == "" {
		return errors.New("archive file is required")
	}
	gen, err := selectGenesis(ctx)
	if err != nil {
		return err
	}
	instanceDir, err := makeInstanceDir(ctx, gen)
	if err != nil {
		return err
	}
	db, err := openStateDB(ctx, instanceDir)
	if err != nil {
		return err
	}
	defer db.Close()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return errors.Wrap(err, "create archive")
	}
	defer f.Close()

	fmt.Println(">> Exporting state <<")
	count, err := exportState(db, gen.Name, f, true)
	if err != nil {
		return errors.Wrap(err, "export state")
	}
	if err := f.Sync(); err != nil {
		return err
	}
	log.Info("state exported", "entries", count, "file", path)
	return nil
}

func importAction(ctx *cli.Context) error {
	initLogger(ctx)

	path := ctx.String(fileFlag.Name)
	if path == "" {
		return errors.New("archive file is required")
	}
	gen, err := selectGenesis(ctx)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open archive")
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	instanceDir, err := makeInstanceDir(ctx, gen)
	if err != nil {
		return err
	}
	db, err := openStateDB(ctx, instanceDir)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println(">> Importing state <<")
	header, err := importState(db, f, info.Size(), true, func(h *archiveHeader) error {
		if h.Genesis == gen.Name {
			return nil
		}
		if !ctx.Bool(forceFlag.Name) {
			return errors.Errorf("archive of genesis %q, expected %q (pass --%s to import anyway)", h.Genesis, gen.Name, forceFlag.Name)
		}
		log.Warn("archive genesis mismatch", "archive", h.Genesis, "genesis", gen.Name)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "import state")
	}

	// the imported state must resume
	n, err := node.New(db, gen, nil, node.Options{})
	if err != nil {
		return errors.Wrap(err, "resume imported state")
	}
	defer n.Close()
	session, err := n.Session()
	if err != nil {
		return err
	}
	log.Info("state imported", "entries", header.Count, "session", session)
	return nil
}
