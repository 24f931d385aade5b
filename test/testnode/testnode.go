// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package testnode builds in-memory nodes for tests.
package testnode

import (
	"fmt"

	"github.com/vechain/npos/genesis"
	"github.com/vechain/npos/kv"
	"github.com/vechain/npos/logdb"
	"github.com/vechain/npos/lvldb"
	"github.com/vechain/npos/node"
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/staking"
)

// Clock advances one minute every session rotation of the node it belongs to.
type Clock struct {
	Now uint64
}

func (c *Clock) NowMillis() uint64 { return c.Now }

// Node is a node over in-memory stores with a manual clock.
type Node struct {
	*node.Node
	DB    kv.Store
	LogDB *logdb.LogDB
	Clock *Clock
}

// Builder implements the builder pattern for creating a test node.
type Builder struct {
	gen    *genesis.Genesis
	blocks uint32
}

// NewBuilder starts from the devnet genesis with three sessions per era
// and a fixed payout.
func NewBuilder() *Builder {
	gen := genesis.NewDevnet()
	gen.Staking.SessionsPerEra = 3
	gen.Payout = genesis.Payout{Fixed: &staking.FixedPayout{Validator: 3_000_000, Remainder: 1_000}}
	return &Builder{gen: gen, blocks: 2}
}

// WithGenesis replaces the genesis.
func (b *Builder) WithGenesis(gen *genesis.Genesis) *Builder {
	if gen == nil {
		panic("genesis cannot be nil")
	}
	b.gen = gen
	return b
}

// WithBlocksPerSession sets the number of blocks authored each session.
func (b *Builder) WithBlocksPerSession(blocks uint32) *Builder {
	b.blocks = blocks
	return b
}

// Genesis exposes the genesis to adjust before Build.
func (b *Builder) Genesis() *genesis.Genesis {
	return b.gen
}

// Build creates the node. The caller closes it.
func (b *Builder) Build() (*Node, error) {
	db, err := lvldb.NewMem()
	if err != nil {
		return nil, err
	}
	logDB, err := logdb.NewMem()
	if err != nil {
		db.Close()
		return nil, err
	}
	clock := &Clock{Now: 1_000}
	n, err := node.New(db, b.gen, logDB, node.Options{
		BlocksPerSession: b.blocks,
		Staking:          staking.Options{Clock: clock},
	})
	if err != nil {
		logDB.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create node: %w", err)
	}
	return &Node{Node: n, DB: db, LogDB: logDB, Clock: clock}, nil
}

// NewDefault builds a node from the default builder.
func NewDefault() (*Node, error) {
	return NewBuilder().Build()
}

// Rotate ends the current session and moves the clock a minute on.
func (n *Node) Rotate() (*node.Committed, error) {
	c, err := n.Node.Rotate()
	if err != nil {
		return nil, err
	}
	n.Clock.Now += 60_000
	return c, nil
}

// AdvanceEra rotates sessions until a new era is active.
func (n *Node) AdvanceEra() (npos.EraIndex, error) {
	era := func() (idx npos.EraIndex, err error) {
		err = n.View(func(s *staking.Staking) error {
			active, _, err := s.ActiveEra()
			idx = active.Index
			return err
		})
		return
	}
	before, err := era()
	if err != nil {
		return 0, err
	}
	for range 100 {
		if _, err := n.Rotate(); err != nil {
			return 0, err
		}
		after, err := era()
		if err != nil {
			return 0, err
		}
		if after != before {
			return after, nil
		}
	}
	return 0, fmt.Errorf("era %d did not advance", before)
}

// Close closes the node and its stores.
func (n *Node) Close() {
	n.Node.Close()
	n.LogDB.Close()
	n.DB.Close()
}
