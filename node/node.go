// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package node drives a staking engine session by session over a committed
// store, indexing and publishing the events of every commit.
package node

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/vechain/npos/genesis"
	"github.com/vechain/npos/kv"
	"github.com/vechain/npos/logdb"
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/staking"
	"github.com/vechain/npos/staking/reverts"
	"github.com/vechain/npos/state"
)

var logger = log.New("pkg", "node")

func SetLogger(l log.Logger) {
	logger = l
}

const sessionKey = "node/session"

// The engine state and the records of the node share one store.
var (
	stateBucket = kv.Bucket("s/")
	metaBucket  = kv.Bucket("m/")
	genesisKey  = []byte("genesis")
)

// Options for Node.
type Options struct {
	// BlocksPerSession is the number of blocks authored each session, each
	// crediting its author with reward points.
	BlocksPerSession uint32
	// StateCacheMB sizes the committed value cache.
	StateCacheMB int
	Staking      staking.Options
}

// Committed is published after every commit.
type Committed struct {
	Era     npos.EraIndex
	Session npos.SessionIndex
	Digest  npos.Bytes32
	// Events are those of this commit only.
	Events []*staking.Event
}

// Node owns the engine. Reads run concurrently, writes and rotations are
// serialized.
type Node struct {
	mu       sync.RWMutex
	state    *state.State
	network  *genesis.Network
	logDB    *logdb.LogDB
	opts     Options
	session  *state.Value[npos.SessionIndex]
	sessions []*staking.Event // events of the current session already committed
	author   int

	feed  event.Feed
	scope event.SubscriptionScope
}

// New opens the node over db, building gen first when db is empty. logDB
// may be nil.
func New(db kv.Store, gen *genesis.Genesis, logDB *logdb.LogDB, opts Options) (*Node, error) {
	if opts.BlocksPerSession == 0 {
		opts.BlocksPerSession = 1
	}
	st := state.New(stateBucket.NewStore(db), opts.StateCacheMB)
	meta := metaBucket.NewStore(db)
	n := &Node{
		state:   st,
		logDB:   logDB,
		opts:    opts,
		session: state.NewValue[npos.SessionIndex](st, sessionKey),
	}

	network, err := gen.Open(st, opts.Staking)
	if err != nil {
		return nil, err
	}
	_, found, err := network.Staking.CurrentEra()
	if err != nil {
		return nil, err
	}
	if !found {
		if network, err = gen.Build(st, opts.Staking); err != nil {
			return nil, err
		}
		n.network = network
		if _, err := n.commit(0, 0, false); err != nil {
			return nil, errors.Wrap(err, "commit genesis")
		}
		if err := meta.Put(genesisKey, []byte(gen.Name)); err != nil {
			return nil, errors.Wrap(err, "record genesis")
		}
		return n, nil
	}

	n.network = network
	if built, err := meta.Get(genesisKey); err == nil && string(built) != gen.Name {
		logger.Warn("store was built from another genesis", "built", string(built), "genesis", gen.Name)
	}
	if err := network.Resume(); err != nil {
		return nil, errors.Wrap(err, "resume rotation")
	}
	session, err := n.session.GetOr(0)
	if err != nil {
		return nil, err
	}
	if logDB != nil {
		// drop what was indexed past the committed state
		if err := logDB.Truncate(session + 1); err != nil {
			return nil, err
		}
		events, err := logDB.FilterEvents(context.Background(), &logdb.EventFilter{
			Range: &logdb.Range{Unit: logdb.Session, From: session, To: session},
		})
		if err != nil {
			return nil, errors.Wrap(err, "load session events")
		}
		for _, ev := range events {
			n.sessions = append(n.sessions, ev.Payload)
		}
	}
	logger.Info("node resumed", "session", session)
	return n, nil
}

// Session returns the current session index.
func (n *Node) Session() (npos.SessionIndex, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.session.GetOr(0)
}

// Validators returns the validators of the current session and the indices
// disabled in it.
func (n *Node) Validators() ([]npos.Address, []uint32) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Clone(n.network.Rotation.Validators()), n.network.Rotation.Disabled()
}

// View runs fn with read access to the engine. fn must not mutate it.
func (n *Node) View(fn func(s *staking.Staking) error) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return fn(n.network.Staking)
}

// Balances runs fn with read access to the balances.
func (n *Node) Balances(fn func(b BalanceReader) error) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return fn(n.network.Balances)
}

// BalanceReader is the read side of the balance ledger.
type BalanceReader interface {
	TotalIssuance() (npos.Balance, error)
	Free(who npos.Address) (npos.Balance, error)
	Staked(who npos.Address) (npos.Balance, error)
}

// Update runs fn against the engine and commits its changes. If fn fails,
// all its changes are discarded.
func (n *Node) Update(fn func(s *staking.Staking) error) (*Committed, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	session, err := n.session.GetOr(0)
	if err != nil {
		return nil, err
	}
	active, _, err := n.network.Staking.ActiveEra()
	if err != nil {
		return nil, err
	}

	rev := n.state.NewCheckpoint()
	restore := n.network.Rotation.Checkpoint()
	if err := fn(n.network.Staking); err != nil {
		n.state.RevertTo(rev)
		restore()
		n.network.Staking.TakeEvents()
		return nil, err
	}
	return n.commit(active.Index, session, false)
}

// Rotate authors the blocks of the current session and ends it.
func (n *Node) Rotate() (*Committed, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	s := n.network.Staking
	session, err := n.session.GetOr(0)
	if err != nil {
		return nil, err
	}
	active, _, err := s.ActiveEra()
	if err != nil {
		return nil, err
	}

	rev := n.state.NewCheckpoint()
	restore := n.network.Rotation.Checkpoint()
	if err := n.rotate(session); err != nil {
		n.state.RevertTo(rev)
		restore()
		s.TakeEvents()
		logger.Warn("failed to rotate session", "session", session, "err", err)
		return nil, err
	}
	c, err := n.commit(active.Index, session, true)
	if err != nil {
		return nil, err
	}
	logger.Debug("session rotated", "session", session, "era", active.Index, "events", len(c.Events))
	metricSession().Set(int64(session + 1))
	return c, nil
}

func (n *Node) rotate(session npos.SessionIndex) error {
	s := n.network.Staking
	validators := n.network.Rotation.Validators()
	disabled := n.network.Rotation.Disabled()

	if len(disabled) < len(validators) {
		for range n.opts.BlocksPerSession {
			for {
				i := n.author % len(validators)
				n.author++
				if _, off := slices.BinarySearch(disabled, uint32(i)); off {
					continue
				}
				if err := s.NoteAuthor(validators[i]); err != nil {
					return errors.Wrap(err, "note author")
				}
				break
			}
		}
	}
	if _, err := s.RotateSession(session); err != nil {
		return err
	}
	return n.session.Set(session + 1)
}

// commit writes the staged changes and indexes the events under session.
// ending resets the collected session events once they are written.
func (n *Node) commit(era npos.EraIndex, session npos.SessionIndex, ending bool) (*Committed, error) {
	events := n.network.Staking.TakeEvents()
	digest, err := n.state.Stage().Commit()
	if err != nil {
		return nil, err
	}

	n.sessions = append(n.sessions, events...)
	if n.logDB != nil && len(events) > 0 {
		if err := n.logDB.NewBatch(era, session).Add(n.sessions...).Commit(); err != nil {
			return nil, errors.Wrap(err, "index events")
		}
	}
	if ending {
		n.sessions = nil
	}

	c := &Committed{Era: era, Session: session, Digest: digest, Events: events}
	n.feed.Send(c)
	metricCommits().Add(1)
	return c, nil
}

// Subscribe delivers every commit to ch.
func (n *Node) Subscribe(ch chan *Committed) event.Subscription {
	return n.scope.Track(n.feed.Subscribe(ch))
}

// Run rotates a session every interval until ctx is done.
func (n *Node) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("session loop started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping session loop......")
			return nil
		case <-ticker.C:
			// a reverted rotation is retried at the next tick
			if _, err := n.Rotate(); err != nil && !reverts.IsRevertErr(err) {
				return err
			}
		}
	}
}

// Close ends all subscriptions.
func (n *Node) Close() {
	n.scope.Close()
}
