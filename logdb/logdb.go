// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package logdb indexes committed staking events in sqlite.
package logdb

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
	"github.com/vechain/npos/staking"
)

var logger = log.New("pkg", "logdb")

func SetLogger(l log.Logger) {
	logger = l
}

const eventColumns = "seq, era, kind, stash, other, amount, remainder, eventEra, eventSession, page, nextPage, fraction, detail"

type LogDB struct {
	path          string
	db            *sql.DB
	driverVersion string
	stmtCache     *stmtCache
}

// New create or open log db at given path.
func New(path string) (logDB *LogDB, err error) {
	dsn := path
	if path != ":memory:" {
		dsn += "?_journal=wal&cache=shared"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	defer func() {
		if logDB == nil {
			db.Close()
		}
	}()

	// in-memory databases are per connection
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, errors.Wrap(err, "create schema")
	}

	driverVer, _, _ := sqlite3.Version()
	logger.Debug("log db opened", "path", path, "sqlite", driverVer)
	return &LogDB{
		path:          path,
		db:            db,
		driverVersion: driverVer,
		stmtCache:     newStmtCache(db),
	}, nil
}

// NewMem create a log db in ram.
func NewMem() (*LogDB, error) {
	return New(":memory:")
}

// Close close the log db.
func (db *LogDB) Close() error {
	db.stmtCache.Clear()
	return db.db.Close()
}

func (db *LogDB) Path() string {
	return db.path
}

// NewBatch starts collecting the events of a session.
func (db *LogDB) NewBatch(era npos.EraIndex, session npos.SessionIndex) *Batch {
	return &Batch{db: db, era: era, session: session}
}

// NewestSession returns the last session with committed events.
func (db *LogDB) NewestSession() (npos.SessionIndex, bool, error) {
	var seq sql.NullInt64
	if err := db.stmtCache.MustPrepare("SELECT MAX(seq) FROM event").QueryRow().Scan(&seq); err != nil {
		return 0, false, err
	}
	if !seq.Valid {
		return 0, false, nil
	}
	return sequence(seq.Int64).Session(), true, nil
}

// Truncate deletes the events of session and every later one.
func (db *LogDB) Truncate(session npos.SessionIndex) error {
	_, err := db.db.Exec("DELETE FROM event WHERE seq >= ?", newSequence(session, 0))
	return err
}

func (db *LogDB) FilterEvents(ctx context.Context, filter *EventFilter) ([]*Event, error) {
	const query = "SELECT " + eventColumns + " FROM event"
	if filter == nil {
		return db.queryEvents(ctx, query+" ORDER BY seq ASC")
	}
	metricsHandleEventsFilter(filter)

	var (
		args  []any
		conds = []string{"1"}
	)
	if r := filter.Range; r != nil {
		switch r.Unit {
		case Session:
			conds = append(conds, "seq >= ?")
			args = append(args, newSequence(r.From, 0))
			if r.To >= r.From {
				conds = append(conds, "seq <= ?")
				args = append(args, newSequence(r.To, math.MaxInt32))
			}
		default:
			conds = append(conds, "era >= ?")
			args = append(args, r.From)
			if r.To >= r.From {
				conds = append(conds, "era <= ?")
				args = append(args, r.To)
			}
		}
	}
	if filter.Stash != nil {
		conds = append(conds, "stash = ?")
		args = append(args, filter.Stash.Bytes())
	}
	if len(filter.Kinds) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?,", len(filter.Kinds)), ",")
		conds = append(conds, fmt.Sprintf("kind IN (%s)", marks))
		for _, k := range filter.Kinds {
			args = append(args, string(k))
		}
	}

	stmt := query + " WHERE " + strings.Join(conds, " AND ")
	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC"
	} else {
		stmt += " ORDER BY seq ASC"
	}
	if filter.Options != nil {
		stmt += " LIMIT ?, ?"
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.queryEvents(ctx, stmt, args...)
}

func (db *LogDB) queryEvents(ctx context.Context, query string, args ...any) ([]*Event, error) {
	stmt, err := db.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			seq                 int64
			era                 uint32
			kind                string
			stash, other        []byte
			amount, remainder   []byte
			eventEra, eventSess uint32
			page                uint32
			nextPage            sql.NullInt64
			fraction            uint32
			detail              sql.NullString
		)
		if err := rows.Scan(
			&seq,
			&era,
			&kind,
			&stash,
			&other,
			&amount,
			&remainder,
			&eventEra,
			&eventSess,
			&page,
			&nextPage,
			&fraction,
			&detail,
		); err != nil {
			return nil, err
		}
		payload := &staking.Event{
			Kind:      staking.EventKind(kind),
			Stash:     npos.BytesToAddress(stash),
			Other:     npos.BytesToAddress(other),
			Amount:    balanceValue(amount),
			Remainder: balanceValue(remainder),
			Era:       eventEra,
			Session:   eventSess,
			Page:      page,
			Fraction:  perthing.PerbillFromParts(fraction),
			Detail:    detail.String,
		}
		if nextPage.Valid {
			next := npos.PageIndex(nextPage.Int64)
			payload.Next = &next
		}
		events = append(events, &Event{
			Era:     era,
			Session: sequence(seq).Session(),
			Index:   sequence(seq).Index(),
			Payload: payload,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func balanceBytes(b npos.Balance) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], b)
	return buf[:]
}

func balanceValue(b []byte) npos.Balance {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// Batch collects the events of one session and writes them atomically.
type Batch struct {
	db      *LogDB
	era     npos.EraIndex
	session npos.SessionIndex
	events  []*staking.Event
}

func (b *Batch) Add(events ...*staking.Event) *Batch {
	b.events = append(b.events, events...)
	return b
}

func (b *Batch) Len() int {
	return len(b.events)
}

func (b *Batch) execInTx(proc func(*sql.Tx) error) (err error) {
	tx, err := b.db.db.Begin()
	if err != nil {
		return err
	}
	if err := proc(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Commit writes the batch, replacing events already stored for the session.
func (b *Batch) Commit() error {
	// prepared outside the transaction, which may hold the only connection
	prepared, err := b.db.stmtCache.Prepare("INSERT INTO event(" + eventColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	if err := b.execInTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM event WHERE seq >= ? AND seq < ?",
			newSequence(b.session, 0), newSequence(b.session+1, 0)); err != nil {
			return err
		}
		insert := tx.Stmt(prepared)
		for i, ev := range b.events {
			var next any
			if ev.Next != nil {
				next = *ev.Next
			}
			if _, err := insert.Exec(
				newSequence(b.session, uint32(i)),
				b.era,
				string(ev.Kind),
				ev.Stash.Bytes(),
				ev.Other.Bytes(),
				balanceBytes(ev.Amount),
				balanceBytes(ev.Remainder),
				ev.Era,
				ev.Session,
				ev.Page,
				next,
				ev.Fraction.Deconstruct(),
				ev.Detail,
			); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		logger.Info("log batch commit failed", "session", b.session, "error", err)
		return err
	}
	metricEventsWritten().Add(int64(len(b.events)))
	logger.Debug("log batch committed", "era", b.era, "session", b.session, "events", len(b.events))
	return nil
}
