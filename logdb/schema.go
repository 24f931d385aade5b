// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

// amounts are stored as 8 byte big-endian blobs, sqlite integers being signed
const eventTableSchema = `CREATE TABLE IF NOT EXISTS event (
	seq INTEGER PRIMARY KEY NOT NULL,
	era INTEGER NOT NULL,
	kind TEXT NOT NULL,
	stash BLOB(20),
	other BLOB(20),
	amount BLOB(8),
	remainder BLOB(8),
	eventEra INTEGER NOT NULL,
	eventSession INTEGER NOT NULL,
	page INTEGER NOT NULL,
	nextPage INTEGER,
	fraction INTEGER NOT NULL,
	detail TEXT
);

CREATE INDEX IF NOT EXISTS event_i0 ON event(era);
CREATE INDEX IF NOT EXISTS event_i1 ON event(stash);
CREATE INDEX IF NOT EXISTS event_i2 ON event(kind);
`
