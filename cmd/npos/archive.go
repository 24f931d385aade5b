// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"io"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/vechain/npos/kv"
)

const (
	archiveVersion = 1
	importBulkSize = 4096
)

// archiveHeader leads a state archive: a snappy stream of rlp values, the
// header followed by Count entries in key order.
type archiveHeader struct {
	Version uint
	Genesis string
	Count   uint64
}

type archiveEntry struct {
	Key   []byte
	Value []byte
}

func countEntries(db kv.Store) (uint64, error) {
	it := db.Iterate(kv.Range{})
	defer it.Release()

	var n uint64
	for it.Next() {
		n++
	}
	return n, it.Error()
}

// exportState writes every entry of db to w.
func exportState(db kv.Store, genesisName string, w io.Writer, showProgress bool) (uint64, error) {
	count, err := countEntries(db)
	if err != nil {
		return 0, errors.Wrap(err, "count entries")
	}

	sw := snappy.NewBufferedWriter(w)
	if err := rlp.Encode(sw, &archiveHeader{Version: archiveVersion, Genesis: genesisName, Count: count}); err != nil {
		return 0, err
	}

	bar := pb.New64(int64(count)).SetMaxWidth(90)
	bar.NotPrint = !showProgress
	bar.Start()
	defer bar.Finish()

	it := db.Iterate(kv.Range{})
	defer it.Release()

	var written uint64
	for it.Next() {
		// the archive must match the counted header
		if written == count {
			return 0, errors.New("state changed during export")
		}
		if err := rlp.Encode(sw, &archiveEntry{Key: it.Key(), Value: it.Value()}); err != nil {
			return 0, err
		}
		written++
		bar.Increment()
	}
	if err := it.Error(); err != nil {
		return 0, err
	}
	if written != count {
		return 0, errors.New("state changed during export")
	}
	return written, sw.Close()
}

func isEmpty(db kv.Store) (bool, error) {
	it := db.Iterate(kv.Range{})
	defer it.Release()

	if it.Next() {
		return false, nil
	}
	return true, it.Error()
}

// importState reads an archive of size bytes from r into the empty db. check,
// if set, may refuse the archive by its header before anything is written.
func importState(db kv.Store, r io.Reader, size int64, showProgress bool, check func(*archiveHeader) error) (*archiveHeader, error) {
	empty, err := isEmpty(db)
	if err != nil {
		return nil, err
	}
	if !empty {
		return nil, errors.New("database is not empty")
	}

	bar := pb.New64(size).SetUnits(pb.U_BYTES).SetMaxWidth(90)
	bar.NotPrint = !showProgress
	bar.Start()
	defer bar.Finish()

	stream := rlp.NewStream(snappy.NewReader(bar.NewProxyReader(r)), 0)

	var header archiveHeader
	if err := stream.Decode(&header); err != nil {
		return nil, errors.Wrap(err, "decode archive header")
	}
	if header.Version != archiveVersion {
		return nil, errors.Errorf("unsupported archive version %d", header.Version)
	}
	if check != nil {
		if err := check(&header); err != nil {
			return nil, err
		}
	}

	bulk := db.Bulk()
	for i := uint64(0); i < header.Count; i++ {
		var entry archiveEntry
		if err := stream.Decode(&entry); err != nil {
			return nil, errors.Wrapf(err, "decode entry %d", i)
		}
		if err := bulk.Put(entry.Key, entry.Value); err != nil {
			return nil, err
		}
		if bulk.Len() >= importBulkSize {
			if err := bulk.Write(); err != nil {
				return nil, err
			}
			bulk = db.Bulk()
		}
	}
	if err := bulk.Write(); err != nil {
		return nil, err
	}
	switch _, err := stream.Raw(); {
	case err == nil:
		return nil, errors.New("trailing data after archive entries")
	case !errors.Is(err, io.EOF):
		return nil, err
	}
	if c, ok := db.(interface{ Compact() error }); ok {
		if err := c.Compact(); err != nil {
			return nil, err
		}
	}
	return &header, nil
}
