// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package lvldb is the goleveldb backed kv.Store holding the committed
// staking state.
package lvldb

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/vechain/npos/kv"
)

var _ kv.Store = (*LevelDB)(nil)

// Options sizes the caches of a persistent store. Values are floored at 16.
type Options struct {
	CacheSize              int // MiB, split between block cache and write buffers
	OpenFilesCacheCapacity int
}

var (
	writeOpt = &opt.WriteOptions{}
	readOpt  = &opt.ReadOptions{}
)

type LevelDB struct {
	db *leveldb.DB
}

// New opens the store at path, creating it when missing.
func New(path string, opts Options) (*LevelDB, error) {
	stg, err := storage.OpenFile(path, false)
	if err != nil {
		return nil, errors.Wrap(err, "open level db storage")
	}
	return open(stg, opts)
}

// NewMem creates a store in memory.
func NewMem() (*LevelDB, error) {
	return open(storage.NewMemStorage(), Options{})
}

func open(stg storage.Storage, opts Options) (*LevelDB, error) {
	cacheSize := max(opts.CacheSize, 16)
	db, err := leveldb.Open(stg, &opt.Options{
		OpenFilesCacheCapacity: max(opts.OpenFilesCacheCapacity, 16),
		BlockCacheCapacity:     cacheSize / 2 * opt.MiB,
		WriteBuffer:            cacheSize / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	})
	if err != nil {
		stg.Close()
		return nil, errors.Wrap(err, "open level db")
	}
	return &LevelDB{db}, nil
}

func (l *LevelDB) IsNotFound(err error) bool {
	return errors.Is(err, leveldb.ErrNotFound)
}

// Get fails with an error satisfying IsNotFound for missing keys.
func (l *LevelDB) Get(key []byte) ([]byte, error) { return l.db.Get(key, readOpt) }

func (l *LevelDB) Has(key []byte) (bool, error) { return l.db.Has(key, readOpt) }

func (l *LevelDB) Put(key, value []byte) error { return l.db.Put(key, value, writeOpt) }

func (l *LevelDB) Delete(key []byte) error { return l.db.Delete(key, writeOpt) }

// Close releases the store. Later operations fail.
func (l *LevelDB) Close() error { return l.db.Close() }

// Bulk collects writes applied atomically by Write.
func (l *LevelDB) Bulk() kv.Bulk {
	return &bulk{l.db, new(leveldb.Batch)}
}

func (l *LevelDB) Iterate(r kv.Range) kv.Iterator {
	return l.db.NewIterator(&util.Range{Start: r.Start, Limit: r.Limit}, readOpt)
}

// Compact compacts the whole key space, reclaiming space after a large
// import.
func (l *LevelDB) Compact() error {
	return errors.Wrap(l.db.CompactRange(util.Range{}), "compact level db")
}

type bulk struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *bulk) Put(key, value []byte) error {
	b.batch.Put(key, value)
	return nil
}

func (b *bulk) Delete(key []byte) error {
	b.batch.Delete(key)
	return nil
}

func (b *bulk) Len() int { return b.batch.Len() }

func (b *bulk) Write() error { return b.db.Write(b.batch, writeOpt) }
