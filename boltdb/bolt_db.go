// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package boltdb implements kv.Store on a single bbolt bucket.
package boltdb

import (
	"bytes"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/vechain/npos/kv"
)

var _ kv.Store = (*BoltDB)(nil)

var (
	defaultBucket = []byte("default")
	errNotFound   = errors.New("db entry not found")
)

// BoltDB wraps a bbolt database.
type BoltDB struct {
	db     *bolt.DB
	bucket []byte
}

// New opens or creates the bolt database file.
func New(path string) (*BoltDB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open bolt db")
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(defaultBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create bucket")
	}
	return &BoltDB{db: db, bucket: defaultBucket}, nil
}

// Path returns the database file path.
func (b *BoltDB) Path() string {
	return b.db.Path()
}

func (b *BoltDB) IsNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}

func (b *BoltDB) Get(key []byte) (val []byte, err error) {
	err = b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(b.bucket).Get(key)
		if v == nil {
			return errNotFound
		}
		// values are only valid for the life of the transaction
		val = bytes.Clone(v)
		return nil
	})
	return
}

func (b *BoltDB) Has(key []byte) (has bool, err error) {
	err = b.db.View(func(tx *bolt.Tx) error {
		has = tx.Bucket(b.bucket).Get(key) != nil
		return nil
	})
	return
}

func (b *BoltDB) Put(key, val []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Put(key, val)
	})
}

func (b *BoltDB) Delete(key []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Delete(key)
	})
}

func (b *BoltDB) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Bulk buffers writes and applies them in one update transaction.
func (b *BoltDB) Bulk() kv.Bulk {
	return &bulk{db: b}
}

// Iterate opens a read transaction that is held until Release.
func (b *BoltDB) Iterate(r kv.Range) kv.Iterator {
	tx, err := b.db.Begin(false)
	if err != nil {
		return &iterator{err: errors.Wrap(err, "begin read tx")}
	}
	return &iterator{
		tx:     tx,
		cursor: tx.Bucket(b.bucket).Cursor(),
		rng:    r,
	}
}

type op struct {
	key, val []byte
	del      bool
}

type bulk struct {
	db  *BoltDB
	ops []op
}

func (bk *bulk) Put(key, val []byte) error {
	bk.ops = append(bk.ops, op{key: bytes.Clone(key), val: bytes.Clone(val)})
	return nil
}

func (bk *bulk) Delete(key []byte) error {
	bk.ops = append(bk.ops, op{key: bytes.Clone(key), del: true})
	return nil
}

func (bk *bulk) Len() int { return len(bk.ops) }

func (bk *bulk) Write() error {
	err := bk.db.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bk.db.bucket)
		for _, o := range bk.ops {
			var err error
			if o.del {
				err = bucket.Delete(o.key)
			} else {
				err = bucket.Put(o.key, o.val)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "bolt db bulk write")
	}
	bk.ops = bk.ops[:0]
	return nil
}

type iterator struct {
	tx      *bolt.Tx
	cursor  *bolt.Cursor
	rng     kv.Range
	started bool
	key     []byte
	val     []byte
	err     error
}

func (it *iterator) Next() bool {
	if it.cursor == nil {
		return false
	}
	if !it.started {
		it.started = true
		if len(it.rng.Start) == 0 {
			it.key, it.val = it.cursor.First()
		} else {
			it.key, it.val = it.cursor.Seek(it.rng.Start)
		}
	} else {
		it.key, it.val = it.cursor.Next()
	}
	if it.key == nil || (len(it.rng.Limit) > 0 && bytes.Compare(it.key, it.rng.Limit) >= 0) {
		it.key, it.val = nil, nil
		it.cursor = nil
		return false
	}
	return true
}

func (it *iterator) Key() []byte   { return it.key }
func (it *iterator) Value() []byte { return it.val }
func (it *iterator) Error() error  { return it.err }

func (it *iterator) Release() {
	it.cursor = nil
	if it.tx != nil {
		if err := it.tx.Rollback(); err != nil && it.err == nil {
			it.err = err
		}
		it.tx = nil
	}
}
