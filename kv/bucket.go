// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Bucket is a key prefix carving a logical store out of a shared one.
type Bucket string

func (b Bucket) key(key []byte) []byte {
	k := make([]byte, 0, len(b)+len(key))
	return append(append(k, b...), key...)
}

// NewGetter reads src within the bucket.
func (b Bucket) NewGetter(src Getter) Getter {
	return &struct {
		GetFunc
		HasFunc
		IsNotFoundFunc
	}{
		func(key []byte) ([]byte, error) { return src.Get(b.key(key)) },
		func(key []byte) (bool, error) { return src.Has(b.key(key)) },
		src.IsNotFound,
	}
}

// NewPutter writes src within the bucket.
func (b Bucket) NewPutter(src Putter) Putter {
	return &struct {
		PutFunc
		DeleteFunc
	}{
		func(key, val []byte) error { return src.Put(b.key(key), val) },
		func(key []byte) error { return src.Delete(b.key(key)) },
	}
}

// NewStore confines src to the bucket. Iterated keys come without the
// prefix. Closing the bucket store closes src.
func (b Bucket) NewStore(src Store) Store {
	return &struct {
		Getter
		Putter
		BulkFunc
		IterateFunc
		CloseFunc
	}{
		b.NewGetter(src),
		b.NewPutter(src),
		func() Bulk {
			bulk := src.Bulk()
			return &struct {
				Putter
				LenFunc
				WriteFunc
			}{b.NewPutter(bulk), bulk.Len, bulk.Write}
		},
		func(r Range) Iterator { return b.iterate(src, r) },
		src.Close,
	}
}

func (b Bucket) iterate(src Store, r Range) Iterator {
	r.Start = b.key(r.Start)
	if len(r.Limit) == 0 {
		r.Limit = PrefixRange([]byte(b)).Limit
	} else {
		r.Limit = b.key(r.Limit)
	}
	iter := src.Iterate(r)
	return &struct {
		NextFunc
		KeyFunc
		ValueFunc
		ReleaseFunc
		ErrorFunc
	}{
		iter.Next,
		func() []byte { return iter.Key()[len(b):] },
		iter.Value,
		iter.Release,
		iter.Error,
	}
}
