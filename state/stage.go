// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"io"

	"github.com/pkg/errors"

	"github.com/vechain/npos/npos"
)

// Stage holds the net changes of a state and commits them in one batch.
type Stage struct {
	state   *State
	keys    []string
	changes map[string][]byte
}

// Len returns the number of changed keys.
func (st *Stage) Len() int {
	return len(st.keys)
}

// Hash computes a digest of the change set. Identical change sets applied to
// identical states yield identical hashes.
func (st *Stage) Hash() npos.Bytes32 {
	return npos.Blake2bFn(func(w io.Writer) {
		var lenBuf [8]byte
		for _, k := range st.keys {
			v := st.changes[k]
			writeLen(w, &lenBuf, len(k))
			io.WriteString(w, k)
			if v == nil {
				// deletions are distinguishable from empty values
				w.Write([]byte{0})
				continue
			}
			w.Write([]byte{1})
			writeLen(w, &lenBuf, len(v))
			w.Write(v)
		}
	})
}

func writeLen(w io.Writer, buf *[8]byte, n int) {
	for i := range buf {
		buf[i] = byte(uint64(n) >> (56 - 8*i))
	}
	w.Write(buf[:])
}

// Commit writes the changes into the store and resets the state journal.
func (st *Stage) Commit() (npos.Bytes32, error) {
	hash := st.Hash()

	bulk := st.state.db.Bulk()
	for _, k := range st.keys {
		v := st.changes[k]
		var err error
		if v == nil {
			err = bulk.Delete([]byte(k))
		} else {
			err = bulk.Put([]byte(k), v)
		}
		if err != nil {
			return npos.Bytes32{}, &Error{err}
		}
	}
	if err := bulk.Write(); err != nil {
		return npos.Bytes32{}, &Error{errors.Wrap(err, "write changes")}
	}

	if cache := st.state.cache; cache != nil {
		for _, k := range st.keys {
			if v := st.changes[k]; v == nil {
				cache.Del([]byte(k))
			} else {
				_ = cache.Set([]byte(k), v)
			}
		}
	}
	st.state.reset()
	metricCommittedKeys().Add(int64(len(st.keys)))
	return hash, nil
}
