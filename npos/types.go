// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package npos

import "encoding/binary"

type (
	// Balance is an amount of the staking currency in its smallest unit.
	Balance = uint64
	// EraIndex counts eras from genesis.
	EraIndex = uint32
	// SessionIndex counts sessions from genesis.
	SessionIndex = uint32
	// PageIndex indexes a page of a paged exposure.
	PageIndex = uint32
	// RewardPoint is a unit of validator work within an era.
	RewardPoint = uint32
)

// EraKey is an era usable as a storage key.
type EraKey EraIndex

// Bytes encodes the era big-endian so keys sort by era.
func (e EraKey) Bytes() []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(e))
	return b[:]
}

// EraAddressKey keys per-era per-account records.
type EraAddressKey struct {
	Era     EraIndex
	Account Address
}

func (k EraAddressKey) Bytes() []byte {
	return append(EraKey(k.Era).Bytes(), k.Account[:]...)
}

// EraAddressPageKey keys per-era per-validator exposure pages.
type EraAddressPageKey struct {
	Era     EraIndex
	Account Address
	Page    PageIndex
}

func (k EraAddressPageKey) Bytes() []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], k.Page)
	return append(EraAddressKey{k.Era, k.Account}.Bytes(), b[:]...)
}

// AddressIndexKey keys per-account indexed records such as span slashes.
type AddressIndexKey struct {
	Account Address
	Index   uint32
}

func (k AddressIndexKey) Bytes() []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], k.Index)
	return append(k.Account.Bytes(), b[:]...)
}
