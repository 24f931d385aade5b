// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slashing

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
	"github.com/vechain/npos/staking/exposure"
	"github.com/vechain/npos/staking/reverts"
	"github.com/vechain/npos/state"
)

// ValidatorSlash is the largest slash of a validator in an era.
type ValidatorSlash struct {
	Fraction perthing.Perbill
	Amount   npos.Balance
}

// UnappliedSlash is a computed slash waiting to be taken from the ledgers.
type UnappliedSlash struct {
	Validator npos.Address
	Own       npos.Balance
	Others    []exposure.Individual
	Reporters []npos.Address
	Payout    npos.Balance
}

// Total is the validator part plus all nominator parts.
func (u *UnappliedSlash) Total() npos.Balance {
	total := u.Own
	for _, o := range u.Others {
		total += o.Value
	}
	return total
}

type Repository struct {
	spans          *state.Mapping[npos.Address, *Spans]
	spanSlash      *state.Mapping[npos.AddressIndexKey, *SpanRecord]
	validatorSlash *state.Mapping[npos.EraAddressKey, *ValidatorSlash]
	nominatorSlash *state.Mapping[npos.EraAddressKey, npos.Balance]
	unapplied      *state.Mapping[npos.EraKey, []*UnappliedSlash]
}

func NewRepository(st *state.State) *Repository {
	return &Repository{
		spans:          state.NewMapping[npos.Address, *Spans](st, "staking/slashing-spans/"),
		spanSlash:      state.NewMapping[npos.AddressIndexKey, *SpanRecord](st, "staking/span-slash/"),
		validatorSlash: state.NewMapping[npos.EraAddressKey, *ValidatorSlash](st, "staking/validator-slash-in-era/"),
		nominatorSlash: state.NewMapping[npos.EraAddressKey, npos.Balance](st, "staking/nominator-slash-in-era/"),
		unapplied:      state.NewMapping[npos.EraKey, []*UnappliedSlash](st, "staking/unapplied-slashes/"),
	}
}

// Spans returns the span history of stash, or nil if it was never slashed.
func (r *Repository) Spans(stash npos.Address) (*Spans, error) {
	spans, _, err := r.spans.Get(stash)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get slashing spans")
	}
	if spans != nil && len(spans.Prior) == 0 {
		spans.Prior = nil
	}
	return spans, nil
}

func (r *Repository) SpanRecord(stash npos.Address, index uint32) (*SpanRecord, error) {
	rec, found, err := r.spanSlash.Get(npos.AddressIndexKey{Account: stash, Index: index})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get span slash")
	}
	if !found {
		return &SpanRecord{}, nil
	}
	return rec, nil
}

func (r *Repository) ValidatorSlashInEra(era npos.EraIndex, validator npos.Address) (*ValidatorSlash, error) {
	vs, _, err := r.validatorSlash.Get(npos.EraAddressKey{Era: era, Account: validator})
	return vs, errors.Wrap(err, "failed to get validator slash")
}

func (r *Repository) NominatorSlashInEra(era npos.EraIndex, nominator npos.Address) (npos.Balance, error) {
	v, _, err := r.nominatorSlash.Get(npos.EraAddressKey{Era: era, Account: nominator})
	return v, errors.Wrap(err, "failed to get nominator slash")
}

// Unapplied returns the slashes scheduled for era.
func (r *Repository) Unapplied(era npos.EraIndex) ([]*UnappliedSlash, error) {
	list, _, err := r.unapplied.Get(npos.EraKey(era))
	return list, errors.Wrap(err, "failed to get unapplied slashes")
}

func (r *Repository) SetUnapplied(era npos.EraIndex, list []*UnappliedSlash) error {
	if len(list) == 0 {
		r.unapplied.Delete(npos.EraKey(era))
		return nil
	}
	return errors.Wrap(r.unapplied.Set(npos.EraKey(era), list), "failed to set unapplied slashes")
}

// Defer appends a slash to the queue of era.
func (r *Repository) Defer(era npos.EraIndex, slash *UnappliedSlash) error {
	list, err := r.Unapplied(era)
	if err != nil {
		return err
	}
	return r.SetUnapplied(era, append(list, slash))
}

// TakeUnapplied removes and returns the slashes scheduled for era.
func (r *Repository) TakeUnapplied(era npos.EraIndex) ([]*UnappliedSlash, error) {
	list, err := r.Unapplied(era)
	if err != nil {
		return nil, err
	}
	r.unapplied.Delete(npos.EraKey(era))
	return list, nil
}

// IterateUnapplied visits every era with pending slashes in era order.
func (r *Repository) IterateUnapplied(fn func(era npos.EraIndex, list []*UnappliedSlash) (bool, error)) error {
	return r.unapplied.Iterate(func(key []byte, list []*UnappliedSlash) (bool, error) {
		return fn(binary.BigEndian.Uint32(key), list)
	})
}

// ClearEraMetadata drops the per era slash maxima of an era leaving the
// bonding window.
func (r *Repository) ClearEraMetadata(era npos.EraIndex) error {
	prefix := npos.EraKey(era).Bytes()
	if _, err := r.validatorSlash.Clear(prefix); err != nil {
		return errors.Wrap(err, "failed to clear validator slashes")
	}
	if _, err := r.nominatorSlash.Clear(prefix); err != nil {
		return errors.Wrap(err, "failed to clear nominator slashes")
	}
	return nil
}

// ClearStashMetadata removes the span history of stash. numSpans must cover
// all spans of the stash.
func (r *Repository) ClearStashMetadata(stash npos.Address, numSpans uint32) error {
	spans, err := r.Spans(stash)
	if err != nil || spans == nil {
		return err
	}
	all := spans.Iter()
	if int(numSpans) < len(all) {
		return reverts.ErrIncorrectSlashingSpans
	}
	r.spans.Delete(stash)
	for _, span := range all {
		r.spanSlash.Delete(npos.AddressIndexKey{Account: stash, Index: span.Index})
	}
	return nil
}

// SpanCount returns the number of spans of stash, zero if never slashed.
func (r *Repository) SpanCount(stash npos.Address) (uint32, error) {
	spans, err := r.Spans(stash)
	if err != nil || spans == nil {
		return 0, err
	}
	return uint32(len(spans.Prior)) + 1, nil
}
