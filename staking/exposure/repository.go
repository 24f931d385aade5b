// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package exposure

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/state"
)

// Repository stores per era exposures and claimed reward pages.
type Repository struct {
	overview *state.Mapping[npos.EraAddressKey, *Metadata]
	paged    *state.Mapping[npos.EraAddressPageKey, *Page]
	// legacy un-paged exposures, full and clipped
	stakers *state.Mapping[npos.EraAddressKey, *Exposure]
	clipped *state.Mapping[npos.EraAddressKey, *Exposure]
	claimed *state.Mapping[npos.EraAddressKey, []npos.PageIndex]
}

func NewRepository(st *state.State) *Repository {
	return &Repository{
		overview: state.NewMapping[npos.EraAddressKey, *Metadata](st, "staking/eras-stakers-overview/"),
		paged:    state.NewMapping[npos.EraAddressPageKey, *Page](st, "staking/eras-stakers-paged/"),
		stakers:  state.NewMapping[npos.EraAddressKey, *Exposure](st, "staking/eras-stakers/"),
		clipped:  state.NewMapping[npos.EraAddressKey, *Exposure](st, "staking/eras-stakers-clipped/"),
		claimed:  state.NewMapping[npos.EraAddressKey, []npos.PageIndex](st, "staking/claimed-rewards/"),
	}
}

// Set stores the exposure of validator for era as an overview plus pages.
func (r *Repository) Set(era npos.EraIndex, validator npos.Address, e *Exposure, pageSize uint32) error {
	meta, pages := e.Paginate(pageSize)
	key := npos.EraAddressKey{Era: era, Account: validator}
	if err := r.overview.Set(key, &meta); err != nil {
		return errors.Wrap(err, "failed to set exposure overview")
	}
	for i := range pages {
		pageKey := npos.EraAddressPageKey{Era: era, Account: validator, Page: npos.PageIndex(i)}
		if err := r.paged.Set(pageKey, &pages[i]); err != nil {
			return errors.Wrap(err, "failed to set exposure page")
		}
	}
	return nil
}

// SetLegacy stores an un-paged exposure, as written before paging existed.
func (r *Repository) SetLegacy(era npos.EraIndex, validator npos.Address, full, clipped *Exposure) error {
	key := npos.EraAddressKey{Era: era, Account: validator}
	if err := r.stakers.Set(key, full); err != nil {
		return errors.Wrap(err, "failed to set exposure")
	}
	return errors.Wrap(r.clipped.Set(key, clipped), "failed to set clipped exposure")
}

func (r *Repository) Overview(era npos.EraIndex, validator npos.Address) (*Metadata, bool, error) {
	meta, found, err := r.overview.Get(npos.EraAddressKey{Era: era, Account: validator})
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to get exposure overview")
	}
	return meta, found, nil
}

// PageCount returns the number of claimable pages. Validators without an
// overview are legacy exposures and have a single page.
func (r *Repository) PageCount(era npos.EraIndex, validator npos.Address) (npos.PageIndex, error) {
	meta, found, err := r.Overview(era, validator)
	if err != nil {
		return 0, err
	}
	if !found {
		return 1, nil
	}
	return meta.ClaimablePages(), nil
}

// Paged returns the view of one page, or nil if the validator has no
// exposure for era.
func (r *Repository) Paged(era npos.EraIndex, validator npos.Address, page npos.PageIndex) (*Paged, error) {
	meta, found, err := r.Overview(era, validator)
	if err != nil {
		return nil, err
	}
	if !found {
		if page != 0 {
			return nil, nil
		}
		clipped, _, err := r.clipped.Get(npos.EraAddressKey{Era: era, Account: validator})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get clipped exposure")
		}
		if clipped == nil {
			clipped = &Exposure{}
		}
		return FromClipped(clipped), nil
	}
	view := &Paged{Metadata: *meta}
	if page != 0 {
		view.Metadata.Own = 0
	}
	p, found, err := r.paged.Get(npos.EraAddressPageKey{Era: era, Account: validator, Page: page})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get exposure page")
	}
	if found {
		view.Page = *p
	}
	return view, nil
}

// Full reassembles the complete exposure of validator for era.
func (r *Repository) Full(era npos.EraIndex, validator npos.Address) (*Exposure, error) {
	meta, found, err := r.Overview(era, validator)
	if err != nil {
		return nil, err
	}
	if !found {
		legacy, _, err := r.stakers.Get(npos.EraAddressKey{Era: era, Account: validator})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get exposure")
		}
		if legacy == nil {
			legacy = &Exposure{}
		}
		return legacy, nil
	}
	full := &Exposure{Total: meta.Total, Own: meta.Own}
	for page := npos.PageIndex(0); page < meta.PageCount; page++ {
		p, found, err := r.paged.Get(npos.EraAddressPageKey{Era: era, Account: validator, Page: page})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get exposure page")
		}
		if found {
			full.Others = append(full.Others, p.Others...)
		}
	}
	return full, nil
}

// ClaimedPages returns the pages of era already paid for validator.
func (r *Repository) ClaimedPages(era npos.EraIndex, validator npos.Address) ([]npos.PageIndex, error) {
	pages, _, err := r.claimed.Get(npos.EraAddressKey{Era: era, Account: validator})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get claimed rewards")
	}
	return pages, nil
}

// IsClaimed checks the claimed pages, falling back to the legacy claimed eras
// kept in the ledger.
func (r *Repository) IsClaimed(era npos.EraIndex, validator npos.Address, page npos.PageIndex, legacyClaimed []npos.EraIndex) (bool, error) {
	if _, found := slices.BinarySearch(legacyClaimed, era); found {
		return true, nil
	}
	pages, err := r.ClaimedPages(era, validator)
	if err != nil {
		return false, err
	}
	return slices.Contains(pages, page), nil
}

// SetClaimed records page as paid. Recording a page twice is a no-op.
func (r *Repository) SetClaimed(era npos.EraIndex, validator npos.Address, page npos.PageIndex) error {
	pages, err := r.ClaimedPages(era, validator)
	if err != nil {
		return err
	}
	if slices.Contains(pages, page) {
		return nil
	}
	pages = append(pages, page)
	return errors.Wrap(r.claimed.Set(npos.EraAddressKey{Era: era, Account: validator}, pages), "failed to set claimed rewards")
}

// NextClaimablePage returns the lowest unpaid page, if any.
func (r *Repository) NextClaimablePage(era npos.EraIndex, validator npos.Address, legacyClaimed []npos.EraIndex) (npos.PageIndex, bool, error) {
	if _, found := slices.BinarySearch(legacyClaimed, era); found {
		return 0, false, nil
	}
	count, err := r.PageCount(era, validator)
	if err != nil {
		return 0, false, err
	}
	claimed, err := r.ClaimedPages(era, validator)
	if err != nil {
		return 0, false, err
	}
	for page := npos.PageIndex(0); page < count; page++ {
		if !slices.Contains(claimed, page) {
			return page, true, nil
		}
	}
	return 0, false, nil
}

// IterateOverviews visits every exposed validator of era.
func (r *Repository) IterateOverviews(era npos.EraIndex, fn func(validator npos.Address, meta *Metadata) (bool, error)) error {
	return r.overview.IteratePrefix(npos.EraKey(era).Bytes(), func(key []byte, meta *Metadata) (bool, error) {
		return fn(npos.BytesToAddress(key[4:]), meta)
	})
}

// ClearEra removes all exposure and claim records of era.
func (r *Repository) ClearEra(era npos.EraIndex) error {
	prefix := npos.EraKey(era).Bytes()
	if _, err := r.overview.Clear(prefix); err != nil {
		return errors.Wrap(err, "failed to clear exposure overviews")
	}
	if _, err := r.paged.Clear(prefix); err != nil {
		return errors.Wrap(err, "failed to clear exposure pages")
	}
	if _, err := r.stakers.Clear(prefix); err != nil {
		return errors.Wrap(err, "failed to clear exposures")
	}
	if _, err := r.clipped.Clear(prefix); err != nil {
		return errors.Wrap(err, "failed to clear clipped exposures")
	}
	if _, err := r.claimed.Clear(prefix); err != nil {
		return errors.Wrap(err, "failed to clear claimed rewards")
	}
	return nil
}
