// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package exposure

import (
	"github.com/vechain/npos/npos"
)

// Individual is the stake of one nominator behind a validator.
type Individual struct {
	Who   npos.Address
	Value npos.Balance
}

// Exposure is the full stake backing a validator in an era.
type Exposure struct {
	Total  npos.Balance
	Own    npos.Balance
	Others []Individual
}

// Metadata summarizes a paged exposure.
type Metadata struct {
	Total          npos.Balance
	Own            npos.Balance
	NominatorCount uint32
	PageCount      npos.PageIndex
}

// Page is a bounded slice of the nominators of an exposure.
type Page struct {
	PageTotal npos.Balance
	Others    []Individual
}

// Paged is the view of one page: the metadata (own is only counted on page
// zero) together with the page itself.
type Paged struct {
	Metadata Metadata
	Page     Page
}

func (p *Paged) Own() npos.Balance       { return p.Metadata.Own }
func (p *Paged) Total() npos.Balance     { return p.Metadata.Total }
func (p *Paged) PageTotal() npos.Balance { return p.Page.PageTotal + p.Metadata.Own }
func (p *Paged) Others() []Individual    { return p.Page.Others }

// FromClipped builds a single page view from a legacy exposure.
func FromClipped(e *Exposure) *Paged {
	var pageTotal npos.Balance
	for _, o := range e.Others {
		pageTotal += o.Value
	}
	return &Paged{
		Metadata: Metadata{
			Total:          e.Total,
			Own:            e.Own,
			NominatorCount: uint32(len(e.Others)),
			PageCount:      1,
		},
		Page: Page{PageTotal: pageTotal, Others: e.Others},
	}
}

// Paginate splits e into pages of at most pageSize nominators, in order. An
// exposure without nominators has no pages.
func (e *Exposure) Paginate(pageSize uint32) (Metadata, []Page) {
	pageSize = max(pageSize, 1)
	pages := make([]Page, 0, (len(e.Others)+int(pageSize)-1)/int(pageSize))
	for start := 0; start < len(e.Others); start += int(pageSize) {
		end := min(start+int(pageSize), len(e.Others))
		page := Page{Others: make([]Individual, 0, end-start)}
		for _, o := range e.Others[start:end] {
			page.PageTotal += o.Value
			page.Others = append(page.Others, o)
		}
		pages = append(pages, page)
	}
	return Metadata{
		Total:          e.Total,
		Own:            e.Own,
		NominatorCount: uint32(len(e.Others)),
		PageCount:      npos.PageIndex(len(pages)),
	}, pages
}

// ClaimablePages is the number of pages a validator can claim: at least one
// if it has own stake.
func (m *Metadata) ClaimablePages() npos.PageIndex {
	if m.PageCount == 0 && m.Own > 0 {
		return 1
	}
	return m.PageCount
}
