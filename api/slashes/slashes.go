// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slashes

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"

	"github.com/vechain/npos/api/utils"
	"github.com/vechain/npos/node"
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/staking"
	"github.com/vechain/npos/staking/slashing"
)

type Slashes struct {
	node *node.Node
}

func New(n *node.Node) *Slashes {
	return &Slashes{node: n}
}

func (sl *Slashes) handleGetAllUnapplied(w http.ResponseWriter, _ *http.Request) error {
	result := []*EraSlashes{}
	if err := sl.node.View(func(s *staking.Staking) error {
		return s.Slashing().IterateUnapplied(func(era npos.EraIndex, list []*slashing.UnappliedSlash) (bool, error) {
			if len(list) > 0 {
				result = append(result, &EraSlashes{Era: era, Slashes: convertSlashes(list)})
			}
			return true, nil
		})
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, result)
}

func (sl *Slashes) handleGetUnapplied(w http.ResponseWriter, req *http.Request) error {
	era, err := utils.Uint32Var(req, "era")
	if err != nil {
		return err
	}
	var list []*slashing.UnappliedSlash
	if err := sl.node.View(func(s *staking.Staking) error {
		list, err = s.Slashing().Unapplied(era)
		return err
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, convertSlashes(list))
}

func (sl *Slashes) handleGetValidatorSlash(w http.ResponseWriter, req *http.Request) error {
	era, err := utils.Uint32Var(req, "era")
	if err != nil {
		return err
	}
	validator, err := utils.AddressVar(req, "validator")
	if err != nil {
		return err
	}
	var vs *slashing.ValidatorSlash
	if err := sl.node.View(func(s *staking.Staking) error {
		vs, err = s.Slashing().ValidatorSlashInEra(era, validator)
		return err
	}); err != nil {
		return err
	}
	if vs == nil {
		return utils.NotFound(fmt.Errorf("%v was not slashed in era %d", validator, era))
	}
	return utils.WriteJSON(w, &ValidatorSlash{
		Validator: validator,
		Era:       era,
		Fraction:  vs.Fraction,
		Amount:    math.HexOrDecimal64(vs.Amount),
	})
}

func (sl *Slashes) handleGetSpans(w http.ResponseWriter, req *http.Request) error {
	stash, err := utils.AddressVar(req, "stash")
	if err != nil {
		return err
	}
	var result *Spans
	if err := sl.node.View(func(s *staking.Staking) error {
		spans, err := s.Slashing().Spans(stash)
		if err != nil {
			return err
		}
		if spans == nil {
			return utils.NotFound(fmt.Errorf("%v has no slashing spans", stash))
		}
		result = &Spans{
			Stash:            stash,
			SpanIndex:        spans.SpanIndex,
			LastStart:        spans.LastStart,
			LastNonzeroSlash: spans.LastNonzeroSlash,
		}
		for _, span := range spans.Iter() {
			rec, err := s.Slashing().SpanRecord(stash, span.Index)
			if err != nil {
				return err
			}
			result.Spans = append(result.Spans, &Span{
				Index:   span.Index,
				Start:   span.Start,
				Length:  span.Length,
				Slashed: math.HexOrDecimal64(rec.Slashed),
				PaidOut: math.HexOrDecimal64(rec.PaidOut),
			})
		}
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, result)
}

func (sl *Slashes) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/slashes/unapplied").
		Methods(http.MethodGet).
		Name("GET /staking/slashes/unapplied").
		HandlerFunc(utils.WrapHandlerFunc(sl.handleGetAllUnapplied))
	sub.Path("/slashes/unapplied/{era:[0-9]+}").
		Methods(http.MethodGet).
		Name("GET /staking/slashes/unapplied/{era}").
		HandlerFunc(utils.WrapHandlerFunc(sl.handleGetUnapplied))
	sub.Path("/slashes/{era:[0-9]+}/{validator}").
		Methods(http.MethodGet).
		Name("GET /staking/slashes/{era}/{validator}").
		HandlerFunc(utils.WrapHandlerFunc(sl.handleGetValidatorSlash))
	sub.Path("/spans/{stash}").
		Methods(http.MethodGet).
		Name("GET /staking/spans/{stash}").
		HandlerFunc(utils.WrapHandlerFunc(sl.handleGetSpans))
}
