// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakers

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/npos/api/utils"
	"github.com/vechain/npos/node"
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/staking"
	"github.com/vechain/npos/staking/ledger"
	"github.com/vechain/npos/staking/reverts"
)

type Stakers struct {
	node *node.Node
}

func New(n *node.Node) *Stakers {
	return &Stakers{node: n}
}

func (st *Stakers) handleGetLedger(w http.ResponseWriter, req *http.Request) error {
	stash, err := utils.AddressVar(req, "stash")
	if err != nil {
		return err
	}
	var result *Ledger
	if err := st.node.View(func(s *staking.Staking) error {
		l, err := s.Ledger(ledger.ByStash(stash))
		if err != nil {
			if errors.Is(err, reverts.ErrNotStash) {
				return utils.NotFound(err)
			}
			return err
		}
		payee, hasPayee, err := s.Payee(stash)
		if err != nil {
			return err
		}
		virtual, err := s.IsVirtual(stash)
		if err != nil {
			return err
		}
		result = convertLedger(l, payee, hasPayee, virtual)
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, result)
}

func (st *Stakers) handleGetValidators(w http.ResponseWriter, _ *http.Request) error {
	result := []*Validator{}
	if err := st.node.View(func(s *staking.Staking) error {
		return s.IterateValidators(func(stash npos.Address, prefs *staking.ValidatorPrefs) (bool, error) {
			result = append(result, &Validator{Stash: stash, Commission: prefs.Commission, Blocked: prefs.Blocked})
			return true, nil
		})
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, result)
}

func (st *Stakers) handleGetValidator(w http.ResponseWriter, req *http.Request) error {
	stash, err := utils.AddressVar(req, "stash")
	if err != nil {
		return err
	}
	var result *Validator
	if err := st.node.View(func(s *staking.Staking) error {
		prefs, found, err := s.Validator(stash)
		if err != nil {
			return err
		}
		if !found {
			return utils.NotFound(fmt.Errorf("%v is not a validator", stash))
		}
		result = &Validator{Stash: stash, Commission: prefs.Commission, Blocked: prefs.Blocked}
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, result)
}

func (st *Stakers) handleGetNominator(w http.ResponseWriter, req *http.Request) error {
	stash, err := utils.AddressVar(req, "stash")
	if err != nil {
		return err
	}
	var result *Nominator
	if err := st.node.View(func(s *staking.Staking) error {
		noms, found, err := s.Nominator(stash)
		if err != nil {
			return err
		}
		if !found {
			return utils.NotFound(fmt.Errorf("%v is not a nominator", stash))
		}
		result = &Nominator{Stash: stash, Nominations: *noms}
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, result)
}

func (st *Stakers) handleGetParams(w http.ResponseWriter, _ *http.Request) error {
	var result Params
	if err := st.node.View(func(s *staking.Staking) error {
		params, err := s.Params()
		if err != nil {
			return err
		}
		result.DynamicParams = *params
		if result.ValidatorCount, err = s.ValidatorCount(); err != nil {
			return err
		}
		if result.ValidatorsCount, result.NominatorsCount, err = s.Counts(); err != nil {
			return err
		}
		minActive, err := s.MinimumActiveStake()
		if err != nil {
			return err
		}
		result.MinimumActiveStake = math.HexOrDecimal64(minActive)
		invulnerables, err := s.Invulnerables()
		if err != nil {
			return err
		}
		result.Invulnerables = append([]npos.Address{}, invulnerables...)
		forcing, err := s.ForceEra()
		if err != nil {
			return err
		}
		result.Forcing = forcing.String()

		cfg := s.Config()
		result.SessionsPerEra = cfg.SessionsPerEra
		result.BondingDuration = cfg.BondingDuration
		result.HistoryDepth = cfg.HistoryDepth
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, &result)
}

func (st *Stakers) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/ledgers/{stash}").
		Methods(http.MethodGet).
		Name("GET /staking/ledgers/{stash}").
		HandlerFunc(utils.WrapHandlerFunc(st.handleGetLedger))
	sub.Path("/validators").
		Methods(http.MethodGet).
		Name("GET /staking/validators").
		HandlerFunc(utils.WrapHandlerFunc(st.handleGetValidators))
	sub.Path("/validators/{stash}").
		Methods(http.MethodGet).
		Name("GET /staking/validators/{stash}").
		HandlerFunc(utils.WrapHandlerFunc(st.handleGetValidator))
	sub.Path("/nominators/{stash}").
		Methods(http.MethodGet).
		Name("GET /staking/nominators/{stash}").
		HandlerFunc(utils.WrapHandlerFunc(st.handleGetNominator))
	sub.Path("/params").
		Methods(http.MethodGet).
		Name("GET /staking/params").
		HandlerFunc(utils.WrapHandlerFunc(st.handleGetParams))
}
