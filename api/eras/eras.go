// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eras

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/mux"

	"github.com/vechain/npos/api/utils"
	"github.com/vechain/npos/cache"
	"github.com/vechain/npos/node"
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/staking"
	"github.com/vechain/npos/staking/exposure"
)

var logger = log.New("pkg", "eras")

func SetLogger(l log.Logger) {
	logger = l
}

const defaultCacheSize = 256

type Eras struct {
	node      *node.Node
	summaries *cache.LRU[npos.EraIndex, *Summary]
}

func New(n *node.Node, cacheSize int) *Eras {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	summaries, err := cache.NewLRU[npos.EraIndex, *Summary]("era_summaries", cacheSize)
	if err != nil {
		panic(err)
	}
	return &Eras{node: n, summaries: summaries}
}

// checkEra rejects eras not yet planned and eras pruned beyond the history
// depth.
func checkEra(s *staking.Staking, era npos.EraIndex) error {
	current, _, err := s.CurrentEra()
	if err != nil {
		return err
	}
	if era > current {
		return utils.NotFound(fmt.Errorf("era %d not found", era))
	}
	if era+s.Config().HistoryDepth < current {
		return utils.NotFound(fmt.Errorf("era %d is pruned", era))
	}
	return nil
}

func (e *Eras) handleGetActive(w http.ResponseWriter, _ *http.Request) error {
	var result ActiveEra
	if err := e.node.View(func(s *staking.Staking) error {
		active, _, err := s.ActiveEra()
		if err != nil {
			return err
		}
		current, _, err := s.CurrentEra()
		if err != nil {
			return err
		}
		forcing, err := s.ForceEra()
		if err != nil {
			return err
		}
		result = ActiveEra{Index: active.Index, Start: active.Start, Current: current, Forcing: forcing.String()}
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, &result)
}

func (e *Eras) handleGetCurrent(w http.ResponseWriter, _ *http.Request) error {
	var result CurrentEra
	if err := e.node.View(func(s *staking.Staking) error {
		current, _, err := s.CurrentEra()
		if err != nil {
			return err
		}
		result.Index = current
		start, found, err := s.EraStartSession(current)
		if err != nil {
			return err
		}
		if found {
			result.StartSession = &start
		}
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, &result)
}

func (e *Eras) summary(s *staking.Staking, era npos.EraIndex) (*Summary, error) {
	sum := &Summary{Era: era, Validators: []*Overview{}}
	if start, found, err := s.EraStartSession(era); err != nil {
		return nil, err
	} else if found {
		sum.StartSession = &start
	}
	if reward, found, err := s.EraValidatorReward(era); err != nil {
		return nil, err
	} else if found {
		sum.ValidatorReward = (*math.HexOrDecimal64)(&reward)
	}
	total, err := s.EraTotalStake(era)
	if err != nil {
		return nil, err
	}
	sum.TotalStake = math.HexOrDecimal64(total)
	points, err := s.EraRewardPoints(era)
	if err != nil {
		return nil, err
	}
	sum.TotalPoints = points.Total

	if err := s.Exposures().IterateOverviews(era, func(v npos.Address, meta *exposure.Metadata) (bool, error) {
		sum.Validators = append(sum.Validators, &Overview{
			Validator:      v,
			Total:          math.HexOrDecimal64(meta.Total),
			Own:            math.HexOrDecimal64(meta.Own),
			NominatorCount: meta.NominatorCount,
			PageCount:      meta.ClaimablePages(),
		})
		return true, nil
	}); err != nil {
		return nil, err
	}
	for _, o := range sum.Validators {
		prefs, err := s.EraValidatorPrefs(era, o.Validator)
		if err != nil {
			return nil, err
		}
		o.Commission = prefs.Commission
	}
	return sum, nil
}

func (e *Eras) handleGetEra(w http.ResponseWriter, req *http.Request) error {
	era, err := utils.Uint32Var(req, "era")
	if err != nil {
		return err
	}
	var result *Summary
	if err := e.node.View(func(s *staking.Staking) error {
		if err := checkEra(s, era); err != nil {
			return err
		}
		active, _, err := s.ActiveEra()
		if err != nil {
			return err
		}
		if era >= active.Index {
			result, err = e.summary(s, era)
			return err
		}
		result, err = e.summaries.GetOrLoad(era, func(era npos.EraIndex) (*Summary, error) {
			return e.summary(s, era)
		})
		if hit, miss, moved := e.summaries.Stats().Report(); moved {
			logger.Debug("era summary cache stats", "hit", hit, "miss", miss)
		}
		return err
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, result)
}

func (e *Eras) handleGetExposure(w http.ResponseWriter, req *http.Request) error {
	era, err := utils.Uint32Var(req, "era")
	if err != nil {
		return err
	}
	validator, err := utils.AddressVar(req, "validator")
	if err != nil {
		return err
	}
	page, err := utils.Uint32Query(req, "page", 0)
	if err != nil {
		return err
	}

	var result *ExposurePage
	if err := e.node.View(func(s *staking.Staking) error {
		if err := checkEra(s, era); err != nil {
			return err
		}
		pageCount, err := s.Exposures().PageCount(era, validator)
		if err != nil {
			return err
		}
		if page >= pageCount {
			return utils.NotFound(fmt.Errorf("page %d out of %d", page, pageCount))
		}
		view, err := s.Exposures().Paged(era, validator, page)
		if err != nil {
			return err
		}
		if view == nil || view.Total() == 0 {
			return utils.NotFound(fmt.Errorf("validator %v is not exposed in era %d", validator, era))
		}
		result = &ExposurePage{
			Validator:      validator,
			Era:            era,
			Page:           page,
			PageCount:      pageCount,
			Total:          math.HexOrDecimal64(view.Total()),
			Own:            math.HexOrDecimal64(view.Own()),
			NominatorCount: view.Metadata.NominatorCount,
			PageTotal:      math.HexOrDecimal64(view.PageTotal()),
			Others:         convertIndividuals(view.Others()),
		}
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, result)
}

func (e *Eras) handleGetPoints(w http.ResponseWriter, req *http.Request) error {
	era, err := utils.Uint32Var(req, "era")
	if err != nil {
		return err
	}
	var result *staking.EraRewardPoints
	if err := e.node.View(func(s *staking.Staking) error {
		if err := checkEra(s, era); err != nil {
			return err
		}
		result, err = s.EraRewardPoints(era)
		return err
	}); err != nil {
		return err
	}
	if result.Individual == nil {
		result.Individual = []staking.ValidatorPoints{}
	}
	return utils.WriteJSON(w, result)
}

func (e *Eras) handleGetClaimed(w http.ResponseWriter, req *http.Request) error {
	era, err := utils.Uint32Var(req, "era")
	if err != nil {
		return err
	}
	validator, err := utils.AddressVar(req, "validator")
	if err != nil {
		return err
	}
	result := &Claimed{Validator: validator, Era: era, Pages: []npos.PageIndex{}}
	if err := e.node.View(func(s *staking.Staking) error {
		if err := checkEra(s, era); err != nil {
			return err
		}
		if result.PageCount, err = s.Exposures().PageCount(era, validator); err != nil {
			return err
		}
		pages, err := s.Exposures().ClaimedPages(era, validator)
		if err != nil {
			return err
		}
		result.Pages = append(result.Pages, pages...)
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, result)
}

func (e *Eras) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/active").
		Methods(http.MethodGet).
		Name("GET /staking/eras/active").
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetActive))
	sub.Path("/current").
		Methods(http.MethodGet).
		Name("GET /staking/eras/current").
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetCurrent))
	sub.Path("/{era:[0-9]+}").
		Methods(http.MethodGet).
		Name("GET /staking/eras/{era}").
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetEra))
	sub.Path("/{era:[0-9]+}/exposures/{validator}").
		Methods(http.MethodGet).
		Name("GET /staking/eras/{era}/exposures/{validator}").
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetExposure))
	sub.Path("/{era:[0-9]+}/points").
		Methods(http.MethodGet).
		Name("GET /staking/eras/{era}/points").
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetPoints))
	sub.Path("/{era:[0-9]+}/claimed/{validator}").
		Methods(http.MethodGet).
		Name("GET /staking/eras/{era}/claimed/{validator}").
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetClaimed))
}
