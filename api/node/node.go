// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"

	"github.com/vechain/npos/api/utils"
	"github.com/vechain/npos/node"
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/staking"
)

type Info struct {
	Session       npos.SessionIndex   `json:"session"`
	ActiveEra     npos.EraIndex       `json:"activeEra"`
	CurrentEra    npos.EraIndex       `json:"currentEra"`
	Validators    []npos.Address      `json:"validators"`
	Disabled      []uint32            `json:"disabled"`
	Offending     []uint32            `json:"offending"`
	TotalIssuance math.HexOrDecimal64 `json:"totalIssuance"`
}

type Node struct {
	node *node.Node
}

func New(n *node.Node) *Node {
	return &Node{n}
}

func (n *Node) handleGetInfo(w http.ResponseWriter, _ *http.Request) error {
	session, err := n.node.Session()
	if err != nil {
		return err
	}
	validators, disabled := n.node.Validators()
	info := &Info{
		Session:    session,
		Validators: validators,
		Disabled:   append([]uint32{}, disabled...),
		Offending:  []uint32{},
	}
	if info.Validators == nil {
		info.Validators = []npos.Address{}
	}
	if err := n.node.View(func(s *staking.Staking) error {
		active, _, err := s.ActiveEra()
		if err != nil {
			return err
		}
		info.ActiveEra = active.Index
		if info.CurrentEra, _, err = s.CurrentEra(); err != nil {
			return err
		}
		offending, err := s.OffendingValidators()
		if err != nil {
			return err
		}
		for _, o := range offending {
			info.Offending = append(info.Offending, o.Index)
		}
		return nil
	}); err != nil {
		return err
	}
	if err := n.node.Balances(func(b node.BalanceReader) error {
		issuance, err := b.TotalIssuance()
		info.TotalIssuance = math.HexOrDecimal64(issuance)
		return err
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, info)
}

func (n *Node) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/info").
		Methods(http.MethodGet).
		Name("GET /node/info").
		HandlerFunc(utils.WrapHandlerFunc(n.handleGetInfo))
}
