// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/staking/reverts"
)

// Origin is the caller of an operation: an account or the privileged root.
type Origin struct {
	who  npos.Address
	root bool
}

func Signed(who npos.Address) Origin { return Origin{who: who} }
func Root() Origin                   { return Origin{root: true} }

func (o Origin) String() string {
	if o.root {
		return "root"
	}
	return o.who.String()
}

func (o Origin) ensureSigned() (npos.Address, error) {
	if o.root {
		return npos.Address{}, reverts.ErrBadOrigin
	}
	return o.who, nil
}

func (o Origin) ensureRoot() error {
	if !o.root {
		return reverts.ErrBadOrigin
	}
	return nil
}
