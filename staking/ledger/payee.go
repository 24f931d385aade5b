// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/vechain/npos/npos"
)

// DestinationKind selects where rewards of a stash are paid.
type DestinationKind uint8

const (
	// PayStaked compounds rewards into the active bond.
	PayStaked DestinationKind = iota
	// PayStash pays the stash free balance.
	PayStash
	// PayController pays the controller. Deprecated.
	PayController
	// PayAccount pays an arbitrary account.
	PayAccount
	// PayNone burns the reward.
	PayNone
)

var destinationNames = map[DestinationKind]string{
	PayStaked:     "staked",
	PayStash:      "stash",
	PayController: "controller",
	PayAccount:    "account",
	PayNone:       "none",
}

func (k DestinationKind) String() string {
	if s, ok := destinationNames[k]; ok {
		return s
	}
	return fmt.Sprintf("destination(%d)", uint8(k))
}

// ParseDestinationKind is the inverse of DestinationKind.String.
func ParseDestinationKind(s string) (DestinationKind, error) {
	for k, name := range destinationNames {
		if name == s {
			return k, nil
		}
	}
	return 0, errors.Errorf("unknown reward destination %q", s)
}

// RewardDestination is the payee of a stash. Account is only meaningful for
// PayAccount.
type RewardDestination struct {
	Kind    DestinationKind
	Account npos.Address
}

var (
	Staked = RewardDestination{Kind: PayStaked}
	Stash  = RewardDestination{Kind: PayStash}
	None   = RewardDestination{Kind: PayNone}
)

func Account(who npos.Address) RewardDestination {
	return RewardDestination{Kind: PayAccount, Account: who}
}

func (d RewardDestination) String() string {
	if d.Kind == PayAccount {
		return "account(" + d.Account.String() + ")"
	}
	return d.Kind.String()
}
