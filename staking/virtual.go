// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/staking/ledger"
	"github.com/vechain/npos/staking/reverts"
)

// VirtualBond bonds value for a keyless stash whose funds are held by
// another module. Rewards go to payee and slashes are reported to the slash
// observer.
func (s *Staking) VirtualBond(keyless npos.Address, value npos.Balance, payee npos.Address) error {
	logger.Debug("virtual bonding", "stash", keyless, "value", value, "payee", payee)

	if err := s.txn("virtual_bond", func() error {
		if bonded, err := s.ledgers.IsBonded(ledger.ByStash(keyless)); err != nil {
			return err
		} else if bonded {
			return reverts.ErrAlreadyBonded
		}
		if keyless == payee {
			return reverts.ErrRewardDestinationRestricted
		}
		if value < s.minimumBalance() {
			return reverts.ErrInsufficientBond
		}
		if err := s.ledgers.SetVirtual(keyless); err != nil {
			return err
		}
		s.emit(&Event{Kind: EventBonded, Stash: keyless, Amount: value})
		return s.ledgers.Bond(ledger.New(keyless, value), ledger.Account(payee))
	}); err != nil {
		logger.Info("virtual bond failed", "stash", keyless, "error", err)
		return err
	}

	logger.Info("virtual bonded", "stash", keyless)
	return nil
}

// VirtualBondExtra adds extra to the bond of a virtual staker without
// touching any balance.
func (s *Staking) VirtualBondExtra(stash npos.Address, extra npos.Balance) error {
	logger.Debug("virtual bonding extra", "stash", stash, "extra", extra)

	return s.txn("virtual_bond_extra", func() error {
		if virtual, err := s.ledgers.IsVirtual(stash); err != nil {
			return err
		} else if !virtual {
			return reverts.ErrNotStash
		}
		l, err := s.ledgers.Get(ledger.ByStash(stash))
		if err != nil {
			return err
		}
		if err := l.BondExtra(extra); err != nil {
			return err
		}
		if err := s.updateLedger(l); err != nil {
			return err
		}
		s.emit(&Event{Kind: EventBonded, Stash: stash, Amount: extra})
		return nil
	})
}

// UpdatePayee changes the reward account of a virtual staker.
func (s *Staking) UpdatePayee(stash, payee npos.Address) error {
	return s.txn("update_payee", func() error {
		if stash == payee {
			return reverts.ErrRewardDestinationRestricted
		}
		if virtual, err := s.ledgers.IsVirtual(stash); err != nil {
			return err
		} else if !virtual {
			return reverts.ErrNotStash
		}
		return s.ledgers.SetPayee(stash, ledger.Account(payee))
	})
}

// IsVirtual reports whether stash is a virtual staker.
func (s *Staking) IsVirtual(stash npos.Address) (bool, error) {
	return s.ledgers.IsVirtual(stash)
}
