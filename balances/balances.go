// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package balances keeps account balances of the staking currency. Every
// account has a free part and a staked part held by the staking engine.
package balances

import (
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/staking/reverts"
	"github.com/vechain/npos/state"
)

var logger = log.New("pkg", "balances")

// SetLogger replaces the package logger.
func SetLogger(l log.Logger) {
	logger = l
}

// Account is the stored balance record of an account.
type Account struct {
	Free   npos.Balance
	Staked npos.Balance
}

// Total is the sum of free and staked balance.
func (a *Account) Total() npos.Balance {
	return a.Free + a.Staked
}

// Ledger implements the currency over the state.
type Ledger struct {
	accounts *state.Mapping[npos.Address, *Account]
	issuance *state.Value[npos.Balance]
	ed       npos.Balance
}

func New(st *state.State, existentialDeposit npos.Balance) *Ledger {
	return &Ledger{
		accounts: state.NewMapping[npos.Address, *Account](st, "balances/account/"),
		issuance: state.NewValue[npos.Balance](st, "balances/issuance"),
		ed:       existentialDeposit,
	}
}

// MinimumBalance returns the existential deposit.
func (l *Ledger) MinimumBalance() npos.Balance {
	return l.ed
}

func (l *Ledger) TotalIssuance() (npos.Balance, error) {
	issuance, err := l.issuance.GetOr(0)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get issuance")
	}
	return issuance, nil
}

// Account returns the balance record of who. Unknown accounts are empty.
func (l *Ledger) Account(who npos.Address) (*Account, error) {
	acc, found, err := l.accounts.Get(who)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get account")
	}
	if !found {
		return &Account{}, nil
	}
	return acc, nil
}

func (l *Ledger) setAccount(who npos.Address, acc *Account) error {
	if acc.Total() == 0 {
		l.accounts.Delete(who)
		return nil
	}
	return l.accounts.Set(who, acc)
}

func (l *Ledger) TotalBalance(who npos.Address) (npos.Balance, error) {
	acc, err := l.Account(who)
	if err != nil {
		return 0, err
	}
	return acc.Total(), nil
}

// Stakeable is the part of the balance the staking engine may hold.
func (l *Ledger) Stakeable(who npos.Address) (npos.Balance, error) {
	return l.TotalBalance(who)
}

func (l *Ledger) Free(who npos.Address) (npos.Balance, error) {
	acc, err := l.Account(who)
	if err != nil {
		return 0, err
	}
	return acc.Free, nil
}

func (l *Ledger) Staked(who npos.Address) (npos.Balance, error) {
	acc, err := l.Account(who)
	if err != nil {
		return 0, err
	}
	return acc.Staked, nil
}

// UpdateStake sets the staked part of who to amount, moving the difference
// between free and staked.
func (l *Ledger) UpdateStake(who npos.Address, amount npos.Balance) error {
	acc, err := l.Account(who)
	if err != nil {
		return err
	}
	total := acc.Total()
	if amount > total {
		return reverts.ErrFundsUnavailable
	}
	acc.Staked = amount
	acc.Free = total - amount
	return l.setAccount(who, acc)
}

// ReleaseStake frees the whole staked part of who.
func (l *Ledger) ReleaseStake(who npos.Address) error {
	return l.UpdateStake(who, 0)
}

// Slash burns up to amount from who, staked funds first. It returns the
// amount actually burned.
func (l *Ledger) Slash(who npos.Address, amount npos.Balance) (npos.Balance, error) {
	acc, err := l.Account(who)
	if err != nil {
		return 0, err
	}
	fromStaked := min(amount, acc.Staked)
	acc.Staked -= fromStaked
	fromFree := min(amount-fromStaked, acc.Free)
	acc.Free -= fromFree
	slashed := fromStaked + fromFree
	if slashed == 0 {
		return 0, nil
	}
	if err := l.setAccount(who, acc); err != nil {
		return 0, err
	}
	issuance, err := l.TotalIssuance()
	if err != nil {
		return 0, err
	}
	if err := l.issuance.Set(issuance - min(slashed, issuance)); err != nil {
		return 0, errors.Wrap(err, "failed to set issuance")
	}
	logger.Debug("slashed", "who", who, "amount", slashed, "missing", amount-slashed)
	return slashed, nil
}

// Mint creates amount into the free balance of who. Minting less than the
// existential deposit into an empty account creates nothing and returns 0.
func (l *Ledger) Mint(who npos.Address, amount npos.Balance) (npos.Balance, error) {
	if amount == 0 {
		return 0, nil
	}
	acc, err := l.Account(who)
	if err != nil {
		return 0, err
	}
	if acc.Total() == 0 && amount < l.ed {
		return 0, nil
	}
	issuance, err := l.TotalIssuance()
	if err != nil {
		return 0, err
	}
	newIssuance, overflow := math.SafeAdd(issuance, amount)
	if overflow {
		return 0, errors.New("issuance overflow")
	}
	free, overflow := math.SafeAdd(acc.Free, amount)
	if overflow {
		return 0, errors.New("balance overflow")
	}
	acc.Free = free
	if err := l.setAccount(who, acc); err != nil {
		return 0, err
	}
	if err := l.issuance.Set(newIssuance); err != nil {
		return 0, errors.Wrap(err, "failed to set issuance")
	}
	return amount, nil
}

// Transfer moves amount of free balance from one account to another.
func (l *Ledger) Transfer(from, to npos.Address, amount npos.Balance) error {
	if amount == 0 || from == to {
		return nil
	}
	src, err := l.Account(from)
	if err != nil {
		return err
	}
	if src.Free < amount {
		return reverts.ErrInsufficientBalance
	}
	dst, err := l.Account(to)
	if err != nil {
		return err
	}
	if dst.Total() == 0 && amount < l.ed {
		return reverts.ErrInsufficientBalance
	}
	src.Free -= amount
	if src.Total() != 0 && src.Total() < l.ed {
		return reverts.ErrInsufficientBalance
	}
	credited, overflow := math.SafeAdd(dst.Free, amount)
	if overflow {
		return errors.New("balance overflow")
	}
	dst.Free = credited
	if err := l.setAccount(from, src); err != nil {
		return err
	}
	return l.setAccount(to, dst)
}

// Iterate visits every account with a nonzero balance in address order.
func (l *Ledger) Iterate(fn func(who npos.Address, acc *Account) (bool, error)) error {
	return l.accounts.Iterate(func(key []byte, acc *Account) (bool, error) {
		return fn(npos.BytesToAddress(key), acc)
	})
}
