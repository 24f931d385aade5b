// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"github.com/pkg/errors"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/staking/reverts"
	"github.com/vechain/npos/state"
)

// Ref addresses a ledger either by stash or by controller.
type Ref struct {
	Address      npos.Address
	IsController bool
}

func ByStash(stash npos.Address) Ref { return Ref{Address: stash} }
func ByController(controller npos.Address) Ref {
	return Ref{Address: controller, IsController: true}
}

// Integrity describes how a bond relates to its stored ledger and held funds.
type Integrity uint8

const (
	IntegrityOK Integrity = iota
	// IntegrityCorrupted means the controller's ledger belongs to another stash.
	IntegrityCorrupted
	// IntegrityCorruptedKilled means the bond exists but the ledger is gone.
	IntegrityCorruptedKilled
	// IntegrityLockCorrupted means the held funds differ from the ledger total.
	IntegrityLockCorrupted
)

// Repository stores ledgers keyed by controller, the stash to controller
// bond, reward destinations and the virtual staker set.
type Repository struct {
	ledgers *state.Mapping[npos.Address, *StakingLedger]
	bonded  *state.Mapping[npos.Address, npos.Address]
	payees  *state.Mapping[npos.Address, RewardDestination]
	virtual *state.Mapping[npos.Address, bool]
}

func NewRepository(st *state.State) *Repository {
	return &Repository{
		ledgers: state.NewMapping[npos.Address, *StakingLedger](st, "staking/ledger/"),
		bonded:  state.NewMapping[npos.Address, npos.Address](st, "staking/bonded/"),
		payees:  state.NewMapping[npos.Address, RewardDestination](st, "staking/payee/"),
		virtual: state.NewMapping[npos.Address, bool](st, "staking/virtual/"),
	}
}

func (r *Repository) getLedger(controller npos.Address) (*StakingLedger, bool, error) {
	l, found, err := r.ledgers.Get(controller)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to get ledger")
	}
	if !found {
		return nil, false, nil
	}
	if len(l.Unlocking) == 0 {
		l.Unlocking = nil
	}
	if len(l.LegacyClaimedRewards) == 0 {
		l.LegacyClaimedRewards = nil
	}
	l.Controller = controller
	return l, true, nil
}

// Bonded returns the controller of stash.
func (r *Repository) Bonded(stash npos.Address) (npos.Address, bool, error) {
	controller, found, err := r.bonded.Get(stash)
	if err != nil {
		return npos.Address{}, false, errors.Wrap(err, "failed to get bonded")
	}
	return controller, found, nil
}

// IsBonded reports whether the account is a bonded stash or a controller.
func (r *Repository) IsBonded(account Ref) (bool, error) {
	if account.IsController {
		found, err := r.ledgers.Has(account.Address)
		return found, errors.Wrap(err, "failed to get ledger")
	}
	found, err := r.bonded.Has(account.Address)
	return found, errors.Wrap(err, "failed to get bonded")
}

// Get loads the ledger of account. The stash, controller and ledger must
// agree, otherwise ErrBadState is returned.
func (r *Repository) Get(account Ref) (*StakingLedger, error) {
	var stash, controller npos.Address
	if account.IsController {
		controller = account.Address
		l, found, err := r.getLedger(controller)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, reverts.ErrNotController
		}
		stash = l.Stash
	} else {
		stash = account.Address
		c, found, err := r.Bonded(stash)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, reverts.ErrNotStash
		}
		controller = c
	}

	l, found, err := r.getLedger(controller)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, reverts.ErrNotController
	}

	bondedController, found, err := r.Bonded(stash)
	if err != nil {
		return nil, err
	}
	if !found || bondedController != controller || l.Stash != stash {
		return nil, reverts.ErrBadState
	}
	return l, nil
}

// Put writes the ledger under its controller.
func (r *Repository) Put(l *StakingLedger) error {
	controller := l.Controller
	if controller.IsZero() {
		controller = l.Stash
	}
	if err := r.ledgers.Set(controller, l); err != nil {
		return errors.Wrap(err, "failed to set ledger")
	}
	return nil
}

// Bond registers a new ledger with the stash as its own controller.
func (r *Repository) Bond(l *StakingLedger, payee RewardDestination) error {
	bonded, err := r.bonded.Has(l.Stash)
	if err != nil {
		return errors.Wrap(err, "failed to get bonded")
	}
	if bonded {
		return reverts.ErrAlreadyBonded
	}
	l.Controller = l.Stash
	if err := r.payees.Set(l.Stash, payee); err != nil {
		return errors.Wrap(err, "failed to set payee")
	}
	if err := r.bonded.Set(l.Stash, l.Stash); err != nil {
		return errors.Wrap(err, "failed to set bonded")
	}
	return r.Put(l)
}

// SetBonded overwrites the stash to controller link.
func (r *Repository) SetBonded(stash, controller npos.Address) error {
	return errors.Wrap(r.bonded.Set(stash, controller), "failed to set bonded")
}

// SetControllerToStash moves the ledger under the stash key.
func (r *Repository) SetControllerToStash(l *StakingLedger) error {
	if l.Stash == l.Controller {
		return reverts.ErrAlreadyPaired
	}
	existing, found, err := r.getLedger(l.Stash)
	if err != nil {
		return err
	}
	if found && existing.Stash != l.Stash {
		return reverts.ErrBadState
	}
	r.ledgers.Delete(l.Controller)
	l.Controller = l.Stash
	if err := r.Put(l); err != nil {
		return err
	}
	return r.SetBonded(l.Stash, l.Stash)
}

// Kill removes the ledger, bond and payee of stash. It reports whether the
// stash was a virtual staker.
func (r *Repository) Kill(stash npos.Address) (bool, error) {
	controller, found, err := r.Bonded(stash)
	if err != nil {
		return false, err
	}
	if !found {
		return false, reverts.ErrNotStash
	}
	l, found, err := r.getLedger(controller)
	if err != nil {
		return false, err
	}
	if !found {
		return false, reverts.ErrNotController
	}
	r.ledgers.Delete(controller)
	r.bonded.Delete(stash)
	r.payees.Delete(stash)

	virtual, err := r.IsVirtual(l.Stash)
	if err != nil {
		return false, err
	}
	if virtual {
		r.virtual.Delete(l.Stash)
	}
	return virtual, nil
}

func (r *Repository) Payee(stash npos.Address) (RewardDestination, bool, error) {
	p, found, err := r.payees.Get(stash)
	if err != nil {
		return RewardDestination{}, false, errors.Wrap(err, "failed to get payee")
	}
	return p, found, nil
}

func (r *Repository) SetPayee(stash npos.Address, payee RewardDestination) error {
	return errors.Wrap(r.payees.Set(stash, payee), "failed to set payee")
}

func (r *Repository) IsVirtual(stash npos.Address) (bool, error) {
	found, err := r.virtual.Has(stash)
	if err != nil {
		return false, errors.Wrap(err, "failed to get virtual staker")
	}
	return found, nil
}

func (r *Repository) SetVirtual(stash npos.Address) error {
	return errors.Wrap(r.virtual.Set(stash, true), "failed to set virtual staker")
}

// Inspect classifies the bond of stash given the amount currently held for it.
func (r *Repository) Inspect(stash npos.Address, held npos.Balance) (Integrity, error) {
	controller, found, err := r.Bonded(stash)
	if err != nil {
		return 0, err
	}
	if !found {
		if held == 0 {
			return 0, reverts.ErrNotStash
		}
		return 0, reverts.ErrBadState
	}
	l, found, err := r.getLedger(controller)
	if err != nil {
		return 0, err
	}
	switch {
	case !found:
		return IntegrityCorruptedKilled, nil
	case l.Stash != stash:
		return IntegrityCorrupted, nil
	case l.Total != held:
		return IntegrityLockCorrupted, nil
	default:
		return IntegrityOK, nil
	}
}

// IterateBonded visits every stash and its controller in stash order.
func (r *Repository) IterateBonded(fn func(stash, controller npos.Address) (bool, error)) error {
	return r.bonded.Iterate(func(key []byte, controller npos.Address) (bool, error) {
		return fn(npos.BytesToAddress(key), controller)
	})
}

// DeleteLedger removes the ledger stored under controller.
func (r *Repository) DeleteLedger(controller npos.Address) {
	r.ledgers.Delete(controller)
}
