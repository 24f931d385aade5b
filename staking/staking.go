// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package staking implements the bonded stake accounting, slashing and era
// reward engine of a nominated proof-of-stake chain.
package staking

import (
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/staking/election"
	"github.com/vechain/npos/staking/exposure"
	"github.com/vechain/npos/staking/ledger"
	"github.com/vechain/npos/staking/slashing"
	"github.com/vechain/npos/state"
)

var logger = log.New("pkg", "staking")

func SetLogger(l log.Logger) {
	logger = l
}

// Options are the collaborators of the engine. Nil fields get defaults.
type Options struct {
	Session   SessionInterface
	Election  ElectionProvider
	Payout    EraPayout
	Remainder RewardRemainder
	Observer  SlashObserver
	Clock     Clock
	// Restricted, when set, refuses bonds from the accounts it matches.
	Restricted func(who npos.Address) bool
}

// Staking is the staking engine. Every exported mutating method runs as one
// transaction over the state: on error all its writes and events are
// discarded. It is not safe for concurrent use.
type Staking struct {
	cfg      Config
	state    *state.State
	currency Currency

	session   SessionInterface
	elect     ElectionProvider
	payout    EraPayout
	remainder RewardRemainder
	observer  SlashObserver
	clock     Clock
	restrict  func(npos.Address) bool

	ledgers   *ledger.Repository
	exposures *exposure.Repository
	slashing  *slashing.Repository
	store     *storage

	events []*Event
}

// New creates the engine over st.
func New(cfg Config, st *state.State, currency Currency, opts Options) (*Staking, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid staking config")
	}
	s := &Staking{
		cfg:       cfg,
		state:     st,
		currency:  currency,
		session:   opts.Session,
		elect:     opts.Election,
		payout:    opts.Payout,
		remainder: opts.Remainder,
		observer:  opts.Observer,
		clock:     opts.Clock,
		restrict:  opts.Restricted,
		ledgers:   ledger.NewRepository(st),
		exposures: exposure.NewRepository(st),
		slashing:  slashing.NewRepository(st),
		store:     newStorage(st),
	}
	if s.session == nil {
		s.session = nopSession{}
	}
	if s.elect == nil {
		s.elect = &election.Approval{VoterBounds: cfg.VoterBounds, TargetBounds: cfg.TargetBounds}
	}
	if s.payout == nil {
		s.payout = FixedPayout{}
	}
	if s.remainder == nil {
		s.remainder = nopRemainder{}
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.clock == nil {
		s.clock = systemClock{}
	}
	return s, nil
}

// Config returns the static parameters.
func (s *Staking) Config() Config {
	return s.cfg
}

// txn runs fn atomically. On error the state is rolled back to the
// checkpoint taken on entry and the events of fn are dropped. A session
// implementing SessionCheckpointer is restored as well.
func (s *Staking) txn(op string, fn func() error) error {
	rev := s.state.NewCheckpoint()
	nev := len(s.events)
	var restore func()
	if cp, ok := s.session.(SessionCheckpointer); ok {
		restore = cp.Checkpoint()
	}
	if err := fn(); err != nil {
		s.state.RevertTo(rev)
		if restore != nil {
			restore()
		}
		for i := nev; i < len(s.events); i++ {
			s.events[i] = nil
		}
		s.events = s.events[:nev]
		metricOps().AddWithLabel(1, map[string]string{"op": op, "status": "failed"})
		return err
	}
	metricOps().AddWithLabel(1, map[string]string{"op": op, "status": "ok"})
	return nil
}

func (s *Staking) minimumBalance() npos.Balance {
	return s.currency.MinimumBalance()
}

// CurrentEra is the latest planned era.
func (s *Staking) CurrentEra() (npos.EraIndex, bool, error) {
	return optional(s.store.currentEra)
}

// ActiveEra is the era being rewarded.
func (s *Staking) ActiveEra() (ActiveEraInfo, bool, error) {
	return optional(s.store.activeEra)
}

func (s *Staking) currentEraOrZero() (npos.EraIndex, error) {
	era, _, err := s.CurrentEra()
	return era, err
}

// Ledger loads a ledger by stash or controller.
func (s *Staking) Ledger(account ledger.Ref) (*ledger.StakingLedger, error) {
	return s.ledgers.Get(account)
}

// Payee returns the reward destination of stash.
func (s *Staking) Payee(stash npos.Address) (ledger.RewardDestination, bool, error) {
	return s.ledgers.Payee(stash)
}

// Validator returns the preferences of a registered validator.
func (s *Staking) Validator(stash npos.Address) (*ValidatorPrefs, bool, error) {
	return s.store.validatorPrefs(stash)
}

// Nominator returns the nominations of a registered nominator.
func (s *Staking) Nominator(stash npos.Address) (*Nominations, bool, error) {
	return s.store.nominations(stash)
}

// IterateValidators visits registered validators in address order.
func (s *Staking) IterateValidators(fn func(stash npos.Address, prefs *ValidatorPrefs) (bool, error)) error {
	return s.store.validators.Iterate(func(key []byte, prefs *ValidatorPrefs) (bool, error) {
		return fn(npos.BytesToAddress(key), prefs)
	})
}

// IterateNominators visits registered nominators in address order.
func (s *Staking) IterateNominators(fn func(stash npos.Address, noms *Nominations) (bool, error)) error {
	return s.store.nominators.Iterate(func(key []byte, noms *Nominations) (bool, error) {
		return fn(npos.BytesToAddress(key), noms)
	})
}

// Counts returns the number of registered validators and nominators.
func (s *Staking) Counts() (validators, nominators uint32, err error) {
	if validators, err = valueOr(s.store.validatorsSize, 0); err != nil {
		return
	}
	nominators, err = valueOr(s.store.nominatorsSize, 0)
	return
}

// ForceEra returns the era forcing mode.
func (s *Staking) ForceEra() (Forcing, error) {
	return valueOr(s.store.forceEra, NotForcing)
}

// ValidatorCount is the desired number of elected validators.
func (s *Staking) ValidatorCount() (uint32, error) {
	return valueOr(s.store.validatorCount, 0)
}

// Invulnerables returns the validators exempt from slashing.
func (s *Staking) Invulnerables() ([]npos.Address, error) {
	return valueOr(s.store.invulnerables, nil)
}

// BondedEras returns the eras still inside the bonding window with their
// first session.
func (s *Staking) BondedEras() ([]BondedEra, error) {
	return valueOr(s.store.bondedEras, nil)
}

// OffendingValidators returns the offenders of the active era.
func (s *Staking) OffendingValidators() ([]OffendingValidator, error) {
	return valueOr(s.store.offending, nil)
}

// MinimumActiveStake is the smallest voter stake in the last snapshot.
func (s *Staking) MinimumActiveStake() (npos.Balance, error) {
	return valueOr(s.store.minimumActiveStake, 0)
}

// EraStartSession is the first session of era.
func (s *Staking) EraStartSession(era npos.EraIndex) (npos.SessionIndex, bool, error) {
	session, found, err := s.store.erasStartSession.Get(npos.EraKey(era))
	return session, found, errors.Wrap(err, "failed to get era start session")
}

// EraValidatorReward is the total payout of era, absent until the era ends.
func (s *Staking) EraValidatorReward(era npos.EraIndex) (npos.Balance, bool, error) {
	reward, found, err := s.store.erasValidatorReward.Get(npos.EraKey(era))
	return reward, found, errors.Wrap(err, "failed to get era reward")
}

// EraTotalStake is the total exposed stake of era.
func (s *Staking) EraTotalStake(era npos.EraIndex) (npos.Balance, error) {
	total, _, err := s.store.erasTotalStake.Get(npos.EraKey(era))
	return total, errors.Wrap(err, "failed to get era total stake")
}

// EraRewardPoints returns the points of era.
func (s *Staking) EraRewardPoints(era npos.EraIndex) (*EraRewardPoints, error) {
	points, found, err := s.store.erasRewardPoints.Get(npos.EraKey(era))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get era reward points")
	}
	if !found {
		return &EraRewardPoints{}, nil
	}
	return points, nil
}

// EraValidatorPrefs returns the preferences a validator was elected with.
func (s *Staking) EraValidatorPrefs(era npos.EraIndex, validator npos.Address) (*ValidatorPrefs, error) {
	prefs, found, err := s.store.erasValidatorPrefs.Get(npos.EraAddressKey{Era: era, Account: validator})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get era validator prefs")
	}
	if !found {
		return &ValidatorPrefs{}, nil
	}
	return prefs, nil
}

// Exposures gives read access to the exposure snapshots.
func (s *Staking) Exposures() *exposure.Repository {
	return s.exposures
}

// Slashing gives read access to the slashing records.
func (s *Staking) Slashing() *slashing.Repository {
	return s.slashing
}

// updateLedger writes l and holds its total from the stash, unless the stash
// is a virtual staker whose funds are held elsewhere.
func (s *Staking) updateLedger(l *ledger.StakingLedger) error {
	virtual, err := s.ledgers.IsVirtual(l.Stash)
	if err != nil {
		return err
	}
	if !virtual {
		if err := s.currency.UpdateStake(l.Stash, l.Total); err != nil {
			return err
		}
	}
	return s.ledgers.Put(l)
}

// killStash removes every trace of stash.
func (s *Staking) killStash(stash npos.Address, numSlashingSpans uint32) error {
	if err := s.slashing.ClearStashMetadata(stash, numSlashingSpans); err != nil {
		return err
	}
	virtual, err := s.ledgers.Kill(stash)
	if err != nil {
		return err
	}
	if !virtual {
		if err := s.currency.ReleaseStake(stash); err != nil {
			return err
		}
	}
	if _, err := s.removeValidator(stash); err != nil {
		return err
	}
	_, err = s.removeNominator(stash)
	return err
}
