// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis describes the initial balances and stakers of a network and
// builds the staking engine from them.
package genesis

import (
	"bytes"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vechain/npos/balances"
	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
	"github.com/vechain/npos/staking"
	"github.com/vechain/npos/staking/exposure"
	"github.com/vechain/npos/staking/ledger"
	"github.com/vechain/npos/state"
)

var logger = log.New("pkg", "genesis")

func SetLogger(l log.Logger) {
	logger = l
}

// Role of a genesis staker.
type Role string

const (
	RoleValidator Role = "validator"
	RoleNominator Role = "nominator"
	RoleIdle      Role = "idle"
)

// Genesis is the network setup applied before era 0.
type Genesis struct {
	Name                  string         `yaml:"name"`
	ExistentialDeposit    npos.Balance   `yaml:"existential-deposit"`
	Staking               staking.Config `yaml:"staking"`
	Payout                Payout         `yaml:"payout"`
	Treasury              *npos.Address  `yaml:"treasury"`
	Accounts              []Account      `yaml:"accounts"`
	Stakers               []Staker       `yaml:"stakers"`
	Invulnerables         []npos.Address `yaml:"invulnerables"`
	ValidatorCount        uint32         `yaml:"validator-count"`
	MinimumValidatorCount uint32         `yaml:"minimum-validator-count"`
	Params                Params         `yaml:"params"`
}

// Payout selects the era inflation model. At most one may be set, none
// means no inflation.
type Payout struct {
	Fixed     *staking.FixedPayout `yaml:"fixed"`
	Inflation *Inflation           `yaml:"inflation"`
}

// Inflation is staking.InflationCurve with readable fractions.
type Inflation struct {
	Annual      Fraction `yaml:"annual"`
	StakerShare Fraction `yaml:"staker-share"`
}

type Account struct {
	Address npos.Address `yaml:"address"`
	Balance npos.Balance `yaml:"balance"`
}

// Staker is bonded at genesis. An unfunded stash is minted its bond.
type Staker struct {
	Stash      npos.Address   `yaml:"stash"`
	Bond       npos.Balance   `yaml:"bond"`
	Role       Role           `yaml:"role"`
	Commission Fraction       `yaml:"commission"`
	Blocked    bool           `yaml:"blocked"`
	Targets    []npos.Address `yaml:"targets"`
	// Payee is staked, stash, none or an account address. Empty means staked.
	Payee string `yaml:"payee"`
}

// Params are the dynamic staking parameters. Unset fields keep their defaults.
type Params struct {
	MinNominatorBond *npos.Balance     `yaml:"min-nominator-bond"`
	MinValidatorBond *npos.Balance     `yaml:"min-validator-bond"`
	MaxNominators    *uint32           `yaml:"max-nominators"`
	MaxValidators    *uint32           `yaml:"max-validators"`
	ChillThreshold   *perthing.Percent `yaml:"chill-threshold"`
	MinCommission    *Fraction         `yaml:"min-commission"`
	MaxStakedRewards *perthing.Percent `yaml:"max-staked-rewards"`
}

func setOrNoop[T any](v *T) staking.ConfigOp[T] {
	if v == nil {
		return staking.Noop[T]()
	}
	return staking.Set(*v)
}

func (p *Params) configs() staking.StakingConfigs {
	minCommission := staking.Noop[perthing.Perbill]()
	if p.MinCommission != nil {
		minCommission = staking.Set(p.MinCommission.Perbill())
	}
	return staking.StakingConfigs{
		MinNominatorBond: setOrNoop(p.MinNominatorBond),
		MinValidatorBond: setOrNoop(p.MinValidatorBond),
		MaxNominators:    setOrNoop(p.MaxNominators),
		MaxValidators:    setOrNoop(p.MaxValidators),
		ChillThreshold:   setOrNoop(p.ChillThreshold),
		MinCommission:    minCommission,
		MaxStakedRewards: setOrNoop(p.MaxStakedRewards),
	}
}

// Default returns an empty genesis with the default staking config.
func Default() *Genesis {
	return &Genesis{
		Name:                  "custom",
		ExistentialDeposit:    1,
		Staking:               staking.DefaultConfig(),
		MinimumValidatorCount: 1,
	}
}

// Parse decodes a yaml genesis over the defaults. Unknown keys are errors.
func Parse(data []byte) (*Genesis, error) {
	gen := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(gen); err != nil {
		return nil, errors.Wrap(err, "decode genesis")
	}
	if err := gen.Validate(); err != nil {
		return nil, err
	}
	return gen, nil
}

// Load reads a yaml genesis file.
func Load(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read genesis file")
	}
	return Parse(data)
}

// Validate checks the genesis before it is applied.
func (g *Genesis) Validate() error {
	if err := g.Staking.Validate(); err != nil {
		return errors.Wrap(err, "staking")
	}
	if g.Payout.Fixed != nil && g.Payout.Inflation != nil {
		return errors.New("payout: fixed and inflation are exclusive")
	}
	if g.ValidatorCount > g.Staking.MaxValidatorSet {
		return errors.Errorf("validator count %d above max validator set %d", g.ValidatorCount, g.Staking.MaxValidatorSet)
	}
	if uint32(len(g.Invulnerables)) > g.Staking.MaxInvulnerables {
		return errors.New("too many invulnerables")
	}

	stashes := make(map[npos.Address]Role, len(g.Stakers))
	for i, s := range g.Stakers {
		if s.Stash.IsZero() {
			return errors.Errorf("staker %d: missing stash", i)
		}
		if _, dup := stashes[s.Stash]; dup {
			return errors.Errorf("staker %v: duplicated", s.Stash)
		}
		if s.Bond < g.ExistentialDeposit {
			return errors.Errorf("staker %v: bond below existential deposit", s.Stash)
		}
		switch s.Role {
		case RoleValidator, RoleIdle, "":
			if len(s.Targets) > 0 {
				return errors.Errorf("staker %v: only nominators have targets", s.Stash)
			}
		case RoleNominator:
			if len(s.Targets) == 0 {
				return errors.Errorf("staker %v: nominator without targets", s.Stash)
			}
		default:
			return errors.Errorf("staker %v: unknown role %q", s.Stash, s.Role)
		}
		if _, err := s.payee(); err != nil {
			return errors.Wrapf(err, "staker %v", s.Stash)
		}
		stashes[s.Stash] = s.Role
	}
	for _, s := range g.Stakers {
		for _, t := range s.Targets {
			if stashes[t] != RoleValidator {
				return errors.Errorf("staker %v: target %v is not a genesis validator", s.Stash, t)
			}
		}
	}
	return nil
}

func (s *Staker) payee() (ledger.RewardDestination, error) {
	if s.Payee == "" {
		return ledger.Staked, nil
	}
	if strings.HasPrefix(s.Payee, "0x") {
		addr, err := npos.ParseAddress(s.Payee)
		if err != nil {
			return ledger.RewardDestination{}, err
		}
		return ledger.Account(*addr), nil
	}
	kind, err := ledger.ParseDestinationKind(s.Payee)
	if err != nil {
		return ledger.RewardDestination{}, err
	}
	if kind == ledger.PayAccount || kind == ledger.PayController {
		return ledger.RewardDestination{}, errors.Errorf("payee %q needs an address", s.Payee)
	}
	return ledger.RewardDestination{Kind: kind}, nil
}

func (p *Payout) model() staking.EraPayout {
	switch {
	case p.Fixed != nil:
		return *p.Fixed
	case p.Inflation != nil:
		return staking.InflationCurve{Annual: p.Inflation.Annual.Perbill(), StakerShare: p.Inflation.StakerShare.Perbill()}
	}
	return nil
}

// Network is the engine built from a genesis with its collaborators.
type Network struct {
	Staking  *staking.Staking
	Balances *balances.Ledger
	Rotation *staking.Rotation
}

// Open creates the engine over st without touching it. opts fills the
// collaborators the genesis does not describe; its Session is ignored.
func (g *Genesis) Open(st *state.State, opts staking.Options) (*Network, error) {
	bal := balances.New(st, g.ExistentialDeposit)
	rotation := staking.NewRotation(nil)

	opts.Session = rotation
	if opts.Payout == nil {
		opts.Payout = g.Payout.model()
	}
	if opts.Remainder == nil && g.Treasury != nil {
		opts.Remainder = &staking.TreasuryRemainder{Currency: bal, Account: *g.Treasury}
	}
	s, err := staking.New(g.Staking, st, bal, opts)
	if err != nil {
		return nil, err
	}
	return &Network{Staking: s, Balances: bal, Rotation: rotation}, nil
}

// Build opens the engine over an empty st, applies the genesis and starts
// era 0. The changes are left uncommitted in st.
func (g *Genesis) Build(st *state.State, opts staking.Options) (*Network, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	n, err := g.Open(st, opts)
	if err != nil {
		return nil, err
	}
	if _, found, err := n.Staking.CurrentEra(); err != nil {
		return nil, err
	} else if found {
		return nil, errors.New("state already has a genesis")
	}

	for _, acc := range g.Accounts {
		if _, err := n.Balances.Mint(acc.Address, acc.Balance); err != nil {
			return nil, errors.Wrapf(err, "mint %v", acc.Address)
		}
	}
	if err := g.applyStakers(n); err != nil {
		return nil, err
	}
	if err := g.applyParams(n.Staking); err != nil {
		return nil, err
	}

	elected, err := n.Staking.StartGenesis()
	if err != nil {
		return nil, errors.Wrap(err, "start genesis")
	}
	logger.Info("genesis built", "name", g.Name, "accounts", len(g.Accounts), "stakers", len(g.Stakers), "elected", len(elected))
	return n, nil
}

func (g *Genesis) applyStakers(n *Network) error {
	for _, s := range g.Stakers {
		total, err := n.Balances.TotalBalance(s.Stash)
		if err != nil {
			return err
		}
		if total < s.Bond {
			if _, err := n.Balances.Mint(s.Stash, s.Bond-total); err != nil {
				return errors.Wrapf(err, "fund %v", s.Stash)
			}
		}
		payee, _ := s.payee()
		if err := n.Staking.Bond(staking.Signed(s.Stash), s.Bond, payee); err != nil {
			return errors.Wrapf(err, "bond %v", s.Stash)
		}
		if s.Role == RoleValidator {
			prefs := staking.ValidatorPrefs{Commission: s.Commission.Perbill(), Blocked: s.Blocked}
			if err := n.Staking.Validate(staking.Signed(s.Stash), prefs); err != nil {
				return errors.Wrapf(err, "validate %v", s.Stash)
			}
		}
	}
	// validators first so nominations see their prefs
	for _, s := range g.Stakers {
		if s.Role != RoleNominator {
			continue
		}
		if err := n.Staking.Nominate(staking.Signed(s.Stash), s.Targets); err != nil {
			return errors.Wrapf(err, "nominate %v", s.Stash)
		}
	}
	return nil
}

func (g *Genesis) applyParams(s *staking.Staking) error {
	count := g.ValidatorCount
	if count == 0 {
		for _, st := range g.Stakers {
			if st.Role == RoleValidator {
				count++
			}
		}
	}
	if err := s.SetValidatorCount(staking.Root(), count); err != nil {
		return errors.Wrap(err, "validator count")
	}
	if err := s.SetMinimumValidatorCount(staking.Root(), g.MinimumValidatorCount); err != nil {
		return errors.Wrap(err, "minimum validator count")
	}
	if len(g.Invulnerables) > 0 {
		if err := s.SetInvulnerables(staking.Root(), g.Invulnerables); err != nil {
			return errors.Wrap(err, "invulnerables")
		}
	}
	if err := s.SetStakingConfigs(staking.Root(), g.Params.configs()); err != nil {
		return errors.Wrap(err, "params")
	}
	return nil
}

// Resume restores the session rotation of a network reopened from committed
// state. The current set is the stakers of the active era, the queued set
// those of an era planned but not yet started, and offenders flagged for
// disabling stay disabled.
func (n *Network) Resume() error {
	active, found, err := n.Staking.ActiveEra()
	if err != nil {
		return err
	}
	if !found {
		return errors.New("no active era")
	}
	validators, err := n.eraValidators(active.Index)
	if err != nil {
		return err
	}
	rotation := staking.NewRotation(validators)

	current, _, err := n.Staking.CurrentEra()
	if err != nil {
		return err
	}
	if current > active.Index {
		queued, err := n.eraValidators(current)
		if err != nil {
			return err
		}
		if len(queued) > 0 {
			rotation.Queue(queued)
		}
	}

	offending, err := n.Staking.OffendingValidators()
	if err != nil {
		return err
	}
	for _, o := range offending {
		if o.Disabled {
			rotation.DisableValidator(o.Index)
		}
	}
	*n.Rotation = *rotation
	logger.Debug("rotation resumed", "era", active.Index, "planned", current, "validators", len(validators), "disabled", len(rotation.Disabled()))
	return nil
}

func (n *Network) eraValidators(era npos.EraIndex) ([]npos.Address, error) {
	var validators []npos.Address
	err := n.Staking.Exposures().IterateOverviews(era, func(v npos.Address, _ *exposure.Metadata) (bool, error) {
		validators = append(validators, v)
		return true, nil
	})
	return validators, err
}
