// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"time"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
	"github.com/vechain/npos/staking/election"
)

// Currency holds staked funds and pays rewards.
type Currency interface {
	MinimumBalance() npos.Balance
	TotalIssuance() (npos.Balance, error)
	TotalBalance(who npos.Address) (npos.Balance, error)
	Stakeable(who npos.Address) (npos.Balance, error)
	Staked(who npos.Address) (npos.Balance, error)
	UpdateStake(who npos.Address, amount npos.Balance) error
	ReleaseStake(who npos.Address) error
	Slash(who npos.Address, amount npos.Balance) (npos.Balance, error)
	Mint(who npos.Address, amount npos.Balance) (npos.Balance, error)
}

// SessionInterface is the validator set rotation.
type SessionInterface interface {
	// Validators returns the validators of the current session.
	Validators() []npos.Address
	// DisableValidator disables the validator at index for the rest of the era.
	DisableValidator(index uint32) bool
}

// SessionCheckpointer is implemented by sessions whose changes are undone
// together with the state when an operation fails.
type SessionCheckpointer interface {
	// Checkpoint captures the session and returns a func restoring it.
	Checkpoint() (restore func())
}

// ElectionProvider selects validators from the staking snapshot.
type ElectionProvider = election.Provider

// EraPayout computes the inflation of an era.
type EraPayout interface {
	EraPayout(totalStaked, totalIssuance npos.Balance, eraDurationMillis uint64) (validatorPayout, remainder npos.Balance)
}

// RewardRemainder receives the part of the era inflation not paid to stakers.
type RewardRemainder interface {
	OnRemainder(amount npos.Balance) error
}

// SlashObserver is told about slashes of virtual stakers, whose funds are held
// elsewhere.
type SlashObserver interface {
	OnSlash(stash npos.Address, active npos.Balance, unlocking map[npos.EraIndex]npos.Balance, total npos.Balance)
}

// Clock provides the unix time in milliseconds.
type Clock interface {
	NowMillis() uint64
}

// FixedPayout pays the same amounts every era.
type FixedPayout struct {
	Validator npos.Balance `yaml:"validator"`
	Remainder npos.Balance `yaml:"remainder"`
}

func (f FixedPayout) EraPayout(npos.Balance, npos.Balance, uint64) (npos.Balance, npos.Balance) {
	return f.Validator, f.Remainder
}

const millisPerYear = 1000 * 3600 * 24 * 36525 / 100

// InflationCurve mints Annual of the issuance per year, prorated by era
// duration, and gives StakerShare of it to stakers.
type InflationCurve struct {
	Annual      perthing.Perbill `yaml:"annual"`
	StakerShare perthing.Perbill `yaml:"staker-share"`
}

func (c InflationCurve) EraPayout(_, totalIssuance npos.Balance, eraDurationMillis uint64) (npos.Balance, npos.Balance) {
	yearly := c.Annual.Mul(totalIssuance)
	total, _ := perthing.MulDiv(yearly, eraDurationMillis, millisPerYear, perthing.Down)
	validator := c.StakerShare.Mul(total)
	return validator, total - validator
}

// TreasuryRemainder mints remainders into a treasury account.
type TreasuryRemainder struct {
	Currency Currency
	Account  npos.Address
}

func (t *TreasuryRemainder) OnRemainder(amount npos.Balance) error {
	_, err := t.Currency.Mint(t.Account, amount)
	return err
}

type systemClock struct{}

func (systemClock) NowMillis() uint64 { return uint64(time.Now().UnixMilli()) }

type nopSession struct{}

func (nopSession) Validators() []npos.Address   { return nil }
func (nopSession) DisableValidator(uint32) bool { return false }

type nopRemainder struct{}

func (nopRemainder) OnRemainder(npos.Balance) error { return nil }

type nopObserver struct{}

func (nopObserver) OnSlash(npos.Address, npos.Balance, map[npos.EraIndex]npos.Balance, npos.Balance) {
}
