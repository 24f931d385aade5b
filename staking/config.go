// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/pkg/errors"

	"github.com/vechain/npos/npos"
	"github.com/vechain/npos/perthing"
	"github.com/vechain/npos/staking/election"
	"github.com/vechain/npos/state"
)

// Config holds the static parameters of the engine.
type Config struct {
	SessionsPerEra      npos.SessionIndex `yaml:"sessions-per-era"`
	BondingDuration     npos.EraIndex     `yaml:"bonding-duration"`
	SlashDeferDuration  npos.EraIndex     `yaml:"slash-defer-duration"`
	HistoryDepth        uint32            `yaml:"history-depth"`
	MaxUnlockingChunks  uint32            `yaml:"max-unlocking-chunks"`
	MaxExposurePageSize uint32            `yaml:"max-exposure-page-size"`
	MaxNominations      uint32            `yaml:"max-nominations"`
	MaxValidatorSet     uint32            `yaml:"max-validator-set"`
	MaxInvulnerables    uint32            `yaml:"max-invulnerables"`
	MaxControllersBatch uint32            `yaml:"max-controllers-batch"`
	// SlashRewardFraction is the part of a slash set aside for reporters.
	SlashRewardFraction perthing.Perbill `yaml:"slash-reward-fraction"`
	// OffendingValidatorsThreshold is the part of the validator set that may
	// offend in an era before a new era is forced.
	OffendingValidatorsThreshold perthing.Perbill `yaml:"offending-validators-threshold"`
	AuthorPoints                 npos.RewardPoint `yaml:"author-points"`
	VoterBounds                  election.Bounds  `yaml:"voter-bounds"`
	TargetBounds                 election.Bounds  `yaml:"target-bounds"`
}

func DefaultConfig() Config {
	return Config{
		SessionsPerEra:               6,
		BondingDuration:              28,
		SlashDeferDuration:           27,
		HistoryDepth:                 84,
		MaxUnlockingChunks:           32,
		MaxExposurePageSize:          512,
		MaxNominations:               16,
		MaxValidatorSet:              1000,
		MaxInvulnerables:             20,
		MaxControllersBatch:          512,
		SlashRewardFraction:          perthing.PerbillFromPercent(10),
		OffendingValidatorsThreshold: perthing.PerbillFromPercent(17),
		AuthorPoints:                 20,
	}
}

// Validate checks the static parameters for consistency.
func (c *Config) Validate() error {
	switch {
	case c.SessionsPerEra == 0:
		return errors.New("sessions per era must be positive")
	case c.BondingDuration == 0:
		return errors.New("bonding duration must be positive")
	case c.SlashDeferDuration >= c.BondingDuration:
		return errors.New("slash defer duration must be shorter than the bonding duration")
	case c.HistoryDepth == 0:
		return errors.New("history depth must be positive")
	case c.MaxUnlockingChunks == 0:
		return errors.New("max unlocking chunks must be positive")
	case c.MaxExposurePageSize == 0:
		return errors.New("max exposure page size must be positive")
	case c.MaxNominations == 0:
		return errors.New("max nominations must be positive")
	case c.MaxValidatorSet == 0:
		return errors.New("max validator set must be positive")
	case c.SlashRewardFraction > perthing.PerbillAccuracy, c.OffendingValidatorsThreshold > perthing.PerbillAccuracy:
		return errors.New("fraction above one")
	}
	return nil
}

type opKind uint8

const (
	opNoop opKind = iota
	opSet
	opRemove
)

// ConfigOp changes one dynamic parameter: leave it, set it or clear it back
// to its default. The zero value is Noop.
type ConfigOp[T any] struct {
	kind  opKind
	value T
}

func Noop[T any]() ConfigOp[T]        { return ConfigOp[T]{} }
func Set[T any](value T) ConfigOp[T]  { return ConfigOp[T]{kind: opSet, value: value} }
func Remove[T any]() ConfigOp[T]      { return ConfigOp[T]{kind: opRemove} }
func (op ConfigOp[T]) IsNoop() bool   { return op.kind == opNoop }
func (op ConfigOp[T]) IsRemove() bool { return op.kind == opRemove }

// Value returns the value of a Set operation.
func (op ConfigOp[T]) Value() (T, bool) {
	return op.value, op.kind == opSet
}

func (op ConfigOp[T]) String() string {
	switch op.kind {
	case opSet:
		return "set"
	case opRemove:
		return "remove"
	default:
		return "noop"
	}
}

func (op ConfigOp[T]) apply(v *state.Value[T]) error {
	switch op.kind {
	case opSet:
		return v.Set(op.value)
	case opRemove:
		v.Delete()
	}
	return nil
}

// StakingConfigs is the set of dynamic parameters changed together.
type StakingConfigs struct {
	MinNominatorBond ConfigOp[npos.Balance]
	MinValidatorBond ConfigOp[npos.Balance]
	MaxNominators    ConfigOp[uint32]
	MaxValidators    ConfigOp[uint32]
	ChillThreshold   ConfigOp[perthing.Percent]
	MinCommission    ConfigOp[perthing.Perbill]
	MaxStakedRewards ConfigOp[perthing.Percent]
}
