// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
)

// ErrRevert is a domain error caused by the caller. The operation that
// returned it has not changed any state.
type ErrRevert struct {
	message string
}

func New(message string) *ErrRevert {
	return &ErrRevert{
		message: message,
	}
}

func (e *ErrRevert) Error() string {
	return e.message
}

func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// state errors
var (
	ErrNotController               = New("not a controller")
	ErrNotStash                    = New("not a stash")
	ErrAlreadyBonded               = New("stash is already bonded")
	ErrAlreadyPaired               = New("controller is already paired")
	ErrBadState                    = New("stash and controller are in an inconsistent state")
	ErrVirtualStakerNotAllowed     = New("operation not allowed for virtual stakers")
	ErrControllerDeprecated        = New("controller reward destination is deprecated")
	ErrCannotRestoreLedger         = New("ledger cannot be restored")
	ErrFundedTooMuch               = New("stash is funded above the existential deposit")
	ErrIncorrectSlashingSpans      = New("incorrect number of slashing spans")
	ErrRewardDestinationRestricted = New("reward destination is restricted")
)

// bound errors
var (
	ErrNoMoreChunks               = New("too many unlocking chunks")
	ErrNoUnlockChunk              = New("no unlocking chunk to rebond")
	ErrInsufficientBond           = New("insufficient bond")
	ErrTooManyTargets             = New("too many nomination targets")
	ErrTooManyValidators          = New("too many validators")
	ErrTooManyNominators          = New("too many nominators")
	ErrBoundNotMet                = New("bound not met")
	ErrInvalidNumberOfNominations = New("invalid number of nominations")
)

// reward and slash errors
var (
	ErrInvalidEraToReward = New("invalid era to reward")
	ErrAlreadyClaimed     = New("rewards already claimed")
	ErrInvalidPage        = New("invalid page")
	ErrEmptyTargets       = New("targets cannot be empty")
	ErrNotSortedAndUnique = New("indices must be sorted and unique")
	ErrInvalidSlashIndex  = New("slash index out of range")
	ErrBadTarget          = New("bad nomination target")
	ErrCannotChillOther   = New("cannot chill other")
)

// authorization errors
var (
	ErrBadOrigin        = New("bad origin")
	ErrRestricted       = New("account is restricted from staking")
	ErrCommissionTooLow = New("commission too low")
)

// currency errors
var (
	ErrInsufficientBalance = New("insufficient balance")
	ErrFundsUnavailable    = New("funds unavailable")
)
