// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine wraps exactly one of these so
// callers can branch with errors.Is.
var (
	ErrIllegalArgument       = errors.New("illegal argument")
	ErrIllegalState          = errors.New("illegal state")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrSlippageExceeded      = errors.New("slippage exceeded")
	ErrLimitExceeded         = errors.New("limit exceeded")
)

// ErrReentrant is returned when a mutating call arrives while another one is
// still in flight.
var ErrReentrant = fmt.Errorf("%w: reentrancy detected", ErrIllegalState)

// Errors - Arguments
var (
	ErrZeroAmount             = fmt.Errorf("%w: amount must be positive", ErrIllegalArgument)
	ErrZeroAddress            = fmt.Errorf("%w: zero address", ErrIllegalArgument)
	ErrUnsupportedToken       = fmt.Errorf("%w: unsupported token", ErrIllegalArgument)
	ErrTokenDisabled          = fmt.Errorf("%w: token disabled", ErrIllegalArgument)
	ErrTokenExists            = fmt.Errorf("%w: token already registered", ErrIllegalArgument)
	ErrUndercollateralized    = fmt.Errorf("%w: undercollateralized", ErrIllegalArgument)
	ErrInsufficientShares     = fmt.Errorf("%w: insufficient shares", ErrIllegalArgument)
	ErrNoDebt                 = fmt.Errorf("%w: no outstanding debt", ErrIllegalArgument)
	ErrPositionHealthy        = fmt.Errorf("%w: position is healthy", ErrIllegalArgument)
	ErrExpectedValueExceeded  = fmt.Errorf("%w: expected value ceiling exceeded", ErrIllegalArgument)
	ErrInvalidParameter       = fmt.Errorf("%w: invalid parameter", ErrIllegalArgument)
	ErrInvalidDecimals        = fmt.Errorf("%w: invalid decimals", ErrIllegalArgument)
	ErrInvalidCollateralRatio = fmt.Errorf("%w: invalid collateralization ratio", ErrIllegalArgument)
)

// Errors - State
var (
	ErrUnderflow        = fmt.Errorf("%w: arithmetic underflow", ErrIllegalState)
	ErrOverflow         = fmt.Errorf("%w: arithmetic overflow", ErrIllegalState)
	ErrEmptyPool        = fmt.Errorf("%w: pool holds shares but no value", ErrIllegalState)
	ErrTransferMismatch = fmt.Errorf("%w: transfer amount mismatch", ErrIllegalState)
	ErrLossExceeded     = fmt.Errorf("%w: loss exceeded", ErrIllegalState)
	ErrInvalidRate      = fmt.Errorf("%w: invalid exchange rate", ErrIllegalState)
	ErrCorruptRecord    = fmt.Errorf("%w: corrupt record", ErrIllegalState)
	ErrNotConfigured    = fmt.Errorf("%w: engine not configured", ErrIllegalState)
)

// Errors - Roles
var (
	ErrNotAdmin        = fmt.Errorf("%w: caller is not admin", ErrUnauthorized)
	ErrNotPendingAdmin = fmt.Errorf("%w: caller is not pending admin", ErrUnauthorized)
	ErrNotSentinel     = fmt.Errorf("%w: caller is not sentinel", ErrUnauthorized)
	ErrNotKeeper       = fmt.Errorf("%w: caller is not keeper", ErrUnauthorized)
)

// IsRetryable reports whether the caller can reasonably retry the operation
// with adjusted inputs.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSlippageExceeded) || errors.Is(err, ErrLimitExceeded)
}
