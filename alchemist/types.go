// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"math/big"

	"github.com/luxfi/geth/common"
)

// PositionState is the liquidation state of an account.
type PositionState uint8

const (
	Healthy PositionState = iota
	Liquidatable
)

func (s PositionState) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Liquidatable:
		return "liquidatable"
	default:
		return "unknown"
	}
}

// LimiterKind selects one of the engine's rate limiters.
type LimiterKind uint8

const (
	MintLimiter LimiterKind = iota
	RepayLimiter
	LiquidationLimiter
)

func (k LimiterKind) String() string {
	switch k {
	case MintLimiter:
		return "mint"
	case RepayLimiter:
		return "repay"
	case LiquidationLimiter:
		return "liquidation"
	default:
		return "unknown"
	}
}

// YieldTokenConfig registers a yield token pool.
type YieldTokenConfig struct {
	Token      common.Address `json:"token"`
	Underlying common.Address `json:"underlying"`
	Decimals   uint8          `json:"decimals"`

	// MaximumLoss is the tolerated drawdown from the pool's high-water mark
	// in basis points before new deposits are refused.
	MaximumLoss uint64 `json:"maximumLoss"`

	// MaximumExpectedValue caps the pool's underlying value.
	MaximumExpectedValue *big.Int `json:"maximumExpectedValue"`
}

// UnderlyingTokenConfig registers an underlying token and its limiters.
type UnderlyingTokenConfig struct {
	Token    common.Address `json:"token"`
	Decimals uint8          `json:"decimals"`

	RepayLimitMaximum       *big.Int `json:"repayLimitMaximum"`
	RepayLimitBlocks        uint64   `json:"repayLimitBlocks"`
	LiquidationLimitMaximum *big.Int `json:"liquidationLimitMaximum"`
	LiquidationLimitBlocks  uint64   `json:"liquidationLimitBlocks"`
}

// YieldTokenState is the aggregate record of one yield token pool.
type YieldTokenState struct {
	Token      common.Address
	Underlying common.Address
	Decimals   uint8
	Enabled    bool

	MaximumLoss          uint64
	MaximumExpectedValue *big.Int

	// Balance is the amount of yield tokens the pool accounts for. Tokens
	// sent to the engine outside of a deposit are not counted.
	Balance                  *big.Int
	TotalShares              *big.Int
	AccumulatedYieldPerShare *big.Int

	// LastExchangeRate is the high-water mark of the exchange rate. It is
	// only ever raised by harvest.
	LastExchangeRate *big.Int

	// Deficit is the underlying value lost below the high-water mark as of
	// the last harvest.
	Deficit *big.Int
}

func (s *YieldTokenState) Clone() *YieldTokenState {
	if s == nil {
		return nil
	}
	out := *s
	out.MaximumExpectedValue = clone(s.MaximumExpectedValue)
	out.Balance = clone(s.Balance)
	out.TotalShares = clone(s.TotalShares)
	out.AccumulatedYieldPerShare = clone(s.AccumulatedYieldPerShare)
	out.LastExchangeRate = clone(s.LastExchangeRate)
	out.Deficit = clone(s.Deficit)
	return &out
}

// UnderlyingTokenState is the record of one underlying token.
type UnderlyingTokenState struct {
	Token    common.Address
	Decimals uint8
	Enabled  bool

	// ConversionFactor scales underlying units to debt units.
	ConversionFactor *big.Int

	RepayLimiter       *Limiter
	LiquidationLimiter *Limiter
}

func (s *UnderlyingTokenState) Clone() *UnderlyingTokenState {
	if s == nil {
		return nil
	}
	out := *s
	out.ConversionFactor = clone(s.ConversionFactor)
	out.RepayLimiter = s.RepayLimiter.Clone()
	out.LiquidationLimiter = s.LiquidationLimiter.Clone()
	return &out
}

// normalize converts underlying units to debt units.
func (s *UnderlyingTokenState) normalize(amount *big.Int) *big.Int {
	return new(big.Int).Mul(amount, s.ConversionFactor)
}

// denormalize converts debt units to underlying units, rounding down.
func (s *UnderlyingTokenState) denormalize(amount *big.Int) *big.Int {
	return new(big.Int).Quo(amount, s.ConversionFactor)
}

// Account is an owner's debt and the set of tokens it holds shares in.
type Account struct {
	Owner common.Address

	// Debt is signed. A negative value is credit.
	Debt *big.Int

	DepositedTokens []common.Address
}

func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := &Account{
		Owner: a.Owner,
		Debt:  clone(a.Debt),
	}
	if len(a.DepositedTokens) > 0 {
		out.DepositedTokens = append([]common.Address(nil), a.DepositedTokens...)
	}
	return out
}

func (a *Account) hasToken(token common.Address) bool {
	for _, t := range a.DepositedTokens {
		if t == token {
			return true
		}
	}
	return false
}

func (a *Account) addToken(token common.Address) {
	if !a.hasToken(token) {
		a.DepositedTokens = append(a.DepositedTokens, token)
	}
}

func (a *Account) removeToken(token common.Address) {
	for i, t := range a.DepositedTokens {
		if t == token {
			a.DepositedTokens = append(a.DepositedTokens[:i], a.DepositedTokens[i+1:]...)
			return
		}
	}
}

// Position is an account's shares in one yield token pool.
type Position struct {
	Owner      common.Address
	YieldToken common.Address
	Shares     *big.Int

	// YieldCheckpoint is the pool accumulator value at the last settlement.
	YieldCheckpoint *big.Int
}

func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	return &Position{
		Owner:           p.Owner,
		YieldToken:      p.YieldToken,
		Shares:          clone(p.Shares),
		YieldCheckpoint: clone(p.YieldCheckpoint),
	}
}

// AdminState holds roles and global parameters.
type AdminState struct {
	Admin        common.Address
	PendingAdmin common.Address
	Sentinels    []common.Address
	Keepers      []common.Address

	DebtToken           common.Address
	Transmuter          common.Address
	ProtocolFeeReceiver common.Address

	// MinimumCollateralization is scaled by PRECISION and at least 1.0.
	MinimumCollateralization *big.Int

	// LiquidationPenalty is paid out of seized collateral, in basis points.
	LiquidationPenalty uint64

	MintLimiter *Limiter

	YieldTokens      []common.Address
	UnderlyingTokens []common.Address
}

func (s *AdminState) Clone() *AdminState {
	if s == nil {
		return nil
	}
	out := *s
	out.Sentinels = append([]common.Address(nil), s.Sentinels...)
	out.Keepers = append([]common.Address(nil), s.Keepers...)
	out.YieldTokens = append([]common.Address(nil), s.YieldTokens...)
	out.UnderlyingTokens = append([]common.Address(nil), s.UnderlyingTokens...)
	out.MinimumCollateralization = clone(s.MinimumCollateralization)
	out.MintLimiter = s.MintLimiter.Clone()
	return &out
}

func containsAddress(list []common.Address, addr common.Address) bool {
	for _, a := range list {
		if a == addr {
			return true
		}
	}
	return false
}

func setAddress(list []common.Address, addr common.Address, present bool) []common.Address {
	for i, a := range list {
		if a == addr {
			if present {
				return list
			}
			return append(list[:i], list[i+1:]...)
		}
	}
	if present {
		return append(list, addr)
	}
	return list
}

// LimitInfo is a snapshot of a rate limiter.
type LimitInfo struct {
	Rate             *big.Int `json:"rate"`
	Maximum          *big.Int `json:"maximum"`
	CurrentAvailable *big.Int `json:"currentAvailable"`
}

// LiquidationResult reports what a liquidation did.
type LiquidationResult struct {
	SharesBurned    *big.Int       `json:"sharesBurned"`
	DebtReduced     *big.Int       `json:"debtReduced"`
	UnderlyingOut   *big.Int       `json:"underlyingOut"`
	ToSink          *big.Int       `json:"toSink"`
	Penalty         *big.Int       `json:"penalty"`
	PenaltyReceiver common.Address `json:"penaltyReceiver"`
}
