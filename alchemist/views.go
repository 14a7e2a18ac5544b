// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
)

// Views read committed state. Pools are harvested and positions settled in
// a scratch copy first, so results include yield that has not been settled
// yet. Views do not take the operation guard.

// AccountInfo is a settled view of an account.
type AccountInfo struct {
	Owner           common.Address   `json:"owner"`
	Debt            *big.Int         `json:"debt"`
	Collateral      *big.Int         `json:"collateral"`
	DepositedTokens []common.Address `json:"depositedTokens"`
	State           PositionState    `json:"state"`
}

// PositionInfo is a settled view of one position.
type PositionInfo struct {
	Owner       common.Address `json:"owner"`
	YieldToken  common.Address `json:"yieldToken"`
	Shares      *big.Int       `json:"shares"`
	Underlying  *big.Int       `json:"underlying"`
	YieldTokens *big.Int       `json:"yieldTokens"`
}

// Account returns the settled state of owner's account.
func (a *Alchemist) Account(owner common.Address) (*AccountInfo, error) {
	var info *AccountInfo
	err := a.view(func(tx *txn) error {
		admin, err := tx.admin()
		if err != nil {
			return err
		}
		acct, err := a.poke(tx, owner)
		if err != nil {
			return err
		}
		value, err := a.collateralValue(tx, acct)
		if err != nil {
			return err
		}
		state := Healthy
		if !healthy(acct.Debt, value, admin.MinimumCollateralization) {
			state = Liquidatable
		}
		info = &AccountInfo{
			Owner:           owner,
			Debt:            clone(acct.Debt),
			Collateral:      value,
			DepositedTokens: append([]common.Address(nil), acct.DepositedTokens...),
			State:           state,
		}
		return nil
	})
	return info, err
}

// Position returns the settled state of owner's position in token.
func (a *Alchemist) Position(owner, token common.Address) (*PositionInfo, error) {
	var info *PositionInfo
	err := a.view(func(tx *txn) error {
		h, err := a.touch(tx, owner, token)
		if err != nil {
			return err
		}
		info = &PositionInfo{
			Owner:       owner,
			YieldToken:  token,
			Shares:      clone(h.pos.Shares),
			Underlying:  h.pool.underlyingForShares(h.pos.Shares, h.rate),
			YieldTokens: h.pool.yieldTokensForShares(h.pos.Shares),
		}
		return nil
	})
	return info, err
}

// PositionState reports whether owner can be liquidated by a third party.
func (a *Alchemist) PositionState(owner common.Address) (PositionState, error) {
	info, err := a.Account(owner)
	if err != nil {
		return Healthy, err
	}
	return info.State, nil
}

// TotalValue returns the collateral value of owner's positions in debt units.
func (a *Alchemist) TotalValue(owner common.Address) (*big.Int, error) {
	info, err := a.Account(owner)
	if err != nil {
		return nil, err
	}
	return info.Collateral, nil
}

// MaxMintable returns how much more debt owner could mint now, ignoring
// the minting limiter.
func (a *Alchemist) MaxMintable(owner common.Address) (*big.Int, error) {
	var out *big.Int
	err := a.view(func(tx *txn) error {
		admin, err := tx.admin()
		if err != nil {
			return err
		}
		acct, err := a.poke(tx, owner)
		if err != nil {
			return err
		}
		value, err := a.collateralValue(tx, acct)
		if err != nil {
			return err
		}
		capacity := mulDiv(value, PRECISION, admin.MinimumCollateralization)
		out = capacity.Sub(capacity, acct.Debt)
		if out.Sign() < 0 {
			out = zero()
		}
		return nil
	})
	return out, err
}

// YieldToken returns the harvested state of a pool.
func (a *Alchemist) YieldToken(token common.Address) (*YieldTokenState, error) {
	var out *YieldTokenState
	err := a.view(func(tx *txn) error {
		pool, err := tx.yieldToken(token)
		if err != nil {
			return err
		}
		if _, err := a.harvest(tx, pool); err != nil {
			return err
		}
		out = pool
		return nil
	})
	return out, err
}

// UnderlyingToken returns the record of an underlying token.
func (a *Alchemist) UnderlyingToken(token common.Address) (*UnderlyingTokenState, error) {
	var out *UnderlyingTokenState
	err := a.view(func(tx *txn) error {
		under, err := tx.underlyingToken(token)
		out = under
		return err
	})
	return out, err
}

// Admin returns roles and global parameters.
func (a *Alchemist) Admin() (*AdminState, error) {
	var out *AdminState
	err := a.view(func(tx *txn) error {
		admin, err := tx.admin()
		out = admin
		return err
	})
	return out, err
}

// Accounts lists every account the engine has seen.
func (a *Alchemist) Accounts() ([]common.Address, error) {
	var out []common.Address
	err := a.view(func(tx *txn) error {
		idx, err := tx.accountIndex()
		if err != nil {
			return err
		}
		out = append(out, idx.Accounts...)
		return nil
	})
	return out, err
}

// GetMintLimitInfo returns the state of the minting limiter.
func (a *Alchemist) GetMintLimitInfo() (LimitInfo, error) {
	admin, err := a.Admin()
	if err != nil {
		return LimitInfo{}, err
	}
	return admin.MintLimiter.Info(a.clock.BlockNumber()), nil
}

// GetRepayLimitInfo returns the state of an underlying token's repay limiter.
func (a *Alchemist) GetRepayLimitInfo(token common.Address) (LimitInfo, error) {
	return a.limitInfo(RepayLimiter, token)
}

// GetLiquidationLimitInfo returns the state of an underlying token's
// liquidation limiter.
func (a *Alchemist) GetLiquidationLimitInfo(token common.Address) (LimitInfo, error) {
	return a.limitInfo(LiquidationLimiter, token)
}

// GetLimitInfo returns the state of any limiter. The token is ignored for
// the minting limiter.
func (a *Alchemist) GetLimitInfo(kind LimiterKind, token common.Address) (LimitInfo, error) {
	if kind == MintLimiter {
		return a.GetMintLimitInfo()
	}
	return a.limitInfo(kind, token)
}

func (a *Alchemist) limitInfo(kind LimiterKind, token common.Address) (LimitInfo, error) {
	under, err := a.UnderlyingToken(token)
	if err != nil {
		return LimitInfo{}, err
	}
	now := a.clock.BlockNumber()
	switch kind {
	case RepayLimiter:
		return under.RepayLimiter.Info(now), nil
	case LiquidationLimiter:
		return under.LiquidationLimiter.Info(now), nil
	default:
		return LimitInfo{}, fmt.Errorf("%w: limiter %s", ErrInvalidParameter, kind)
	}
}
