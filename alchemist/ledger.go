// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
)

// holding bundles the records touched when an account acts on one pool.
type holding struct {
	acct  *Account
	pool  *YieldTokenState
	under *UnderlyingTokenState
	pos   *Position
	rate  *big.Int
}

// touch harvests the pool and settles the owner's position in it.
func (a *Alchemist) touch(tx *txn, owner, token common.Address) (*holding, error) {
	acct, err := tx.account(owner)
	if err != nil {
		return nil, err
	}
	pool, err := tx.yieldToken(token)
	if err != nil {
		return nil, err
	}
	under, err := tx.underlyingToken(pool.Underlying)
	if err != nil {
		return nil, err
	}
	rate, err := a.harvest(tx, pool)
	if err != nil {
		return nil, err
	}
	pos, err := tx.position(owner, pool)
	if err != nil {
		return nil, err
	}
	if err := settle(tx, acct, pool, under, pos, rate); err != nil {
		return nil, err
	}
	return &holding{acct: acct, pool: pool, under: under, pos: pos, rate: rate}, nil
}

// poke settles every position of the owner and returns the account.
func (a *Alchemist) poke(tx *txn, owner common.Address) (*Account, error) {
	acct, err := tx.account(owner)
	if err != nil {
		return nil, err
	}
	tokens := append([]common.Address(nil), acct.DepositedTokens...)
	for _, token := range tokens {
		if _, err := a.touch(tx, owner, token); err != nil {
			return nil, err
		}
	}
	return acct, nil
}

// collateralValue returns the value of the account's positions in debt
// units. Positions must have been settled in tx.
func (a *Alchemist) collateralValue(tx *txn, acct *Account) (*big.Int, error) {
	total := zero()
	for _, token := range acct.DepositedTokens {
		pool, err := tx.yieldToken(token)
		if err != nil {
			return nil, err
		}
		under, err := tx.underlyingToken(pool.Underlying)
		if err != nil {
			return nil, err
		}
		rate, err := a.rate(tx, token)
		if err != nil {
			return nil, err
		}
		pos, err := tx.position(acct.Owner, pool)
		if err != nil {
			return nil, err
		}
		total.Add(total, under.normalize(pool.underlyingForShares(pos.Shares, rate)))
	}
	return total, nil
}

// healthy reports whether debt * minimumCollateralization <= collateral.
func healthy(debt, collateral, ratio *big.Int) bool {
	if debt.Sign() <= 0 {
		return true
	}
	lhs := new(big.Int).Mul(debt, ratio)
	rhs := new(big.Int).Mul(collateral, PRECISION)
	return lhs.Cmp(rhs) <= 0
}

// validate fails if the account is undercollateralized.
func (a *Alchemist) validate(tx *txn, acct *Account) error {
	if acct.Debt.Sign() <= 0 {
		return nil
	}
	admin, err := tx.admin()
	if err != nil {
		return err
	}
	value, err := a.collateralValue(tx, acct)
	if err != nil {
		return err
	}
	if !healthy(acct.Debt, value, admin.MinimumCollateralization) {
		return fmt.Errorf("%w: %s debt %s, collateral %s", ErrUndercollateralized, acct.Owner.Hex(), acct.Debt, value)
	}
	return nil
}

// addShares credits shares backed by amount yield tokens to the holding.
func (h *holding) addShares(shares, amount *big.Int) {
	h.pool.issue(shares, amount)
	h.pos.Shares = new(big.Int).Add(h.pos.Shares, shares)
	h.acct.addToken(h.pool.Token)
}

// removeShares burns shares from the holding and returns the yield tokens
// they were backed by.
func (h *holding) removeShares(shares *big.Int) (*big.Int, error) {
	if shares.Cmp(h.pos.Shares) > 0 {
		return nil, fmt.Errorf("%w: %s has %s, need %s", ErrInsufficientShares, h.acct.Owner.Hex(), h.pos.Shares, shares)
	}
	amount := h.pool.yieldTokensForShares(shares)
	if err := h.pool.redeem(shares, amount); err != nil {
		return nil, err
	}
	h.pos.Shares = new(big.Int).Sub(h.pos.Shares, shares)
	if h.pos.Shares.Sign() == 0 {
		h.acct.removeToken(h.pool.Token)
	}
	return amount, nil
}
