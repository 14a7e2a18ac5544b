// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
)

// Violation errors reported by CheckInvariants.
var (
	ErrSolvency          = fmt.Errorf("%w: total collateral below total debt", ErrIllegalState)
	ErrShareConservation = fmt.Errorf("%w: position shares do not sum to pool shares", ErrIllegalState)
	ErrNegativeBalance   = fmt.Errorf("%w: negative balance", ErrIllegalState)
	ErrCollateralization = fmt.Errorf("%w: account below minimum collateralization", ErrIllegalState)
	ErrCustodyMismatch   = fmt.Errorf("%w: custody balance does not match pool accounting", ErrIllegalState)
)

// CheckInvariants verifies the accounting against itself and the bank and
// returns every violation found, joined. Rounding tolerance is one
// underlying unit per position involved. Solvency and collateralization
// can legitimately fail after an exchange rate falls.
func (a *Alchemist) CheckInvariants() error {
	var violations []error
	err := a.view(func(tx *txn) error {
		admin, err := tx.admin()
		if err != nil {
			return err
		}
		idx, err := tx.accountIndex()
		if err != nil {
			return err
		}

		// Custody is checked against committed balances before the scratch
		// settlement below takes settled yield out of the pools.
		pools := make(map[common.Address]*YieldTokenState, len(admin.YieldTokens))
		for _, token := range admin.YieldTokens {
			pool, err := tx.yieldToken(token)
			if err != nil {
				return err
			}
			held := a.bank.BalanceOf(token, a.address)
			if held.Cmp(pool.Balance) < 0 {
				violations = append(violations, fmt.Errorf("%w: %s holds %s, pool accounts for %s",
					ErrCustodyMismatch, token.Hex(), held, pool.Balance))
			}
			if _, err := a.harvest(tx, pool); err != nil {
				return err
			}
			pools[token] = pool
		}

		sumShares := make(map[common.Address]*big.Int, len(pools))
		sumValue := make(map[common.Address]*big.Int, len(pools))
		holders := make(map[common.Address]int64, len(pools))
		for token := range pools {
			sumShares[token] = zero()
			sumValue[token] = zero()
		}

		totalDebt := zero()
		for _, owner := range idx.Accounts {
			acct, err := a.poke(tx, owner)
			if err != nil {
				return err
			}
			totalDebt.Add(totalDebt, acct.Debt)
			for _, token := range acct.DepositedTokens {
				pool := pools[token]
				if pool == nil {
					return fmt.Errorf("%w: %s deposited in unknown pool %s", ErrCorruptRecord, owner.Hex(), token.Hex())
				}
				pos, err := tx.position(owner, pool)
				if err != nil {
					return err
				}
				if pos.Shares.Sign() < 0 || pos.Shares.Cmp(pool.TotalShares) > 0 {
					violations = append(violations, fmt.Errorf("%w: %s shares %s in %s",
						ErrNegativeBalance, owner.Hex(), pos.Shares, token.Hex()))
				}
				sumShares[token].Add(sumShares[token], pos.Shares)
				sumValue[token].Add(sumValue[token], pool.underlyingForShares(pos.Shares, tx.rates[token]))
				holders[token]++
			}
			if acct.Debt.Sign() > 0 {
				value, err := a.collateralValue(tx, acct)
				if err != nil {
					return err
				}
				if !healthy(acct.Debt, value, admin.MinimumCollateralization) {
					violations = append(violations, fmt.Errorf("%w: %s debt %s, collateral %s",
						ErrCollateralization, owner.Hex(), acct.Debt, value))
				}
			}
		}

		totalValue := zero()
		unit := big.NewInt(1)
		for token, pool := range pools {
			if sumShares[token].Cmp(pool.TotalShares) != 0 {
				violations = append(violations, fmt.Errorf("%w: %s positions %s, pool %s",
					ErrShareConservation, token.Hex(), sumShares[token], pool.TotalShares))
			}
			under, err := tx.underlyingToken(pool.Underlying)
			if err != nil {
				return err
			}
			value := pool.TotalValue(tx.rates[token])
			slack := new(big.Int).Sub(value, sumValue[token])
			if slack.Sign() < 0 || slack.Cmp(big.NewInt(holders[token]+1)) > 0 {
				violations = append(violations, fmt.Errorf("%w: %s pool value %s, positions %s",
					ErrCustodyMismatch, token.Hex(), value, sumValue[token]))
			}
			totalValue.Add(totalValue, under.normalize(value))
			if under.ConversionFactor.Cmp(unit) > 0 {
				unit = under.ConversionFactor
			}
		}

		tolerance := new(big.Int).Mul(big.NewInt(int64(len(idx.Accounts))+1), unit)
		if new(big.Int).Add(totalValue, tolerance).Cmp(totalDebt) < 0 {
			violations = append(violations, fmt.Errorf("%w: value %s, debt %s", ErrSolvency, totalValue, totalDebt))
		}
		return nil
	})
	if err != nil {
		return err
	}
	return errors.Join(violations...)
}
