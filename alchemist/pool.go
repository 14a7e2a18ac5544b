// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
)

// =========================================================================
// Conversions
// =========================================================================

func (p *YieldTokenState) unit() *big.Int { return pow10(p.Decimals) }

// underlyingValue returns the value of yield tokens in underlying units.
func (p *YieldTokenState) underlyingValue(amount, rate *big.Int) *big.Int {
	return mulDiv(amount, rate, p.unit())
}

// TotalValue returns the pool's value in underlying units at rate.
func (p *YieldTokenState) TotalValue(rate *big.Int) *big.Int {
	return p.underlyingValue(p.Balance, rate)
}

// sharesForYield returns the shares issued for depositing amount yield
// tokens. The first deposit into an empty pool is priced at one share per
// underlying unit.
func (p *YieldTokenState) sharesForYield(amount, rate *big.Int) (*big.Int, error) {
	if p.TotalShares.Sign() == 0 {
		return p.underlyingValue(amount, rate), nil
	}
	if p.Balance.Sign() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPool, p.Token.Hex())
	}
	return mulDiv(amount, p.TotalShares, p.Balance), nil
}

// sharesForUnderlying converts underlying units to shares, rounding down.
func (p *YieldTokenState) sharesForUnderlying(amount, rate *big.Int) (*big.Int, error) {
	if p.TotalShares.Sign() == 0 {
		return clone(amount), nil
	}
	value := p.TotalValue(rate)
	if value.Sign() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPool, p.Token.Hex())
	}
	return mulDiv(amount, p.TotalShares, value), nil
}

// sharesForUnderlyingUp converts underlying units to shares, rounding up.
func (p *YieldTokenState) sharesForUnderlyingUp(amount, rate *big.Int) (*big.Int, error) {
	if p.TotalShares.Sign() == 0 {
		return clone(amount), nil
	}
	value := p.TotalValue(rate)
	if value.Sign() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPool, p.Token.Hex())
	}
	return mulDivUp(amount, p.TotalShares, value), nil
}

// underlyingForShares converts shares to underlying units, rounding down.
func (p *YieldTokenState) underlyingForShares(shares, rate *big.Int) *big.Int {
	if p.TotalShares.Sign() == 0 {
		return zero()
	}
	return mulDiv(shares, p.TotalValue(rate), p.TotalShares)
}

// yieldTokensForShares converts shares to yield tokens, rounding down.
func (p *YieldTokenState) yieldTokensForShares(shares *big.Int) *big.Int {
	if p.TotalShares.Sign() == 0 {
		return zero()
	}
	return mulDiv(shares, p.Balance, p.TotalShares)
}

// issue adds shares backed by amount yield tokens.
func (p *YieldTokenState) issue(shares, amount *big.Int) {
	p.TotalShares.Add(p.TotalShares, shares)
	p.Balance.Add(p.Balance, amount)
}

// redeem removes shares and the yield tokens backing them.
func (p *YieldTokenState) redeem(shares, amount *big.Int) error {
	total, err := checkedSub(p.TotalShares, shares, "pool shares")
	if err != nil {
		return err
	}
	balance, err := checkedSub(p.Balance, amount, "pool balance")
	if err != nil {
		return err
	}
	p.TotalShares, p.Balance = total, balance
	return nil
}

// checkLoss refuses new deposits while the pool sits further below its
// high-water mark than MaximumLoss allows.
func (p *YieldTokenState) checkLoss() error {
	if p.Deficit.Sign() == 0 {
		return nil
	}
	peak := p.underlyingValue(p.Balance, p.LastExchangeRate)
	lhs := new(big.Int).Mul(p.Deficit, BPS)
	rhs := new(big.Int).Mul(peak, new(big.Int).SetUint64(p.MaximumLoss))
	if lhs.Cmp(rhs) > 0 {
		return fmt.Errorf("%w: %s deficit %s of %s", ErrLossExceeded, p.Token.Hex(), p.Deficit, peak)
	}
	return nil
}

// checkCeiling fails if adding amount yield tokens would push the pool's
// value over its expected value ceiling.
func (p *YieldTokenState) checkCeiling(amount, rate *big.Int) error {
	after := p.underlyingValue(new(big.Int).Add(p.Balance, amount), rate)
	if after.Cmp(p.MaximumExpectedValue) > 0 {
		return fmt.Errorf("%w: %s value %s > %s", ErrExpectedValueExceeded, p.Token.Hex(), after, p.MaximumExpectedValue)
	}
	return nil
}

// =========================================================================
// Harvest
// =========================================================================

// rate returns the exchange rate of token, reading the oracle at most once
// per operation.
func (a *Alchemist) rate(tx *txn, token common.Address) (*big.Int, error) {
	if r, ok := tx.rates[token]; ok {
		return r, nil
	}
	r, err := a.oracle.ExchangeRate(token)
	if err != nil {
		return nil, fmt.Errorf("exchange rate %s: %w", token.Hex(), err)
	}
	if r == nil || r.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s rate %v", ErrInvalidRate, token.Hex(), r)
	}
	r = clone(r)
	tx.rates[token] = r
	return r, nil
}

// harvest re-prices the pool. Appreciation above the high-water mark is
// credited to share holders through the yield accumulator. A rate below the
// mark is recorded as a deficit and shared by holders through the share
// price. Calling it again at the same rate does nothing.
func (a *Alchemist) harvest(tx *txn, pool *YieldTokenState) (*big.Int, error) {
	rate, err := a.rate(tx, pool.Token)
	if err != nil {
		return nil, err
	}
	mark := pool.LastExchangeRate

	switch {
	case pool.TotalShares.Sign() == 0:
		pool.LastExchangeRate = clone(rate)
		pool.Deficit = zero()

	case rate.Cmp(mark) > 0:
		yield := pool.underlyingValue(pool.Balance, new(big.Int).Sub(rate, mark))
		pool.LastExchangeRate = clone(rate)
		pool.Deficit = zero()
		if yield.Sign() > 0 {
			distribute(pool, yield)
			tx.emit(EventHarvest, pool.Token, rate, yield)
			if !tx.view {
				a.log.Debug("harvested yield",
					"token", pool.Token,
					"rate", rate,
					"yield", yield,
				)
			}
		}

	case rate.Cmp(mark) < 0:
		deficit := pool.underlyingValue(pool.Balance, new(big.Int).Sub(mark, rate))
		if deficit.Cmp(pool.Deficit) != 0 {
			pool.Deficit = deficit
			tx.emit(EventLoss, pool.Token, rate, deficit)
			if !tx.view {
				a.log.Warn("yield token below high-water mark",
					"token", pool.Token,
					"rate", rate,
					"mark", mark,
					"deficit", deficit,
				)
			}
		}

	default:
		// Back at the mark.
		pool.Deficit = zero()
	}
	return rate, nil
}
