// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Fixed-point scalars
var (
	// PRECISION scales accumulators and ratios (1e18 = 1.0)
	PRECISION = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	// BPS is the basis point denominator
	BPS = big.NewInt(10_000)

	// DebtDecimals is the decimal count of the debt token
	DebtDecimals uint8 = 18
)

func zero() *big.Int { return new(big.Int) }

func clone(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

func positive(x *big.Int) bool { return x != nil && x.Sign() > 0 }

// mulDiv returns floor(x*y/d).
func mulDiv(x, y, d *big.Int) *big.Int {
	out := new(big.Int).Mul(x, y)
	return out.Quo(out, d)
}

// mulDivUp returns ceil(x*y/d).
func mulDivUp(x, y, d *big.Int) *big.Int {
	out := new(big.Int).Mul(x, y)
	q, r := new(big.Int).QuoRem(out, d, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// checkedSub returns a-b and fails rather than going below zero.
func checkedSub(a, b *big.Int, what string) (*big.Int, error) {
	if a.Cmp(b) < 0 {
		return nil, fmt.Errorf("%w: %s %s - %s", ErrUnderflow, what, a, b)
	}
	return new(big.Int).Sub(a, b), nil
}

// pow10 returns 10^n.
func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// toU256 converts an unsigned value to its 256-bit form, failing on overflow.
func toU256(x *big.Int) (*uint256.Int, error) {
	if x == nil {
		return new(uint256.Int), nil
	}
	if x.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative value %s", ErrUnderflow, x)
	}
	u, overflow := uint256.FromBig(x)
	if overflow {
		return nil, fmt.Errorf("%w: %s exceeds 256 bits", ErrOverflow, x)
	}
	return u, nil
}

func fromU256(u *uint256.Int) *big.Int {
	if u == nil {
		return new(big.Int)
	}
	return u.ToBig()
}
