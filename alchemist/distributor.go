// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"math/big"
)

// distribute spreads yield, in underlying units, over every share of the
// pool. Holders collect it lazily through settle.
func distribute(pool *YieldTokenState, yield *big.Int) {
	if pool.TotalShares.Sign() == 0 || yield.Sign() <= 0 {
		return
	}
	inc := mulDiv(yield, PRECISION, pool.TotalShares)
	pool.AccumulatedYieldPerShare = new(big.Int).Add(pool.AccumulatedYieldPerShare, inc)
}

// pendingYield returns the yield a position has earned since its last
// checkpoint, in underlying units.
func pendingYield(pool *YieldTokenState, pos *Position) *big.Int {
	diff := new(big.Int).Sub(pool.AccumulatedYieldPerShare, pos.YieldCheckpoint)
	if diff.Sign() <= 0 || pos.Shares.Sign() == 0 {
		return zero()
	}
	return mulDiv(pos.Shares, diff, PRECISION)
}

// settle pays a position's pending yield against the account's debt. The
// shares backing the yield are burned and their yield tokens queued for the
// transmuter. Debt may go negative, which leaves the account with credit.
func settle(tx *txn, acct *Account, pool *YieldTokenState, under *UnderlyingTokenState, pos *Position, rate *big.Int) error {
	owed := pendingYield(pool, pos)
	pos.YieldCheckpoint = clone(pool.AccumulatedYieldPerShare)
	if owed.Sign() == 0 {
		return nil
	}

	burn, err := pool.sharesForUnderlyingUp(owed, rate)
	if err != nil {
		return err
	}
	if burn.Cmp(pos.Shares) > 0 {
		// The position is worth less than it earned; hand over everything.
		burn = clone(pos.Shares)
		owed = pool.underlyingForShares(burn, rate)
	}
	amount := pool.yieldTokensForShares(burn)
	if err := pool.redeem(burn, amount); err != nil {
		return err
	}
	pos.Shares = new(big.Int).Sub(pos.Shares, burn)
	if pos.Shares.Sign() == 0 {
		acct.removeToken(pool.Token)
	}
	tx.release(pool.Token, amount)

	credit := under.normalize(owed)
	acct.Debt = new(big.Int).Sub(acct.Debt, credit)
	tx.emit(EventSettle, acct.Owner, pool.Token, burn, credit)
	return nil
}
