// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
)

// Liquidate repays up to amount of caller's own debt, in debt units, by
// seizing collateral from caller's position in token. The seized yield tokens
// are unwrapped and sent to the transmuter; the liquidation penalty goes to
// the protocol fee receiver. It fails if the unwrap yields less than
// minimumAmountOut.
func (a *Alchemist) Liquidate(caller, token common.Address, amount, minimumAmountOut *big.Int) (*LiquidationResult, error) {
	return a.liquidateFor("liquidate", caller, caller, token, amount, minimumAmountOut)
}

// LiquidateAccount liquidates another account's position. The account must
// be Liquidatable and the liquidator receives the penalty.
func (a *Alchemist) LiquidateAccount(liquidator, owner, token common.Address, amount, minimumAmountOut *big.Int) (*LiquidationResult, error) {
	if liquidator == owner {
		return a.Liquidate(owner, token, amount, minimumAmountOut)
	}
	return a.liquidateFor("liquidateAccount", liquidator, owner, token, amount, minimumAmountOut)
}

func (a *Alchemist) liquidateFor(op string, liquidator, owner, token common.Address, amount, minimumAmountOut *big.Int) (*LiquidationResult, error) {
	if !positive(amount) {
		return nil, ErrZeroAmount
	}
	adapter, err := a.adapter(token)
	if err != nil {
		return nil, err
	}
	var res *LiquidationResult
	err = a.execute(op, func(tx *txn) error {
		admin, err := tx.admin()
		if err != nil {
			return err
		}
		acct, err := a.poke(tx, owner)
		if err != nil {
			return err
		}
		h, err := a.touch(tx, owner, token)
		if err != nil {
			return err
		}
		if acct.Debt.Sign() <= 0 {
			return fmt.Errorf("%w: %s", ErrNoDebt, owner.Hex())
		}
		receiver := admin.ProtocolFeeReceiver
		if liquidator != owner {
			value, err := a.collateralValue(tx, acct)
			if err != nil {
				return err
			}
			if healthy(acct.Debt, value, admin.MinimumCollateralization) {
				return fmt.Errorf("%w: %s debt %s, collateral %s", ErrPositionHealthy, owner.Hex(), acct.Debt, value)
			}
			receiver = liquidator
		}

		plan, err := planLiquidation(h, acct.Debt, amount, admin.LiquidationPenalty, tx.now)
		if err != nil {
			return err
		}
		seized, err := h.removeShares(plan.shares)
		if err != nil {
			return err
		}
		acct.Debt = new(big.Int).Sub(acct.Debt, plan.debt)
		if err := h.under.LiquidationLimiter.Decrease(LiquidationLimiter, plan.underlying, tx.now); err != nil {
			return err
		}

		out, err := adapter.Unwrap(seized, a.address)
		if err != nil {
			return fmt.Errorf("unwrap %s: %w", token.Hex(), err)
		}
		if out == nil || (minimumAmountOut != nil && out.Cmp(minimumAmountOut) < 0) {
			return fmt.Errorf("%w: received %v < minimum %s", ErrSlippageExceeded, out, minimumAmountOut)
		}
		toSink := mulDiv(out, BPS, penaltyFactor(admin.LiquidationPenalty))
		penalty := new(big.Int).Sub(out, toSink)
		if toSink.Sign() > 0 {
			if err := a.bank.TransferOut(h.under.Token, admin.Transmuter, toSink); err != nil {
				return err
			}
			tx.notify(h.under.Token, toSink)
		}
		if penalty.Sign() > 0 {
			if err := a.bank.TransferOut(h.under.Token, receiver, penalty); err != nil {
				return err
			}
		}

		res = &LiquidationResult{
			SharesBurned:    plan.shares,
			DebtReduced:     plan.debt,
			UnderlyingOut:   out,
			ToSink:          toSink,
			Penalty:         penalty,
			PenaltyReceiver: receiver,
		}
		tx.emit(EventLiquidate, owner, token, liquidator, plan.shares, plan.debt, out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.log.Debug(op,
		"owner", owner,
		"liquidator", liquidator,
		"token", token,
		"shares", res.SharesBurned,
		"debt", res.DebtReduced,
		"underlying", res.UnderlyingOut,
	)
	return res, nil
}

func penaltyFactor(penalty uint64) *big.Int {
	return new(big.Int).Add(BPS, new(big.Int).SetUint64(penalty))
}

// liquidationPlan is the outcome of clamping a liquidation request.
type liquidationPlan struct {
	underlying *big.Int // debt repaid, in underlying units
	debt       *big.Int // debt repaid, in debt units
	shares     *big.Int // shares seized, including the penalty
}

// planLiquidation clamps amount to the debt and the liquidation limiter and
// sizes the share seizure. The seized value never exceeds the repaid debt
// plus the penalty.
func planLiquidation(h *holding, debt, amount *big.Int, penalty uint64, now uint64) (*liquidationPlan, error) {
	available := h.under.LiquidationLimiter.Get(now)
	if available.Sign() == 0 {
		return nil, fmt.Errorf("%w: %s liquidation limit exhausted", ErrLimitExceeded, h.under.Token.Hex())
	}
	clamped := minBig(minBig(amount, debt), h.under.normalize(available))
	underlying := h.under.denormalize(clamped)
	if underlying.Sign() == 0 {
		return nil, fmt.Errorf("%w: %s is below one unit of %s", ErrZeroAmount, clamped, h.under.Token.Hex())
	}

	factor := penaltyFactor(penalty)
	seize := mulDiv(underlying, factor, BPS)
	shares, err := h.pool.sharesForUnderlying(seize, h.rate)
	if err != nil {
		return nil, err
	}
	if shares.Cmp(h.pos.Shares) > 0 {
		shares = clone(h.pos.Shares)
		seize = h.pool.underlyingForShares(shares, h.rate)
		underlying = mulDiv(seize, BPS, factor)
	}
	if shares.Sign() == 0 {
		return nil, fmt.Errorf("%w: %s has no collateral in %s", ErrInsufficientShares, h.acct.Owner.Hex(), h.pool.Token.Hex())
	}
	return &liquidationPlan{
		underlying: underlying,
		debt:       h.under.normalize(underlying),
		shares:     shares,
	}, nil
}
