// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
)

// =========================================================================
// Deposit
// =========================================================================

// Deposit moves amount yield tokens from caller into recipient's position and
// returns the shares issued.
func (a *Alchemist) Deposit(caller, token common.Address, amount *big.Int, recipient common.Address) (*big.Int, error) {
	if !positive(amount) {
		return nil, ErrZeroAmount
	}
	if recipient == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	var shares *big.Int
	err := a.execute("deposit", func(tx *txn) error {
		h, err := a.touch(tx, recipient, token)
		if err != nil {
			return err
		}
		// Shares are priced before the pool receives the tokens.
		if shares, err = a.credit(h, amount); err != nil {
			return err
		}
		if err := a.pull(token, caller, a.address, amount); err != nil {
			return err
		}
		tx.emit(EventDeposit, caller, token, amount, recipient, shares)
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.log.Debug("deposit",
		"token", token,
		"amount", amount,
		"recipient", recipient,
		"shares", shares,
	)
	return shares, nil
}

// DepositUnderlying wraps amount underlying tokens from caller and deposits
// the result into recipient's position. It fails if fewer than
// minimumShares would be issued.
func (a *Alchemist) DepositUnderlying(caller, token common.Address, amount *big.Int, recipient common.Address, minimumShares *big.Int) (*big.Int, error) {
	if !positive(amount) {
		return nil, ErrZeroAmount
	}
	if recipient == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	adapter, err := a.adapter(token)
	if err != nil {
		return nil, err
	}
	var shares *big.Int
	err = a.execute("depositUnderlying", func(tx *txn) error {
		h, err := a.touch(tx, recipient, token)
		if err != nil {
			return err
		}
		if err := depositable(h); err != nil {
			return err
		}
		if err := a.pull(h.pool.Underlying, caller, a.address, amount); err != nil {
			return err
		}
		before := a.bank.BalanceOf(token, a.address)
		wrapped, err := adapter.Wrap(amount, a.address)
		if err != nil {
			return fmt.Errorf("wrap %s: %w", token.Hex(), err)
		}
		after := a.bank.BalanceOf(token, a.address)
		if received := new(big.Int).Sub(after, before); wrapped == nil || received.Cmp(wrapped) != 0 {
			return fmt.Errorf("%w: adapter reported %v, received %s", ErrTransferMismatch, wrapped, received)
		}
		if shares, err = a.credit(h, wrapped); err != nil {
			return err
		}
		if minimumShares != nil && shares.Cmp(minimumShares) < 0 {
			return fmt.Errorf("%w: shares %s < minimum %s", ErrSlippageExceeded, shares, minimumShares)
		}
		tx.emit(EventDeposit, caller, token, wrapped, recipient, shares)
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.log.Debug("deposit underlying",
		"token", token,
		"amount", amount,
		"recipient", recipient,
		"shares", shares,
	)
	return shares, nil
}

func depositable(h *holding) error {
	if !h.pool.Enabled {
		return fmt.Errorf("%w: %s", ErrTokenDisabled, h.pool.Token.Hex())
	}
	if !h.under.Enabled {
		return fmt.Errorf("%w: %s", ErrTokenDisabled, h.under.Token.Hex())
	}
	return h.pool.checkLoss()
}

// credit issues shares for amount yield tokens to the holding.
func (a *Alchemist) credit(h *holding, amount *big.Int) (*big.Int, error) {
	if err := depositable(h); err != nil {
		return nil, err
	}
	if err := h.pool.checkCeiling(amount, h.rate); err != nil {
		return nil, err
	}
	shares, err := h.pool.sharesForYield(amount, h.rate)
	if err != nil {
		return nil, err
	}
	if shares.Sign() == 0 {
		return nil, fmt.Errorf("%w: deposit of %s issues no shares", ErrZeroAmount, amount)
	}
	h.addShares(shares, amount)
	return shares, nil
}

// =========================================================================
// Withdraw
// =========================================================================

// Withdraw burns caller's shares and sends the yield tokens to recipient.
func (a *Alchemist) Withdraw(caller, token common.Address, shares *big.Int, recipient common.Address) (*big.Int, error) {
	return a.withdrawYield("withdraw", caller, caller, token, shares, recipient)
}

// WithdrawFrom burns owner's shares using spender's withdraw allowance.
func (a *Alchemist) WithdrawFrom(spender, owner, token common.Address, shares *big.Int, recipient common.Address) (*big.Int, error) {
	return a.withdrawYield("withdrawFrom", spender, owner, token, shares, recipient)
}

// WithdrawUnderlying burns caller's shares, unwraps the yield tokens and sends
// the underlying to recipient. It fails if less than minimumAmountOut is
// received.
func (a *Alchemist) WithdrawUnderlying(caller, token common.Address, shares *big.Int, recipient common.Address, minimumAmountOut *big.Int) (*big.Int, error) {
	return a.withdrawUnderlying("withdrawUnderlying", caller, caller, token, shares, recipient, minimumAmountOut)
}

// WithdrawUnderlyingFrom is WithdrawUnderlying on behalf of owner.
func (a *Alchemist) WithdrawUnderlyingFrom(spender, owner, token common.Address, shares *big.Int, recipient common.Address, minimumAmountOut *big.Int) (*big.Int, error) {
	return a.withdrawUnderlying("withdrawUnderlyingFrom", spender, owner, token, shares, recipient, minimumAmountOut)
}

func (a *Alchemist) withdrawYield(op string, spender, owner, token common.Address, shares *big.Int, recipient common.Address) (*big.Int, error) {
	if err := checkWithdraw(shares, recipient); err != nil {
		return nil, err
	}
	var amount *big.Int
	err := a.execute(op, func(tx *txn) error {
		var err error
		if amount, err = a.withdraw(tx, spender, owner, token, shares, recipient); err != nil {
			return err
		}
		return a.bank.TransferOut(token, recipient, amount)
	})
	if err != nil {
		return nil, err
	}
	a.log.Debug(op,
		"owner", owner,
		"token", token,
		"shares", shares,
		"amount", amount,
	)
	return amount, nil
}

func (a *Alchemist) withdrawUnderlying(op string, spender, owner, token common.Address, shares *big.Int, recipient common.Address, minimumAmountOut *big.Int) (*big.Int, error) {
	if err := checkWithdraw(shares, recipient); err != nil {
		return nil, err
	}
	adapter, err := a.adapter(token)
	if err != nil {
		return nil, err
	}
	var out *big.Int
	err = a.execute(op, func(tx *txn) error {
		amount, err := a.withdraw(tx, spender, owner, token, shares, recipient)
		if err != nil {
			return err
		}
		if out, err = adapter.Unwrap(amount, recipient); err != nil {
			return fmt.Errorf("unwrap %s: %w", token.Hex(), err)
		}
		if out == nil || (minimumAmountOut != nil && out.Cmp(minimumAmountOut) < 0) {
			return fmt.Errorf("%w: received %v < minimum %s", ErrSlippageExceeded, out, minimumAmountOut)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.log.Debug(op,
		"owner", owner,
		"token", token,
		"shares", shares,
		"underlying", out,
	)
	return out, nil
}

func checkWithdraw(shares *big.Int, recipient common.Address) error {
	if !positive(shares) {
		return ErrZeroAmount
	}
	if recipient == (common.Address{}) {
		return ErrZeroAddress
	}
	return nil
}

// withdraw burns owner's shares and returns the yield tokens released.
func (a *Alchemist) withdraw(tx *txn, spender, owner, token common.Address, shares *big.Int, recipient common.Address) (*big.Int, error) {
	if spender != owner {
		if err := a.spendWithdrawAllowance(tx, owner, spender, token, shares); err != nil {
			return nil, err
		}
	}
	acct, err := a.poke(tx, owner)
	if err != nil {
		return nil, err
	}
	h, err := a.touch(tx, owner, token)
	if err != nil {
		return nil, err
	}
	amount, err := h.removeShares(shares)
	if err != nil {
		return nil, err
	}
	if err := a.validate(tx, acct); err != nil {
		return nil, err
	}
	tx.emit(EventWithdraw, owner, token, shares, recipient, amount)
	return amount, nil
}

// =========================================================================
// Mint
// =========================================================================

// Mint issues amount debt tokens to recipient against caller's collateral.
func (a *Alchemist) Mint(caller common.Address, amount *big.Int, recipient common.Address) error {
	return a.mintFor("mint", caller, caller, amount, recipient)
}

// MintFrom issues debt against owner's collateral using spender's mint
// allowance.
func (a *Alchemist) MintFrom(spender, owner common.Address, amount *big.Int, recipient common.Address) error {
	return a.mintFor("mintFrom", spender, owner, amount, recipient)
}

func (a *Alchemist) mintFor(op string, spender, owner common.Address, amount *big.Int, recipient common.Address) error {
	if !positive(amount) {
		return ErrZeroAmount
	}
	if recipient == (common.Address{}) {
		return ErrZeroAddress
	}
	err := a.execute(op, func(tx *txn) error {
		if spender != owner {
			if err := a.spendMintAllowance(tx, owner, spender, amount); err != nil {
				return err
			}
		}
		admin, err := tx.admin()
		if err != nil {
			return err
		}
		acct, err := a.poke(tx, owner)
		if err != nil {
			return err
		}
		if err := admin.MintLimiter.Decrease(MintLimiter, amount, tx.now); err != nil {
			return err
		}
		acct.Debt = new(big.Int).Add(acct.Debt, amount)
		if err := a.validate(tx, acct); err != nil {
			return err
		}
		if err := a.bank.Mint(admin.DebtToken, recipient, amount); err != nil {
			return err
		}
		tx.emit(EventMint, owner, amount, recipient)
		return nil
	})
	if err != nil {
		return err
	}
	a.log.Debug(op, "owner", owner, "amount", amount, "recipient", recipient)
	return nil
}

// =========================================================================
// Burn and Repay
// =========================================================================

// Burn destroys up to amount of caller's debt tokens to reduce recipient's
// debt and returns the amount burned.
func (a *Alchemist) Burn(caller common.Address, amount *big.Int, recipient common.Address) (*big.Int, error) {
	if !positive(amount) {
		return nil, ErrZeroAmount
	}
	if recipient == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	var burned *big.Int
	err := a.execute("burn", func(tx *txn) error {
		admin, err := tx.admin()
		if err != nil {
			return err
		}
		acct, err := a.poke(tx, recipient)
		if err != nil {
			return err
		}
		if acct.Debt.Sign() <= 0 {
			return fmt.Errorf("%w: %s", ErrNoDebt, recipient.Hex())
		}
		burned = minBig(amount, acct.Debt)
		acct.Debt = new(big.Int).Sub(acct.Debt, burned)
		admin.MintLimiter.Increase(burned, tx.now)
		if err := a.bank.Burn(admin.DebtToken, caller, burned); err != nil {
			return err
		}
		tx.emit(EventBurn, caller, burned, recipient)
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.log.Debug("burn", "sender", caller, "amount", burned, "recipient", recipient)
	return burned, nil
}

// Repay sends up to amount of caller's underlying tokens to the transmuter to
// reduce recipient's debt and returns the amount used.
func (a *Alchemist) Repay(caller, underlyingToken common.Address, amount *big.Int, recipient common.Address) (*big.Int, error) {
	if !positive(amount) {
		return nil, ErrZeroAmount
	}
	if recipient == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	var repaid *big.Int
	err := a.execute("repay", func(tx *txn) error {
		admin, err := tx.admin()
		if err != nil {
			return err
		}
		under, err := tx.underlyingToken(underlyingToken)
		if err != nil {
			return err
		}
		if !under.Enabled {
			return fmt.Errorf("%w: %s", ErrTokenDisabled, underlyingToken.Hex())
		}
		acct, err := a.poke(tx, recipient)
		if err != nil {
			return err
		}
		if acct.Debt.Sign() <= 0 {
			return fmt.Errorf("%w: %s", ErrNoDebt, recipient.Hex())
		}
		maximum := under.denormalize(acct.Debt)
		if maximum.Sign() == 0 {
			return fmt.Errorf("%w: debt %s is below one unit of %s", ErrZeroAmount, acct.Debt, underlyingToken.Hex())
		}
		repaid = minBig(amount, maximum)
		if err := under.RepayLimiter.Decrease(RepayLimiter, repaid, tx.now); err != nil {
			return fmt.Errorf("%s: %w", underlyingToken.Hex(), err)
		}
		acct.Debt = new(big.Int).Sub(acct.Debt, under.normalize(repaid))

		if err := a.pull(underlyingToken, caller, admin.Transmuter, repaid); err != nil {
			return err
		}
		tx.notify(underlyingToken, repaid)
		tx.emit(EventRepay, caller, underlyingToken, repaid, recipient)
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.log.Debug("repay",
		"sender", caller,
		"token", underlyingToken,
		"amount", repaid,
		"recipient", recipient,
	)
	return repaid, nil
}

// =========================================================================
// Maintenance
// =========================================================================

// Harvest re-prices a pool and distributes any yield. Only keepers may call
// it; every other operation harvests the pools it touches on its own.
func (a *Alchemist) Harvest(caller, token common.Address) error {
	return a.execute("harvest", func(tx *txn) error {
		admin, err := tx.admin()
		if err != nil {
			return err
		}
		if !containsAddress(admin.Keepers, caller) {
			return ErrNotKeeper
		}
		pool, err := tx.yieldToken(token)
		if err != nil {
			return err
		}
		_, err = a.harvest(tx, pool)
		return err
	})
}

// Poke settles all of owner's positions.
func (a *Alchemist) Poke(owner common.Address) error {
	return a.execute("poke", func(tx *txn) error {
		_, err := a.poke(tx, owner)
		return err
	})
}
