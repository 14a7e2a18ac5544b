// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
)

// ApproveMint sets how much debt spender may mint against owner's
// collateral. The new amount replaces the old one.
func (a *Alchemist) ApproveMint(owner, spender common.Address, amount *big.Int) error {
	if spender == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: allowance %v", ErrInvalidParameter, amount)
	}
	return a.execute("approveMint", func(tx *txn) error {
		allowed, err := tx.mintAllowance(owner, spender)
		if err != nil {
			return err
		}
		allowed.Amount = clone(amount)
		tx.emit(EventApproveMint, owner, spender, amount)
		return nil
	})
}

// ApproveWithdraw sets how many shares of token spender may withdraw from
// owner's position. The new amount replaces the old one.
func (a *Alchemist) ApproveWithdraw(owner, spender, token common.Address, shares *big.Int) error {
	if spender == (common.Address{}) {
		return ErrZeroAddress
	}
	if shares == nil || shares.Sign() < 0 {
		return fmt.Errorf("%w: allowance %v", ErrInvalidParameter, shares)
	}
	return a.execute("approveWithdraw", func(tx *txn) error {
		if _, err := tx.yieldToken(token); err != nil {
			return err
		}
		allowed, err := tx.withdrawAllowance(owner, spender, token)
		if err != nil {
			return err
		}
		allowed.Amount = clone(shares)
		tx.emit(EventApproveWithdraw, owner, spender, token, shares)
		return nil
	})
}

// MintAllowance returns the remaining mint allowance of spender over owner.
func (a *Alchemist) MintAllowance(owner, spender common.Address) (*big.Int, error) {
	var out *big.Int
	err := a.view(func(tx *txn) error {
		allowed, err := tx.mintAllowance(owner, spender)
		if err != nil {
			return err
		}
		out = clone(allowed.Amount)
		return nil
	})
	return out, err
}

// WithdrawAllowance returns the remaining share allowance of spender over
// owner's position in token.
func (a *Alchemist) WithdrawAllowance(owner, spender, token common.Address) (*big.Int, error) {
	var out *big.Int
	err := a.view(func(tx *txn) error {
		allowed, err := tx.withdrawAllowance(owner, spender, token)
		if err != nil {
			return err
		}
		out = clone(allowed.Amount)
		return nil
	})
	return out, err
}

// spend consumes amount from a delegated allowance.
func spend(allowed *allowance, amount *big.Int, owner, spender common.Address) error {
	if amount.Cmp(allowed.Amount) > 0 {
		return fmt.Errorf("%w: %s allows %s %s, need %s",
			ErrInsufficientAllowance, owner.Hex(), spender.Hex(), allowed.Amount, amount)
	}
	allowed.Amount = new(big.Int).Sub(allowed.Amount, amount)
	return nil
}

func (a *Alchemist) spendMintAllowance(tx *txn, owner, spender common.Address, amount *big.Int) error {
	allowed, err := tx.mintAllowance(owner, spender)
	if err != nil {
		return err
	}
	return spend(allowed, amount, owner, spender)
}

func (a *Alchemist) spendWithdrawAllowance(tx *txn, owner, spender, token common.Address, shares *big.Int) error {
	allowed, err := tx.withdrawAllowance(owner, spender, token)
	if err != nil {
		return err
	}
	return spend(allowed, shares, owner, spender)
}
