// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
)

// adminCall runs fn as an operation restricted to the admin.
func (a *Alchemist) adminCall(op string, caller common.Address, fn func(tx *txn, admin *AdminState) error) error {
	err := a.execute(op, func(tx *txn) error {
		admin, err := tx.admin()
		if err != nil {
			return err
		}
		if caller != admin.Admin {
			return ErrNotAdmin
		}
		return fn(tx, admin)
	})
	if err == nil {
		a.log.Info("admin update", "op", op, "caller", caller)
	}
	return err
}

// =========================================================================
// Roles
// =========================================================================

// SetPendingAdmin nominates the next admin. The nominee must accept.
func (a *Alchemist) SetPendingAdmin(caller, pending common.Address) error {
	return a.adminCall("setPendingAdmin", caller, func(tx *txn, admin *AdminState) error {
		admin.PendingAdmin = pending
		tx.emit(EventPendingAdmin, pending)
		return nil
	})
}

// AcceptAdmin completes an admin transfer. Only the pending admin may call it.
func (a *Alchemist) AcceptAdmin(caller common.Address) error {
	return a.execute("acceptAdmin", func(tx *txn) error {
		admin, err := tx.admin()
		if err != nil {
			return err
		}
		if admin.PendingAdmin == (common.Address{}) || caller != admin.PendingAdmin {
			return ErrNotPendingAdmin
		}
		admin.Admin = caller
		admin.PendingAdmin = common.Address{}
		tx.emit(EventAdminUpdated, caller)
		return nil
	})
}

// SetSentinel grants or revokes the sentinel role.
func (a *Alchemist) SetSentinel(caller, sentinel common.Address, flag bool) error {
	return a.adminCall("setSentinel", caller, func(tx *txn, admin *AdminState) error {
		admin.Sentinels = setAddress(admin.Sentinels, sentinel, flag)
		return nil
	})
}

// SetKeeper grants or revokes the keeper role.
func (a *Alchemist) SetKeeper(caller, keeper common.Address, flag bool) error {
	return a.adminCall("setKeeper", caller, func(tx *txn, admin *AdminState) error {
		admin.Keepers = setAddress(admin.Keepers, keeper, flag)
		return nil
	})
}

// =========================================================================
// Tokens
// =========================================================================

// AddUnderlyingToken registers an underlying token. It starts disabled.
func (a *Alchemist) AddUnderlyingToken(caller common.Address, cfg UnderlyingTokenConfig) error {
	if err := cfg.verify(); err != nil {
		return err
	}
	return a.adminCall("addUnderlyingToken", caller, func(tx *txn, admin *AdminState) error {
		if containsAddress(admin.UnderlyingTokens, cfg.Token) {
			return fmt.Errorf("%w: %s", ErrTokenExists, cfg.Token.Hex())
		}
		repay, err := NewLimiter(clone(cfg.RepayLimitMaximum), cfg.RepayLimitBlocks, tx.now)
		if err != nil {
			return fmt.Errorf("repay limiter: %w", err)
		}
		liq, err := NewLimiter(clone(cfg.LiquidationLimitMaximum), cfg.LiquidationLimitBlocks, tx.now)
		if err != nil {
			return fmt.Errorf("liquidation limiter: %w", err)
		}
		tx.put(underlyingTokenKey(cfg.Token), &UnderlyingTokenState{
			Token:              cfg.Token,
			Decimals:           cfg.Decimals,
			ConversionFactor:   pow10(DebtDecimals - cfg.Decimals),
			RepayLimiter:       repay,
			LiquidationLimiter: liq,
		})
		admin.UnderlyingTokens = append(admin.UnderlyingTokens, cfg.Token)
		tx.emit(EventAddUnderlyingToken, cfg.Token)
		return nil
	})
}

// AddYieldToken registers a yield token pool and its adapter. The underlying
// token must already be registered. The pool starts disabled.
func (a *Alchemist) AddYieldToken(caller common.Address, cfg YieldTokenConfig, adapter Adapter) error {
	if err := cfg.verify(); err != nil {
		return err
	}
	if adapter == nil {
		return fmt.Errorf("%w: adapter required", ErrInvalidParameter)
	}
	err := a.adminCall("addYieldToken", caller, func(tx *txn, admin *AdminState) error {
		if containsAddress(admin.YieldTokens, cfg.Token) {
			return fmt.Errorf("%w: %s", ErrTokenExists, cfg.Token.Hex())
		}
		if _, err := tx.underlyingToken(cfg.Underlying); err != nil {
			return err
		}
		tx.put(yieldTokenKey(cfg.Token), &YieldTokenState{
			Token:                    cfg.Token,
			Underlying:               cfg.Underlying,
			Decimals:                 cfg.Decimals,
			MaximumLoss:              cfg.MaximumLoss,
			MaximumExpectedValue:     clone(cfg.MaximumExpectedValue),
			Balance:                  zero(),
			TotalShares:              zero(),
			AccumulatedYieldPerShare: zero(),
			LastExchangeRate:         zero(),
			Deficit:                  zero(),
		})
		admin.YieldTokens = append(admin.YieldTokens, cfg.Token)
		tx.emit(EventAddYieldToken, cfg.Token, cfg.Underlying)
		return nil
	})
	if err != nil {
		return err
	}
	a.adaptersMu.Lock()
	a.adapters[cfg.Token] = adapter
	a.adaptersMu.Unlock()
	return nil
}

// SetAdapter replaces the adapter of a registered yield token.
func (a *Alchemist) SetAdapter(caller, token common.Address, adapter Adapter) error {
	if adapter == nil {
		return fmt.Errorf("%w: adapter required", ErrInvalidParameter)
	}
	err := a.adminCall("setAdapter", caller, func(tx *txn, _ *AdminState) error {
		_, err := tx.yieldToken(token)
		return err
	})
	if err != nil {
		return err
	}
	a.adaptersMu.Lock()
	a.adapters[token] = adapter
	a.adaptersMu.Unlock()
	return nil
}

// SetUnderlyingTokenEnabled enables or disables an underlying token. The
// admin may do both; sentinels may only disable.
func (a *Alchemist) SetUnderlyingTokenEnabled(caller, token common.Address, enabled bool) error {
	return a.execute("setUnderlyingTokenEnabled", func(tx *txn) error {
		if err := a.checkToggle(tx, caller, enabled); err != nil {
			return err
		}
		under, err := tx.underlyingToken(token)
		if err != nil {
			return err
		}
		under.Enabled = enabled
		tx.emit(EventTokenEnabled, token, enabled)
		return nil
	})
}

// SetYieldTokenEnabled enables or disables deposits into a pool. Withdrawals
// are always served.
func (a *Alchemist) SetYieldTokenEnabled(caller, token common.Address, enabled bool) error {
	return a.execute("setYieldTokenEnabled", func(tx *txn) error {
		if err := a.checkToggle(tx, caller, enabled); err != nil {
			return err
		}
		pool, err := tx.yieldToken(token)
		if err != nil {
			return err
		}
		pool.Enabled = enabled
		tx.emit(EventTokenEnabled, token, enabled)
		return nil
	})
}

func (a *Alchemist) checkToggle(tx *txn, caller common.Address, enabled bool) error {
	admin, err := tx.admin()
	if err != nil {
		return err
	}
	if caller == admin.Admin {
		return nil
	}
	if enabled {
		return ErrNotAdmin
	}
	if !containsAddress(admin.Sentinels, caller) {
		return ErrNotSentinel
	}
	return nil
}

// =========================================================================
// Parameters
// =========================================================================

// SetMaximumExpectedValue updates a pool's value ceiling.
func (a *Alchemist) SetMaximumExpectedValue(caller, token common.Address, value *big.Int) error {
	if value == nil || value.Sign() < 0 {
		return fmt.Errorf("%w: maximum expected value %v", ErrInvalidParameter, value)
	}
	return a.adminCall("setMaximumExpectedValue", caller, func(tx *txn, _ *AdminState) error {
		pool, err := tx.yieldToken(token)
		if err != nil {
			return err
		}
		pool.MaximumExpectedValue = clone(value)
		return nil
	})
}

// SetMaximumLoss updates a pool's tolerated drawdown in basis points.
func (a *Alchemist) SetMaximumLoss(caller, token common.Address, bps uint64) error {
	if bps > BPS.Uint64() {
		return fmt.Errorf("%w: maximum loss %d bps", ErrInvalidParameter, bps)
	}
	return a.adminCall("setMaximumLoss", caller, func(tx *txn, _ *AdminState) error {
		pool, err := tx.yieldToken(token)
		if err != nil {
			return err
		}
		pool.MaximumLoss = bps
		return nil
	})
}

// SetMinimumCollateralization updates the collateralization requirement.
func (a *Alchemist) SetMinimumCollateralization(caller common.Address, ratio *big.Int) error {
	if err := checkCollateralization(ratio); err != nil {
		return err
	}
	return a.adminCall("setMinimumCollateralization", caller, func(tx *txn, admin *AdminState) error {
		admin.MinimumCollateralization = clone(ratio)
		return nil
	})
}

// SetLiquidationPenalty updates the liquidation penalty in basis points.
func (a *Alchemist) SetLiquidationPenalty(caller common.Address, bps uint64) error {
	if bps >= BPS.Uint64() {
		return fmt.Errorf("%w: liquidation penalty %d bps", ErrInvalidParameter, bps)
	}
	return a.adminCall("setLiquidationPenalty", caller, func(tx *txn, admin *AdminState) error {
		admin.LiquidationPenalty = bps
		return nil
	})
}

// SetProtocolFeeReceiver updates where self-liquidation penalties are paid.
func (a *Alchemist) SetProtocolFeeReceiver(caller, receiver common.Address) error {
	if receiver == (common.Address{}) {
		return ErrZeroAddress
	}
	return a.adminCall("setProtocolFeeReceiver", caller, func(tx *txn, admin *AdminState) error {
		admin.ProtocolFeeReceiver = receiver
		return nil
	})
}

// ConfigureMintingLimit updates the global minting limiter.
func (a *Alchemist) ConfigureMintingLimit(caller common.Address, maximum *big.Int, blocks uint64) error {
	return a.adminCall("configureMintingLimit", caller, func(tx *txn, admin *AdminState) error {
		return admin.MintLimiter.Configure(maximum, blocks, tx.now)
	})
}

// ConfigureRepayLimit updates the repay limiter of an underlying token.
func (a *Alchemist) ConfigureRepayLimit(caller, token common.Address, maximum *big.Int, blocks uint64) error {
	return a.adminCall("configureRepayLimit", caller, func(tx *txn, _ *AdminState) error {
		under, err := tx.underlyingToken(token)
		if err != nil {
			return err
		}
		return under.RepayLimiter.Configure(maximum, blocks, tx.now)
	})
}

// ConfigureLiquidationLimit updates the liquidation limiter of an
// underlying token.
func (a *Alchemist) ConfigureLiquidationLimit(caller, token common.Address, maximum *big.Int, blocks uint64) error {
	return a.adminCall("configureLiquidationLimit", caller, func(tx *txn, _ *AdminState) error {
		under, err := tx.underlyingToken(token)
		if err != nil {
			return err
		}
		return under.LiquidationLimiter.Configure(maximum, blocks, tx.now)
	})
}
