// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
)

// Defaults
const (
	DefaultLiquidationPenalty = 500 // 5%
	DefaultMintingLimitBlocks = 7200
)

// Config is the initial configuration of an engine. It is only read when
// the database holds no state yet.
type Config struct {
	Admin               common.Address `json:"admin"`
	DebtToken           common.Address `json:"debtToken"`
	Transmuter          common.Address `json:"transmuter"`
	ProtocolFeeReceiver common.Address `json:"protocolFeeReceiver,omitempty"`

	// MinimumCollateralization is collateral per unit of debt, scaled by
	// PRECISION. 2e18 allows borrowing half of the collateral value.
	MinimumCollateralization *big.Int `json:"minimumCollateralization"`

	MintingLimitMaximum *big.Int `json:"mintingLimitMaximum"`
	MintingLimitBlocks  uint64   `json:"mintingLimitBlocks,omitempty"`

	// LiquidationPenalty in basis points.
	LiquidationPenalty uint64 `json:"liquidationPenalty,omitempty"`
}

// DefaultConfig returns a config with a 2x collateralization requirement.
func DefaultConfig(admin, debtToken, transmuter common.Address) Config {
	return Config{
		Admin:                    admin,
		DebtToken:                debtToken,
		Transmuter:               transmuter,
		ProtocolFeeReceiver:      admin,
		MinimumCollateralization: new(big.Int).Mul(big.NewInt(2), PRECISION),
		MintingLimitMaximum:      new(big.Int).Mul(big.NewInt(1_000_000), PRECISION),
		MintingLimitBlocks:       DefaultMintingLimitBlocks,
		LiquidationPenalty:       DefaultLiquidationPenalty,
	}
}

// Verify checks the config.
func (c *Config) Verify() error {
	if c.Admin == (common.Address{}) {
		return fmt.Errorf("admin: %w", ErrZeroAddress)
	}
	if c.DebtToken == (common.Address{}) {
		return fmt.Errorf("debt token: %w", ErrZeroAddress)
	}
	if c.Transmuter == (common.Address{}) {
		return fmt.Errorf("transmuter: %w", ErrZeroAddress)
	}
	if err := checkCollateralization(c.MinimumCollateralization); err != nil {
		return err
	}
	if c.MintingLimitMaximum == nil || c.MintingLimitMaximum.Sign() < 0 {
		return fmt.Errorf("%w: minting limit %v", ErrInvalidParameter, c.MintingLimitMaximum)
	}
	if c.LiquidationPenalty >= BPS.Uint64() {
		return fmt.Errorf("%w: liquidation penalty %d bps", ErrInvalidParameter, c.LiquidationPenalty)
	}
	return nil
}

// Equal reports whether two configs are identical.
func (c *Config) Equal(other *Config) bool {
	if other == nil {
		return false
	}
	return c.Admin == other.Admin &&
		c.DebtToken == other.DebtToken &&
		c.Transmuter == other.Transmuter &&
		c.ProtocolFeeReceiver == other.ProtocolFeeReceiver &&
		bigEqual(c.MinimumCollateralization, other.MinimumCollateralization) &&
		bigEqual(c.MintingLimitMaximum, other.MintingLimitMaximum) &&
		c.MintingLimitBlocks == other.MintingLimitBlocks &&
		c.LiquidationPenalty == other.LiquidationPenalty
}

func bigEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

func checkCollateralization(ratio *big.Int) error {
	if ratio == nil || ratio.Cmp(PRECISION) < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidCollateralRatio, ratio)
	}
	return nil
}

func (c *YieldTokenConfig) verify() error {
	if c.Token == (common.Address{}) || c.Underlying == (common.Address{}) {
		return ErrZeroAddress
	}
	if c.Decimals > 36 {
		return fmt.Errorf("%w: %d", ErrInvalidDecimals, c.Decimals)
	}
	if c.MaximumLoss > BPS.Uint64() {
		return fmt.Errorf("%w: maximum loss %d bps", ErrInvalidParameter, c.MaximumLoss)
	}
	if c.MaximumExpectedValue == nil || c.MaximumExpectedValue.Sign() < 0 {
		return fmt.Errorf("%w: maximum expected value %v", ErrInvalidParameter, c.MaximumExpectedValue)
	}
	return nil
}

func (c *UnderlyingTokenConfig) verify() error {
	if c.Token == (common.Address{}) {
		return ErrZeroAddress
	}
	if c.Decimals > DebtDecimals {
		return fmt.Errorf("%w: %d exceeds debt token decimals", ErrInvalidDecimals, c.Decimals)
	}
	return nil
}
