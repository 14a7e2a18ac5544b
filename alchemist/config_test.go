// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func TestConfigVerify(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		err    error
	}{
		{
			name:   "default",
			modify: func(*Config) {},
		},
		{
			name:   "zero admin",
			modify: func(c *Config) { c.Admin = common.Address{} },
			err:    ErrZeroAddress,
		},
		{
			name:   "zero debt token",
			modify: func(c *Config) { c.DebtToken = common.Address{} },
			err:    ErrZeroAddress,
		},
		{
			name:   "zero transmuter",
			modify: func(c *Config) { c.Transmuter = common.Address{} },
			err:    ErrZeroAddress,
		},
		{
			name:   "ratio below one",
			modify: func(c *Config) { c.MinimumCollateralization = big.NewInt(999) },
			err:    ErrInvalidCollateralRatio,
		},
		{
			name:   "missing ratio",
			modify: func(c *Config) { c.MinimumCollateralization = nil },
			err:    ErrInvalidCollateralRatio,
		},
		{
			name:   "negative minting limit",
			modify: func(c *Config) { c.MintingLimitMaximum = big.NewInt(-1) },
			err:    ErrInvalidParameter,
		},
		{
			name:   "penalty of one hundred percent",
			modify: func(c *Config) { c.LiquidationPenalty = 10_000 },
			err:    ErrInvalidParameter,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(adminAddr, debtToken, transmuterAddr)
			tt.modify(&cfg)
			err := cfg.Verify()
			if tt.err == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.err)
			require.ErrorIs(t, err, ErrIllegalArgument)
		})
	}
}

func TestConfigEqual(t *testing.T) {
	a := DefaultConfig(adminAddr, debtToken, transmuterAddr)
	b := DefaultConfig(adminAddr, debtToken, transmuterAddr)
	require.True(t, a.Equal(&b))
	require.False(t, a.Equal(nil))

	b.MinimumCollateralization = new(big.Int).Mul(big.NewInt(3), PRECISION)
	require.False(t, a.Equal(&b))

	b = DefaultConfig(adminAddr, debtToken, transmuterAddr)
	b.MintingLimitMaximum = nil
	require.False(t, a.Equal(&b))

	b = DefaultConfig(adminAddr, debtToken, transmuterAddr)
	b.ProtocolFeeReceiver = carol
	require.False(t, a.Equal(&b))
}

func TestTokenConfigVerify(t *testing.T) {
	y := YieldTokenConfig{
		Token:                yvUSDC,
		Underlying:           usdc,
		Decimals:             6,
		MaximumExpectedValue: usd(1),
	}
	require.NoError(t, y.verify())

	bad := y
	bad.Underlying = common.Address{}
	require.ErrorIs(t, bad.verify(), ErrZeroAddress)

	bad = y
	bad.MaximumLoss = 10_001
	require.ErrorIs(t, bad.verify(), ErrInvalidParameter)

	bad = y
	bad.MaximumExpectedValue = nil
	require.ErrorIs(t, bad.verify(), ErrInvalidParameter)

	u := UnderlyingTokenConfig{Token: usdc, Decimals: 18}
	require.NoError(t, u.verify())
	u.Decimals = 24
	require.ErrorIs(t, u.verify(), ErrInvalidDecimals)
}
