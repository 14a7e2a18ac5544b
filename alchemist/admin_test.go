// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func TestAdminTransfer(t *testing.T) {
	h := newHarness(t)

	require.ErrorIs(t, h.a.SetPendingAdmin(bob, bob), ErrNotAdmin)
	require.ErrorIs(t, h.a.AcceptAdmin(bob), ErrNotPendingAdmin)

	require.NoError(t, h.a.SetPendingAdmin(adminAddr, bob))
	require.ErrorIs(t, h.a.AcceptAdmin(carol), ErrNotPendingAdmin)
	require.NoError(t, h.a.AcceptAdmin(bob))

	admin, err := h.a.Admin()
	require.NoError(t, err)
	require.Equal(t, bob, admin.Admin)
	require.Equal(t, common.Address{}, admin.PendingAdmin)

	require.ErrorIs(t, h.a.SetKeeper(adminAddr, carol, true), ErrNotAdmin)
	require.NoError(t, h.a.SetKeeper(bob, carol, true))

	updated := h.events.named(EventAdminUpdated)
	require.Len(t, updated, 1)
	require.Equal(t, bob, updated[0].Address(0))
}

func TestRoles(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, alice, usd(10))

	// Sentinels may only disable.
	require.ErrorIs(t, h.a.SetYieldTokenEnabled(carol, yvUSDC, false), ErrNotSentinel)
	require.NoError(t, h.a.SetUnderlyingTokenEnabled(sentinel, usdc, false))
	require.ErrorIs(t, h.a.SetUnderlyingTokenEnabled(sentinel, usdc, true), ErrNotAdmin)

	h.fund(t, alice, usd(1))
	_, err := h.a.Deposit(alice, yvUSDC, usd(1), alice)
	require.ErrorIs(t, err, ErrTokenDisabled)

	require.NoError(t, h.a.SetUnderlyingTokenEnabled(adminAddr, usdc, true))
	_, err = h.a.Deposit(alice, yvUSDC, usd(1), alice)
	require.NoError(t, err)

	require.NoError(t, h.a.SetKeeper(adminAddr, keeper, false))
	require.ErrorIs(t, h.a.Harvest(keeper, yvUSDC), ErrUnauthorized)
}

func TestAddTokens(t *testing.T) {
	h := newHarness(t)
	dai := common.HexToAddress("0x20")
	yvDAI := common.HexToAddress("0x21")

	err := h.a.AddYieldToken(adminAddr, YieldTokenConfig{
		Token:                yvDAI,
		Underlying:           dai,
		Decimals:             18,
		MaximumExpectedValue: debt(1000),
	}, h.adapter)
	require.ErrorIs(t, err, ErrUnsupportedToken)

	err = h.a.AddUnderlyingToken(adminAddr, UnderlyingTokenConfig{Token: dai, Decimals: 19})
	require.ErrorIs(t, err, ErrInvalidDecimals)

	err = h.a.AddUnderlyingToken(adminAddr, UnderlyingTokenConfig{Token: dai, Decimals: 18})
	require.ErrorIs(t, err, ErrInvalidParameter)

	cfg := UnderlyingTokenConfig{
		Token:                   dai,
		Decimals:                18,
		RepayLimitMaximum:       debt(100),
		RepayLimitBlocks:        10,
		LiquidationLimitMaximum: debt(100),
		LiquidationLimitBlocks:  10,
	}
	require.ErrorIs(t, h.a.AddUnderlyingToken(bob, cfg), ErrNotAdmin)
	require.NoError(t, h.a.AddUnderlyingToken(adminAddr, cfg))
	require.ErrorIs(t, h.a.AddUnderlyingToken(adminAddr, cfg), ErrTokenExists)

	under, err := h.a.UnderlyingToken(dai)
	require.NoError(t, err)
	require.False(t, under.Enabled)
	requireBig(t, big.NewInt(1), under.ConversionFactor)

	require.ErrorIs(t, h.a.AddYieldToken(adminAddr, YieldTokenConfig{
		Token:                yvDAI,
		Underlying:           dai,
		Decimals:             18,
		MaximumExpectedValue: debt(1000),
	}, nil), ErrInvalidParameter)
	require.NoError(t, h.a.AddYieldToken(adminAddr, YieldTokenConfig{
		Token:                yvDAI,
		Underlying:           dai,
		Decimals:             18,
		MaximumExpectedValue: debt(1000),
	}, h.adapter))

	pool, err := h.a.YieldToken(yvDAI)
	require.Error(t, err, "no oracle rate for the new pool")
	require.Nil(t, pool)

	admin, err := h.a.Admin()
	require.NoError(t, err)
	require.Equal(t, []common.Address{yvUSDC, yvDAI}, admin.YieldTokens)
	require.Equal(t, []common.Address{usdc, dai}, admin.UnderlyingTokens)

	// New pools start disabled.
	h.oracle.SetRate(yvDAI, debt(1))
	require.NoError(t, h.ledger.Mint(yvDAI, alice, debt(1)))
	_, err = h.a.Deposit(alice, yvDAI, debt(1), alice)
	require.ErrorIs(t, err, ErrTokenDisabled)

	require.ErrorIs(t, h.a.SetAdapter(adminAddr, common.HexToAddress("0x99"), h.adapter), ErrUnsupportedToken)
	require.NoError(t, h.a.SetAdapter(adminAddr, yvDAI, h.adapter))
}

func TestParameters(t *testing.T) {
	h := newHarness(t)

	require.ErrorIs(t, h.a.SetMinimumCollateralization(adminAddr, big.NewInt(1)), ErrInvalidCollateralRatio)
	require.ErrorIs(t, h.a.SetMinimumCollateralization(bob, debt(3)), ErrNotAdmin)
	require.NoError(t, h.a.SetMinimumCollateralization(adminAddr, debt(4)))

	require.ErrorIs(t, h.a.SetLiquidationPenalty(adminAddr, 10_000), ErrInvalidParameter)
	require.NoError(t, h.a.SetLiquidationPenalty(adminAddr, 1_000))

	require.ErrorIs(t, h.a.SetProtocolFeeReceiver(adminAddr, common.Address{}), ErrZeroAddress)
	require.NoError(t, h.a.SetProtocolFeeReceiver(adminAddr, carol))

	require.ErrorIs(t, h.a.SetMaximumLoss(adminAddr, yvUSDC, 10_001), ErrInvalidParameter)
	require.NoError(t, h.a.SetMaximumLoss(adminAddr, yvUSDC, 500))

	require.ErrorIs(t, h.a.ConfigureMintingLimit(adminAddr, debt(1), 0), ErrInvalidParameter)

	admin, err := h.a.Admin()
	require.NoError(t, err)
	requireBig(t, debt(4), admin.MinimumCollateralization)
	require.Equal(t, uint64(1_000), admin.LiquidationPenalty)
	require.Equal(t, carol, admin.ProtocolFeeReceiver)

	h.deposit(t, alice, usd(1000))
	capacity, err := h.a.MaxMintable(alice)
	require.NoError(t, err)
	requireBig(t, debt(250), capacity)

	require.NoError(t, h.a.Mint(alice, debt(100), alice))
	res, err := h.a.Liquidate(alice, yvUSDC, debt(10), nil)
	require.NoError(t, err)
	require.Equal(t, carol, res.PenaltyReceiver)
	requireBig(t, usd(1), res.Penalty)
}
