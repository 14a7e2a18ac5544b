// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLimiterRefill(t *testing.T) {
	l, err := NewLimiter(big.NewInt(1_000), 10, 100)
	require.NoError(t, err)
	requireBig(t, big.NewInt(100), l.Rate)
	requireBig(t, big.NewInt(1_000), l.Get(100))

	require.NoError(t, l.Decrease(MintLimiter, big.NewInt(1_000), 100))
	require.Zero(t, l.Get(100).Sign())

	err = l.Decrease(MintLimiter, big.NewInt(1), 100)
	require.ErrorIs(t, err, ErrLimitExceeded)
	require.Contains(t, err.Error(), "mint")

	requireBig(t, big.NewInt(300), l.Get(103))
	requireBig(t, big.NewInt(1_000), l.Get(110))
	requireBig(t, big.NewInt(1_000), l.Get(5_000))

	// Reads never move the bucket.
	require.Equal(t, uint64(100), l.LastBlock)
}

func TestLimiterRefillBelowOnePerBlock(t *testing.T) {
	l, err := NewLimiter(big.NewInt(50), 100, 0)
	require.NoError(t, err)
	require.Zero(t, l.Rate.Sign())
	require.NoError(t, l.Decrease(MintLimiter, big.NewInt(50), 0))

	require.Zero(t, l.Get(1).Sign())
	requireBig(t, big.NewInt(1), l.Get(2))
	requireBig(t, big.NewInt(25), l.Get(50))
	requireBig(t, big.NewInt(49), l.Get(99))
	requireBig(t, big.NewInt(50), l.Get(100))
	requireBig(t, big.NewInt(50), l.Get(1_000_000))
}

func TestLimiterRefillUneven(t *testing.T) {
	l, err := NewLimiter(big.NewInt(1_000), 3, 0)
	require.NoError(t, err)
	requireBig(t, big.NewInt(333), l.Rate)
	require.NoError(t, l.Decrease(RepayLimiter, big.NewInt(1_000), 0))

	requireBig(t, big.NewInt(333), l.Get(1))
	requireBig(t, big.NewInt(666), l.Get(2))
	// Full again after the configured period.
	requireBig(t, big.NewInt(1_000), l.Get(3))

	// Partial refills between decreases still end full.
	require.NoError(t, l.Decrease(RepayLimiter, big.NewInt(1_000), 3))
	require.NoError(t, l.Decrease(RepayLimiter, big.NewInt(333), 4))
	requireBig(t, big.NewInt(1_000), l.Get(7))
}

func TestLimiterIncrease(t *testing.T) {
	l, err := NewLimiter(big.NewInt(1_000), 10, 0)
	require.NoError(t, err)

	require.NoError(t, l.Decrease(RepayLimiter, big.NewInt(600), 0))
	l.Increase(big.NewInt(200), 1)
	requireBig(t, big.NewInt(700), l.Get(1))

	l.Increase(big.NewInt(5_000), 1)
	requireBig(t, big.NewInt(1_000), l.Get(1))
}

func TestLimiterConfigure(t *testing.T) {
	_, err := NewLimiter(big.NewInt(1), 0, 0)
	require.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewLimiter(big.NewInt(-1), 1, 0)
	require.ErrorIs(t, err, ErrInvalidParameter)

	l, err := NewLimiter(big.NewInt(1_000), 10, 0)
	require.NoError(t, err)
	require.NoError(t, l.Decrease(LiquidationLimiter, big.NewInt(400), 0))

	// Available capacity survives a reconfiguration, clamped to the new maximum.
	require.NoError(t, l.Configure(big.NewInt(2_000), 20, 0))
	requireBig(t, big.NewInt(600), l.Get(0))
	requireBig(t, big.NewInt(100), l.Rate)

	require.NoError(t, l.Configure(big.NewInt(50), 5, 0))
	requireBig(t, big.NewInt(50), l.Get(0))

	info := l.Info(0)
	requireBig(t, big.NewInt(10), info.Rate)
	requireBig(t, big.NewInt(50), info.Maximum)
	requireBig(t, big.NewInt(50), info.CurrentAvailable)
}

func TestLimiterClone(t *testing.T) {
	l, err := NewLimiter(big.NewInt(1_000), 10, 0)
	require.NoError(t, err)
	c := l.Clone()
	require.Equal(t, l.Blocks, c.Blocks)
	require.NoError(t, c.Decrease(MintLimiter, big.NewInt(1_000), 0))

	requireBig(t, big.NewInt(1_000), l.Get(0))
	require.Zero(t, c.Get(0).Sign())

	var nilLimiter *Limiter
	require.Nil(t, nilLimiter.Clone())
}

func TestLimiterKindString(t *testing.T) {
	require.Equal(t, "mint", MintLimiter.String())
	require.Equal(t, "repay", RepayLimiter.String())
	require.Equal(t, "liquidation", LiquidationLimiter.String())
	require.Equal(t, "unknown", LimiterKind(9).String())
}
