// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package host

import (
	"errors"
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

var (
	token      = common.HexToAddress("0x10")
	yieldToken = common.HexToAddress("0x11")
	alice      = common.HexToAddress("0xa1")
	bob        = common.HexToAddress("0xb0")
	vault      = common.HexToAddress("0x9030")
)

func requireBalance(t *testing.T, l *Ledger, tok, owner common.Address, want int64) {
	t.Helper()
	got := l.BalanceOf(tok, owner)
	require.Zero(t, got.Cmp(big.NewInt(want)), "balance of %s: want %d got %s", owner.Hex(), want, got)
}

func TestLedgerTransfer(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Mint(token, alice, big.NewInt(100)))
	require.NoError(t, l.Transfer(token, alice, bob, big.NewInt(40)))

	requireBalance(t, l, token, alice, 60)
	requireBalance(t, l, token, bob, 40)
	require.Zero(t, l.TotalSupply(token).Cmp(big.NewInt(100)))

	err := l.Transfer(token, alice, bob, big.NewInt(61))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	require.ErrorIs(t, l.Transfer(token, alice, bob, big.NewInt(-1)), ErrInvalidAmount)
	require.ErrorIs(t, l.Mint(token, alice, nil), ErrInvalidAmount)

	huge := new(big.Int).Lsh(big.NewInt(1), 256)
	require.ErrorIs(t, l.Mint(token, alice, huge), ErrInvalidAmount)
}

func TestLedgerBurn(t *testing.T) {
	l := NewLedger()
	require.ErrorIs(t, l.Burn(token, alice, big.NewInt(1)), ErrInsufficientBalance)

	require.NoError(t, l.Mint(token, alice, big.NewInt(100)))
	require.NoError(t, l.Burn(token, alice, big.NewInt(30)))
	requireBalance(t, l, token, alice, 70)
	require.Zero(t, l.TotalSupply(token).Cmp(big.NewInt(70)))
}

func TestLedgerSnapshot(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Mint(token, alice, big.NewInt(100)))

	outer := l.Snapshot()
	require.NoError(t, l.Transfer(token, alice, bob, big.NewInt(10)))
	inner := l.Snapshot()
	require.NoError(t, l.Mint(yieldToken, bob, big.NewInt(5)))
	require.NoError(t, l.Burn(token, alice, big.NewInt(20)))

	l.RevertToSnapshot(inner)
	requireBalance(t, l, token, alice, 90)
	requireBalance(t, l, token, bob, 10)
	requireBalance(t, l, yieldToken, bob, 0)
	require.Zero(t, l.TotalSupply(yieldToken).Sign())
	require.Zero(t, l.TotalSupply(token).Cmp(big.NewInt(100)))

	l.RevertToSnapshot(outer)
	requireBalance(t, l, token, alice, 100)
	requireBalance(t, l, token, bob, 0)

	// Reverting invalidates later snapshots.
	require.Panics(t, func() { l.RevertToSnapshot(inner) })
}

func TestCustodyTransferFee(t *testing.T) {
	l := NewLedger()
	c := NewCustody(l, vault)
	require.Equal(t, vault, c.Holder())
	require.NoError(t, l.Mint(token, alice, big.NewInt(1_000)))

	require.NoError(t, c.TransferIn(token, alice, vault, big.NewInt(100)))
	requireBalance(t, l, token, vault, 100)

	c.SetTransferFee(token, 100)
	require.NoError(t, c.TransferIn(token, alice, vault, big.NewInt(500)))
	requireBalance(t, l, token, vault, 595)
	requireBalance(t, l, token, alice, 400)
	require.Zero(t, l.TotalSupply(token).Cmp(big.NewInt(995)))

	require.NoError(t, c.TransferOut(token, bob, big.NewInt(95)))
	require.Zero(t, c.BalanceOf(token, bob).Cmp(big.NewInt(95)))

	id := c.Snapshot()
	require.NoError(t, c.Mint(token, bob, big.NewInt(5)))
	require.NoError(t, c.Burn(token, vault, big.NewInt(500)))
	c.RevertToSnapshot(id)
	requireBalance(t, l, token, bob, 95)
	requireBalance(t, l, token, vault, 500)
}

func TestOracle(t *testing.T) {
	o := NewOracle()
	_, err := o.ExchangeRate(yieldToken)
	require.ErrorIs(t, err, ErrNoPrice)

	rate := big.NewInt(1_100_000)
	o.SetRate(yieldToken, rate)
	rate.SetInt64(0)
	got, err := o.ExchangeRate(yieldToken)
	require.NoError(t, err)
	require.Zero(t, got.Cmp(big.NewInt(1_100_000)))

	errDown := errors.New("feed down")
	o.Fail(yieldToken, errDown)
	_, err = o.ExchangeRate(yieldToken)
	require.ErrorIs(t, err, errDown)

	o.SetRate(yieldToken, big.NewInt(1_000_000))
	_, err = o.ExchangeRate(yieldToken)
	require.NoError(t, err)
	require.Equal(t, 4, o.Reads())
}

func TestAdapter(t *testing.T) {
	l := NewLedger()
	o := NewOracle()
	o.SetRate(yieldToken, big.NewInt(2_000_000))
	a := NewAdapter(l, o, yieldToken, token, vault, 6)

	require.NoError(t, l.Mint(token, vault, big.NewInt(10_000_000)))
	out, err := a.Wrap(big.NewInt(10_000_000), vault)
	require.NoError(t, err)
	require.Zero(t, out.Cmp(big.NewInt(5_000_000)))
	requireBalance(t, l, token, vault, 0)
	requireBalance(t, l, yieldToken, vault, 5_000_000)

	a.SetSlippage(100)
	out, err = a.Unwrap(big.NewInt(1_000_000), bob)
	require.NoError(t, err)
	require.Zero(t, out.Cmp(big.NewInt(1_980_000)))
	requireBalance(t, l, token, bob, 1_980_000)
	requireBalance(t, l, yieldToken, vault, 4_000_000)

	_, err = a.Unwrap(big.NewInt(5_000_000), bob)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	calls := 0
	a.OnCall(func() { calls++ })
	_, err = a.Unwrap(big.NewInt(1), bob)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestClock(t *testing.T) {
	c := NewClock(10)
	require.Equal(t, uint64(10), c.BlockNumber())
	require.Equal(t, uint64(15), c.Advance(5))
	c.Set(3)
	require.Equal(t, uint64(3), c.BlockNumber())
}
