// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package precompile

import (
	"math/big"
	"testing"

	"github.com/luxfi/crypto"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/alchemist/alchemist"
	"github.com/luxfi/alchemist/host"
	"github.com/luxfi/alchemist/transmuter"
)

var (
	admin      = common.HexToAddress("0xa0")
	alice      = common.HexToAddress("0xa1")
	bob        = common.HexToAddress("0xb0")
	debtToken  = common.HexToAddress("0xd0")
	usdc       = common.HexToAddress("0x10")
	yvUSDC     = common.HexToAddress("0x11")
	engine     = common.HexToAddress(AlchemistAddress)
	transmuted = common.HexToAddress("0x9031")
)

func usd(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000)) }

func debt(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), alchemist.PRECISION) }

type fixture struct {
	ledger   *host.Ledger
	oracle   *host.Oracle
	sink     *LogSink
	contract *Contract
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ledger := host.NewLedger()
	oracle := host.NewOracle()
	oracle.SetRate(yvUSDC, usd(1))
	tm := transmuter.New(transmuted, debtToken, ledger, nil)
	require.NoError(t, tm.AddQueue(usdc, 6))
	adapter := host.NewAdapter(ledger, oracle, yvUSDC, usdc, engine, 6)

	sink := NewLogSink(engine)
	a, err := alchemist.New(alchemist.DefaultConfig(admin, debtToken, transmuted), alchemist.Options{
		Address:  engine,
		Oracle:   oracle,
		Bank:     host.NewCustody(ledger, engine),
		Sink:     tm,
		Clock:    host.NewClock(1),
		Database: memdb.New(),
		Emitter:  sink,
	})
	require.NoError(t, err)
	require.NoError(t, a.AddUnderlyingToken(admin, alchemist.UnderlyingTokenConfig{
		Token:                   usdc,
		Decimals:                6,
		RepayLimitMaximum:       usd(1_000),
		RepayLimitBlocks:        10,
		LiquidationLimitMaximum: usd(1_000),
		LiquidationLimitBlocks:  10,
	}))
	require.NoError(t, a.AddYieldToken(admin, alchemist.YieldTokenConfig{
		Token:                yvUSDC,
		Underlying:           usdc,
		Decimals:             6,
		MaximumExpectedValue: usd(1_000_000),
	}, adapter))
	require.NoError(t, a.SetUnderlyingTokenEnabled(admin, usdc, true))
	require.NoError(t, a.SetYieldTokenEnabled(admin, yvUSDC, true))
	require.NoError(t, ledger.Mint(yvUSDC, alice, usd(1_000)))

	f := &fixture{ledger: ledger, oracle: oracle, sink: sink, contract: NewContract(a, sink)}
	f.contract.Logs()
	return f
}

func pack(t *testing.T, method string, args ...interface{}) []byte {
	t.Helper()
	input, err := alchemistABI.Pack(method, args...)
	require.NoError(t, err)
	return input
}

func (f *fixture) run(t *testing.T, caller common.Address, method string, args ...interface{}) []interface{} {
	t.Helper()
	ret, _, err := f.contract.Run(caller, pack(t, method, args...), 1_000_000, false)
	require.NoError(t, err)
	out, err := alchemistABI.Unpack(method, ret)
	require.NoError(t, err)
	return out
}

func TestRunDepositAndMint(t *testing.T) {
	f := newFixture(t)

	out := f.run(t, alice, "deposit", yvUSDC, usd(1_000), alice)
	require.Zero(t, usd(1_000).Cmp(out[0].(*big.Int)))

	f.run(t, alice, "mint", debt(100), bob)
	require.Zero(t, debt(100).Cmp(f.ledger.BalanceOf(debtToken, bob)))

	out = f.run(t, bob, "accounts", alice)
	require.Zero(t, debt(100).Cmp(out[0].(*big.Int)))
	require.Equal(t, []common.Address{yvUSDC}, out[1].([]common.Address))

	out = f.run(t, bob, "positions", alice, yvUSDC)
	require.Zero(t, usd(1_000).Cmp(out[0].(*big.Int)))
	require.Zero(t, usd(1_000).Cmp(out[1].(*big.Int)))

	out = f.run(t, bob, "getRepayLimitInfo", usdc)
	require.Zero(t, usd(100).Cmp(out[0].(*big.Int)))
	require.Zero(t, usd(1_000).Cmp(out[2].(*big.Int)))

	logs := f.contract.Logs()
	require.Len(t, logs, 2)
	deposit := logs[0]
	require.Equal(t, engine, deposit.Address)
	require.Equal(t, alchemistABI.Events["Deposit"].ID, deposit.Topics[0])
	require.Equal(t, crypto.Keccak256([]byte("Deposit(address,address,uint256,address,uint256)")), deposit.Topics[0].Bytes())
	require.Equal(t, common.BytesToHash(alice.Bytes()), deposit.Topics[1])
	require.Equal(t, common.BytesToHash(yvUSDC.Bytes()), deposit.Topics[2])
	require.Equal(t, alchemistABI.Events["Mint"].ID, logs[1].Topics[0])
	require.NoError(t, f.sink.Err())
	require.Empty(t, f.contract.Logs())
}

func TestRunNegativeDebt(t *testing.T) {
	f := newFixture(t)
	f.run(t, alice, "deposit", yvUSDC, usd(100), alice)

	// Yield on a debt free account leaves a credit.
	f.oracle.SetRate(yvUSDC, big.NewInt(1_100_000))
	f.run(t, bob, "poke", alice)

	out := f.run(t, bob, "accounts", alice)
	require.Zero(t, debt(-10).Cmp(out[0].(*big.Int)))

	logs := f.contract.Logs()
	require.Len(t, logs, 3)
	require.Equal(t, alchemistABI.Events["Harvest"].ID, logs[1].Topics[0])
	require.Equal(t, alchemistABI.Events["Settle"].ID, logs[2].Topics[0])
	require.NoError(t, f.sink.Err())
}

func TestRunWriteProtection(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.contract.Run(alice, pack(t, "deposit", yvUSDC, usd(1), alice), 1_000_000, true)
	require.ErrorIs(t, err, ErrWriteProtection)
	require.Zero(t, f.ledger.BalanceOf(yvUSDC, engine).Sign())

	ret, remaining, err := f.contract.Run(alice, pack(t, "getMintLimitInfo"), 1_000_000, true)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000)-GasLookup, remaining)
	out, err := alchemistABI.Unpack("getMintLimitInfo", ret)
	require.NoError(t, err)
	require.Len(t, out, 3)
}

func TestRunGas(t *testing.T) {
	f := newFixture(t)
	input := pack(t, "liquidate", yvUSDC, debt(1), big.NewInt(0))
	require.Equal(t, GasLiquidate, f.contract.RequiredGas(input))
	require.Equal(t, GasDeposit+GasUnwrap, f.contract.RequiredGas(pack(t, "depositUnderlying", yvUSDC, usd(1), alice, big.NewInt(0))))
	require.Equal(t, GasLookup, f.contract.RequiredGas([]byte{0x01}))

	_, remaining, err := f.contract.Run(alice, input, GasLiquidate-1, false)
	require.ErrorIs(t, err, ErrOutOfGas)
	require.Zero(t, remaining)
}

func TestRunBadInput(t *testing.T) {
	f := newFixture(t)

	_, remaining, err := f.contract.Run(alice, []byte{0x01, 0x02}, 100, false)
	require.ErrorIs(t, err, ErrInputTooShort)
	require.Equal(t, uint64(100), remaining)

	_, _, err = f.contract.Run(alice, []byte{0xde, 0xad, 0xbe, 0xef}, 100, false)
	require.ErrorIs(t, err, ErrUnknownMethod)

	input := pack(t, "deposit", yvUSDC, usd(1), alice)
	_, _, err = f.contract.Run(alice, input[:20], 1_000_000, false)
	require.ErrorIs(t, err, ErrInvalidArguments)
}

func TestRunEngineError(t *testing.T) {
	f := newFixture(t)
	f.run(t, alice, "deposit", yvUSDC, usd(100), alice)

	_, _, err := f.contract.Run(alice, pack(t, "mint", debt(51), alice), 1_000_000, false)
	require.ErrorIs(t, err, alchemist.ErrUndercollateralized)

	_, _, err = f.contract.Run(bob, pack(t, "harvest", yvUSDC), 1_000_000, false)
	require.ErrorIs(t, err, alchemist.ErrUnauthorized)
}

func TestLogSinkRejectsUnknownEvents(t *testing.T) {
	sink := NewLogSink(engine)
	sink.Emit(alchemist.Event{Name: "Nope"})
	require.ErrorIs(t, sink.Err(), ErrUnknownEvent)
	sink.Emit(alchemist.Event{Name: alchemist.EventMint, Args: []interface{}{alice}})
	require.ErrorIs(t, sink.Err(), ErrInvalidArguments)
	sink.Emit(alchemist.Event{Name: alchemist.EventMint, Args: []interface{}{usd(1), usd(1), alice}})
	require.Empty(t, sink.Drain())
	require.Contains(t, sink.Err().Error(), "Mint.owner")

	sink = NewLogSink(engine)
	sink.Emit(alchemist.Event{Name: alchemist.EventTokenEnabled, Args: []interface{}{usdc, true}})
	logs := sink.Drain()
	require.Len(t, logs, 1)
	require.Len(t, logs[0].Topics, 2)
	require.NoError(t, sink.Err())
}

func TestMethods(t *testing.T) {
	methods := Methods()
	require.Len(t, methods, len(alchemistABI.Methods))
	for _, m := range methods {
		if m.Name == "deposit(address,uint256,address)" {
			require.Equal(t, GasDeposit, m.Gas)
			require.False(t, m.ReadOnly)
			return
		}
	}
	t.Fatal("deposit not listed")
}
