// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"math/big"
	"sync"
	"testing"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/alchemist/host"
	"github.com/luxfi/alchemist/transmuter"
)

var (
	adminAddr      = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	alice          = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob            = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	carol          = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	keeper         = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	sentinel       = common.HexToAddress("0x00000000000000000000000000000000000000e2")
	engineAddr     = common.HexToAddress("0x0000000000000000000000000000000000009030")
	transmuterAddr = common.HexToAddress("0x0000000000000000000000000000000000009031")

	debtToken = common.HexToAddress("0x00000000000000000000000000000000000000d0")
	usdc      = common.HexToAddress("0x0000000000000000000000000000000000000010")
	yvUSDC    = common.HexToAddress("0x0000000000000000000000000000000000000011")
)

// usd returns n whole USDC.
func usd(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000))
}

// debt returns n whole debt tokens.
func debt(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), PRECISION)
}

// rateOf returns an exchange rate of num/den underlying per yield token.
func rateOf(num, den int64) *big.Int {
	r := new(big.Int).Mul(big.NewInt(num), big.NewInt(1_000_000))
	return r.Quo(r, big.NewInt(den))
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) named(name string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

type harness struct {
	ledger     *host.Ledger
	oracle     *host.Oracle
	clock      *host.Clock
	custody    *host.Custody
	adapter    *host.Adapter
	transmuter *transmuter.Transmuter
	db         database.Database
	events     *recorder
	logger     log.Logger
	a          *Alchemist
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ledger: host.NewLedger(),
		oracle: host.NewOracle(),
		clock:  host.NewClock(100),
		db:     memdb.New(),
		events: &recorder{},
	}
	h.oracle.SetRate(yvUSDC, rateOf(1, 1))
	h.custody = host.NewCustody(h.ledger, engineAddr)
	h.adapter = host.NewAdapter(h.ledger, h.oracle, yvUSDC, usdc, engineAddr, 6)
	h.transmuter = transmuter.New(transmuterAddr, debtToken, h.ledger, nil)
	require.NoError(t, h.transmuter.AddQueue(usdc, 6))

	h.a = h.open(t)
	require.NoError(t, h.a.AddUnderlyingToken(adminAddr, UnderlyingTokenConfig{
		Token:                   usdc,
		Decimals:                6,
		RepayLimitMaximum:       usd(10_000),
		RepayLimitBlocks:        100,
		LiquidationLimitMaximum: usd(10_000),
		LiquidationLimitBlocks:  100,
	}))
	require.NoError(t, h.a.AddYieldToken(adminAddr, YieldTokenConfig{
		Token:                yvUSDC,
		Underlying:           usdc,
		Decimals:             6,
		MaximumLoss:          100,
		MaximumExpectedValue: usd(1_000_000),
	}, h.adapter))
	require.NoError(t, h.a.SetUnderlyingTokenEnabled(adminAddr, usdc, true))
	require.NoError(t, h.a.SetYieldTokenEnabled(adminAddr, yvUSDC, true))
	require.NoError(t, h.a.SetKeeper(adminAddr, keeper, true))
	require.NoError(t, h.a.SetSentinel(adminAddr, sentinel, true))
	return h
}

// open creates an engine over the harness database.
func (h *harness) open(t *testing.T) *Alchemist {
	t.Helper()
	cfg := DefaultConfig(adminAddr, debtToken, transmuterAddr)
	a, err := New(cfg, Options{
		Address:  engineAddr,
		Oracle:   h.oracle,
		Bank:     h.custody,
		Sink:     h.transmuter,
		Clock:    h.clock,
		Adapters: map[common.Address]Adapter{yvUSDC: h.adapter},
		Database: h.db,
		Logger:   h.logger,
		Emitter:  h.events,
	})
	require.NoError(t, err)
	return a
}

// fund gives owner amount yield tokens.
func (h *harness) fund(t *testing.T, owner common.Address, amount *big.Int) {
	t.Helper()
	require.NoError(t, h.ledger.Mint(yvUSDC, owner, amount))
}

// deposit funds owner and deposits amount yield tokens for them.
func (h *harness) deposit(t *testing.T, owner common.Address, amount *big.Int) *big.Int {
	t.Helper()
	h.fund(t, owner, amount)
	shares, err := h.a.Deposit(owner, yvUSDC, amount, owner)
	require.NoError(t, err)
	return shares
}

func (h *harness) balance(token, owner common.Address) *big.Int {
	return h.ledger.BalanceOf(token, owner)
}

func (h *harness) debtOf(t *testing.T, owner common.Address) *big.Int {
	t.Helper()
	info, err := h.a.Account(owner)
	require.NoError(t, err)
	return info.Debt
}

func (h *harness) sharesOf(t *testing.T, owner common.Address) *big.Int {
	t.Helper()
	info, err := h.a.Position(owner, yvUSDC)
	require.NoError(t, err)
	return info.Shares
}

// within asserts |got - want| <= tol.
func within(t *testing.T, want, got *big.Int, tol int64) {
	t.Helper()
	diff := new(big.Int).Sub(want, got)
	require.LessOrEqual(t, diff.CmpAbs(big.NewInt(tol)), 0, "want %s got %s", want, got)
}

// requireBig asserts two integers are numerically equal.
func requireBig(t *testing.T, want, got *big.Int) {
	t.Helper()
	require.NotNil(t, got)
	require.Zero(t, want.Cmp(got), "want %s got %s", want, got)
}
