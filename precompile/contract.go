// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package precompile exposes an alchemist engine through an ABI encoded call
// interface and turns its events into EVM logs.
package precompile

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"

	"github.com/luxfi/alchemist/alchemist"
	"github.com/luxfi/alchemist/modules"
)

// ConfigKey is the key used in config files to specify this precompile.
const ConfigKey = "alchemistConfig"

// AlchemistAddress is the default address of the precompile.
const AlchemistAddress = "0x0000000000000000000000000000000000009030"

// Module is the precompile module at AlchemistAddress.
var Module = modules.Module{
	ConfigKey: ConfigKey,
	Address:   common.HexToAddress(AlchemistAddress),
	Contract:  &Contract{},
}

func init() {
	if err := modules.RegisterModule(Module); err != nil {
		panic(err)
	}
}

// Gas costs
const (
	GasDeposit   uint64 = 20_000 // Deposit yield-bearing collateral
	GasWithdraw  uint64 = 15_000 // Withdraw collateral
	GasMint      uint64 = 25_000 // Mint debt tokens
	GasBurn      uint64 = 20_000 // Burn debt tokens
	GasRepay     uint64 = 15_000 // Repay debt with underlying
	GasLiquidate uint64 = 50_000 // Liquidate position
	GasHarvest   uint64 = 30_000 // Harvest yield
	GasApprove   uint64 = 5_000  // Set delegation allowance
	GasUnwrap    uint64 = 10_000 // Adapter call on top of a deposit or withdraw
	GasLookup    uint64 = 100    // State lookup
)

var (
	ErrInputTooShort    = errors.New("input too short")
	ErrUnknownMethod    = errors.New("unknown method selector")
	ErrWriteProtection  = errors.New("write protection")
	ErrOutOfGas         = errors.New("out of gas")
	ErrInvalidArguments = errors.New("invalid arguments")
)

var alchemistABI = ParseABI(AlchemistABI)

// =========================================================================
// Logs
// =========================================================================

// LogSink turns engine events into logs. Pass it to the engine as its
// Emitter.
type LogSink struct {
	address common.Address

	mu   sync.Mutex
	logs []*types.Log
	errs []error
}

func NewLogSink(address common.Address) *LogSink {
	return &LogSink{address: address}
}

// Emit packs ev into a log. Events that do not match the ABI are recorded
// as errors and dropped.
func (s *LogSink) Emit(ev alchemist.Event) {
	l, err := alchemistABI.log(s.address, ev)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.errs = append(s.errs, err)
		return
	}
	s.logs = append(s.logs, l)
}

// Drain returns and clears the collected logs.
func (s *LogSink) Drain() []*types.Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.logs
	s.logs = nil
	return out
}

// Err returns every packing failure seen so far.
func (s *LogSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.errs...)
}

// =========================================================================
// Contract
// =========================================================================

// Contract dispatches ABI calls to an engine.
type Contract struct {
	engine *alchemist.Alchemist
	logs   *LogSink
}

func NewContract(engine *alchemist.Alchemist, logs *LogSink) *Contract {
	return &Contract{engine: engine, logs: logs}
}

// Logs returns and clears the logs of the calls run so far.
func (c *Contract) Logs() []*types.Log {
	if c.logs == nil {
		return nil
	}
	return c.logs.Drain()
}

// Run executes the precompile
func (c *Contract) Run(
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) (ret []byte, remainingGas uint64, err error) {
	method, err := alchemistABI.method(input)
	if err != nil {
		return nil, suppliedGas, err
	}
	cost := c.RequiredGas(input)
	if suppliedGas < cost {
		return nil, 0, ErrOutOfGas
	}
	remainingGas = suppliedGas - cost
	if readOnly && !method.IsConstant() {
		return nil, remainingGas, ErrWriteProtection
	}

	in, err := alchemistABI.decode(input)
	if err != nil {
		return nil, remainingGas, err
	}
	out, err := c.call(caller, in)
	if err != nil {
		return nil, remainingGas, err
	}
	ret, err = alchemistABI.encode(in.method, out)
	return ret, remainingGas, err
}

func (c *Contract) call(caller common.Address, in call) ([]interface{}, error) {
	e := c.engine
	switch in.method.Name {
	case "deposit":
		shares, err := e.Deposit(caller, in.address(0), in.amount(1), in.address(2))
		return []interface{}{shares}, err
	case "depositUnderlying":
		shares, err := e.DepositUnderlying(caller, in.address(0), in.amount(1), in.address(2), in.amount(3))
		return []interface{}{shares}, err
	case "withdraw":
		amount, err := e.Withdraw(caller, in.address(0), in.amount(1), in.address(2))
		return []interface{}{amount}, err
	case "withdrawFrom":
		amount, err := e.WithdrawFrom(caller, in.address(0), in.address(1), in.amount(2), in.address(3))
		return []interface{}{amount}, err
	case "withdrawUnderlying":
		amount, err := e.WithdrawUnderlying(caller, in.address(0), in.amount(1), in.address(2), in.amount(3))
		return []interface{}{amount}, err
	case "withdrawUnderlyingFrom":
		amount, err := e.WithdrawUnderlyingFrom(caller, in.address(0), in.address(1), in.amount(2), in.address(3), in.amount(4))
		return []interface{}{amount}, err
	case "mint":
		return nil, e.Mint(caller, in.amount(0), in.address(1))
	case "mintFrom":
		return nil, e.MintFrom(caller, in.address(0), in.amount(1), in.address(2))
	case "burn":
		burned, err := e.Burn(caller, in.amount(0), in.address(1))
		return []interface{}{burned}, err
	case "repay":
		repaid, err := e.Repay(caller, in.address(0), in.amount(1), in.address(2))
		return []interface{}{repaid}, err
	case "liquidate":
		res, err := e.Liquidate(caller, in.address(0), in.amount(1), in.amount(2))
		if err != nil {
			return nil, err
		}
		return []interface{}{res.DebtReduced, res.UnderlyingOut}, nil
	case "liquidateAccount":
		res, err := e.LiquidateAccount(caller, in.address(0), in.address(1), in.amount(2), in.amount(3))
		if err != nil {
			return nil, err
		}
		return []interface{}{res.DebtReduced, res.UnderlyingOut}, nil
	case "approveMint":
		return nil, e.ApproveMint(caller, in.address(0), in.amount(1))
	case "approveWithdraw":
		return nil, e.ApproveWithdraw(caller, in.address(0), in.address(1), in.amount(2))
	case "harvest":
		return nil, e.Harvest(caller, in.address(0))
	case "poke":
		return nil, e.Poke(in.address(0))
	case "getMintLimitInfo":
		info, err := e.GetMintLimitInfo()
		return limitOutput(info), err
	case "getRepayLimitInfo":
		info, err := e.GetRepayLimitInfo(in.address(0))
		return limitOutput(info), err
	case "getLiquidationLimitInfo":
		info, err := e.GetLiquidationLimitInfo(in.address(0))
		return limitOutput(info), err
	case "accounts":
		info, err := e.Account(in.address(0))
		if err != nil {
			return nil, err
		}
		return []interface{}{info.Debt, info.DepositedTokens}, nil
	case "positions":
		info, err := e.Position(in.address(0), in.address(1))
		if err != nil {
			return nil, err
		}
		return []interface{}{info.Shares, info.Underlying}, nil
	case "totalValue":
		value, err := e.TotalValue(in.address(0))
		return []interface{}{value}, err
	case "mintAllowance":
		amount, err := e.MintAllowance(in.address(0), in.address(1))
		return []interface{}{amount}, err
	case "withdrawAllowance":
		amount, err := e.WithdrawAllowance(in.address(0), in.address(1), in.address(2))
		return []interface{}{amount}, err
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, in.method.Name)
	}
}

func limitOutput(info alchemist.LimitInfo) []interface{} {
	return []interface{}{info.Rate, info.Maximum, info.CurrentAvailable}
}

// RequiredGas returns the gas required for the precompile input
func (c *Contract) RequiredGas(input []byte) uint64 {
	method, err := alchemistABI.method(input)
	if err != nil {
		return GasLookup
	}
	switch method.Name {
	case "deposit":
		return GasDeposit
	case "depositUnderlying":
		return GasDeposit + GasUnwrap
	case "withdraw", "withdrawFrom":
		return GasWithdraw
	case "withdrawUnderlying", "withdrawUnderlyingFrom":
		return GasWithdraw + GasUnwrap
	case "mint", "mintFrom":
		return GasMint
	case "burn":
		return GasBurn
	case "repay":
		return GasRepay
	case "liquidate", "liquidateAccount":
		return GasLiquidate
	case "harvest", "poke":
		return GasHarvest
	case "approveMint", "approveWithdraw":
		return GasApprove
	default:
		return GasLookup
	}
}

// MethodInfo describes one entry point of the precompile.
type MethodInfo struct {
	Name     string `json:"name" yaml:"name"`
	Selector string `json:"selector" yaml:"selector"`
	Gas      uint64 `json:"gas" yaml:"gas"`
	ReadOnly bool   `json:"readOnly" yaml:"readOnly"`
}

// Methods lists every entry point sorted by name.
func Methods() []MethodInfo {
	c := Module.Contract
	out := make([]MethodInfo, 0, len(alchemistABI.Methods))
	for _, m := range alchemistABI.Methods {
		out = append(out, MethodInfo{
			Name:     m.Sig,
			Selector: fmt.Sprintf("0x%x", m.ID),
			Gas:      c.RequiredGas(m.ID),
			ReadOnly: m.IsConstant(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
