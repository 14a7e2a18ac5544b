// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sim

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/alchemist/alchemist"
	"github.com/luxfi/alchemist/internal/config"
)

// StepResult records what one step did.
type StepResult struct {
	Index      int    `json:"index" yaml:"index"`
	Op         string `json:"op" yaml:"op"`
	Account    string `json:"account,omitempty" yaml:"account,omitempty"`
	Block      uint64 `json:"block" yaml:"block"`
	Gas        uint64 `json:"gas,omitempty" yaml:"gas,omitempty"`
	Logs       int    `json:"logs,omitempty" yaml:"logs,omitempty"`
	Output     string `json:"output,omitempty" yaml:"output,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	Invariants string `json:"invariants,omitempty" yaml:"invariants,omitempty"`

	// Unexpected is set when the step failed without ExpectError or
	// succeeded with it.
	Unexpected bool `json:"unexpected,omitempty" yaml:"unexpected,omitempty"`
}

// call runs one ABI call through the precompile.
type call struct {
	caller common.Address
	method string
	args   []interface{}
	// format renders the unpacked outputs.
	format func([]interface{}) string
}

// Apply runs a step and checks the engine invariants afterwards. Engine
// errors are recorded in the result; the returned error reports steps the
// world cannot express at all.
func (w *World) Apply(index int, step config.Step) (StepResult, error) {
	res := StepResult{Index: index, Op: step.Op, Account: step.Account}
	gas, logs, output, err := w.apply(step)
	var bad *stepError
	if errors.As(err, &bad) {
		return res, err
	}
	res.Block = w.Clock.BlockNumber()
	res.Gas = gas
	res.Logs = logs
	res.Output = output
	if err != nil {
		res.Error = err.Error()
	}
	res.Unexpected = (err != nil) != step.ExpectError
	if err := w.Engine.CheckInvariants(); err != nil {
		res.Invariants = err.Error()
	}
	w.log.Debug("step",
		"index", index,
		"op", step.Op,
		"account", step.Account,
		"gas", gas,
		"err", res.Error,
	)
	return res, nil
}

// stepError is a malformed step, as opposed to an operation the engine
// rejected.
type stepError struct{ err error }

func (e *stepError) Error() string { return e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

func malformed(op string, err error) error {
	return &stepError{err: fmt.Errorf("%s: %w", op, err)}
}

func (w *World) apply(step config.Step) (uint64, int, string, error) {
	c, local, err := w.plan(step)
	if err != nil {
		return 0, 0, "", malformed(step.Op, err)
	}
	if local != nil {
		out, err := local()
		return 0, 0, out, err
	}

	input, err := precompileABI.Pack(c.method, c.args...)
	if err != nil {
		return 0, 0, "", malformed(step.Op, err)
	}
	ret, remaining, err := w.Contract.Run(c.caller, input, GasLimit, false)
	gas := GasLimit - remaining
	logs := len(w.Contract.Logs())
	if err != nil {
		return gas, logs, "", err
	}
	outputs, err := precompileABI.Unpack(c.method, ret)
	if err != nil {
		return gas, logs, "", err
	}
	if c.format == nil {
		return gas, logs, "", nil
	}
	return gas, logs, c.format(outputs), nil
}

// plan turns a step into either an ABI call or a local action on the host.
func (w *World) plan(step config.Step) (*call, func() (string, error), error) {
	var (
		caller    common.Address
		recipient common.Address
		err       error
	)
	if step.Account != "" {
		if caller, err = w.Account(step.Account); err != nil {
			return nil, nil, err
		}
	}
	recipient = caller
	if step.Recipient != "" {
		if recipient, err = w.Account(step.Recipient); err != nil {
			return nil, nil, err
		}
	}
	debt := func(s string) (*big.Int, error) { return config.ParseUnits(s, alchemist.DebtDecimals) }

	switch step.Op {
	case "deposit", "deposit_underlying", "withdraw", "withdraw_underlying", "withdraw_from", "withdraw_underlying_from",
		"liquidate", "liquidate_account", "approve_withdraw", "harvest", "set_rate":
		y, err := w.yieldToken(step.Token)
		if err != nil {
			return nil, nil, err
		}
		return w.planYield(step, y, caller, recipient)

	case "mint", "mint_from", "burn", "approve_mint":
		amount, err := debt(step.Amount)
		if err != nil {
			return nil, nil, err
		}
		switch step.Op {
		case "mint":
			return &call{caller: caller, method: "mint", args: []interface{}{amount, recipient}}, nil, nil
		case "mint_from":
			owner, err := w.Account(step.Owner)
			if err != nil {
				return nil, nil, err
			}
			return &call{caller: caller, method: "mintFrom", args: []interface{}{owner, amount, recipient}}, nil, nil
		case "burn":
			return &call{caller: caller, method: "burn", args: []interface{}{amount, recipient}, format: w.formatDebt}, nil, nil
		default:
			spender, err := w.Account(step.Spender)
			if err != nil {
				return nil, nil, err
			}
			return &call{caller: caller, method: "approveMint", args: []interface{}{spender, amount}}, nil, nil
		}

	case "repay":
		u, err := w.underlyingToken(step.Token)
		if err != nil {
			return nil, nil, err
		}
		amount, err := config.ParseUnits(step.Amount, u.decimals)
		if err != nil {
			return nil, nil, err
		}
		return &call{
			caller: caller,
			method: "repay",
			args:   []interface{}{u.address, amount, recipient},
			format: formatAmount(u.decimals, u.symbol),
		}, nil, nil

	case "poke":
		return &call{caller: caller, method: "poke", args: []interface{}{caller}}, nil, nil

	case "advance":
		if step.Blocks == 0 {
			return nil, nil, fmt.Errorf("blocks must be positive")
		}
		return nil, func() (string, error) {
			return fmt.Sprintf("block %d", w.Clock.Advance(step.Blocks)), nil
		}, nil

	case "stake", "unstake", "claim":
		u, err := w.underlyingToken(step.Token)
		if err != nil {
			return nil, nil, err
		}
		return nil, w.transmute(step, u, caller), nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownOp, step.Op)
	}
}

func (w *World) planYield(step config.Step, y *token, caller, recipient common.Address) (*call, func() (string, error), error) {
	under := y.underlying
	// Shares are denominated like the underlying they were bought with.
	shares := formatAmount(under.decimals, "shares")
	minimum := new(big.Int)
	if step.Minimum != "" {
		var err error
		if minimum, err = config.ParseUnits(step.Minimum, under.decimals); err != nil {
			return nil, nil, err
		}
	}

	switch step.Op {
	case "harvest":
		return &call{caller: w.admin, method: "harvest", args: []interface{}{y.address}}, nil, nil

	case "set_rate":
		rate, err := config.ParseUnits(step.Rate, under.decimals)
		if err != nil {
			return nil, nil, err
		}
		return nil, func() (string, error) {
			w.Oracle.SetRate(y.address, rate)
			return fmt.Sprintf("%s rate %s", y.symbol, config.FormatUnits(rate, under.decimals)), nil
		}, nil
	}

	var (
		amount *big.Int
		err    error
	)
	switch step.Op {
	case "deposit":
		amount, err = config.ParseUnits(step.Amount, y.decimals)
	case "deposit_underlying":
		amount, err = config.ParseUnits(step.Amount, under.decimals)
	case "liquidate", "liquidate_account":
		amount, err = config.ParseUnits(step.Amount, alchemist.DebtDecimals)
	default:
		amount, err = config.ParseUnits(step.Amount, under.decimals)
	}
	if err != nil {
		return nil, nil, err
	}

	owner := func() (common.Address, error) { return w.Account(step.Owner) }
	switch step.Op {
	case "deposit":
		return &call{caller: caller, method: "deposit", args: []interface{}{y.address, amount, recipient}, format: shares}, nil, nil
	case "deposit_underlying":
		return &call{caller: caller, method: "depositUnderlying", args: []interface{}{y.address, amount, recipient, minimum}, format: shares}, nil, nil
	case "withdraw":
		return &call{caller: caller, method: "withdraw", args: []interface{}{y.address, amount, recipient}, format: formatAmount(y.decimals, y.symbol)}, nil, nil
	case "withdraw_underlying":
		return &call{caller: caller, method: "withdrawUnderlying", args: []interface{}{y.address, amount, recipient, minimum}, format: formatAmount(under.decimals, under.symbol)}, nil, nil
	case "withdraw_from":
		from, err := owner()
		if err != nil {
			return nil, nil, err
		}
		return &call{caller: caller, method: "withdrawFrom", args: []interface{}{from, y.address, amount, recipient}, format: formatAmount(y.decimals, y.symbol)}, nil, nil
	case "withdraw_underlying_from":
		from, err := owner()
		if err != nil {
			return nil, nil, err
		}
		return &call{caller: caller, method: "withdrawUnderlyingFrom", args: []interface{}{from, y.address, amount, recipient, minimum}, format: formatAmount(under.decimals, under.symbol)}, nil, nil
	case "liquidate":
		return &call{caller: caller, method: "liquidate", args: []interface{}{y.address, amount, minimum}, format: w.formatLiquidation(under)}, nil, nil
	case "liquidate_account":
		from, err := owner()
		if err != nil {
			return nil, nil, err
		}
		return &call{caller: caller, method: "liquidateAccount", args: []interface{}{from, y.address, amount, minimum}, format: w.formatLiquidation(under)}, nil, nil
	default:
		spender, err := w.Account(step.Spender)
		if err != nil {
			return nil, nil, err
		}
		return &call{caller: caller, method: "approveWithdraw", args: []interface{}{spender, y.address, amount}}, nil, nil
	}
}

// transmute runs a transmuter action directly on the sink.
func (w *World) transmute(step config.Step, u *token, owner common.Address) func() (string, error) {
	return func() (string, error) {
		switch step.Op {
		case "claim":
			out, err := w.Transmuter.Claim(owner, u.address)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s %s", config.FormatUnits(out, u.decimals), u.symbol), nil
		}
		amount, err := config.ParseUnits(step.Amount, alchemist.DebtDecimals)
		if err != nil {
			return "", err
		}
		if step.Op == "stake" {
			return "", w.Transmuter.Stake(owner, u.address, amount)
		}
		out, err := w.Transmuter.Unstake(owner, u.address, amount)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s debt", config.FormatUnits(out, alchemist.DebtDecimals)), nil
	}
}

func formatAmount(decimals uint8, unit string) func([]interface{}) string {
	return func(out []interface{}) string {
		if len(out) == 0 {
			return ""
		}
		n, _ := out[0].(*big.Int)
		return strings.TrimSpace(config.FormatUnits(n, decimals) + " " + unit)
	}
}

func (w *World) formatDebt(out []interface{}) string {
	return formatAmount(alchemist.DebtDecimals, "debt")(out)
}

func (w *World) formatLiquidation(under *token) func([]interface{}) string {
	return func(out []interface{}) string {
		if len(out) < 2 {
			return ""
		}
		debt, _ := out[0].(*big.Int)
		seized, _ := out[1].(*big.Int)
		return fmt.Sprintf("%s debt for %s %s",
			config.FormatUnits(debt, alchemist.DebtDecimals),
			config.FormatUnits(seized, under.decimals),
			under.symbol,
		)
	}
}
