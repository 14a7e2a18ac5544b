// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads the engine setup and scenario run by the alchemist
// command.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/alchemist/alchemist"
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidAddress = errors.New("invalid address")
	ErrUnknownSymbol  = errors.New("unknown symbol")
	ErrUnknownAccount = errors.New("unknown account")
	ErrUnknownOp      = errors.New("unknown op")
)

// Config is the complete description of a simulated deployment.
type Config struct {
	Engine     EngineConfig       `mapstructure:"engine" yaml:"engine"`
	Underlying []UnderlyingConfig `mapstructure:"underlying" yaml:"underlying"`
	Yield      []YieldConfig      `mapstructure:"yield" yaml:"yield"`
	Accounts   []AccountConfig    `mapstructure:"accounts" yaml:"accounts"`
	Steps      []Step             `mapstructure:"steps" yaml:"steps"`
}

// EngineConfig holds the global engine parameters. Amounts are decimal
// strings in whole tokens.
type EngineConfig struct {
	Address             string `mapstructure:"address" yaml:"address"`
	Admin               string `mapstructure:"admin" yaml:"admin"`
	DebtToken           string `mapstructure:"debt_token" yaml:"debt_token"`
	Transmuter          string `mapstructure:"transmuter" yaml:"transmuter"`
	ProtocolFeeReceiver string `mapstructure:"protocol_fee_receiver" yaml:"protocol_fee_receiver,omitempty"`

	// MinimumCollateralization is collateral per unit of debt, e.g. "2".
	MinimumCollateralization string `mapstructure:"minimum_collateralization" yaml:"minimum_collateralization"`

	MintingLimit       string `mapstructure:"minting_limit" yaml:"minting_limit"`
	MintingLimitBlocks uint64 `mapstructure:"minting_limit_blocks" yaml:"minting_limit_blocks"`
	LiquidationPenalty uint64 `mapstructure:"liquidation_penalty_bps" yaml:"liquidation_penalty_bps"`
	StartBlock         uint64 `mapstructure:"start_block" yaml:"start_block"`
}

// UnderlyingConfig registers an underlying token.
type UnderlyingConfig struct {
	Symbol                 string `mapstructure:"symbol" yaml:"symbol"`
	Address                string `mapstructure:"address" yaml:"address"`
	Decimals               uint8  `mapstructure:"decimals" yaml:"decimals"`
	RepayLimit             string `mapstructure:"repay_limit" yaml:"repay_limit"`
	RepayLimitBlocks       uint64 `mapstructure:"repay_limit_blocks" yaml:"repay_limit_blocks"`
	LiquidationLimit       string `mapstructure:"liquidation_limit" yaml:"liquidation_limit"`
	LiquidationLimitBlocks uint64 `mapstructure:"liquidation_limit_blocks" yaml:"liquidation_limit_blocks"`
}

// YieldConfig registers a yield token pool. Underlying names an entry of
// Config.Underlying by symbol.
type YieldConfig struct {
	Symbol               string `mapstructure:"symbol" yaml:"symbol"`
	Address              string `mapstructure:"address" yaml:"address"`
	Underlying           string `mapstructure:"underlying" yaml:"underlying"`
	Decimals             uint8  `mapstructure:"decimals" yaml:"decimals"`
	MaximumLoss          uint64 `mapstructure:"maximum_loss_bps" yaml:"maximum_loss_bps"`
	MaximumExpectedValue string `mapstructure:"maximum_expected_value" yaml:"maximum_expected_value"`

	// Rate is the initial price of one yield token in underlying.
	Rate string `mapstructure:"rate" yaml:"rate"`
}

// AccountConfig is a named participant and its starting balances, keyed by
// token symbol.
type AccountConfig struct {
	Name     string            `mapstructure:"name" yaml:"name"`
	Address  string            `mapstructure:"address" yaml:"address"`
	Balances map[string]string `mapstructure:"balances" yaml:"balances,omitempty"`
}

// Step is one scenario action. Which fields apply depends on Op.
type Step struct {
	Op        string `mapstructure:"op" yaml:"op"`
	Account   string `mapstructure:"account" yaml:"account,omitempty"`
	Owner     string `mapstructure:"owner" yaml:"owner,omitempty"`
	Spender   string `mapstructure:"spender" yaml:"spender,omitempty"`
	Recipient string `mapstructure:"recipient" yaml:"recipient,omitempty"`
	Token     string `mapstructure:"token" yaml:"token,omitempty"`
	Amount    string `mapstructure:"amount" yaml:"amount,omitempty"`
	Minimum   string `mapstructure:"minimum" yaml:"minimum,omitempty"`
	Rate      string `mapstructure:"rate" yaml:"rate,omitempty"`
	Blocks    uint64 `mapstructure:"blocks" yaml:"blocks,omitempty"`

	// ExpectError marks a step that must fail.
	ExpectError bool `mapstructure:"expect_error" yaml:"expect_error,omitempty"`
}

// TokenKind says which token table a step's Token refers to.
type TokenKind uint8

const (
	NoToken TokenKind = iota
	YieldToken
	UnderlyingToken
)

// OpFields lists the fields an op requires.
type OpFields struct {
	Account bool
	Owner   bool
	Spender bool
	Token   TokenKind
	Amount  bool
	Rate    bool
	Blocks  bool
}

// Ops are the step kinds a scenario may use.
var Ops = map[string]OpFields{
	"deposit":                  {Account: true, Token: YieldToken, Amount: true},
	"deposit_underlying":       {Account: true, Token: YieldToken, Amount: true},
	"withdraw":                 {Account: true, Token: YieldToken, Amount: true},
	"withdraw_underlying":      {Account: true, Token: YieldToken, Amount: true},
	"withdraw_from":            {Account: true, Owner: true, Token: YieldToken, Amount: true},
	"withdraw_underlying_from": {Account: true, Owner: true, Token: YieldToken, Amount: true},
	"mint":                     {Account: true, Amount: true},
	"mint_from":                {Account: true, Owner: true, Amount: true},
	"burn":                     {Account: true, Amount: true},
	"repay":                    {Account: true, Token: UnderlyingToken, Amount: true},
	"liquidate":                {Account: true, Token: YieldToken, Amount: true},
	"liquidate_account":        {Account: true, Owner: true, Token: YieldToken, Amount: true},
	"approve_mint":             {Account: true, Spender: true, Amount: true},
	"approve_withdraw":         {Account: true, Spender: true, Token: YieldToken, Amount: true},
	"harvest":                  {Token: YieldToken},
	"poke":                     {Account: true},
	"set_rate":                 {Token: YieldToken, Rate: true},
	"advance":                  {Blocks: true},
	"stake":                    {Account: true, Token: UnderlyingToken, Amount: true},
	"unstake":                  {Account: true, Token: UnderlyingToken, Amount: true},
	"claim":                    {Account: true, Token: UnderlyingToken},
}

// ParseUnits converts a decimal string in whole tokens to base units.
func ParseUnits(s string, decimals uint8) (*big.Int, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "_", ""))
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok || r.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	r.Mul(r, new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)))
	if !r.IsInt() {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, s, decimals)
	}
	return new(big.Int).Set(r.Num()), nil
}

// FormatUnits renders base units as a decimal string in whole tokens.
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	r := new(big.Rat).SetFrac(amount, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	out := r.FloatString(int(decimals))
	if strings.Contains(out, ".") {
		out = strings.TrimRight(strings.TrimRight(out, "0"), ".")
	}
	return out
}

// ParseAddress parses a hex address.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// Alchemist converts the engine section into an engine config.
func (c *EngineConfig) Alchemist() (alchemist.Config, error) {
	var (
		out alchemist.Config
		err error
	)
	if out.Admin, err = ParseAddress(c.Admin); err != nil {
		return out, fmt.Errorf("admin: %w", err)
	}
	if out.DebtToken, err = ParseAddress(c.DebtToken); err != nil {
		return out, fmt.Errorf("debt_token: %w", err)
	}
	if out.Transmuter, err = ParseAddress(c.Transmuter); err != nil {
		return out, fmt.Errorf("transmuter: %w", err)
	}
	out.ProtocolFeeReceiver = out.Admin
	if c.ProtocolFeeReceiver != "" {
		if out.ProtocolFeeReceiver, err = ParseAddress(c.ProtocolFeeReceiver); err != nil {
			return out, fmt.Errorf("protocol_fee_receiver: %w", err)
		}
	}
	if out.MinimumCollateralization, err = ParseUnits(c.MinimumCollateralization, alchemist.DebtDecimals); err != nil {
		return out, fmt.Errorf("minimum_collateralization: %w", err)
	}
	if out.MintingLimitMaximum, err = ParseUnits(c.MintingLimit, alchemist.DebtDecimals); err != nil {
		return out, fmt.Errorf("minting_limit: %w", err)
	}
	out.MintingLimitBlocks = c.MintingLimitBlocks
	out.LiquidationPenalty = c.LiquidationPenalty
	return out, out.Verify()
}

// Alchemist converts an underlying entry into a registration config.
func (c *UnderlyingConfig) Alchemist() (alchemist.UnderlyingTokenConfig, error) {
	var (
		out alchemist.UnderlyingTokenConfig
		err error
	)
	if out.Token, err = ParseAddress(c.Address); err != nil {
		return out, fmt.Errorf("underlying %s: %w", c.Symbol, err)
	}
	out.Decimals = c.Decimals
	if out.RepayLimitMaximum, err = ParseUnits(c.RepayLimit, c.Decimals); err != nil {
		return out, fmt.Errorf("underlying %s repay_limit: %w", c.Symbol, err)
	}
	if out.LiquidationLimitMaximum, err = ParseUnits(c.LiquidationLimit, c.Decimals); err != nil {
		return out, fmt.Errorf("underlying %s liquidation_limit: %w", c.Symbol, err)
	}
	out.RepayLimitBlocks = c.RepayLimitBlocks
	out.LiquidationLimitBlocks = c.LiquidationLimitBlocks
	return out, nil
}

// Alchemist converts a yield entry into a registration config. The
// underlying entry supplies the token address and the scale of the rate.
func (c *YieldConfig) Alchemist(under *UnderlyingConfig) (alchemist.YieldTokenConfig, *big.Int, error) {
	var (
		out alchemist.YieldTokenConfig
		err error
	)
	if out.Token, err = ParseAddress(c.Address); err != nil {
		return out, nil, fmt.Errorf("yield %s: %w", c.Symbol, err)
	}
	if out.Underlying, err = ParseAddress(under.Address); err != nil {
		return out, nil, fmt.Errorf("yield %s: %w", c.Symbol, err)
	}
	out.Decimals = c.Decimals
	out.MaximumLoss = c.MaximumLoss
	if out.MaximumExpectedValue, err = ParseUnits(c.MaximumExpectedValue, under.Decimals); err != nil {
		return out, nil, fmt.Errorf("yield %s maximum_expected_value: %w", c.Symbol, err)
	}
	rate, err := ParseUnits(c.Rate, under.Decimals)
	if err != nil {
		return out, nil, fmt.Errorf("yield %s rate: %w", c.Symbol, err)
	}
	return out, rate, nil
}

// FindUnderlying returns the underlying entry with the given symbol.
func (c *Config) FindUnderlying(symbol string) (*UnderlyingConfig, bool) {
	for i := range c.Underlying {
		if strings.EqualFold(c.Underlying[i].Symbol, symbol) {
			return &c.Underlying[i], true
		}
	}
	return nil, false
}

// FindYield returns the yield entry with the given symbol.
func (c *Config) FindYield(symbol string) (*YieldConfig, bool) {
	for i := range c.Yield {
		if strings.EqualFold(c.Yield[i].Symbol, symbol) {
			return &c.Yield[i], true
		}
	}
	return nil, false
}

// FindAccount returns the account entry with the given name.
func (c *Config) FindAccount(name string) (*AccountConfig, bool) {
	for i := range c.Accounts {
		if strings.EqualFold(c.Accounts[i].Name, name) {
			return &c.Accounts[i], true
		}
	}
	return nil, false
}
