// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"strings"
)

// maxDecimals bounds the syntax check of amounts whose scale depends on the
// token a step targets.
const maxDecimals = 36

// Validate checks the whole configuration, including that every step only
// names known accounts and tokens.
func (c *Config) Validate() error {
	if _, err := c.Engine.Alchemist(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.validateTokens(); err != nil {
		return err
	}
	if err := c.validateAccounts(); err != nil {
		return err
	}
	for i := range c.Steps {
		if err := c.validateStep(&c.Steps[i]); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

func (c *Config) validateTokens() error {
	symbols := make(map[string]bool)
	unique := func(symbol string) error {
		key := strings.ToLower(symbol)
		if key == "" {
			return fmt.Errorf("%w: empty symbol", ErrUnknownSymbol)
		}
		if symbols[key] {
			return fmt.Errorf("duplicate symbol %q", symbol)
		}
		symbols[key] = true
		return nil
	}
	for i := range c.Underlying {
		u := &c.Underlying[i]
		if err := unique(u.Symbol); err != nil {
			return err
		}
		if _, err := u.Alchemist(); err != nil {
			return err
		}
	}
	for i := range c.Yield {
		y := &c.Yield[i]
		if err := unique(y.Symbol); err != nil {
			return err
		}
		under, ok := c.FindUnderlying(y.Underlying)
		if !ok {
			return fmt.Errorf("yield %s: %w: underlying %q", y.Symbol, ErrUnknownSymbol, y.Underlying)
		}
		if _, _, err := y.Alchemist(under); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateAccounts() error {
	names := make(map[string]bool)
	for i := range c.Accounts {
		a := &c.Accounts[i]
		key := strings.ToLower(a.Name)
		if key == "" {
			return fmt.Errorf("account %d: empty name", i)
		}
		if names[key] {
			return fmt.Errorf("duplicate account %q", a.Name)
		}
		names[key] = true
		if _, err := ParseAddress(a.Address); err != nil {
			return fmt.Errorf("account %s: %w", a.Name, err)
		}
		for symbol, amount := range a.Balances {
			decimals, ok := c.DecimalsOf(symbol)
			if !ok {
				return fmt.Errorf("account %s: %w: %q", a.Name, ErrUnknownSymbol, symbol)
			}
			if _, err := ParseUnits(amount, decimals); err != nil {
				return fmt.Errorf("account %s balance %s: %w", a.Name, symbol, err)
			}
		}
	}
	return nil
}

func (c *Config) validateStep(s *Step) error {
	req, ok := Ops[s.Op]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOp, s.Op)
	}
	for _, ref := range []struct {
		need bool
		name string
	}{
		{req.Account, s.Account},
		{req.Owner, s.Owner},
		{req.Spender, s.Spender},
	} {
		if !ref.need {
			continue
		}
		if _, ok := c.FindAccount(ref.name); !ok {
			return fmt.Errorf("%s: %w: %q", s.Op, ErrUnknownAccount, ref.name)
		}
	}
	if s.Recipient != "" {
		if _, ok := c.FindAccount(s.Recipient); !ok {
			return fmt.Errorf("%s: %w: recipient %q", s.Op, ErrUnknownAccount, s.Recipient)
		}
	}
	switch req.Token {
	case YieldToken:
		if _, ok := c.FindYield(s.Token); !ok {
			return fmt.Errorf("%s: %w: yield token %q", s.Op, ErrUnknownSymbol, s.Token)
		}
	case UnderlyingToken:
		if _, ok := c.FindUnderlying(s.Token); !ok {
			return fmt.Errorf("%s: %w: underlying token %q", s.Op, ErrUnknownSymbol, s.Token)
		}
	}
	if req.Amount {
		if _, err := ParseUnits(s.Amount, maxDecimals); err != nil {
			return fmt.Errorf("%s amount: %w", s.Op, err)
		}
	}
	if s.Minimum != "" {
		if _, err := ParseUnits(s.Minimum, maxDecimals); err != nil {
			return fmt.Errorf("%s minimum: %w", s.Op, err)
		}
	}
	if req.Rate {
		if _, err := ParseUnits(s.Rate, maxDecimals); err != nil {
			return fmt.Errorf("%s rate: %w", s.Op, err)
		}
	}
	if req.Blocks && s.Blocks == 0 {
		return fmt.Errorf("%s: blocks must be positive", s.Op)
	}
	return nil
}

// DecimalsOf returns the decimals of a yield or underlying token.
func (c *Config) DecimalsOf(symbol string) (uint8, bool) {
	if u, ok := c.FindUnderlying(symbol); ok {
		return u.Decimals, true
	}
	if y, ok := c.FindYield(symbol); ok {
		return y.Decimals, true
	}
	return 0, false
}
