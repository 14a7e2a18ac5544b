// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package host

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
)

// Adapter wraps underlying into a yield token at the oracle's rate. It works
// on tokens held by one account, typically an engine's custody account.
type Adapter struct {
	ledger     *Ledger
	oracle     *Oracle
	token      common.Address
	underlying common.Address
	holder     common.Address
	unit       *big.Int

	mu       sync.Mutex
	slippage uint64
	hook     func()
}

func NewAdapter(ledger *Ledger, oracle *Oracle, token, underlying, holder common.Address, decimals uint8) *Adapter {
	return &Adapter{
		ledger:     ledger,
		oracle:     oracle,
		token:      token,
		underlying: underlying,
		holder:     holder,
		unit:       new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil),
	}
}

// SetSlippage shaves bps off every output.
func (a *Adapter) SetSlippage(bps uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.slippage = bps
}

// OnCall installs fn to run at the start of every Wrap and Unwrap.
func (a *Adapter) OnCall(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hook = fn
}

func (a *Adapter) settings() (uint64, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.slippage, a.hook
}

func applySlippage(amount *big.Int, bps uint64) *big.Int {
	if bps == 0 {
		return amount
	}
	cut := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	cut.Quo(cut, big.NewInt(BPS))
	return amount.Sub(amount, cut)
}

// Wrap burns amount underlying from the holder and mints yield tokens to
// recipient.
func (a *Adapter) Wrap(amount *big.Int, recipient common.Address) (*big.Int, error) {
	slippage, hook := a.settings()
	if hook != nil {
		hook()
	}
	rate, err := a.oracle.ExchangeRate(a.token)
	if err != nil {
		return nil, err
	}
	out := new(big.Int).Mul(amount, a.unit)
	out = applySlippage(out.Quo(out, rate), slippage)
	if err := a.ledger.Burn(a.underlying, a.holder, amount); err != nil {
		return nil, fmt.Errorf("wrap: %w", err)
	}
	if err := a.ledger.Mint(a.token, recipient, out); err != nil {
		return nil, fmt.Errorf("wrap: %w", err)
	}
	return out, nil
}

// Unwrap burns amount yield tokens from the holder and mints underlying to
// recipient.
func (a *Adapter) Unwrap(amount *big.Int, recipient common.Address) (*big.Int, error) {
	slippage, hook := a.settings()
	if hook != nil {
		hook()
	}
	rate, err := a.oracle.ExchangeRate(a.token)
	if err != nil {
		return nil, err
	}
	out := new(big.Int).Mul(amount, rate)
	out = applySlippage(out.Quo(out, a.unit), slippage)
	if err := a.ledger.Burn(a.token, a.holder, amount); err != nil {
		return nil, fmt.Errorf("unwrap: %w", err)
	}
	if err := a.ledger.Mint(a.underlying, recipient, out); err != nil {
		return nil, fmt.Errorf("unwrap: %w", err)
	}
	return out, nil
}
