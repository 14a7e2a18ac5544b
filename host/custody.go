// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package host

import (
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
)

// BPS is the basis point denominator.
const BPS = 10_000

// Custody is a bank bound to the account that holds an engine's tokens.
type Custody struct {
	ledger *Ledger
	holder common.Address

	mu      sync.RWMutex
	fees    map[common.Address]uint64
	blocked map[common.Address]error
}

func NewCustody(ledger *Ledger, holder common.Address) *Custody {
	return &Custody{
		ledger:  ledger,
		holder:  holder,
		fees:    make(map[common.Address]uint64),
		blocked: make(map[common.Address]error),
	}
}

// Holder returns the custody account.
func (c *Custody) Holder() common.Address { return c.holder }

// SetTransferFee makes inbound transfers of token deliver bps less than
// requested, the way fee-on-transfer tokens do.
func (c *Custody) SetTransferFee(token common.Address, bps uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fees[token] = bps
}

func (c *Custody) TransferIn(token, from, to common.Address, amount *big.Int) error {
	c.mu.RLock()
	fee := c.fees[token]
	c.mu.RUnlock()
	if fee == 0 {
		return c.ledger.Transfer(token, from, to, amount)
	}
	cut := new(big.Int).Mul(amount, new(big.Int).SetUint64(fee))
	cut.Quo(cut, big.NewInt(BPS))
	if err := c.ledger.Transfer(token, from, to, new(big.Int).Sub(amount, cut)); err != nil {
		return err
	}
	return c.ledger.Burn(token, from, cut)
}

// Block makes outbound transfers to account fail with err, the way tokens
// with a deny list do. A nil err lifts the block.
func (c *Custody) Block(account common.Address, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.blocked, account)
		return
	}
	c.blocked[account] = err
}

func (c *Custody) TransferOut(token, to common.Address, amount *big.Int) error {
	c.mu.RLock()
	err := c.blocked[to]
	c.mu.RUnlock()
	if err != nil {
		return err
	}
	return c.ledger.Transfer(token, c.holder, to, amount)
}

func (c *Custody) Mint(token, to common.Address, amount *big.Int) error {
	return c.ledger.Mint(token, to, amount)
}

func (c *Custody) Burn(token, from common.Address, amount *big.Int) error {
	return c.ledger.Burn(token, from, amount)
}

func (c *Custody) BalanceOf(token, owner common.Address) *big.Int {
	return c.ledger.BalanceOf(token, owner)
}

func (c *Custody) Snapshot() int { return c.ledger.Snapshot() }

func (c *Custody) RevertToSnapshot(id int) { c.ledger.RevertToSnapshot(id) }
