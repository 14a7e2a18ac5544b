// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package host provides in-process implementations of the collaborators an
// alchemist engine runs against: a multi-token ledger, a custody bank, a
// manual oracle and clock, and a rate based wrapping adapter.
package host

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidSnapshot     = errors.New("invalid snapshot")
)

type balanceKey struct {
	token common.Address
	owner common.Address
}

// journalEntry records a balance before it was changed.
type journalEntry struct {
	key     balanceKey
	prev    *uint256.Int
	supply  *uint256.Int
	hadPrev bool
}

// Ledger tracks balances of any number of tokens. Changes are journaled so
// they can be reverted to a snapshot.
type Ledger struct {
	mu        sync.Mutex
	balances  map[balanceKey]*uint256.Int
	supply    map[common.Address]*uint256.Int
	journal   []journalEntry
	snapshots []int
}

func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[balanceKey]*uint256.Int),
		supply:   make(map[common.Address]*uint256.Int),
	}
}

func toWord(amount *big.Int) (*uint256.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	w, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, fmt.Errorf("%w: %s overflows", ErrInvalidAmount, amount)
	}
	return w, nil
}

// BalanceOf returns owner's balance of token.
func (l *Ledger) BalanceOf(token, owner common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if bal, ok := l.balances[balanceKey{token, owner}]; ok {
		return bal.ToBig()
	}
	return new(big.Int)
}

// TotalSupply returns the amount of token in existence.
func (l *Ledger) TotalSupply(token common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.supply[token]; ok {
		return s.ToBig()
	}
	return new(big.Int)
}

func (l *Ledger) balance(key balanceKey) *uint256.Int {
	if bal, ok := l.balances[key]; ok {
		return bal
	}
	return uint256.NewInt(0)
}

// set records the old balance and supply of key in the journal, then
// stores the new ones.
func (l *Ledger) set(key balanceKey, value, supply *uint256.Int) {
	prev, hadPrev := l.balances[key]
	entry := journalEntry{key: key, hadPrev: hadPrev}
	if hadPrev {
		entry.prev = prev.Clone()
	}
	if s, ok := l.supply[key.token]; ok {
		entry.supply = s.Clone()
	}
	l.journal = append(l.journal, entry)
	l.balances[key] = value
	if supply != nil {
		l.supply[key.token] = supply
	}
}

// Transfer moves amount of token between two owners.
func (l *Ledger) Transfer(token, from, to common.Address, amount *big.Int) error {
	w, err := toWord(amount)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	src := balanceKey{token, from}
	bal := l.balance(src)
	if bal.Lt(w) {
		return fmt.Errorf("%w: %s has %s of %s, need %s", ErrInsufficientBalance, from.Hex(), bal, token.Hex(), w)
	}
	l.set(src, new(uint256.Int).Sub(bal, w), nil)
	dst := balanceKey{token, to}
	l.set(dst, new(uint256.Int).Add(l.balance(dst), w), nil)
	return nil
}

// Mint creates amount of token for to.
func (l *Ledger) Mint(token, to common.Address, amount *big.Int) error {
	w, err := toWord(amount)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	supply := l.supply[token]
	if supply == nil {
		supply = uint256.NewInt(0)
	}
	next, overflow := new(uint256.Int).AddOverflow(supply, w)
	if overflow {
		return fmt.Errorf("%w: supply of %s overflows", ErrInvalidAmount, token.Hex())
	}
	key := balanceKey{token, to}
	l.set(key, new(uint256.Int).Add(l.balance(key), w), next)
	return nil
}

// Burn destroys amount of token held by from.
func (l *Ledger) Burn(token, from common.Address, amount *big.Int) error {
	w, err := toWord(amount)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := balanceKey{token, from}
	bal := l.balance(key)
	if bal.Lt(w) {
		return fmt.Errorf("%w: %s has %s of %s, need %s", ErrInsufficientBalance, from.Hex(), bal, token.Hex(), w)
	}
	supply := l.supply[token]
	if supply == nil || supply.Lt(w) {
		return fmt.Errorf("%w: supply of %s below %s", ErrInsufficientBalance, token.Hex(), w)
	}
	l.set(key, new(uint256.Int).Sub(bal, w), new(uint256.Int).Sub(supply, w))
	return nil
}

// Snapshot returns an identifier for the current state.
func (l *Ledger) Snapshot() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapshots = append(l.snapshots, len(l.journal))
	return len(l.snapshots) - 1
}

// RevertToSnapshot undoes every change made since the snapshot was taken.
// Later snapshots become invalid.
func (l *Ledger) RevertToSnapshot(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id < 0 || id >= len(l.snapshots) {
		panic(fmt.Errorf("%w: %d", ErrInvalidSnapshot, id))
	}
	mark := l.snapshots[id]
	for i := len(l.journal) - 1; i >= mark; i-- {
		e := l.journal[i]
		if e.hadPrev {
			l.balances[e.key] = e.prev
		} else {
			delete(l.balances, e.key)
		}
		if e.supply != nil {
			l.supply[e.key.token] = e.supply
		} else {
			delete(l.supply, e.key.token)
		}
	}
	l.journal = l.journal[:mark]
	l.snapshots = l.snapshots[:id]
}
