// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package transmuter converts debt tokens back into underlying tokens.
//
// Holders stake debt tokens into the queue of an underlying token. Underlying
// sent to the transmuter by the alchemist (repayments, harvested yield and
// liquidations) exchanges staked debt pro rata. Exchanged debt is burned
// when its owner claims the underlying.
package transmuter

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
	"github.com/luxfi/log/level"
	"github.com/zeebo/blake3"
)

// PRECISION scales the exchange index.
var PRECISION = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

var (
	ErrUnknownQueue  = errors.New("transmuter: unknown underlying token")
	ErrQueueExists   = errors.New("transmuter: queue already exists")
	ErrInvalidAmount = errors.New("transmuter: invalid amount")
	ErrNoStake       = errors.New("transmuter: no stake")
	ErrUnbacked      = errors.New("transmuter: notified amount not held")

	ErrInvalidSnapshot = errors.New("transmuter: invalid snapshot")
)

// Bank moves tokens for the transmuter.
type Bank interface {
	Transfer(token, from, to common.Address, amount *big.Int) error
	Burn(token, from common.Address, amount *big.Int) error
	BalanceOf(token, owner common.Address) *big.Int
}

// Queue is the exchange state of one underlying token.
type Queue struct {
	Underlying common.Address

	// ConversionFactor is debt units per underlying unit.
	ConversionFactor *big.Int

	// Buffer is underlying received while nothing was staked.
	Buffer *big.Int

	// TotalStaked is debt not yet exchanged.
	TotalStaked *big.Int

	// Reserved is underlying owed to exchanged stakes.
	Reserved *big.Int

	// ExchangeIndex is debt exchanged per staked unit, scaled by PRECISION.
	ExchangeIndex *big.Int
}

// Stake is one owner's position in a queue.
type Stake struct {
	Owner      common.Address
	Underlying common.Address
	Staked     *big.Int // debt units waiting for exchange
	Exchanged  *big.Int // debt units exchanged, not yet claimed
	Checkpoint *big.Int
}

// change records a queue or a stake before it was modified. A nil queue or
// stake means it did not exist.
type change struct {
	underlying common.Address
	queue      *Queue

	key   *[32]byte
	stake *Stake
}

// Transmuter is a Sink for an alchemist engine. Changes are journaled so an
// engine operation that fails after notifying it can roll them back.
type Transmuter struct {
	mu sync.RWMutex

	address   common.Address
	debtToken common.Address
	bank      Bank
	log       log.Logger

	queues map[common.Address]*Queue
	stakes map[[32]byte]*Stake

	journal   []change
	snapshots []int
}

func New(address, debtToken common.Address, bank Bank, logger log.Logger) *Transmuter {
	if logger == nil {
		logger = log.NewTestLogger(level.Info)
	}
	return &Transmuter{
		address:   address,
		debtToken: debtToken,
		bank:      bank,
		log:       logger,
		queues:    make(map[common.Address]*Queue),
		stakes:    make(map[[32]byte]*Stake),
	}
}

// stakeKey generates unique key for an owner's stake
func stakeKey(underlying, owner common.Address) [32]byte {
	h := blake3.New()
	h.Write(underlying.Bytes())
	h.Write(owner.Bytes())
	var key [32]byte
	h.Digest().Read(key[:])
	return key
}

// Address returns the account holding the transmuter's tokens.
func (t *Transmuter) Address() common.Address { return t.address }

// AddQueue opens a queue for an underlying token with the given decimals.
func (t *Transmuter) AddQueue(underlying common.Address, decimals uint8) error {
	if decimals > 18 {
		return fmt.Errorf("%w: decimals %d", ErrInvalidAmount, decimals)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.queues[underlying]; ok {
		return ErrQueueExists
	}
	t.journal = append(t.journal, change{underlying: underlying})
	t.queues[underlying] = &Queue{
		Underlying:       underlying,
		ConversionFactor: new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(18-decimals)), nil),
		Buffer:           new(big.Int),
		TotalStaked:      new(big.Int),
		Reserved:         new(big.Int),
		ExchangeIndex:    new(big.Int),
	}
	return nil
}

// =========================================================================
// Core Operations
// =========================================================================

// Notify accounts for amount underlying the transmuter has just received.
func (t *Transmuter) Notify(underlying common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	q, ok := t.queues[underlying]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQueue, underlying.Hex())
	}
	accounted := new(big.Int).Add(q.Buffer, q.Reserved)
	accounted.Add(accounted, amount)
	if held := t.bank.BalanceOf(underlying, t.address); held.Cmp(accounted) < 0 {
		return fmt.Errorf("%w: holds %s, accounted %s", ErrUnbacked, held, accounted)
	}
	t.recordQueue(q)
	q.Buffer = new(big.Int).Add(q.Buffer, amount)
	t.exchange(q)
	t.log.Debug("transmuter notified", "underlying", underlying, "amount", amount, "buffer", q.Buffer)
	return nil
}

// Stake locks amount debt tokens from owner into the queue of underlying.
func (t *Transmuter) Stake(owner, underlying common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	q, ok := t.queues[underlying]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQueue, underlying.Hex())
	}
	if err := t.bank.Transfer(t.debtToken, owner, t.address, amount); err != nil {
		return err
	}
	t.recordQueue(q)
	t.recordStake(stakeKey(underlying, owner))
	s := t.stake(q, owner)
	s.Staked = new(big.Int).Add(s.Staked, amount)
	q.TotalStaked = new(big.Int).Add(q.TotalStaked, amount)
	t.exchange(q)
	t.log.Info("transmuter stake", "owner", owner, "underlying", underlying, "amount", amount)
	return nil
}

// Unstake returns up to amount of owner's unexchanged debt tokens and
// reports how much was returned.
func (t *Transmuter) Unstake(owner, underlying common.Address, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	q, ok := t.queues[underlying]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQueue, underlying.Hex())
	}
	s, ok := t.stakes[stakeKey(underlying, owner)]
	if !ok || s.Staked.Sign() == 0 {
		return nil, ErrNoStake
	}
	t.recordQueue(q)
	t.recordStake(stakeKey(underlying, owner))
	accrue(q, s)
	if amount.Cmp(s.Staked) > 0 {
		amount = new(big.Int).Set(s.Staked)
	}
	if err := t.bank.Transfer(t.debtToken, t.address, owner, amount); err != nil {
		return nil, err
	}
	s.Staked = new(big.Int).Sub(s.Staked, amount)
	q.TotalStaked = saturatingSub(q.TotalStaked, amount)
	return amount, nil
}

// Claim pays owner the underlying for its exchanged debt and burns that debt.
func (t *Transmuter) Claim(owner, underlying common.Address) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	q, ok := t.queues[underlying]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQueue, underlying.Hex())
	}
	s, ok := t.stakes[stakeKey(underlying, owner)]
	if !ok {
		return nil, ErrNoStake
	}
	t.recordQueue(q)
	t.recordStake(stakeKey(underlying, owner))
	accrue(q, s)

	out := new(big.Int).Quo(s.Exchanged, q.ConversionFactor)
	if out.Sign() == 0 {
		return out, nil
	}
	if out.Cmp(q.Reserved) > 0 {
		out = new(big.Int).Set(q.Reserved)
	}
	burned := new(big.Int).Mul(out, q.ConversionFactor)
	if err := t.bank.Burn(t.debtToken, t.address, burned); err != nil {
		return nil, err
	}
	if err := t.bank.Transfer(underlying, t.address, owner, out); err != nil {
		return nil, err
	}
	s.Exchanged = new(big.Int).Sub(s.Exchanged, burned)
	q.Reserved = new(big.Int).Sub(q.Reserved, out)
	t.log.Info("transmuter claim", "owner", owner, "underlying", underlying, "amount", out)
	return out, nil
}

// Snapshot returns an identifier for the current state.
func (t *Transmuter) Snapshot() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snapshots = append(t.snapshots, len(t.journal))
	return len(t.snapshots) - 1
}

// RevertToSnapshot undoes every queue and stake change made since the
// snapshot was taken. Later snapshots become invalid.
func (t *Transmuter) RevertToSnapshot(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < 0 || id >= len(t.snapshots) {
		panic(fmt.Errorf("%w: %d", ErrInvalidSnapshot, id))
	}
	mark := t.snapshots[id]
	for i := len(t.journal) - 1; i >= mark; i-- {
		c := t.journal[i]
		switch {
		case c.key != nil && c.stake != nil:
			t.stakes[*c.key] = c.stake
		case c.key != nil:
			delete(t.stakes, *c.key)
		case c.queue != nil:
			t.queues[c.underlying] = c.queue
		default:
			delete(t.queues, c.underlying)
		}
	}
	t.journal = t.journal[:mark]
	t.snapshots = t.snapshots[:id]
}

// =========================================================================
// View Functions
// =========================================================================

// GetQueue returns a copy of the queue of underlying.
func (t *Transmuter) GetQueue(underlying common.Address) (*Queue, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	q, ok := t.queues[underlying]
	if !ok {
		return nil, false
	}
	cp := *q
	return &cp, true
}

// GetStake returns owner's stake with pending exchanges applied.
func (t *Transmuter) GetStake(owner, underlying common.Address) (*Stake, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	q, ok := t.queues[underlying]
	if !ok {
		return nil, false
	}
	s, ok := t.stakes[stakeKey(underlying, owner)]
	if !ok {
		return nil, false
	}
	cp := &Stake{
		Owner:      s.Owner,
		Underlying: s.Underlying,
		Staked:     new(big.Int).Set(s.Staked),
		Exchanged:  new(big.Int).Set(s.Exchanged),
		Checkpoint: new(big.Int).Set(s.Checkpoint),
	}
	accrue(q, cp)
	return cp, true
}

// GetClaimable returns the underlying owner could claim now.
func (t *Transmuter) GetClaimable(owner, underlying common.Address) *big.Int {
	s, ok := t.GetStake(owner, underlying)
	if !ok {
		return new(big.Int)
	}
	q, _ := t.GetQueue(underlying)
	return new(big.Int).Quo(s.Exchanged, q.ConversionFactor)
}

// =========================================================================
// Internal Functions
// =========================================================================

// recordQueue journals q before it is modified. Queue and stake fields are
// replaced, never mutated in place, so a shallow copy is enough.
func (t *Transmuter) recordQueue(q *Queue) {
	cp := *q
	t.journal = append(t.journal, change{underlying: q.Underlying, queue: &cp})
}

func (t *Transmuter) recordStake(key [32]byte) {
	c := change{key: &key}
	if s, ok := t.stakes[key]; ok {
		cp := *s
		c.stake = &cp
	}
	t.journal = append(t.journal, c)
}

func (t *Transmuter) stake(q *Queue, owner common.Address) *Stake {
	key := stakeKey(q.Underlying, owner)
	s, ok := t.stakes[key]
	if !ok {
		s = &Stake{
			Owner:      owner,
			Underlying: q.Underlying,
			Staked:     new(big.Int),
			Exchanged:  new(big.Int),
			Checkpoint: new(big.Int).Set(q.ExchangeIndex),
		}
		t.stakes[key] = s
		return s
	}
	accrue(q, s)
	return s
}

// accrue moves the part of the stake exchanged since its checkpoint from
// Staked to Exchanged.
func accrue(q *Queue, s *Stake) {
	diff := new(big.Int).Sub(q.ExchangeIndex, s.Checkpoint)
	s.Checkpoint = new(big.Int).Set(q.ExchangeIndex)
	if diff.Sign() <= 0 || s.Staked.Sign() == 0 {
		return
	}
	done := new(big.Int).Mul(s.Staked, diff)
	done.Quo(done, PRECISION)
	if done.Cmp(s.Staked) > 0 {
		done = new(big.Int).Set(s.Staked)
	}
	s.Staked = new(big.Int).Sub(s.Staked, done)
	s.Exchanged = new(big.Int).Add(s.Exchanged, done)
}

// exchange converts buffered underlying into exchanged debt for all stakers.
func (t *Transmuter) exchange(q *Queue) {
	if q.Buffer.Sign() == 0 || q.TotalStaked.Sign() == 0 {
		return
	}
	under := new(big.Int).Quo(q.TotalStaked, q.ConversionFactor)
	if q.Buffer.Cmp(under) < 0 {
		under = new(big.Int).Set(q.Buffer)
	}
	if under.Sign() == 0 {
		return
	}
	debt := new(big.Int).Mul(under, q.ConversionFactor)
	inc := new(big.Int).Mul(debt, PRECISION)
	inc.Quo(inc, q.TotalStaked)
	q.ExchangeIndex = new(big.Int).Add(q.ExchangeIndex, inc)
	q.TotalStaked = saturatingSub(q.TotalStaked, debt)
	q.Buffer = new(big.Int).Sub(q.Buffer, under)
	q.Reserved = new(big.Int).Add(q.Reserved, under)
}

func saturatingSub(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Sub(a, b)
}
