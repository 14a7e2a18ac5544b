// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"fmt"
	"math/big"
)

// Limiter is a leaky bucket measured in blocks. Capacity refills linearly from
// empty to Maximum over Blocks blocks and is recomputed lazily on access.
type Limiter struct {
	Maximum *big.Int
	// Rate is the refill per block, rounded down. It is informational; the
	// refill itself is computed from Maximum and Blocks.
	Rate      *big.Int
	Blocks    uint64
	LastValue *big.Int
	LastBlock uint64
}

// NewLimiter returns a full limiter that refills from empty to maximum over
// the given number of blocks.
func NewLimiter(maximum *big.Int, blocks uint64, now uint64) (*Limiter, error) {
	l := &Limiter{}
	if err := l.Configure(maximum, blocks, now); err != nil {
		return nil, err
	}
	l.LastValue = clone(maximum)
	return l, nil
}

func (l *Limiter) Clone() *Limiter {
	if l == nil {
		return nil
	}
	return &Limiter{
		Maximum:   clone(l.Maximum),
		Rate:      clone(l.Rate),
		Blocks:    l.Blocks,
		LastValue: clone(l.LastValue),
		LastBlock: l.LastBlock,
	}
}

// Configure replaces the capacity and refill period. Capacity already
// available is kept, clamped to the new maximum.
func (l *Limiter) Configure(maximum *big.Int, blocks uint64, now uint64) error {
	if maximum == nil || maximum.Sign() < 0 {
		return fmt.Errorf("%w: limiter maximum %v", ErrInvalidParameter, maximum)
	}
	if blocks == 0 {
		return fmt.Errorf("%w: limiter refill period must be positive", ErrInvalidParameter)
	}
	current := zero()
	if l.Maximum != nil {
		current = l.Get(now)
	}
	l.Maximum = clone(maximum)
	l.Rate = new(big.Int).Quo(maximum, new(big.Int).SetUint64(blocks))
	l.Blocks = blocks
	l.LastValue = minBig(current, maximum)
	l.LastBlock = now
	return nil
}

// Get returns the capacity available at block now.
func (l *Limiter) Get(now uint64) *big.Int {
	value := clone(l.LastValue)
	if now > l.LastBlock && l.Blocks > 0 {
		elapsed := now - l.LastBlock
		if elapsed >= l.Blocks {
			return clone(l.Maximum)
		}
		value.Add(value, mulDiv(new(big.Int).SetUint64(elapsed), l.Maximum, new(big.Int).SetUint64(l.Blocks)))
	}
	if value.Cmp(l.Maximum) > 0 {
		return clone(l.Maximum)
	}
	return value
}

// Decrease consumes amount, failing if more than the available capacity is
// requested.
func (l *Limiter) Decrease(kind LimiterKind, amount *big.Int, now uint64) error {
	available := l.Get(now)
	if amount.Cmp(available) > 0 {
		return fmt.Errorf("%w: %s limit %s > available %s", ErrLimitExceeded, kind, amount, available)
	}
	l.LastValue = available.Sub(available, amount)
	l.LastBlock = now
	return nil
}

// Increase returns capacity to the bucket, never beyond Maximum.
func (l *Limiter) Increase(amount *big.Int, now uint64) {
	value := l.Get(now)
	value.Add(value, amount)
	l.LastValue = minBig(value, l.Maximum)
	l.LastBlock = now
}

// Info reports rate, maximum and available capacity at block now.
func (l *Limiter) Info(now uint64) LimitInfo {
	return LimitInfo{
		Rate:             clone(l.Rate),
		Maximum:          clone(l.Maximum),
		CurrentAvailable: l.Get(now),
	}
}
