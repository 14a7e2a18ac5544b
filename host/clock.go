// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package host

import "sync/atomic"

// Clock is a block counter advanced by hand.
type Clock struct {
	height atomic.Uint64
}

func NewClock(height uint64) *Clock {
	c := &Clock{}
	c.height.Store(height)
	return c
}

func (c *Clock) BlockNumber() uint64 { return c.height.Load() }

// Advance moves the clock forward n blocks.
func (c *Clock) Advance(n uint64) uint64 { return c.height.Add(n) }

func (c *Clock) Set(height uint64) { c.height.Store(height) }
