// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package host

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
)

var ErrNoPrice = errors.New("oracle cannot price token")

// Oracle reports exchange rates set by hand.
type Oracle struct {
	mu    sync.RWMutex
	rates map[common.Address]*big.Int
	fails map[common.Address]error
	reads int
}

func NewOracle() *Oracle {
	return &Oracle{
		rates: make(map[common.Address]*big.Int),
		fails: make(map[common.Address]error),
	}
}

// SetRate sets the rate of token and clears any failure.
func (o *Oracle) SetRate(token common.Address, rate *big.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rates[token] = new(big.Int).Set(rate)
	delete(o.fails, token)
}

// Fail makes every read of token return err.
func (o *Oracle) Fail(token common.Address, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fails[token] = err
}

func (o *Oracle) ExchangeRate(token common.Address) (*big.Int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reads++
	if err := o.fails[token]; err != nil {
		return nil, err
	}
	rate, ok := o.rates[token]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPrice, token.Hex())
	}
	return new(big.Int).Set(rate), nil
}

// Reads returns how many times the oracle was queried.
func (o *Oracle) Reads() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.reads
}
