// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"math/big"

	"github.com/luxfi/geth/common"
)

// Oracle reports the price of a yield token in underlying units, scaled by
// the yield token's decimals.
type Oracle interface {
	ExchangeRate(token common.Address) (*big.Int, error)
}

// Adapter wraps and unwraps one yield token. Both calls operate on tokens
// held by the engine and deliver the output to recipient.
type Adapter interface {
	// Wrap converts underlying into yield tokens and returns the amount
	// minted.
	Wrap(amount *big.Int, recipient common.Address) (*big.Int, error)

	// Unwrap converts yield tokens into underlying and returns the amount
	// delivered.
	Unwrap(amount *big.Int, recipient common.Address) (*big.Int, error)
}

// Bank moves tokens on behalf of the engine.
type Bank interface {
	TransferIn(token, from, to common.Address, amount *big.Int) error
	TransferOut(token, to common.Address, amount *big.Int) error
	Mint(token, to common.Address, amount *big.Int) error
	Burn(token, from common.Address, amount *big.Int) error
	BalanceOf(token, owner common.Address) *big.Int
}

// Snapshotter is implemented by collaborators that can undo their changes.
// When the Bank or the Sink passed to the engine implements it, failed
// operations roll them back too.
type Snapshotter interface {
	Snapshot() int
	RevertToSnapshot(id int)
}

// Sink receives underlying tokens sent to the transmuter. It is notified once
// per underlying token, after every transfer of the operation succeeded.
type Sink interface {
	Notify(token common.Address, amount *big.Int) error
}

// Clock reports the current block height.
type Clock interface {
	BlockNumber() uint64
}

// Emitter receives the events of committed operations.
type Emitter interface {
	Emit(ev Event)
}
