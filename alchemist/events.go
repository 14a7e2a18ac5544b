// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"math/big"

	"github.com/luxfi/geth/common"
)

// Event names. Args are listed in declaration order.
const (
	EventDeposit            = "Deposit"            // sender, yieldToken, amount, recipient, shares
	EventWithdraw           = "Withdraw"           // owner, yieldToken, shares, recipient, amount
	EventMint               = "Mint"               // owner, amount, recipient
	EventBurn               = "Burn"               // sender, amount, recipient
	EventRepay              = "Repay"              // sender, underlyingToken, amount, recipient
	EventLiquidate          = "Liquidate"          // owner, yieldToken, liquidator, shares, debt, underlying
	EventHarvest            = "Harvest"            // yieldToken, rate, yield
	EventLoss               = "Loss"               // yieldToken, rate, deficit
	EventSettle             = "Settle"             // owner, yieldToken, shares, credit
	EventApproveMint        = "ApproveMint"        // owner, spender, amount
	EventApproveWithdraw    = "ApproveWithdraw"    // owner, spender, yieldToken, shares
	EventAddYieldToken      = "AddYieldToken"      // yieldToken, underlyingToken
	EventAddUnderlyingToken = "AddUnderlyingToken" // underlyingToken
	EventTokenEnabled       = "TokenEnabled"       // token, enabled
	EventAdminUpdated       = "AdminUpdated"       // admin
	EventPendingAdmin       = "PendingAdminUpdated"
)

// Event is a record of something an operation did, emitted after commit.
type Event struct {
	Name string
	Args []interface{}
}

func (tx *txn) emit(name string, args ...interface{}) {
	for i, arg := range args {
		if v, ok := arg.(*big.Int); ok {
			args[i] = clone(v)
		}
	}
	tx.events = append(tx.events, Event{Name: name, Args: args})
}

// Address returns argument i as an address.
func (e Event) Address(i int) common.Address {
	if i < len(e.Args) {
		if a, ok := e.Args[i].(common.Address); ok {
			return a
		}
	}
	return common.Address{}
}

// Amount returns argument i as an integer.
func (e Event) Amount(i int) *big.Int {
	if i < len(e.Args) {
		if v, ok := e.Args[i].(*big.Int); ok {
			return v
		}
	}
	return nil
}
