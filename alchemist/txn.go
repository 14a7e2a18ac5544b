// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
)

// txn is a copy-on-write overlay of the store. Every record an operation
// loads is cloned into the overlay; nothing becomes visible until commit.
type txn struct {
	s     *store
	now   uint64
	dirty map[common.Hash]interface{}
	order []common.Hash

	// view is set on scratch transactions that are never committed.
	view bool

	// rates caches one oracle reading per yield token for the whole call.
	rates map[common.Address]*big.Int

	// releases are yield tokens taken out of pools by settlement that still
	// have to be unwrapped and sent to the transmuter.
	releases map[common.Address]*big.Int
	released []common.Address

	// notices are underlying amounts sent to the transmuter, reported to the
	// sink once every transfer of the operation has succeeded.
	notices  map[common.Address]*big.Int
	notified []common.Address

	events []Event
}

func (s *store) begin(now uint64) *txn {
	return &txn{
		s:        s,
		now:      now,
		dirty:    make(map[common.Hash]interface{}),
		rates:    make(map[common.Address]*big.Int),
		releases: make(map[common.Address]*big.Int),
		notices:  make(map[common.Address]*big.Int),
	}
}

func (tx *txn) put(key common.Hash, rec interface{}) {
	if _, ok := tx.dirty[key]; !ok {
		tx.order = append(tx.order, key)
	}
	tx.dirty[key] = rec
}

// load returns the overlay copy of the record under key, cloning it out of
// the store on first access. It returns nil when the record does not exist.
func load[T any](tx *txn, key common.Hash, decode func([]byte) (interface{}, error), cp func(*T) *T) (*T, error) {
	if rec, ok := tx.dirty[key]; ok {
		return rec.(*T), nil
	}
	rec, err := tx.s.get(key, decode)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	committed, ok := rec.(*T)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected %T", ErrCorruptRecord, rec)
	}
	out := cp(committed)
	tx.put(key, out)
	return out, nil
}

func (tx *txn) admin() (*AdminState, error) {
	st, err := load(tx, adminKey(), decodeAdmin, (*AdminState).Clone)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrNotConfigured
	}
	return st, nil
}

func (tx *txn) yieldToken(token common.Address) (*YieldTokenState, error) {
	st, err := load(tx, yieldTokenKey(token), decodeYieldToken, (*YieldTokenState).Clone)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("%w: yield token %s", ErrUnsupportedToken, token.Hex())
	}
	return st, nil
}

func (tx *txn) underlyingToken(token common.Address) (*UnderlyingTokenState, error) {
	st, err := load(tx, underlyingTokenKey(token), decodeUnderlyingToken, (*UnderlyingTokenState).Clone)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("%w: underlying token %s", ErrUnsupportedToken, token.Hex())
	}
	return st, nil
}

// account returns the owner's account, creating and indexing it if it does
// not exist yet.
func (tx *txn) account(owner common.Address) (*Account, error) {
	key := accountKey(owner)
	acct, err := load(tx, key, decodeAccount, (*Account).Clone)
	if err != nil || acct != nil {
		return acct, err
	}
	idx, err := tx.accountIndex()
	if err != nil {
		return nil, err
	}
	idx.Accounts = append(idx.Accounts, owner)
	acct = &Account{Owner: owner, Debt: zero()}
	tx.put(key, acct)
	return acct, nil
}

func (tx *txn) accountIndex() (*accountIndex, error) {
	key := accountIndexKey()
	idx, err := load(tx, key, decodeAccountIndex, func(i *accountIndex) *accountIndex {
		return &accountIndex{Accounts: append([]common.Address(nil), i.Accounts...)}
	})
	if err != nil || idx != nil {
		return idx, err
	}
	idx = &accountIndex{}
	tx.put(key, idx)
	return idx, nil
}

// position returns the owner's position in token. A missing position is
// returned empty and checkpointed at the pool's current accumulator.
func (tx *txn) position(owner common.Address, pool *YieldTokenState) (*Position, error) {
	key := positionKey(owner, pool.Token)
	pos, err := load(tx, key, decodePosition, (*Position).Clone)
	if err != nil || pos != nil {
		return pos, err
	}
	pos = &Position{
		Owner:           owner,
		YieldToken:      pool.Token,
		Shares:          zero(),
		YieldCheckpoint: clone(pool.AccumulatedYieldPerShare),
	}
	tx.put(key, pos)
	return pos, nil
}

func (tx *txn) mintAllowance(owner, spender common.Address) (*allowance, error) {
	return tx.allowance(mintAllowanceKey(owner, spender))
}

func (tx *txn) withdrawAllowance(owner, spender, token common.Address) (*allowance, error) {
	return tx.allowance(withdrawAllowanceKey(owner, spender, token))
}

func (tx *txn) allowance(key common.Hash) (*allowance, error) {
	a, err := load(tx, key, decodeAllowance, func(a *allowance) *allowance {
		return &allowance{Amount: clone(a.Amount)}
	})
	if err != nil || a != nil {
		return a, err
	}
	a = &allowance{Amount: zero()}
	tx.put(key, a)
	return a, nil
}

// release queues yield tokens for delivery to the transmuter.
func (tx *txn) release(token common.Address, amount *big.Int) {
	if !positive(amount) {
		return
	}
	total, ok := tx.releases[token]
	if !ok {
		total = zero()
		tx.releases[token] = total
		tx.released = append(tx.released, token)
	}
	total.Add(total, amount)
}

// notify queues a report of amount underlying sent to the transmuter.
func (tx *txn) notify(underlying common.Address, amount *big.Int) {
	if !positive(amount) {
		return
	}
	total, ok := tx.notices[underlying]
	if !ok {
		total = zero()
		tx.notices[underlying] = total
		tx.notified = append(tx.notified, underlying)
	}
	total.Add(total, amount)
}
