// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package alchemist implements a collateralized debt engine. Depositors lock
// yield bearing tokens, mint a synthetic debt token against them, and have
// that debt repaid by the yield their collateral earns.
package alchemist

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
	"github.com/luxfi/log/level"
)

// Options wires an engine to its collaborators.
type Options struct {
	// Address is the account that holds the engine's tokens.
	Address common.Address

	Oracle Oracle
	Bank   Bank
	Sink   Sink
	Clock  Clock

	// Adapters maps yield tokens to their wrapping adapter. Adapters are not
	// persisted and must be supplied again when reopening a database.
	Adapters map[common.Address]Adapter

	Database database.Database
	Logger   log.Logger
	Emitter  Emitter
}

// Alchemist is the accounting engine.
type Alchemist struct {
	address common.Address
	oracle  Oracle
	bank    Bank
	sink    Sink
	clock   Clock
	emitter Emitter
	log     log.Logger

	store *store

	adaptersMu sync.RWMutex
	adapters   map[common.Address]Adapter

	// mu guards busy. Mutating calls hold busy for their whole duration,
	// including calls into collaborators.
	mu   sync.Mutex
	busy bool
}

// New opens an engine. If the database holds no state yet the engine is
// initialized from cfg.
func New(cfg Config, opts Options) (*Alchemist, error) {
	if opts.Address == (common.Address{}) {
		return nil, fmt.Errorf("engine address: %w", ErrZeroAddress)
	}
	if opts.Oracle == nil || opts.Bank == nil || opts.Sink == nil || opts.Clock == nil {
		return nil, fmt.Errorf("%w: oracle, bank, sink and clock are required", ErrInvalidParameter)
	}
	db := opts.Database
	if db == nil {
		db = memdb.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewTestLogger(level.Info)
	}

	a := &Alchemist{
		address:  opts.Address,
		oracle:   opts.Oracle,
		bank:     opts.Bank,
		sink:     opts.Sink,
		clock:    opts.Clock,
		emitter:  opts.Emitter,
		log:      logger,
		store:    newStore(db),
		adapters: make(map[common.Address]Adapter),
	}
	for token, adapter := range opts.Adapters {
		a.adapters[token] = adapter
	}

	existing, err := a.store.get(adminKey(), decodeAdmin)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		a.log.Info("alchemist state loaded", "address", a.address)
		return a, nil
	}

	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	now := a.clock.BlockNumber()
	mintLimiter, err := NewLimiter(cfg.MintingLimitMaximum, blocksOrDefault(cfg.MintingLimitBlocks), now)
	if err != nil {
		return nil, err
	}
	feeReceiver := cfg.ProtocolFeeReceiver
	if feeReceiver == (common.Address{}) {
		feeReceiver = cfg.Admin
	}
	tx := a.store.begin(now)
	tx.put(adminKey(), &AdminState{
		Admin:                    cfg.Admin,
		DebtToken:                cfg.DebtToken,
		Transmuter:               cfg.Transmuter,
		ProtocolFeeReceiver:      feeReceiver,
		MinimumCollateralization: clone(cfg.MinimumCollateralization),
		LiquidationPenalty:       cfg.LiquidationPenalty,
		MintLimiter:              mintLimiter,
	})
	if err := a.store.commit(tx); err != nil {
		return nil, err
	}
	a.log.Info("alchemist initialized",
		"address", a.address,
		"admin", cfg.Admin,
		"debtToken", cfg.DebtToken,
		"minimumCollateralization", cfg.MinimumCollateralization,
	)
	return a, nil
}

func blocksOrDefault(blocks uint64) uint64 {
	if blocks == 0 {
		return DefaultMintingLimitBlocks
	}
	return blocks
}

// Address returns the account holding the engine's tokens.
func (a *Alchemist) Address() common.Address { return a.address }

func (a *Alchemist) adapter(token common.Address) (Adapter, error) {
	a.adaptersMu.RLock()
	defer a.adaptersMu.RUnlock()
	ad, ok := a.adapters[token]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for %s", ErrNotConfigured, token.Hex())
	}
	return ad, nil
}

// enter marks the engine busy, failing if it already is.
func (a *Alchemist) enter() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.busy {
		return ErrReentrant
	}
	a.busy = true
	return nil
}

func (a *Alchemist) exit() {
	a.mu.Lock()
	a.busy = false
	a.mu.Unlock()
}

// execute runs fn as one atomic operation. State changes made through tx are
// committed only if fn, the trailing transmuter deliveries and the sink
// notifications succeed. When the bank or the sink can snapshot, their
// changes are rolled back on failure too.
func (a *Alchemist) execute(op string, fn func(tx *txn) error) (err error) {
	if err := a.enter(); err != nil {
		return err
	}
	defer a.exit()

	type checkpoint struct {
		s  Snapshotter
		id int
	}
	var checkpoints []checkpoint
	for _, c := range []interface{}{a.bank, a.sink} {
		if s, ok := c.(Snapshotter); ok {
			checkpoints = append(checkpoints, checkpoint{s, s.Snapshot()})
		}
	}
	defer func() {
		if err == nil {
			return
		}
		for i := len(checkpoints) - 1; i >= 0; i-- {
			checkpoints[i].s.RevertToSnapshot(checkpoints[i].id)
		}
	}()

	tx := a.store.begin(a.clock.BlockNumber())
	if err := fn(tx); err != nil {
		a.log.Debug("operation failed", "op", op, "err", err)
		return err
	}
	if err := a.deliver(tx); err != nil {
		a.log.Warn("transmuter delivery failed", "op", op, "err", err)
		return err
	}
	for _, token := range tx.notified {
		if err := a.sink.Notify(token, tx.notices[token]); err != nil {
			a.log.Warn("transmuter notification failed", "op", op, "token", token, "err", err)
			return fmt.Errorf("notify transmuter: %w", err)
		}
	}
	if err := a.store.commit(tx); err != nil {
		a.log.Error("commit failed", "op", op, "err", err)
		return err
	}
	if a.emitter != nil {
		for _, ev := range tx.events {
			a.emitter.Emit(ev)
		}
	}
	return nil
}

// view runs fn against a scratch transaction that is never committed.
// Pending yield is harvested and settled in the scratch copy so reads see
// settled values.
func (a *Alchemist) view(fn func(tx *txn) error) error {
	tx := a.store.begin(a.clock.BlockNumber())
	tx.view = true
	return fn(tx)
}

// deliver unwraps the yield tokens settled during the operation straight to
// the transmuter and queues the notification.
func (a *Alchemist) deliver(tx *txn) error {
	if len(tx.released) == 0 {
		return nil
	}
	admin, err := tx.admin()
	if err != nil {
		return err
	}
	for _, token := range tx.released {
		amount := tx.releases[token]
		pool, err := tx.yieldToken(token)
		if err != nil {
			return err
		}
		adapter, err := a.adapter(token)
		if err != nil {
			return err
		}
		out, err := adapter.Unwrap(amount, admin.Transmuter)
		if err != nil {
			return fmt.Errorf("unwrap %s: %w", token.Hex(), err)
		}
		tx.notify(pool.Underlying, out)
		a.log.Debug("yield delivered",
			"token", token,
			"yieldTokens", amount,
			"underlying", out,
		)
	}
	return nil
}

// pull moves amount of token from one account to another through the bank
// and checks the receiver was credited exactly amount.
func (a *Alchemist) pull(token, from, to common.Address, amount *big.Int) error {
	before := a.bank.BalanceOf(token, to)
	if err := a.bank.TransferIn(token, from, to, amount); err != nil {
		return err
	}
	after := a.bank.BalanceOf(token, to)
	if received := new(big.Int).Sub(after, before); received.Cmp(amount) != 0 {
		return fmt.Errorf("%w: %s expected %s, received %s", ErrTransferMismatch, token.Hex(), amount, received)
	}
	return nil
}
