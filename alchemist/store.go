// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/rlp"
	"github.com/zeebo/blake3"
)

// Storage key prefixes
var (
	adminPrefix             = []byte("alchemist/admin")
	accountIndexPrefix      = []byte("alchemist/accounts")
	yieldTokenPrefix        = []byte("alchemist/yield/")
	underlyingTokenPrefix   = []byte("alchemist/underlying/")
	accountPrefix           = []byte("alchemist/account/")
	positionPrefix          = []byte("alchemist/position/")
	mintAllowancePrefix     = []byte("alchemist/allowance/mint/")
	withdrawAllowancePrefix = []byte("alchemist/allowance/withdraw/")
)

// makeStorageKey hashes a prefix and identifying parts into a storage key.
func makeStorageKey(prefix []byte, parts ...common.Address) common.Hash {
	h := blake3.New()
	h.Write(prefix)
	for _, p := range parts {
		h.Write(p.Bytes())
	}
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

func adminKey() common.Hash                      { return makeStorageKey(adminPrefix) }
func accountIndexKey() common.Hash               { return makeStorageKey(accountIndexPrefix) }
func yieldTokenKey(t common.Address) common.Hash { return makeStorageKey(yieldTokenPrefix, t) }
func underlyingTokenKey(t common.Address) common.Hash {
	return makeStorageKey(underlyingTokenPrefix, t)
}
func accountKey(owner common.Address) common.Hash { return makeStorageKey(accountPrefix, owner) }
func positionKey(owner, token common.Address) common.Hash {
	return makeStorageKey(positionPrefix, owner, token)
}
func mintAllowanceKey(owner, spender common.Address) common.Hash {
	return makeStorageKey(mintAllowancePrefix, owner, spender)
}
func withdrawAllowanceKey(owner, spender, token common.Address) common.Hash {
	return makeStorageKey(withdrawAllowancePrefix, owner, spender, token)
}

// allowance is a delegated amount.
type allowance struct {
	Amount *big.Int
}

// accountIndex lists every account that has ever been touched.
type accountIndex struct {
	Accounts []common.Address
}

// stored forms

type storedLimiter struct {
	Maximum   *uint256.Int
	Rate      *uint256.Int
	Blocks    uint64
	LastValue *uint256.Int
	LastBlock uint64
}

type storedAdmin struct {
	Admin                    common.Address
	PendingAdmin             common.Address
	Sentinels                []common.Address
	Keepers                  []common.Address
	DebtToken                common.Address
	Transmuter               common.Address
	ProtocolFeeReceiver      common.Address
	MinimumCollateralization *uint256.Int
	LiquidationPenalty       uint64
	MintLimiter              storedLimiter
	YieldTokens              []common.Address
	UnderlyingTokens         []common.Address
}

type storedYieldToken struct {
	Token                    common.Address
	Underlying               common.Address
	Decimals                 uint8
	Enabled                  bool
	MaximumLoss              uint64
	MaximumExpectedValue     *uint256.Int
	Balance                  *uint256.Int
	TotalShares              *uint256.Int
	AccumulatedYieldPerShare *uint256.Int
	LastExchangeRate         *uint256.Int
	Deficit                  *uint256.Int
}

type storedUnderlyingToken struct {
	Token              common.Address
	Decimals           uint8
	Enabled            bool
	ConversionFactor   *uint256.Int
	RepayLimiter       storedLimiter
	LiquidationLimiter storedLimiter
}

type storedAccount struct {
	Owner           common.Address
	DebtMagnitude   *uint256.Int
	DebtNegative    bool
	DepositedTokens []common.Address
}

type storedPosition struct {
	Owner           common.Address
	YieldToken      common.Address
	Shares          *uint256.Int
	YieldCheckpoint *uint256.Int
}

type storedAllowance struct {
	Amount *uint256.Int
}

// words converts a set of values to 256-bit words, failing on the first one
// that does not fit.
func words(values ...*big.Int) ([]*uint256.Int, error) {
	out := make([]*uint256.Int, len(values))
	for i, v := range values {
		w, err := toU256(v)
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}

func toStoredLimiter(l *Limiter) (storedLimiter, error) {
	if l == nil {
		return storedLimiter{}, fmt.Errorf("%w: missing limiter", ErrCorruptRecord)
	}
	w, err := words(l.Maximum, l.Rate, l.LastValue)
	if err != nil {
		return storedLimiter{}, err
	}
	return storedLimiter{Maximum: w[0], Rate: w[1], Blocks: l.Blocks, LastValue: w[2], LastBlock: l.LastBlock}, nil
}

func (s storedLimiter) limiter() *Limiter {
	return &Limiter{
		Maximum:   fromU256(s.Maximum),
		Rate:      fromU256(s.Rate),
		Blocks:    s.Blocks,
		LastValue: fromU256(s.LastValue),
		LastBlock: s.LastBlock,
	}
}

// encodeRecord serializes a record to its stored form.
func encodeRecord(rec interface{}) ([]byte, error) {
	var stored interface{}
	switch r := rec.(type) {
	case *AdminState:
		lim, err := toStoredLimiter(r.MintLimiter)
		if err != nil {
			return nil, err
		}
		ratio, err := toU256(r.MinimumCollateralization)
		if err != nil {
			return nil, err
		}
		stored = &storedAdmin{
			Admin:                    r.Admin,
			PendingAdmin:             r.PendingAdmin,
			Sentinels:                r.Sentinels,
			Keepers:                  r.Keepers,
			DebtToken:                r.DebtToken,
			Transmuter:               r.Transmuter,
			ProtocolFeeReceiver:      r.ProtocolFeeReceiver,
			MinimumCollateralization: ratio,
			LiquidationPenalty:       r.LiquidationPenalty,
			MintLimiter:              lim,
			YieldTokens:              r.YieldTokens,
			UnderlyingTokens:         r.UnderlyingTokens,
		}
	case *YieldTokenState:
		w, err := words(r.MaximumExpectedValue, r.Balance, r.TotalShares, r.AccumulatedYieldPerShare, r.LastExchangeRate, r.Deficit)
		if err != nil {
			return nil, fmt.Errorf("yield token %s: %w", r.Token.Hex(), err)
		}
		stored = &storedYieldToken{
			Token:                    r.Token,
			Underlying:               r.Underlying,
			Decimals:                 r.Decimals,
			Enabled:                  r.Enabled,
			MaximumLoss:              r.MaximumLoss,
			MaximumExpectedValue:     w[0],
			Balance:                  w[1],
			TotalShares:              w[2],
			AccumulatedYieldPerShare: w[3],
			LastExchangeRate:         w[4],
			Deficit:                  w[5],
		}
	case *UnderlyingTokenState:
		repay, err := toStoredLimiter(r.RepayLimiter)
		if err != nil {
			return nil, err
		}
		liq, err := toStoredLimiter(r.LiquidationLimiter)
		if err != nil {
			return nil, err
		}
		factor, err := toU256(r.ConversionFactor)
		if err != nil {
			return nil, err
		}
		stored = &storedUnderlyingToken{
			Token:              r.Token,
			Decimals:           r.Decimals,
			Enabled:            r.Enabled,
			ConversionFactor:   factor,
			RepayLimiter:       repay,
			LiquidationLimiter: liq,
		}
	case *Account:
		debt := clone(r.Debt)
		magnitude, err := toU256(new(big.Int).Abs(debt))
		if err != nil {
			return nil, fmt.Errorf("account %s debt: %w", r.Owner.Hex(), err)
		}
		stored = &storedAccount{
			Owner:           r.Owner,
			DebtMagnitude:   magnitude,
			DebtNegative:    debt.Sign() < 0,
			DepositedTokens: r.DepositedTokens,
		}
	case *Position:
		w, err := words(r.Shares, r.YieldCheckpoint)
		if err != nil {
			return nil, fmt.Errorf("position %s/%s: %w", r.Owner.Hex(), r.YieldToken.Hex(), err)
		}
		stored = &storedPosition{
			Owner:           r.Owner,
			YieldToken:      r.YieldToken,
			Shares:          w[0],
			YieldCheckpoint: w[1],
		}
	case *allowance:
		amount, err := toU256(r.Amount)
		if err != nil {
			return nil, err
		}
		stored = &storedAllowance{Amount: amount}
	case *accountIndex:
		stored = r
	default:
		return nil, fmt.Errorf("%w: cannot encode %T", ErrCorruptRecord, rec)
	}
	return rlp.EncodeToBytes(stored)
}

func decodeAdmin(data []byte) (interface{}, error) {
	var s storedAdmin
	if err := rlp.DecodeBytes(data, &s); err != nil {
		return nil, fmt.Errorf("%w: admin: %v", ErrCorruptRecord, err)
	}
	return &AdminState{
		Admin:                    s.Admin,
		PendingAdmin:             s.PendingAdmin,
		Sentinels:                s.Sentinels,
		Keepers:                  s.Keepers,
		DebtToken:                s.DebtToken,
		Transmuter:               s.Transmuter,
		ProtocolFeeReceiver:      s.ProtocolFeeReceiver,
		MinimumCollateralization: fromU256(s.MinimumCollateralization),
		LiquidationPenalty:       s.LiquidationPenalty,
		MintLimiter:              s.MintLimiter.limiter(),
		YieldTokens:              s.YieldTokens,
		UnderlyingTokens:         s.UnderlyingTokens,
	}, nil
}

func decodeYieldToken(data []byte) (interface{}, error) {
	var s storedYieldToken
	if err := rlp.DecodeBytes(data, &s); err != nil {
		return nil, fmt.Errorf("%w: yield token: %v", ErrCorruptRecord, err)
	}
	return &YieldTokenState{
		Token:                    s.Token,
		Underlying:               s.Underlying,
		Decimals:                 s.Decimals,
		Enabled:                  s.Enabled,
		MaximumLoss:              s.MaximumLoss,
		MaximumExpectedValue:     fromU256(s.MaximumExpectedValue),
		Balance:                  fromU256(s.Balance),
		TotalShares:              fromU256(s.TotalShares),
		AccumulatedYieldPerShare: fromU256(s.AccumulatedYieldPerShare),
		LastExchangeRate:         fromU256(s.LastExchangeRate),
		Deficit:                  fromU256(s.Deficit),
	}, nil
}

func decodeUnderlyingToken(data []byte) (interface{}, error) {
	var s storedUnderlyingToken
	if err := rlp.DecodeBytes(data, &s); err != nil {
		return nil, fmt.Errorf("%w: underlying token: %v", ErrCorruptRecord, err)
	}
	return &UnderlyingTokenState{
		Token:              s.Token,
		Decimals:           s.Decimals,
		Enabled:            s.Enabled,
		ConversionFactor:   fromU256(s.ConversionFactor),
		RepayLimiter:       s.RepayLimiter.limiter(),
		LiquidationLimiter: s.LiquidationLimiter.limiter(),
	}, nil
}

func decodeAccount(data []byte) (interface{}, error) {
	var s storedAccount
	if err := rlp.DecodeBytes(data, &s); err != nil {
		return nil, fmt.Errorf("%w: account: %v", ErrCorruptRecord, err)
	}
	debt := fromU256(s.DebtMagnitude)
	if s.DebtNegative {
		debt.Neg(debt)
	}
	return &Account{Owner: s.Owner, Debt: debt, DepositedTokens: s.DepositedTokens}, nil
}

func decodePosition(data []byte) (interface{}, error) {
	var s storedPosition
	if err := rlp.DecodeBytes(data, &s); err != nil {
		return nil, fmt.Errorf("%w: position: %v", ErrCorruptRecord, err)
	}
	return &Position{
		Owner:           s.Owner,
		YieldToken:      s.YieldToken,
		Shares:          fromU256(s.Shares),
		YieldCheckpoint: fromU256(s.YieldCheckpoint),
	}, nil
}

func decodeAllowance(data []byte) (interface{}, error) {
	var s storedAllowance
	if err := rlp.DecodeBytes(data, &s); err != nil {
		return nil, fmt.Errorf("%w: allowance: %v", ErrCorruptRecord, err)
	}
	return &allowance{Amount: fromU256(s.Amount)}, nil
}

func decodeAccountIndex(data []byte) (interface{}, error) {
	var s accountIndex
	if err := rlp.DecodeBytes(data, &s); err != nil {
		return nil, fmt.Errorf("%w: account index: %v", ErrCorruptRecord, err)
	}
	return &s, nil
}

// store is the committed state: a database plus a cache of decoded records.
// Records held by the cache are never mutated; transactions work on clones.
type store struct {
	mu    sync.RWMutex
	db    database.Database
	cache map[common.Hash]interface{}
}

func newStore(db database.Database) *store {
	return &store{
		db:    db,
		cache: make(map[common.Hash]interface{}),
	}
}

// get returns the committed record under key, or nil if there is none.
func (s *store) get(key common.Hash, decode func([]byte) (interface{}, error)) (interface{}, error) {
	s.mu.RLock()
	rec, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return rec, nil
	}

	data, err := s.db.Get(key[:])
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec, err = decode(data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = rec
	s.mu.Unlock()
	return rec, nil
}

// commit writes every record a transaction touched in one batch. The
// transaction's records become the committed ones and it must not be used
// afterwards.
func (s *store) commit(tx *txn) error {
	if len(tx.order) == 0 {
		return nil
	}
	batch := s.db.NewBatch()
	for _, key := range tx.order {
		data, err := encodeRecord(tx.dirty[key])
		if err != nil {
			return err
		}
		if err := batch.Put(key[:], data); err != nil {
			return err
		}
	}
	if err := batch.Write(); err != nil {
		return err
	}

	s.mu.Lock()
	for _, key := range tx.order {
		s.cache[key] = tx.dirty[key]
	}
	s.mu.Unlock()
	return nil
}
