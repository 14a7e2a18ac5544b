// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sim runs scenarios against an engine wired to in-process host
// collaborators. Engine calls go through the precompile ABI.
package sim

import (
	"fmt"
	"strings"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
	"github.com/luxfi/log/level"

	"github.com/luxfi/alchemist/alchemist"
	"github.com/luxfi/alchemist/host"
	"github.com/luxfi/alchemist/internal/config"
	"github.com/luxfi/alchemist/modules"
	"github.com/luxfi/alchemist/precompile"
	"github.com/luxfi/alchemist/transmuter"
)

// GasLimit is supplied to every call.
const GasLimit uint64 = 10_000_000

var precompileABI = precompile.ParseABI(precompile.AlchemistABI)

type token struct {
	symbol     string
	address    common.Address
	decimals   uint8
	underlying *token
}

// World is a deployed engine with its collaborators and named accounts.
type World struct {
	cfg *config.Config
	log log.Logger

	Ledger     *host.Ledger
	Oracle     *host.Oracle
	Clock      *host.Clock
	Custody    *host.Custody
	Transmuter *transmuter.Transmuter
	Engine     *alchemist.Alchemist
	Contract   *precompile.Contract

	address    common.Address
	admin      common.Address
	debtToken  common.Address
	yield      map[string]*token
	underlying map[string]*token
	accounts   map[string]common.Address
}

// Build deploys the engine described by cfg: tokens are registered and
// enabled, the admin is made a keeper, and account balances are minted.
func Build(cfg *config.Config, logger log.Logger) (*World, error) {
	if logger == nil {
		logger = log.NewTestLogger(level.Info)
	}
	engineCfg, err := cfg.Engine.Alchemist()
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	address, err := config.ParseAddress(cfg.Engine.Address)
	if err != nil {
		return nil, fmt.Errorf("engine address: %w", err)
	}
	if err := modules.CheckDeployment(precompile.ConfigKey, address); err != nil {
		return nil, err
	}

	w := &World{
		cfg:        cfg,
		log:        logger,
		Ledger:     host.NewLedger(),
		Oracle:     host.NewOracle(),
		Clock:      host.NewClock(cfg.Engine.StartBlock),
		address:    address,
		admin:      engineCfg.Admin,
		debtToken:  engineCfg.DebtToken,
		yield:      make(map[string]*token),
		underlying: make(map[string]*token),
		accounts:   make(map[string]common.Address),
	}
	w.Custody = host.NewCustody(w.Ledger, address)
	w.Transmuter = transmuter.New(engineCfg.Transmuter, engineCfg.DebtToken, w.Ledger, logger)

	logs := precompile.NewLogSink(address)
	w.Engine, err = alchemist.New(engineCfg, alchemist.Options{
		Address:  address,
		Oracle:   w.Oracle,
		Bank:     w.Custody,
		Sink:     w.Transmuter,
		Clock:    w.Clock,
		Database: memdb.New(),
		Logger:   logger,
		Emitter:  logs,
	})
	if err != nil {
		return nil, err
	}
	w.Contract = precompile.NewContract(w.Engine, logs)

	if err := w.registerTokens(); err != nil {
		return nil, err
	}
	if err := w.Engine.SetKeeper(w.admin, w.admin, true); err != nil {
		return nil, err
	}
	if err := w.fundAccounts(); err != nil {
		return nil, err
	}
	w.Contract.Logs()
	logger.Info("world built",
		"underlying", len(w.underlying),
		"yield", len(w.yield),
		"accounts", len(w.accounts),
	)
	return w, nil
}

func (w *World) registerTokens() error {
	for i := range w.cfg.Underlying {
		u := &w.cfg.Underlying[i]
		uc, err := u.Alchemist()
		if err != nil {
			return err
		}
		if err := w.Engine.AddUnderlyingToken(w.admin, uc); err != nil {
			return fmt.Errorf("underlying %s: %w", u.Symbol, err)
		}
		if err := w.Engine.SetUnderlyingTokenEnabled(w.admin, uc.Token, true); err != nil {
			return err
		}
		if err := w.Transmuter.AddQueue(uc.Token, uc.Decimals); err != nil {
			return fmt.Errorf("underlying %s: %w", u.Symbol, err)
		}
		w.underlying[strings.ToLower(u.Symbol)] = &token{symbol: u.Symbol, address: uc.Token, decimals: uc.Decimals}
	}
	for i := range w.cfg.Yield {
		y := &w.cfg.Yield[i]
		under, ok := w.underlying[strings.ToLower(y.Underlying)]
		if !ok {
			return fmt.Errorf("yield %s: %w: %q", y.Symbol, config.ErrUnknownSymbol, y.Underlying)
		}
		uc, _ := w.cfg.FindUnderlying(y.Underlying)
		yc, rate, err := y.Alchemist(uc)
		if err != nil {
			return err
		}
		w.Oracle.SetRate(yc.Token, rate)
		adapter := host.NewAdapter(w.Ledger, w.Oracle, yc.Token, yc.Underlying, w.address, yc.Decimals)
		if err := w.Engine.AddYieldToken(w.admin, yc, adapter); err != nil {
			return fmt.Errorf("yield %s: %w", y.Symbol, err)
		}
		if err := w.Engine.SetYieldTokenEnabled(w.admin, yc.Token, true); err != nil {
			return err
		}
		w.yield[strings.ToLower(y.Symbol)] = &token{symbol: y.Symbol, address: yc.Token, decimals: yc.Decimals, underlying: under}
	}
	return nil
}

func (w *World) fundAccounts() error {
	for i := range w.cfg.Accounts {
		a := &w.cfg.Accounts[i]
		addr, err := config.ParseAddress(a.Address)
		if err != nil {
			return fmt.Errorf("account %s: %w", a.Name, err)
		}
		w.accounts[strings.ToLower(a.Name)] = addr
		for symbol, amount := range a.Balances {
			tok, err := w.token(symbol)
			if err != nil {
				return fmt.Errorf("account %s: %w", a.Name, err)
			}
			value, err := config.ParseUnits(amount, tok.decimals)
			if err != nil {
				return fmt.Errorf("account %s: %w", a.Name, err)
			}
			if err := w.Ledger.Mint(tok.address, addr, value); err != nil {
				return fmt.Errorf("account %s: %w", a.Name, err)
			}
		}
	}
	return nil
}

// token finds a yield or underlying token by symbol.
func (w *World) token(symbol string) (*token, error) {
	key := strings.ToLower(symbol)
	if t, ok := w.yield[key]; ok {
		return t, nil
	}
	if t, ok := w.underlying[key]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownSymbol, symbol)
}

func (w *World) yieldToken(symbol string) (*token, error) {
	if t, ok := w.yield[strings.ToLower(symbol)]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: yield token %q", config.ErrUnknownSymbol, symbol)
}

func (w *World) underlyingToken(symbol string) (*token, error) {
	if t, ok := w.underlying[strings.ToLower(symbol)]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: underlying token %q", config.ErrUnknownSymbol, symbol)
}

// Account returns the address of a named account.
func (w *World) Account(name string) (common.Address, error) {
	if addr, ok := w.accounts[strings.ToLower(name)]; ok {
		return addr, nil
	}
	return common.Address{}, fmt.Errorf("%w: %q", config.ErrUnknownAccount, name)
}
