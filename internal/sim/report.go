// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sim

import (
	"fmt"
	"sort"

	"github.com/luxfi/alchemist/alchemist"
	"github.com/luxfi/alchemist/internal/config"
)

// Report is the outcome of a scenario run.
type Report struct {
	Steps      []StepResult    `json:"steps" yaml:"steps"`
	Block      uint64          `json:"block" yaml:"block"`
	Accounts   []AccountReport `json:"accounts" yaml:"accounts"`
	Pools      []PoolReport    `json:"pools" yaml:"pools"`
	Queues     []QueueReport   `json:"queues" yaml:"queues"`
	Failed     int             `json:"failed" yaml:"failed"`
	Violations int             `json:"violations" yaml:"violations"`
}

// AccountReport is the settled state of a named account.
type AccountReport struct {
	Name       string            `json:"name" yaml:"name"`
	Address    string            `json:"address" yaml:"address"`
	Debt       string            `json:"debt" yaml:"debt"`
	Collateral string            `json:"collateral" yaml:"collateral"`
	State      string            `json:"state" yaml:"state"`
	Positions  map[string]string `json:"positions,omitempty" yaml:"positions,omitempty"`
	Balances   map[string]string `json:"balances,omitempty" yaml:"balances,omitempty"`
}

type PoolReport struct {
	Symbol      string `json:"symbol" yaml:"symbol"`
	Rate        string `json:"rate" yaml:"rate"`
	Balance     string `json:"balance" yaml:"balance"`
	TotalShares string `json:"total_shares" yaml:"total_shares"`
	Deficit     string `json:"deficit" yaml:"deficit"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
}

type QueueReport struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Buffer   string `json:"buffer" yaml:"buffer"`
	Staked   string `json:"staked" yaml:"staked"`
	Reserved string `json:"reserved" yaml:"reserved"`
}

// OK reports whether every step behaved as expected and no invariant broke.
func (r *Report) OK() bool { return r.Failed == 0 && r.Violations == 0 }

// Run applies the configured steps in order and reports the final state.
// It stops at the first malformed step.
func (w *World) Run() (*Report, error) {
	r := &Report{}
	for i, step := range w.cfg.Steps {
		res, err := w.Apply(i, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if res.Unexpected {
			r.Failed++
			w.log.Warn("unexpected step result",
				"index", i,
				"op", step.Op,
				"err", res.Error,
			)
		}
		if res.Invariants != "" {
			r.Violations++
			w.log.Error("invariant violated",
				"index", i,
				"op", step.Op,
				"err", res.Invariants,
			)
		}
		r.Steps = append(r.Steps, res)
	}
	if err := w.Snapshot(r); err != nil {
		return nil, err
	}
	w.log.Info("scenario finished",
		"steps", len(r.Steps),
		"failed", r.Failed,
		"violations", r.Violations,
	)
	return r, nil
}

// Snapshot fills the final state sections of r.
func (w *World) Snapshot(r *Report) error {
	r.Block = w.Clock.BlockNumber()
	r.Accounts = r.Accounts[:0]
	r.Pools = r.Pools[:0]
	r.Queues = r.Queues[:0]

	for _, a := range w.cfg.Accounts {
		acct, err := w.AccountReport(a.Name)
		if err != nil {
			return err
		}
		r.Accounts = append(r.Accounts, *acct)
	}
	for _, y := range w.sortedYield() {
		state, err := w.Engine.YieldToken(y.address)
		if err != nil {
			return fmt.Errorf("pool %s: %w", y.symbol, err)
		}
		under := y.underlying.decimals
		r.Pools = append(r.Pools, PoolReport{
			Symbol:      y.symbol,
			Rate:        config.FormatUnits(state.LastExchangeRate, under),
			Balance:     config.FormatUnits(state.Balance, y.decimals),
			TotalShares: config.FormatUnits(state.TotalShares, under),
			Deficit:     config.FormatUnits(state.Deficit, under),
			Enabled:     state.Enabled,
		})
	}
	for _, u := range w.sortedUnderlying() {
		q, ok := w.Transmuter.GetQueue(u.address)
		if !ok {
			continue
		}
		r.Queues = append(r.Queues, QueueReport{
			Symbol:   u.symbol,
			Buffer:   config.FormatUnits(q.Buffer, u.decimals),
			Staked:   config.FormatUnits(q.TotalStaked, alchemist.DebtDecimals),
			Reserved: config.FormatUnits(q.Reserved, u.decimals),
		})
	}
	return nil
}

// AccountReport returns the settled state and wallet balances of a named
// account.
func (w *World) AccountReport(name string) (*AccountReport, error) {
	addr, err := w.Account(name)
	if err != nil {
		return nil, err
	}
	info, err := w.Engine.Account(addr)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", name, err)
	}
	out := &AccountReport{
		Name:       name,
		Address:    addr.Hex(),
		Debt:       config.FormatUnits(info.Debt, alchemist.DebtDecimals),
		Collateral: config.FormatUnits(info.Collateral, alchemist.DebtDecimals),
		State:      info.State.String(),
		Positions:  make(map[string]string),
		Balances:   make(map[string]string),
	}
	for _, y := range w.sortedYield() {
		pos, err := w.Engine.Position(addr, y.address)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", name, err)
		}
		if pos.Shares.Sign() != 0 {
			out.Positions[y.symbol] = config.FormatUnits(pos.Shares, y.underlying.decimals)
		}
		if bal := w.Ledger.BalanceOf(y.address, addr); bal.Sign() != 0 {
			out.Balances[y.symbol] = config.FormatUnits(bal, y.decimals)
		}
	}
	for _, u := range w.sortedUnderlying() {
		if bal := w.Ledger.BalanceOf(u.address, addr); bal.Sign() != 0 {
			out.Balances[u.symbol] = config.FormatUnits(bal, u.decimals)
		}
	}
	if bal := w.Ledger.BalanceOf(w.debtToken, addr); bal.Sign() != 0 {
		out.Balances["debt"] = config.FormatUnits(bal, alchemist.DebtDecimals)
	}
	return out, nil
}

func (w *World) sortedYield() []*token {
	return sortTokens(w.yield)
}

func (w *World) sortedUnderlying() []*token {
	return sortTokens(w.underlying)
}

func sortTokens(m map[string]*token) []*token {
	out := make([]*token, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].symbol < out[j].symbol })
	return out
}
