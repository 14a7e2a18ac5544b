// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package alchemist

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	log "github.com/luxfi/log"
	"github.com/stretchr/testify/require"
)

type logRecord struct {
	level slog.Level
	msg   string
}

// logHandler records every log line it receives.
type logHandler struct {
	mu      sync.Mutex
	records []logRecord
}

func (h *logHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *logHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, logRecord{level: r.Level, msg: r.Message})
	return nil
}

func (h *logHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *logHandler) WithGroup(string) slog.Handler { return h }

// drain returns the records above Debug and forgets everything seen so far.
func (h *logHandler) drain() []logRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []logRecord
	for _, r := range h.records {
		if r.level > slog.LevelDebug {
			out = append(out, r)
		}
	}
	h.records = nil
	return out
}

func TestOperationsLogAtDebug(t *testing.T) {
	handler := &logHandler{}
	h := newHarness(t)
	h.logger = log.NewLoggerFromHandler(handler)
	h.a = h.open(t)
	handler.drain()

	h.deposit(t, alice, usd(1000))
	require.NoError(t, h.a.Mint(alice, debt(100), alice))
	require.NoError(t, h.ledger.Mint(usdc, bob, usd(10)))
	_, err := h.a.Repay(bob, usdc, usd(10), alice)
	require.NoError(t, err)
	_, err = h.a.Withdraw(alice, yvUSDC, usd(10), alice)
	require.NoError(t, err)
	require.Empty(t, handler.drain())

	// Reads during a loss do not warn; the committed harvest does, once.
	h.oracle.SetRate(yvUSDC, rateOf(9, 10))
	for i := 0; i < 3; i++ {
		h.debtOf(t, alice)
		h.sharesOf(t, alice)
	}
	require.Empty(t, handler.drain())

	require.NoError(t, h.a.Harvest(keeper, yvUSDC))
	records := handler.drain()
	require.Len(t, records, 1)
	require.Equal(t, slog.LevelWarn, records[0].level)
	require.Equal(t, "yield token below high-water mark", records[0].msg)

	require.NoError(t, h.a.Harvest(keeper, yvUSDC))
	require.Empty(t, handler.drain())
}
