// internal/monitor/report_test.go
package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mirrortrade/copybot/internal/ledger"
)

const reportMint = "MintA111111111111111111111111111111111111111"

func rec(offset time.Duration, action ledger.Action, mint string, amount uint64, value float64) ledger.TradeRecord {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	return ledger.TradeRecord{
		Time:   base.Add(offset),
		Action: action,
		Mint:   mint,
		Amount: amount,
		Value:  value,
	}
}

func TestReplay_ProfitableRoundtrip(t *testing.T) {
	records := []ledger.TradeRecord{
		rec(0, ledger.ActionBuy, reportMint, 1000, 0.10),
		rec(time.Hour, ledger.ActionSell, reportMint, 1000, 0.15),
	}

	stats := Replay(records, time.Time{})
	assert.InDelta(t, 0.05, stats.TotalPnL, 1e-9)
	assert.Equal(t, 1, stats.TotalWins)
	assert.Equal(t, 0, stats.TotalLosses)
	assert.Equal(t, 1, stats.SellCount)
	assert.InDelta(t, 100.0, stats.TotalWinRate(), 1e-9)
}

func TestReplay_PartialSellUsesWeightedAverageCost(t *testing.T) {
	records := []ledger.TradeRecord{
		rec(0, ledger.ActionBuy, reportMint, 1000, 0.10),
		rec(time.Minute, ledger.ActionBuy, reportMint, 1000, 0.30),
		// Average cost 0.0002 SOL per unit; selling 500 attributes 0.10.
		rec(time.Hour, ledger.ActionSell, reportMint, 500, 0.12),
	}

	stats := Replay(records, time.Time{})
	assert.InDelta(t, 0.02, stats.TotalPnL, 1e-9)
	assert.Equal(t, 1, stats.TotalWins)
}

func TestReplay_DustSellCountsInPnLNotWinRate(t *testing.T) {
	records := []ledger.TradeRecord{
		// Tiny attributed cost: 0.005 SOL, below the threshold.
		rec(0, ledger.ActionBuy, reportMint, 1000, 0.005),
		rec(time.Hour, ledger.ActionSellForce, reportMint, 1000, 0.001),
	}

	stats := Replay(records, time.Time{})
	assert.InDelta(t, -0.004, stats.TotalPnL, 1e-9)
	assert.Equal(t, 0, stats.TotalWins)
	assert.Equal(t, 0, stats.TotalLosses)
	assert.Equal(t, 0.0, stats.TotalWinRate())
	assert.Equal(t, 1, stats.SellCount)
}

func TestReplay_DailyWindow(t *testing.T) {
	records := []ledger.TradeRecord{
		rec(0, ledger.ActionBuy, reportMint, 1000, 0.10),
		rec(time.Hour, ledger.ActionSell, reportMint, 500, 0.08),
		rec(48*time.Hour, ledger.ActionBuy, reportMint, 1000, 0.10),
		rec(49*time.Hour, ledger.ActionSell, reportMint, 500, 0.03),
	}
	since := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	stats := Replay(records, since)
	assert.Equal(t, 1, stats.DailyWins+stats.DailyLosses, "only the recent sell is daily")
	assert.Equal(t, 2, stats.TotalWins+stats.TotalLosses)
	assert.Less(t, stats.DailyPnL, 0.0)
}

func TestReplay_SellWithoutHoldingsIsSkipped(t *testing.T) {
	records := []ledger.TradeRecord{
		rec(0, ledger.ActionSell, reportMint, 1000, 0.10),
	}

	stats := Replay(records, time.Time{})
	assert.Equal(t, 0.0, stats.TotalPnL)
	assert.Equal(t, 1, stats.SellCount)
	assert.Equal(t, 0, stats.TotalWins+stats.TotalLosses)
}

func TestReplay_Idempotent(t *testing.T) {
	records := []ledger.TradeRecord{
		rec(0, ledger.ActionBuy, reportMint, 1000, 0.10),
		rec(time.Minute, ledger.ActionSell, reportMint, 400, 0.06),
		rec(2*time.Minute, ledger.ActionBuy, reportMint, 2000, 0.20),
		rec(time.Hour, ledger.ActionSellForce, reportMint, 2600, 0.30),
	}

	first := Replay(records, time.Time{})
	second := Replay(records, time.Time{})
	assert.Equal(t, first, second)
}

func TestNextFireTime(t *testing.T) {
	r := &Reporter{hour: 9}

	before := time.Date(2026, 8, 31, 7, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC), r.nextFireTime(before))

	after := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC), r.nextFireTime(after))

	exact := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC), r.nextFireTime(exact))
}
