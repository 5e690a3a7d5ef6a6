// internal/monitor/report.go
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mirrortrade/copybot/internal/ledger"
	"github.com/mirrortrade/copybot/internal/notify"
)

// DustCostThreshold is the attributed cost below which a closing trade
// is excluded from win-rate statistics. Sweep sells of residual dust
// would otherwise pile up as meaningless "wins" or "losses"; a rug pull
// always costs more than this, so real losses still count.
const DustCostThreshold = 0.01

const usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

// ReportStats is the result of replaying the trade log.
type ReportStats struct {
	DailyPnL    float64
	TotalPnL    float64
	DailyWins   int
	DailyLosses int
	TotalWins   int
	TotalLosses int
	SellCount   int
}

// DailyWinRate returns today's win percentage over dust-filtered trades.
func (s ReportStats) DailyWinRate() float64 {
	total := s.DailyWins + s.DailyLosses
	if total == 0 {
		return 0
	}
	return float64(s.DailyWins) / float64(total) * 100
}

// TotalWinRate returns the all-time win percentage over dust-filtered
// trades.
func (s ReportStats) TotalWinRate() float64 {
	total := s.TotalWins + s.TotalLosses
	if total == 0 {
		return 0
	}
	return float64(s.TotalWins) / float64(total) * 100
}

// Replay folds over the trade log in order, reconstructing per-mint
// running holdings and weighted-average cost, and attributes realized
// P&L to each closing trade. Records at or after since count toward the
// daily figures. Pure: same log in, same stats out; the live ledger is
// never touched.
func Replay(records []ledger.TradeRecord, since time.Time) ReportStats {
	var stats ReportStats
	holdings := make(map[string]uint64)
	costs := make(map[string]float64)

	for _, rec := range records {
		switch {
		case rec.Action == ledger.ActionBuy:
			holdings[rec.Mint] += rec.Amount
			costs[rec.Mint] += rec.Value

		case rec.Action.IsSell():
			stats.SellCount++

			held := holdings[rec.Mint]
			if held == 0 {
				continue
			}

			avgPrice := costs[rec.Mint] / float64(held)
			sold := rec.Amount
			if sold > held {
				sold = held
			}
			costOfSell := avgPrice * float64(sold)

			// P&L counts every sell, dust included.
			pnl := rec.Value - costOfSell
			stats.TotalPnL += pnl

			isToday := !rec.Time.Before(since)
			if isToday {
				stats.DailyPnL += pnl
			}

			// Win rate only counts trades with real capital at stake.
			if costOfSell > DustCostThreshold {
				if pnl > 0 {
					stats.TotalWins++
					if isToday {
						stats.DailyWins++
					}
				} else {
					stats.TotalLosses++
					if isToday {
						stats.DailyLosses++
					}
				}
			}

			holdings[rec.Mint] = held - sold
			costs[rec.Mint] -= costOfSell
			if costs[rec.Mint] < 0 {
				costs[rec.Mint] = 0
			}
		}
	}

	return stats
}

// Reporter generates the daily summary and emails it once per day at a
// fixed wall-clock hour. Read-only with respect to the ledger.
type Reporter struct {
	ledger    *ledger.Ledger
	chain     ChainReader
	notifier  notify.Notifier
	botWallet string
	solMint   string
	hour      int
	logger    *zap.Logger
}

// NewReporter creates the daily report scheduler.
func NewReporter(
	l *ledger.Ledger,
	chain ChainReader,
	notifier notify.Notifier,
	botWallet, solMint string,
	hour int,
	logger *zap.Logger,
) *Reporter {
	return &Reporter{
		ledger:    l,
		chain:     chain,
		notifier:  notifier,
		botWallet: botWallet,
		solMint:   solMint,
		hour:      hour,
		logger:    logger.Named("reporter"),
	}
}

// Run fires the report at the configured hour every day until the
// context is cancelled.
func (r *Reporter) Run(ctx context.Context) error {
	r.logger.Info("📅 Daily report scheduler started", zap.Int("hour", r.hour))
	for {
		wait := time.Until(r.nextFireTime(time.Now()))
		r.logger.Info("⏳ Next daily report scheduled", zap.Duration("in", wait))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		body := r.Generate(ctx)
		r.notifier.Notify("📊 Daily trading report", body, r.ledger.PositionsPath())
		r.logger.Info("✅ Daily report sent")

		// Step past the firing minute so the next computation lands on
		// tomorrow.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Minute):
		}
	}
}

// nextFireTime returns the next occurrence of the configured hour.
func (r *Reporter) nextFireTime(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), r.hour, 0, 0, 0, now.Location())
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Generate builds the report text: asset overview, daily and all-time
// realized P&L, dust-filtered win rates and current holdings.
func (r *Reporter) Generate(ctx context.Context) string {
	now := time.Now()

	// SOL price in USD via a 1-SOL quote against USDC.
	solPrice := 0.0
	if out, ok := r.chain.Quote(ctx, r.solMint, usdcMint, 1e9); ok {
		solPrice = float64(out) / 1e6
	}

	solBalance, err := r.chain.GetBalance(ctx, r.botWallet, r.solMint)
	if err != nil {
		r.logger.Warn("Failed to read wallet balance for report", zap.Error(err))
	}

	holdingsValueSOL := 0.0
	var holdingsDetail strings.Builder
	for _, pos := range r.ledger.Positions() {
		if pos.Quantity == 0 {
			continue
		}
		valueSOL := 0.0
		if out, ok := r.chain.Quote(ctx, pos.Mint, r.solMint, pos.Quantity); ok {
			valueSOL = float64(out) / 1e9
		}
		holdingsValueSOL += valueSOL
		fmt.Fprintf(&holdingsDetail, "- %s…: holding %d, worth %.4f SOL\n",
			shortMint(pos.Mint), pos.Quantity, valueSOL)
	}

	stats := Replay(r.ledger.Records(), now.Add(-24*time.Hour))

	totalAssetSOL := solBalance + holdingsValueSOL

	var b strings.Builder
	fmt.Fprintf(&b, "【📅 Daily trading & asset report】\n")
	fmt.Fprintf(&b, "Time: %s\n\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "💰 Assets:\n-------------------\n")
	fmt.Fprintf(&b, "• SOL price: $%.2f\n", solPrice)
	fmt.Fprintf(&b, "• Wallet balance: %.4f SOL\n", solBalance)
	fmt.Fprintf(&b, "• Holdings value: %.4f SOL\n", holdingsValueSOL)
	fmt.Fprintf(&b, "• Total assets: %.4f SOL (≈ $%.2f)\n\n", totalAssetSOL, totalAssetSOL*solPrice)
	fmt.Fprintf(&b, "📈 Today:\n-------------------\n")
	fmt.Fprintf(&b, "• Realized P&L: %+.4f SOL\n", stats.DailyPnL)
	fmt.Fprintf(&b, "• Win rate: %.1f%% (%d W / %d L)\n\n", stats.DailyWinRate(), stats.DailyWins, stats.DailyLosses)
	fmt.Fprintf(&b, "🏆 All time:\n-------------------\n")
	fmt.Fprintf(&b, "• Realized P&L: %+.4f SOL (≈ $%.2f)\n", stats.TotalPnL, stats.TotalPnL*solPrice)
	fmt.Fprintf(&b, "• Win rate: %.1f%% (%d W / %d L)\n", stats.TotalWinRate(), stats.TotalWins, stats.TotalLosses)
	fmt.Fprintf(&b, "• Total sells: %d (dust included)\n\n", stats.SellCount)
	fmt.Fprintf(&b, "👜 Current holdings:\n")
	if holdingsDetail.Len() > 0 {
		b.WriteString(holdingsDetail.String())
	} else {
		b.WriteString("(none)\n")
	}
	fmt.Fprintf(&b, "\n🤖 Bot status: running\n")
	return b.String()
}

func shortMint(mint string) string {
	if len(mint) <= 6 {
		return mint
	}
	return mint[:6]
}
