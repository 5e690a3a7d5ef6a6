// internal/monitor/profit.go
package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mirrortrade/copybot/internal/ledger"
)

// ProfitMonitor takes profit: when a position's quoted value reaches the
// configured ROI multiple of its cost basis, the full position is
// force-liquidated regardless of what the target wallet does.
type ProfitMonitor struct {
	ledger        *ledger.Ledger
	chain         ChainReader
	liquidator    Liquidator
	solMint       string
	takeProfitROI float64
	interval      time.Duration
	logger        *zap.Logger
}

// NewProfitMonitor creates the profit-taking loop.
func NewProfitMonitor(
	l *ledger.Ledger,
	chain ChainReader,
	liquidator Liquidator,
	solMint string,
	takeProfitROI float64,
	interval time.Duration,
	logger *zap.Logger,
) *ProfitMonitor {
	return &ProfitMonitor{
		ledger:        l,
		chain:         chain,
		liquidator:    liquidator,
		solMint:       solMint,
		takeProfitROI: takeProfitROI,
		interval:      interval,
		logger:        logger.Named("profit_monitor"),
	}
}

// Run quotes every held position on a fixed period until the context is
// cancelled. Idle-sleeps while the ledger is empty.
func (m *ProfitMonitor) Run(ctx context.Context) error {
	m.logger.Info("💰 Profit monitor started",
		zap.Float64("take_profit_roi", m.takeProfitROI),
		zap.Duration("interval", m.interval))
	for {
		wait := m.interval
		if m.ledger.Empty() {
			wait = idleInterval * time.Second
		} else {
			m.checkOnce(ctx)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (m *ProfitMonitor) checkOnce(ctx context.Context) {
	for _, pos := range m.ledger.Positions() {
		if pos.Quantity == 0 || pos.CostBasis <= 0 {
			continue
		}

		out, ok := m.chain.Quote(ctx, pos.Mint, m.solMint, pos.Quantity)
		if !ok {
			continue
		}

		valueSOL := float64(out) / 1e9
		roi := valueSOL/pos.CostBasis - 1
		if roi < m.takeProfitROI {
			continue
		}

		m.logger.Warn("🚀 Take-profit triggered",
			zap.String("mint", pos.Mint),
			zap.Float64("roi", roi),
			zap.Float64("value_sol", valueSOL),
			zap.Float64("cost_sol", pos.CostBasis))
		m.liquidator.ForceSellAll(ctx, pos.Mint, fmt.Sprintf("take-profit at %.0f%% ROI", roi*100))
	}
}
