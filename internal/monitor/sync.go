// internal/monitor/sync.go
package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mirrortrade/copybot/internal/ledger"
)

// SyncMonitor reconciles the bot's holdings against the target wallet's
// actual on-chain state. If the target no longer holds a mint, or holds
// an amount worth less than the dust-value threshold, the bot missed the
// exit (most likely during a reconnect window) and must force-liquidate.
type SyncMonitor struct {
	ledger       *ledger.Ledger
	chain        ChainReader
	liquidator   Liquidator
	target       string
	solMint      string
	dustValueSOL float64
	interval     time.Duration
	logger       *zap.Logger
}

// NewSyncMonitor creates the anti-disconnect reconciliation loop.
func NewSyncMonitor(
	l *ledger.Ledger,
	chain ChainReader,
	liquidator Liquidator,
	target, solMint string,
	dustValueSOL float64,
	interval time.Duration,
	logger *zap.Logger,
) *SyncMonitor {
	return &SyncMonitor{
		ledger:       l,
		chain:        chain,
		liquidator:   liquidator,
		target:       target,
		solMint:      solMint,
		dustValueSOL: dustValueSOL,
		interval:     interval,
		logger:       logger.Named("sync_monitor"),
	}
}

// Run checks every held mint on a fixed period until the context is
// cancelled. Idle-sleeps while the ledger is empty.
func (m *SyncMonitor) Run(ctx context.Context) error {
	m.logger.Info("🛡️ Position reconciliation started", zap.Duration("interval", m.interval))
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

func (m *SyncMonitor) checkOnce(ctx context.Context) {
	for _, pos := range m.ledger.Positions() {
		if pos.Quantity == 0 {
			continue
		}

		raw, err := m.chain.GetRawBalance(ctx, m.target, pos.Mint)
		if err != nil {
			m.logger.Warn("Reconciliation lookup failed",
				zap.String("mint", pos.Mint),
				zap.Error(err))
			continue
		}

		reason := ""
		if raw == 0 {
			reason = "target balance is zero"
		} else if out, ok := m.chain.Quote(ctx, pos.Mint, m.solMint, raw); ok {
			valueSOL := float64(out) / 1e9
			if valueSOL < m.dustValueSOL {
				reason = fmt.Sprintf("target balance worth only %.4f SOL", valueSOL)
			}
		}
		if reason == "" {
			continue
		}

		m.logger.Warn("😱 Target has exited, forcing liquidation",
			zap.String("mint", pos.Mint),
			zap.String("reason", reason))
		m.liquidator.ForceSellAll(ctx, pos.Mint, reason)
	}
}
