// internal/bot/controller.go
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/mirrortrade/copybot/internal/config"
	"github.com/mirrortrade/copybot/internal/ledger"
	"github.com/mirrortrade/copybot/internal/logger"
	"github.com/mirrortrade/copybot/internal/notify"
	"github.com/mirrortrade/copybot/internal/parser"
	"github.com/mirrortrade/copybot/internal/provider"
	"github.com/mirrortrade/copybot/internal/trader"
)

// ExecutionService is the external swap/balance collaborator.
type ExecutionService interface {
	Quote(ctx context.Context, inputMint, outputMint string, amount uint64) (uint64, bool)
	ExecuteSwap(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBPS int) (bool, uint64)
	GetBalance(ctx context.Context, walletAddr, mint string) (float64, error)
	GetRawBalance(ctx context.Context, walletAddr, mint string) (uint64, error)
	CloseTokenAccount(ctx context.Context, mint string) bool
}

// RiskScreen gates buys against market data.
type RiskScreen interface {
	CheckLiquidity(ctx context.Context, mint string) (tradable bool, liquidityUSD, fdvUSD float64)
	CheckNotHoneypot(ctx context.Context, mint string) bool
}

// DetailFetcher looks up a parsed transaction by signature.
type DetailFetcher interface {
	GetTransaction(ctx context.Context, signature string) (*provider.EnhancedTransaction, error)
}

// Controller turns parsed trade events into the bot's own buys and
// sells. It is the only writer of the ledger besides the monitors'
// force-liquidation path, which also runs through it.
type Controller struct {
	cfg       *config.Config
	ledger    *ledger.Ledger
	exec      ExecutionService
	risk      RiskScreen
	details   DetailFetcher
	notifier  notify.Notifier
	target    string
	botWallet string
	log       *logger.Logger // base for per-signature task loggers
	logger    *zap.Logger
}

// NewController wires the copy-execution controller.
func NewController(
	cfg *config.Config,
	l *ledger.Ledger,
	exec ExecutionService,
	riskScreen RiskScreen,
	details DetailFetcher,
	notifier notify.Notifier,
	botWallet string,
	log *logger.Logger,
) *Controller {
	return &Controller{
		cfg:       cfg,
		ledger:    l,
		exec:      exec,
		risk:      riskScreen,
		details:   details,
		notifier:  notifier,
		target:    cfg.TargetWallet,
		botWallet: botWallet,
		log:       log,
		logger:    log.WithComponent("controller"),
	}
}

// HandleSignature is the feed's fire-and-forget entry point: fetch the
// transaction detail (with backoff, providers lag a little behind the
// stream), parse it and mirror the target's action. Each invocation logs
// under its own correlation id so overlapping deliveries of the same
// signature stay distinguishable; the ledger serializes all mutations.
func (c *Controller) HandleSignature(ctx context.Context, signature string) {
	taskLog := c.log.WithSignature(signature).WithOperation("copy_trade")

	tx, err := c.fetchDetail(ctx, signature)
	if err != nil {
		// This signature is abandoned; the reconciliation monitor
		// catches any exit we miss because of it.
		taskLog.Warn("Giving up on signature", zap.Error(err))
		return
	}
	if tx.Failed() {
		return
	}

	event := parser.Parse(tx, c.target)
	switch event.Action {
	case parser.ActionBuy:
		c.handleBuy(ctx, event, taskLog)
	case parser.ActionSell:
		c.handleSell(ctx, event, taskLog)
	default:
		// UNKNOWN: ambiguous or irrelevant, discard.
	}
}

// fetchDetail retries the detail lookup with exponential backoff
// (1s, 2s, 4s, …) over a bounded attempt count.
func (c *Controller) fetchDetail(ctx context.Context, signature string) (*provider.EnhancedTransaction, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = time.Second
	expo.Multiplier = 2
	expo.RandomizationFactor = 0

	attempts := uint(c.cfg.Retries)
	if attempts == 0 {
		attempts = 1
	}

	return backoff.Retry(
		ctx,
		func() (*provider.EnhancedTransaction, error) {
			return c.details.GetTransaction(ctx, signature)
		},
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(attempts),
	)
}

// handleBuy applies the BUY gates in order: buy-count cap first (free
// and local, so a capped mint never causes an external call), then the
// risk screen, then the capital-preservation margin — and mirrors the
// buy with the fixed copy amount.
func (c *Controller) handleBuy(ctx context.Context, event parser.TradeEvent, log *zap.Logger) {
	mint := event.Mint

	buyCount := c.ledger.GetBuyCount(mint)
	if buyCount >= c.cfg.MaxBuysPerToken {
		log.Warn("🛑 Buy cap reached, not adding to position",
			zap.String("mint", mint),
			zap.Int("buy_count", buyCount))
		return
	}

	tradable, liquidity, fdv := c.risk.CheckLiquidity(ctx, mint)
	if !tradable {
		return
	}
	if liquidity < c.cfg.MinLiquidityUSD {
		log.Info("🚫 Liquidity below minimum",
			zap.String("mint", mint),
			zap.Float64("liquidity_usd", liquidity))
		return
	}
	if fdv < c.cfg.MinFDVUSD || (c.cfg.MaxFDVUSD > 0 && fdv > c.cfg.MaxFDVUSD) {
		log.Info("🚫 FDV out of bounds",
			zap.String("mint", mint),
			zap.Float64("fdv_usd", fdv))
		return
	}
	if !c.risk.CheckNotHoneypot(ctx, mint) {
		log.Warn("🚫 Honeypot blocked", zap.String("mint", mint))
		return
	}

	// Only buy while the wallet keeps a 2x margin over the copy amount,
	// so there is always SOL left for exits and fees.
	balance, err := c.exec.GetBalance(ctx, c.botWallet, trader.SOLMint)
	if err != nil {
		log.Error("Failed to read own balance, skipping buy", zap.Error(err))
		return
	}
	safeMargin := c.cfg.CopyAmountSOL * 2
	if balance < safeMargin {
		log.Warn("💸 Balance below safety margin, skipping buy",
			zap.Float64("balance_sol", balance),
			zap.Float64("margin_sol", safeMargin))
		return
	}

	log.Info("🔍 Buy gates passed",
		zap.String("mint", mint),
		zap.Float64("liquidity_usd", liquidity),
		zap.Float64("balance_sol", balance),
		zap.Int("buy_number", buyCount+1))

	amountIn := uint64(c.cfg.CopyAmountSOL * 1e9)
	ok, filled := c.exec.ExecuteSwap(ctx, trader.SOLMint, mint, amountIn, c.cfg.SlippageBuyBPS)
	if !ok {
		return
	}
	c.ledger.AddPosition(mint, filled, c.cfg.CopyAmountSOL)
}

// handleSell mirrors the target's exit proportionally: the bot sells the
// same fraction of its holdings as the target sold of theirs.
func (c *Controller) handleSell(ctx context.Context, event parser.TradeEvent, log *zap.Logger) {
	mint := event.Mint

	pos, ok := c.ledger.Position(mint)
	if !ok || pos.Quantity == 0 {
		return
	}

	remaining, err := c.exec.GetBalance(ctx, c.target, mint)
	if err != nil {
		// Treat an unreadable balance as a full exit; the alternative
		// is holding a position the target may have abandoned.
		log.Warn("Failed to read target's remaining balance, assuming full exit",
			zap.String("mint", mint),
			zap.Error(err))
		remaining = 0
	}

	ratio := SellRatio(event.Amount, remaining)
	sellAmount := pos.Quantity
	if ratio < 1 {
		sellAmount = uint64(float64(pos.Quantity) * ratio)
	}
	if sellAmount < c.cfg.DustFloorRaw {
		log.Info("Proportional sell below dust floor, skipping",
			zap.String("mint", mint),
			zap.Uint64("amount", sellAmount))
		return
	}

	log.Info("📉 Mirroring sell",
		zap.String("mint", mint),
		zap.Uint64("amount", sellAmount),
		zap.Float64("ratio", ratio))

	ok, proceeds := c.exec.ExecuteSwap(ctx, mint, trader.SOLMint, sellAmount, c.cfg.SlippageSellBPS)
	if !ok {
		return
	}

	proceedsSOL := float64(proceeds) / 1e9
	c.ledger.ApplySell(mint, sellAmount, proceedsSOL, ledger.ActionSell)

	go c.notifier.Notify(
		fmt.Sprintf("📉 Mirrored sell: %s…", shortMint(mint)),
		fmt.Sprintf("Target sold, bot followed.\n\nToken: %s\nAmount: %d\nRatio: %.1f%%\nProceeds: %.4f SOL",
			mint, sellAmount, ratio*100, proceedsSOL),
		"",
	)
}

// ForceSellAll liquidates the bot's full position for mint. Used by the
// safety monitors; shares the controller's sell path and records the
// trade as a forced sell.
func (c *Controller) ForceSellAll(ctx context.Context, mint string, reason string) bool {
	pos, ok := c.ledger.Position(mint)
	if !ok || pos.Quantity == 0 {
		return false
	}

	ok, proceeds := c.exec.ExecuteSwap(ctx, mint, trader.SOLMint, pos.Quantity, c.cfg.SlippageSellBPS)
	if !ok {
		c.logger.Error("Force liquidation failed",
			zap.String("mint", mint),
			zap.String("reason", reason))
		return false
	}

	proceedsSOL := float64(proceeds) / 1e9
	c.ledger.ApplySell(mint, pos.Quantity, proceedsSOL, ledger.ActionSellForce)

	c.logger.Warn("🛡️ Position force-liquidated",
		zap.String("mint", mint),
		zap.String("reason", reason),
		zap.Uint64("amount", pos.Quantity),
		zap.Float64("proceeds_sol", proceedsSOL))

	go c.notifier.Notify(
		fmt.Sprintf("🛡️ Forced exit: %s…", shortMint(mint)),
		fmt.Sprintf("Position force-liquidated.\n\nToken: %s\nReason: %s\nAmount: %d\nProceeds: %.4f SOL",
			mint, reason, pos.Quantity, proceedsSOL),
		"",
	)
	return true
}

// SellRatio computes the fraction of holdings to sell given how much
// the target sold and how much they still hold, clamped to [0, 1].
// Residual dust makes near-total exits numerically unstable, so any raw
// ratio above 0.99 is treated as a full exit.
func SellRatio(sold, remaining float64) float64 {
	total := sold + remaining
	if total <= 0 {
		return 1.0
	}
	ratio := sold / total
	if ratio > 0.99 {
		return 1.0
	}
	if ratio < 0 {
		return 0
	}
	return ratio
}

func shortMint(mint string) string {
	if len(mint) <= 6 {
		return mint
	}
	return mint[:6]
}
