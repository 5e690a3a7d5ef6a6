// internal/bot/runner.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mirrortrade/copybot/internal/config"
	"github.com/mirrortrade/copybot/internal/feed"
	"github.com/mirrortrade/copybot/internal/ledger"
	"github.com/mirrortrade/copybot/internal/logger"
	"github.com/mirrortrade/copybot/internal/monitor"
	"github.com/mirrortrade/copybot/internal/notify"
	"github.com/mirrortrade/copybot/internal/provider"
	"github.com/mirrortrade/copybot/internal/risk"
	"github.com/mirrortrade/copybot/internal/rpcpool"
	"github.com/mirrortrade/copybot/internal/trader"
	"github.com/mirrortrade/copybot/internal/wallet"
)

// Runner assembles the full bot and supervises its long-running loops.
type Runner struct {
	logger     *zap.Logger
	config     *config.Config
	pool       *rpcpool.Pool
	wallet     *wallet.Wallet
	ledger     *ledger.Ledger
	trader     *trader.Trader
	controller *Controller
	listener   *feed.Listener
	poller     *feed.Poller
	syncMon    *monitor.SyncMonitor
	profitMon  *monitor.ProfitMonitor
	reporter   *monitor.Reporter
	shutdownCh chan os.Signal
}

// NewRunner builds every component from the config and wires them
// together. No network traffic happens here; connections are opened by
// Run.
func NewRunner(cfg *config.Config, log *logger.Logger) (*Runner, error) {
	zl := log.Logger

	w, err := wallet.NewWallet(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	zl.Info("🔑 Wallet loaded", zap.String("address", w.String()))

	store, err := ledger.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open data directory: %w", err)
	}

	led := ledger.New(store, cfg.DustFloorRaw, zl)
	if err := led.Load(); err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	pool := rpcpool.New(cfg.RPCList, zl)
	tr := trader.New(pool, w, zl)

	// Closing an emptied token account too early races the sell's
	// confirmation, so give the cluster a moment first.
	led.SetReclaimFunc(func(mint string) {
		time.Sleep(2 * time.Second)
		tr.CloseTokenAccount(context.Background(), mint)
	})

	var notifier notify.Notifier = notify.NopNotifier{}
	emailCfg := notify.EmailConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		To:       cfg.MailTo,
	}
	if emailCfg.Enabled() {
		notifier = notify.NewEmailNotifier(emailCfg, zl)
		zl.Info("📧 Email notifications enabled", zap.String("to", cfg.MailTo))
	}

	screen := risk.NewScreen(tr, trader.SOLMint, zl)
	details := provider.NewClient(cfg.EnhancedAPI, zl)

	controller := NewController(cfg, led, tr, screen, details, notifier, w.String(), log)

	seen := feed.NewSeenCache(0)
	listener := feed.NewListener(cfg.WebSocketURL, cfg.TargetWallet, seen, controller.HandleSignature, zl)

	target, err := solana.PublicKeyFromBase58(cfg.TargetWallet)
	if err != nil {
		return nil, fmt.Errorf("invalid target wallet address: %w", err)
	}
	poller := feed.NewPoller(pool, target, listener, time.Duration(cfg.PollInterval)*time.Second, zl)

	syncMon := monitor.NewSyncMonitor(
		led, tr, controller,
		cfg.TargetWallet, trader.SOLMint,
		cfg.DustValueSOL,
		time.Duration(cfg.SyncInterval)*time.Second,
		zl,
	)
	profitMon := monitor.NewProfitMonitor(
		led, tr, controller,
		trader.SOLMint,
		cfg.TakeProfitROI,
		time.Duration(cfg.ProfitInterval)*time.Second,
		zl,
	)
	reporter := monitor.NewReporter(led, tr, notifier, w.String(), trader.SOLMint, cfg.ReportHour, zl)

	return &Runner{
		logger:     zl,
		config:     cfg,
		pool:       pool,
		wallet:     w,
		ledger:     led,
		trader:     tr,
		controller: controller,
		listener:   listener,
		poller:     poller,
		syncMon:    syncMon,
		profitMon:  profitMon,
		reporter:   reporter,
		shutdownCh: make(chan os.Signal, 1),
	}, nil
}

// Run starts the feed, the monitors and the report scheduler and blocks
// until a signal arrives or any loop fails.
func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		sig := <-r.shutdownCh
		r.logger.Info("📡 Signal received: " + sig.String())
		cancel()
	}()

	r.logger.Info("🚀 Copy trading started",
		zap.String("target", r.config.TargetWallet),
		zap.Float64("copy_amount_sol", r.config.CopyAmountSOL))

	g, gCtx := errgroup.WithContext(runCtx)
	g.Go(func() error { return r.pool.Run(gCtx) })
	g.Go(func() error { return r.listener.Run(gCtx) })
	g.Go(func() error { return r.poller.Run(gCtx) })
	g.Go(func() error { return r.syncMon.Run(gCtx) })
	g.Go(func() error { return r.profitMon.Run(gCtx) })
	g.Go(func() error { return r.reporter.Run(gCtx) })

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	r.logger.Info("👋 Bot shutting down gracefully")
	return nil
}
