// cmd/bot/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mirrortrade/copybot/internal/bot"
	"github.com/mirrortrade/copybot/internal/config"
	"github.com/mirrortrade/copybot/internal/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		// No logger yet.
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting copy trading bot")

	runner, err := bot.NewRunner(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize bot", zap.Error(err))
	}

	if err := runner.Run(ctx); err != nil {
		log.Fatal("Bot execution error", zap.Error(err))
	}
}
