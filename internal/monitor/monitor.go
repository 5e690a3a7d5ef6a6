// internal/monitor/monitor.go
package monitor

import (
	"context"
)

// ChainReader reads balances and quotes from the execution service.
type ChainReader interface {
	// GetRawBalance returns the wallet's raw base-unit balance of mint.
	GetRawBalance(ctx context.Context, walletAddr, mint string) (uint64, error)

	// GetBalance returns the wallet's UI-unit balance of mint.
	GetBalance(ctx context.Context, walletAddr, mint string) (float64, error)

	// Quote estimates the raw output of swapping amount of inputMint
	// into outputMint; false when no route exists.
	Quote(ctx context.Context, inputMint, outputMint string, amount uint64) (uint64, bool)
}

// Liquidator force-sells a full position. Implemented by the
// copy-execution controller so that monitor-triggered exits share the
// controller's sell path.
type Liquidator interface {
	ForceSellAll(ctx context.Context, mint string, reason string) bool
}

// idleInterval is how long a monitor sleeps when the ledger is empty.
const idleInterval = 5 // seconds
