// internal/feed/poller.go
package feed

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/mirrortrade/copybot/internal/rpcpool"
)

const pollSignatureLimit = 25

// Poller is the fallback path of the event feed: it periodically lists
// the target's recent transaction signatures over RPC to catch anything
// the websocket missed during a reconnect window. Signatures flow
// through the listener's Dispatch, so duplicates are dropped by the
// shared seen-cache.
type Poller struct {
	pool     *rpcpool.Pool
	target   solana.PublicKey
	listener *Listener
	interval time.Duration
	logger   *zap.Logger
}

// NewPoller creates a polling fallback for the target address.
func NewPoller(pool *rpcpool.Pool, target solana.PublicKey, listener *Listener, interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		pool:     pool,
		target:   target,
		listener: listener,
		interval: interval,
		logger:   logger.Named("poller"),
	}
}

// Run polls until the context is cancelled. Lookup errors are logged and
// the next tick tries again.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	limit := pollSignatureLimit
	sigs, err := p.pool.Get().GetSignaturesForAddressWithOpts(ctx, p.target, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		p.logger.Warn("Signature poll failed", zap.Error(err))
		return
	}

	for _, sig := range sigs {
		if sig.Err != nil {
			continue
		}
		p.listener.Dispatch(ctx, sig.Signature.String())
	}
}
