// internal/rpcpool/pool.go
package rpcpool

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const healthCheckInterval = 5 * time.Minute

// Pool rotates requests across the configured RPC endpoints. Endpoints
// that fail a health check are benched until they recover; the pool
// never benches its last healthy endpoint.
type Pool struct {
	mu      sync.Mutex
	entries []*entry
	index   int
	logger  *zap.Logger
}

type entry struct {
	url     string
	client  *rpc.Client
	healthy bool
}

// New creates a pool over the given endpoint URLs. The list must not be
// empty; the config layer validates that.
func New(rpcList []string, logger *zap.Logger) *Pool {
	entries := make([]*entry, 0, len(rpcList))
	for _, url := range rpcList {
		entries = append(entries, &entry{
			url:     url,
			client:  rpc.New(url),
			healthy: true,
		})
	}
	return &Pool{
		entries: entries,
		logger:  logger.Named("rpcpool"),
	}
}

// Get returns the next healthy client, round robin. If every endpoint is
// benched it falls back to plain rotation rather than returning nil.
func (p *Pool) Get() *rpc.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	for range p.entries {
		e := p.entries[p.index]
		p.index = (p.index + 1) % len(p.entries)
		if e.healthy {
			return e.client
		}
	}
	return p.entries[p.index].client
}

// Run re-checks endpoint health on a fixed period until the context is
// cancelled.
func (p *Pool) Run(ctx context.Context) error {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.checkHealth(ctx)
		}
	}
}

func (p *Pool) checkHealth(ctx context.Context) {
	p.mu.Lock()
	entries := make([]*entry, len(p.entries))
	copy(entries, p.entries)
	p.mu.Unlock()

	healthyCount := 0
	results := make([]bool, len(entries))
	for i, e := range entries {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := e.client.GetHealth(checkCtx)
		cancel()
		results[i] = err == nil
		if results[i] {
			healthyCount++
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for i, e := range entries {
		if results[i] == e.healthy {
			continue
		}
		if !results[i] && healthyCount == 0 {
			// Everything is failing; benching the whole pool helps nobody.
			continue
		}
		e.healthy = results[i]
		if e.healthy {
			p.logger.Info("✅ RPC endpoint recovered", zap.String("url", e.url))
		} else {
			p.logger.Warn("⚠️ RPC endpoint benched", zap.String("url", e.url))
		}
	}
}

// Size returns the number of configured endpoints.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
