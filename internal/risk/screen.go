// internal/risk/screen.go
package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.dexscreener.com/latest/dex"
	solanaChain    = "solana"

	// honeypotProbeAmount is the nominal raw amount quoted in the sell
	// direction; a token with no sell route at all is a honeypot.
	honeypotProbeAmount = 1_000_000
)

// TokensResponse is the token lookup response.
type TokensResponse struct {
	SchemaVersion string     `json:"schemaVersion"`
	Pairs         []PairInfo `json:"pairs"`
}

// PairInfo describes one trading pair.
type PairInfo struct {
	ChainID     string        `json:"chainId"`
	DexID       string        `json:"dexId"`
	PairAddress string        `json:"pairAddress"`
	Liquidity   LiquidityInfo `json:"liquidity"`
	FDV         float64       `json:"fdv"`
}

// LiquidityInfo holds the pair's pooled value.
type LiquidityInfo struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// Quoter is the slice of the execution service the honeypot probe needs.
type Quoter interface {
	Quote(ctx context.Context, inputMint, outputMint string, amount uint64) (uint64, bool)
}

// Screen checks tokens against market data before the bot commits funds.
type Screen struct {
	client  *http.Client
	logger  *zap.Logger
	baseURL string
	solMint string
	quoter  Quoter
}

// NewScreen creates a risk screen backed by the market-data API and the
// given quoter.
func NewScreen(quoter Quoter, solMint string, logger *zap.Logger) *Screen {
	return &Screen{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:  logger.Named("risk"),
		baseURL: defaultBaseURL,
		solMint: solMint,
		quoter:  quoter,
	}
}

// CheckLiquidity looks the mint up and returns whether it is listed on a
// Solana venue at all, along with the liquidity and FDV of its deepest
// pool. Unlisted tokens are not tradable.
func (s *Screen) CheckLiquidity(ctx context.Context, mint string) (bool, float64, float64) {
	if mint == s.solMint {
		return true, 0, 0
	}

	url := fmt.Sprintf("%s/tokens/%s", s.baseURL, mint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, 0, 0
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("Liquidity lookup failed", zap.String("mint", mint), zap.Error(err))
		return false, 0, 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		s.logger.Warn("Liquidity lookup returned error status",
			zap.String("mint", mint),
			zap.Int("status", resp.StatusCode))
		return false, 0, 0
	}

	var data TokensResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		s.logger.Warn("Failed to decode liquidity response", zap.Error(err))
		return false, 0, 0
	}

	var best *PairInfo
	for i := range data.Pairs {
		pair := &data.Pairs[i]
		if pair.ChainID != solanaChain {
			continue
		}
		if best == nil || pair.Liquidity.USD > best.Liquidity.USD {
			best = pair
		}
	}
	if best == nil {
		s.logger.Info("🚫 Token not listed on any Solana venue", zap.String("mint", mint))
		return false, 0, 0
	}

	return true, best.Liquidity.USD, best.FDV
}

// CheckNotHoneypot probes the sell direction: if not even a nominal
// amount can be routed back to SOL, the token cannot be exited.
func (s *Screen) CheckNotHoneypot(ctx context.Context, mint string) bool {
	_, ok := s.quoter.Quote(ctx, mint, s.solMint, honeypotProbeAmount)
	if !ok {
		s.logger.Warn("🚫 No sell route, treating as honeypot", zap.String("mint", mint))
	}
	return ok
}
