// internal/trader/jupiter.go
package trader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

const (
	defaultQuoteURL = "https://quote-api.jup.ag/v6/quote"
	defaultSwapURL  = "https://quote-api.jup.ag/v6/swap"
)

// quoteSummary is the slice of the aggregator's quote response we act on.
// The full response body is kept raw because the swap endpoint wants it
// echoed back verbatim.
type quoteSummary struct {
	OutAmount string `json:"outAmount"`
	Error     string `json:"error"`
}

type swapRequest struct {
	QuoteResponse           json.RawMessage `json:"quoteResponse"`
	UserPublicKey           string          `json:"userPublicKey"`
	WrapAndUnwrapSol        bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit bool            `json:"dynamicComputeUnitLimit"`
	PriorityFee             string          `json:"computeUnitPriceMicroLamports"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
	Error           string `json:"error"`
}

// fetchQuote asks the aggregator for a route and returns the raw response
// body plus the estimated output amount in raw units.
func (t *Trader) fetchQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBPS int) (json.RawMessage, uint64, error) {
	url := fmt.Sprintf("%s?inputMint=%s&outputMint=%s&amount=%d&slippageBps=%d&swapMode=ExactIn",
		t.quoteURL, inputMint, outputMint, amount, slippageBPS)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create quote request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("quote returned status %d", resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("failed to decode quote: %w", err)
	}

	var summary quoteSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, 0, fmt.Errorf("failed to parse quote: %w", err)
	}
	if summary.Error != "" {
		return nil, 0, fmt.Errorf("quote error: %s", summary.Error)
	}

	out, err := strconv.ParseUint(summary.OutAmount, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid outAmount %q: %w", summary.OutAmount, err)
	}
	return raw, out, nil
}

// fetchSwapTransaction exchanges a quote for a base64-encoded, unsigned
// swap transaction.
func (t *Trader) fetchSwapTransaction(ctx context.Context, quote json.RawMessage) (string, error) {
	body, err := json.Marshal(swapRequest{
		QuoteResponse:           quote,
		UserPublicKey:           t.wallet.PublicKey.String(),
		WrapAndUnwrapSol:        true,
		DynamicComputeUnitLimit: true,
		PriorityFee:             "auto",
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.swapURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("swap request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("swap returned status %d", resp.StatusCode)
	}

	var swap swapResponse
	if err := json.NewDecoder(resp.Body).Decode(&swap); err != nil {
		return "", fmt.Errorf("failed to decode swap response: %w", err)
	}
	if swap.SwapTransaction == "" {
		return "", fmt.Errorf("swap response missing transaction: %s", swap.Error)
	}
	return swap.SwapTransaction, nil
}
