// internal/provider/client.go
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// TokenTransfer is one fungible-token movement inside a transaction.
type TokenTransfer struct {
	FromUserAccount string  `json:"fromUserAccount"`
	ToUserAccount   string  `json:"toUserAccount"`
	Mint            string  `json:"mint"`
	TokenAmount     float64 `json:"tokenAmount"`
}

// NativeTransfer is one SOL movement inside a transaction, in lamports.
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"`
}

// EnhancedTransaction is the parsed transaction record returned by the
// data provider's enhanced-transactions endpoint.
type EnhancedTransaction struct {
	Signature        string           `json:"signature"`
	Timestamp        int64            `json:"timestamp"`
	TransactionError json.RawMessage  `json:"transactionError"`
	TokenTransfers   []TokenTransfer  `json:"tokenTransfers"`
	NativeTransfers  []NativeTransfer `json:"nativeTransfers"`
}

// Failed reports whether the transaction errored on chain.
func (tx *EnhancedTransaction) Failed() bool {
	return len(tx.TransactionError) > 0 && string(tx.TransactionError) != "null"
}

// Client fetches transaction details from the enhanced-transactions API.
type Client struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewClient creates a detail-lookup client for the given endpoint.
func NewClient(endpoint string, logger *zap.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger.Named("provider"),
	}
}

type detailRequest struct {
	Transactions []string `json:"transactions"`
}

// GetTransaction fetches the parsed record for one signature.
// A signature the provider has not indexed yet yields an error so that
// callers can retry with backoff.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*EnhancedTransaction, error) {
	body, err := json.Marshal(detailRequest{Transactions: []string{signature}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode detail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detail request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a little of the body for context; rate limits come back as 429.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("detail request returned status %d: %s", resp.StatusCode, string(snippet))
	}

	var txs []EnhancedTransaction
	if err := json.NewDecoder(resp.Body).Decode(&txs); err != nil {
		return nil, fmt.Errorf("failed to decode detail response: %w", err)
	}
	if len(txs) == 0 {
		return nil, fmt.Errorf("no detail for signature %s", signature)
	}

	return &txs[0], nil
}
