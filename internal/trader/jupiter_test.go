// internal/trader/jupiter_test.go
package trader

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mirrortrade/copybot/internal/wallet"
)

func newTestTrader(t *testing.T, quoteURL, swapURL string) *Trader {
	t.Helper()
	account := solana.NewWallet()
	w, err := wallet.NewWallet(account.PrivateKey.String())
	require.NoError(t, err)

	tr := New(nil, w, zaptest.NewLogger(t))
	if quoteURL != "" {
		tr.quoteURL = quoteURL
	}
	if swapURL != "" {
		tr.swapURL = swapURL
	}
	return tr
}

func TestQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "MintA", q.Get("inputMint"))
		assert.Equal(t, SOLMint, q.Get("outputMint"))
		assert.Equal(t, "1000000", q.Get("amount"))
		assert.Equal(t, "ExactIn", q.Get("swapMode"))

		w.Write([]byte(`{"inputMint": "MintA", "outAmount": "987654", "routePlan": []}`))
	}))
	defer server.Close()

	tr := newTestTrader(t, server.URL, "")
	out, ok := tr.Quote(context.Background(), "MintA", SOLMint, 1_000_000)
	assert.True(t, ok)
	assert.Equal(t, uint64(987654), out)
}

func TestQuote_NoRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "Could not find any route"}`))
	}))
	defer server.Close()

	tr := newTestTrader(t, server.URL, "")
	_, ok := tr.Quote(context.Background(), "MintA", SOLMint, 1_000_000)
	assert.False(t, ok)
}

func TestQuote_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	tr := newTestTrader(t, server.URL, "")
	_, ok := tr.Quote(context.Background(), "MintA", SOLMint, 1_000_000)
	assert.False(t, ok)
}

func TestFetchSwapTransaction_EchoesQuoteVerbatim(t *testing.T) {
	quote := json.RawMessage(`{"inputMint":"MintA","outAmount":"987654","routePlan":[{"swapInfo":{}}]}`)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req swapRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		assert.JSONEq(t, string(quote), string(req.QuoteResponse))
		assert.True(t, req.WrapAndUnwrapSol)
		assert.True(t, req.DynamicComputeUnitLimit)
		assert.Equal(t, "auto", req.PriorityFee)
		assert.NotEmpty(t, req.UserPublicKey)

		w.Write([]byte(`{"swapTransaction": "AQID"}`))
	}))
	defer server.Close()

	tr := newTestTrader(t, "", server.URL)
	txBase64, err := tr.fetchSwapTransaction(context.Background(), quote)
	require.NoError(t, err)
	assert.Equal(t, "AQID", txBase64)
}

func TestFetchSwapTransaction_MissingTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "simulation failed"}`))
	}))
	defer server.Close()

	tr := newTestTrader(t, "", server.URL)
	_, err := tr.fetchSwapTransaction(context.Background(), json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "simulation failed")
}
