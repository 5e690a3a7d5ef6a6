// internal/trader/trader.go
package trader

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/mirrortrade/copybot/internal/rpcpool"
	"github.com/mirrortrade/copybot/internal/wallet"
)

// SOLMint is the wrapped-SOL mint address, used as the native currency
// side of every swap.
const SOLMint = "So11111111111111111111111111111111111111112"

// Trader executes swaps through the Jupiter aggregator and reads
// balances through Solana RPC. Swap failures are reported as a boolean
// result; the caller decides whether to book anything.
type Trader struct {
	pool       *rpcpool.Pool
	wallet     *wallet.Wallet
	httpClient *http.Client
	logger     *zap.Logger
	quoteURL   string
	swapURL    string
}

// New creates a trader bound to the given RPC pool and signing wallet.
func New(pool *rpcpool.Pool, w *wallet.Wallet, logger *zap.Logger) *Trader {
	return &Trader{
		pool:   pool,
		wallet: w,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		logger:   logger.Named("trader"),
		quoteURL: defaultQuoteURL,
		swapURL:  defaultSwapURL,
	}
}

// Quote returns the estimated raw output amount for swapping amount of
// inputMint into outputMint. The second return is false when no route
// exists or the aggregator is unreachable.
func (t *Trader) Quote(ctx context.Context, inputMint, outputMint string, amount uint64) (uint64, bool) {
	_, out, err := t.fetchQuote(ctx, inputMint, outputMint, amount, 50)
	if err != nil {
		t.logger.Debug("Quote failed",
			zap.String("input", inputMint),
			zap.String("output", outputMint),
			zap.Error(err))
		return 0, false
	}
	return out, true
}

// ExecuteSwap quotes, builds, signs and broadcasts a swap. Returns
// (false, 0) on any failure; on success the second value is the quoted
// output amount in raw units.
func (t *Trader) ExecuteSwap(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBPS int) (bool, uint64) {
	quote, estOut, err := t.fetchQuote(ctx, inputMint, outputMint, amount, slippageBPS)
	if err != nil {
		t.logger.Error("Swap aborted: no quote", zap.Error(err))
		return false, 0
	}

	txBase64, err := t.fetchSwapTransaction(ctx, quote)
	if err != nil {
		t.logger.Error("Swap aborted: no transaction", zap.Error(err))
		return false, 0
	}

	txBytes, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		t.logger.Error("Swap aborted: bad transaction encoding", zap.Error(err))
		return false, 0
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(txBytes))
	if err != nil {
		t.logger.Error("Swap aborted: failed to deserialize transaction", zap.Error(err))
		return false, 0
	}

	if err := t.wallet.SignTransaction(tx); err != nil {
		t.logger.Error("Swap aborted: failed to sign", zap.Error(err))
		return false, 0
	}

	sig, err := t.sendWithRetry(ctx, tx)
	if err != nil {
		t.logger.Error("Swap broadcast failed", zap.Error(err))
		return false, 0
	}

	t.logger.Info("📡 Swap submitted",
		zap.String("signature", sig.String()),
		zap.String("input", inputMint),
		zap.String("output", outputMint),
		zap.Uint64("amount_in", amount),
		zap.Uint64("est_out", estOut))
	return true, estOut
}

// sendWithRetry broadcasts the transaction with bounded exponential
// backoff. Signature and deserialization problems never reach here, so
// every error from the RPC node is worth another attempt.
func (t *Trader) sendWithRetry(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	maxRetries := uint(3)
	op := func() (solana.Signature, error) {
		return t.pool.Get().SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight: true,
			MaxRetries:    &maxRetries,
		})
	}
	return backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(15*time.Second),
	)
}

// GetBalance returns the UI-unit balance of mint for the wallet address.
// The SOL mint reads the native lamport balance.
func (t *Trader) GetBalance(ctx context.Context, walletAddr, mint string) (float64, error) {
	owner, err := solana.PublicKeyFromBase58(walletAddr)
	if err != nil {
		return 0, fmt.Errorf("invalid wallet address: %w", err)
	}

	if mint == SOLMint {
		result, err := t.pool.Get().GetBalance(ctx, owner, rpc.CommitmentConfirmed)
		if err != nil {
			return 0, fmt.Errorf("failed to get SOL balance: %w", err)
		}
		return float64(result.Value) / 1e9, nil
	}

	balance, err := t.tokenAccountBalance(ctx, owner, mint)
	if err != nil {
		return 0, err
	}
	if balance == nil || balance.UiAmount == nil {
		return 0, nil
	}
	return *balance.UiAmount, nil
}

// GetRawBalance returns the raw base-unit balance of mint for the wallet
// address. A wallet with no token account holds zero.
func (t *Trader) GetRawBalance(ctx context.Context, walletAddr, mint string) (uint64, error) {
	if mint == SOLMint {
		return 0, fmt.Errorf("raw balance is undefined for the native mint")
	}

	owner, err := solana.PublicKeyFromBase58(walletAddr)
	if err != nil {
		return 0, fmt.Errorf("invalid wallet address: %w", err)
	}

	balance, err := t.tokenAccountBalance(ctx, owner, mint)
	if err != nil {
		return 0, err
	}
	if balance == nil {
		return 0, nil
	}
	raw, err := strconv.ParseUint(balance.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid raw amount %q: %w", balance.Amount, err)
	}
	return raw, nil
}

// tokenAccountBalance finds the owner's token account for mint and reads
// its balance. Returns nil when the account does not exist.
func (t *Trader) tokenAccountBalance(ctx context.Context, owner solana.PublicKey, mint string) (*rpc.UiTokenAmount, error) {
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("invalid mint: %w", err)
	}

	client := t.pool.Get()
	accounts, err := client.GetTokenAccountsByOwner(
		ctx,
		owner,
		&rpc.GetTokenAccountsConfig{Mint: &mintKey},
		&rpc.GetTokenAccountsOpts{Commitment: rpc.CommitmentConfirmed},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list token accounts: %w", err)
	}
	if len(accounts.Value) == 0 {
		return nil, nil
	}

	result, err := client.GetTokenAccountBalance(ctx, accounts.Value[0].Pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to get token account balance: %w", err)
	}
	return result.Value, nil
}

// CloseTokenAccount closes the bot's now-empty token account for mint,
// reclaiming its rent. Best effort: failures are logged, never retried.
func (t *Trader) CloseTokenAccount(ctx context.Context, mint string) bool {
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		t.logger.Warn("Reclaim skipped: invalid mint", zap.String("mint", mint), zap.Error(err))
		return false
	}

	// The bot's token accounts are always ATAs (Jupiter creates them as
	// such), so derive the address instead of listing accounts.
	ata, err := t.wallet.GetATA(mintKey)
	if err != nil {
		t.logger.Warn("Reclaim skipped: could not derive token account", zap.String("mint", mint), zap.Error(err))
		return false
	}

	client := t.pool.Get()
	if _, err := client.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed); err != nil {
		t.logger.Info("Reclaim skipped: no token account", zap.String("mint", mint))
		return false
	}

	closeIx := token.NewCloseAccountInstruction(
		ata,
		t.wallet.PublicKey,
		t.wallet.PublicKey,
		nil,
	).Build()

	blockhash, err := client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		t.logger.Warn("Reclaim failed: no blockhash", zap.Error(err))
		return false
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{closeIx},
		blockhash.Value.Blockhash,
		solana.TransactionPayer(t.wallet.PublicKey),
	)
	if err != nil {
		t.logger.Warn("Reclaim failed: could not build transaction", zap.Error(err))
		return false
	}

	if err := t.wallet.SignTransaction(tx); err != nil {
		t.logger.Warn("Reclaim failed: could not sign", zap.Error(err))
		return false
	}

	if _, err := client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{SkipPreflight: true}); err != nil {
		t.logger.Warn("Reclaim failed: broadcast error", zap.String("mint", mint), zap.Error(err))
		return false
	}

	t.logger.Info("♻️ Reclaimed empty token account", zap.String("mint", mint))
	return true
}
