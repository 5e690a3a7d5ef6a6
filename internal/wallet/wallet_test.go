// internal/wallet/wallet_test.go
package wallet

import (
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWallet(t *testing.T) {
	account := solana.NewWallet()

	w, err := NewWallet(account.PrivateKey.String())
	require.NoError(t, err)
	assert.Equal(t, account.PublicKey(), w.PublicKey)
	assert.Equal(t, account.PublicKey().String(), w.String())
}

func TestNewWallet_InvalidKey(t *testing.T) {
	_, err := NewWallet("not-base58-!!!")
	assert.Error(t, err)

	// Valid base58 but wrong length.
	_, err = NewWallet("3yZe7d")
	assert.Error(t, err)
}

func TestGetATA_Cached(t *testing.T) {
	account := solana.NewWallet()
	w, err := NewWallet(account.PrivateKey.String())
	require.NoError(t, err)

	mint := solana.NewWallet().PublicKey()
	ata1, err := w.GetATA(mint)
	require.NoError(t, err)

	expected, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	require.NoError(t, err)
	assert.Equal(t, expected, ata1)

	ata2, err := w.GetATA(mint)
	require.NoError(t, err)
	assert.Equal(t, ata1, ata2)
	assert.Len(t, w.ATACache, 1)
}

func TestGetATA_Concurrent(t *testing.T) {
	account := solana.NewWallet()
	w, err := NewWallet(account.PrivateKey.String())
	require.NoError(t, err)

	mints := []solana.PublicKey{
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
	}

	// Reclaims run on their own goroutines, so the cache sees
	// concurrent access.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := w.GetATA(mints[j%len(mints)])
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, w.ATACache, len(mints))
}

func TestSignTransaction(t *testing.T) {
	account := solana.NewWallet()
	w, err := NewWallet(account.PrivateKey.String())
	require.NoError(t, err)

	recent := solana.MustHashFromBase58("4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM")
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			solana.NewInstruction(solana.SystemProgramID, solana.AccountMetaSlice{
				solana.NewAccountMeta(w.PublicKey, true, true),
			}, []byte{0}),
		},
		recent,
		solana.TransactionPayer(w.PublicKey),
	)
	require.NoError(t, err)

	require.NoError(t, w.SignTransaction(tx))
	require.Len(t, tx.Signatures, 1)
	assert.NoError(t, tx.VerifySignatures())
}
