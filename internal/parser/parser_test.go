// internal/parser/parser_test.go
package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mirrortrade/copybot/internal/provider"
)

const (
	target = "Trgt1111111111111111111111111111111111111111"
	other  = "Othr1111111111111111111111111111111111111111"
	mintA  = "MintA111111111111111111111111111111111111111"
	mintB  = "MintB111111111111111111111111111111111111111"
	wsol   = "So11111111111111111111111111111111111111112"
	usdc   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func TestParse_Buy(t *testing.T) {
	tx := &provider.EnhancedTransaction{
		TokenTransfers: []provider.TokenTransfer{
			{FromUserAccount: other, ToUserAccount: target, Mint: mintA, TokenAmount: 1500},
		},
		NativeTransfers: []provider.NativeTransfer{
			{FromUserAccount: target, ToUserAccount: other, Amount: 250_000_000},
		},
	}

	event := Parse(tx, target)
	assert.Equal(t, ActionBuy, event.Action)
	assert.Equal(t, mintA, event.Mint)
	assert.Equal(t, 1500.0, event.Amount)
	assert.Equal(t, 0.25, event.NativeSpent)
}

func TestParse_Sell(t *testing.T) {
	tx := &provider.EnhancedTransaction{
		TokenTransfers: []provider.TokenTransfer{
			{FromUserAccount: target, ToUserAccount: other, Mint: mintA, TokenAmount: 900},
		},
		NativeTransfers: []provider.NativeTransfer{
			{FromUserAccount: other, ToUserAccount: target, Amount: 120_000_000},
		},
	}

	event := Parse(tx, target)
	assert.Equal(t, ActionSell, event.Action)
	assert.Equal(t, mintA, event.Mint)
	assert.Equal(t, 900.0, event.Amount)
	// Net inflow: nothing spent.
	assert.Equal(t, 0.0, event.NativeSpent)
}

func TestParse_StableLegsIgnored(t *testing.T) {
	// A USDC-funded buy: the stable leg must not count as an outbound
	// token, otherwise the swap looks ambiguous.
	tx := &provider.EnhancedTransaction{
		TokenTransfers: []provider.TokenTransfer{
			{FromUserAccount: target, ToUserAccount: other, Mint: usdc, TokenAmount: 50},
			{FromUserAccount: other, ToUserAccount: target, Mint: mintA, TokenAmount: 2000},
		},
	}

	event := Parse(tx, target)
	assert.Equal(t, ActionBuy, event.Action)
	assert.Equal(t, mintA, event.Mint)
}

func TestParse_WrappedSolIgnored(t *testing.T) {
	tx := &provider.EnhancedTransaction{
		TokenTransfers: []provider.TokenTransfer{
			{FromUserAccount: target, ToUserAccount: other, Mint: wsol, TokenAmount: 0.5},
			{FromUserAccount: other, ToUserAccount: target, Mint: mintA, TokenAmount: 100},
		},
	}

	event := Parse(tx, target)
	assert.Equal(t, ActionBuy, event.Action)
	assert.Equal(t, mintA, event.Mint)
}

func TestParse_Ambiguous(t *testing.T) {
	tests := []struct {
		name string
		tx   *provider.EnhancedTransaction
	}{
		{
			name: "token to token swap",
			tx: &provider.EnhancedTransaction{
				TokenTransfers: []provider.TokenTransfer{
					{FromUserAccount: target, ToUserAccount: other, Mint: mintA, TokenAmount: 10},
					{FromUserAccount: other, ToUserAccount: target, Mint: mintB, TokenAmount: 20},
				},
			},
		},
		{
			name: "two distinct inbound mints",
			tx: &provider.EnhancedTransaction{
				TokenTransfers: []provider.TokenTransfer{
					{FromUserAccount: other, ToUserAccount: target, Mint: mintA, TokenAmount: 10},
					{FromUserAccount: other, ToUserAccount: target, Mint: mintB, TokenAmount: 20},
				},
			},
		},
		{
			name: "target not involved",
			tx: &provider.EnhancedTransaction{
				TokenTransfers: []provider.TokenTransfer{
					{FromUserAccount: other, ToUserAccount: other, Mint: mintA, TokenAmount: 10},
				},
			},
		},
		{
			name: "no transfers",
			tx:   &provider.EnhancedTransaction{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := Parse(tt.tx, target)
			assert.Equal(t, ActionUnknown, event.Action)
		})
	}
}

func TestParse_NilTransaction(t *testing.T) {
	event := Parse(nil, target)
	assert.Equal(t, ActionUnknown, event.Action)
}

func TestParse_SplitTransfersAggregate(t *testing.T) {
	// Multiple hops of the same mint sum into one leg.
	tx := &provider.EnhancedTransaction{
		TokenTransfers: []provider.TokenTransfer{
			{FromUserAccount: other, ToUserAccount: target, Mint: mintA, TokenAmount: 300},
			{FromUserAccount: other, ToUserAccount: target, Mint: mintA, TokenAmount: 700},
		},
	}

	event := Parse(tx, target)
	assert.Equal(t, ActionBuy, event.Action)
	assert.Equal(t, 1000.0, event.Amount)
}

func TestIsIgnoredMint(t *testing.T) {
	assert.True(t, IsIgnoredMint(wsol))
	assert.True(t, IsIgnoredMint(usdc))
	assert.False(t, IsIgnoredMint(mintA))
}
