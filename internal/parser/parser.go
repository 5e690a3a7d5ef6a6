// internal/parser/parser.go
package parser

import (
	"github.com/mirrortrade/copybot/internal/provider"
)

// Action classifies the target wallet's side of a swap.
type Action string

const (
	ActionBuy     Action = "BUY"
	ActionSell    Action = "SELL"
	ActionUnknown Action = "UNKNOWN"
)

// TradeEvent is the typed result of parsing one transaction record.
// Amount is the UI token amount moved by the target wallet; NativeSpent
// is the target's net SOL outflow in SOL units (zero on net inflow).
type TradeEvent struct {
	Action      Action
	Mint        string
	Amount      float64
	NativeSpent float64
}

// Mints excluded from classification: wrapped SOL and the major stables.
// A swap leg in any of these is payment, not the traded token.
var ignoredMints = map[string]struct{}{
	"So11111111111111111111111111111111111111112": {}, // WSOL
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": {}, // USDC
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": {}, // USDT
}

// IsIgnoredMint reports whether the mint is in the stable/base ignore set.
func IsIgnoredMint(mint string) bool {
	_, ok := ignoredMints[mint]
	return ok
}

// Parse classifies the net token flow of the target wallet in one
// transaction record. It is deterministic and total: nil or malformed
// input yields an UNKNOWN event rather than an error.
//
// Exactly one non-ignored mint flowing to the target and none flowing
// out is a BUY; the mirror case is a SELL. Anything ambiguous (both
// directions, or several distinct mints on one side) is UNKNOWN and
// must be discarded downstream.
func Parse(tx *provider.EnhancedTransaction, target string) TradeEvent {
	event := TradeEvent{Action: ActionUnknown}
	if tx == nil {
		return event
	}

	inbound := map[string]float64{}
	outbound := map[string]float64{}

	for _, tt := range tx.TokenTransfers {
		if tt.Mint == "" || IsIgnoredMint(tt.Mint) {
			continue
		}
		switch {
		case tt.FromUserAccount == target:
			outbound[tt.Mint] += tt.TokenAmount
		case tt.ToUserAccount == target:
			inbound[tt.Mint] += tt.TokenAmount
		}
	}

	// Net SOL delta for the target: inflows minus outflows, in lamports.
	var solChange int64
	for _, nt := range tx.NativeTransfers {
		switch {
		case nt.FromUserAccount == target:
			solChange -= nt.Amount
		case nt.ToUserAccount == target:
			solChange += nt.Amount
		}
	}
	if solChange < 0 {
		event.NativeSpent = float64(-solChange) / 1e9
	}

	switch {
	case len(inbound) == 1 && len(outbound) == 0:
		event.Action = ActionBuy
		for mint, amount := range inbound {
			event.Mint = mint
			event.Amount = amount
		}
	case len(outbound) == 1 && len(inbound) == 0:
		event.Action = ActionSell
		for mint, amount := range outbound {
			event.Mint = mint
			event.Amount = amount
		}
	}

	return event
}
