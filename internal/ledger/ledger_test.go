// internal/ledger/ledger_test.go
package ledger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testMint = "MintA111111111111111111111111111111111111111"

func newTestLedger(t *testing.T, dustFloor uint64) *Ledger {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return New(store, dustFloor, zaptest.NewLogger(t))
}

func TestAddPosition_Accumulates(t *testing.T) {
	l := newTestLedger(t, 100)

	l.AddPosition(testMint, 1000, 0.05)
	l.AddPosition(testMint, 500, 0.05)

	pos, ok := l.Position(testMint)
	require.True(t, ok)
	assert.Equal(t, uint64(1500), pos.Quantity)
	assert.InDelta(t, 0.10, pos.CostBasis, 1e-9)
	assert.Equal(t, 2, l.GetBuyCount(testMint))
}

func TestApplySell_UnknownMintIsNoop(t *testing.T) {
	l := newTestLedger(t, 100)

	applied := l.ApplySell(testMint, 500, 0.01, ActionSell)
	assert.False(t, applied)
	assert.Empty(t, l.Records())
}

func TestApplySell_NeverNegative(t *testing.T) {
	l := newTestLedger(t, 100)
	l.AddPosition(testMint, 1000, 0.05)

	// Selling more than held caps at the held quantity.
	applied := l.ApplySell(testMint, 5000, 0.08, ActionSell)
	require.True(t, applied)

	_, ok := l.Position(testMint)
	assert.False(t, ok, "fully sold position should be deleted")

	records := l.Records()
	require.Len(t, records, 2)
	assert.Equal(t, uint64(1000), records[1].Amount, "recorded amount is capped")
}

func TestApplySell_DustFloorDeletesPosition(t *testing.T) {
	l := newTestLedger(t, 100)
	l.AddPosition(testMint, 1000, 0.05)

	var mu sync.Mutex
	reclaimed := ""
	done := make(chan struct{})
	l.SetReclaimFunc(func(mint string) {
		mu.Lock()
		reclaimed = mint
		mu.Unlock()
		close(done)
	})

	// Leaves 50 raw units, below the floor of 100.
	applied := l.ApplySell(testMint, 950, 0.04, ActionSell)
	require.True(t, applied)

	_, ok := l.Position(testMint)
	assert.False(t, ok)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reclaim callback was not invoked")
	}
	mu.Lock()
	assert.Equal(t, testMint, reclaimed)
	mu.Unlock()
}

func TestApplySell_PartialKeepsPerUnitCost(t *testing.T) {
	l := newTestLedger(t, 10)
	l.AddPosition(testMint, 1000, 0.10)

	applied := l.ApplySell(testMint, 400, 0.05, ActionSell)
	require.True(t, applied)

	pos, ok := l.Position(testMint)
	require.True(t, ok)
	assert.Equal(t, uint64(600), pos.Quantity)
	assert.InDelta(t, 0.06, pos.CostBasis, 1e-9)
}

func TestLoad_RebuildsBuyCounts(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)

	l := New(store, 100, logger)
	l.AddPosition(testMint, 1000, 0.05)
	l.AddPosition(testMint, 1000, 0.05)
	l.AddPosition(testMint, 1000, 0.05)
	l.ApplySell(testMint, 1000, 0.06, ActionSell)

	// Fresh instance over the same files, as after a restart.
	store2, err := NewStore(dir)
	require.NoError(t, err)
	l2 := New(store2, 100, logger)
	require.NoError(t, l2.Load())

	assert.Equal(t, 3, l2.GetBuyCount(testMint), "sells must not affect the buy count")

	pos, ok := l2.Position(testMint)
	require.True(t, ok)
	assert.Equal(t, uint64(2000), pos.Quantity)
}

func TestLoad_EmptyDirectory(t *testing.T) {
	l := newTestLedger(t, 100)
	require.NoError(t, l.Load())
	assert.True(t, l.Empty())
	assert.Equal(t, 0, l.GetBuyCount(testMint))
}

func TestRecords_AppendOrder(t *testing.T) {
	l := newTestLedger(t, 10)
	l.AddPosition(testMint, 1000, 0.05)
	l.ApplySell(testMint, 200, 0.02, ActionSell)
	l.ApplySell(testMint, 780, 0.07, ActionSellForce)

	records := l.Records()
	require.Len(t, records, 3)
	assert.Equal(t, ActionBuy, records[0].Action)
	assert.Equal(t, ActionSell, records[1].Action)
	assert.Equal(t, ActionSellForce, records[2].Action)
	assert.True(t, records[2].Action.IsSell())
}
