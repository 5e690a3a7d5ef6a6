// internal/ledger/ledger.go
package ledger

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Action is the kind of a trade log entry.
type Action string

const (
	ActionBuy       Action = "BUY"
	ActionSell      Action = "SELL"
	ActionSellForce Action = "SELL_FORCE"
)

// IsSell reports whether the action closed (part of) a position.
func (a Action) IsSell() bool {
	return a == ActionSell || a == ActionSellForce
}

// Position is the bot's holding in one token mint. Quantity is in raw
// base units; CostBasis is the cumulative SOL spent acquiring it.
type Position struct {
	Mint      string  `json:"mint"`
	Quantity  uint64  `json:"quantity"`
	CostBasis float64 `json:"cost_basis"`
}

// TradeRecord is one immutable entry of the append-only trade log.
type TradeRecord struct {
	Time   time.Time `json:"time"`
	Action Action    `json:"action"`
	Mint   string    `json:"mint"`
	Amount uint64    `json:"amount"`
	Value  float64   `json:"value_sol"`
}

// ReclaimFunc is invoked after a position is fully closed to reclaim the
// rent of the now-empty token account. Best effort, never retried.
type ReclaimFunc func(mint string)

// Ledger owns the bot's holdings, cost basis and trade history. Every
// mutation is serialized behind one mutex and persisted synchronously;
// a failed write is logged and in-memory state stays authoritative until
// the next successful write.
type Ledger struct {
	mu        sync.Mutex
	positions map[string]*Position
	records   []TradeRecord
	buyCounts map[string]int

	store     *Store
	dustFloor uint64
	reclaim   ReclaimFunc
	logger    *zap.Logger
}

// New creates an empty ledger backed by the given store.
func New(store *Store, dustFloor uint64, logger *zap.Logger) *Ledger {
	return &Ledger{
		positions: make(map[string]*Position),
		buyCounts: make(map[string]int),
		store:     store,
		dustFloor: dustFloor,
		logger:    logger.Named("ledger"),
	}
}

// SetReclaimFunc installs the account-reclaim callback. Must be called
// before the monitors start.
func (l *Ledger) SetReclaimFunc(f ReclaimFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reclaim = f
}

// Load restores positions and the trade log from disk and rebuilds the
// buy-count index by replaying the log. Call once before any monitor runs.
func (l *Ledger) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	positions, err := l.store.LoadPositions()
	if err != nil {
		return err
	}
	records, err := l.store.LoadTrades()
	if err != nil {
		return err
	}

	l.positions = positions
	l.records = records

	// The buy-count index is never persisted; rebuilding it from the
	// durable log is what keeps it from diverging.
	l.buyCounts = make(map[string]int)
	for _, rec := range l.records {
		if rec.Action == ActionBuy && rec.Mint != "" {
			l.buyCounts[rec.Mint]++
		}
	}

	l.logger.Info("📂 Ledger restored",
		zap.Int("positions", len(l.positions)),
		zap.Int("trade_records", len(l.records)),
		zap.Int("tracked_mints", len(l.buyCounts)))
	return nil
}

// AddPosition books a fill: quantity and cost basis are incremented,
// the buy-count index updated, a BUY record appended and everything
// persisted.
func (l *Ledger) AddPosition(mint string, amount uint64, costSOL float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[mint]
	if !ok {
		pos = &Position{Mint: mint}
		l.positions[mint] = pos
	}
	pos.Quantity += amount
	pos.CostBasis += costSOL
	l.buyCounts[mint]++

	l.appendRecord(TradeRecord{
		Time:   time.Now(),
		Action: ActionBuy,
		Mint:   mint,
		Amount: amount,
		Value:  costSOL,
	})
	l.persistPositions()

	l.logger.Info("📝 Position updated",
		zap.String("mint", mint),
		zap.Uint64("quantity", pos.Quantity),
		zap.Float64("cost_sol", pos.CostBasis),
		zap.Int("buy_count", l.buyCounts[mint]))
}

// GetBuyCount returns how many BUY records exist for the mint. O(1).
func (l *Ledger) GetBuyCount(mint string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buyCounts[mint]
}

// ApplySell books a (partial) exit. Selling an unknown mint or a zero
// quantity is a no-op. Quantity never goes negative; once it drops below
// the dust floor the position is deleted and the empty token account is
// scheduled for reclamation. Returns whether the sell was applied.
func (l *Ledger) ApplySell(mint string, amount uint64, proceedsSOL float64, action Action) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[mint]
	if !ok || pos.Quantity == 0 {
		return false
	}

	if amount > pos.Quantity {
		amount = pos.Quantity
	}

	// Keep the per-unit cost constant across partial exits so that ROI
	// on the remainder stays meaningful.
	soldFraction := float64(amount) / float64(pos.Quantity)
	pos.Quantity -= amount
	pos.CostBasis -= pos.CostBasis * soldFraction
	if pos.CostBasis < 0 {
		pos.CostBasis = 0
	}

	if pos.Quantity < l.dustFloor {
		delete(l.positions, mint)
		l.logger.Info("✅ Position closed", zap.String("mint", mint))
		if l.reclaim != nil {
			go l.reclaim(mint)
		}
	}

	l.appendRecord(TradeRecord{
		Time:   time.Now(),
		Action: action,
		Mint:   mint,
		Amount: amount,
		Value:  proceedsSOL,
	})
	l.persistPositions()
	return true
}

// Position returns a copy of the position for the mint, if held.
func (l *Ledger) Position(mint string) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.positions[mint]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Positions returns a snapshot copy of all open positions.
func (l *Ledger) Positions() []Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, *pos)
	}
	return out
}

// Records returns a copy of the trade log in append order.
func (l *Ledger) Records() []TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TradeRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Empty reports whether the ledger holds no positions.
func (l *Ledger) Empty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.positions) == 0
}

// PositionsPath returns the on-disk location of the positions snapshot,
// used by the daily report as an email attachment.
func (l *Ledger) PositionsPath() string {
	return l.store.PositionsPath()
}

// appendRecord and persistPositions run with l.mu held.

func (l *Ledger) appendRecord(rec TradeRecord) {
	l.records = append(l.records, rec)
	if err := l.store.SaveTrades(l.records); err != nil {
		l.logger.Error("Failed to persist trade log", zap.Error(err))
	}
}

func (l *Ledger) persistPositions() {
	if err := l.store.SavePositions(l.positions); err != nil {
		l.logger.Error("Failed to persist positions", zap.Error(err))
	}
}
