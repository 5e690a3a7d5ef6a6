// internal/ledger/store.go
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists the ledger as two whole-document JSON files: a snapshot
// of open positions and the append-style trade log. Each write goes to a
// temp file first and is renamed into place, so a crash leaves either the
// old or the new document on disk, never a torn one.
type Store struct {
	dir string
}

const (
	positionsFile = "positions.json"
	tradesFile    = "trades.json"
)

// NewStore creates the data directory if needed and returns a store.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// PositionsPath returns the path of the positions snapshot file.
func (s *Store) PositionsPath() string {
	return filepath.Join(s.dir, positionsFile)
}

// TradesPath returns the path of the trade log file.
func (s *Store) TradesPath() string {
	return filepath.Join(s.dir, tradesFile)
}

// SavePositions atomically rewrites the positions snapshot.
func (s *Store) SavePositions(positions map[string]*Position) error {
	return s.writeJSON(s.PositionsPath(), positions)
}

// SaveTrades atomically rewrites the trade log.
func (s *Store) SaveTrades(records []TradeRecord) error {
	return s.writeJSON(s.TradesPath(), records)
}

// LoadPositions reads the positions snapshot. A missing file is an empty
// ledger, not an error.
func (s *Store) LoadPositions() (map[string]*Position, error) {
	positions := make(map[string]*Position)
	if err := s.readJSON(s.PositionsPath(), &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// LoadTrades reads the trade log. A missing file yields an empty log.
func (s *Store) LoadTrades() ([]TradeRecord, error) {
	var records []TradeRecord
	if err := s.readJSON(s.TradesPath(), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *Store) readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
