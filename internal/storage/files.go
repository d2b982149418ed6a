package storage

import (
	"encoding/csv"
	"encoding/json"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DisappearanceReason classifies why a tracked arbitrage observation
// stopped being actionable (spec.md Sec 6: "an ordered set of fields
// ending with the disappearance reason").
type DisappearanceReason string

const (
	ReasonPriceMoved         DisappearanceReason = "price_moved"
	ReasonLiquidityExhausted DisappearanceReason = "liquidity_exhausted"
	ReasonExpiryCutoff       DisappearanceReason = "expiry_cutoff"
	ReasonStillActive        DisappearanceReason = "still_active"
)

// Observation is one row of the arbitrage-observations CSV: a scan-cycle
// snapshot of a market's combined ask price, recorded alongside why it
// eventually stopped being tradeable.
type Observation struct {
	Timestamp  time.Time
	MarketID   string
	AskUp      string
	AskDown    string
	Combined   string
	MinEdge    string
	Reason     DisappearanceReason
}

var observationHeader = []string{"timestamp", "market_id", "ask_up", "ask_down", "combined", "min_edge", "reason"}

// ScanStats is the aggregate counter snapshot overwritten once per scan
// cycle (spec.md Sec 6: "A scan_stats file is overwritten each scan
// cycle"), consumed by the dashboard.
type ScanStats struct {
	LastScanAt     time.Time `json:"last_scan_at"`
	ScanCount      int64     `json:"scan_count"`
	MarketsTracked int       `json:"markets_tracked"`
	ArbsFound      int64     `json:"arbs_found"`
	RealizedPnL    string    `json:"realized_pnl"`
}

// FilesStorage implements Storage by appending completed trade records to
// a JSON array file (rewritten atomically) and appending arbitrage
// observations to a CSV log, both under DataDir. It also exposes
// RecordObservation/WriteScanStats for the pieces of spec.md Sec 6 that
// don't fit the Storage interface's one-record-at-a-time shape.
type FilesStorage struct {
	dataDir string
	logger  *zap.Logger

	mu      sync.Mutex
	records []*Record
}

// NewFilesStorage creates data dir (if missing) and loads any existing
// trade-records JSON so repeated runs append rather than clobber history.
func NewFilesStorage(dataDir string, logger *zap.Logger) (*FilesStorage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	f := &FilesStorage{dataDir: dataDir, logger: logger}

	existing, err := f.loadRecords()
	if err != nil {
		return nil, fmt.Errorf("load existing trade records: %w", err)
	}
	f.records = existing

	logger.Info("files-storage-initialized", zap.String("data-dir", dataDir), zap.Int("loaded-records", len(existing)))
	return f, nil
}

func (f *FilesStorage) recordsPath() string {
	return filepath.Join(f.dataDir, "trade_records.json")
}

func (f *FilesStorage) observationsPath() string {
	return filepath.Join(f.dataDir, "arbitrage_observations.csv")
}

func (f *FilesStorage) scanStatsPath() string {
	return filepath.Join(f.dataDir, "scan_stats.json")
}

func (f *FilesStorage) loadRecords() ([]*Record, error) {
	body, err := os.ReadFile(f.recordsPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []*Record
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse trade records file: %w", err)
	}
	return out, nil
}

// StoreRecord appends a completed trade record and atomically rewrites the
// JSON array file (spec.md Sec 6: "JSON files store arrays, rewritten
// atomically").
func (f *FilesStorage) StoreRecord(ctx context.Context, r *Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.records = append(f.records, r)

	body, err := json.MarshalIndent(f.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal trade records: %w", err)
	}

	if err := atomicWriteFile(f.recordsPath(), body); err != nil {
		return fmt.Errorf("write trade records file: %w", err)
	}

	f.logger.Debug("trade-record-stored",
		zap.String("record-id", r.ID), zap.String("market-id", r.MarketID))
	return nil
}

// RecordObservation appends one row to the arbitrage observations CSV,
// writing the header first if the file doesn't exist yet.
func (f *FilesStorage) RecordObservation(o Observation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.observationsPath()
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open observations file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if needsHeader {
		if err := w.Write(observationHeader); err != nil {
			return fmt.Errorf("write observations header: %w", err)
		}
	}

	row := []string{
		o.Timestamp.Format(time.RFC3339),
		o.MarketID,
		o.AskUp,
		o.AskDown,
		o.Combined,
		o.MinEdge,
		string(o.Reason),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write observation row: %w", err)
	}
	return nil
}

// WriteScanStats overwrites the scan_stats file with the current aggregate
// counters (spec.md Sec 6: "overwritten each scan cycle").
func (f *FilesStorage) WriteScanStats(s ScanStats) error {
	body, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal scan stats: %w", err)
	}
	if err := atomicWriteFile(f.scanStatsPath(), body); err != nil {
		return fmt.Errorf("write scan stats file: %w", err)
	}
	return nil
}

// Close is a no-op; every write above is already flushed synchronously.
func (f *FilesStorage) Close() error {
	f.logger.Info("closing-files-storage")
	return nil
}

// atomicWriteFile writes to a temp file in the same directory then renames
// it over the destination, so a crash mid-write never leaves a truncated
// JSON array behind.
func atomicWriteFile(path string, body []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
