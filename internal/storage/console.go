package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// StoreRecord pretty-prints a completed trade record to console.
func (c *ConsoleStorage) StoreRecord(ctx context.Context, r *Record) error {
	fmt.Println("\n" + "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("POSITION LOCKED IN (%s)\n", r.Mode)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("ID:       %s\n", r.ID)
	fmt.Printf("Market:   %s\n", r.MarketID)
	fmt.Printf("Question: %s\n", r.Question)
	fmt.Printf("Time:     %s\n", r.DetectedAt.Format("2006-01-02 15:04:05"))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  UP price:    %s\n", r.UpPrice.StringFixed(4))
	fmt.Printf("  DOWN price:  %s\n", r.DownPrice.StringFixed(4))
	fmt.Printf("  Shares:      %d\n", r.Shares)
	fmt.Printf("  Realized P&L: %s\n", r.RealizedPnL.StringFixed(4))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
