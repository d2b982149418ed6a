package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// StoreRecord inserts a completed trade record into PostgreSQL.
func (p *PostgresStorage) StoreRecord(ctx context.Context, r *Record) error {
	query := `
		INSERT INTO trade_records (
			id, market_id, question, mode, up_price, down_price,
			shares, realized_pnl, detected_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		r.ID,
		r.MarketID,
		r.Question,
		string(r.Mode),
		r.UpPrice.String(),
		r.DownPrice.String(),
		r.Shares,
		r.RealizedPnL.String(),
		r.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trade record: %w", err)
	}

	p.logger.Debug("trade-record-stored",
		zap.String("record-id", r.ID),
		zap.String("market-id", r.MarketID),
		zap.String("mode", string(r.Mode)))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
