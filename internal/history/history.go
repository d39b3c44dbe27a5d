// Package history keeps a SQLite record of published work orders.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
	"workorder-board/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS processed_orders (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	number            TEXT NOT NULL,
	number_line       TEXT NOT NULL,
	partner           TEXT NOT NULL DEFAULT '',
	device            TEXT NOT NULL DEFAULT '',
	serial_number     TEXT NOT NULL DEFAULT '',
	device_code       TEXT NOT NULL DEFAULT '',
	fault_description TEXT NOT NULL DEFAULT '',
	work_description  TEXT NOT NULL DEFAULT '',
	order_date        TEXT NOT NULL DEFAULT '',
	source_file       TEXT NOT NULL DEFAULT '',
	processed_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS processed_orders_processed_at ON processed_orders (processed_at);
`

// Store persists processed orders in SQLite
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("history path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores one processed order
func (s *Store) Record(ctx context.Context, order types.ProcessedOrder) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("history is not configured")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_orders (
			number, number_line, partner, device, serial_number, device_code,
			fault_description, work_description, order_date, source_file, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.Number, order.NumberLine, order.Partner, order.Device, order.SerialNumber,
		order.DeviceCode, order.FaultDescription, order.WorkDescription, order.Date,
		order.SourceFile, order.ProcessedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert processed order: %w", err)
	}
	return nil
}

// Recent returns up to limit orders, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]types.ProcessedOrder, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("history is not configured")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT number, number_line, partner, device, serial_number, device_code,
			fault_description, work_description, order_date, source_file, processed_at
		FROM processed_orders
		ORDER BY processed_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query processed orders: %w", err)
	}
	defer rows.Close()

	var orders []types.ProcessedOrder
	for rows.Next() {
		var o types.ProcessedOrder
		var processedAt int64
		if err := rows.Scan(
			&o.Number, &o.NumberLine, &o.Partner, &o.Device, &o.SerialNumber, &o.DeviceCode,
			&o.FaultDescription, &o.WorkDescription, &o.Date, &o.SourceFile, &processedAt,
		); err != nil {
			return nil, fmt.Errorf("scan processed order: %w", err)
		}
		o.ProcessedAt = time.UnixMilli(processedAt).UTC()
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processed orders: %w", err)
	}
	return orders, nil
}
