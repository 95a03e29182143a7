package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Config holds database configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB wraps sql.DB with schema setup
type DB struct {
	*sql.DB
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS invoices (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id        TEXT NOT NULL,
	invoice_number  TEXT NOT NULL,
	po_number       TEXT NOT NULL DEFAULT '',
	invoice_date    TEXT NOT NULL DEFAULT '',
	due_date        TEXT NOT NULL DEFAULT '',
	company_name    TEXT NOT NULL DEFAULT '',
	company_address TEXT NOT NULL DEFAULT '',
	company_logo    TEXT NOT NULL DEFAULT '',
	client_name     TEXT NOT NULL DEFAULT '',
	client_address  TEXT NOT NULL DEFAULT '',
	client_email    TEXT NOT NULL DEFAULT '',
	currency        TEXT NOT NULL DEFAULT 'USD',
	template        TEXT NOT NULL DEFAULT 'modern',
	notes           TEXT NOT NULL DEFAULT '',
	bank_details    TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'draft',
	tax_rate        TEXT NOT NULL DEFAULT '0',
	other_tax       TEXT NOT NULL DEFAULT '0',
	shipping        TEXT NOT NULL DEFAULT '0',
	discount_value  TEXT NOT NULL DEFAULT '0',
	discount_type   TEXT NOT NULL DEFAULT 'percentage',
	show_subtotal   INTEGER NOT NULL DEFAULT 1,
	show_tax        INTEGER NOT NULL DEFAULT 1,
	show_shipping   INTEGER NOT NULL DEFAULT 0,
	show_discount   INTEGER NOT NULL DEFAULT 0,
	subtotal        TEXT NOT NULL DEFAULT '0',
	sales_tax       TEXT NOT NULL DEFAULT '0',
	discount_amount TEXT NOT NULL DEFAULT '0',
	total           TEXT NOT NULL DEFAULT '0',
	deal_id         TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS line_items (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	invoice_id  INTEGER NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
	item_id     TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	quantity    TEXT NOT NULL DEFAULT '0',
	unit_price  TEXT NOT NULL DEFAULT '0',
	amount      TEXT NOT NULL DEFAULT '0',
	sort_order  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_invoices_owner ON invoices(owner_id);
CREATE INDEX IF NOT EXISTS idx_line_items_invoice ON line_items(invoice_id);
`

// New opens the database and ensures the schema exists
func New(cfg Config, logger *zap.Logger) (*DB, error) {
	// WAL mode for better concurrency
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", cfg.Path)

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := sqlDB.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	db := &DB{DB: sqlDB, logger: logger}
	logger.Info("database ready", zap.String("path", cfg.Path))
	return db, nil
}

// WithTransaction executes a function within a transaction
func (db *DB) WithTransaction(fn func(*sql.Tx) error) error {
	tx, err := db.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
