package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Supported SQL drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Connect opens and pings a SQL database. driver is DriverPostgres or DriverSQLite.
func Connect(driver, dsn string, logger *zap.Logger) (*sqlx.DB, error) {
	logger.Info("🔌 Database connection attempt",
		zap.String("driver", driver),
		zap.Int("dsn_length", len(dsn)),
		zap.String("dsn_prefix", dsn[:min(30, len(dsn))]+"..."),
	)

	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		logger.Error("❌ Database connection failed", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if driver == DriverSQLite && strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		logger.Error("❌ Database ping failed", zap.Error(err))
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("✅ Database connection successful", zap.String("driver", driver))
	return db, nil
}

// Migrate creates the schema. The DDL is shared by Postgres and SQLite.
func Migrate(db *sqlx.DB, logger *zap.Logger) error {
	migrations := []string{
		// Bins mirror the Realtime Database records
		`CREATE TABLE IF NOT EXISTS bins (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			fill_pct DOUBLE PRECISION,
			weight_kg DOUBLE PRECISION,
			status TEXT NOT NULL DEFAULT '',
			capacity DOUBLE PRECISION NOT NULL DEFAULT 0,
			operator_id TEXT NOT NULL DEFAULT '',
			is_blocked INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT '',
			last_cleared_at TEXT NOT NULL DEFAULT '',
			last_cleared_by TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bins_operator_id ON bins(operator_id)`,

		// Clear events appended by ClearBin, numbered per bin by seq
		`CREATE TABLE IF NOT EXISTS bin_history (
			id TEXT PRIMARY KEY,
			bin_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			type TEXT NOT NULL,
			operator_id TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			UNIQUE (bin_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bin_history_bin_id ON bin_history(bin_id)`,

		// Operator shift checklist
		`CREATE TABLE IF NOT EXISTS operator_tasks (
			operator_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			label TEXT NOT NULL,
			sequence_order INTEGER NOT NULL,
			is_completed INTEGER NOT NULL DEFAULT 0,
			completed_at TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (operator_id, task_id)
		)`,

		// Bins each operator has emptied
		`CREATE TABLE IF NOT EXISTS operator_completed_bins (
			operator_id TEXT NOT NULL,
			bin_id TEXT NOT NULL,
			completed_at TEXT NOT NULL,
			seq INTEGER NOT NULL,
			PRIMARY KEY (operator_id, bin_id)
		)`,

		`CREATE TABLE IF NOT EXISTS operators (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			assigned_bins TEXT NOT NULL DEFAULT '[]',
			password TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'operator',
			created_at TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_operators_email ON operators(email)`,

		`CREATE TABLE IF NOT EXISTS admins (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			password TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS tickets (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			bin_id TEXT NOT NULL DEFAULT '',
			issue TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_bin_id ON tickets(bin_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	logger.Info("✓ Database migrations completed")
	return nil
}
