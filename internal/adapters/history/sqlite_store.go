package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS run_history (
			id TEXT PRIMARY KEY,
			service TEXT NOT NULL,
			account TEXT NOT NULL,
			status TEXT NOT NULL,
			message TEXT NOT NULL,
			processed_emails INTEGER NOT NULL,
			drafts_created INTEGER NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_history_expires_at ON run_history(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_run_history_started_at ON run_history(started_at)`,
	},
	upsert: `INSERT OR REPLACE INTO run_history
		(id, service, account, status, message, processed_emails, drafts_created, started_at, finished_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
}

// NewSQLiteStore creates a run store backed by a SQLite file
func NewSQLiteStore(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store, err := newSQLStore(db, sqliteDialect, logger, cleanupFreq)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
