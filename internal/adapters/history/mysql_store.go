package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS run_history (
			id VARCHAR(64) PRIMARY KEY,
			service VARCHAR(32) NOT NULL,
			account VARCHAR(255) NOT NULL,
			status VARCHAR(16) NOT NULL,
			message TEXT NOT NULL,
			processed_emails INT NOT NULL,
			drafts_created INT NOT NULL,
			started_at BIGINT NOT NULL,
			finished_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			INDEX idx_expires_at (expires_at),
			INDEX idx_started_at (started_at)
		)`,
	},
	upsert: `INSERT INTO run_history
		(id, service, account, status, message, processed_emails, drafts_created, started_at, finished_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			service = VALUES(service),
			account = VALUES(account),
			status = VALUES(status),
			message = VALUES(message),
			processed_emails = VALUES(processed_emails),
			drafts_created = VALUES(drafts_created),
			started_at = VALUES(started_at),
			finished_at = VALUES(finished_at),
			expires_at = VALUES(expires_at)`,
}

// NewMySQLStore creates a run store backed by MySQL
func NewMySQLStore(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	store, err := newSQLStore(db, mysqlDialect, logger, cleanupFreq)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
