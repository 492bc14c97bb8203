package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"go.uber.org/zap"
)

// dialect holds the statements that differ between SQL engines
type dialect struct {
	name   string
	schema []string
	upsert string
}

const selectColumns = `id, service, account, status, message, processed_emails, drafts_created, started_at, finished_at, expires_at`

// SQLStore is a database/sql implementation of the RunRepository interface.
// Timestamps are stored as Unix milliseconds.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
	now     func() time.Time
	janitor *janitor
}

func newSQLStore(db *sql.DB, d dialect, logger *zap.Logger, cleanupFreq time.Duration) (*SQLStore, error) {
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create %s schema: %w", d.name, err)
		}
	}

	s := &SQLStore{
		db:      db,
		dialect: d,
		logger:  logger,
		now:     time.Now,
	}
	s.janitor = startJanitor(s, cleanupFreq, logger)
	return s, nil
}

// Get retrieves a run by ID
func (s *SQLStore) Get(ctx context.Context, id string) (*core.RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM run_history WHERE id = ? AND expires_at > ?`,
		id, s.now().UnixMilli())

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", id, err)
	}
	return record, nil
}

// Save stores a run record, replacing any record with the same ID
func (s *SQLStore) Save(ctx context.Context, record *core.RunRecord) error {
	_, err := s.db.ExecContext(ctx, s.dialect.upsert,
		record.ID,
		record.Service,
		record.Account,
		record.Status,
		record.Message,
		record.ProcessedEmails,
		record.DraftsCreated,
		record.StartedAt.UnixMilli(),
		record.FinishedAt.UnixMilli(),
		record.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", record.ID, err)
	}
	return nil
}

// Recent returns the newest unexpired runs first
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]core.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM run_history WHERE expires_at > ? ORDER BY started_at DESC LIMIT ?`,
		s.now().UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent runs: %w", err)
	}
	defer rows.Close()

	records := []core.RunRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// Delete removes a run record
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM run_history WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	return nil
}

// Cleanup removes expired records
func (s *SQLStore) Cleanup(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM run_history WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to clean up expired runs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		s.logger.Debug("Cleaned up expired run records", zap.Int64("expired_count", rowsAffected))
	}
	return nil
}

// Stop stops the background cleanup task and closes the database connection
func (s *SQLStore) Stop() {
	s.janitor.stop()
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close run history database",
			zap.String("dialect", s.dialect.name), zap.Error(err))
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*core.RunRecord, error) {
	var r core.RunRecord
	var startedAt, finishedAt, expiresAt int64
	if err := row.Scan(
		&r.ID,
		&r.Service,
		&r.Account,
		&r.Status,
		&r.Message,
		&r.ProcessedEmails,
		&r.DraftsCreated,
		&startedAt,
		&finishedAt,
		&expiresAt,
	); err != nil {
		return nil, err
	}
	r.StartedAt = time.UnixMilli(startedAt).UTC()
	r.FinishedAt = time.UnixMilli(finishedAt).UTC()
	r.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	return &r, nil
}
