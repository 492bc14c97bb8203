package history

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a run record is not found
var ErrNotFound = errors.New("run record not found")

// MemoryStore is an in-memory implementation of the RunRepository interface
type MemoryStore struct {
	records map[string]core.RunRecord
	mu      sync.RWMutex
	logger  *zap.Logger
	now     func() time.Time
	janitor *janitor
}

// NewMemoryStore creates a new in-memory run store
func NewMemoryStore(logger *zap.Logger, cleanupFreq time.Duration) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]core.RunRecord),
		logger:  logger,
		now:     time.Now,
	}
	s.janitor = startJanitor(s, cleanupFreq, logger)
	return s
}

// Get retrieves a run by ID
func (s *MemoryStore) Get(ctx context.Context, id string) (*core.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok || s.expired(record) {
		return nil, ErrNotFound
	}
	return &record, nil
}

// Save stores a run record
func (s *MemoryStore) Save(ctx context.Context, record *core.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.ID] = *record
	return nil
}

// Recent returns the newest unexpired runs first
func (s *MemoryStore) Recent(ctx context.Context, limit int) ([]core.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]core.RunRecord, 0, len(s.records))
	for _, r := range s.records {
		if !s.expired(r) {
			records = append(records, r)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Delete removes a run record
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	return nil
}

// Cleanup removes expired records
func (s *MemoryStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiredCount := 0
	for id, r := range s.records {
		if s.expired(r) {
			delete(s.records, id)
			expiredCount++
		}
	}

	s.logger.Debug("Cleaned up expired run records", zap.Int("expired_count", expiredCount))
	return nil
}

// Stop stops the background cleanup task
func (s *MemoryStore) Stop() {
	s.janitor.stop()
}

func (s *MemoryStore) expired(r core.RunRecord) bool {
	return !r.ExpiresAt.IsZero() && !s.now().Before(r.ExpiresAt)
}
