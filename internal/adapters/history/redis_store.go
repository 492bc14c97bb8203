package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"go.uber.org/zap"
)

// RedisStore keeps each run as a JSON value with a TTL and indexes runs in a
// sorted set scored by start time.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
	now     func() time.Time
	janitor *janitor
}

// NewRedisStore creates a run store backed by Redis
func NewRedisStore(addr, key string, logger *zap.Logger, cleanupFreq time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	s := &RedisStore{
		client: client,
		key:    key,
		logger: logger,
		now:    time.Now,
	}
	s.janitor = startJanitor(s, cleanupFreq, logger)
	return s, nil
}

func (s *RedisStore) recordKey(id string) string {
	return s.key + ":" + id
}

// Get retrieves a run by ID
func (s *RedisStore) Get(ctx context.Context, id string) (*core.RunRecord, error) {
	data, err := s.client.Get(ctx, s.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}

	var record core.RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
	}
	return &record, nil
}

// Save stores a run record. Records that are already expired are dropped.
func (s *RedisStore) Save(ctx context.Context, record *core.RunRecord) error {
	var ttl time.Duration
	if !record.ExpiresAt.IsZero() {
		ttl = record.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return s.Delete(ctx, record.ID)
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", record.ID, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.recordKey(record.ID), data, ttl)
		pipe.ZAdd(ctx, s.key, redis.Z{
			Score:  float64(record.StartedAt.UnixMilli()),
			Member: record.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", record.ID, err)
	}
	return nil
}

// Recent returns the newest unexpired runs first
func (s *RedisStore) Recent(ctx context.Context, limit int) ([]core.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	ids, err := s.client.ZRevRange(ctx, s.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recent runs: %w", err)
	}
	if len(ids) == 0 {
		return []core.RunRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load recent runs: %w", err)
	}

	records := make([]core.RunRecord, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Value expired; the index entry is removed by Cleanup
			continue
		}
		var record core.RunRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			s.logger.Warn("Skipping undecodable run record", zap.String("run_id", ids[i]), zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// Delete removes a run record
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.recordKey(id))
		pipe.ZRem(ctx, s.key, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	return nil
}

// Cleanup drops index entries whose values have expired
func (s *RedisStore) Cleanup(ctx context.Context) error {
	ids, err := s.client.ZRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list run index: %w", err)
	}

	var stale []interface{}
	for _, id := range ids {
		n, err := s.client.Exists(ctx, s.recordKey(id)).Result()
		if err != nil {
			return fmt.Errorf("failed to check run %s: %w", id, err)
		}
		if n == 0 {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, s.key, stale...).Err(); err != nil {
			return fmt.Errorf("failed to prune run index: %w", err)
		}
	}

	s.logger.Debug("Cleaned up expired run records", zap.Int("expired_count", len(stale)))
	return nil
}

// Stop stops the background cleanup task and closes the Redis connection
func (s *RedisStore) Stop() {
	s.janitor.stop()
	if err := s.client.Close(); err != nil {
		s.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}
