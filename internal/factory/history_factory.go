package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/adapters/history"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"go.uber.org/zap"
)

// HistoryStore is a run repository with a background janitor to stop
type HistoryStore interface {
	core.RunRepository
	Stop()
}

// HistoryFactory creates run history stores based on configuration
type HistoryFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHistoryFactory creates a new history factory
func NewHistoryFactory(cfg *config.Config, logger *zap.Logger) *HistoryFactory {
	return &HistoryFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateRunRepository creates a run history store based on the configuration
func (f *HistoryFactory) CreateRunRepository() (HistoryStore, error) {
	hc, err := f.cfg.GetHistory()
	if err != nil {
		return nil, err
	}

	switch hc.Type {
	case "memory":
		return history.NewMemoryStore(f.logger, hc.CleanupFrequency), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(hc.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return history.NewSQLiteStore(hc.SQLitePath, f.logger, hc.CleanupFrequency)
	case "mysql":
		return history.NewMySQLStore(hc.MySQLDSN, f.logger, hc.CleanupFrequency)
	case "redis":
		return history.NewRedisStore(hc.RedisAddr, hc.RedisKey, f.logger, hc.CleanupFrequency)
	default:
		return nil, fmt.Errorf("unsupported history type: %s", hc.Type)
	}
}
