package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"go.uber.org/zap"
)

// AccountRunner runs the workflow for every configured account
type AccountRunner interface {
	RunAll(ctx context.Context) []*core.RunResult
}

// Scheduler polls every configured mailbox on a cron schedule. A tick that
// fires while the previous one is still running is skipped.
type Scheduler struct {
	spec   string
	runner AccountRunner
	logger *zap.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// New creates a scheduler for the given cron spec, e.g. "@every 15m"
func New(spec string, runner AccountRunner, logger *zap.Logger) *Scheduler {
	return &Scheduler{spec: spec, runner: runner, logger: logger}
}

// Start registers the polling job and starts the cron loop
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("scheduler already started")
	}

	cronLogger := zapLogger{s.logger.Sugar()}
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := c.AddFunc(s.spec, func() { s.tick(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("invalid schedule %q: %w", s.spec, err)
	}

	c.Start()
	s.cron = c
	s.cancel = cancel
	s.logger.Info("Scheduler started", zap.String("spec", s.spec))
	return nil
}

// Stop stops scheduling, cancels the current tick and waits for it to return
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return nil
	}

	s.cancel()
	<-s.cron.Stop().Done()
	s.cron = nil
	s.logger.Info("Scheduler stopped")
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	s.logger.Info("Scheduled email check starting")
	results := s.runner.RunAll(ctx)

	var processed, drafts, failed int
	for _, r := range results {
		processed += r.Stats.ProcessedEmails
		drafts += r.Stats.DraftsCreated
		if r.Status != core.RunStatusSuccess {
			failed++
		}
	}
	s.logger.Info("Scheduled email check finished",
		zap.Int("runs", len(results)),
		zap.Int("failed_runs", failed),
		zap.Int("processed_emails", processed),
		zap.Int("drafts_created", drafts))
}

// zapLogger adapts zap to the cron.Logger interface
type zapLogger struct {
	l *zap.SugaredLogger
}

func (z zapLogger) Info(msg string, keysAndValues ...interface{}) {
	z.l.Debugw(msg, keysAndValues...)
}

func (z zapLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	z.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
