package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/logging"
	"go.uber.org/zap"
)

// MailboxFactory opens a mailbox session for a configured account
type MailboxFactory interface {
	CreateMailbox(ctx context.Context, account config.Account) (Mailbox, error)
}

// WorkflowEngine drives one run of the email workflow against a mailbox
type WorkflowEngine interface {
	Run(ctx context.Context, mailbox Mailbox, logger *zap.Logger) (*RunStats, error)
}

// RunObserver receives aggregate metrics for finished runs
type RunObserver interface {
	ObserveRun(service, status string, stats *RunStats, duration time.Duration)
}

// RunResult is what a trigger surface reports back for one run
type RunResult struct {
	ID      string
	Service config.Service
	Account string
	Status  string
	Message string
	Stats   RunStats
	Logs    []string
}

// AutomationService resolves accounts, opens mailboxes and runs the workflow
type AutomationService struct {
	resolver         *config.AccountResolver
	mailboxes        MailboxFactory
	engine           WorkflowEngine
	history          RunRepository
	historyEnabled   bool
	historyRetention time.Duration
	notifier         RunNotifier
	observer         RunObserver
	logger           *zap.Logger
}

// NewAutomationService creates a new automation service. history, notifier and
// observer may be nil.
func NewAutomationService(
	resolver *config.AccountResolver,
	mailboxes MailboxFactory,
	engine WorkflowEngine,
	history RunRepository,
	historyEnabled bool,
	historyRetention time.Duration,
	notifier RunNotifier,
	observer RunObserver,
	logger *zap.Logger,
) *AutomationService {
	return &AutomationService{
		resolver:         resolver,
		mailboxes:        mailboxes,
		engine:           engine,
		history:          history,
		historyEnabled:   historyEnabled && history != nil,
		historyRetention: historyRetention,
		notifier:         notifier,
		observer:         observer,
		logger:           logger,
	}
}

// Accounts returns the configured accounts
func (s *AutomationService) Accounts() []config.Account {
	return s.resolver.All()
}

// ResolveAccount returns the configured account for a service and optional address
func (s *AutomationService) ResolveAccount(service config.Service, address string) (config.Account, error) {
	return s.resolver.Resolve(service, address)
}

// Run processes the inbox of one account. Account resolution and mailbox
// construction errors are returned before any workflow step runs.
func (s *AutomationService) Run(ctx context.Context, service config.Service, address string) (*RunResult, error) {
	account, err := s.resolver.Resolve(service, address)
	if err != nil {
		return nil, err
	}

	mailbox, err := s.mailboxes.CreateMailbox(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s mailbox for %s: %w", service, account.Email, err)
	}

	result := &RunResult{
		ID:      uuid.New().String(),
		Service: service,
		Account: account.Email,
	}
	runLogger, capture := logging.NewRunCapture(s.logger.With(
		zap.String("run_id", result.ID),
		zap.String("service", string(service)),
		zap.String("account", account.Email),
	))

	startedAt := time.Now()
	runLogger.Info("Starting email check")

	stats, runErr := s.engine.Run(ctx, mailbox, runLogger)
	if err := mailbox.Cleanup(); err != nil {
		runLogger.Warn("Failed to clean up mailbox", zap.Error(err))
	}
	if stats != nil {
		result.Stats = *stats
	}

	if runErr != nil {
		result.Status = RunStatusFailed
		result.Message = fmt.Sprintf("Error checking emails: %v", runErr)
		runLogger.Error("Email check failed", zap.Error(runErr))
	} else {
		result.Status = RunStatusSuccess
		result.Message = fmt.Sprintf("Email check completed for %s", service)
		runLogger.Info("Email check completed",
			zap.Int("processed_emails", result.Stats.ProcessedEmails),
			zap.Int("drafts_created", result.Stats.DraftsCreated))
	}
	result.Logs = capture.Lines()

	finishedAt := time.Now()
	if s.observer != nil {
		s.observer.ObserveRun(string(service), result.Status, &result.Stats, finishedAt.Sub(startedAt))
	}

	record := &RunRecord{
		ID:              result.ID,
		Service:         string(service),
		Account:         account.Email,
		Status:          result.Status,
		Message:         result.Message,
		ProcessedEmails: result.Stats.ProcessedEmails,
		DraftsCreated:   result.Stats.DraftsCreated,
		StartedAt:       startedAt,
		FinishedAt:      finishedAt,
		ExpiresAt:       finishedAt.Add(s.historyRetention),
	}
	s.finish(context.WithoutCancel(ctx), record)

	if runErr != nil {
		return result, runErr
	}
	return result, nil
}

func (s *AutomationService) finish(ctx context.Context, record *RunRecord) {
	if s.historyEnabled {
		if err := s.history.Save(ctx, record); err != nil {
			s.logger.Error("Failed to save run history", zap.String("run_id", record.ID), zap.Error(err))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyRun(ctx, record); err != nil {
			s.logger.Warn("Failed to send run notification", zap.String("run_id", record.ID), zap.Error(err))
		}
	}
}

// RunAll processes every configured account in turn
func (s *AutomationService) RunAll(ctx context.Context) []*RunResult {
	var results []*RunResult
	for _, account := range s.resolver.Usable() {
		if ctx.Err() != nil {
			break
		}
		result, err := s.Run(ctx, account.Service, account.Email)
		if err != nil {
			s.logger.Error("Scheduled run failed",
				zap.String("service", string(account.Service)),
				zap.String("account", account.Email),
				zap.Error(err))
		}
		if result != nil {
			results = append(results, result)
		}
	}
	return results
}

// History returns the most recent runs
func (s *AutomationService) History(ctx context.Context, limit int) ([]RunRecord, error) {
	if !s.historyEnabled {
		return []RunRecord{}, nil
	}
	return s.history.Recent(ctx, limit)
}

// ErrReportingUnsupported is returned when a mailbox cannot report on recent mail
var ErrReportingUnsupported = errors.New("mailbox does not support inbox reporting")

// InboxStats reports message counts for an account over a time window
func (s *AutomationService) InboxStats(ctx context.Context, service config.Service, address string, window time.Duration) (*InboxStats, error) {
	var stats *InboxStats
	err := s.withReporter(ctx, service, address, func(r InboxReporter) error {
		var err error
		stats, err = r.Stats(ctx, window)
		return err
	})
	return stats, err
}

// RecentEmails lists inbox messages received within the window
func (s *AutomationService) RecentEmails(ctx context.Context, service config.Service, address string, window time.Duration, limit int) ([]Email, error) {
	var emails []Email
	err := s.withReporter(ctx, service, address, func(r InboxReporter) error {
		var err error
		emails, err = r.FetchRecent(ctx, window, limit)
		return err
	})
	return emails, err
}

// CountFromSender counts inbox messages received within the window whose
// sender name or address contains term, ignoring case
func (s *AutomationService) CountFromSender(ctx context.Context, service config.Service, address, term string, window time.Duration) (int, error) {
	emails, err := s.RecentEmails(ctx, service, address, window, 0)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, e := range emails {
		if e.FromMatches(term) {
			count++
		}
	}
	return count, nil
}

// Drafts lists the reply drafts of an account
func (s *AutomationService) Drafts(ctx context.Context, service config.Service, address string) ([]Draft, error) {
	account, err := s.resolver.Resolve(service, address)
	if err != nil {
		return nil, err
	}
	mailbox, err := s.mailboxes.CreateMailbox(ctx, account)
	if err != nil {
		return nil, err
	}
	defer mailbox.Cleanup()
	return mailbox.FetchDraftReplies(ctx)
}

func (s *AutomationService) withReporter(ctx context.Context, service config.Service, address string, fn func(InboxReporter) error) error {
	account, err := s.resolver.Resolve(service, address)
	if err != nil {
		return err
	}
	mailbox, err := s.mailboxes.CreateMailbox(ctx, account)
	if err != nil {
		return err
	}
	defer mailbox.Cleanup()

	reporter, ok := mailbox.(InboxReporter)
	if !ok {
		return ErrReportingUnsupported
	}
	return fn(reporter)
}
