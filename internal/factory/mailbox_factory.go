package factory

import (
	"context"
	"fmt"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/adapters/gmail"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/adapters/outlook"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/utils"
	"go.uber.org/zap"
)

// MailboxFactory opens provider mailboxes for configured accounts
type MailboxFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewMailboxFactory creates a new mailbox factory
func NewMailboxFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *MailboxFactory {
	return &MailboxFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateMailbox opens a mailbox session for the account
func (f *MailboxFactory) CreateMailbox(ctx context.Context, account config.Account) (core.Mailbox, error) {
	mc, err := f.cfg.GetMailbox()
	if err != nil {
		return nil, err
	}

	switch account.Service {
	case config.ServiceGmail:
		api, err := gmail.NewAPI(ctx, account, f.logger)
		if err != nil {
			return nil, err
		}
		return gmail.NewMailbox(api, account, mc, f.textProcessor, f.logger), nil
	case config.ServiceOutlook:
		client := outlook.NewClientForAccount(account, mc, f.logger)
		return outlook.NewMailbox(client, account, mc, f.textProcessor, f.logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownService, account.Service)
	}
}
