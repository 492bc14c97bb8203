package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/senders"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/utils"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/workerpool"
	"go.uber.org/zap"
	gmail "google.golang.org/api/gmail/v1"
)

const (
	userID = "me"

	// reportLimit caps the messages inspected for inbox statistics
	reportLimit = 500
)

var errStopPaging = errors.New("stop paging")

// Mailbox implements core.Mailbox and core.InboxReporter on the Gmail API
type Mailbox struct {
	api      *gmail.Service
	account  config.Account
	pool     *workerpool.Pool
	text     *utils.TextProcessor
	lookback time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewMailbox creates a Gmail mailbox for an authorized account
func NewMailbox(api *gmail.Service, account config.Account, cfg config.MailboxConfig, text *utils.TextProcessor, logger *zap.Logger) *Mailbox {
	lookback := cfg.Lookback
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &Mailbox{
		api:      api,
		account:  account,
		pool:     workerpool.New(cfg.Workers),
		text:     text,
		lookback: lookback,
		logger:   logger.With(zap.String("service", string(config.ServiceGmail)), zap.String("account", account.Email)),
		now:      time.Now,
	}
}

// unansweredQuery returns the search for unread inbox mail within the lookback
func (m *Mailbox) unansweredQuery() string {
	days := int((m.lookback + 24*time.Hour - 1) / (24 * time.Hour))
	if days < 1 {
		days = 1
	}
	return fmt.Sprintf("is:unread in:inbox newer_than:%dd", days)
}

func (m *Mailbox) windowQuery(window time.Duration) string {
	return fmt.Sprintf("in:inbox after:%d", m.now().Add(-window).Unix())
}

func (m *Mailbox) listMessages(ctx context.Context, query string, limit int) ([]*gmail.Message, error) {
	call := m.api.Users.Messages.List(userID).Q(query)
	if limit > 0 && limit <= 500 {
		call = call.MaxResults(int64(limit))
	}

	var refs []*gmail.Message
	err := call.Pages(ctx, func(page *gmail.ListMessagesResponse) error {
		refs = append(refs, page.Messages...)
		if limit > 0 && len(refs) >= limit {
			refs = refs[:limit]
			return errStopPaging
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopPaging) {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return refs, nil
}

// getMessages fetches messages on the worker pool. Messages that fail to load
// are logged and left nil.
func (m *Mailbox) getMessages(ctx context.Context, refs []*gmail.Message, format string) ([]*gmail.Message, error) {
	messages := make([]*gmail.Message, len(refs))
	err := m.pool.ForEach(ctx, len(refs), func(ctx context.Context, i int) error {
		msg, err := m.api.Users.Messages.Get(userID, refs[i].Id).Format(format).Context(ctx).Do()
		if err != nil {
			m.logger.Warn("Failed to fetch message", zap.String("email_id", refs[i].Id), zap.Error(err))
			return nil
		}
		messages[i] = msg
		return nil
	})
	return messages, err
}

func (m *Mailbox) listDrafts(ctx context.Context) ([]*gmail.Draft, error) {
	var drafts []*gmail.Draft
	err := m.api.Users.Drafts.List(userID).Pages(ctx, func(page *gmail.ListDraftsResponse) error {
		drafts = append(drafts, page.Drafts...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return drafts, nil
}

func (m *Mailbox) isSelf(sender string) bool {
	return senders.SameAddress(sender, m.account.Email)
}

// FetchUnanswered returns unread inbox messages, one per thread, skipping
// threads that already have a draft, drafts and sent mail, and mail from the
// account itself
func (m *Mailbox) FetchUnanswered(ctx context.Context, limit int) ([]core.Email, error) {
	refs, err := m.listMessages(ctx, m.unansweredQuery(), limit)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return []core.Email{}, nil
	}

	drafts, err := m.listDrafts(ctx)
	if err != nil {
		return nil, err
	}
	drafted := make(map[string]struct{}, len(drafts))
	for _, d := range drafts {
		if d.Message != nil && d.Message.ThreadId != "" {
			drafted[d.Message.ThreadId] = struct{}{}
		}
	}

	candidates := make([]*gmail.Message, 0, len(refs))
	for _, ref := range refs {
		if _, ok := drafted[ref.ThreadId]; ok {
			continue
		}
		candidates = append(candidates, ref)
	}

	messages, err := m.getMessages(ctx, candidates, "full")
	if err != nil {
		return nil, err
	}

	seenThreads := map[string]struct{}{}
	emails := make([]core.Email, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		if _, seen := seenThreads[msg.ThreadId]; seen {
			continue
		}
		if !hasLabel(msg.LabelIds, labelUnread) || hasLabel(msg.LabelIds, labelDraft, labelSent) {
			continue
		}
		seenThreads[msg.ThreadId] = struct{}{}

		email := toEmail(msg, m.text)
		if m.isSelf(email.Sender) {
			m.logger.Debug("Skipping message from own address", zap.String("email_id", email.ID))
			continue
		}
		emails = append(emails, email)
	}

	m.logger.Info("Fetched unanswered emails",
		zap.Int("listed", len(refs)),
		zap.Int("drafted_threads", len(drafted)),
		zap.Int("unanswered", len(emails)))
	return emails, nil
}

func (m *Mailbox) reply(original core.Email, text string, send bool) (*gmail.Message, error) {
	env := utils.Envelope{
		To:      []string{original.Sender},
		Subject: utils.ReplySubject(original.Subject),
		Date:    m.now(),
	}
	if original.MessageID != "" {
		env.InReplyTo = original.MessageID
		env.References = utils.ReplyReferences(original.References, original.MessageID)
		if send {
			domain := "gmail.com"
			if at := strings.LastIndex(m.account.Email, "@"); at >= 0 {
				domain = m.account.Email[at+1:]
			}
			env.MessageID = fmt.Sprintf("<%s@%s>", uuid.New().String(), domain)
		}
	}

	raw, err := m.text.ComposeAlternative(env, text)
	if err != nil {
		return nil, err
	}
	return &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString(raw),
		ThreadId: original.ThreadID,
	}, nil
}

// CreateDraftReply stores a threaded reply draft
func (m *Mailbox) CreateDraftReply(ctx context.Context, original core.Email, text string) error {
	msg, err := m.reply(original, text, false)
	if err != nil {
		return fmt.Errorf("failed to build reply: %w", err)
	}
	return m.pool.Do(ctx, func(ctx context.Context) error {
		draft, err := m.api.Users.Drafts.Create(userID, &gmail.Draft{Message: msg}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to create draft: %w", err)
		}
		m.logger.Info("Draft reply created", zap.String("email_id", original.ID), zap.String("draft_id", draft.Id))
		return nil
	})
}

// SendReply sends a threaded reply
func (m *Mailbox) SendReply(ctx context.Context, original core.Email, text string) error {
	msg, err := m.reply(original, text, true)
	if err != nil {
		return fmt.Errorf("failed to build reply: %w", err)
	}
	return m.pool.Do(ctx, func(ctx context.Context) error {
		sent, err := m.api.Users.Messages.Send(userID, msg).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to send reply: %w", err)
		}
		m.logger.Info("Reply sent", zap.String("email_id", original.ID), zap.String("message_id", sent.Id))
		return nil
	})
}

// FetchDraftReplies lists the drafts of the account with their headers and body
func (m *Mailbox) FetchDraftReplies(ctx context.Context) ([]core.Draft, error) {
	listed, err := m.listDrafts(ctx)
	if err != nil {
		return nil, err
	}

	drafts := make([]core.Draft, len(listed))
	err = m.pool.ForEach(ctx, len(listed), func(ctx context.Context, i int) error {
		full, err := m.api.Users.Drafts.Get(userID, listed[i].Id).Format("full").Context(ctx).Do()
		if err != nil {
			m.logger.Warn("Failed to fetch draft", zap.String("draft_id", listed[i].Id), zap.Error(err))
			full = listed[i]
		}
		drafts[i] = toDraft(full, m.text)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

// FetchRecent lists inbox messages received within the window, newest first
func (m *Mailbox) FetchRecent(ctx context.Context, window time.Duration, limit int) ([]core.Email, error) {
	refs, err := m.listMessages(ctx, m.windowQuery(window), limit)
	if err != nil {
		return nil, err
	}
	messages, err := m.getMessages(ctx, refs, "full")
	if err != nil {
		return nil, err
	}

	emails := make([]core.Email, 0, len(messages))
	for _, msg := range messages {
		if msg == nil || !hasLabel(msg.LabelIds, labelInbox) {
			continue
		}
		emails = append(emails, toEmail(msg, m.text))
	}
	sort.SliceStable(emails, func(i, j int) bool {
		return emails[i].ReceivedAt.After(emails[j].ReceivedAt)
	})
	return emails, nil
}

// Stats counts inbox messages within the window by state
func (m *Mailbox) Stats(ctx context.Context, window time.Duration) (*core.InboxStats, error) {
	refs, err := m.listMessages(ctx, m.windowQuery(window), reportLimit)
	if err != nil {
		return nil, err
	}
	messages, err := m.getMessages(ctx, refs, "minimal")
	if err != nil {
		return nil, err
	}

	stats := &core.InboxStats{}
	for _, msg := range messages {
		if msg == nil || !hasLabel(msg.LabelIds, labelInbox) || hasLabel(msg.LabelIds, labelTrash, labelDraft) {
			continue
		}
		stats.Total++
		if hasLabel(msg.LabelIds, labelUnread) {
			stats.Unread++
		}
		if hasLabel(msg.LabelIds, labelSent) {
			stats.Replied++
		}
	}
	stats.Read = stats.Total - stats.Unread

	drafts, err := m.listDrafts(ctx)
	if err != nil {
		m.logger.Warn("Failed to count drafts", zap.Error(err))
	} else {
		stats.Drafted = len(drafts)
	}
	return stats, nil
}

// Cleanup releases the worker pool
func (m *Mailbox) Cleanup() error {
	return m.pool.Close()
}
