package outlook

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/senders"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/utils"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/workerpool"
	"go.uber.org/zap"
)

const (
	folderInbox = "inbox"
	folderDraft = "drafts"
	folderSent  = "sentitems"

	reportLimit = 500

	messageFields = "id,conversationId,internetMessageId,from,toRecipients,subject,body,isRead,isDraft,receivedDateTime,parentFolderId,categories"
)

// Mailbox implements core.Mailbox and core.InboxReporter on Microsoft Graph
type Mailbox struct {
	client   *Client
	account  config.Account
	pool     *workerpool.Pool
	text     *utils.TextProcessor
	lookback time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewMailbox creates an Outlook mailbox backed by a Graph client
func NewMailbox(client *Client, account config.Account, cfg config.MailboxConfig, text *utils.TextProcessor, logger *zap.Logger) *Mailbox {
	lookback := cfg.Lookback
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &Mailbox{
		client:   client,
		account:  account,
		pool:     workerpool.New(cfg.Workers),
		text:     text,
		lookback: lookback,
		logger:   logger.With(zap.String("service", string(config.ServiceOutlook)), zap.String("account", account.Email)),
		now:      time.Now,
	}
}

// NewClientForAccount builds the Graph client of an Outlook account
func NewClientForAccount(account config.Account, cfg config.MailboxConfig, logger *zap.Logger) *Client {
	return NewClient(ClientConfig{
		BaseURL:      cfg.GraphURL,
		TenantID:     account.TenantID,
		ClientID:     account.ClientID,
		ClientSecret: account.ClientSecret,
		User:         account.Email,
	}, logger)
}

func (m *Mailbox) since(d time.Duration) string {
	return m.now().Add(-d).UTC().Format(time.RFC3339)
}

func (m *Mailbox) isSelf(sender string) bool {
	return senders.SameAddress(sender, m.account.Email)
}

func isReplySubject(subject string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(subject)), "re:")
}

// call runs one Graph request on the worker pool
func (m *Mailbox) call(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.pool.Do(ctx, fn)
}

func (m *Mailbox) folder(ctx context.Context, name string) (string, error) {
	var id string
	err := m.call(ctx, func(ctx context.Context) error {
		var err error
		id, err = m.client.folder(ctx, name)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s folder: %w", name, err)
	}
	return id, nil
}

func (m *Mailbox) list(ctx context.Context, query url.Values, limit int) ([]message, error) {
	var messages []message
	err := m.call(ctx, func(ctx context.Context) error {
		var err error
		messages, err = m.client.listMessages(ctx, query, limit)
		return err
	})
	return messages, err
}

func (m *Mailbox) toEmail(msg message) core.Email {
	email := core.Email{
		ID:        msg.ID,
		ThreadID:  msg.ConversationID,
		MessageID: msg.InternetMessageID,
		Subject:   msg.Subject,
		Unread:    !msg.IsRead,
		Labels:    msg.Categories,
	}
	if email.ThreadID == "" {
		email.ThreadID = msg.ID
	}
	if email.MessageID == "" {
		email.MessageID = msg.ID
	}
	if email.Subject == "" {
		email.Subject = "No Subject"
	}
	email.Sender = "Unknown"
	if msg.From != nil && msg.From.EmailAddress.Address != "" {
		email.Sender = msg.From.EmailAddress.Address
		email.SenderName = msg.From.EmailAddress.Name
	}
	if msg.Body != nil {
		body := m.text.SanitizeUTF8(msg.Body.Content)
		if strings.EqualFold(msg.Body.ContentType, "html") {
			body = m.text.HTMLToText(body)
		}
		email.Body = strings.TrimSpace(body)
	}
	if t, err := time.Parse(time.RFC3339, msg.ReceivedDateTime); err == nil {
		email.ReceivedAt = t.UTC()
	}
	return email
}

func (m *Mailbox) toDraft(msg message) core.Draft {
	draft := core.Draft{
		ID:       msg.ID,
		ThreadID: msg.ConversationID,
		Subject:  msg.Subject,
	}
	if len(msg.ToRecipients) > 0 {
		draft.To = msg.ToRecipients[0].EmailAddress.Address
	}
	if msg.Body != nil {
		body := msg.Body.Content
		if strings.EqualFold(msg.Body.ContentType, "html") {
			body = m.text.HTMLToText(body)
		}
		draft.Body = strings.TrimSpace(body)
	}
	if t, err := time.Parse(time.RFC3339, msg.CreatedDateTime); err == nil {
		draft.CreatedAt = t.UTC()
	}
	return draft
}

// draftMessages lists reply drafts from the drafts folder
func (m *Mailbox) draftMessages(ctx context.Context) ([]message, error) {
	folderID, err := m.folder(ctx, folderDraft)
	if err != nil {
		return nil, err
	}
	messages, err := m.list(ctx, url.Values{
		"$filter": {fmt.Sprintf("parentFolderId eq '%s' and isDraft eq true", folderID)},
		"$select": {"id,conversationId,subject,toRecipients,body,isDraft,parentFolderId,createdDateTime"},
	}, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	replies := make([]message, 0, len(messages))
	for _, msg := range messages {
		if msg.IsDraft && isReplySubject(msg.Subject) {
			replies = append(replies, msg)
		}
	}
	return replies, nil
}

// FetchUnanswered returns unread inbox messages received within the lookback,
// one per conversation, skipping conversations that already have a reply draft
// and mail from the account itself
func (m *Mailbox) FetchUnanswered(ctx context.Context, limit int) ([]core.Email, error) {
	inboxID, err := m.folder(ctx, folderInbox)
	if err != nil {
		return nil, err
	}

	query := url.Values{
		"$filter":  {fmt.Sprintf("receivedDateTime ge %s and parentFolderId eq '%s' and isRead eq false", m.since(m.lookback), inboxID)},
		"$orderby": {"receivedDateTime desc"},
		"$select":  {messageFields},
	}
	if limit > 0 {
		query.Set("$top", strconv.Itoa(limit))
	}
	messages, err := m.list(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unread messages: %w", err)
	}

	drafts, err := m.draftMessages(ctx)
	if err != nil {
		return nil, err
	}
	drafted := make(map[string]struct{}, len(drafts))
	for _, d := range drafts {
		if d.ConversationID != "" {
			drafted[d.ConversationID] = struct{}{}
		}
	}

	seen := map[string]struct{}{}
	emails := make([]core.Email, 0, len(messages))
	for _, msg := range messages {
		email := m.toEmail(msg)
		if _, ok := drafted[email.ThreadID]; ok {
			continue
		}
		if _, ok := seen[email.ThreadID]; ok {
			continue
		}
		seen[email.ThreadID] = struct{}{}
		if m.isSelf(email.Sender) {
			m.logger.Debug("Skipping message from own address", zap.String("email_id", email.ID))
			continue
		}
		emails = append(emails, email)
	}

	m.logger.Info("Fetched unanswered emails",
		zap.Int("listed", len(messages)),
		zap.Int("drafted_conversations", len(drafted)),
		zap.Int("unanswered", len(emails)))
	return emails, nil
}

func (m *Mailbox) htmlBody(text string) itemBody {
	return itemBody{ContentType: "HTML", Content: m.text.RenderHTML(text)}
}

// createReplyDraft creates a threaded reply draft with createReply and fills
// in the body
func (m *Mailbox) createReplyDraft(ctx context.Context, original core.Email, text string) (string, error) {
	var reply message
	err := m.call(ctx, func(ctx context.Context) error {
		return m.client.do(ctx, http.MethodPost, m.client.userPath("/messages/%s/createReply", url.PathEscape(original.ID)), nil, nil, &reply)
	})
	if err != nil {
		return "", err
	}
	if reply.ID == "" {
		return "", fmt.Errorf("createReply returned no draft id")
	}

	body := m.htmlBody(text)
	err = m.call(ctx, func(ctx context.Context) error {
		return m.client.do(ctx, http.MethodPatch, m.client.userPath("/messages/%s", url.PathEscape(reply.ID)), nil,
			map[string]interface{}{"body": body}, nil)
	})
	if err != nil {
		return "", err
	}
	return reply.ID, nil
}

// newMessage is the fallback reply when createReply is not available
func (m *Mailbox) newMessage(original core.Email, text string) message {
	return message{
		Subject:        utils.ReplySubject(original.Subject),
		Body:           &itemBody{ContentType: "HTML", Content: m.text.RenderHTML(text)},
		ToRecipients:   []recipient{{EmailAddress: emailAddress{Address: original.Sender}}},
		ConversationID: original.ThreadID,
	}
}

// CreateDraftReply stores a threaded reply draft, falling back to a plain
// draft in the drafts folder when createReply fails
func (m *Mailbox) CreateDraftReply(ctx context.Context, original core.Email, text string) error {
	if original.ID != "" {
		id, err := m.createReplyDraft(ctx, original, text)
		if err == nil {
			m.logger.Info("Draft reply created", zap.String("email_id", original.ID), zap.String("draft_id", id))
			return nil
		}
		m.logger.Warn("createReply failed, creating standalone draft", zap.String("email_id", original.ID), zap.Error(err))
	}

	var created message
	err := m.call(ctx, func(ctx context.Context) error {
		return m.client.do(ctx, http.MethodPost, m.client.userPath("/messages"), nil, m.newMessage(original, text), &created)
	})
	if err != nil {
		return fmt.Errorf("failed to create draft: %w", err)
	}
	m.logger.Info("Draft created", zap.String("email_id", original.ID), zap.String("draft_id", created.ID))
	return nil
}

// SendReply sends a threaded reply, falling back to sendMail when createReply fails
func (m *Mailbox) SendReply(ctx context.Context, original core.Email, text string) error {
	if original.ID != "" {
		id, err := m.createReplyDraft(ctx, original, text)
		if err == nil {
			err = m.call(ctx, func(ctx context.Context) error {
				return m.client.do(ctx, http.MethodPost, m.client.userPath("/messages/%s/send", url.PathEscape(id)), nil, nil, nil)
			})
			if err != nil {
				return fmt.Errorf("failed to send reply: %w", err)
			}
			m.logger.Info("Reply sent", zap.String("email_id", original.ID))
			return nil
		}
		m.logger.Warn("createReply failed, sending standalone reply", zap.String("email_id", original.ID), zap.Error(err))
	}

	msg := m.newMessage(original, text)
	msg.ConversationID = ""
	err := m.call(ctx, func(ctx context.Context) error {
		return m.client.do(ctx, http.MethodPost, m.client.userPath("/sendMail"), nil,
			map[string]interface{}{"message": msg, "saveToSentItems": true}, nil)
	})
	if err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	m.logger.Info("Reply sent", zap.String("email_id", original.ID))
	return nil
}

// FetchDraftReplies lists the reply drafts of the account
func (m *Mailbox) FetchDraftReplies(ctx context.Context) ([]core.Draft, error) {
	messages, err := m.draftMessages(ctx)
	if err != nil {
		return nil, err
	}
	drafts := make([]core.Draft, 0, len(messages))
	for _, msg := range messages {
		drafts = append(drafts, m.toDraft(msg))
	}
	return drafts, nil
}

func (m *Mailbox) recent(ctx context.Context, inboxID string, window time.Duration, limit int) ([]message, error) {
	query := url.Values{
		"$filter":  {fmt.Sprintf("receivedDateTime ge %s and parentFolderId eq '%s'", m.since(window), inboxID)},
		"$orderby": {"receivedDateTime desc"},
		"$select":  {messageFields},
	}
	if limit > 0 && limit < 1000 {
		query.Set("$top", strconv.Itoa(limit))
	}
	return m.list(ctx, query, limit)
}

// FetchRecent lists inbox messages received within the window, newest first
func (m *Mailbox) FetchRecent(ctx context.Context, window time.Duration, limit int) ([]core.Email, error) {
	inboxID, err := m.folder(ctx, folderInbox)
	if err != nil {
		return nil, err
	}
	messages, err := m.recent(ctx, inboxID, window, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}
	emails := make([]core.Email, 0, len(messages))
	for _, msg := range messages {
		emails = append(emails, m.toEmail(msg))
	}
	return emails, nil
}

// replyCount counts conversations with a reply sent within the window
func (m *Mailbox) replyCount(ctx context.Context, window time.Duration) (int, error) {
	sentID, err := m.folder(ctx, folderSent)
	if err != nil {
		return 0, err
	}
	messages, err := m.list(ctx, url.Values{
		"$filter": {fmt.Sprintf("sentDateTime ge %s and parentFolderId eq '%s'", m.since(window), sentID)},
		"$select": {"id,conversationId,subject,sentDateTime,parentFolderId"},
	}, reportLimit)
	if err != nil {
		return 0, err
	}

	conversations := map[string]struct{}{}
	for _, msg := range messages {
		if msg.ConversationID != "" && isReplySubject(msg.Subject) {
			conversations[msg.ConversationID] = struct{}{}
		}
	}
	return len(conversations), nil
}

// Stats counts inbox messages within the window by state. Reply and draft
// counts are best effort.
func (m *Mailbox) Stats(ctx context.Context, window time.Duration) (*core.InboxStats, error) {
	inboxID, err := m.folder(ctx, folderInbox)
	if err != nil {
		return nil, err
	}
	messages, err := m.recent(ctx, inboxID, window, reportLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}

	stats := &core.InboxStats{Total: len(messages)}
	for _, msg := range messages {
		if !msg.IsRead {
			stats.Unread++
		}
	}
	stats.Read = stats.Total - stats.Unread

	if replied, err := m.replyCount(ctx, window); err != nil {
		m.logger.Warn("Failed to count replies", zap.Error(err))
	} else {
		stats.Replied = replied
	}
	if drafts, err := m.draftMessages(ctx); err != nil {
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
