package notify

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/utils"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// SMTPNotifier mails a summary of every finished run through an SMTP relay
type SMTPNotifier struct {
	addr     string
	from     string
	to       []string
	hostname string
	timeout  time.Duration
	text     *utils.TextProcessor
	logger   *zap.Logger
}

// NewSMTPNotifier creates a notifier for the configured relay
func NewSMTPNotifier(cfg config.NotifyConfig, text *utils.TextProcessor, logger *zap.Logger) (*SMTPNotifier, error) {
	if cfg.From == "" {
		return nil, fmt.Errorf("notify.smtp.from is not set")
	}
	if len(cfg.To) == 0 {
		return nil, fmt.Errorf("notify.smtp.to has no recipients")
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	return &SMTPNotifier{
		addr:     net.JoinHostPort(cfg.Address, fmt.Sprint(cfg.Port)),
		from:     cfg.From,
		to:       cfg.To,
		hostname: hostname,
		timeout:  defaultTimeout,
		text:     text,
		logger:   logger,
	}, nil
}

// NotifyRun sends the summary of one run
func (n *SMTPNotifier) NotifyRun(ctx context.Context, record *core.RunRecord) error {
	msg, err := n.text.ComposeAlternative(utils.Envelope{
		From:      n.from,
		To:        n.to,
		Subject:   Subject(record),
		MessageID: fmt.Sprintf("<%s@%s>", uuid.New().String(), domainOf(n.from)),
		Date:      time.Now(),
	}, Summary(record))
	if err != nil {
		return fmt.Errorf("failed to compose run summary: %w", err)
	}

	if err := n.send(ctx, msg); err != nil {
		return err
	}
	n.logger.Debug("Run summary sent", zap.String("run_id", record.ID), zap.Strings("to", n.to))
	return nil
}

func (n *SMTPNotifier) send(ctx context.Context, msg []byte) error {
	dialer := net.Dialer{Timeout: n.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", n.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP relay: %w", err)
	}

	deadline := time.Now().Add(n.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(n.hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(n.from, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range n.to {
		if err := c.Rcpt(recipient, nil); err != nil {
			n.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
		} else {
			recipientOK = true
		}
	}
	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(msg); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		n.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

// Subject returns the summary subject line for a run
func Subject(record *core.RunRecord) string {
	return fmt.Sprintf("[email-automation] %s run %s for %s", record.Service, record.Status, record.Account)
}

// Summary renders a run record as a short markdown report
func Summary(record *core.RunRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Run **%s** for %s (%s) finished with status **%s**.\n\n", record.ID, record.Account, record.Service, record.Status)
	fmt.Fprintf(&sb, "- Processed emails: %d\n", record.ProcessedEmails)
	fmt.Fprintf(&sb, "- Drafts created: %d\n", record.DraftsCreated)
	fmt.Fprintf(&sb, "- Started: %s\n", record.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "- Duration: %s\n", record.FinishedAt.Sub(record.StartedAt).Round(time.Second))
	if record.Message != "" {
		fmt.Fprintf(&sb, "\n%s\n", record.Message)
	}
	return sb.String()
}

func domainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i < len(address)-1 {
		return strings.Trim(address[i+1:], "> ")
	}
	return "localhost"
}
