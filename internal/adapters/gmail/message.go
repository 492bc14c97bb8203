package gmail

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/utils"
	gmail "google.golang.org/api/gmail/v1"
)

// Gmail system labels
const (
	labelInbox  = "INBOX"
	labelUnread = "UNREAD"
	labelDraft  = "DRAFT"
	labelSent   = "SENT"
	labelTrash  = "TRASH"
)

func hasLabel(labels []string, want ...string) bool {
	for _, l := range labels {
		for _, w := range want {
			if l == w {
				return true
			}
		}
	}
	return false
}

// headerMap indexes message headers by lower-cased name
func headerMap(part *gmail.MessagePart) map[string]string {
	headers := map[string]string{}
	if part == nil {
		return headers
	}
	for _, h := range part.Headers {
		name := strings.ToLower(h.Name)
		if _, ok := headers[name]; !ok {
			headers[name] = h.Value
		}
	}
	return headers
}

func decodeData(data string) string {
	if data == "" {
		return ""
	}
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			return ""
		}
	}
	return strings.TrimSpace(string(decoded))
}

// findPart returns the first part of the given MIME type, depth first
func findPart(part *gmail.MessagePart, mimeType string) *gmail.MessagePart {
	if part == nil {
		return nil
	}
	if strings.EqualFold(part.MimeType, mimeType) && part.Body != nil && part.Body.Data != "" {
		return part
	}
	for _, p := range part.Parts {
		if found := findPart(p, mimeType); found != nil {
			return found
		}
	}
	return nil
}

// extractBody prefers the plain text part and falls back to the HTML part
func extractBody(payload *gmail.MessagePart, text *utils.TextProcessor) string {
	if p := findPart(payload, "text/plain"); p != nil {
		return text.SanitizeUTF8(decodeData(p.Body.Data))
	}
	if p := findPart(payload, "text/html"); p != nil {
		return text.HTMLToText(text.SanitizeUTF8(decodeData(p.Body.Data)))
	}
	return ""
}

// toEmail normalises a full-format Gmail message
func toEmail(msg *gmail.Message, text *utils.TextProcessor) core.Email {
	headers := headerMap(msg.Payload)
	sender := headers["from"]
	if sender == "" {
		sender = "Unknown"
	}
	subject := headers["subject"]
	if subject == "" {
		subject = "No Subject"
	}

	var received time.Time
	if msg.InternalDate > 0 {
		received = time.UnixMilli(msg.InternalDate).UTC()
	}

	return core.Email{
		ID:         msg.Id,
		ThreadID:   msg.ThreadId,
		MessageID:  headers["message-id"],
		References: headers["references"],
		Sender:     sender,
		Subject:    subject,
		Body:       extractBody(msg.Payload, text),
		Unread:     hasLabel(msg.LabelIds, labelUnread),
		Labels:     msg.LabelIds,
		ReceivedAt: received,
	}
}

func toDraft(d *gmail.Draft, text *utils.TextProcessor) core.Draft {
	draft := core.Draft{ID: d.Id}
	if d.Message == nil {
		return draft
	}
	draft.ThreadID = d.Message.ThreadId
	headers := headerMap(d.Message.Payload)
	draft.Subject = headers["subject"]
	draft.To = headers["to"]
	draft.Body = extractBody(d.Message.Payload, text)
	if d.Message.InternalDate > 0 {
		draft.CreatedAt = time.UnixMilli(d.Message.InternalDate).UTC()
	}
	return draft
}
