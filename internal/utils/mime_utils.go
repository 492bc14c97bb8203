package utils

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"time"
)

// Envelope holds the headers of an outgoing message
type Envelope struct {
	From       string
	To         []string
	Subject    string
	MessageID  string
	InReplyTo  string
	References string
	Date       time.Time
}

// ReplySubject prefixes subject with "Re: " unless it already is a reply
func ReplySubject(subject string) string {
	trimmed := strings.TrimSpace(subject)
	if strings.HasPrefix(strings.ToLower(trimmed), "re:") {
		return trimmed
	}
	return "Re: " + trimmed
}

// ReplyReferences appends messageID to an existing References header
func ReplyReferences(references, messageID string) string {
	return strings.TrimSpace(strings.TrimSpace(references) + " " + messageID)
}

// ComposeAlternative builds an RFC 5322 multipart/alternative message with a
// plain part and an HTML part rendered from the same text
func (tp *TextProcessor) ComposeAlternative(env Envelope, text string) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	writeHeader := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&buf, "%s: %s\r\n", name, value)
		}
	}
	if !env.Date.IsZero() {
		writeHeader("Date", env.Date.Format(time.RFC1123Z))
	}
	writeHeader("From", env.From)
	writeHeader("To", strings.Join(env.To, ", "))
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", env.Subject))
	writeHeader("Message-ID", env.MessageID)
	writeHeader("In-Reply-To", env.InReplyTo)
	writeHeader("References", env.References)
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", "multipart/alternative; boundary="+mw.Boundary())
	buf.WriteString("\r\n")

	parts := []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=UTF-8", text},
		{"text/html; charset=UTF-8", tp.RenderHTML(text)},
	}
	for _, p := range parts {
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", p.contentType)
		header.Set("Content-Transfer-Encoding", "quoted-printable")
		pw, err := mw.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create message part: %w", err)
		}
		qp := quotedprintable.NewWriter(pw)
		if _, err := qp.Write([]byte(p.body)); err != nil {
			return nil, fmt.Errorf("failed to encode message part: %w", err)
		}
		if err := qp.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode message part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close message: %w", err)
	}
	return buf.Bytes(), nil
}
