package utils

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReplySubject(t *testing.T) {
	assert.Equal(t, "Re: Truck 42", ReplySubject("Truck 42"))
	assert.Equal(t, "RE: Truck 42", ReplySubject("RE: Truck 42"))
	assert.Equal(t, "re: hi", ReplySubject("  re: hi "))
}

func TestReplyReferences(t *testing.T) {
	assert.Equal(t, "<a@x> <b@x>", ReplyReferences("<a@x>", "<b@x>"))
	assert.Equal(t, "<b@x>", ReplyReferences("", "<b@x>"))
}

func TestComposeAlternative(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	raw, err := tp.ComposeAlternative(Envelope{
		To:         []string{"customer@example.com"},
		Subject:    "Re: Où est mon camion?",
		InReplyTo:  "<orig@example.com>",
		References: "<orig@example.com>",
	}, "Hello,\n\nYour truck is in **Lyon**.")
	require.NoError(t, err)

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Re: Où est mon camion?", subject)
	assert.Equal(t, "customer@example.com", msg.Header.Get("To"))
	assert.Equal(t, "<orig@example.com>", msg.Header.Get("In-Reply-To"))
	assert.Empty(t, msg.Header.Get("Message-ID"))

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	var types, bodies []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(part)
		require.NoError(t, err)
		types = append(types, part.Header.Get("Content-Type"))
		bodies = append(bodies, strings.ReplaceAll(string(body), "\r\n", "\n"))
	}

	require.Len(t, types, 2)
	assert.Equal(t, "text/plain; charset=UTF-8", types[0])
	assert.Equal(t, "text/html; charset=UTF-8", types[1])
	assert.Equal(t, "Hello,\n\nYour truck is in **Lyon**.", bodies[0])
	assert.Contains(t, bodies[1], "<strong>Lyon</strong>")
}
