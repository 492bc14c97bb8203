package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/utils"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/workerpool"
	"go.uber.org/zap"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const apiPrefix = "/gmail/v1/users/me/"

type fakeGmail struct {
	mu        sync.Mutex
	order     []string
	messages  map[string]map[string]interface{}
	drafts    []map[string]interface{}
	created   []map[string]interface{}
	sent      []map[string]interface{}
	gets      map[string]int
	lastQuery string
}

func newFakeGmail() *fakeGmail {
	return &fakeGmail{
		messages: map[string]map[string]interface{}{},
		gets:     map[string]int{},
	}
}

func (f *fakeGmail) add(msg map[string]interface{}) {
	id := msg["id"].(string)
	f.order = append(f.order, id)
	f.messages[id] = msg
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeGmail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, apiPrefix)
	switch {
	case path == "messages" && r.Method == http.MethodGet:
		f.lastQuery = r.URL.Query().Get("q")
		refs := make([]map[string]string, 0, len(f.order))
		for _, id := range f.order {
			refs = append(refs, map[string]string{"id": id, "threadId": f.messages[id]["threadId"].(string)})
		}
		writeJSON(w, map[string]interface{}{"messages": refs})

	case path == "messages/send" && r.Method == http.MethodPost:
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.sent = append(f.sent, body)
		writeJSON(w, map[string]string{"id": "sent-1", "threadId": body["threadId"].(string)})

	case strings.HasPrefix(path, "messages/"):
		id := strings.TrimPrefix(path, "messages/")
		f.gets[id]++
		msg, ok := f.messages[id]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		writeJSON(w, msg)

	case path == "drafts" && r.Method == http.MethodGet:
		writeJSON(w, map[string]interface{}{"drafts": f.drafts})

	case path == "drafts" && r.Method == http.MethodPost:
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.created = append(f.created, body)
		writeJSON(w, map[string]string{"id": "draft-new"})

	case strings.HasPrefix(path, "drafts/"):
		id := strings.TrimPrefix(path, "drafts/")
		for _, d := range f.drafts {
			if d["id"] == id {
				writeJSON(w, d)
				return
			}
		}
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)

	default:
		http.NotFound(w, r)
	}
}

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func headers(kv ...string) []map[string]string {
	out := make([]map[string]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, map[string]string{"name": kv[i], "value": kv[i+1]})
	}
	return out
}

func plainMessage(id, thread, from, subject, body string, labels ...string) map[string]interface{} {
	return map[string]interface{}{
		"id":           id,
		"threadId":     thread,
		"labelIds":     labels,
		"internalDate": "1741600000000",
		"payload": map[string]interface{}{
			"mimeType": "text/plain",
			"headers":  headers("From", from, "Subject", subject, "Message-ID", "<"+id+"@mail.example>"),
			"body":     map[string]string{"data": b64(body)},
		},
	}
}

func newTestMailbox(t *testing.T, fake *fakeGmail) *Mailbox {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	api, err := gmail.NewService(context.Background(),
		option.WithHTTPClient(server.Client()),
		option.WithEndpoint(server.URL+"/"))
	require.NoError(t, err)

	account := config.Account{Service: config.ServiceGmail, Email: "support@fleet.example"}
	mb := NewMailbox(api, account, config.MailboxConfig{Workers: 2, Lookback: 24 * time.Hour}, utils.NewTextProcessor(zap.NewNop()), zap.NewNop())
	mb.now = func() time.Time { return time.Unix(1741600000, 0) }
	t.Cleanup(func() { _ = mb.Cleanup() })
	return mb
}

func TestFetchUnansweredFiltersThreads(t *testing.T) {
	fake := newFakeGmail()
	fake.add(plainMessage("m1", "t1", "Ann <ann@customer.example>", "Where is truck 42?", "Please share the location.", "INBOX", "UNREAD"))
	fake.add(map[string]interface{}{
		"id":       "m2",
		"threadId": "t2",
		"labelIds": []string{"INBOX", "UNREAD"},
		"payload": map[string]interface{}{
			"mimeType": "multipart/alternative",
			"headers":  headers("From", "bob@customer.example", "Subject", "Invoice", "References", "<root@mail.example>"),
			"parts": []map[string]interface{}{
				{"mimeType": "text/html", "body": map[string]string{"data": b64("<p>HTML copy</p>")}},
				{"mimeType": "text/plain", "body": map[string]string{"data": b64("Plain copy")}},
			},
		},
	})
	fake.add(map[string]interface{}{
		"id":       "m3",
		"threadId": "t3",
		"labelIds": []string{"INBOX", "UNREAD"},
		"payload": map[string]interface{}{
			"mimeType": "text/html",
			"headers":  headers("From", "cara@customer.example"),
			"body":     map[string]string{"data": b64("<div>Hello<br>there</div>")},
		},
	})
	fake.add(plainMessage("m4", "t1", "ann@customer.example", "Re: Where is truck 42?", "Follow up", "INBOX", "UNREAD"))
	fake.add(plainMessage("m5", "t5", "Support <Support@fleet.example>", "Note to self", "x", "INBOX", "UNREAD"))
	fake.add(plainMessage("m6", "t6", "dan@customer.example", "Sent copy", "x", "INBOX", "UNREAD", "SENT"))
	fake.add(plainMessage("m7", "t7", "eve@customer.example", "Already drafted", "x", "INBOX", "UNREAD"))
	fake.add(plainMessage("m8", "t8", "fay@customer.example", "Read already", "x", "INBOX"))
	fake.add(plainMessage("m9", "t9", "Customer <help.support@fleet.example>", "Lookalike address", "x", "INBOX", "UNREAD"))
	fake.drafts = []map[string]interface{}{
		{"id": "d1", "message": map[string]string{"id": "dm1", "threadId": "t7"}},
	}

	mb := newTestMailbox(t, fake)
	emails, err := mb.FetchUnanswered(context.Background(), 50)
	require.NoError(t, err)

	assert.Equal(t, "is:unread in:inbox newer_than:1d", fake.lastQuery)
	require.Len(t, emails, 4)
	assert.Equal(t, []string{"m1", "m2", "m3", "m9"}, []string{emails[0].ID, emails[1].ID, emails[2].ID, emails[3].ID})

	assert.Equal(t, "t1", emails[0].ThreadID)
	assert.Equal(t, "<m1@mail.example>", emails[0].MessageID)
	assert.Equal(t, "Please share the location.", emails[0].Body)
	assert.True(t, emails[0].Unread)
	assert.Equal(t, time.UnixMilli(1741600000000).UTC(), emails[0].ReceivedAt)

	assert.Equal(t, "Plain copy", emails[1].Body)
	assert.Equal(t, "<root@mail.example>", emails[1].References)

	assert.Equal(t, "Hello\nthere", emails[2].Body)
	assert.Equal(t, "No Subject", emails[2].Subject)

	assert.Zero(t, fake.gets["m7"], "drafted threads are not fetched")
}

func TestFetchUnansweredEmptyInbox(t *testing.T) {
	mb := newTestMailbox(t, newFakeGmail())
	emails, err := mb.FetchUnanswered(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, emails)
}

func decodeRaw(t *testing.T, body map[string]interface{}) *mail.Message {
	t.Helper()
	raw, err := base64.URLEncoding.DecodeString(body["raw"].(string))
	require.NoError(t, err)
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	return msg
}

func TestCreateDraftReplyThreadsReply(t *testing.T) {
	fake := newFakeGmail()
	mb := newTestMailbox(t, fake)

	original := toEmail(&gmail.Message{
		Id:       "m1",
		ThreadId: "t1",
		Payload: &gmail.MessagePart{Headers: []*gmail.MessagePartHeader{
			{Name: "From", Value: "ann@customer.example"},
			{Name: "Subject", Value: "Where is truck 42?"},
			{Name: "Message-ID", Value: "<m1@mail.example>"},
			{Name: "References", Value: "<root@mail.example>"},
		}},
	}, mb.text)

	require.NoError(t, mb.CreateDraftReply(context.Background(), original, "Truck 42 is in Lyon."))
	require.Len(t, fake.created, 1)

	message := fake.created[0]["message"].(map[string]interface{})
	assert.Equal(t, "t1", message["threadId"])

	msg := decodeRaw(t, message)
	assert.Equal(t, "ann@customer.example", msg.Header.Get("To"))
	assert.Equal(t, "Re: Where is truck 42?", msg.Header.Get("Subject"))
	assert.Equal(t, "<m1@mail.example>", msg.Header.Get("In-Reply-To"))
	assert.Equal(t, "<root@mail.example> <m1@mail.example>", msg.Header.Get("References"))
	assert.Empty(t, msg.Header.Get("Message-ID"))
	assert.Contains(t, msg.Header.Get("Content-Type"), "multipart/alternative")
}

func TestSendReplyAddsMessageID(t *testing.T) {
	fake := newFakeGmail()
	mb := newTestMailbox(t, fake)

	email := toEmail(&gmail.Message{
		Id:       "m1",
		ThreadId: "t1",
		Payload: &gmail.MessagePart{Headers: []*gmail.MessagePartHeader{
			{Name: "From", Value: "ann@customer.example"},
			{Name: "Subject", Value: "Re: Invoice"},
			{Name: "Message-ID", Value: "<m1@mail.example>"},
		}},
	}, mb.text)

	require.NoError(t, mb.SendReply(context.Background(), email, "Thanks"))
	require.Len(t, fake.sent, 1)
	assert.Equal(t, "t1", fake.sent[0]["threadId"])

	msg := decodeRaw(t, fake.sent[0])
	assert.Equal(t, "Re: Invoice", msg.Header.Get("Subject"))
	assert.True(t, strings.HasSuffix(msg.Header.Get("Message-ID"), "@fleet.example>"))
}

func TestFetchDraftReplies(t *testing.T) {
	fake := newFakeGmail()
	fake.drafts = []map[string]interface{}{
		{
			"id": "d1",
			"message": map[string]interface{}{
				"id":       "dm1",
				"threadId": "t1",
				"payload": map[string]interface{}{
					"mimeType": "text/plain",
					"headers":  headers("To", "ann@customer.example", "Subject", "Re: Where is truck 42?"),
					"body":     map[string]string{"data": b64("Truck 42 is in Lyon.")},
				},
			},
		},
	}
	mb := newTestMailbox(t, fake)

	drafts, err := mb.FetchDraftReplies(context.Background())
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "d1", drafts[0].ID)
	assert.Equal(t, "t1", drafts[0].ThreadID)
	assert.Equal(t, "Re: Where is truck 42?", drafts[0].Subject)
	assert.Equal(t, "ann@customer.example", drafts[0].To)
	assert.Equal(t, "Truck 42 is in Lyon.", drafts[0].Body)
}

func TestStatsCountsInboxStates(t *testing.T) {
	fake := newFakeGmail()
	fake.add(plainMessage("m1", "t1", "a@x", "a", "x", "INBOX", "UNREAD"))
	fake.add(plainMessage("m2", "t2", "b@x", "b", "x", "INBOX"))
	fake.add(plainMessage("m3", "t3", "c@x", "c", "x", "INBOX", "SENT"))
	fake.add(plainMessage("m4", "t4", "d@x", "d", "x", "INBOX", "TRASH"))
	fake.add(plainMessage("m5", "t5", "e@x", "e", "x", "CATEGORY_PROMOTIONS"))
	fake.drafts = []map[string]interface{}{{"id": "d1", "message": map[string]string{"id": "dm1", "threadId": "t1"}}}
	mb := newTestMailbox(t, fake)

	stats, err := mb.Stats(context.Background(), 48*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "in:inbox after:1741427200", fake.lastQuery)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Unread)
	assert.Equal(t, 2, stats.Read)
	assert.Equal(t, 1, stats.Replied)
	assert.Equal(t, 1, stats.Drafted)
}

func TestCleanupIsIdempotent(t *testing.T) {
	mb := newTestMailbox(t, newFakeGmail())
	require.NoError(t, mb.Cleanup())
	require.NoError(t, mb.Cleanup())

	_, err := mb.FetchDraftReplies(context.Background())
	assert.ErrorIs(t, err, workerpool.ErrPoolClosed)
}

func TestUnansweredQueryRoundsUpDays(t *testing.T) {
	mb := &Mailbox{lookback: 36 * time.Hour}
	assert.Equal(t, "is:unread in:inbox newer_than:2d", mb.unansweredQuery())
}
