package outlook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/utils"
	"go.uber.org/zap"
)

const testUser = "support@fleet.example"

type graphCall struct {
	Method string
	Path   string
	Body   map[string]interface{}
}

type fakeGraph struct {
	mu              sync.Mutex
	url             string
	tokens          int
	rejectToken     string
	failCreateReply bool
	inbox           []message
	inboxPage2      []message
	drafts          []message
	sent            []message
	calls           []graphCall
	filters         []string
}

func (f *fakeGraph) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/token" {
		f.tokens++
		writeJSON(w, map[string]interface{}{
			"access_token": fmt.Sprintf("tok%d", f.tokens),
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
		return
	}

	if auth := r.Header.Get("Authorization"); f.rejectToken != "" && auth == "Bearer "+f.rejectToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var body map[string]interface{}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1.0/users/"+testUser)
	f.calls = append(f.calls, graphCall{Method: r.Method, Path: path, Body: body})

	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/mailFolders/"):
		writeJSON(w, mailFolder{ID: strings.TrimPrefix(path, "/mailFolders/") + "-id"})

	case r.Method == http.MethodGet && path == "/messages":
		if r.URL.Query().Get("page") == "2" {
			writeJSON(w, messageList{Value: f.inboxPage2})
			return
		}
		filter := r.URL.Query().Get("$filter")
		f.filters = append(f.filters, filter)
		switch {
		case strings.Contains(filter, "'inbox-id'"):
			list := messageList{Value: f.inbox}
			if len(f.inboxPage2) > 0 {
				list.NextLink = f.url + "/v1.0/users/" + testUser + "/messages?page=2"
			}
			writeJSON(w, list)
		case strings.Contains(filter, "'drafts-id'"):
			writeJSON(w, messageList{Value: f.drafts})
		case strings.Contains(filter, "'sentitems-id'"):
			writeJSON(w, messageList{Value: f.sent})
		default:
			writeJSON(w, messageList{})
		}

	case r.Method == http.MethodPost && strings.HasSuffix(path, "/createReply"):
		if f.failCreateReply {
			http.Error(w, `{"error":{"code":"ErrorItemNotFound"}}`, http.StatusNotFound)
			return
		}
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/messages/"), "/createReply")
		writeJSON(w, message{ID: "reply-" + id, ConversationID: "conv-" + id, Subject: "RE: original"})

	case r.Method == http.MethodPatch:
		writeJSON(w, message{ID: strings.TrimPrefix(path, "/messages/")})

	case r.Method == http.MethodPost && strings.HasSuffix(path, "/send"):
		w.WriteHeader(http.StatusAccepted)

	case r.Method == http.MethodPost && path == "/messages":
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, message{ID: "new-draft"})

	case r.Method == http.MethodPost && path == "/sendMail":
		w.WriteHeader(http.StatusAccepted)

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeGraph) callsTo(method, suffix string) []graphCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []graphCall
	for _, c := range f.calls {
		if c.Method == method && strings.HasSuffix(c.Path, suffix) {
			out = append(out, c)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	_ = json.NewEncoder(w).Encode(v)
}

func from(addr string) *recipient {
	return &recipient{EmailAddress: emailAddress{Address: addr}}
}

func newTestMailbox(t *testing.T, fake *fakeGraph) *Mailbox {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	fake.url = server.URL

	client := NewClient(ClientConfig{
		BaseURL:      server.URL + "/v1.0",
		TokenURL:     server.URL + "/token",
		ClientID:     "client",
		ClientSecret: "secret",
		User:         testUser,
	}, zap.NewNop())

	account := config.Account{Service: config.ServiceOutlook, Email: testUser}
	mb := NewMailbox(client, account, config.MailboxConfig{Workers: 2}, utils.NewTextProcessor(zap.NewNop()), zap.NewNop())
	mb.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = mb.Cleanup() })
	return mb
}

func TestFetchUnansweredSkipsDraftedAndOwnConversations(t *testing.T) {
	fake := &fakeGraph{
		inbox: []message{
			{ID: "a1", ConversationID: "c1", InternetMessageID: "<a1@customer.example>", Subject: "Where is truck 42?", From: from("ann@customer.example"),
				Body: &itemBody{ContentType: "html", Content: "<p>Where is <b>truck 42</b>?</p>"}, ReceivedDateTime: "2025-03-10T10:00:00Z"},
			{ID: "a2", ConversationID: "c1", Subject: "Re: Where is truck 42?", From: from("ann@customer.example")},
			{ID: "a3", ConversationID: "c3", Subject: "Internal", From: from("Support@Fleet.example")},
			{ID: "a4", ConversationID: "c4", Subject: "Hi", From: from("bob@customer.example")},
			{ID: "a5", Subject: "", From: from("cara@customer.example"), Body: &itemBody{ContentType: "text", Content: "  plain body  "}},
			{ID: "a6", ConversationID: "c6", Subject: "Lookalike", From: from("help.support@fleet.example")},
		},
		drafts: []message{
			{ID: "d1", ConversationID: "c4", Subject: "RE: Hi", IsDraft: true},
			{ID: "d2", ConversationID: "c1", Subject: "Hello", IsDraft: true},
		},
	}
	mb := newTestMailbox(t, fake)

	emails, err := mb.FetchUnanswered(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, emails, 3)

	assert.Equal(t, "a1", emails[0].ID)
	assert.Equal(t, "c1", emails[0].ThreadID)
	assert.Equal(t, "<a1@customer.example>", emails[0].MessageID)
	assert.Equal(t, "ann@customer.example", emails[0].Sender)
	assert.Equal(t, "Where is truck 42?", emails[0].Body)
	assert.True(t, emails[0].Unread)
	assert.Equal(t, time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC), emails[0].ReceivedAt)

	assert.Equal(t, "a5", emails[1].ID)
	assert.Equal(t, "a5", emails[1].ThreadID)
	assert.Equal(t, "a5", emails[1].MessageID)
	assert.Equal(t, "No Subject", emails[1].Subject)
	assert.Equal(t, "plain body", emails[1].Body)

	assert.Equal(t, "a6", emails[2].ID)
	assert.Equal(t, "help.support@fleet.example", emails[2].Sender)

	require.NotEmpty(t, fake.filters)
	assert.Equal(t, "receivedDateTime ge 2025-03-09T12:00:00Z and parentFolderId eq 'inbox-id' and isRead eq false", fake.filters[0])
	assert.Equal(t, 1, fake.tokens)
}

func TestTokenRefreshedOnUnauthorized(t *testing.T) {
	fake := &fakeGraph{rejectToken: "tok1"}
	mb := newTestMailbox(t, fake)

	_, err := mb.FetchDraftReplies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fake.tokens)
}

func TestAPIErrorIsReturned(t *testing.T) {
	fake := &fakeGraph{}
	mb := newTestMailbox(t, fake)

	err := mb.client.do(context.Background(), http.MethodGet, mb.client.userPath("/unknown"), nil, nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestCreateDraftReplyUsesCreateReply(t *testing.T) {
	fake := &fakeGraph{}
	mb := newTestMailbox(t, fake)

	original := core.Email{ID: "a1", ThreadID: "c1", Sender: "ann@customer.example", Subject: "Where is truck 42?"}
	require.NoError(t, mb.CreateDraftReply(context.Background(), original, "Truck 42 is in **Lyon**."))

	assert.Len(t, fake.callsTo(http.MethodPost, "/messages/a1/createReply"), 1)
	patches := fake.callsTo(http.MethodPatch, "/messages/reply-a1")
	require.Len(t, patches, 1)
	body := patches[0].Body["body"].(map[string]interface{})
	assert.Equal(t, "HTML", body["contentType"])
	assert.Contains(t, body["content"], "<strong>Lyon</strong>")
	assert.Empty(t, fake.callsTo(http.MethodPost, "/send"))
}

func TestCreateDraftReplyFallsBackToNewDraft(t *testing.T) {
	fake := &fakeGraph{failCreateReply: true}
	mb := newTestMailbox(t, fake)

	original := core.Email{ID: "a1", ThreadID: "c1", Sender: "ann@customer.example", Subject: "Invoice"}
	require.NoError(t, mb.CreateDraftReply(context.Background(), original, "Thanks"))

	posts := fake.callsTo(http.MethodPost, "/messages")
	var created *graphCall
	for i := range posts {
		if posts[i].Path == "/messages" {
			created = &posts[i]
		}
	}
	require.NotNil(t, created)
	assert.Equal(t, "Re: Invoice", created.Body["subject"])
	assert.Equal(t, "c1", created.Body["conversationId"])
	to := created.Body["toRecipients"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "ann@customer.example", to["emailAddress"].(map[string]interface{})["address"])
}

func TestSendReplySendsCreatedReply(t *testing.T) {
	fake := &fakeGraph{}
	mb := newTestMailbox(t, fake)

	original := core.Email{ID: "a1", ThreadID: "c1", Sender: "ann@customer.example", Subject: "Invoice"}
	require.NoError(t, mb.SendReply(context.Background(), original, "Thanks"))

	assert.Len(t, fake.callsTo(http.MethodPatch, "/messages/reply-a1"), 1)
	assert.Len(t, fake.callsTo(http.MethodPost, "/messages/reply-a1/send"), 1)
	assert.Empty(t, fake.callsTo(http.MethodPost, "/sendMail"))
}

func TestSendReplyFallsBackToSendMail(t *testing.T) {
	fake := &fakeGraph{failCreateReply: true}
	mb := newTestMailbox(t, fake)

	original := core.Email{ID: "a1", ThreadID: "c1", Sender: "ann@customer.example", Subject: "Invoice"}
	require.NoError(t, mb.SendReply(context.Background(), original, "Thanks"))

	calls := fake.callsTo(http.MethodPost, "/sendMail")
	require.Len(t, calls, 1)
	assert.Equal(t, true, calls[0].Body["saveToSentItems"])
	msg := calls[0].Body["message"].(map[string]interface{})
	assert.Equal(t, "Re: Invoice", msg["subject"])
	assert.NotContains(t, msg, "conversationId")
}

func TestFetchDraftRepliesKeepsReplies(t *testing.T) {
	fake := &fakeGraph{
		drafts: []message{
			{ID: "d1", ConversationID: "c1", Subject: "RE: Invoice", IsDraft: true,
				ToRecipients: []recipient{{EmailAddress: emailAddress{Address: "ann@customer.example"}}},
				Body:         &itemBody{ContentType: "html", Content: "<p>Thanks</p>"}},
			{ID: "d2", ConversationID: "c2", Subject: "Newsletter", IsDraft: true},
		},
	}
	mb := newTestMailbox(t, fake)

	drafts, err := mb.FetchDraftReplies(context.Background())
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, core.Draft{ID: "d1", ThreadID: "c1", Subject: "RE: Invoice", To: "ann@customer.example", Body: "Thanks"}, drafts[0])
}

func TestFetchRecentFollowsNextLink(t *testing.T) {
	fake := &fakeGraph{
		inbox:      []message{{ID: "r1", IsRead: true}, {ID: "r2"}},
		inboxPage2: []message{{ID: "r3", IsRead: true}},
	}
	mb := newTestMailbox(t, fake)

	emails, err := mb.FetchRecent(context.Background(), 24*time.Hour, 10)
	require.NoError(t, err)
	require.Len(t, emails, 3)
	assert.Equal(t, "r3", emails[2].ID)
	assert.False(t, emails[2].Unread)
}

func TestStatsCountsRepliesAndDrafts(t *testing.T) {
	fake := &fakeGraph{
		inbox: []message{{ID: "i1"}, {ID: "i2", IsRead: true}, {ID: "i3", IsRead: true}},
		sent: []message{
			{ID: "s1", ConversationID: "c1", Subject: "RE: one"},
			{ID: "s2", ConversationID: "c1", Subject: "RE: one"},
			{ID: "s3", ConversationID: "c2", Subject: "Re: two"},
			{ID: "s4", ConversationID: "c3", Subject: "New thread"},
		},
		drafts: []message{{ID: "d1", ConversationID: "c9", Subject: "RE: x", IsDraft: true}},
	}
	mb := newTestMailbox(t, fake)

	stats, err := mb.Stats(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, &core.InboxStats{Total: 3, Unread: 1, Read: 2, Replied: 2, Drafted: 1}, stats)
}
