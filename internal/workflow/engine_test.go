package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"go.uber.org/zap"
)

type fakeMailbox struct {
	emails   []core.Email
	fetchErr error
	draftErr error
	drafts   map[string]string
	sent     map[string]string
	fetches  int
}

func newFakeMailbox(emails ...core.Email) *fakeMailbox {
	return &fakeMailbox{emails: emails, drafts: map[string]string{}, sent: map[string]string{}}
}

func (m *fakeMailbox) FetchUnanswered(ctx context.Context, limit int) ([]core.Email, error) {
	m.fetches++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	out := make([]core.Email, len(m.emails))
	copy(out, m.emails)
	return out, nil
}

func (m *fakeMailbox) CreateDraftReply(ctx context.Context, original core.Email, text string) error {
	if m.draftErr != nil {
		return m.draftErr
	}
	m.drafts[original.ID] = text
	return nil
}

func (m *fakeMailbox) SendReply(ctx context.Context, original core.Email, text string) error {
	m.sent[original.ID] = text
	return nil
}

func (m *fakeMailbox) FetchDraftReplies(ctx context.Context) ([]core.Draft, error) { return nil, nil }
func (m *fakeMailbox) Cleanup() error                                           { return nil }

type writeCall struct {
	category    core.Category
	body        string
	information string
	history     []string
}

type fakeAgents struct {
	categories   map[string]core.Category
	queries      []string
	answers      map[string]string
	verdicts     []bool
	samsaraQuery *core.SamsaraQuery
	samsaraReply string

	categorizeErr error
	writeErr      error

	categorized   []string
	writes        []writeCall
	samsaraInputs []string
}

func (f *fakeAgents) Categorize(ctx context.Context, email core.Email) (core.Category, error) {
	f.categorized = append(f.categorized, email.ID)
	if f.categorizeErr != nil {
		return "", f.categorizeErr
	}
	return f.categories[email.ID], nil
}

func (f *fakeAgents) DesignRAGQueries(ctx context.Context, body string) ([]string, error) {
	return f.queries, nil
}

func (f *fakeAgents) GenerateRAGAnswer(ctx context.Context, question string) (string, error) {
	answer, ok := f.answers[question]
	if !ok {
		return "", errors.New("no answer")
	}
	return answer, nil
}

func (f *fakeAgents) WriteDraft(ctx context.Context, category core.Category, body, information string, history []string) (string, error) {
	f.writes = append(f.writes, writeCall{
		category:    category,
		body:        body,
		information: information,
		history:     append([]string(nil), history...),
	})
	if f.writeErr != nil {
		return "", f.writeErr
	}
	return "Dear Customer, reply to " + body, nil
}

func (f *fakeAgents) Proofread(ctx context.Context, original, draft string) (*core.Review, error) {
	send := false
	if len(f.verdicts) > 0 {
		send = f.verdicts[0]
		f.verdicts = f.verdicts[1:]
	}
	feedback := "Needs more detail"
	if send {
		feedback = "Good to go"
	}
	return &core.Review{Feedback: feedback, Send: send}, nil
}

func (f *fakeAgents) IdentifySamsaraQuery(ctx context.Context, body string) (*core.SamsaraQuery, error) {
	if f.samsaraQuery == nil {
		return nil, errors.New("no query")
	}
	return f.samsaraQuery, nil
}

func (f *fakeAgents) GenerateSamsaraResponse(ctx context.Context, originalQuery string, queryType core.SamsaraQueryType, data string) (string, error) {
	f.samsaraInputs = append(f.samsaraInputs, data)
	return f.samsaraReply, nil
}

type fakeTelemetry struct {
	text    string
	queries []core.SamsaraQuery
}

func (f *fakeTelemetry) Fetch(ctx context.Context, query core.SamsaraQuery) string {
	f.queries = append(f.queries, query)
	return f.text
}

type traceRecorder struct {
	nodes []string
}

func (t *traceRecorder) ObserveNode(node string) {
	t.nodes = append(t.nodes, node)
}

func email(id string) core.Email {
	return core.Email{ID: id, ThreadID: "t-" + id, Body: "body-" + id, Subject: "subject " + id, Unread: true}
}

func runEngine(t *testing.T, agents *fakeAgents, telemetry Telemetry, cfg Config, mailbox *fakeMailbox) (*core.RunStats, []string, error) {
	t.Helper()
	trace := &traceRecorder{}
	engine := NewEngine(agents, telemetry, cfg, trace)
	stats, err := engine.Run(context.Background(), mailbox, zap.NewNop())
	return stats, trace.nodes, err
}

func TestProductEnquirySentFirstTry(t *testing.T) {
	agents := &fakeAgents{
		categories: map[string]core.Category{"E1": core.CategoryProductEnquiry},
		queries:    []string{"What does it cost?"},
		answers:    map[string]string{"What does it cost?": "Plans start at $10."},
		verdicts:   []bool{true},
	}
	mailbox := newFakeMailbox(email("E1"))

	stats, trace, err := runEngine(t, agents, nil, Config{}, mailbox)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"load_inbox_emails",
		"is_email_inbox_empty",
		"categorize_email",
		"construct_rag_queries",
		"retrieve_from_rag",
		"email_writer",
		"email_proofreader",
		"send_email",
		"is_email_inbox_empty",
	}, trace)

	require.Len(t, agents.writes, 1)
	assert.Equal(t, "What does it cost?\nPlans start at $10.\n\n", agents.writes[0].information)
	assert.Empty(t, agents.writes[0].history)

	assert.Equal(t, "Dear Customer, reply to body-E1", mailbox.drafts["E1"])
	assert.Empty(t, mailbox.sent)
	assert.Equal(t, 1, stats.ProcessedEmails)
	assert.Equal(t, 1, stats.DraftsCreated)
	assert.Equal(t, 1, mailbox.fetches)
}

func TestComplaintAbandonedAfterThreeTrials(t *testing.T) {
	agents := &fakeAgents{
		categories: map[string]core.Category{"E1": core.CategoryCustomerComplaint},
		verdicts:   []bool{false, false, false},
	}
	mailbox := newFakeMailbox(email("E1"))

	stats, trace, err := runEngine(t, agents, nil, Config{}, mailbox)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"load_inbox_emails",
		"is_email_inbox_empty",
		"categorize_email",
		"email_writer",
		"email_proofreader",
		"email_writer",
		"email_proofreader",
		"email_writer",
		"email_proofreader",
	}, trace)

	require.Len(t, agents.writes, 3)
	assert.Empty(t, agents.writes[0].history)
	assert.Equal(t, []string{
		"**Draft 1:**\nDear Customer, reply to body-E1",
		"**Proofreader Feedback:**\nNeeds more detail",
	}, agents.writes[1].history)
	assert.Len(t, agents.writes[2].history, 4)
	assert.Equal(t, "", agents.writes[0].information)

	assert.Empty(t, mailbox.drafts)
	assert.Equal(t, 1, stats.ProcessedEmails)
	assert.Equal(t, 0, stats.DraftsCreated)
	assert.Equal(t, 1, stats.Abandoned)
}

func TestNewestEmailFirstWithUnrelatedSkip(t *testing.T) {
	agents := &fakeAgents{
		categories: map[string]core.Category{
			"E1": core.CategoryCustomerFeedback,
			"E2": core.CategoryUnrelated,
		},
		verdicts: []bool{true},
	}
	mailbox := newFakeMailbox(email("E1"), email("E2"))

	stats, trace, err := runEngine(t, agents, nil, Config{}, mailbox)
	require.NoError(t, err)

	assert.Equal(t, []string{"E2", "E1"}, agents.categorized)
	assert.Equal(t, []string{
		"load_inbox_emails",
		"is_email_inbox_empty",
		"categorize_email",
		"skip_unrelated_email",
		"is_email_inbox_empty",
		"categorize_email",
		"email_writer",
		"email_proofreader",
		"send_email",
		"is_email_inbox_empty",
	}, trace)

	assert.Contains(t, mailbox.drafts, "E1")
	assert.NotContains(t, mailbox.drafts, "E2")
	assert.Equal(t, 2, stats.ProcessedEmails)
	assert.Equal(t, 1, stats.DraftsCreated)
	assert.Equal(t, 1, stats.Skipped)
}

func TestTelemetryNoDataIsFlagged(t *testing.T) {
	agents := &fakeAgents{
		categories: map[string]core.Category{"E1": core.CategorySamsaraLocationQuery},
		samsaraQuery: &core.SamsaraQuery{
			QueryType:      core.QueryVehicleLocation,
			Identifiers:    []string{"TRUCK99"},
			AdditionalInfo: map[string]interface{}{},
		},
		samsaraReply: "Dear Customer, we could not locate TRUCK99 at this time.",
		verdicts:     []bool{true},
	}
	telemetry := &fakeTelemetry{text: "No vehicle location data available."}
	mailbox := newFakeMailbox(email("E1"))

	stats, trace, err := runEngine(t, agents, telemetry, Config{}, mailbox)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"load_inbox_emails",
		"is_email_inbox_empty",
		"categorize_email",
		"identify_samsara_query",
		"fetch_samsara_data",
		"generate_samsara_response",
		"email_proofreader",
		"send_email",
		"is_email_inbox_empty",
	}, trace)

	require.Len(t, telemetry.queries, 1)
	assert.Equal(t, []string{"TRUCK99"}, telemetry.queries[0].Identifiers)

	require.Len(t, agents.samsaraInputs, 1)
	assert.Contains(t, agents.samsaraInputs[0], `<!-- Metadata: {"query_type":"vehicle_location","data_found":false} -->`)
	assert.Empty(t, agents.writes)
	assert.Equal(t, "Dear Customer, we could not locate TRUCK99 at this time.", mailbox.drafts["E1"])
	assert.Equal(t, 1, stats.DraftsCreated)
}

func TestTelemetryDraftRejectedFallsBackToWriter(t *testing.T) {
	agents := &fakeAgents{
		categories:   map[string]core.Category{"E1": core.CategorySamsaraVehicleQuery},
		samsaraQuery: &core.SamsaraQuery{QueryType: core.QueryVehicleInfo},
		samsaraReply: "Vehicle details attached.",
		verdicts:     []bool{false, true},
	}
	telemetry := &fakeTelemetry{text: "Vehicle Information:\n\n- ID: 1\n"}
	mailbox := newFakeMailbox(email("E1"))

	_, trace, err := runEngine(t, agents, telemetry, Config{}, mailbox)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"load_inbox_emails",
		"is_email_inbox_empty",
		"categorize_email",
		"identify_samsara_query",
		"fetch_samsara_data",
		"generate_samsara_response",
		"email_proofreader",
		"email_writer",
		"email_proofreader",
		"send_email",
		"is_email_inbox_empty",
	}, trace)
	require.Len(t, agents.writes, 1)
	assert.Equal(t, []string{"**Proofreader Feedback:**\nNeeds more detail"}, agents.writes[0].history)
}

func TestTranscriptDoesNotLeakAcrossEmails(t *testing.T) {
	agents := &fakeAgents{
		categories: map[string]core.Category{
			"E1": core.CategoryProductEnquiry,
			"E2": core.CategoryCustomerComplaint,
		},
		queries:  []string{"q"},
		answers:  map[string]string{"q": "a"},
		verdicts: []bool{false, false, false, true},
	}
	mailbox := newFakeMailbox(email("E1"), email("E2"))

	stats, trace, err := runEngine(t, agents, nil, Config{}, mailbox)
	require.NoError(t, err)

	require.Len(t, agents.writes, 4)
	for _, w := range agents.writes[:3] {
		assert.Equal(t, "body-E2", w.body)
	}
	e1 := agents.writes[3]
	assert.Equal(t, "body-E1", e1.body)
	assert.Empty(t, e1.history)
	assert.Equal(t, "q\na\n\n", e1.information)

	assert.Equal(t, "categorize_email", trace[9])
	assert.Equal(t, 1, stats.Abandoned)
	assert.Equal(t, 1, stats.DraftsCreated)
}

func TestFailuresAreRecoveredLocally(t *testing.T) {
	agents := &fakeAgents{
		categorizeErr: errors.New("model offline"),
		writeErr:      errors.New("model offline"),
	}
	mailbox := newFakeMailbox(email("E1"))

	stats, trace, err := runEngine(t, agents, nil, Config{}, mailbox)
	require.NoError(t, err)

	assert.Equal(t, "email_writer", trace[3])
	assert.Len(t, agents.writes, 3)
	assert.Equal(t, 1, stats.Abandoned)
	assert.Empty(t, mailbox.drafts)
}

func TestFetchFailureEndsRunCleanly(t *testing.T) {
	mailbox := newFakeMailbox()
	mailbox.fetchErr = errors.New("token expired")

	stats, trace, err := runEngine(t, &fakeAgents{}, nil, Config{}, mailbox)
	require.NoError(t, err)
	assert.Equal(t, []string{"load_inbox_emails", "is_email_inbox_empty"}, trace)
	assert.Equal(t, 0, stats.ProcessedEmails)
}

func TestDraftFailureIsNotCounted(t *testing.T) {
	agents := &fakeAgents{
		categories: map[string]core.Category{"E1": core.CategoryCustomerFeedback},
		verdicts:   []bool{true},
	}
	mailbox := newFakeMailbox(email("E1"))
	mailbox.draftErr = errors.New("quota")

	stats, _, err := runEngine(t, agents, nil, Config{}, mailbox)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DraftsCreated)
}

func TestSendModeSendsReplies(t *testing.T) {
	agents := &fakeAgents{
		categories: map[string]core.Category{"E1": core.CategoryCustomerFeedback},
		verdicts:   []bool{true},
	}
	mailbox := newFakeMailbox(email("E1"))

	stats, _, err := runEngine(t, agents, nil, Config{SendMode: SendModeSend}, mailbox)
	require.NoError(t, err)
	assert.Contains(t, mailbox.sent, "E1")
	assert.Empty(t, mailbox.drafts)
	assert.Equal(t, 1, stats.DraftsCreated)
}

func batch(n int, category core.Category) (map[string]core.Category, []core.Email) {
	categories := make(map[string]core.Category, n)
	emails := make([]core.Email, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("E%d", i)
		categories[id] = category
		emails = append(emails, email(id))
	}
	return categories, emails
}

func repeat(pattern []bool, n int) []bool {
	out := make([]bool, 0, len(pattern)*n)
	for i := 0; i < n; i++ {
		out = append(out, pattern...)
	}
	return out
}

func TestFullBatchWithRewritesCompletes(t *testing.T) {
	categories, emails := batch(DefaultFetchLimit, core.CategoryProductEnquiry)
	agents := &fakeAgents{
		categories: categories,
		queries:    []string{"q"},
		answers:    map[string]string{"q": "a"},
		verdicts:   repeat([]bool{false, false, true}, len(emails)),
	}
	mailbox := newFakeMailbox(emails...)

	stats, _, err := runEngine(t, agents, nil, Config{}, mailbox)
	require.NoError(t, err)
	assert.Len(t, mailbox.drafts, len(emails))
	assert.Equal(t, len(emails), stats.DraftsCreated)
	assert.Equal(t, 2+11*len(emails), stats.Steps)
}

func TestLongestTelemetryPathFitsStepBudget(t *testing.T) {
	categories, emails := batch(DefaultFetchLimit, core.CategorySamsaraDriverQuery)
	agents := &fakeAgents{
		categories:   categories,
		samsaraQuery: &core.SamsaraQuery{QueryType: core.QueryDriverInfo},
		samsaraReply: "Driver details attached.",
		verdicts:     repeat([]bool{false, false, false, true}, len(emails)),
	}
	mailbox := newFakeMailbox(emails...)

	stats, _, err := runEngine(t, agents, &fakeTelemetry{text: "Driver Information:\n"}, Config{}, mailbox)
	require.NoError(t, err)
	assert.Equal(t, len(emails), stats.DraftsCreated)
	assert.Len(t, agents.writes, MaxTrials*len(emails))
	assert.Equal(t, stepBudget(len(emails)), stats.Steps)
}

func TestStepCeilingStopsLoopingGraph(t *testing.T) {
	r := &run{
		Engine:   NewEngine(&fakeAgents{}, nil, Config{}, nil),
		mailbox:  newFakeMailbox(),
		logger:   zap.NewNop(),
		state:    core.NewRunState(),
		stats:    &core.RunStats{Steps: 5},
		maxSteps: 5,
	}
	err := r.loop(context.Background())
	assert.ErrorIs(t, err, ErrMaxSteps)
	assert.Equal(t, 5, r.stats.Steps)
}

func TestCategorizeWithEmptyQueueFallsThroughToWriter(t *testing.T) {
	agents := &fakeAgents{}
	mailbox := newFakeMailbox()
	r := &run{
		Engine:   NewEngine(agents, nil, Config{}, nil),
		mailbox:  mailbox,
		logger:   zap.NewNop(),
		state:    core.NewRunState(),
		stats:    &core.RunStats{},
		maxSteps: stepBudget(0),
	}

	result := r.categorize(context.Background())
	assert.Equal(t, RouteNotProductRelated, result.Route)
	assert.Nil(t, r.state.CurrentEmail)
	assert.Equal(t, core.Category(""), r.state.EmailCategory)
	assert.Empty(t, agents.categorized)

	next, ok := Next(NodeCategorize, result.Route)
	require.True(t, ok)
	assert.Equal(t, NodeEmailWriter, next)

	// the writer loop exhausts its trials and ends without delivering anything
	for node := next; node != NodeEnd; {
		route := r.step(context.Background(), node).Route
		node, ok = Next(node, route)
		require.True(t, ok)
	}
	assert.Len(t, agents.writes, MaxTrials)
	assert.Empty(t, mailbox.drafts)
	assert.Zero(t, r.stats.Abandoned)
}

func TestStepBudget(t *testing.T) {
	assert.Equal(t, 2, stepBudget(0))
	assert.Equal(t, 15, stepBudget(1))
	assert.Equal(t, 652, stepBudget(50))
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mailbox := newFakeMailbox(email("E1"))
	engine := NewEngine(&fakeAgents{}, nil, Config{}, nil)
	stats, err := engine.Run(ctx, mailbox, zap.NewNop())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, stats.Steps)
	assert.Equal(t, 0, mailbox.fetches)
}

func TestLoadInboxReplacesQueue(t *testing.T) {
	mailbox := newFakeMailbox(email("E1"), email("E2"), email("E1"))
	r := &run{
		Engine:  NewEngine(&fakeAgents{}, nil, Config{}, nil),
		mailbox: mailbox,
		logger:  zap.NewNop(),
		state:   core.NewRunState(),
		stats:   &core.RunStats{},
	}

	r.loadInbox(context.Background())
	first := append([]core.Email(nil), r.state.Emails...)
	r.loadInbox(context.Background())

	assert.Equal(t, first, r.state.Emails)
	require.Len(t, r.state.Emails, 2)
	assert.Equal(t, "E1", r.state.Emails[0].ID)
	assert.Equal(t, "E2", r.state.Emails[1].ID)
	assert.Equal(t, 2, r.stats.ProcessedEmails)
}

type domainFilter string

func (d domainFilter) Ignored(sender string) bool {
	return strings.HasSuffix(sender, "@"+string(d))
}

func TestLoadInboxDropsIgnoredSenders(t *testing.T) {
	blocked := email("E2")
	blocked.Sender = "alerts@noreply.example.com"
	kept := email("E1")
	kept.Sender = "customer@example.org"
	mailbox := newFakeMailbox(kept, blocked)

	r := &run{
		Engine:  NewEngine(&fakeAgents{}, nil, Config{Ignore: domainFilter("noreply.example.com")}, nil),
		mailbox: mailbox,
		logger:  zap.NewNop(),
		state:   core.NewRunState(),
		stats:   &core.RunStats{},
	}
	r.loadInbox(context.Background())

	require.Len(t, r.state.Emails, 1)
	assert.Equal(t, "E1", r.state.Emails[0].ID)
	assert.Equal(t, 1, r.stats.ProcessedEmails)
}
