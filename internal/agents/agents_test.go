package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"go.uber.org/zap"
)

type scriptedLLM struct {
	replies []string
	err     error
	prompts []core.Prompt
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt core.Prompt) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

type fakeRetriever struct {
	passages []core.Passage
	queries  []string
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, k int) ([]core.Passage, error) {
	f.queries = append(f.queries, query)
	if k < len(f.passages) {
		return f.passages[:k], nil
	}
	return f.passages, nil
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    core.Category
		wantErr bool
	}{
		{name: "plain json", reply: `{"category":"product_enquiry"}`, want: core.CategoryProductEnquiry},
		{name: "fenced json", reply: "```json\n{\"category\": \"samsara_location_query\"}\n```", want: core.CategorySamsaraLocationQuery},
		{name: "unknown category", reply: `{"category":"sales_lead"}`, wantErr: true},
		{name: "missing field", reply: `{"label":"unrelated"}`, wantErr: true},
		{name: "not json", reply: "it is a complaint", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &scriptedLLM{replies: []string{tt.reply}}
			a := New(llm, nil, 0, zap.NewNop())

			got, err := a.Categorize(context.Background(), core.Email{Body: "Where is my truck?"})
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrSchemaMismatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, llm.prompts[0].JSONOutput)
			assert.Contains(t, llm.prompts[0].Messages[0].Content, "Where is my truck?")
		})
	}
}

func TestCategorize_ProviderError(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("quota exceeded")}
	a := New(llm, nil, 0, zap.NewNop())

	_, err := a.Categorize(context.Background(), core.Email{Body: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestDesignRAGQueries_CapsAtThree(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"queries":["a?"," ","b?","c?","d?"]}`}}
	a := New(llm, nil, 0, zap.NewNop())

	queries, err := a.DesignRAGQueries(context.Background(), "body")
	require.NoError(t, err)
	assert.Equal(t, []string{"a?", "b?", "c?"}, queries)
}

func TestGenerateRAGAnswer_UsesRetrievedContext(t *testing.T) {
	retriever := &fakeRetriever{passages: []core.Passage{
		{Text: "Plans start at $10."},
		{Text: "Annual billing saves 20%."},
		{Text: "Support is 24/7."},
		{Text: "unused"},
	}}
	llm := &scriptedLLM{replies: []string{"  Plans start at $10.  "}}
	a := New(llm, retriever, 3, zap.NewNop())

	answer, err := a.GenerateRAGAnswer(context.Background(), "How much is it?")
	require.NoError(t, err)
	assert.Equal(t, "Plans start at $10.", answer)
	assert.Equal(t, []string{"How much is it?"}, retriever.queries)

	content := llm.prompts[0].Messages[0].Content
	assert.Contains(t, content, "Annual billing saves 20%.")
	assert.NotContains(t, content, "unused")
	assert.False(t, llm.prompts[0].JSONOutput)
}

func TestWriteDraft_HistoryAlternates(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"email":"Dear Customer,\n\nThanks.\n\nBest regards"}`}}
	a := New(llm, nil, 0, zap.NewNop())

	history := []string{
		"**Draft 1:**\nfirst",
		"**Proofreader Feedback:**\ntoo short",
	}
	draft, err := a.WriteDraft(context.Background(), core.CategoryCustomerComplaint, "My order is late", "", history)
	require.NoError(t, err)
	assert.Contains(t, draft, "Dear Customer")

	msgs := llm.prompts[0].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "EMAIL CATEGORY: customer_complaint")
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)
	assert.Equal(t, core.RoleUser, msgs[2].Role)
	assert.Contains(t, msgs[2].Content, "too short")
	assert.Contains(t, msgs[2].Content, writerRevise)
}

func TestWriterMessages(t *testing.T) {
	t.Run("no history", func(t *testing.T) {
		msgs := writerMessages("info", nil)
		require.Len(t, msgs, 1)
		assert.Equal(t, "info", msgs[0].Content)
	})

	t.Run("trailing draft gets a user turn", func(t *testing.T) {
		msgs := writerMessages("info", []string{"**Draft 1:**\nx"})
		require.Len(t, msgs, 3)
		assert.Equal(t, core.RoleAssistant, msgs[1].Role)
		assert.Equal(t, writerRevise, msgs[2].Content)
	})

	t.Run("consecutive user entries merge", func(t *testing.T) {
		msgs := writerMessages("info", []string{"**Proofreader Feedback:**\nfix it"})
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0].Content, "fix it")
	})
}

func TestWriteDraft_EmptyEmailRejected(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"email":""}`}}
	a := New(llm, nil, 0, zap.NewNop())

	_, err := a.WriteDraft(context.Background(), core.CategoryCustomerFeedback, "body", "", nil)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestProofread(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		`{"feedback":"Looks good","send":true}`,
		`{"feedback":"Missing pricing","send":"no"}`,
	}}
	a := New(llm, nil, 0, zap.NewNop())

	review, err := a.Proofread(context.Background(), "original", "draft")
	require.NoError(t, err)
	assert.True(t, review.Send)
	assert.Equal(t, "Looks good", review.Feedback)

	_, err = a.Proofread(context.Background(), "original", "draft")
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestIdentifySamsaraQuery(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		`{"query_type":"vehicle_location","identifiers":["TRUCK99"],"additional_info":{"real_time":true}}`,
		`{"query_type":"all_drivers"}`,
		`{"query_type":"fuel_level","identifiers":[]}`,
	}}
	a := New(llm, nil, 0, zap.NewNop())

	q, err := a.IdentifySamsaraQuery(context.Background(), "Where is TRUCK99 right now?")
	require.NoError(t, err)
	assert.Equal(t, core.QueryVehicleLocation, q.QueryType)
	assert.Equal(t, []string{"TRUCK99"}, q.Identifiers)
	assert.Equal(t, true, q.AdditionalInfo["real_time"])

	q, err = a.IdentifySamsaraQuery(context.Background(), "List our drivers")
	require.NoError(t, err)
	assert.Equal(t, core.QueryAllDrivers, q.QueryType)
	assert.Empty(t, q.Identifiers)
	assert.NotNil(t, q.AdditionalInfo)

	_, err = a.IdentifySamsaraQuery(context.Background(), "fuel?")
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestGenerateSamsaraResponse(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"Dear Customer, we could not locate TRUCK99."}}
	a := New(llm, nil, 0, zap.NewNop())

	reply, err := a.GenerateSamsaraResponse(context.Background(), "Where is TRUCK99?", core.QueryVehicleLocation, "<!-- Metadata: {} -->\nnone")
	require.NoError(t, err)
	assert.Contains(t, reply, "could not locate")
	assert.Contains(t, llm.prompts[0].Messages[0].Content, "QUERY TYPE:\nvehicle_location")
}
