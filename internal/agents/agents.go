// Package agents wraps the prompt-driven model calls used by the workflow.
// Structured replies are validated against JSON schemas; a reply that does
// not match is returned as ErrSchemaMismatch.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"go.uber.org/zap"
)

// MaxRAGQueries caps the number of knowledge-base questions per email
const MaxRAGQueries = 3

// DefaultTopK is the number of passages retrieved for each question
const DefaultTopK = 3

// Transcript entry prefixes shared with the workflow
const (
	DraftPrefix    = "**Draft "
	FeedbackPrefix = "**Proofreader Feedback:**"
)

// Agents groups the model-backed operations of the workflow
type Agents struct {
	llm       core.LLMClient
	retriever core.KnowledgeRetriever
	topK      int
	logger    *zap.Logger
}

// New creates the agents. retriever may be nil, in which case answers are
// generated from an empty context.
func New(llm core.LLMClient, retriever core.KnowledgeRetriever, topK int, logger *zap.Logger) *Agents {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Agents{
		llm:       llm,
		retriever: retriever,
		topK:      topK,
		logger:    logger,
	}
}

func (a *Agents) generate(ctx context.Context, system, user string, jsonOutput bool) (string, error) {
	return a.llm.Generate(ctx, core.Prompt{
		System:     system,
		Messages:   []core.Message{{Role: core.RoleUser, Content: user}},
		JSONOutput: jsonOutput,
	})
}

// Categorize assigns one of the known categories to an email
func (a *Agents) Categorize(ctx context.Context, email core.Email) (core.Category, error) {
	reply, err := a.generate(ctx, categorizeSystem, fmt.Sprintf(categorizeFormat, email.Body), true)
	if err != nil {
		return "", fmt.Errorf("failed to categorize email: %w", err)
	}

	var out struct {
		Category core.Category `json:"category"`
	}
	if err := decode(categorySchema, reply, &out); err != nil {
		return "", err
	}
	return out.Category, nil
}

// DesignRAGQueries derives up to three knowledge-base questions from an email body
func (a *Agents) DesignRAGQueries(ctx context.Context, body string) ([]string, error) {
	reply, err := a.generate(ctx, ragQueriesSystem, fmt.Sprintf(ragQueriesFormat, body), true)
	if err != nil {
		return nil, fmt.Errorf("failed to design RAG queries: %w", err)
	}

	var out struct {
		Queries []string `json:"queries"`
	}
	if err := decode(queriesSchema, reply, &out); err != nil {
		return nil, err
	}

	queries := make([]string, 0, MaxRAGQueries)
	for _, q := range out.Queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		queries = append(queries, q)
		if len(queries) == MaxRAGQueries {
			break
		}
	}
	return queries, nil
}

// GenerateRAGAnswer answers a question from the passages the retriever returns
func (a *Agents) GenerateRAGAnswer(ctx context.Context, question string) (string, error) {
	var passages []core.Passage
	if a.retriever != nil {
		var err error
		passages, err = a.retriever.Retrieve(ctx, question, a.topK)
		if err != nil {
			return "", fmt.Errorf("failed to retrieve passages: %w", err)
		}
	}

	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		texts = append(texts, p.Text)
	}
	a.logger.Debug("Retrieved passages", zap.String("question", question), zap.Int("passages", len(passages)))

	reply, err := a.generate(ctx, ragAnswerSystem, fmt.Sprintf(ragAnswerFormat, question, strings.Join(texts, "\n\n")), false)
	if err != nil {
		return "", fmt.Errorf("failed to generate RAG answer: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// WriteDraft produces a reply draft. history is the writer transcript of
// earlier drafts and proofreader feedback for the same email, oldest first.
func (a *Agents) WriteDraft(ctx context.Context, category core.Category, body, information string, history []string) (string, error) {
	prompt := core.Prompt{
		System:     writerSystem,
		Messages:   writerMessages(fmt.Sprintf(writerFormat, category, body, information), history),
		JSONOutput: true,
	}
	reply, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to write draft: %w", err)
	}

	var out struct {
		Email string `json:"email"`
	}
	if err := decode(writerSchema, reply, &out); err != nil {
		return "", err
	}
	return out.Email, nil
}

// writerMessages lays the transcript out as alternating turns: drafts are
// assistant turns and feedback is user turns. The last turn is always a user turn.
func writerMessages(information string, history []string) []core.Message {
	messages := []core.Message{{Role: core.RoleUser, Content: information}}
	for _, entry := range history {
		role := core.RoleUser
		if strings.HasPrefix(entry, DraftPrefix) {
			role = core.RoleAssistant
		}
		last := &messages[len(messages)-1]
		if last.Role == role {
			last.Content += "\n\n" + entry
			continue
		}
		messages = append(messages, core.Message{Role: role, Content: entry})
	}

	last := &messages[len(messages)-1]
	if last.Role == core.RoleAssistant {
		messages = append(messages, core.Message{Role: core.RoleUser, Content: writerRevise})
	} else if len(history) > 0 {
		last.Content += "\n\n" + writerRevise
	}
	return messages
}

// Proofread judges whether a draft can be sent
func (a *Agents) Proofread(ctx context.Context, original, draft string) (*core.Review, error) {
	reply, err := a.generate(ctx, proofreaderSystem, fmt.Sprintf(proofreaderFormat, original, draft), true)
	if err != nil {
		return nil, fmt.Errorf("failed to proofread draft: %w", err)
	}

	var out struct {
		Feedback string `json:"feedback"`
		Send     bool   `json:"send"`
	}
	if err := decode(reviewSchema, reply, &out); err != nil {
		return nil, err
	}
	return &core.Review{Feedback: out.Feedback, Send: out.Send}, nil
}

// IdentifySamsaraQuery extracts the telemetry intent of an email
func (a *Agents) IdentifySamsaraQuery(ctx context.Context, body string) (*core.SamsaraQuery, error) {
	reply, err := a.generate(ctx, samsaraQuerySystem, fmt.Sprintf(samsaraQueryFormat, body), true)
	if err != nil {
		return nil, fmt.Errorf("failed to identify samsara query: %w", err)
	}

	var out struct {
		QueryType      core.SamsaraQueryType  `json:"query_type"`
		Identifiers    []string               `json:"identifiers"`
		AdditionalInfo map[string]interface{} `json:"additional_info"`
	}
	if err := decode(samsaraQuerySchema, reply, &out); err != nil {
		return nil, err
	}
	if out.Identifiers == nil {
		out.Identifiers = []string{}
	}
	if out.AdditionalInfo == nil {
		out.AdditionalInfo = map[string]interface{}{}
	}
	return &core.SamsaraQuery{
		QueryType:      out.QueryType,
		Identifiers:    out.Identifiers,
		AdditionalInfo: out.AdditionalInfo,
	}, nil
}

// GenerateSamsaraResponse narrates formatted telemetry data into a reply body
func (a *Agents) GenerateSamsaraResponse(ctx context.Context, originalQuery string, queryType core.SamsaraQueryType, data string) (string, error) {
	reply, err := a.generate(ctx, samsaraResponseSystem, fmt.Sprintf(samsaraResponseFormat, originalQuery, queryType, data), false)
	if err != nil {
		return "", fmt.Errorf("failed to generate samsara response: %w", err)
	}
	return strings.TrimSpace(reply), nil
}
