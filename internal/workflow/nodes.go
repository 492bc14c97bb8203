package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/agents"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"go.uber.org/zap"
)

const telemetryUnavailable = "Error: Unable to retrieve data from Samsara at this time."

func (r *run) currentBody() string {
	if r.state.CurrentEmail == nil {
		return ""
	}
	return r.state.CurrentEmail.Body
}

func (r *run) emailFields() []zap.Field {
	if r.state.CurrentEmail == nil {
		return nil
	}
	return []zap.Field{
		zap.String("email_id", r.state.CurrentEmail.ID),
		zap.String("subject", r.state.CurrentEmail.Subject),
	}
}

func (r *run) loadInbox(ctx context.Context) NodeResult {
	r.logger.Info("Loading new emails")

	emails, err := r.mailbox.FetchUnanswered(ctx, r.cfg.FetchLimit)
	if err != nil {
		r.logger.Error("Failed to fetch emails", zap.Error(err))
		emails = nil
	}

	seen := make(map[string]struct{}, len(emails))
	queue := make([]core.Email, 0, len(emails))
	for _, e := range emails {
		if _, dup := seen[e.ID]; dup {
			r.logger.Warn("Dropping duplicate email from queue", zap.String("email_id", e.ID))
			continue
		}
		seen[e.ID] = struct{}{}
		if r.cfg.Ignore != nil && r.cfg.Ignore.Ignored(e.Sender) {
			r.logger.Info("Ignoring email from filtered sender", zap.String("email_id", e.ID))
			continue
		}
		queue = append(queue, e)
	}
	r.state.Emails = queue
	// the load step itself is already counted
	r.maxSteps = r.stats.Steps - 1 + stepBudget(len(queue))

	if r.stats.ProcessedEmails == 0 {
		r.stats.ProcessedEmails = len(queue)
	}
	r.logger.Info("Emails loaded", zap.Int("count", len(queue)))
	return NodeResult{Route: RouteNext}
}

// categorize selects the newest pending email and classifies it. The email
// stays queued until it is sent, skipped or abandoned.
func (r *run) categorize(ctx context.Context) NodeResult {
	current := r.state.Peek()
	r.state.CurrentEmail = current
	r.state.EmailCategory = ""
	r.state.GeneratedEmail = ""
	r.state.RAGQueries = []string{}
	r.state.RetrievedDocuments = ""
	r.state.Sendable = false
	r.state.SamsaraQueryType = ""
	r.state.SamsaraIdentifiers = []string{}
	r.state.SamsaraAdditionalInfo = map[string]interface{}{}
	r.state.RetrievedSamsaraData = ""

	if current == nil {
		r.logger.Warn("No email left to categorize")
		return NodeResult{Route: RouteForCategory("")}
	}

	r.logger.Info("Checking email category", r.emailFields()...)
	category, err := r.agents.Categorize(ctx, *current)
	if err != nil {
		r.logger.Error("Failed to categorize email", append(r.emailFields(), zap.Error(err))...)
	}
	r.state.EmailCategory = category

	route := RouteForCategory(category)
	r.logger.Info("Email categorized",
		append(r.emailFields(), zap.String("category", string(category)), zap.String("route", string(route)))...)
	return NodeResult{Route: route}
}

func (r *run) constructRAGQueries(ctx context.Context) NodeResult {
	queries, err := r.agents.DesignRAGQueries(ctx, r.currentBody())
	if err != nil {
		r.logger.Error("Failed to design RAG queries", append(r.emailFields(), zap.Error(err))...)
		queries = []string{}
	}
	r.state.RAGQueries = queries
	r.logger.Info("RAG queries designed", zap.Strings("queries", queries))
	return NodeResult{Route: RouteNext}
}

func (r *run) retrieveFromRAG(ctx context.Context) NodeResult {
	var b strings.Builder
	for _, query := range r.state.RAGQueries {
		answer, err := r.agents.GenerateRAGAnswer(ctx, query)
		if err != nil {
			r.logger.Error("Failed to answer RAG query", zap.String("query", query), zap.Error(err))
			continue
		}
		b.WriteString(query)
		b.WriteString("\n")
		b.WriteString(answer)
		b.WriteString("\n\n")
	}
	r.state.RetrievedDocuments = b.String()
	r.logger.Info("Retrieved knowledge base answers", zap.Int("queries", len(r.state.RAGQueries)))
	return NodeResult{Route: RouteNext}
}

func (r *run) writeDraft(ctx context.Context) NodeResult {
	r.state.Trials++
	trial := r.state.Trials

	draft, err := r.agents.WriteDraft(ctx,
		r.state.EmailCategory,
		r.currentBody(),
		r.state.RetrievedDocuments,
		r.state.WriterMessages)
	if err != nil {
		r.logger.Error("Failed to write draft", append(r.emailFields(), zap.Int("trial", trial), zap.Error(err))...)
		r.state.GeneratedEmail = ""
		return NodeResult{Route: RouteNext}
	}

	r.state.GeneratedEmail = draft
	r.state.WriterMessages = append(r.state.WriterMessages, fmt.Sprintf("%s%d:**\n%s", agents.DraftPrefix, trial, draft))
	r.logger.Info("Draft written", append(r.emailFields(), zap.Int("trial", trial))...)
	return NodeResult{Route: RouteNext}
}

func (r *run) proofread(ctx context.Context) NodeResult {
	r.state.Sendable = false

	switch {
	case strings.TrimSpace(r.state.GeneratedEmail) == "":
		r.logger.Warn("No draft to proofread", r.emailFields()...)
	default:
		review, err := r.agents.Proofread(ctx, r.currentBody(), r.state.GeneratedEmail)
		if err != nil {
			r.logger.Error("Failed to proofread draft", append(r.emailFields(), zap.Error(err))...)
			break
		}
		r.state.Sendable = review.Send
		r.state.WriterMessages = append(r.state.WriterMessages, agents.FeedbackPrefix+"\n"+review.Feedback)
	}

	route := mustRewrite(r.state, MaxTrials)
	switch route {
	case RouteSend:
		r.logger.Info("Draft approved", r.emailFields()...)
	case RouteRewrite:
		r.logger.Info("Draft needs rewrite", append(r.emailFields(), zap.Int("trials", r.state.Trials))...)
	default:
		if r.state.CurrentEmail != nil {
			r.stats.Abandoned++
		}
		r.logger.Warn("Maximum trials reached, abandoning email", append(r.emailFields(), zap.Int("max_trials", MaxTrials))...)
	}
	return NodeResult{Route: route}
}

func (r *run) sendEmail(ctx context.Context) NodeResult {
	defer func() {
		r.state.Trials = 0
		r.state.RetrievedDocuments = ""
	}()

	if r.state.CurrentEmail == nil {
		r.logger.Warn("No current email to reply to")
		return NodeResult{Route: RouteNext}
	}

	var err error
	if r.cfg.SendMode == SendModeSend {
		err = r.mailbox.SendReply(ctx, *r.state.CurrentEmail, r.state.GeneratedEmail)
	} else {
		err = r.mailbox.CreateDraftReply(ctx, *r.state.CurrentEmail, r.state.GeneratedEmail)
	}
	if err != nil {
		r.logger.Error("Failed to deliver reply",
			append(r.emailFields(), zap.String("mode", r.cfg.SendMode), zap.Error(err))...)
		return NodeResult{Route: RouteNext}
	}

	r.stats.DraftsCreated++
	r.logger.Info("Reply delivered", append(r.emailFields(), zap.String("mode", r.cfg.SendMode))...)
	return NodeResult{Route: RouteNext}
}

func (r *run) skipUnrelated() NodeResult {
	r.logger.Info("Skipping unrelated email", r.emailFields()...)
	r.state.Pop()
	r.stats.Skipped++
	return NodeResult{Route: RouteNext}
}

func (r *run) identifySamsaraQuery(ctx context.Context) NodeResult {
	query, err := r.agents.IdentifySamsaraQuery(ctx, r.currentBody())
	if err != nil {
		r.logger.Error("Failed to identify telemetry query", append(r.emailFields(), zap.Error(err))...)
		return NodeResult{Route: RouteNext}
	}

	r.state.SamsaraQueryType = query.QueryType
	r.state.SamsaraIdentifiers = query.Identifiers
	r.state.SamsaraAdditionalInfo = query.AdditionalInfo
	r.logger.Info("Telemetry query identified",
		zap.String("query_type", string(query.QueryType)),
		zap.Strings("identifiers", query.Identifiers))
	return NodeResult{Route: RouteNext}
}

func (r *run) fetchSamsaraData(ctx context.Context) NodeResult {
	if r.telemetry == nil || r.state.SamsaraQueryType == "" {
		r.state.RetrievedSamsaraData = telemetryUnavailable
		return NodeResult{Route: RouteNext}
	}

	r.state.RetrievedSamsaraData = r.telemetry.Fetch(ctx, core.SamsaraQuery{
		QueryType:      r.state.SamsaraQueryType,
		Identifiers:    r.state.SamsaraIdentifiers,
		AdditionalInfo: r.state.SamsaraAdditionalInfo,
	})
	return NodeResult{Route: RouteNext}
}

func (r *run) generateSamsaraResponse(ctx context.Context) NodeResult {
	queryType := r.state.SamsaraQueryType
	data := annotateSamsaraData(queryType, r.state.RetrievedSamsaraData)
	r.logger.Info("Generating telemetry response",
		zap.String("query_type", string(queryType)),
		zap.Bool("data_found", SamsaraDataFound(queryType, r.state.RetrievedSamsaraData)))

	reply, err := r.agents.GenerateSamsaraResponse(ctx, r.currentBody(), queryType, data)
	if err != nil {
		r.logger.Error("Failed to generate telemetry response", append(r.emailFields(), zap.Error(err))...)
		reply = ""
	}
	r.state.GeneratedEmail = reply
	return NodeResult{Route: RouteNext}
}
