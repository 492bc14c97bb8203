// Package workflow drives one email at a time through categorization,
// retrieval, drafting and proofreading. The graph is a fixed transition
// table keyed by node and route; nodes recover from provider failures
// locally so a single bad email never aborts a run.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"go.uber.org/zap"
)

var (
	// ErrMaxSteps is returned when a run takes more steps than its loaded
	// queue can need, which means the graph is looping
	ErrMaxSteps = errors.New("workflow exceeded maximum steps")

	// ErrNoTransition is returned when a node returns a route with no outgoing edge
	ErrNoTransition = errors.New("no transition for route")
)

// Send modes for concluded drafts
const (
	SendModeDraft = "draft"
	SendModeSend  = "send"
)

// MaxTrials is the hard cap on drafting attempts per email
const MaxTrials = 3

// DefaultFetchLimit applies when Config.FetchLimit is unset
const DefaultFetchLimit = 50

// stepsPerEmail is the longest path one email can take: the telemetry branch
// (categorize, identify, fetch, generate, proofread), a writer and proofreader
// pair per trial, then send and the inbox check.
const stepsPerEmail = 2*MaxTrials + 7

// stepBudget is the step ceiling for a run that loaded n emails, counting the
// inbox load and the final empty check
func stepBudget(n int) int {
	return 2 + n*stepsPerEmail
}

// Agents is the set of model-backed operations the nodes call
type Agents interface {
	Categorize(ctx context.Context, email core.Email) (core.Category, error)
	DesignRAGQueries(ctx context.Context, body string) ([]string, error)
	GenerateRAGAnswer(ctx context.Context, question string) (string, error)
	WriteDraft(ctx context.Context, category core.Category, body, information string, history []string) (string, error)
	Proofread(ctx context.Context, original, draft string) (*core.Review, error)
	IdentifySamsaraQuery(ctx context.Context, body string) (*core.SamsaraQuery, error)
	GenerateSamsaraResponse(ctx context.Context, originalQuery string, queryType core.SamsaraQueryType, data string) (string, error)
}

// Telemetry turns a parsed telemetry query into email-ready text
type Telemetry interface {
	Fetch(ctx context.Context, query core.SamsaraQuery) string
}

// SenderFilter reports senders that must never get an automated reply
type SenderFilter interface {
	Ignored(sender string) bool
}

// NodeObserver is told about every node the engine executes
type NodeObserver interface {
	ObserveNode(node string)
}

// Config holds the engine limits
type Config struct {
	FetchLimit int
	SendMode   string
	// Ignore drops matching senders at inbox load; nil keeps every email
	Ignore SenderFilter
}

// Engine runs the workflow graph against a mailbox
type Engine struct {
	agents    Agents
	telemetry Telemetry
	cfg       Config
	observer  NodeObserver
}

// NewEngine creates a workflow engine. telemetry and observer may be nil.
func NewEngine(agents Agents, telemetry Telemetry, cfg Config, observer NodeObserver) *Engine {
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = DefaultFetchLimit
	}
	if cfg.SendMode != SendModeSend {
		cfg.SendMode = SendModeDraft
	}
	return &Engine{
		agents:    agents,
		telemetry: telemetry,
		cfg:       cfg,
		observer:  observer,
	}
}

// run is the per-invocation context threaded through the nodes
type run struct {
	*Engine
	mailbox core.Mailbox
	logger  *zap.Logger
	state   *core.RunState
	stats   *core.RunStats

	// maxSteps is set from the queue size at inbox load
	maxSteps int
}

// Run processes the mailbox until its queue is empty. Cancellation is
// honoured between nodes.
func (e *Engine) Run(ctx context.Context, mailbox core.Mailbox, logger *zap.Logger) (*core.RunStats, error) {
	r := &run{
		Engine:   e,
		mailbox:  mailbox,
		logger:   logger,
		state:    core.NewRunState(),
		stats:    &core.RunStats{},
		maxSteps: stepBudget(0),
	}
	return r.stats, r.loop(ctx)
}

func (r *run) loop(ctx context.Context) error {
	node := NodeLoadInbox
	for node != NodeEnd {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("Run cancelled", zap.Stringer("node", node), zap.Error(err))
			return err
		}
		if r.stats.Steps >= r.maxSteps {
			return fmt.Errorf("%w: %d", ErrMaxSteps, r.maxSteps)
		}
		r.stats.Steps++

		if r.observer != nil {
			r.observer.ObserveNode(node.String())
		}
		result := r.step(ctx, node)

		next, ok := Next(node, result.Route)
		if !ok {
			return fmt.Errorf("%w: %s -> %q", ErrNoTransition, node, result.Route)
		}
		r.logger.Debug("Transition",
			zap.Stringer("from", node),
			zap.String("route", string(result.Route)),
			zap.Stringer("to", next))
		node = next
	}
	return nil
}

func (r *run) step(ctx context.Context, node NodeID) NodeResult {
	switch node {
	case NodeLoadInbox:
		return r.loadInbox(ctx)
	case NodeInboxEmptyCheck:
		return NodeResult{Route: checkNewEmails(r.state)}
	case NodeCategorize:
		return r.categorize(ctx)
	case NodeConstructRAGQueries:
		return r.constructRAGQueries(ctx)
	case NodeRetrieveFromRAG:
		return r.retrieveFromRAG(ctx)
	case NodeEmailWriter:
		return r.writeDraft(ctx)
	case NodeProofreader:
		return r.proofread(ctx)
	case NodeSendEmail:
		return r.sendEmail(ctx)
	case NodeSkipUnrelated:
		return r.skipUnrelated()
	case NodeIdentifySamsaraQuery:
		return r.identifySamsaraQuery(ctx)
	case NodeFetchSamsaraData:
		return r.fetchSamsaraData(ctx)
	case NodeGenerateSamsaraResponse:
		return r.generateSamsaraResponse(ctx)
	}
	return NodeResult{Route: Route("unhandled node " + node.String())}
}
