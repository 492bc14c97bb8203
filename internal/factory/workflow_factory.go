package factory

import (
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/adapters/samsara"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/agents"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/senders"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/workflow"
	"go.uber.org/zap"
)

// WorkflowFactory assembles the workflow engine from its agents and telemetry
type WorkflowFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewWorkflowFactory creates a new workflow factory
func NewWorkflowFactory(cfg *config.Config, logger *zap.Logger) *WorkflowFactory {
	return &WorkflowFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTelemetry creates the Samsara telemetry service. Without an API token
// the telemetry branch still runs and narrates the missing data.
func (f *WorkflowFactory) CreateTelemetry() (*samsara.Service, error) {
	sc, err := f.cfg.GetSamsara()
	if err != nil {
		return nil, err
	}
	if sc.APIToken == "" {
		f.logger.Warn("samsara.api_token is not set, telemetry queries will return no data")
	}
	return samsara.NewService(samsara.NewClient(sc, f.logger), f.logger), nil
}

// CreateEngine creates the workflow engine. observer may be nil.
func (f *WorkflowFactory) CreateEngine(
	llm core.LLMClient,
	retriever core.KnowledgeRetriever,
	telemetry workflow.Telemetry,
	observer workflow.NodeObserver,
) (*workflow.Engine, error) {
	mc, err := f.cfg.GetMailbox()
	if err != nil {
		return nil, err
	}
	wc := f.cfg.GetWorkflow()

	a := agents.New(llm, retriever, f.cfg.GetKnowledge().TopK, f.logger)
	return workflow.NewEngine(a, telemetry, workflow.Config{
		FetchLimit: mc.FetchLimit,
		SendMode:   wc.SendMode,
		Ignore:     senders.NewIgnoreList(wc.IgnoredDomains, f.logger),
	}, observer), nil
}
