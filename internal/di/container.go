package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/adapters/knowledge"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/adapters/notify"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/adapters/samsara"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/api"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/factory"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/logging"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/metrics"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/scheduler"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/utils"
)

// Version is reported by the health endpoint
var Version = "dev"

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideCommon(container); err != nil {
		return nil, err
	}

	// Register metrics recorder
	if err := container.Provide(metrics.NewRecorder); err != nil {
		return nil, err
	}

	// Register workflow engine, observed by the metrics recorder
	if err := container.Provide(func(
		f *factory.WorkflowFactory,
		llm core.LLMClient,
		retriever core.KnowledgeRetriever,
		telemetry *samsara.Service,
		recorder *metrics.Recorder,
	) (core.WorkflowEngine, error) {
		return f.CreateEngine(llm, retriever, telemetry, recorder)
	}); err != nil {
		return nil, err
	}

	// Register run history store
	if err := container.Provide(func(f *factory.HistoryFactory) (factory.HistoryStore, error) {
		return f.CreateRunRepository()
	}); err != nil {
		return nil, err
	}

	// Register run notifier
	if err := container.Provide(func(cfg *config.Config, text *utils.TextProcessor, logger *zap.Logger) (core.RunNotifier, error) {
		nc := cfg.GetNotify()
		if !nc.Enabled {
			return nil, nil
		}
		return notify.NewSMTPNotifier(nc, text, logger)
	}); err != nil {
		return nil, err
	}

	// Register automation service
	if err := container.Provide(func(p serviceParams) (*core.AutomationService, error) {
		hc, err := p.Config.GetHistory()
		if err != nil {
			return nil, err
		}
		return core.NewAutomationService(
			p.Resolver,
			p.Mailboxes,
			p.Engine,
			p.History,
			hc.Enabled,
			hc.Retention,
			p.Notifier,
			p.Recorder,
			p.Logger,
		), nil
	}); err != nil {
		return nil, err
	}

	// Register HTTP API server
	if err := container.Provide(func(
		cfg *config.Config,
		service *core.AutomationService,
		recorder *metrics.Recorder,
		logger *zap.Logger,
	) (*api.Server, error) {
		sc, err := cfg.GetServer()
		if err != nil {
			return nil, err
		}
		return api.NewServer(sc, service, recorder.Handler(), Version, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register scheduler
	if err := container.Provide(func(cfg *config.Config, service *core.AutomationService, logger *zap.Logger) *scheduler.Scheduler {
		return scheduler.New(cfg.GetSchedule().Spec, service, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

type serviceParams struct {
	dig.In

	Config    *config.Config
	Resolver  *config.AccountResolver
	Mailboxes core.MailboxFactory
	Engine    core.WorkflowEngine
	History   factory.HistoryStore
	Notifier  core.RunNotifier
	Recorder  *metrics.Recorder
	Logger    *zap.Logger
}

// provideCommon registers the factories and adapters shared by the service and the CLI
func provideCommon(container *dig.Container) error {
	providers := []interface{}{
		utils.NewTextProcessor,
		factory.NewLLMFactory,
		factory.NewHistoryFactory,
		factory.NewMailboxFactory,
		factory.NewKnowledgeFactory,
		factory.NewWorkflowFactory,
		config.NewAccountResolver,
		func(r *config.AccountResolver) *config.ServiceDetector {
			return config.NewServiceDetector(r, nil)
		},
		func(f *factory.MailboxFactory) core.MailboxFactory {
			return f
		},
		func(f *factory.LLMFactory) (core.LLMClient, error) {
			return f.CreateLLMClient()
		},
		func(f *factory.KnowledgeFactory) (*knowledge.Store, error) {
			return f.OpenStore()
		},
		func(f *factory.KnowledgeFactory, store *knowledge.Store) (core.KnowledgeRetriever, error) {
			return f.CreateRetriever(store)
		},
		func(f *factory.KnowledgeFactory, store *knowledge.Store) (*knowledge.Indexer, error) {
			return f.CreateIndexer(store)
		},
		func(f *factory.WorkflowFactory) (*samsara.Service, error) {
			return f.CreateTelemetry()
		},
	}
	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return err
		}
	}
	return nil
}
