package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/adapters/samsara"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/factory"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/logging"
)

// CLIFlags are the persistent flags of the email-agent command
type CLIFlags struct {
	ConfigFile string
	Verbose    bool
	JSONLog    bool

	// Overrides applied on top of the loaded configuration
	Provider string
	SendMode string
}

// BuildCLIContainer wires the one-shot CLI. Runs are not recorded, notified or
// exported as metrics.
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	providers := []interface{}{
		func() *CLIFlags { return flags },
		func(flags *CLIFlags) (*zap.Logger, error) {
			return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
		},
		loadCLIConfig,
		func(
			f *factory.WorkflowFactory,
			llm core.LLMClient,
			retriever core.KnowledgeRetriever,
			telemetry *samsara.Service,
		) (core.WorkflowEngine, error) {
			return f.CreateEngine(llm, retriever, telemetry, nil)
		},
		func(
			resolver *config.AccountResolver,
			mailboxes core.MailboxFactory,
			engine core.WorkflowEngine,
			logger *zap.Logger,
		) *core.AutomationService {
			return core.NewAutomationService(resolver, mailboxes, engine, nil, false, 0, nil, nil, logger)
		},
	}
	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return nil, err
		}
	}

	if err := provideCommon(container); err != nil {
		return nil, err
	}
	return container, nil
}

func loadCLIConfig(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
	cfg, err := config.NewFromFile(flags.ConfigFile)
	if err != nil {
		return nil, err
	}
	if used := cfg.GetViper().ConfigFileUsed(); used != "" {
		logger.Debug("Loaded configuration from file", zap.String("file", used))
	}

	v := cfg.GetViper()
	if flags.Provider != "" {
		v.Set("llm.provider", flags.Provider)
	}
	if flags.SendMode != "" {
		v.Set("workflow.send_mode", flags.SendMode)
	}
	return cfg, nil
}
