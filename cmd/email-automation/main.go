package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/adapters/knowledge"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/api"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/di"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/factory"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/ports"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/scheduler"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

// Version is set via ldflags at build time.
var Version = "dev"

func main() {
	di.Version = Version

	container, err := di.BuildContainer()
	if err == nil {
		err = container.Invoke(run)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "email-automation: %v\n", err)
		os.Exit(1)
	}
}

type deps struct {
	dig.In

	Config    *config.Config
	Logger    *zap.Logger
	Server    *api.Server
	Scheduler *scheduler.Scheduler
	History   factory.HistoryStore
	Knowledge *knowledge.Store
}

// run starts the HTTP server and, when enabled, the scheduler, then blocks
// until SIGINT or SIGTERM
func run(d deps) error {
	logger := d.Logger
	defer logger.Sync()

	triggers := []ports.Trigger{d.Server}
	if d.Config.GetSchedule().Enabled {
		triggers = append(triggers, d.Scheduler)
	}

	for i, t := range triggers {
		if err := t.Start(); err != nil {
			logger.Error("Failed to start trigger", zap.Error(err))
			for _, started := range triggers[:i] {
				started.Stop()
			}
			return err
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", zap.String("signal", sig.String()))

	for i := len(triggers) - 1; i >= 0; i-- {
		if err := triggers[i].Stop(); err != nil {
			logger.Error("Failed to stop trigger", zap.Error(err))
		}
	}

	d.History.Stop()
	if err := d.Knowledge.Close(); err != nil {
		logger.Error("Failed to close knowledge index", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}
