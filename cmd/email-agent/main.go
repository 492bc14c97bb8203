package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/di"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	flags      = &di.CLIFlags{}
	jsonOutput bool
	container  *dig.Container
)

var rootCmd = &cobra.Command{
	Use:           "email-agent",
	Short:         "email-agent - LLM triage and reply drafting for Gmail and Outlook inboxes",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		var err error
		container, err = di.BuildCLIContainer(flags)
		if err != nil {
			return fmt.Errorf("failed to build dependency container: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if container == nil {
			return
		}
		_ = container.Invoke(func(logger *zap.Logger) { _ = logger.Sync() })
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "email-agent version %s\n", Version)
	},
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flags.ConfigFile, "config", "", "Path to config file (default: search standard locations)")
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&flags.Provider, "provider", "", "Override the LLM provider (gemini, openai, bedrock, anthropic)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		errorMsg("%v", err)
		os.Exit(1)
	}
}
