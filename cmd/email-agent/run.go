package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
)

var (
	runService string
	runAccount string
	runAll     bool
)

type runOutput struct {
	ID      string   `json:"id"`
	Service string   `json:"service"`
	Account string   `json:"account"`
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Stats   runStats `json:"stats"`
}

type runStats struct {
	ProcessedEmails int `json:"processed_emails"`
	DraftsCreated   int `json:"drafts_created"`
	Skipped         int `json:"skipped"`
	Abandoned       int `json:"abandoned"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process unanswered inbox emails and draft replies",
	Long: "Run the triage workflow for one account. With --account and no --service the\n" +
		"provider is detected from the address. --all runs every configured account.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return container.Invoke(func(service *core.AutomationService, detector *config.ServiceDetector) error {
			if runAll {
				return printResults(service.RunAll(ctx))
			}

			svc, err := resolveService(ctx, detector, runService, runAccount)
			if err != nil {
				return err
			}
			result, err := service.Run(ctx, svc, runAccount)
			if result == nil {
				return err
			}
			if perr := printResults([]*core.RunResult{result}); perr != nil {
				return perr
			}
			return err
		})
	},
}

// resolveService parses --service, falling back to detection from --account
func resolveService(ctx context.Context, detector *config.ServiceDetector, service, account string) (config.Service, error) {
	if service != "" {
		return config.ParseService(service)
	}
	if account == "" {
		return "", errors.New("either --service or --account is required")
	}
	detection, err := detector.Detect(ctx, account)
	if err != nil {
		return "", err
	}
	if detection.Warning != "" {
		warnMsg("%s", detection.Warning)
	}
	return detection.Service, nil
}

func printResults(results []*core.RunResult) error {
	if jsonOutput {
		out := make([]runOutput, 0, len(results))
		for _, r := range results {
			out = append(out, runOutput{
				ID:      r.ID,
				Service: string(r.Service),
				Account: r.Account,
				Status:  r.Status,
				Message: r.Message,
				Stats: runStats{
					ProcessedEmails: r.Stats.ProcessedEmails,
					DraftsCreated:   r.Stats.DraftsCreated,
					Skipped:         r.Stats.Skipped,
					Abandoned:       r.Stats.Abandoned,
				},
			})
		}
		return printJSON(rootCmd, out)
	}

	if len(results) == 0 {
		warnMsg("No accounts were processed")
		return nil
	}
	for _, r := range results {
		fmt.Println(renderResult(r))
	}
	return nil
}

func renderResult(r *core.RunResult) string {
	status := success.Render("✓ " + r.Status)
	if r.Status != core.RunStatusSuccess {
		status = errStyle.Render("✗ " + r.Status)
	}
	lines := []string{
		bold.Render(fmt.Sprintf("%s · %s", r.Service, r.Account)) + "  " + status,
		row("Processed", 10, r.Stats.ProcessedEmails),
		row("Drafts", 10, r.Stats.DraftsCreated),
		row("Skipped", 10, r.Stats.Skipped),
		row("Abandoned", 10, r.Stats.Abandoned),
		dim.Render(r.Message),
	}
	return summaryBox.Render(strings.Join(lines, "\n"))
}

func init() {
	runCmd.Flags().StringVarP(&runService, "service", "s", "", "Email service (gmail or outlook)")
	runCmd.Flags().StringVarP(&runAccount, "account", "a", "", "Account address (default: first configured account)")
	runCmd.Flags().BoolVar(&runAll, "all", false, "Run every configured account")
	runCmd.Flags().StringVar(&flags.SendMode, "send-mode", "", "Override the send mode (draft or send)")
	runCmd.MarkFlagsMutuallyExclusive("all", "service")
	rootCmd.AddCommand(runCmd)
}
