package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
)

var (
	draftsService string
	draftsAccount string
)

type draftOutput struct {
	ID        string `json:"id"`
	ThreadID  string `json:"thread_id"`
	Subject   string `json:"subject"`
	To        string `json:"to"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at,omitempty"`
}

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "List reply drafts waiting in a mailbox",
	RunE: func(cmd *cobra.Command, args []string) error {
		return container.Invoke(func(service *core.AutomationService, detector *config.ServiceDetector) error {
			svc, err := resolveService(cmd.Context(), detector, draftsService, draftsAccount)
			if err != nil {
				return err
			}
			drafts, err := service.Drafts(cmd.Context(), svc, draftsAccount)
			if err != nil {
				return err
			}

			if jsonOutput {
				out := make([]draftOutput, 0, len(drafts))
				for _, d := range drafts {
					o := draftOutput{ID: d.ID, ThreadID: d.ThreadID, Subject: d.Subject, To: d.To, Body: d.Body}
					if !d.CreatedAt.IsZero() {
						o.CreatedAt = d.CreatedAt.UTC().Format("2006-01-02T15:04:05Z")
					}
					out = append(out, o)
				}
				return printJSON(cmd, out)
			}

			if len(drafts) == 0 {
				successMsg("No reply drafts")
				return nil
			}
			header(fmt.Sprintf("%d reply drafts", len(drafts)))
			for _, d := range drafts {
				fmt.Printf("  %s  %s\n", bold.Render(truncate(d.Subject, 60)), dim.Render(d.To))
				fmt.Printf("    %s\n", truncate(d.Body, 100))
			}
			return nil
		})
	},
}

func init() {
	draftsCmd.Flags().StringVarP(&draftsService, "service", "s", "", "Email service (gmail or outlook)")
	draftsCmd.Flags().StringVarP(&draftsAccount, "account", "a", "", "Account address")
	rootCmd.AddCommand(draftsCmd)
}
