package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
)

type accountOutput struct {
	Email   string `json:"email"`
	Service string `json:"service"`
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List configured mailbox accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return container.Invoke(func(resolver *config.AccountResolver) error {
			accounts := resolver.All()
			if jsonOutput {
				out := make([]accountOutput, 0, len(accounts))
				for _, a := range accounts {
					out = append(out, accountOutput{Email: a.Email, Service: string(a.Service)})
				}
				return printJSON(cmd, out)
			}

			if len(accounts) == 0 {
				warnMsg("No accounts configured")
				return nil
			}
			header("Accounts")
			for _, a := range accounts {
				fmt.Printf("  %-8s %s\n", muted.Render(string(a.Service)), a.Email)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)
}
