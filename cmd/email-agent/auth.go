package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/adapters/gmail"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
)

var authAccount string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize a Gmail account and save its OAuth token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return container.Invoke(func(resolver *config.AccountResolver) error {
			account, err := resolver.Resolve(config.ServiceGmail, authAccount)
			if err != nil {
				return err
			}
			if err := gmail.Authorize(cmd.Context(), account, os.Stdin, os.Stdout); err != nil {
				return fmt.Errorf("failed to authorize %s: %w", account.Email, err)
			}
			successMsg("Authorized %s", account.Email)
			return nil
		})
	},
}

func init() {
	authCmd.Flags().StringVarP(&authAccount, "account", "a", "", "Gmail address (default: first configured account)")
	rootCmd.AddCommand(authCmd)
}
