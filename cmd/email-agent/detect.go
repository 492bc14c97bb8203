package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
)

var detectCmd = &cobra.Command{
	Use:   "detect <address>",
	Short: "Detect whether an address is hosted on Gmail or Outlook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return container.Invoke(func(detector *config.ServiceDetector) error {
			detection, err := detector.Detect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd, map[string]string{
					"address": args[0],
					"service": string(detection.Service),
					"warning": detection.Warning,
				})
			}
			fmt.Printf("%s %s\n", args[0], bold.Render(string(detection.Service)))
			if detection.Warning != "" {
				warnMsg("%s", detection.Warning)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
