package main

import (
	"github.com/spf13/cobra"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/adapters/knowledge"
)

var indexDir string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the knowledge index from a directory of text and markdown documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		return container.Invoke(func(store *knowledge.Store, indexer *knowledge.Indexer) error {
			defer store.Close()

			report, err := indexer.IndexDir(cmd.Context(), indexDir)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd, report)
			}
			successMsg("Indexed %d chunks from %d files", report.Chunks, report.Files)
			return nil
		})
	},
}

func init() {
	indexCmd.Flags().StringVarP(&indexDir, "dir", "d", "docs", "Directory of documents to index")
	rootCmd.AddCommand(indexCmd)
}
