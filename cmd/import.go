package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agb-search/agb-searcher/internal/importer"
)

var importConcurrency int

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx|file.csv>",
	Short: "Bulk-search companies listed in a spreadsheet",
	Long:  "Reads company names from the first column of an XLSX or CSV file, skips names already in the database, and looks up the rest.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		imp := env.Importer
		if importConcurrency > 0 {
			imp = importer.New(env.Store, env.Pipeline,
				importer.WithMaxConcurrent(importConcurrency))
		}

		summary, err := imp.ImportFile(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Processed %d companies, found information for %d, skipped %d already known\n",
			summary.Processed, summary.Found, summary.Skipped)
		return nil
	},
}

func init() {
	importCmd.Flags().IntVar(&importConcurrency, "concurrency", 0, "max simultaneous lookups (default from config)")
	rootCmd.AddCommand(importCmd)
}
