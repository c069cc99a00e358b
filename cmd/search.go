package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/agb-search/agb-searcher/internal/model"
)

var searchNoSave bool

var searchCmd = &cobra.Command{
	Use:   "search <company name>",
	Short: "Look up contact information for one company",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		name := model.NormalizeName(strings.Join(args, " "))
		if name == "" {
			return eris.New("company name is empty")
		}

		record := env.Pipeline.SearchCompanyInfo(ctx, name)

		if !searchNoSave {
			saved, err := env.Store.UpsertCompany(ctx, record)
			if err != nil {
				return eris.Wrap(err, "search: save company")
			}
			saved.Provenance = record.Provenance
			record = *saved
		}

		out, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return eris.Wrap(err, "search: marshal result")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	searchCmd.Flags().BoolVar(&searchNoSave, "no-save", false, "print the result without saving it")
	rootCmd.AddCommand(searchCmd)
}
