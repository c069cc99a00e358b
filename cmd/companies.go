package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	companiesLimit  int
	companiesOffset int
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List stored companies",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		companies, err := env.Store.ListCompanies(ctx, companiesLimit, companiesOffset)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(companies, "", "  ")
		if err != nil {
			return eris.Wrap(err, "companies: marshal")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	companiesCmd.Flags().IntVar(&companiesLimit, "limit", 100, "max companies to list")
	companiesCmd.Flags().IntVar(&companiesOffset, "offset", 0, "number of companies to skip")
	rootCmd.AddCommand(companiesCmd)
}
