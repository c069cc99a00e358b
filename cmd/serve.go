package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agb-search/agb-searcher/internal/deliverability"
	"github.com/agb-search/agb-searcher/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := server.New(env.Store, env.Pipeline, env.Importer, env.Assistant,
			deliverability.NewChecker(),
			server.Config{
				Port:           port,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				LookupTimeout:  time.Duration(cfg.Pipeline.LookupTimeoutSecs) * time.Second,
			})

		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
