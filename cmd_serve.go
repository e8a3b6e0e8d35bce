package main

import (
	"github.com/spf13/cobra"

	"github.com/docbook-core-poc-v1/server/internal/server"
	logx "github.com/docbook-core-poc-v1/server/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP chat server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.cfg.SeedOnStart {
			if _, err := a.seed(ctx, false); err != nil {
				return err
			}
		}

		runner, err := a.runner(ctx)
		if err != nil {
			return err
		}

		logx.Info().Str("environment", a.cfg.Environment.String()).Msg("starting appointment assistant")
		return server.New(runner, a.metrics, a.cfg.HTTP).Start(ctx)
	},
}
