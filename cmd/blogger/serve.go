package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheNovakAI/google-search-blogger/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive topic form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, cleanup, err := a.buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			srv := web.NewServer(p, a.logger)
			if err := srv.Start(a.cfg.Web.Addr); err != nil {
				return err
			}

			<-cmd.Context().Done()
			a.logger.Info("shutting down web form")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Stop(ctx)
		},
	}

	addPipelineFlags(cmd)
	cmd.Flags().String("addr", ":8080", "listen address of the form")
	configKey(cmd.Flags(), "addr", "web.addr")
	return cmd
}
