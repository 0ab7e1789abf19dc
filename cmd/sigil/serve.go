package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"sigil/internal/server"
)

func (c *cli) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := server.NewApp(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}
			runErr := app.Run(ctx)
			closeErr := app.Close(context.WithoutCancel(ctx))
			return errors.Join(runErr, closeErr)
		},
	}
	cmd.Flags().String("addr", "", "listen address")
	_ = c.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}
