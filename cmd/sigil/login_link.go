package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sigil/internal/platform/postgres"
	"sigil/internal/server"
)

func (c *cli) loginLinkCommand() *cobra.Command {
	var email bool
	cmd := &cobra.Command{
		Use:   "get-login-link <username>",
		Short: "Print a passkey registration link for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := postgres.Open(ctx, c.cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()

			tokens, err := server.NewCodec(c.cfg)
			if err != nil {
				return err
			}
			svc := server.NewIdentityService(c.cfg, db, tokens, c.logger)
			u, link, err := svc.RegistrationLinkForUsername(ctx, args[0])
			if err != nil {
				return err
			}
			if email {
				if err := svc.MailRegistrationLink(ctx, u); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "registration link sent to %s\n", u.Email)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}
	cmd.Flags().BoolVar(&email, "email", false, "mail the link to the user instead of printing it")
	return cmd
}
