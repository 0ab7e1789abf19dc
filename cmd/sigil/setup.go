package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sigil/internal/identity/models"
	"sigil/internal/oidc"
	"sigil/internal/platform/postgres"
	"sigil/internal/server"
)

func (c *cli) setupCommand() *cobra.Command {
	var in models.UserInput
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Migrate the database, create missing keys and the first admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			db, err := postgres.Open(ctx, c.cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := postgres.Migrate(ctx, db); err != nil {
				return err
			}
			fmt.Fprintln(out, "database migrated")

			tokens, err := server.NewCodec(c.cfg)
			if err != nil {
				return err
			}
			created, err := oidc.EnsureKey(c.cfg.Keys.Dir, tokens.Now())
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintln(out, "generated OIDC signing key in", oidc.Dir(c.cfg.Keys.Dir))
			}

			svc := server.NewIdentityService(c.cfg, db, tokens, c.logger)
			admin, group, err := svc.Bootstrap(ctx, in)
			if err != nil {
				return err
			}
			link, err := svc.RegistrationLink(admin)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "admin %q is a member of %q\n", admin.Username, group.Slug)
			fmt.Fprintln(out, "register a passkey at:", link)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Username, "admin-username", "admin", "username of the first admin")
	f.StringVar(&in.Email, "admin-email", "admin@localhost", "email of the first admin")
	f.StringVar(&in.Name, "admin-name", "Administrator", "display name of the first admin")
	return cmd
}
