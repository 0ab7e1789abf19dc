package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sigil/internal/oidc"
)

func (c *cli) rotateKeysCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate-keys",
		Short: "Add a new OIDC signing key; the newest key signs",
		Long: "Generates a new RSA key next to the existing ones. Older keys stay in the JWKS " +
			"so tokens they signed keep verifying. Restart the server to pick it up.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kid, err := oidc.GenerateKey(c.cfg.Keys.Dir, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "generated key %d in %s\n", kid, oidc.Dir(c.cfg.Keys.Dir))
			return nil
		},
	}
}
