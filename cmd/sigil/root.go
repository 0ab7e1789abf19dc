package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sigil/internal/platform/config"
	"sigil/internal/platform/logger"
)

// cli carries the state shared by every subcommand.
type cli struct {
	v      *viper.Viper
	cfg    config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	c := &cli{v: config.NewViper()}
	root := &cobra.Command{
		Use:           "sigil",
		Short:         "Passkey identity server with OAuth 2.0 and OpenID Connect",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if path, _ := cmd.Flags().GetString("config"); path != "" {
				c.v.SetConfigFile(path)
				if err := c.v.ReadInConfig(); err != nil {
					return fmt.Errorf("read config %s: %w", path, err)
				}
			}
			cfg, err := config.Load(c.v)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = logger.New(cfg.Log.Level, cfg.Log.Format)
			slog.SetDefault(c.logger)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (yaml, toml or json); SIGIL_* variables still apply")
	flags.String("keys-dir", "", "directory holding the signing keys")
	flags.String("postgres-url", "", "Postgres connection URL")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	_ = c.v.BindPFlag("keys.dir", flags.Lookup("keys-dir"))
	_ = c.v.BindPFlag("postgres.url", flags.Lookup("postgres-url"))
	_ = c.v.BindPFlag("log.level", flags.Lookup("log-level"))

	root.AddCommand(
		c.serveCommand(),
		c.setupCommand(),
		c.loginLinkCommand(),
		c.rotateKeysCommand(),
	)
	return root
}
