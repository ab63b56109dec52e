package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"loveletter-server/internal/loveletter"
	"loveletter-server/internal/server"
)

type Config struct {
	bind        string
	port        int
	databaseURL string
	migrations  string
	publicURL   string
	sharedWins  bool
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.databaseURL == "" {
		return errors.New("--database-url is required")
	}
	return nil
}

func (c *Config) serverConfig() server.Config {
	tieBreak := loveletter.TieFirstInOrder
	if c.sharedWins {
		tieBreak = loveletter.TieShareWin
	}

	return server.Config{
		Bind:          c.bind,
		Port:          c.port,
		DatabaseURL:   c.databaseURL,
		MigrationsDir: c.migrations,
		PublicURL:     strings.TrimSuffix(c.publicURL, "/"),
		TieBreak:      tieBreak,
	}
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("LOVELETTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "loveletter-server",
		Short:         "A realtime server for a Love Letter style deduction card game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: LOVELETTER_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: LOVELETTER_PORT)")
	fs.StringVar(&cfg.databaseURL, "database-url", "", "postgres connection string (env: LOVELETTER_DATABASE_URL)")
	fs.StringVar(&cfg.migrations, "migrations", "./db/migrations", "path to goose migrations (env: LOVELETTER_MIGRATIONS)")
	fs.StringVar(&cfg.publicURL, "public-url", "http://localhost:8080", "base URL used in join links and QR codes (env: LOVELETTER_PUBLIC_URL)")
	fs.BoolVar(&cfg.sharedWins, "shared-wins", true, "share the win on a deck-exhaustion tie instead of awarding the earliest player (env: LOVELETTER_SHARED_WINS)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
