package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/akurin/identity-server-demo/app/internal/config"
	"github.com/akurin/identity-server-demo/app/internal/infra/logging"
)

// legacySeedArg is the positional switch older deployment scripts pass.
const legacySeedArg = "/seed"

type rootOptions struct {
	configPath string
	seed       bool
}

// NewRootCmd builds the identity-server command. Without --seed it serves HTTP.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "identity-server [--config path] [--seed | /seed]",
		Short:         "OpenID Connect identity server with user administration",
		Args:          legacyArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			seed := opts.seed
			for _, a := range args {
				if a == legacySeedArg {
					seed = true
				}
			}

			cfg, log, err := loadRuntime(cmd, opts.configPath)
			if err != nil {
				return err
			}
			if seed {
				return runSeed(cmd.Context(), cfg, log)
			}
			return runServe(cmd.Context(), cfg, log)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a configuration file (default ./appsettings.*)")
	cmd.Flags().BoolVar(&opts.seed, "seed", false, "create the demo role and users, then exit")

	cmd.AddCommand(newSeedCmd(opts))
	return cmd
}

// legacyArgs accepts only the legacy seed switch as a positional argument.
func legacyArgs(_ *cobra.Command, args []string) error {
	for _, a := range args {
		if a != legacySeedArg {
			return fmt.Errorf("unknown argument %q", a)
		}
	}
	return nil
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Apply migrations and create the demo role and users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime(cmd, opts.configPath)
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), cfg, log)
		},
	}
}

func loadRuntime(cmd *cobra.Command, configPath string) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(logging.Options{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
