package main

import (
	"fmt"

	"github.com/phrazzld/foobar-daemon/internal/config"
	"github.com/spf13/cobra"
)

// newRootCommand builds the daemon's only command.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "foobar-daemon",
		Short:         "Maintain a self-limiting table of synthetic rows in PostgreSQL",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := cmd.Flags().GetString(config.FlagConfig)
			if err != nil {
				return err
			}

			cfg, err := config.Load(path, cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			ctx := cmd.Context()
			app, err := newApplication(ctx, cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer app.cleanup()

			return app.Run(ctx)
		},
	}

	config.BindFlags(cmd.Flags())
	return cmd
}
