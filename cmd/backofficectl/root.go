package main

import (
	"context"

	"github.com/spf13/cobra"

	"backoffice/internal/bootstrap"
	"backoffice/internal/shared/config"
	"backoffice/internal/shared/telemetry"
)

// commandContext builds the dependency graph once per invocation.
type commandContext struct {
	cfg   *config.Config
	app   *bootstrap.App
	build func(ctx context.Context, cfg config.Config) (*bootstrap.App, error)
}

func newCommandContext() *commandContext {
	return &commandContext{build: bootstrap.BuildWorker}
}

func (c *commandContext) config() config.Config {
	if c.cfg == nil {
		cfg := config.Load()
		c.cfg = &cfg
	}
	return *c.cfg
}

func (c *commandContext) withApp(ctx context.Context, fn func(app *bootstrap.App) error) error {
	if c.app == nil {
		app, err := c.build(ctx, c.config())
		if err != nil {
			return err
		}
		c.app = app
		defer func() {
			_ = c.app.Close()
			c.app = nil
		}()
	}
	return fn(c.app)
}

func newRootCommand(ctx *commandContext) *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "backofficectl",
		Short:         "Operate the quote and CFDI back office",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if verbose {
				level = "debug"
			}
			telemetry.Configure(cmd.ErrOrStderr(), level)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Emit debug logs to stderr")

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newCFDICommand(ctx))
	rootCmd.AddCommand(newTokenCommand())

	return rootCmd
}
