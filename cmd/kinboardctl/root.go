package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/rpggio/kinboard/internal/bootstrap"
	"github.com/rpggio/kinboard/internal/config"
	"github.com/rpggio/kinboard/internal/logging"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	envFiles []string
	root     string
	backend  string
	verbose  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "kinboardctl",
		Short: "Inspect and maintain a kinboard deployment",
		Long: `kinboardctl works on the same storage root and notification store as the
server, using the same configuration file and environment variables.

Available subcommands:
  notifications - list, export or import notification log entries
  index         - show the next filename index for a folder
  whatsapp      - send a test WhatsApp message`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env.local", ".env"}, "env files loaded before the configuration")
	cmd.PersistentFlags().StringVar(&opts.root, "root", "", "override storage.root")
	cmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "override notifications.backend (sqlite or jsonl)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level to stderr")

	cmd.AddCommand(
		newNotificationsCmd(opts),
		newIndexCmd(),
		newWhatsAppCmd(opts),
	)
	return cmd
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	if err := config.LoadDotEnv(o.envFiles...); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if o.root != "" {
		cfg.Storage.Root = o.root
	}
	if o.backend != "" {
		cfg.Notifications.Backend = o.backend
	}
	return cfg, cfg.Validate()
}

func (o *rootOptions) logger(stderr io.Writer) *slog.Logger {
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	logger, _, _ := logging.New(stderr, level, "")
	return logger
}

// withApp builds the application for one command and closes it afterwards.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	app, err := bootstrap.New(cfg, o.logger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	runErr := fn(ctx, app)
	if err := app.Close(ctx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
