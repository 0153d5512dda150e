// Package cli implements the taxjar command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/taxjar/internal/app"
)

var (
	version = "dev"
	commit  = "none"
)

type rootOptions struct {
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "taxjar",
		Short:         "Sync and serve TaxJar sales tax rates",
		Long:          "taxjar stores TaxJar summary rates and product categories in Postgres, serves them over HTTP and resolves address and order taxes against the live API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file read before the environment")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newRefreshCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newWorkerCmd(opts))
	cmd.AddCommand(newJobsCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

// Execute runs the root command and reports errors on stderr.
func Execute() error {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return err
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "taxjar %s (%s)\n", version, commit)
			return nil
		},
	}
}

func (o *rootOptions) load() (*app.Config, *slog.Logger, error) {
	cfg, err := app.LoadConfig(o.envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, app.NewLogger(cfg), nil
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
