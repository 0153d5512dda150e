package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/taxjar/internal/platform/db"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	run := func(action string, fn func(string) (db.MigrationStatus, error)) *cobra.Command {
		return &cobra.Command{
			Use:   action,
			Short: action + " the taxjar schema",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, _, err := opts.load()
				if err != nil {
					return err
				}
				status, err := fn(cfg.PGDSN)
				if err != nil {
					return fmt.Errorf("migrate %s: %w", action, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", status.Version, status.Dirty)
				return nil
			},
		}
	}
	cmd.AddCommand(run("up", db.Migrate))
	cmd.AddCommand(run("down", db.Rollback))
	return cmd
}
