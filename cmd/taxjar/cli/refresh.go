package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/taxjar/internal/app"
	jobmetrics "github.com/odyssey-erp/taxjar/internal/jobs"
	"github.com/odyssey-erp/taxjar/jobs"
)

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	var (
		jsonOutput bool
		enqueue    bool
	)
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch summary rates and categories from TaxJar and store them",
		Long:  "Fetch summary_rates and categories, upsert one record per country/region, overwrite the category list and refresh the cache. With --enqueue the work is handed to the worker instead.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			if enqueue {
				jobsCLI, err := NewJobsCLI(cfg.RedisAddr)
				if err != nil {
					return err
				}
				defer jobsCLI.Close()
				info, err := jobsCLI.Trigger(ctx, jobs.TaskTaxRefresh)
				if err != nil {
					return fmt.Errorf("enqueue refresh: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s\n", info.Type, info.ID)
				return nil
			}

			container, err := app.Build(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer container.Close()

			job := jobs.NewTaxRefreshJob(container.Service, logger, jobmetrics.NewMetrics(container.Metrics.Registerer()))
			return runRefresh(ctx, cmd.OutOrStdout(), job, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "Queue the refresh for the worker instead of running it")
	return cmd
}

func runRefresh(ctx context.Context, out io.Writer, job *jobs.TaxRefreshJob, jsonOutput bool) error {
	result, err := job.Run(ctx, "cli")
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Fprintf(out, "run %s: stored %d rates and %d categories in %s\n",
		result.RunID, result.Rates, result.Categories, result.Duration)
	return nil
}
