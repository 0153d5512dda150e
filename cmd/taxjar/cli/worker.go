package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/taxjar/internal/app"
	jobmetrics "github.com/odyssey-erp/taxjar/internal/jobs"
	"github.com/odyssey-erp/taxjar/jobs"
)

func newWorkerCmd(opts *rootOptions) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process queued refreshes and schedule the nightly one",
		Long:  "Run the asynq worker for taxjar:refresh. TAXJAR_REFRESH_CRON schedules a refresh; an empty value disables the schedule.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.InTestMode() {
				cmd.Println("test mode detected, skipping worker startup")
				return nil
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			container, err := app.Build(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer container.Close()

			refreshJob := jobs.NewTaxRefreshJob(container.Service, logger, jobmetrics.NewMetrics(container.Metrics.Registerer()))
			cron, err := refreshSchedule(cfg.TaxJarRefreshCron)
			if err != nil {
				return err
			}
			worker, err := jobs.NewWorker(jobs.WorkerConfig{
				RedisOpts:   container.RedisOpts(),
				Logger:      logger,
				Concurrency: cfg.WorkerConcurrency,
				Handlers: []jobs.TaskHandler{
					{Type: jobs.TaskTaxRefresh, Handler: refreshJob.Handle},
				},
				Cron: cron,
			})
			if err != nil {
				return err
			}

			if metricsAddr != "" {
				server := &http.Server{
					Addr:              metricsAddr,
					Handler:           container.Metrics.Handler(),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					if err := serveHTTP(ctx, stop, logger, server); err != nil {
						logger.Warn("metrics server", slog.Any("error", err))
					}
				}()
			}

			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Expose /metrics on this address (disabled when empty)")
	return cmd
}

func refreshSchedule(spec string) ([]jobs.CronRegistration, error) {
	if spec == "" {
		return nil, nil
	}
	task, err := jobs.NewTaxRefreshTask("schedule")
	if err != nil {
		return nil, err
	}
	return []jobs.CronRegistration{
		{Spec: spec, Task: task, Options: []asynq.Option{asynq.MaxRetry(3)}},
	}, nil
}
