package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/taxjar/internal/jobs"
	"github.com/odyssey-erp/taxjar/internal/taxjar"
)

// refreshJobName labels refresh runs in job metrics.
const refreshJobName = "taxjar_refresh"

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// TaxRefresher is implemented by taxjar.Service.
type TaxRefresher interface {
	Refresh(ctx context.Context) (taxjar.RefreshResult, error)
}

// TaxRefreshJob runs the rate and category refresh from the queue.
type TaxRefreshJob struct {
	Service TaxRefresher
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewTaxRefreshJob constructs the job handler.
func NewTaxRefreshJob(service TaxRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *TaxRefreshJob {
	return &TaxRefreshJob{Service: service, Logger: logger, Metrics: metrics}
}

// Handle executes one refresh. Configuration errors are not retried.
func (j *TaxRefreshJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("tax refresh: dependencies not configured")
	}
	var payload TaxRefreshPayload
	if raw := task.Payload(); len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return errors.Wrap(asynq.SkipRetry, "tax refresh: decode payload")
		}
	}

	_, err := j.Run(ctx, payload.Reason)
	if errors.Is(err, taxjar.ErrImproperlyConfigured) {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	return err
}

// Run refreshes inline with tracking and logging. The CLI uses it directly.
func (j *TaxRefreshJob) Run(ctx context.Context, reason string) (result taxjar.RefreshResult, resultErr error) {
	tracker := j.metrics().Track(refreshJobName)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	result, err := j.Service.Refresh(ctx)
	if err != nil {
		j.log().Error("refresh taxes",
			slog.String("run_id", result.RunID.String()),
			slog.String("reason", reason),
			slog.Any("error", err),
			slog.String("detail", fmt.Sprintf("%+v", err)))
		return result, err
	}

	j.metrics().AddRecords(refreshJobName, "rates", result.Rates)
	j.metrics().AddRecords(refreshJobName, "categories", result.Categories)
	j.log().Info("refreshed taxes",
		slog.String("run_id", result.RunID.String()),
		slog.String("reason", reason),
		slog.Int("rates", result.Rates),
		slog.Int("categories", result.Categories),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

func (j *TaxRefreshJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *TaxRefreshJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTaxRefresh))
	}
	return slog.Default().With(slog.String("job", TaskTaxRefresh))
}
