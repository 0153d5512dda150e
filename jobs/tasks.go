package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTaxRefresh pulls summary rates and categories from TaxJar.
	TaskTaxRefresh = "taxjar:refresh"
)

// refreshTimeout bounds one refresh run including both upstream calls.
const refreshTimeout = 5 * time.Minute

// TaxRefreshPayload records who asked for a refresh.
type TaxRefreshPayload struct {
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewTaxRefreshTask constructs a refresh task. reason defaults to "manual".
func NewTaxRefreshTask(reason string) (*asynq.Task, error) {
	if reason == "" {
		reason = "manual"
	}
	data, err := json.Marshal(TaxRefreshPayload{Reason: reason, RequestedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTaxRefresh, data,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Timeout(refreshTimeout),
	), nil
}
