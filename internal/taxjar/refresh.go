package taxjar

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RefreshResult summarises one refresh run.
type RefreshResult struct {
	RunID      uuid.UUID     `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	Rates      int           `json:"rates"`
	Categories int           `json:"categories"`
	Duration   time.Duration `json:"duration"`
}

// Refresh pulls summary rates and categories and persists both. Rates are
// stored before categories; a failure in either fetch aborts before any write.
func (s *Service) Refresh(ctx context.Context) (RefreshResult, error) {
	result := RefreshResult{RunID: uuid.New(), StartedAt: s.now()}

	var (
		rates      SummaryRatesResponse
		categories CategoriesResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rates, err = s.remote.FetchTaxRates(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = s.remote.FetchCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return result, err
	}

	n, err := s.CreateObjectsFromJSON(ctx, rates)
	if err != nil {
		return result, err
	}
	result.Rates = n

	n, err = s.SaveTaxCategories(ctx, categories)
	if err != nil {
		return result, err
	}
	result.Categories = n
	result.Duration = s.now().Sub(result.StartedAt)
	return result, nil
}
