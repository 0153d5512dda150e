// Package taxjarhttp exposes stored rates, categories and live tax
// calculations over JSON.
package taxjarhttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/odyssey-erp/taxjar/internal/platform/httpx"
	"github.com/odyssey-erp/taxjar/internal/prices"
	"github.com/odyssey-erp/taxjar/internal/taxjar"
)

const storeTimeout = 2 * time.Second

// TaxService is the contract the handler needs from taxjar.Service.
type TaxService interface {
	GetTaxRatesForRegion(ctx context.Context, countryCode string, regionCode *string, forceRefresh bool) (*taxjar.RateSummary, error)
	ListTaxRates(ctx context.Context, countryCode string) ([]taxjar.RateSummary, error)
	GetTaxCategories(ctx context.Context) ([]taxjar.Category, error)
	AddressRate(ctx context.Context, address taxjar.AddressLookup, forceRefresh bool) (taxjar.AddressRate, error)
	GetTaxesForOrder(ctx context.Context, params taxjar.OrderParams) (taxjar.OrderTaxResult, error)
	Refresh(ctx context.Context) (taxjar.RefreshResult, error)
}

// Enqueuer schedules a background refresh and returns the task ID.
type Enqueuer interface {
	EnqueueTaxRefresh(ctx context.Context) (string, error)
}

// Handler serves the /api/taxes endpoints.
type Handler struct {
	logger   *slog.Logger
	service  TaxService
	enqueuer Enqueuer
}

// NewHandler constructs the handler. With a nil enqueuer refreshes run inline.
func NewHandler(logger *slog.Logger, service TaxService, enqueuer Enqueuer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, enqueuer: enqueuer}
}

type orderBody struct {
	taxjar.OrderParams
	Apply *applyBody `json:"apply,omitempty"`
}

type applyBody struct {
	Base      prices.Money `json:"base"`
	KeepGross bool         `json:"keep_gross"`
}

type orderResponse struct {
	taxjar.OrderTaxResult
	Taxed *prices.TaxedMoney `json:"taxed,omitempty"`
}

func (h *Handler) handleListRates(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	country := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("country")))
	rates, err := h.service.ListTaxRates(ctx, country)
	if err != nil {
		h.respondError(w, r, "list rates", err)
		return
	}
	if rates == nil {
		rates = []taxjar.RateSummary{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"summary_rates": rates})
}

func (h *Handler) handleRegionRate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	country := strings.ToUpper(chi.URLParam(r, "country"))
	var region *string
	if code := strings.ToUpper(chi.URLParam(r, "region")); code != "" {
		region = &code
	}
	summary, err := h.service.GetTaxRatesForRegion(ctx, country, region, forceRefresh(r))
	if err != nil {
		h.respondError(w, r, "region rate", err)
		return
	}
	if summary == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", fmt.Sprintf("no rates stored for %s", strings.TrimSuffix(country+"/"+lo.FromPtr(region), "/")))
		return
	}

	resp := map[string]any{"summary_rate": summary}
	if rate, ok := taxjar.TaxRate(summary); ok {
		resp["rate"] = rate
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	categories, err := h.service.GetTaxCategories(ctx)
	if err != nil {
		h.respondError(w, r, "categories", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (h *Handler) handleAddress(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	address := taxjar.AddressLookup{
		PostalCode:  chi.URLParam(r, "postal"),
		CountryCode: q.Get("country"),
		RegionCode:  lo.CoalesceOrEmpty(q.Get("state"), q.Get("region")),
		City:        q.Get("city"),
		Street:      q.Get("street"),
	}
	rate, err := h.service.AddressRate(r.Context(), address, forceRefresh(r))
	if err != nil {
		h.respondError(w, r, "address rate", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"rate":            rate,
		"combined_rate":   rate.CombinedRate,
		"freight_taxable": rate.FreightTaxable,
	})
}

func (h *Handler) handleOrder(w http.ResponseWriter, r *http.Request) {
	var body orderBody
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		h.respondError(w, r, "decode order", err)
		return
	}
	result, err := h.service.GetTaxesForOrder(r.Context(), body.OrderParams)
	if err != nil {
		h.respondError(w, r, "order tax", err)
		return
	}

	resp := orderResponse{OrderTaxResult: result}
	if body.Apply != nil {
		taxed, err := result.Apply(body.Apply.Base, body.Apply.KeepGross)
		if err != nil {
			h.respondError(w, r, "apply order tax", err)
			return
		}
		resp.Taxed = &taxed
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer != nil {
		id, err := h.enqueuer.EnqueueTaxRefresh(r.Context())
		if err != nil {
			h.respondError(w, r, "enqueue refresh", err)
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]string{"task_id": id})
		return
	}
	result, err := h.service.Refresh(r.Context())
	if err != nil {
		h.respondError(w, r, "refresh", err)
		return
	}
	h.logger.Info("taxjar refresh completed", slog.String("run_id", result.RunID.String()), slog.Int("rates", result.Rates), slog.Int("categories", result.Categories))
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	mapped := classify(err)
	if !errors.Is(mapped, httpx.ErrValidation) && !errors.Is(mapped, httpx.ErrNotFound) {
		h.logger.Error("taxjar request failed",
			slog.String("op", op),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
			slog.String("detail", fmt.Sprintf("%+v", err)))
	}
	httpx.RespondError(w, mapped)
}

// classify maps domain errors onto httpx sentinels.
func classify(err error) error {
	switch {
	case errors.Is(err, httpx.ErrValidation):
		return err
	case errors.Is(err, taxjar.ErrNotFound):
		return fmt.Errorf("%w: %v", httpx.ErrNotFound, err)
	case errors.Is(err, taxjar.ErrInvalidOrder),
		errors.Is(err, taxjar.ErrAmountOrLineItemsRequired),
		errors.Is(err, prices.ErrCurrencyMismatch),
		errors.Is(err, prices.ErrUnsupportedBase),
		errors.Is(err, prices.ErrInvalidRate):
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	case errors.Is(err, taxjar.ErrImproperlyConfigured):
		return fmt.Errorf("%w: %v", httpx.ErrMisconfigured, err)
	}
	if _, ok := taxjar.IsTransportError(err); ok {
		return fmt.Errorf("%w: %v", httpx.ErrUpstream, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", httpx.ErrUpstream, err)
	}
	return err
}

func forceRefresh(r *http.Request) bool {
	force, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	return force
}
