package taxjarhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers the tax endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	// Address and order lookups hit the paid upstream API.
	limiter := httprate.Limit(60, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Route("/api/taxes", func(r chi.Router) {
		r.Get("/rates", h.handleListRates)
		r.Get("/rates/{country}", h.handleRegionRate)
		r.Get("/rates/{country}/{region}", h.handleRegionRate)
		r.Get("/categories", h.handleCategories)
		r.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/address/{postal}", h.handleAddress)
			gr.Post("/order", h.handleOrder)
		})
		r.With(httprate.LimitByIP(5, time.Minute)).Post("/refresh", h.handleRefresh)
	})
}
