package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/example/caprieux-storefront/internal/api/middleware"
	"github.com/example/caprieux-storefront/internal/telemetry"
)

const requestTimeout = 30 * time.Second

// RouterConfig carries the optional pieces of the return server.
type RouterConfig struct {
	Admin   middleware.AdminChecker
	Metrics *telemetry.HTTPMetrics
	Logger  *zap.Logger
	// State is reloaded before each cart, payment and admin request.
	State []middleware.Reloader
}

func NewRouter(handlers *Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimw.Timeout(requestTimeout))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	r.Get("/health", handlers.Health)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if len(cfg.State) > 0 {
			r.Use(middleware.ReloadState(cfg.Logger, cfg.State...))
		}

		// Payment provider redirects
		r.Get("/order-success", handlers.OrderSuccess)
		r.Get("/order-failed", handlers.OrderFailed)

		r.Get("/cart", handlers.GetCart)

		if cfg.Admin != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin(cfg.Admin))
				r.Get("/orders", handlers.GetAllOrders)
				r.Get("/orders/export", handlers.ExportOrders)
			})
		}
	})

	return r
}
