// Package web is the HTTP surface of the service.
package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/DioGolang/GoShop/internal/application/port/outbound"
	"github.com/DioGolang/GoShop/internal/application/usecase/order"
	"github.com/DioGolang/GoShop/internal/infra/web/handler"
	"github.com/DioGolang/GoShop/internal/infra/web/middleware"
	"github.com/DioGolang/GoShop/pkg/logger"
	"github.com/DioGolang/GoShop/pkg/metrics"
)

type RouterConfig struct {
	ServiceName string
	Logger      logger.Logger
	Metrics     metrics.Metrics

	Factory     outbound.UnitOfWorkFactory
	Notifier    outbound.ProductNotifier
	CreateOrder order.CreateUseCase

	// Optional. A nil value disables the matching middleware or endpoint.
	RateLimiter    *middleware.ClientLimiter
	Idempotency    middleware.IdempotencyStore
	IdempotencyTTL time.Duration
	Health         http.Handler
	MetricsHandler http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(otelchi.Middleware(cfg.ServiceName, otelchi.WithChiRoutes(r)))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.MetricsWrapper(cfg.Metrics, "/metrics", "/health"))
	r.Use(chimw.Recoverer)

	if cfg.Health != nil {
		r.Method(http.MethodGet, "/health", cfg.Health)
	}
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	orders := handler.NewOrderHandler(cfg.CreateOrder, cfg.Factory, cfg.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Handler(cfg.Logger))
		}
		r.Route("/categories", handler.NewCategoryResource(cfg.Factory, cfg.Logger).Routes)
		r.Route("/customers", handler.NewCustomerResource(cfg.Factory, cfg.Logger).Routes)
		r.Route("/products", handler.NewProductResource(cfg.Factory, cfg.Notifier, cfg.Logger).Routes)
		r.Route("/order-items", handler.NewOrderItemResource(cfg.Factory, cfg.Logger).ReadRoutes)
		r.Route("/orders", func(r chi.Router) {
			orders.Routes(r, middleware.Idempotency(cfg.Idempotency, cfg.IdempotencyTTL, cfg.Logger, cfg.Metrics))
		})
	})

	return r
}
