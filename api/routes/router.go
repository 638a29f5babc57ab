package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plateiq/restaurant-backend/api/controllers"
	"github.com/plateiq/restaurant-backend/api/middleware"
	"github.com/plateiq/restaurant-backend/internal/adjustments"
	"github.com/plateiq/restaurant-backend/internal/alerts"
	"github.com/plateiq/restaurant-backend/internal/deduction"
	"github.com/plateiq/restaurant-backend/internal/inventory"
	"github.com/plateiq/restaurant-backend/internal/ledger"
	"github.com/plateiq/restaurant-backend/pkg/config"
	"github.com/plateiq/restaurant-backend/pkg/logger"
	"github.com/plateiq/restaurant-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	idempotencyStore redis.IdempotencyStore,
	gatherer prometheus.Gatherer,
	inventoryService inventory.Service,
	ledgerService ledger.Service,
	adjustmentService adjustments.Service,
	deductionService deduction.Service,
	alertService alerts.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity())
		if idempotencyStore != nil {
			r.Use(middleware.Idempotency(idempotencyStore, cfg.Inventory.IdempotencyTTL, logg))
		}

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/", controllers.CreateInventoryItem(inventoryService, logg))
			r.Get("/", controllers.ListInventory(inventoryService, logg))
			r.Get("/low-stock", controllers.ListLowStock(inventoryService, logg))
			r.Post("/deduct", controllers.DeductForOrder(deductionService, logg))
			r.Get("/by-menu-item/{menuItemID}", controllers.GetInventoryItemByMenuItem(inventoryService, logg))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", controllers.GetInventoryItem(inventoryService, logg))
				r.Patch("/", controllers.UpdateInventoryItem(inventoryService, logg))
				r.Delete("/", controllers.DeleteInventoryItem(inventoryService, logg))
				r.Put("/quantity", controllers.AdjustQuantity(adjustmentService, logg))
				r.Get("/transactions", controllers.ListItemTransactions(ledgerService, logg, cfg.Inventory.HistoryMaxPageSize))
			})
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", controllers.ListAlerts(alertService, logg))
			r.Post("/{id}/read", controllers.MarkAlertRead(alertService, logg))
			r.Post("/read-all", controllers.MarkAllAlertsRead(alertService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Identity())
		r.Post("/inventory/{id}/backfill", controllers.BackfillInitialTransaction(ledgerService, logg))
	})

	return r
}
