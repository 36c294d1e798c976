package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/asdwsxzc123/jiale-mrp/api/controllers"
	"github.com/asdwsxzc123/jiale-mrp/api/middleware"
	"github.com/asdwsxzc123/jiale-mrp/internal/documents"
	"github.com/asdwsxzc123/jiale-mrp/internal/inspection"
	"github.com/asdwsxzc123/jiale-mrp/internal/inventory"
	"github.com/asdwsxzc123/jiale-mrp/internal/payments"
	"github.com/asdwsxzc123/jiale-mrp/internal/production"
	"github.com/asdwsxzc123/jiale-mrp/internal/trace"
	"github.com/asdwsxzc123/jiale-mrp/pkg/config"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
	"github.com/asdwsxzc123/jiale-mrp/pkg/metrics"
	"github.com/asdwsxzc123/jiale-mrp/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTP,
	documentsService documents.Service,
	inventoryService inventory.Service,
	inspectionService inspection.Service,
	productionService production.Service,
	traceService trace.Service,
	paymentsService payments.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	// A nil *redis.Client must not reach the interfaces as a typed nil.
	var (
		cachePinger      redis.Pinger
		idempotencyStore redis.IdempotencyStore
	)
	if redisClient != nil {
		cachePinger = redisClient
		idempotencyStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, cachePinger, logg))
	})

	if cfg.Metrics.Enabled && gatherer != nil {
		r.Method(http.MethodGet, cfg.Metrics.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	adminOnly := middleware.RequireRole(logg, enums.UserRoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		for _, domain := range []enums.DocumentDomain{enums.DomainSales, enums.DomainPurchase} {
			r.Route("/"+string(domain), func(r chi.Router) {
				r.Route("/documents", func(r chi.Router) {
					r.Get("/", controllers.DocumentList(domain, documentsService, logg))
					r.Post("/", controllers.DocumentCreate(domain, documentsService, logg))
					r.Get("/{id}", controllers.DocumentGet(domain, documentsService, logg))
					r.Put("/{id}", controllers.DocumentUpdate(domain, documentsService, logg))
					r.With(adminOnly).Delete("/{id}", controllers.DocumentDelete(domain, documentsService, logg))
					r.Post("/{id}/approve", controllers.DocumentApprove(domain, documentsService, logg))
					r.Post("/{id}/cancel", controllers.DocumentCancel(domain, documentsService, logg))
					r.Post("/{id}/transfer", controllers.DocumentTransfer(domain, documentsService, logg))
				})
				r.Route("/payments", func(r chi.Router) {
					r.Get("/", controllers.PaymentList(domain, paymentsService, logg))
					r.Post("/", controllers.PaymentCreate(domain, paymentsService, logg))
					r.Get("/{id}", controllers.PaymentGet(domain, paymentsService, logg))
					r.Put("/{id}", controllers.PaymentUpdate(domain, paymentsService, logg))
					r.With(adminOnly).Delete("/{id}", controllers.PaymentDelete(domain, paymentsService, logg))
				})
			})
		}

		r.Route("/stock", func(r chi.Router) {
			r.Get("/transactions", controllers.StockTransactionList(inventoryService, logg))
			r.Post("/transactions", controllers.StockTransactionCreate(inventoryService, logg))
			r.Get("/transactions/{id}", controllers.StockTransactionGet(inventoryService, logg))
			r.Get("/balances", controllers.StockBalanceList(inventoryService, logg))
		})

		r.Route("/inspections", func(r chi.Router) {
			r.Get("/", controllers.InspectionList(inspectionService, logg))
			r.Post("/", controllers.InspectionCreate(inspectionService, logg))
			r.Get("/{id}", controllers.InspectionGet(inspectionService, logg))
			r.Put("/{id}", controllers.InspectionUpdate(inspectionService, logg))
			r.Post("/{id}/pass", controllers.InspectionPass(inspectionService, logg))
			r.Post("/{id}/reject", controllers.InspectionReject(inspectionService, logg))
		})

		r.Route("/production", func(r chi.Router) {
			r.Route("/boms", func(r chi.Router) {
				r.Get("/", controllers.BOMList(productionService, logg))
				r.Post("/", controllers.BOMCreate(productionService, logg))
				r.Get("/{id}", controllers.BOMGet(productionService, logg))
				r.Put("/{id}", controllers.BOMUpdate(productionService, logg))
				r.With(adminOnly).Delete("/{id}", controllers.BOMDelete(productionService, logg))
				r.Get("/{id}/expand", controllers.BOMExpand(productionService, logg))
			})
			r.Route("/job-orders", func(r chi.Router) {
				r.Get("/", controllers.JobOrderList(productionService, logg))
				r.Post("/", controllers.JobOrderCreate(productionService, logg))
				r.Get("/{id}", controllers.JobOrderGet(productionService, logg))
				r.Put("/{id}", controllers.JobOrderUpdate(productionService, logg))
				r.With(adminOnly).Delete("/{id}", controllers.JobOrderDelete(productionService, logg))
				r.Post("/{id}/issue", controllers.JobOrderIssue(productionService, logg))
				r.Post("/{id}/output", controllers.JobOrderOutput(productionService, logg))
				r.Post("/{id}/complete", controllers.JobOrderComplete(productionService, logg))
				r.Post("/{id}/cancel", controllers.JobOrderCancel(productionService, logg))
			})
		})

		r.Get("/trace/scan/{code}", controllers.TraceScan(traceService, logg))
	})

	return r
}
