package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/asdwsxzc123/jiale-mrp/api/routes"
	"github.com/asdwsxzc123/jiale-mrp/internal/documents"
	"github.com/asdwsxzc123/jiale-mrp/internal/inspection"
	"github.com/asdwsxzc123/jiale-mrp/internal/inventory"
	"github.com/asdwsxzc123/jiale-mrp/internal/masterdata"
	"github.com/asdwsxzc123/jiale-mrp/internal/payments"
	"github.com/asdwsxzc123/jiale-mrp/internal/production"
	"github.com/asdwsxzc123/jiale-mrp/internal/sequence"
	"github.com/asdwsxzc123/jiale-mrp/internal/trace"
	"github.com/asdwsxzc123/jiale-mrp/internal/traceability"
	"github.com/asdwsxzc123/jiale-mrp/pkg/config"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db"
	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
	"github.com/asdwsxzc123/jiale-mrp/pkg/metrics"
	"github.com/asdwsxzc123/jiale-mrp/pkg/migrate"
	"github.com/asdwsxzc123/jiale-mrp/pkg/outbox"
	"github.com/asdwsxzc123/jiale-mrp/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.Tx, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	engineMetrics := metrics.NewEngine(registry)
	dbClient.ObserveRetries(engineMetrics.TxRetry)

	services, err := buildServices(cfg, logg, dbClient, engineMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"inventory": cfg.Inventory.NegativePolicy,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			metrics.NewHTTP(registry),
			services.documents,
			services.inventory,
			services.inspection,
			services.production,
			services.trace,
			services.payments,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

type serviceSet struct {
	documents  documents.Service
	inventory  inventory.Service
	inspection inspection.Service
	production production.Service
	trace      trace.Service
	payments   payments.Service
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, engineMetrics *metrics.Engine) (*serviceSet, error) {
	conn := dbClient.DB()

	alloc, err := sequence.NewService(sequence.NewRepository(conn), dbClient)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Trace.Location()
	if err != nil {
		return nil, err
	}
	codes, err := traceability.NewGenerator(traceability.NewRepository(conn), loc)
	if err != nil {
		return nil, err
	}
	md, err := masterdata.NewService(masterdata.NewRepository(conn))
	if err != nil {
		return nil, err
	}
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	policy := cfg.Inventory.Policy()

	inspectionSvc, err := inspection.NewService(inspection.ServiceParams{
		Repo:       inspection.NewRepository(conn),
		Tx:         dbClient,
		Codes:      codes,
		Outbox:     emitter,
		MasterData: md,
		Metrics:    engineMetrics,
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}

	documentsSvc, err := documents.NewService(documents.ServiceParams{
		Repo:       documents.NewRepository(conn),
		Tx:         dbClient,
		Sequence:   alloc,
		Outbox:     emitter,
		MasterData: md,
		Effects:    documents.DefaultEffects(inspectionSvc, md),
		Metrics:    engineMetrics,
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}

	inventorySvc, err := inventory.NewService(inventory.ServiceParams{
		Repo:       inventory.NewRepository(conn),
		Tx:         dbClient,
		Sequence:   alloc,
		Outbox:     emitter,
		MasterData: md,
		Policy:     policy,
		Metrics:    engineMetrics,
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}

	productionSvc, err := production.NewService(production.ServiceParams{
		Repo:       production.NewRepository(conn),
		Tx:         dbClient,
		Sequence:   alloc,
		Codes:      codes,
		Outbox:     emitter,
		MasterData: md,
		Policy:     policy,
		Metrics:    engineMetrics,
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}

	traceSvc, err := trace.NewService(trace.ServiceParams{
		Repo:    trace.NewRepository(conn),
		Metrics: engineMetrics,
		Logger:  logg,
	})
	if err != nil {
		return nil, err
	}

	paymentsSvc, err := payments.NewService(payments.ServiceParams{
		Repo:       payments.NewRepository(conn),
		Tx:         dbClient,
		Sequence:   alloc,
		Outbox:     emitter,
		MasterData: md,
		Metrics:    engineMetrics,
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}

	return &serviceSet{
		documents:  documentsSvc,
		inventory:  inventorySvc,
		inspection: inspectionSvc,
		production: productionSvc,
		trace:      traceSvc,
		payments:   paymentsSvc,
	}, nil
}
