package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
	"github.com/fungus-mycelium/fungus-admin/internal/app"
	"github.com/fungus-mycelium/fungus-admin/internal/auth"
	"github.com/fungus-mycelium/fungus-admin/internal/contacts"
	"github.com/fungus-mycelium/fungus-admin/internal/inventory"
	"github.com/fungus-mycelium/fungus-admin/internal/logs"
	logshttp "github.com/fungus-mycelium/fungus-admin/internal/logs/http"
	"github.com/fungus-mycelium/fungus-admin/internal/observability"
	"github.com/fungus-mycelium/fungus-admin/internal/orders"
	"github.com/fungus-mycelium/fungus-admin/internal/platform/cache"
	"github.com/fungus-mycelium/fungus-admin/internal/quotations"
	"github.com/fungus-mycelium/fungus-admin/internal/rbac"
	"github.com/fungus-mycelium/fungus-admin/internal/shared"
	"github.com/fungus-mycelium/fungus-admin/internal/view"
	"github.com/fungus-mycelium/fungus-admin/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "dashboard")

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "fungus_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	credentials := shared.NewCredentials()

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	client := api.NewClient(api.Options{
		BaseURL:         cfg.APIURL,
		Timeout:         cfg.APITimeout,
		Credentials:     credentials,
		Logger:          logger,
		Observer:        metrics,
		BreakerFailures: cfg.APIBreakerFailures,
		BreakerCooldown: cfg.APIBreakerCooldown,
	})
	guard := rbac.Middleware{Credentials: credentials, Logger: logger}

	productService := inventory.NewService(client, inventory.Products, cfg.ListIdleTTL)
	consumableService := inventory.NewService(client, inventory.Consumables, cfg.ListIdleTTL)
	clientService := contacts.NewService(client, contacts.Clients, cfg.ListIdleTTL)
	supplierService := contacts.NewService(client, contacts.Suppliers, cfg.ListIdleTTL)
	quotationService := quotations.NewService(client, clientService, productService, cfg.ListIdleTTL)
	salesService := orders.NewService(client, orders.Sales, cfg.ListIdleTTL)
	purchaseService := orders.NewService(client, orders.Purchases, cfg.ListIdleTTL)
	logService := logs.NewService(client, cfg.ListIdleTTL)

	authHandler := auth.NewHandler(logger, auth.NewService(client, credentials), credentials, templates, sessionManager, csrfManager,
		productService, consumableService, clientService, supplierService,
		quotationService, salesService, purchaseService, logService,
	)

	inspector := asynq.NewInspector(cfg.Redis().AsynqOpt())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		RBAC:           guard,
		AuthHandler:    authHandler,
		Sections: []app.SectionRoutes{
			inventory.NewHandler(logger, inventory.Products, productService, templates, csrfManager, guard),
			inventory.NewHandler(logger, inventory.Consumables, consumableService, templates, csrfManager, guard),
			contacts.NewHandler(logger, contacts.Clients, clientService, templates, csrfManager, guard),
			contacts.NewHandler(logger, contacts.Suppliers, supplierService, templates, csrfManager, guard),
			quotations.NewHandler(logger, quotationService, templates, csrfManager, guard),
			orders.NewHandler(logger, orders.Sales, salesService, templates, csrfManager, guard),
			orders.NewHandler(logger, orders.Purchases, purchaseService, templates, csrfManager, guard),
			logshttp.NewHandler(logger, logService, templates, csrfManager, guard),
		},
		JobHandler: jobs.NewHandler(inspector, logger),
		Metrics:    metrics,
		Readiness: map[string]app.ReadinessCheck{
			"api": client.Ping,
			"redis": func(ctx context.Context) error {
				return cache.Ping(ctx, redisClient)
			},
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("api", cfg.APIURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
