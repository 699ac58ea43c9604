package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ev-dashboard/internal/config"
	"ev-dashboard/internal/handlers"
	"ev-dashboard/internal/repository"
	"ev-dashboard/internal/services"
	"ev-dashboard/pkg/database"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("ev-dashboard-api", version, logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting EV dashboard API server", logging.Fields{
		"version":        version,
		"server_host":    cfg.Server.Host,
		"server_port":    cfg.Server.Port,
		"dataset_source": cfg.Dataset.Source,
		"parser_mode":    cfg.Dataset.ParserMode,
		"dedup_vin":      cfg.Dataset.DedupVIN,
	})

	metricsCollector := metrics.NewCollector("ev_dashboard", prometheus.DefaultRegisterer)

	// The database is only needed when registrations are read from postgres
	var sourceRepo repository.VehicleSourceRepository
	if cfg.Dataset.Source == config.SourcePostgres {
		db, err := database.NewPostgresDB(ctx, cfg.Database.Connection(), logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
		}
		defer db.Close()

		sourceRepo, err = repository.NewVehicleSourceRepository(db, cfg.Dataset.Table, logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to create source repository", logging.Fields{}, err)
		}
	}

	// Initialize services
	httpClient := &http.Client{Timeout: cfg.Dataset.FetchTimeout}
	ingestionService := services.NewIngestionService(httpClient, sourceRepo, logger, metricsCollector)
	statsService := services.NewStatisticsService(logger, metricsCollector)
	dashboardService := services.NewDashboardService(
		ingestionService,
		statsService,
		services.SourceFromConfig(cfg.Dataset),
		logger,
		metricsCollector,
	)

	// A failed initial load leaves the API up in the error state; it can be
	// retried through POST /api/dataset/reload
	if err := dashboardService.Load(ctx); err != nil {
		logger.Error(ctx, "[STARTUP_LOAD_ERROR] Initial dataset load failed", logging.Fields{
			"source": cfg.Dataset.Source,
		}, err)
	}

	dashboardHandler := handlers.NewDashboardHandler(dashboardService, logger, metricsCollector, cfg.Dataset.PageSize)

	// Setup router
	router := mux.NewRouter()
	dashboardHandler.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
