package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/followup-api/internal/config"
	followupHandler "github.com/jwalitptl/followup-api/internal/handler/followup"
	"github.com/jwalitptl/followup-api/internal/handler/health"
	patientHandler "github.com/jwalitptl/followup-api/internal/handler/patient"
	promHandler "github.com/jwalitptl/followup-api/internal/handler/prometheus"
	readmissionHandler "github.com/jwalitptl/followup-api/internal/handler/readmission"
	reportHandler "github.com/jwalitptl/followup-api/internal/handler/report"
	"github.com/jwalitptl/followup-api/internal/middleware"
	"github.com/jwalitptl/followup-api/internal/repository/postgres"
	"github.com/jwalitptl/followup-api/internal/router"
	eventService "github.com/jwalitptl/followup-api/internal/service/event"
	followupService "github.com/jwalitptl/followup-api/internal/service/followup"
	patientService "github.com/jwalitptl/followup-api/internal/service/patient"
	readmissionService "github.com/jwalitptl/followup-api/internal/service/readmission"
	reportService "github.com/jwalitptl/followup-api/internal/service/report"
	"github.com/jwalitptl/followup-api/pkg/logger"
	"github.com/jwalitptl/followup-api/pkg/metrics"
	"github.com/jwalitptl/followup-api/pkg/validator"
)

const metricsNamespace = "followup"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Logging.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Logging.Console,
	})
	log.Logger = *appLogger.Zerolog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(db); err != nil {
			appLogger.Fatal(err, "failed to run migrations")
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.NewMetrics(metricsNamespace, registry)

	// Initialize repositories
	baseRepo := postgres.NewBaseRepository(db, appMetrics)
	patientRepo := postgres.NewPatientRepository(baseRepo)
	followUpRepo := postgres.NewFollowUpRepository(baseRepo)
	readmissionRepo := postgres.NewReadmissionRepository(baseRepo)
	statsRepo := postgres.NewStatsRepository(baseRepo)
	outboxRepo := postgres.NewOutboxRepository(baseRepo, cfg.Outbox.MaxRetries)

	// Initialize services
	v := validator.New()
	reportSvc := reportService.NewService(statsRepo, patientRepo, followUpRepo, readmissionRepo, cfg.Cache.ReportTTL)
	eventSvc := eventService.Invalidating{
		Next:       eventService.NewService(outboxRepo),
		Invalidate: reportSvc.Invalidate,
	}
	patientSvc := patientService.NewService(patientRepo, eventSvc, v, appMetrics, appLogger)
	followUpSvc := followupService.NewService(followUpRepo, patientRepo, eventSvc, v, appMetrics, appLogger)
	readmissionSvc := readmissionService.NewService(readmissionRepo, eventSvc, v, appMetrics, appLogger)

	// Setup router
	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	routerConfig := router.RouterConfig{
		Mode:           cfg.Server.Mode,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		CORSConfig:     corsConfig,
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerConfig.RateBurst = cfg.RateLimit.Burst
	}

	r := router.NewRouter(routerConfig,
		promHandler.New(metricsNamespace, registry),
		health.NewHandler(map[string]health.Pinger{"database": db}),
		patientHandler.NewHandler(patientSvc, reportSvc),
		followupHandler.NewHandler(followUpSvc),
		readmissionHandler.NewHandler(readmissionSvc),
		reportHandler.NewHandler(reportSvc),
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		appLogger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(err, "failed to start server")
		}
	}()

	<-ctx.Done()
	appLogger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "server forced to shutdown")
	}

	appLogger.Info("server exited properly")
}
