package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/followup-api/internal/config"
	"github.com/jwalitptl/followup-api/internal/email"
	"github.com/jwalitptl/followup-api/internal/handler/health"
	promHandler "github.com/jwalitptl/followup-api/internal/handler/prometheus"
	"github.com/jwalitptl/followup-api/internal/notification"
	"github.com/jwalitptl/followup-api/internal/repository/postgres"
	eventService "github.com/jwalitptl/followup-api/internal/service/event"
	patientService "github.com/jwalitptl/followup-api/internal/service/patient"
	labWorker "github.com/jwalitptl/followup-api/internal/worker"
	"github.com/jwalitptl/followup-api/pkg/logger"
	"github.com/jwalitptl/followup-api/pkg/messaging"
	"github.com/jwalitptl/followup-api/pkg/messaging/kafka"
	"github.com/jwalitptl/followup-api/pkg/messaging/redis"
	"github.com/jwalitptl/followup-api/pkg/metrics"
	"github.com/jwalitptl/followup-api/pkg/validator"
	"github.com/jwalitptl/followup-api/pkg/worker"
)

const metricsNamespace = "followup_worker"

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Logging.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Logging.Console,
	})
	log.Logger = *appLogger.Zerolog()
	appLogger = appLogger.WithFields(map[string]interface{}{"worker_id": workerID()})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	// Initialize broker
	broker, pingers, err := newBroker(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal(err, "Failed to create message broker")
	}
	defer broker.Close()
	pingers["database"] = db

	registry := prometheus.NewRegistry()
	appMetrics := metrics.NewMetrics(metricsNamespace, registry)

	// Initialize repositories
	baseRepo := postgres.NewBaseRepository(db, appMetrics)
	outboxRepo := postgres.NewOutboxRepository(baseRepo, cfg.Outbox.MaxRetries)
	patientRepo := postgres.NewPatientRepository(baseRepo)

	var hooks []worker.PublishHook
	if cfg.Notification.Enabled {
		sender := email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.Notification.SMTPHost,
			Port:     cfg.Notification.SMTPPort,
			Username: cfg.Notification.Username,
			Password: cfg.Notification.Password,
			From:     cfg.Notification.From,
		})
		notifier := notification.NewNotifier(sender, cfg.Notification.CareTeam, appLogger)
		hooks = append(hooks, notifier.Hook)
	}

	processor, err := worker.NewOutboxProcessor(
		outboxRepo,
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: 3,
			RetryDelay:    time.Second,
			Topic:         cfg.Messaging.EventsTopic,
			HookTimeout:   cfg.Outbox.HookTimeout,
		},
		appLogger,
		appMetrics,
		hooks...,
	)
	if err != nil {
		appLogger.Fatal(err, "Failed to create outbox processor")
	}
	cleanup := worker.NewOutboxCleanupWorker(outboxRepo, cfg.Outbox.Retention, cfg.Outbox.CleanupInterval, appLogger)

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	srv := newStatusServer(cfg.Worker.Port, registry, pingers)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error(err, "Health check server failed")
			stop()
		}
	}()

	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	run(func() { processor.Start(ctx) })
	run(func() { cleanup.Start(ctx) })

	if cfg.LabResults.Enabled {
		events := eventService.NewService(outboxRepo)
		patients := patientService.NewService(patientRepo, events, validator.New(), appMetrics, appLogger)
		consumer := labWorker.NewLabResultConsumer(broker, cfg.LabResults.Topic, patients, appLogger)
		run(func() {
			if err := consumer.Start(ctx); err != nil {
				appLogger.Error(err, "Lab result consumer stopped")
			}
		})
	}

	<-ctx.Done()
	appLogger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "Health check server forced to shutdown")
	}
	wg.Wait()
}

// newBroker connects the configured broker and returns it with the health
// checks it contributes.
func newBroker(ctx context.Context, cfg *config.Config, l *logger.Logger) (messaging.Broker, map[string]health.Pinger, error) {
	pingers := map[string]health.Pinger{}

	switch cfg.Messaging.Driver {
	case "kafka":
		b, err := kafka.NewKafkaBroker(kafka.Config{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.GroupID,
		}, l.Zerolog())
		if err != nil {
			return nil, nil, err
		}
		return b, pingers, nil
	default:
		b, err := redis.NewRedisBroker(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, l.Zerolog())
		if err != nil {
			return nil, nil, err
		}
		pingers["redis"] = pingFunc(b.Ping)
		return b, pingers, nil
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func newStatusServer(port int, registry *prometheus.Registry, pingers map[string]health.Pinger) *http.Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	api := engine.Group("")
	health.NewHandler(pingers).RegisterRoutes(api)
	api.GET("/metrics", promHandler.New(metricsNamespace, registry).Handler())

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func workerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("worker-%s-%d", hostname, os.Getpid())
}
