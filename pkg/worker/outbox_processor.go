package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
	"github.com/jwalitptl/followup-api/pkg/logger"
	"github.com/jwalitptl/followup-api/pkg/messaging"
	"github.com/jwalitptl/followup-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	// Topic receives every published event, keyed by aggregate id.
	Topic string
	// HookTimeout bounds each hook call. Zero means defaultHookTimeout.
	HookTimeout time.Duration
}

const defaultHookTimeout = 15 * time.Second

// PublishHook runs once the batch holding a published event has been
// committed, so no outbox rows are locked while it runs. Hook errors are
// logged and do not mark the event failed.
type PublishHook func(ctx context.Context, event *model.OutboxEvent) error

type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	hooks   []PublishHook
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	hooks ...PublishHook,
) (*OutboxProcessor, error) {
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be greater than 0")
	}
	if config.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 1
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("outbox topic is required")
	}
	if config.HookTimeout <= 0 {
		config.HookTimeout = defaultHookTimeout
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
		hooks:   hooks,
	}, nil
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor", "topic", p.config.Topic)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, _, err := p.ProcessOnce(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

// ProcessOnce drains one batch of pending events.
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) (int, int, error) {
	start := time.Now()

	var published []model.OutboxEvent
	processed, failed, err := p.repo.ProcessPending(ctx, p.config.BatchSize, func(event *model.OutboxEvent) error {
		if err := p.processEvent(ctx, event); err != nil {
			return err
		}
		published = append(published, *event)
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to process pending events: %w", err)
	}

	for i := range published {
		p.runHooks(ctx, &published[i])
	}

	p.metrics.RecordOutbox(processed, failed, time.Since(start))
	if processed+failed > 0 {
		p.logger.Debug("Outbox batch processed", "processed", processed, "failed", failed)
	}
	return processed, failed, nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	err := retry(ctx, p.config.RetryAttempts, p.config.RetryDelay, func() error {
		return p.broker.Publish(ctx, p.config.Topic, event.AggregateID.String(), event.Payload)
	})
	p.metrics.RecordBroker("publish", err)
	if err != nil {
		p.logger.Error(err, "Failed to publish event",
			"event_id", event.ID.String(),
			"event_type", event.EventType)
		return err
	}
	return nil
}

func (p *OutboxProcessor) runHooks(ctx context.Context, event *model.OutboxEvent) {
	for _, hook := range p.hooks {
		hookCtx, cancel := context.WithTimeout(ctx, p.config.HookTimeout)
		err := hook(hookCtx, event)
		cancel()
		if err != nil {
			p.logger.Error(err, "Publish hook failed",
				"event_id", event.ID.String(),
				"event_type", event.EventType)
		}
	}
}

// Helper retry function
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return err
}
