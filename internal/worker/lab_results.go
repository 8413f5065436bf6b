package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/pkg/logger"
	"github.com/jwalitptl/followup-api/pkg/messaging"
)

// LabResultApplier is the part of the patient service the consumer needs.
type LabResultApplier interface {
	ApplyLabResult(ctx context.Context, result *model.LabResult) (*model.Patient, error)
}

// LabResultConsumer applies lab results arriving on a broker topic to the
// matching patient records.
type LabResultConsumer struct {
	broker   messaging.Broker
	topic    string
	patients LabResultApplier
	logger   *logger.Logger
}

func NewLabResultConsumer(broker messaging.Broker, topic string, patients LabResultApplier, l *logger.Logger) *LabResultConsumer {
	if l == nil {
		l = logger.Nop()
	}
	return &LabResultConsumer{
		broker:   broker,
		topic:    topic,
		patients: patients,
		logger:   l,
	}
}

// Start blocks until ctx is cancelled. Messages that cannot be applied are
// logged and skipped.
func (c *LabResultConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting lab result consumer", "topic", c.topic)

	err := messaging.Consume(ctx, c.broker, c.topic, c.Handle, func(payload []byte, err error) {
		c.logger.Error(err, "Skipping lab result", "payload", string(payload))
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *LabResultConsumer) Handle(ctx context.Context, payload []byte) error {
	var result model.LabResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return fmt.Errorf("failed to decode lab result: %w", err)
	}

	p, err := c.patients.ApplyLabResult(ctx, &result)
	if err != nil {
		return err
	}

	c.logger.Debug("Lab result applied",
		"patient_id", p.ID.String(),
		"is_eligible", p.IsEligible)
	return nil
}
