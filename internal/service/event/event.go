package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published through the outbox.
const (
	PatientCreated      = "patient.created"
	PatientUpdated      = "patient.updated"
	PatientDeleted      = "patient.deleted"
	FollowUpScheduled   = "followup.scheduled"
	FollowUpUpdated     = "followup.updated"
	FollowUpCompleted   = "followup.completed"
	FollowUpCancelled   = "followup.cancelled"
	FollowUpDeleted     = "followup.deleted"
	ReadmissionRecorded = "readmission.recorded"
	ReadmissionUpdated  = "readmission.updated"
	ReadmissionDeleted  = "readmission.deleted"
)

// Envelope is the message body published to the broker.
type Envelope struct {
	Type        string          `json:"type"`
	AggregateID uuid.UUID       `json:"aggregateId"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Data        json.RawMessage `json:"data"`
}

// Emitter records domain events after a mutation has committed.
type Emitter interface {
	Emit(ctx context.Context, eventType string, aggregateID uuid.UUID, data interface{}) error
}

// Invalidating calls Invalidate before handing each event to Next. Services
// emit once per committed mutation, which makes it the point where caches
// derived from the stores are dropped.
type Invalidating struct {
	Next       Emitter
	Invalidate func()
}

func (e Invalidating) Emit(ctx context.Context, eventType string, aggregateID uuid.UUID, data interface{}) error {
	if e.Invalidate != nil {
		e.Invalidate()
	}
	if e.Next == nil {
		return nil
	}
	return e.Next.Emit(ctx, eventType, aggregateID, data)
}

// Nop discards events.
type Nop struct{}

func (Nop) Emit(context.Context, string, uuid.UUID, interface{}) error { return nil }
