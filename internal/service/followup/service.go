package followup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
	"github.com/jwalitptl/followup-api/internal/service/event"
	"github.com/jwalitptl/followup-api/pkg/errors"
	"github.com/jwalitptl/followup-api/pkg/logger"
	"github.com/jwalitptl/followup-api/pkg/metrics"
	"github.com/jwalitptl/followup-api/pkg/validator"
)

type FollowUpService interface {
	Schedule(ctx context.Context, req *model.ScheduleFollowUpRequest) (*model.FollowUp, error)
	Complete(ctx context.Context, id uuid.UUID, req *model.CompleteFollowUpRequest) (*model.FollowUp, error)
	Cancel(ctx context.Context, id uuid.UUID, req *model.CancelFollowUpRequest) (*model.FollowUp, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateFollowUpRequest) (*model.FollowUp, error)
	Get(ctx context.Context, id uuid.UUID) (*model.FollowUp, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.FollowUpFilters) ([]*model.FollowUp, error)
	ListWithPatients(ctx context.Context, filters *model.FollowUpFilters) ([]*model.FollowUpListItem, error)
}

type Service struct {
	repo      repository.FollowUpRepository
	patients  repository.PatientRepository
	events    event.Emitter
	validator *validator.Validator
	metrics   *metrics.Metrics
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(
	repo repository.FollowUpRepository,
	patients repository.PatientRepository,
	events event.Emitter,
	v *validator.Validator,
	m *metrics.Metrics,
	l *logger.Logger,
) *Service {
	if events == nil {
		events = event.Nop{}
	}
	if l == nil {
		l = logger.Nop()
	}
	return &Service{
		repo:      repo,
		patients:  patients,
		events:    events,
		validator: v,
		metrics:   m,
		logger:    l,
		now:       time.Now,
	}
}

func (s *Service) Schedule(ctx context.Context, req *model.ScheduleFollowUpRequest) (*model.FollowUp, error) {
	if req == nil {
		return nil, errors.BadRequest("follow-up body is required", nil)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.patients.Get(ctx, req.PatientID); err != nil {
		return nil, fmt.Errorf("failed to resolve patient: %w", err)
	}

	f := NewScheduled(req, s.now())
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to schedule follow-up: %w", err)
	}

	s.metrics.RecordFollowUp("schedule", string(f.Result))
	s.emit(ctx, event.FollowUpScheduled, f)
	return f, nil
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID, req *model.CompleteFollowUpRequest) (*model.FollowUp, error) {
	if req == nil {
		return nil, errors.BadRequest("completion body is required", nil)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	f, err := s.repo.UpdateFunc(ctx, id, func(f *model.FollowUp) error {
		return ApplyCompletion(f, req.Result, req.Notes, s.now())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to complete follow-up: %w", err)
	}

	s.metrics.RecordFollowUp("complete", string(f.Result))
	s.emit(ctx, event.FollowUpCompleted, f)
	return f, nil
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID, req *model.CancelFollowUpRequest) (*model.FollowUp, error) {
	if req == nil {
		req = &model.CancelFollowUpRequest{}
	}

	var changed bool
	f, err := s.repo.UpdateFunc(ctx, id, func(f *model.FollowUp) error {
		var err error
		changed, err = ApplyCancellation(f, req.Notes, s.now())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel follow-up: %w", err)
	}

	if changed {
		s.metrics.RecordFollowUp("cancel", string(f.Result))
		s.emit(ctx, event.FollowUpCancelled, f)
	}
	return f, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateFollowUpRequest) (*model.FollowUp, error) {
	if req == nil {
		return nil, errors.BadRequest("follow-up body is required", nil)
	}
	f, err := s.repo.UpdateFunc(ctx, id, func(f *model.FollowUp) error {
		ApplyUpdate(f, req, s.now())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update follow-up: %w", err)
	}

	s.emit(ctx, event.FollowUpUpdated, f)
	return f, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.FollowUp, error) {
	f, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get follow-up: %w", err)
	}
	return f, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete follow-up: %w", err)
	}
	s.emitRaw(ctx, event.FollowUpDeleted, id, map[string]uuid.UUID{"id": id})
	return nil
}

// List returns follow-ups. Without a patient filter they are ordered by
// scheduled date ascending, for a single patient descending.
func (s *Service) List(ctx context.Context, filters *model.FollowUpFilters) ([]*model.FollowUp, error) {
	list, err := s.repo.List(ctx, withDefaultOrder(filters))
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-ups: %w", err)
	}
	return list, nil
}

// ListWithPatients is List with each follow-up's patient name, age and
// gender attached.
func (s *Service) ListWithPatients(ctx context.Context, filters *model.FollowUpFilters) ([]*model.FollowUpListItem, error) {
	list, err := s.repo.ListWithPatients(ctx, withDefaultOrder(filters))
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-ups: %w", err)
	}
	return list, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.FollowUp, error) {
	return s.List(ctx, &model.FollowUpFilters{PatientID: &patientID})
}

func withDefaultOrder(filters *model.FollowUpFilters) *model.FollowUpFilters {
	if filters == nil {
		filters = &model.FollowUpFilters{}
	}
	if filters.Order == "" {
		filters.Order = model.SortAsc
		if filters.PatientID != nil {
			filters.Order = model.SortDesc
		}
	}
	return filters
}

func (s *Service) emit(ctx context.Context, eventType string, f *model.FollowUp) {
	s.emitRaw(ctx, eventType, f.ID, f)
}

func (s *Service) emitRaw(ctx context.Context, eventType string, id uuid.UUID, data interface{}) {
	if err := s.events.Emit(ctx, eventType, id, data); err != nil {
		logger.FromContext(ctx, s.logger).Error(err, "failed to emit event", "event_type", eventType, "followup_id", id.String())
	}
}
