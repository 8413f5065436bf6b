package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
	"github.com/jwalitptl/followup-api/internal/service/eligibility"
	"github.com/jwalitptl/followup-api/internal/service/event"
	"github.com/jwalitptl/followup-api/pkg/errors"
	"github.com/jwalitptl/followup-api/pkg/logger"
	"github.com/jwalitptl/followup-api/pkg/metrics"
	"github.com/jwalitptl/followup-api/pkg/validator"
)

type PatientService interface {
	Create(ctx context.Context, input *model.PatientInput) (*model.Patient, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
	Evaluate(ctx context.Context, input *model.PatientInput) (model.Verdict, error)
	ApplyLabResult(ctx context.Context, result *model.LabResult) (*model.Patient, error)
}

type Service struct {
	repo      repository.PatientRepository
	events    event.Emitter
	validator *validator.Validator
	metrics   *metrics.Metrics
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(
	repo repository.PatientRepository,
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
		events:    events,
		validator: v,
		metrics:   m,
		logger:    l,
		now:       time.Now,
	}
}

// build validates the input and returns the unsaved patient with its
// verdict already applied.
func (s *Service) build(input *model.PatientInput) (*model.Patient, error) {
	if input == nil {
		return nil, errors.BadRequest("patient body is required", nil)
	}
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	p := input.ToPatient()
	if err := s.validator.Validate(p); err != nil {
		return nil, err
	}
	eligibility.Apply(p)
	return p, nil
}

func (s *Service) Create(ctx context.Context, input *model.PatientInput) (*model.Patient, error) {
	p, err := s.build(input)
	if err != nil {
		return nil, err
	}

	p.ID = uuid.New()
	p.Touch(s.now())

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	s.recordVerdict(p)
	s.emit(ctx, event.PatientCreated, p.ID, p)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}

// Update merges req into the stored patient and re-derives eligibility
// while the row is locked.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	if req == nil {
		return nil, errors.BadRequest("patient body is required", nil)
	}

	p, err := s.repo.UpdateFunc(ctx, id, func(p *model.Patient) error {
		req.Apply(p)
		if err := s.validator.Validate(p); err != nil {
			return err
		}
		eligibility.Apply(p)
		p.Touch(s.now())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}

	s.recordVerdict(p)
	s.emit(ctx, event.PatientUpdated, p.ID, p)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	s.emit(ctx, event.PatientDeleted, id, map[string]uuid.UUID{"id": id})
	return nil
}

func (s *Service) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	if filters == nil {
		filters = &model.PatientFilters{}
	}
	patients, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

// Evaluate returns the verdict input would receive without storing it.
func (s *Service) Evaluate(_ context.Context, input *model.PatientInput) (model.Verdict, error) {
	p, err := s.build(input)
	if err != nil {
		return model.Verdict{}, err
	}
	return p.Verdict(), nil
}

// ApplyLabResult stores new lab statuses for a patient and re-derives its
// eligibility.
func (s *Service) ApplyLabResult(ctx context.Context, result *model.LabResult) (*model.Patient, error) {
	if result == nil {
		return nil, errors.BadRequest("lab result is required", nil)
	}
	if err := s.validator.Validate(result); err != nil {
		s.metrics.RecordLabResult("rejected")
		return nil, err
	}
	if result.HbA1c == nil && result.Glucose == nil {
		s.metrics.RecordLabResult("rejected")
		return nil, errors.Validation("hba1c", "lab result carries no values")
	}

	var changed bool
	p, err := s.repo.UpdateFunc(ctx, result.PatientID, func(p *model.Patient) error {
		if result.HbA1c != nil {
			p.HbA1c = *result.HbA1c
		}
		if result.Glucose != nil {
			p.Glucose = *result.Glucose
		}
		_, changed = eligibility.Apply(p)
		p.Touch(s.now())
		return nil
	})
	if err != nil {
		s.metrics.RecordLabResult("failed")
		return nil, fmt.Errorf("failed to apply lab result: %w", err)
	}

	s.metrics.RecordLabResult("applied")
	if changed {
		s.logger.Info("eligibility changed by lab result",
			"patient_id", p.ID.String(),
			"is_eligible", p.IsEligible,
		)
	}
	s.emit(ctx, event.PatientUpdated, p.ID, p)
	return p, nil
}

func (s *Service) recordVerdict(p *model.Patient) {
	reason := ""
	if p.EliminationReason != nil {
		reason = *p.EliminationReason
	}
	s.metrics.RecordVerdict(p.IsEligible, reason)
}

func (s *Service) emit(ctx context.Context, eventType string, id uuid.UUID, data interface{}) {
	if err := s.events.Emit(ctx, eventType, id, data); err != nil {
		logger.FromContext(ctx, s.logger).Error(err, "failed to emit event", "event_type", eventType, "patient_id", id.String())
	}
}
