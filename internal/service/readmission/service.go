package readmission

import (
	"context"
	"fmt"
	"strings"
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

type ReadmissionService interface {
	Record(ctx context.Context, req *model.RecordReadmissionRequest) (*model.Readmission, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Readmission, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateReadmissionRequest) (*model.Readmission, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.ReadmissionFilters) ([]*model.Readmission, error)
	ListWithPatients(ctx context.Context, filters *model.ReadmissionFilters) ([]*model.ReadmissionListItem, error)
}

type Service struct {
	repo      repository.ReadmissionRepository
	events    event.Emitter
	validator *validator.Validator
	metrics   *metrics.Metrics
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(
	repo repository.ReadmissionRepository,
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

// Record stores a readmission and bumps the patient's inpatient visit count
// by one. The patient's eligibility is re-derived in the same transaction.
func (s *Service) Record(ctx context.Context, req *model.RecordReadmissionRequest) (*model.Readmission, error) {
	if req == nil {
		return nil, errors.BadRequest("readmission body is required", nil)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, errors.Validation("reason", "reason is required")
	}

	now := s.now()
	r := &model.Readmission{
		ID:              uuid.New(),
		PatientID:       req.PatientID,
		Reason:          strings.TrimSpace(req.Reason),
		ReadmissionDate: now,
		DischargeDate:   req.DischargeDate.TimePtr(),
		CreatedAt:       now,
	}
	if req.ReadmissionDate != nil {
		r.ReadmissionDate = req.ReadmissionDate.Time
	}
	if req.Notes != nil {
		r.Notes = strings.TrimSpace(*req.Notes)
	}
	if err := checkDates(r); err != nil {
		return nil, err
	}

	p, err := s.repo.Record(ctx, r, func(p *model.Patient) error {
		eligibility.Apply(p)
		p.Touch(now)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record readmission: %w", err)
	}

	s.metrics.RecordReadmission()
	s.logger.Info("readmission recorded",
		"readmission_id", r.ID.String(),
		"patient_id", p.ID.String(),
		"inpatient_visits", p.InpatientVisits,
	)
	s.emit(ctx, event.ReadmissionRecorded, r.ID, r)
	return r, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Readmission, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get readmission: %w", err)
	}
	return r, nil
}

// Update edits the descriptive fields of a readmission. The patient's visit
// counter is not touched.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateReadmissionRequest) (*model.Readmission, error) {
	if req == nil {
		return nil, errors.BadRequest("readmission body is required", nil)
	}

	r, err := s.repo.UpdateFunc(ctx, id, func(r *model.Readmission) error {
		if req.Reason != nil {
			reason := strings.TrimSpace(*req.Reason)
			if reason == "" {
				return errors.Validation("reason", "reason is required")
			}
			r.Reason = reason
		}
		if req.Notes != nil {
			r.Notes = strings.TrimSpace(*req.Notes)
		}
		if req.ReadmissionDate != nil {
			r.ReadmissionDate = req.ReadmissionDate.Time
		}
		if req.DischargeDate != nil {
			r.DischargeDate = req.DischargeDate.TimePtr()
		}
		return checkDates(r)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update readmission: %w", err)
	}

	s.emit(ctx, event.ReadmissionUpdated, r.ID, r)
	return r, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete readmission: %w", err)
	}
	s.emit(ctx, event.ReadmissionDeleted, id, map[string]uuid.UUID{"id": id})
	return nil
}

// List returns readmissions newest first.
func (s *Service) List(ctx context.Context, filters *model.ReadmissionFilters) ([]*model.Readmission, error) {
	if filters == nil {
		filters = &model.ReadmissionFilters{}
	}
	list, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list readmissions: %w", err)
	}
	return list, nil
}

func (s *Service) ListWithPatients(ctx context.Context, filters *model.ReadmissionFilters) ([]*model.ReadmissionListItem, error) {
	list, err := s.repo.ListWithPatients(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list readmissions: %w", err)
	}
	return list, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Readmission, error) {
	return s.List(ctx, &model.ReadmissionFilters{PatientID: &patientID})
}

func checkDates(r *model.Readmission) error {
	if r.DischargeDate != nil && r.DischargeDate.Before(r.ReadmissionDate) {
		return errors.Validation("dischargeDate", "dischargeDate must not be before readmissionDate")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, eventType string, id uuid.UUID, data interface{}) {
	if err := s.events.Emit(ctx, eventType, id, data); err != nil {
		logger.FromContext(ctx, s.logger).Error(err, "failed to emit event", "event_type", eventType, "readmission_id", id.String())
	}
}
