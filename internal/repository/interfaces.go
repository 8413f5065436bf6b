package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
)

// MutateFunc edits a record loaded under a row lock. Returning an error
// aborts the write.
type MutateFunc[T any] func(record *T) error

// All repository interfaces in one file
type (
	// PatientRepository persists patients. Get and UpdateFunc return an
	// ErrNotFound AppError for unknown ids; driver failures surface as ErrStore.
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		// UpdateFunc performs a read-modify-write of one patient inside a
		// single transaction holding the row lock.
		UpdateFunc(ctx context.Context, id uuid.UUID, fn MutateFunc[model.Patient]) (*model.Patient, error)
		// Delete removes the patient together with its follow-ups and
		// readmissions.
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
	}

	FollowUpRepository interface {
		Create(ctx context.Context, followUp *model.FollowUp) error
		Get(ctx context.Context, id uuid.UUID) (*model.FollowUp, error)
		UpdateFunc(ctx context.Context, id uuid.UUID, fn MutateFunc[model.FollowUp]) (*model.FollowUp, error)
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.FollowUpFilters) ([]*model.FollowUp, error)
		// ListWithPatients is List with each row's patient expanded.
		ListWithPatients(ctx context.Context, filters *model.FollowUpFilters) ([]*model.FollowUpListItem, error)
	}

	ReadmissionRepository interface {
		// Record inserts the readmission, increments the patient's inpatient
		// visit counter and lets onPatient refresh derived patient fields,
		// all in one transaction. It returns the updated patient.
		Record(ctx context.Context, readmission *model.Readmission, onPatient MutateFunc[model.Patient]) (*model.Patient, error)
		Get(ctx context.Context, id uuid.UUID) (*model.Readmission, error)
		UpdateFunc(ctx context.Context, id uuid.UUID, fn MutateFunc[model.Readmission]) (*model.Readmission, error)
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.ReadmissionFilters) ([]*model.Readmission, error)
		ListWithPatients(ctx context.Context, filters *model.ReadmissionFilters) ([]*model.ReadmissionListItem, error)
	}

	// StatsRepository answers aggregate queries at read time.
	StatsRepository interface {
		Dashboard(ctx context.Context) (*model.DashboardStats, error)
		Summary(ctx context.Context) (*model.SummaryReport, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ProcessPending locks up to limit pending events, hands each to fn
		// and records the outcome, all in one transaction.
		ProcessPending(ctx context.Context, limit int, fn func(*model.OutboxEvent) error) (processed int, failed int, err error)
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
