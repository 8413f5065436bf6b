package model

import (
	"time"

	"github.com/google/uuid"
)

// Readmission is a recorded hospital re-admission of a patient.
type Readmission struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	PatientID       uuid.UUID  `json:"patient" db:"patient_id"`
	Reason          string     `json:"reason" db:"reason"`
	Notes           string     `json:"notes,omitempty" db:"notes"`
	ReadmissionDate time.Time  `json:"readmissionDate" db:"readmission_date"`
	DischargeDate   *time.Time `json:"dischargeDate,omitempty" db:"discharge_date"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
}

// ReadmissionListItem is a readmission with its patient expanded.
type ReadmissionListItem struct {
	*Readmission
	Patient *PatientSummary `json:"patient"`
}

type RecordReadmissionRequest struct {
	PatientID       uuid.UUID `json:"patient" validate:"required"`
	Reason          string    `json:"reason" validate:"required"`
	Notes           *string   `json:"notes"`
	ReadmissionDate *Date     `json:"readmissionDate"`
	DischargeDate   *Date     `json:"dischargeDate"`
}

type UpdateReadmissionRequest struct {
	Reason          *string `json:"reason"`
	Notes           *string `json:"notes"`
	ReadmissionDate *Date   `json:"readmissionDate"`
	DischargeDate   *Date   `json:"dischargeDate"`
}

type ReadmissionFilters struct {
	PatientID *uuid.UUID
}
