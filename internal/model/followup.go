package model

import (
	"time"

	"github.com/google/uuid"
)

type FollowUpType string

const (
	FollowUp7Day  FollowUpType = "7day"
	FollowUp30Day FollowUpType = "30day"
	FollowUp90Day FollowUpType = "90day"
)

type FollowUpResult string

const (
	ResultNormal   FollowUpResult = "Normal"
	ResultAbnormal FollowUpResult = "Abnormal"
	ResultPending  FollowUpResult = "Pending"
)

type FollowUpStatus string

const (
	FollowUpScheduled FollowUpStatus = "Scheduled"
	FollowUpCompleted FollowUpStatus = "Completed"
	FollowUpCancelled FollowUpStatus = "Cancelled"
)

// FollowUp is one scheduled post-discharge check-in for a patient.
type FollowUp struct {
	Base
	PatientID        uuid.UUID      `json:"patient" db:"patient_id"`
	Type             FollowUpType   `json:"type" db:"type"`
	Status           FollowUpStatus `json:"status" db:"status"`
	Result           FollowUpResult `json:"result" db:"result"`
	RecommendedTests []string       `json:"recommendedTests" db:"-"`
	Notes            string         `json:"notes,omitempty" db:"notes"`
	ScheduledDate    time.Time      `json:"scheduledDate" db:"scheduled_date"`
	CompletedDate    *time.Time     `json:"completedDate,omitempty" db:"completed_date"`
	CancelledDate    *time.Time     `json:"cancelledDate,omitempty" db:"cancelled_date"`
	IsCompleted      bool           `json:"isCompleted" db:"is_completed"`
}

// FollowUpListItem is a follow-up with its patient expanded, as served by
// the global follow-up list.
type FollowUpListItem struct {
	*FollowUp
	Patient *PatientSummary `json:"patient"`
}

type ScheduleFollowUpRequest struct {
	PatientID     uuid.UUID      `json:"patient" validate:"required"`
	Type          FollowUpType   `json:"type" validate:"required,oneof=7day 30day 90day"`
	ScheduledDate *Date          `json:"scheduledDate" validate:"required"`
	Notes         *string        `json:"notes"`
	Result        FollowUpResult `json:"result" validate:"omitempty,oneof=Normal Abnormal Pending"`
}

type CompleteFollowUpRequest struct {
	Result FollowUpResult `json:"result" validate:"required,oneof=Normal Abnormal Pending"`
	Notes  *string        `json:"notes"`
}

// UpdateFollowUpRequest only carries the fields a caller may change after
// scheduling. Type and lifecycle fields are deliberately absent.
type UpdateFollowUpRequest struct {
	ScheduledDate *Date   `json:"scheduledDate"`
	Notes         *string `json:"notes"`
}

type CancelFollowUpRequest struct {
	Notes *string `json:"notes"`
}

type FollowUpFilters struct {
	PatientID *uuid.UUID
	Pending   bool
	Order     SortOrder
}
