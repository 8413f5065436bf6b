package followup

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/pkg/errors"
)

// recommendedPanel is attached to every abnormal result. Report consumers
// match on these exact strings and this order.
var recommendedPanel = []string{
	"Blood Test (CBC)",
	"HbA1c Test",
	"Fasting Blood Sugar",
	"Post-meal Sugar Test",
	"ECG",
	"Kidney Function Test",
}

// RecommendedPanel returns a copy of the canonical recommended-test panel.
func RecommendedPanel() []string {
	out := make([]string, len(recommendedPanel))
	copy(out, recommendedPanel)
	return out
}

// NewScheduled builds a follow-up in the Scheduled state. A result supplied
// as Abnormal at scheduling time gets the panel straight away.
func NewScheduled(req *model.ScheduleFollowUpRequest, now time.Time) *model.FollowUp {
	f := &model.FollowUp{
		Base:             model.Base{ID: uuid.New()},
		PatientID:        req.PatientID,
		Type:             req.Type,
		Status:           model.FollowUpScheduled,
		Result:           req.Result,
		RecommendedTests: []string{},
		ScheduledDate:    req.ScheduledDate.Time,
	}
	if f.Result == "" {
		f.Result = model.ResultPending
	}
	if req.Notes != nil {
		f.Notes = strings.TrimSpace(*req.Notes)
	}
	if f.Result == model.ResultAbnormal {
		f.RecommendedTests = RecommendedPanel()
	}
	f.Touch(now)
	return f
}

// ApplyCompletion moves f to Completed. Completing twice is allowed and
// re-applies the result, notes and recommendation logic. Normal and Pending
// results leave recommendedTests as they were.
func ApplyCompletion(f *model.FollowUp, result model.FollowUpResult, notes *string, now time.Time) error {
	if f.Status == model.FollowUpCancelled {
		return errors.Validation("status", "cancelled follow-up cannot be completed")
	}

	f.Result = result
	if notes != nil && strings.TrimSpace(*notes) != "" {
		f.Notes = strings.TrimSpace(*notes)
	}
	f.Status = model.FollowUpCompleted
	f.IsCompleted = true
	completed := now
	f.CompletedDate = &completed

	if result == model.ResultAbnormal {
		f.RecommendedTests = RecommendedPanel()
	}
	f.Touch(now)
	return nil
}

// ApplyCancellation moves a Scheduled follow-up to Cancelled. It reports
// false when f was already cancelled.
func ApplyCancellation(f *model.FollowUp, notes *string, now time.Time) (bool, error) {
	switch f.Status {
	case model.FollowUpCancelled:
		return false, nil
	case model.FollowUpCompleted:
		return false, errors.Validation("status", "completed follow-up cannot be cancelled")
	}

	if notes != nil && strings.TrimSpace(*notes) != "" {
		f.Notes = strings.TrimSpace(*notes)
	}
	f.Status = model.FollowUpCancelled
	cancelled := now
	f.CancelledDate = &cancelled
	f.Touch(now)
	return true, nil
}

// ApplyUpdate merges the caller-editable fields into f.
func ApplyUpdate(f *model.FollowUp, req *model.UpdateFollowUpRequest, now time.Time) {
	if req.ScheduledDate != nil {
		f.ScheduledDate = req.ScheduledDate.Time
	}
	if req.Notes != nil {
		f.Notes = strings.TrimSpace(*req.Notes)
	}
	f.Touch(now)
}
