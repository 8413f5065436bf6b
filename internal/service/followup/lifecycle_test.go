package followup

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/pkg/errors"
)

var lifecycleNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func scheduled(result model.FollowUpResult) *model.FollowUp {
	when := lifecycleNow.Add(7 * 24 * time.Hour)
	return NewScheduled(&model.ScheduleFollowUpRequest{
		PatientID:     uuid.New(),
		Type:          model.FollowUp7Day,
		ScheduledDate: model.NewDate(when),
		Result:        result,
	}, lifecycleNow)
}

func TestNewScheduledDefaults(t *testing.T) {
	f := scheduled("")

	assert.NotEqual(t, uuid.Nil, f.ID)
	assert.Equal(t, model.FollowUpScheduled, f.Status)
	assert.Equal(t, model.ResultPending, f.Result)
	assert.False(t, f.IsCompleted)
	assert.Nil(t, f.CompletedDate)
	assert.NotNil(t, f.RecommendedTests)
	assert.Empty(t, f.RecommendedTests)
	assert.Equal(t, lifecycleNow, f.CreatedAt)
}

func TestNewScheduledAbnormalGetsPanel(t *testing.T) {
	f := scheduled(model.ResultAbnormal)
	assert.Equal(t, RecommendedPanel(), f.RecommendedTests)
}

func TestCompleteAbnormalPopulatesPanel(t *testing.T) {
	f := scheduled("")

	require.NoError(t, ApplyCompletion(f, model.ResultAbnormal, strPtr("  high A1C  "), lifecycleNow))

	assert.Equal(t, model.FollowUpCompleted, f.Status)
	assert.True(t, f.IsCompleted)
	assert.Equal(t, model.ResultAbnormal, f.Result)
	assert.Equal(t, "high A1C", f.Notes)
	require.NotNil(t, f.CompletedDate)
	assert.Equal(t, lifecycleNow, *f.CompletedDate)
	assert.Equal(t, []string{
		"Blood Test (CBC)",
		"HbA1c Test",
		"Fasting Blood Sugar",
		"Post-meal Sugar Test",
		"ECG",
		"Kidney Function Test",
	}, f.RecommendedTests)
}

func TestCompleteNormalLeavesTestsUnchanged(t *testing.T) {
	f := scheduled("")
	f.RecommendedTests = []string{"ECG"}

	require.NoError(t, ApplyCompletion(f, model.ResultNormal, nil, lifecycleNow))
	assert.Equal(t, []string{"ECG"}, f.RecommendedTests)

	require.NoError(t, ApplyCompletion(f, model.ResultPending, nil, lifecycleNow))
	assert.Equal(t, []string{"ECG"}, f.RecommendedTests)
}

func TestCompleteKeepsPreviousNotesWhenEmpty(t *testing.T) {
	f := scheduled("")
	f.Notes = "call before visit"

	require.NoError(t, ApplyCompletion(f, model.ResultNormal, strPtr("   "), lifecycleNow))
	assert.Equal(t, "call before visit", f.Notes)

	require.NoError(t, ApplyCompletion(f, model.ResultNormal, nil, lifecycleNow))
	assert.Equal(t, "call before visit", f.Notes)
}

func TestRecompletionRefreshesDate(t *testing.T) {
	f := scheduled("")
	require.NoError(t, ApplyCompletion(f, model.ResultNormal, nil, lifecycleNow))

	later := lifecycleNow.Add(time.Hour)
	require.NoError(t, ApplyCompletion(f, model.ResultAbnormal, nil, later))

	assert.Equal(t, later, *f.CompletedDate)
	assert.Equal(t, model.ResultAbnormal, f.Result)
	assert.Equal(t, RecommendedPanel(), f.RecommendedTests)
}

func TestCompleteCancelledFails(t *testing.T) {
	f := scheduled("")
	changed, err := ApplyCancellation(f, nil, lifecycleNow)
	require.NoError(t, err)
	require.True(t, changed)

	err = ApplyCompletion(f, model.ResultNormal, nil, lifecycleNow)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, model.FollowUpCancelled, f.Status)
	assert.False(t, f.IsCompleted)
}

func TestCancellation(t *testing.T) {
	f := scheduled("")

	changed, err := ApplyCancellation(f, strPtr("patient moved"), lifecycleNow)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.FollowUpCancelled, f.Status)
	assert.Equal(t, "patient moved", f.Notes)
	require.NotNil(t, f.CancelledDate)

	changed, err = ApplyCancellation(f, nil, lifecycleNow.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, lifecycleNow, *f.CancelledDate)
}

func TestCancelCompletedFails(t *testing.T) {
	f := scheduled("")
	require.NoError(t, ApplyCompletion(f, model.ResultNormal, nil, lifecycleNow))

	changed, err := ApplyCancellation(f, nil, lifecycleNow)
	assert.False(t, changed)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, model.FollowUpCompleted, f.Status)
}

func TestApplyUpdate(t *testing.T) {
	f := scheduled("")
	moved := lifecycleNow.Add(30 * 24 * time.Hour)

	ApplyUpdate(f, &model.UpdateFollowUpRequest{ScheduledDate: model.NewDate(moved)}, lifecycleNow.Add(time.Minute))
	assert.Equal(t, moved, f.ScheduledDate)
	assert.Equal(t, model.FollowUp7Day, f.Type)
	assert.Equal(t, lifecycleNow.Add(time.Minute), f.UpdatedAt)

	ApplyUpdate(f, &model.UpdateFollowUpRequest{Notes: strPtr("bring reports")}, lifecycleNow)
	assert.Equal(t, "bring reports", f.Notes)
	assert.Equal(t, moved, f.ScheduledDate)
}

func TestRecommendedPanelIsACopy(t *testing.T) {
	p := RecommendedPanel()
	p[0] = "changed"
	assert.Equal(t, "Blood Test (CBC)", RecommendedPanel()[0])
}
