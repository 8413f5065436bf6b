package report

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository/memory"
	"github.com/jwalitptl/followup-api/pkg/errors"
)

func seed(t *testing.T, store *memory.Store) *model.Patient {
	t.Helper()
	ctx := context.Background()
	reason := "Not on diabetes medication"

	patients := []*model.Patient{
		{Name: "A", Age: 25, HbA1c: model.LabPending, IsEligible: true},
		{Name: "B", Age: 45, HbA1c: model.LabAbnormal, IsEligible: true},
		{Name: "C", Age: 47, HbA1c: model.LabAbnormal, EliminationReason: &reason},
		{Name: "D", Age: 101, HbA1c: model.LabNormal, EliminationReason: &reason},
	}
	for i, p := range patients {
		p.CreatedAt = time.Date(2026, 1, i+1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, store.Patients().Create(ctx, p))
	}

	b := patients[1]
	require.NoError(t, store.FollowUps().Create(ctx, &model.FollowUp{
		PatientID: b.ID, Status: model.FollowUpScheduled, Result: model.ResultPending,
		ScheduledDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, store.FollowUps().Create(ctx, &model.FollowUp{
		PatientID: b.ID, Status: model.FollowUpCompleted, Result: model.ResultAbnormal, IsCompleted: true,
		ScheduledDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}))
	_, err := store.Readmissions().Record(ctx, &model.Readmission{PatientID: b.ID, Reason: "Hyperglycemia"}, nil)
	require.NoError(t, err)
	return b
}

func newService(store *memory.Store, ttl time.Duration) *Service {
	return NewService(store.Stats(), store.Patients(), store.FollowUps(), store.Readmissions(), ttl)
}

func TestDashboard(t *testing.T) {
	store := memory.NewStore()
	seed(t, store)

	stats, err := newService(store, 0).Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &model.DashboardStats{
		TotalPatients:     4,
		EligiblePatients:  2,
		PendingLabReports: 1,
		AbnormalA1c:       2,
	}, stats)
}

func TestSummary(t *testing.T) {
	store := memory.NewStore()
	seed(t, store)

	summary, err := newService(store, 0).Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalPatients)
	assert.Equal(t, 2, summary.EligiblePatients)
	assert.Equal(t, 2, summary.IneligiblePatients)
	assert.Equal(t, 1, summary.TotalReadmissions)
	assert.Equal(t, 1, summary.PendingFollowUps)
	assert.Equal(t, 1, summary.AbnormalResults)
	assert.Equal(t, []model.AgeGroup{
		{ID: 0, Count: 1},
		{ID: 30, Count: 2},
		{ID: "100+", Count: 1},
	}, summary.AgeGroups)
}

func TestSummaryEmptyStore(t *testing.T) {
	summary, err := newService(memory.NewStore(), 0).Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.TotalPatients)
	assert.NotNil(t, summary.AgeGroups)
}

func TestCacheServesStaleUntilInvalidated(t *testing.T) {
	store := memory.NewStore()
	seed(t, store)
	svc := newService(store, time.Minute)
	ctx := context.Background()

	first, err := svc.Dashboard(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Patients().Create(ctx, &model.Patient{Name: "E", HbA1c: model.LabPending}))

	cached, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.TotalPatients, cached.TotalPatients)

	svc.Invalidate()
	fresh, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.TotalPatients+1, fresh.TotalPatients)
}

func TestPatientReport(t *testing.T) {
	store := memory.NewStore()
	b := seed(t, store)
	svc := newService(store, 0)
	fixed := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	report, err := svc.PatientReport(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, report.Patient.ID)
	assert.Equal(t, b.InpatientVisits+1, report.Patient.InpatientVisits)
	assert.Len(t, report.Readmissions, 1)
	require.Len(t, report.FollowUps, 2)
	assert.True(t, report.FollowUps[0].ScheduledDate.After(report.FollowUps[1].ScheduledDate))
	assert.Equal(t, fixed, report.GeneratedAt)

	_, err = svc.PatientReport(context.Background(), uuid.New())
	assert.True(t, errors.IsNotFound(err))
}
