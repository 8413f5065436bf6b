package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorders(t *testing.T) {
	m := NewMetrics("followup_test", prometheus.NewRegistry())

	m.RecordVerdict(false, "Not on diabetes medication")
	m.RecordVerdict(false, "Not on diabetes medication")
	m.RecordFollowUp("complete", "Abnormal")
	m.RecordReadmission()
	m.ObserveDB("patient_get", time.Now(), errors.New("boom"))
	m.RecordOutbox(3, 1, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EligibilityVerdicts.WithLabelValues("false", "Not on diabetes medication")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FollowUpTransitions.WithLabelValues("complete", "Abnormal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReadmissionsRecorded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatabaseOperations.WithLabelValues("patient_get", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.OutboxEventsProcessed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxEventsFailed))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordVerdict(true, "")
		m.RecordFollowUp("schedule", "Pending")
		m.RecordReadmission()
		m.RecordLabResult("applied")
		m.RecordBroker("publish", nil)
		m.ObserveDB("x", time.Now(), nil)
		m.RecordOutbox(0, 0, 0)
	})
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics("followup_test", prometheus.NewRegistry())
		NewMetrics("followup_test", prometheus.NewRegistry())
	})
}
