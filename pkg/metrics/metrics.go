package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics. All methods are safe on a nil
// receiver so services can run without instrumentation.
type Metrics struct {
	// Domain metrics
	EligibilityVerdicts  *prometheus.CounterVec
	FollowUpTransitions  *prometheus.CounterVec
	ReadmissionsRecorded prometheus.Counter
	LabResultsApplied    *prometheus.CounterVec

	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec

	// Broker metrics
	BrokerOperations *prometheus.CounterVec
}

// NewMetrics creates all application metrics and registers them with reg.
// A nil reg registers with the default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		EligibilityVerdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eligibility_verdicts_total",
			Help:      "Eligibility evaluations by outcome and elimination reason",
		}, []string{"eligible", "reason"}),
		FollowUpTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "followup_transitions_total",
			Help:      "Follow-up lifecycle transitions by result",
		}, []string{"transition", "result"}),
		ReadmissionsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readmissions_recorded_total",
			Help:      "Total number of recorded readmissions",
		}),
		LabResultsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lab_results_applied_total",
			Help:      "Lab result messages consumed, by outcome",
		}, []string{"status"}),

		OutboxEventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent processing outbox batches",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),

		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
		DatabaseLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "database_operation_duration_seconds",
			Help:      "Duration of database operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),

		BrokerOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_operations_total",
			Help:      "Total number of message broker operations",
		}, []string{"operation", "status"}),
	}
}

func (m *Metrics) RecordVerdict(eligible bool, reason string) {
	if m == nil {
		return
	}
	m.EligibilityVerdicts.WithLabelValues(strconv.FormatBool(eligible), reason).Inc()
}

func (m *Metrics) RecordFollowUp(transition, result string) {
	if m == nil {
		return
	}
	m.FollowUpTransitions.WithLabelValues(transition, result).Inc()
}

func (m *Metrics) RecordReadmission() {
	if m == nil {
		return
	}
	m.ReadmissionsRecorded.Inc()
}

func (m *Metrics) RecordLabResult(status string) {
	if m == nil {
		return
	}
	m.LabResultsApplied.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordOutbox(processed, failed int, took time.Duration) {
	if m == nil {
		return
	}
	m.OutboxEventsProcessed.Add(float64(processed))
	m.OutboxEventsFailed.Add(float64(failed))
	m.OutboxProcessingLatency.Observe(took.Seconds())
}

// ObserveDB records one database operation started at start.
func (m *Metrics) ObserveDB(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.DatabaseOperations.WithLabelValues(operation, status(err)).Inc()
	m.DatabaseLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) RecordBroker(operation string, err error) {
	if m == nil {
		return
	}
	m.BrokerOperations.WithLabelValues(operation, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
