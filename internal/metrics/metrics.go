// Package metrics holds the Prometheus instruments of the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline
type Metrics struct {
	StageRows       *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	StageFailures   *prometheus.CounterVec
	SegmentRows     *prometheus.CounterVec
	RepaymentLabels *prometheus.CounterVec
	Violations      prometheus.Counter
	Runs            prometheus.Counter
}

// New creates the metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StageRows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "microcredit_stage_rows_total",
			Help: "Rows produced by each pipeline stage",
		}, []string{"stage"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "microcredit_stage_duration_seconds",
			Help:    "Wall time of each pipeline stage",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		StageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "microcredit_stage_failures_total",
			Help: "Stage invocations that aborted",
		}, []string{"stage"}),
		SegmentRows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "microcredit_segment_rows_total",
			Help: "Subscribers assigned to each risk segment",
		}, []string{"segment"}),
		RepaymentLabels: f.NewCounterVec(prometheus.CounterOpts{
			Name: "microcredit_repayment_labels_total",
			Help: "Subscribers per bonus/malus repayment label",
		}, []string{"label"}),
		Violations: f.NewCounter(prometheus.CounterOpts{
			Name: "microcredit_identity_violations_total",
			Help: "Identity groups failing post-resolution validation",
		}),
		Runs: f.NewCounter(prometheus.CounterOpts{
			Name: "microcredit_runs_total",
			Help: "Completed pipeline runs",
		}),
	}
}

// ObserveStage records a finished stage
func (m *Metrics) ObserveStage(stage string, rows int, started time.Time) {
	if m == nil {
		return
	}
	m.StageRows.WithLabelValues(stage).Add(float64(rows))
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// StageFailed records an aborted stage
func (m *Metrics) StageFailed(stage string) {
	if m == nil {
		return
	}
	m.StageFailures.WithLabelValues(stage).Inc()
}

// CountSegment adds n subscribers to a segment
func (m *Metrics) CountSegment(segment string, n int) {
	if m == nil {
		return
	}
	m.SegmentRows.WithLabelValues(segment).Add(float64(n))
}

// CountLabel adds n subscribers to a repayment label
func (m *Metrics) CountLabel(label string, n int) {
	if m == nil {
		return
	}
	m.RepaymentLabels.WithLabelValues(label).Add(float64(n))
}

// AddViolations adds identity validation violations
func (m *Metrics) AddViolations(n int) {
	if m == nil {
		return
	}
	m.Violations.Add(float64(n))
}

// RunCompleted counts a successful run
func (m *Metrics) RunCompleted() {
	if m == nil {
		return
	}
	m.Runs.Inc()
}
