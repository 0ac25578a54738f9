package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
)

// Metrics provides observability for the DOM engine. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	// Posts ingested
	Ingests prometheus.Counter

	// Snapshot advances by target stage
	Advances *prometheus.CounterVec

	// Overlay writes by kind (state, context, actor, candidate, dedup)
	OverlayWrites *prometheus.CounterVec

	// Rejected operations by error code
	Rejections *prometheus.CounterVec

	// Eligibility recompute latency
	RecomputeLatency prometheus.Histogram

	// Background tasks by type and outcome (completed, rejected, retried)
	Tasks *prometheus.CounterVec
	// Background task processing time by type
	TaskDuration *prometheus.HistogramVec
}

// New creates a Metrics instance registered with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ingests: f.NewCounter(prometheus.CounterOpts{
			Name: "sitrep_ingests_total",
			Help: "Total posts ingested",
		}),

		Advances: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sitrep_advances_total",
			Help: "Total snapshot advances by target stage",
		}, []string{"stage"}),

		OverlayWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sitrep_overlay_writes_total",
			Help: "Total overlay writes by kind",
		}, []string{"kind"}),

		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sitrep_rejections_total",
			Help: "Total rejected DOM operations by reason",
		}, []string{"reason"}),

		RecomputeLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sitrep_recompute_duration_seconds",
			Help:    "Duration of commit eligibility recomputation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		Tasks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sitrep_tasks_total",
			Help: "Total background tasks processed by type and outcome",
		}, []string{"type", "outcome"}),

		TaskDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sitrep_task_duration_seconds",
			Help:    "Duration of background task processing",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
	}
}

// IncIngest records an ingested post.
func (m *Metrics) IncIngest() {
	if m != nil {
		m.Ingests.Inc()
	}
}

// IncAdvance records an advance into stage.
func (m *Metrics) IncAdvance(stage domain.LifecycleStage) {
	if m != nil {
		m.Advances.WithLabelValues(stage.String()).Inc()
	}
}

// IncOverlayWrite records an overlay write of kind.
func (m *Metrics) IncOverlayWrite(kind string) {
	if m != nil {
		m.OverlayWrites.WithLabelValues(kind).Inc()
	}
}

// ObserveRecompute records the duration of one recompute.
func (m *Metrics) ObserveRecompute(d time.Duration) {
	if m != nil {
		m.RecomputeLatency.Observe(d.Seconds())
	}
}

// ObserveTask records one processed task.
func (m *Metrics) ObserveTask(taskType domain.TaskType, outcome string, d time.Duration) {
	if m != nil {
		m.Tasks.WithLabelValues(string(taskType), outcome).Inc()
		m.TaskDuration.WithLabelValues(string(taskType)).Observe(d.Seconds())
	}
}

// ObserveError records err as a rejection if it is a DOM precondition failure.
func (m *Metrics) ObserveError(err error) {
	if m == nil || err == nil {
		return
	}
	if reason := RejectionReason(err); reason != "" {
		m.Rejections.WithLabelValues(reason).Inc()
	}
}

var rejectionReasons = []struct {
	err    error
	reason string
}{
	{domain.ErrAlreadyIngested, "already_ingested"},
	{domain.ErrInvalidTreeShape, "invalid_tree_shape"},
	{domain.ErrStructuralImmutability, "structural_immutability"},
	{domain.ErrOutOfOrderAdvance, "out_of_order_advance"},
	{domain.ErrDuplicateStage, "duplicate_stage"},
	{domain.ErrImmutableSnapshot, "immutable_snapshot"},
	{domain.ErrNodeNotFound, "node_not_found"},
	{domain.ErrInvalidDedup, "invalid_dedup"},
	{domain.ErrDedupCycle, "dedup_cycle"},
	{domain.ErrAdvanceInProgress, "advance_in_progress"},
}

// RejectionReason maps a DOM error to its metric label, or "" for other errors.
func RejectionReason(err error) string {
	for _, r := range rejectionReasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ""
}
