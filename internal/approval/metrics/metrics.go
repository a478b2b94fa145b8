package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the approval pipeline. Outcome labels
// match the domain error codes so dashboards can separate benign conflicts
// from infrastructure failures.
type Metrics struct {
	ApprovalsTotal  *prometheus.CounterVec
	RejectionsTotal *prometheus.CounterVec
	RenderDuration  prometheus.Histogram
	UploadDuration  prometheus.Histogram
	ApproveDuration prometheus.Histogram
}

// New creates a new Metrics instance with all approval metrics registered.
func New() *Metrics {
	return &Metrics{
		ApprovalsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kehila_approvals_total",
			Help: "Approval attempts by outcome",
		}, []string{"outcome"}),
		RejectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kehila_rejections_total",
			Help: "Rejection attempts by outcome",
		}, []string{"outcome"}),
		RenderDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kehila_render_duration_seconds",
			Help:    "Duration of document rendering",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}),
		UploadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kehila_upload_duration_seconds",
			Help:    "Duration of document upload",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ApproveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kehila_approve_duration_seconds",
			Help:    "End to end duration of Approve",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
	}
}

// CountApproval records one Approve outcome.
func (m *Metrics) CountApproval(outcome string) {
	m.ApprovalsTotal.WithLabelValues(outcome).Inc()
}

// CountRejection records one Reject outcome.
func (m *Metrics) CountRejection(outcome string) {
	m.RejectionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRender records the duration of a rendering attempt.
func (m *Metrics) ObserveRender(d time.Duration) {
	m.RenderDuration.Observe(d.Seconds())
}

// ObserveUpload records the duration of an upload attempt.
func (m *Metrics) ObserveUpload(d time.Duration) {
	m.UploadDuration.Observe(d.Seconds())
}

// ObserveApprove records the total duration of an Approve call.
func (m *Metrics) ObserveApprove(d time.Duration) {
	m.ApproveDuration.Observe(d.Seconds())
}
