package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Notification results.
const (
	ResultSent   = "sent"
	ResultFailed = "failed"
)

// Metrics tracks the registration write path: drafts, commits, notifications
// and ledger latency.
type Metrics struct {
	DraftsSaved    prometheus.Counter
	Submissions    *prometheus.CounterVec
	Notifications  *prometheus.CounterVec
	LedgerDuration prometheus.Histogram
}

// New registers all metrics on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DraftsSaved: f.NewCounter(prometheus.CounterOpts{
			Name: "fcl_drafts_saved_total",
			Help: "Total number of drafts written to the draft store",
		}),
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fcl_submissions_total",
			Help: "Total number of submit attempts by outcome",
		}, []string{"outcome"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fcl_notifications_total",
			Help: "Total number of confirmation messages by delivery result",
		}, []string{"result"}),
		LedgerDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fcl_ledger_append_duration_seconds",
			Help:    "Duration of ledger append operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementDraftSaved() {
	m.DraftsSaved.Inc()
}

// IncrementSubmission records a submit attempt with one of the Outcome* labels.
func (m *Metrics) IncrementSubmission(outcome string) {
	m.Submissions.WithLabelValues(outcome).Inc()
}

// IncrementNotification records a delivery attempt with one of the Result* labels.
func (m *Metrics) IncrementNotification(result string) {
	m.Notifications.WithLabelValues(result).Inc()
}

// ObserveLedgerAppend records the duration of an append.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveLedgerAppend(start time.Time) {
	m.LedgerDuration.Observe(time.Since(start).Seconds())
}
