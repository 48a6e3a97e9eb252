package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BatchMetrics tracks batch commit outcomes and intake uploads.
type BatchMetrics struct {
	commitDuration *prometheus.HistogramVec
	listingsSaved  *prometheus.CounterVec
	listingsFailed *prometheus.CounterVec
	commitAborts   prometheus.Counter
	uploadsSettled *prometheus.CounterVec
}

// NewBatchMetrics registers the batch metrics on the provided registerer.
func NewBatchMetrics(reg prometheus.Registerer) *BatchMetrics {
	if reg == nil {
		return &BatchMetrics{}
	}
	commitDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "batch_commit_duration_seconds",
		Help:    "Duration of batch commit passes in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})
	listingsSaved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_listings_saved_total",
		Help: "Listings saved by committed batches.",
	}, []string{"mode"})
	listingsFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_listings_failed_total",
		Help: "Listings that failed during batch commits.",
	}, []string{"mode"})
	commitAborts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batch_commit_aborts_total",
		Help: "Batch commits aborted before any listing was written.",
	})
	uploadsSettled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_uploads_settled_total",
		Help: "Intake uploads settled by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(commitDuration, listingsSaved, listingsFailed, commitAborts, uploadsSettled)
	return &BatchMetrics{
		commitDuration: commitDuration,
		listingsSaved:  listingsSaved,
		listingsFailed: listingsFailed,
		commitAborts:   commitAborts,
		uploadsSettled: uploadsSettled,
	}
}

// ObserveCommit records the duration of a commit pass for the given mode.
func (b *BatchMetrics) ObserveCommit(mode string, duration time.Duration) {
	if b == nil || b.commitDuration == nil {
		return
	}
	b.commitDuration.WithLabelValues(normalizeLabel(mode)).Observe(duration.Seconds())
}

// AddSaved adds to the saved-listings counter for the given mode.
func (b *BatchMetrics) AddSaved(mode string, n int) {
	if b == nil || b.listingsSaved == nil || n <= 0 {
		return
	}
	b.listingsSaved.WithLabelValues(normalizeLabel(mode)).Add(float64(n))
}

// AddFailed adds to the failed-listings counter for the given mode.
func (b *BatchMetrics) AddFailed(mode string, n int) {
	if b == nil || b.listingsFailed == nil || n <= 0 {
		return
	}
	b.listingsFailed.WithLabelValues(normalizeLabel(mode)).Add(float64(n))
}

// IncAbort increments the aborted-commit counter.
func (b *BatchMetrics) IncAbort() {
	if b == nil || b.commitAborts == nil {
		return
	}
	b.commitAborts.Inc()
}

// IncUploadSettled increments the upload counter for the given outcome.
func (b *BatchMetrics) IncUploadSettled(outcome string) {
	if b == nil || b.uploadsSettled == nil {
		return
	}
	b.uploadsSettled.WithLabelValues(normalizeLabel(outcome)).Inc()
}
