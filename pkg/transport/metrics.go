package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/saferoomai/feedback/pkg/core"
)

// metrics holds the per-client counters. With a nil Registerer they are
// still counted but never exported.
//
//   - feedback_submissions_total{origin} - submissions by ack origin
//   - feedback_submission_cache_hits_total - submissions served from cache
//   - feedback_fetch_total{result} - FetchOne calls by outcome
type metrics struct {
	submissions *prometheus.CounterVec
	cacheHits   prometheus.Counter
	fetches     *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedback_submissions_total",
				Help: "Total number of feedback submissions by acknowledgment origin",
			},
			[]string{"origin"},
		),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "feedback_submission_cache_hits_total",
			Help: "Total number of submissions answered from the submission cache",
		}),
		fetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedback_fetch_total",
				Help: "Total number of single-record fetches by result",
			},
			[]string{"result"}, // "found", "not_found", "error"
		),
	}
}

func (m *metrics) submitted(origin core.Origin) {
	m.submissions.WithLabelValues(string(origin)).Inc()
}
