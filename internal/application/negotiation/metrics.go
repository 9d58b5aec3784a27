package negotiation

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	domain "github.com/homematch/negotiation-engine/internal/domain/negotiation"
)

// Metrics exposes Prometheus collectors for negotiation activity.
type Metrics struct {
	commits    *prometheus.CounterVec
	rejections *prometheus.CounterVec
	conflicts  prometheus.Counter
	exhausted  prometheus.Counter
}

// NewMetrics registers the negotiation collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "negotiation",
			Name:      "commits_total",
			Help:      "Committed negotiation events by action.",
		}, []string{"action"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "negotiation",
			Name:      "rejections_total",
			Help:      "Operations refused with an expected reason code.",
		}, []string{"code"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "negotiation",
			Name:      "version_conflicts_total",
			Help:      "Commits that lost an optimistic concurrency race and were retried.",
		}),
		exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "negotiation",
			Name:      "retries_exhausted_total",
			Help:      "Operations that gave up after repeated version conflicts.",
		}),
	}
	reg.MustRegister(m.commits, m.rejections, m.conflicts, m.exhausted)
	return m
}

func (m *Metrics) observeCommit(action domain.Action) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(string(action)).Inc()
}

func (m *Metrics) observeRejection(err error) {
	if m == nil {
		return
	}
	var negErr *domain.Error
	if errors.As(err, &negErr) {
		m.rejections.WithLabelValues(string(negErr.Code)).Inc()
	}
}

func (m *Metrics) observeConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *Metrics) observeExhausted() {
	if m == nil {
		return
	}
	m.exhausted.Inc()
}
