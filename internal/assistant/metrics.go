package assistant

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Turn outcomes used as the "outcome" label.
const (
	outcomeAnswered        = "answered"
	outcomeNoMatches       = "no_matches"
	outcomeNoContext       = "no_context"
	outcomeGenerationError = "generation_error"
)

// turnMetrics holds the per-turn Prometheus metrics.
type turnMetrics struct {
	// turnsTotal counts finished turns by outcome.
	turnsTotal *prometheus.CounterVec

	// turnDurationSeconds records wall-clock time from question to last fragment.
	turnDurationSeconds *prometheus.HistogramVec
}

// newTurnMetrics registers the assistant metrics against reg.
func newTurnMetrics(reg prometheus.Registerer) *turnMetrics {
	factory := promauto.With(reg)

	return &turnMetrics{
		turnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docchat",
			Name:      "turns_total",
			Help:      "Total number of answered questions, partitioned by outcome.",
		}, []string{"outcome"}),

		turnDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docchat",
			Name:      "turn_duration_seconds",
			Help:      "Duration of a turn from question to end of the answer stream.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),
	}
}

// observe records one finished turn.
func (m *turnMetrics) observe(outcome string, start time.Time) {
	m.turnsTotal.WithLabelValues(outcome).Inc()
	m.turnDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
