package orchestrator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goshak24/ScolioFrontend-sub001/internal/domain"
)

var (
	reportCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adherence",
		Subsystem: "orchestrator",
		Name:      "reports_total",
		Help:      "Activity reports handled, labeled by kind and outcome.",
	}, []string{"kind", "outcome"})

	streakAdvanceCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adherence",
		Subsystem: "orchestrator",
		Name:      "streak_advances_total",
		Help:      "Streak advances confirmed by the backend.",
	})

	dispatchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "adherence",
		Subsystem: "orchestrator",
		Name:      "dispatch_duration_seconds",
		Help:      "Latency of remote activity dispatch calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(reportCounter, streakAdvanceCounter, dispatchLatency)
}

func recordReport(kind domain.ActivityKind, outcome Outcome) {
	reportCounter.WithLabelValues(kind.String(), string(outcome)).Inc()
}

func recordStreakAdvance() {
	streakAdvanceCounter.Inc()
}

func observeDispatch(kind domain.ActivityKind, d time.Duration) {
	dispatchLatency.WithLabelValues(kind.String()).Observe(d.Seconds())
}
