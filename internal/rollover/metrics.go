package rollover

import "github.com/prometheus/client_golang/prometheus"

var (
	resetCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adherence",
		Subsystem: "rollover",
		Name:      "resets_total",
		Help:      "Number of daily counter resets performed, labeled by subsystem.",
	}, []string{"subsystem"})

	markerReadFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adherence",
		Subsystem: "rollover",
		Name:      "marker_read_failures_total",
		Help:      "Marker reads that failed and were treated as needing a reset.",
	}, []string{"subsystem"})

	notifyFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adherence",
		Subsystem: "rollover",
		Name:      "notify_failures_total",
		Help:      "Best-effort remote reset notifications that failed.",
	}, []string{"subsystem"})
)

func init() {
	prometheus.MustRegister(resetCounter, markerReadFailures, notifyFailures)
}

func recordReset(subsystem string) {
	resetCounter.WithLabelValues(subsystem).Inc()
}

func recordMarkerReadFailure(subsystem string) {
	markerReadFailures.WithLabelValues(subsystem).Inc()
}

func recordNotifyFailure(subsystem string) {
	notifyFailures.WithLabelValues(subsystem).Inc()
}
