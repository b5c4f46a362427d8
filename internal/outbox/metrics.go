package outbox

import "github.com/prometheus/client_golang/prometheus"

var (
	deliveredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adherence",
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Number of adherence events successfully published to Kafka.",
	})

	failedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adherence",
		Subsystem: "outbox",
		Name:      "events_failed_total",
		Help:      "Number of event delivery attempts that failed and were requeued.",
	})

	droppedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adherence",
		Subsystem: "outbox",
		Name:      "events_dropped_total",
		Help:      "Number of events discarded without delivery, labeled by reason.",
	}, []string{"reason"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "adherence",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent delivering event batches.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	bufferedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "adherence",
		Subsystem: "outbox",
		Name:      "events_buffered",
		Help:      "Events currently waiting in the in-memory buffer.",
	})
)

func init() {
	prometheus.MustRegister(deliveredCounter, failedCounter, droppedCounter, batchDuration, bufferedGauge)
}
