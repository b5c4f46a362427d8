// Package observability builds the service logger and exposes build metadata metrics.
package observability

import (
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var (
	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "adherence",
		Name:      "build_info",
		Help:      "Constant 1 labeled with the running component.",
	}, []string{"component"})

	startTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "adherence",
		Name:      "start_time_seconds",
		Help:      "Unix timestamp at which the process started serving.",
	})

	activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "adherence",
		Subsystem: "session",
		Name:      "active",
		Help:      "Patient sessions currently held in memory.",
	})

	eventPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "adherence",
		Subsystem: "event_log",
		Name:      "last_event_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent adherence event persisted to Postgres.",
	})
)

func init() {
	prometheus.MustRegister(buildInfo, startTime, activeSessions, eventPersistGauge)
}

// NewLogger builds the JSON logger shared by a process. Unknown levels fall back to info.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}

// MarkStarted records process start metadata for component.
func MarkStarted(component string, now time.Time) {
	buildInfo.WithLabelValues(component).Set(1)
	startTime.Set(float64(now.Unix()))
}

// SetActiveSessions updates the in-memory session gauge.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// RecordEventPersisted updates the persistence watermark gauge.
func RecordEventPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	eventPersistGauge.Set(float64(ts.Unix()))
}
