package badge

import "github.com/prometheus/client_golang/prometheus"

var (
	enqueuedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adherence",
		Subsystem: "badge_queue",
		Name:      "badges_enqueued_total",
		Help:      "Number of earned badges appended to notification queues.",
	})

	displayedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adherence",
		Subsystem: "badge_queue",
		Name:      "badges_displayed_total",
		Help:      "Number of badges drawn from notification queues for display.",
	})

	streakAnimationCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adherence",
		Subsystem: "badge_queue",
		Name:      "streak_animations_total",
		Help:      "Number of streak animations started.",
	})
)

func init() {
	prometheus.MustRegister(enqueuedCounter, displayedCounter, streakAnimationCounter)
}
