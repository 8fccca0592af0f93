package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autosched",
			Name:      "runs_total",
			Help:      "Scheduling runs by final state.",
		},
		[]string{"result"},
	)

	bookingAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autosched",
			Name:      "booking_attempts_total",
			Help:      "Booking attempts on a candidate occurrence by outcome.",
		},
		[]string{"result"},
	)

	candidatesExamined = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "autosched",
			Name:      "candidates_examined",
			Help:      "Occurrences examined per slot search.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	tasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autosched",
			Name:      "tasks_total",
			Help:      "Scheduling tasks handled by the consumer by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(runs, bookingAttempts, candidatesExamined, tasks)
	})
}

func IncRun(result string) {
	runs.WithLabelValues(result).Inc()
}

func IncBookingAttempt(result string) {
	bookingAttempts.WithLabelValues(result).Inc()
}

func ObserveCandidates(n int) {
	candidatesExamined.Observe(float64(n))
}

func IncTask(outcome string) {
	tasks.WithLabelValues(outcome).Inc()
}
