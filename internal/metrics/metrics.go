// Package metrics holds the Prometheus collectors for mailbox operations and
// the optional HTTP listener that exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Operations counts every operation by name and outcome ("ok" or "error").
	Operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2a_operations_total",
			Help: "Total mailbox operations",
		},
		[]string{"op", "outcome"},
	)

	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2a_registrations_total",
			Help: "Total agent registrations",
		},
		[]string{"kind"}, // "new" or "update"
	)

	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "a2a_messages_sent_total",
			Help: "Total messages delivered",
		},
	)

	UnconfirmedRecipients = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "a2a_unconfirmed_recipients_total",
			Help: "Messages delivered to an inbox created on send",
		},
	)

	MessagesMarkedRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "a2a_messages_marked_read_total",
			Help: "Total mark_read calls that succeeded",
		},
	)

	Polls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2a_polls_total",
			Help: "Total polls by result",
		},
		[]string{"result"}, // "found", "empty", "error"
	)

	PollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "a2a_poll_duration_seconds",
			Help:    "Wall time spent in poll_inbox",
			Buckets: []float64{.01, .1, 1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	PollAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "a2a_poll_attempts",
			Help:    "Inbox scans made per poll",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 30, 60},
		},
	)
)

// ObserveOperation records one operation outcome.
func ObserveOperation(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	Operations.WithLabelValues(op, outcome).Inc()
}
