// Package metrics instruments the scheduler loop with Prometheus
// counters, grounded in the srediag-plugin-shm example's direct use of
// github.com/prometheus/client_golang for the same purpose: observing
// a long-running worker loop, not a request-response server.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the scheduler's Prometheus collectors.
type Metrics struct {
	Ticks            prometheus.Counter
	ProductiveTicks  prometheus.Counter
	Transitions      *prometheus.CounterVec
	HandlerErrors    *prometheus.CounterVec
	CommandsExecuted prometheus.Counter
}

// New registers the scheduler's collectors against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the
// package-level default registry across parallel test runs.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transferproc_scheduler_ticks_total",
			Help: "Total number of scheduler ticks executed.",
		}),
		ProductiveTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transferproc_scheduler_productive_ticks_total",
			Help: "Total number of ticks that advanced at least one process.",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transferproc_state_transitions_total",
			Help: "Total number of successful state transitions, by target state.",
		}, []string{"state"}),
		HandlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transferproc_handler_errors_total",
			Help: "Total number of handler errors, by state.",
		}, []string{"state"}),
		CommandsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transferproc_commands_executed_total",
			Help: "Total number of commands drained from the command queue.",
		}),
	}

	reg.MustRegister(m.Ticks, m.ProductiveTicks, m.Transitions, m.HandlerErrors, m.CommandsExecuted)
	return m
}
