package breaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for circuit breakers.
var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "xref_circuit_breaker_state",
		Help: "Current circuit breaker state (0=closed, 1=half_open, 2=open)",
	}, []string{"breaker"})

	breakerRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xref_circuit_breaker_rejections_total",
		Help: "Total number of calls rejected without reaching the wrapped operation",
	}, []string{"breaker"})

	breakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xref_circuit_breaker_transitions_total",
		Help: "Total number of state transitions by breaker, source and target state",
	}, []string{"breaker", "from", "to"})
)
