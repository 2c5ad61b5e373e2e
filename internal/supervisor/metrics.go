package supervisor

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	reloadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "flutterwatch",
			Name:      "reloads_total",
			Help:      "Total reload commands written to the child",
		},
	)

	reloadsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flutterwatch",
			Name:      "reloads_dropped_total",
			Help:      "Reload triggers dropped because a precondition failed",
		},
		[]string{"reason"},
	)

	watchEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flutterwatch",
			Subsystem: "watch",
			Name:      "events_total",
			Help:      "Filesystem change events seen by the watcher",
		},
		[]string{"result"},
	)

	childReady = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "flutterwatch",
			Subsystem: "child",
			Name:      "ready",
			Help:      "1 once the child printed its readiness marker",
		},
	)

	supervisorState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "flutterwatch",
			Subsystem: "supervisor",
			Name:      "state",
			Help:      "1 for the current lifecycle state, 0 otherwise",
		},
		[]string{"state"},
	)

	relayedBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "flutterwatch",
			Subsystem: "relay",
			Name:      "bytes_total",
			Help:      "Operator input bytes forwarded to the child",
		},
	)
)

func init() {
	prometheus.MustRegister(reloadsTotal, reloadsDroppedTotal, watchEventsTotal, childReady, supervisorState, relayedBytesTotal)
}

// dropReason maps a dispatch error to a metric label.
func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrNotReady):
		return "not_ready"
	case errors.Is(err, ErrChildExited):
		return "child_exited"
	case errors.Is(err, ErrInputClosed):
		return "input_closed"
	default:
		return "write_error"
	}
}

func recordState(st State) {
	for _, s := range []State{StateStarting, StateRunning, StateShuttingDown, StateTerminated} {
		v := 0.0
		if s == st {
			v = 1
		}
		supervisorState.WithLabelValues(string(s)).Set(v)
	}
}
