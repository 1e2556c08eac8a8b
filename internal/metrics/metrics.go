// Package metrics holds the Prometheus collectors for tapclick and the
// HTTP endpoint that exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Trigger path
	TriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tapclick_triggers_total",
			Help: "Trigger requests by result (accepted, debounced, not_ready, stopped)",
		},
		[]string{"result"},
	)

	// Recovery
	RestartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tapclick_restarts_total",
			Help: "Engine restarts by origin (watchdog, recovery) and outcome (ok, failed)",
		},
		[]string{"origin", "outcome"},
	)

	StartAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tapclick_start_attempts_total",
			Help: "Initial engine start attempts by outcome",
		},
		[]string{"outcome"},
	)

	FocusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tapclick_focus_transitions_total",
			Help: "Audio focus transitions by resulting state",
		},
		[]string{"state"},
	)

	EngineHealthy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tapclick_engine_healthy",
			Help: "1 when the last health check reported a healthy stream",
		},
	)

	// Command thread
	TaskPanicsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tapclick_executor_task_panics_total",
			Help: "Recovered panics in command thread tasks by task name",
		},
		[]string{"task"},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tapclick_executor_queue_depth",
			Help: "Tasks waiting on the command thread, delayed tasks included",
		},
	)

	DrainTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tapclick_executor_drain_timeouts_total",
			Help: "Command thread shutdowns that exceeded the drain timeout",
		},
	)
)

// Result labels for TriggersTotal.
const (
	ResultAccepted  = "accepted"
	ResultDebounced = "debounced"
	ResultNotReady  = "not_ready"
	ResultStopped   = "stopped"
)

// Outcome labels.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// SetHealthy records the last observed stream health.
func SetHealthy(healthy bool) {
	if healthy {
		EngineHealthy.Set(1)
		return
	}
	EngineHealthy.Set(0)
}

// Outcome maps a boolean result to an outcome label.
func Outcome(ok bool) string {
	if ok {
		return OutcomeOK
	}
	return OutcomeFailed
}
