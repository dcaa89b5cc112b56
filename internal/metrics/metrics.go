// Package metrics holds the Prometheus collectors for provisioning runs.
//
// xtserver is a short-lived CLI, so nothing is served over HTTP. When the
// operator asks for it, the registry is written once at the end of a plan
// in text format for the node-exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every xtserver collector.
var Registry = prometheus.NewRegistry()

var (
	hookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "xtserver",
			Subsystem: "plan",
			Name:      "hook_duration_seconds",
			Help:      "Duration of lifecycle hooks in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8), // 10ms to ~3min
		},
		[]string{"phase", "task"},
	)

	hooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xtserver",
			Subsystem: "plan",
			Name:      "hooks_total",
			Help:      "Total number of lifecycle hooks run by result",
		},
		[]string{"phase", "task", "result"},
	)

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xtserver",
			Subsystem: "runner",
			Name:      "commands_total",
			Help:      "Total number of commands run by error policy and outcome",
		},
		[]string{"policy", "outcome"},
	)

	lastRunSuccess = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xtserver",
			Subsystem: "plan",
			Name:      "last_run_success",
			Help:      "Whether the last run of a plan succeeded (1) or not (0)",
		},
		[]string{"plan"},
	)

	lastRunTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xtserver",
			Subsystem: "plan",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run of a plan finished",
		},
		[]string{"plan"},
	)
)

func init() {
	Registry.MustRegister(
		hookDuration,
		hooksTotal,
		commandsTotal,
		lastRunSuccess,
		lastRunTimestamp,
	)
}

// RecordHook records one hook invocation.
func RecordHook(phase, task string, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	hooksTotal.WithLabelValues(phase, task, result).Inc()
	hookDuration.WithLabelValues(phase, task).Observe(duration.Seconds())
}

// RecordCommand records a command outcome under an error policy.
func RecordCommand(policy, outcome string) {
	commandsTotal.WithLabelValues(policy, outcome).Inc()
}

// RecordRun records the final result of a plan.
func RecordRun(plan string, success bool, finished time.Time) {
	if success {
		lastRunSuccess.WithLabelValues(plan).Set(1)
	} else {
		lastRunSuccess.WithLabelValues(plan).Set(0)
	}
	lastRunTimestamp.WithLabelValues(plan).Set(float64(finished.Unix()))
}

// WriteTextfile writes the registry to path atomically.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
