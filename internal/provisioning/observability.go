package provisioning

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"
)

// Observer receives structured events while a plan runs.
type Observer interface {
	Event(event Event)
}

// Event represents a structured provisioning event.
type Event struct {
	Type      EventType
	Phase     Phase
	Task      string
	Message   string
	Timestamp time.Time
	Duration  time.Duration
	Err       error
}

// EventType represents the type of provisioning event.
type EventType string

const (
	// EventPlanStarted indicates the sequencer started a plan.
	EventPlanStarted EventType = "plan.started"
	// EventPlanCompleted indicates every hook of a plan succeeded.
	EventPlanCompleted EventType = "plan.completed"
	// EventPlanFailed indicates a plan stopped at a failing hook.
	EventPlanFailed EventType = "plan.failed"

	// EventPhaseStarted indicates a hook has started.
	EventPhaseStarted EventType = "phase.started"
	// EventPhaseCompleted indicates a hook completed successfully.
	EventPhaseCompleted EventType = "phase.completed"
	// EventPhaseFailed indicates a hook failed.
	EventPhaseFailed EventType = "phase.failed"
)

// LogObserver writes events to a logr.Logger. Hook start events are
// verbose; failures go through Error.
type LogObserver struct {
	log logr.Logger
}

// NewLogObserver creates an observer backed by log.
func NewLogObserver(log logr.Logger) *LogObserver {
	return &LogObserver{log: log}
}

// Event implements Observer.
func (o *LogObserver) Event(event Event) {
	kv := []any{"event", string(event.Type)}
	if event.Phase != "" {
		kv = append(kv, "phase", string(event.Phase))
	}
	if event.Task != "" {
		kv = append(kv, "task", event.Task)
	}
	if event.Duration > 0 {
		kv = append(kv, "duration", event.Duration.Round(time.Millisecond).String())
	}

	switch event.Type {
	case EventPhaseFailed, EventPlanFailed:
		o.log.Error(event.Err, event.Message, kv...)
	case EventPhaseStarted:
		o.log.V(1).Info(event.Message, kv...)
	default:
		o.log.Info(event.Message, kv...)
	}
}

func hookStarted(o Observer, phase Phase, task string) {
	o.Event(Event{
		Type:      EventPhaseStarted,
		Phase:     phase,
		Task:      task,
		Message:   "starting",
		Timestamp: time.Now(),
	})
}

func hookCompleted(o Observer, phase Phase, task string, d time.Duration) {
	o.Event(Event{
		Type:      EventPhaseCompleted,
		Phase:     phase,
		Task:      task,
		Message:   fmt.Sprintf("completed in %v", d.Round(time.Millisecond)),
		Timestamp: time.Now(),
		Duration:  d,
	})
}

func hookFailed(o Observer, phase Phase, task string, err error) {
	o.Event(Event{
		Type:      EventPhaseFailed,
		Phase:     phase,
		Task:      task,
		Message:   "failed",
		Timestamp: time.Now(),
		Err:       err,
	})
}
