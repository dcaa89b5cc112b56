package provisioning

import (
	"errors"
	"fmt"
	"time"

	"github.com/imamik/xtserver/internal/config"
	"github.com/imamik/xtserver/internal/metrics"
)

// Sequencer drives an ordered list of task modules through the lifecycle
// phases. It is plan-name agnostic; modules read the plan name from the
// option tree.
type Sequencer struct {
	Tasks []Task
}

// NewSequencer creates a sequencer for tasks in declaration order.
func NewSequencer(tasks ...Task) *Sequencer {
	return &Sequencer{Tasks: tasks}
}

// Validate applies the merged option schema of every task to opts.
func (s *Sequencer) Validate(opts *config.Options) error {
	return Schema(s.Tasks).Apply(opts)
}

// Run validates the options, then runs the plan: every beforeInstall hook,
// then beforeTask, executeTask, afterTask per module, then every
// afterInstall hook. The first failing hook stops the plan.
func (s *Sequencer) Run(ctx *Context) error {
	start := time.Now()
	plan := ctx.Plan()

	ctx.Observer.Event(Event{
		Type:      EventPlanStarted,
		Message:   fmt.Sprintf("starting plan %s with %d modules", plan, len(s.Tasks)),
		Timestamp: start,
	})

	if err := s.Validate(ctx.Options); err != nil {
		return s.fail(ctx, err)
	}

	for _, t := range s.Tasks {
		if err := s.invoke(ctx, t, PhaseBeforeInstall); err != nil {
			return s.fail(ctx, err)
		}
	}

	for _, t := range s.Tasks {
		for _, p := range []Phase{PhaseBeforeTask, PhaseExecuteTask, PhaseAfterTask} {
			if err := s.invoke(ctx, t, p); err != nil {
				return s.fail(ctx, err)
			}
		}
	}

	for _, t := range s.Tasks {
		if err := s.invoke(ctx, t, PhaseAfterInstall); err != nil {
			return s.fail(ctx, err)
		}
	}

	d := time.Since(start)
	ctx.Observer.Event(Event{
		Type:      EventPlanCompleted,
		Message:   fmt.Sprintf("plan %s completed in %v", plan, d.Round(time.Millisecond)),
		Timestamp: time.Now(),
		Duration:  d,
	})
	return nil
}

// Uninstall calls every uninstall hook in reverse declaration order. A
// failing hook is logged and the remaining modules still run; all failures
// are returned joined.
func (s *Sequencer) Uninstall(ctx *Context) error {
	var errs []error

	for i := len(s.Tasks) - 1; i >= 0; i-- {
		t := s.Tasks[i]
		if err := s.invoke(ctx, t, PhaseUninstall); err != nil {
			ctx.Logger.Info("uninstall failed, continuing", "level", "warn", "task", t.Name(), "error", err.Error())
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *Sequencer) invoke(ctx *Context, t Task, p Phase) error {
	fn := hook(t, p)
	if fn == nil {
		return nil
	}

	name := t.Name()
	hookStarted(ctx.Observer, p, name)
	start := time.Now()

	err := fn(ctx.WithTask(name))

	d := time.Since(start)
	metrics.RecordHook(string(p), name, err, d)
	if err != nil {
		hookFailed(ctx.Observer, p, name, err)
		return &PhaseError{Phase: p, Task: name, Err: err}
	}

	hookCompleted(ctx.Observer, p, name, d)
	return nil
}

func (s *Sequencer) fail(ctx *Context, err error) error {
	ctx.Observer.Event(Event{
		Type:      EventPlanFailed,
		Message:   fmt.Sprintf("plan %s failed", ctx.Plan()),
		Timestamp: time.Now(),
		Err:       err,
	})
	return err
}

// PhaseError is returned by the sequencer when a hook fails. It names the
// phase and module; the cause is available through errors.As.
type PhaseError struct {
	Phase Phase
	Task  string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase of %s failed: %v", e.Phase, e.Task, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
