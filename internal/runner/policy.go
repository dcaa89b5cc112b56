package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/imamik/xtserver/internal/metrics"
	"github.com/imamik/xtserver/internal/platform/shell"
)

// Outcome classifies the result of one command under a policy.
type Outcome int

const (
	// Succeeded means the command exited zero.
	Succeeded Outcome = iota
	// Ignored means the command failed under the best-effort policy.
	Ignored
	// Fatal means the command failed under the fail-fast policy.
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Ignored:
		return "ignored"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

const (
	policyBestEffort = "best-effort"
	policyFailFast   = "fail-fast"
)

// StepResult is the recorded result of one command.
type StepResult struct {
	Step    Step
	Result  shell.Result
	Outcome Outcome

	// Err is set when the executor could not run the command at all.
	Err error
}

// Report collects the results of a best-effort run.
type Report struct {
	Results []StepResult
}

// Ignored returns the results of commands that failed.
func (r Report) Ignored() []StepResult {
	var out []StepResult
	for _, res := range r.Results {
		if res.Outcome == Ignored {
			out = append(out, res)
		}
	}
	return out
}

// Succeeded returns the number of commands that exited zero.
func (r Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == Succeeded {
			n++
		}
	}
	return n
}

// BestEffort runs every command in seq. Failures are logged at verbose
// level and recorded as Ignored; they never stop the sequence and never
// surface as an error.
func BestEffort(ctx context.Context, ex shell.Executor, log logr.Logger, seq Sequence, opts ...shell.RunOption) Report {
	return BestEffortSteps(ctx, ex, log, seq.Steps(), opts...)
}

// BestEffortSteps is BestEffort over explicit steps. A step's Stdin is
// never logged.
func BestEffortSteps(ctx context.Context, ex shell.Executor, log logr.Logger, steps []Step, opts ...shell.RunOption) Report {
	var report Report

	for _, step := range steps {
		res, err := step.run(ctx, ex, opts)
		sr := StepResult{Step: step, Result: res, Outcome: Succeeded, Err: err}

		if err != nil || !res.Success() {
			sr.Outcome = Ignored
			log.V(1).Info("command failed, continuing",
				"group", step.Name,
				"command", step.Command,
				"exitCode", res.ExitCode,
				"output", strings.TrimSpace(res.Output()),
				"error", errString(err))
		}

		metrics.RecordCommand(policyBestEffort, sr.Outcome.String())
		report.Results = append(report.Results, sr)
	}

	return report
}

// FailFast runs steps in order and stops at the first failure.
func FailFast(ctx context.Context, ex shell.Executor, log logr.Logger, steps []Step, opts ...shell.RunOption) error {
	for _, step := range steps {
		log.Info("running", "step", step.Name)

		res, err := step.run(ctx, ex, opts)
		if err != nil || !res.Success() {
			metrics.RecordCommand(policyFailFast, Fatal.String())
			return &BuildFailure{Step: step, Result: res, Err: err}
		}
		metrics.RecordCommand(policyFailFast, Succeeded.String())
	}
	return nil
}

// BuildFailure is a fail-fast step that exited non-zero or could not be run.
// Its message includes the step's captured output verbatim.
type BuildFailure struct {
	Step   Step
	Result shell.Result
	Err    error
}

func (e *BuildFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Step.Name, e.Err)
	}
	return fmt.Sprintf("%s failed with exit code %d:\n%s", e.Step.Name, e.Result.ExitCode, e.Result.Output())
}

func (e *BuildFailure) Unwrap() error {
	return e.Err
}

// Output returns the captured output of the failed step.
func (e *BuildFailure) Output() string {
	return e.Result.Output()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
