package runner

import (
	"context"

	"github.com/imamik/xtserver/internal/platform/shell"
)

// Group is a named, ordered list of commands, e.g. account creation.
type Group struct {
	Name     string
	Commands []string
}

// Sequence is an ordered list of groups. Commands run group by group in
// the order they are declared.
type Sequence []Group

// Step is one command tagged with the group or build step it belongs to.
type Step struct {
	Name    string
	Command string

	// Stdin is fed to the command's standard input. Secrets go here so
	// they never appear in the command line or in logs.
	Stdin string
}

// run executes the step, feeding Stdin when set.
func (s Step) run(ctx context.Context, ex shell.Executor, opts []shell.RunOption) (shell.Result, error) {
	if s.Stdin != "" {
		opts = append(append([]shell.RunOption(nil), opts...), shell.WithStdin(s.Stdin))
	}
	return ex.Run(ctx, s.Command, opts...)
}

// Steps flattens the sequence into its execution order.
func (s Sequence) Steps() []Step {
	var steps []Step
	for _, g := range s {
		for _, c := range g.Commands {
			steps = append(steps, Step{Name: g.Name, Command: c})
		}
	}
	return steps
}
