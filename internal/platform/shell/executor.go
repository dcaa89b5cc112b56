package shell

import (
	"context"
	"fmt"
	"strings"
)

// Result is the outcome of running one command.
type Result struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the command exited zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Output returns stdout, falling back to stderr when stdout is empty.
func (r Result) Output() string {
	if strings.TrimSpace(r.Stdout) != "" {
		return r.Stdout
	}
	return r.Stderr
}

func (r Result) String() string {
	return fmt.Sprintf("%q exited %d", r.Command, r.ExitCode)
}

// Executor runs shell commands synchronously.
type Executor interface {
	// Run executes command and blocks until it exits. The returned error
	// is non-nil only when the command could not be started or the
	// transport failed; a non-zero exit is reported through Result.
	Run(ctx context.Context, command string, opts ...RunOption) (Result, error)
}

// RunOptions are the per-call settings collected from RunOption values.
type RunOptions struct {
	// Quiet discards output instead of capturing it.
	Quiet bool

	// Stdin is fed to the command when non-empty.
	Stdin string
}

// RunOption adjusts a single Run call.
type RunOption func(*RunOptions)

// Quiet discards the command's output.
func Quiet() RunOption {
	return func(o *RunOptions) {
		o.Quiet = true
	}
}

// WithStdin feeds input to the command's standard input.
func WithStdin(input string) RunOption {
	return func(o *RunOptions) {
		o.Stdin = input
	}
}

// Collect applies opts to a zero RunOptions. Executor implementations use
// it to read the options they were called with.
func Collect(opts ...RunOption) RunOptions {
	var o RunOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
