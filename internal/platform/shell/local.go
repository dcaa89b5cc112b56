package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Local runs commands on this machine through a POSIX shell.
type Local struct {
	// Shell is the interpreter invoked as `Shell -c command`.
	// Defaults to /bin/sh.
	Shell string

	// Env, when set, replaces the inherited environment.
	Env []string
}

// NewLocal returns an executor that runs commands with /bin/sh.
func NewLocal() *Local {
	return &Local{Shell: "/bin/sh"}
}

// Run implements Executor.
func (l *Local) Run(ctx context.Context, command string, opts ...RunOption) (Result, error) {
	o := Collect(opts...)
	sh := l.Shell
	if sh == "" {
		sh = "/bin/sh"
	}

	// #nosec G204 - commands are rendered from module templates, not raw user input
	cmd := exec.CommandContext(ctx, sh, "-c", command)
	if l.Env != nil {
		cmd.Env = l.Env
	}
	if o.Stdin != "" {
		cmd.Stdin = strings.NewReader(o.Stdin)
	}

	var stdout, stderr bytes.Buffer
	if o.Quiet {
		cmd.Stdout = io.Discard
		cmd.Stderr = io.Discard
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	res := Result{Command: command}
	err := cmd.Run()
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("failed to run %q: %w", command, err)
	}
	return res, nil
}
