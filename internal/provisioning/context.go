package provisioning

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/spf13/afero"

	"github.com/imamik/xtserver/internal/config"
	"github.com/imamik/xtserver/internal/platform/shell"
)

// Context wraps all dependencies and state needed by a lifecycle hook.
// A single Context is created per plan invocation and passed by reference
// through every phase of every module.
type Context struct {
	context.Context

	// Options is the shared option tree. Hooks add values that later
	// hooks of the same or later modules read.
	Options *config.Options

	Executor shell.Executor
	Fs       afero.Fs
	Logger   logr.Logger
	Observer Observer
}

// NewContext creates a provisioning context. The observer defaults to one
// that writes events to logger.
func NewContext(ctx context.Context, opts *config.Options, ex shell.Executor, fs afero.Fs, logger logr.Logger) *Context {
	return &Context{
		Context:  ctx,
		Options:  opts,
		Executor: ex,
		Fs:       fs,
		Logger:   logger,
		Observer: NewLogObserver(logger),
	}
}

// Plan returns the name of the running plan.
func (c *Context) Plan() string {
	return c.Options.PlanName()
}

// WithTask returns a copy of c whose logger is scoped to the named task.
// The option tree is shared, not copied.
func (c *Context) WithTask(name string) *Context {
	nc := *c
	nc.Logger = c.Logger.WithValues("task", name)
	return &nc
}
