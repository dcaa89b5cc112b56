package provisioning

import (
	"github.com/imamik/xtserver/internal/config"
)

// Phase identifies one lifecycle hook.
type Phase string

const (
	PhaseBeforeInstall Phase = "beforeInstall"
	PhaseBeforeTask    Phase = "beforeTask"
	PhaseExecuteTask   Phase = "executeTask"
	PhaseAfterTask     Phase = "afterTask"
	PhaseAfterInstall  Phase = "afterInstall"
	PhaseUninstall     Phase = "uninstall"
)

// Task is a provisioning module. Hooks are optional; a module implements
// the interfaces below for the phases it takes part in.
type Task interface {
	// Name returns the module identifier, e.g. "sys.policy".
	Name() string
}

// BeforeInstaller runs once per plan before any module's per-task work.
type BeforeInstaller interface {
	BeforeInstall(ctx *Context) error
}

// BeforeTasker runs right before the module's ExecuteTask.
type BeforeTasker interface {
	BeforeTask(ctx *Context) error
}

// TaskExecutor performs the module's main work.
type TaskExecutor interface {
	ExecuteTask(ctx *Context) error
}

// AfterTasker runs right after the module's ExecuteTask.
type AfterTasker interface {
	AfterTask(ctx *Context) error
}

// AfterInstaller runs once per plan after every module completed.
type AfterInstaller interface {
	AfterInstall(ctx *Context) error
}

// Uninstaller is called by the uninstall plan only.
type Uninstaller interface {
	Uninstall(ctx *Context) error
}

// OptionDeclarer is implemented by modules that accept options. The schema
// is applied to the option tree before any hook runs.
type OptionDeclarer interface {
	Options() config.Schema
}

// hook returns the function t implements for phase p, or nil.
func hook(t Task, p Phase) func(*Context) error {
	switch p {
	case PhaseBeforeInstall:
		if h, ok := t.(BeforeInstaller); ok {
			return h.BeforeInstall
		}
	case PhaseBeforeTask:
		if h, ok := t.(BeforeTasker); ok {
			return h.BeforeTask
		}
	case PhaseExecuteTask:
		if h, ok := t.(TaskExecutor); ok {
			return h.ExecuteTask
		}
	case PhaseAfterTask:
		if h, ok := t.(AfterTasker); ok {
			return h.AfterTask
		}
	case PhaseAfterInstall:
		if h, ok := t.(AfterInstaller); ok {
			return h.AfterInstall
		}
	case PhaseUninstall:
		if h, ok := t.(Uninstaller); ok {
			return h.Uninstall
		}
	}
	return nil
}

// Schema merges the option schemas declared by tasks, in task order.
func Schema(tasks []Task) config.Schema {
	var schemas []config.Schema
	for _, t := range tasks {
		if d, ok := t.(OptionDeclarer); ok {
			schemas = append(schemas, d.Options())
		}
	}
	return config.Merge(schemas...)
}
