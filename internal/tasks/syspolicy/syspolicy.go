// Package syspolicy implements the sys.policy module. It creates OS
// accounts and groups, sets ownership and permissions, and writes sudoers
// fragments.
//
// Account and permission commands are best-effort: re-running a plan hits
// "already exists" conditions that are not failures. Sudoers fragments are
// written only when absent. The final visudo check is fatal.
package syspolicy

import (
	"embed"
	"errors"
	"fmt"
	"path"

	"github.com/spf13/afero"

	"github.com/imamik/xtserver/internal/config"
	"github.com/imamik/xtserver/internal/platform/shell"
	"github.com/imamik/xtserver/internal/provisioning"
	"github.com/imamik/xtserver/internal/runner"
	"github.com/imamik/xtserver/internal/util/password"
)

// Name is the module identifier.
const Name = "sys.policy"

// SetupPlan is the plan that establishes machine-wide accounts.
const SetupPlan = "setup"

const (
	// GlobalPolicyFile is the machine-wide sudoers fragment.
	GlobalPolicyFile = "XT00-xtuple-global-policy"

	userPolicyTemplate = "XT10-user-policy.tmpl"
	remoteUser         = "xtremote"
	defaultSudoersDir  = "/etc/sudoers.d"
	sudoersMode        = 0o440
)

// Option paths written or read by this module.
const (
	RemotePasswordKey = "sys.policy.remotePassword"
	UserPasswordKey   = "sys.policy.userPassword"
	SudoersDirKey     = "sys.policy.sudoersdir"
	StateKey          = "sys.policy.state"
)

//go:embed XT00-xtuple-global-policy XT10-user-policy.tmpl
var policies embed.FS

// State is the progress of the module through a plan.
type State string

const (
	StateInit              State = "init"
	StateSetup             State = "setup"
	StateUser              State = "user"
	StatePolicyWritten     State = "policy-written"
	StatePermissionsLocked State = "permissions-locked"
	StateValidated         State = "validated"
)

// UserPolicyFile returns the sudoers fragment name for an installation.
func UserPolicyFile(name string) string {
	return fmt.Sprintf("XT10-%s-policy", name)
}

// Task is the sys.policy module.
type Task struct {
	password password.Generator
}

// New returns the sys.policy module.
func New() *Task {
	return &Task{password: password.Default}
}

// NewWithGenerator returns the module with a fixed password source.
func NewWithGenerator(gen password.Generator) *Task {
	return &Task{password: gen}
}

// Name implements provisioning.Task.
func (t *Task) Name() string { return Name }

// Options implements provisioning.OptionDeclarer.
func (t *Task) Options() config.Schema {
	return config.Schema{
		{
			Name:        "sudoersdir",
			Namespace:   "sys.policy",
			Description: "Directory that sudoers fragments are written to",
			Kind:        config.KindString,
		},
	}
}

// BeforeTask generates the password for the account this plan creates.
// The setup plan always creates xtremote. Other plans create the
// installation user only when it does not exist yet; an existing user gets
// no password and its account commands are skipped.
func (t *Task) BeforeTask(ctx *provisioning.Context) error {
	if err := setState(ctx, StateInit); err != nil {
		return err
	}

	if ctx.Plan() == SetupPlan {
		return t.generate(ctx, RemotePasswordKey)
	}

	name := ctx.Options.String("xt.name")
	if name == "" {
		return nil
	}

	res, err := ctx.Executor.Run(ctx, "id -u "+name, shell.Quiet())
	if err != nil {
		return fmt.Errorf("failed to look up user %s: %w", name, err)
	}
	if res.Success() {
		ctx.Logger.V(1).Info("user exists, skipping account creation", "user", name)
		return nil
	}
	return t.generate(ctx, UserPasswordKey)
}

func (t *Task) generate(ctx *provisioning.Context, key string) error {
	pw, err := t.password()
	if err != nil {
		return fmt.Errorf("failed to generate password: %w", err)
	}
	return ctx.Options.Set(key, pw)
}

// ExecuteTask applies the machine-wide policy for the setup plan and the
// per-installation policy for any other plan.
func (t *Task) ExecuteTask(ctx *provisioning.Context) error {
	if ctx.Plan() == SetupPlan {
		if err := setState(ctx, StateSetup); err != nil {
			return err
		}
		return t.createSystemPolicy(ctx)
	}

	if err := setState(ctx, StateUser); err != nil {
		return err
	}
	return t.createUserPolicy(ctx)
}

func (t *Task) createSystemPolicy(ctx *provisioning.Context) error {
	if pw := ctx.Options.String(RemotePasswordKey); pw != "" {
		seq, err := render(systemSequence, ctx.Options)
		if err != nil {
			return err
		}
		report := runner.BestEffortSteps(ctx, ctx.Executor, ctx.Logger, withPassword(seq, remoteUser, pw))
		logReport(ctx, report)
	}

	raw, err := policies.ReadFile(GlobalPolicyFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", GlobalPolicyFile, err)
	}
	if err := writeOnce(ctx, path.Join(sudoersDir(ctx), GlobalPolicyFile), raw); err != nil {
		return err
	}
	return setState(ctx, StatePolicyWritten)
}

func (t *Task) createUserPolicy(ctx *provisioning.Context) error {
	name := ctx.Options.String("xt.name")
	if name == "" {
		return &config.ValidationError{Field: "xt.name", Message: "is required to create a user policy"}
	}

	if pw := ctx.Options.String(UserPasswordKey); pw != "" {
		seq, err := render(userSequence, ctx.Options)
		if err != nil {
			return err
		}
		report := runner.BestEffortSteps(ctx, ctx.Executor, ctx.Logger, withPassword(seq, name, pw))
		logReport(ctx, report)
	}

	content, err := config.RenderFile(policies, userPolicyTemplate, ctx.Options)
	if err != nil {
		return err
	}
	if err := writeOnce(ctx, path.Join(sudoersDir(ctx), UserPolicyFile(name)), []byte(content)); err != nil {
		return err
	}

	runner.BestEffort(ctx, ctx.Executor, ctx.Logger, runner.Sequence{
		{Name: "shell", Commands: []string{"chsh -s /bin/bash " + name}},
	})

	return setState(ctx, StatePolicyWritten)
}

// AfterTask locks down the sudoers fragments and validates them. The
// chmod is best-effort; a failing visudo check is fatal.
func (t *Task) AfterTask(ctx *provisioning.Context) error {
	runner.BestEffort(ctx, ctx.Executor, ctx.Logger, runner.Sequence{
		{Name: "lock", Commands: []string{fmt.Sprintf("chmod 440 %s/*", sudoersDir(ctx))}},
	})
	if err := setState(ctx, StatePermissionsLocked); err != nil {
		return err
	}

	err := runner.FailFast(ctx, ctx.Executor, ctx.Logger, []runner.Step{
		{Name: "sudoers validation", Command: "visudo -c"},
	})
	if err != nil {
		return &PolicyValidationError{Err: err}
	}
	return setState(ctx, StateValidated)
}

// AfterInstall removes credential leftovers. It never fails.
func (t *Task) AfterInstall(ctx *provisioning.Context) error {
	runner.BestEffort(ctx, ctx.Executor, ctx.Logger, credentialLeftovers)
	return nil
}

// Uninstall keeps accounts, sudoers fragments, and running user processes
// as they are.
func (t *Task) Uninstall(ctx *provisioning.Context) error {
	ctx.Logger.Info("accounts and sudoers policies are retained",
		"user", ctx.Options.String("xt.name"),
		"sudoersdir", sudoersDir(ctx))
	return nil
}

// PolicyValidationError reports sudoers files that failed the visudo check.
type PolicyValidationError struct {
	Err error
}

func (e *PolicyValidationError) Error() string {
	msg := "sudoers policy validation failed"
	var bf *runner.BuildFailure
	if errors.As(e.Err, &bf) && bf.Output() != "" {
		return msg + ":\n" + bf.Output()
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *PolicyValidationError) Unwrap() error {
	return e.Err
}

// writeOnce writes data to name unless the file already exists. An
// existing fragment is never touched.
func writeOnce(ctx *provisioning.Context, name string, data []byte) error {
	exists, err := afero.Exists(ctx.Fs, name)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", name, err)
	}
	if exists {
		ctx.Logger.V(1).Info("policy file exists, not overwriting", "file", name)
		return nil
	}

	if err := ctx.Fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", path.Dir(name), err)
	}
	if err := afero.WriteFile(ctx.Fs, name, data, sudoersMode); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	ctx.Logger.Info("wrote sudoers policy", "file", name)
	return nil
}

func sudoersDir(ctx *provisioning.Context) string {
	if dir := ctx.Options.String(SudoersDirKey); dir != "" {
		return dir
	}
	return defaultSudoersDir
}

func setState(ctx *provisioning.Context, s State) error {
	return ctx.Options.Set(StateKey, string(s))
}

func logReport(ctx *provisioning.Context, report runner.Report) {
	if n := len(report.Ignored()); n > 0 {
		ctx.Logger.Info("some policy commands failed and were ignored",
			"level", "warn",
			"ignored", n,
			"succeeded", report.Succeeded())
	}
}

var (
	_ provisioning.BeforeTasker   = (*Task)(nil)
	_ provisioning.TaskExecutor   = (*Task)(nil)
	_ provisioning.AfterTasker    = (*Task)(nil)
	_ provisioning.AfterInstaller = (*Task)(nil)
	_ provisioning.Uninstaller    = (*Task)(nil)
)
