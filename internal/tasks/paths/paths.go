// Package paths implements the xt.paths module, which lays out the
// filesystem locations of an installation before other modules use them.
package paths

import (
	"fmt"
	"path/filepath"

	"github.com/imamik/xtserver/internal/config"
	"github.com/imamik/xtserver/internal/provisioning"
	"github.com/imamik/xtserver/internal/tasks/syspolicy"
)

// Name is the module identifier.
const Name = "xt.paths"

const (
	DefaultHomeDir    = "/usr/local/xtuple"
	DefaultPgLogDir   = "/var/log/postgresql"
	DefaultSudoersDir = "/etc/sudoers.d"

	usrLocal = "/usr/local"
	logRoot  = "/var/log/xtuple"
	etcRoot  = "/etc/xtuple"
	libRoot  = "/var/lib/xtuple"
	runRoot  = "/var/run/xtuple"
)

// Task is the xt.paths module.
type Task struct{}

// New returns the xt.paths module.
func New() *Task {
	return &Task{}
}

// Name implements provisioning.Task.
func (t *Task) Name() string { return Name }

// Layout returns the per-installation directories derived from the
// installation name and version, keyed by option path.
func Layout(name, version string) map[string]string {
	userhome := filepath.Join(usrLocal, name)
	usersrc := filepath.Join(userhome, "xtuple")
	configdir := filepath.Join(etcRoot, version, name)

	return map[string]string{
		"xt.userhome":   userhome,
		"xt.usersrc":    usersrc,
		"xt.coredir":    usersrc,
		"xt.userconfig": filepath.Join(userhome, ".xtuple"),
		"xt.logdir":     filepath.Join(logRoot, version, name),
		"xt.configdir":  configdir,
		"xt.statedir":   filepath.Join(libRoot, version, name),
		"xt.rundir":     filepath.Join(runRoot, version, name),
		"xt.ssldir":     filepath.Join(configdir, "ssl"),
	}
}

// BeforeInstall fills in every path that was not given explicitly.
// Machine-wide paths are always set; per-installation paths need xt.name
// and are skipped by the setup plan.
func (t *Task) BeforeInstall(ctx *provisioning.Context) error {
	opts := ctx.Options

	defaults := map[string]string{
		"xt.homedir":            DefaultHomeDir,
		"pg.logdir":             DefaultPgLogDir,
		"sys.policy.sudoersdir": DefaultSudoersDir,
	}

	if name := installation(ctx); name != "" {
		version := opts.String("xt.version")
		if version == "" {
			return &config.ValidationError{Field: "xt.version", Message: "is required to lay out installation paths"}
		}
		for k, v := range Layout(name, version) {
			defaults[k] = v
		}
	}

	for path, value := range defaults {
		written, err := opts.SetDefault(path, value)
		if err != nil {
			return err
		}
		if written {
			ctx.Logger.V(1).Info("path defaulted", "option", path, "value", value)
		}
	}
	return nil
}

// BeforeTask creates the installation's own directories. Existing
// directories are left as they are.
func (t *Task) BeforeTask(ctx *provisioning.Context) error {
	if installation(ctx) == "" {
		return nil
	}

	for _, key := range []string{"xt.configdir", "xt.statedir", "xt.logdir", "xt.rundir", "xt.ssldir"} {
		dir := ctx.Options.String(key)
		if dir == "" {
			continue
		}
		if err := ctx.Fs.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// installation returns the installation name, or "" when the plan has no
// installation to lay out.
func installation(ctx *provisioning.Context) string {
	if ctx.Plan() == syspolicy.SetupPlan {
		return ""
	}
	return ctx.Options.String("xt.name")
}

var (
	_ provisioning.BeforeInstaller = (*Task)(nil)
	_ provisioning.BeforeTasker    = (*Task)(nil)
)
