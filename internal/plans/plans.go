// Package plans maps plan names to the ordered task modules they run.
package plans

import (
	"github.com/spf13/afero"

	"github.com/imamik/xtserver/internal/config"
	"github.com/imamik/xtserver/internal/provisioning"
	"github.com/imamik/xtserver/internal/tasks/database"
	"github.com/imamik/xtserver/internal/tasks/paths"
	"github.com/imamik/xtserver/internal/tasks/syspolicy"
	"github.com/imamik/xtserver/internal/tasks/webmin"
	"github.com/imamik/xtserver/internal/util/password"
)

// Well-known plan names. Any other name runs the install modules.
const (
	Setup     = "setup"
	Install   = "install"
	Uninstall = "uninstall"
)

// Deps are the collaborators the task modules are built with.
type Deps struct {
	// Fs is used for option validation before any hook runs.
	Fs afero.Fs

	Fetcher       webmin.Fetcher
	CatalogOpener database.CatalogOpener
	Password      password.Generator

	// Version is the xTuple version recorded by the setup plan when none
	// is given.
	Version string
}

// Lookup returns the modules of the named plan in declaration order.
func Lookup(name string, deps Deps) []provisioning.Task {
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	policy := syspolicy.New()
	if deps.Password != nil {
		policy = syspolicy.NewWithGenerator(deps.Password)
	}

	if name == Setup {
		return []provisioning.Task{
			paths.New(),
			policy,
			webmin.New(deps.Fetcher, deps.Version),
		}
	}
	return []provisioning.Task{
		paths.New(),
		database.New(deps.Fs, deps.CatalogOpener),
		policy,
	}
}

// Uninstallable returns every module that has an uninstall hook, in the
// order they are installed by setup and install.
func Uninstallable(deps Deps) []provisioning.Task {
	seen := make(map[string]bool)
	var out []provisioning.Task
	for _, plan := range []string{Setup, Install} {
		for _, t := range Lookup(plan, deps) {
			if _, ok := t.(provisioning.Uninstaller); !ok || seen[t.Name()] {
				continue
			}
			seen[t.Name()] = true
			out = append(out, t)
		}
	}
	return out
}

// Schema returns the merged option schema of the named plan.
func Schema(name string, deps Deps) config.Schema {
	return provisioning.Schema(Lookup(name, deps))
}
