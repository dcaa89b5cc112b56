package testing

import (
	"github.com/imamik/xtserver/internal/config"
)

// OptionsBuilder builds options trees for tests. Each method returns a new
// builder so partial builders can be shared between cases.
type OptionsBuilder struct {
	values map[string]any
}

// NewOptionsBuilder returns a builder for the "install" plan of an
// installation named acme on version 4.11.0, with every path the task
// modules read already set.
func NewOptionsBuilder() *OptionsBuilder {
	return &OptionsBuilder{values: map[string]any{
		config.PlanNameKey: "install",
		"xt.name":          "acme",
		"xt.version":       "4.11.0",
		"xt.edition":       "core",
		"xt.mode":          "live",
		"xt.usersrc":       "/usr/local/acme/xtuple",
		"xt.coredir":       "/usr/local/acme/xtuple",
		"xt.logdir":        "/var/log/xtuple/4.11.0/acme",
		"xt.configdir":     "/etc/xtuple/4.11.0/acme",
		"xt.statedir":      "/var/lib/xtuple/4.11.0/acme",
		"xt.rundir":        "/var/run/xtuple/4.11.0/acme",
		"xt.ssldir":        "/etc/xtuple/4.11.0/acme/ssl",
		"xt.userhome":      "/usr/local/acme",
		"xt.userconfig":    "/usr/local/acme/.xtuple",
		"pg.logdir":        "/var/log/postgresql",

		"sys.policy.sudoersdir": "/etc/sudoers.d",
	}}
}

func (b *OptionsBuilder) clone() *OptionsBuilder {
	values := make(map[string]any, len(b.values))
	for k, v := range b.values {
		values[k] = v
	}
	return &OptionsBuilder{values: values}
}

// With sets an arbitrary path.
func (b *OptionsBuilder) With(path string, value any) *OptionsBuilder {
	nb := b.clone()
	nb.values[path] = value
	return nb
}

// Without removes a path.
func (b *OptionsBuilder) Without(path string) *OptionsBuilder {
	nb := b.clone()
	delete(nb.values, path)
	return nb
}

// WithPlan sets the plan name.
func (b *OptionsBuilder) WithPlan(name string) *OptionsBuilder {
	return b.With(config.PlanNameKey, name)
}

// WithName sets the installation name.
func (b *OptionsBuilder) WithName(name string) *OptionsBuilder {
	return b.With("xt.name", name)
}

// Build returns the options tree.
func (b *OptionsBuilder) Build() *config.Options {
	opts := config.NewOptions()
	for k, v := range b.values {
		opts.MustSet(k, v)
	}
	return opts
}
