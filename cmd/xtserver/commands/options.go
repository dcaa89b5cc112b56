package commands

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/imamik/xtserver/internal/config"
	"github.com/imamik/xtserver/internal/plans"
)

// optionFlags binds the declared options of the setup and install plans
// to command-line flags.
type optionFlags struct {
	specs   config.Schema
	strings map[string]*string
	bools   map[string]*bool
}

// flagName returns the flag for an option: the bare name in the xt
// namespace, otherwise the dashed path, e.g. "sys-webmin-bucket".
func flagName(spec config.OptionSpec) string {
	if spec.Namespace == "xt" {
		return spec.Name
	}
	return strings.ReplaceAll(spec.Path(), ".", "-")
}

func bindOptions(fs *pflag.FlagSet) *optionFlags {
	deps := plans.Deps{}
	specs := config.Merge(plans.Schema(plans.Setup, deps), plans.Schema(plans.Install, deps))

	f := &optionFlags{
		specs:   specs,
		strings: make(map[string]*string),
		bools:   make(map[string]*bool),
	}
	for _, spec := range specs {
		name := flagName(spec)
		switch spec.Kind {
		case config.KindBool:
			f.bools[name] = fs.Bool(name, false, spec.Description)
		default:
			f.strings[name] = fs.String(name, "", spec.Description)
		}
	}
	return f
}

// options returns the flags that were given explicitly. Unset flags are
// left out so the defaults file and schema defaults apply.
func (f *optionFlags) options(fs *pflag.FlagSet) (*config.Options, error) {
	opts := config.NewOptions()
	for _, spec := range f.specs {
		name := flagName(spec)
		if !fs.Changed(name) {
			continue
		}
		var v any
		if spec.Kind == config.KindBool {
			v = *f.bools[name]
		} else {
			v = *f.strings[name]
		}
		if err := opts.Set(spec.Path(), v); err != nil {
			return nil, err
		}
	}
	return opts, nil
}
