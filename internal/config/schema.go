package config

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the value type of a declared option.
type Kind string

const (
	// KindString is a free-form string option.
	KindString Kind = "string"
	// KindBool is a boolean flag.
	KindBool Kind = "bool"
)

// OptionSpec declares one option a task module accepts.
type OptionSpec struct {
	// Name is the option name within its namespace, e.g. "maindb".
	Name string

	// Namespace is the tree namespace the option lives in, e.g. "xt".
	Namespace string

	Required    bool
	Description string
	Kind        Kind

	// Default is written when the option is unset. Nil means no default.
	Default any

	// Validate is called with the option's string form when it is set.
	Validate func(value string) error
}

// Path returns the dotted path of the option in the tree.
func (s OptionSpec) Path() string {
	if s.Namespace == "" {
		return s.Name
	}
	return s.Namespace + "." + s.Name
}

// Schema is the ordered list of options declared by a module or plan.
type Schema []OptionSpec

// Merge concatenates schemas, dropping later declarations of a path that
// is already declared.
func Merge(schemas ...Schema) Schema {
	seen := make(map[string]bool)
	var out Schema
	for _, s := range schemas {
		for _, spec := range s {
			if seen[spec.Path()] {
				continue
			}
			seen[spec.Path()] = true
			out = append(out, spec)
		}
	}
	return out
}

// Apply writes defaults for unset options, then enforces required options
// and runs validators. All failures are collected into a ValidationErrors.
func (s Schema) Apply(opts *Options) error {
	var errs ValidationErrors

	for _, spec := range s {
		path := spec.Path()

		if spec.Default != nil {
			if _, err := opts.SetDefault(path, spec.Default); err != nil {
				errs = append(errs, &ValidationError{Field: path, Message: err.Error()})
				continue
			}
		}

		if !opts.Has(path) || (spec.Kind != KindBool && opts.String(path) == "") {
			if spec.Required {
				errs = append(errs, &ValidationError{Field: path, Message: "is required"})
			}
			continue
		}

		if spec.Validate != nil {
			if err := spec.Validate(opts.String(path)); err != nil {
				errs = append(errs, &ValidationError{Field: path, Message: err.Error()})
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidationError reports a declared option that failed validation or a
// precondition that does not hold. It is always fatal and is raised before
// any mutating command runs.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a list of validation failures.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return "option validation failed:\n  " + strings.Join(msgs, "\n  ")
}

// Unwrap exposes the individual failures to errors.As.
func (v ValidationErrors) Unwrap() []error {
	out := make([]error, len(v))
	for i, e := range v {
		out[i] = e
	}
	return out
}

// IsValidation reports whether err is or wraps a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
