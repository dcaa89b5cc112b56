package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PlanNameKey is the path under which the running plan's name is stored.
const PlanNameKey = "planName"

// Options is the shared configuration context of a plan.
//
// It is populated additively: the CLI seeds it from flags and the defaults
// file, and hooks add values that later hooks read. It is not safe for
// concurrent use; a plan runs on a single goroutine.
type Options struct {
	root map[string]any
}

// NewOptions returns an empty options tree.
func NewOptions() *Options {
	return &Options{root: make(map[string]any)}
}

// FromMap builds an options tree from nested maps, such as the result of
// decoding a YAML document. The input is deep-copied.
func FromMap(m map[string]any) *Options {
	o := NewOptions()
	for k, v := range m {
		o.root[k] = copyValue(v)
	}
	return o
}

// Get returns the value stored at path.
func (o *Options) Get(path string) (any, bool) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, false
	}

	node := o.root
	for _, p := range parts[:len(parts)-1] {
		next, ok := node[p].(map[string]any)
		if !ok {
			return nil, false
		}
		node = next
	}

	v, ok := node[parts[len(parts)-1]]
	return v, ok
}

// Has reports whether a value is stored at path.
func (o *Options) Has(path string) bool {
	_, ok := o.Get(path)
	return ok
}

// String returns the value at path formatted as a string, or "" when unset.
func (o *Options) String(path string) string {
	v, ok := o.Get(path)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// Bool returns the value at path interpreted as a boolean. Strings are
// parsed with strconv.ParseBool; anything unparseable is false.
func (o *Options) Bool(path string) bool {
	v, ok := o.Get(path)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(t)
		return err == nil && b
	default:
		return false
	}
}

// Set stores value at path, creating intermediate namespaces as needed.
// It fails if a prefix of path already holds a scalar.
func (o *Options) Set(path string, value any) error {
	parts := splitPath(path)
	if len(parts) == 0 {
		return fmt.Errorf("empty option path")
	}

	node := o.root
	for i, p := range parts[:len(parts)-1] {
		child, exists := node[p]
		if !exists {
			next := make(map[string]any)
			node[p] = next
			node = next
			continue
		}
		next, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("option %s is a value, not a namespace", strings.Join(parts[:i+1], "."))
		}
		node = next
	}

	node[parts[len(parts)-1]] = value
	return nil
}

// MustSet is Set for paths known to be well formed. It panics on error.
func (o *Options) MustSet(path string, value any) {
	if err := o.Set(path, value); err != nil {
		panic(err)
	}
}

// SetDefault stores value at path only if nothing is stored there yet.
// It reports whether the value was written.
func (o *Options) SetDefault(path string, value any) (bool, error) {
	if o.Has(path) {
		return false, nil
	}
	if err := o.Set(path, value); err != nil {
		return false, err
	}
	return true, nil
}

// Map returns a deep copy of the whole tree.
func (o *Options) Map() map[string]any {
	return copyMap(o.root)
}

// Keys returns every leaf path in the tree, sorted.
func (o *Options) Keys() []string {
	var keys []string
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			if child, ok := v.(map[string]any); ok {
				walk(p, child)
				continue
			}
			keys = append(keys, p)
		}
	}
	walk("", o.root)
	sort.Strings(keys)
	return keys
}

// PlanName returns the name of the plan this tree belongs to.
func (o *Options) PlanName() string {
	return o.String(PlanNameKey)
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" {
			return nil
		}
	}
	return parts
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
