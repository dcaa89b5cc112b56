package config

import (
	"bytes"
	"fmt"
	"io/fs"
	"text/template"
)

// Render expands tmpl against the options tree. Placeholders use dotted
// paths, e.g. {{.xt.name}}. A placeholder naming a path that is not set is
// an error; nothing is substituted silently.
func Render(tmpl string, opts *Options) (string, error) {
	return render("inline", tmpl, opts.Map())
}

// RenderWith is Render with extra values layered over the tree under the
// given root keys, e.g. {"db": record} for {{.db.DBName}}.
func RenderWith(tmpl string, opts *Options, extra map[string]any) (string, error) {
	data := opts.Map()
	for k, v := range extra {
		data[k] = v
	}
	return render("inline", tmpl, data)
}

// RenderFile reads name from fsys and renders it like Render.
func RenderFile(fsys fs.FS, name string, opts *Options) (string, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", name, err)
	}
	return render(name, string(raw), opts.Map())
}

func render(name, tmpl string, data map[string]any) (string, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}
