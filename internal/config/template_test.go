package config

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	t.Parallel()
	opts := NewOptions()
	opts.MustSet("xt.name", "acme")
	opts.MustSet("xt.logdir", "/var/log/xtuple/4.11.0/acme")

	out, err := Render("chown -R {{.xt.name}}:xtuser {{.xt.logdir}}", opts)

	require.NoError(t, err)
	assert.Equal(t, "chown -R acme:xtuser /var/log/xtuple/4.11.0/acme", out)
}

func TestRender_MissingPathFails(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		tmpl string
	}{
		{name: "missing leaf", tmpl: "useradd {{.xt.name}} -p {{.sys.policy.userPassword}}"},
		{name: "missing namespace", tmpl: "chown {{.nginx.domain}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := NewOptions()
			opts.MustSet("xt.name", "acme")
			opts.MustSet("sys.policy.remotePassword", "x")

			_, err := Render(tt.tmpl, opts)

			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to render template")
		})
	}
}

func TestRenderWith(t *testing.T) {
	t.Parallel()
	opts := NewOptions()
	opts.MustSet("xt.coredir", "/usr/local/xtuple/src/xtuple")

	out, err := RenderWith("cd {{.xt.coredir}} && build -d {{.db.DBName}}", opts,
		map[string]any{"db": struct{ DBName string }{DBName: "xtuple_demo"}})

	require.NoError(t, err)
	assert.Equal(t, "cd /usr/local/xtuple/src/xtuple && build -d xtuple_demo", out)
}

func TestRenderFile(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"policy": {Data: []byte("{{.xt.name}} ALL = NOPASSWD: /usr/sbin/service xtuple {{.xt.name}} *\n")},
	}
	opts := NewOptions()
	opts.MustSet("xt.name", "acme")

	out, err := RenderFile(fsys, "policy", opts)
	require.NoError(t, err)
	assert.Equal(t, "acme ALL = NOPASSWD: /usr/sbin/service xtuple acme *\n", out)

	_, err = RenderFile(fsys, "missing", opts)
	assert.Error(t, err)
}
