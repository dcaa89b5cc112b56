package plans

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"

	"github.com/imamik/xtserver/internal/provisioning"
)

func names(tasks []provisioning.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Name())
	}
	return out
}

func TestLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		plan string
		want []string
	}{
		{plan: "setup", want: []string{"xt.paths", "sys.policy", "sys.webmin"}},
		{plan: "install", want: []string{"xt.paths", "xt.database", "sys.policy"}},
		{plan: "install-pilot", want: []string{"xt.paths", "xt.database", "sys.policy"}},
	}

	for _, tt := range tests {
		t.Run(tt.plan, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, names(Lookup(tt.plan, Deps{Fs: afero.NewMemMapFs()})))
		})
	}
}

func TestUninstallable(t *testing.T) {
	t.Parallel()
	got := names(Uninstallable(Deps{Fs: afero.NewMemMapFs()}))
	assert.Equal(t, []string{"sys.policy", "sys.webmin", "xt.database"}, got)
}

func TestSchema(t *testing.T) {
	t.Parallel()

	paths := func(plan string) []string {
		var out []string
		for _, spec := range Schema(plan, Deps{Fs: afero.NewMemMapFs()}) {
			out = append(out, spec.Path())
		}
		return out
	}

	install := paths(Install)
	assert.Contains(t, install, "xt.maindb")
	assert.Contains(t, install, "sys.policy.sudoersdir")
	assert.NotContains(t, install, "sys.webmin.package")

	setup := paths(Setup)
	assert.Contains(t, setup, "sys.webmin.package")
	assert.NotContains(t, setup, "xt.maindb")
}
