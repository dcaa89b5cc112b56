package wizard

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/xtserver/internal/config"
)

func TestBuildOptions(t *testing.T) {
	t.Parallel()
	result := defaults()
	result.Version = "4.11.0"
	result.Edition = "manufacturing"
	result.Demo = true
	result.PgHost = "db.internal"

	opts := BuildOptions(result)

	assert.Equal(t, "4.11.0", opts.String("xt.version"))
	assert.Equal(t, "manufacturing", opts.String("xt.edition"))
	assert.Equal(t, "live", opts.String("xt.mode"))
	assert.True(t, opts.Bool("xt.demo"))
	assert.False(t, opts.Bool("xt.quickstart"))
	assert.Equal(t, "db.internal", opts.String("pg.host"))
	assert.Equal(t, "5432", opts.String("pg.port"))
	assert.Equal(t, "admin", opts.String("pg.user"))
	assert.Equal(t, "com.xtuple.deploy-assets", opts.String("sys.webmin.bucket"))
}

func TestBuildOptions_NoPostgresHost(t *testing.T) {
	t.Parallel()
	opts := BuildOptions(defaults())

	assert.False(t, opts.Has("pg.host"))
	assert.False(t, opts.Has("pg.port"), "connection settings without a host are left out")
	assert.False(t, opts.Has("xt.version"))
}

func TestWrite(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	result := defaults()
	result.Version = "4.11.0"

	require.NoError(t, Write(fs, "/etc/xtuple/xtserver.yaml", BuildOptions(result)))

	data, err := afero.ReadFile(fs, "/etc/xtuple/xtserver.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Generated by: xtserver init")

	loaded, err := config.LoadFile(fs, "/etc/xtuple/xtserver.yaml")
	require.NoError(t, err)
	assert.Equal(t, "4.11.0", loaded.String("xt.version"))
	assert.Equal(t, "core", loaded.String("xt.edition"))
}

func TestValidators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		fn    func(string) error
		input string
		ok    bool
	}{
		{"version ok", validateVersion, "4.11.0", true},
		{"version short", validateVersion, "4.11", false},
		{"mode ok", validateMode, "pilot", true},
		{"mode digits", validateMode, "pilot2", false},
		{"port ok", validatePort, "5432", true},
		{"port text", validatePort, "pg", false},
		{"port range", validatePort, "70000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.fn(tt.input)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestEditionOptions(t *testing.T) {
	t.Parallel()
	assert.Len(t, EditionOptions(), 4)
}
