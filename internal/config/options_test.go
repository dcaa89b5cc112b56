package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_SetAndGet(t *testing.T) {
	t.Parallel()
	opts := NewOptions()

	require.NoError(t, opts.Set("xt.name", "acme"))
	require.NoError(t, opts.Set("sys.policy.remotePassword", "secret"))

	v, ok := opts.Get("xt.name")
	require.True(t, ok)
	assert.Equal(t, "acme", v)
	assert.Equal(t, "secret", opts.String("sys.policy.remotePassword"))
	assert.True(t, opts.Has("sys.policy"))
	assert.False(t, opts.Has("sys.policy.userPassword"))
}

func TestOptions_SetThroughScalarFails(t *testing.T) {
	t.Parallel()
	opts := NewOptions()
	require.NoError(t, opts.Set("xt.name", "acme"))

	err := opts.Set("xt.name.first", "x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "xt.name is a value")
}

func TestOptions_EmptyPath(t *testing.T) {
	t.Parallel()
	opts := NewOptions()

	assert.Error(t, opts.Set("", 1))
	assert.Error(t, opts.Set("xt..name", 1))
	_, ok := opts.Get("")
	assert.False(t, ok)
}

func TestOptions_SetDefaultDoesNotOverwrite(t *testing.T) {
	t.Parallel()
	opts := NewOptions()
	require.NoError(t, opts.Set("xt.edition", "manufacturing"))

	written, err := opts.SetDefault("xt.edition", "core")
	require.NoError(t, err)
	assert.False(t, written)
	assert.Equal(t, "manufacturing", opts.String("xt.edition"))

	written, err = opts.SetDefault("xt.mode", "live")
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, "live", opts.String("xt.mode"))
}

func TestOptions_Bool(t *testing.T) {
	t.Parallel()
	opts := NewOptions()
	opts.MustSet("xt.demo", true)
	opts.MustSet("xt.quickstart", "true")
	opts.MustSet("xt.other", "nope")

	assert.True(t, opts.Bool("xt.demo"))
	assert.True(t, opts.Bool("xt.quickstart"))
	assert.False(t, opts.Bool("xt.other"))
	assert.False(t, opts.Bool("xt.missing"))
}

func TestOptions_MapIsACopy(t *testing.T) {
	t.Parallel()
	opts := NewOptions()
	opts.MustSet("pg.host", "localhost")

	m := opts.Map()
	m["pg"].(map[string]any)["host"] = "elsewhere"

	assert.Equal(t, "localhost", opts.String("pg.host"))
}

func TestOptions_Keys(t *testing.T) {
	t.Parallel()
	opts := FromMap(map[string]any{
		"xt": map[string]any{"name": "acme", "version": "4.11.0"},
		"pg": map[string]any{"port": 5432},
	})

	assert.Equal(t, []string{"pg.port", "xt.name", "xt.version"}, opts.Keys())
	assert.Equal(t, "5432", opts.String("pg.port"))
}

func TestOptions_PlanName(t *testing.T) {
	t.Parallel()
	opts := NewOptions()
	opts.MustSet(PlanNameKey, "setup")

	assert.Equal(t, "setup", opts.PlanName())
}
