package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	pw, err := Generate(24)

	require.NoError(t, err)
	assert.Len(t, pw, 24)
	for _, r := range pw {
		assert.True(t, strings.ContainsRune(alphabet, r), "unexpected rune %q", r)
	}
}

func TestGenerate_Unique(t *testing.T) {
	t.Parallel()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		pw, err := Default()
		require.NoError(t, err)
		assert.False(t, seen[pw])
		seen[pw] = true
	}
}

func TestGenerate_InvalidLength(t *testing.T) {
	t.Parallel()
	_, err := Generate(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
}
