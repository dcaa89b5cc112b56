package remotefs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

type failingDialer struct{ err error }

func (d failingDialer) Dial(context.Context) (*ssh.Client, error) { return nil, d.err }

func TestOpen_DialFailure(t *testing.T) {
	t.Parallel()

	fs, err := Open(context.Background(), failingDialer{err: errors.New("failed to establish SSH connection to 10.0.0.5:22")})

	require.Error(t, err)
	assert.Nil(t, fs)
	assert.Contains(t, err.Error(), "10.0.0.5:22")
}
