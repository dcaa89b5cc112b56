// Package remotefs exposes the filesystem of a remote machine as an
// afero.Fs over SFTP, so task modules write files on the host their
// commands run on.
package remotefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/pkg/sftp"
	"github.com/spf13/afero"
	"github.com/spf13/afero/sftpfs"
	"golang.org/x/crypto/ssh"
)

// Dialer opens an SSH connection owned by the caller.
type Dialer interface {
	Dial(ctx context.Context) (*ssh.Client, error)
}

// Fs is a remote filesystem. Close releases the SFTP session and the
// underlying connection.
type Fs struct {
	afero.Fs

	sftp *sftp.Client
	conn *ssh.Client
}

// Open starts an SFTP session on a new connection from d.
func Open(ctx context.Context, d Dialer) (*Fs, error) {
	conn, err := d.Dial(ctx)
	if err != nil {
		return nil, err
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to start SFTP session: %w", err)
	}

	return &Fs{Fs: sftpfs.New(client), sftp: client, conn: conn}, nil
}

// Close ends the session.
func (f *Fs) Close() error {
	return errors.Join(f.sftp.Close(), f.conn.Close())
}
