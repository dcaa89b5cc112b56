// Package handlers implements the business logic for CLI commands.
//
// Each exported function corresponds to a command. Collaborators that touch
// the machine (executor, filesystem, history store, asset store) are created
// through package-level factory variables so tests can replace them.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"

	"github.com/imamik/xtserver/internal/config"
	"github.com/imamik/xtserver/internal/history"
	"github.com/imamik/xtserver/internal/metrics"
	"github.com/imamik/xtserver/internal/platform/remotefs"
	"github.com/imamik/xtserver/internal/platform/s3"
	"github.com/imamik/xtserver/internal/platform/shell"
	"github.com/imamik/xtserver/internal/platform/ssh"
	"github.com/imamik/xtserver/internal/tasks/webmin"
)

// Globals are the persistent flags of the root command.
type Globals struct {
	// ConfigPath is the defaults file; empty means config.DefaultsFile.
	ConfigPath string

	// Host runs the plan over SSH instead of on this machine.
	Host    string
	SSHUser string
	SSHKey  string

	HistoryPath string
	MetricsFile string
	Verbosity   int

	// Version is the CLI version, recorded by the setup plan.
	Version string
}

// Environment is where a plan's commands and file writes take effect.
type Environment struct {
	Executor shell.Executor
	Fs       afero.Fs
	Target   string

	close func() error
}

// Close releases the connection to a remote target.
func (e *Environment) Close() error {
	if e.close == nil {
		return nil
	}
	return e.close()
}

// runStore is the part of the history store the handlers use.
type runStore interface {
	Start(ctx context.Context, plan, name string) (*history.Run, error)
	Finish(ctx context.Context, run *history.Run, runErr error) error
	List(ctx context.Context, limit int) ([]history.Run, error)
	Close() error
}

// Factory function variables - can be replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr

	// newLogger creates the structured logger for a command.
	newLogger = defaultLogger

	// loadDefaults reads the CLI defaults file.
	loadDefaults = config.LoadDefaults

	// openEnvironment connects to the target machine.
	openEnvironment = defaultOpenEnvironment

	// openHistory opens the run history store.
	openHistory = func(path string) (runStore, error) {
		return history.Open(path)
	}

	// newFetcher creates the asset store client.
	newFetcher = func(ctx context.Context, opts *config.Options) (webmin.Fetcher, error) {
		return s3.NewClient(ctx, webmin.StoreConfig(opts))
	}

	// writeMetrics writes the metrics textfile.
	writeMetrics = metrics.WriteTextfile

	// isInteractive reports whether output goes to a terminal.
	isInteractive = isInteractiveTTY
)

func defaultLogger(verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(stderr, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(stderr, args)
	}, funcr.Options{Verbosity: verbosity})
}

func defaultOpenEnvironment(ctx context.Context, g Globals, log logr.Logger) (*Environment, error) {
	if g.Host == "" {
		return &Environment{Executor: shell.NewLocal(), Fs: afero.NewOsFs(), Target: "localhost"}, nil
	}

	if g.SSHKey == "" {
		return nil, fmt.Errorf("--ssh-key is required with --host")
	}
	key, err := os.ReadFile(g.SSHKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key: %w", err)
	}

	client, err := ssh.NewClient(&ssh.Config{
		Host:       g.Host,
		User:       g.SSHUser,
		PrivateKey: key,
		Logger:     log.WithName("ssh"),
	})
	if err != nil {
		return nil, err
	}

	fs, err := remotefs.Open(ctx, client)
	if err != nil {
		return nil, err
	}
	return &Environment{Executor: client, Fs: fs, Target: client.Addr(), close: fs.Close}, nil
}

func isInteractiveTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
