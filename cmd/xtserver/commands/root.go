// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/xtserver/cmd/xtserver/handlers"
	"github.com/imamik/xtserver/internal/history"
)

// globals holds the persistent flags shared by every subcommand.
var globals handlers.Globals

// Root returns the root command for the xtserver CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "xtserver",
		Short:         "Provision xTuple ERP servers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	globals = handlers.Globals{Version: version}

	pf := cmd.PersistentFlags()
	pf.CountVarP(&globals.Verbosity, "verbose", "v", "Increase log verbosity (repeatable)")
	pf.StringVar(&globals.ConfigPath, "config", "", "Path to the defaults file (default: /etc/xtuple/xtserver.yaml)")
	pf.StringVar(&globals.Host, "host", "", "Provision this host over SSH instead of the local machine")
	pf.StringVar(&globals.SSHUser, "ssh-user", "root", "SSH user for --host")
	pf.StringVar(&globals.SSHKey, "ssh-key", "", "Private key for --host")
	pf.StringVar(&globals.HistoryPath, "history", history.DefaultPath, "Run history database; empty disables history")
	pf.StringVar(&globals.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after each run")

	cmd.AddCommand(Install())
	cmd.AddCommand(Uninstall())
	cmd.AddCommand(Doctor())
	cmd.AddCommand(History())
	cmd.AddCommand(Init())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
