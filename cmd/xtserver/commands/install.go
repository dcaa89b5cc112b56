package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/xtserver/cmd/xtserver/handlers"
	"github.com/imamik/xtserver/internal/plans"
)

// Install returns the command that runs a provisioning plan.
//
// Optional flags:
//
//	--plan: Plan to run (default: install)
//
// Every option declared by the setup and install modules is also a flag,
// e.g. --name, --maindb, --edition, --demo.
func Install() *cobra.Command {
	var plan string

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Run a provisioning plan",
		Long: `Run a provisioning plan against this machine or a remote host.

The setup plan prepares the machine once: the xtremote account, the
machine-wide sudoers policy and the webmin console. The install plan
builds the databases of one installation and creates its user.

Examples:
  # Prepare the machine
  xtserver install --plan setup

  # Install acme from a backup, with the demo database
  xtserver install --name acme --version 4.11.0 --maindb ./acme.backup --demo

  # Provision a remote host
  xtserver install --host 10.0.0.5 --ssh-key ~/.ssh/id_ed25519 --name acme --quickstart`,
	}

	cmd.Flags().StringVar(&plan, "plan", plans.Install, "Plan to run: setup or install")
	opts := bindOptions(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		flags, err := opts.options(cmd.Flags())
		if err != nil {
			return err
		}
		return handlers.Install(cmd.Context(), globals, plan, flags)
	}

	return cmd
}
