package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/xtserver/cmd/xtserver/handlers"
)

// Uninstall returns the command that removes what the plans installed.
// Databases, accounts and sudoers policies are retained.
func Uninstall() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the webmin customisations of an installation",
	}

	opts := bindOptions(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		flags, err := opts.options(cmd.Flags())
		if err != nil {
			return err
		}
		return handlers.Uninstall(cmd.Context(), globals, flags)
	}

	return cmd
}
