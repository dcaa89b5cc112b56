package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/xtserver/cmd/xtserver/handlers"
)

// Init returns the command for the interactive defaults wizard.
//
// Optional flags:
//
//	--output, -o: Defaults file to write (default: /etc/xtuple/xtserver.yaml)
func Init() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write machine defaults interactively",
		Long: `Run an interactive wizard that writes the defaults shared by every plan.

The wizard asks for:
  - xTuple version, edition and mode
  - Whether to build the demo and quickstart databases
  - The Postgres server used to verify builds
  - The bucket that holds deploy assets

Values given as flags to install override the defaults file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Defaults file to write")

	return cmd
}
