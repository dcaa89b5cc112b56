package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/xtserver/cmd/xtserver/handlers"
	"github.com/imamik/xtserver/internal/plans"
)

// Doctor returns the command that checks the target for the tools a plan
// runs.
//
// Optional flags:
//
//	--plan: Plan whose tools are checked (default: install)
func Doctor() *cobra.Command {
	var plan string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the target has the tools a plan needs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), globals, plan)
		},
	}

	cmd.Flags().StringVar(&plan, "plan", plans.Install, "Plan to check: setup or install")

	return cmd
}
