package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/xtserver/cmd/xtserver/handlers"
)

// History returns the command that lists recent plan runs.
func History() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent plan runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.History(cmd.Context(), globals, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show; 0 shows all")

	return cmd
}
