package main

import (
	"github.com/spf13/cobra"
)

// rootFlags are persistent across every subcommand.
type rootFlags struct {
	verbose        bool
	workspace      string
	nonInteractive bool
}

func newRootCmd(app *AppContext) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "txtx",
		Short:         "txtx drives construction-graph runbooks against a workspace manifest",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVarP(&flags.workspace, "workspace", "w", "txtx.yml", "Path to the workspace manifest")
	cmd.PersistentFlags().BoolVar(&flags.nonInteractive, "non-interactive", false, "Disable the operator console even on a terminal")

	cmd.AddCommand(newPlanCmd(flags, app))
	cmd.AddCommand(newApplyCmd(flags, app))
	cmd.AddCommand(newValidateCmd(flags, app))
	cmd.AddCommand(newReplayCmd(flags, app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
