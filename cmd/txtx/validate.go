package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/txtxlabs/txtx/internal/graph"
	"github.com/txtxlabs/txtx/internal/manifest"
)

func newValidateCmd(root *rootFlags, app *AppContext) *cobra.Command {
	var runbookName, environment string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load the manifest and runbook and build the construction graph without executing anything",
		Long: `Validate resolves the workspace manifest, loads and flow-expands the named
runbook, and builds its construction graph. It reports reference errors and
dependency cycles but never invokes an addon command or requests operator
input. Exit code 0 means the graph builds cleanly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			lr, err := loadWorkspace(runRequest{
				WorkspacePath: root.workspace,
				RunbookName:   runbookName,
				Environment:   environment,
				CLIInputs:     manifest.InputOverrides{},
			})
			if err != nil {
				return err
			}

			g, err := graph.Build(lr.Doc)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d instances across %d levels, no cycles\n", lr.Ref.Name, len(g.Nodes), len(g.Levels))
			return nil
		},
	}

	cmd.Flags().StringVar(&runbookName, "runbook", "", "Name of the runbook to validate, as declared in the workspace manifest")
	cmd.Flags().StringVar(&environment, "environment", "", "Named environment to resolve inputs against")
	_ = cmd.MarkFlagRequired("runbook")

	return cmd
}
