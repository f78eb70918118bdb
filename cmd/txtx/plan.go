package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/txtxlabs/txtx/internal/graph"
	"github.com/txtxlabs/txtx/internal/manifest"
)

func newPlanCmd(root *rootFlags, app *AppContext) *cobra.Command {
	var runbookName, environment string
	var cliInputs map[string]string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what a runbook would resolve without running any addon command",
		Long: `Plan builds the construction graph and runs the same speculative pre-pass
apply uses to fold literals and already-known references, then prints every
output it could resolve up front. Anything gated on an action's real result
is reported as unresolved, since plan never executes a command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			lr, err := loadWorkspace(runRequest{
				WorkspacePath: root.workspace,
				RunbookName:   runbookName,
				Environment:   environment,
				CLIInputs:     manifest.InputOverrides(cliInputs),
			})
			if err != nil {
				return err
			}

			g, err := graph.Build(lr.Doc)
			if err != nil {
				return err
			}

			sched, store := newPlanningScheduler(app, g)
			outcome := sched.Plan(cmd.Context())

			names := make([]string, 0, len(outcome.Outputs))
			for name := range outcome.Outputs {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d of %d outputs resolvable before apply\n", lr.Ref.Name, len(names), countOutputs(g))
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", name, outcome.Outputs[name].GoString())
			}

			_ = store
			return nil
		},
	}

	cmd.Flags().StringVar(&runbookName, "runbook", "", "Name of the runbook to plan, as declared in the workspace manifest")
	cmd.Flags().StringVar(&environment, "environment", "", "Named environment to resolve inputs against")
	cmd.Flags().StringToStringVar(&cliInputs, "input", nil, "Override a declared input, name=value, repeatable")
	_ = cmd.MarkFlagRequired("runbook")

	return cmd
}

func countOutputs(g *graph.Graph) int {
	n := 0
	for _, node := range g.Nodes {
		if node.Kind == graph.KindOutput {
			n++
		}
	}
	return n
}
