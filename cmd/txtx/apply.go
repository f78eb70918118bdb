package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/txtxlabs/txtx/internal/manifest"
)

func newApplyCmd(root *rootFlags, app *AppContext) *cobra.Command {
	var runbookName, environment string
	var cliInputs map[string]string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Execute a runbook against a workspace manifest",
		Long: `Apply resolves the workspace manifest, loads and flow-expands the named
runbook, builds its construction graph, and drives it through the scheduler
wave by wave. On a terminal, an operator console attaches automatically
unless --non-interactive is set; otherwise progress is logged to stderr and
an operator request gets no reply, so the instance that raised it waits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			interactive := !root.nonInteractive && term.IsTerminal(int(os.Stdout.Fd()))

			lr, err := loadWorkspace(runRequest{
				WorkspacePath: root.workspace,
				RunbookName:   runbookName,
				Environment:   environment,
				CLIInputs:     manifest.InputOverrides(cliInputs),
			})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			outcome, err := executeRunbook(ctx, app, lr, executeOptions{
				Interactive: interactive,
				AttachTUI:   interactive,
				InputSeed:   coerceInputOverrides(lr.Doc, lr.Inputs),
			})
			if err != nil {
				return err
			}

			if !interactive {
				for name, v := range outcome.Outputs {
					fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", name, v.GoString())
				}
			}

			if !outcome.Succeeded {
				return fmt.Errorf("%s: %d diagnostic(s) reported, run did not succeed", lr.Ref.Name, len(outcome.Diagnostics))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runbookName, "runbook", "", "Name of the runbook to apply, as declared in the workspace manifest")
	cmd.Flags().StringVar(&environment, "environment", "", "Named environment to resolve inputs against")
	cmd.Flags().StringToStringVar(&cliInputs, "input", nil, "Override a declared input, name=value, repeatable")
	_ = cmd.MarkFlagRequired("runbook")

	return cmd
}
