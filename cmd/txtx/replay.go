package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/txtxlabs/txtx/internal/manifest"
	"github.com/txtxlabs/txtx/internal/supervisor"
	txtxerrors "github.com/txtxlabs/txtx/pkg/errors"
)

func newReplayCmd(root *rootFlags, app *AppContext) *cobra.Command {
	var runbookName, environment, responseLogPath string
	var cliInputs map[string]string

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run a runbook feeding it a recorded operator response log instead of a live console",
		Long: `Replay loads the same runbook apply would, but answers every operator
request (and any rewind recorded mid-run) from a JSON-lines file of
supervisor responses instead of attaching a console. This reproduces a past
run deterministically for debugging or auditing, and is the mechanism a
recorded rewind response travels through: it is dispatched to the session
exactly as it would be from a live operator.`,
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

			responses, err := loadResponseLog(responseLogPath)
			if err != nil {
				return err
			}

			feed := make(chan supervisor.Response, len(responses))
			for _, r := range responses {
				feed <- r
			}
			close(feed)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			outcome, err := executeRunbook(ctx, app, lr, executeOptions{
				InputSeed:    coerceInputOverrides(lr.Doc, lr.Inputs),
				ResponseFeed: feed,
			})
			if err != nil {
				return err
			}

			for name, v := range outcome.Outputs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", name, v.GoString())
			}
			if !outcome.Succeeded {
				return fmt.Errorf("%s: replay did not succeed, %d diagnostic(s) reported", lr.Ref.Name, len(outcome.Diagnostics))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runbookName, "runbook", "", "Name of the runbook to replay, as declared in the workspace manifest")
	cmd.Flags().StringVar(&environment, "environment", "", "Named environment to resolve inputs against")
	cmd.Flags().StringToStringVar(&cliInputs, "input", nil, "Override a declared input, name=value, repeatable")
	cmd.Flags().StringVar(&responseLogPath, "responses", "", "Path to a JSON-lines file of recorded supervisor responses")
	_ = cmd.MarkFlagRequired("runbook")
	_ = cmd.MarkFlagRequired("responses")

	return cmd
}

// loadResponseLog reads one supervisor.Response per line. Blank lines are
// skipped so a hand-edited log can carry spacing between phases.
func loadResponseLog(path string) ([]supervisor.Response, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, txtxerrors.NewInternalError("opening response log", err)
	}
	defer f.Close()

	var responses []supervisor.Response
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var r supervisor.Response
		if err := json.Unmarshal(text, &r); err != nil {
			return nil, txtxerrors.NewSyntaxError(path, line, err)
		}
		responses = append(responses, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, txtxerrors.NewInternalError("reading response log", err)
	}
	return responses, nil
}
