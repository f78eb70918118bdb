package addonstd

import (
	"context"
	"fmt"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/txtxlabs/txtx/internal/addon"
	"github.com/txtxlabs/txtx/internal/specs"
	"github.com/txtxlabs/txtx/internal/value"
	txtxerrors "github.com/txtxlabs/txtx/pkg/errors"
)

// RepoAddon implements the "repo" namespace: a single command, clone, that
// checks out a git reference into a destination directory. It exists
// mainly to exercise the addon.Addon contract with a concrete, dependency
// free (beyond go-git) implementation addon authors can pattern-match.
type RepoAddon struct{}

func (RepoAddon) Metadata() addon.Metadata {
	return addon.Metadata{Namespace: "repo", Version: "1.0.0", Description: "clone and inspect git repositories"}
}

func (RepoAddon) Signers() []specs.SignerSpec { return nil }

func (RepoAddon) Functions() map[string]specs.FunctionImpl { return nil }

func (RepoAddon) Commands() []specs.CommandSpec {
	return []specs.CommandSpec{
		{
			Name: "clone",
			Doc:  "clone a git repository into a destination directory",
			Inputs: []specs.ParamSpec{
				{Name: "url", Type: value.Type{Kind: value.TypeString}, Required: true},
				{Name: "destination", Type: value.Type{Kind: value.TypeString}, Required: true},
				{Name: "reference", Type: value.Type{Kind: value.TypeString}, Required: false},
			},
			Outputs: []specs.OutputSpec{
				{Name: "commit_hash", Type: value.Type{Kind: value.TypeString}},
			},
			ReentrancySafe: true,
			CheckExecutability: func(ctx context.Context, inputs map[string]value.Value, auth specs.AuthContext) (specs.Requirement, error) {
				if inputs["url"].IsUnknown() || inputs["destination"].IsUnknown() {
					return specs.RequirementNeedsOperatorAction, nil
				}
				return specs.RequirementReady, nil
			},
			RunExecution: func(ctx context.Context, inputs map[string]value.Value, auth specs.AuthContext, progress specs.ProgressSink) (specs.RunResult, error) {
				return cloneRepo(ctx, inputs, progress)
			},
		},
	}
}

func cloneRepo(ctx context.Context, inputs map[string]value.Value, progress specs.ProgressSink) (specs.RunResult, error) {
	url, ok := inputs["url"].AsString()
	if !ok {
		return specs.RunResult{}, txtxerrors.NewInternalError("repo::clone: url input must be a string", nil)
	}
	destination, ok := inputs["destination"].AsString()
	if !ok {
		return specs.RunResult{}, txtxerrors.NewInternalError("repo::clone: destination input must be a string", nil)
	}

	opts := &git.CloneOptions{URL: url}
	if ref, exists := inputs["reference"]; exists && !ref.IsUnknown() && !ref.IsNull() {
		refName, ok := ref.AsString()
		if !ok {
			return specs.RunResult{}, txtxerrors.NewInternalError("repo::clone: reference input must be a string", nil)
		}
		opts.ReferenceName = plumbing.ReferenceName(refName)
	}

	if progress != nil {
		progress("cloning", url)
	}

	repo, err := git.PlainCloneContext(ctx, destination, false, opts)
	if err != nil {
		return specs.RunResult{}, fmt.Errorf("repo::clone: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return specs.RunResult{}, fmt.Errorf("repo::clone: reading head: %w", err)
	}

	return specs.RunResult{
		Outputs: map[string]value.Value{
			"commit_hash": value.String(head.Hash().String()),
		},
	}, nil
}
