package main

import (
	"github.com/txtxlabs/txtx/internal/addon"
	"github.com/txtxlabs/txtx/internal/addonstd"
	"github.com/txtxlabs/txtx/internal/obslog"
	"github.com/txtxlabs/txtx/internal/signer"
	"github.com/txtxlabs/txtx/internal/specs"
)

// AppContext bundles the long-lived services constructed once at startup:
// the addon-populated command/signer registry and the root logger. Each
// run (plan/apply/validate/replay) gets its own execctx.Store, graph, and
// supervisor session, since those are scoped to one runbook invocation.
type AppContext struct {
	Logger   *obslog.Logger
	Registry *specs.Registry
	Signers  *signer.Coordinator
}

// NewAppContext builds the registry by registering every built-in addon.
// A third-party addon would be wired here the same way.
func NewAppContext(logger *obslog.Logger) (*AppContext, error) {
	reg := specs.NewRegistry()

	for _, a := range []addon.Addon{
		addonstd.RepoAddon{},
		addonstd.UtilAddon{},
	} {
		if err := addon.RegisterAll(reg, a); err != nil {
			return nil, err
		}
	}

	return &AppContext{
		Logger:   logger,
		Registry: reg,
		Signers:  signer.New(),
	}, nil
}
