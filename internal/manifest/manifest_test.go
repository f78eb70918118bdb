package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleManifest = `
name: acme-workspace
runbooks:
  - name: deploy
    location: runbooks/deploy.tx
global:
  inputs:
    network: mainnet
defaults:
  inputs:
    gas_limit: "21000"
environments:
  staging:
    inputs:
      network: sepolia
      gas_limit: "30000"
`

func TestParseValidManifest(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(sampleManifest), "manifest.yml")
	require.NoError(t, err)
	require.Equal(t, "acme-workspace", m.Name)
	require.Len(t, m.Runbooks, 1)
}

func TestParseRejectsMissingRequiredFields(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("name: acme-workspace\n"), "manifest.yml")
	require.Error(t, err)
}

func TestParseRejectsDuplicateRunbookNames(t *testing.T) {
	t.Parallel()

	doc := `
name: acme
runbooks:
  - name: deploy
    location: a.tx
  - name: deploy
    location: b.tx
`
	_, err := Parse([]byte(doc), "manifest.yml")
	require.Error(t, err)
}

func TestResolveEnvironmentMergesGlobalDefaultsAndNamed(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(sampleManifest), "manifest.yml")
	require.NoError(t, err)

	env, err := m.ResolveEnvironment("staging")
	require.NoError(t, err)
	require.Equal(t, "sepolia", env.Inputs["network"])
	require.Equal(t, "30000", env.Inputs["gas_limit"])
}

func TestResolveEnvironmentWithoutNameUsesGlobalAndDefaults(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(sampleManifest), "manifest.yml")
	require.NoError(t, err)

	env, err := m.ResolveEnvironment("")
	require.NoError(t, err)
	require.Equal(t, "mainnet", env.Inputs["network"])
	require.Equal(t, "21000", env.Inputs["gas_limit"])
}

func TestResolveEnvironmentUnknownNameIsError(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(sampleManifest), "manifest.yml")
	require.NoError(t, err)

	_, err = m.ResolveEnvironment("production")
	require.Error(t, err)
}

func TestApplyCLIOverridesReportsShadowedKeys(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(sampleManifest), "manifest.yml")
	require.NoError(t, err)

	env, err := m.ResolveEnvironment("staging")
	require.NoError(t, err)

	env, shadowed := ApplyCLIOverrides(env, InputOverrides{"network": "holesky", "contract_address": "0xabc"})
	require.Equal(t, "holesky", env.Inputs["network"])
	require.Equal(t, "0xabc", env.Inputs["contract_address"])
	require.Equal(t, []string{"network"}, shadowed)
}

func TestRunbookByName(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(sampleManifest), "manifest.yml")
	require.NoError(t, err)

	rb, ok := m.RunbookByName("deploy")
	require.True(t, ok)
	require.Equal(t, "runbooks/deploy.tx", rb.Location)

	_, ok = m.RunbookByName("missing")
	require.False(t, ok)
}
