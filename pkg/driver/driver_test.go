package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidthor/asdesigner/pkg/design"
	"github.com/davidthor/asdesigner/pkg/serialize"
	"github.com/davidthor/asdesigner/pkg/sourcemap"
	"github.com/davidthor/asdesigner/pkg/tree"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newWorkspace(t *testing.T) string {
	t.Helper()
	sourcemap.ClearCache()
	dir := t.TempDir()

	writeFixture(t, dir, "core.node.yaml", `
name: core
launch:
  executable: core_node
`)
	writeFixture(t, dir, "demo.system.yaml", `
name: demo
components:
  - name: core
    entity: core.node
modes:
  - name: default
    default: true
  - name: sim
mode_configs:
  sim:
    override:
      components:
        - name: core
          entity: core.node
arguments:
  - name: log_level
    default: info
`)
	return dir
}

func TestLoadWorkspace_DiscoversAndIndexesFiles(t *testing.T) {
	dir := newWorkspace(t)
	reg, err := LoadWorkspace(dir, map[string]design.PackageResolution{})
	require.NoError(t, err)

	cfg, err := reg.GetSystem("demo")
	require.NoError(t, err)
	assert.Equal(t, "demo.system", cfg.FullName)
}

func TestBuildMode_ProducesInstanceTreeWithLaunchedNode(t *testing.T) {
	dir := newWorkspace(t)
	reg, err := LoadWorkspace(dir, map[string]design.PackageResolution{})
	require.NoError(t, err)

	var steps []string
	d := New(reg, nil, nil)
	d.Snapshot = func(buildID, systemName, mode, step string, root *tree.Instance, stepErr error) {
		steps = append(steps, step)
	}

	result, err := d.BuildMode("demo", "default", nil)
	require.NoError(t, err)
	require.NotNil(t, result.Root)
	assert.Contains(t, steps, "finalize")

	children := result.Root.OrderedChildren()
	require.Len(t, children, 1)
	assert.Equal(t, "core", children[0].Name)

	payload := serialize.New(result.Root, "demo", "default", "2026-07-31T00:00:00Z", "finalize", nil)
	assert.Equal(t, serialize.SchemaVersion, payload.SchemaVersion)
	coreData := payload.Data.Children["core"]
	require.NotNil(t, coreData)
	require.NotNil(t, coreData.Launch)
	assert.Equal(t, "core_node", coreData.Launch.Executable)
}

func TestBuildMode_UnknownSystemFails(t *testing.T) {
	dir := newWorkspace(t)
	reg, err := LoadWorkspace(dir, map[string]design.PackageResolution{})
	require.NoError(t, err)

	d := New(reg, nil, nil)
	_, err = d.BuildMode("nonexistent", "default", nil)
	assert.Error(t, err)
}

func TestBuildAllModes_BuildsEveryDeclaredMode(t *testing.T) {
	dir := newWorkspace(t)
	reg, err := LoadWorkspace(dir, map[string]design.PackageResolution{})
	require.NoError(t, err)

	d := New(reg, nil, nil)
	results, err := d.BuildAllModes("demo", nil)
	assert.NoError(t, err)
	require.Len(t, results, 2)

	modes := map[string]bool{}
	for _, r := range results {
		modes[r.Mode] = true
	}
	assert.True(t, modes["default"])
	assert.True(t, modes["sim"])
}

// TestBuildAllModes_AbortsOnFirstModeFailure pins spec.md §5's "Failure
// isolation": modes are not independent, so a first-mode failure must
// cancel every mode after it rather than being skipped past.
func TestBuildAllModes_AbortsOnFirstModeFailure(t *testing.T) {
	sourcemap.ClearCache()
	dir := t.TempDir()

	writeFixture(t, dir, "core.node.yaml", `
name: core
launch:
  executable: core_node
`)
	writeFixture(t, dir, "demo.system.yaml", `
name: demo
components:
  - name: core
    entity: core.node
modes:
  - name: broken
  - name: default
    default: true
mode_configs:
  broken:
    override:
      components:
        - name: core
          entity: missing.node
`)

	reg, err := LoadWorkspace(dir, map[string]design.PackageResolution{})
	require.NoError(t, err)

	d := New(reg, nil, nil)
	results, err := d.BuildAllModes("demo", nil)
	assert.Error(t, err)
	assert.Empty(t, results, "the broken mode is declared first, so no mode ever builds successfully")
}

func TestExpandDeployments_MergesVariantArgumentsOverDefaults(t *testing.T) {
	dir := newWorkspace(t)
	reg, err := LoadWorkspace(dir, map[string]design.PackageResolution{})
	require.NoError(t, err)

	d := New(reg, nil, nil)
	cfg := DeploymentsConfig{
		Base: "demo",
		DeployList: []DeployVariant{
			{Name: "prod", Arguments: map[string]interface{}{"log_level": "warn"}},
			{Name: "staging"},
		},
	}

	results, errs := d.ExpandDeployments(cfg, nil)
	assert.Empty(t, errs)
	require.Contains(t, results, "prod")
	require.Contains(t, results, "staging")
	assert.Len(t, results["prod"], 2)
	assert.Len(t, results["staging"], 2)
}

// TestExpandDeployments_VariantFailureDoesNotBlockOtherVariants confirms
// each named deploy variant is its own deployment: a mode failure aborts
// the rest of that variant's modes (same rule as BuildAllModes) but other
// variants still get attempted.
func TestExpandDeployments_VariantFailureDoesNotBlockOtherVariants(t *testing.T) {
	sourcemap.ClearCache()
	dir := t.TempDir()

	writeFixture(t, dir, "core.node.yaml", `
name: core
launch:
  executable: core_node
`)
	writeFixture(t, dir, "demo.system.yaml", `
name: demo
components:
  - name: core
    entity: core.node
modes:
  - name: broken
  - name: default
    default: true
mode_configs:
  broken:
    override:
      components:
        - name: core
          entity: missing.node
arguments:
  - name: log_level
    default: info
`)

	reg, err := LoadWorkspace(dir, map[string]design.PackageResolution{})
	require.NoError(t, err)

	d := New(reg, nil, nil)
	cfg := DeploymentsConfig{
		Base: "demo",
		DeployList: []DeployVariant{
			{Name: "prod"},
			{Name: "staging"},
		},
	}

	results, errs := d.ExpandDeployments(cfg, nil)
	require.Len(t, errs, 2, "both variants hit the same broken first mode")
	assert.Empty(t, results["prod"])
	assert.Empty(t, results["staging"])
}
