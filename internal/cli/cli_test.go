package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidthor/asdesigner/pkg/sourcemap"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
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
`)
	return dir
}

func TestBuildCmd_RequiresSystemFlag(t *testing.T) {
	dir := newWorkspace(t)
	cmd := newBuildCmd()
	cmd.SetArgs([]string{dir})
	assert.EqualError(t, cmd.Execute(), "--system is required")
}

func TestBuildCmd_WritesInstanceTreeJSON(t *testing.T) {
	dir := newWorkspace(t)
	out := t.TempDir()

	cmd := newBuildCmd()
	cmd.SetArgs([]string{dir, "--system", "demo", "--mode", "default", "--out", out})
	require.NoError(t, cmd.Execute())

	path := filepath.Join(out, "exports", "demo", "system_structure", "default.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "core_node")
}

func TestBuildCmd_UnknownSystemFails(t *testing.T) {
	dir := newWorkspace(t)
	cmd := newBuildCmd()
	cmd.SetArgs([]string{dir, "--system", "nope"})
	assert.Error(t, cmd.Execute())
}

func TestValidateCmd_AcceptsWellFormedWorkspace(t *testing.T) {
	dir := newWorkspace(t)
	cmd := newValidateCmd()
	cmd.SetArgs([]string{dir})
	assert.NoError(t, cmd.Execute())
}

func TestValidateCmd_RejectsBrokenWorkspace(t *testing.T) {
	dir := t.TempDir()
	sourcemap.ClearCache()
	writeFixture(t, dir, "broken.node.yaml", "name: [this is not a node\n")

	cmd := newValidateCmd()
	cmd.SetArgs([]string{dir})
	assert.Error(t, cmd.Execute())
}

func TestLintCmd_RunsCleanlyAgainstWellFormedWorkspace(t *testing.T) {
	dir := newWorkspace(t)
	cmd := newLintCmd()
	cmd.SetArgs([]string{dir})
	assert.NoError(t, cmd.Execute())
}

func TestExplainCmd_RequiresNodeFlag(t *testing.T) {
	dir := newWorkspace(t)
	cmd := newExplainCmd()
	cmd.SetArgs([]string{dir})
	assert.EqualError(t, cmd.Execute(), "--node is required")
}

func TestExplainCmd_PrintsResolvedEntity(t *testing.T) {
	dir := newWorkspace(t)
	cmd := newExplainCmd()
	cmd.SetArgs([]string{dir, "--node", "core.node"})
	assert.NoError(t, cmd.Execute())
}

func TestExplainCmd_UnknownEntityFails(t *testing.T) {
	dir := newWorkspace(t)
	cmd := newExplainCmd()
	cmd.SetArgs([]string{dir, "--node", "missing.node"})
	assert.Error(t, cmd.Execute())
}
