package design

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidthor/asdesigner/pkg/sourcemap"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Node(t *testing.T) {
	dir := t.TempDir()
	sourcemap.ClearCache()
	path := writeFile(t, dir, "a.node.yaml", `
autoware_system_design_format: "1.0.0"
name: a
launch:
  package: demo_pkg
  executable: demo_node
inputs:
  - name: in
    message_type: std_msgs/String
outputs:
  - name: out
    message_type: std_msgs/Int32
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, KindNode, cfg.Kind)
	assert.Equal(t, "a.node", cfg.FullName)
	assert.Equal(t, SubTypeBase, cfg.SubType)
	require.Len(t, cfg.Node.Inputs, 1)
	assert.Equal(t, "std_msgs/String", cfg.Node.Inputs[0].MessageType)
}

func TestLoad_VariantNode(t *testing.T) {
	dir := t.TempDir()
	sourcemap.ClearCache()
	path := writeFile(t, dir, "b.node.yaml", `
name: b
base: a.node
override:
  launch:
    args: ["--flag"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SubTypeVariant, cfg.SubType)
	assert.Equal(t, "a.node", cfg.Base)
	require.NotNil(t, cfg.Node.Override)
}

func TestConfig_Clone_NonMutation(t *testing.T) {
	dir := t.TempDir()
	sourcemap.ClearCache()
	path := writeFile(t, dir, "a.node.yaml", `
name: a
launch:
  executable: demo
inputs:
  - name: in
    message_type: std_msgs/String
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	clone := cfg.Clone()
	clone.Node.Inputs[0].Name = "mutated"
	clone.Raw["name"] = "mutated"

	assert.Equal(t, "in", cfg.Node.Inputs[0].Name, "cloning must not mutate the original")
	assert.Equal(t, "a", cfg.Raw["name"], "cloning must not mutate the raw tree")
}

func TestKindFromPath(t *testing.T) {
	k, err := KindFromPath("foo.system.yaml")
	require.NoError(t, err)
	assert.Equal(t, KindSystem, k)

	_, err = KindFromPath("foo.txt")
	assert.Error(t, err)
}
